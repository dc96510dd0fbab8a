package out

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"mentorpay/internal/modules/session/domain"
)

// ErrTransient marks a collaborator failure worth retrying.
var ErrTransient = errors.New("transient settlement failure")

type StateStore interface {
	Save(ctx context.Context, state domain.State) error
	Load(ctx context.Context, sessionID string) (domain.State, error)
	Delete(ctx context.Context, sessionID string) error
	List(ctx context.Context) ([]domain.State, error)
}

type ConfirmationRepository interface {
	Save(ctx context.Context, confirmation domain.Confirmation) error
	Get(ctx context.Context, sessionID string) (domain.Confirmation, error)
	List(ctx context.Context) ([]domain.Confirmation, error)
}

type ReportStore interface {
	Save(ctx context.Context, confirmation domain.Confirmation, transitions []domain.Transition) (string, error)
}

type ReleaseRequest struct {
	SessionID  string
	Payee      string
	Token      domain.Token
	Cumulative decimal.Decimal
}

type PaymentReleaser interface {
	Release(ctx context.Context, request ReleaseRequest) (string, error)
}

type RefundRequest struct {
	SessionID string
	Payer     string
	Token     domain.Token
	Reason    domain.RefundReason
}

type Refunder interface {
	Refund(ctx context.Context, request RefundRequest) error
}

type SecurityEventSink interface {
	Report(ctx context.Context, event domain.SecurityEvent)
}

type SnapshotFeed interface {
	Publish(snapshot domain.Snapshot)
	Subscribe() (<-chan domain.Snapshot, func())
}

type TokenResolver interface {
	Resolve(ctx context.Context, network, symbol string) (domain.Token, error)
}
