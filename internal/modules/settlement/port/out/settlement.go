package out

import (
	"context"

	"mentorpay/internal/modules/settlement/domain"
)

// ManifestStore loads the optional plugin manifest. ok is false when no
// plugin is configured.
type ManifestStore interface {
	Load(ctx context.Context) (manifest domain.Manifest, ok bool, err error)
}

type Host interface {
	CheckLifecycle(ctx context.Context, manifest domain.Manifest) error
	Release(ctx context.Context, manifest domain.Manifest, request domain.ReleaseRequest) (string, error)
	Refund(ctx context.Context, manifest domain.Manifest, request domain.RefundRequest) (string, error)
}

// Ledger keeps one entry per session. Get returns apperrors.ErrNotFound for
// unknown sessions.
type Ledger interface {
	Get(ctx context.Context, sessionID string) (domain.LedgerEntry, error)
	Put(ctx context.Context, entry domain.LedgerEntry) error
	List(ctx context.Context) ([]domain.LedgerEntry, error)
}
