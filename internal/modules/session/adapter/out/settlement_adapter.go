package out

import (
	"context"
	"errors"
	"fmt"

	sessionout "mentorpay/internal/modules/session/port/out"
	settlementdto "mentorpay/internal/modules/settlement/dto"
	settlementin "mentorpay/internal/modules/settlement/port/in"
)

// SettlementAdapter pays releases and refunds through the settlement module.
// Failures the settlement side marks as temporary become ErrTransient.
type SettlementAdapter struct {
	settlement settlementin.Usecase
}

func NewSettlementAdapter(settlement settlementin.Usecase) *SettlementAdapter {
	return &SettlementAdapter{settlement: settlement}
}

var (
	_ sessionout.PaymentReleaser = (*SettlementAdapter)(nil)
	_ sessionout.Refunder        = (*SettlementAdapter)(nil)
)

func (a *SettlementAdapter) Release(ctx context.Context, request sessionout.ReleaseRequest) (string, error) {
	out, err := a.settlement.Release(ctx, settlementdto.ReleaseInput{
		SessionID:   request.SessionID,
		Payee:       request.Payee,
		TokenSymbol: request.Token.Symbol,
		Network:     request.Token.Network,
		Cumulative:  request.Cumulative.String(),
	})
	if err != nil {
		return "", classify(err)
	}
	return out.TxReference, nil
}

func (a *SettlementAdapter) Refund(ctx context.Context, request sessionout.RefundRequest) error {
	_, err := a.settlement.Refund(ctx, settlementdto.RefundInput{
		SessionID:   request.SessionID,
		Payer:       request.Payer,
		TokenSymbol: request.Token.Symbol,
		Network:     request.Token.Network,
		Reason:      string(request.Reason),
	})
	if err != nil {
		return classify(err)
	}
	return nil
}

func classify(err error) error {
	var temporary interface{ Temporary() bool }
	if errors.As(err, &temporary) && temporary.Temporary() {
		return fmt.Errorf("%w: %w", sessionout.ErrTransient, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", sessionout.ErrTransient, err)
	}
	return err
}
