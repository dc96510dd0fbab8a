package in

import (
	"context"

	"mentorpay/internal/modules/settlement/dto"
)

type Usecase interface {
	Release(ctx context.Context, input dto.ReleaseInput) (dto.ReleaseOutput, error)
	Refund(ctx context.Context, input dto.RefundInput) (dto.RefundOutput, error)
	Doctor(ctx context.Context) (dto.DoctorResult, error)
	Ledger(ctx context.Context) ([]dto.LedgerEntryOutput, error)
}
