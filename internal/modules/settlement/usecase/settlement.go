package usecase

import (
	"context"

	"mentorpay/internal/modules/settlement/dto"
	settlementin "mentorpay/internal/modules/settlement/port/in"
	"mentorpay/internal/modules/settlement/service"
)

type Interactor struct {
	svc *service.SettlementService
}

func NewInteractor(svc *service.SettlementService) settlementin.Usecase {
	return &Interactor{svc: svc}
}

func (i *Interactor) Release(ctx context.Context, input dto.ReleaseInput) (dto.ReleaseOutput, error) {
	return i.svc.Release(ctx, input)
}

func (i *Interactor) Refund(ctx context.Context, input dto.RefundInput) (dto.RefundOutput, error) {
	return i.svc.Refund(ctx, input)
}

func (i *Interactor) Doctor(ctx context.Context) (dto.DoctorResult, error) {
	return i.svc.Doctor(ctx)
}

func (i *Interactor) Ledger(ctx context.Context) ([]dto.LedgerEntryOutput, error) {
	return i.svc.Ledger(ctx)
}
