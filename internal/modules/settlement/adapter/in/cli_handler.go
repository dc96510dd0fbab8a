package in

import (
	"context"

	"mentorpay/internal/modules/settlement/dto"
	settlementin "mentorpay/internal/modules/settlement/port/in"
)

type CLIHandler struct {
	usecase settlementin.Usecase
}

func NewCLIHandler(usecase settlementin.Usecase) CLIHandler {
	return CLIHandler{usecase: usecase}
}

func (h CLIHandler) Doctor(ctx context.Context) (dto.DoctorResult, error) {
	return h.usecase.Doctor(ctx)
}

func (h CLIHandler) Ledger(ctx context.Context) ([]dto.LedgerEntryOutput, error) {
	return h.usecase.Ledger(ctx)
}
