package in

import (
	"context"

	"mentorpay/internal/modules/catalog/dto"
	catalogin "mentorpay/internal/modules/catalog/port/in"
)

type CLIHandler struct {
	usecase catalogin.Usecase
}

func NewCLIHandler(usecase catalogin.Usecase) CLIHandler {
	return CLIHandler{usecase: usecase}
}

func (h CLIHandler) ListTokens(ctx context.Context) ([]dto.TokenOutput, error) {
	return h.usecase.ListTokens(ctx)
}
