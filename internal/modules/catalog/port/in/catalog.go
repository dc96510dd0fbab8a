package in

import (
	"context"

	"mentorpay/internal/modules/catalog/dto"
)

type Usecase interface {
	ListTokens(ctx context.Context) ([]dto.TokenOutput, error)
	ResolveToken(ctx context.Context, network, symbol string) (dto.TokenOutput, error)
}
