package out

import (
	"context"
	"fmt"

	catalogin "mentorpay/internal/modules/catalog/port/in"
	"mentorpay/internal/modules/session/domain"
	sessionout "mentorpay/internal/modules/session/port/out"
	apperrors "mentorpay/internal/platform/errors"
)

// CatalogTokenAdapter resolves session tokens through the catalog module.
type CatalogTokenAdapter struct {
	catalog catalogin.Usecase
}

func NewCatalogTokenAdapter(catalog catalogin.Usecase) *CatalogTokenAdapter {
	return &CatalogTokenAdapter{catalog: catalog}
}

var _ sessionout.TokenResolver = (*CatalogTokenAdapter)(nil)

func (a *CatalogTokenAdapter) Resolve(ctx context.Context, network, symbol string) (domain.Token, error) {
	token, err := a.catalog.ResolveToken(ctx, network, symbol)
	if err != nil {
		return domain.Token{}, fmt.Errorf("%w: %v", apperrors.ErrInvalidInput, err)
	}
	return domain.Token{Symbol: token.Symbol, Network: token.Network, Decimals: token.Decimals}, nil
}
