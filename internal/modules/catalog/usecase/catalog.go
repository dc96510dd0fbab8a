package usecase

import (
	"context"

	"mentorpay/internal/modules/catalog/domain"
	"mentorpay/internal/modules/catalog/dto"
	catalogin "mentorpay/internal/modules/catalog/port/in"
)

type Interactor struct{}

func NewInteractor() catalogin.Usecase {
	return &Interactor{}
}

func (i *Interactor) ListTokens(_ context.Context) ([]dto.TokenOutput, error) {
	tokens := domain.Tokens()
	out := make([]dto.TokenOutput, 0, len(tokens))
	for _, t := range tokens {
		network, err := domain.FindNetwork(t.Network)
		if err != nil {
			return nil, err
		}
		out = append(out, toOutput(t, network))
	}
	return out, nil
}

func (i *Interactor) ResolveToken(_ context.Context, network, symbol string) (dto.TokenOutput, error) {
	t, err := domain.FindToken(network, symbol)
	if err != nil {
		return dto.TokenOutput{}, err
	}
	n, err := domain.FindNetwork(t.Network)
	if err != nil {
		return dto.TokenOutput{}, err
	}
	return toOutput(t, n), nil
}

func toOutput(t domain.Token, n domain.Network) dto.TokenOutput {
	return dto.TokenOutput{
		Symbol:   t.Symbol,
		Network:  t.Network,
		ChainID:  n.ChainID,
		Address:  t.Address,
		Decimals: t.Decimals,
		Native:   t.Native,
		Escrow:   domain.EscrowContract,
	}
}
