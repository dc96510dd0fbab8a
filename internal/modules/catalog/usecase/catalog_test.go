package usecase_test

import (
	"context"
	"testing"

	"mentorpay/internal/modules/catalog/usecase"
)

func TestResolveTokenIncludesChainAndEscrow(t *testing.T) {
	t.Parallel()
	uc := usecase.NewInteractor()
	out, err := uc.ResolveToken(context.Background(), "arbitrum", "USDT")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if out.ChainID != 42161 || out.Decimals != 6 || out.Escrow == "" {
		t.Fatalf("unexpected token output: %+v", out)
	}

	all, err := uc.ListTokens(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 12 {
		t.Fatalf("expected 12 tokens, got %d", len(all))
	}
}
