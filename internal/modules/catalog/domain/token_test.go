package domain_test

import (
	"errors"
	"testing"

	"mentorpay/internal/modules/catalog/domain"
)

func TestFindTokenResolvesDecimals(t *testing.T) {
	t.Parallel()
	usdc, err := domain.FindToken("Base", "usdc")
	if err != nil {
		t.Fatalf("find usdc: %v", err)
	}
	if usdc.Decimals != 6 || usdc.Network != "base" || usdc.Native {
		t.Fatalf("unexpected usdc token: %+v", usdc)
	}
	eth, err := domain.FindToken("polygon", "ETH")
	if err != nil {
		t.Fatalf("find eth: %v", err)
	}
	if eth.Decimals != 18 || !eth.Native || eth.Address != domain.NativeAddress {
		t.Fatalf("unexpected eth token: %+v", eth)
	}
}

func TestFindTokenUnknown(t *testing.T) {
	t.Parallel()
	if _, err := domain.FindToken("solana", "USDC"); !errors.Is(err, domain.ErrUnknownNetwork) {
		t.Fatalf("expected unknown network, got %v", err)
	}
	if _, err := domain.FindToken("base", "DAI"); !errors.Is(err, domain.ErrUnknownToken) {
		t.Fatalf("expected unknown token, got %v", err)
	}
}

func TestTokensCoverEveryNetwork(t *testing.T) {
	t.Parallel()
	tokens := domain.Tokens()
	if len(tokens) != len(domain.Networks())*3 {
		t.Fatalf("expected three tokens per network, got %d", len(tokens))
	}
	if tokens[0].Network != "arbitrum" || tokens[0].Symbol != "ETH" || tokens[1].Symbol != "USDC" || tokens[2].Symbol != "USDT" {
		t.Fatalf("unexpected ordering: %+v", tokens[:3])
	}
}
