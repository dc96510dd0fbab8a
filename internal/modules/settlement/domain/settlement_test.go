package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestManifestValidate(t *testing.T) {
	t.Parallel()
	valid := Manifest{
		Name:    "ledger",
		Version: "1.0.0",
		Binary:  "/tmp/ledger",
		SHA256:  "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef",
		Enabled: true,
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("expected valid manifest: %v", err)
	}
	bad := valid
	bad.SHA256 = "ABC"
	if err := bad.Validate(); err == nil {
		t.Fatalf("expected checksum format error")
	}
}

func TestFailureTemporary(t *testing.T) {
	t.Parallel()
	cases := []struct {
		code      string
		kind      error
		temporary bool
	}{
		{FailureNetwork, ErrNetwork, true},
		{FailureInsufficientAllowance, ErrInsufficientAllowance, false},
		{FailureContractReverted, ErrContractReverted, false},
		{"out_of_gas", ErrContractReverted, false},
	}
	for _, tc := range cases {
		err := FailureFromCode(tc.code, "detail")
		if !errors.Is(err, tc.kind) {
			t.Fatalf("%s: expected %v, got %v", tc.code, tc.kind, err)
		}
		var failure *Failure
		if !errors.As(err, &failure) || failure.Temporary() != tc.temporary {
			t.Fatalf("%s: unexpected temporary flag", tc.code)
		}
	}
	if FailureFromCode("", "") != nil {
		t.Fatalf("empty code must not be a failure")
	}
}

func TestLedgerEntryCovers(t *testing.T) {
	t.Parallel()
	entry := LedgerEntry{Released: decimal.RequireFromString("12.5"), TxReference: "tx-1"}
	if !entry.Covers(decimal.RequireFromString("12.5")) || !entry.Covers(decimal.RequireFromString("3")) {
		t.Fatalf("expected settled amounts to be covered")
	}
	if entry.Covers(decimal.RequireFromString("12.6")) {
		t.Fatalf("higher cumulative must not be covered")
	}
	if (LedgerEntry{}).Covers(decimal.Zero) {
		t.Fatalf("empty entry covers nothing")
	}
}
