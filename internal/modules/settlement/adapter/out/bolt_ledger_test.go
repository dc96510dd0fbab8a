package out_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"

	settlementout "mentorpay/internal/modules/settlement/adapter/out"
	"mentorpay/internal/modules/settlement/domain"
	apperrors "mentorpay/internal/platform/errors"
	"mentorpay/internal/platform/kv"
)

func TestBoltLedgerRoundTrip(t *testing.T) {
	t.Parallel()
	db, err := kv.Open(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	ledger, err := settlementout.NewBoltLedger(db)
	if err != nil {
		t.Fatalf("new ledger: %v", err)
	}
	ctx := context.Background()
	if _, err := ledger.Get(ctx, "missing"); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	entry := domain.LedgerEntry{
		SessionID:   "s-1",
		Payee:       "0xmentor",
		Token:       "USDC@base",
		Released:    decimal.RequireFromString("12.345678"),
		TxReference: "local-1",
		Releases:    2,
		Backend:     "local",
		UpdatedAt:   time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC),
	}
	if err := ledger.Put(ctx, entry); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, err := ledger.Get(ctx, "s-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.Released.Equal(entry.Released) {
		t.Fatalf("released mismatch: %s", got.Released)
	}
	got.Released = entry.Released
	if diff := cmp.Diff(entry, got); diff != "" {
		t.Fatalf("entry mismatch (-want +got):\n%s", diff)
	}
	all, err := ledger.List(ctx)
	if err != nil || len(all) != 1 {
		t.Fatalf("list: %d entries, err=%v", len(all), err)
	}
}
