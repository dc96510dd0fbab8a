package bootstrap

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"mentorpay/internal/platform/config"
)

func TestEnginePolicyOverridesDefaults(t *testing.T) {
	t.Parallel()
	policy, err := enginePolicy(config.Engine{
		PlatformFee:  "0.05",
		GracePeriod:  90 * time.Second,
		EntryTimeout: 5 * time.Minute,
	})
	if err != nil {
		t.Fatalf("engine policy: %v", err)
	}
	if !policy.PlatformFee.Equal(decimal.RequireFromString("0.05")) {
		t.Fatalf("unexpected fee %s", policy.PlatformFee)
	}
	if policy.GracePeriod != 90*time.Second || policy.EntryTimeout != 5*time.Minute {
		t.Fatalf("overrides not applied: %+v", policy)
	}
	if policy.RecoveryWindow != 10*time.Minute {
		t.Fatalf("default recovery window lost: %s", policy.RecoveryWindow)
	}
}

func TestEnginePolicyRejectsBadFee(t *testing.T) {
	t.Parallel()
	for _, fee := range []string{"abc", "1.5", "-0.1"} {
		if _, err := enginePolicy(config.Engine{PlatformFee: fee}); err == nil {
			t.Fatalf("expected error for fee %q", fee)
		}
	}
}

func TestNewWiresLocalStack(t *testing.T) {
	dir := t.TempDir()
	cfg, err := config.New(dir, "")
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	app, err := New(cfg)
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	defer func() {
		if err := app.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
	}()

	ctx := context.Background()
	tokens, err := app.CatalogCLI.ListTokens(ctx)
	if err != nil || len(tokens) == 0 {
		t.Fatalf("list tokens: %v (%d)", err, len(tokens))
	}
	doctor, err := app.SettlementCLI.Doctor(ctx)
	if err != nil {
		t.Fatalf("doctor: %v", err)
	}
	if doctor.Backend != "local" || !doctor.LifecycleOK {
		t.Fatalf("expected healthy local backend, got %+v", doctor)
	}
	sessions, err := app.SessionCLI.ListActive(ctx)
	if err != nil || len(sessions) != 0 {
		t.Fatalf("list active: %v (%d)", err, len(sessions))
	}
}
