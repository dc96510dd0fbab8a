package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"mentorpay/internal/platform/config"
)

func TestNewAppliesDefaults(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	cfg, err := config.New(dir, "")
	if err != nil {
		t.Fatalf("new config: %v", err)
	}
	if cfg.Engine.PlatformFee != "0.10" {
		t.Fatalf("expected default platform fee 0.10, got %q", cfg.Engine.PlatformFee)
	}
	if cfg.Engine.GracePeriod != 2*time.Minute {
		t.Fatalf("expected 2m grace period, got %s", cfg.Engine.GracePeriod)
	}
	if cfg.Engine.EntryTimeout != 15*time.Minute {
		t.Fatalf("expected 15m entry timeout, got %s", cfg.Engine.EntryTimeout)
	}
	if cfg.Engine.MaxSessionDuration != 4*time.Hour {
		t.Fatalf("expected 4h max duration, got %s", cfg.Engine.MaxSessionDuration)
	}
	if cfg.Scheduler.TickInterval != time.Second {
		t.Fatalf("expected 1s tick, got %s", cfg.Scheduler.TickInterval)
	}
	if cfg.StatePath != filepath.Join(dir, ".mentorpay", "state.db") {
		t.Fatalf("unexpected state path %s", cfg.StatePath)
	}
}

func TestNewReadsYAMLFile(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	raw := "engine:\n  platform_fee: \"0.05\"\n  grace_period: 90s\nsettlement:\n  retry_attempts: 5\nlog:\n  file: logs/mentorpay.log\n"
	if err := os.WriteFile(filepath.Join(dir, "mentorpay.yaml"), []byte(raw), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := config.New(dir, "")
	if err != nil {
		t.Fatalf("new config: %v", err)
	}
	if cfg.Engine.PlatformFee != "0.05" {
		t.Fatalf("expected fee from file, got %q", cfg.Engine.PlatformFee)
	}
	if cfg.Engine.GracePeriod != 90*time.Second {
		t.Fatalf("expected 90s grace, got %s", cfg.Engine.GracePeriod)
	}
	if cfg.Settlement.RetryAttempts != 5 {
		t.Fatalf("expected 5 retry attempts, got %d", cfg.Settlement.RetryAttempts)
	}
	if cfg.Log.File != filepath.Join(dir, "logs", "mentorpay.log") {
		t.Fatalf("expected log file resolved under data dir, got %s", cfg.Log.File)
	}
}

func TestNewRejectsInvalidValues(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	raw := "settlement:\n  retry_attempts: 0\n"
	if err := os.WriteFile(filepath.Join(dir, "mentorpay.yaml"), []byte(raw), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := config.New(dir, ""); err == nil {
		t.Fatalf("expected validation error for zero retry attempts")
	}
	if _, err := config.New("", ""); err == nil {
		t.Fatalf("expected error for empty data dir")
	}
}
