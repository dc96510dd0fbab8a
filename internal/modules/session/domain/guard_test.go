package domain_test

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"mentorpay/internal/modules/session/domain"
)

func TestCheckRelease(t *testing.T) {
	t.Parallel()
	at := time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)
	ceiling := decimal.NewFromInt(90)

	if _, err := domain.CheckRelease("s1", decimal.NewFromInt(40), decimal.NewFromInt(50), ceiling, at); err != nil {
		t.Fatalf("release up to the ceiling must pass: %v", err)
	}
	event, err := domain.CheckRelease("s1", decimal.NewFromInt(40), decimal.RequireFromString("50.000001"), ceiling, at)
	if !errors.Is(err, domain.ErrOverpaymentRisk) {
		t.Fatalf("expected ErrOverpaymentRisk, got %v", err)
	}
	if event.Type != domain.EventOverpaymentRisk || event.Severity != domain.SeverityHigh {
		t.Fatalf("unexpected event %+v", event)
	}
	if event.Details["potential"] != "90.000001" {
		t.Fatalf("expected potential total in details, got %v", event.Details)
	}
	if _, err := domain.CheckRelease("s1", decimal.Zero, decimal.NewFromInt(-1), ceiling, at); !errors.Is(err, domain.ErrInvalidRelease) {
		t.Fatalf("expected ErrInvalidRelease, got %v", err)
	}
}

func TestCheckCompletionAndDuration(t *testing.T) {
	t.Parallel()
	at := time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)
	if _, err := domain.CheckCompletion("s1", true, at); err != nil {
		t.Fatalf("collected fee must pass: %v", err)
	}
	event, err := domain.CheckCompletion("s1", false, at)
	if !errors.Is(err, domain.ErrPlatformFeeNotCollected) || event.Severity != domain.SeverityMedium {
		t.Fatalf("unexpected fee check %+v %v", event, err)
	}
	if _, ok := domain.CheckDuration("s1", 3*time.Hour, 4*time.Hour, at); ok {
		t.Fatalf("expected no warning below the limit")
	}
	event, ok := domain.CheckDuration("s1", 4*time.Hour, 4*time.Hour, at)
	if !ok || event.Type != domain.EventDurationExceeded || event.Severity != domain.SeverityWarning {
		t.Fatalf("unexpected duration event %+v %v", event, ok)
	}
}

func TestStatusTransitions(t *testing.T) {
	t.Parallel()
	if !domain.CanTransition(domain.StatusCreated, domain.StatusActive) {
		t.Fatalf("created -> active must be legal")
	}
	if domain.CanTransition(domain.StatusCreated, domain.StatusPaused) {
		t.Fatalf("created -> paused must be illegal")
	}
	for _, terminal := range []domain.Status{domain.StatusCompleted, domain.StatusCancelled, domain.StatusAutoCompleted} {
		if !terminal.Terminal() {
			t.Fatalf("%s must be terminal", terminal)
		}
		if domain.CanTransition(terminal, domain.StatusActive) {
			t.Fatalf("%s -> active must be illegal", terminal)
		}
	}
	if domain.CanTransition(domain.StatusSecurityPaused, domain.StatusActive) {
		t.Fatalf("security hold must only be cleared explicitly")
	}
	if err := domain.Status("bogus").Validate(); err == nil {
		t.Fatalf("expected unknown status to fail validation")
	}
}
