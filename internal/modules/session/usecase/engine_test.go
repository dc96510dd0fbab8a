package usecase_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	sessionadapter "mentorpay/internal/modules/session/adapter/out"
	"mentorpay/internal/modules/session/domain"
	"mentorpay/internal/modules/session/dto"
	sessionin "mentorpay/internal/modules/session/port/in"
	sessionout "mentorpay/internal/modules/session/port/out"
	"mentorpay/internal/modules/session/service"
	"mentorpay/internal/modules/session/usecase"
	apperrors "mentorpay/internal/platform/errors"
	"mentorpay/internal/platform/id"
	"mentorpay/internal/platform/kv"
)

const (
	payer  = "0xA11CE00000000000000000000000000000000001"
	mentor = "0xB0B0000000000000000000000000000000000002"
)

var t0 = time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

type fakeTokens struct{}

func (fakeTokens) Resolve(_ context.Context, network, symbol string) (domain.Token, error) {
	if symbol != "USDC" {
		return domain.Token{}, fmt.Errorf("%w: %s", apperrors.ErrNotFound, symbol)
	}
	return domain.Token{Symbol: symbol, Network: network, Decimals: 6}, nil
}

type ledger struct {
	mu       sync.Mutex
	released map[string]decimal.Decimal
	refunds  map[string]domain.RefundReason
	fail     error
}

func (l *ledger) Release(_ context.Context, req sessionout.ReleaseRequest) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fail != nil {
		return "", l.fail
	}
	l.released[req.SessionID] = req.Cumulative
	return "tx-" + req.Cumulative.String(), nil
}

func (l *ledger) Refund(_ context.Context, req sessionout.RefundRequest) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.refunds[req.SessionID] = req.Reason
	return nil
}

type harness struct {
	clock   *fakeClock
	ledger  *ledger
	feed    *sessionadapter.MemoryFeed
	reports string
	uc      sessionin.Usecase
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dir := t.TempDir()
	db, err := kv.Open(filepath.Join(dir, "state.db"))
	if err != nil {
		t.Fatalf("open state db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	states, err := sessionadapter.NewBoltStateStore(db)
	if err != nil {
		t.Fatalf("state store: %v", err)
	}
	confirmations, err := sessionadapter.NewSQLiteConfirmationStore(filepath.Join(dir, "mentorpay.db"))
	if err != nil {
		t.Fatalf("confirmation store: %v", err)
	}
	t.Cleanup(func() { _ = confirmations.Close() })

	h := &harness{
		clock:   &fakeClock{now: t0.Add(-time.Hour)},
		ledger:  &ledger{released: map[string]decimal.Decimal{}, refunds: map[string]domain.RefundReason{}},
		feed:    sessionadapter.NewMemoryFeed(),
		reports: filepath.Join(dir, "reports"),
	}
	svc := service.NewEngineService(h.clock, id.UUID{}, domain.DefaultPolicy(), h.ledger, h.ledger, nil,
		service.RetryPolicy{Attempts: 1}, nil)
	h.uc = usecase.NewInteractor(svc, usecase.Stores{
		States:        states,
		Confirmations: confirmations,
		Reports:       sessionadapter.NewMarkdownReportStore(h.reports),
		Tokens:        fakeTokens{},
		Feed:          h.feed,
	}, nil)
	return h
}

func (h *harness) create(t *testing.T) string {
	t.Helper()
	snap, err := h.uc.Create(context.Background(), dto.CreateInput{
		PayerAddress:             payer,
		MentorAddress:            mentor,
		Network:                  "base",
		TokenSymbol:              "USDC",
		TotalAmount:              "100",
		ScheduledStart:           t0,
		ScheduledDurationMinutes: 60,
		PresenceTracking:         true,
		FeeCollected:             true,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if snap.Status != string(domain.StatusCreated) || snap.Token != "USDC@base" {
		t.Fatalf("unexpected created snapshot %+v", snap)
	}
	return snap.SessionID
}

func (h *harness) join(t *testing.T, sessionID, address string) dto.SnapshotOutput {
	t.Helper()
	snap, err := h.uc.Join(context.Background(), dto.ParticipantInput{SessionID: sessionID, Address: address})
	if err != nil {
		t.Fatalf("join %s: %v", address, err)
	}
	return snap
}

func TestSessionLifecycleWritesConfirmationAndReport(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ctx := context.Background()
	sessionID := h.create(t)

	h.clock.Set(t0)
	h.join(t, sessionID, mentor)
	snap := h.join(t, sessionID, payer)
	if snap.Status != string(domain.StatusActive) || snap.ReleasedAmount != "18" {
		t.Fatalf("expected active session with immediate release, got %+v", snap)
	}

	for at := t0.Add(30 * time.Second); !at.After(t0.Add(45 * time.Minute)); at = at.Add(30 * time.Second) {
		h.clock.Set(at)
		out, err := h.uc.Heartbeat(ctx, dto.ParticipantInput{SessionID: sessionID, Address: payer})
		if err != nil {
			t.Fatalf("heartbeat at %s: %v", at, err)
		}
		if !out.IsValid {
			t.Fatalf("heartbeat at %s rejected", at)
		}
	}

	final, err := h.uc.Complete(ctx, sessionID)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if !final.Final || final.Status != string(domain.StatusCompleted) || final.ReleasedAmount != "90" {
		t.Fatalf("unexpected final snapshot %+v", final)
	}
	if got := h.ledger.released[sessionID]; !got.Equal(decimal.NewFromInt(90)) {
		t.Fatalf("expected cumulative 90 paid, got %s", got)
	}

	active, err := h.uc.ListActive(ctx)
	if err != nil || len(active) != 0 {
		t.Fatalf("expected no live sessions, got %d (err=%v)", len(active), err)
	}
	confirmation, err := h.uc.GetConfirmation(ctx, sessionID)
	if err != nil {
		t.Fatalf("get confirmation: %v", err)
	}
	if confirmation.PaymentMethod != string(domain.MethodPayerPresence) || confirmation.ReleasedAmount != "90" {
		t.Fatalf("unexpected confirmation %+v", confirmation)
	}
	if _, err := os.Stat(confirmation.ReportPath); err != nil {
		t.Fatalf("expected report on disk: %v", err)
	}

	after, err := h.uc.Join(ctx, dto.ParticipantInput{SessionID: sessionID, Address: payer})
	if !errors.Is(err, domain.ErrTerminalSession) {
		t.Fatalf("expected terminal session error, got %v", err)
	}
	if after.Status != string(domain.StatusCompleted) {
		t.Fatalf("rejected operations still report the final state, got %+v", after)
	}
}

func TestTickAllCancelsSessionsNobodyJoined(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ctx := context.Background()
	sessionID := h.create(t)

	h.clock.Set(t0.Add(10 * time.Minute))
	if _, err := h.uc.TickAll(ctx); err != nil {
		t.Fatalf("tick before timeout: %v", err)
	}
	snap, err := h.uc.Snapshot(ctx, sessionID)
	if err != nil || snap.Status != string(domain.StatusCreated) {
		t.Fatalf("expected session still created, got %+v (err=%v)", snap, err)
	}

	h.clock.Set(t0.Add(16 * time.Minute))
	ticked, err := h.uc.TickAll(ctx)
	if err != nil {
		t.Fatalf("tick after timeout: %v", err)
	}
	if len(ticked) != 1 || ticked[0].Status != string(domain.StatusCancelled) || !ticked[0].RefundRequested {
		t.Fatalf("expected cancelled session with refund, got %+v", ticked)
	}
	if reason := h.ledger.refunds[sessionID]; reason != domain.RefundTimeout {
		t.Fatalf("expected timeout refund, got %q", reason)
	}
	snap, err = h.uc.Snapshot(ctx, sessionID)
	if err != nil || snap.Status != string(domain.StatusCancelled) {
		t.Fatalf("expected confirmation-backed snapshot, got %+v (err=%v)", snap, err)
	}
}

func TestReleaseSurfacesCollaboratorFailure(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ctx := context.Background()
	sessionID := h.create(t)
	h.clock.Set(t0)
	h.ledger.fail = errors.New("contract reverted")
	h.join(t, sessionID, mentor)
	snap := h.join(t, sessionID, payer)
	if snap.ReleasedAmount != "0" {
		t.Fatalf("failed releases must not move the released amount, got %s", snap.ReleasedAmount)
	}

	h.clock.Set(t0.Add(time.Minute))
	if _, err := h.uc.Release(ctx, sessionID); err == nil {
		t.Fatalf("expected release error")
	}
	h.ledger.fail = nil
	snap, err := h.uc.Release(ctx, sessionID)
	if err != nil {
		t.Fatalf("release: %v", err)
	}
	if snap.ReleasedAmount != "18.9" {
		t.Fatalf("expected catch-up release, got %s", snap.ReleasedAmount)
	}
}

func TestFailedFinalReleaseKeepsSessionLiveUntilPaid(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ctx := context.Background()
	sessionID := h.create(t)
	h.clock.Set(t0)
	h.join(t, sessionID, mentor)
	h.join(t, sessionID, payer)
	for at := t0.Add(30 * time.Second); !at.After(t0.Add(20 * time.Minute)); at = at.Add(30 * time.Second) {
		h.clock.Set(at)
		if _, err := h.uc.Heartbeat(ctx, dto.ParticipantInput{SessionID: sessionID, Address: payer}); err != nil {
			t.Fatalf("heartbeat at %s: %v", at, err)
		}
	}
	paid := h.ledger.released[sessionID]

	h.ledger.fail = fmt.Errorf("rpc: %w", sessionout.ErrTransient)
	h.clock.Set(t0.Add(22 * time.Minute))
	pending, err := h.uc.Complete(ctx, sessionID)
	if !errors.Is(err, sessionin.ErrSettlementPending) || !errors.Is(err, sessionin.ErrTransient) {
		t.Fatalf("expected pending settlement error, got %v", err)
	}
	if pending.Status != string(domain.StatusCompleted) || !pending.SettlementPending || pending.AvailableForRelease == "0" {
		t.Fatalf("expected completed session with unpaid remainder, got %+v", pending)
	}
	if pending.ReleasedAmount != paid.String() {
		t.Fatalf("failed release moved the released amount to %s", pending.ReleasedAmount)
	}
	if _, err := h.uc.GetConfirmation(ctx, sessionID); err == nil {
		t.Fatalf("session must not be finalized while its final release is unpaid")
	}
	active, err := h.uc.ListActive(ctx)
	if err != nil || len(active) != 1 {
		t.Fatalf("expected the session to stay live, got %d (err=%v)", len(active), err)
	}

	h.clock.Set(t0.Add(23 * time.Minute))
	if _, err := h.uc.TickAll(ctx); !errors.Is(err, sessionin.ErrSettlementPending) {
		t.Fatalf("expected tick to report the pending release, got %v", err)
	}

	h.ledger.fail = nil
	h.clock.Set(t0.Add(24 * time.Minute))
	ticked, err := h.uc.TickAll(ctx)
	if err != nil {
		t.Fatalf("tick after recovery: %v", err)
	}
	if len(ticked) != 1 || !ticked[0].Final || ticked[0].SettlementPending || ticked[0].ReleasedAmount != pending.TargetAmount {
		t.Fatalf("expected the remainder paid and the session finalized, got %+v", ticked)
	}
	if got := h.ledger.released[sessionID]; got.String() != pending.TargetAmount {
		t.Fatalf("expected cumulative %s paid, got %s", pending.TargetAmount, got)
	}
	confirmation, err := h.uc.GetConfirmation(ctx, sessionID)
	if err != nil {
		t.Fatalf("get confirmation: %v", err)
	}
	if confirmation.ReleasedAmount != pending.TargetAmount || confirmation.Status != string(domain.StatusCompleted) {
		t.Fatalf("unexpected confirmation %+v", confirmation)
	}
	if _, err := h.uc.Release(ctx, sessionID); !errors.Is(err, domain.ErrTerminalSession) {
		t.Fatalf("expected terminal session error once settled, got %v", err)
	}
}

func TestUnknownSessionAndInvalidInput(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ctx := context.Background()
	if _, err := h.uc.Snapshot(ctx, "missing"); !errors.Is(err, apperrors.ErrSessionNotFound) {
		t.Fatalf("expected session not found, got %v", err)
	}
	if _, err := h.uc.Pause(ctx, " "); !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	_, err := h.uc.Create(ctx, dto.CreateInput{
		PayerAddress:             payer,
		MentorAddress:            payer,
		Network:                  "base",
		TokenSymbol:              "USDC",
		TotalAmount:              "100",
		ScheduledDurationMinutes: 60,
	})
	if !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Fatalf("expected invalid input for identical parties, got %v", err)
	}
	if _, err := h.uc.Create(ctx, dto.CreateInput{TotalAmount: "ten"}); !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Fatalf("expected invalid amount error, got %v", err)
	}
}

func TestSubscribeStreamsSnapshots(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	updates, unsubscribe := h.uc.Subscribe(ctx)
	defer unsubscribe()

	sessionID := h.create(t)
	select {
	case snap := <-updates:
		if snap.SessionID != sessionID {
			t.Fatalf("unexpected snapshot %+v", snap)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no snapshot published")
	}
}
