package service_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"mentorpay/internal/modules/session/domain"
	sessionout "mentorpay/internal/modules/session/port/out"
	"mentorpay/internal/modules/session/service"
)

const (
	payer  = "0xpayer"
	mentor = "0xmentor"
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

type staticIDs struct{}

func (staticIDs) New() string { return "sess-1" }

type fakeReleaser struct {
	failures []error
	calls    []sessionout.ReleaseRequest
}

func (r *fakeReleaser) Release(_ context.Context, req sessionout.ReleaseRequest) (string, error) {
	r.calls = append(r.calls, req)
	if len(r.failures) > 0 {
		err := r.failures[0]
		r.failures = r.failures[1:]
		return "", err
	}
	return fmt.Sprintf("tx-%d", len(r.calls)), nil
}

type fakeRefunder struct {
	calls []sessionout.RefundRequest
}

func (r *fakeRefunder) Refund(_ context.Context, req sessionout.RefundRequest) error {
	r.calls = append(r.calls, req)
	return nil
}

type recordingSink struct {
	events []domain.SecurityEvent
}

func (s *recordingSink) Report(_ context.Context, event domain.SecurityEvent) {
	s.events = append(s.events, event)
}

type fixture struct {
	clock    *fakeClock
	releaser *fakeReleaser
	refunder *fakeRefunder
	sink     *recordingSink
	svc      *service.EngineService
}

func newFixture(attempts int) *fixture {
	f := &fixture{
		clock:    &fakeClock{now: t0.Add(-time.Hour)},
		releaser: &fakeReleaser{},
		refunder: &fakeRefunder{},
		sink:     &recordingSink{},
	}
	f.svc = service.NewEngineService(f.clock, staticIDs{}, domain.DefaultPolicy(), f.releaser, f.refunder, f.sink,
		service.RetryPolicy{Attempts: attempts}, nil)
	return f
}

func (f *fixture) create(t *testing.T) *domain.Engine {
	t.Helper()
	engine, err := f.svc.Create(domain.Session{
		PayerAddress:             payer,
		MentorAddress:            mentor,
		Token:                    domain.Token{Symbol: "USDC", Network: "base", Decimals: 6},
		TotalAmount:              decimal.NewFromInt(100),
		ScheduledStart:           t0,
		ScheduledDurationMinutes: 60,
		PresenceTracking:         true,
		FeeCollected:             true,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if engine.Session().ID != "sess-1" {
		t.Fatalf("expected generated id, got %q", engine.Session().ID)
	}
	return engine
}

func (f *fixture) activate(t *testing.T, engine *domain.Engine) domain.Outcome {
	t.Helper()
	f.clock.Set(t0)
	if _, err := engine.Join(t0, mentor); err != nil {
		t.Fatalf("mentor join: %v", err)
	}
	out, err := engine.Join(t0, payer)
	if err != nil {
		t.Fatalf("payer join: %v", err)
	}
	settled, _ := f.svc.Settle(context.Background(), engine, out)
	return settled
}

func TestSettleReleasesImmediatePortionOnActivation(t *testing.T) {
	t.Parallel()
	f := newFixture(1)
	engine := f.create(t)
	f.activate(t, engine)

	if len(f.releaser.calls) != 1 {
		t.Fatalf("expected one release, got %d", len(f.releaser.calls))
	}
	call := f.releaser.calls[0]
	if call.Payee != mentor || !call.Cumulative.Equal(decimal.NewFromInt(18)) {
		t.Fatalf("unexpected release request %+v", call)
	}
	session := engine.Session()
	if !session.ReleasedAmount.Equal(decimal.NewFromInt(18)) || session.LastTxReference != "tx-1" {
		t.Fatalf("unexpected released state: %s %s", session.ReleasedAmount, session.LastTxReference)
	}
}

func TestReleaseRetriesTransientFailures(t *testing.T) {
	t.Parallel()
	f := newFixture(3)
	f.releaser.failures = []error{sessionout.ErrTransient, fmt.Errorf("rpc: %w", sessionout.ErrTransient)}
	engine := f.create(t)
	f.activate(t, engine)

	if len(f.releaser.calls) != 3 {
		t.Fatalf("expected three attempts, got %d", len(f.releaser.calls))
	}
	for _, call := range f.releaser.calls {
		if !call.Cumulative.Equal(decimal.NewFromInt(18)) {
			t.Fatalf("every attempt must carry the same cumulative target, got %s", call.Cumulative)
		}
	}
	if !engine.Session().ReleasedAmount.Equal(decimal.NewFromInt(18)) {
		t.Fatalf("expected release confirmed after retries")
	}
}

func TestReleaseFailureKeepsReleasedAmount(t *testing.T) {
	t.Parallel()
	f := newFixture(3)
	permanent := errors.New("insufficient allowance")
	f.releaser.failures = []error{permanent}
	engine := f.create(t)
	f.activate(t, engine)

	if len(f.releaser.calls) != 1 {
		t.Fatalf("permanent failures must not be retried, got %d calls", len(f.releaser.calls))
	}
	if !engine.Session().ReleasedAmount.IsZero() {
		t.Fatalf("released amount must stay zero after failure, got %s", engine.Session().ReleasedAmount)
	}

	f.clock.Set(t0.Add(time.Minute))
	if _, err := f.svc.Release(context.Background(), engine); err != nil {
		t.Fatalf("retry release: %v", err)
	}
	// One minute of presence is progress 21: 100 * 21% * 0.9.
	if !engine.Session().ReleasedAmount.Equal(decimal.RequireFromString("18.9")) {
		t.Fatalf("expected the next release to catch up, got %s", engine.Session().ReleasedAmount)
	}
}

func TestSettleRequestsRefundOnCancel(t *testing.T) {
	t.Parallel()
	f := newFixture(1)
	engine := f.create(t)
	f.clock.Set(t0.Add(5 * time.Minute))
	out, err := engine.Cancel(f.clock.Now())
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if _, err := f.svc.Settle(context.Background(), engine, out); err != nil {
		t.Fatalf("settle: %v", err)
	}

	if len(f.refunder.calls) != 1 || f.refunder.calls[0].Reason != domain.RefundCancelled || f.refunder.calls[0].Payer != payer {
		t.Fatalf("unexpected refunds %+v", f.refunder.calls)
	}
	if len(f.releaser.calls) != 0 {
		t.Fatalf("cancelled sessions release nothing, got %d calls", len(f.releaser.calls))
	}
}

func TestSettleFlushesFinalReleaseOnScheduledEnd(t *testing.T) {
	t.Parallel()
	f := newFixture(1)
	engine := f.create(t)
	f.activate(t, engine)
	for at := t0.Add(30 * time.Second); !at.After(t0.Add(59 * time.Minute)); at = at.Add(30 * time.Second) {
		if _, _, err := engine.Heartbeat(at, payer); err != nil {
			t.Fatalf("heartbeat: %v", err)
		}
	}
	end := t0.Add(61 * time.Minute)
	f.clock.Set(end)
	out, err := f.svc.Settle(context.Background(), engine, engine.Advance(end))
	if err != nil {
		t.Fatalf("settle: %v", err)
	}

	if !out.Final || engine.Session().Status != domain.StatusAutoCompleted {
		t.Fatalf("expected auto completion, got %s", engine.Session().Status)
	}
	if !engine.Session().ReleasedAmount.Equal(decimal.NewFromInt(90)) {
		t.Fatalf("expected full ceiling released, got %s", engine.Session().ReleasedAmount)
	}
	last := f.releaser.calls[len(f.releaser.calls)-1]
	if !last.Cumulative.Equal(decimal.NewFromInt(90)) {
		t.Fatalf("expected final cumulative 90, got %s", last.Cumulative)
	}
}

func TestSettleRetriesFinalReleaseUntilPaid(t *testing.T) {
	t.Parallel()
	f := newFixture(1)
	engine := f.create(t)
	f.activate(t, engine)
	for at := t0.Add(30 * time.Second); !at.After(t0.Add(20 * time.Minute)); at = at.Add(30 * time.Second) {
		if _, _, err := engine.Heartbeat(at, payer); err != nil {
			t.Fatalf("heartbeat: %v", err)
		}
	}
	end := t0.Add(22 * time.Minute)
	f.clock.Set(end)
	out, err := engine.Complete(end)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	f.releaser.failures = []error{errors.New("insufficient allowance")}
	if _, err := f.svc.Settle(context.Background(), engine, out); err == nil {
		t.Fatalf("expected the final release error to be returned")
	}
	pending := engine.Snapshot(end)
	if !pending.SettlementPending || !pending.AvailableForRelease.IsPositive() {
		t.Fatalf("expected settlement pending, got %+v", pending)
	}

	f.clock.Set(end.Add(time.Minute))
	if _, err := f.svc.Settle(context.Background(), engine, domain.Outcome{}); err != nil {
		t.Fatalf("retry settle: %v", err)
	}
	settled := engine.Snapshot(end.Add(time.Minute))
	if settled.SettlementPending || !settled.ReleasedAmount.Equal(pending.TargetAmount) {
		t.Fatalf("expected %s released after retry, got %+v", pending.TargetAmount, settled)
	}
}

func TestReleaseWithoutReleaserFails(t *testing.T) {
	t.Parallel()
	clk := &fakeClock{now: t0.Add(-time.Hour)}
	svc := service.NewEngineService(clk, staticIDs{}, domain.DefaultPolicy(), nil, nil, nil, service.RetryPolicy{}, nil)
	engine, err := svc.Create(domain.Session{
		PayerAddress:             payer,
		MentorAddress:            mentor,
		Token:                    domain.Token{Symbol: "USDC", Network: "base", Decimals: 6},
		TotalAmount:              decimal.NewFromInt(100),
		ScheduledStart:           t0,
		ScheduledDurationMinutes: 60,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	clk.Set(t0)
	if _, err := engine.Start(t0); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := svc.Release(context.Background(), engine); err == nil {
		t.Fatalf("expected missing releaser error")
	}
}
