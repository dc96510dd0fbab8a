package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"mentorpay/internal/modules/session/domain"
	sessionout "mentorpay/internal/modules/session/port/out"
	"mentorpay/internal/platform/clock"
	"mentorpay/internal/platform/id"
	"mentorpay/internal/platform/logging"
)

type RetryPolicy struct {
	Attempts int
	Backoff  time.Duration
}

// EngineService builds engines and carries out the side effects their
// outcomes ask for.
type EngineService struct {
	clock    clock.Clock
	ids      id.Generator
	policy   domain.Policy
	releaser sessionout.PaymentReleaser
	refunder sessionout.Refunder
	sink     sessionout.SecurityEventSink
	retry    RetryPolicy
	logger   *slog.Logger
}

func NewEngineService(
	clk clock.Clock,
	ids id.Generator,
	policy domain.Policy,
	releaser sessionout.PaymentReleaser,
	refunder sessionout.Refunder,
	sink sessionout.SecurityEventSink,
	retry RetryPolicy,
	logger *slog.Logger,
) *EngineService {
	if retry.Attempts < 1 {
		retry.Attempts = 1
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &EngineService{
		clock:    clk,
		ids:      ids,
		policy:   policy,
		releaser: releaser,
		refunder: refunder,
		sink:     sink,
		retry:    retry,
		logger:   logger,
	}
}

func (s *EngineService) Now() time.Time {
	return s.clock.Now()
}

func (s *EngineService) Create(session domain.Session) (*domain.Engine, error) {
	session.ID = s.ids.New()
	engine, err := domain.New(session, s.policy, s.clock.Now())
	if err != nil {
		return nil, err
	}
	s.logger.Info("session created",
		"session_id", session.ID,
		"token", session.Token.String(),
		"total", engine.Session().TotalAmount.String(),
		"scheduled_minutes", session.ScheduledDurationMinutes,
		"presence_tracking", session.PresenceTracking,
	)
	return engine, nil
}

func (s *EngineService) Restore(state domain.State) (*domain.Engine, error) {
	return domain.Restore(state, s.policy)
}

// Settle reports security events, requests a refund when asked to and flushes
// a release when one is due. A finished session is flushed on every call until
// nothing is left to release. Collaborator failures never undo the transition
// that caused them; the release error is logged and returned.
func (s *EngineService) Settle(ctx context.Context, engine *domain.Engine, out domain.Outcome) (domain.Outcome, error) {
	session := engine.Session()
	for _, tr := range out.Transitions {
		s.logger.Info("session transition",
			"session_id", session.ID,
			"from", string(tr.From),
			"to", string(tr.To),
			"reason", tr.Reason,
			"at", tr.At,
		)
	}
	s.report(ctx, out.Events)
	if out.Refund != "" {
		if err := s.refund(ctx, session, out.Refund); err != nil {
			s.logger.Error("refund request failed", "session_id", session.ID, "reason", string(out.Refund), "error", err)
		}
	}
	if !out.ReleaseDue && !out.Final && !engine.Session().Status.Terminal() {
		return out, nil
	}
	extra, err := s.Release(ctx, engine)
	out.Transitions = append(out.Transitions, extra.Transitions...)
	out.Events = append(out.Events, extra.Events...)
	if err != nil {
		s.logger.Warn("release deferred", "session_id", session.ID, "status", string(engine.Session().Status), "error", err)
	}
	return out, err
}

// Release asks the collaborator for the cumulative amount earned so far.
// The engine only records the new released amount once the collaborator
// confirms it.
func (s *EngineService) Release(ctx context.Context, engine *domain.Engine) (domain.Outcome, error) {
	now := s.clock.Now()
	plan, err := engine.ProposeRelease(now)
	if err != nil {
		return domain.Outcome{}, err
	}
	if !plan.Proposed.IsPositive() {
		return domain.Outcome{}, nil
	}
	out, err := engine.AuthorizeRelease(now, plan.Proposed)
	if err != nil {
		s.report(ctx, out.Events)
		return out, err
	}
	session := engine.Session()
	ref, err := s.releaseWithRetry(ctx, sessionout.ReleaseRequest{
		SessionID:  session.ID,
		Payee:      session.MentorAddress,
		Token:      session.Token,
		Cumulative: plan.Target,
	})
	if err != nil {
		return out, err
	}
	if err := engine.ConfirmRelease(plan.Target, ref); err != nil {
		return out, err
	}
	s.logger.Info("payment released",
		"session_id", session.ID,
		"progress", plan.Progress,
		"method", string(plan.Method),
		"cumulative", plan.Target.String(),
		"tx", ref,
	)
	return out, nil
}

func (s *EngineService) releaseWithRetry(ctx context.Context, request sessionout.ReleaseRequest) (string, error) {
	if s.releaser == nil {
		return "", fmt.Errorf("payment releaser is not configured")
	}
	backoff := s.retry.Backoff
	var lastErr error
	for attempt := 1; attempt <= s.retry.Attempts; attempt++ {
		ref, err := s.releaser.Release(ctx, request)
		if err == nil {
			return ref, nil
		}
		lastErr = err
		if !errors.Is(err, sessionout.ErrTransient) || attempt == s.retry.Attempts {
			break
		}
		s.logger.Warn("release attempt failed",
			"session_id", request.SessionID,
			"attempt", attempt,
			"backoff", backoff,
			"error", err,
		)
		if err := sleepContext(ctx, backoff); err != nil {
			return "", err
		}
		backoff *= 2
	}
	return "", fmt.Errorf("release %s for session %s: %w", request.Cumulative, request.SessionID, lastErr)
}

func (s *EngineService) refund(ctx context.Context, session domain.Session, reason domain.RefundReason) error {
	if s.refunder == nil {
		return fmt.Errorf("refunder is not configured")
	}
	err := s.refunder.Refund(ctx, sessionout.RefundRequest{
		SessionID: session.ID,
		Payer:     session.PayerAddress,
		Token:     session.Token,
		Reason:    reason,
	})
	if err != nil {
		return err
	}
	s.logger.Info("refund requested", "session_id", session.ID, "reason", string(reason))
	return nil
}

func (s *EngineService) report(ctx context.Context, events []domain.SecurityEvent) {
	if s.sink == nil {
		return
	}
	for _, event := range events {
		s.sink.Report(ctx, event)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
