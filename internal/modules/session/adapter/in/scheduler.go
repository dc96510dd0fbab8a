package in

import (
	"context"
	"log/slog"
	"time"

	sessionin "mentorpay/internal/modules/session/port/in"
	"mentorpay/internal/platform/logging"
)

// Scheduler ticks every live session on a fixed interval so timers fire
// without participant traffic.
type Scheduler struct {
	usecase  sessionin.Usecase
	interval time.Duration
	logger   *slog.Logger
}

func NewScheduler(usecase sessionin.Usecase, interval time.Duration, logger *slog.Logger) *Scheduler {
	if interval <= 0 {
		interval = time.Second
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Scheduler{usecase: usecase, interval: interval, logger: logger.With("component", "scheduler")}
}

// Run blocks until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	s.logger.Info("scheduler started", "interval", s.interval)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	snaps, err := s.usecase.TickAll(ctx)
	if err != nil && ctx.Err() == nil {
		s.logger.Error("tick failed", "error", err)
	}
	for _, snap := range snaps {
		if snap.Final && !snap.SettlementPending {
			s.logger.Info("session closed by scheduler", "session_id", snap.SessionID, "status", snap.Status, "reason", snap.StatusReason)
		}
	}
}
