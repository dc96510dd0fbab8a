package out

import (
	"context"
	"log/slog"

	"mentorpay/internal/modules/session/domain"
	sessionout "mentorpay/internal/modules/session/port/out"
)

// SlogSecuritySink writes security events to the structured log. High
// severity events log at error level.
type SlogSecuritySink struct {
	logger *slog.Logger
}

func NewSlogSecuritySink(logger *slog.Logger) *SlogSecuritySink {
	return &SlogSecuritySink{logger: logger.With("component", "security")}
}

var _ sessionout.SecurityEventSink = (*SlogSecuritySink)(nil)

func (s *SlogSecuritySink) Report(ctx context.Context, event domain.SecurityEvent) {
	level := slog.LevelWarn
	if event.Severity == domain.SeverityHigh {
		level = slog.LevelError
	}
	attrs := []slog.Attr{
		slog.String("session_id", event.SessionID),
		slog.String("type", string(event.Type)),
		slog.String("severity", string(event.Severity)),
		slog.Time("at", event.At),
	}
	for key, value := range event.Details {
		attrs = append(attrs, slog.String(key, value))
	}
	s.logger.LogAttrs(ctx, level, event.Message, attrs...)
}
