package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type SecurityEventType string

const (
	EventOverpaymentRisk  SecurityEventType = "overpayment_risk"
	EventFeeNotCollected  SecurityEventType = "fee_not_collected"
	EventDurationExceeded SecurityEventType = "duration_exceeded"
)

type Severity string

const (
	SeverityHigh    Severity = "high"
	SeverityMedium  Severity = "medium"
	SeverityWarning Severity = "warning"
)

type SecurityEvent struct {
	SessionID string            `json:"session_id"`
	Type      SecurityEventType `json:"type"`
	Severity  Severity          `json:"severity"`
	Message   string            `json:"message"`
	At        time.Time         `json:"at"`
	Details   map[string]string `json:"details,omitempty"`
}

// CheckRelease vetoes a release that would push the cumulative released
// amount above the ceiling.
func CheckRelease(sessionID string, released, proposed, ceiling decimal.Decimal, at time.Time) (SecurityEvent, error) {
	if proposed.IsNegative() {
		return SecurityEvent{}, fmt.Errorf("%w: %s", ErrInvalidRelease, proposed)
	}
	potential := released.Add(proposed)
	if !potential.GreaterThan(ceiling) {
		return SecurityEvent{}, nil
	}
	event := SecurityEvent{
		SessionID: sessionID,
		Type:      EventOverpaymentRisk,
		Severity:  SeverityHigh,
		Message:   "release would exceed the payable ceiling",
		At:        at,
		Details: map[string]string{
			"released":  released.String(),
			"proposed":  proposed.String(),
			"potential": potential.String(),
			"ceiling":   ceiling.String(),
		},
	}
	return event, fmt.Errorf("%w: %s above ceiling %s", ErrOverpaymentRisk, potential, ceiling)
}

func CheckCompletion(sessionID string, feeCollected bool, at time.Time) (SecurityEvent, error) {
	if feeCollected {
		return SecurityEvent{}, nil
	}
	event := SecurityEvent{
		SessionID: sessionID,
		Type:      EventFeeNotCollected,
		Severity:  SeverityMedium,
		Message:   "completion attempted before the platform fee was collected",
		At:        at,
	}
	return event, ErrPlatformFeeNotCollected
}

func CheckDuration(sessionID string, elapsed, limit time.Duration, at time.Time) (SecurityEvent, bool) {
	if elapsed < limit {
		return SecurityEvent{}, false
	}
	return SecurityEvent{
		SessionID: sessionID,
		Type:      EventDurationExceeded,
		Severity:  SeverityWarning,
		Message:   "session reached the maximum duration",
		At:        at,
		Details: map[string]string{
			"elapsed": elapsed.String(),
			"limit":   limit.String(),
		},
	}, true
}
