package domain

import "time"

type HeartbeatCheck struct {
	IsValid                bool
	CooldownRemaining      time.Duration
	TimeSinceLastHeartbeat time.Duration
	// Stale is set when the gap since the previous heartbeat exceeded the
	// grace period.
	Stale bool
}

// ValidateHeartbeat reports whether a heartbeat at now respects the cooldown
// since last. Early heartbeats still count as liveness; they never add
// present time on their own.
func ValidateHeartbeat(last, now time.Time, cooldown time.Duration) HeartbeatCheck {
	if last.IsZero() {
		return HeartbeatCheck{IsValid: true}
	}
	since := now.Sub(last)
	if since < 0 {
		since = 0
	}
	if since >= cooldown {
		return HeartbeatCheck{IsValid: true, TimeSinceLastHeartbeat: since}
	}
	return HeartbeatCheck{IsValid: false, CooldownRemaining: cooldown - since, TimeSinceLastHeartbeat: since}
}

// HeartbeatStale reports whether the gap since last exceeds grace.
func HeartbeatStale(last, now time.Time, grace time.Duration) bool {
	if last.IsZero() {
		return false
	}
	return now.Sub(last) > grace
}
