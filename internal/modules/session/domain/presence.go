package domain

import "time"

type LeaveReason string

const (
	LeaveManual              LeaveReason = "manual"
	LeaveWebRTCDisconnection LeaveReason = "webrtc_disconnection"
	LeaveGracePeriodExpired  LeaveReason = "grace_period_expired"
	LeaveHeartbeatTimeout    LeaveReason = "heartbeat_timeout"
)

func (r LeaveReason) Valid() bool {
	switch r {
	case LeaveManual, LeaveWebRTCDisconnection, LeaveGracePeriodExpired, LeaveHeartbeatTimeout:
		return true
	default:
		return false
	}
}

// PresenceRecord tracks the payer's connectivity. Present time accrues only
// while an accrual segment is open; the engine opens one while the session is
// active and the payer is connected.
type PresenceRecord struct {
	IsPresent         bool          `json:"is_present"`
	LastJoinTime      time.Time     `json:"last_join_time"`
	LastLeaveTime     time.Time     `json:"last_leave_time"`
	LastHeartbeatTime time.Time     `json:"last_heartbeat_time"`
	LastLeaveReason   LeaveReason   `json:"last_leave_reason,omitempty"`
	CumulativePresent time.Duration `json:"cumulative_present"`
	AccruingSince     time.Time     `json:"accruing_since"`
	DisconnectedAt    time.Time     `json:"disconnected_at"`
	Joins             int           `json:"joins"`
}

// RecordJoin marks the payer present. A join while already present only
// cancels a pending disconnect and reports false.
func (p *PresenceRecord) RecordJoin(now time.Time) bool {
	if p.IsPresent {
		p.DisconnectedAt = time.Time{}
		return false
	}
	p.IsPresent = true
	p.LastJoinTime = now
	p.DisconnectedAt = time.Time{}
	p.Joins++
	return true
}

func (p *PresenceRecord) RecordLeave(now time.Time, reason LeaveReason) bool {
	if !p.IsPresent {
		return false
	}
	p.StopAccrual(now)
	p.IsPresent = false
	p.LastLeaveTime = now
	p.LastLeaveReason = reason
	p.DisconnectedAt = time.Time{}
	return true
}

func (p *PresenceRecord) RecordHeartbeat(now time.Time) error {
	if !p.IsPresent {
		return ErrParticipantAbsent
	}
	if now.After(p.LastHeartbeatTime) {
		p.LastHeartbeatTime = now
	}
	p.DisconnectedAt = time.Time{}
	return nil
}

// MarkDisconnected starts the grace window without leaving.
func (p *PresenceRecord) MarkDisconnected(now time.Time) bool {
	if !p.IsPresent || !p.DisconnectedAt.IsZero() {
		return false
	}
	p.DisconnectedAt = now
	return true
}

func (p *PresenceRecord) StartAccrual(now time.Time) {
	if !p.IsPresent || !p.AccruingSince.IsZero() {
		return
	}
	p.AccruingSince = now
}

func (p *PresenceRecord) StopAccrual(now time.Time) {
	if p.AccruingSince.IsZero() {
		return
	}
	if d := now.Sub(p.AccruingSince); d > 0 {
		p.CumulativePresent += d
	}
	p.AccruingSince = time.Time{}
}

func (p PresenceRecord) PresentDuration(now time.Time) time.Duration {
	total := p.CumulativePresent
	if !p.AccruingSince.IsZero() {
		if d := now.Sub(p.AccruingSince); d > 0 {
			total += d
		}
	}
	return total
}

func (p PresenceRecord) LastSignal() time.Time {
	if p.LastHeartbeatTime.After(p.LastJoinTime) {
		return p.LastHeartbeatTime
	}
	return p.LastJoinTime
}

// GraceExpiry returns the instant at which a silent or disconnected payer is
// treated as gone, and the leave reason to record at that instant.
func (p PresenceRecord) GraceExpiry(grace time.Duration) (time.Time, LeaveReason, bool) {
	if !p.IsPresent {
		return time.Time{}, "", false
	}
	if !p.DisconnectedAt.IsZero() {
		return p.DisconnectedAt.Add(grace), LeaveGracePeriodExpired, true
	}
	return p.LastSignal().Add(grace), LeaveHeartbeatTimeout, true
}

func (p PresenceRecord) HasTelemetry() bool {
	return p.Joins > 0
}
