package dto

import "time"

type CreateInput struct {
	PayerAddress             string
	MentorAddress            string
	Network                  string
	TokenSymbol              string
	TotalAmount              string
	ScheduledStart           time.Time
	ScheduledDurationMinutes int
	PresenceTracking         bool
	FeeCollected             bool
}

type ParticipantInput struct {
	SessionID string
	Address   string
	Reason    string
}

type ClearHoldInput struct {
	SessionID string
	Operator  string
}

type SnapshotOutput struct {
	SessionID            string    `json:"session_id"`
	PayerAddress         string    `json:"payer_address"`
	MentorAddress        string    `json:"mentor_address"`
	Status               string    `json:"status"`
	StatusReason         string    `json:"status_reason"`
	IsPaused             bool      `json:"is_paused"`
	OnHold               bool      `json:"on_hold"`
	RefundRequested      bool      `json:"refund_requested"`
	Processing           bool      `json:"processing"`
	ProgressPercentage   int       `json:"progress_percentage"`
	ReleasedAmount       string    `json:"released_amount"`
	TargetAmount         string    `json:"target_amount"`
	AvailableForRelease  string    `json:"available_for_release"`
	Ceiling              string    `json:"ceiling"`
	TotalAmount          string    `json:"total_amount"`
	Token                string    `json:"token"`
	PaymentMethod        string    `json:"payment_method"`
	ElapsedMinutes       float64   `json:"elapsed_minutes"`
	CompletionPercent    float64   `json:"completion_percent"`
	ScheduledMinutes     int       `json:"scheduled_minutes"`
	PayerPresent         bool      `json:"payer_present"`
	PayerPresenceMinutes float64   `json:"payer_presence_minutes"`
	PayerPresencePercent float64   `json:"payer_presence_percent"`
	MilestoneReached     bool      `json:"milestone_reached"`
	Final                bool      `json:"final"`
	SettlementPending    bool      `json:"settlement_pending"`
	At                   time.Time `json:"at"`
}

type HeartbeatOutput struct {
	Snapshot               SnapshotOutput `json:"snapshot"`
	IsValid                bool           `json:"is_valid"`
	CooldownRemaining      time.Duration  `json:"cooldown_remaining"`
	TimeSinceLastHeartbeat time.Duration  `json:"time_since_last_heartbeat"`
	Stale                  bool           `json:"stale"`
}

type ConfirmationOutput struct {
	SessionID            string    `json:"session_id"`
	PayerAddress         string    `json:"payer_address"`
	MentorAddress        string    `json:"mentor_address"`
	Token                string    `json:"token"`
	TotalAmount          string    `json:"total_amount"`
	ReleasedAmount       string    `json:"released_amount"`
	ProgressPercentage   int       `json:"progress_percentage"`
	PayerPresenceMinutes float64   `json:"payer_presence_minutes"`
	PayerPresencePercent float64   `json:"payer_presence_percent"`
	PaymentMethod        string    `json:"payment_method"`
	Status               string    `json:"status"`
	StatusReason         string    `json:"status_reason"`
	RefundRequested      bool      `json:"refund_requested"`
	TxReference          string    `json:"tx_reference,omitempty"`
	EndedAt              time.Time `json:"ended_at"`
	ReportPath           string    `json:"report_path,omitempty"`
}
