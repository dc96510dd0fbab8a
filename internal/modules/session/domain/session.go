package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const SchemaVersion = 1

var (
	ErrInvalidSession          = errors.New("session is invalid")
	ErrTerminalSession         = errors.New("session is in a terminal state")
	ErrIllegalTransition       = errors.New("illegal session transition")
	ErrSecurityHold            = errors.New("session is on security hold")
	ErrNotOnHold               = errors.New("session is not on security hold")
	ErrUnknownParticipant      = errors.New("participant is not part of the session")
	ErrParticipantAbsent       = errors.New("participant is not present")
	ErrRecoveryWindowExpired   = errors.New("recovery window expired")
	ErrProgressOutOfRange      = errors.New("progress out of range")
	ErrReleaseExceedsCeiling   = errors.New("release exceeds ceiling")
	ErrInvalidRelease          = errors.New("invalid release amount")
	ErrOverpaymentRisk         = errors.New("overpayment risk")
	ErrPlatformFeeNotCollected = errors.New("platform fee not collected")
	ErrSettlementPending       = errors.New("final release pending")
)

type Status string

const (
	StatusCreated        Status = "created"
	StatusActive         Status = "active"
	StatusPaused         Status = "paused"
	StatusCompleted      Status = "completed"
	StatusCancelled      Status = "cancelled"
	StatusAutoCompleted  Status = "auto_completed"
	StatusSecurityPaused Status = "security_paused"
)

var transitions = map[Status][]Status{
	StatusCreated: {StatusActive, StatusCancelled, StatusSecurityPaused},
	StatusActive:  {StatusPaused, StatusCompleted, StatusCancelled, StatusAutoCompleted, StatusSecurityPaused},
	StatusPaused:  {StatusActive, StatusCompleted, StatusCancelled, StatusAutoCompleted, StatusSecurityPaused},
}

func (s Status) Validate() error {
	switch s {
	case StatusCreated, StatusActive, StatusPaused, StatusCompleted, StatusCancelled, StatusAutoCompleted, StatusSecurityPaused:
		return nil
	default:
		return fmt.Errorf("unknown session status %q", string(s))
	}
}

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusAutoCompleted
}

// CanTransition reports whether from -> to is a legal automatic or caller
// driven edge. Leaving SecurityPaused is not covered: only ClearHold does that.
func CanTransition(from, to Status) bool {
	for _, candidate := range transitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

type Role string

const (
	RolePayer  Role = "payer"
	RoleMentor Role = "mentor"
)

type Token struct {
	Symbol   string `json:"symbol"`
	Network  string `json:"network"`
	Decimals int32  `json:"decimals"`
}

func (t Token) String() string {
	if t.Network == "" {
		return t.Symbol
	}
	return t.Symbol + "@" + t.Network
}

// Status reasons recorded alongside transitions.
const (
	ReasonParticipantsJoined = "participants_joined"
	ReasonStarted            = "started"
	ReasonPayerLeft          = "payer_left"
	ReasonPayerRejoined      = "payer_rejoined"
	ReasonManualPause        = "manual_pause"
	ReasonResumed            = "resumed"
	ReasonCompleted          = "completed"
	ReasonPayerLeftDelivered = "payer_left_after_milestone"
	ReasonEntryTimeout       = "entry_timeout"
	ReasonStartExpired       = "start_window_expired"
	ReasonScheduledEnd       = "scheduled_end_reached"
	ReasonCancelled          = "cancelled"
	ReasonOverpaymentRisk    = "overpayment_risk"
	ReasonHoldCleared        = "hold_cleared"
)

type Session struct {
	ID                       string          `json:"id"`
	PayerAddress             string          `json:"payer_address"`
	MentorAddress            string          `json:"mentor_address"`
	Token                    Token           `json:"token"`
	TotalAmount              decimal.Decimal `json:"total_amount"`
	ScheduledStart           time.Time       `json:"scheduled_start"`
	ScheduledDurationMinutes int             `json:"scheduled_duration_minutes"`
	PresenceTracking         bool            `json:"presence_tracking"`
	FeeCollected             bool            `json:"fee_collected"`
	CreatedAt                time.Time       `json:"created_at"`
	StartTime                time.Time       `json:"start_time"`
	EndedAt                  time.Time       `json:"ended_at"`
	PausedAt                 time.Time       `json:"paused_at"`
	Status                   Status          `json:"status"`
	StatusReason             string          `json:"status_reason"`
	HeldFrom                 Status          `json:"held_from,omitempty"`
	PayerJoined              bool            `json:"payer_joined"`
	MilestoneReached         bool            `json:"milestone_reached"`
	DurationWarned           bool            `json:"duration_warned"`
	RefundRequested          bool            `json:"refund_requested"`
	RefundReason             RefundReason    `json:"refund_reason,omitempty"`
	ReleasedAmount           decimal.Decimal `json:"released_amount"`
	LastProgress             int             `json:"last_progress"`
	LastTxReference          string          `json:"last_tx_reference,omitempty"`
}

func (s Session) Validate() error {
	if strings.TrimSpace(s.ID) == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidSession)
	}
	if strings.TrimSpace(s.PayerAddress) == "" || strings.TrimSpace(s.MentorAddress) == "" {
		return fmt.Errorf("%w: payer and mentor addresses are required", ErrInvalidSession)
	}
	if strings.EqualFold(s.PayerAddress, s.MentorAddress) {
		return fmt.Errorf("%w: payer and mentor must differ", ErrInvalidSession)
	}
	if s.ScheduledDurationMinutes <= 0 {
		return fmt.Errorf("%w: scheduled duration must be positive", ErrInvalidSession)
	}
	if !s.TotalAmount.IsPositive() {
		return fmt.Errorf("%w: total amount must be positive", ErrInvalidSession)
	}
	if s.Token.Decimals < 0 {
		return fmt.Errorf("%w: token decimals must not be negative", ErrInvalidSession)
	}
	if s.ScheduledStart.IsZero() {
		return fmt.Errorf("%w: scheduled start is required", ErrInvalidSession)
	}
	if s.Status != "" {
		if err := s.Status.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidSession, err)
		}
	}
	return nil
}

func (s Session) IsPaused() bool {
	return s.Status == StatusPaused
}

func (s Session) ScheduledDuration() time.Duration {
	return time.Duration(s.ScheduledDurationMinutes) * time.Minute
}

func (s Session) RoleOf(address string) (Role, error) {
	address = strings.TrimSpace(address)
	switch {
	case address == "":
		return "", fmt.Errorf("%w: empty address", ErrUnknownParticipant)
	case strings.EqualFold(address, s.PayerAddress):
		return RolePayer, nil
	case strings.EqualFold(address, s.MentorAddress):
		return RoleMentor, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownParticipant, address)
	}
}

// Policy carries the tunable windows of the engine.
type Policy struct {
	PlatformFee        decimal.Decimal
	GracePeriod        time.Duration
	HeartbeatCooldown  time.Duration
	EntryTimeout       time.Duration
	RecoveryWindow     time.Duration
	MaxSessionDuration time.Duration
}

const (
	DefaultGracePeriod        = 2 * time.Minute
	DefaultHeartbeatCooldown  = 30 * time.Second
	DefaultEntryTimeout       = 15 * time.Minute
	DefaultRecoveryWindow     = 10 * time.Minute
	DefaultMaxSessionDuration = 4 * time.Hour
)

func DefaultPolicy() Policy {
	return Policy{
		PlatformFee:        decimal.RequireFromString("0.10"),
		GracePeriod:        DefaultGracePeriod,
		HeartbeatCooldown:  DefaultHeartbeatCooldown,
		EntryTimeout:       DefaultEntryTimeout,
		RecoveryWindow:     DefaultRecoveryWindow,
		MaxSessionDuration: DefaultMaxSessionDuration,
	}
}

func (p Policy) Validate() error {
	if p.PlatformFee.IsNegative() || p.PlatformFee.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("platform fee must be within [0, 1), got %s", p.PlatformFee)
	}
	if p.GracePeriod <= 0 {
		return fmt.Errorf("grace period must be positive")
	}
	if p.HeartbeatCooldown < 0 {
		return fmt.Errorf("heartbeat cooldown must not be negative")
	}
	if p.EntryTimeout <= 0 {
		return fmt.Errorf("entry timeout must be positive")
	}
	if p.RecoveryWindow <= 0 {
		return fmt.Errorf("recovery window must be positive")
	}
	if p.MaxSessionDuration <= 0 {
		return fmt.Errorf("max session duration must be positive")
	}
	return nil
}
