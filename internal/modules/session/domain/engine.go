package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type RefundReason string

const (
	RefundTimeout   RefundReason = "timeout"
	RefundExpired   RefundReason = "expired"
	RefundCancelled RefundReason = "cancelled"
)

// State is everything the engine owns for one session. It is the unit that
// gets persisted between calls.
type State struct {
	SchemaVersion  int            `json:"schema_version"`
	Session        Session        `json:"session"`
	Payer          PresenceRecord `json:"payer"`
	MentorPresent  bool           `json:"mentor_present"`
	MentorJoinedAt time.Time      `json:"mentor_joined_at"`
	LastObservedAt time.Time      `json:"last_observed_at"`
	History        []Transition   `json:"history,omitempty"`
}

type Transition struct {
	From   Status    `json:"from"`
	To     Status    `json:"to"`
	At     time.Time `json:"at"`
	Reason string    `json:"reason"`
}

// Outcome lists the side effects an operation asks its caller to carry out.
type Outcome struct {
	Transitions []Transition
	Events      []SecurityEvent
	Refund      RefundReason
	ReleaseDue  bool
	Final       bool
}

func (o Outcome) Empty() bool {
	return len(o.Transitions) == 0 && len(o.Events) == 0 && o.Refund == "" && !o.ReleaseDue && !o.Final
}

type ReleasePlan struct {
	SessionID string
	Progress  int
	Method    PaymentMethod
	Released  decimal.Decimal
	Target    decimal.Decimal
	Proposed  decimal.Decimal
	Ceiling   decimal.Decimal
}

type Snapshot struct {
	SessionID            string          `json:"session_id"`
	PayerAddress         string          `json:"payer_address"`
	MentorAddress        string          `json:"mentor_address"`
	Status               Status          `json:"status"`
	StatusReason         string          `json:"status_reason"`
	IsPaused             bool            `json:"is_paused"`
	OnHold               bool            `json:"on_hold"`
	RefundRequested      bool            `json:"refund_requested"`
	Processing           bool            `json:"processing"`
	ProgressPercentage   int             `json:"progress_percentage"`
	ReleasedAmount       decimal.Decimal `json:"released_amount"`
	TargetAmount         decimal.Decimal `json:"target_amount"`
	AvailableForRelease  decimal.Decimal `json:"available_for_release"`
	Ceiling              decimal.Decimal `json:"ceiling"`
	TotalAmount          decimal.Decimal `json:"total_amount"`
	PaymentMethod        PaymentMethod   `json:"payment_method"`
	ElapsedMinutes       float64         `json:"elapsed_minutes"`
	CompletionPercent    float64         `json:"completion_percent"`
	PayerPresent         bool            `json:"payer_present"`
	PayerPresenceMinutes float64         `json:"payer_presence_minutes"`
	PayerPresencePercent float64         `json:"payer_presence_percent"`
	MilestoneReached     bool            `json:"milestone_reached"`
	ScheduledMinutes     int             `json:"scheduled_minutes"`
	Final                bool            `json:"final"`
	SettlementPending    bool            `json:"settlement_pending"`
	Token                Token           `json:"token"`
	At                   time.Time       `json:"at"`
}

const maxAdvanceSteps = 16

type deadlineKind int

// Declaration order breaks ties between deadlines due at the same instant.
const (
	deadlineGrace deadlineKind = iota
	deadlineEntry
	deadlineStartExpired
	deadlineScheduledEnd
	deadlineMaxDuration
)

// Engine is the lifecycle state machine of a single session. It is not safe
// for concurrent use; callers serialize access per session.
type Engine struct {
	state  State
	policy Policy
	calc   Calculator
}

func New(session Session, policy Policy, now time.Time) (*Engine, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	if session.Status == "" {
		session.Status = StatusCreated
	}
	if session.Status != StatusCreated {
		return nil, fmt.Errorf("%w: new sessions start as %s", ErrInvalidSession, StatusCreated)
	}
	if err := session.Validate(); err != nil {
		return nil, err
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	session.ReleasedAmount = decimal.Zero
	session.TotalAmount = session.TotalAmount.Truncate(session.Token.Decimals)
	return &Engine{
		state: State{
			SchemaVersion:  SchemaVersion,
			Session:        session,
			LastObservedAt: now,
		},
		policy: policy,
		calc:   NewCalculator(policy.PlatformFee, session.Token.Decimals),
	}, nil
}

func Restore(state State, policy Policy) (*Engine, error) {
	if state.SchemaVersion != SchemaVersion {
		return nil, fmt.Errorf("%w: unsupported schema version %d", ErrInvalidSession, state.SchemaVersion)
	}
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	if err := state.Session.Validate(); err != nil {
		return nil, err
	}
	return &Engine{
		state:  state,
		policy: policy,
		calc:   NewCalculator(policy.PlatformFee, state.Session.Token.Decimals),
	}, nil
}

func (e *Engine) State() State {
	return e.state
}

func (e *Engine) Session() Session {
	return e.state.Session
}

func (e *Engine) PaymentMethod() PaymentMethod {
	if !e.state.Session.PresenceTracking {
		return MethodLegacy
	}
	if e.state.Payer.HasTelemetry() {
		return MethodPayerPresence
	}
	return MethodSessionTime
}

// Advance applies every deadline due at or before now.
func (e *Engine) Advance(now time.Time) Outcome {
	out, _ := e.apply(now, func(time.Time, *Outcome) error { return nil })
	return out
}

func (e *Engine) Join(now time.Time, address string) (Outcome, error) {
	return e.apply(now, func(now time.Time, out *Outcome) error {
		role, err := e.state.Session.RoleOf(address)
		if err != nil {
			return err
		}
		s := &e.state.Session
		if s.Status.Terminal() {
			return ErrTerminalSession
		}
		if role == RoleMentor {
			e.state.MentorPresent = true
			if e.state.MentorJoinedAt.IsZero() {
				e.state.MentorJoinedAt = now
			}
		} else {
			resuming := !e.state.Payer.IsPresent && s.Status == StatusPaused && payerAbsence(s.StatusReason)
			// An expired window leaves the payer absent.
			if resuming && now.Sub(s.PausedAt) > e.policy.RecoveryWindow {
				return ErrRecoveryWindowExpired
			}
			e.state.Payer.RecordJoin(now)
			s.PayerJoined = true
			if resuming {
				return e.transition(StatusActive, now, ReasonPayerRejoined, out)
			}
		}
		switch s.Status {
		case StatusCreated:
			if s.PayerJoined && !e.state.MentorJoinedAt.IsZero() {
				return e.transition(StatusActive, now, ReasonParticipantsJoined, out)
			}
		case StatusActive:
			e.state.Payer.StartAccrual(now)
		}
		return nil
	})
}

// Leave records a departure. Repeated leaves are no-ops.
func (e *Engine) Leave(now time.Time, address string, reason LeaveReason) (Outcome, error) {
	return e.apply(now, func(now time.Time, out *Outcome) error {
		if reason == "" {
			reason = LeaveManual
		}
		if !reason.Valid() {
			return fmt.Errorf("%w: unknown leave reason %q", ErrInvalidSession, string(reason))
		}
		role, err := e.state.Session.RoleOf(address)
		if err != nil {
			return err
		}
		s := &e.state.Session
		if s.Status.Terminal() {
			return ErrTerminalSession
		}
		if role == RoleMentor {
			e.state.MentorPresent = false
			return nil
		}

		// Milestone is observed before the leave closes the accrual segment.
		e.observe(now, out)
		if !e.state.Payer.RecordLeave(now, reason) {
			return nil
		}
		if s.Status != StatusActive && s.Status != StatusPaused {
			return nil
		}
		if reason == LeaveManual && s.MilestoneReached {
			event, err := CheckCompletion(s.ID, s.FeeCollected, now)
			if err == nil {
				return e.transition(StatusCompleted, now, ReasonPayerLeftDelivered, out)
			}
			out.Events = append(out.Events, event)
		}
		if s.Status == StatusActive {
			status := ReasonPayerLeft
			if reason != LeaveManual {
				status = string(reason)
			}
			return e.transition(StatusPaused, now, status, out)
		}
		return nil
	})
}

// Disconnect starts the grace window for a connectivity loss the payer has
// not yet recovered from.
func (e *Engine) Disconnect(now time.Time, address string) (Outcome, error) {
	return e.apply(now, func(now time.Time, out *Outcome) error {
		role, err := e.state.Session.RoleOf(address)
		if err != nil {
			return err
		}
		if e.state.Session.Status.Terminal() {
			return ErrTerminalSession
		}
		if role == RolePayer {
			e.state.Payer.MarkDisconnected(now)
		}
		return nil
	})
}

func (e *Engine) Heartbeat(now time.Time, address string) (HeartbeatCheck, Outcome, error) {
	var check HeartbeatCheck
	out, err := e.apply(now, func(now time.Time, out *Outcome) error {
		role, err := e.state.Session.RoleOf(address)
		if err != nil {
			return err
		}
		if e.state.Session.Status.Terminal() {
			return ErrTerminalSession
		}
		if role == RoleMentor {
			check = HeartbeatCheck{IsValid: true}
			return nil
		}
		last := e.state.Payer.LastHeartbeatTime
		check = ValidateHeartbeat(last, now, e.policy.HeartbeatCooldown)
		check.Stale = HeartbeatStale(last, now, e.policy.GracePeriod)
		if err := e.state.Payer.RecordHeartbeat(now); err != nil {
			return err
		}
		if check.IsValid && e.state.Session.Status == StatusActive {
			out.ReleaseDue = true
		}
		return nil
	})
	return check, out, err
}

// Start activates a created session without waiting for both participants.
func (e *Engine) Start(now time.Time) (Outcome, error) {
	return e.apply(now, func(now time.Time, out *Outcome) error {
		if err := e.mutable(); err != nil {
			return err
		}
		if status := e.state.Session.Status; status != StatusCreated {
			return fmt.Errorf("%w: cannot start a %s session", ErrIllegalTransition, status)
		}
		return e.transition(StatusActive, now, ReasonStarted, out)
	})
}

func (e *Engine) Pause(now time.Time) (Outcome, error) {
	return e.apply(now, func(now time.Time, out *Outcome) error {
		if err := e.mutable(); err != nil {
			return err
		}
		if status := e.state.Session.Status; status != StatusActive {
			return fmt.Errorf("%w: cannot pause a %s session", ErrIllegalTransition, status)
		}
		return e.transition(StatusPaused, now, ReasonManualPause, out)
	})
}

func (e *Engine) Resume(now time.Time) (Outcome, error) {
	return e.apply(now, func(now time.Time, out *Outcome) error {
		if err := e.mutable(); err != nil {
			return err
		}
		s := e.state.Session
		if s.Status != StatusPaused {
			return fmt.Errorf("%w: cannot resume a %s session", ErrIllegalTransition, s.Status)
		}
		if now.Sub(s.PausedAt) > e.policy.RecoveryWindow {
			return ErrRecoveryWindowExpired
		}
		return e.transition(StatusActive, now, ReasonResumed, out)
	})
}

func (e *Engine) Complete(now time.Time) (Outcome, error) {
	return e.apply(now, func(now time.Time, out *Outcome) error {
		if err := e.mutable(); err != nil {
			return err
		}
		s := e.state.Session
		if s.Status != StatusActive && s.Status != StatusPaused {
			return fmt.Errorf("%w: cannot complete a %s session", ErrIllegalTransition, s.Status)
		}
		if event, err := CheckCompletion(s.ID, s.FeeCollected, now); err != nil {
			out.Events = append(out.Events, event)
			return err
		}
		return e.transition(StatusCompleted, now, ReasonCompleted, out)
	})
}

func (e *Engine) Cancel(now time.Time) (Outcome, error) {
	return e.apply(now, func(now time.Time, out *Outcome) error {
		return e.cancel(now, ReasonCancelled, RefundCancelled, out)
	})
}

func (e *Engine) CollectFee(now time.Time) (Outcome, error) {
	return e.apply(now, func(time.Time, *Outcome) error {
		if e.state.Session.Status.Terminal() {
			return ErrTerminalSession
		}
		e.state.Session.FeeCollected = true
		return nil
	})
}

// ClearHold is the only way out of SecurityPaused. The session returns to the
// state it was held from.
func (e *Engine) ClearHold(now time.Time, operator string) (Outcome, error) {
	return e.apply(now, func(now time.Time, out *Outcome) error {
		s := &e.state.Session
		if s.Status != StatusSecurityPaused {
			return ErrNotOnHold
		}
		operator = strings.TrimSpace(operator)
		if operator == "" {
			return fmt.Errorf("%w: operator is required", ErrInvalidSession)
		}
		to := s.HeldFrom
		if to == "" {
			to = StatusPaused
		}
		s.Status = to
		s.StatusReason = ReasonHoldCleared + ":" + operator
		s.HeldFrom = ""
		switch to {
		case StatusActive:
			e.state.Payer.StartAccrual(now)
		case StatusPaused:
			s.PausedAt = now
		}
		e.record(Transition{From: StatusSecurityPaused, To: to, At: now, Reason: s.StatusReason}, out)
		// Deadlines that passed during the hold apply at the moment it clears.
		e.advanceFrom(now, now, out)
		return nil
	})
}

// ProposeRelease computes the cumulative amount the payee has earned at now.
// It does not mutate the engine; callers advance it first.
func (e *Engine) ProposeRelease(now time.Time) (ReleasePlan, error) {
	s := e.state.Session
	if s.Status == StatusSecurityPaused {
		return ReleasePlan{}, ErrSecurityHold
	}
	plan := ReleasePlan{
		SessionID: s.ID,
		Method:    e.PaymentMethod(),
		Released:  s.ReleasedAmount,
		Target:    s.ReleasedAmount,
		Proposed:  decimal.Zero,
		Ceiling:   e.calc.Ceiling(s.TotalAmount),
	}
	progress, err := e.progressAt(now)
	if err != nil {
		return ReleasePlan{}, err
	}
	plan.Progress = progress
	if s.Status == StatusCancelled {
		return plan, nil
	}
	available, err := e.calc.Available(s.TotalAmount, s.ReleasedAmount, progress)
	if err != nil {
		return ReleasePlan{}, err
	}
	plan.Proposed = available
	plan.Target = s.ReleasedAmount.Add(available)
	return plan, nil
}

// AuthorizeRelease runs the overpayment guard. A veto puts a live session on
// security hold.
func (e *Engine) AuthorizeRelease(now time.Time, proposed decimal.Decimal) (Outcome, error) {
	var out Outcome
	now = e.clamp(now)
	s := &e.state.Session
	if s.Status == StatusSecurityPaused {
		return out, ErrSecurityHold
	}
	event, err := CheckRelease(s.ID, s.ReleasedAmount, proposed, e.calc.Ceiling(s.TotalAmount), now)
	if err == nil {
		return out, nil
	}
	if event.Type != "" {
		out.Events = append(out.Events, event)
		if !s.Status.Terminal() {
			if terr := e.transition(StatusSecurityPaused, now, ReasonOverpaymentRisk, &out); terr != nil {
				return out, fmt.Errorf("%w (hold failed: %v)", err, terr)
			}
		}
	}
	e.state.LastObservedAt = now
	return out, err
}

// ConfirmRelease records a cumulative amount the collaborator paid out.
// Lower amounts than already released are ignored.
func (e *Engine) ConfirmRelease(cumulative decimal.Decimal, reference string) error {
	s := &e.state.Session
	if cumulative.IsNegative() {
		return fmt.Errorf("%w: %s", ErrInvalidRelease, cumulative)
	}
	if ceiling := e.calc.Ceiling(s.TotalAmount); cumulative.GreaterThan(ceiling) {
		return fmt.Errorf("%w: %s above ceiling %s", ErrReleaseExceedsCeiling, cumulative, ceiling)
	}
	if !cumulative.GreaterThan(s.ReleasedAmount) {
		return nil
	}
	s.ReleasedAmount = cumulative
	if reference != "" {
		s.LastTxReference = reference
	}
	return nil
}

// Snapshot describes the session at now without mutating it.
func (e *Engine) Snapshot(now time.Time) Snapshot {
	s := e.state.Session
	if now.Before(e.state.LastObservedAt) {
		now = e.state.LastObservedAt
	}
	snap := Snapshot{
		SessionID:           s.ID,
		PayerAddress:        s.PayerAddress,
		MentorAddress:       s.MentorAddress,
		Status:              s.Status,
		StatusReason:        s.StatusReason,
		IsPaused:            s.IsPaused(),
		OnHold:              s.Status == StatusSecurityPaused,
		RefundRequested:     s.RefundRequested,
		ReleasedAmount:      s.ReleasedAmount,
		TargetAmount:        s.ReleasedAmount,
		AvailableForRelease: decimal.Zero,
		Ceiling:             e.calc.Ceiling(s.TotalAmount),
		TotalAmount:         s.TotalAmount,
		PaymentMethod:       e.PaymentMethod(),
		PayerPresent:        e.state.Payer.IsPresent,
		MilestoneReached:    s.MilestoneReached,
		ScheduledMinutes:    s.ScheduledDurationMinutes,
		Final:               s.Status.Terminal(),
		Token:               s.Token,
		At:                  now,
	}
	end := e.effectiveNow(now)
	if !s.StartTime.IsZero() {
		snap.ElapsedMinutes = ElapsedMinutes(s.StartTime, end)
		snap.CompletionPercent = CompletionPercent(end.Sub(s.StartTime), s.ScheduledDurationMinutes)
	}
	present := e.state.Payer.PresentDuration(end)
	snap.PayerPresenceMinutes = float64(present.Milliseconds()) / 60000
	snap.PayerPresencePercent = CompletionPercent(present, s.ScheduledDurationMinutes)

	if progress, err := e.progressAt(now); err == nil {
		snap.ProgressPercentage = progress
	}
	if plan, err := e.ProposeRelease(now); err == nil {
		snap.TargetAmount = plan.Target
		snap.AvailableForRelease = plan.Proposed
		snap.Processing = plan.Proposed.IsPositive()
		snap.SettlementPending = snap.Final && snap.Processing
	}
	return snap
}

// apply advances to now, runs fn, then latches progress. State changes made
// before fn fails are kept.
func (e *Engine) apply(now time.Time, fn func(now time.Time, out *Outcome) error) (Outcome, error) {
	var out Outcome
	now = e.clamp(now)
	e.advance(now, &out)
	err := fn(now, &out)
	e.observe(now, &out)
	e.state.LastObservedAt = now
	return out, err
}

// clamp keeps the engine's notion of time monotonic.
func (e *Engine) clamp(now time.Time) time.Time {
	if now.Before(e.state.LastObservedAt) {
		return e.state.LastObservedAt
	}
	return now
}

func (e *Engine) effectiveNow(now time.Time) time.Time {
	if ended := e.state.Session.EndedAt; !ended.IsZero() && ended.Before(now) {
		return ended
	}
	return now
}

func (e *Engine) mutable() error {
	switch status := e.state.Session.Status; {
	case status.Terminal():
		return ErrTerminalSession
	case status == StatusSecurityPaused:
		return ErrSecurityHold
	default:
		return nil
	}
}

func (e *Engine) advance(now time.Time, out *Outcome) {
	e.advanceFrom(time.Time{}, now, out)
}

// advanceFrom fires due deadlines in order. None fires earlier than floor.
func (e *Engine) advanceFrom(floor, now time.Time, out *Outcome) {
	for i := 0; i < maxAdvanceSteps; i++ {
		if e.mutable() != nil {
			return
		}
		at, kind, ok := e.nextDeadline()
		if !ok || at.After(now) {
			return
		}
		if at.Before(floor) {
			at = floor
		}
		e.fire(kind, at, out)
	}
}

func (e *Engine) nextDeadline() (time.Time, deadlineKind, bool) {
	s := e.state.Session
	var (
		best     time.Time
		bestKind deadlineKind
		found    bool
	)
	consider := func(at time.Time, kind deadlineKind) {
		if !found || at.Before(best) || (at.Equal(best) && kind < bestKind) {
			best, bestKind, found = at, kind, true
		}
	}
	if s.PresenceTracking {
		if at, _, ok := e.state.Payer.GraceExpiry(e.policy.GracePeriod); ok {
			consider(at, deadlineGrace)
		}
	}
	switch s.Status {
	case StatusCreated:
		if !s.PayerJoined {
			consider(s.ScheduledStart.Add(e.policy.EntryTimeout), deadlineEntry)
		}
		consider(s.ScheduledStart.Add(s.ScheduledDuration()), deadlineStartExpired)
	case StatusActive, StatusPaused:
		consider(s.StartTime.Add(s.ScheduledDuration()), deadlineScheduledEnd)
		if !s.DurationWarned {
			consider(s.StartTime.Add(e.policy.MaxSessionDuration), deadlineMaxDuration)
		}
	}
	return best, bestKind, found
}

func (e *Engine) fire(kind deadlineKind, at time.Time, out *Outcome) {
	s := &e.state.Session
	switch kind {
	case deadlineGrace:
		_, reason, _ := e.state.Payer.GraceExpiry(e.policy.GracePeriod)
		e.observe(at, out)
		e.state.Payer.RecordLeave(at, reason)
		if s.Status == StatusActive {
			_ = e.transition(StatusPaused, at, string(reason), out)
		}
	case deadlineEntry:
		_ = e.cancel(at, ReasonEntryTimeout, RefundTimeout, out)
	case deadlineStartExpired:
		_ = e.cancel(at, ReasonStartExpired, RefundExpired, out)
	case deadlineScheduledEnd:
		_ = e.transition(StatusAutoCompleted, at, ReasonScheduledEnd, out)
	case deadlineMaxDuration:
		s.DurationWarned = true
		if event, ok := CheckDuration(s.ID, at.Sub(s.StartTime), e.policy.MaxSessionDuration, at); ok {
			out.Events = append(out.Events, event)
		}
	}
}

func (e *Engine) cancel(at time.Time, reason string, refund RefundReason, out *Outcome) error {
	if err := e.transition(StatusCancelled, at, reason, out); err != nil {
		return err
	}
	s := &e.state.Session
	if !s.RefundRequested {
		s.RefundRequested = true
		s.RefundReason = refund
		out.Refund = refund
	}
	return nil
}

func (e *Engine) transition(to Status, at time.Time, reason string, out *Outcome) error {
	s := &e.state.Session
	from := s.Status
	if err := e.mutable(); err != nil {
		return err
	}
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, from, to)
	}
	e.observe(at, out)
	if from == StatusActive {
		e.state.Payer.StopAccrual(at)
	}
	s.Status = to
	s.StatusReason = reason
	switch to {
	case StatusActive:
		if s.StartTime.IsZero() {
			s.StartTime = at
		}
		s.PausedAt = time.Time{}
		e.state.Payer.StartAccrual(at)
	case StatusPaused:
		s.PausedAt = at
	case StatusSecurityPaused:
		s.HeldFrom = from
	}
	if to.Terminal() {
		s.EndedAt = at
		out.Final = true
	}
	if to != StatusCancelled && to != StatusSecurityPaused {
		out.ReleaseDue = true
	}
	e.record(Transition{From: from, To: to, At: at, Reason: reason}, out)
	return nil
}

func (e *Engine) record(tr Transition, out *Outcome) {
	e.state.History = append(e.state.History, tr)
	out.Transitions = append(out.Transitions, tr)
}

// observe latches progress so it never regresses and flags the delivered
// milestone the first time it is reached.
func (e *Engine) observe(at time.Time, out *Outcome) {
	s := &e.state.Session
	progress, err := e.progressAt(at)
	if err != nil {
		return
	}
	if progress > s.LastProgress {
		s.LastProgress = progress
	}
	if progress == 100 && !s.MilestoneReached && !s.StartTime.IsZero() {
		s.MilestoneReached = true
		out.ReleaseDue = true
	}
}

func (e *Engine) progressAt(now time.Time) (int, error) {
	s := e.state.Session
	switch {
	case s.StartTime.IsZero():
		return 0, nil
	case s.Status == StatusSecurityPaused || s.Status == StatusCancelled:
		return s.LastProgress, nil
	case s.MilestoneReached:
		return 100, nil
	}
	end := e.effectiveNow(now)
	var effective time.Duration
	if e.PaymentMethod() == MethodPayerPresence {
		effective = e.state.Payer.PresentDuration(end)
	} else {
		effective = end.Sub(s.StartTime)
		if effective < 0 {
			effective = 0
		}
	}
	progress, err := e.calc.Progress(effective, s.ScheduledDuration())
	if err != nil {
		return 0, err
	}
	if progress < s.LastProgress {
		progress = s.LastProgress
	}
	return progress, nil
}

func payerAbsence(reason string) bool {
	switch reason {
	case ReasonPayerLeft, string(LeaveWebRTCDisconnection), string(LeaveGracePeriodExpired), string(LeaveHeartbeatTimeout):
		return true
	default:
		return false
	}
}
