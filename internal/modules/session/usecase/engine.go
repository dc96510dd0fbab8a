package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"mentorpay/internal/modules/session/domain"
	sessiondto "mentorpay/internal/modules/session/dto"
	sessionin "mentorpay/internal/modules/session/port/in"
	sessionout "mentorpay/internal/modules/session/port/out"
	"mentorpay/internal/modules/session/service"
	apperrors "mentorpay/internal/platform/errors"
	"mentorpay/internal/platform/logging"
)

type Stores struct {
	States        sessionout.StateStore
	Confirmations sessionout.ConfirmationRepository
	Reports       sessionout.ReportStore
	Tokens        sessionout.TokenResolver
	Feed          sessionout.SnapshotFeed
}

// Interactor serializes every operation on a session behind that session's
// lock: load, apply, settle, then persist or finalize.
type Interactor struct {
	svc    *service.EngineService
	stores Stores
	logger *slog.Logger
	locks  sessionLocks
}

func NewInteractor(svc *service.EngineService, stores Stores, logger *slog.Logger) sessionin.Usecase {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Interactor{svc: svc, stores: stores, logger: logger, locks: sessionLocks{locks: map[string]*lockEntry{}}}
}

func (i *Interactor) Create(ctx context.Context, input sessiondto.CreateInput) (sessiondto.SnapshotOutput, error) {
	total, err := decimal.NewFromString(strings.TrimSpace(input.TotalAmount))
	if err != nil {
		return sessiondto.SnapshotOutput{}, fmt.Errorf("%w: total amount %q", apperrors.ErrInvalidInput, input.TotalAmount)
	}
	if i.stores.Tokens == nil {
		return sessiondto.SnapshotOutput{}, fmt.Errorf("token resolver is not configured")
	}
	token, err := i.stores.Tokens.Resolve(ctx, input.Network, input.TokenSymbol)
	if err != nil {
		return sessiondto.SnapshotOutput{}, err
	}
	start := input.ScheduledStart
	if start.IsZero() {
		start = i.svc.Now()
	}
	engine, err := i.svc.Create(domain.Session{
		PayerAddress:             strings.TrimSpace(input.PayerAddress),
		MentorAddress:            strings.TrimSpace(input.MentorAddress),
		Token:                    token,
		TotalAmount:              total,
		ScheduledStart:           start.UTC(),
		ScheduledDurationMinutes: input.ScheduledDurationMinutes,
		PresenceTracking:         input.PresenceTracking,
		FeeCollected:             input.FeeCollected,
	})
	if err != nil {
		return sessiondto.SnapshotOutput{}, fmt.Errorf("%w: %v", apperrors.ErrInvalidInput, err)
	}
	unlock := i.locks.lock(engine.Session().ID)
	defer unlock()
	return i.persist(ctx, engine, false)
}

func (i *Interactor) Join(ctx context.Context, input sessiondto.ParticipantInput) (sessiondto.SnapshotOutput, error) {
	return i.mutate(ctx, input.SessionID, "join", func(e *domain.Engine, now time.Time) (domain.Outcome, error) {
		return e.Join(now, input.Address)
	})
}

func (i *Interactor) Leave(ctx context.Context, input sessiondto.ParticipantInput) (sessiondto.SnapshotOutput, error) {
	return i.mutate(ctx, input.SessionID, "leave", func(e *domain.Engine, now time.Time) (domain.Outcome, error) {
		return e.Leave(now, input.Address, domain.LeaveReason(input.Reason))
	})
}

func (i *Interactor) Disconnect(ctx context.Context, input sessiondto.ParticipantInput) (sessiondto.SnapshotOutput, error) {
	return i.mutate(ctx, input.SessionID, "disconnect", func(e *domain.Engine, now time.Time) (domain.Outcome, error) {
		return e.Disconnect(now, input.Address)
	})
}

func (i *Interactor) Heartbeat(ctx context.Context, input sessiondto.ParticipantInput) (sessiondto.HeartbeatOutput, error) {
	var check domain.HeartbeatCheck
	snap, err := i.mutate(ctx, input.SessionID, "heartbeat", func(e *domain.Engine, now time.Time) (domain.Outcome, error) {
		var out domain.Outcome
		var err error
		check, out, err = e.Heartbeat(now, input.Address)
		return out, err
	})
	return sessiondto.HeartbeatOutput{
		Snapshot:               snap,
		IsValid:                check.IsValid,
		CooldownRemaining:      check.CooldownRemaining,
		TimeSinceLastHeartbeat: check.TimeSinceLastHeartbeat,
		Stale:                  check.Stale,
	}, err
}

func (i *Interactor) Start(ctx context.Context, sessionID string) (sessiondto.SnapshotOutput, error) {
	return i.mutate(ctx, sessionID, "start", (*domain.Engine).Start)
}

func (i *Interactor) Pause(ctx context.Context, sessionID string) (sessiondto.SnapshotOutput, error) {
	return i.mutate(ctx, sessionID, "pause", (*domain.Engine).Pause)
}

func (i *Interactor) Resume(ctx context.Context, sessionID string) (sessiondto.SnapshotOutput, error) {
	return i.mutate(ctx, sessionID, "resume", (*domain.Engine).Resume)
}

func (i *Interactor) Complete(ctx context.Context, sessionID string) (sessiondto.SnapshotOutput, error) {
	return i.mutate(ctx, sessionID, "complete", (*domain.Engine).Complete)
}

func (i *Interactor) Cancel(ctx context.Context, sessionID string) (sessiondto.SnapshotOutput, error) {
	return i.mutate(ctx, sessionID, "cancel", (*domain.Engine).Cancel)
}

func (i *Interactor) CollectFee(ctx context.Context, sessionID string) (sessiondto.SnapshotOutput, error) {
	return i.mutate(ctx, sessionID, "collect_fee", (*domain.Engine).CollectFee)
}

func (i *Interactor) ClearHold(ctx context.Context, input sessiondto.ClearHoldInput) (sessiondto.SnapshotOutput, error) {
	return i.mutate(ctx, input.SessionID, "clear_hold", func(e *domain.Engine, now time.Time) (domain.Outcome, error) {
		out, err := e.ClearHold(now, input.Operator)
		if err == nil {
			i.logger.Warn("security hold cleared", "session_id", input.SessionID, "operator", input.Operator)
		}
		return out, err
	})
}

func (i *Interactor) Tick(ctx context.Context, sessionID string) (sessiondto.SnapshotOutput, error) {
	return i.mutate(ctx, sessionID, "tick", func(e *domain.Engine, now time.Time) (domain.Outcome, error) {
		return e.Advance(now), nil
	})
}

// Release flushes whatever is available now and reports collaborator
// failures to the caller instead of only logging them.
func (i *Interactor) Release(ctx context.Context, sessionID string) (sessiondto.SnapshotOutput, error) {
	return i.execute(ctx, sessionID, "release", func(e *domain.Engine, now time.Time) (domain.Outcome, error) {
		out := e.Advance(now)
		out.ReleaseDue = true
		return out, nil
	}, true)
}

func (i *Interactor) TickAll(ctx context.Context) ([]sessiondto.SnapshotOutput, error) {
	states, err := i.stores.States.List(ctx)
	if err != nil {
		return nil, err
	}
	outputs := make([]sessiondto.SnapshotOutput, 0, len(states))
	var errs []error
	for _, state := range states {
		if err := ctx.Err(); err != nil {
			return outputs, err
		}
		snap, err := i.Tick(ctx, state.Session.ID)
		if err != nil {
			errs = append(errs, fmt.Errorf("tick %s: %w", state.Session.ID, err))
			continue
		}
		outputs = append(outputs, snap)
	}
	return outputs, errors.Join(errs...)
}

// Snapshot is read-only: it does not apply due deadlines.
func (i *Interactor) Snapshot(ctx context.Context, sessionID string) (sessiondto.SnapshotOutput, error) {
	state, err := i.stores.States.Load(ctx, sessionID)
	if errors.Is(err, apperrors.ErrSessionNotFound) {
		confirmation, cerr := i.stores.Confirmations.Get(ctx, sessionID)
		if cerr != nil {
			return sessiondto.SnapshotOutput{}, err
		}
		return snapshotFromConfirmation(confirmation), nil
	}
	if err != nil {
		return sessiondto.SnapshotOutput{}, err
	}
	engine, err := i.svc.Restore(state)
	if err != nil {
		return sessiondto.SnapshotOutput{}, err
	}
	return toSnapshotOutput(engine.Snapshot(i.svc.Now())), nil
}

func (i *Interactor) ListActive(ctx context.Context) ([]sessiondto.SnapshotOutput, error) {
	states, err := i.stores.States.List(ctx)
	if err != nil {
		return nil, err
	}
	now := i.svc.Now()
	outputs := make([]sessiondto.SnapshotOutput, 0, len(states))
	for _, state := range states {
		engine, err := i.svc.Restore(state)
		if err != nil {
			i.logger.Error("skip unreadable session state", "session_id", state.Session.ID, "error", err)
			continue
		}
		outputs = append(outputs, toSnapshotOutput(engine.Snapshot(now)))
	}
	sort.Slice(outputs, func(a, b int) bool { return outputs[a].SessionID < outputs[b].SessionID })
	return outputs, nil
}

func (i *Interactor) ListConfirmations(ctx context.Context) ([]sessiondto.ConfirmationOutput, error) {
	items, err := i.stores.Confirmations.List(ctx)
	if err != nil {
		return nil, err
	}
	outputs := make([]sessiondto.ConfirmationOutput, 0, len(items))
	for _, item := range items {
		outputs = append(outputs, toConfirmationOutput(item))
	}
	return outputs, nil
}

func (i *Interactor) GetConfirmation(ctx context.Context, sessionID string) (sessiondto.ConfirmationOutput, error) {
	item, err := i.stores.Confirmations.Get(ctx, sessionID)
	if err != nil {
		return sessiondto.ConfirmationOutput{}, err
	}
	return toConfirmationOutput(item), nil
}

func (i *Interactor) Subscribe(ctx context.Context) (<-chan sessiondto.SnapshotOutput, func()) {
	src, cancel := i.stores.Feed.Subscribe()
	out := make(chan sessiondto.SnapshotOutput, cap(src))
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case snap, ok := <-src:
				if !ok {
					return
				}
				select {
				case out <- toSnapshotOutput(snap):
				default:
				}
			}
		}
	}()
	return out, cancel
}

type operation func(e *domain.Engine, now time.Time) (domain.Outcome, error)

func (i *Interactor) mutate(ctx context.Context, sessionID, name string, op operation) (sessiondto.SnapshotOutput, error) {
	return i.execute(ctx, sessionID, name, op, false)
}

// execute runs op under the session lock, settles its outcome and persists
// the result. Release failures reach the caller when strict is set or when a
// finished session could not be paid out.
func (i *Interactor) execute(ctx context.Context, sessionID, name string, op operation, strict bool) (sessiondto.SnapshotOutput, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return sessiondto.SnapshotOutput{}, fmt.Errorf("%w: session id is required", apperrors.ErrInvalidInput)
	}
	unlock := i.locks.lock(sessionID)
	defer unlock()

	state, err := i.stores.States.Load(ctx, sessionID)
	if errors.Is(err, apperrors.ErrSessionNotFound) {
		return i.rejectFinished(ctx, sessionID, name, err)
	}
	if err != nil {
		return sessiondto.SnapshotOutput{}, err
	}
	engine, err := i.svc.Restore(state)
	if err != nil {
		return sessiondto.SnapshotOutput{}, err
	}

	out, opErr := op(engine, i.svc.Now())
	if errors.Is(opErr, domain.ErrTerminalSession) {
		i.logger.Warn("rejected operation on terminal session", "session_id", sessionID, "operation", name, "status", string(engine.Session().Status))
	}
	_, releaseErr := i.svc.Settle(ctx, engine, out)
	pending := releaseErr != nil && settlementPending(engine, releaseErr, i.svc.Now())
	snap, err := i.persist(ctx, engine, pending)
	if err != nil {
		return snap, err
	}
	switch {
	case opErr != nil:
		return snap, opErr
	case pending:
		return snap, fmt.Errorf("%w: %s %s unpaid: %w", domain.ErrSettlementPending, snap.AvailableForRelease, snap.Token, releaseErr)
	case strict:
		return snap, releaseErr
	}
	return snap, nil
}

// settlementPending reports whether a finished session still owes a release
// the collaborator failed to pay. A guard veto is final and is not retried.
func settlementPending(engine *domain.Engine, releaseErr error, now time.Time) bool {
	if !engine.Session().Status.Terminal() || errors.Is(releaseErr, domain.ErrOverpaymentRisk) {
		return false
	}
	return engine.Snapshot(now).SettlementPending
}

func (i *Interactor) rejectFinished(ctx context.Context, sessionID, name string, notFound error) (sessiondto.SnapshotOutput, error) {
	confirmation, err := i.stores.Confirmations.Get(ctx, sessionID)
	if err != nil {
		return sessiondto.SnapshotOutput{}, notFound
	}
	i.logger.Warn("rejected operation on terminal session", "session_id", sessionID, "operation", name, "status", string(confirmation.Status))
	return snapshotFromConfirmation(confirmation), domain.ErrTerminalSession
}

// persist saves live state. A finished session is finalized unless its final
// release is still pending, in which case it stays live for the next tick.
func (i *Interactor) persist(ctx context.Context, engine *domain.Engine, pending bool) (sessiondto.SnapshotOutput, error) {
	now := i.svc.Now()
	if engine.Session().Status.Terminal() && !pending {
		return i.finalize(ctx, engine, now)
	}
	if err := i.stores.States.Save(ctx, engine.State()); err != nil {
		return sessiondto.SnapshotOutput{}, err
	}
	snap := engine.Snapshot(now)
	if pending {
		i.logger.Warn("final release pending",
			"session_id", snap.SessionID,
			"status", string(snap.Status),
			"released", snap.ReleasedAmount.String(),
			"available", snap.AvailableForRelease.String(),
		)
	}
	i.publish(snap)
	return toSnapshotOutput(snap), nil
}

// finalize writes the confirmation record and report, then drops live state.
// On failure the state is kept so a later tick finalizes again.
func (i *Interactor) finalize(ctx context.Context, engine *domain.Engine, now time.Time) (sessiondto.SnapshotOutput, error) {
	state := engine.State()
	if err := i.stores.States.Save(ctx, state); err != nil {
		return sessiondto.SnapshotOutput{}, err
	}
	confirmation := engine.Confirmation(now)
	if i.stores.Reports != nil {
		path, err := i.stores.Reports.Save(ctx, confirmation, state.History)
		if err != nil {
			return sessiondto.SnapshotOutput{}, fmt.Errorf("write session report: %w", err)
		}
		confirmation.ReportPath = path
	}
	if err := i.stores.Confirmations.Save(ctx, confirmation); err != nil {
		return sessiondto.SnapshotOutput{}, err
	}
	if err := i.stores.States.Delete(ctx, state.Session.ID); err != nil {
		return sessiondto.SnapshotOutput{}, err
	}
	i.logger.Info("session finalized",
		"session_id", confirmation.SessionID,
		"status", string(confirmation.Status),
		"released", confirmation.ReleasedAmount.String(),
		"method", string(confirmation.PaymentMethod),
		"report", confirmation.ReportPath,
	)
	snap := engine.Snapshot(now)
	snap.SettlementPending = false
	i.publish(snap)
	return toSnapshotOutput(snap), nil
}

func (i *Interactor) publish(snap domain.Snapshot) {
	if i.stores.Feed != nil {
		i.stores.Feed.Publish(snap)
	}
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

type sessionLocks struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

func (l *sessionLocks) lock(sessionID string) func() {
	l.mu.Lock()
	entry, ok := l.locks[sessionID]
	if !ok {
		entry = &lockEntry{}
		l.locks[sessionID] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()
		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, sessionID)
		}
		l.mu.Unlock()
	}
}
