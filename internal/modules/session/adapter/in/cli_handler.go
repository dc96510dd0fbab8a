package in

import (
	"context"
	"fmt"

	sessiondto "mentorpay/internal/modules/session/dto"
	sessionin "mentorpay/internal/modules/session/port/in"
)

type CLIHandler struct {
	usecase sessionin.Usecase
}

func NewCLIHandler(usecase sessionin.Usecase) CLIHandler {
	return CLIHandler{usecase: usecase}
}

func (h CLIHandler) Create(ctx context.Context, input sessiondto.CreateInput) (sessiondto.SnapshotOutput, error) {
	return h.usecase.Create(ctx, input)
}

func (h CLIHandler) Join(ctx context.Context, sessionID, address string) (sessiondto.SnapshotOutput, error) {
	return h.usecase.Join(ctx, sessiondto.ParticipantInput{SessionID: sessionID, Address: address})
}

func (h CLIHandler) Leave(ctx context.Context, sessionID, address, reason string) (sessiondto.SnapshotOutput, error) {
	return h.usecase.Leave(ctx, sessiondto.ParticipantInput{SessionID: sessionID, Address: address, Reason: reason})
}

func (h CLIHandler) Disconnect(ctx context.Context, sessionID, address string) (sessiondto.SnapshotOutput, error) {
	return h.usecase.Disconnect(ctx, sessiondto.ParticipantInput{SessionID: sessionID, Address: address})
}

func (h CLIHandler) Heartbeat(ctx context.Context, sessionID, address string) (sessiondto.HeartbeatOutput, error) {
	return h.usecase.Heartbeat(ctx, sessiondto.ParticipantInput{SessionID: sessionID, Address: address})
}

func (h CLIHandler) ClearHold(ctx context.Context, sessionID, operator string) (sessiondto.SnapshotOutput, error) {
	return h.usecase.ClearHold(ctx, sessiondto.ClearHoldInput{SessionID: sessionID, Operator: operator})
}

// Control runs one of the single-argument session commands by name.
func (h CLIHandler) Control(ctx context.Context, action, sessionID string) (sessiondto.SnapshotOutput, error) {
	op, ok := controls(h.usecase)[action]
	if !ok {
		return sessiondto.SnapshotOutput{}, fmt.Errorf("unknown session action %q", action)
	}
	return op(ctx, sessionID)
}

// Status ticks the session first so due deadlines show up.
func (h CLIHandler) Status(ctx context.Context, sessionID string) (sessiondto.SnapshotOutput, error) {
	snap, err := h.usecase.Tick(ctx, sessionID)
	if err == nil {
		return snap, nil
	}
	return h.usecase.Snapshot(ctx, sessionID)
}

func (h CLIHandler) ListActive(ctx context.Context) ([]sessiondto.SnapshotOutput, error) {
	return h.usecase.ListActive(ctx)
}

func (h CLIHandler) TickAll(ctx context.Context) ([]sessiondto.SnapshotOutput, error) {
	return h.usecase.TickAll(ctx)
}

func (h CLIHandler) ListConfirmations(ctx context.Context) ([]sessiondto.ConfirmationOutput, error) {
	return h.usecase.ListConfirmations(ctx)
}

func (h CLIHandler) GetConfirmation(ctx context.Context, sessionID string) (sessiondto.ConfirmationOutput, error) {
	return h.usecase.GetConfirmation(ctx, sessionID)
}

func (h CLIHandler) Subscribe(ctx context.Context) (<-chan sessiondto.SnapshotOutput, func()) {
	return h.usecase.Subscribe(ctx)
}

type controlFunc func(ctx context.Context, sessionID string) (sessiondto.SnapshotOutput, error)

// controls maps action names shared by the CLI and HTTP routes to usecase
// calls.
func controls(uc sessionin.Usecase) map[string]controlFunc {
	return map[string]controlFunc{
		"start":    uc.Start,
		"pause":    uc.Pause,
		"resume":   uc.Resume,
		"complete": uc.Complete,
		"cancel":   uc.Cancel,
		"fee":      uc.CollectFee,
		"release":  uc.Release,
		"tick":     uc.Tick,
	}
}
