package in

import (
	"context"

	"mentorpay/internal/modules/session/dto"
)

type Usecase interface {
	Create(ctx context.Context, input dto.CreateInput) (dto.SnapshotOutput, error)
	Join(ctx context.Context, input dto.ParticipantInput) (dto.SnapshotOutput, error)
	Leave(ctx context.Context, input dto.ParticipantInput) (dto.SnapshotOutput, error)
	Disconnect(ctx context.Context, input dto.ParticipantInput) (dto.SnapshotOutput, error)
	Heartbeat(ctx context.Context, input dto.ParticipantInput) (dto.HeartbeatOutput, error)
	Start(ctx context.Context, sessionID string) (dto.SnapshotOutput, error)
	Pause(ctx context.Context, sessionID string) (dto.SnapshotOutput, error)
	Resume(ctx context.Context, sessionID string) (dto.SnapshotOutput, error)
	Complete(ctx context.Context, sessionID string) (dto.SnapshotOutput, error)
	Cancel(ctx context.Context, sessionID string) (dto.SnapshotOutput, error)
	CollectFee(ctx context.Context, sessionID string) (dto.SnapshotOutput, error)
	Release(ctx context.Context, sessionID string) (dto.SnapshotOutput, error)
	ClearHold(ctx context.Context, input dto.ClearHoldInput) (dto.SnapshotOutput, error)
	Tick(ctx context.Context, sessionID string) (dto.SnapshotOutput, error)
	TickAll(ctx context.Context) ([]dto.SnapshotOutput, error)
	Snapshot(ctx context.Context, sessionID string) (dto.SnapshotOutput, error)
	ListActive(ctx context.Context) ([]dto.SnapshotOutput, error)
	ListConfirmations(ctx context.Context) ([]dto.ConfirmationOutput, error)
	GetConfirmation(ctx context.Context, sessionID string) (dto.ConfirmationOutput, error)
	Subscribe(ctx context.Context) (<-chan dto.SnapshotOutput, func())
}
