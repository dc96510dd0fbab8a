package app

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	sessiondto "mentorpay/internal/modules/session/dto"
	"mentorpay/internal/ui/components"
)

type queueSource struct {
	snaps []sessiondto.SnapshotOutput
}

func (q *queueSource) Next() (sessiondto.SnapshotOutput, error) {
	if len(q.snaps) == 0 {
		return sessiondto.SnapshotOutput{}, io.EOF
	}
	next := q.snaps[0]
	q.snaps = q.snaps[1:]
	return next, nil
}

type recordingController struct {
	calls []string
	err   error
}

func (r *recordingController) Control(_ context.Context, sessionID, action string) (sessiondto.SnapshotOutput, error) {
	r.calls = append(r.calls, sessionID+":"+action)
	if r.err != nil {
		return sessiondto.SnapshotOutput{}, r.err
	}
	return snapshot("paused", 21), nil
}

func snapshot(status string, progress int) sessiondto.SnapshotOutput {
	return sessiondto.SnapshotOutput{
		SessionID:          "sess-1",
		Status:             status,
		ProgressPercentage: progress,
		ReleasedAmount:     "18",
		TotalAmount:        "100",
		Ceiling:            "90",
		Token:              "USDC@polygon",
		PaymentMethod:      "time_based",
		ScheduledMinutes:   60,
		At:                 time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestSnapshotsRenderAndChainWaits(t *testing.T) {
	t.Parallel()
	src := &queueSource{snaps: []sessiondto.SnapshotOutput{snapshot("active", 20)}}
	m := NewModel("sess-1", src, nil)

	msg := m.waitCmd()()
	next, cmd := m.Update(msg)
	model := next.(Model)
	if cmd == nil {
		t.Fatalf("expected follow-up wait command")
	}
	view := model.View()
	for _, want := range []string{"ACTIVE", "18 / 100 USDC@polygon", "time_based", "sess-1"} {
		if !strings.Contains(view, want) {
			t.Fatalf("view missing %q:\n%s", want, view)
		}
	}

	next, cmd = model.Update(cmd())
	model = next.(Model)
	if cmd != nil || !model.closed || model.status != "stream closed" {
		t.Fatalf("expected closed stream, got status=%q closed=%v", model.status, model.closed)
	}
}

func TestFinalSnapshotStopsWaiting(t *testing.T) {
	t.Parallel()
	m := NewModel("sess-1", &queueSource{}, nil)
	final := snapshot("completed", 100)
	final.Final = true
	next, cmd := m.Update(snapshotMsg{snap: final})
	model := next.(Model)
	if cmd != nil {
		t.Fatalf("final snapshot must not schedule another wait")
	}
	if model.status != "session finished: completed" {
		t.Fatalf("unexpected status %q", model.status)
	}
}

func TestTimelineRecordsStatusChangesOnly(t *testing.T) {
	t.Parallel()
	m := NewModel("sess-1", &queueSource{}, nil)
	for _, snap := range []sessiondto.SnapshotOutput{
		snapshot("created", 0),
		snapshot("active", 20),
		snapshot("active", 25),
		snapshot("paused", 25),
	} {
		next, _ := m.Update(snapshotMsg{snap: snap})
		m = next.(Model)
	}
	if len(m.timeline) != 3 {
		t.Fatalf("expected 3 timeline entries, got %v", m.timeline)
	}
	if !strings.HasSuffix(m.timeline[2], "paused") {
		t.Fatalf("unexpected last entry %q", m.timeline[2])
	}
}

func TestPaletteActionCallsController(t *testing.T) {
	t.Parallel()
	ctrl := &recordingController{}
	m := NewModel("sess-1", &queueSource{}, ctrl)

	next, cmd := m.Update(components.PaletteSubmitMsg{Input: " Pause "})
	model := next.(Model)
	if cmd == nil || model.pending != "pause" {
		t.Fatalf("expected pending pause, got %q", model.pending)
	}
	next, _ = model.Update(cmd())
	model = next.(Model)
	if len(ctrl.calls) != 1 || ctrl.calls[0] != "sess-1:pause" {
		t.Fatalf("unexpected controller calls %v", ctrl.calls)
	}
	if model.status != "pause ok" || model.snap.Status != "paused" {
		t.Fatalf("unexpected state status=%q snap=%q", model.status, model.snap.Status)
	}
}

func TestActionRejections(t *testing.T) {
	t.Parallel()
	ctrl := &recordingController{err: errors.New("CONFLICT: illegal session transition")}
	m := NewModel("sess-1", &queueSource{}, ctrl)

	next, cmd := m.Update(components.PaletteSubmitMsg{Input: "explode"})
	model := next.(Model)
	if cmd != nil || !strings.Contains(model.status, "unknown action") {
		t.Fatalf("unknown action must be rejected locally, status=%q", model.status)
	}

	next, cmd = model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	model = next.(Model)
	next, _ = model.Update(cmd())
	model = next.(Model)
	if !strings.HasPrefix(model.status, "resume failed") {
		t.Fatalf("unexpected status %q", model.status)
	}

	bare := NewModel("sess-1", &queueSource{}, nil)
	next, cmd = bare.Update(components.PaletteSubmitMsg{Input: "pause"})
	if cmd != nil || next.(Model).status != "actions unavailable" {
		t.Fatalf("expected actions to be unavailable without a controller")
	}
}
