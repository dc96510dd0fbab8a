package remote

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	sessioninadapter "mentorpay/internal/modules/session/adapter/in"
	sessiondto "mentorpay/internal/modules/session/dto"
	sessionin "mentorpay/internal/modules/session/port/in"
	apperrors "mentorpay/internal/platform/errors"
	"mentorpay/internal/platform/logging"
)

type fakeUsecase struct {
	sessionin.Usecase
	updates chan sessiondto.SnapshotOutput
}

func (f *fakeUsecase) Snapshot(_ context.Context, sessionID string) (sessiondto.SnapshotOutput, error) {
	if sessionID != "sess-1" {
		return sessiondto.SnapshotOutput{}, apperrors.ErrSessionNotFound
	}
	return snap("active", false), nil
}

func (f *fakeUsecase) Subscribe(context.Context) (<-chan sessiondto.SnapshotOutput, func()) {
	return f.updates, func() {}
}

func (f *fakeUsecase) Pause(_ context.Context, sessionID string) (sessiondto.SnapshotOutput, error) {
	return snap("paused", false), nil
}

func (f *fakeUsecase) Cancel(context.Context, string) (sessiondto.SnapshotOutput, error) {
	return sessiondto.SnapshotOutput{}, sessionin.ErrTerminalSession
}

func snap(status string, final bool) sessiondto.SnapshotOutput {
	return sessiondto.SnapshotOutput{SessionID: "sess-1", Status: status, Final: final, At: time.Now().UTC()}
}

func newServer(t *testing.T, uc *fakeUsecase) *Client {
	t.Helper()
	srv := httptest.NewServer(sessioninadapter.NewHTTPHandler(uc, logging.Discard()).Router())
	t.Cleanup(srv.Close)
	client, err := NewClient(srv.URL)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestWatchStreamsUntilFinal(t *testing.T) {
	t.Parallel()
	updates := make(chan sessiondto.SnapshotOutput, 4)
	updates <- sessiondto.SnapshotOutput{SessionID: "other", Status: "active"}
	updates <- snap("paused", false)
	updates <- snap("completed", true)
	client := newServer(t, &fakeUsecase{updates: updates})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	stream, err := client.Watch(ctx, "sess-1")
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	defer stream.Close()

	var statuses []string
	for {
		s, err := stream.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		statuses = append(statuses, s.Status)
	}
	if strings.Join(statuses, ",") != "active,paused,completed" {
		t.Fatalf("unexpected statuses %v", statuses)
	}
}

func TestWatchUnknownSessionReportsAPIError(t *testing.T) {
	t.Parallel()
	client := newServer(t, &fakeUsecase{updates: make(chan sessiondto.SnapshotOutput)})
	_, err := client.Watch(context.Background(), "missing")
	if err == nil || !strings.HasPrefix(err.Error(), "NOT_FOUND") {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestControl(t *testing.T) {
	t.Parallel()
	client := newServer(t, &fakeUsecase{updates: make(chan sessiondto.SnapshotOutput)})

	out, err := client.Control(context.Background(), "sess-1", "pause")
	if err != nil {
		t.Fatalf("pause: %v", err)
	}
	if out.Status != "paused" {
		t.Fatalf("unexpected status %q", out.Status)
	}

	_, err = client.Control(context.Background(), "sess-1", "cancel")
	if err == nil || !strings.HasPrefix(err.Error(), "CONFLICT") {
		t.Fatalf("expected CONFLICT, got %v", err)
	}
}

func TestNewClientAddsScheme(t *testing.T) {
	t.Parallel()
	client, err := NewClient("127.0.0.1:8787")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if client.base.String() != "http://127.0.0.1:8787" {
		t.Fatalf("unexpected base %s", client.base)
	}
	if _, err := NewClient("  "); err == nil {
		t.Fatalf("expected error for empty address")
	}
}
