package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	sessiondto "mentorpay/internal/modules/session/dto"
)

// Client talks to a running `mentorpay serve` over its HTTP API.
type Client struct {
	base *url.URL
	http *http.Client
}

func NewClient(baseURL string) (*Client, error) {
	raw := strings.TrimSpace(baseURL)
	if raw == "" {
		return nil, fmt.Errorf("server address is required")
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	base, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse server address %q: %w", baseURL, err)
	}
	return &Client{base: base, http: &http.Client{Timeout: 30 * time.Second}}, nil
}

// Control posts one of the single-argument session actions (pause, resume,
// complete, cancel, release, ...).
func (c *Client) Control(ctx context.Context, sessionID, action string) (sessiondto.SnapshotOutput, error) {
	endpoint := c.base.JoinPath("api", "v1", "sessions", sessionID, action)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), nil)
	if err != nil {
		return sessiondto.SnapshotOutput{}, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return sessiondto.SnapshotOutput{}, fmt.Errorf("%s %s: %w", action, sessionID, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return sessiondto.SnapshotOutput{}, decodeError(resp)
	}
	var snap sessiondto.SnapshotOutput
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		return sessiondto.SnapshotOutput{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return snap, nil
}

// Watch opens the snapshot websocket of one session.
func (c *Client) Watch(ctx context.Context, sessionID string) (*Stream, error) {
	endpoint := *c.base.JoinPath("api", "v1", "sessions", sessionID, "ws")
	switch endpoint.Scheme {
	case "https":
		endpoint.Scheme = "wss"
	default:
		endpoint.Scheme = "ws"
	}
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, endpoint.String(), nil)
	if err != nil {
		if resp != nil && resp.StatusCode >= http.StatusBadRequest {
			defer resp.Body.Close()
			return nil, decodeError(resp)
		}
		return nil, fmt.Errorf("dial %s: %w", endpoint.String(), err)
	}
	return &Stream{conn: conn}, nil
}

type Stream struct {
	conn *websocket.Conn
}

// Next blocks until the next snapshot arrives. A normal close reads as
// io.EOF.
func (s *Stream) Next() (sessiondto.SnapshotOutput, error) {
	var snap sessiondto.SnapshotOutput
	if err := s.conn.ReadJSON(&snap); err != nil {
		if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			return sessiondto.SnapshotOutput{}, io.EOF
		}
		return sessiondto.SnapshotOutput{}, err
	}
	return snap, nil
}

func (s *Stream) Close() error {
	return s.conn.Close()
}

type apiError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func decodeError(resp *http.Response) error {
	var body apiError
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || body.Error.Code == "" {
		return fmt.Errorf("server returned %s", resp.Status)
	}
	return fmt.Errorf("%s: %s", body.Error.Code, body.Error.Message)
}
