package in

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	sessiondto "mentorpay/internal/modules/session/dto"
	sessionin "mentorpay/internal/modules/session/port/in"
	apperrors "mentorpay/internal/platform/errors"
	"mentorpay/internal/platform/logging"
)

const (
	wsWriteTimeout = 5 * time.Second
	wsPingInterval = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type HTTPHandler struct {
	usecase sessionin.Usecase
	logger  *slog.Logger
}

func NewHTTPHandler(usecase sessionin.Usecase, logger *slog.Logger) *HTTPHandler {
	if logger == nil {
		logger = logging.Discard()
	}
	return &HTTPHandler{usecase: usecase, logger: logger.With("component", "http")}
}

// Router serves the session API under /api/v1 plus /health.
func (h *HTTPHandler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(h.logRequests)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", h.create)
			r.Get("/", h.list)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.snapshot)
				r.Get("/ws", h.stream)
				r.Post("/join", h.participant(h.usecase.Join))
				r.Post("/leave", h.participant(h.usecase.Leave))
				r.Post("/disconnect", h.participant(h.usecase.Disconnect))
				r.Post("/heartbeat", h.heartbeat)
				r.Post("/clear-hold", h.clearHold)
				for action, op := range controls(h.usecase) {
					r.Post("/"+action, h.control(op))
				}
			})
		})
		r.Get("/confirmations", h.listConfirmations)
		r.Get("/confirmations/{id}", h.getConfirmation)
	})
	return r
}

type createRequest struct {
	PayerAddress             string    `json:"payer_address"`
	MentorAddress            string    `json:"mentor_address"`
	Network                  string    `json:"network"`
	Token                    string    `json:"token"`
	TotalAmount              string    `json:"total_amount"`
	ScheduledStart           time.Time `json:"scheduled_start"`
	ScheduledDurationMinutes int       `json:"scheduled_duration_minutes"`
	PresenceTracking         bool      `json:"presence_tracking"`
	FeeCollected             bool      `json:"fee_collected"`
}

type participantRequest struct {
	Address string `json:"address"`
	Reason  string `json:"reason"`
}

type clearHoldRequest struct {
	Operator string `json:"operator"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error    apiError                   `json:"error"`
	Snapshot *sessiondto.SnapshotOutput `json:"snapshot,omitempty"`
}

func (h *HTTPHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: apiError{Code: "VALIDATION_ERROR", Message: "invalid request body"}})
		return
	}
	snap, err := h.usecase.Create(r.Context(), sessiondto.CreateInput{
		PayerAddress:             req.PayerAddress,
		MentorAddress:            req.MentorAddress,
		Network:                  req.Network,
		TokenSymbol:              req.Token,
		TotalAmount:              req.TotalAmount,
		ScheduledStart:           req.ScheduledStart,
		ScheduledDurationMinutes: req.ScheduledDurationMinutes,
		PresenceTracking:         req.PresenceTracking,
		FeeCollected:             req.FeeCollected,
	})
	if err != nil {
		h.writeError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusCreated, snap)
}

func (h *HTTPHandler) list(w http.ResponseWriter, r *http.Request) {
	snaps, err := h.usecase.ListActive(r.Context())
	if err != nil {
		h.writeError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": snaps})
}

func (h *HTTPHandler) snapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := h.usecase.Snapshot(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *HTTPHandler) participant(op func(context.Context, sessiondto.ParticipantInput) (sessiondto.SnapshotOutput, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req participantRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: apiError{Code: "VALIDATION_ERROR", Message: "invalid request body"}})
			return
		}
		snap, err := op(r.Context(), sessiondto.ParticipantInput{SessionID: chi.URLParam(r, "id"), Address: req.Address, Reason: req.Reason})
		if err != nil {
			h.writeError(w, r, err, &snap)
			return
		}
		writeJSON(w, http.StatusOK, snap)
	}
}

func (h *HTTPHandler) heartbeat(w http.ResponseWriter, r *http.Request) {
	var req participantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: apiError{Code: "VALIDATION_ERROR", Message: "invalid request body"}})
		return
	}
	out, err := h.usecase.Heartbeat(r.Context(), sessiondto.ParticipantInput{SessionID: chi.URLParam(r, "id"), Address: req.Address})
	if err != nil {
		h.writeError(w, r, err, &out.Snapshot)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *HTTPHandler) clearHold(w http.ResponseWriter, r *http.Request) {
	var req clearHoldRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: apiError{Code: "VALIDATION_ERROR", Message: "invalid request body"}})
		return
	}
	snap, err := h.usecase.ClearHold(r.Context(), sessiondto.ClearHoldInput{SessionID: chi.URLParam(r, "id"), Operator: req.Operator})
	if err != nil {
		h.writeError(w, r, err, &snap)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *HTTPHandler) control(op controlFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, err := op(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			h.writeError(w, r, err, &snap)
			return
		}
		writeJSON(w, http.StatusOK, snap)
	}
}

func (h *HTTPHandler) listConfirmations(w http.ResponseWriter, r *http.Request) {
	items, err := h.usecase.ListConfirmations(r.Context())
	if err != nil {
		h.writeError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"confirmations": items})
}

func (h *HTTPHandler) getConfirmation(w http.ResponseWriter, r *http.Request) {
	item, err := h.usecase.GetConfirmation(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// stream pushes every snapshot of one session over a websocket until the
// client goes away or the session ends.
func (h *HTTPHandler) stream(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")
	current, err := h.usecase.Snapshot(r.Context(), sessionID)
	if err != nil {
		h.writeError(w, r, err, nil)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "session_id", sessionID, "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	updates, unsubscribe := h.usecase.Subscribe(ctx)
	defer unsubscribe()

	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := writeFrame(conn, current); err != nil || settled(current) {
		return
	}
	ping := time.NewTicker(wsPingInterval)
	defer ping.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case snap, ok := <-updates:
			if !ok {
				return
			}
			if snap.SessionID != sessionID {
				continue
			}
			if err := writeFrame(conn, snap); err != nil {
				h.logger.Debug("websocket write failed", "session_id", sessionID, "error", err)
				return
			}
			if settled(snap) {
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, snap.Status))
				return
			}
		}
	}
}

// settled reports whether no further snapshot can follow.
func settled(snap sessiondto.SnapshotOutput) bool {
	return snap.Final && !snap.SettlementPending
}

func writeFrame(conn *websocket.Conn, snap sessiondto.SnapshotOutput) error {
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return conn.WriteJSON(snap)
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, r *http.Request, err error, snap *sessiondto.SnapshotOutput) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	body := errorResponse{Error: apiError{Code: code, Message: err.Error()}}
	if snap != nil && snap.SessionID != "" {
		body.Snapshot = snap
	}
	writeJSON(w, status, body)
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, apperrors.ErrInvalidInput), errors.Is(err, sessionin.ErrInvalidSession):
		return http.StatusBadRequest, "VALIDATION_ERROR"
	case errors.Is(err, sessionin.ErrProgressOutOfRange), errors.Is(err, sessionin.ErrReleaseExceedsCeiling),
		errors.Is(err, sessionin.ErrInvalidRelease):
		return http.StatusUnprocessableEntity, "INVALID_AMOUNT"
	case errors.Is(err, apperrors.ErrSessionNotFound), errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, sessionin.ErrUnknownParticipant):
		return http.StatusForbidden, "UNKNOWN_PARTICIPANT"
	case errors.Is(err, sessionin.ErrSecurityHold), errors.Is(err, sessionin.ErrOverpaymentRisk):
		return http.StatusLocked, "SECURITY_HOLD"
	case errors.Is(err, sessionin.ErrPlatformFeeNotCollected):
		return http.StatusPaymentRequired, "FEE_NOT_COLLECTED"
	case errors.Is(err, sessionin.ErrParticipantAbsent):
		return http.StatusConflict, "PARTICIPANT_ABSENT"
	case errors.Is(err, sessionin.ErrTerminalSession), errors.Is(err, sessionin.ErrIllegalTransition),
		errors.Is(err, sessionin.ErrNotOnHold), errors.Is(err, sessionin.ErrRecoveryWindowExpired):
		return http.StatusConflict, "CONFLICT"
	case errors.Is(err, sessionin.ErrSettlementPending):
		return http.StatusServiceUnavailable, "SETTLEMENT_PENDING"
	case errors.Is(err, sessionin.ErrTransient):
		return http.StatusServiceUnavailable, "SETTLEMENT_UNAVAILABLE"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR"
	}
}

func (h *HTTPHandler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		h.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", chimiddleware.GetReqID(r.Context()),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
