package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"

	"github.com/ashureev/simtutor/internal/session"
)

// WebSocketHandler mirrors the respond loop over a WebSocket for the
// browser UI: the client sends student text frames, the server pushes
// snapshot frames.
type WebSocketHandler struct {
	*Handler
}

// NewWebSocketHandler creates a new WebSocket handler.
func NewWebSocketHandler(base *Handler) *WebSocketHandler {
	return &WebSocketHandler{Handler: base}
}

// wsInbound is one client frame.
type wsInbound struct {
	StudentResponse string `json:"student_response"`
}

// wsError is pushed when a submission cannot be processed. The
// connection stays open; the client may retry.
type wsError struct {
	Error string `json:"error"`
}

// ServeHTTP implements http.Handler for WebSocket upgrade.
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	slog.Info("WebSocket connection request", "session_id", sessionID, "ip", r.RemoteAddr)

	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "session_id", sessionID)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "session ended"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr, "session_id", sessionID)
		}
	}()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Push the current snapshot so a reconnecting client resyncs.
	snap, err := h.svc.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			h.writeJSON(ctx, ws, wsError{Error: "session_not_found"})
			return
		}
		slog.Error("Failed to load session for websocket", "error", err, "session_id", sessionID)
		h.writeJSON(ctx, ws, wsError{Error: "internal_error"})
		return
	}
	if !h.writeJSON(ctx, ws, snap) {
		return
	}

	for {
		msgType, data, err := ws.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway ||
				errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
				return
			}
			slog.Debug("WebSocket read error", "error", err, "session_id", sessionID)
			return
		}
		if msgType != websocket.MessageText {
			continue
		}

		var in wsInbound
		if err := json.Unmarshal(data, &in); err != nil {
			// Plain text frames are accepted as the student message.
			in.StudentResponse = string(data)
		}

		snap, err := h.svc.Respond(ctx, sessionID, in.StudentResponse)
		if err != nil {
			switch {
			case errors.Is(err, session.ErrSessionNotFound):
				h.writeJSON(ctx, ws, wsError{Error: "session_not_found"})
				return
			case errors.Is(err, session.ErrSessionBusy):
				if !h.writeJSON(ctx, ws, wsError{Error: "response_in_progress"}) {
					return
				}
				continue
			default:
				slog.Error("Failed to process websocket response", "error", err, "session_id", sessionID)
				if !h.writeJSON(ctx, ws, wsError{Error: "internal_error"}) {
					return
				}
				continue
			}
		}

		if !h.writeJSON(ctx, ws, snap) {
			return
		}
		if snap.LearningState.SessionComplete {
			return
		}
	}
}

func (h *WebSocketHandler) writeJSON(ctx context.Context, ws *websocket.Conn, v interface{}) bool {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("Failed to encode websocket frame", "error", err)
		return false
	}
	if err := ws.Write(ctx, websocket.MessageText, data); err != nil {
		slog.Debug("WebSocket write error", "error", err)
		return false
	}
	return true
}

// checkOrigin allows same-origin and configured frontend connections.
func (h *WebSocketHandler) checkOrigin(r *http.Request) bool {
	if h.isDevelopment() {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	return h.frontendRedirectURL != "" && strings.HasPrefix(origin, h.frontendRedirectURL)
}
