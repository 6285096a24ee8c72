package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ashureev/simtutor/internal/session"
)

// SessionHandler handles teaching session endpoints.
type SessionHandler struct {
	*Handler
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(base *Handler) *SessionHandler {
	return &SessionHandler{Handler: base}
}

// RegisterRoutes registers session and catalog routes.
func (h *SessionHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/simulations", h.ListSimulations)
		r.Post("/sessions", h.CreateSession)
		r.Get("/sessions/{sessionID}", h.GetSession)
		r.Post("/sessions/{sessionID}/respond", h.Respond)
	})
}

type createSessionRequest struct {
	SimulationID string `json:"simulation_id"`
	StudentID    string `json:"student_id,omitempty"`
}

type respondRequest struct {
	StudentResponse string `json:"student_response"`
}

// ListSimulations returns the available simulations.
func (h *SessionHandler) ListSimulations(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, map[string]interface{}{
		"simulations": h.catalog.List(),
	})
}

// CreateSession starts a new teaching session and returns the first
// teacher message.
func (h *SessionHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.SimulationID == "" {
		Error(w, http.StatusBadRequest, "simulation_id is required")
		return
	}

	snap, err := h.svc.Start(r.Context(), req.SimulationID, req.StudentID)
	if err != nil {
		if errors.Is(err, session.ErrUnknownSimulation) {
			Error(w, http.StatusBadRequest, err.Error())
			return
		}
		slog.Error("Failed to create session", "error", err, "simulation_id", req.SimulationID)
		Error(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	JSON(w, http.StatusCreated, snap)
}

// GetSession returns the current session snapshot.
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	snap, err := h.svc.Get(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			Error(w, http.StatusNotFound, "session not found")
			return
		}
		slog.Error("Failed to get session", "error", err, "session_id", sessionID)
		Error(w, http.StatusInternalServerError, "failed to get session")
		return
	}

	JSON(w, http.StatusOK, snap)
}

// Respond submits the student's response and returns the updated
// snapshot.
func (h *SessionHandler) Respond(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var req respondRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	snap, err := h.svc.Respond(r.Context(), sessionID, req.StudentResponse)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrSessionNotFound):
			Error(w, http.StatusNotFound, "session not found")
		case errors.Is(err, session.ErrSessionBusy):
			Error(w, http.StatusConflict, "response_in_progress")
		default:
			slog.Error("Failed to process response", "error", err, "session_id", sessionID)
			Error(w, http.StatusInternalServerError, "failed to process response")
		}
		return
	}

	JSON(w, http.StatusOK, snap)
}
