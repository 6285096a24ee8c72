package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ashureev/simtutor/internal/quiz"
)

// QuizHandler handles deterministic quiz evaluation endpoints.
type QuizHandler struct {
	*Handler
}

// NewQuizHandler creates a new quiz handler.
func NewQuizHandler(base *Handler) *QuizHandler {
	return &QuizHandler{Handler: base}
}

// RegisterRoutes registers quiz routes.
func (h *QuizHandler) RegisterRoutes(r chi.Router) {
	r.Post("/api/quiz/evaluate", h.Evaluate)
}

type quizEvaluateRequest struct {
	SimulationID    string             `json:"simulation_id,omitempty"`
	SubmittedParams map[string]float64 `json:"submitted_params"`
	SuccessRule     quiz.SuccessRule   `json:"success_rule"`
	ParameterRanges map[string]string  `json:"parameter_ranges,omitempty"`
	AttemptNumber   int                `json:"attempt_number,omitempty"`
	MaxAttempts     int                `json:"max_attempts,omitempty"`
	Hints           map[string]string  `json:"hints,omitempty"`
}

type quizEvaluateResponse struct {
	Score        float64     `json:"score"`
	Status       quiz.Status `json:"status"`
	Hint         string      `json:"hint,omitempty"`
	RetryAllowed bool        `json:"retry_allowed"`
}

// Evaluate scores a quiz submission against its success rule. No model
// calls are involved; the same submission always yields the same score.
func (h *QuizHandler) Evaluate(w http.ResponseWriter, r *http.Request) {
	var req quizEvaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(req.SubmittedParams) == 0 {
		Error(w, http.StatusBadRequest, "submitted_params is required")
		return
	}

	ranges := req.ParameterRanges
	if ranges == nil && req.SimulationID != "" {
		if sim, ok := h.catalog.Get(req.SimulationID); ok {
			ranges = sim.ParamRanges()
		}
	}

	attempt := req.AttemptNumber
	if attempt <= 0 {
		attempt = 1
	}

	score, status := quiz.Evaluate(req.SubmittedParams, req.SuccessRule, ranges)

	resp := quizEvaluateResponse{
		Score:        score,
		Status:       status,
		RetryAllowed: status != quiz.StatusRight && quiz.AllowRetry(attempt, req.MaxAttempts),
	}
	if status != quiz.StatusRight {
		resp.Hint = quiz.HintForAttempt(req.Hints, attempt)
	}

	JSON(w, http.StatusOK, resp)
}
