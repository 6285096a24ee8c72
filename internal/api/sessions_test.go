package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/ashureev/simtutor/internal/llm"
	"github.com/ashureev/simtutor/internal/session"
	"github.com/ashureev/simtutor/internal/simulation"
	"github.com/ashureev/simtutor/internal/store"
	"github.com/ashureev/simtutor/internal/teaching"
)

type scriptedGen struct {
	responses []string
}

func (g *scriptedGen) Generate(_ context.Context, _ llm.Request) (string, error) {
	if len(g.responses) == 0 {
		return "", errors.New("scriptedGen exhausted")
	}
	resp := g.responses[0]
	g.responses = g.responses[1:]
	return resp, nil
}

const conceptsJSON = `{
    "concepts": [
        {"id": 1, "title": "Length and period", "description": "d", "key_insight": "Longer is slower.", "related_params": ["length"]}
    ]
}`

func teacherJSON(msg string) string {
	return fmt.Sprintf(`{"teacher_message": %q, "suggests_param_change": false}`, msg)
}

func newTestRouter(t *testing.T, gen *scriptedGen) *chi.Mux {
	t.Helper()
	repo, err := store.NewSQLite(filepath.Join(t.TempDir(), "api.db"))
	if err != nil {
		t.Fatalf("NewSQLite: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })

	catalog, err := simulation.LoadCatalog()
	if err != nil {
		t.Fatalf("LoadCatalog: %v", err)
	}
	svc := session.NewService(repo, teaching.New(gen, teaching.Config{}), catalog, "https://sims.test")

	base := NewHandler(svc, catalog, "")
	r := chi.NewRouter()
	NewSessionHandler(base).RegisterRoutes(r)
	NewQuizHandler(base).RegisterRoutes(r)
	NewHealthHandler(repo, catalog).RegisterHealth(r)
	return r
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestListSimulations(t *testing.T) {
	r := newTestRouter(t, &scriptedGen{})

	rec := doJSON(t, r, http.MethodGet, "/api/simulations", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}

	var resp struct {
		Simulations []simulation.Summary `json:"simulations"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Simulations) != 3 {
		t.Errorf("simulations = %d, want 3", len(resp.Simulations))
	}
	if resp.Simulations[0].ID != "simple_pendulum" {
		t.Errorf("first simulation = %q", resp.Simulations[0].ID)
	}
}

func TestCreateSession(t *testing.T) {
	gen := &scriptedGen{responses: []string{
		conceptsJSON,
		teacherJSON("Welcome! Faster or slower?"),
	}}
	r := newTestRouter(t, gen)

	rec := doJSON(t, r, http.MethodPost, "/api/sessions",
		map[string]string{"simulation_id": "simple_pendulum", "student_id": "s-1"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}

	var snap session.Snapshot
	if err := json.NewDecoder(rec.Body).Decode(&snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if snap.SessionID == "" {
		t.Error("missing session_id")
	}
	if snap.TeacherMessage.Text != "Welcome! Faster or slower?" {
		t.Errorf("teacher message = %q", snap.TeacherMessage.Text)
	}
	if snap.Simulation.ID != "simple_pendulum" {
		t.Errorf("simulation id = %q", snap.Simulation.ID)
	}
}

func TestCreateSessionUnknownSimulation(t *testing.T) {
	r := newTestRouter(t, &scriptedGen{})

	rec := doJSON(t, r, http.MethodPost, "/api/sessions",
		map[string]string{"simulation_id": "warp_drive"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400; body %s", rec.Code, rec.Body)
	}
}

func TestCreateSessionMissingID(t *testing.T) {
	r := newTestRouter(t, &scriptedGen{})

	rec := doJSON(t, r, http.MethodPost, "/api/sessions", map[string]string{})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestRespondAndGetSession(t *testing.T) {
	gen := &scriptedGen{responses: []string{
		conceptsJSON,
		teacherJSON("Faster or slower?"),
		`{"understanding_level": "mostly", "reasoning": "ok", "needs_deeper": false}`,
		teacherJSON("Right! Why?"),
	}}
	r := newTestRouter(t, gen)

	rec := doJSON(t, r, http.MethodPost, "/api/sessions",
		map[string]string{"simulation_id": "simple_pendulum"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d", rec.Code)
	}
	var created session.Snapshot
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("decode: %v", err)
	}

	rec = doJSON(t, r, http.MethodPost, "/api/sessions/"+created.SessionID+"/respond",
		map[string]string{"student_response": "slower"})
	if rec.Code != http.StatusOK {
		t.Fatalf("respond status = %d, body %s", rec.Code, rec.Body)
	}
	var updated session.Snapshot
	if err := json.NewDecoder(rec.Body).Decode(&updated); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if updated.LearningState.UnderstandingLevel != "mostly" {
		t.Errorf("understanding = %v", updated.LearningState.UnderstandingLevel)
	}

	rec = doJSON(t, r, http.MethodGet, "/api/sessions/"+created.SessionID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
}

func TestRespondUnknownSession(t *testing.T) {
	r := newTestRouter(t, &scriptedGen{})

	rec := doJSON(t, r, http.MethodPost, "/api/sessions/nope/respond",
		map[string]string{"student_response": "hi"})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}

	rec = doJSON(t, r, http.MethodGet, "/api/sessions/nope", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("get status = %d, want 404", rec.Code)
	}
}

func TestQuizEvaluate(t *testing.T) {
	r := newTestRouter(t, &scriptedGen{})

	body := map[string]any{
		"submitted_params": map[string]float64{"angle": 15},
		"success_rule": map[string]any{
			"conditions": []map[string]any{
				{"parameter": "angle", "operator": ">=", "value": 10},
			},
		},
	}
	rec := doJSON(t, r, http.MethodPost, "/api/quiz/evaluate", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}

	var resp struct {
		Score        float64 `json:"score"`
		Status       string  `json:"status"`
		RetryAllowed bool    `json:"retry_allowed"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Score != 1.0 || resp.Status != "RIGHT" {
		t.Errorf("result = %+v", resp)
	}
	if resp.RetryAllowed {
		t.Error("correct answer should not offer a retry")
	}
}

func TestQuizEvaluateWrongWithHint(t *testing.T) {
	r := newTestRouter(t, &scriptedGen{})

	body := map[string]any{
		"submitted_params": map[string]float64{"angle": 5},
		"success_rule": map[string]any{
			"conditions": []map[string]any{
				{"parameter": "angle", "operator": ">=", "value": 10},
			},
		},
		"attempt_number": 1,
		"hints":          map[string]string{"attempt_1": "Try a larger angle."},
	}
	rec := doJSON(t, r, http.MethodPost, "/api/quiz/evaluate", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp struct {
		Score        float64 `json:"score"`
		Status       string  `json:"status"`
		Hint         string  `json:"hint"`
		RetryAllowed bool    `json:"retry_allowed"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "WRONG" || resp.Hint != "Try a larger angle." || !resp.RetryAllowed {
		t.Errorf("result = %+v", resp)
	}
}

func TestQuizEvaluateUsesCatalogRanges(t *testing.T) {
	r := newTestRouter(t, &scriptedGen{})

	body := map[string]any{
		"simulation_id":    "simple_pendulum",
		"submitted_params": map[string]float64{"length": 1.0},
		"success_rule": map[string]any{
			"optimization_target": map[string]string{"parameter": "length", "objective": "minimize"},
		},
	}
	rec := doJSON(t, r, http.MethodPost, "/api/quiz/evaluate", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}

	var resp struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "RIGHT" {
		t.Errorf("status = %q, want RIGHT (minimum of catalog range)", resp.Status)
	}
}

func TestHealth(t *testing.T) {
	r := newTestRouter(t, &scriptedGen{})

	rec := doJSON(t, r, http.MethodGet, "/api/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp struct {
		Status               string            `json:"status"`
		AvailableSimulations []string          `json:"available_simulations"`
		Checks               map[string]string `json:"checks"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "healthy" || resp.Checks["database"] != "ok" {
		t.Errorf("health = %+v", resp)
	}
	if len(resp.AvailableSimulations) != 3 {
		t.Errorf("simulations = %v", resp.AvailableSimulations)
	}
}
