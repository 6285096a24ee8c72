package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ashureev/simtutor/internal/llm"
	"github.com/ashureev/simtutor/internal/simulation"
	"github.com/ashureev/simtutor/internal/store"
	"github.com/ashureev/simtutor/internal/teaching"
)

const testBaseURL = "https://sims.example.com"

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
        {"id": 1, "title": "Length and period", "description": "d", "key_insight": "Longer is slower.", "related_params": ["length"]},
        {"id": 2, "title": "Counting swings", "description": "d", "key_insight": "More swings, less error.", "related_params": ["number_of_oscillations"]}
    ]
}`

func teacherJSON(msg string) string {
	return fmt.Sprintf(`{"teacher_message": %q, "suggests_param_change": false}`, msg)
}

func evalJSON(level string) string {
	return fmt.Sprintf(`{"understanding_level": %q, "reasoning": "scripted", "needs_deeper": false}`, level)
}

func newTestService(t *testing.T, gen *scriptedGen) *Service {
	t.Helper()
	repo, err := store.NewSQLite(filepath.Join(t.TempDir(), "sessions.db"))
	if err != nil {
		t.Fatalf("NewSQLite: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })

	catalog, err := simulation.LoadCatalog()
	if err != nil {
		t.Fatalf("LoadCatalog: %v", err)
	}
	pipeline := teaching.New(gen, teaching.Config{})
	return NewService(repo, pipeline, catalog, testBaseURL)
}

func TestStartSession(t *testing.T) {
	gen := &scriptedGen{responses: []string{
		conceptsJSON,
		teacherJSON("Welcome! Will a longer pendulum swing faster or slower?"),
	}}
	svc := newTestService(t, gen)

	snap, err := svc.Start(context.Background(), "simple_pendulum", "student-1")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	if snap.SessionID == "" {
		t.Error("snapshot missing session id")
	}
	if snap.Simulation.ID != "simple_pendulum" || snap.Simulation.Title == "" {
		t.Errorf("simulation view = %+v", snap.Simulation)
	}
	if !strings.HasPrefix(snap.Simulation.HTMLURL, testBaseURL+"/") {
		t.Errorf("html_url = %q", snap.Simulation.HTMLURL)
	}
	if !strings.Contains(snap.Simulation.HTMLURL, "autoStart=true") {
		t.Errorf("html_url missing autostart: %q", snap.Simulation.HTMLURL)
	}
	if snap.Concepts.Total != 2 || snap.Concepts.CurrentIndex != 0 {
		t.Errorf("concepts view = %+v", snap.Concepts)
	}
	if snap.Concepts.CurrentConcept == nil || snap.Concepts.CurrentConcept.Title != "Length and period" {
		t.Errorf("current concept = %+v", snap.Concepts.CurrentConcept)
	}
	if snap.Concepts.PreviousConcept != nil {
		t.Error("fresh session should have no previous concept")
	}
	if !snap.TeacherMessage.RequiresResponse || snap.TeacherMessage.SessionEnding {
		t.Errorf("teacher message flags = %+v", snap.TeacherMessage)
	}
	if snap.LearningState.ExchangeCount != 1 {
		t.Errorf("exchange count = %d, want 1", snap.LearningState.ExchangeCount)
	}
	if snap.Summary != nil {
		t.Error("incomplete session must not carry a summary")
	}
}

func TestStartUnknownSimulation(t *testing.T) {
	svc := newTestService(t, &scriptedGen{})

	_, err := svc.Start(context.Background(), "warp_drive", "")
	if !errors.Is(err, ErrUnknownSimulation) {
		t.Fatalf("err = %v, want ErrUnknownSimulation", err)
	}
}

func TestRespondRoundTrip(t *testing.T) {
	gen := &scriptedGen{responses: []string{
		conceptsJSON,
		teacherJSON("Faster or slower?"),
		evalJSON("mostly"),
		teacherJSON("Right! EXPLAIN: why?"),
	}}
	svc := newTestService(t, gen)
	ctx := context.Background()

	start, err := svc.Start(ctx, "simple_pendulum", "")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	snap, err := svc.Respond(ctx, start.SessionID, "it swings slower")
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if snap.LearningState.UnderstandingLevel != "mostly" {
		t.Errorf("understanding = %v", snap.LearningState.UnderstandingLevel)
	}
	if snap.TeacherMessage.Text != "Right! EXPLAIN: why?" {
		t.Errorf("teacher message = %q", snap.TeacherMessage.Text)
	}

	// The state is durable: Get re-reads from the store.
	got, err := svc.Get(ctx, start.SessionID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.LearningState.ExchangeCount != snap.LearningState.ExchangeCount {
		t.Errorf("persisted exchange count = %d, want %d",
			got.LearningState.ExchangeCount, snap.LearningState.ExchangeCount)
	}
}

func TestGetIsIdempotent(t *testing.T) {
	gen := &scriptedGen{responses: []string{
		conceptsJSON,
		teacherJSON("Faster or slower?"),
	}}
	svc := newTestService(t, gen)
	ctx := context.Background()

	start, err := svc.Start(ctx, "simple_pendulum", "")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	// Reading a session twice without an intervening submission must
	// produce the same formatted snapshot byte for byte.
	first, err := svc.Get(ctx, start.SessionID)
	if err != nil {
		t.Fatalf("Get 1: %v", err)
	}
	second, err := svc.Get(ctx, start.SessionID)
	if err != nil {
		t.Fatalf("Get 2: %v", err)
	}

	firstJSON, err := json.Marshal(first)
	if err != nil {
		t.Fatalf("marshal first: %v", err)
	}
	secondJSON, err := json.Marshal(second)
	if err != nil {
		t.Fatalf("marshal second: %v", err)
	}
	if !bytes.Equal(firstJSON, secondJSON) {
		t.Errorf("repeated Get diverged:\n%s\n%s", firstJSON, secondJSON)
	}
}

func TestRespondUnknownSession(t *testing.T) {
	svc := newTestService(t, &scriptedGen{})

	_, err := svc.Respond(context.Background(), "no-such-session", "hello")
	if !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("err = %v, want ErrSessionNotFound", err)
	}

	_, err = svc.Get(context.Background(), "no-such-session")
	if !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("Get err = %v, want ErrSessionNotFound", err)
	}
}

func TestRespondWhileBusy(t *testing.T) {
	gen := &scriptedGen{responses: []string{
		conceptsJSON,
		teacherJSON("Q?"),
	}}
	svc := newTestService(t, gen)

	snap, err := svc.Start(context.Background(), "simple_pendulum", "")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	mu := svc.lockFor(snap.SessionID)
	mu.Lock()
	defer mu.Unlock()

	_, err = svc.Respond(context.Background(), snap.SessionID, "hi")
	if !errors.Is(err, ErrSessionBusy) {
		t.Fatalf("err = %v, want ErrSessionBusy", err)
	}
}

func TestCompletedSessionIsReadOnly(t *testing.T) {
	gen := &scriptedGen{responses: []string{
		conceptsJSON,
		teacherJSON("Q1?"),
		evalJSON("complete"),
		teacherJSON("Transition to swings. Q2?"),
		evalJSON("complete"),
		// No teacher response needed: advancing past the last concept
		// produces the closing message without a model call.
	}}
	svc := newTestService(t, gen)
	ctx := context.Background()

	start, err := svc.Start(ctx, "simple_pendulum", "")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := svc.Respond(ctx, start.SessionID, "slower, longer path to travel"); err != nil {
		t.Fatalf("Respond 1: %v", err)
	}
	final, err := svc.Respond(ctx, start.SessionID, "more swings average out my timing error")
	if err != nil {
		t.Fatalf("Respond 2: %v", err)
	}

	if !final.LearningState.SessionComplete {
		t.Fatal("session should be complete after mastering both concepts")
	}
	if !final.TeacherMessage.SessionEnding || final.TeacherMessage.RequiresResponse {
		t.Errorf("final message flags = %+v", final.TeacherMessage)
	}
	if final.Summary == nil {
		t.Fatal("completed session must carry a summary")
	}
	if final.Summary.ConceptsMastered != 2 || final.Summary.TotalExchanges != 2 {
		t.Errorf("summary = %+v", final.Summary)
	}
	if !final.Concepts.AllCompleted {
		t.Error("all_completed should be true")
	}

	// Further submissions return the final snapshot without new model calls.
	again, err := svc.Respond(ctx, start.SessionID, "anything else?")
	if err != nil {
		t.Fatalf("Respond after complete: %v", err)
	}
	if again.TeacherMessage.Text != final.TeacherMessage.Text {
		t.Errorf("completed session mutated: %q vs %q", again.TeacherMessage.Text, final.TeacherMessage.Text)
	}
}

func TestSnapshotParamChange(t *testing.T) {
	paramChange := `{
        "teacher_message": "Watch! OBSERVE: faster or slower now?",
        "suggests_param_change": true,
        "param_to_change": "length",
        "new_value": 1.0,
        "change_reason": "Contrast with the longer pendulum",
        "prediction_question": "Faster or slower?"
    }`
	gen := &scriptedGen{responses: []string{conceptsJSON, paramChange}}
	svc := newTestService(t, gen)

	snap, err := svc.Start(context.Background(), "simple_pendulum", "")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	change := snap.Simulation.ParamChange
	if change == nil {
		t.Fatal("snapshot missing param_change")
	}
	if change.Parameter != "length" || change.Before != 5 || change.After != 1.0 {
		t.Errorf("param change = %+v", change)
	}
	if !strings.Contains(change.BeforeURL, "length=5") {
		t.Errorf("before_url = %q", change.BeforeURL)
	}
	if !strings.Contains(change.AfterURL, "length=1") {
		t.Errorf("after_url = %q", change.AfterURL)
	}
	if change.AfterURL != snap.Simulation.HTMLURL {
		t.Error("after_url should match the current simulation URL")
	}
}

func TestCleanupWorkerPurges(t *testing.T) {
	gen := &scriptedGen{responses: []string{conceptsJSON, teacherJSON("Q?")}}
	svc := newTestService(t, gen)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	snap, err := svc.Start(ctx, "simple_pendulum", "")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	// Everything saved more than a second ago expires under a zero TTL.
	time.Sleep(1100 * time.Millisecond)
	svc.StartCleanupWorker(ctx, 50*time.Millisecond, 0)

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := svc.Get(ctx, snap.SessionID); errors.Is(err, ErrSessionNotFound) {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatal("cleanup worker did not purge the expired session")
}
