package session

import (
	"time"

	"github.com/ashureev/simtutor/internal/domain"
	"github.com/ashureev/simtutor/internal/simulation"
)

// Snapshot is the stable external representation of a session. The
// shape is a published contract consumed by browser and mobile
// clients; fields are only ever added.
type Snapshot struct {
	SessionID      string          `json:"session_id"`
	Simulation     SimulationView  `json:"simulation"`
	Concepts       ConceptsView    `json:"concepts"`
	TeacherMessage TeacherMessage  `json:"teacher_message"`
	LearningState  LearningState   `json:"learning_state"`
	Summary        *SessionSummary `json:"summary,omitempty"`
}

// SimulationView carries what the client needs to render the
// simulation frame.
type SimulationView struct {
	ID            string           `json:"id"`
	Title         string           `json:"title"`
	HTMLURL       string           `json:"html_url"`
	CurrentParams map[string]any   `json:"current_params"`
	ParamChange   *ParamChangeView `json:"param_change,omitempty"`
}

// ParamChangeView describes the most recent parameter change with
// before/after URLs so the client can show the contrast.
type ParamChangeView struct {
	Parameter string  `json:"parameter"`
	Before    float64 `json:"before"`
	After     float64 `json:"after"`
	Reason    string  `json:"reason"`
	BeforeURL string  `json:"before_url"`
	AfterURL  string  `json:"after_url"`
}

// ConceptView is the client-facing projection of one concept.
type ConceptView struct {
	ID            int      `json:"id"`
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	KeyInsight    string   `json:"key_insight"`
	RelatedParams []string `json:"related_params"`
}

// PreviousConceptView marks the concept completed just before the
// current one, shown during transitions.
type PreviousConceptView struct {
	ID        int    `json:"id"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}

// ConceptsView summarizes teaching-plan progress.
type ConceptsView struct {
	Total           int                  `json:"total"`
	CurrentIndex    int                  `json:"current_index"`
	CurrentConcept  *ConceptView         `json:"current_concept,omitempty"`
	AllConcepts     []ConceptView        `json:"all_concepts"`
	AllCompleted    bool                 `json:"all_completed"`
	PreviousConcept *PreviousConceptView `json:"previous_concept,omitempty"`
}

// TeacherMessage is the latest teacher turn plus its display flags.
type TeacherMessage struct {
	Text              string    `json:"text"`
	Timestamp         time.Time `json:"timestamp"`
	RequiresResponse  bool      `json:"requires_response"`
	CorrectionMade    bool      `json:"correction_made"`
	AsksForReasoning  bool      `json:"asks_for_reasoning"`
	ConceptTransition bool      `json:"concept_transition"`
	SessionEnding     bool      `json:"session_ending"`
}

// LearningState mirrors the adaptive-teaching control fields.
type LearningState struct {
	UnderstandingLevel     domain.Level            `json:"understanding_level"`
	UnderstandingReasoning string                  `json:"understanding_reasoning"`
	ExchangeCount          int                     `json:"exchange_count"`
	ConceptComplete        bool                    `json:"concept_complete"`
	SessionComplete        bool                    `json:"session_complete"`
	Strategy               domain.Strategy         `json:"strategy"`
	TeacherMode            domain.TeacherMode      `json:"teacher_mode"`
	TrajectoryStatus       domain.TrajectoryStatus `json:"trajectory_status"`
	NeedsDeeper            bool                    `json:"needs_deeper"`
}

// SessionSummary is emitted only once the session has completed.
type SessionSummary struct {
	ConceptsMastered         int            `json:"concepts_mastered"`
	TotalExchanges           int            `json:"total_exchanges"`
	ParameterChangesMade     int            `json:"parameter_changes_made"`
	UnderstandingProgression []domain.Level `json:"understanding_progression"`
}

// snapshot projects the internal state into the external contract.
func (s *Service) snapshot(state *domain.TeachingState, sim *simulation.Simulation) *Snapshot {
	currentURL := sim.URL(s.baseURL, state.CurrentParams, true)

	var paramChange *ParamChangeView
	if n := len(state.ParameterHistory); n > 0 {
		last := state.ParameterHistory[n-1]

		beforeParams := make(map[string]any, len(state.CurrentParams))
		for k, v := range state.CurrentParams {
			beforeParams[k] = v
		}
		beforeParams[last.Parameter] = last.OldValue

		paramChange = &ParamChangeView{
			Parameter: last.Parameter,
			Before:    last.OldValue,
			After:     last.NewValue,
			Reason:    last.Reason,
			BeforeURL: sim.URL(s.baseURL, beforeParams, true),
			AfterURL:  currentURL,
		}
	}

	allConcepts := make([]ConceptView, 0, len(state.Concepts))
	for _, c := range state.Concepts {
		allConcepts = append(allConcepts, conceptView(c))
	}

	var currentConcept *ConceptView
	if c := state.CurrentConcept(); c != nil {
		view := conceptView(*c)
		currentConcept = &view
	}

	var previousConcept *PreviousConceptView
	if c := state.PreviousConcept(); c != nil {
		previousConcept = &PreviousConceptView{ID: c.ID, Title: c.Title, Completed: true}
	}

	snap := &Snapshot{
		SessionID: state.SessionID,
		Simulation: SimulationView{
			ID:            state.SimulationID,
			Title:         sim.Title,
			HTMLURL:       currentURL,
			CurrentParams: state.CurrentParams,
			ParamChange:   paramChange,
		},
		Concepts: ConceptsView{
			Total:           len(state.Concepts),
			CurrentIndex:    state.CurrentConceptIndex,
			CurrentConcept:  currentConcept,
			AllConcepts:     allConcepts,
			AllCompleted:    state.AllConceptsDone(),
			PreviousConcept: previousConcept,
		},
		TeacherMessage: TeacherMessage{
			Text:              state.LastTeacherMessage,
			Timestamp:         state.UpdatedAt,
			RequiresResponse:  !state.SessionComplete,
			AsksForReasoning:  state.AsksForReasoning,
			ConceptTransition: state.ConceptTransition,
			SessionEnding:     state.SessionComplete,
		},
		LearningState: LearningState{
			UnderstandingLevel:     state.UnderstandingLevel,
			UnderstandingReasoning: state.UnderstandingReasoning,
			ExchangeCount:          state.ExchangeCount,
			ConceptComplete:        state.ConceptComplete,
			SessionComplete:        state.SessionComplete,
			Strategy:               state.Strategy,
			TeacherMode:            state.TeacherMode,
			TrajectoryStatus:       state.TrajectoryStatus,
			NeedsDeeper:            state.NeedsDeeper,
		},
	}

	if state.SessionComplete {
		snap.Summary = &SessionSummary{
			ConceptsMastered:         state.CurrentConceptIndex,
			TotalExchanges:           state.StudentTurns(),
			ParameterChangesMade:     len(state.ParameterHistory),
			UnderstandingProgression: state.UnderstandingTrajectory,
		}
	}
	return snap
}

func conceptView(c domain.Concept) ConceptView {
	return ConceptView{
		ID:            c.ID,
		Title:         c.Title,
		Description:   c.Description,
		KeyInsight:    c.KeyInsight,
		RelatedParams: c.RelatedParams,
	}
}
