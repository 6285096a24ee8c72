package domain

import (
	"time"
)

// Message is a single conversation turn with the metadata recorded at
// the time it was produced.
type Message struct {
	Role           Role      `json:"role"`
	Content        string    `json:"content"`
	Timestamp      time.Time `json:"timestamp"`
	Understanding  Level     `json:"understanding_level"`
	ExchangeNumber int       `json:"exchange_number"`
}

// TeachingState is the complete checkpointed state of one tutoring
// session. Each pipeline stage reads and writes only its declared
// fields; the session service persists the whole record after every
// stage so a restart between teacher and evaluator loses nothing.
type TeachingState struct {
	SessionID    string `json:"session_id"`
	SimulationID string `json:"simulation_id"`
	StudentID    string `json:"student_id,omitempty"`

	// Content.
	TopicDescription    string    `json:"topic_description"`
	Concepts            []Concept `json:"concepts"`
	CurrentConceptIndex int       `json:"current_concept_index"`

	// Conversation.
	ConversationHistory []Message `json:"conversation_history"`
	StudentResponse     string    `json:"student_response"`
	LastTeacherMessage  string    `json:"last_teacher_message"`

	// Understanding tracking.
	UnderstandingLevel      Level   `json:"understanding_level"`
	UnderstandingTrajectory []Level `json:"understanding_trajectory"`
	UnderstandingReasoning  string  `json:"understanding_reasoning"`

	// Simulation parameters. Values are numeric for sliders and string
	// for enumerated controls (e.g. object type in the shadows sim).
	ParameterHistory []ParameterChange `json:"parameter_history"`
	CurrentParams    map[string]any    `json:"current_params"`

	// Teaching control.
	ExchangeCount    int              `json:"exchange_count"`
	Strategy         Strategy         `json:"strategy"`
	TeacherMode      TeacherMode      `json:"teacher_mode"`
	TrajectoryStatus TrajectoryStatus `json:"trajectory_status"`

	// Flags.
	ConceptComplete   bool     `json:"concept_complete"`
	SessionComplete   bool     `json:"session_complete"`
	WaitingForInput   bool     `json:"waiting_for_input"`
	NeedsDeeper       bool     `json:"needs_deeper"`
	ConceptTransition bool     `json:"concept_transition"`
	AsksForReasoning  bool     `json:"asks_for_reasoning"`
	CannotDemonstrate []string `json:"cannot_demonstrate,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewTeachingState creates a fresh session state. Concepts are filled
// in by the content loader on the first pipeline advance.
func NewTeachingState(sessionID, simulationID, studentID, topic string, initialParams map[string]any) *TeachingState {
	params := make(map[string]any, len(initialParams))
	for k, v := range initialParams {
		params[k] = v
	}
	now := time.Now().UTC()
	return &TeachingState{
		SessionID:          sessionID,
		SimulationID:       simulationID,
		StudentID:          studentID,
		TopicDescription:   topic,
		CurrentParams:      params,
		UnderstandingLevel: LevelNone,
		Strategy:           StrategyContinue,
		TeacherMode:        ModeEncouraging,
		TrajectoryStatus:   TrajectoryImproving,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

// CurrentConcept returns the concept being taught, or nil once the
// index has moved past the last concept.
func (s *TeachingState) CurrentConcept() *Concept {
	if s.CurrentConceptIndex < 0 || s.CurrentConceptIndex >= len(s.Concepts) {
		return nil
	}
	return &s.Concepts[s.CurrentConceptIndex]
}

// PreviousConcept returns the concept completed before the current
// one, or nil at the start of the session.
func (s *TeachingState) PreviousConcept() *Concept {
	if s.CurrentConceptIndex <= 0 || s.CurrentConceptIndex > len(s.Concepts) {
		return nil
	}
	return &s.Concepts[s.CurrentConceptIndex-1]
}

// AllConceptsDone reports whether the concept index has advanced past
// the final concept.
func (s *TeachingState) AllConceptsDone() bool {
	return s.CurrentConceptIndex >= len(s.Concepts)
}

// AddMessage appends a conversation turn stamped with the current
// understanding snapshot and exchange number.
func (s *TeachingState) AddMessage(role Role, content string) {
	s.ConversationHistory = append(s.ConversationHistory, Message{
		Role:           role,
		Content:        content,
		Timestamp:      time.Now().UTC(),
		Understanding:  s.UnderstandingLevel,
		ExchangeNumber: s.ExchangeCount,
	})
}

// AdvanceConcept moves to the next concept and resets the per-concept
// counters. The concept index only ever moves forward.
func (s *TeachingState) AdvanceConcept() {
	s.CurrentConceptIndex++
	s.ExchangeCount = 0
	s.UnderstandingTrajectory = nil
	s.ConceptComplete = true
	s.NeedsDeeper = false
}

// LastOpenParameterChange returns the most recent parameter change the
// evaluator has not yet closed, or nil.
func (s *TeachingState) LastOpenParameterChange() *ParameterChange {
	if len(s.ParameterHistory) == 0 {
		return nil
	}
	last := &s.ParameterHistory[len(s.ParameterHistory)-1]
	if last.Closed() {
		return nil
	}
	return last
}

// ParamFloat returns the numeric value of a parameter, or 0 when the
// parameter is missing or non-numeric.
func (s *TeachingState) ParamFloat(name string) float64 {
	v, _ := AsFloat(s.CurrentParams[name])
	return v
}

// AsFloat coerces a loosely typed parameter value to float64.
func AsFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// StudentTurns counts how many student messages the conversation holds.
func (s *TeachingState) StudentTurns() int {
	n := 0
	for _, m := range s.ConversationHistory {
		if m.Role == RoleStudent {
			n++
		}
	}
	return n
}
