package domain

// Concept is a discrete teachable idea extracted from the topic text.
// Concepts are created once by the content loader and never mutated.
type Concept struct {
	ID            int      `json:"id" yaml:"id"`
	Title         string   `json:"title" yaml:"title"`
	Description   string   `json:"description" yaml:"description"`
	KeyInsight    string   `json:"key_insight" yaml:"key_insight"`
	RelatedParams []string `json:"related_params" yaml:"related_params"`
}

// ParameterChange is an audit record of one simulation parameter
// adjustment. It is created by the teacher stage and enriched by the
// evaluator stage once the student has reacted.
type ParameterChange struct {
	Parameter           string  `json:"parameter"`
	OldValue            float64 `json:"old_value"`
	NewValue            float64 `json:"new_value"`
	Reason              string  `json:"reason"`
	PredictionAsked     string  `json:"prediction_asked"`
	StudentReaction     string  `json:"student_reaction"`
	UnderstandingBefore Level   `json:"understanding_before"`
	UnderstandingAfter  Level   `json:"understanding_after"`
	WasEffective        bool    `json:"was_effective"`
}

// Closed reports whether the evaluator has already recorded the
// student's reaction to this change.
func (c *ParameterChange) Closed() bool {
	return c.UnderstandingAfter != ""
}
