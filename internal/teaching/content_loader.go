package teaching

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ashureev/simtutor/internal/domain"
	"github.com/ashureev/simtutor/internal/llm"
	"github.com/ashureev/simtutor/internal/simulation"
)

const conceptExtractionPrompt = `You are an expert physics teacher. Analyze this topic description and extract
2-4 KEY CONCEPTS that should be taught to a student.

TOPIC DESCRIPTION:
%s

For each concept, provide:
1. A short title (5-7 words)
2. A clear description of what to teach (2-3 sentences)
3. The key insight or "aha moment" the student should reach
4. Which simulation parameters best illustrate this concept

IMPORTANT:
- Order concepts from foundational to advanced
- Each concept should build on the previous
- Focus on concepts that can be demonstrated through parameter changes

Return ONLY valid JSON in this exact format:
{
    "concepts": [
        {
            "id": 1,
            "title": "Short concept title",
            "description": "What this concept is about and why it matters...",
            "key_insight": "The main takeaway the student should understand",
            "related_params": ["param1", "param2"]
        }
    ]
}
`

type conceptExtraction struct {
	Concepts []domain.Concept `json:"concepts"`
}

// loadContent extracts the teaching plan from the topic description.
// It runs once per session and never fails: on any model or parse
// error it falls back to the simulation's predefined concepts, or a
// single generic concept covering every parameter, so the pipeline
// cannot stall on malformed model output.
func (p *Pipeline) loadContent(ctx context.Context, state *domain.TeachingState, sim *simulation.Simulation) {
	state.CannotDemonstrate = sim.CannotDemonstrate

	prompt := fmt.Sprintf(conceptExtractionPrompt, state.TopicDescription)
	raw, err := p.gen.Generate(ctx, llm.Request{Prompt: prompt, Temperature: p.cfg.Temperature})
	if err == nil {
		var extracted conceptExtraction
		if parseErr := llm.ExtractJSON(raw, &extracted); parseErr == nil && len(extracted.Concepts) > 0 {
			state.Concepts = extracted.Concepts
			state.CurrentConceptIndex = 0
			slog.Info("concepts extracted", "session_id", state.SessionID, "count", len(extracted.Concepts))
			return
		}
		err = fmt.Errorf("unusable concept extraction output")
	}

	slog.Warn("concept extraction failed, using fallback concepts",
		"session_id", state.SessionID, "error", err)
	state.Concepts = fallbackConcepts(sim)
	state.CurrentConceptIndex = 0
}

// fallbackConcepts prefers the simulation's predefined teaching plan;
// absent one, a single generic concept covers all parameters.
func fallbackConcepts(sim *simulation.Simulation) []domain.Concept {
	if len(sim.Concepts) > 0 {
		concepts := make([]domain.Concept, len(sim.Concepts))
		copy(concepts, sim.Concepts)
		return concepts
	}

	params := make([]string, 0, len(sim.Parameters))
	for _, p := range sim.Parameters {
		params = append(params, p.Name)
	}
	return []domain.Concept{{
		ID:            1,
		Title:         "Understanding " + sim.Title,
		Description:   "Learn how the simulation behaves as its physical properties change.",
		KeyInsight:    "Each parameter has a distinct, observable effect on the simulation.",
		RelatedParams: params,
	}}
}
