package teaching

import (
	"context"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"github.com/ashureev/simtutor/internal/domain"
	"github.com/ashureev/simtutor/internal/llm"
)

const evaluationPrompt = `You are evaluating a physics student's understanding. Be GENEROUS and ENCOURAGING in your evaluation.

CONCEPT BEING TAUGHT:
Title: %s
Key Insight: %s

TEACHER'S LAST MESSAGE/QUESTION:
%s

STUDENT'S RESPONSE:
"%s"

EVALUATION RULES (BE GENEROUS):

1. CORRECT OBSERVATION = "mostly" (not partial!)
   If the student correctly describes WHAT happens (e.g. "it swings slower",
   "it takes more time"), that's a correct observation. Rate it "mostly".

2. CORRECT OBSERVATION + ANY CAUSAL REASONING = "complete"
   If they say what happens AND attempt to explain why (even roughly),
   rate it "complete".

3. WRONG DIRECTION = "partial"
   If they engaged with the question but got the direction wrong
   (e.g. said "faster" when the answer is "slower"), rate it "partial".

4. SIMPLE ACKNOWLEDGMENT = "partial"
   "ok", "yes", "I see" show engagement but not understanding. Rate "partial".

5. "I DON'T KNOW" OR OFF-TOPIC = "none"
   Only rate "none" when the student explicitly doesn't know or the
   response has nothing to do with the question.

Also decide needs_deeper: true ONLY when the student gave a correct
observation (rule 1) but NO reasoning at all. Then the teacher should
celebrate and ask WHY.

Return ONLY valid JSON:
{
    "understanding_level": "none" | "partial" | "mostly" | "complete",
    "reasoning": "One sentence explaining your rating",
    "what_they_got_right": "The correct part of their answer, if any",
    "needs_deeper": true/false
}
`

type evalReply struct {
	Level            string `json:"understanding_level"`
	Reasoning        string `json:"reasoning"`
	WhatTheyGotRight string `json:"what_they_got_right"`
	NeedsDeeper      bool   `json:"needs_deeper"`
}

const reactionMaxLen = 200

// evaluate rates the student's latest response against the current
// concept and closes out any pending parameter-change experiment.
func (p *Pipeline) evaluate(ctx context.Context, state *domain.TeachingState) error {
	if state.StudentResponse == "" {
		state.UnderstandingLevel = domain.LevelNone
		state.UnderstandingReasoning = "Student hasn't responded yet"
		return nil
	}

	concept := state.CurrentConcept()
	if concept == nil {
		state.UnderstandingLevel = domain.LevelComplete
		state.UnderstandingReasoning = "All concepts completed"
		return nil
	}

	prompt := fmt.Sprintf(evaluationPrompt,
		concept.Title, concept.KeyInsight, state.LastTeacherMessage, state.StudentResponse)

	raw, err := p.gen.Generate(ctx, llm.Request{Prompt: prompt, Temperature: evalTemperature})
	if err != nil {
		return fmt.Errorf("evaluation generation: %w", err)
	}
	var reply evalReply
	if parseErr := llm.ExtractJSON(raw, &reply); parseErr != nil {
		slog.Warn("unparseable evaluation, defaulting to partial",
			"session_id", state.SessionID, "error", parseErr)
		reply = evalReply{Level: string(domain.LevelPartial), Reasoning: "could not parse evaluation"}
	}

	level := domain.Level(reply.Level)
	if !level.Valid() {
		slog.Warn("invalid understanding level from model",
			"session_id", state.SessionID, "level", reply.Level)
		level = domain.LevelPartial
	}

	// The student's message carries the level they held when speaking,
	// so it is recorded before the new rating lands.
	state.AddMessage(domain.RoleStudent, state.StudentResponse)

	if change := state.LastOpenParameterChange(); change != nil {
		reaction := state.StudentResponse
		if len(reaction) > reactionMaxLen {
			cut := reactionMaxLen
			// Back up to a rune boundary so the stored string stays
			// valid UTF-8.
			for cut > 0 && !utf8.RuneStart(reaction[cut]) {
				cut--
			}
			reaction = reaction[:cut]
		}
		change.StudentReaction = reaction
		change.UnderstandingAfter = level
		change.WasEffective = level.Ordinal() > change.UnderstandingBefore.Ordinal()
	}

	state.UnderstandingLevel = level
	state.UnderstandingReasoning = reply.Reasoning
	state.UnderstandingTrajectory = append(state.UnderstandingTrajectory, level)
	state.NeedsDeeper = reply.NeedsDeeper && level != domain.LevelComplete
	return nil
}
