package teaching

import (
	"context"
	"fmt"
	"strings"

	"github.com/ashureev/simtutor/internal/domain"
	"github.com/ashureev/simtutor/internal/llm"
	"github.com/ashureev/simtutor/internal/simulation"
)

// teacherReply is the JSON shape the teacher prompt asks the model for.
type teacherReply struct {
	TeacherMessage      string   `json:"teacher_message"`
	SuggestsParamChange bool     `json:"suggests_param_change"`
	ParamToChange       string   `json:"param_to_change"`
	NewValue            *float64 `json:"new_value"`
	ChangeReason        string   `json:"change_reason"`
	PredictionQuestion  string   `json:"prediction_question"`
}

// paramChangeThreshold is the exchange count at which a parameter
// change becomes mandatory while understanding is still low.
const paramChangeThreshold = 2

// teach generates the next teacher message. When all concepts are done
// it emits the closing message without a model call and marks the
// session complete.
func (p *Pipeline) teach(ctx context.Context, state *domain.TeachingState, sim *simulation.Simulation) error {
	if state.AllConceptsDone() {
		state.LastTeacherMessage = fmt.Sprintf(
			"Excellent work! We've covered all the key concepts. You've done a wonderful job exploring %s!",
			sim.Title)
		state.SessionComplete = true
		state.WaitingForInput = false
		state.ConceptTransition = false
		state.AsksForReasoning = false
		state.AddMessage(domain.RoleTeacher, state.LastTeacherMessage)
		return nil
	}

	concept := state.CurrentConcept()
	needsDeeper := state.NeedsDeeper

	systemPrompt := p.buildSystemPrompt(state, sim)
	userPrompt := p.buildUserPrompt(state, sim, concept, needsDeeper)

	raw, err := p.gen.Generate(ctx, llm.Request{
		System:      systemPrompt,
		Prompt:      userPrompt,
		Temperature: p.cfg.Temperature,
	})
	if err != nil {
		return fmt.Errorf("teacher generation: %w", err)
	}

	// Malformed model output never crosses the stage boundary: the raw
	// text becomes the message and no parameter change is recorded.
	var reply teacherReply
	if parseErr := llm.ExtractJSON(raw, &reply); parseErr != nil || reply.TeacherMessage == "" {
		reply = teacherReply{TeacherMessage: raw}
	}

	state.LastTeacherMessage = reply.TeacherMessage
	state.ConceptTransition = state.ExchangeCount == 0 && state.PreviousConcept() != nil
	state.AsksForReasoning = needsDeeper
	state.WaitingForInput = true
	state.NeedsDeeper = false
	state.AddMessage(domain.RoleTeacher, reply.TeacherMessage)
	state.ExchangeCount++

	if reply.SuggestsParamChange && reply.ParamToChange != "" && reply.NewValue != nil {
		p.applyParamChange(state, &reply)
	}
	return nil
}

func (p *Pipeline) applyParamChange(state *domain.TeachingState, reply *teacherReply) {
	reason := reply.ChangeReason
	if reason == "" {
		reason = "To illustrate the concept"
	}
	change := domain.ParameterChange{
		Parameter:           reply.ParamToChange,
		OldValue:            state.ParamFloat(reply.ParamToChange),
		NewValue:            *reply.NewValue,
		Reason:              reason,
		PredictionAsked:     reply.PredictionQuestion,
		UnderstandingBefore: state.UnderstandingLevel,
	}
	state.CurrentParams[reply.ParamToChange] = *reply.NewValue
	state.ParameterHistory = append(state.ParameterHistory, change)
}

func (p *Pipeline) buildSystemPrompt(state *domain.TeachingState, sim *simulation.Simulation) string {
	var b strings.Builder

	fmt.Fprintf(&b, `You are a warm, engaging physics teacher named Alex. You're teaching a student about %s through an interactive simulation.

YOUR PERSONALITY:
- Warm, patient, and genuinely interested in helping students learn
- Uses analogies and real-world examples
- Celebrates small wins and acknowledges effort
- Never makes students feel bad for wrong answers
- Asks thought-provoking questions rather than just telling

YOUR TEACHING MODE: %s
%s

CURRENT TEACHING STRATEGY: %s
%s

SIMULATION INFO:
Current parameters: %s

Available parameters:
`, sim.Title, strings.ToUpper(string(state.TeacherMode)), modeInstruction(state.TeacherMode),
		state.Strategy, strategyInstruction(state.Strategy), formatCurrentParams(state, sim))

	for _, param := range sim.Parameters {
		fmt.Fprintf(&b, "- %s: %s (%s)\n", param.Name, param.Range, param.Effect)
	}

	if len(sim.CannotDemonstrate) > 0 {
		b.WriteString("\nIMPORTANT - DO NOT MENTION THESE (not in this simulation):\n")
		for _, item := range sim.CannotDemonstrate {
			fmt.Fprintf(&b, "- %s\n", item)
		}
	}

	b.WriteString(`
CRITICAL RULES FOR ASKING QUESTIONS:
1. ALWAYS end with ONE specific, answerable question
2. Give options when asking for predictions: "Will it swing faster or slower?"
3. Be explicit about what you want: "What do you think will happen to the TIME it takes?"
4. Avoid vague prompts like "what do you think?" without context
5. Keep responses concise (2-3 sentences + 1 clear question)
6. When suggesting a parameter change, ask for prediction with options FIRST
7. Use "friend" occasionally for warmth

EXAMPLES OF GOOD SPECIFIC QUESTIONS:
- "If we make the pendulum longer, will it swing faster or slower?"
- "What do you think happens to the time period - does it increase or decrease?"
- "That's right! Can you tell me WHY the period gets longer with more length?"

EXAMPLES OF BAD VAGUE QUESTIONS (AVOID):
- "What do you think about that?"
- "Interesting, isn't it?"
- "What comes to mind?"
`)
	return b.String()
}

func (p *Pipeline) buildUserPrompt(state *domain.TeachingState, sim *simulation.Simulation, concept *domain.Concept, needsDeeper bool) string {
	if state.ExchangeCount == 0 {
		if prev := state.PreviousConcept(); prev != nil {
			return transitionPrompt(prev, concept)
		}
		return introductionPrompt(concept)
	}
	return p.continuationPrompt(state, concept, needsDeeper)
}

func introductionPrompt(concept *domain.Concept) string {
	return fmt.Sprintf(`CONCEPT TO TEACH:
Title: %s
Description: %s
Key Insight: %s
Relevant Parameters: %s

This is the START of the lesson. The student hasn't said anything yet.

Generate an engaging introduction that:
1. Introduces what we'll explore
2. Connects to something relatable if possible
3. Ends with a thought-provoking question OR asks for a prediction with options

Return JSON:
{
    "teacher_message": "Your warm, engaging introduction...",
    "suggests_param_change": false,
    "param_to_change": null,
    "new_value": null,
    "prediction_question": null
}
`, concept.Title, concept.Description, concept.KeyInsight, strings.Join(concept.RelatedParams, ", "))
}

func transitionPrompt(prev, concept *domain.Concept) string {
	return fmt.Sprintf(`PREVIOUS CONCEPT (just completed):
Title: %s
Key Insight: %s

NEW CONCEPT TO INTRODUCE:
Title: %s
Key Insight: %s
Relevant Parameters: %s

The student just demonstrated understanding of the previous concept. Your job is to:
1. FIRST: Celebrate and SUMMARIZE what they just learned (1-2 sentences confirming the key insight)
2. THEN: Smoothly transition to the new concept
3. End with a question or prediction about the new concept

Example structure:
"Great job! You've discovered that [key insight from previous concept].
Now let's explore [new concept]. [engaging intro]...
What do you think will happen if [question with options]?"

Return JSON:
{
    "teacher_message": "Your message that summarizes previous + introduces new...",
    "suggests_param_change": false,
    "param_to_change": null,
    "new_value": null,
    "prediction_question": null
}
`, prev.Title, prev.KeyInsight, concept.Title, concept.KeyInsight, strings.Join(concept.RelatedParams, ", "))
}

func (p *Pipeline) continuationPrompt(state *domain.TeachingState, concept *domain.Concept, needsDeeper bool) string {
	var b strings.Builder

	fmt.Fprintf(&b, `CONCEPT BEING TAUGHT:
Title: %s
Key Insight: %s

STUDENT'S UNDERSTANDING LEVEL: %s
EXCHANGE NUMBER: %d
`, concept.Title, concept.KeyInsight, state.UnderstandingLevel, state.ExchangeCount)

	if needsDeeper {
		b.WriteString(`
STUDENT GAVE CORRECT OBSERVATION BUT NO REASONING:
They said WHAT happens correctly, but didn't explain WHY. Your job is to:
1. CELEBRATE their correct observation ("Exactly right!" or "Great observation!")
2. ASK them WHY they think that happens
3. Give a hint if helpful: "Think about the path the pendulum has to travel..."
This is NOT a correction - they're on the right track! Just need them to think deeper.
`)
	}

	fmt.Fprintf(&b, `
PARAMETER CHANGE HISTORY:
%s

RECENT CONVERSATION:
%s

STUDENT'S LATEST RESPONSE: "%s"

CRITICAL RULES - READ CAREFULLY

RULE 1 - HONEST FEEDBACK (NO FALSE PRAISE):
- If understanding is "none" or student said "I don't know": Do NOT say "Great observation!"
- Instead say: "That's okay! Let me help you..." or "No problem, let's figure this out together..."
- ONLY praise when they actually gave a correct answer

RULE 2 - ALWAYS BE SPECIFIC ABOUT WHAT YOU WANT:
Every response MUST end with a CLEAR ACTION for the student. Use these formats:

For PREDICTIONS (before changing parameter):
"I'm going to change the length to 2m. PREDICT: Will the pendulum swing faster or slower?"

For OBSERVATIONS (after changing parameter):
"Watch the simulation now. OBSERVE: What do you notice about the swing speed?"

For EXPLANATIONS:
"EXPLAIN: Why do you think a longer pendulum takes more time?"

RULE 3 - ONE CLEAR QUESTION:
- End with exactly ONE question
- Make it specific with options when possible
- Label it clearly: PREDICT/OBSERVE/EXPLAIN
`, formatParameterHistory(state.ParameterHistory), formatConversation(state.ConversationHistory, 6), state.StudentResponse)

	switch {
	case needsDeeper:
		b.WriteString("\nThey gave a correct observation! Celebrate it, then ask them to EXPLAIN why.\n")
	case state.UnderstandingLevel == domain.LevelComplete:
		b.WriteString("\nThey understand well - acknowledge success and move forward!\n")
	case state.UnderstandingLevel == domain.LevelNone:
		b.WriteString("\nThey don't know yet - that's okay! Help them by changing a parameter and asking them to OBSERVE or PREDICT.\n")
	case state.UnderstandingLevel == domain.LevelPartial:
		b.WriteString("\nThey're trying but not quite right - guide them with a clearer question.\n")
	}

	mustChange := state.ExchangeCount >= paramChangeThreshold &&
		(state.UnderstandingLevel == domain.LevelNone || state.UnderstandingLevel == domain.LevelPartial)

	fmt.Fprintf(&b, `
RULE 4 - USE PARAMETER CHANGES TO TEACH (MANDATORY!)
The simulation is your BEST teaching tool! When the student is stuck:

IF exchange >= %d OR understanding is "none":
You MUST change a parameter to help them SEE the concept!

Example flow:
1. "Let me show you! I'm changing the length from 1m to 2m."
2. "OBSERVE: Watch the pendulum now. Does it swing faster or slower than before?"

Current concept: %s
Related parameters: %s
`, paramChangeThreshold, concept.Title, strings.Join(concept.RelatedParams, ", "))

	suggestsValue := "true/false"
	if mustChange {
		suggestsValue = "true (REQUIRED when student stuck!)"
		fmt.Fprintf(&b, `
IMPORTANT: exchange count is %d and understanding is %q:
   SET suggests_param_change = true
   PICK a relevant parameter from the concept's related parameters
   GIVE a reasonable new value
`, state.ExchangeCount, state.UnderstandingLevel)
	}

	fmt.Fprintf(&b, `
Return JSON:
{
    "teacher_message": "Your response ending with a clear PREDICT/OBSERVE/EXPLAIN question...",
    "suggests_param_change": %s,
    "param_to_change": "parameter name or null",
    "new_value": number or null,
    "change_reason": "Why this change helps learning",
    "prediction_question": "What do you think will happen if...? (if suggesting change)"
}
`, suggestsValue)

	return b.String()
}

func modeInstruction(mode domain.TeacherMode) string {
	switch mode {
	case domain.ModeSimplifying:
		return "- Be extra supportive and break things down simply"
	case domain.ModeChallenging:
		return "- Gently push the student to think deeper"
	default:
		return "- Celebrate progress and build confidence"
	}
}

func strategyInstruction(strategy domain.Strategy) string {
	switch strategy {
	case domain.StrategyTryDifferent:
		return "- Try a different explanation style or analogy"
	case domain.StrategyScaffold:
		return "- Break this down into smaller, simpler parts"
	case domain.StrategyGiveHint:
		return "- Give a more direct hint to guide them"
	case domain.StrategySummarizeAdvance:
		return "- Summarize the key point and prepare to move on"
	default:
		return "- Continue with your current approach, it's working"
	}
}

func formatCurrentParams(state *domain.TeachingState, sim *simulation.Simulation) string {
	parts := make([]string, 0, len(sim.Parameters))
	for _, param := range sim.Parameters {
		value, ok := state.CurrentParams[param.Name]
		if !ok {
			value = sim.InitialParams[param.Name]
		}
		parts = append(parts, fmt.Sprintf("%s=%v", param.Label, value))
	}
	return strings.Join(parts, ", ")
}

func formatParameterHistory(history []domain.ParameterChange) string {
	if len(history) == 0 {
		return "No parameter changes yet."
	}
	var b strings.Builder
	for i, change := range history {
		effectiveness := "Didn't help"
		if change.WasEffective {
			effectiveness = "Helped"
		}
		reaction := change.StudentReaction
		if reaction == "" {
			reaction = "N/A"
		}
		fmt.Fprintf(&b, "%d. Changed %s: %v -> %v\n   Reason: %s\n   Student reaction: %s\n   Result: %s\n",
			i+1, change.Parameter, change.OldValue, change.NewValue, change.Reason, reaction, effectiveness)
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatConversation(history []domain.Message, lastN int) string {
	if len(history) == 0 {
		return "No conversation yet - this is the start."
	}
	recent := history
	if len(recent) > lastN {
		recent = recent[len(recent)-lastN:]
	}
	var b strings.Builder
	for _, msg := range recent {
		role := "Teacher"
		if msg.Role == domain.RoleStudent {
			role = "Student"
		}
		fmt.Fprintf(&b, "%s: %s\n", role, msg.Content)
	}
	return strings.TrimRight(b.String(), "\n")
}
