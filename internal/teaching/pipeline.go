// Package teaching implements the adaptive teaching pipeline: content
// loading, teacher message generation, understanding evaluation,
// trajectory analysis and strategy selection.
//
// The pipeline is resumable: execution pauses after the teacher stage
// to await student input, and the caller persists the session state
// after every stage so a process restart between teacher and evaluator
// loses nothing.
package teaching

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ashureev/simtutor/internal/domain"
	"github.com/ashureev/simtutor/internal/llm"
	"github.com/ashureev/simtutor/internal/simulation"
)

// Config holds the teaching guardrails.
type Config struct {
	// MaxExchanges is the absolute per-concept exchange ceiling. Once
	// reached the concept is advanced regardless of understanding, so
	// sessions always terminate.
	MaxExchanges int
	// ScaffoldTrigger is the stagnant-exchange count after which the
	// concept is broken into smaller parts.
	ScaffoldTrigger int
	// Temperature for teacher and content-extraction calls. The
	// evaluator always runs at a lower temperature for consistency.
	Temperature float32
}

// DefaultConfig returns the default guardrails.
func DefaultConfig() Config {
	return Config{
		MaxExchanges:    6,
		ScaffoldTrigger: 3,
		Temperature:     0.7,
	}
}

const evalTemperature = 0.3

// Checkpoint persists the session state after a stage completes.
type Checkpoint func(ctx context.Context, state *domain.TeachingState) error

// Pipeline drives the teaching stages for one session at a time. It is
// stateless between calls; everything lives in the TeachingState.
type Pipeline struct {
	gen llm.Generator
	cfg Config
}

// New creates a pipeline. Zero config fields fall back to defaults.
func New(gen llm.Generator, cfg Config) *Pipeline {
	def := DefaultConfig()
	if cfg.MaxExchanges <= 0 {
		cfg.MaxExchanges = def.MaxExchanges
	}
	if cfg.ScaffoldTrigger <= 0 {
		cfg.ScaffoldTrigger = def.ScaffoldTrigger
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = def.Temperature
	}
	return &Pipeline{gen: gen, cfg: cfg}
}

// Advance runs the pipeline from a fresh state until the teacher has
// produced a message and execution suspends awaiting student input.
func (p *Pipeline) Advance(ctx context.Context, state *domain.TeachingState, sim *simulation.Simulation, save Checkpoint) error {
	if len(state.Concepts) == 0 {
		p.loadContent(ctx, state, sim)
		if err := save(ctx, state); err != nil {
			return fmt.Errorf("checkpoint after content loader: %w", err)
		}
	}

	if err := p.teach(ctx, state, sim); err != nil {
		return err
	}
	if err := save(ctx, state); err != nil {
		return fmt.Errorf("checkpoint after teacher: %w", err)
	}
	return nil
}

// Resume amends the suspended state with the student's input and runs
// evaluator → trajectory analyzer → strategy selector, then loops back
// into the teacher unless the session has completed.
func (p *Pipeline) Resume(ctx context.Context, state *domain.TeachingState, sim *simulation.Simulation, input string, save Checkpoint) error {
	state.StudentResponse = input
	state.WaitingForInput = false

	if err := p.evaluate(ctx, state); err != nil {
		return err
	}
	if err := save(ctx, state); err != nil {
		return fmt.Errorf("checkpoint after evaluator: %w", err)
	}

	p.analyzeTrajectory(state)
	if err := save(ctx, state); err != nil {
		return fmt.Errorf("checkpoint after trajectory analyzer: %w", err)
	}

	p.selectStrategy(state)
	if err := save(ctx, state); err != nil {
		return fmt.Errorf("checkpoint after strategy selector: %w", err)
	}

	if state.SessionComplete {
		slog.Info("session complete", "session_id", state.SessionID)
		return nil
	}

	if err := p.teach(ctx, state, sim); err != nil {
		return err
	}
	if err := save(ctx, state); err != nil {
		return fmt.Errorf("checkpoint after teacher: %w", err)
	}
	return nil
}
