package teaching

import (
	"log/slog"

	"github.com/ashureev/simtutor/internal/domain"
)

// analyzeTrajectory classifies the understanding trend for the current
// concept by comparing the two most recent ratings. Fewer than two
// ratings is treated as improving so a fresh concept starts neutral.
func (p *Pipeline) analyzeTrajectory(state *domain.TeachingState) {
	trajectory := state.UnderstandingTrajectory
	if len(trajectory) < 2 {
		state.TrajectoryStatus = domain.TrajectoryImproving
		return
	}

	last := trajectory[len(trajectory)-1].Ordinal()
	prev := trajectory[len(trajectory)-2].Ordinal()
	switch {
	case last > prev:
		state.TrajectoryStatus = domain.TrajectoryImproving
	case last < prev:
		state.TrajectoryStatus = domain.TrajectoryRegressing
	default:
		state.TrajectoryStatus = domain.TrajectoryStagnating
	}
}

// selectStrategy picks the teaching approach for the next exchange and
// advances the concept when it is mastered or the exchange ceiling is
// hit. Advancing past the final concept leaves the closing message to
// the teacher stage, which also marks the session complete.
func (p *Pipeline) selectStrategy(state *domain.TeachingState) {
	state.ConceptComplete = false

	switch {
	case state.UnderstandingLevel == domain.LevelComplete:
		slog.Info("concept mastered",
			"session_id", state.SessionID, "concept_index", state.CurrentConceptIndex)
		state.AdvanceConcept()
		state.Strategy = domain.StrategyContinue
		state.TeacherMode = domain.ModeEncouraging
		return

	case state.ExchangeCount >= p.cfg.MaxExchanges:
		// Hard ceiling: move on regardless of understanding so a stuck
		// concept cannot trap the session.
		slog.Info("exchange ceiling reached, advancing concept",
			"session_id", state.SessionID, "concept_index", state.CurrentConceptIndex,
			"understanding", state.UnderstandingLevel)
		state.AdvanceConcept()
		state.Strategy = domain.StrategySummarizeAdvance
		state.TeacherMode = domain.ModeEncouraging
		return
	}

	switch state.TrajectoryStatus {
	case domain.TrajectoryRegressing:
		state.Strategy = domain.StrategyGiveHint
		state.TeacherMode = domain.ModeSimplifying
	case domain.TrajectoryStagnating:
		if state.ExchangeCount >= p.cfg.ScaffoldTrigger {
			state.Strategy = domain.StrategyScaffold
			state.TeacherMode = domain.ModeSimplifying
		} else {
			state.Strategy = domain.StrategyTryDifferent
			state.TeacherMode = domain.ModeEncouraging
		}
	default:
		state.Strategy = domain.StrategyContinue
		if state.UnderstandingLevel == domain.LevelMostly {
			state.TeacherMode = domain.ModeChallenging
		} else {
			state.TeacherMode = domain.ModeEncouraging
		}
	}
}
