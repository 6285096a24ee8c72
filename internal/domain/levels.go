// Package domain defines the core types for adaptive teaching sessions.
package domain

// Level is a categorical assessment of how well the student grasps the
// current concept. Levels are ordered: none < partial < mostly < complete.
type Level string

const (
	LevelNone     Level = "none"
	LevelPartial  Level = "partial"
	LevelMostly   Level = "mostly"
	LevelComplete Level = "complete"
)

var levelOrder = map[Level]int{
	LevelNone:     0,
	LevelPartial:  1,
	LevelMostly:   2,
	LevelComplete: 3,
}

// Ordinal returns the position of the level in the none→complete ordering.
// Unknown levels map to 0.
func (l Level) Ordinal() int {
	return levelOrder[l]
}

// Valid reports whether l is one of the four known levels.
func (l Level) Valid() bool {
	_, ok := levelOrder[l]
	return ok
}

// Strategy is the teaching approach selected for the next exchange.
type Strategy string

const (
	StrategyContinue         Strategy = "continue"
	StrategyTryDifferent     Strategy = "try_different"
	StrategyScaffold         Strategy = "scaffold"
	StrategyGiveHint         Strategy = "give_hint"
	StrategySummarizeAdvance Strategy = "summarize_advance"
)

// TeacherMode adjusts the tone of generated teacher messages.
type TeacherMode string

const (
	ModeEncouraging TeacherMode = "encouraging"
	ModeChallenging TeacherMode = "challenging"
	ModeSimplifying TeacherMode = "simplifying"
)

// TrajectoryStatus classifies the understanding trend for the current concept.
type TrajectoryStatus string

const (
	TrajectoryImproving  TrajectoryStatus = "improving"
	TrajectoryStagnating TrajectoryStatus = "stagnating"
	TrajectoryRegressing TrajectoryStatus = "regressing"
)

// Role identifies the author of a conversation message.
type Role string

const (
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"
)
