package quiz

import "fmt"

// HintForAttempt returns the hint matching the attempt number. Hints
// are keyed "attempt_1", "attempt_2", ... If the exact attempt has no
// hint, the closest lower attempt's hint is used; failing that, any
// available hint; failing that, the empty string.
func HintForAttempt(hints map[string]string, attempt int) string {
	if len(hints) == 0 {
		return ""
	}

	for i := attempt; i >= 1; i-- {
		if hint, ok := hints[fmt.Sprintf("attempt_%d", i)]; ok {
			return hint
		}
	}

	// No hint at or below this attempt; fall back to the
	// lowest-numbered hint available.
	first := ""
	firstIdx := -1
	for key, hint := range hints {
		var idx int
		if _, err := fmt.Sscanf(key, "attempt_%d", &idx); err != nil {
			continue
		}
		if firstIdx == -1 || idx < firstIdx {
			firstIdx = idx
			first = hint
		}
	}
	return first
}

// AllowRetry reports whether another attempt is permitted. Attempts
// are 1-based; retries are allowed strictly below the maximum.
func AllowRetry(attempt, maxAttempts int) bool {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return attempt < maxAttempts
}

// Progress summarizes scores across a quiz.
type Progress struct {
	QuestionsCompleted int     `json:"questions_completed"`
	QuestionsRemaining int     `json:"questions_remaining"`
	AverageScore       float64 `json:"average_score"`
	PerfectCount       int     `json:"perfect_count"`
	PartialCount       int     `json:"partial_count"`
	WrongCount         int     `json:"wrong_count"`
	TotalQuestions     int     `json:"total_questions"`
}

// CalculateProgress aggregates per-question scores into quiz-level
// statistics.
func CalculateProgress(scores map[string]float64, totalQuestions int) Progress {
	p := Progress{
		QuestionsCompleted: len(scores),
		QuestionsRemaining: totalQuestions - len(scores),
		TotalQuestions:     totalQuestions,
	}

	var sum float64
	for _, score := range scores {
		sum += score
		switch {
		case score >= 0.99:
			p.PerfectCount++
		case score > 0.4:
			p.PartialCount++
		default:
			p.WrongCount++
		}
	}
	if p.QuestionsCompleted > 0 {
		p.AverageScore = roundTo(sum/float64(p.QuestionsCompleted), 2)
	}
	return p
}

func roundTo(f float64, places int) float64 {
	shift := 1.0
	for i := 0; i < places; i++ {
		shift *= 10
	}
	if f >= 0 {
		return float64(int64(f*shift+0.5)) / shift
	}
	return float64(int64(f*shift-0.5)) / shift
}
