// Package quiz implements rule-based evaluation of quiz-style numeric
// submissions against declarative success rules. Everything here is
// pure and deterministic; no model calls are involved.
package quiz

import (
	"fmt"
	"strconv"
	"strings"
)

// Status labels the outcome of a quiz evaluation.
type Status string

const (
	StatusRight          Status = "RIGHT"
	StatusPartiallyRight Status = "PARTIALLY_RIGHT"
	StatusWrong          Status = "WRONG"
)

// floatEqEpsilon is the tolerance used for == and != comparisons.
const floatEqEpsilon = 0.01

// Default optimization tolerances, expressed as fractions of the
// parameter range.
const (
	DefaultTolerancePerfect = 0.15
	DefaultTolerancePartial = 0.35
)

// DefaultMaxAttempts is the retry ceiling when a rule does not set one.
const DefaultMaxAttempts = 3

// Condition is one parameter/operator/threshold triple. All conditions
// in a rule are AND-combined.
type Condition struct {
	Parameter string  `json:"parameter"`
	Operator  string  `json:"operator"`
	Value     float64 `json:"value"`
}

// OptimizationTarget asks for a single parameter to be pushed toward
// one end of its declared range.
type OptimizationTarget struct {
	Parameter string `json:"parameter"`
	Objective string `json:"objective"` // "minimize" or "maximize"
}

// Tolerances override the default optimization tolerance bands.
type Tolerances struct {
	Perfect float64 `json:"perfect"`
	Partial float64 `json:"partial"`
}

// Scoring maps outcomes to numeric scores. Each field defaults
// independently when absent (1.0 / 0.5 / 0.0); an explicit value,
// including 0, is honored.
type Scoring struct {
	Perfect *float64 `json:"perfect,omitempty"`
	Partial *float64 `json:"partial,omitempty"`
	Wrong   *float64 `json:"wrong,omitempty"`
}

type resolvedScoring struct {
	Perfect, Partial, Wrong float64
}

func (s Scoring) orDefaults() resolvedScoring {
	out := resolvedScoring{Perfect: 1.0, Partial: 0.5, Wrong: 0.0}
	if s.Perfect != nil {
		out.Perfect = *s.Perfect
	}
	if s.Partial != nil {
		out.Partial = *s.Partial
	}
	if s.Wrong != nil {
		out.Wrong = *s.Wrong
	}
	return out
}

// SuccessRule is a declarative specification of what counts as a
// correct quiz submission.
type SuccessRule struct {
	Conditions         []Condition                   `json:"conditions,omitempty"`
	OptimizationTarget *OptimizationTarget           `json:"optimization_target,omitempty"`
	Thresholds         map[string]map[string]float64 `json:"thresholds,omitempty"` // "perfect" / "partial"
	Tolerances         *Tolerances                   `json:"tolerances,omitempty"`
	Scoring            Scoring                       `json:"scoring,omitempty"`
}

// Evaluate scores a submission against a success rule.
//
// Decision order:
//  1. any failing condition → wrong
//  2. resolvable optimization target → tolerance-band scoring
//  3. explicit perfect/partial threshold tables
//  4. conditions alone, all passed → perfect
//  5. otherwise wrong
func Evaluate(submitted map[string]float64, rule SuccessRule, paramRanges map[string]string) (float64, Status) {
	scoring := rule.Scoring.orDefaults()

	if len(rule.Conditions) > 0 && !checkConditions(submitted, rule.Conditions) {
		return scoring.Wrong, StatusWrong
	}

	if rule.OptimizationTarget != nil && paramRanges != nil {
		target := rule.OptimizationTarget
		value, haveValue := submitted[target.Parameter]
		rangeStr, haveRange := paramRanges[target.Parameter]
		if haveValue && haveRange {
			minVal, maxVal := ParseRange(rangeStr)

			tolPerfect, tolPartial := DefaultTolerancePerfect, DefaultTolerancePartial
			if rule.Tolerances != nil {
				tolPerfect, tolPartial = rule.Tolerances.Perfect, rule.Tolerances.Partial
			}

			optScore, _ := EvaluateOptimization(value, target.Objective, minVal, maxVal, tolPerfect, tolPartial)
			switch {
			case optScore >= 1.0:
				return scoring.Perfect, StatusRight
			case optScore >= 0.5:
				return scoring.Partial, StatusPartiallyRight
			default:
				return scoring.Wrong, StatusWrong
			}
		}
	}

	if len(rule.Thresholds) > 0 {
		if perfect, ok := rule.Thresholds["perfect"]; ok && checkThresholds(submitted, perfect, rule.Conditions) {
			return scoring.Perfect, StatusRight
		}
		if partial, ok := rule.Thresholds["partial"]; ok && checkThresholds(submitted, partial, rule.Conditions) {
			return scoring.Partial, StatusPartiallyRight
		}
		return scoring.Wrong, StatusWrong
	}

	if len(rule.Conditions) > 0 && rule.OptimizationTarget == nil {
		return scoring.Perfect, StatusRight
	}

	return scoring.Wrong, StatusWrong
}

// EvaluateOptimization scores how close a value is to the optimal end
// of its range. Distance is normalized to the range span; within the
// perfect tolerance scores 1.0 ("optimal"), within the partial
// tolerance 0.5 ("close"), otherwise 0.0 ("far").
func EvaluateOptimization(value float64, objective string, minVal, maxVal, tolPerfect, tolPartial float64) (float64, string) {
	span := maxVal - minVal
	if span <= 0 {
		return 0.0, "invalid range"
	}

	var distance float64
	switch objective {
	case "minimize":
		distance = value - minVal
	case "maximize":
		distance = maxVal - value
	default:
		return 0.0, fmt.Sprintf("unknown objective: %s", objective)
	}

	normalized := distance / span
	switch {
	case normalized <= tolPerfect:
		return 1.0, "optimal"
	case normalized <= tolPartial:
		return 0.5, "close"
	default:
		return 0.0, "far"
	}
}

// ParseRange extracts (min, max) from a range string like "1-10 units"
// or "0-100%". Unparseable ranges fall back to 1..10.
func ParseRange(rangeStr string) (float64, float64) {
	fields := strings.Fields(rangeStr)
	if len(fields) == 0 {
		return 1.0, 10.0
	}
	part := strings.TrimSuffix(fields[0], "%")
	minStr, maxStr, found := strings.Cut(part, "-")
	if !found {
		return 1.0, 10.0
	}
	minVal, err1 := strconv.ParseFloat(minStr, 64)
	maxVal, err2 := strconv.ParseFloat(maxStr, 64)
	if err1 != nil || err2 != nil {
		return 1.0, 10.0
	}
	return minVal, maxVal
}

func checkConditions(submitted map[string]float64, conditions []Condition) bool {
	for _, cond := range conditions {
		value, ok := submitted[cond.Parameter]
		if !ok {
			return false
		}
		pass, err := compare(value, cond.Operator, cond.Value)
		if err != nil || !pass {
			return false
		}
	}
	return true
}

// checkThresholds verifies one threshold table. Keys ending in _min or
// _max express range bounds on the base parameter; other keys reuse the
// operator declared for that parameter in the conditions (default >=).
func checkThresholds(submitted map[string]float64, thresholds map[string]float64, conditions []Condition) bool {
	if len(thresholds) == 0 {
		return false
	}

	operators := make(map[string]string, len(conditions))
	for _, cond := range conditions {
		operators[cond.Parameter] = cond.Operator
	}

	for name, threshold := range thresholds {
		switch {
		case strings.HasSuffix(name, "_min"):
			base := strings.TrimSuffix(name, "_min")
			value, ok := submitted[base]
			if !ok || value < threshold {
				return false
			}
		case strings.HasSuffix(name, "_max"):
			base := strings.TrimSuffix(name, "_max")
			value, ok := submitted[base]
			if !ok || value > threshold {
				return false
			}
		default:
			value, ok := submitted[name]
			if !ok {
				return false
			}
			op, ok := operators[name]
			if !ok {
				op = ">="
			}
			pass, err := compare(value, op, threshold)
			if err != nil || !pass {
				return false
			}
		}
	}
	return true
}

func compare(value float64, operator string, threshold float64) (bool, error) {
	switch operator {
	case ">=":
		return value >= threshold, nil
	case "<=":
		return value <= threshold, nil
	case ">":
		return value > threshold, nil
	case "<":
		return value < threshold, nil
	case "==":
		return abs(value-threshold) < floatEqEpsilon, nil
	case "!=":
		return abs(value-threshold) >= floatEqEpsilon, nil
	default:
		return false, fmt.Errorf("unsupported operator: %s", operator)
	}
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
