package engine

import (
	"errors"
	"fmt"
	"math"

	"carewatch-alert/internal/models"
)

// ErrInvalidRule marks a rule definition the engine refuses to evaluate:
// unknown comparator kind or a violated BETWEEN bound invariant. Rule
// writes are validated with CompileComparator, so the evaluator should
// never see one of these at runtime.
var ErrInvalidRule = errors.New("invalid alert rule definition")

// equalsTolerance is the float tolerance for EQUALS rules. Measured values
// are never compared with exact float equality.
const equalsTolerance = 0.01

// Comparator is one compiled rule predicate over a measured value.
// The four kinds form a closed set; CompileComparator is the only
// constructor, which keeps unknown kinds out of the evaluation path.
type Comparator interface {
	Triggers(value float64) bool
}

type greaterThan struct {
	threshold float64
}

func (c greaterThan) Triggers(value float64) bool {
	return value > c.threshold
}

type lessThan struct {
	threshold float64
}

func (c lessThan) Triggers(value float64) bool {
	return value < c.threshold
}

// between is inclusive on both ends.
type between struct {
	low  float64
	high float64
}

func (c between) Triggers(value float64) bool {
	return value >= c.low && value <= c.high
}

type equals struct {
	threshold float64
}

func (c equals) Triggers(value float64) bool {
	return math.Abs(value-c.threshold) < equalsTolerance
}

// CompileComparator validates the rule's comparator definition and returns
// its predicate. BETWEEN requires threshold_max with threshold <= threshold_max;
// bounds are never silently swapped.
func CompileComparator(rule models.AlertRule) (Comparator, error) {
	switch rule.Comparator {
	case models.CompareGreaterThan:
		return greaterThan{threshold: rule.Threshold}, nil
	case models.CompareLessThan:
		return lessThan{threshold: rule.Threshold}, nil
	case models.CompareBetween:
		if rule.ThresholdMax == nil {
			return nil, fmt.Errorf("%w: BETWEEN requires threshold_max", ErrInvalidRule)
		}
		if rule.Threshold > *rule.ThresholdMax {
			return nil, fmt.Errorf("%w: BETWEEN threshold %v exceeds threshold_max %v",
				ErrInvalidRule, rule.Threshold, *rule.ThresholdMax)
		}
		return between{low: rule.Threshold, high: *rule.ThresholdMax}, nil
	case models.CompareEquals:
		return equals{threshold: rule.Threshold}, nil
	default:
		return nil, fmt.Errorf("%w: unknown comparator %q", ErrInvalidRule, rule.Comparator)
	}
}
