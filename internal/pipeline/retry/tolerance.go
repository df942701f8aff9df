package retry

import "fmt"

// ToleranceType selects the global failure tolerance policy for an operator.
type ToleranceType string

const (
	// ToleranceNone stops the pipeline at the first recorded failure.
	ToleranceNone ToleranceType = "none"
	// ToleranceAll never stops the pipeline for failures; they are still
	// counted and reported.
	ToleranceAll ToleranceType = "all"
)

// ParseToleranceType validates a configured tolerance value. An unknown value
// is a configuration error and must be rejected at construction time.
func ParseToleranceType(s string) (ToleranceType, error) {
	switch ToleranceType(s) {
	case ToleranceNone:
		return ToleranceNone, nil
	case ToleranceAll:
		return ToleranceAll, nil
	default:
		return "", fmt.Errorf("unknown tolerance type: %q", s)
	}
}

// The two policies are deliberately separate functions so the none/all
// behavior stays self-evident under review.

func noneWithinLimits(totalFailures int64) bool {
	return totalFailures == 0
}

func allWithinLimits(int64) bool {
	return true
}
