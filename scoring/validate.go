package scoring

import (
	"errors"
	"fmt"
	"math"
)

// ErrValidation matches every rejection returned by ValidateDeltas.
var ErrValidation = errors.New("round validation failed")

type Reason string

const (
	ReasonAllZero    Reason = "all_zero"
	ReasonNonZeroSum Reason = "non_zero_sum"
)

// ValidationError is a user-correctable rejection of a proposed round or
// chip event. Sum is set for ReasonNonZeroSum and clamped to the int range
// when the exact sum does not fit.
type ValidationError struct {
	Reason Reason
	Sum    int
}

func (e *ValidationError) Error() string {
	switch e.Reason {
	case ReasonAllZero:
		return "all values are zero"
	case ReasonNonZeroSum:
		return fmt.Sprintf("values sum to %+d, expected 0", e.Sum)
	default:
		return string(e.Reason)
	}
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// IsAllZero reports whether err is an all-zero rejection.
func IsAllZero(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve) && ve.Reason == ReasonAllZero
}

// IsNonZeroSum reports whether err is a non-zero-sum rejection.
func IsNonZeroSum(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve) && ve.Reason == ReasonNonZeroSum
}

// ValidateDeltas checks a round's (or chip event's) per-player values:
// at least one must be non-zero, and they must sum to exactly zero.
func ValidateDeltas(values []int) error {
	allZero := true
	// carry считает переполнения int, точная сумма равна нулю только при carry == 0
	sum, carry := 0, 0
	for _, v := range values {
		if v != 0 {
			allZero = false
		}
		next := sum + v
		switch {
		case v > 0 && next < sum:
			carry++
		case v < 0 && next > sum:
			carry--
		}
		sum = next
	}
	if allZero {
		return &ValidationError{Reason: ReasonAllZero}
	}
	switch {
	case carry > 0:
		return &ValidationError{Reason: ReasonNonZeroSum, Sum: math.MaxInt}
	case carry < 0:
		return &ValidationError{Reason: ReasonNonZeroSum, Sum: math.MinInt}
	case sum != 0:
		return &ValidationError{Reason: ReasonNonZeroSum, Sum: sum}
	}
	return nil
}
