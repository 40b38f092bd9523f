/*
errors.go - Validation error taxonomy for the scheduling engine

ERROR CATEGORIES:
  1. Validation errors - business rule violations; recoverable by the
     caller correcting input, never retried automatically
  2. Persistence errors live in the payroll package, next to the Store
     contract that raises them

USAGE:
  Callers branch on the code:

    var verr *schedule.ValidationError
    if errors.As(err, &verr) && verr.Code == schedule.CodeEmptyWeekdaySet {
        ...
    }
*/
package schedule

import (
	"errors"
	"fmt"
)

// =============================================================================
// VALIDATION ERRORS
// =============================================================================

// ValidationErrorCode identifies which rule was violated.
type ValidationErrorCode string

const (
	CodeInvalidDuration         ValidationErrorCode = "invalid_duration"
	CodeInvalidBreak            ValidationErrorCode = "invalid_break"
	CodeInvalidRateMultiplier   ValidationErrorCode = "invalid_rate_multiplier"
	CodeEmptyWeekdaySet         ValidationErrorCode = "empty_weekday_set"
	CodeEmptyRotationCycle      ValidationErrorCode = "empty_rotation_cycle"
	CodeInactivePattern         ValidationErrorCode = "inactive_pattern"
	CodeOverlappingShift        ValidationErrorCode = "overlapping_shift"
	CodeInvalidStatusTransition ValidationErrorCode = "invalid_status_transition"
)

// ValidationError is a creation-time or edit-time rule violation.
type ValidationError struct {
	Code    ValidationErrorCode
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}

// CodeOf returns the validation code carried by err, or "" if err is not
// a validation error.
func CodeOf(err error) ValidationErrorCode {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr.Code
	}
	return ""
}
