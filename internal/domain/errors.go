package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the failure kinds surfaced to callers. Validation
// failures are returned as *ValidationError wrapping one of these, so callers
// match with errors.Is and read the offending value with errors.As.
var (
	ErrUnknownDistrict        = errors.New("unknown district")
	ErrUnknownCrop            = errors.New("unknown crop")
	ErrInvalidCropForDistrict = errors.New("crop not grown in district")
	ErrInvalidForecastHorizon = errors.New("invalid forecast horizon")
	ErrIncompleteForecastData = errors.New("incomplete forecast data")
	ErrUnsupportedChannel     = errors.New("unsupported channel")
	ErrEnhancementUnavailable = errors.New("enhancement unavailable")
	ErrInvalidDate            = errors.New("invalid date")
)

// ValidationError reports an input that failed validation together with the
// values that would have been accepted.
type ValidationError struct {
	Err   error
	Value string
	Valid []string
}

func (e *ValidationError) Error() string {
	if len(e.Valid) == 0 {
		return fmt.Sprintf("%v: %q", e.Err, e.Value)
	}
	return fmt.Sprintf("%v: %q (valid: %s)", e.Err, e.Value, strings.Join(e.Valid, ", "))
}

func (e *ValidationError) Unwrap() error { return e.Err }

// NewValidationError builds a ValidationError. The valid slice is copied.
func NewValidationError(kind error, value string, valid []string) *ValidationError {
	return &ValidationError{
		Err:   kind,
		Value: value,
		Valid: append([]string(nil), valid...),
	}
}

// incompleteForecast is a shorthand for forecast data problems that have no
// enumerable set of valid values.
func incompleteForecast(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrIncompleteForecastData, fmt.Sprintf(format, args...))
}
