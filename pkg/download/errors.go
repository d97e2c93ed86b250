package download

import (
	"errors"
	"fmt"
)

var (
	ErrNoAreaType       = errors.New("no area type selected")
	ErrNoIndicators     = errors.New("no indicators selected")
	ErrUnknownAreaType  = errors.New("area type has no indicators")
	ErrUnknownIndicator = errors.New("indicator not available")
	ErrBadFormat        = errors.New("invalid output format")
)

// IsValidation reports whether err is a selection problem, as opposed to a
// failure while running the batch.
func IsValidation(err error) bool {
	return errors.Is(err, ErrNoAreaType) ||
		errors.Is(err, ErrNoIndicators) ||
		errors.Is(err, ErrUnknownAreaType) ||
		errors.Is(err, ErrUnknownIndicator) ||
		errors.Is(err, ErrBadFormat)
}

// IndicatorError is the failure of one indicator in a batch.
type IndicatorError struct {
	ID  string
	Op  string
	Err error
}

func (e *IndicatorError) Error() string {
	return fmt.Sprintf("indicator %s: %s: %v", e.ID, e.Op, e.Err)
}

func (e *IndicatorError) Unwrap() error {
	return e.Err
}
