package ramp

import (
	"errors"
	"fmt"
)

// ErrInvalidSpeed indicates a non-finite speed (NaN or Inf) was requested.
var ErrInvalidSpeed = errors.New("ramp: invalid speed (NaN or Inf)")

// FaultError wraps an actuator command failure with the duty cycle that
// was being commanded when it occurred.
type FaultError struct {
	Duty    float64
	Wrapped error
}

func (e *FaultError) Error() string {
	return fmt.Sprintf("ramp: actuator fault at duty %.3f: %v", e.Duty, e.Wrapped)
}

func (e *FaultError) Unwrap() error {
	return e.Wrapped
}
