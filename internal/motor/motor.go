// Package motor provides actuator drivers for bidirectional DC motors.
package motor

// Driver is the contract for a bidirectional motor actuator.
// Duty values are in (0, 1]. Calls are synchronous and safe to repeat
// with the same value. A motor must only ever be driven from a single
// goroutine so that command ordering on the device is preserved.
type Driver interface {
	DriveForward(duty float64) error
	DriveBackward(duty float64) error
	Stop() error
}
