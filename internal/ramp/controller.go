// Package ramp smooths speed changes for bidirectional DC motors.
//
// A [Controller] accepts target speeds in [-1.0, 1.0] and walks the
// commanded duty cycle toward the target in bounded increments at a fixed
// cadence, instead of snapping directly. This limits inrush current and
// back-EMF transients when the requested speed jumps. The controller is
// open loop: it shapes the command over time and learns nothing from the
// physical motor.
package ramp

import (
	"log"
	"math"
	"sync"
	"time"

	"github.com/ClassTech/SmoothedMotor/internal/motor"
)

const (
	// DefaultStepSize is the maximum speed change applied per tick.
	DefaultStepSize = 0.05

	// DefaultTickInterval is the period between ramp steps.
	DefaultTickInterval = 20 * time.Millisecond
)

// Config holds ramp tuning parameters. The zero value selects defaults.
type Config struct {
	StepSize     float64       // max change per tick, must be > 0
	TickInterval time.Duration // period between steps, must be > 0

	// OnFault observes actuator command failures. The failed step is
	// retried on the next tick. When nil, faults go to the stdlib log.
	OnFault func(error)
}

// Controller ramps a motor toward a target speed in a background
// goroutine. Callers set the target with SetSpeed and never block on the
// ramp's physical progress; only Shutdown blocks, and only until the
// worker has issued its final stop and exited.
//
// Every Controller owner must call Shutdown before releasing it,
// typically with defer, so the motor is always left commanded stopped.
type Controller struct {
	drv      motor.Driver
	step     float64
	interval time.Duration
	onFault  func(error)

	mu      sync.Mutex
	target  float64
	current float64

	done     chan struct{}
	finished chan struct{}
	closing  sync.Once
	finalErr error
}

// New creates a Controller and starts its ramping goroutine. Both speed
// registers start at 0. New never blocks on the worker.
func New(drv motor.Driver, cfg Config) *Controller {
	if cfg.StepSize <= 0 {
		cfg.StepSize = DefaultStepSize
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = DefaultTickInterval
	}
	if cfg.OnFault == nil {
		cfg.OnFault = func(err error) { log.Printf("%v", err) }
	}
	c := &Controller{
		drv:      drv,
		step:     cfg.StepSize,
		interval: cfg.TickInterval,
		onFault:  cfg.OnFault,
		done:     make(chan struct{}),
		finished: make(chan struct{}),
	}
	go c.run()
	return c
}

// SetSpeed sets the target speed, from -1.0 (full reverse) to 1.0 (full
// forward). Finite values outside that range are clamped. NaN and Inf are
// rejected with ErrInvalidSpeed and leave the target unchanged. The motor
// is not touched here; convergence happens on the following ticks.
// Safe to call from any goroutine; last write wins.
func (c *Controller) SetSpeed(speed float64) error {
	if math.IsNaN(speed) || math.IsInf(speed, 0) {
		return ErrInvalidSpeed
	}
	speed = clamp(speed, -1, 1)
	c.mu.Lock()
	c.target = speed
	c.mu.Unlock()
	return nil
}

// Stop ramps the motor down to zero. It returns immediately; the ramp
// down still takes ceil(|current|/step) ticks.
func (c *Controller) Stop() {
	c.SetSpeed(0)
}

// Speeds returns the last commanded speed and the current target.
func (c *Controller) Speeds() (current, target float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current, c.target
}

// Shutdown terminates the ramping goroutine and blocks until it has
// issued its final stop command and exited. The motor is always left
// commanded stopped, whatever the ramp state was. Calling Shutdown again
// is a no-op that returns the same result. The returned error is the
// final stop command's failure, if any.
func (c *Controller) Shutdown() error {
	c.closing.Do(func() { close(c.done) })
	<-c.finished
	return c.finalErr
}

// run is the ramping loop. It owns current exclusively and is the only
// goroutine that touches the driver.
func (c *Controller) run() {
	defer close(c.finished)
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			// Unconditional, independent of ramp state.
			if err := c.drv.Stop(); err != nil {
				c.finalErr = &FaultError{Wrapped: err}
				c.onFault(c.finalErr)
			}
			return
		case <-ticker.C:
			if err := c.tick(); err != nil {
				c.onFault(err)
			}
		}
	}
}

// tick moves current one bounded step toward target and commands the
// motor. Already at target means no command at all. On a driver fault
// current is not advanced, so the same step is retried next tick.
func (c *Controller) tick() error {
	c.mu.Lock()
	target, current := c.target, c.current
	c.mu.Unlock()

	if current == target {
		return nil
	}
	// Move at most one step, landing exactly on target when within reach.
	next := target
	if delta := target - current; delta > c.step {
		next = current + c.step
	} else if delta < -c.step {
		next = current - c.step
	}

	var err error
	switch {
	case next > 0:
		err = c.drv.DriveForward(next)
	case next < 0:
		err = c.drv.DriveBackward(-next)
	default:
		err = c.drv.Stop()
	}
	if err != nil {
		return &FaultError{Duty: math.Abs(next), Wrapped: err}
	}

	c.mu.Lock()
	c.current = next
	c.mu.Unlock()
	return nil
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
