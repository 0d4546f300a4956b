package motor

import (
	"fmt"
	"math"
	"time"

	io "github.com/aamcrae/gpio"
	"github.com/aamcrae/gpio/action"
)

// DefaultPWMPeriod is the software PWM period used when none is configured
// (100Hz, matching common H-bridge drivers).
const DefaultPWMPeriod = 10 * time.Millisecond

// GPIOMotor drives an H-bridge motor driver (e.g. MDD3A) through two GPIO
// pins, one per direction, each behind a software PWM. Driving one direction
// zeroes the opposite pin first so both legs of the bridge are never high
// at the same time.
type GPIOMotor struct {
	fwdPin, bwdPin *io.Gpio
	fwd, bwd       io.PWM
	period         time.Duration
}

// NewGPIOMotor opens the two direction pins as outputs and starts a
// software PWM on each. The pins use GPIO numbering.
func NewGPIOMotor(forwardPin, backwardPin int, period time.Duration) (*GPIOMotor, error) {
	if period <= 0 {
		period = DefaultPWMPeriod
	}
	fp, err := io.OutputPin(forwardPin)
	if err != nil {
		return nil, fmt.Errorf("pin %d: %v", forwardPin, err)
	}
	bp, err := io.OutputPin(backwardPin)
	if err != nil {
		fp.Close()
		return nil, fmt.Errorf("pin %d: %v", backwardPin, err)
	}
	return &GPIOMotor{
		fwdPin: fp,
		bwdPin: bp,
		fwd:    action.NewSwPWM(fp),
		bwd:    action.NewSwPWM(bp),
		period: period,
	}, nil
}

func (m *GPIOMotor) DriveForward(duty float64) error {
	pct, err := dutyPercent(duty)
	if err != nil {
		return err
	}
	if err := m.bwd.Set(m.period, 0); err != nil {
		return err
	}
	return m.fwd.Set(m.period, pct)
}

func (m *GPIOMotor) DriveBackward(duty float64) error {
	pct, err := dutyPercent(duty)
	if err != nil {
		return err
	}
	if err := m.fwd.Set(m.period, 0); err != nil {
		return err
	}
	return m.bwd.Set(m.period, pct)
}

func (m *GPIOMotor) Stop() error {
	if err := m.fwd.Set(m.period, 0); err != nil {
		return err
	}
	return m.bwd.Set(m.period, 0)
}

// Close stops the motor, shuts down the PWM goroutines and releases the pins.
func (m *GPIOMotor) Close() {
	m.Stop()
	m.fwd.Close()
	m.bwd.Close()
	m.fwdPin.Close()
	m.bwdPin.Close()
}

func dutyPercent(duty float64) (int, error) {
	if duty <= 0 || duty > 1 {
		return 0, fmt.Errorf("duty cycle %.3f outside (0,1]", duty)
	}
	return int(math.Round(duty * 100)), nil
}
