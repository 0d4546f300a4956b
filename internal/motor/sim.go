package motor

import "sync"

type CommandKind int

const (
	Forward CommandKind = iota
	Backward
	Stopped
)

func (k CommandKind) String() string {
	switch k {
	case Forward:
		return "forward"
	case Backward:
		return "backward"
	default:
		return "stop"
	}
}

// Command is a single actuator call observed by a simulated motor.
type Command struct {
	Kind CommandKind
	Duty float64
}

// Speed returns the signed speed the command represents.
func (c Command) Speed() float64 {
	switch c.Kind {
	case Forward:
		return c.Duty
	case Backward:
		return -c.Duty
	default:
		return 0
	}
}

// Sim is an in-memory motor used by the demo, the live monitor and tests.
// It records every command issued to it and tracks the last commanded
// signed speed. Safe for concurrent use.
type Sim struct {
	mu      sync.Mutex
	history []Command
	speed   float64
	err     error
}

func NewSim() *Sim {
	return &Sim{}
}

func (s *Sim) DriveForward(duty float64) error {
	return s.record(Command{Kind: Forward, Duty: duty})
}

func (s *Sim) DriveBackward(duty float64) error {
	return s.record(Command{Kind: Backward, Duty: duty})
}

func (s *Sim) Stop() error {
	return s.record(Command{Kind: Stopped})
}

func (s *Sim) record(c Command) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.history = append(s.history, c)
	s.speed = c.Speed()
	return nil
}

// Speed returns the last commanded signed speed.
func (s *Sim) Speed() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.speed
}

// History returns a copy of all commands issued so far.
func (s *Sim) History() []Command {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := make([]Command, len(s.history))
	copy(h, s.history)
	return h
}

// Fail makes subsequent commands return err. Failed commands are not
// recorded. Pass nil to clear the fault.
func (s *Sim) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}
