// Package config loads motor and ramp settings from YAML files.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultStepSize     = 0.05
	DefaultTickInterval = 20 * time.Millisecond
	DefaultPWMPeriod    = 10 * time.Millisecond
)

// Duration wraps time.Duration so configs can say "20ms" instead of a
// raw nanosecond count.
type Duration time.Duration

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("duration %q: %v", s, err)
	}
	*d = Duration(parsed)
	return nil
}

type Config struct {
	StepSize     float64       `yaml:"step_size"`
	TickInterval Duration      `yaml:"tick_interval"`
	PWMPeriod    Duration      `yaml:"pwm_period"`
	Motors       []MotorConfig `yaml:"motors"`
}

// MotorConfig names a motor and its H-bridge direction pins
// (GPIO numbering).
type MotorConfig struct {
	Name        string `yaml:"name"`
	ForwardPin  int    `yaml:"forward_pin"`
	BackwardPin int    `yaml:"backward_pin"`
}

func DefaultConfig() *Config {
	return &Config{
		StepSize:     DefaultStepSize,
		TickInterval: Duration(DefaultTickInterval),
		PWMPeriod:    Duration(DefaultPWMPeriod),
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	if c.StepSize <= 0 || c.StepSize > 2 {
		return fmt.Errorf("step_size must be in (0, 2], got %f", c.StepSize)
	}
	if c.TickInterval <= 0 {
		return fmt.Errorf("tick_interval must be positive, got %s", c.TickInterval.Std())
	}
	if c.PWMPeriod <= 0 {
		return fmt.Errorf("pwm_period must be positive, got %s", c.PWMPeriod.Std())
	}
	pins := make(map[int]string)
	for _, m := range c.Motors {
		if m.Name == "" {
			return fmt.Errorf("motor with pins %d/%d has no name", m.ForwardPin, m.BackwardPin)
		}
		if m.ForwardPin == m.BackwardPin {
			return fmt.Errorf("motor %s: forward and backward share pin %d", m.Name, m.ForwardPin)
		}
		for _, pin := range []int{m.ForwardPin, m.BackwardPin} {
			if pin < 0 {
				return fmt.Errorf("motor %s: negative pin %d", m.Name, pin)
			}
			if prev, ok := pins[pin]; ok {
				return fmt.Errorf("pin %d used by both %s and %s", pin, prev, m.Name)
			}
			pins[pin] = m.Name
		}
	}
	return nil
}
