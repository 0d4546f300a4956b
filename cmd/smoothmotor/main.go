package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ClassTech/SmoothedMotor/internal/config"
	"github.com/ClassTech/SmoothedMotor/internal/motor"
	"github.com/ClassTech/SmoothedMotor/internal/ramp"
	"github.com/ClassTech/SmoothedMotor/internal/storage"
	"github.com/ClassTech/SmoothedMotor/internal/viz"
)

var (
	stepSize   float64
	interval   time.Duration
	configFile string
	speed      float64
	runFor     time.Duration
	dataDir    string
	nudge      float64
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "smoothmotor",
		Short: "gradual speed ramping for bidirectional DC motors",
	}
	rootCmd.PersistentFlags().Float64Var(&stepSize, "step", ramp.DefaultStepSize, "speed change per tick")
	rootCmd.PersistentFlags().DurationVar(&interval, "interval", ramp.DefaultTickInterval, "time between ramp ticks")

	demoCmd := &cobra.Command{
		Use:   "demo",
		Short: "scripted ramp sequence on a simulated motor",
		RunE:  runDemo,
	}
	demoCmd.Flags().StringVar(&dataDir, "data", "", "save the command trace under this directory")

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "interactive ramp monitor on a simulated motor",
		RunE:  runLive,
	}
	liveCmd.Flags().Float64Var(&nudge, "nudge", 0.1, "target change per keypress")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "drive configured GPIO motors at a target speed",
		RunE:  runMotors,
	}
	runCmd.Flags().StringVar(&configFile, "config", "motors.yaml", "motor configuration file")
	runCmd.Flags().Float64Var(&speed, "speed", 0.5, "target speed in [-1, 1]")
	runCmd.Flags().DurationVar(&runFor, "for", 3*time.Second, "how long to hold the target")

	rootCmd.AddCommand(demoCmd, liveCmd, runCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// runDemo plays the classic test drive: full forward, full reverse, ramp
// to stop, reporting ramp progress along the way.
func runDemo(cmd *cobra.Command, args []string) error {
	m := motor.NewSim()
	ctl := ramp.New(m, ramp.Config{StepSize: stepSize, TickInterval: interval})
	defer ctl.Shutdown()

	phases := []struct {
		label string
		speed float64
		hold  time.Duration
	}{
		{"full forward", 1.0, 3 * time.Second},
		{"full reverse", -1.0, 3 * time.Second},
		{"stop", 0.0, time.Second},
	}

	for _, p := range phases {
		fmt.Printf("Ramping to %s (%+.1f)...\n", p.label, p.speed)
		ctl.SetSpeed(p.speed)
		deadline := time.Now().Add(p.hold)
		for time.Now().Before(deadline) {
			time.Sleep(200 * time.Millisecond)
			cur, tgt := ctl.Speeds()
			fmt.Printf("  current %+.2f  target %+.2f  motor %+.2f\n", cur, tgt, m.Speed())
		}
	}
	history := m.History()
	fmt.Printf("Demo complete: %d motor commands issued.\n", len(history))

	if dataDir != "" {
		store := storage.New(dataDir)
		if err := store.Init(); err != nil {
			return err
		}
		runID, err := store.Save("demo", stepSize, interval, history)
		if err != nil {
			return err
		}
		fmt.Printf("Trace saved as %s\n", runID)
	}
	return nil
}

func runLive(cmd *cobra.Command, args []string) error {
	m := motor.NewSim()
	ctl := ramp.New(m, ramp.Config{StepSize: stepSize, TickInterval: interval})
	defer ctl.Shutdown()
	return viz.Run(ctl, m, nudge)
}

// runMotors drives the motors from the config file at the requested speed,
// ramping everything down cleanly on SIGINT/SIGTERM or when the hold time
// elapses.
func runMotors(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}
	if len(cfg.Motors) == 0 {
		return fmt.Errorf("%s: no motors configured", configFile)
	}
	// Flags win over the file only when set explicitly.
	if !cmd.Flags().Changed("step") {
		stepSize = cfg.StepSize
	}
	if !cmd.Flags().Changed("interval") {
		interval = cfg.TickInterval.Std()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	for _, mc := range cfg.Motors {
		drv, err := motor.NewGPIOMotor(mc.ForwardPin, mc.BackwardPin, cfg.PWMPeriod.Std())
		if err != nil {
			return fmt.Errorf("motor %s: %v", mc.Name, err)
		}
		defer drv.Close()
		ctl := ramp.New(drv, ramp.Config{StepSize: stepSize, TickInterval: interval})
		defer ctl.Shutdown()

		ctl.SetSpeed(speed)
		fmt.Printf("%s: ramping to %+.2f\n", mc.Name, speed)
	}

	select {
	case <-ctx.Done():
		fmt.Println("\ninterrupted, stopping motors")
	case <-time.After(runFor):
	}
	return nil
}
