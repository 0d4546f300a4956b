package ramp

import (
	"errors"
	"math"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/ClassTech/SmoothedMotor/internal/motor"
)

// maxDelta returns the largest change in signed speed between consecutive
// commands, treating the history as starting from rest.
func maxDelta(history []motor.Command) float64 {
	prev, largest := 0.0, 0.0
	for _, c := range history {
		d := math.Abs(c.Speed() - prev)
		if d > largest {
			largest = d
		}
		prev = c.Speed()
	}
	return largest
}

var _ = Describe("Controller", func() {
	var m *motor.Sim

	BeforeEach(func() {
		m = motor.NewSim()
	})

	// Stepping semantics, driven tick by tick with the worker parked on a
	// very long interval so timing cannot interfere.
	Context("stepping", func() {
		var ctl *Controller

		BeforeEach(func() {
			ctl = New(m, Config{StepSize: 0.05, TickInterval: time.Hour})
		})

		AfterEach(func() {
			ctl.Shutdown()
		})

		It("should issue nothing while at target", func() {
			for i := 0; i < 5; i++ {
				Expect(ctl.tick()).To(Succeed())
			}
			Expect(m.History()).To(BeEmpty())
		})

		It("should ramp to full forward in exactly 20 commands", func() {
			ctl.SetSpeed(1.0)
			for i := 0; i < 25; i++ {
				Expect(ctl.tick()).To(Succeed())
			}

			h := m.History()
			Expect(h).To(HaveLen(20))
			for i, c := range h {
				Expect(c.Kind).To(Equal(motor.Forward))
				Expect(c.Duty).To(BeNumerically("~", 0.05*float64(i+1), 1e-9))
			}
			Expect(h[19].Duty).To(Equal(1.0))
		})

		It("should land exactly on an off-grid target", func() {
			ctl.SetSpeed(0.42)
			for i := 0; i < 15; i++ {
				ctl.tick()
			}
			cur, _ := ctl.Speeds()
			Expect(cur).To(Equal(0.42))
		})

		It("should issue no further commands once converged", func() {
			ctl.SetSpeed(0.3)
			for i := 0; i < 10; i++ {
				ctl.tick()
			}
			n := len(m.History())

			ctl.SetSpeed(0.3)
			for i := 0; i < 10; i++ {
				ctl.tick()
			}
			Expect(m.History()).To(HaveLen(n))
		})

		It("should reverse smoothly through zero", func() {
			ctl.SetSpeed(1.0)
			for i := 0; i < 20; i++ {
				ctl.tick()
			}
			ctl.SetSpeed(-0.5)
			for i := 0; i < 35; i++ {
				ctl.tick()
			}

			cur, _ := ctl.Speeds()
			Expect(cur).To(Equal(-0.5))

			h := m.History()
			Expect(maxDelta(h)).To(BeNumerically("<=", 0.05+1e-9))
			Expect(h[len(h)-1].Kind).To(Equal(motor.Backward))
			Expect(h[len(h)-1].Duty).To(Equal(0.5))
		})

		It("should command a stop when ramping down to zero", func() {
			ctl.SetSpeed(0.2)
			for i := 0; i < 5; i++ {
				ctl.tick()
			}
			ctl.Stop()
			for i := 0; i < 10; i++ {
				ctl.tick()
			}

			cur, _ := ctl.Speeds()
			Expect(cur).To(BeZero())
			h := m.History()
			Expect(h[len(h)-1].Kind).To(Equal(motor.Stopped))
		})

		It("should never command outside [-1, 1]", func() {
			ctl.SetSpeed(1.0)
			for i := 0; i < 30; i++ {
				ctl.tick()
			}
			ctl.SetSpeed(-1.0)
			for i := 0; i < 50; i++ {
				ctl.tick()
			}
			for _, c := range m.History() {
				Expect(math.Abs(c.Speed())).To(BeNumerically("<=", 1.0))
			}
		})

		It("should retry the same step after an actuator fault", func() {
			ctl.SetSpeed(1.0)
			ctl.tick()

			bridge := errors.New("bridge fault")
			m.Fail(bridge)
			err := ctl.tick()
			var fault *FaultError
			Expect(errors.As(err, &fault)).To(BeTrue())
			Expect(errors.Is(err, bridge)).To(BeTrue())
			Expect(fault.Duty).To(BeNumerically("~", 0.1, 1e-9))

			cur, _ := ctl.Speeds()
			Expect(cur).To(BeNumerically("~", 0.05, 1e-9))

			m.Fail(nil)
			Expect(ctl.tick()).To(Succeed())
			h := m.History()
			Expect(h[len(h)-1].Duty).To(BeNumerically("~", 0.1, 1e-9))
		})
	})

	Context("speed requests", func() {
		var ctl *Controller

		BeforeEach(func() {
			ctl = New(m, Config{TickInterval: time.Hour})
		})

		AfterEach(func() {
			ctl.Shutdown()
		})

		It("should clamp out-of-range speeds", func() {
			ctl.SetSpeed(5.0)
			_, target := ctl.Speeds()
			Expect(target).To(Equal(1.0))

			ctl.SetSpeed(-2.5)
			_, target = ctl.Speeds()
			Expect(target).To(Equal(-1.0))
		})

		It("should reject non-finite speeds and keep the target", func() {
			ctl.SetSpeed(0.7)

			Expect(ctl.SetSpeed(math.NaN())).To(MatchError(ErrInvalidSpeed))
			Expect(ctl.SetSpeed(math.Inf(1))).To(MatchError(ErrInvalidSpeed))
			Expect(ctl.SetSpeed(math.Inf(-1))).To(MatchError(ErrInvalidSpeed))

			_, target := ctl.Speeds()
			Expect(target).To(Equal(0.7))
		})

		It("should treat Stop as a zero target", func() {
			ctl.SetSpeed(0.8)
			ctl.Stop()
			_, target := ctl.Speeds()
			Expect(target).To(BeZero())
		})
	})

	// Full lifecycle with a real ticking worker.
	Context("running", func() {
		It("should converge to the target asynchronously", func() {
			ctl := New(m, Config{StepSize: 0.05, TickInterval: time.Millisecond})
			defer ctl.Shutdown()

			ctl.SetSpeed(0.6)
			Eventually(func() float64 {
				cur, _ := ctl.Speeds()
				return cur
			}).Should(Equal(0.6))
			Eventually(m.Speed).Should(Equal(0.6))
		})

		It("should leave a single trailing stop after shutdown", func() {
			ctl := New(m, Config{StepSize: 0.05, TickInterval: time.Millisecond})
			ctl.SetSpeed(1.0)
			Eventually(m.Speed).Should(BeNumerically(">", 0.2))

			Expect(ctl.Shutdown()).To(Succeed())

			h := m.History()
			Expect(h[len(h)-1].Kind).To(Equal(motor.Stopped))

			// The worker is gone; nothing may touch the motor any more.
			time.Sleep(10 * time.Millisecond)
			Expect(m.History()).To(HaveLen(len(h)))
		})

		It("should make repeated shutdowns a no-op", func() {
			ctl := New(m, Config{TickInterval: time.Millisecond})
			Expect(ctl.Shutdown()).To(Succeed())
			n := len(m.History())

			Expect(ctl.Shutdown()).To(Succeed())
			Expect(ctl.Shutdown()).To(Succeed())
			Expect(m.History()).To(HaveLen(n))
		})

		It("should return the final stop failure from shutdown", func() {
			faults := make(chan error, 16)
			ctl := New(m, Config{
				TickInterval: time.Millisecond,
				OnFault:      func(err error) { faults <- err },
			})

			bridge := errors.New("bridge fault")
			m.Fail(bridge)
			err := ctl.Shutdown()
			Expect(errors.Is(err, bridge)).To(BeTrue())
			Eventually(faults).Should(Receive(MatchError(bridge)))
		})

		It("should report per-tick faults without dying", func() {
			faults := make(chan error, 16)
			ctl := New(m, Config{
				StepSize:     0.05,
				TickInterval: time.Millisecond,
				// Non-blocking so a fault on every tick cannot stall the worker.
				OnFault: func(err error) {
					select {
					case faults <- err:
					default:
					}
				},
			})
			defer ctl.Shutdown()

			bridge := errors.New("bridge fault")
			m.Fail(bridge)
			ctl.SetSpeed(1.0)
			Eventually(faults).Should(Receive(MatchError(bridge)))

			// Clearing the fault lets the ramp resume where it left off.
			m.Fail(nil)
			Eventually(m.Speed).Should(Equal(1.0))
		})

		It("should stay within bounds under concurrent speed requests", func() {
			ctl := New(m, Config{StepSize: 0.05, TickInterval: time.Millisecond})

			var wg sync.WaitGroup
			for i := 0; i < 4; i++ {
				wg.Add(1)
				go func(seed float64) {
					defer wg.Done()
					for j := 0; j < 50; j++ {
						ctl.SetSpeed(math.Sin(seed + float64(j)))
						time.Sleep(time.Millisecond)
					}
				}(float64(i))
			}
			wg.Wait()
			ctl.Shutdown()

			// The trailing shutdown stop is unconditional and exempt from
			// the per-tick step bound.
			h := m.History()
			h = h[:len(h)-1]
			Expect(maxDelta(h)).To(BeNumerically("<=", 0.05+1e-9))
			for _, c := range h {
				Expect(math.Abs(c.Speed())).To(BeNumerically("<=", 1.0))
			}
		})
	})
})
