// Package button runs the power button activation cycle: tap to do nothing,
// hold to arm successively more drastic commands, release to run the armed one.
package button

import (
	"context"
	"fmt"
	"log"
	"os/exec"
	"time"

	"github.com/sweeney/pi-cooler/internal/events"
	"github.com/sweeney/pi-cooler/internal/gpio"
	"github.com/sweeney/pi-cooler/internal/logic"
)

const (
	// DefaultHold is how long each escalation stage lasts.
	DefaultHold = 3 * time.Second

	// TestTimeout bounds the press wait of Test.
	TestTimeout = 10 * time.Second

	// errorBackoff paces Run when the pin keeps failing.
	errorBackoff = time.Second
)

// Indicator shows button activity. *led.PowerLED implements it.
type Indicator interface {
	On() error
	Off() error
	Blink(stage, lastStage int) error
}

// Executor starts a command without waiting for it to finish.
type Executor func(command string) error

// ShellExecutor starts command with sh -c and reaps it in the background.
func ShellExecutor(command string) error {
	cmd := exec.Command("sh", "-c", command)
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() {
		if err := cmd.Wait(); err != nil {
			log.Printf("button: %q exited: %v", command, err)
		}
	}()
	return nil
}

// Controller owns the button pin and, optionally, drives a Power LED.
type Controller struct {
	reg      *gpio.Registry
	pin      string
	commands []string
	led      Indicator
	hold     time.Duration
	exec     Executor
	bus      *events.Bus
	now      func() time.Time

	in *gpio.InputHandle
}

// Option configures a Controller.
type Option func(*Controller)

// WithLED drives led during activation cycles.
func WithLED(led Indicator) Option {
	return func(c *Controller) { c.led = led }
}

// WithHold replaces DefaultHold.
func WithHold(d time.Duration) Option {
	return func(c *Controller) { c.hold = d }
}

// WithExecutor replaces ShellExecutor.
func WithExecutor(e Executor) Option {
	return func(c *Controller) { c.exec = e }
}

// WithBus publishes a ButtonActivated event after each cycle with a press.
func WithBus(bus *events.Bus) Option {
	return func(c *Controller) { c.bus = bus }
}

// WithClock replaces time.Now for event timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// New creates a Controller for pin. commands must not be empty; index 0 is
// armed first. Nothing is opened until Initialize.
func New(reg *gpio.Registry, pin string, commands []string, opts ...Option) *Controller {
	c := &Controller{
		reg:      reg,
		pin:      pin,
		commands: commands,
		hold:     DefaultHold,
		exec:     ShellExecutor,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Initialize claims the button pin.
func (c *Controller) Initialize() error {
	if len(c.commands) == 0 {
		return fmt.Errorf("power button: no commands")
	}
	in, err := c.reg.OpenInput(c.pin)
	if err != nil {
		return fmt.Errorf("power button: %w", err)
	}
	c.in = in
	log.Printf("button: pin=%s commands=%d led=%v", c.pin, len(c.commands), c.led != nil)
	return nil
}

// Close releases the button pin.
func (c *Controller) Close() error {
	if c.in == nil {
		return nil
	}
	return c.in.Close()
}

// Wait runs one activation cycle. timeout bounds the wait for the first
// press and, once every stage has passed, the wait for the release;
// logic.Forever disables it.
func (c *Controller) Wait(ctx context.Context, timeout time.Duration) (logic.ButtonResult, error) {
	if c.in == nil {
		return logic.ButtonResult{Outcome: logic.OutcomeNone}, fmt.Errorf("power button: not initialized")
	}

	m := logic.NewButtonMachine(len(c.commands), c.hold, timeout)
	for !m.Done() {
		w := m.Wait()

		var ok bool
		var err error
		var ev logic.ButtonEvent
		switch w.Kind {
		case logic.WaitPress:
			ok, err = c.in.WaitForPress(ctx, w.Timeout)
			ev = logic.EventPress
		case logic.WaitRelease:
			ok, err = c.in.WaitForRelease(ctx, w.Timeout)
			ev = logic.EventRelease
		default:
			return m.Result(), fmt.Errorf("power button: unexpected wait in state %s", m.State())
		}
		if err != nil {
			if m.State() != logic.ButtonIdle {
				c.indicate(logic.Action{Kind: logic.ActionLEDOff})
			}
			return logic.ButtonResult{Outcome: logic.OutcomeNone}, err
		}
		if !ok {
			ev = logic.EventTimeout
		}

		actions, err := m.Handle(ev)
		if err != nil {
			return logic.ButtonResult{Outcome: logic.OutcomeNone}, err
		}
		for _, a := range actions {
			c.perform(a)
		}
	}

	r := m.Result()
	c.report(r)
	return r, nil
}

// Run repeats activation cycles without a timeout until ctx is done.
func (c *Controller) Run(ctx context.Context) error {
	for {
		_, err := c.Wait(ctx, logic.Forever)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			log.Printf("button: %v", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(errorBackoff):
			}
		}
	}
}

// Test waits up to TestTimeout for a press and reports whether one came.
func (c *Controller) Test(ctx context.Context) (bool, error) {
	if c.in == nil {
		return false, fmt.Errorf("power button: not initialized")
	}
	return c.in.WaitForPress(ctx, TestTimeout)
}

func (c *Controller) perform(a logic.Action) {
	if a.Kind != logic.ActionExec {
		c.indicate(a)
		return
	}
	cmd := c.commands[a.Stage]
	log.Printf("button: running command %d: %s", a.Stage, cmd)
	if err := c.exec(cmd); err != nil {
		log.Printf("button: %q failed to start: %v", cmd, err)
	}
}

func (c *Controller) indicate(a logic.Action) {
	if c.led == nil {
		return
	}
	var err error
	switch a.Kind {
	case logic.ActionLEDOn:
		err = c.led.On()
	case logic.ActionLEDOff:
		err = c.led.Off()
	case logic.ActionBlink:
		err = c.led.Blink(a.Stage, len(c.commands)-1)
	}
	if err != nil {
		log.Printf("button: led: %v", err)
	}
}

func (c *Controller) report(r logic.ButtonResult) {
	if r.Outcome == logic.OutcomeNone {
		return
	}
	ev := events.ButtonActivated{At: c.now(), Result: r}
	switch r.Outcome {
	case logic.OutcomeCommand:
		ev.Command = c.commands[r.Stage]
	case logic.OutcomeTap:
		log.Printf("button: tap ignored")
	case logic.OutcomeHeld:
		log.Printf("button: held past last stage, nothing run")
	}
	c.bus.Publish(ev)
}
