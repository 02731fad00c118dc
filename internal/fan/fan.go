// Package fan runs the cooler fan thermal control loop.
package fan

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/sweeney/pi-cooler/internal/events"
	"github.com/sweeney/pi-cooler/internal/gpio"
	"github.com/sweeney/pi-cooler/internal/logic"
)

// DefaultInterval is the time between fan checks.
const DefaultInterval = 30 * time.Second

// Sampler reads the current temperature. ok is false when there is no reading.
type Sampler interface {
	Sample(ctx context.Context) (temp float64, ok bool)
}

// Config describes one cooler fan.
type Config struct {
	Pin        string
	Reversed   bool // active-low, e.g. a PNP transistor
	Thresholds logic.Thresholds
	Schedule   logic.Schedule
}

// Controller switches the fan from temperature readings and the forced-run
// schedule. Its only state is the level the pin is driven to.
type Controller struct {
	cfg      Config
	reg      *gpio.Registry
	sampler  Sampler
	bus      *events.Bus
	now      func() time.Time
	interval time.Duration

	out *gpio.OutputHandle
}

// Option configures a Controller.
type Option func(*Controller)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithInterval replaces DefaultInterval.
func WithInterval(d time.Duration) Option {
	return func(c *Controller) { c.interval = d }
}

// WithBus publishes a FanChecked event after every check.
func WithBus(bus *events.Bus) Option {
	return func(c *Controller) { c.bus = bus }
}

// New creates a Controller. Nothing is opened until Initialize.
func New(reg *gpio.Registry, cfg Config, sampler Sampler, opts ...Option) *Controller {
	c := &Controller{
		cfg:      cfg,
		reg:      reg,
		sampler:  sampler,
		now:      time.Now,
		interval: DefaultInterval,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Initialize claims the fan pin. The fan starts off.
func (c *Controller) Initialize() error {
	out, err := c.reg.OpenOutput(c.cfg.Pin, c.cfg.Reversed)
	if err != nil {
		return fmt.Errorf("cooler fan: %w", err)
	}
	c.out = out
	log.Printf("fan: pin=%s reversed=%v stop=%.1f start=%.1f run=%v cycle=%v",
		c.cfg.Pin, c.cfg.Reversed, c.cfg.Thresholds.Stop, c.cfg.Thresholds.Start,
		c.cfg.Schedule.Run, c.cfg.Schedule.Cycle)
	return nil
}

// Close releases the fan pin.
func (c *Controller) Close() error {
	if c.out == nil {
		return nil
	}
	return c.out.Close()
}

// On reports the level the fan is driven to.
func (c *Controller) On() bool {
	if c.out == nil {
		return false
	}
	return c.out.On()
}

// CheckOnce makes one fan decision and drives the pin to it. Inside the
// forced-run window the sensor is not read.
func (c *Controller) CheckOnce(ctx context.Context) (logic.FanDecision, error) {
	if c.out == nil {
		return logic.FanDecision{}, fmt.Errorf("cooler fan: not initialized")
	}

	in := logic.FanInput{Now: c.now(), Current: c.out.On()}
	if !c.cfg.Schedule.Forced(in.Now) {
		in.Temp, in.HasTemp = c.sampler.Sample(ctx)
	}
	d := logic.DecideFan(c.cfg.Thresholds, c.cfg.Schedule, in)

	if err := c.out.Set(d.On); err != nil {
		return d, fmt.Errorf("cooler fan: %w", err)
	}

	changed := d.On != in.Current
	if changed {
		if in.HasTemp {
			log.Printf("fan: %s reason=%s temp=%.1f", logic.StateOf(d.On), d.Reason, in.Temp)
		} else {
			log.Printf("fan: %s reason=%s", logic.StateOf(d.On), d.Reason)
		}
	}

	c.bus.Publish(events.FanChecked{
		At:      in.Now,
		On:      d.On,
		Changed: changed,
		Reason:  d.Reason,
		Temp:    in.Temp,
		HasTemp: in.HasTemp,
	})
	return d, nil
}

// Run checks the fan immediately and then every interval until ctx is done.
func (c *Controller) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	return c.runLoop(ctx, ticker.C)
}

func (c *Controller) runLoop(ctx context.Context, tick <-chan time.Time) error {
	for {
		if _, err := c.CheckOnce(ctx); err != nil {
			log.Printf("fan: check error: %v", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-tick:
		}
	}
}
