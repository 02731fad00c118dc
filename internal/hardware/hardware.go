// Package hardware builds the configured peripherals, initializes them in
// order and runs their loops.
package hardware

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sweeney/pi-cooler/internal/button"
	"github.com/sweeney/pi-cooler/internal/config"
	"github.com/sweeney/pi-cooler/internal/events"
	"github.com/sweeney/pi-cooler/internal/fan"
	"github.com/sweeney/pi-cooler/internal/gpio"
	"github.com/sweeney/pi-cooler/internal/led"
	"github.com/sweeney/pi-cooler/internal/sampler"
)

// idleInterval paces the wait when no loop is configured.
const idleInterval = 30 * time.Second

// Device is a peripheral that owns pins between Initialize and Close.
type Device interface {
	Initialize() error
	Close() error
}

// Startup is the set of peripherals built from the settings, in the order
// they are initialized.
type Startup struct {
	StatusLED *led.StatusLED
	PowerLED  *led.PowerLED
	Button    *button.Controller
	Fan       *fan.Controller
}

// Devices returns the configured peripherals in initialization order.
func (s *Startup) Devices() []Device {
	var ds []Device
	if s.StatusLED != nil {
		ds = append(ds, s.StatusLED)
	}
	if s.PowerLED != nil {
		ds = append(ds, s.PowerLED)
	}
	if s.Button != nil {
		ds = append(ds, s.Button)
	}
	if s.Fan != nil {
		ds = append(ds, s.Fan)
	}
	return ds
}

// Manager owns the pin registry and every initialized device.
type Manager struct {
	reg        *gpio.Registry
	bus        *events.Bus
	fanOpts    []fan.Option
	buttonOpts []button.Option

	live []Device
}

// Option configures a Manager.
type Option func(*Manager)

// WithBus hands bus to the fan and button controllers.
func WithBus(bus *events.Bus) Option {
	return func(m *Manager) { m.bus = bus }
}

// WithFanOptions adds options to the fan controller.
func WithFanOptions(opts ...fan.Option) Option {
	return func(m *Manager) { m.fanOpts = append(m.fanOpts, opts...) }
}

// WithButtonOptions adds options to the button controller.
func WithButtonOptions(opts ...button.Option) Option {
	return func(m *Manager) { m.buttonOpts = append(m.buttonOpts, opts...) }
}

// NewManager creates a Manager that opens pins through driver.
func NewManager(driver gpio.Driver, opts ...Option) *Manager {
	m := &Manager{reg: gpio.NewRegistry(driver)}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Registry returns the pin registry shared by all devices.
func (m *Manager) Registry() *gpio.Registry {
	return m.reg
}

// Build creates the peripherals named in s without touching any pin.
// s must have passed Validate.
func (m *Manager) Build(s *config.Settings) (*Startup, error) {
	st := &Startup{}

	if s.Pins.StatusLED != "" {
		st.StatusLED = led.NewStatusLED(m.reg, s.Pins.StatusLED)
	}

	if s.Pins.PowerButton != "" {
		opts := []button.Option{button.WithBus(m.bus)}
		if s.Pins.PowerLED != "" {
			st.PowerLED = led.NewPowerLED(m.reg, s.Pins.PowerLED, button.DefaultHold)
			opts = append(opts, button.WithLED(st.PowerLED))
		}
		opts = append(opts, m.buttonOpts...)
		st.Button = button.New(m.reg, s.Pins.PowerButton, s.PowerButtonCmds, opts...)
	} else if s.Pins.PowerLED != "" {
		log.Printf("hardware: power LED on %s ignored, no power button configured", s.Pins.PowerLED)
	}

	if s.Pins.CoolerFan != "" {
		th, err := s.Thresholds()
		if err != nil {
			return nil, fmt.Errorf("runTemperature: %w", err)
		}
		sched, err := s.Schedule()
		if err != nil {
			return nil, fmt.Errorf("runTimeSpan: %w", err)
		}
		re, err := s.TemperaturePattern()
		if err != nil {
			return nil, fmt.Errorf("regexTemperature: %w", err)
		}
		cfg := fan.Config{
			Pin:        s.Pins.CoolerFan,
			Reversed:   s.CoolerFanReversed,
			Thresholds: th,
			Schedule:   sched,
		}
		opts := append([]fan.Option{fan.WithBus(m.bus)}, m.fanOpts...)
		st.Fan = fan.New(m.reg, cfg, sampler.New(s.CmdTemperature, re), opts...)
	}

	return st, nil
}

// Initialize initializes the devices of st in order. If one fails, the
// ones already initialized are closed again and the error is returned.
func (m *Manager) Initialize(st *Startup) error {
	for _, d := range st.Devices() {
		if err := d.Initialize(); err != nil {
			if cerr := m.Close(); cerr != nil {
				log.Printf("hardware: close after failed init: %v", cerr)
			}
			return err
		}
		m.live = append(m.live, d)
	}
	return nil
}

// Start builds and initializes the peripherals named in s.
func (m *Manager) Start(s *config.Settings) (*Startup, error) {
	st, err := m.Build(s)
	if err != nil {
		return nil, err
	}
	if err := m.Initialize(st); err != nil {
		return nil, err
	}
	return st, nil
}

// Run runs the fan and button loops until ctx is done. With only one of
// them it runs alone; with neither it idles so the status LED stays lit.
func (m *Manager) Run(ctx context.Context, st *Startup) error {
	switch {
	case st.Fan != nil && st.Button != nil:
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error { return st.Fan.Run(gctx) })
		g.Go(func() error { return st.Button.Run(gctx) })
		return g.Wait()
	case st.Fan != nil:
		return st.Fan.Run(ctx)
	case st.Button != nil:
		return st.Button.Run(ctx)
	default:
		return idle(ctx, idleInterval)
	}
}

func idle(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Close closes every initialized device in reverse order.
func (m *Manager) Close() error {
	var errs []error
	for i := len(m.live) - 1; i >= 0; i-- {
		if err := m.live[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	m.live = nil
	return errors.Join(errs...)
}
