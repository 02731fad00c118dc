//go:build linux

package gpio

import (
	"context"
	"fmt"
	"time"

	pgpio "periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// edgeSlice bounds a single WaitForEdge so context cancellation is noticed.
const edgeSlice = 250 * time.Millisecond

// PeriphDriver opens pins through periph.io, resolving identifiers by name.
type PeriphDriver struct{}

// NewPeriphDriver initialises the periph host drivers.
func NewPeriphDriver() (*PeriphDriver, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("init periph host: %w", err)
	}
	return &PeriphDriver{}, nil
}

func periphPin(pin string) (pgpio.PinIO, error) {
	name := pin
	if n, ok := ResolveBCM(pin); ok {
		name = fmt.Sprintf("GPIO%d", n)
	}
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("no gpio named %q", name)
	}
	return p, nil
}

// OpenOutput drives pin low (inactive) as an output.
func (d *PeriphDriver) OpenOutput(pin string, reversed bool) (Output, error) {
	p, err := periphPin(pin)
	if err != nil {
		return nil, err
	}
	out := &periphOutput{pin: p, reversed: reversed}
	if err := out.Set(false); err != nil {
		return nil, err
	}
	return out, nil
}

// OpenInput configures pin as a pulled-up input with edge detection.
func (d *PeriphDriver) OpenInput(pin string) (Input, error) {
	p, err := periphPin(pin)
	if err != nil {
		return nil, err
	}
	if err := p.In(pgpio.PullUp, pgpio.BothEdges); err != nil {
		return nil, fmt.Errorf("configure %s as input: %w", p.Name(), err)
	}
	return &periphInput{pin: p}, nil
}

// Close is a no-op; periph keeps no per-driver state.
func (d *PeriphDriver) Close() error {
	return nil
}

type periphOutput struct {
	pin      pgpio.PinIO
	reversed bool
}

func (o *periphOutput) Set(on bool) error {
	level := pgpio.Level(on != o.reversed)
	if err := o.pin.Out(level); err != nil {
		return fmt.Errorf("set %s: %w", o.pin.Name(), err)
	}
	return nil
}

func (o *periphOutput) Close() error {
	return o.pin.In(pgpio.PullNoChange, pgpio.NoEdge)
}

type periphInput struct {
	pin pgpio.PinIO
}

func (in *periphInput) WaitForPress(ctx context.Context, timeout time.Duration) (bool, error) {
	return in.waitLevel(ctx, true, timeout)
}

func (in *periphInput) WaitForRelease(ctx context.Context, timeout time.Duration) (bool, error) {
	return in.waitLevel(ctx, false, timeout)
}

// waitLevel polls the level between bounded edge waits. The button pulls
// the line low, so pressed means pgpio.Low.
func (in *periphInput) waitLevel(ctx context.Context, pressed bool, timeout time.Duration) (bool, error) {
	var deadline time.Time
	if timeout >= 0 {
		deadline = time.Now().Add(timeout)
	}

	for {
		if (in.pin.Read() == pgpio.Low) == pressed {
			return true, nil
		}
		if err := ctx.Err(); err != nil {
			return false, err
		}
		slice := edgeSlice
		if !deadline.IsZero() {
			remaining := time.Until(deadline)
			if remaining <= 0 {
				return false, nil
			}
			slice = min(slice, remaining)
		}
		in.pin.WaitForEdge(slice)
	}
}

func (in *periphInput) Close() error {
	return in.pin.In(pgpio.PullNoChange, pgpio.NoEdge)
}
