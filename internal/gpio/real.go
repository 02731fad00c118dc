//go:build linux

package gpio

import (
	"context"
	"fmt"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

// DefaultChip is the GPIO character device carrying the 40-pin header.
const DefaultChip = "gpiochip0"

const consumer = "pi-cooler"

// ChipDriver opens pins on a Linux GPIO character device.
type ChipDriver struct {
	chip *gpiocdev.Chip
}

// NewChipDriver opens the named chip, e.g. "gpiochip0".
func NewChipDriver(name string) (*ChipDriver, error) {
	chip, err := gpiocdev.NewChip(name, gpiocdev.WithConsumer(consumer))
	if err != nil {
		return nil, fmt.Errorf("open gpio chip %s: %w", name, err)
	}
	return &ChipDriver{chip: chip}, nil
}

// offset resolves a pin identifier to a line offset on the chip.
// BCM style identifiers map directly; anything else is looked up by line name.
func (d *ChipDriver) offset(pin string) (int, error) {
	if n, ok := ResolveBCM(pin); ok {
		return n, nil
	}
	off, err := d.chip.FindLine(pin)
	if err != nil {
		return 0, fmt.Errorf("find line %q: %w", pin, err)
	}
	return off, nil
}

// OpenOutput requests pin as an output, initially inactive.
func (d *ChipDriver) OpenOutput(pin string, reversed bool) (Output, error) {
	off, err := d.offset(pin)
	if err != nil {
		return nil, err
	}
	opts := []gpiocdev.LineReqOption{gpiocdev.AsOutput(0)}
	if reversed {
		opts = append(opts, gpiocdev.AsActiveLow)
	}
	line, err := d.chip.RequestLine(off, opts...)
	if err != nil {
		return nil, fmt.Errorf("request output line %d: %w", off, err)
	}
	return &chipOutput{line: line}, nil
}

// OpenInput requests pin as a pulled-up, active-low button input with edge events.
func (d *ChipDriver) OpenInput(pin string) (Input, error) {
	off, err := d.offset(pin)
	if err != nil {
		return nil, err
	}
	in := &chipInput{edges: make(chan struct{}, 1)}
	line, err := d.chip.RequestLine(off,
		gpiocdev.AsInput,
		gpiocdev.WithPullUp,
		gpiocdev.AsActiveLow,
		gpiocdev.WithBothEdges,
		gpiocdev.WithEventHandler(in.handle))
	if err != nil {
		return nil, fmt.Errorf("request input line %d: %w", off, err)
	}
	in.line = line
	return in, nil
}

// Close releases the chip.
func (d *ChipDriver) Close() error {
	return d.chip.Close()
}

type chipOutput struct {
	line *gpiocdev.Line
}

func (o *chipOutput) Set(on bool) error {
	v := 0
	if on {
		v = 1
	}
	return o.line.SetValue(v)
}

// Close reverts the line to an input before releasing it, matching the
// Pi boot default.
func (o *chipOutput) Close() error {
	var errs []error
	if err := o.line.Reconfigure(gpiocdev.AsInput); err != nil {
		errs = append(errs, fmt.Errorf("reconfigure line: %w", err))
	}
	if err := o.line.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close line: %w", err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

type chipInput struct {
	line  *gpiocdev.Line
	edges chan struct{}
}

// handle runs on the gpiocdev event goroutine; it only wakes a waiter.
func (in *chipInput) handle(gpiocdev.LineEvent) {
	select {
	case in.edges <- struct{}{}:
	default:
	}
}

func (in *chipInput) WaitForPress(ctx context.Context, timeout time.Duration) (bool, error) {
	return in.waitLevel(ctx, true, timeout)
}

func (in *chipInput) WaitForRelease(ctx context.Context, timeout time.Duration) (bool, error) {
	return in.waitLevel(ctx, false, timeout)
}

// waitLevel re-reads the line after every edge rather than trusting the
// edge direction, so bounces and missed events cannot leave it stuck.
func (in *chipInput) waitLevel(ctx context.Context, pressed bool, timeout time.Duration) (bool, error) {
	var expired <-chan time.Time
	if timeout >= 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		expired = t.C
	}

	for {
		v, err := in.line.Value()
		if err != nil {
			return false, fmt.Errorf("read line: %w", err)
		}
		if (v == 1) == pressed {
			return true, nil
		}
		select {
		case <-in.edges:
		case <-expired:
			return false, nil
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}
}

func (in *chipInput) Close() error {
	return in.line.Close()
}
