package gpio

import (
	"context"
	"strings"
	"sync"
	"time"
)

// FakeDriver is a test double that hands out FakeOutput and FakeInput pins.
// Pins are created on first open and kept for inspection after Close.
type FakeDriver struct {
	mu      sync.Mutex
	outputs map[string]*FakeOutput
	inputs  map[string]*FakeInput

	// OpenError, if set, will be returned by OpenOutput and OpenInput.
	OpenError error

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakeDriver creates an empty FakeDriver.
func NewFakeDriver() *FakeDriver {
	return &FakeDriver{
		outputs: make(map[string]*FakeOutput),
		inputs:  make(map[string]*FakeInput),
	}
}

// Output returns the fake output for pin, creating it if needed.
func (d *FakeDriver) Output(pin string) *FakeOutput {
	d.mu.Lock()
	defer d.mu.Unlock()
	key := CanonicalPin(pin)
	o, ok := d.outputs[key]
	if !ok {
		o = &FakeOutput{}
		d.outputs[key] = o
	}
	return o
}

// Input returns the fake input for pin, creating it if needed.
// Script it before the pin is opened.
func (d *FakeDriver) Input(pin string) *FakeInput {
	d.mu.Lock()
	defer d.mu.Unlock()
	key := CanonicalPin(pin)
	in, ok := d.inputs[key]
	if !ok {
		in = &FakeInput{}
		d.inputs[key] = in
	}
	return in
}

// OpenOutput returns the fake output for pin.
func (d *FakeDriver) OpenOutput(pin string, reversed bool) (Output, error) {
	if d.OpenError != nil {
		return nil, d.OpenError
	}
	o := d.Output(pin)
	o.mu.Lock()
	o.Reversed = reversed
	o.Opened++
	o.Closed = false
	o.mu.Unlock()
	return o, nil
}

// OpenInput returns the fake input for pin.
func (d *FakeDriver) OpenInput(pin string) (Input, error) {
	if d.OpenError != nil {
		return nil, d.OpenError
	}
	in := d.Input(pin)
	in.mu.Lock()
	in.Opened++
	in.Closed = false
	in.mu.Unlock()
	return in, nil
}

// Close marks the driver as closed.
func (d *FakeDriver) Close() error {
	d.Closed = true
	return nil
}

// FakeOutput records every level written to it.
type FakeOutput struct {
	mu sync.Mutex

	// Levels contains every level passed to Set, in order.
	Levels []bool

	// SetError, if set, will be returned by Set.
	SetError error

	Reversed bool
	Opened   int
	Closed   bool
}

// Set records the level.
func (o *FakeOutput) Set(on bool) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.SetError != nil {
		return o.SetError
	}
	o.Levels = append(o.Levels, on)
	return nil
}

// Close marks the output as closed.
func (o *FakeOutput) Close() error {
	o.mu.Lock()
	o.Closed = true
	o.mu.Unlock()
	return nil
}

// Value returns the last level written (false if never written).
func (o *FakeOutput) Value() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.Levels) == 0 {
		return false
	}
	return o.Levels[len(o.Levels)-1]
}

// Toggles counts level changes, starting from an inactive line.
func (o *FakeOutput) Toggles() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	n, prev := 0, false
	for _, v := range o.Levels {
		if v != prev {
			n++
		}
		prev = v
	}
	return n
}

// History returns a copy of Levels.
func (o *FakeOutput) History() []bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]bool(nil), o.Levels...)
}

// IsClosed reports whether Close was called since the last open.
func (o *FakeOutput) IsClosed() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.Closed
}

// WaitCall records one wait on a FakeInput.
type WaitCall struct {
	Press   bool // true for WaitForPress, false for WaitForRelease
	Timeout time.Duration
}

// String formats the call for test failure messages.
func (c WaitCall) String() string {
	kind := "release"
	if c.Press {
		kind = "press"
	}
	if c.Timeout < 0 {
		return kind + "(forever)"
	}
	return kind + "(" + c.Timeout.String() + ")"
}

// FakeInput is a test double that returns scripted wait results.
type FakeInput struct {
	mu sync.Mutex

	// Script contains the results of successive waits: true means the awaited
	// level was reached, false means the wait timed out. Once the script is
	// exhausted, waits block until the context is done.
	Script []bool

	// Calls records every wait, in order.
	Calls []WaitCall

	// WaitError, if set, will be returned by every wait.
	WaitError error

	Opened int
	Closed bool

	index int
}

// NewFakeInput creates a FakeInput with the given script.
func NewFakeInput(script ...bool) *FakeInput {
	return &FakeInput{Script: script}
}

// WaitForPress consumes the next scripted result.
func (in *FakeInput) WaitForPress(ctx context.Context, timeout time.Duration) (bool, error) {
	return in.wait(ctx, true, timeout)
}

// WaitForRelease consumes the next scripted result.
func (in *FakeInput) WaitForRelease(ctx context.Context, timeout time.Duration) (bool, error) {
	return in.wait(ctx, false, timeout)
}

func (in *FakeInput) wait(ctx context.Context, press bool, timeout time.Duration) (bool, error) {
	in.mu.Lock()
	in.Calls = append(in.Calls, WaitCall{Press: press, Timeout: timeout})
	if in.WaitError != nil {
		err := in.WaitError
		in.mu.Unlock()
		return false, err
	}
	if in.index < len(in.Script) {
		v := in.Script[in.index]
		in.index++
		in.mu.Unlock()
		return v, nil
	}
	in.mu.Unlock()

	<-ctx.Done()
	return false, ctx.Err()
}

// Remaining returns how many scripted results are left.
func (in *FakeInput) Remaining() int {
	in.mu.Lock()
	defer in.mu.Unlock()
	return len(in.Script) - in.index
}

// CallLog returns the recorded waits joined with spaces.
func (in *FakeInput) CallLog() string {
	in.mu.Lock()
	defer in.mu.Unlock()
	parts := make([]string, len(in.Calls))
	for i, c := range in.Calls {
		parts[i] = c.String()
	}
	return strings.Join(parts, " ")
}

// Close marks the input as closed.
func (in *FakeInput) Close() error {
	in.mu.Lock()
	in.Closed = true
	in.mu.Unlock()
	return nil
}

// Reset rewinds the script and clears recorded calls.
func (in *FakeInput) Reset() {
	in.mu.Lock()
	in.index = 0
	in.Calls = nil
	in.Closed = false
	in.mu.Unlock()
}
