package gpio

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Registry enforces one owner per physical pin and opens pins through a Driver.
// It is safe for concurrent use.
type Registry struct {
	mu     sync.Mutex
	driver Driver
	inUse  map[string]string // canonical key -> identifier as configured
}

// NewRegistry creates a Registry that opens pins with driver.
func NewRegistry(driver Driver) *Registry {
	return &Registry{
		driver: driver,
		inUse:  make(map[string]string),
	}
}

// Acquire reserves pin and returns its canonical key.
// It fails with ErrPinInUse if the pin is already reserved.
func (r *Registry) Acquire(pin string) (string, error) {
	if strings.TrimSpace(pin) == "" {
		return "", ErrEmptyPin
	}
	key := CanonicalPin(pin)

	r.mu.Lock()
	defer r.mu.Unlock()
	if owner, ok := r.inUse[key]; ok {
		return "", fmt.Errorf("pin %q (as %q): %w", strings.TrimSpace(pin), owner, ErrPinInUse)
	}
	r.inUse[key] = strings.TrimSpace(pin)
	return key, nil
}

// Release returns a reserved key to the free pool.
func (r *Registry) Release(key string) {
	r.mu.Lock()
	delete(r.inUse, key)
	r.mu.Unlock()
}

// InUse reports whether pin is currently reserved.
func (r *Registry) InUse(pin string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.inUse[CanonicalPin(pin)]
	return ok
}

// OpenOutput reserves pin and opens it as an output.
func (r *Registry) OpenOutput(pin string, reversed bool) (*OutputHandle, error) {
	key, err := r.Acquire(pin)
	if err != nil {
		return nil, err
	}
	out, err := r.driver.OpenOutput(strings.TrimSpace(pin), reversed)
	if err != nil {
		r.Release(key)
		return nil, fmt.Errorf("open output %s: %w", pin, err)
	}
	return &OutputHandle{reg: r, key: key, out: out, reversed: reversed}, nil
}

// OpenInput reserves pin and opens it as a button input.
func (r *Registry) OpenInput(pin string) (*InputHandle, error) {
	key, err := r.Acquire(pin)
	if err != nil {
		return nil, err
	}
	in, err := r.driver.OpenInput(strings.TrimSpace(pin))
	if err != nil {
		r.Release(key)
		return nil, fmt.Errorf("open input %s: %w", pin, err)
	}
	return &InputHandle{reg: r, key: key, in: in}, nil
}

// OutputHandle is an owned output pin. It remembers the last level written.
type OutputHandle struct {
	mu       sync.Mutex
	reg      *Registry
	key      string
	out      Output
	reversed bool
	on       bool
	closed   bool
}

// Pin returns the canonical pin key.
func (h *OutputHandle) Pin() string { return h.key }

// Reversed reports whether the line is active-low.
func (h *OutputHandle) Reversed() bool { return h.reversed }

// Set drives the pin. Writing the current level again is harmless.
func (h *OutputHandle) Set(on bool) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return fmt.Errorf("pin %s: closed", h.key)
	}
	if err := h.out.Set(on); err != nil {
		return fmt.Errorf("pin %s: %w", h.key, err)
	}
	h.on = on
	return nil
}

// On reports the last level written.
func (h *OutputHandle) On() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.on
}

// Close releases the line and its registry reservation. It is idempotent.
func (h *OutputHandle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	h.reg.Release(h.key)
	return h.out.Close()
}

// InputHandle is an owned button pin.
type InputHandle struct {
	reg      *Registry
	key      string
	in       Input
	once     sync.Once
	closeErr error
}

// Pin returns the canonical pin key.
func (h *InputHandle) Pin() string { return h.key }

// WaitForPress waits for the button to be down.
func (h *InputHandle) WaitForPress(ctx context.Context, timeout time.Duration) (bool, error) {
	return h.in.WaitForPress(ctx, timeout)
}

// WaitForRelease waits for the button to be up.
func (h *InputHandle) WaitForRelease(ctx context.Context, timeout time.Duration) (bool, error) {
	return h.in.WaitForRelease(ctx, timeout)
}

// Close releases the line and its registry reservation. It is idempotent.
func (h *InputHandle) Close() error {
	h.once.Do(func() {
		h.reg.Release(h.key)
		h.closeErr = h.in.Close()
	})
	return h.closeErr
}
