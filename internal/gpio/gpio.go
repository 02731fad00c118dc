// Package gpio provides pin access with hardware abstraction.
// The real implementations use the Linux GPIO character device (go-gpiocdev)
// or periph.io. The fake implementation allows testing without hardware.
package gpio

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Forever as a wait timeout means no timeout at all.
const Forever time.Duration = -1

// ErrPinInUse is returned when a pin is already owned by another handle.
var ErrPinInUse = errors.New("pin already in use")

// ErrEmptyPin is returned for a blank pin identifier.
var ErrEmptyPin = errors.New("pin must not be empty")

// Driver opens pins on a particular GPIO backend.
type Driver interface {
	// OpenOutput requests pin as a digital output, initially inactive.
	// With reversed set the line is active-low.
	OpenOutput(pin string, reversed bool) (Output, error)

	// OpenInput requests pin as a button input: pull-up enabled,
	// pressed when the line is pulled low.
	OpenInput(pin string) (Input, error)

	// Close releases backend resources.
	Close() error
}

// Output drives a digital output line.
type Output interface {
	// Set drives the line to its active (on) or inactive level.
	Set(on bool) error
	Close() error
}

// Input waits on a button line.
type Input interface {
	// WaitForPress blocks until the button is pressed. It returns true
	// immediately when the button is already down, and false on timeout.
	// A negative timeout waits forever.
	WaitForPress(ctx context.Context, timeout time.Duration) (bool, error)

	// WaitForRelease is WaitForPress for the released level.
	WaitForRelease(ctx context.Context, timeout time.Duration) (bool, error)

	Close() error
}

// boardToBCM maps 40-pin header positions to BCM numbers.
var boardToBCM = map[int]int{
	3: 2, 5: 3, 7: 4, 8: 14, 10: 15, 11: 17, 12: 18, 13: 27, 15: 22, 16: 23,
	18: 24, 19: 10, 21: 9, 22: 25, 23: 11, 24: 8, 26: 7, 27: 0, 28: 1, 29: 5,
	31: 6, 32: 12, 33: 13, 35: 19, 36: 16, 37: 26, 38: 20, 40: 21,
}

// ResolveBCM resolves a pin identifier to a BCM number.
// Accepted forms: "17", "GPIO17", "BCM17", "BOARD11" and "J8:11".
func ResolveBCM(pin string) (int, bool) {
	p := strings.ToLower(strings.TrimSpace(pin))

	header := false
	switch {
	case strings.HasPrefix(p, "gpio"):
		p = p[len("gpio"):]
	case strings.HasPrefix(p, "bcm"):
		p = p[len("bcm"):]
	case strings.HasPrefix(p, "board"):
		p, header = p[len("board"):], true
	case strings.HasPrefix(p, "j8:"):
		p, header = p[len("j8:"):], true
	}

	n, err := strconv.Atoi(p)
	if err != nil || n < 0 {
		return 0, false
	}
	if !header {
		return n, true
	}
	bcm, ok := boardToBCM[n]
	return bcm, ok
}

// CanonicalPin returns the registry key for a pin identifier. Identifiers
// naming the same BCM line share a key; anything else is compared
// case-insensitively.
func CanonicalPin(pin string) string {
	if n, ok := ResolveBCM(pin); ok {
		return fmt.Sprintf("gpio%d", n)
	}
	return strings.ToLower(strings.TrimSpace(pin))
}
