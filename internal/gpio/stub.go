//go:build !linux

package gpio

import "errors"

// DefaultChip is the GPIO character device carrying the 40-pin header.
const DefaultChip = "gpiochip0"

var errUnsupported = errors.New("gpio: not supported on this platform (requires Linux)")

// ChipDriver is not available on non-Linux platforms.
type ChipDriver struct{}

// NewChipDriver returns an error on non-Linux platforms.
func NewChipDriver(name string) (*ChipDriver, error) {
	return nil, errUnsupported
}

// OpenOutput is not implemented on non-Linux platforms.
func (d *ChipDriver) OpenOutput(pin string, reversed bool) (Output, error) {
	return nil, errUnsupported
}

// OpenInput is not implemented on non-Linux platforms.
func (d *ChipDriver) OpenInput(pin string) (Input, error) {
	return nil, errUnsupported
}

// Close is not implemented on non-Linux platforms.
func (d *ChipDriver) Close() error {
	return nil
}

// PeriphDriver is not available on non-Linux platforms.
type PeriphDriver struct{}

// NewPeriphDriver returns an error on non-Linux platforms.
func NewPeriphDriver() (*PeriphDriver, error) {
	return nil, errUnsupported
}

// OpenOutput is not implemented on non-Linux platforms.
func (d *PeriphDriver) OpenOutput(pin string, reversed bool) (Output, error) {
	return nil, errUnsupported
}

// OpenInput is not implemented on non-Linux platforms.
func (d *PeriphDriver) OpenInput(pin string) (Input, error) {
	return nil, errUnsupported
}

// Close is not implemented on non-Linux platforms.
func (d *PeriphDriver) Close() error {
	return nil
}
