// Package setup is the interactive first-run wizard. It asks which pins
// are wired, has the user confirm each device works, and writes the config.
package setup

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/sweeney/pi-cooler/internal/button"
	"github.com/sweeney/pi-cooler/internal/config"
	"github.com/sweeney/pi-cooler/internal/gpio"
	"github.com/sweeney/pi-cooler/internal/led"
)

var (
	// ErrNoHardware is returned when no fan, button or status LED is wired.
	ErrNoHardware = errors.New("no compatible hardware attached to the GPIO header, nothing to do")

	// ErrTransistor is returned for a transistor type other than NPN or PNP.
	ErrTransistor = errors.New("transistor type must be NPN or PNP")

	// ErrNotWorking is returned when a device test fails.
	ErrNotWorking = errors.New("please check the electronic circuit and try again")

	// ErrSamePin is returned when two devices are given the same pin.
	ErrSamePin = errors.New("two devices cannot share a pin")
)

// Wizard runs the setup dialogue.
type Wizard struct {
	in  *bufio.Reader
	out io.Writer
	reg *gpio.Registry
}

// New creates a Wizard reading answers from in and testing devices through reg.
func New(in io.Reader, out io.Writer, reg *gpio.Registry) *Wizard {
	return &Wizard{in: bufio.NewReader(in), out: out, reg: reg}
}

// Run asks for the pins, tests each device, and saves the result to path.
func (w *Wizard) Run(ctx context.Context, path string) (*config.Settings, error) {
	w.say("Looks like you are running pi-cooler for the first time. Let's set everything up.\n\n")

	s, err := w.askPins()
	if err != nil {
		return nil, err
	}

	w.say("\nNow let's check that everything works.\n")
	if err := w.testDevices(ctx, s); err != nil {
		return nil, err
	}

	w.say("Saving changes...\n")
	if err := config.Save(path, s); err != nil {
		return nil, err
	}
	w.say("\nThe configuration file has been created. Start the daemon with:\n\tpi-cooler %s\n\n", path)
	return s, nil
}

func (w *Wizard) askPins() (*config.Settings, error) {
	s := config.Default()

	var err error
	if s.Pins.CoolerFan, err = w.ask("What GPIO pin is the cooler fan on? (blank if not fitted)"); err != nil {
		return nil, err
	}
	if s.Pins.CoolerFan != "" {
		t, err := w.ask("Is the cooler fan switched by an NPN or PNP transistor? (blank if none)")
		if err != nil {
			return nil, err
		}
		switch strings.ToLower(t) {
		case "", "npn":
		case "pnp":
			s.CoolerFanReversed = true
		default:
			return nil, fmt.Errorf("%q: %w", t, ErrTransistor)
		}
	}

	if s.Pins.PowerButton, err = w.ask("What GPIO pin is the power button on? (blank if not fitted)"); err != nil {
		return nil, err
	}
	if s.Pins.PowerButton != "" {
		if s.Pins.PowerLED, err = w.ask("What GPIO pin is the power button LED on? It lights while the button is pressed. (blank if not fitted)"); err != nil {
			return nil, err
		}
	}
	if s.Pins.StatusLED, err = w.ask("What GPIO pin is the status LED on? It stays on while the daemon runs. (blank if not fitted)"); err != nil {
		return nil, err
	}

	if s.Pins.CoolerFan == "" && s.Pins.PowerButton == "" && s.Pins.StatusLED == "" {
		return nil, ErrNoHardware
	}

	seen := make(map[string]bool)
	for _, pin := range []string{s.Pins.CoolerFan, s.Pins.PowerButton, s.Pins.PowerLED, s.Pins.StatusLED} {
		if pin == "" {
			continue
		}
		key := gpio.CanonicalPin(pin)
		if seen[key] {
			return nil, fmt.Errorf("%q: %w", pin, ErrSamePin)
		}
		seen[key] = true
	}
	return s, nil
}

func (w *Wizard) testDevices(ctx context.Context, s *config.Settings) error {
	if s.Pins.CoolerFan != "" {
		if err := w.testOutput(s.Pins.CoolerFan, s.CoolerFanReversed, "Is the cooler fan running?"); err != nil {
			return fmt.Errorf("cooler fan: %w", err)
		}
	}

	if s.Pins.PowerButton != "" {
		if err := w.testButton(ctx, s.Pins.PowerButton); err != nil {
			return fmt.Errorf("power button: %w", err)
		}
	}

	if s.Pins.PowerLED != "" {
		if err := w.testPowerLED(s.Pins.PowerLED); err != nil {
			return fmt.Errorf("power LED: %w", err)
		}
	}

	if s.Pins.StatusLED != "" {
		if err := w.testOutput(s.Pins.StatusLED, false, "Is the status LED on?"); err != nil {
			return fmt.Errorf("status LED: %w", err)
		}
	}
	return nil
}

func (w *Wizard) testOutput(pin string, reversed bool, question string) error {
	out, err := w.reg.OpenOutput(pin, reversed)
	if err != nil {
		return err
	}
	defer out.Close()

	if err := out.Set(true); err != nil {
		return err
	}
	if err := w.confirm(question); err != nil {
		return err
	}
	return out.Set(false)
}

func (w *Wizard) testPowerLED(pin string) error {
	l := led.NewPowerLED(w.reg, pin, button.DefaultHold)
	if err := l.Initialize(); err != nil {
		return err
	}
	defer l.Close()

	if err := l.On(); err != nil {
		return err
	}
	if err := w.confirm("Is the power button LED on?"); err != nil {
		return err
	}
	return l.Off()
}

func (w *Wizard) testButton(ctx context.Context, pin string) error {
	b := button.New(w.reg, pin, config.DefaultButtonCmds)
	if err := b.Initialize(); err != nil {
		return err
	}
	defer b.Close()

	if _, err := w.ask(fmt.Sprintf("Next the power button is tested: press it within %v. Press [ENTER] when ready.", button.TestTimeout)); err != nil {
		return err
	}
	w.say("PRESS THE BUTTON NOW!\n")

	pressed, err := b.Test(ctx)
	if err != nil {
		return err
	}
	if !pressed {
		return ErrNotWorking
	}
	return nil
}

func (w *Wizard) confirm(question string) error {
	answer, err := w.ask(question + " (YES or NO, default = YES)")
	if err != nil {
		return err
	}
	switch strings.ToLower(answer) {
	case "", "y", "yes":
		return nil
	default:
		return ErrNotWorking
	}
}

// ask prints question and returns the trimmed answer.
func (w *Wizard) ask(question string) (string, error) {
	w.say("%s > ", question)
	line, err := w.in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", fmt.Errorf("read answer: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func (w *Wizard) say(format string, args ...any) {
	fmt.Fprintf(w.out, format, args...)
}
