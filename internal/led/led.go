// Package led drives the status and power indicator LEDs.
package led

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/sweeney/pi-cooler/internal/gpio"
	"github.com/sweeney/pi-cooler/internal/logic"
)

// StatusLED is lit for as long as the daemon runs.
type StatusLED struct {
	reg *gpio.Registry
	pin string
	out *gpio.OutputHandle
}

// NewStatusLED creates a StatusLED on pin. Nothing is opened until Initialize.
func NewStatusLED(reg *gpio.Registry, pin string) *StatusLED {
	return &StatusLED{reg: reg, pin: pin}
}

// Initialize claims the pin and turns the LED on.
func (l *StatusLED) Initialize() error {
	out, err := l.reg.OpenOutput(l.pin, false)
	if err != nil {
		return fmt.Errorf("status led: %w", err)
	}
	if err := out.Set(true); err != nil {
		out.Close()
		return fmt.Errorf("status led: %w", err)
	}
	l.out = out
	log.Printf("led: status LED on pin=%s", l.pin)
	return nil
}

// Close releases the pin. The LED is not switched off first.
func (l *StatusLED) Close() error {
	if l.out == nil {
		return nil
	}
	return l.out.Close()
}

// PowerLED shows button activity: on while pressed, blinking while a
// command is armed. Blinking runs in a goroutine owned by the LED; any
// later call stops it first. It is safe for concurrent use.
type PowerLED struct {
	reg  *gpio.Registry
	pin  string
	hold time.Duration

	mu   sync.Mutex
	out  *gpio.OutputHandle
	stop chan struct{}
	done chan struct{}
}

// NewPowerLED creates a PowerLED on pin. hold is the button hold timeout the
// blink periods are derived from.
func NewPowerLED(reg *gpio.Registry, pin string, hold time.Duration) *PowerLED {
	return &PowerLED{reg: reg, pin: pin, hold: hold}
}

// Initialize claims the pin. The LED starts off.
func (l *PowerLED) Initialize() error {
	out, err := l.reg.OpenOutput(l.pin, false)
	if err != nil {
		return fmt.Errorf("power led: %w", err)
	}
	l.mu.Lock()
	l.out = out
	l.mu.Unlock()
	return nil
}

// On lights the LED steadily.
func (l *PowerLED) On() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stopBlink()
	return l.set(true)
}

// Off switches the LED off.
func (l *PowerLED) Off() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stopBlink()
	return l.set(false)
}

// Blink shows escalation stage out of 0..lastStage. A negative stage
// switches the LED off and a stage past lastStage lights it steadily.
func (l *PowerLED) Blink(stage, lastStage int) error {
	p := logic.PlanBlink(stage, lastStage, l.hold)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.stopBlink()

	switch p.Mode {
	case logic.BlinkOff:
		return l.set(false)
	case logic.BlinkOn:
		return l.set(true)
	}
	if l.out == nil {
		return fmt.Errorf("power led: not initialized")
	}

	l.stop = make(chan struct{})
	l.done = make(chan struct{})
	go blink(l.out, p, l.stop, l.done)
	return nil
}

// Close stops any blink and releases the pin.
func (l *PowerLED) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stopBlink()
	if l.out == nil {
		return nil
	}
	err := l.out.Close()
	l.out = nil
	return err
}

func (l *PowerLED) set(on bool) error {
	if l.out == nil {
		return fmt.Errorf("power led: not initialized")
	}
	return l.out.Set(on)
}

// stopBlink must be called with mu held.
func (l *PowerLED) stopBlink() {
	if l.stop == nil {
		return
	}
	close(l.stop)
	<-l.done
	l.stop, l.done = nil, nil
}

func blink(out *gpio.OutputHandle, p logic.BlinkPattern, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	timer := time.NewTimer(0)
	<-timer.C
	defer timer.Stop()

	wait := func(d time.Duration) bool {
		timer.Reset(d)
		select {
		case <-stop:
			return false
		case <-timer.C:
			return true
		}
	}

	for i := 0; i < p.Count; i++ {
		if err := out.Set(true); err != nil {
			log.Printf("led: blink: %v", err)
			return
		}
		if !wait(p.On) {
			return
		}
		if err := out.Set(false); err != nil {
			log.Printf("led: blink: %v", err)
			return
		}
		if !wait(p.Off) {
			return
		}
	}
}
