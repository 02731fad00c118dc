// Package events carries fan and button activity from the controllers to
// telemetry consumers (status page, MQTT, metrics).
package events

import (
	"time"

	"github.com/sweeney/pi-cooler/internal/logic"
)

// Event type constants for kelindar/event.
const (
	TypeFanChecked uint32 = iota + 1
	TypeButtonActivated
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// FanChecked is published after every fan check.
type FanChecked struct {
	At      time.Time
	On      bool
	Changed bool // level differs from before the check
	Reason  logic.Reason
	Temp    float64 // valid only when HasTemp
	HasTemp bool
}

// Type returns the event type identifier for FanChecked.
func (e FanChecked) Type() uint32 { return TypeFanChecked }

// ButtonActivated is published when an activation cycle finishes with a press.
type ButtonActivated struct {
	At      time.Time
	Result  logic.ButtonResult
	Command string // set when Result.Outcome is OutcomeCommand
}

// Type returns the event type identifier for ButtonActivated.
func (e ButtonActivated) Type() uint32 { return TypeButtonActivated }
