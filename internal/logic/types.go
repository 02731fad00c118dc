// Package logic contains the pure control logic for the fan and the power button.
// This package has NO external dependencies (no GPIO, MQTT, OS, or time.Sleep).
// Time is always injectable via time.Time parameters.
package logic

import "time"

// State represents the logical level of an output.
type State string

const (
	StateOn  State = "ON"
	StateOff State = "OFF"
)

// StateOf converts a level into its State.
func StateOf(on bool) State {
	if on {
		return StateOn
	}
	return StateOff
}

// Thresholds is the fan hysteresis band in degrees Celsius.
// The fan stops below Stop and starts at or above Start.
type Thresholds struct {
	Stop  float64
	Start float64
}

// Schedule forces the fan on for the first Run of every Cycle,
// aligned to the Unix epoch.
type Schedule struct {
	Run   time.Duration
	Cycle time.Duration
}

// Reason explains a fan decision.
type Reason string

const (
	ReasonForced     Reason = "FORCED"
	ReasonNoReading  Reason = "NO_READING"
	ReasonBelowStop  Reason = "BELOW_STOP"
	ReasonAboveStart Reason = "ABOVE_START"
	ReasonHysteresis Reason = "HYSTERESIS"
)

// FanInput is everything the fan decision depends on.
type FanInput struct {
	Now     time.Time
	Current bool    // level the pin is currently driven to
	Temp    float64 // valid only when HasTemp
	HasTemp bool
}

// FanDecision is the outcome of one fan check.
type FanDecision struct {
	On     bool
	Reason Reason
}

// Counts tracks activity since startup.
type Counts struct {
	FanOn    int
	FanOff   int
	Taps     int
	Commands int
}

// HeartbeatData contains information for a heartbeat event.
type HeartbeatData struct {
	Timestamp time.Time
	Uptime    time.Duration
	Counts    Counts
}
