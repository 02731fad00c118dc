// Package mqtt provides MQTT publishing with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/pi-cooler/internal/events"
)

// TopicFan is the MQTT topic for cooler fan state changes.
const TopicFan = "pi-cooler/fan/events"

// TopicButton is the MQTT topic for power button activations.
const TopicButton = "pi-cooler/button/events"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "pi-cooler/system"

// Publisher publishes events to MQTT.
type Publisher interface {
	// PublishFan sends a fan check to the broker.
	// Returns error if publishing fails (should not crash the process).
	PublishFan(event events.FanChecked) error

	// PublishButton sends a button activation to the broker.
	PublishButton(event events.ButtonActivated) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// FanPayload is the MQTT message payload for a fan event.
type FanPayload struct {
	Fan FanPayloadInner `json:"fan"`
}

// FanPayloadInner contains the fan event details. Temperature is null
// when the sensor gave no reading or was not consulted.
type FanPayloadInner struct {
	Timestamp   string   `json:"timestamp"`
	State       string   `json:"state"`
	Reason      string   `json:"reason"`
	Temperature *float64 `json:"temperature"`
}

// FormatFanPayload creates the JSON payload for a fan event.
func FormatFanPayload(event events.FanChecked) ([]byte, error) {
	inner := FanPayloadInner{
		Timestamp: event.At.UTC().Format(time.RFC3339),
		State:     "OFF",
		Reason:    string(event.Reason),
	}
	if event.On {
		inner.State = "ON"
	}
	if event.HasTemp {
		temp := event.Temp
		inner.Temperature = &temp
	}
	return json.Marshal(FanPayload{Fan: inner})
}

// ButtonPayload is the MQTT message payload for a button activation.
type ButtonPayload struct {
	Button ButtonPayloadInner `json:"button"`
}

// ButtonPayloadInner contains the button activation details.
type ButtonPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Outcome   string `json:"outcome"`
	Stage     int    `json:"stage"`
	Command   string `json:"command,omitempty"`
}

// FormatButtonPayload creates the JSON payload for a button activation.
func FormatButtonPayload(event events.ButtonActivated) ([]byte, error) {
	return json.Marshal(ButtonPayload{
		Button: ButtonPayloadInner{
			Timestamp: event.At.UTC().Format(time.RFC3339),
			Outcome:   string(event.Result.Outcome),
			Stage:     event.Result.Stage,
			Command:   event.Command,
		},
	})
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}
