package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	Fan           *FanJSON     `json:"fan,omitempty"`
	Button        *ButtonJSON  `json:"button,omitempty"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Counts        CountsJSON   `json:"event_counts"`
	Network       *NetworkJSON `json:"network,omitempty"`
	Config        ConfigJSON   `json:"config"`
}

// FanJSON reports the cooler fan. Temperature is null without a reading.
type FanJSON struct {
	State       string   `json:"state"`
	Reason      string   `json:"reason,omitempty"`
	Temperature *float64 `json:"temperature"`
	LastCheck   string   `json:"last_check,omitempty"`
}

// ButtonJSON reports the last power button activation.
type ButtonJSON struct {
	LastOutcome string `json:"last_outcome,omitempty"`
	LastStage   int    `json:"last_stage"`
	LastPress   string `json:"last_press,omitempty"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of activity counts.
type CountsJSON struct {
	FanOn    int `json:"fan_on"`
	FanOff   int `json:"fan_off"`
	Taps     int `json:"taps"`
	Commands int `json:"commands"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// PinsJSON is the JSON representation of the configured pins.
type PinsJSON struct {
	CoolerFan   string `json:"cooler_fan,omitempty"`
	PowerButton string `json:"power_button,omitempty"`
	PowerLED    string `json:"power_led,omitempty"`
	StatusLED   string `json:"status_led,omitempty"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	Pins           PinsJSON `json:"pins"`
	FanReversed    bool     `json:"fan_reversed"`
	RunTemperature string   `json:"run_temperature,omitempty"`
	RunTimeSpan    string   `json:"run_time_span,omitempty"`
	ButtonCommands []string `json:"button_commands,omitempty"`
	Driver         string   `json:"driver"`
	HeartbeatMs    int64    `json:"heartbeat_ms"`
	Broker         string   `json:"broker"`
	HTTPPort       string   `json:"http_port"`
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func buildInner(snap Snapshot) StatusInner {
	c := snap.Config
	inner := StatusInner{
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     formatTime(snap.StartTime),
		Timestamp:     formatTime(snap.Now),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: c.Broker},
		Counts: CountsJSON{
			FanOn:    snap.Counts.FanOn,
			FanOff:   snap.Counts.FanOff,
			Taps:     snap.Counts.Taps,
			Commands: snap.Counts.Commands,
		},
		Config: ConfigJSON{
			Pins: PinsJSON{
				CoolerFan:   c.Pins.CoolerFan,
				PowerButton: c.Pins.PowerButton,
				PowerLED:    c.Pins.PowerLED,
				StatusLED:   c.Pins.StatusLED,
			},
			FanReversed:    c.FanReversed,
			RunTemperature: c.RunTemperature,
			RunTimeSpan:    c.RunTimeSpan,
			ButtonCommands: c.ButtonCommands,
			Driver:         c.Driver,
			HeartbeatMs:    c.HeartbeatMs,
			Broker:         c.Broker,
			HTTPPort:       c.HTTPPort,
		},
	}

	if c.Pins.CoolerFan != "" {
		state := string(snap.Fan)
		if state == "" {
			state = "UNKNOWN"
		}
		fan := &FanJSON{
			State:     state,
			Reason:    string(snap.FanReason),
			LastCheck: formatTime(snap.LastCheck),
		}
		if snap.HasTemperature {
			temp := snap.Temperature
			fan.Temperature = &temp
		}
		inner.Fan = fan
	}

	if c.Pins.PowerButton != "" {
		inner.Button = &ButtonJSON{
			LastOutcome: string(snap.LastButton.Outcome),
			LastStage:   snap.LastButton.Stage,
			LastPress:   formatTime(snap.LastPress),
		}
	}
	return inner
}

func buildNetwork(snap Snapshot, inner *StatusInner) {
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	buildNetwork(snap, &inner)

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	buildNetwork(snap, &inner)

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
