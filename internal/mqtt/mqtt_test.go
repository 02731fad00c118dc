package mqtt

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/sweeney/pi-cooler/internal/events"
	"github.com/sweeney/pi-cooler/internal/logic"
)

var ts = time.Date(2026, 2, 3, 10, 30, 45, 0, time.UTC)

func TestTopics(t *testing.T) {
	tests := []struct{ got, want string }{
		{TopicFan, "pi-cooler/fan/events"},
		{TopicButton, "pi-cooler/button/events"},
		{TopicSystem, "pi-cooler/system"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("unexpected topic: got %s, want %s", tt.got, tt.want)
		}
	}
}

func TestFormatFanPayloadExactJSON(t *testing.T) {
	tests := []struct {
		name  string
		event events.FanChecked
		want  string
	}{
		{
			name:  "with reading",
			event: events.FanChecked{At: ts, On: true, Reason: logic.ReasonAboveStart, Temp: 71.5, HasTemp: true},
			want:  `{"fan":{"timestamp":"2026-02-03T10:30:45Z","state":"ON","reason":"ABOVE_START","temperature":71.5}}`,
		},
		{
			name:  "forced without reading",
			event: events.FanChecked{At: ts, On: true, Reason: logic.ReasonForced},
			want:  `{"fan":{"timestamp":"2026-02-03T10:30:45Z","state":"ON","reason":"FORCED","temperature":null}}`,
		},
		{
			name:  "off",
			event: events.FanChecked{At: ts, Reason: logic.ReasonBelowStop, Temp: 55, HasTemp: true},
			want:  `{"fan":{"timestamp":"2026-02-03T10:30:45Z","state":"OFF","reason":"BELOW_STOP","temperature":55}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload, err := FormatFanPayload(tt.event)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(payload) != tt.want {
				t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", payload, tt.want)
			}
		})
	}
}

func TestFormatFanPayloadTimezoneConversion(t *testing.T) {
	loc := time.FixedZone("EST", -5*60*60)
	event := events.FanChecked{At: time.Date(2026, 2, 3, 5, 30, 45, 0, loc)}

	payload, err := FormatFanPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var parsed FanPayload
	if err := json.Unmarshal(payload, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if parsed.Fan.Timestamp != "2026-02-03T10:30:45Z" {
		t.Errorf("timestamp not converted to UTC: %s", parsed.Fan.Timestamp)
	}
}

func TestFormatButtonPayloadExactJSON(t *testing.T) {
	tests := []struct {
		name  string
		event events.ButtonActivated
		want  string
	}{
		{
			name: "command",
			event: events.ButtonActivated{At: ts, Command: "shutdown now",
				Result: logic.ButtonResult{Outcome: logic.OutcomeCommand, Stage: 1}},
			want: `{"button":{"timestamp":"2026-02-03T10:30:45Z","outcome":"COMMAND","stage":1,"command":"shutdown now"}}`,
		},
		{
			name:  "tap omits command",
			event: events.ButtonActivated{At: ts, Result: logic.ButtonResult{Outcome: logic.OutcomeTap}},
			want:  `{"button":{"timestamp":"2026-02-03T10:30:45Z","outcome":"TAP","stage":0}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload, err := FormatButtonPayload(tt.event)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(payload) != tt.want {
				t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", payload, tt.want)
			}
		})
	}
}

func TestFormatSystemPayloadExactJSON(t *testing.T) {
	event := SystemEvent{
		Timestamp: ts,
		Event:     "SHUTDOWN",
		Reason:    "SIGTERM",
	}

	payload, err := FormatSystemPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := `{"system":{"timestamp":"2026-02-03T10:30:45Z","event":"SHUTDOWN","reason":"SIGTERM"}}`
	if string(payload) != expected {
		t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", string(payload), expected)
	}
}

func TestFormatSystemPayloadAllSignals(t *testing.T) {
	for _, reason := range []string{"SIGTERM", "SIGINT", "UNKNOWN"} {
		t.Run(reason, func(t *testing.T) {
			payload, err := FormatSystemPayload(SystemEvent{Timestamp: time.Now(), Event: "SHUTDOWN", Reason: reason})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			var parsed SystemPayload
			if err := json.Unmarshal(payload, &parsed); err != nil {
				t.Fatalf("invalid JSON: %v", err)
			}
			if parsed.System.Reason != reason {
				t.Errorf("reason: got %s, want %s", parsed.System.Reason, reason)
			}
		})
	}
}

func TestFormatSystemPayloadRaw(t *testing.T) {
	raw := []byte(`{"status":{"event":"STARTUP"}}`)
	payload, err := FormatSystemPayload(SystemEvent{Event: "STARTUP", RawPayload: raw})
	if err != nil {
		t.Fatal(err)
	}
	if string(payload) != string(raw) {
		t.Errorf("raw payload not passed through: %s", payload)
	}
}

func TestFormatSystemPayloadReconnected(t *testing.T) {
	event := SystemEvent{
		Timestamp: time.Date(2026, 2, 10, 14, 30, 0, 0, time.UTC),
		Event:     "RECONNECTED",
	}

	payload, err := FormatSystemPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := `{"system":{"timestamp":"2026-02-10T14:30:00Z","event":"RECONNECTED"}}`
	if string(payload) != expected {
		t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", string(payload), expected)
	}
}

func TestFakePublisher(t *testing.T) {
	f := NewFakePublisher()

	fan := events.FanChecked{At: ts, On: true, Reason: logic.ReasonForced}
	btn := events.ButtonActivated{At: ts, Result: logic.ButtonResult{Outcome: logic.OutcomeTap}}

	if err := f.PublishFan(fan); err != nil {
		t.Fatal(err)
	}
	if err := f.PublishButton(btn); err != nil {
		t.Fatal(err)
	}

	if len(f.FanEvents) != 1 || f.FanEvents[0] != fan {
		t.Errorf("FanEvents: %+v", f.FanEvents)
	}
	if len(f.ButtonEvents) != 1 || f.ButtonEvents[0] != btn {
		t.Errorf("ButtonEvents: %+v", f.ButtonEvents)
	}
	if len(f.Payloads) != 2 {
		t.Fatalf("expected 2 payloads, got %d", len(f.Payloads))
	}

	var parsed ButtonPayload
	if err := json.Unmarshal(f.Payloads[1], &parsed); err != nil {
		t.Fatal(err)
	}
	if parsed.Button.Outcome != "TAP" {
		t.Errorf("second payload should be the button: %s", f.Payloads[1])
	}
}

func TestFakePublisherErrors(t *testing.T) {
	f := NewFakePublisher()
	f.PublishError = errors.New("broker down")
	f.PublishSystemError = errors.New("broker down")

	if err := f.PublishFan(events.FanChecked{}); err == nil {
		t.Error("expected PublishFan error")
	}
	if err := f.PublishButton(events.ButtonActivated{}); err == nil {
		t.Error("expected PublishButton error")
	}
	if err := f.PublishSystem(SystemEvent{}); err == nil {
		t.Error("expected PublishSystem error")
	}
	if len(f.FanEvents)+len(f.ButtonEvents)+len(f.SystemEvents) != 0 {
		t.Error("failed publishes should not be recorded")
	}
}

func TestFakePublisherResetAndClose(t *testing.T) {
	f := NewFakePublisher()
	f.PublishFan(events.FanChecked{})
	f.PublishSystem(SystemEvent{Event: "STARTUP", Retained: true})
	f.Connected = true
	f.Close()

	if !f.Closed {
		t.Error("expected Closed=true")
	}
	if !f.SystemEvents[0].Retained {
		t.Error("retained flag should be recorded")
	}

	f.Reset()
	if f.FanEvents != nil || f.SystemEvents != nil || f.Payloads != nil || f.Closed || f.IsConnected() {
		t.Errorf("Reset left state behind: %+v", f)
	}
}
