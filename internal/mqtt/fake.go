package mqtt

import (
	"github.com/sweeney/pi-cooler/internal/events"
)

// FakePublisher records published events for test assertions.
type FakePublisher struct {
	// FanEvents contains all fan events that were published.
	FanEvents []events.FanChecked

	// ButtonEvents contains all button activations that were published.
	ButtonEvents []events.ButtonActivated

	// Payloads contains the JSON payloads of fan and button events, in order.
	Payloads [][]byte

	// SystemEvents contains all system events that were published.
	SystemEvents []SystemEvent

	// SystemPayloads contains the JSON payloads for system events.
	SystemPayloads [][]byte

	// PublishError, if set, will be returned by PublishFan and PublishButton.
	PublishError error

	// PublishSystemError, if set, will be returned by PublishSystem.
	PublishSystemError error

	// Closed tracks if Close was called.
	Closed bool

	// Connected controls the return value of IsConnected.
	Connected bool
}

// NewFakePublisher creates a FakePublisher for testing.
func NewFakePublisher() *FakePublisher {
	return &FakePublisher{}
}

// PublishFan records the fan event.
func (f *FakePublisher) PublishFan(event events.FanChecked) error {
	if f.PublishError != nil {
		return f.PublishError
	}

	f.FanEvents = append(f.FanEvents, event)

	payload, err := FormatFanPayload(event)
	if err != nil {
		return err
	}
	f.Payloads = append(f.Payloads, payload)

	return nil
}

// PublishButton records the button activation.
func (f *FakePublisher) PublishButton(event events.ButtonActivated) error {
	if f.PublishError != nil {
		return f.PublishError
	}

	f.ButtonEvents = append(f.ButtonEvents, event)

	payload, err := FormatButtonPayload(event)
	if err != nil {
		return err
	}
	f.Payloads = append(f.Payloads, payload)

	return nil
}

// PublishSystem records the system event.
func (f *FakePublisher) PublishSystem(event SystemEvent) error {
	if f.PublishSystemError != nil {
		return f.PublishSystemError
	}

	f.SystemEvents = append(f.SystemEvents, event)

	payload, err := FormatSystemPayload(event)
	if err != nil {
		return err
	}
	f.SystemPayloads = append(f.SystemPayloads, payload)

	return nil
}

// Close marks the publisher as closed.
func (f *FakePublisher) Close() error {
	f.Closed = true
	return nil
}

// IsConnected reports whether the fake publisher is "connected".
func (f *FakePublisher) IsConnected() bool {
	return f.Connected
}

// Reset clears recorded events.
func (f *FakePublisher) Reset() {
	f.FanEvents = nil
	f.ButtonEvents = nil
	f.Payloads = nil
	f.SystemEvents = nil
	f.SystemPayloads = nil
	f.Closed = false
	f.PublishError = nil
	f.PublishSystemError = nil
	f.Connected = false
}
