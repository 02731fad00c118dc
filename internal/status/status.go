// Package status provides a thread-safe status tracker for the pi-cooler daemon.
// It is read by the HTTP handlers and the MQTT system events.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/pi-cooler/internal/logic"
)

// NetworkInfo contains network state as reported by pi-helper.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Pins lists the configured GPIO lines. Empty means not fitted.
type Pins struct {
	CoolerFan   string
	PowerButton string
	PowerLED    string
	StatusLED   string
}

// Config contains daemon configuration for display.
type Config struct {
	Pins           Pins
	FanReversed    bool
	RunTemperature string
	RunTimeSpan    string
	ButtonCommands []string
	Driver         string
	HeartbeatMs    int64
	Broker         string
	HTTPPort       string
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Fan            logic.State // empty until the first check
	FanReason      logic.Reason
	Temperature    float64 // valid only when HasTemperature
	HasTemperature bool
	LastCheck      time.Time
	LastButton     logic.ButtonResult
	LastPress      time.Time
	Counts         logic.Counts
	StartTime      time.Time
	Now            time.Time
	MQTTConnected  bool
	Network        *NetworkInfo
	Config         Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// UpdateFan records the outcome of a fan check. A check without a reading
// keeps the last temperature but clears HasTemperature.
func (t *Tracker) UpdateFan(at time.Time, on bool, reason logic.Reason, temp float64, hasTemp bool) {
	t.mu.Lock()
	t.snap.Fan = logic.StateOf(on)
	t.snap.FanReason = reason
	t.snap.HasTemperature = hasTemp
	if hasTemp {
		t.snap.Temperature = temp
	}
	t.snap.LastCheck = at
	t.mu.Unlock()
}

// UpdateButton records a finished button activation.
func (t *Tracker) UpdateButton(at time.Time, r logic.ButtonResult) {
	t.mu.Lock()
	t.snap.LastButton = r
	t.snap.LastPress = at
	t.mu.Unlock()
}

// SetCounts sets the activity counters.
func (t *Tracker) SetCounts(counts logic.Counts) {
	t.mu.Lock()
	t.snap.Counts = counts
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
