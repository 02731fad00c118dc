package logic

import (
	"testing"
	"time"
)

var (
	testThresholds = Thresholds{Stop: 60, Start: 70}
	noForcedRun    = Schedule{Run: 0, Cycle: 24 * time.Hour}
)

// atElapsed returns a wall-clock time that is elapsed into a cycle window.
func atElapsed(cycle, elapsed time.Duration) time.Time {
	return time.Unix(0, 0).Add(1000*cycle + elapsed)
}

func TestDecideFanTable(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		temp       float64
		hasTemp    bool
		current    bool
		wantOn     bool
		wantReason Reason
	}{
		{"below stop from on", 55, true, true, false, ReasonBelowStop},
		{"below stop from off", 55, true, false, false, ReasonBelowStop},
		{"band keeps on", 65, true, true, true, ReasonHysteresis},
		{"band keeps off", 65, true, false, false, ReasonHysteresis},
		{"at stop keeps level", 60, true, true, true, ReasonHysteresis},
		{"at start", 70, true, false, true, ReasonAboveStart},
		{"above start", 85, true, true, true, ReasonAboveStart},
		{"no reading from on", 0, false, true, false, ReasonNoReading},
		{"no reading from off", 0, false, false, false, ReasonNoReading},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DecideFan(testThresholds, noForcedRun, FanInput{
				Now:     now,
				Current: tt.current,
				Temp:    tt.temp,
				HasTemp: tt.hasTemp,
			})
			if got.On != tt.wantOn {
				t.Errorf("On: got %v, want %v", got.On, tt.wantOn)
			}
			if got.Reason != tt.wantReason {
				t.Errorf("Reason: got %s, want %s", got.Reason, tt.wantReason)
			}
		})
	}
}

func TestDecideFanForcedWindowWins(t *testing.T) {
	sched := Schedule{Run: 300 * time.Second, Cycle: time.Hour}

	for _, in := range []FanInput{
		{Temp: 0, HasTemp: true},
		{Temp: 65, HasTemp: true},
		{HasTemp: false},
	} {
		in.Now = atElapsed(time.Hour, 100*time.Second)
		got := DecideFan(testThresholds, sched, in)
		if !got.On || got.Reason != ReasonForced {
			t.Errorf("input %+v: got %+v, want forced ON", in, got)
		}
	}
}

func TestScheduleForced(t *testing.T) {
	sched := Schedule{Run: 300 * time.Second, Cycle: time.Hour}

	tests := []struct {
		elapsed time.Duration
		want    bool
	}{
		{0, true},
		{100 * time.Second, true},
		{300 * time.Second, true},
		{301 * time.Second, false},
		{59 * time.Minute, false},
	}
	for _, tt := range tests {
		if got := sched.Forced(atElapsed(time.Hour, tt.elapsed)); got != tt.want {
			t.Errorf("elapsed %v: got %v, want %v", tt.elapsed, got, tt.want)
		}
	}
}

func TestScheduleForcedAlignedToEpoch(t *testing.T) {
	sched := Schedule{Run: 5 * time.Minute, Cycle: 24 * time.Hour}

	if !sched.Forced(time.Date(2026, 3, 4, 0, 2, 0, 0, time.UTC)) {
		t.Error("00:02 UTC should be inside the daily window")
	}
	if sched.Forced(time.Date(2026, 3, 4, 0, 6, 0, 0, time.UTC)) {
		t.Error("00:06 UTC should be outside the daily window")
	}
}

func TestScheduleForcedDisabled(t *testing.T) {
	now := atElapsed(time.Hour, 0)
	if (Schedule{Run: 0, Cycle: time.Hour}).Forced(now) {
		t.Error("zero run should never force")
	}
	if (Schedule{Run: 0, Cycle: 0}).Forced(now) {
		t.Error("zero cycle should never force")
	}
}

func TestStateOf(t *testing.T) {
	if StateOf(true) != StateOn {
		t.Error("true should be ON")
	}
	if StateOf(false) != StateOff {
		t.Error("false should be OFF")
	}
}
