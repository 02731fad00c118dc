package logic

import "time"

// Activity counts fan transitions and button activations and decides when a
// heartbeat is due. It is not safe for concurrent use.
type Activity struct {
	startTime     time.Time
	lastHeartbeat time.Time
	counts        Counts
}

// NewActivity creates an Activity. The startTime is used for calculating
// uptime in heartbeat events.
func NewActivity(startTime time.Time) *Activity {
	return &Activity{
		startTime:     startTime,
		lastHeartbeat: startTime,
	}
}

// RecordFan counts a fan level change from prev to next.
// Checks that leave the level unchanged are not counted.
func (a *Activity) RecordFan(prev, next bool) {
	if prev == next {
		return
	}
	if next {
		a.counts.FanOn++
	} else {
		a.counts.FanOff++
	}
}

// RecordButton counts a finished activation cycle.
func (a *Activity) RecordButton(r ButtonResult) {
	switch r.Outcome {
	case OutcomeTap:
		a.counts.Taps++
	case OutcomeCommand:
		a.counts.Commands++
	}
}

// Counts returns a copy of the counters.
func (a *Activity) Counts() Counts {
	return a.counts
}

// CheckHeartbeat returns heartbeat data if the interval has elapsed since the
// last heartbeat (or startup). Returns nil if the interval has not elapsed,
// or if interval is <= 0 (disabled).
func (a *Activity) CheckHeartbeat(now time.Time, interval time.Duration) *HeartbeatData {
	if interval <= 0 {
		return nil
	}

	if now.Sub(a.lastHeartbeat) < interval {
		return nil
	}

	a.lastHeartbeat = now
	return &HeartbeatData{
		Timestamp: now,
		Uptime:    now.Sub(a.startTime),
		Counts:    a.counts,
	}
}
