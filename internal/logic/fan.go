package logic

import "time"

// Forced reports whether now falls inside the schedule's forced-run window.
// The window is the first Run of every Cycle counted from the Unix epoch,
// so it stays put across restarts. A zero Run or Cycle disables it.
func (s Schedule) Forced(now time.Time) bool {
	if s.Run <= 0 || s.Cycle <= 0 {
		return false
	}
	elapsed := time.Duration(now.UnixNano() % int64(s.Cycle))
	if elapsed < 0 {
		elapsed += s.Cycle
	}
	return elapsed <= s.Run
}

// DecideFan applies the fan decision table.
//
// Order of precedence: the forced-run window, then a missing reading (OFF),
// then the thresholds. Inside the hysteresis band the current level is kept.
func DecideFan(th Thresholds, sched Schedule, in FanInput) FanDecision {
	if sched.Forced(in.Now) {
		return FanDecision{On: true, Reason: ReasonForced}
	}
	return DecideTemperature(th, in)
}

// DecideTemperature is DecideFan without the forced-run window.
func DecideTemperature(th Thresholds, in FanInput) FanDecision {
	switch {
	case !in.HasTemp:
		return FanDecision{On: false, Reason: ReasonNoReading}
	case in.Temp < th.Stop:
		return FanDecision{On: false, Reason: ReasonBelowStop}
	case in.Temp >= th.Start:
		return FanDecision{On: true, Reason: ReasonAboveStart}
	default:
		return FanDecision{On: in.Current, Reason: ReasonHysteresis}
	}
}
