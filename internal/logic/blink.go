package logic

import "time"

// BlinkMode is how the Power LED is driven for an escalation stage.
type BlinkMode int

const (
	BlinkOff BlinkMode = iota
	BlinkOn
	BlinkCycle
)

// BlinkPattern is a finite blink: Count cycles of On then Off.
type BlinkPattern struct {
	Mode  BlinkMode
	On    time.Duration
	Off   time.Duration
	Count int
}

// Period returns the length of one on/off cycle.
func (p BlinkPattern) Period() time.Duration { return p.On + p.Off }

// MinBlinkPeriod is the blink period of the first stage.
func MinBlinkPeriod(hold time.Duration) time.Duration { return hold / 12 }

// MaxBlinkPeriod is the blink period of the last stage.
func MaxBlinkPeriod(hold time.Duration) time.Duration { return hold / 4 }

// PlanBlink computes the blink for stage out of stages 0..lastStage.
//
// The period grows linearly from MinBlinkPeriod at stage 0 to MaxBlinkPeriod
// at lastStage, so a slower blink means a more drastic command. A single
// stage uses MaxBlinkPeriod. The count covers at least the hold timeout.
// A negative stage means off and a stage past lastStage means steady on.
func PlanBlink(stage, lastStage int, hold time.Duration) BlinkPattern {
	if stage < 0 {
		return BlinkPattern{Mode: BlinkOff}
	}
	if stage > lastStage {
		return BlinkPattern{Mode: BlinkOn}
	}

	minP, maxP := MinBlinkPeriod(hold), MaxBlinkPeriod(hold)
	period := maxP
	if lastStage > 0 {
		period = minP + time.Duration(int64(maxP-minP)*int64(stage)/int64(lastStage))
	}
	if period <= 0 {
		return BlinkPattern{Mode: BlinkOn}
	}

	return BlinkPattern{
		Mode:  BlinkCycle,
		On:    period / 2,
		Off:   period - period/2,
		Count: int(hold/period) + 2,
	}
}
