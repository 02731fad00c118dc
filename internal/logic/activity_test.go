package logic

import (
	"testing"
	"time"
)

func TestActivityCounts(t *testing.T) {
	a := NewActivity(time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC))

	a.RecordFan(false, true)
	a.RecordFan(true, true)
	a.RecordFan(true, false)
	a.RecordFan(false, false)
	a.RecordButton(ButtonResult{Outcome: OutcomeTap})
	a.RecordButton(ButtonResult{Outcome: OutcomeCommand, Stage: 1})
	a.RecordButton(ButtonResult{Outcome: OutcomeHeld})
	a.RecordButton(ButtonResult{Outcome: OutcomeNone})

	want := Counts{FanOn: 1, FanOff: 1, Taps: 1, Commands: 1}
	if got := a.Counts(); got != want {
		t.Errorf("counts: got %+v, want %+v", got, want)
	}
}

func TestCheckHeartbeatDisabled(t *testing.T) {
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	a := NewActivity(start)

	if hb := a.CheckHeartbeat(start.Add(time.Hour), 0); hb != nil {
		t.Error("zero interval should disable heartbeat")
	}
	if hb := a.CheckHeartbeat(start.Add(time.Hour), -time.Minute); hb != nil {
		t.Error("negative interval should disable heartbeat")
	}
}

func TestCheckHeartbeatInterval(t *testing.T) {
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	a := NewActivity(start)

	if hb := a.CheckHeartbeat(start.Add(14*time.Minute), 15*time.Minute); hb != nil {
		t.Error("should not return heartbeat before interval")
	}

	hb := a.CheckHeartbeat(start.Add(15*time.Minute), 15*time.Minute)
	if hb == nil {
		t.Fatal("should return heartbeat at interval")
	}
	if hb.Uptime != 15*time.Minute {
		t.Errorf("uptime: got %v, want 15m", hb.Uptime)
	}

	if hb := a.CheckHeartbeat(start.Add(20*time.Minute), 15*time.Minute); hb != nil {
		t.Error("should not return heartbeat before next interval")
	}
	if hb := a.CheckHeartbeat(start.Add(30*time.Minute), 15*time.Minute); hb == nil {
		t.Error("should return second heartbeat")
	}
}

func TestHeartbeatCarriesCounts(t *testing.T) {
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	a := NewActivity(start)

	a.RecordFan(false, true)
	hb1 := a.CheckHeartbeat(start.Add(15*time.Minute), 15*time.Minute)
	if hb1.Counts.FanOn != 1 {
		t.Errorf("first heartbeat: expected FanOn=1, got %d", hb1.Counts.FanOn)
	}

	a.RecordFan(true, false)
	hb2 := a.CheckHeartbeat(start.Add(30*time.Minute), 15*time.Minute)
	if hb2.Counts.FanOn != 1 || hb2.Counts.FanOff != 1 {
		t.Errorf("second heartbeat: got %+v", hb2.Counts)
	}
}
