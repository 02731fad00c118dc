package logic

import (
	"testing"
	"time"
)

func TestPlanBlink(t *testing.T) {
	tests := []struct {
		name       string
		stage      int
		last       int
		wantPeriod time.Duration
		wantCount  int
	}{
		{"first of two", 0, 1, 250 * time.Millisecond, 14},
		{"last of two", 1, 1, 750 * time.Millisecond, 6},
		{"middle of three", 1, 2, 500 * time.Millisecond, 8},
		{"single stage", 0, 0, 750 * time.Millisecond, 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := PlanBlink(tt.stage, tt.last, 3*time.Second)
			if p.Mode != BlinkCycle {
				t.Fatalf("mode: got %v, want BlinkCycle", p.Mode)
			}
			if p.Period() != tt.wantPeriod {
				t.Errorf("period: got %v, want %v", p.Period(), tt.wantPeriod)
			}
			if p.On != tt.wantPeriod/2 {
				t.Errorf("on: got %v, want %v", p.On, tt.wantPeriod/2)
			}
			if p.Count != tt.wantCount {
				t.Errorf("count: got %d, want %d", p.Count, tt.wantCount)
			}
			if time.Duration(p.Count)*p.Period() < 3*time.Second {
				t.Errorf("blink %v x %d does not cover the hold timeout", p.Period(), p.Count)
			}
		})
	}
}

func TestPlanBlinkPeriodGrowsWithStage(t *testing.T) {
	prev := time.Duration(0)
	for stage := 0; stage <= 4; stage++ {
		p := PlanBlink(stage, 4, 3*time.Second)
		if p.Period() <= prev {
			t.Errorf("stage %d: period %v not longer than %v", stage, p.Period(), prev)
		}
		prev = p.Period()
	}
}

func TestPlanBlinkClamping(t *testing.T) {
	if p := PlanBlink(-1, 2, 3*time.Second); p.Mode != BlinkOff {
		t.Errorf("stage -1: got mode %v, want BlinkOff", p.Mode)
	}
	if p := PlanBlink(3, 2, 3*time.Second); p.Mode != BlinkOn {
		t.Errorf("stage past last: got mode %v, want BlinkOn", p.Mode)
	}
}
