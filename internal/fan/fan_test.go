package fan

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sweeney/pi-cooler/internal/events"
	"github.com/sweeney/pi-cooler/internal/gpio"
	"github.com/sweeney/pi-cooler/internal/logic"
)

type reading struct {
	temp float64
	ok   bool
}

type fakeSampler struct {
	mu       sync.Mutex
	readings []reading
	calls    int
}

func (s *fakeSampler) Sample(ctx context.Context) (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if len(s.readings) == 0 {
		return 0, false
	}
	r := s.readings[0]
	if len(s.readings) > 1 {
		s.readings = s.readings[1:]
	}
	return r.temp, r.ok
}

func (s *fakeSampler) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

var (
	day       = 24 * time.Hour
	dayStart  = time.Unix(int64(20000*day/time.Second), 0)
	inWindow  = dayStart.Add(2 * time.Minute)
	outWindow = dayStart.Add(6 * time.Hour)
)

func testConfig() Config {
	return Config{
		Pin:        "GPIO18",
		Thresholds: logic.Thresholds{Stop: 60, Start: 70},
		Schedule:   logic.Schedule{Run: 5 * time.Minute, Cycle: day},
	}
}

func newController(t *testing.T, cfg Config, s Sampler, now time.Time, opts ...Option) (*Controller, *gpio.FakeOutput) {
	t.Helper()
	d := gpio.NewFakeDriver()
	opts = append([]Option{WithClock(func() time.Time { return now })}, opts...)
	c := New(gpio.NewRegistry(d), cfg, s, opts...)
	if err := c.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c, d.Output(cfg.Pin)
}

func TestCheckOnceDecisions(t *testing.T) {
	tests := []struct {
		name       string
		current    bool
		reading    reading
		wantOn     bool
		wantReason logic.Reason
	}{
		{"no reading turns off", true, reading{}, false, logic.ReasonNoReading},
		{"below stop turns off", true, reading{59.9, true}, false, logic.ReasonBelowStop},
		{"at start turns on", false, reading{70, true}, true, logic.ReasonAboveStart},
		{"above start turns on", false, reading{81.2, true}, true, logic.ReasonAboveStart},
		{"band keeps off", false, reading{65, true}, false, logic.ReasonHysteresis},
		{"band keeps on", true, reading{65, true}, true, logic.ReasonHysteresis},
		{"at stop keeps on", true, reading{60, true}, true, logic.ReasonHysteresis},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &fakeSampler{readings: []reading{tt.reading}}
			c, out := newController(t, testConfig(), s, outWindow)
			if tt.current {
				if err := c.out.Set(true); err != nil {
					t.Fatal(err)
				}
			}

			d, err := c.CheckOnce(context.Background())
			if err != nil {
				t.Fatalf("CheckOnce: %v", err)
			}
			if d.On != tt.wantOn || d.Reason != tt.wantReason {
				t.Errorf("got %+v, want on=%v reason=%s", d, tt.wantOn, tt.wantReason)
			}
			if out.Value() != tt.wantOn {
				t.Errorf("pin level %v, want %v", out.Value(), tt.wantOn)
			}
		})
	}
}

func TestCheckOnceForcedSkipsSensor(t *testing.T) {
	s := &fakeSampler{readings: []reading{{20, true}}}
	c, out := newController(t, testConfig(), s, inWindow)

	d, err := c.CheckOnce(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !d.On || d.Reason != logic.ReasonForced {
		t.Errorf("got %+v, want forced on", d)
	}
	if !out.Value() {
		t.Error("fan should be on in the forced window")
	}
	if s.Calls() != 0 {
		t.Errorf("sensor read %d times inside forced window", s.Calls())
	}
}

func TestCheckOnceForcedWindowEdge(t *testing.T) {
	cfg := testConfig()
	s := &fakeSampler{readings: []reading{{20, true}}}

	c, _ := newController(t, cfg, s, dayStart.Add(cfg.Schedule.Run))
	if d, _ := c.CheckOnce(context.Background()); d.Reason != logic.ReasonForced {
		t.Errorf("elapsed == run should be forced, got %+v", d)
	}

	c2, _ := newController(t, cfg, s, dayStart.Add(cfg.Schedule.Run+time.Second))
	if d, _ := c2.CheckOnce(context.Background()); d.Reason != logic.ReasonBelowStop {
		t.Errorf("elapsed > run should read the sensor, got %+v", d)
	}
}

func TestCheckOnceZeroRunNeverForced(t *testing.T) {
	cfg := testConfig()
	cfg.Schedule.Run = 0
	s := &fakeSampler{readings: []reading{{20, true}}}
	c, _ := newController(t, cfg, s, dayStart)

	d, err := c.CheckOnce(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if d.Reason != logic.ReasonBelowStop {
		t.Errorf("got %+v, want below stop", d)
	}
}

func TestCheckOnceIdempotent(t *testing.T) {
	s := &fakeSampler{readings: []reading{{75, true}}}
	c, out := newController(t, testConfig(), s, outWindow)

	for i := 0; i < 5; i++ {
		if _, err := c.CheckOnce(context.Background()); err != nil {
			t.Fatal(err)
		}
	}
	if got := out.Toggles(); got != 1 {
		t.Errorf("fan toggled %d times for a steady reading, want 1", got)
	}
}

func TestCheckOnceHysteresisSequence(t *testing.T) {
	s := &fakeSampler{readings: []reading{
		{55, true}, {65, true}, {70, true}, {65, true}, {60, true}, {59, true}, {65, true},
	}}
	c, _ := newController(t, testConfig(), s, outWindow)

	want := []bool{false, false, true, true, true, false, false}
	for i, w := range want {
		d, err := c.CheckOnce(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if d.On != w {
			t.Errorf("step %d: on=%v, want %v", i, d.On, w)
		}
	}
}

func TestCheckOnceReversed(t *testing.T) {
	cfg := testConfig()
	cfg.Reversed = true
	c, out := newController(t, cfg, &fakeSampler{readings: []reading{{75, true}}}, outWindow)

	if _, err := c.CheckOnce(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !out.Reversed {
		t.Error("pin should be opened active-low")
	}
	if !out.Value() {
		t.Error("logical level should be on")
	}
}

func TestCheckOnceSetError(t *testing.T) {
	c, out := newController(t, testConfig(), &fakeSampler{readings: []reading{{75, true}}}, outWindow)
	out.SetError = errors.New("line gone")

	if _, err := c.CheckOnce(context.Background()); err == nil {
		t.Error("expected error")
	}
}

func TestCheckOnceNotInitialized(t *testing.T) {
	c := New(gpio.NewRegistry(gpio.NewFakeDriver()), testConfig(), &fakeSampler{})
	if _, err := c.CheckOnce(context.Background()); err == nil {
		t.Error("expected error before Initialize")
	}
}

func TestInitializePinInUse(t *testing.T) {
	reg := gpio.NewRegistry(gpio.NewFakeDriver())
	if _, err := reg.OpenOutput("BCM18", false); err != nil {
		t.Fatal(err)
	}
	err := New(reg, testConfig(), &fakeSampler{}).Initialize()
	if !errors.Is(err, gpio.ErrPinInUse) {
		t.Errorf("expected ErrPinInUse, got %v", err)
	}
}

func TestCheckOncePublishes(t *testing.T) {
	bus := events.New()
	got := make(chan events.FanChecked, 1)
	defer bus.Subscribe(func(e events.FanChecked) { got <- e })()

	c, _ := newController(t, testConfig(), &fakeSampler{readings: []reading{{72.5, true}}}, outWindow, WithBus(bus))
	if _, err := c.CheckOnce(context.Background()); err != nil {
		t.Fatal(err)
	}

	select {
	case e := <-got:
		if !e.On || !e.Changed || e.Temp != 72.5 || !e.HasTemp || !e.At.Equal(outWindow) {
			t.Errorf("unexpected event: %+v", e)
		}
	case <-time.After(time.Second):
		t.Fatal("no event published")
	}
}

func TestRunLoop(t *testing.T) {
	s := &fakeSampler{readings: []reading{{75, true}, {50, true}}}
	c, out := newController(t, testConfig(), s, outWindow)

	ctx, cancel := context.WithCancel(context.Background())
	tick := make(chan time.Time)
	done := make(chan error, 1)
	go func() { done <- c.runLoop(ctx, tick) }()

	tick <- time.Time{}
	tick <- time.Time{}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("runLoop: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("runLoop did not stop")
	}

	if n := s.Calls(); n != 3 {
		t.Errorf("sampled %d times, want 3", n)
	}
	if got := out.History(); len(got) != 3 || !got[0] || got[1] || got[2] {
		t.Errorf("levels = %v, want [true false false]", got)
	}
}
