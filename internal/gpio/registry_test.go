package gpio

import (
	"errors"
	"testing"
)

func TestResolveBCM(t *testing.T) {
	tests := []struct {
		pin    string
		want   int
		wantOK bool
	}{
		{"17", 17, true},
		{"GPIO17", 17, true},
		{" gpio4 ", 4, true},
		{"BCM27", 27, true},
		{"BOARD11", 17, true},
		{"J8:12", 18, true},
		{"BOARD1", 0, false}, // 3V3 power pin
		{"LED", 0, false},
		{"gpio-x", 0, false},
		{"-1", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.pin, func(t *testing.T) {
			got, ok := ResolveBCM(tt.pin)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("got (%d, %v), want (%d, %v)", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestCanonicalPin(t *testing.T) {
	if CanonicalPin("GPIO17") != CanonicalPin("BOARD11") {
		t.Error("GPIO17 and BOARD11 are the same line")
	}
	if CanonicalPin(" Fan_Line ") != "fan_line" {
		t.Errorf("named line: got %q", CanonicalPin(" Fan_Line "))
	}
}

func TestRegistryCollisionAcrossRoles(t *testing.T) {
	d := NewFakeDriver()
	reg := NewRegistry(d)

	fan, err := reg.OpenOutput("GPIO14", false)
	if err != nil {
		t.Fatalf("open fan: %v", err)
	}
	defer fan.Close()

	if _, err := reg.OpenInput("14"); !errors.Is(err, ErrPinInUse) {
		t.Errorf("input on same pin: got %v, want ErrPinInUse", err)
	}
	if _, err := reg.OpenOutput("gpio14", true); !errors.Is(err, ErrPinInUse) {
		t.Errorf("output on same pin: got %v, want ErrPinInUse", err)
	}
	if d.Output("GPIO14").Opened != 1 {
		t.Errorf("driver should open the line once, got %d", d.Output("GPIO14").Opened)
	}
}

func TestRegistryReleaseOnClose(t *testing.T) {
	d := NewFakeDriver()
	reg := NewRegistry(d)

	h, err := reg.OpenInput("3")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if !reg.InUse("GPIO3") {
		t.Error("pin should be in use")
	}

	if err := h.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := h.Close(); err != nil {
		t.Errorf("second close: %v", err)
	}
	if reg.InUse("3") {
		t.Error("pin should be free after close")
	}
	if !d.Input("3").Closed {
		t.Error("driver input should be closed")
	}

	h2, err := reg.OpenInput("3")
	if err != nil {
		t.Fatalf("reopen after close: %v", err)
	}
	h2.Close()
}

func TestRegistryEmptyPin(t *testing.T) {
	reg := NewRegistry(NewFakeDriver())
	if _, err := reg.OpenOutput("  ", false); !errors.Is(err, ErrEmptyPin) {
		t.Errorf("got %v, want ErrEmptyPin", err)
	}
}

func TestRegistryOpenErrorReleases(t *testing.T) {
	d := NewFakeDriver()
	d.OpenError = errors.New("busy")
	reg := NewRegistry(d)

	if _, err := reg.OpenOutput("18", false); err == nil {
		t.Fatal("expected error")
	}
	if reg.InUse("18") {
		t.Error("failed open should not keep the reservation")
	}
}

func TestOutputHandle(t *testing.T) {
	d := NewFakeDriver()
	reg := NewRegistry(d)

	h, err := reg.OpenOutput("GPIO18", true)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if !h.Reversed() || !d.Output("18").Reversed {
		t.Error("polarity should reach the driver")
	}
	if h.Pin() != "gpio18" {
		t.Errorf("pin: got %q", h.Pin())
	}

	if err := h.Set(true); err != nil {
		t.Fatalf("set: %v", err)
	}
	if !h.On() || !d.Output("18").Value() {
		t.Error("expected pin on")
	}

	h.Close()
	if err := h.Set(false); err == nil {
		t.Error("set after close should fail")
	}
	if !d.Output("18").IsClosed() {
		t.Error("driver output should be closed")
	}
}
