package logic

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	thresholdRe = regexp.MustCompile(`^\s*([+-]?[0-9]+(?:\.[0-9]+)?)\s*/\s*([+-]?[0-9]+(?:\.[0-9]+)?)\s*$`)
	scheduleRe  = regexp.MustCompile(`^\s*([0-9]+)\s*(s|m|h|d)?\s*/\s*([0-9]+)\s*(s|m|h|d)?\s*$`)
)

var (
	// ErrThresholdFormat is returned for threshold specs that are not "float/float".
	ErrThresholdFormat = errors.New("temperature must be in format 'float/float'")
	// ErrScheduleFormat is returned for schedule specs that are not "int[s|m|h|d]/int[s|m|h|d]".
	ErrScheduleFormat = errors.New("time span must be in format 'int[s|m|h|d]/int[s|m|h|d]'")
)

// ParseThresholds parses a "stop/start" temperature spec such as "60.0/70.0".
// A spec whose stop is above its start is rejected.
func ParseThresholds(spec string) (Thresholds, error) {
	m := thresholdRe.FindStringSubmatch(strings.ToLower(strings.TrimSpace(spec)))
	if m == nil {
		return Thresholds{}, fmt.Errorf("%q: %w", spec, ErrThresholdFormat)
	}
	stop, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return Thresholds{}, fmt.Errorf("%q: stop temperature: %w", spec, err)
	}
	start, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return Thresholds{}, fmt.Errorf("%q: start temperature: %w", spec, err)
	}
	if stop > start {
		return Thresholds{}, fmt.Errorf("%q: stop temperature %.1f is above start temperature %.1f", spec, stop, start)
	}
	return Thresholds{Stop: stop, Start: start}, nil
}

// IsValidThresholdSpec reports whether spec would be accepted by ParseThresholds.
func IsValidThresholdSpec(spec string) bool {
	_, err := ParseThresholds(spec)
	return err == nil
}

// ParseSchedule parses a "run/cycle" spec such as "5m/24h".
// Each number takes an optional s, m, h or d suffix; unitless numbers are seconds.
// A spec whose run is longer than its cycle is rejected.
func ParseSchedule(spec string) (Schedule, error) {
	m := scheduleRe.FindStringSubmatch(strings.ToLower(strings.TrimSpace(spec)))
	if m == nil {
		return Schedule{}, fmt.Errorf("%q: %w", spec, ErrScheduleFormat)
	}
	run, err := spanSeconds(m[1], m[2])
	if err != nil {
		return Schedule{}, fmt.Errorf("%q: run time: %w", spec, err)
	}
	cycle, err := spanSeconds(m[3], m[4])
	if err != nil {
		return Schedule{}, fmt.Errorf("%q: cycle time: %w", spec, err)
	}
	if run > cycle {
		return Schedule{}, fmt.Errorf("%q: run time %v is longer than cycle time %v", spec, run, cycle)
	}
	return Schedule{Run: run, Cycle: cycle}, nil
}

// IsValidScheduleSpec reports whether spec would be accepted by ParseSchedule.
func IsValidScheduleSpec(spec string) bool {
	_, err := ParseSchedule(spec)
	return err == nil
}

func spanSeconds(num, unit string) (time.Duration, error) {
	n, err := strconv.ParseInt(num, 10, 64)
	if err != nil {
		return 0, err
	}
	var mult int64
	switch unit {
	case "", "s":
		mult = 1
	case "m":
		mult = 60
	case "h":
		mult = 60 * 60
	case "d":
		mult = 60 * 60 * 24
	}
	// Keep the result representable as a time.Duration.
	if n > int64(1<<63-1)/int64(time.Second)/mult {
		return 0, fmt.Errorf("%s%s is out of range", num, unit)
	}
	return time.Duration(n*mult) * time.Second, nil
}
