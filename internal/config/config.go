// Package config loads, validates and saves the pi-cooler settings file.
// JSON files use the layout written by the setup wizard; files ending in
// .toml carry the same keys in TOML.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/shlex"
	"github.com/pelletier/go-toml/v2"

	"github.com/sweeney/pi-cooler/internal/logic"
)

// DefaultPath is used when no config file is named on the command line.
const DefaultPath = "config.json"

// Defaults for keys missing from the file.
const (
	DefaultRunTemperature   = "60.0/70.0"
	DefaultRunTimeSpan      = "5m/24h"
	DefaultCmdTemperature   = "vcgencmd measure_temp"
	DefaultRegexTemperature = `^\s*temp\s*=\s*([+-]?[0-9]+(?:\.[0-9]+)?)\s*'\s*C\s*$`
)

// DefaultButtonCmds are armed in order while the power button is held.
var DefaultButtonCmds = []string{"shutdown -r now", "shutdown now"}

// ErrNoPins is returned when no peripheral is configured.
var ErrNoPins = errors.New("no pins configured")

// Pins names the GPIO line of each peripheral. Empty means not fitted.
type Pins struct {
	CoolerFan   string `json:"coolerFan" toml:"coolerFan"`
	PowerButton string `json:"powerButton" toml:"powerButton"`
	PowerLED    string `json:"powerLED" toml:"powerLED"`
	StatusLED   string `json:"statusLED" toml:"statusLED"`
}

// Settings is the persisted configuration record.
type Settings struct {
	Pins              Pins     `json:"pins" toml:"pins"`
	PowerButtonCmds   []string `json:"powerButtonCmds" toml:"powerButtonCmds"`
	CoolerFanReversed bool     `json:"coolerFanReversed" toml:"coolerFanReversed"`
	RunTemperature    string   `json:"runTemperature" toml:"runTemperature"`
	RunTimeSpan       string   `json:"runTimeSpan" toml:"runTimeSpan"`
	CmdTemperature    string   `json:"cmdTemperature" toml:"cmdTemperature"`
	RegexTemperature  string   `json:"regexTemperature" toml:"regexTemperature"`
}

// Default returns Settings with every default filled in and no pins.
func Default() *Settings {
	return &Settings{
		PowerButtonCmds:  append([]string(nil), DefaultButtonCmds...),
		RunTemperature:   DefaultRunTemperature,
		RunTimeSpan:      DefaultRunTimeSpan,
		CmdTemperature:   DefaultCmdTemperature,
		RegexTemperature: DefaultRegexTemperature,
	}
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// Exists reports whether a config file is present at path.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Load reads and validates the settings at path. Keys missing from the
// file keep their defaults.
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	s, err := Parse(data, isTOML(path))
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return s, nil
}

// Parse decodes and validates settings from data.
func Parse(data []byte, asTOML bool) (*Settings, error) {
	s := Default()
	if asTOML {
		if err := toml.Unmarshal(data, s); err != nil {
			return nil, fmt.Errorf("failed to parse: %w", err)
		}
	} else {
		if err := json.Unmarshal(data, s); err != nil {
			return nil, fmt.Errorf("failed to parse: %w", err)
		}
	}

	s.normalize()
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Save writes s to path, as TOML if path ends in .toml and as indented
// JSON otherwise.
func Save(path string, s *Settings) error {
	var data []byte
	var err error
	if isTOML(path) {
		data, err = toml.Marshal(s)
	} else {
		data, err = json.MarshalIndent(s, "", "    ")
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (s *Settings) normalize() {
	s.Pins.CoolerFan = strings.TrimSpace(s.Pins.CoolerFan)
	s.Pins.PowerButton = strings.TrimSpace(s.Pins.PowerButton)
	s.Pins.PowerLED = strings.TrimSpace(s.Pins.PowerLED)
	s.Pins.StatusLED = strings.TrimSpace(s.Pins.StatusLED)
}

// Validate checks every setting the configured peripherals depend on.
func (s *Settings) Validate() error {
	p := s.Pins
	// The power LED only follows the button, so it never counts on its own.
	if p.CoolerFan == "" && p.PowerButton == "" && p.StatusLED == "" {
		return ErrNoPins
	}

	if p.PowerButton != "" {
		if len(s.PowerButtonCmds) == 0 {
			return fmt.Errorf("powerButtonCmds: must not be empty")
		}
		for i, cmd := range s.PowerButtonCmds {
			if err := checkCommand(cmd); err != nil {
				return fmt.Errorf("powerButtonCmds[%d]: %w", i, err)
			}
		}
	}

	if p.CoolerFan != "" {
		if _, err := s.Thresholds(); err != nil {
			return fmt.Errorf("runTemperature: %w", err)
		}
		if _, err := s.Schedule(); err != nil {
			return fmt.Errorf("runTimeSpan: %w", err)
		}
		if err := checkCommand(s.CmdTemperature); err != nil {
			return fmt.Errorf("cmdTemperature: %w", err)
		}
		if _, err := s.TemperaturePattern(); err != nil {
			return fmt.Errorf("regexTemperature: %w", err)
		}
	}
	return nil
}

// checkCommand rejects blank commands and ones with unbalanced quoting.
func checkCommand(cmd string) error {
	words, err := shlex.Split(cmd)
	if err != nil {
		return fmt.Errorf("%q: %w", cmd, err)
	}
	if len(words) == 0 {
		return fmt.Errorf("command must not be empty")
	}
	return nil
}

// Thresholds parses RunTemperature.
func (s *Settings) Thresholds() (logic.Thresholds, error) {
	return logic.ParseThresholds(s.RunTemperature)
}

// Schedule parses RunTimeSpan.
func (s *Settings) Schedule() (logic.Schedule, error) {
	return logic.ParseSchedule(s.RunTimeSpan)
}

// TemperaturePattern compiles RegexTemperature.
func (s *Settings) TemperaturePattern() (*regexp.Regexp, error) {
	return regexp.Compile(s.RegexTemperature)
}
