// Package sampler reads a temperature by running an external command.
package sampler

import (
	"context"
	"errors"
	"log"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DefaultTimeout bounds a single measurement command.
const DefaultTimeout = 10 * time.Second

// pipeGrace is how long a cancelled command may keep its output open.
const pipeGrace = time.Second

// Runner runs a shell command and returns its standard output.
type Runner func(ctx context.Context, command string) ([]byte, error)

// ShellRunner runs command with sh -c. When ctx ends the shell and every
// process it started are killed.
func ShellRunner(ctx context.Context, command string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	killGroup(cmd)
	cmd.WaitDelay = pipeGrace
	return cmd.Output()
}

// Sampler extracts a temperature from a command's output.
type Sampler struct {
	Command string
	Pattern *regexp.Regexp
	Timeout time.Duration
	Run     Runner
}

// New creates a Sampler that runs command through the shell.
func New(command string, pattern *regexp.Regexp) *Sampler {
	return &Sampler{
		Command: command,
		Pattern: pattern,
		Timeout: DefaultTimeout,
		Run:     ShellRunner,
	}
}

// Sample runs the command once and parses its trimmed output. The reading is
// the pattern's first capture group, or the whole match if it has none.
// A non-zero exit status is logged but the output is still parsed. A timeout
// or a command that cannot start yields ok == false; there is no error to
// handle.
func (s *Sampler) Sample(ctx context.Context) (temp float64, ok bool) {
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	out, err := s.Run(ctx, s.Command)
	if err != nil {
		var exitErr *exec.ExitError
		if ctx.Err() != nil || !errors.As(err, &exitErr) {
			log.Printf("sampler: %q failed: %v", s.Command, err)
			return 0, false
		}
		log.Printf("sampler: %q exited: %v", s.Command, err)
	}
	return Parse(string(out), s.Pattern)
}

// Parse extracts a temperature from command output.
func Parse(output string, pattern *regexp.Regexp) (float64, bool) {
	if pattern == nil {
		return 0, false
	}
	m := pattern.FindStringSubmatch(strings.TrimSpace(output))
	if m == nil {
		return 0, false
	}
	field := m[0]
	if len(m) > 1 {
		field = m[1]
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
