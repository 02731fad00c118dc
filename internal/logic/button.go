package logic

import (
	"fmt"
	"time"
)

// Forever as a wait timeout means no timeout at all.
const Forever time.Duration = -1

// ButtonState is a state of one button activation cycle.
type ButtonState string

const (
	ButtonIdle       ButtonState = "IDLE"
	ButtonPressed    ButtonState = "PRESSED"
	ButtonEscalating ButtonState = "ESCALATING"
	ButtonHeld       ButtonState = "HELD"
	ButtonDone       ButtonState = "DONE"
)

// ButtonEvent is the result of a wait on the button pin.
type ButtonEvent string

const (
	EventPress   ButtonEvent = "PRESS"
	EventRelease ButtonEvent = "RELEASE"
	EventTimeout ButtonEvent = "TIMEOUT"
)

// WaitKind tells the caller which edge to wait for.
type WaitKind int

const (
	WaitNone WaitKind = iota
	WaitPress
	WaitRelease
)

// Wait is the wait the machine needs next. A negative Timeout means Forever.
type Wait struct {
	Kind    WaitKind
	Timeout time.Duration
}

// ActionKind is a side effect requested by a transition.
type ActionKind int

const (
	ActionLEDOn ActionKind = iota + 1
	ActionLEDOff
	ActionBlink
	ActionExec
)

// Action is a side effect the caller performs after a transition.
// Stage is the escalation stage for ActionBlink and the command index for ActionExec.
type Action struct {
	Kind  ActionKind
	Stage int
}

// Outcome summarizes a finished activation cycle.
type Outcome string

const (
	OutcomeNone    Outcome = "NONE"    // no press before the timeout, or never released
	OutcomeTap     Outcome = "TAP"     // released before the first stage
	OutcomeCommand Outcome = "COMMAND" // released during a stage; Stage holds the command index
	OutcomeHeld    Outcome = "HELD"    // held past the last stage, then released
)

// ButtonResult is the outcome of one activation cycle.
type ButtonResult struct {
	Outcome Outcome
	Stage   int
}

// ButtonMachine is the state machine of one press/release activation cycle.
//
// A short tap does nothing. Holding through the press-confirm interval and
// then through i further hold intervals arms commands[i]; releasing fires it.
// Holding past the last stage disarms everything until the button is released.
type ButtonMachine struct {
	commands int
	hold     time.Duration
	timeout  time.Duration

	state  ButtonState
	stage  int
	result ButtonResult
}

// NewButtonMachine creates a machine for a sequence of commands commands.
// hold is the per-stage hold timeout; timeout bounds the initial press wait
// and the final release wait (Forever for none).
func NewButtonMachine(commands int, hold, timeout time.Duration) *ButtonMachine {
	return &ButtonMachine{
		commands: commands,
		hold:     hold,
		timeout:  timeout,
		state:    ButtonIdle,
		result:   ButtonResult{Outcome: OutcomeNone},
	}
}

// State returns the current state.
func (m *ButtonMachine) State() ButtonState { return m.state }

// Stage returns the current escalation stage (meaningful in ButtonEscalating).
func (m *ButtonMachine) Stage() int { return m.stage }

// Done reports whether the cycle has finished.
func (m *ButtonMachine) Done() bool { return m.state == ButtonDone }

// Result returns the cycle outcome. It is OutcomeNone until Done.
func (m *ButtonMachine) Result() ButtonResult { return m.result }

// Wait returns the wait the caller must perform before the next Handle.
func (m *ButtonMachine) Wait() Wait {
	switch m.state {
	case ButtonIdle:
		return Wait{Kind: WaitPress, Timeout: m.timeout}
	case ButtonPressed, ButtonEscalating:
		return Wait{Kind: WaitRelease, Timeout: m.hold}
	case ButtonHeld:
		return Wait{Kind: WaitRelease, Timeout: m.timeout}
	default:
		return Wait{Kind: WaitNone}
	}
}

type buttonKey struct {
	from  ButtonState
	event ButtonEvent
}

var buttonTransitions = map[buttonKey]func(m *ButtonMachine) []Action{
	{ButtonIdle, EventPress}: func(m *ButtonMachine) []Action {
		m.state = ButtonPressed
		return []Action{{Kind: ActionLEDOn}}
	},
	{ButtonIdle, EventTimeout}: func(m *ButtonMachine) []Action {
		m.finish(OutcomeNone, 0)
		return nil
	},
	{ButtonPressed, EventRelease}: func(m *ButtonMachine) []Action {
		m.finish(OutcomeTap, 0)
		return []Action{{Kind: ActionLEDOff}}
	},
	{ButtonPressed, EventTimeout}: func(m *ButtonMachine) []Action {
		return m.escalate(0)
	},
	{ButtonEscalating, EventRelease}: func(m *ButtonMachine) []Action {
		stage := m.stage
		m.finish(OutcomeCommand, stage)
		return []Action{{Kind: ActionExec, Stage: stage}, {Kind: ActionLEDOff}}
	},
	{ButtonEscalating, EventTimeout}: func(m *ButtonMachine) []Action {
		return m.escalate(m.stage + 1)
	},
	{ButtonHeld, EventRelease}: func(m *ButtonMachine) []Action {
		m.finish(OutcomeHeld, 0)
		return nil
	},
	{ButtonHeld, EventTimeout}: func(m *ButtonMachine) []Action {
		m.finish(OutcomeNone, 0)
		return nil
	},
}

// Handle feeds the result of the last wait into the machine and returns the
// side effects to perform, in order.
func (m *ButtonMachine) Handle(ev ButtonEvent) ([]Action, error) {
	fn, ok := buttonTransitions[buttonKey{m.state, ev}]
	if !ok {
		return nil, fmt.Errorf("button: no transition from %s on %s", m.state, ev)
	}
	return fn(m), nil
}

func (m *ButtonMachine) escalate(stage int) []Action {
	if stage >= m.commands {
		m.state = ButtonHeld
		return []Action{{Kind: ActionLEDOff}}
	}
	m.state = ButtonEscalating
	m.stage = stage
	return []Action{{Kind: ActionBlink, Stage: stage}}
}

func (m *ButtonMachine) finish(o Outcome, stage int) {
	m.state = ButtonDone
	m.result = ButtonResult{Outcome: o, Stage: stage}
}
