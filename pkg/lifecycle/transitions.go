package lifecycle

import (
	"errors"
	"fmt"
)

// Transition errors.
var (
	// ErrUnknownCommand indicates a command name with no configured
	// target state.
	ErrUnknownCommand = errors.New("unknown lifecycle command")

	// ErrTransitionRejected indicates a command that is not valid in the
	// current state, or whose target transition the matrix disallows.
	ErrTransitionRejected = errors.New("state transition rejected")
)

// TransitionError reports a rejected state transition. It unwraps to
// ErrTransitionRejected.
type TransitionError struct {
	From    State
	To      State
	Command Command
}

// Error formats the rejection.
func (e *TransitionError) Error() string {
	if e.Command != "" {
		return fmt.Sprintf("transition rejected: command %s not allowed in state %s", e.Command, e.From)
	}
	return fmt.Sprintf("transition rejected: %s -> %s", e.From, e.To)
}

// Unwrap returns ErrTransitionRejected so callers can test with errors.Is.
func (e *TransitionError) Unwrap() error {
	return ErrTransitionRejected
}

// transitionMatrix marks the legal lifecycle transitions. Self-transitions
// are legal for every state. The INITIAL row mirrors STANDBY and the FINAL
// row mirrors ENABLED, matching the handler aliasing: a component started
// in an alias state must be able to leave it the way its target state can.
var transitionMatrix = buildTransitionMatrix()

func buildTransitionMatrix() [NumStates][NumStates]bool {
	var m [NumStates][NumStates]bool

	for s := State(0); s < NumStates; s++ {
		m[s][s] = true
	}

	m[Offline][Standby] = true
	m[Standby][Disabled] = true
	m[Standby][Offline] = true
	m[Disabled][Enabled] = true
	m[Disabled][Standby] = true
	m[Disabled][Fault] = true
	m[Enabled][Disabled] = true
	m[Enabled][Fault] = true
	m[Fault][Standby] = true

	m[Initial] = m[Standby]
	m[Final] = m[Enabled]
	m[Initial][Initial] = true
	m[Final][Final] = true

	return m
}

// Allowed reports whether the transition from one state to another is
// legal. It is a pure lookup and fails closed: any pair not explicitly
// marked legal, including out-of-range states, is rejected.
func Allowed(from, to State) bool {
	if from >= NumStates || to >= NumStates {
		return false
	}
	return transitionMatrix[from][to]
}

// commandTargets maps each lifecycle command to the single state it is
// defined to produce.
var commandTargets = map[Command]State{
	CmdEnterControl: Standby,
	CmdStart:        Disabled,
	CmdEnable:       Enabled,
	CmdDisable:      Disabled,
	CmdStandby:      Standby,
	CmdExitControl:  Offline,
}

// TargetState returns the state a command is defined to produce.
func TargetState(cmd Command) (State, error) {
	target, ok := commandTargets[cmd]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownCommand, cmd)
	}
	return target, nil
}
