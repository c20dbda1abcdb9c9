package lifecycle

import (
	"fmt"
	"strings"
)

// State is a device lifecycle state with a stable integer index.
type State uint8

const (
	// Offline means the component is not under bus control.
	Offline State = 0

	// Standby means the component is controllable but not configured.
	Standby State = 1

	// Disabled means the component is configured but not operating.
	Disabled State = 2

	// Enabled means the component is fully operational.
	Enabled State = 3

	// Fault means the component detected an unrecoverable condition;
	// only a STANDBY command leads back out.
	Fault State = 4

	// Initial aliases Standby: it shares the Standby handler instance.
	Initial State = 5

	// Final aliases Enabled: it shares the Enabled handler instance.
	Final State = 6
)

// NumStates is the number of lifecycle states, aliases included.
const NumStates = 7

// String returns the upper-case state name.
func (s State) String() string {
	switch s {
	case Offline:
		return "OFFLINE"
	case Standby:
		return "STANDBY"
	case Disabled:
		return "DISABLED"
	case Enabled:
		return "ENABLED"
	case Fault:
		return "FAULT"
	case Initial:
		return "INITIAL"
	case Final:
		return "FINAL"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", uint8(s))
	}
}

// ParseState parses a state name, case-insensitively.
func ParseState(name string) (State, error) {
	switch strings.ToUpper(name) {
	case "OFFLINE":
		return Offline, nil
	case "STANDBY":
		return Standby, nil
	case "DISABLED":
		return Disabled, nil
	case "ENABLED":
		return Enabled, nil
	case "FAULT":
		return Fault, nil
	case "INITIAL":
		return Initial, nil
	case "FINAL":
		return Final, nil
	default:
		return 0, fmt.Errorf("unknown lifecycle state %q", name)
	}
}

// Command is a lifecycle command name. Command names on the bus are
// case-insensitive; they are normalized to upper case.
type Command string

const (
	// CmdEnterControl moves an offline component to STANDBY.
	CmdEnterControl Command = "ENTERCONTROL"

	// CmdStart configures a standby component and moves it to DISABLED.
	CmdStart Command = "START"

	// CmdEnable moves a disabled component to ENABLED.
	CmdEnable Command = "ENABLE"

	// CmdDisable moves an enabled component back to DISABLED.
	CmdDisable Command = "DISABLE"

	// CmdStandby moves a disabled or faulted component to STANDBY.
	CmdStandby Command = "STANDBY"

	// CmdExitControl releases a standby component to OFFLINE.
	CmdExitControl Command = "EXITCONTROL"
)

// NormalizeCommand upper-cases a command name received from the bus.
func NormalizeCommand(name string) Command {
	return Command(strings.ToUpper(name))
}

// String returns the command name.
func (c Command) String() string {
	return string(c)
}
