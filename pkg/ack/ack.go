// Package ack defines the command acknowledgment codes used on the control
// bus and their terminal/non-terminal classification.
//
// Every command issued on the bus produces a stream of acknowledgments
// correlated by the command's correlation id. Non-terminal codes (ACK,
// INPROGRESS) tell the issuer the command is still being worked on; any
// other code is terminal and signals that no further acknowledgments will
// arrive for that correlation id. NOACK is special: callers treat it as
// "not yet observed", never as a final answer.
package ack

import "fmt"

// Code is a command acknowledgment code. The numeric values follow the
// bus convention: positive codes are progress/success, negative codes are
// rejections and failures.
type Code int32

const (
	// Ack indicates the command was received by the controller.
	Ack Code = 300

	// InProgress indicates command execution has started.
	InProgress Code = 301

	// Stalled indicates execution is still running but making no progress.
	Stalled Code = 302

	// Complete indicates the command finished successfully.
	Complete Code = 303

	// NoPerm indicates the command is not permitted (busy controller or a
	// disallowed state transition).
	NoPerm Code = -300

	// NoAck indicates no acknowledgment has been observed.
	NoAck Code = -301

	// Failed indicates execution raised an unexpected failure.
	Failed Code = -302

	// Aborted indicates execution was aborted.
	Aborted Code = -303

	// Timeout indicates the controller gave up on the command.
	Timeout Code = -304
)

// IsTerminal reports whether the code signals that no further
// acknowledgments will be produced for the command. Every code other than
// NoAck, Ack and InProgress is terminal.
func (c Code) IsTerminal() bool {
	switch c {
	case NoAck, Ack, InProgress:
		return false
	default:
		return true
	}
}

// String returns the upper-case code name.
func (c Code) String() string {
	switch c {
	case Ack:
		return "ACK"
	case InProgress:
		return "INPROGRESS"
	case Stalled:
		return "STALLED"
	case Complete:
		return "COMPLETE"
	case NoPerm:
		return "NOPERM"
	case NoAck:
		return "NOACK"
	case Failed:
		return "FAILED"
	case Aborted:
		return "ABORTED"
	case Timeout:
		return "TIMEOUT"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int32(c))
	}
}

// Result is the acknowledgment tuple carried by every ack message: the
// code, an integer error code set by the command handler, and a
// human-readable message.
type Result struct {
	Code      Code
	ErrorCode int32
	Message   string
}

// IsZero reports whether the result is the zero value, i.e. no
// acknowledgment has been observed.
func (r Result) IsZero() bool {
	return r == Result{}
}

// String formats the result as "CODE error:message".
func (r Result) String() string {
	return fmt.Sprintf("%s %d:%s", r.Code, r.ErrorCode, r.Message)
}
