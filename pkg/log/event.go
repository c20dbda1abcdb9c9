package log

import (
	"time"

	"github.com/salbus-protocol/salbus-go/pkg/ack"
)

// Event represents a protocol log event captured at any layer.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// Subsystem is the bus subsystem the event belongs to.
	Subsystem string `cbor:"2,keyasint"`

	// Topic is the full topic name the event was captured on.
	Topic string `cbor:"3,keyasint,omitempty"`

	// Direction indicates message flow.
	Direction Direction `cbor:"4,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"5,keyasint"`

	// Type-specific payload (one of these will be set).
	Command     *CommandEvent     `cbor:"6,keyasint,omitempty"`  // Command issued or received
	Ack         *AckEvent         `cbor:"7,keyasint,omitempty"`  // Acknowledgment
	StateChange *StateChangeEvent `cbor:"8,keyasint,omitempty"`  // Lifecycle state change
	Sample      *SampleEvent      `cbor:"9,keyasint,omitempty"`  // Event or telemetry payload
	Error       *ErrorEventData   `cbor:"10,keyasint,omitempty"` // Errors at any layer
}

// Direction indicates the direction of message flow.
type Direction uint8

const (
	// DirectionIn indicates an incoming message.
	DirectionIn Direction = 0
	// DirectionOut indicates an outgoing message.
	DirectionOut Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryCommand indicates a command message.
	CategoryCommand Category = 0
	// CategoryAck indicates a command acknowledgment.
	CategoryAck Category = 1
	// CategoryEvent indicates a logevent sample.
	CategoryEvent Category = 2
	// CategoryTelemetry indicates a telemetry sample.
	CategoryTelemetry Category = 3
	// CategoryState indicates a lifecycle state change.
	CategoryState Category = 4
	// CategoryError indicates an error event.
	CategoryError Category = 5
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryCommand:
		return "COMMAND"
	case CategoryAck:
		return "ACK"
	case CategoryEvent:
		return "EVENT"
	case CategoryTelemetry:
		return "TELEMETRY"
	case CategoryState:
		return "STATE"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// CommandEvent captures a command at the point it was issued or accepted.
type CommandEvent struct {
	// CorrelationID pairs the command with its acknowledgments.
	CorrelationID int64 `cbor:"1,keyasint"`

	// Command is the command name (e.g. "START", "ENABLE").
	Command string `cbor:"2,keyasint"`

	// Fields is the command payload (CBOR-compatible representation).
	Fields map[string]any `cbor:"3,keyasint,omitempty"`
}

// AckEvent captures an acknowledgment sent or observed for a command.
type AckEvent struct {
	// CorrelationID pairs the acknowledgment with its command.
	CorrelationID int64 `cbor:"1,keyasint"`

	// Code is the acknowledgment code.
	Code ack.Code `cbor:"2,keyasint"`

	// ErrorCode is the handler-supplied error code (0 on success).
	ErrorCode int32 `cbor:"3,keyasint,omitempty"`

	// Message is the human-readable acknowledgment text.
	Message string `cbor:"4,keyasint,omitempty"`
}

// StateChangeEvent captures lifecycle state transitions.
type StateChangeEvent struct {
	// OldState is the previous state name.
	OldState string `cbor:"1,keyasint"`

	// NewState is the new state name.
	NewState string `cbor:"2,keyasint"`

	// Reason for the change (usually the triggering command).
	Reason string `cbor:"3,keyasint,omitempty"`
}

// SampleEvent captures an event or telemetry payload.
type SampleEvent struct {
	// Fields is the sample payload (CBOR-compatible representation).
	Fields map[string]any `cbor:"1,keyasint,omitempty"`

	// Priority is the publish priority for logevent samples.
	Priority int32 `cbor:"2,keyasint,omitempty"`
}

// ErrorEventData captures errors at any layer.
type ErrorEventData struct {
	// Message is the error message.
	Message string `cbor:"1,keyasint"`

	// Context describes what operation was being performed.
	Context string `cbor:"2,keyasint,omitempty"`
}
