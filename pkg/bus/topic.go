package bus

import (
	"fmt"
	"strings"
)

// Kind classifies a topic as carrying commands, events or telemetry.
type Kind uint8

const (
	// KindCommand is a command topic.
	KindCommand Kind = iota
	// KindEvent is a log-event topic.
	KindEvent
	// KindTelemetry is a telemetry topic.
	KindTelemetry
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindCommand:
		return "COMMAND"
	case KindEvent:
		return "EVENT"
	case KindTelemetry:
		return "TELEMETRY"
	default:
		return "UNKNOWN"
	}
}

// TopicName formats the full topic name for a subsystem, kind and short
// topic name.
func TopicName(subsystem string, kind Kind, name string) string {
	switch kind {
	case KindCommand:
		return subsystem + "_command_" + name
	case KindEvent:
		return subsystem + "_logevent_" + name
	default:
		return subsystem + "_" + name
	}
}

// TopicKey identifies a registered transport handle.
type TopicKey struct {
	Subsystem string
	Kind      Kind
	Name      string
}

// FullName returns the full topic name for the key.
func (k TopicKey) FullName() string {
	return TopicName(k.Subsystem, k.Kind, k.Name)
}

// ParseTopic splits a full topic name into its key. A topic has either one
// underscore (telemetry) or two with "command" or "logevent" as the middle
// word. Anything else is rejected.
func ParseTopic(topic string) (TopicKey, error) {
	parts := strings.Split(topic, "_")
	for _, p := range parts {
		if p == "" {
			return TopicKey{}, fmt.Errorf("malformed topic %q", topic)
		}
	}

	switch len(parts) {
	case 2:
		return TopicKey{Subsystem: parts[0], Kind: KindTelemetry, Name: parts[1]}, nil
	case 3:
		switch parts[1] {
		case "command":
			return TopicKey{Subsystem: parts[0], Kind: KindCommand, Name: parts[2]}, nil
		case "logevent":
			return TopicKey{Subsystem: parts[0], Kind: KindEvent, Name: parts[2]}, nil
		}
	}
	return TopicKey{}, fmt.Errorf("malformed topic %q", topic)
}
