package bus

import "github.com/salbus-protocol/salbus-go/pkg/ack"

// CommandProcessor is the per-topic transport capability for command
// traffic. The controller side uses AcceptNext/Acknowledge; the issuing
// side uses Issue/NextAck. Correlation ids are assigned by the transport
// at issue time and are always positive; zero means "nothing pending".
type CommandProcessor interface {
	// AcceptNext polls for the next inbound command. On receipt it fills
	// into with the command payload and returns the positive correlation
	// id; it returns 0 when no command is pending.
	AcceptNext(into *Payload) (int64, error)

	// Acknowledge publishes an acknowledgment for a previously accepted
	// command.
	Acknowledge(correlationID int64, code ack.Code, errorCode int32, message string) error

	// Issue publishes a command payload and returns the correlation id
	// assigned by the transport.
	Issue(p *Payload) (int64, error)

	// NextAck polls for the next acknowledgment addressed to this issuer,
	// for any in-flight command on the topic. ok is false when nothing is
	// pending.
	NextAck() (correlationID int64, result ack.Result, ok bool, err error)
}

// EventWriter is the per-topic transport capability for publishing
// state-notification events.
type EventWriter interface {
	// Publish sends the event payload at the given priority.
	Publish(p *Payload, priority int32) error
}

// SampleReader is the per-topic transport capability for polling event or
// telemetry samples.
type SampleReader interface {
	// NextSample polls for the next sample, copying it into the payload.
	// ok is false when no new sample is available.
	NextSample(into *Payload) (bool, error)
}
