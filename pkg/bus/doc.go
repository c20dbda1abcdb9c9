// Package bus defines the capability interfaces through which the library
// talks to the publish/subscribe transport, plus topic naming and the
// named-field payload record shared by commands, events and telemetry.
//
// The transport itself (topic registration, wire serialization, delivery)
// lives outside this repository. A transport binding implements the
// CommandProcessor, EventWriter and SampleReader interfaces per topic and
// registers the handles in a Registry at startup. Nothing in this library
// synthesizes handle names at runtime; every handle is looked up through
// the explicit registry.
//
// Topic names follow the bus convention:
//
//	commands:  <Subsystem>_command_<name>
//	events:    <Subsystem>_logevent_<name>
//	telemetry: <Subsystem>_<name>
package bus
