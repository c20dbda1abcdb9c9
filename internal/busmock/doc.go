// Package busmock provides an in-memory message bus implementing the
// pkg/bus capability interfaces, used by tests and the demo binaries.
//
// Each Conn models one bus participant with its own acknowledgment and
// sample queues; commands and samples cross the bus as CBOR-encoded
// frames so anything a real transport could not carry fails here too.
package busmock
