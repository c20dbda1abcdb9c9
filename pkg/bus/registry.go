package bus

import (
	"errors"
	"fmt"
	"sync"
)

// Registry errors.
var (
	ErrTopicNotRegistered = errors.New("topic not registered")
)

// Registry maps topic keys to their transport handles. It is populated by
// the transport binding at startup and read by senders, controllers and
// subscribers; no handle is ever located by runtime name synthesis.
// Registry is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	commands map[TopicKey]CommandProcessor
	events   map[TopicKey]EventWriter
	samples  map[TopicKey]SampleReader
	schemas  map[TopicKey]*Schema
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		commands: make(map[TopicKey]CommandProcessor),
		events:   make(map[TopicKey]EventWriter),
		samples:  make(map[TopicKey]SampleReader),
		schemas:  make(map[TopicKey]*Schema),
	}
}

// RegisterCommand registers the command processor and payload schema for a
// command topic. Registering the same key twice replaces the handle.
func (r *Registry) RegisterCommand(key TopicKey, proc CommandProcessor, schema *Schema) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands[key] = proc
	r.schemas[key] = schema
}

// RegisterEvent registers the event writer and payload schema for an event
// topic.
func (r *Registry) RegisterEvent(key TopicKey, w EventWriter, schema *Schema) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events[key] = w
	r.schemas[key] = schema
}

// RegisterSample registers the sample reader and payload schema for an
// event or telemetry topic polled by subscribers.
func (r *Registry) RegisterSample(key TopicKey, s SampleReader, schema *Schema) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.samples[key] = s
	r.schemas[key] = schema
}

// Command returns the command processor for the key.
func (r *Registry) Command(key TopicKey) (CommandProcessor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	proc, ok := r.commands[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTopicNotRegistered, key.FullName())
	}
	return proc, nil
}

// Event returns the event writer for the key.
func (r *Registry) Event(key TopicKey) (EventWriter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.events[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTopicNotRegistered, key.FullName())
	}
	return w, nil
}

// Sample returns the sample reader for the key.
func (r *Registry) Sample(key TopicKey) (SampleReader, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.samples[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTopicNotRegistered, key.FullName())
	}
	return s, nil
}

// Schema returns the payload schema for the key, or nil when the topic has
// no declared schema.
func (r *Registry) Schema(key TopicKey) *Schema {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.schemas[key]
}

// NewPayload creates a payload bound to the key's schema.
func (r *Registry) NewPayload(key TopicKey) *Payload {
	return NewPayload(r.Schema(key))
}
