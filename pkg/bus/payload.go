package bus

import (
	"errors"
	"fmt"
	"sort"
)

// Payload errors.
var (
	// ErrUnknownField indicates a Set for a field name outside the payload
	// schema. Callers are expected to log and skip, never to abort.
	ErrUnknownField = errors.New("unknown payload field")
)

// Schema declares the field names a topic's payload may carry. The schema
// comes from the transport binding at registration time; payloads reject
// names outside it.
type Schema struct {
	fields map[string]struct{}
	order  []string
}

// NewSchema creates a schema from the given field names. Duplicate names
// are collapsed.
func NewSchema(fields ...string) *Schema {
	s := &Schema{fields: make(map[string]struct{}, len(fields))}
	for _, f := range fields {
		if _, dup := s.fields[f]; dup {
			continue
		}
		s.fields[f] = struct{}{}
		s.order = append(s.order, f)
	}
	return s
}

// Has reports whether the schema declares the field.
func (s *Schema) Has(name string) bool {
	_, ok := s.fields[name]
	return ok
}

// Fields returns the declared field names in declaration order.
func (s *Schema) Fields() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Payload is a named-field record carried on a topic. It is not safe for
// concurrent use; each poll or send owns its payload exclusively.
type Payload struct {
	schema *Schema
	values map[string]any
}

// NewPayload creates an empty payload for the schema. A nil schema accepts
// any field name.
func NewPayload(schema *Schema) *Payload {
	return &Payload{schema: schema, values: make(map[string]any)}
}

// Set assigns a field value. Setting a name outside the schema returns
// ErrUnknownField and leaves the payload unchanged.
func (p *Payload) Set(name string, value any) error {
	if p.schema != nil && !p.schema.Has(name) {
		return fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	p.values[name] = value
	return nil
}

// Get returns a field value and whether it has been set.
func (p *Payload) Get(name string) (any, bool) {
	v, ok := p.values[name]
	return v, ok
}

// Fields returns a copy of the set fields.
func (p *Payload) Fields() map[string]any {
	out := make(map[string]any, len(p.values))
	for k, v := range p.values {
		out[k] = v
	}
	return out
}

// FieldNames returns the names of the set fields, sorted.
func (p *Payload) FieldNames() []string {
	names := make([]string, 0, len(p.values))
	for k := range p.values {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Reset clears all set fields, keeping the schema.
func (p *Payload) Reset() {
	clear(p.values)
}

// CopyFrom replaces this payload's fields with those of other.
func (p *Payload) CopyFrom(other *Payload) {
	clear(p.values)
	for k, v := range other.values {
		p.values[k] = v
	}
}
