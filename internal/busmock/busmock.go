package busmock

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/salbus-protocol/salbus-go/pkg/ack"
	"github.com/salbus-protocol/salbus-go/pkg/bus"
)

// Bus is an in-memory message bus. Correlation ids are assigned from a
// single bus-wide counter, so they are unique across all command topics.
type Bus struct {
	mu     sync.Mutex
	nextID int64
	topics map[bus.TopicKey]*topicState
}

type frame struct {
	id   int64
	data []byte
}

type ackFrame struct {
	id  int64
	res ack.Result
}

// topicState holds the queues of one topic: commands awaiting accept,
// the issuing conn per correlation id, and the per-conn ack and sample
// queues keyed by conn id.
type topicState struct {
	pending []frame
	issuer  map[int64]string
	acks    map[string][]ackFrame
	samples map[string][]frame
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{topics: make(map[bus.TopicKey]*topicState)}
}

// Connect creates a new bus participant with a unique connection id.
func (b *Bus) Connect() *Conn {
	return &Conn{id: uuid.NewString(), bus: b}
}

// topic returns (creating if needed) the state for a key. Callers hold
// b.mu.
func (b *Bus) topic(key bus.TopicKey) *topicState {
	ts, ok := b.topics[key]
	if !ok {
		ts = &topicState{
			issuer:  make(map[int64]string),
			acks:    make(map[string][]ackFrame),
			samples: make(map[string][]frame),
		}
		b.topics[key] = ts
	}
	return ts
}

// Conn is one participant on the bus. Connections are cheap; a component
// and the party commanding it normally hold separate connections so
// acknowledgments route back to the issuer only.
type Conn struct {
	id  string
	bus *Bus
}

// ID returns the connection id.
func (c *Conn) ID() string {
	return c.id
}

// Command returns the command processor for the topic.
func (c *Conn) Command(key bus.TopicKey) bus.CommandProcessor {
	return &commandTopic{conn: c, key: key}
}

// Event returns the event writer for the topic.
func (c *Conn) Event(key bus.TopicKey) bus.EventWriter {
	return &publishTopic{conn: c, key: key}
}

// Sample returns a sample reader for the topic and subscribes the
// connection to it; samples published after this call are queued.
func (c *Conn) Sample(key bus.TopicKey) bus.SampleReader {
	b := c.bus
	b.mu.Lock()
	ts := b.topic(key)
	if _, ok := ts.samples[c.id]; !ok {
		ts.samples[c.id] = nil
	}
	b.mu.Unlock()
	return &sampleTopic{conn: c, key: key}
}

// BindCommand registers the topic's command processor in the registry.
func (c *Conn) BindCommand(reg *bus.Registry, key bus.TopicKey, schema *bus.Schema) {
	reg.RegisterCommand(key, c.Command(key), schema)
}

// BindEvent registers the topic's event writer in the registry.
func (c *Conn) BindEvent(reg *bus.Registry, key bus.TopicKey, schema *bus.Schema) {
	reg.RegisterEvent(key, c.Event(key), schema)
}

// BindSample registers a sample reader for the topic in the registry and
// subscribes the connection.
func (c *Conn) BindSample(reg *bus.Registry, key bus.TopicKey, schema *bus.Schema) {
	reg.RegisterSample(key, c.Sample(key), schema)
}

// commandTopic implements bus.CommandProcessor for one connection and
// topic.
type commandTopic struct {
	conn *Conn
	key  bus.TopicKey
}

func (t *commandTopic) Issue(p *bus.Payload) (int64, error) {
	data, err := encodeFrame(p)
	if err != nil {
		return 0, fmt.Errorf("encode command %s: %w", t.key.FullName(), err)
	}

	b := t.conn.bus
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	ts := b.topic(t.key)
	ts.pending = append(ts.pending, frame{id: id, data: data})
	ts.issuer[id] = t.conn.id
	return id, nil
}

func (t *commandTopic) AcceptNext(into *bus.Payload) (int64, error) {
	b := t.conn.bus
	b.mu.Lock()
	ts := b.topic(t.key)
	if len(ts.pending) == 0 {
		b.mu.Unlock()
		return 0, nil
	}
	f := ts.pending[0]
	ts.pending = ts.pending[1:]
	b.mu.Unlock()

	if err := decodeFrame(f.data, into); err != nil {
		return 0, fmt.Errorf("decode command %s: %w", t.key.FullName(), err)
	}
	return f.id, nil
}

func (t *commandTopic) Acknowledge(id int64, code ack.Code, errCode int32, message string) error {
	b := t.conn.bus
	b.mu.Lock()
	defer b.mu.Unlock()

	ts := b.topic(t.key)
	issuer, ok := ts.issuer[id]
	if !ok {
		return fmt.Errorf("acknowledge %s: unknown correlation id %d", t.key.FullName(), id)
	}
	ts.acks[issuer] = append(ts.acks[issuer], ackFrame{
		id:  id,
		res: ack.Result{Code: code, ErrorCode: errCode, Message: message},
	})
	return nil
}

func (t *commandTopic) NextAck() (int64, ack.Result, bool, error) {
	b := t.conn.bus
	b.mu.Lock()
	defer b.mu.Unlock()

	ts := b.topic(t.key)
	queue := ts.acks[t.conn.id]
	if len(queue) == 0 {
		return 0, ack.Result{}, false, nil
	}
	a := queue[0]
	ts.acks[t.conn.id] = queue[1:]
	return a.id, a.res, true, nil
}

// publishTopic implements bus.EventWriter for one connection and topic.
type publishTopic struct {
	conn *Conn
	key  bus.TopicKey
}

func (t *publishTopic) Publish(p *bus.Payload, priority int32) error {
	data, err := encodeFrame(p)
	if err != nil {
		return fmt.Errorf("encode sample %s: %w", t.key.FullName(), err)
	}
	_ = priority // carried by real transports, not needed for routing here

	b := t.conn.bus
	b.mu.Lock()
	defer b.mu.Unlock()

	ts := b.topic(t.key)
	for connID := range ts.samples {
		ts.samples[connID] = append(ts.samples[connID], frame{data: data})
	}
	return nil
}

// sampleTopic implements bus.SampleReader for one connection and topic.
type sampleTopic struct {
	conn *Conn
	key  bus.TopicKey
}

func (t *sampleTopic) NextSample(into *bus.Payload) (bool, error) {
	b := t.conn.bus
	b.mu.Lock()
	ts := b.topic(t.key)
	queue := ts.samples[t.conn.id]
	if len(queue) == 0 {
		b.mu.Unlock()
		return false, nil
	}
	f := queue[0]
	ts.samples[t.conn.id] = queue[1:]
	b.mu.Unlock()

	if err := decodeFrame(f.data, into); err != nil {
		return false, fmt.Errorf("decode sample %s: %w", t.key.FullName(), err)
	}
	return true, nil
}

var (
	_ bus.CommandProcessor = (*commandTopic)(nil)
	_ bus.EventWriter      = (*publishTopic)(nil)
	_ bus.SampleReader     = (*sampleTopic)(nil)
)
