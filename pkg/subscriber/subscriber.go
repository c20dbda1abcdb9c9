package subscriber

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/salbus-protocol/salbus-go/pkg/bus"
	"github.com/salbus-protocol/salbus-go/pkg/log"
)

// ErrWaitTimeout is returned by WaitNext when no fresh sample arrives
// before the deadline.
var ErrWaitTimeout = errors.New("wait timed out")

// DefaultPollInterval is the sleep between sample polls.
const DefaultPollInterval = 100 * time.Millisecond

// signalRearmInterval bounds how long a waiter sleeps between re-checks
// when the signal channel was already consumed by another waiter.
const signalRearmInterval = 50 * time.Millisecond

// Subscriber polls one event or telemetry topic and keeps the latest
// sample in a lock-guarded handle.
//
// Configure the subscriber (SetLogger, SetPollInterval, ...) before
// calling Start.
type Subscriber struct {
	key    bus.TopicKey
	topics *bus.Registry
	reader bus.SampleReader

	pollInterval time.Duration

	logger *slog.Logger
	plog   log.Logger

	mu     sync.Mutex
	latest *bus.Payload
	seq    uint64
	signal chan struct{}

	started   atomic.Bool
	startOnce sync.Once
	stopOnce  sync.Once
	stop      chan struct{}
	done      chan struct{}
}

// New creates a subscriber for the topic. The topic must already have a
// sample reader registered.
func New(topics *bus.Registry, key bus.TopicKey) (*Subscriber, error) {
	reader, err := topics.Sample(key)
	if err != nil {
		return nil, err
	}
	return &Subscriber{
		key:          key,
		topics:       topics,
		reader:       reader,
		pollInterval: DefaultPollInterval,
		plog:         log.NoopLogger{},
		signal:       make(chan struct{}, 1),
		stop:         make(chan struct{}),
		done:         make(chan struct{}),
	}, nil
}

// Topic returns the topic key this subscriber polls.
func (s *Subscriber) Topic() bus.TopicKey {
	return s.key
}

// SetLogger sets the optional operational logger.
func (s *Subscriber) SetLogger(l *slog.Logger) {
	s.logger = l
}

// SetProtocolLogger sets the protocol event logger.
func (s *Subscriber) SetProtocolLogger(l log.Logger) {
	if l == nil {
		l = log.NoopLogger{}
	}
	s.plog = l
}

// SetPollInterval sets the sample poll interval.
func (s *Subscriber) SetPollInterval(d time.Duration) {
	if d > 0 {
		s.pollInterval = d
	}
}

// Start launches the poll loop. Calling Start more than once is a no-op.
func (s *Subscriber) Start() {
	s.startOnce.Do(func() {
		s.started.Store(true)
		go s.poll()
	})
}

// Stop terminates the poll loop. Safe to call multiple times, and a no-op
// if Start was never called.
func (s *Subscriber) Stop() {
	s.stopOnce.Do(func() {
		close(s.stop)
		if s.started.Load() {
			<-s.done
		}
	})
}

// Current returns the most recent sample, or ok=false when no sample has
// been observed yet. The returned payload is owned by the caller.
func (s *Subscriber) Current() (*bus.Payload, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.latest == nil {
		return nil, false
	}
	out := s.topics.NewPayload(s.key)
	out.CopyFrom(s.latest)
	return out, true
}

// WaitNext blocks until a sample newer than the call arrives, the timeout
// elapses (ErrWaitTimeout), or the context is canceled.
func (s *Subscriber) WaitNext(ctx context.Context, timeout time.Duration) (*bus.Payload, error) {
	s.mu.Lock()
	since := s.seq
	s.mu.Unlock()

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		s.mu.Lock()
		if s.seq > since {
			out := s.topics.NewPayload(s.key)
			out.CopyFrom(s.latest)
			s.mu.Unlock()
			return out, nil
		}
		signal := s.signal
		s.mu.Unlock()

		rearm := time.NewTimer(signalRearmInterval)
		select {
		case <-signal:
			rearm.Stop()
		case <-rearm.C:
		case <-deadline.C:
			rearm.Stop()
			return nil, fmt.Errorf("%w after %s", ErrWaitTimeout, timeout)
		case <-ctx.Done():
			rearm.Stop()
			return nil, ctx.Err()
		}
	}
}

func (s *Subscriber) poll() {
	defer close(s.done)

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.drainSamples()
		}
	}
}

// drainSamples pulls every pending sample so only the newest survives a
// burst.
func (s *Subscriber) drainSamples() {
	for {
		payload := s.topics.NewPayload(s.key)
		ok, err := s.reader.NextSample(payload)
		if err != nil {
			if s.logger != nil {
				s.logger.Error("sample poll failed", "topic", s.key.FullName(), "err", err)
			}
			return
		}
		if !ok {
			return
		}
		s.store(payload)
	}
}

func (s *Subscriber) store(payload *bus.Payload) {
	s.mu.Lock()
	s.latest = payload
	s.seq++
	s.mu.Unlock()

	select {
	case s.signal <- struct{}{}:
	default:
	}

	category := log.CategoryTelemetry
	if s.key.Kind == bus.KindEvent {
		category = log.CategoryEvent
	}
	s.plog.Log(log.Event{
		Timestamp: time.Now(),
		Subsystem: s.key.Subsystem,
		Topic:     s.key.FullName(),
		Direction: log.DirectionIn,
		Category:  category,
		Sample: &log.SampleEvent{
			Fields: payload.Fields(),
		},
	})
}
