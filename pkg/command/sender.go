package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/salbus-protocol/salbus-go/pkg/ack"
	"github.com/salbus-protocol/salbus-go/pkg/bus"
	"github.com/salbus-protocol/salbus-go/pkg/log"
)

// Default poll and wait intervals.
const (
	// DefaultAckPollInterval is the sleep between acknowledgment polls.
	DefaultAckPollInterval = 100 * time.Millisecond

	// DefaultCommandTimeout is the completion wait used when the caller
	// passes a non-positive timeout.
	DefaultCommandTimeout = 5 * time.Second
)

// sendConfig holds per-call Send options.
type sendConfig struct {
	wait    bool
	timeout time.Duration
}

// SendOption configures a single Send call.
type SendOption func(*sendConfig)

// WithCompletion makes Send block until a terminal acknowledgment arrives
// or the timeout elapses. A non-positive timeout uses the sender default.
func WithCompletion(timeout time.Duration) SendOption {
	return func(c *sendConfig) {
		c.wait = true
		c.timeout = timeout
	}
}

// Sender issues commands for one subsystem and tracks their
// acknowledgments. A background goroutine started by Start polls every
// command topic the sender has issued on and feeds the correlation
// registry; Stop terminates it.
//
// Configure the sender (SetLogger, SetPollInterval, ...) before calling
// Start.
type Sender struct {
	subsystem string
	topics    *bus.Registry
	corr      *CorrelationRegistry

	mu    sync.Mutex
	procs map[string]bus.CommandProcessor

	pollInterval   time.Duration
	defaultTimeout time.Duration

	logger *slog.Logger
	plog   log.Logger

	started   atomic.Bool
	startOnce sync.Once
	stopOnce  sync.Once
	stop      chan struct{}
	done      chan struct{}
}

// NewSender creates a sender issuing commands for the subsystem via the
// topic registry.
func NewSender(subsystem string, topics *bus.Registry) *Sender {
	return &Sender{
		subsystem:      subsystem,
		topics:         topics,
		corr:           NewCorrelationRegistry(),
		procs:          make(map[string]bus.CommandProcessor),
		pollInterval:   DefaultAckPollInterval,
		defaultTimeout: DefaultCommandTimeout,
		plog:           log.NoopLogger{},
		stop:           make(chan struct{}),
		done:           make(chan struct{}),
	}
}

// SetLogger sets the optional operational logger.
func (s *Sender) SetLogger(l *slog.Logger) {
	s.logger = l
	s.corr.SetLogger(l)
}

// SetProtocolLogger sets the protocol event logger.
func (s *Sender) SetProtocolLogger(l log.Logger) {
	if l == nil {
		l = log.NoopLogger{}
	}
	s.plog = l
}

// SetPollInterval sets the acknowledgment poll interval.
func (s *Sender) SetPollInterval(d time.Duration) {
	if d > 0 {
		s.pollInterval = d
	}
}

// SetDefaultTimeout sets the completion wait used for non-positive
// timeouts.
func (s *Sender) SetDefaultTimeout(d time.Duration) {
	if d > 0 {
		s.defaultTimeout = d
	}
}

// Registry returns the sender's correlation registry.
func (s *Sender) Registry() *CorrelationRegistry {
	return s.corr
}

// Start launches the acknowledgment poller. Calling Start more than once
// is a no-op.
func (s *Sender) Start() {
	s.startOnce.Do(func() {
		s.started.Store(true)
		go s.pollAcks()
	})
}

// Stop terminates the acknowledgment poller and waits for it to exit.
// Safe to call multiple times, and a no-op if Start was never called.
func (s *Sender) Stop() {
	s.stopOnce.Do(func() {
		close(s.stop)
		if s.started.Load() {
			<-s.done
		}
	})
}

// Send builds the command payload from fields, issues it and registers
// the correlation id. Fields outside the topic schema are logged and
// skipped. With WithCompletion, Send additionally blocks for the terminal
// acknowledgment; otherwise the returned Result is zero.
func (s *Sender) Send(ctx context.Context, name string, fields map[string]any, opts ...SendOption) (int64, ack.Result, error) {
	var cfg sendConfig
	for _, o := range opts {
		o(&cfg)
	}

	proc, err := s.processor(name)
	if err != nil {
		return -1, ack.Result{}, err
	}

	key := bus.TopicKey{Subsystem: s.subsystem, Kind: bus.KindCommand, Name: name}
	payload := s.topics.NewPayload(key)
	for f, v := range fields {
		if err := payload.Set(f, v); err != nil {
			if s.logger != nil {
				s.logger.Warn("skipping unknown command field",
					"command", name, "field", f)
			}
		}
	}

	id, err := proc.Issue(payload)
	if err != nil {
		return -1, ack.Result{}, fmt.Errorf("issue %s: %w", name, err)
	}

	s.corr.Register(id, name)
	s.plog.Log(log.Event{
		Timestamp: time.Now(),
		Subsystem: s.subsystem,
		Topic:     key.FullName(),
		Direction: log.DirectionOut,
		Category:  log.CategoryCommand,
		Command: &log.CommandEvent{
			CorrelationID: id,
			Command:       name,
			Fields:        fields,
		},
	})
	if s.logger != nil {
		s.logger.Info("command issued", "command", name, "correlation_id", id)
	}

	if !cfg.wait {
		return id, ack.Result{}, nil
	}
	return s.WaitForCompletion(ctx, id, cfg.timeout)
}

// WaitForCompletion blocks until a terminal acknowledgment is observed
// for the id. On timeout it returns (-1, zero Result, nil): a timed-out
// command is an outcome to inspect, not an error to escalate. An
// unregistered id is an error.
func (s *Sender) WaitForCompletion(ctx context.Context, id int64, timeout time.Duration) (int64, ack.Result, error) {
	if timeout <= 0 {
		timeout = s.defaultTimeout
	}
	res, err := s.corr.WaitForTerminal(ctx, id, timeout)
	switch {
	case err == nil:
		return id, res, nil
	case errors.Is(err, ErrWaitTimeout):
		if s.logger != nil {
			s.logger.Warn("command completion timed out",
				"correlation_id", id, "timeout", timeout)
		}
		return -1, ack.Result{}, nil
	default:
		return -1, ack.Result{}, err
	}
}

// WaitForInProgress blocks until the command progresses past the receipt
// ACK. Timeout behavior matches WaitForCompletion.
func (s *Sender) WaitForInProgress(ctx context.Context, id int64, timeout time.Duration) (int64, ack.Result, error) {
	if timeout <= 0 {
		timeout = s.defaultTimeout
	}
	res, err := s.corr.WaitForAcknowledged(ctx, id, timeout)
	switch {
	case err == nil:
		return id, res, nil
	case errors.Is(err, ErrWaitTimeout):
		if s.logger != nil {
			s.logger.Warn("command acknowledgment timed out",
				"correlation_id", id, "timeout", timeout)
		}
		return -1, ack.Result{}, nil
	default:
		return -1, ack.Result{}, err
	}
}

// processor returns (and caches) the command processor for the topic.
func (s *Sender) processor(name string) (bus.CommandProcessor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if proc, ok := s.procs[name]; ok {
		return proc, nil
	}
	key := bus.TopicKey{Subsystem: s.subsystem, Kind: bus.KindCommand, Name: name}
	proc, err := s.topics.Command(key)
	if err != nil {
		return nil, err
	}
	s.procs[name] = proc
	return proc, nil
}

func (s *Sender) pollAcks() {
	defer close(s.done)

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.drainAcks()
		}
	}
}

// drainAcks pulls every pending acknowledgment from every command topic
// the sender has issued on.
func (s *Sender) drainAcks() {
	s.mu.Lock()
	procs := make(map[string]bus.CommandProcessor, len(s.procs))
	for name, proc := range s.procs {
		procs[name] = proc
	}
	s.mu.Unlock()

	for name, proc := range procs {
		for {
			id, res, ok, err := proc.NextAck()
			if err != nil {
				if s.logger != nil {
					s.logger.Error("ack poll failed", "command", name, "err", err)
				}
				break
			}
			if !ok {
				break
			}
			s.corr.Observe(id, res)
			s.plog.Log(log.Event{
				Timestamp: time.Now(),
				Subsystem: s.subsystem,
				Topic:     bus.TopicName(s.subsystem, bus.KindCommand, name),
				Direction: log.DirectionIn,
				Category:  log.CategoryAck,
				Ack: &log.AckEvent{
					CorrelationID: id,
					Code:          res.Code,
					ErrorCode:     res.ErrorCode,
					Message:       res.Message,
				},
			})
		}
	}
}
