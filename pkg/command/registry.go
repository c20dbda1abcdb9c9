package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/salbus-protocol/salbus-go/pkg/ack"
)

// Correlation registry errors.
var (
	// ErrUnknownCorrelation is returned when waiting on a correlation id
	// that was never registered.
	ErrUnknownCorrelation = errors.New("unknown correlation id")

	// ErrWaitTimeout is returned when the deadline expires before a
	// matching acknowledgment is observed.
	ErrWaitTimeout = errors.New("wait timed out")
)

// signalRearmInterval bounds how long a waiter sleeps between re-checks
// when the signal channel was already consumed by another waiter.
const signalRearmInterval = 50 * time.Millisecond

type corrEntry struct {
	command string
	acks    []ack.Result
	signal  chan struct{}
}

// CorrelationRegistry records the acknowledgment history of every
// in-flight command, keyed by correlation id. Observe appends to the
// history and wakes waiters; WaitForTerminal and WaitForAcknowledged block
// until an acknowledgment matching their predicate arrives.
//
// CorrelationRegistry is safe for concurrent use.
type CorrelationRegistry struct {
	mu      sync.Mutex
	entries map[int64]*corrEntry
	logger  *slog.Logger
}

// NewCorrelationRegistry creates an empty registry.
func NewCorrelationRegistry() *CorrelationRegistry {
	return &CorrelationRegistry{
		entries: make(map[int64]*corrEntry),
	}
}

// SetLogger sets the optional logger for debug output.
func (r *CorrelationRegistry) SetLogger(l *slog.Logger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logger = l
}

// Register creates a tracking entry for a newly issued command. If the
// transport reuses a correlation id the previous history is discarded;
// the overwrite is logged because pending waiters on the old command will
// observe the new command's acknowledgments.
func (r *CorrelationRegistry) Register(id int64, command string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.entries[id]; ok && r.logger != nil {
		r.logger.Warn("correlation id reused, discarding previous history",
			"correlation_id", id,
			"previous_command", old.command,
			"command", command)
	}
	r.entries[id] = &corrEntry{
		command: command,
		signal:  make(chan struct{}, 1),
	}
}

// Observe appends an acknowledgment to the history of the id and wakes
// any waiters. Acknowledgments for unregistered ids are silently dropped;
// they belong to commands issued by other processes on the same topic.
func (r *CorrelationRegistry) Observe(id int64, result ack.Result) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok {
		return
	}
	e.acks = append(e.acks, result)

	select {
	case e.signal <- struct{}{}:
	default:
	}
}

// History returns a copy of the acknowledgment history for the id, in
// observation order.
func (r *CorrelationRegistry) History(id int64) ([]ack.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownCorrelation, id)
	}
	out := make([]ack.Result, len(e.acks))
	copy(out, e.acks)
	return out, nil
}

// CommandName returns the command name the id was registered with.
func (r *CorrelationRegistry) CommandName(id int64) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok {
		return "", fmt.Errorf("%w: %d", ErrUnknownCorrelation, id)
	}
	return e.command, nil
}

// Drop removes the tracking entry for the id. Dropping an unknown id is a
// no-op.
func (r *CorrelationRegistry) Drop(id int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, id)
}

// WaitForTerminal blocks until a terminal acknowledgment is observed for
// the id, the timeout elapses (ErrWaitTimeout), or the context is
// canceled. When the history already contains a terminal acknowledgment
// the latest one is returned immediately.
func (r *CorrelationRegistry) WaitForTerminal(ctx context.Context, id int64, timeout time.Duration) (ack.Result, error) {
	return r.wait(ctx, id, timeout, func(res ack.Result) bool {
		return res.Code.IsTerminal()
	})
}

// WaitForAcknowledged blocks until any acknowledgment beyond the initial
// receipt ACK is observed: INPROGRESS, or a terminal code when execution
// finished before the waiter looked.
func (r *CorrelationRegistry) WaitForAcknowledged(ctx context.Context, id int64, timeout time.Duration) (ack.Result, error) {
	return r.wait(ctx, id, timeout, func(res ack.Result) bool {
		return res.Code != ack.Ack
	})
}

func (r *CorrelationRegistry) wait(ctx context.Context, id int64, timeout time.Duration, pred func(ack.Result) bool) (ack.Result, error) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		r.mu.Lock()
		e, ok := r.entries[id]
		if !ok {
			r.mu.Unlock()
			return ack.Result{}, fmt.Errorf("%w: %d", ErrUnknownCorrelation, id)
		}
		for i := len(e.acks) - 1; i >= 0; i-- {
			if pred(e.acks[i]) {
				res := e.acks[i]
				r.mu.Unlock()
				return res, nil
			}
		}
		signal := e.signal
		r.mu.Unlock()

		// The signal channel has capacity 1 and is shared between
		// waiters, so re-arm on a fixed interval as well.
		rearm := time.NewTimer(signalRearmInterval)
		select {
		case <-signal:
			rearm.Stop()
		case <-rearm.C:
		case <-deadline.C:
			rearm.Stop()
			return ack.Result{}, fmt.Errorf("%w after %s", ErrWaitTimeout, timeout)
		case <-ctx.Done():
			rearm.Stop()
			return ack.Result{}, ctx.Err()
		}
	}
}
