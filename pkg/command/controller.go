package command

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/salbus-protocol/salbus-go/pkg/ack"
	"github.com/salbus-protocol/salbus-go/pkg/bus"
	"github.com/salbus-protocol/salbus-go/pkg/lifecycle"
	"github.com/salbus-protocol/salbus-go/pkg/log"
)

// DefaultCommandPollInterval is the sleep between inbound command polls.
const DefaultCommandPollInterval = 100 * time.Millisecond

// Acknowledgment messages sent by the controller.
const (
	msgCommandReceived = "Command received : OK"
	msgBusy            = "Still replying to a previous command!"
	msgStarting        = "Starting: OK"
	msgBadTransition   = "State transition not allowed."
)

// Controller serves one command topic of a commandable component. It
// polls for inbound commands, acknowledges receipt, and executes accepted
// commands through the lifecycle context in a separate goroutine so the
// poll loop stays responsive. Overlapping commands are rejected with a
// terminal NOPERM while an execution is in flight.
//
// Configure the controller (SetLogger, SetPollInterval, ...) before
// calling Start.
type Controller struct {
	command string
	key     bus.TopicKey
	lctx    *lifecycle.Context
	topics  *bus.Registry
	proc    bus.CommandProcessor

	pollInterval time.Duration
	busy         atomic.Bool

	logger *slog.Logger
	plog   log.Logger

	started   atomic.Bool
	startOnce sync.Once
	stopOnce  sync.Once
	stop      chan struct{}
	done      chan struct{}
	execWG    sync.WaitGroup
}

// NewController creates a controller for the command topic of the
// context's subsystem. The topic must already be registered.
func NewController(lctx *lifecycle.Context, topics *bus.Registry, command string) (*Controller, error) {
	key := bus.TopicKey{Subsystem: lctx.Subsystem(), Kind: bus.KindCommand, Name: command}
	proc, err := topics.Command(key)
	if err != nil {
		return nil, err
	}
	return &Controller{
		command:      command,
		key:          key,
		lctx:         lctx,
		topics:       topics,
		proc:         proc,
		pollInterval: DefaultCommandPollInterval,
		plog:         log.NoopLogger{},
		stop:         make(chan struct{}),
		done:         make(chan struct{}),
	}, nil
}

// Command returns the command topic name this controller serves.
func (c *Controller) Command() string {
	return c.command
}

// SetLogger sets the optional operational logger.
func (c *Controller) SetLogger(l *slog.Logger) {
	c.logger = l
}

// SetProtocolLogger sets the protocol event logger.
func (c *Controller) SetProtocolLogger(l log.Logger) {
	if l == nil {
		l = log.NoopLogger{}
	}
	c.plog = l
}

// SetPollInterval sets the inbound command poll interval.
func (c *Controller) SetPollInterval(d time.Duration) {
	if d > 0 {
		c.pollInterval = d
	}
}

// Start launches the poll loop. Calling Start more than once is a no-op.
func (c *Controller) Start() {
	c.startOnce.Do(func() {
		c.started.Store(true)
		go c.poll()
	})
}

// Stop terminates the poll loop and waits for any in-flight command
// execution to finish. Safe to call multiple times, and a no-op if Start
// was never called.
func (c *Controller) Stop() {
	c.stopOnce.Do(func() {
		close(c.stop)
		if c.started.Load() {
			<-c.done
		}
		c.execWG.Wait()
	})
}

func (c *Controller) poll() {
	defer close(c.done)

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.acceptPending()
		}
	}
}

// acceptPending drains every command waiting on the topic.
func (c *Controller) acceptPending() {
	for {
		payload := c.topics.NewPayload(c.key)
		id, err := c.proc.AcceptNext(payload)
		if err != nil {
			if c.logger != nil {
				c.logger.Error("command poll failed", "command", c.command, "err", err)
			}
			return
		}
		if id == 0 {
			return
		}
		c.handle(id, payload)
	}
}

// handle acknowledges receipt, applies the busy check and dispatches the
// execution goroutine. Receipt is acknowledged before the busy check so
// the issuer always learns the command arrived, even when it is then
// rejected.
func (c *Controller) handle(id int64, payload *bus.Payload) {
	c.plog.Log(log.Event{
		Timestamp: time.Now(),
		Subsystem: c.key.Subsystem,
		Topic:     c.key.FullName(),
		Direction: log.DirectionIn,
		Category:  log.CategoryCommand,
		Command: &log.CommandEvent{
			CorrelationID: id,
			Command:       c.command,
			Fields:        payload.Fields(),
		},
	})

	c.acknowledge(id, ack.Ack, 0, msgCommandReceived)

	if !c.busy.CompareAndSwap(false, true) {
		c.acknowledge(id, ack.NoPerm, -1, msgBusy)
		return
	}

	c.execWG.Add(1)
	go c.execute(id, payload)
}

func (c *Controller) execute(id int64, payload *bus.Payload) {
	defer c.execWG.Done()
	defer c.busy.Store(false)

	c.acknowledge(id, ack.InProgress, 0, msgStarting)

	errCode, msg, err := c.lctx.Execute(c.command, payload)

	var terr *lifecycle.TransitionError
	switch {
	case err == nil:
		c.acknowledge(id, ack.Complete, errCode, msg)
	case errors.As(err, &terr):
		c.acknowledge(id, ack.NoPerm, 1, msgBadTransition)
	default:
		c.plog.Log(log.Event{
			Timestamp: time.Now(),
			Subsystem: c.key.Subsystem,
			Topic:     c.key.FullName(),
			Direction: log.DirectionOut,
			Category:  log.CategoryError,
			Error: &log.ErrorEventData{
				Message: err.Error(),
				Context: fmt.Sprintf("executing %s", strings.ToUpper(c.command)),
			},
		})
		c.acknowledge(id, ack.Failed, 1,
			fmt.Sprintf("%T : failed to execute %s", err, strings.ToUpper(c.command)))
	}
}

// acknowledge publishes an acknowledgment and records it in the protocol
// log. Publish failures are logged; there is nothing else the controller
// can do with them.
func (c *Controller) acknowledge(id int64, code ack.Code, errCode int32, message string) {
	if err := c.proc.Acknowledge(id, code, errCode, message); err != nil {
		if c.logger != nil {
			c.logger.Error("acknowledge failed",
				"command", c.command, "correlation_id", id, "code", code, "err", err)
		}
		return
	}
	c.plog.Log(log.Event{
		Timestamp: time.Now(),
		Subsystem: c.key.Subsystem,
		Topic:     c.key.FullName(),
		Direction: log.DirectionOut,
		Category:  log.CategoryAck,
		Ack: &log.AckEvent{
			CorrelationID: id,
			Code:          code,
			ErrorCode:     errCode,
			Message:       message,
		},
	})
}
