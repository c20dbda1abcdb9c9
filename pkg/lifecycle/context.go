package lifecycle

import (
	"log/slog"
	"sync"
	"time"

	"github.com/salbus-protocol/salbus-go/pkg/bus"
	"github.com/salbus-protocol/salbus-go/pkg/log"
)

// SummaryStateField is the payload field carrying the new state index on
// the summaryState notification event.
const SummaryStateField = "summaryState"

// Context owns the current lifecycle state of one commandable component,
// validates and performs transitions, and routes received commands to the
// handler registered for the active state.
//
// The state is guarded by a mutex, but command execution itself is
// serialized by the command controller; Execute assumes at most one
// in-flight command at a time.
type Context struct {
	mu        sync.Mutex
	subsystem string
	state     State
	handlers  map[State]Handler
	reason    string

	events bus.EventWriter
	logger *slog.Logger
	plog   log.Logger
}

// NewContext creates a context for the subsystem, starting in the given
// state, with the default handler set. INITIAL and FINAL share the
// STANDBY and ENABLED handler instances.
func NewContext(subsystem string, initial State) *Context {
	standby := &StandbyHandler{}
	enabled := &EnabledHandler{}

	return &Context{
		subsystem: subsystem,
		state:     initial,
		plog:      log.NoopLogger{},
		handlers: map[State]Handler{
			Offline:  &OfflineHandler{},
			Standby:  standby,
			Disabled: &DisabledHandler{},
			Enabled:  enabled,
			Fault:    &FaultHandler{},
			Initial:  standby,
			Final:    enabled,
		},
	}
}

// SetEventWriter sets the writer used to publish summaryState events on
// successful transitions. A nil writer disables event publication.
func (c *Context) SetEventWriter(w bus.EventWriter) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = w
}

// SetLogger sets the optional logger for debug output.
func (c *Context) SetLogger(l *slog.Logger) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.logger = l
}

// SetProtocolLogger sets the protocol event logger. Successful
// transitions are recorded as STATE events.
func (c *Context) SetProtocolLogger(l log.Logger) {
	if l == nil {
		l = log.NoopLogger{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.plog = l
}

// SetHandler replaces the handler for a state. Components override the
// default handlers to attach their own behavior to transitions.
func (c *Context) SetHandler(s State, h Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[s] = h
}

// Subsystem returns the subsystem tag this context belongs to.
func (c *Context) Subsystem() string {
	return c.subsystem
}

// State returns the current lifecycle state.
func (c *Context) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Execute routes a received command to the current state's handler.
// Command names are case-insensitive. Commands the current state does not
// define return a *TransitionError; names outside the lifecycle command
// set return ErrUnknownCommand. On success the handler has already
// performed the transition and the returned error code and message are
// reported back on the terminal acknowledgment.
func (c *Context) Execute(command string, payload *bus.Payload) (int32, string, error) {
	cmd := NormalizeCommand(command)
	if _, err := TargetState(cmd); err != nil {
		return 0, "", err
	}

	c.mu.Lock()
	handler := c.handlers[c.state]
	c.reason = string(cmd)
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.reason = ""
		c.mu.Unlock()
	}()

	switch cmd {
	case CmdEnterControl:
		return handler.EnterControl(c, payload)
	case CmdStart:
		return handler.Start(c, payload)
	case CmdEnable:
		return handler.Enable(c, payload)
	case CmdDisable:
		return handler.Disable(c, payload)
	case CmdStandby:
		return handler.Standby(c, payload)
	case CmdExitControl:
		return handler.ExitControl(c, payload)
	default:
		// TargetState already screened the command set.
		return 0, "", ErrUnknownCommand
	}
}

// ChangeState transitions to the target state after consulting the
// transition matrix. A disallowed transition returns a *TransitionError
// and leaves the state unchanged. On success the transition is recorded
// in the protocol log and a summaryState event is published before
// returning; the log entry carries the triggering command as its reason
// when the transition came through Execute.
func (c *Context) ChangeState(to State) error {
	c.mu.Lock()
	from := c.state
	if !Allowed(from, to) {
		c.mu.Unlock()
		if c.logger != nil {
			c.logger.Warn("transition rejected",
				"subsystem", c.subsystem, "from", from.String(), "to", to.String())
		}
		return &TransitionError{From: from, To: to}
	}
	c.state = to
	events := c.events
	plog := c.plog
	reason := c.reason
	c.mu.Unlock()

	if c.logger != nil {
		c.logger.Info("state changed",
			"subsystem", c.subsystem, "from", from.String(), "to", to.String())
	}

	plog.Log(log.Event{
		Timestamp: time.Now(),
		Subsystem: c.subsystem,
		Direction: log.DirectionOut,
		Category:  log.CategoryState,
		StateChange: &log.StateChangeEvent{
			OldState: from.String(),
			NewState: to.String(),
			Reason:   reason,
		},
	})

	if events != nil {
		p := bus.NewPayload(nil)
		_ = p.Set(SummaryStateField, int32(to))
		if err := events.Publish(p, 1); err != nil && c.logger != nil {
			c.logger.Warn("summaryState publish failed",
				"subsystem", c.subsystem, "err", err)
		}
	}
	return nil
}
