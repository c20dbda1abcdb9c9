package lifecycle

import (
	"github.com/salbus-protocol/salbus-go/pkg/bus"
)

// Handler is the capability set a state exposes to inbound lifecycle
// commands. A state implements only the commands that are legal to start
// from it; everything else falls through to DefaultHandler and is
// rejected. Implementations receive the owning Context so an accepting
// handler can perform the state change, and the raw command payload for
// configuration fields (for example START's settings reference).
//
// A handler that accepts a command returns (0, "DONE", nil) after the
// state change succeeds.
type Handler interface {
	EnterControl(ctx *Context, p *bus.Payload) (int32, string, error)
	Start(ctx *Context, p *bus.Payload) (int32, string, error)
	Enable(ctx *Context, p *bus.Payload) (int32, string, error)
	Disable(ctx *Context, p *bus.Payload) (int32, string, error)
	Standby(ctx *Context, p *bus.Payload) (int32, string, error)
	ExitControl(ctx *Context, p *bus.Payload) (int32, string, error)
}

// DefaultHandler rejects every lifecycle command. Concrete state handlers
// embed it and override only the commands their state accepts.
type DefaultHandler struct{}

func (DefaultHandler) EnterControl(ctx *Context, p *bus.Payload) (int32, string, error) {
	return reject(ctx, CmdEnterControl)
}

func (DefaultHandler) Start(ctx *Context, p *bus.Payload) (int32, string, error) {
	return reject(ctx, CmdStart)
}

func (DefaultHandler) Enable(ctx *Context, p *bus.Payload) (int32, string, error) {
	return reject(ctx, CmdEnable)
}

func (DefaultHandler) Disable(ctx *Context, p *bus.Payload) (int32, string, error) {
	return reject(ctx, CmdDisable)
}

func (DefaultHandler) Standby(ctx *Context, p *bus.Payload) (int32, string, error) {
	return reject(ctx, CmdStandby)
}

func (DefaultHandler) ExitControl(ctx *Context, p *bus.Payload) (int32, string, error) {
	return reject(ctx, CmdExitControl)
}

func reject(ctx *Context, cmd Command) (int32, string, error) {
	return 0, "", &TransitionError{From: ctx.State(), Command: cmd}
}

func accept(ctx *Context, to State) (int32, string, error) {
	if err := ctx.ChangeState(to); err != nil {
		return 0, "", err
	}
	return 0, "DONE", nil
}

// OfflineHandler accepts ENTERCONTROL.
type OfflineHandler struct {
	DefaultHandler
}

func (OfflineHandler) EnterControl(ctx *Context, p *bus.Payload) (int32, string, error) {
	return accept(ctx, Standby)
}

// StandbyHandler accepts START and EXITCONTROL.
type StandbyHandler struct {
	DefaultHandler
}

func (StandbyHandler) Start(ctx *Context, p *bus.Payload) (int32, string, error) {
	return accept(ctx, Disabled)
}

func (StandbyHandler) ExitControl(ctx *Context, p *bus.Payload) (int32, string, error) {
	return accept(ctx, Offline)
}

// DisabledHandler accepts ENABLE and STANDBY.
type DisabledHandler struct {
	DefaultHandler
}

func (DisabledHandler) Enable(ctx *Context, p *bus.Payload) (int32, string, error) {
	return accept(ctx, Enabled)
}

func (DisabledHandler) Standby(ctx *Context, p *bus.Payload) (int32, string, error) {
	return accept(ctx, Standby)
}

// EnabledHandler accepts DISABLE.
type EnabledHandler struct {
	DefaultHandler
}

func (EnabledHandler) Disable(ctx *Context, p *bus.Payload) (int32, string, error) {
	return accept(ctx, Disabled)
}

// FaultHandler accepts STANDBY, the only way back out of FAULT.
type FaultHandler struct {
	DefaultHandler
}

func (FaultHandler) Standby(ctx *Context, p *bus.Payload) (int32, string, error) {
	return accept(ctx, Standby)
}
