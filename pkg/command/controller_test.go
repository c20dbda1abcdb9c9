package command

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/salbus-protocol/salbus-go/pkg/ack"
	"github.com/salbus-protocol/salbus-go/pkg/bus"
	"github.com/salbus-protocol/salbus-go/pkg/lifecycle"
	"github.com/salbus-protocol/salbus-go/pkg/log"
)

func newControllerFixture(t *testing.T, initial lifecycle.State, command string) (*Controller, *lifecycle.Context, *fakeProc) {
	t.Helper()

	lctx := lifecycle.NewContext("Scheduler", initial)
	topics := bus.NewRegistry()
	proc := &fakeProc{}
	key := bus.TopicKey{Subsystem: "Scheduler", Kind: bus.KindCommand, Name: command}
	topics.RegisterCommand(key, proc, nil)

	ctrl, err := NewController(lctx, topics, command)
	if err != nil {
		t.Fatalf("NewController failed: %v", err)
	}
	ctrl.SetPollInterval(2 * time.Millisecond)
	return ctrl, lctx, proc
}

func TestNewControllerUnknownTopic(t *testing.T) {
	lctx := lifecycle.NewContext("Scheduler", lifecycle.Standby)
	topics := bus.NewRegistry()

	_, err := NewController(lctx, topics, "start")
	if !errors.Is(err, bus.ErrTopicNotRegistered) {
		t.Errorf("expected ErrTopicNotRegistered, got %v", err)
	}
}

func TestControllerAcceptedCommand(t *testing.T) {
	ctrl, lctx, proc := newControllerFixture(t, lifecycle.Standby, "start")
	ctrl.Start()
	defer ctrl.Stop()

	id, err := proc.Issue(bus.NewPayload(nil))
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	acks := collectAcks(t, proc, 3, time.Second)

	want := []struct {
		code ack.Code
		msg  string
	}{
		{ack.Ack, "Command received : OK"},
		{ack.InProgress, "Starting: OK"},
		{ack.Complete, "DONE"},
	}
	for i, w := range want {
		if acks[i].id != id {
			t.Errorf("ack %d: id got %d, want %d", i, acks[i].id, id)
		}
		if acks[i].res.Code != w.code {
			t.Errorf("ack %d: code got %v, want %v", i, acks[i].res.Code, w.code)
		}
		if acks[i].res.Message != w.msg {
			t.Errorf("ack %d: message got %q, want %q", i, acks[i].res.Message, w.msg)
		}
	}

	if got := lctx.State(); got != lifecycle.Disabled {
		t.Errorf("state after START: got %v, want DISABLED", got)
	}
}

func TestControllerRejectedTransition(t *testing.T) {
	ctrl, lctx, proc := newControllerFixture(t, lifecycle.Standby, "enable")
	ctrl.Start()
	defer ctrl.Stop()

	if _, err := proc.Issue(bus.NewPayload(nil)); err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	acks := collectAcks(t, proc, 3, time.Second)

	last := acks[2].res
	if last.Code != ack.NoPerm {
		t.Errorf("terminal code: got %v, want NOPERM", last.Code)
	}
	if last.ErrorCode != 1 {
		t.Errorf("error code: got %d, want 1", last.ErrorCode)
	}
	if last.Message != "State transition not allowed." {
		t.Errorf("message: got %q", last.Message)
	}

	if got := lctx.State(); got != lifecycle.Standby {
		t.Errorf("state changed on rejection: got %v", got)
	}
}

// slowStartHandler delays START execution so a second command can arrive
// while the first is in flight.
type slowStartHandler struct {
	lifecycle.DefaultHandler
	delay time.Duration
}

func (h *slowStartHandler) Start(ctx *lifecycle.Context, _ *bus.Payload) (int32, string, error) {
	time.Sleep(h.delay)
	if err := ctx.ChangeState(lifecycle.Disabled); err != nil {
		return 0, "", err
	}
	return 0, "DONE", nil
}

func TestControllerBusyRejectsOverlap(t *testing.T) {
	ctrl, lctx, proc := newControllerFixture(t, lifecycle.Standby, "start")
	lctx.SetHandler(lifecycle.Standby, &slowStartHandler{delay: 100 * time.Millisecond})
	ctrl.Start()
	defer ctrl.Stop()

	id1, _ := proc.Issue(bus.NewPayload(nil))
	id2, _ := proc.Issue(bus.NewPayload(nil))

	// id1: ACK, INPROGRESS, COMPLETE; id2: ACK, NOPERM
	acks := collectAcks(t, proc, 5, 2*time.Second)

	byID := make(map[int64][]ack.Result)
	for _, a := range acks {
		byID[a.id] = append(byID[a.id], a.res)
	}

	first := byID[id1]
	if len(first) != 3 || first[2].Code != ack.Complete {
		t.Errorf("first command acks: %v", first)
	}

	second := byID[id2]
	if len(second) != 2 {
		t.Fatalf("second command acks: %v", second)
	}
	if second[0].Code != ack.Ack {
		t.Errorf("second command receipt: got %v, want ACK", second[0].Code)
	}
	if second[1].Code != ack.NoPerm || second[1].ErrorCode != -1 {
		t.Errorf("busy rejection: got %v", second[1])
	}
	if second[1].Message != "Still replying to a previous command!" {
		t.Errorf("busy message: got %q", second[1].Message)
	}
}

// failingStartHandler simulates a handler crash during execution.
type failingStartHandler struct {
	lifecycle.DefaultHandler
}

func (h *failingStartHandler) Start(*lifecycle.Context, *bus.Payload) (int32, string, error) {
	return 0, "", errors.New("hardware not responding")
}

func TestControllerFailedExecution(t *testing.T) {
	ctrl, lctx, proc := newControllerFixture(t, lifecycle.Standby, "start")
	lctx.SetHandler(lifecycle.Standby, &failingStartHandler{})
	plog := &capturePlog{}
	ctrl.SetProtocolLogger(plog)
	ctrl.Start()
	defer ctrl.Stop()

	if _, err := proc.Issue(bus.NewPayload(nil)); err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	acks := collectAcks(t, proc, 3, time.Second)

	last := acks[2].res
	if last.Code != ack.Failed {
		t.Errorf("terminal code: got %v, want FAILED", last.Code)
	}
	if last.ErrorCode != 1 {
		t.Errorf("error code: got %d, want 1", last.ErrorCode)
	}
	if !strings.Contains(last.Message, "failed to execute START") {
		t.Errorf("message: got %q", last.Message)
	}

	if got := lctx.State(); got != lifecycle.Standby {
		t.Errorf("state changed on failure: got %v", got)
	}

	// The failure itself is captured as an ERROR protocol event.
	var errEvents []log.Event
	for _, e := range plog.snapshot() {
		if e.Category == log.CategoryError {
			errEvents = append(errEvents, e)
		}
	}
	if len(errEvents) != 1 {
		t.Fatalf("captured %d error events, want 1", len(errEvents))
	}
	if errEvents[0].Error == nil {
		t.Fatal("error event payload missing")
	}
	if errEvents[0].Error.Message != "hardware not responding" {
		t.Errorf("error message: got %q", errEvents[0].Error.Message)
	}
	if !strings.Contains(errEvents[0].Error.Context, "START") {
		t.Errorf("error context: got %q", errEvents[0].Error.Context)
	}
}

func TestControllerStopWaitsForInFlight(t *testing.T) {
	ctrl, lctx, proc := newControllerFixture(t, lifecycle.Standby, "start")
	lctx.SetHandler(lifecycle.Standby, &slowStartHandler{delay: 80 * time.Millisecond})
	ctrl.Start()

	if _, err := proc.Issue(bus.NewPayload(nil)); err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	// Wait for the execution goroutine to pick the command up
	collectAcks(t, proc, 2, time.Second)

	ctrl.Stop()

	// The in-flight execution must have completed before Stop returned
	_, res, ok, err := proc.NextAck()
	if err != nil || !ok {
		t.Fatalf("no terminal ack after Stop: ok=%v err=%v", ok, err)
	}
	if res.Code != ack.Complete {
		t.Errorf("terminal code after Stop: got %v, want COMPLETE", res.Code)
	}
	if got := lctx.State(); got != lifecycle.Disabled {
		t.Errorf("state after Stop: got %v, want DISABLED", got)
	}
}

func TestSenderControllerRoundTrip(t *testing.T) {
	lctx := lifecycle.NewContext("Scheduler", lifecycle.Standby)
	topics := bus.NewRegistry()
	proc := &fakeProc{}
	key := bus.TopicKey{Subsystem: "Scheduler", Kind: bus.KindCommand, Name: "start"}
	topics.RegisterCommand(key, proc, nil)

	ctrl, err := NewController(lctx, topics, "start")
	if err != nil {
		t.Fatalf("NewController failed: %v", err)
	}
	ctrl.SetPollInterval(2 * time.Millisecond)
	ctrl.Start()
	defer ctrl.Stop()

	sender := NewSender("Scheduler", topics)
	sender.SetPollInterval(2 * time.Millisecond)
	sender.Start()
	defer sender.Stop()

	id, res, err := sender.Send(context.Background(), "start", nil, WithCompletion(2*time.Second))
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if id <= 0 {
		t.Errorf("id: got %d, want positive", id)
	}
	if res.Code != ack.Complete || res.Message != "DONE" {
		t.Errorf("result: got %v, want COMPLETE/DONE", res)
	}
	if got := lctx.State(); got != lifecycle.Disabled {
		t.Errorf("state: got %v, want DISABLED", got)
	}
}
