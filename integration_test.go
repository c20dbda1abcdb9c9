package salbus_test

import (
	"context"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/salbus-protocol/salbus-go/internal/busmock"
	"github.com/salbus-protocol/salbus-go/pkg/ack"
	"github.com/salbus-protocol/salbus-go/pkg/bus"
	"github.com/salbus-protocol/salbus-go/pkg/command"
	"github.com/salbus-protocol/salbus-go/pkg/config"
	"github.com/salbus-protocol/salbus-go/pkg/lifecycle"
	"github.com/salbus-protocol/salbus-go/pkg/subscriber"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// rig hosts a full component and operator on one in-memory bus.
type rig struct {
	lctx        *lifecycle.Context
	controllers []*command.Controller
	sender      *command.Sender
	stateSub    *subscriber.Subscriber
}

func newRig(t *testing.T, subsystem string, initial lifecycle.State) *rig {
	t.Helper()

	b := busmock.New()
	deviceConn := b.Connect()
	operatorConn := b.Connect()

	deviceTopics := bus.NewRegistry()
	operatorTopics := bus.NewRegistry()

	stateKey := bus.TopicKey{Subsystem: subsystem, Kind: bus.KindEvent, Name: "summaryState"}
	stateSchema := bus.NewSchema(lifecycle.SummaryStateField)
	deviceConn.BindEvent(deviceTopics, stateKey, stateSchema)
	operatorConn.BindSample(operatorTopics, stateKey, stateSchema)

	for _, name := range config.DefaultCommands {
		key := bus.TopicKey{Subsystem: subsystem, Kind: bus.KindCommand, Name: name}
		deviceConn.BindCommand(deviceTopics, key, nil)
		operatorConn.BindCommand(operatorTopics, key, nil)
	}

	lctx := lifecycle.NewContext(subsystem, initial)
	events, err := deviceTopics.Event(stateKey)
	if err != nil {
		t.Fatalf("event writer lookup failed: %v", err)
	}
	lctx.SetEventWriter(events)

	r := &rig{lctx: lctx}

	for _, name := range config.DefaultCommands {
		ctrl, err := command.NewController(lctx, deviceTopics, name)
		if err != nil {
			t.Fatalf("NewController(%s) failed: %v", name, err)
		}
		ctrl.SetPollInterval(5 * time.Millisecond)
		r.controllers = append(r.controllers, ctrl)
	}

	sender := command.NewSender(subsystem, operatorTopics)
	sender.SetPollInterval(5 * time.Millisecond)
	sender.SetDefaultTimeout(2 * time.Second)
	r.sender = sender

	sub, err := subscriber.New(operatorTopics, stateKey)
	if err != nil {
		t.Fatalf("subscriber.New failed: %v", err)
	}
	sub.SetPollInterval(5 * time.Millisecond)
	r.stateSub = sub

	for _, ctrl := range r.controllers {
		ctrl.Start()
	}
	sender.Start()
	sub.Start()

	t.Cleanup(func() {
		sub.Stop()
		sender.Stop()
		for _, ctrl := range r.controllers {
			ctrl.Stop()
		}
	})
	return r
}

// send issues a command and waits for its terminal ack.
func (r *rig) send(t *testing.T, name string) ack.Result {
	t.Helper()
	ctx := context.Background()
	id, result, err := r.sender.Send(ctx, name, nil, command.WithCompletion(2*time.Second))
	if err != nil {
		t.Fatalf("Send(%s) failed: %v", name, err)
	}
	if id == -1 {
		t.Fatalf("Send(%s) timed out waiting for completion", name)
	}
	return result
}

func TestLifecycleSequence(t *testing.T) {
	r := newRig(t, "Scheduler", lifecycle.Standby)

	steps := []struct {
		command string
		want    lifecycle.State
	}{
		{"start", lifecycle.Disabled},
		{"enable", lifecycle.Enabled},
		{"disable", lifecycle.Disabled},
		{"standby", lifecycle.Standby},
		{"exitControl", lifecycle.Offline},
	}

	for _, step := range steps {
		result := r.send(t, step.command)
		if result.Code != ack.Complete {
			t.Fatalf("%s: got %s, want COMPLETE", step.command, result)
		}
		if result.Message != "DONE" {
			t.Errorf("%s: message = %q, want DONE", step.command, result.Message)
		}
		if got := r.lctx.State(); got != step.want {
			t.Errorf("%s: state = %s, want %s", step.command, got, step.want)
		}
	}
}

func TestRejectedTransition(t *testing.T) {
	r := newRig(t, "Scheduler", lifecycle.Standby)

	result := r.send(t, "enable")
	if result.Code != ack.NoPerm {
		t.Fatalf("got %s, want NOPERM", result)
	}
	if result.ErrorCode != 1 {
		t.Errorf("error code = %d, want 1", result.ErrorCode)
	}
	if result.Message != "State transition not allowed." {
		t.Errorf("message = %q", result.Message)
	}
	if got := r.lctx.State(); got != lifecycle.Standby {
		t.Errorf("state = %s, want STANDBY", got)
	}
}

func TestSummaryStateSubscription(t *testing.T) {
	r := newRig(t, "Scheduler", lifecycle.Standby)

	result := r.send(t, "start")
	if result.Code != ack.Complete {
		t.Fatalf("start: got %s, want COMPLETE", result)
	}

	// The sample may already be cached by the poll loop, so read the
	// latest rather than waiting for a fresh one.
	deadline := time.Now().Add(2 * time.Second)
	for {
		if p, ok := r.stateSub.Current(); ok {
			v, ok := p.Get(lifecycle.SummaryStateField)
			if !ok {
				t.Fatal("summaryState field missing")
			}
			if got := v.(int64); lifecycle.State(got) != lifecycle.Disabled {
				t.Errorf("summaryState = %d, want %d", got, int64(lifecycle.Disabled))
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("no summaryState sample observed")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestCommandHistory(t *testing.T) {
	r := newRig(t, "Scheduler", lifecycle.Standby)

	result := r.send(t, "start")
	if result.Code != ack.Complete {
		t.Fatalf("start: got %s, want COMPLETE", result)
	}

	// The terminal result is preceded by the receipt and in-progress
	// acks on the same correlation.
	ids := historyIDs(t, r)
	if len(ids) != 1 {
		t.Fatalf("expected 1 correlation, got %d", len(ids))
	}
	acks, err := r.sender.Registry().History(ids[0])
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(acks) != 3 {
		t.Fatalf("expected 3 acks, got %d: %v", len(acks), acks)
	}
	wantCodes := []ack.Code{ack.Ack, ack.InProgress, ack.Complete}
	for i, want := range wantCodes {
		if acks[i].Code != want {
			t.Errorf("ack[%d] = %s, want %s", i, acks[i].Code, want)
		}
	}
}

func historyIDs(t *testing.T, r *rig) []int64 {
	t.Helper()
	// busmock correlation ids are monotonic from 1.
	var ids []int64
	for id := int64(1); ; id++ {
		if _, err := r.sender.Registry().History(id); err != nil {
			break
		}
		ids = append(ids, id)
	}
	return ids
}
