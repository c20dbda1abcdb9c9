package command

import (
	"sync"
	"testing"
	"time"

	"github.com/salbus-protocol/salbus-go/pkg/ack"
	"github.com/salbus-protocol/salbus-go/pkg/bus"
)

// fakeProc is a loopback command processor: commands issued on it are
// accepted from it, acknowledgments published on it are polled from it.
type fakeProc struct {
	mu      sync.Mutex
	nextID  int64
	pending []pendingCmd
	acks    []ackMsg
}

type pendingCmd struct {
	id     int64
	fields map[string]any
}

type ackMsg struct {
	id  int64
	res ack.Result
}

func (f *fakeProc) Issue(p *bus.Payload) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.pending = append(f.pending, pendingCmd{id: f.nextID, fields: p.Fields()})
	return f.nextID, nil
}

func (f *fakeProc) AcceptNext(into *bus.Payload) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.pending) == 0 {
		return 0, nil
	}
	cmd := f.pending[0]
	f.pending = f.pending[1:]
	for k, v := range cmd.fields {
		if err := into.Set(k, v); err != nil {
			return 0, err
		}
	}
	return cmd.id, nil
}

func (f *fakeProc) Acknowledge(id int64, code ack.Code, errCode int32, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acks = append(f.acks, ackMsg{id: id, res: ack.Result{Code: code, ErrorCode: errCode, Message: message}})
	return nil
}

func (f *fakeProc) NextAck() (int64, ack.Result, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.acks) == 0 {
		return 0, ack.Result{}, false, nil
	}
	a := f.acks[0]
	f.acks = f.acks[1:]
	return a.id, a.res, true, nil
}

var _ bus.CommandProcessor = (*fakeProc)(nil)

// collectAcks polls the processor's ack queue until n acknowledgments are
// collected or the deadline expires.
func collectAcks(t *testing.T, proc *fakeProc, n int, timeout time.Duration) []ackMsg {
	t.Helper()

	var out []ackMsg
	deadline := time.Now().Add(timeout)
	for len(out) < n {
		id, res, ok, err := proc.NextAck()
		if err != nil {
			t.Fatalf("NextAck failed: %v", err)
		}
		if ok {
			out = append(out, ackMsg{id: id, res: res})
			continue
		}
		if time.Now().After(deadline) {
			t.Fatalf("collected %d of %d acks before timeout: %v", len(out), n, out)
		}
		time.Sleep(time.Millisecond)
	}
	return out
}
