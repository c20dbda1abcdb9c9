package subscriber

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/salbus-protocol/salbus-go/pkg/bus"
)

// fakeReader queues samples for the subscriber to poll.
type fakeReader struct {
	mu      sync.Mutex
	samples []map[string]any
}

func (f *fakeReader) push(fields map[string]any) {
	f.mu.Lock()
	f.samples = append(f.samples, fields)
	f.mu.Unlock()
}

func (f *fakeReader) NextSample(into *bus.Payload) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.samples) == 0 {
		return false, nil
	}
	fields := f.samples[0]
	f.samples = f.samples[1:]
	for k, v := range fields {
		if err := into.Set(k, v); err != nil {
			return false, err
		}
	}
	return true, nil
}

var _ bus.SampleReader = (*fakeReader)(nil)

func newFixture(t *testing.T) (*Subscriber, *fakeReader) {
	t.Helper()

	topics := bus.NewRegistry()
	reader := &fakeReader{}
	key := bus.TopicKey{Subsystem: "Scheduler", Kind: bus.KindEvent, Name: "summaryState"}
	topics.RegisterSample(key, reader, bus.NewSchema("summaryState"))

	sub, err := New(topics, key)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	sub.SetPollInterval(2 * time.Millisecond)
	return sub, reader
}

func TestNewUnknownTopic(t *testing.T) {
	topics := bus.NewRegistry()
	_, err := New(topics, bus.TopicKey{Subsystem: "Scheduler", Kind: bus.KindEvent, Name: "nosuch"})
	if !errors.Is(err, bus.ErrTopicNotRegistered) {
		t.Errorf("expected ErrTopicNotRegistered, got %v", err)
	}
}

func TestCurrentBeforeFirstSample(t *testing.T) {
	sub, _ := newFixture(t)

	if _, ok := sub.Current(); ok {
		t.Error("Current reported a sample before any was polled")
	}
}

func TestCurrentReturnsLatest(t *testing.T) {
	sub, reader := newFixture(t)
	sub.Start()
	defer sub.Stop()

	reader.push(map[string]any{"summaryState": int32(1)})
	reader.push(map[string]any{"summaryState": int32(2)})

	deadline := time.Now().Add(time.Second)
	for {
		p, ok := sub.Current()
		if ok {
			if v, _ := p.Get("summaryState"); v == int32(2) {
				break
			}
		}
		if time.Now().After(deadline) {
			t.Fatal("latest sample never became current")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestWaitNextReceivesFreshSample(t *testing.T) {
	sub, reader := newFixture(t)
	sub.Start()
	defer sub.Stop()

	go func() {
		time.Sleep(20 * time.Millisecond)
		reader.push(map[string]any{"summaryState": int32(3)})
	}()

	p, err := sub.WaitNext(context.Background(), time.Second)
	if err != nil {
		t.Fatalf("WaitNext failed: %v", err)
	}
	if v, _ := p.Get("summaryState"); v != int32(3) {
		t.Errorf("sample value: got %v, want 3", v)
	}
}

func TestWaitNextIgnoresStaleSample(t *testing.T) {
	sub, reader := newFixture(t)
	sub.Start()
	defer sub.Stop()

	reader.push(map[string]any{"summaryState": int32(1)})

	// Let the stale sample land
	if _, err := sub.WaitNext(context.Background(), time.Second); err != nil {
		t.Fatalf("first WaitNext failed: %v", err)
	}

	// No fresh sample now: WaitNext must not return the stored one
	if _, err := sub.WaitNext(context.Background(), 60*time.Millisecond); !errors.Is(err, ErrWaitTimeout) {
		t.Errorf("stale sample satisfied WaitNext: %v", err)
	}
}

func TestWaitNextTimeout(t *testing.T) {
	sub, _ := newFixture(t)
	sub.Start()
	defer sub.Stop()

	start := time.Now()
	_, err := sub.WaitNext(context.Background(), 50*time.Millisecond)
	if !errors.Is(err, ErrWaitTimeout) {
		t.Fatalf("expected ErrWaitTimeout, got %v", err)
	}
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Errorf("returned before the deadline: %v", elapsed)
	}
}

func TestWaitNextContextCanceled(t *testing.T) {
	sub, _ := newFixture(t)
	sub.Start()
	defer sub.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	if _, err := sub.WaitNext(ctx, time.Second); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestStopWithoutStart(t *testing.T) {
	sub, _ := newFixture(t)
	// Must not hang
	sub.Stop()
}
