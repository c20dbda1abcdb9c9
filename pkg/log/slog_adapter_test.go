package log

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/salbus-protocol/salbus-go/pkg/ack"
)

func newTestSlog(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestSlogAdapterCommandEvent(t *testing.T) {
	var buf bytes.Buffer
	adapter := NewSlogAdapter(newTestSlog(&buf))

	adapter.Log(Event{
		Timestamp: time.Now(),
		Subsystem: "Scheduler",
		Topic:     "Scheduler_command_enable",
		Direction: DirectionOut,
		Category:  CategoryCommand,
		Command: &CommandEvent{
			CorrelationID: 17,
			Command:       "ENABLE",
		},
	})

	out := buf.String()
	for _, want := range []string{"subsystem=Scheduler", "direction=OUT", "category=COMMAND", "correlation_id=17", "command=ENABLE"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q: %s", want, out)
		}
	}
}

func TestSlogAdapterAckEvent(t *testing.T) {
	var buf bytes.Buffer
	adapter := NewSlogAdapter(newTestSlog(&buf))

	adapter.Log(Event{
		Timestamp: time.Now(),
		Subsystem: "Scheduler",
		Direction: DirectionIn,
		Category:  CategoryAck,
		Ack: &AckEvent{
			CorrelationID: 17,
			Code:          ack.Failed,
			ErrorCode:     1,
			Message:       "handler error",
		},
	})

	out := buf.String()
	for _, want := range []string{"category=ACK", "code=FAILED", "error_code=1"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q: %s", want, out)
		}
	}
}

func TestSlogAdapterStateChange(t *testing.T) {
	var buf bytes.Buffer
	adapter := NewSlogAdapter(newTestSlog(&buf))

	adapter.Log(Event{
		Timestamp: time.Now(),
		Subsystem: "Scheduler",
		Direction: DirectionOut,
		Category:  CategoryState,
		StateChange: &StateChangeEvent{
			OldState: "STANDBY",
			NewState: "DISABLED",
			Reason:   "START",
		},
	})

	out := buf.String()
	for _, want := range []string{"old_state=STANDBY", "new_state=DISABLED", "reason=START"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q: %s", want, out)
		}
	}
}
