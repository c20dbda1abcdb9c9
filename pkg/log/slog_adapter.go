package log

import (
	"context"
	"log/slog"
)

// SlogAdapter writes protocol events to an slog.Logger.
// Useful for development when you want to see protocol events in console.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates a new SlogAdapter that writes to the given slog.Logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log writes the event to the slog logger at Debug level.
func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.String("subsystem", event.Subsystem),
		slog.String("direction", event.Direction.String()),
		slog.String("category", event.Category.String()),
	}

	if event.Topic != "" {
		attrs = append(attrs, slog.String("topic", event.Topic))
	}

	// Add type-specific attributes
	switch {
	case event.Command != nil:
		attrs = append(attrs,
			slog.Int64("correlation_id", event.Command.CorrelationID),
			slog.String("command", event.Command.Command),
		)
	case event.Ack != nil:
		attrs = append(attrs,
			slog.Int64("correlation_id", event.Ack.CorrelationID),
			slog.String("code", event.Ack.Code.String()),
		)
		if event.Ack.ErrorCode != 0 {
			attrs = append(attrs, slog.Int("error_code", int(event.Ack.ErrorCode)))
		}
		if event.Ack.Message != "" {
			attrs = append(attrs, slog.String("message", event.Ack.Message))
		}
	case event.StateChange != nil:
		attrs = append(attrs,
			slog.String("old_state", event.StateChange.OldState),
			slog.String("new_state", event.StateChange.NewState),
		)
		if event.StateChange.Reason != "" {
			attrs = append(attrs, slog.String("reason", event.StateChange.Reason))
		}
	case event.Sample != nil:
		attrs = append(attrs, slog.Int("fields", len(event.Sample.Fields)))
		if event.Category == CategoryEvent {
			attrs = append(attrs, slog.Int("priority", int(event.Sample.Priority)))
		}
	case event.Error != nil:
		attrs = append(attrs,
			slog.String("error_msg", event.Error.Message),
			slog.String("error_context", event.Error.Context),
		)
	}

	a.logger.LogAttrs(context.Background(), slog.LevelDebug, "protocol", attrs...)
}

// Compile-time interface satisfaction check.
var _ Logger = (*SlogAdapter)(nil)
