// Package commands implements the salbus-log CLI commands.
package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/salbus-protocol/salbus-go/pkg/log"
)

// ViewFilter specifies criteria for filtering events in the view command.
type ViewFilter struct {
	Direction     *log.Direction
	Category      *log.Category
	CorrelationID *int64
}

func (f *ViewFilter) matches(event log.Event) bool {
	if f.Direction != nil && event.Direction != *f.Direction {
		return false
	}
	if f.Category != nil && event.Category != *f.Category {
		return false
	}
	if f.CorrelationID != nil {
		switch {
		case event.Command != nil:
			return event.Command.CorrelationID == *f.CorrelationID
		case event.Ack != nil:
			return event.Ack.CorrelationID == *f.CorrelationID
		default:
			return false
		}
	}
	return true
}

// RunView executes the view command.
func RunView(path string, filter ViewFilter, output io.Writer) error {
	reader, err := log.NewReader(path)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}

		if !filter.matches(event) {
			continue
		}
		formatEvent(output, event)
	}

	return nil
}

// formatEvent writes a human-readable representation of the event to w.
func formatEvent(w io.Writer, event log.Event) {
	// Header line: timestamp [subsystem] DIRECTION CATEGORY topic
	ts := event.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z")
	fmt.Fprintf(w, "%s [%s] %-3s %s", ts, event.Subsystem, event.Direction, event.Category)
	if event.Topic != "" {
		fmt.Fprintf(w, " %s", event.Topic)
	}
	fmt.Fprintln(w)

	// Type-specific details
	switch {
	case event.Command != nil:
		formatCommandDetails(w, event.Command)
	case event.Ack != nil:
		formatAckDetails(w, event.Ack)
	case event.StateChange != nil:
		formatStateChangeDetails(w, event.StateChange)
	case event.Sample != nil:
		formatSampleDetails(w, event.Sample)
	case event.Error != nil:
		formatErrorDetails(w, event.Error)
	}

	fmt.Fprintln(w) // Blank line between events
}

func formatCommandDetails(w io.Writer, cmd *log.CommandEvent) {
	fmt.Fprintf(w, "  Correlation: %d\n", cmd.CorrelationID)
	fmt.Fprintf(w, "  Command: %s\n", cmd.Command)
	if len(cmd.Fields) > 0 {
		if data, err := json.Marshal(cmd.Fields); err == nil {
			fmt.Fprintf(w, "  Fields: %s\n", data)
		}
	}
}

func formatAckDetails(w io.Writer, a *log.AckEvent) {
	fmt.Fprintf(w, "  Correlation: %d\n", a.CorrelationID)
	fmt.Fprintf(w, "  Code: %s (%d)\n", a.Code, int32(a.Code))
	if a.ErrorCode != 0 {
		fmt.Fprintf(w, "  ErrorCode: %d\n", a.ErrorCode)
	}
	if a.Message != "" {
		fmt.Fprintf(w, "  Message: %s\n", a.Message)
	}
}

func formatStateChangeDetails(w io.Writer, sc *log.StateChangeEvent) {
	if sc.OldState != "" {
		fmt.Fprintf(w, "  %s -> %s\n", sc.OldState, sc.NewState)
	} else {
		fmt.Fprintf(w, "  -> %s\n", sc.NewState)
	}
	if sc.Reason != "" {
		fmt.Fprintf(w, "  Reason: %s\n", sc.Reason)
	}
}

func formatSampleDetails(w io.Writer, s *log.SampleEvent) {
	if len(s.Fields) > 0 {
		if data, err := json.Marshal(s.Fields); err == nil {
			fmt.Fprintf(w, "  Fields: %s\n", data)
		}
	}
	if s.Priority != 0 {
		fmt.Fprintf(w, "  Priority: %d\n", s.Priority)
	}
}

func formatErrorDetails(w io.Writer, e *log.ErrorEventData) {
	fmt.Fprintf(w, "  Message: %s\n", e.Message)
	if e.Context != "" {
		fmt.Fprintf(w, "  Context: %s\n", e.Context)
	}
}

// ParseDirectionFlag parses a direction string from a command-line flag
// (case-insensitive).
func ParseDirectionFlag(s string) (log.Direction, error) {
	switch strings.ToLower(s) {
	case "in":
		return log.DirectionIn, nil
	case "out":
		return log.DirectionOut, nil
	default:
		return 0, fmt.Errorf("invalid direction: %s (must be in or out)", s)
	}
}

// ParseCategoryFlag parses a category string from a command-line flag
// (case-insensitive).
func ParseCategoryFlag(s string) (log.Category, error) {
	switch strings.ToLower(s) {
	case "command":
		return log.CategoryCommand, nil
	case "ack":
		return log.CategoryAck, nil
	case "event":
		return log.CategoryEvent, nil
	case "telemetry":
		return log.CategoryTelemetry, nil
	case "state":
		return log.CategoryState, nil
	case "error":
		return log.CategoryError, nil
	default:
		return 0, fmt.Errorf("invalid category: %s (must be command, ack, event, telemetry, state, or error)", s)
	}
}
