package commands

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/salbus-protocol/salbus-go/pkg/ack"
	"github.com/salbus-protocol/salbus-go/pkg/log"
)

// Stats holds aggregate statistics about a log file.
type Stats struct {
	TotalEvents       int
	EventsByCategory  map[log.Category]int
	EventsByDirection map[log.Direction]int
	Commands          map[string]*CommandStats
	Errors            int
	TimeRange         struct {
		Start time.Time
		End   time.Time
	}
}

// CommandStats aggregates the outcomes of one command name.
type CommandStats struct {
	Issued   int
	Outcomes map[ack.Code]int
}

// RunStats analyzes the log file and prints statistics.
func RunStats(path string, w io.Writer) error {
	reader, err := log.NewReader(path)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	stats := &Stats{
		EventsByCategory:  make(map[log.Category]int),
		EventsByDirection: make(map[log.Direction]int),
		Commands:          make(map[string]*CommandStats),
	}

	// Map correlation ids to command names so terminal acks can be
	// attributed.
	commandByID := make(map[int64]string)

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}

		stats.TotalEvents++
		stats.EventsByCategory[event.Category]++
		stats.EventsByDirection[event.Direction]++

		if stats.TimeRange.Start.IsZero() || event.Timestamp.Before(stats.TimeRange.Start) {
			stats.TimeRange.Start = event.Timestamp
		}
		if event.Timestamp.After(stats.TimeRange.End) {
			stats.TimeRange.End = event.Timestamp
		}

		switch {
		case event.Command != nil:
			name := event.Command.Command
			cs, ok := stats.Commands[name]
			if !ok {
				cs = &CommandStats{Outcomes: make(map[ack.Code]int)}
				stats.Commands[name] = cs
			}
			cs.Issued++
			commandByID[event.Command.CorrelationID] = name

		case event.Ack != nil:
			if !event.Ack.Code.IsTerminal() {
				break
			}
			if name, ok := commandByID[event.Ack.CorrelationID]; ok {
				stats.Commands[name].Outcomes[event.Ack.Code]++
			}

		case event.Error != nil:
			stats.Errors++
		}
	}

	printStats(w, stats)
	return nil
}

func printStats(w io.Writer, stats *Stats) {
	fmt.Fprintln(w, "=== Protocol Log Statistics ===")
	fmt.Fprintln(w)

	if stats.TotalEvents > 0 {
		fmt.Fprintf(w, "Time Range: %s to %s\n",
			stats.TimeRange.Start.Format(time.RFC3339),
			stats.TimeRange.End.Format(time.RFC3339))
		fmt.Fprintf(w, "Duration:   %s\n", stats.TimeRange.End.Sub(stats.TimeRange.Start).Round(time.Second))
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Total Events: %d\n", stats.TotalEvents)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Category:")
	for _, cat := range []log.Category{
		log.CategoryCommand, log.CategoryAck, log.CategoryEvent,
		log.CategoryTelemetry, log.CategoryState, log.CategoryError,
	} {
		if count := stats.EventsByCategory[cat]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", cat.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Direction:")
	for _, dir := range []log.Direction{log.DirectionIn, log.DirectionOut} {
		if count := stats.EventsByDirection[dir]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", dir.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Commands: %d\n", len(stats.Commands))
	if len(stats.Commands) > 0 {
		names := make([]string, 0, len(stats.Commands))
		for name := range stats.Commands {
			names = append(names, name)
		}
		sort.Strings(names)

		fmt.Fprintln(w)
		for _, name := range names {
			cs := stats.Commands[name]
			fmt.Fprintf(w, "  %-14s issued %d\n", name, cs.Issued)

			codes := make([]ack.Code, 0, len(cs.Outcomes))
			for code := range cs.Outcomes {
				codes = append(codes, code)
			}
			sort.Slice(codes, func(i, j int) bool { return codes[i] > codes[j] })
			for _, code := range codes {
				fmt.Fprintf(w, "                 %s: %d\n", code, cs.Outcomes[code])
			}
		}
	}

	if stats.Errors > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Errors: %d\n", stats.Errors)
	}
}
