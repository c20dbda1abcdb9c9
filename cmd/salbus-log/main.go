// Command salbus-log is a tool for viewing and analyzing protocol log
// files.
//
// Log files are created by the protocol logging infrastructure when
// running salbus-device with the -protocol-log flag.
//
// Usage:
//
//	salbus-log <command> [flags] <file.slog>
//
// Commands:
//
//	view     View log file in human-readable format
//	export   Export log file to JSON or CSV format
//	filter   Filter log file and write to new file
//	stats    Show statistics about the log file
//
// Examples:
//
//	# View all events
//	salbus-log view scheduler.slog
//
//	# View only acknowledgments
//	salbus-log view -category ack scheduler.slog
//
//	# Follow one command round-trip
//	salbus-log view -correlation 42 scheduler.slog
//
//	# Export to JSONL
//	salbus-log export -format jsonl scheduler.slog
//
//	# Filter by topic and save to a new file
//	salbus-log filter -topic Scheduler_command_start -o start.slog scheduler.slog
//
//	# Show statistics
//	salbus-log stats scheduler.slog
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/salbus-protocol/salbus-go/cmd/salbus-log/commands"
)

const usage = `salbus-log - Protocol Log Analyzer

Usage:
  salbus-log <command> [flags] <file.slog>

Commands:
  view     View log file in human-readable format
  export   Export log file to JSON or CSV format
  filter   Filter log file and write to new file
  stats    Show statistics about the log file

Use "salbus-log <command> -help" for more information about a command.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "view":
		runView(args)
	case "export":
		runExport(args)
	case "filter":
		runFilter(args)
	case "stats":
		runStats(args)
	case "-h", "-help", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}
}

func runView(args []string) {
	fs := flag.NewFlagSet("view", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `salbus-log view - View log file in human-readable format

Usage:
  salbus-log view [flags] <file.slog>

Flags:
`)
		fs.PrintDefaults()
	}

	direction := fs.String("direction", "", "Filter by direction (in, out)")
	category := fs.String("category", "", "Filter by category (command, ack, event, telemetry, state, error)")
	correlation := fs.Int64("correlation", 0, "Filter by correlation id")

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	path := requirePath(fs)

	var filter commands.ViewFilter
	if *direction != "" {
		d, err := commands.ParseDirectionFlag(*direction)
		if err != nil {
			fatal(err)
		}
		filter.Direction = &d
	}
	if *category != "" {
		c, err := commands.ParseCategoryFlag(*category)
		if err != nil {
			fatal(err)
		}
		filter.Category = &c
	}
	if *correlation != 0 {
		filter.CorrelationID = correlation
	}

	if err := commands.RunView(path, filter, os.Stdout); err != nil {
		fatal(err)
	}
}

func runExport(args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	format := fs.String("format", "jsonl", "Output format (jsonl, csv)")
	output := fs.String("o", "", "Output file (default stdout)")

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	if err := commands.RunExport(requirePath(fs), *format, *output); err != nil {
		fatal(err)
	}
}

func runFilter(args []string) {
	fs := flag.NewFlagSet("filter", flag.ExitOnError)
	opts := commands.FilterOptions{}
	fs.StringVar(&opts.Output, "o", "filtered.slog", "Output file")
	fs.StringVar(&opts.Subsystem, "subsystem", "", "Filter by subsystem")
	fs.StringVar(&opts.Topic, "topic", "", "Filter by full topic name")
	fs.StringVar(&opts.Direction, "direction", "", "Filter by direction (in, out)")
	fs.StringVar(&opts.Category, "category", "", "Filter by category")
	fs.Int64Var(&opts.CorrelationID, "correlation", 0, "Filter by correlation id")
	fs.StringVar(&opts.TimeStart, "time-start", "", "Events at or after this RFC3339 time")
	fs.StringVar(&opts.TimeEnd, "time-end", "", "Events before this RFC3339 time")

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	if err := commands.RunFilter(requirePath(fs), opts); err != nil {
		fatal(err)
	}
}

func runStats(args []string) {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	if err := commands.RunStats(requirePath(fs), os.Stdout); err != nil {
		fatal(err)
	}
}

func requirePath(fs *flag.FlagSet) string {
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: log file path required")
		fs.Usage()
		os.Exit(1)
	}
	return fs.Arg(0)
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
