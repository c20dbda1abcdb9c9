// Command salbus-sequencer issues a sequence of lifecycle commands
// against a demo component and waits for each to complete.
//
// The process hosts the component on the in-memory bus, so the sequencer
// is self-contained: it demonstrates the full command round-trip without
// external infrastructure. One-shot mode runs a comma-separated command
// sequence and exits non-zero if any command does not complete; with
// -interactive a readline prompt issues commands one at a time.
//
// Usage:
//
//	salbus-sequencer [flags]
//
// Flags:
//
//	-config string    Configuration file path (YAML)
//	-subsystem string Bus subsystem tag (default "Demo")
//	-sequence string  Comma-separated commands (default "start,enable,disable,standby")
//	-timeout duration Per-command completion timeout (default 5s)
//	-interactive      Run an interactive prompt instead of the sequence
//	-log-level string Log level: debug, info, warn, error (default "warn")
//
// Examples:
//
//	# Drive the component STANDBY -> DISABLED -> ENABLED and back
//	salbus-sequencer -sequence start,enable,disable,standby
//
//	# Issue commands by hand
//	salbus-sequencer -interactive
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/chzyer/readline"

	"github.com/salbus-protocol/salbus-go/internal/busmock"
	"github.com/salbus-protocol/salbus-go/pkg/ack"
	"github.com/salbus-protocol/salbus-go/pkg/bus"
	"github.com/salbus-protocol/salbus-go/pkg/command"
	"github.com/salbus-protocol/salbus-go/pkg/config"
	"github.com/salbus-protocol/salbus-go/pkg/lifecycle"
)

var opts struct {
	configFile  string
	subsystem   string
	sequence    string
	timeout     time.Duration
	interactive bool
	logLevel    string
}

func init() {
	flag.StringVar(&opts.configFile, "config", "", "Configuration file path (YAML)")
	flag.StringVar(&opts.subsystem, "subsystem", "Demo", "Bus subsystem tag")
	flag.StringVar(&opts.sequence, "sequence", "start,enable,disable,standby", "Comma-separated commands")
	flag.DurationVar(&opts.timeout, "timeout", 5*time.Second, "Per-command completion timeout")
	flag.BoolVar(&opts.interactive, "interactive", false, "Run an interactive prompt")
	flag.StringVar(&opts.logLevel, "log-level", "warn", "Log level: debug, info, warn, error")
}

func main() {
	flag.Parse()

	cfg, err := resolveConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger := newLogger(opts.logLevel)

	harness, err := buildHarness(cfg, logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	harness.start()
	defer harness.stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	if opts.interactive {
		runInteractive(ctx, cancel, harness)
		return
	}

	if !runSequence(ctx, harness, strings.Split(opts.sequence, ",")) {
		harness.stop()
		os.Exit(1)
	}
}

func resolveConfig() (*config.Config, error) {
	if opts.configFile != "" {
		return config.Load(opts.configFile)
	}
	return config.Parse([]byte("subsystem: " + opts.subsystem + "\n"))
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelWarn
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

// harness hosts the component and a sender on one in-memory bus.
type harness struct {
	cfg         *config.Config
	lctx        *lifecycle.Context
	controllers []*command.Controller
	sender      *command.Sender
}

func buildHarness(cfg *config.Config, logger *slog.Logger) (*harness, error) {
	initial, err := cfg.State()
	if err != nil {
		return nil, err
	}

	b := busmock.New()
	deviceConn := b.Connect()
	operatorConn := b.Connect()

	deviceTopics := bus.NewRegistry()
	operatorTopics := bus.NewRegistry()
	for _, name := range cfg.Commands {
		key := bus.TopicKey{Subsystem: cfg.Subsystem, Kind: bus.KindCommand, Name: name}
		deviceConn.BindCommand(deviceTopics, key, nil)
		operatorConn.BindCommand(operatorTopics, key, nil)
	}

	lctx := lifecycle.NewContext(cfg.Subsystem, initial)
	lctx.SetLogger(logger)

	h := &harness{cfg: cfg, lctx: lctx}

	for _, name := range cfg.Commands {
		ctrl, err := command.NewController(lctx, deviceTopics, name)
		if err != nil {
			return nil, err
		}
		ctrl.SetLogger(logger)
		ctrl.SetPollInterval(cfg.CommandPollInterval.Std())
		h.controllers = append(h.controllers, ctrl)
	}

	sender := command.NewSender(cfg.Subsystem, operatorTopics)
	sender.SetLogger(logger)
	sender.SetPollInterval(cfg.AckPollInterval.Std())
	sender.SetDefaultTimeout(cfg.DefaultTimeout.Std())
	h.sender = sender

	return h, nil
}

func (h *harness) start() {
	for _, ctrl := range h.controllers {
		ctrl.Start()
	}
	h.sender.Start()
}

func (h *harness) stop() {
	h.sender.Stop()
	for _, ctrl := range h.controllers {
		ctrl.Stop()
	}
}

// runSequence issues each command in order, printing the outcome. It
// returns false when any command times out or ends on a code other than
// COMPLETE.
func runSequence(ctx context.Context, h *harness, commands []string) bool {
	allOK := true
	for _, name := range commands {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}

		id, res, err := h.sender.Send(ctx, name, nil, command.WithCompletion(opts.timeout))
		switch {
		case err != nil:
			fmt.Printf("%-14s ERROR %v\n", name, err)
			allOK = false
		case id == -1:
			fmt.Printf("%-14s TIMEOUT after %s\n", name, opts.timeout)
			allOK = false
		default:
			fmt.Printf("%-14s [%d] %s -> state %s\n", name, id, res, h.lctx.State())
			if res.Code != ack.Complete {
				allOK = false
			}
		}

		if ctx.Err() != nil {
			return false
		}
	}
	return allOK
}

func runInteractive(ctx context.Context, cancel context.CancelFunc, h *harness) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "seq> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return
	}
	defer rl.Close()

	fmt.Fprintln(rl.Stdout(), `
Sequencer commands:
  send <cmd>       - Issue one command and wait for completion
  run <a,b,c>      - Run a comma-separated sequence
  state            - Show the component state
  quit             - Exit`)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			cancel()
			return
		}

		parts := strings.Fields(strings.TrimSpace(line))
		if len(parts) == 0 {
			continue
		}

		switch strings.ToLower(parts[0]) {
		case "send":
			if len(parts) != 2 {
				fmt.Fprintln(rl.Stdout(), "Usage: send <command>")
				continue
			}
			runSequence(ctx, h, []string{parts[1]})

		case "run":
			if len(parts) != 2 {
				fmt.Fprintln(rl.Stdout(), "Usage: run <a,b,c>")
				continue
			}
			runSequence(ctx, h, strings.Split(parts[1], ","))

		case "state":
			fmt.Fprintf(rl.Stdout(), "%s is %s\n", h.lctx.Subsystem(), h.lctx.State())

		case "quit", "exit", "q":
			cancel()
			return

		default:
			fmt.Fprintf(rl.Stdout(), "Unknown command: %s\n", parts[0])
		}
	}
}
