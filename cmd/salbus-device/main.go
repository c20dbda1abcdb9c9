// Command salbus-device runs a demo commandable component on the
// in-memory bus.
//
// The process hosts both sides of the bus: the component (a lifecycle
// context served by one controller per command topic) and an operator
// connection with a command sender and a summaryState subscriber. An
// interactive prompt issues lifecycle commands and shows the component's
// state.
//
// Usage:
//
//	salbus-device [flags]
//
// Flags:
//
//	-config string        Configuration file path (YAML)
//	-subsystem string     Bus subsystem tag (default "Demo")
//	-initial-state string Initial lifecycle state (default "STANDBY")
//	-log-level string     Log level: debug, info, warn, error (default "info")
//	-protocol-log string  CBOR protocol log file path (empty disables)
//
// Examples:
//
//	# Start with defaults and an interactive prompt
//	salbus-device
//
//	# Start from a config file, capturing the protocol stream
//	salbus-device -config scheduler.yaml -protocol-log scheduler.slog
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/salbus-protocol/salbus-go/internal/busmock"
	"github.com/salbus-protocol/salbus-go/pkg/bus"
	"github.com/salbus-protocol/salbus-go/pkg/command"
	"github.com/salbus-protocol/salbus-go/pkg/config"
	"github.com/salbus-protocol/salbus-go/pkg/lifecycle"
	"github.com/salbus-protocol/salbus-go/pkg/log"
	"github.com/salbus-protocol/salbus-go/pkg/subscriber"
)

var opts struct {
	configFile   string
	subsystem    string
	initialState string
	logLevel     string
	protocolLog  string
}

func init() {
	flag.StringVar(&opts.configFile, "config", "", "Configuration file path (YAML)")
	flag.StringVar(&opts.subsystem, "subsystem", "Demo", "Bus subsystem tag")
	flag.StringVar(&opts.initialState, "initial-state", "STANDBY", "Initial lifecycle state")
	flag.StringVar(&opts.logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	flag.StringVar(&opts.protocolLog, "protocol-log", "", "CBOR protocol log file path")
}

func main() {
	flag.Parse()

	cfg, err := resolveConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger := newLogger(opts.logLevel)

	plog, closePlog, err := newProtocolLogger(cfg.ProtocolLog, logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer closePlog()

	rt, err := buildRuntime(cfg, logger, plog)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	rt.start()
	defer rt.stop()

	logger.Info("component running",
		"subsystem", cfg.Subsystem, "state", rt.lctx.State().String())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("received signal", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()

	ui, err := newInteractive(rt)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	ui.Run(ctx, cancel)

	logger.Info("shutting down")
}

// resolveConfig loads the config file when given, otherwise builds a
// config from flags.
func resolveConfig() (*config.Config, error) {
	if opts.configFile != "" {
		return config.Load(opts.configFile)
	}
	return config.Parse([]byte(fmt.Sprintf(
		"subsystem: %s\ninitial_state: %s\n", opts.subsystem, opts.initialState)))
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

// newProtocolLogger builds the protocol logger from the config: a CBOR
// file logger when a path is set, plus slog capture at debug level.
func newProtocolLogger(path string, logger *slog.Logger) (log.Logger, func(), error) {
	adapter := log.NewSlogAdapter(logger)
	if path == "" {
		return adapter, func() {}, nil
	}
	fl, err := log.NewFileLogger(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open protocol log: %w", err)
	}
	return log.NewMultiLogger(adapter, fl), func() { fl.Close() }, nil
}

// runtime wires the component and the operator onto one in-memory bus.
type runtime struct {
	cfg    *config.Config
	logger *slog.Logger

	lctx        *lifecycle.Context
	controllers []*command.Controller
	sender      *command.Sender
	stateSub    *subscriber.Subscriber
}

func buildRuntime(cfg *config.Config, logger *slog.Logger, plog log.Logger) (*runtime, error) {
	initial, err := cfg.State()
	if err != nil {
		return nil, err
	}

	b := busmock.New()
	deviceConn := b.Connect()
	operatorConn := b.Connect()

	deviceTopics := bus.NewRegistry()
	operatorTopics := bus.NewRegistry()

	stateKey := bus.TopicKey{Subsystem: cfg.Subsystem, Kind: bus.KindEvent, Name: "summaryState"}
	stateSchema := bus.NewSchema(lifecycle.SummaryStateField)
	deviceConn.BindEvent(deviceTopics, stateKey, stateSchema)
	operatorConn.BindSample(operatorTopics, stateKey, stateSchema)

	for _, name := range cfg.Commands {
		key := bus.TopicKey{Subsystem: cfg.Subsystem, Kind: bus.KindCommand, Name: name}
		deviceConn.BindCommand(deviceTopics, key, nil)
		operatorConn.BindCommand(operatorTopics, key, nil)
	}

	lctx := lifecycle.NewContext(cfg.Subsystem, initial)
	lctx.SetLogger(logger)
	lctx.SetProtocolLogger(plog)
	events, err := deviceTopics.Event(stateKey)
	if err != nil {
		return nil, err
	}
	lctx.SetEventWriter(events)

	rt := &runtime{cfg: cfg, logger: logger, lctx: lctx}

	for _, name := range cfg.Commands {
		ctrl, err := command.NewController(lctx, deviceTopics, name)
		if err != nil {
			return nil, err
		}
		ctrl.SetLogger(logger)
		ctrl.SetProtocolLogger(plog)
		ctrl.SetPollInterval(cfg.CommandPollInterval.Std())
		rt.controllers = append(rt.controllers, ctrl)
	}

	sender := command.NewSender(cfg.Subsystem, operatorTopics)
	sender.SetLogger(logger)
	sender.SetProtocolLogger(plog)
	sender.SetPollInterval(cfg.AckPollInterval.Std())
	sender.SetDefaultTimeout(cfg.DefaultTimeout.Std())
	rt.sender = sender

	sub, err := subscriber.New(operatorTopics, stateKey)
	if err != nil {
		return nil, err
	}
	sub.SetLogger(logger)
	sub.SetProtocolLogger(plog)
	sub.SetPollInterval(cfg.AckPollInterval.Std())
	rt.stateSub = sub

	return rt, nil
}

func (rt *runtime) start() {
	for _, ctrl := range rt.controllers {
		ctrl.Start()
	}
	rt.sender.Start()
	rt.stateSub.Start()
}

func (rt *runtime) stop() {
	rt.stateSub.Stop()
	rt.sender.Stop()
	for _, ctrl := range rt.controllers {
		ctrl.Stop()
	}
}
