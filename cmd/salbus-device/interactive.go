package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chzyer/readline"

	"github.com/salbus-protocol/salbus-go/pkg/command"
	"github.com/salbus-protocol/salbus-go/pkg/lifecycle"
)

// interactive is the readline command loop of salbus-device.
type interactive struct {
	rt *runtime
	rl *readline.Instance
}

func newInteractive(rt *runtime) (*interactive, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "device> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	return &interactive{rt: rt, rl: rl}, nil
}

// Run starts the interactive command loop.
func (i *interactive) Run(ctx context.Context, cancel context.CancelFunc) {
	defer i.rl.Close()

	i.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := i.rl.Readline()
		if err != nil {
			// EOF or interrupt
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(i.rl.Stdout(), "Exiting...")
			cancel()
			return
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		parts := strings.Fields(input)
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		switch cmd {
		case "help", "?":
			i.printHelp()

		case "state", "st":
			i.cmdState()

		case "send", "s":
			i.cmdSend(ctx, args)

		case "history", "h":
			i.cmdHistory(args)

		case "event", "e":
			i.cmdEvent()

		case "quit", "exit", "q":
			fmt.Fprintln(i.rl.Stdout(), "Exiting...")
			cancel()
			return

		default:
			fmt.Fprintf(i.rl.Stdout(), "Unknown command: %s (type 'help' for commands)\n", cmd)
		}
	}
}

func (i *interactive) printHelp() {
	fmt.Fprintln(i.rl.Stdout(), `
Component commands:
  state                  - Show the current lifecycle state
  send <cmd> [timeout]   - Issue a command and wait for completion
                           (enterControl, start, enable, disable, standby, exitControl)
  history <id>           - Show the acknowledgment history of a correlation id
  event                  - Show the latest summaryState event
  help                   - Show this help
  quit                   - Exit`)
}

func (i *interactive) cmdState() {
	fmt.Fprintf(i.rl.Stdout(), "%s is %s\n", i.rt.lctx.Subsystem(), i.rt.lctx.State())
}

func (i *interactive) cmdSend(ctx context.Context, args []string) {
	if len(args) == 0 {
		fmt.Fprintln(i.rl.Stdout(), "Usage: send <command> [timeout]")
		return
	}
	name := args[0]

	timeout := i.rt.cfg.DefaultTimeout.Std()
	if len(args) > 1 {
		d, err := time.ParseDuration(args[1])
		if err != nil {
			fmt.Fprintf(i.rl.Stdout(), "Bad timeout %q: %v\n", args[1], err)
			return
		}
		timeout = d
	}

	id, res, err := i.rt.sender.Send(ctx, name, nil, command.WithCompletion(timeout))
	if err != nil {
		fmt.Fprintf(i.rl.Stdout(), "Error: %v\n", err)
		return
	}
	if id == -1 {
		fmt.Fprintf(i.rl.Stdout(), "Timed out after %s waiting for %s\n", timeout, name)
		return
	}
	fmt.Fprintf(i.rl.Stdout(), "[%d] %s -> %s\n", id, name, res)
	fmt.Fprintf(i.rl.Stdout(), "%s is now %s\n", i.rt.lctx.Subsystem(), i.rt.lctx.State())
}

func (i *interactive) cmdHistory(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(i.rl.Stdout(), "Usage: history <correlation-id>")
		return
	}
	var id int64
	if _, err := fmt.Sscanf(args[0], "%d", &id); err != nil {
		fmt.Fprintf(i.rl.Stdout(), "Bad correlation id %q\n", args[0])
		return
	}

	history, err := i.rt.sender.Registry().History(id)
	if err != nil {
		fmt.Fprintf(i.rl.Stdout(), "Error: %v\n", err)
		return
	}
	for n, res := range history {
		fmt.Fprintf(i.rl.Stdout(), "  %d: %s\n", n, res)
	}
}

func (i *interactive) cmdEvent() {
	p, ok := i.rt.stateSub.Current()
	if !ok {
		fmt.Fprintln(i.rl.Stdout(), "No summaryState event observed yet")
		return
	}
	v, _ := p.Get(lifecycle.SummaryStateField)
	if n, isInt := v.(int64); isInt {
		fmt.Fprintf(i.rl.Stdout(), "summaryState = %s (%d)\n", lifecycle.State(n), n)
		return
	}
	fmt.Fprintf(i.rl.Stdout(), "summaryState = %v\n", v)
}
