package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
)

// Command is one vmctl sub-command: run, demo, or monitor.
type Command interface {
	FlagSet() *flag.FlagSet
	Description() string
	Run(ctx context.Context, args []string, out io.Writer) error
}

// Commander dispatches the first CLI argument to the matching Command.
type Commander struct {
	ctx      context.Context
	commands []Command
}

// NewCommander builds a Commander that runs commands under ctx.
func NewCommander(ctx context.Context) *Commander {
	return &Commander{ctx: ctx}
}

// WithCommands registers cmds as the Commander's sub-commands.
func (c *Commander) WithCommands(cmds ...Command) *Commander {
	c.commands = append([]Command(nil), cmds...)
	return c
}

// Execute finds the sub-command named by args[0], parses its flags from
// the remainder, and runs it. It returns a process exit code.
func (c *Commander) Execute(args []string) int {
	if len(args) == 0 {
		c.usage()
		return 1
	}

	for _, cmd := range c.commands {
		fs := cmd.FlagSet()
		if fs.Name() != args[0] {
			continue
		}

		if err := fs.Parse(args[1:]); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		if err := cmd.Run(c.ctx, fs.Args(), os.Stdout); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		return 0
	}

	fmt.Fprintf(os.Stderr, "vmctl: unknown command %q\n", args[0])
	c.usage()
	return 1
}

func (c *Commander) usage() {
	fmt.Fprintln(os.Stderr, "usage: vmctl <command> [flags]")
	for _, cmd := range c.commands {
		fmt.Fprintf(os.Stderr, "  %-10s %s\n", cmd.FlagSet().Name(), cmd.Description())
	}
}
