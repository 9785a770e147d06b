package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"dumbvm/internal/scenario"
)

// runCommand executes a single scenario loaded from a JSON file.
type runCommand struct {
	fs *flag.FlagSet
}

func newRunCommand() *runCommand {
	return &runCommand{fs: flag.NewFlagSet("run", flag.ContinueOnError)}
}

func (r *runCommand) FlagSet() *flag.FlagSet { return r.fs }
func (r *runCommand) Description() string    { return "run a scenario file: vmctl run <path.json>" }

func (r *runCommand) Run(_ context.Context, args []string, out io.Writer) error {
	if len(args) != 1 {
		return fmt.Errorf("run: want exactly one scenario file, got %d", len(args))
	}

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}
	defer f.Close()

	s, err := scenario.Parse(f)
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}

	_, frames := scenario.Machine(s)
	res, err := scenario.Run(frames, s)
	printTrace(out, s.Name, res)
	return err
}
