//go:build linux || darwin

package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"golang.org/x/sys/unix"
	"golang.org/x/term"

	"dumbvm/internal/scenario"
)

// monitorCommand steps through a scenario one operation at a time,
// pausing for a keypress between steps, using the controlling terminal in
// raw mode so single keystrokes arrive without waiting for Enter.
type monitorCommand struct {
	fs *flag.FlagSet
}

func newMonitorCommand() *monitorCommand {
	return &monitorCommand{fs: flag.NewFlagSet("monitor", flag.ContinueOnError)}
}

// monitorCommands is the set of interactive commands available on this
// platform's build. Raw-terminal mode depends on golang.org/x/sys/unix's
// termios ioctls, which this module only wires for linux/darwin.
func monitorCommands() []Command {
	return []Command{newMonitorCommand()}
}

func (m *monitorCommand) FlagSet() *flag.FlagSet { return m.fs }
func (m *monitorCommand) Description() string {
	return "single-step a scenario interactively: vmctl monitor [path.json]"
}

func (m *monitorCommand) Run(_ context.Context, args []string, out io.Writer) error {
	s, err := m.loadScenario(args)
	if err != nil {
		return err
	}

	_, frames := scenario.Machine(s)

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		// No TTY (e.g. piped input in CI): fall back to running the
		// whole scenario at once rather than blocking on a keypress.
		res, runErr := scenario.Run(frames, s)
		printTrace(out, s.Name, res)
		return runErr
	}

	width := 80
	if ws, err := unix.IoctlGetWinsize(fd, unix.TIOCGWINSZ); err == nil && ws.Col > 0 {
		width = int(ws.Col)
	}

	saved, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("monitor: %w", err)
	}
	defer term.Restore(fd, saved)

	in := bufio.NewReader(os.Stdin)
	fmt.Fprintf(out, "%s\r\n=== %s ===\r\npress any key to step, q to quit\r\n", dashes(width), s.Name)

	runner := scenario.NewRunner(frames, s)
	for !runner.Done() {
		b, rerr := in.ReadByte()
		if rerr != nil {
			return fmt.Errorf("monitor: %w", rerr)
		}
		if b == 'q' || b == 'Q' {
			fmt.Fprintf(out, "\r\nquit after %d step(s)\r\n", len(runner.Result().Trace))
			return nil
		}

		sr, done := runner.Next()
		if done {
			break
		}

		status := "ok"
		if sr.Err != nil {
			status = sr.Err.Error()
		}
		fmt.Fprintf(out, "%2d  %-22s space=%-5s %s\r\n", sr.Index, sr.Step.Op, sr.Step.Space, status)
	}

	fmt.Fprintf(out, "%s\r\n", dashes(width))
	return nil
}

func (m *monitorCommand) loadScenario(args []string) (*scenario.Scenario, error) {
	if len(args) == 0 {
		return builtinScenarios()[0], nil
	}
	f, err := os.Open(args[0])
	if err != nil {
		return nil, fmt.Errorf("monitor: %w", err)
	}
	defer f.Close()
	return scenario.Parse(f)
}

func dashes(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = '-'
	}
	return string(b)
}
