// vmctl drives the dumbvm address-space core through declarative
// scenarios: run a scenario file, watch the built-in S1-S6 walkthrough, or
// single-step one interactively.
package main

import (
	"context"
	"os"
)

func main() {
	cmds := []Command{newRunCommand(), newDemoCommand()}
	cmds = append(cmds, monitorCommands()...)

	code := NewCommander(context.Background()).WithCommands(cmds...).Execute(os.Args[1:])
	os.Exit(code)
}
