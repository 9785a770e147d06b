package main

import (
	"fmt"
	"io"

	"dumbvm/internal/scenario"
)

// printTrace writes one line per executed step: its index, operation,
// address space, and outcome (ok or the error kind/message).
func printTrace(out io.Writer, name string, res *scenario.Result) {
	fmt.Fprintf(out, "=== %s ===\n", name)
	for _, sr := range res.Trace {
		status := "ok"
		if sr.Err != nil {
			status = sr.Err.Error()
		}
		fmt.Fprintf(out, "%2d  %-22s space=%-5s %s\n", sr.Index, sr.Step.Op, sr.Step.Space, status)
	}
}
