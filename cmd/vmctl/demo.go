package main

import (
	"context"
	"flag"
	"io"

	"dumbvm/internal/scenario"
)

// demoCommand runs six literal fault/copy/sbrk walkthroughs (S1-S6), built
// in rather than loaded from a file, so a fresh checkout can see the core
// behave without writing a scenario first.
type demoCommand struct {
	fs *flag.FlagSet
}

func newDemoCommand() *demoCommand {
	return &demoCommand{fs: flag.NewFlagSet("demo", flag.ContinueOnError)}
}

func (d *demoCommand) FlagSet() *flag.FlagSet { return d.fs }
func (d *demoCommand) Description() string    { return "run the built-in S1-S6 scenario walkthrough" }

func (d *demoCommand) Run(_ context.Context, _ []string, out io.Writer) error {
	for _, s := range builtinScenarios() {
		_, frames := scenario.Machine(s)
		res, err := scenario.Run(frames, s)
		printTrace(out, s.Name, res)
		if err != nil {
			return err
		}
	}
	return nil
}

// builtinScenarios returns the S1-S6 walkthroughs, in order: demand-zero
// read, COW break with a live sibling, COW break as sole owner, sbrk
// grow/shrink/INVAL, fault on an undefined address, and a write to a
// non-COW read-only page.
func builtinScenarios() []*scenario.Scenario {
	return []*scenario.Scenario{
		{
			Name: "S1 demand-zero read", Frames: 4, TLBSlots: 4, HeapQuota: -1,
			Steps: []scenario.Step{
				{Op: "define_region_no_heap", Space: "p", VAddr: 0x1000, Size: 0x1000, Read: true, Write: true},
				{Op: "fault", Space: "p", Kind: "read", Addr: 0x1000},
			},
		},
		{
			Name: "S2 COW break, sibling still alive", Frames: 4, TLBSlots: 4, HeapQuota: -1,
			Steps: []scenario.Step{
				{Op: "define_region_no_heap", Space: "src", VAddr: 0x1000, Size: 0x1000, Read: true, Write: true},
				{Op: "fault", Space: "src", Kind: "read", Addr: 0x1000},
				{Op: "copy", Space: "src", Into: "dst"},
				{Op: "fault", Space: "dst", Kind: "write", Addr: 0x1000},
			},
		},
		{
			Name: "S3 COW break, sole owner", Frames: 4, TLBSlots: 4, HeapQuota: -1,
			Steps: []scenario.Step{
				{Op: "define_region_no_heap", Space: "src", VAddr: 0x1000, Size: 0x1000, Read: true, Write: true},
				{Op: "fault", Space: "src", Kind: "read", Addr: 0x1000},
				{Op: "copy", Space: "src", Into: "dst"},
				{Op: "destroy", Space: "src"},
				{Op: "fault", Space: "dst", Kind: "write", Addr: 0x1000},
			},
		},
		{
			Name: "S4 sbrk grow, shrink, then INVAL", Frames: 4, TLBSlots: 4, HeapQuota: -1,
			Steps: []scenario.Step{
				{Op: "define_region", Space: "p", VAddr: 0x1000, Size: 0x1000, Read: true, Write: true},
				{Op: "sbrk", Space: "p", Amount: 4096},
				{Op: "sbrk", Space: "p", Amount: -4096},
				{Op: "sbrk", Space: "p", Amount: -(1 << 20), WantErr: "INVAL"},
			},
		},
		{
			Name: "S5 fault on an undefined address", Frames: 2, TLBSlots: 2, HeapQuota: -1,
			Steps: []scenario.Step{
				{Op: "fault", Space: "p", Kind: "read", Addr: 0x40000, WantErr: "FAULT"},
			},
		},
		{
			Name: "S6 write to a non-COW read-only page", Frames: 2, TLBSlots: 2, HeapQuota: -1,
			Steps: []scenario.Step{
				{Op: "define_region_no_heap", Space: "p", VAddr: 0x1000, Size: 0x1000, Read: true},
				{Op: "fault", Space: "p", Kind: "read", Addr: 0x1000},
				{Op: "fault", Space: "p", Kind: "readonly", Addr: 0x1000, WantErr: "FAULT"},
			},
		},
	}
}
