// Package scenario provides a small declarative format for driving the
// address-space core through a sequence of operations: define a region,
// take a fault, copy or destroy an address space, grow or shrink the heap.
// It backs both the test suite's literal walkthroughs of the core's
// end-to-end scenarios and the CLI's run/demo subcommands.
package scenario

import (
	"encoding/json"
	"fmt"
	"io"

	"dumbvm/internal/addrspace"
	"dumbvm/internal/hal"
	"dumbvm/internal/verr"
)

// Scenario describes a machine to build and the steps to run against it.
type Scenario struct {
	Name      string `json:"name"`
	Frames    int    `json:"frames"`
	TLBSlots  int    `json:"tlbSlots"`
	HeapQuota int    `json:"heapQuota"` // negative means unlimited
	Steps     []Step `json:"steps"`
}

// Step is a single operation against a named address space. Address spaces
// are created implicitly the first time a step names one that doesn't
// exist yet (other than "copy", whose source must already exist).
type Step struct {
	Op    string `json:"op"`
	Space string `json:"space,omitempty"`
	Into  string `json:"into,omitempty"` // target space name for "copy"

	VAddr uint32 `json:"vaddr,omitempty"`
	Size  uint32 `json:"size,omitempty"`
	Read  bool   `json:"read,omitempty"`
	Write bool   `json:"write,omitempty"`
	Exec  bool   `json:"exec,omitempty"`

	Kind string `json:"kind,omitempty"` // fault kind: read, write, readonly
	Addr uint32 `json:"addr,omitempty"`

	Amount int32 `json:"amount,omitempty"`

	// WantErr is the error kind this step is expected to produce ("",
	// "FAULT", "INVAL", or "NOMEM"). A mismatch aborts the run.
	WantErr string `json:"wantErr,omitempty"`
}

// Parse decodes a Scenario from JSON.
func Parse(r io.Reader) (*Scenario, error) {
	var s Scenario
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return nil, fmt.Errorf("scenario: decode: %w", err)
	}
	if s.Frames <= 0 {
		s.Frames = 16
	}
	if s.TLBSlots <= 0 {
		s.TLBSlots = 4
	}
	return &s, nil
}

// StepResult records the outcome of a single step, for trace output.
type StepResult struct {
	Index int
	Step  Step
	Err   error
}

// Result is the full trace of a scenario run plus the final set of
// address spaces it built, so a caller can inspect them afterward.
type Result struct {
	Spaces map[string]*addrspace.AddressSpace
	Trace  []StepResult
}

// Machine builds the simulated hardware and frame table a scenario asks
// for, so a caller (the CLI, or a test) can hold onto them after Run
// returns.
func Machine(s *Scenario) (*hal.Sim, *addrspace.FrameTable) {
	hw := hal.NewSim(s.Frames, s.TLBSlots, s.HeapQuota)
	return hw, addrspace.Bootstrap(hw, s.Frames)
}

// Run executes every step of s in order against frames, stopping at the
// first step whose error doesn't match its declared WantErr.
func Run(frames *addrspace.FrameTable, s *Scenario) (*Result, error) {
	r := NewRunner(frames, s)
	for {
		sr, done := r.Next()
		if done {
			return r.Result(), nil
		}
		if !matchesWant(sr.Err, sr.Step.WantErr) {
			return r.Result(), fmt.Errorf("scenario %q: step %d (%s): got %v, want kind %q",
				s.Name, sr.Index, sr.Step.Op, sr.Err, sr.Step.WantErr)
		}
	}
}

// Runner drives a Scenario one step at a time, for callers (the CLI's
// monitor command) that pause between steps rather than running the whole
// scenario at once.
type Runner struct {
	frames *addrspace.FrameTable
	steps  []Step
	next   int
	res    *Result
}

// NewRunner builds a Runner for s against frames, without executing
// anything yet.
func NewRunner(frames *addrspace.FrameTable, s *Scenario) *Runner {
	return &Runner{
		frames: frames,
		steps:  s.Steps,
		res:    &Result{Spaces: make(map[string]*addrspace.AddressSpace)},
	}
}

// Next executes the next step and returns its outcome. done is true once
// every step has run; Next must not be called again after that.
func (r *Runner) Next() (StepResult, bool) {
	if r.next >= len(r.steps) {
		return StepResult{}, true
	}

	i := r.next
	step := r.steps[i]
	r.next++

	space := func(name string) *addrspace.AddressSpace {
		as, ok := r.res.Spaces[name]
		if !ok {
			as = addrspace.Create(r.frames)
			r.res.Spaces[name] = as
		}
		return as
	}

	err := runStep(r.res, space, step)
	sr := StepResult{Index: i, Step: step, Err: err}
	r.res.Trace = append(r.res.Trace, sr)

	return sr, false
}

// Done reports whether every step has already run.
func (r *Runner) Done() bool { return r.next >= len(r.steps) }

// Result returns the trace and address spaces accumulated so far.
func (r *Runner) Result() *Result { return r.res }

func matchesWant(err error, want string) bool {
	if want == "" {
		return err == nil
	}
	var kind verr.Kind
	switch want {
	case "FAULT":
		kind = verr.KindFault
	case "INVAL":
		kind = verr.KindInval
	case "NOMEM":
		kind = verr.KindNomem
	default:
		return false
	}
	ve, ok := err.(*verr.Error)
	return ok && ve.Kind == kind
}

func runStep(res *Result, space func(string) *addrspace.AddressSpace, step Step) error {
	switch step.Op {
	case "define_region":
		return space(step.Space).DefineRegion(step.VAddr, step.Size, step.Read, step.Write, step.Exec)

	case "define_region_no_heap":
		return space(step.Space).DefineRegionNoHeap(step.VAddr, step.Size, step.Read, step.Write, step.Exec)

	case "define_stack":
		_, err := space(step.Space).DefineStack()
		return err

	case "fault":
		kind, err := parseFaultKind(step.Kind)
		if err != nil {
			return err
		}
		return space(step.Space).Fault(kind, step.Addr)

	case "sbrk":
		_, err := space(step.Space).Sbrk(step.Amount)
		return err

	case "prepare_load":
		space(step.Space).PrepareLoad()
		return nil

	case "complete_load":
		space(step.Space).CompleteLoad()
		return nil

	case "activate":
		space(step.Space).Activate()
		return nil

	case "deactivate":
		space(step.Space).Deactivate()
		return nil

	case "copy":
		src, ok := res.Spaces[step.Space]
		if !ok {
			return fmt.Errorf("scenario: copy source %q does not exist", step.Space)
		}
		dst, err := src.Copy()
		if err != nil {
			return err
		}
		res.Spaces[step.Into] = dst
		return nil

	case "destroy":
		space(step.Space).Destroy()
		delete(res.Spaces, step.Space)
		return nil

	default:
		return fmt.Errorf("scenario: unknown op %q", step.Op)
	}
}

func parseFaultKind(s string) (addrspace.FaultKind, error) {
	switch s {
	case "read":
		return addrspace.FaultRead, nil
	case "write":
		return addrspace.FaultWrite, nil
	case "readonly":
		return addrspace.FaultReadOnly, nil
	default:
		return 0, fmt.Errorf("scenario: unknown fault kind %q", s)
	}
}
