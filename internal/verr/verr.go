// Package verr defines the error kinds the VM core can return to its
// callers (the loader, the syscall dispatcher, the fault trap layer).
package verr

import "errors"

// Kind classifies a VM-core error into one of the three outcomes a syscall
// or TLB fault can produce.
type Kind int

const (
	// KindFault marks an address that is not in the process's space, a
	// read-only write that isn't copy-on-write, or a fault with no
	// current process/address space.
	KindFault Kind = iota + 1
	// KindInval marks an unknown fault type or an sbrk that would move
	// the break out of bounds.
	KindInval
	// KindNomem marks an allocation failure (as_copy, or sbrk asking for
	// too much in one call).
	KindNomem
)

func (k Kind) String() string {
	switch k {
	case KindFault:
		return "FAULT"
	case KindInval:
		return "INVAL"
	case KindNomem:
		return "NOMEM"
	default:
		return "UNKNOWN"
	}
}

// Error is a VM-core error. All VM-core errors are instances of Error so
// that callers can classify them with errors.Is against the package-level
// sentinels below.
type Error struct {
	Op      string
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Op + ": " + e.Kind.String()
	}
	return e.Op + ": " + e.Kind.String() + ": " + e.Message
}

// Is reports whether target is one of the package-level Kind sentinels
// (Fault, Inval, Nomem) and matches this error's Kind. This lets callers
// write errors.Is(err, verr.Fault) instead of inspecting Kind directly.
func (e *Error) Is(target error) bool {
	sentinel, ok := target.(*Error)
	if !ok {
		return false
	}
	return sentinel.Kind == e.Kind && sentinel.Op == ""
}

// Sentinels for errors.Is comparisons. They carry no Op so Error.Is treats
// any Op as a match.
var (
	Fault = &Error{Kind: KindFault}
	Inval = &Error{Kind: KindInval}
	Nomem = &Error{Kind: KindNomem}
)

// New builds an *Error for the given operation and kind.
func New(op string, kind Kind, message string) *Error {
	return &Error{Op: op, Kind: kind, Message: message}
}

// As is a convenience re-export so callers need only import verr.
func As(err error, target interface{}) bool { return errors.As(err, target) }
