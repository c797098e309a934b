// Package errs defines the failure taxonomy shared by every generation stage.
//
// Each failure is an *Error carrying the stage that raised it and enough
// context (part index, selector) for a caller to present a message. Kinds are
// sentinel values, so callers test with errors.Is:
//
//	if errors.Is(err, errs.ErrInsufficientSpacing) { ... }
package errs

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a failure.
type Kind struct {
	name  string
	class Class
}

// Class groups kinds by when they can occur.
type Class int

const (
	// ClassValidation failures are detected before any geometry is built.
	ClassValidation Class = iota
	// ClassConstruction failures mean a profile cannot produce a valid solid.
	ClassConstruction
	// ClassAssembly failures happen after geometry exists; the scene is
	// rolled back before they are reported.
	ClassAssembly
	// ClassAssertion failures indicate a defect in planning or joinery.
	ClassAssertion
)

func (c Class) String() string {
	switch c {
	case ClassValidation:
		return "validation"
	case ClassConstruction:
		return "construction"
	case ClassAssembly:
		return "assembly"
	case ClassAssertion:
		return "assertion"
	default:
		return "unknown"
	}
}

func (k *Kind) Error() string { return k.name }

// Class returns the class the kind belongs to.
func (k *Kind) Class() Class { return k.class }

// Sentinel kinds.
var (
	ErrInvalidGrid             = &Kind{"invalid grid", ClassValidation}
	ErrInsufficientSpacing     = &Kind{"insufficient spacing", ClassValidation}
	ErrUnknownSizeSelector     = &Kind{"unknown size selector", ClassValidation}
	ErrInvalidDimensionProfile = &Kind{"invalid dimension profile", ClassConstruction}
	ErrAssemblyFailed          = &Kind{"assembly failed", ClassAssembly}
	ErrOptimizationUnsafe      = &Kind{"optimization unsafe", ClassAssembly}
	ErrDiameterMismatch        = &Kind{"diameter mismatch", ClassAssertion}
	ErrSnapViolation           = &Kind{"snap violation", ClassAssertion}
)

// NoIndex marks an error that is not tied to a particular part or node.
const NoIndex = -1

// Error is a generation failure.
type Error struct {
	Kind     *Kind
	Stage    string // catalog, primitive, layout, joinery, assemble, optimize
	Index    int    // offending part/node/run index, or NoIndex
	Selector string // offending size selector, if any
	Msg      string
	Err      error // underlying cause, may be nil
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Stage)
	b.WriteString(": ")
	b.WriteString(e.Kind.name)
	if e.Index != NoIndex {
		fmt.Fprintf(&b, " (index %d)", e.Index)
	}
	if e.Selector != "" {
		fmt.Fprintf(&b, " (selector %q)", e.Selector)
	}
	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Is reports whether target is the error's kind.
func (e *Error) Is(target error) bool {
	k, ok := target.(*Kind)
	return ok && k == e.Kind
}

func (e *Error) Unwrap() error { return e.Err }

// New returns an error of the given kind raised by stage.
func New(kind *Kind, stage, format string, args ...any) *Error {
	return &Error{Kind: kind, Stage: stage, Index: NoIndex, Msg: fmt.Sprintf(format, args...)}
}

// AtIndex sets the offending index and returns e.
func (e *Error) AtIndex(i int) *Error {
	e.Index = i
	return e
}

// WithSelector sets the offending selector and returns e.
func (e *Error) WithSelector(s string) *Error {
	e.Selector = s
	return e
}

// Wrap records cause as the underlying error and returns e.
func (e *Error) Wrap(cause error) *Error {
	e.Err = cause
	return e
}

// KindOf returns the kind of the first *Error in err's chain, or nil.
func KindOf(err error) *Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return nil
}

// IsAssertion reports whether err is an internal-consistency failure.
func IsAssertion(err error) bool {
	k := KindOf(err)
	return k != nil && k.class == ClassAssertion
}
