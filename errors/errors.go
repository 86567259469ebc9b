package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseValidate Phase = "validate" // interface validation
	PhaseLower    Phase = "lower"    // signature lowering
	PhaseSelect   Phase = "select"   // instruction selection
	PhaseRewrite  Phase = "rewrite"  // multi-return binary rewrite
	PhaseRuntime  Phase = "runtime"  // generated-call runtime
)

// Kind categorizes the error
type Kind string

const (
	KindUnsupported    Kind = "unsupported"
	KindDuplicateIdent Kind = "duplicate_ident"
	KindUnknownObject  Kind = "unknown_object"
	KindUseAfterFree   Kind = "use_after_free"
	KindUseAfterMove   Kind = "use_after_move"
	KindDoubleFree     Kind = "double_free"
	KindDanglingSlot   Kind = "dangling_slot"
	KindRewriteFailed  Kind = "rewrite_failed"
	KindMissingExport  Kind = "missing_export"
	KindOutOfBounds    Kind = "out_of_bounds"
	KindAllocation     Kind = "allocation"
	KindForeign        Kind = "foreign" // error discriminant from the foreign side
)

// Error is the structured error type used throughout the generator.
type Error struct {
	Cause  error
	Phase  Phase
	Kind   Kind
	Detail string
	Path   []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error. Two errors match when
// their Phase and Kind agree; path and detail are ignored.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// New creates a structured error with a formatted detail message.
func New(phase Phase, kind Kind, detail string, args ...any) *Error {
	if len(args) > 0 {
		detail = fmt.Sprintf(detail, args...)
	}
	return &Error{Phase: phase, Kind: kind, Detail: detail}
}

// At attaches a path into the offending shape.
func (e *Error) At(path ...string) *Error {
	e.Path = path
	return e
}

// Wrap attaches an underlying cause.
func (e *Error) Wrap(cause error) *Error {
	e.Cause = cause
	return e
}

// Convenience constructors for the common categories.

// Unsupported reports a type shape the generator cannot lower.
func Unsupported(phase Phase, path []string, detail string, args ...any) *Error {
	err := New(phase, KindUnsupported, detail, args...)
	err.Path = path
	return err
}

// DuplicateIdent reports a name declared twice in the interface.
func DuplicateIdent(ident string) *Error {
	return New(PhaseValidate, KindDuplicateIdent, "%q declared more than once", ident)
}

// UnknownObject reports a named reference that resolves to no declared object.
func UnknownObject(ident string) *Error {
	return New(PhaseValidate, KindUnknownObject, "reference to undeclared object %q", ident)
}

// Foreign wraps an error message recovered from a foreign result
// discriminant. It is the host-side form of a callee failure, not a
// generation error.
func Foreign(msg string) *Error {
	return New(PhaseRuntime, KindForeign, "%s", msg)
}
