package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseRegister   Phase = "register"    // method registration
	PhaseDispatch   Phase = "dispatch"    // method selection
	PhaseNextMethod Phase = "next_method" // call-next-method protocol
	PhaseRegistry   Phase = "registry"    // type registry
	PhaseLoad       Phase = "load"        // wasm module loading
	PhaseInvoke     Phase = "invoke"      // method body invocation
)

// Kind categorizes the error
type Kind string

const (
	KindNoApplicableMethod   Kind = "no_applicable_method"
	KindNoNextMethod         Kind = "no_next_method"
	KindNoActiveContext      Kind = "no_active_context"
	KindInvalidTypeHierarchy Kind = "invalid_type_hierarchy"
	KindInvalidInput         Kind = "invalid_input"
	KindDuplicate            Kind = "duplicate"
	KindNotFound             Kind = "not_found"
	KindTypeMismatch         Kind = "type_mismatch"
	KindUnsupported          Kind = "unsupported"
	KindInstantiation        Kind = "instantiation"
)

// Sentinels for errors.Is. Matching compares Phase and Kind only.
var (
	ErrNoApplicableMethod   = &Error{Phase: PhaseDispatch, Kind: KindNoApplicableMethod}
	ErrNoNextMethod         = &Error{Phase: PhaseNextMethod, Kind: KindNoNextMethod}
	ErrNoActiveContext      = &Error{Phase: PhaseNextMethod, Kind: KindNoActiveContext}
	ErrInvalidTypeHierarchy = &Error{Phase: PhaseRegistry, Kind: KindInvalidTypeHierarchy}
)

// Error is the structured error type used throughout the module
type Error struct {
	Value    any
	Receiver any
	Cause    error
	Phase    Phase
	Kind     Kind
	Function string
	Detail   string
	Args     []any
	ArgTypes []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Function != "" {
		b.WriteString(" in ")
		b.WriteString(e.Function)
	}

	if e.ArgTypes != nil {
		b.WriteString(": argument types (")
		b.WriteString(strings.Join(e.ArgTypes, ", "))
		b.WriteByte(')')
	}

	if e.Detail != "" {
		if e.ArgTypes != nil {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
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

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool {
	return stderrors.As(err, target)
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Function sets the generic function name
func (b *Builder) Function(name string) *Builder {
	b.err.Function = name
	return b
}

// Receiver sets the receiver of the failed call
func (b *Builder) Receiver(r any) *Builder {
	b.err.Receiver = r
	return b
}

// Args sets the arguments of the failed call
func (b *Builder) Args(args ...any) *Builder {
	b.err.Args = args
	return b
}

// ArgTypes sets the runtime type names of the arguments
func (b *Builder) ArgTypes(names ...string) *Builder {
	b.err.ArgTypes = names
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// NoApplicableMethod creates the error raised when no method matches a call.
// argTypes must be non-nil; an empty slice renders as "()".
func NoApplicableMethod(function string, receiver any, args []any, argTypes []string) *Error {
	if argTypes == nil {
		argTypes = []string{}
	}
	return &Error{
		Phase:    PhaseDispatch,
		Kind:     KindNoApplicableMethod,
		Function: function,
		Receiver: receiver,
		Args:     args,
		ArgTypes: argTypes,
		Detail:   "no applicable method",
	}
}

// NoNextMethod creates the error raised when the method chain is exhausted
func NoNextMethod(function string) *Error {
	return &Error{
		Phase:    PhaseNextMethod,
		Kind:     KindNoNextMethod,
		Function: function,
		Detail:   "no next method available",
	}
}

// NoActiveContext creates the error raised when next-method operations run outside dispatch
func NoActiveContext(op string) *Error {
	return &Error{
		Phase:  PhaseNextMethod,
		Kind:   KindNoActiveContext,
		Detail: fmt.Sprintf("%s must be called inside a generic function method", op),
	}
}

// InvalidTypeHierarchy creates an error for a malformed precedence list
func InvalidTypeHierarchy(handle any, detail string) *Error {
	return &Error{
		Phase:  PhaseRegistry,
		Kind:   KindInvalidTypeHierarchy,
		Value:  handle,
		Detail: detail,
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// Duplicate creates an error for a name or type registered twice
func Duplicate(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindDuplicate,
		Detail: fmt.Sprintf("%s %q already registered", what, name),
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// TypeMismatch creates a type mismatch error
func TypeMismatch(phase Phase, want, got string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindTypeMismatch,
		Detail: fmt.Sprintf("expected %s, got %s", want, got),
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// Instantiation creates an instantiation error
func Instantiation(cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindInstantiation,
		Detail: "instantiate module",
		Cause:  cause,
	}
}

// Load creates a module loading error
func Load(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindInvalidInput,
		Detail: detail,
		Cause:  cause,
	}
}
