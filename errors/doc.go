// Package errors provides structured error types for generic function dispatch.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type carries the dispatch payload: generic function name, receiver,
// arguments and their runtime type names, plus a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseDispatch, errors.KindNoApplicableMethod).
//		Function("frobnicate").
//		Args(1, "x").
//		ArgTypes("int", "string").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.NoNextMethod("frobnicate")
//	err := errors.InvalidTypeHierarchy(h, "precedence list does not end at Root")
//
// All errors implement the standard error interface and support errors.Is/As.
// The package-level sentinels match any error of the same Phase and Kind:
//
//	if errors.Is(err, errors.ErrNoApplicableMethod) { ... }
package errors
