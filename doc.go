// Package genfun provides multiple dispatch for Go.
//
// A generic function is a single callable with several type-specialized
// implementations ("methods"). A call selects methods by the runtime types of
// all of its arguments and orders them by specificity, so the most specific
// method runs first and may delegate to the next one.
//
// # Architecture Overview
//
//	genfun/          Root package with Handle and the TypeRegistry interface
//	├── types/       Reference TypeRegistry: handle table, Go types, nominal types
//	├── dispatch/    Generic functions, methods, inline cache, next-method protocol
//	├── engine/      wazero-backed method bodies typed by WIT signatures
//	├── errors/      Structured error types
//	└── cmd/genfun/  Playground CLI and interactive explorer
//
// # Quick Start
//
//	reg := types.NewRegistry()
//	describe := dispatch.New("describe", reg)
//
//	describe.AddMethod([]genfun.Handle{reg.Number()},
//	    func(ctx context.Context, _ any, args ...any) (any, error) {
//	        return "a number", nil
//	    })
//	describe.AddMethod([]genfun.Handle{reg.TypeOf("")},
//	    func(ctx context.Context, _ any, args ...any) (any, error) {
//	        return "a string", nil
//	    })
//
//	out, err := describe.Call(ctx, 42) // "a number"
//
// # Type Registry
//
// Dispatch never inspects Go types itself. It asks a TypeRegistry for the
// dispatch type of each argument and for that type's precedence list (self
// first, Root last). Any notion of supertype works: nominal hierarchies,
// interface sets, tags carried by values.
//
// Reserved handles:
//
//	Wildcard      selector placeholder, matches anything
//	Root          universal root type, ancestor of everything
//	NullType      type of nil
//	MissingType   type of Undefined
//
// # Thread Safety
//
// Generic functions are safe for concurrent calls and registration. The
// active dispatch context travels in context.Context, so every call chain has
// its own.
package genfun
