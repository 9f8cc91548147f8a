// Package types provides the reference type registry for generic function dispatch.
//
// A Registry hands out genfun.Handle values for Go types, nominal types,
// declared interfaces and individual values, and answers precedence queries
// for them. Handles live in an append-only Table and are never reused.
//
// # Go Types
//
// Values dispatch on their reflect.Type. A type seen for the first time is
// registered on demand:
//
//	reg := types.NewRegistry()
//	reg.TypeOf(42)        // int:      [int, Integer, Number, Root]
//	reg.TypeOf(2.5)       // float64:  [float64, Float, Number, Root]
//	reg.TypeOf("x")       // string:   [string, Root]
//	reg.TypeOf(nil)       // NullType: [nil, Root]
//
// Named basic types inherit from the predeclared type of the same kind:
//
//	type Celsius float64  // [Celsius, float64, Float, Number, Root]
//
// # Explicit Hierarchies
//
//	animal, _ := reg.Define("Animal")
//	dog, _ := reg.Register(reflect.TypeFor[Dog](), animal)
//
//	shape, _ := reg.DeclareInterface(reflect.TypeFor[Shape]())
//	// every type implementing Shape seen after this point gets Shape as a super
//
// Supers must exist before they are referenced, which keeps hierarchies
// acyclic. Multiple supers are linearized depth-first, left to right, keeping
// the first occurrence of each ancestor; Root always comes last.
//
// # Instances and Tags
//
// Instance creates a handle for one comparable value. Its precedence list is
// the instance followed by its type's list, so a method selecting on the
// instance is more specific than one selecting on the type.
//
// Value wraps arbitrary data with a nominal tag:
//
//	rex := types.Tag(dog, "Rex") // dispatches as Dog
package types
