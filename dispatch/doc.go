// Package dispatch implements generic functions with multiple dispatch.
//
// A GenericFunction owns a set of methods. Each method has a selector, one
// type handle per argument position, and a body. A call collects the methods
// whose every selector position is matched by the argument in that position
// (the argument's type or one of its ancestors), orders them by summed
// precedence distance, and runs the most specific one.
//
//	reg := types.NewRegistry()
//	area := dispatch.New("area", reg)
//	area.AddMethod([]genfun.Handle{types.For[Square](reg)}, squareArea)
//	area.AddMethod([]genfun.Handle{genfun.Wildcard}, unknownArea)
//	area.AddMethod(nil, defaultArea) // empty selector: the default method
//
//	v, err := area.Call(ctx, Square{Side: 2})
//
// # Specificity
//
// For each argument position the distance of a method is the index, in the
// argument's precedence list, of the type the method names there. Lower
// total distance wins; among equal totals the earlier registration wins.
// Trailing Root entries of a selector are optional: a method on (Number)
// applies to calls with any number of additional arguments, at the distance
// of Root for each of them. The default method always runs last.
//
// # Next Methods
//
// The context passed to a method body carries the dispatch state.
// CallNextMethod runs the next less specific method with the same receiver
// and either the same or replacement arguments:
//
//	func(ctx context.Context, self any, args ...any) (any, error) {
//		prev, err := dispatch.CallNextMethod(ctx)
//		...
//	}
//
// GetContext returns a snapshot that remains usable after the method has
// returned, for example from a goroutine.
//
// # Caching
//
// Each generic function keeps an inline cache keyed by the argument types of
// a call. The cache moves from Uninitialized to Monomorphic to Polymorphic and
// finally Megamorphic once Options.MaxCacheSize signatures have been seen,
// after which dispatch is computed on every call. AddMethod resets it. Calls
// with an argument that is an instance selector of the generic function are
// never cached.
//
// # Missing Methods
//
// Calls with no applicable method dispatch the no-applicable-method hook on
// (generic function, receiver, args). The default hook fails with
// errors.KindNoApplicableMethod; SetNoApplicableMethodHandler installs a
// per-function override.
package dispatch
