package genfun

// Handle identifies a dispatch type inside a TypeRegistry.
// Handles compare by identity; two handles are the same type only if equal.
type Handle uint32

// Reserved handles shared by every registry.
const (
	// Wildcard is accepted in selectors and matches any argument.
	// It is never returned by a registry.
	Wildcard Handle = 0

	// Root is the universal root type. Every precedence list ends with it.
	Root Handle = 1

	// NullType is the dispatch type of nil.
	NullType Handle = 2

	// MissingType is the dispatch type of Undefined.
	// NullType and MissingType are disjoint: their only common ancestor is Root.
	MissingType Handle = 3
)

// FirstUserHandle is the first handle a registry may allocate for its own types.
const FirstUserHandle Handle = 4

type undefined struct{}

func (undefined) String() string { return "undefined" }

// Undefined is the "missing" value, distinct from nil.
// It dispatches as MissingType.
var Undefined any = undefined{}

// TypeRegistry answers the two questions dispatch needs about values and types.
// Implementations must be deterministic and referentially stable: values of
// the same type always map to the same handle.
type TypeRegistry interface {
	// DispatchType returns the concrete dispatch type of v.
	// It is total: nil maps to NullType, Undefined to MissingType.
	DispatchType(v any) Handle

	// PrecedenceList returns h followed by its ancestors, most specific
	// first, ending at Root.
	PrecedenceList(h Handle) ([]Handle, error)
}

// InstanceResolver is implemented by registries that allow individual values
// to be used as selector elements. The precedence list of an instance handle
// starts with the instance and continues with its type's precedence list.
type InstanceResolver interface {
	InstanceOf(v any) (Handle, bool)
}

// TypeNamer is implemented by registries that can name their handles.
type TypeNamer interface {
	TypeName(h Handle) string
}

// Tagged is implemented by values that carry their own dispatch type,
// for hosts whose types are not Go types.
type Tagged interface {
	DispatchTag() Handle
}
