package types

import (
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/wippyai/genfun"
	"github.com/wippyai/genfun/errors"
)

// MaxDepth bounds the length of any precedence list built by a Registry.
const MaxDepth = 256

// Registry is the reference genfun.TypeRegistry.
//
// Go values dispatch on their reflect.Type. Types seen for the first time are
// registered on demand under:
//   - every declared interface they implement, in declaration order
//   - for named basic types, the predeclared type of the same kind
//   - Integer, Float or Number for the predeclared numeric types
//
// Nominal types (Define), explicit Go types (Register), interfaces
// (DeclareInterface) and instances (Instance) extend the hierarchy.
// Supers must exist before they are referenced, so hierarchies are acyclic
// by construction.
type Registry struct {
	table      *Table
	byType     map[reflect.Type]genfun.Handle
	byName     map[string]genfun.Handle
	instances  map[any]genfun.Handle
	interfaces []genfun.Handle
	nInstances atomic.Int32
	mu         sync.RWMutex

	number  genfun.Handle
	integer genfun.Handle
	float   genfun.Handle
	complex genfun.Handle
}

// NewRegistry creates a registry with the builtin numeric hierarchy:
//
//	Number ← Integer ← int, int8 ... uint64, uintptr
//	Number ← Float   ← float32, float64
//	Number ← Complex ← complex64, complex128
func NewRegistry() *Registry {
	r := &Registry{
		table:     NewTable(),
		byType:    make(map[reflect.Type]genfun.Handle),
		byName:    make(map[string]genfun.Handle),
		instances: make(map[any]genfun.Handle),
	}
	r.byName["Root"] = genfun.Root

	r.number = r.mustDefine("Number")
	r.integer = r.mustDefine("Integer", r.number)
	r.float = r.mustDefine("Float", r.number)
	r.complex = r.mustDefine("Complex", r.number)

	for _, v := range []any{int(0), int8(0), int16(0), int32(0), int64(0),
		uint(0), uint8(0), uint16(0), uint32(0), uint64(0), uintptr(0)} {
		r.mustRegister(reflect.TypeOf(v), r.integer)
	}
	r.mustRegister(reflect.TypeOf(float32(0)), r.float)
	r.mustRegister(reflect.TypeOf(float64(0)), r.float)
	r.mustRegister(reflect.TypeOf(complex64(0)), r.complex)
	r.mustRegister(reflect.TypeOf(complex128(0)), r.complex)
	r.mustRegister(reflect.TypeOf(false))
	r.mustRegister(reflect.TypeOf(""))

	return r
}

// Number returns the abstract supertype of all numeric types.
func (r *Registry) Number() genfun.Handle { return r.number }

// Integer returns the abstract supertype of the integer types.
func (r *Registry) Integer() genfun.Handle { return r.integer }

// Float returns the abstract supertype of float32 and float64.
func (r *Registry) Float() genfun.Handle { return r.float }

// Complex returns the abstract supertype of complex64 and complex128.
func (r *Registry) Complex() genfun.Handle { return r.complex }

// Define creates a nominal type. Names are unique within a registry.
func (r *Registry) Define(name string, supers ...genfun.Handle) (genfun.Handle, error) {
	if name == "" {
		return 0, errors.InvalidInput(errors.PhaseRegistry, "type name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byName[name]; exists {
		return 0, errors.Duplicate(errors.PhaseRegistry, "type", name)
	}
	h, err := r.insertLocked(Info{Name: name, Kind: KindNominal}, supers)
	if err != nil {
		return 0, err
	}
	r.byName[name] = h
	return h, nil
}

// Register declares a Go type with explicit supers.
// It fails if the type is already known, including through on-demand
// registration by an earlier dispatch.
func (r *Registry) Register(t reflect.Type, supers ...genfun.Handle) (genfun.Handle, error) {
	if t == nil {
		return 0, errors.InvalidInput(errors.PhaseRegistry, "type cannot be nil")
	}
	if t.Kind() == reflect.Interface {
		return r.DeclareInterface(t, supers...)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byType[t]; exists {
		return 0, errors.Duplicate(errors.PhaseRegistry, "type", t.String())
	}
	h, err := r.insertLocked(Info{Name: t.String(), GoType: t, Kind: KindGo}, supers)
	if err != nil {
		return 0, err
	}
	r.byType[t] = h
	return h, nil
}

// DeclareInterface registers a Go interface type. Concrete types registered
// on demand afterwards get it as a super when they implement it; types
// already known are not updated.
func (r *Registry) DeclareInterface(iface reflect.Type, supers ...genfun.Handle) (genfun.Handle, error) {
	if iface == nil || iface.Kind() != reflect.Interface {
		return 0, errors.InvalidInput(errors.PhaseRegistry, fmt.Sprintf("%v is not an interface type", iface))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byType[iface]; exists {
		return 0, errors.Duplicate(errors.PhaseRegistry, "interface", iface.String())
	}
	h, err := r.insertLocked(Info{Name: iface.String(), GoType: iface, Kind: KindInterface}, supers)
	if err != nil {
		return 0, err
	}
	r.byType[iface] = h
	r.interfaces = append(r.interfaces, h)
	return h, nil
}

// Instance returns a handle for the individual value v, creating it on first
// use. v must be non-nil and hashable.
func (r *Registry) Instance(v any) (genfun.Handle, error) {
	if v == nil {
		return 0, errors.InvalidInput(errors.PhaseRegistry, "nil cannot be an instance selector")
	}
	if !genfun.Hashable(v) {
		return 0, errors.InvalidInput(errors.PhaseRegistry,
			fmt.Sprintf("instance of %T is not hashable", v))
	}

	typ := r.DispatchType(v)

	r.mu.Lock()
	defer r.mu.Unlock()

	if h, ok := r.instances[v]; ok {
		return h, nil
	}

	base, _ := r.table.Get(typ)
	h := r.table.Next()
	prec := make([]genfun.Handle, 0, len(base.Precedence)+1)
	prec = append(prec, h)
	prec = append(prec, base.Precedence...)
	r.table.Insert(Info{
		Name:       fmt.Sprintf("%s(%v)", base.Name, v),
		Instance:   v,
		Kind:       KindInstance,
		Supers:     []genfun.Handle{typ},
		Precedence: prec,
	})
	r.instances[v] = h
	r.nInstances.Add(1)
	return h, nil
}

// DispatchType implements genfun.TypeRegistry.
func (r *Registry) DispatchType(v any) genfun.Handle {
	switch x := v.(type) {
	case nil:
		return genfun.NullType
	case genfun.Tagged:
		return x.DispatchTag()
	}
	if v == genfun.Undefined {
		return genfun.MissingType
	}
	return r.Type(reflect.TypeOf(v))
}

// TypeOf is DispatchType under the name used when building selectors.
func (r *Registry) TypeOf(v any) genfun.Handle {
	return r.DispatchType(v)
}

// Type returns the handle of a Go type, registering it on demand.
func (r *Registry) Type(t reflect.Type) genfun.Handle {
	r.mu.RLock()
	h, ok := r.byType[t]
	r.mu.RUnlock()
	if ok {
		return h
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if h, ok := r.byType[t]; ok {
		return h
	}
	h, err := r.insertLocked(Info{Name: t.String(), GoType: t, Kind: KindGo}, r.implicitSupersLocked(t))
	if err != nil {
		// implicit supers always exist; fall back to a root-only type
		h, _ = r.insertLocked(Info{Name: t.String(), GoType: t, Kind: KindGo}, nil)
	}
	r.byType[t] = h
	return h
}

// For returns the handle of the Go type T.
func For[T any](r *Registry) genfun.Handle {
	return r.Type(reflect.TypeFor[T]())
}

// Lookup finds a nominal type by name.
func (r *Registry) Lookup(name string) (genfun.Handle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.byName[name]
	return h, ok
}

// InstanceOf implements genfun.InstanceResolver.
func (r *Registry) InstanceOf(v any) (genfun.Handle, bool) {
	if v == nil || r.nInstances.Load() == 0 {
		return 0, false
	}
	if !genfun.Hashable(v) {
		return 0, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.instances[v]
	return h, ok
}

// PrecedenceList implements genfun.TypeRegistry.
// The returned slice is shared and must not be modified.
func (r *Registry) PrecedenceList(h genfun.Handle) ([]genfun.Handle, error) {
	info, ok := r.table.Get(h)
	if !ok {
		return nil, errors.NotFound(errors.PhaseRegistry, "type handle", fmt.Sprint(uint32(h)))
	}
	return info.Precedence, nil
}

// TypeName implements genfun.TypeNamer.
func (r *Registry) TypeName(h genfun.Handle) string {
	if info, ok := r.table.Get(h); ok {
		return info.Name
	}
	return fmt.Sprintf("<unknown %d>", uint32(h))
}

// Info returns the registered information for h.
func (r *Registry) Info(h genfun.Handle) (Info, bool) {
	return r.table.Get(h)
}

// Each iterates over all handles in allocation order.
func (r *Registry) Each(fn func(genfun.Handle, Info) bool) {
	r.table.Each(fn)
}

// Len returns the number of handles, reserved ones included.
func (r *Registry) Len() int {
	return r.table.Len()
}

func (r *Registry) insertLocked(info Info, supers []genfun.Handle) (genfun.Handle, error) {
	h := r.table.Next()
	prec, err := r.linearize(h, supers)
	if err != nil {
		return 0, err
	}
	info.Supers = append([]genfun.Handle(nil), supers...)
	info.Precedence = prec
	return r.table.Insert(info), nil
}

// linearize builds self, then each super's precedence list left to right,
// keeping the first occurrence of every handle, then Root.
func (r *Registry) linearize(self genfun.Handle, supers []genfun.Handle) ([]genfun.Handle, error) {
	out := []genfun.Handle{self}
	seen := map[genfun.Handle]bool{self: true, genfun.Root: true}

	for _, s := range supers {
		switch s {
		case genfun.Wildcard, genfun.Root:
			continue
		case genfun.NullType, genfun.MissingType:
			return nil, errors.InvalidInput(errors.PhaseRegistry, "nil and undefined types cannot be supers")
		}
		info, ok := r.table.Get(s)
		if !ok {
			return nil, errors.NotFound(errors.PhaseRegistry, "super type", fmt.Sprint(uint32(s)))
		}
		if info.Kind == KindInstance {
			return nil, errors.InvalidInput(errors.PhaseRegistry, "instances cannot be supers")
		}
		for _, p := range info.Precedence {
			if !seen[p] {
				seen[p] = true
				out = append(out, p)
			}
		}
	}
	out = append(out, genfun.Root)

	if len(out) > MaxDepth {
		return nil, errors.InvalidTypeHierarchy(self,
			fmt.Sprintf("precedence list exceeds %d entries", MaxDepth))
	}
	return out, nil
}

func (r *Registry) mustDefine(name string, supers ...genfun.Handle) genfun.Handle {
	h, err := r.insertLocked(Info{Name: name, Kind: KindNominal}, supers)
	if err != nil {
		panic(err)
	}
	r.byName[name] = h
	return h
}

func (r *Registry) mustRegister(t reflect.Type, supers ...genfun.Handle) {
	h, err := r.insertLocked(Info{Name: t.String(), GoType: t, Kind: KindGo}, supers)
	if err != nil {
		panic(err)
	}
	r.byType[t] = h
}

var basicTypes = map[reflect.Kind]reflect.Type{
	reflect.Bool:       reflect.TypeOf(false),
	reflect.Int:        reflect.TypeOf(int(0)),
	reflect.Int8:       reflect.TypeOf(int8(0)),
	reflect.Int16:      reflect.TypeOf(int16(0)),
	reflect.Int32:      reflect.TypeOf(int32(0)),
	reflect.Int64:      reflect.TypeOf(int64(0)),
	reflect.Uint:       reflect.TypeOf(uint(0)),
	reflect.Uint8:      reflect.TypeOf(uint8(0)),
	reflect.Uint16:     reflect.TypeOf(uint16(0)),
	reflect.Uint32:     reflect.TypeOf(uint32(0)),
	reflect.Uint64:     reflect.TypeOf(uint64(0)),
	reflect.Uintptr:    reflect.TypeOf(uintptr(0)),
	reflect.Float32:    reflect.TypeOf(float32(0)),
	reflect.Float64:    reflect.TypeOf(float64(0)),
	reflect.Complex64:  reflect.TypeOf(complex64(0)),
	reflect.Complex128: reflect.TypeOf(complex128(0)),
	reflect.String:     reflect.TypeOf(""),
}

func (r *Registry) implicitSupersLocked(t reflect.Type) []genfun.Handle {
	var supers []genfun.Handle
	for _, ih := range r.interfaces {
		info, _ := r.table.Get(ih)
		if t.Implements(info.GoType) {
			supers = append(supers, ih)
		}
	}
	if basic, ok := basicTypes[t.Kind()]; ok && basic != t {
		if h, ok := r.byType[basic]; ok {
			supers = append(supers, h)
		}
	}
	return supers
}
