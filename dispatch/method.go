package dispatch

import (
	"context"
	"strings"

	"github.com/wippyai/genfun"
)

// MethodFunc is the body of a method. self is the receiver the generic
// function was called with (nil for Call); args are the call arguments.
// ctx carries the dispatch context used by CallNextMethod.
type MethodFunc func(ctx context.Context, self any, args ...any) (any, error)

// Method is one registered implementation of a generic function.
// Methods are immutable once added.
type Method struct {
	fn           MethodFunc
	gf           *GenericFunction
	selector     []genfun.Handle
	minimalArity int
	seq          uint64
}

func newMethod(gf *GenericFunction, selector []genfun.Handle, fn MethodFunc, seq uint64) *Method {
	sel := make([]genfun.Handle, len(selector))
	for i, h := range selector {
		if h == genfun.Wildcard {
			h = genfun.Root
		}
		sel[i] = h
	}
	return &Method{
		fn:           fn,
		gf:           gf,
		selector:     sel,
		minimalArity: minimalArity(sel),
		seq:          seq,
	}
}

// minimalArity trims trailing Root entries while a non-root element
// remains to their left. An all-root selector keeps position 0.
func minimalArity(sel []genfun.Handle) int {
	n := len(sel)
	for n > 1 && sel[n-1] == genfun.Root {
		n--
	}
	return n
}

// Selector returns a copy of the method's selector, wildcards replaced by Root.
func (m *Method) Selector() []genfun.Handle {
	return append([]genfun.Handle(nil), m.selector...)
}

// MinimalArity is the number of leading selector positions that must be
// matched by real arguments.
func (m *Method) MinimalArity() int {
	return m.minimalArity
}

// IsDefault reports whether this is the zero-arity default method.
func (m *Method) IsDefault() bool {
	return len(m.selector) == 0
}

// GenericFunction returns the generic function owning the method.
func (m *Method) GenericFunction() *GenericFunction {
	return m.gf
}

// Invoke runs the method body directly, outside of dispatch.
// CallNextMethod is unavailable inside such a call.
func (m *Method) Invoke(ctx context.Context, self any, args ...any) (any, error) {
	return m.fn(ctx, self, args...)
}

func (m *Method) String() string {
	var b strings.Builder
	b.WriteString(m.gf.name)
	b.WriteByte('(')
	for i, h := range m.selector {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(m.gf.typeName(h))
	}
	b.WriteByte(')')
	return b.String()
}

type role struct {
	method   *Method
	position int
}

type roleKey struct {
	handle   genfun.Handle
	position int
}

// roleIndex maps (type, position) to the methods specializing on that type
// there. It is append-only and guarded by the owning generic function's lock.
type roleIndex struct {
	byKey  map[roleKey][]role
	byType map[genfun.Handle]int
}

func newRoleIndex() *roleIndex {
	return &roleIndex{
		byKey:  make(map[roleKey][]role),
		byType: make(map[genfun.Handle]int),
	}
}

func (ri *roleIndex) register(h genfun.Handle, position int, m *Method) {
	k := roleKey{handle: h, position: position}
	ri.byKey[k] = append(ri.byKey[k], role{method: m, position: position})
	ri.byType[h]++
}

func (ri *roleIndex) lookup(h genfun.Handle, position int) []role {
	return ri.byKey[roleKey{handle: h, position: position}]
}

// hasAny reports whether h is used at any position by any method.
func (ri *roleIndex) hasAny(h genfun.Handle) bool {
	return ri.byType[h] > 0
}
