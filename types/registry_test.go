package types

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/wippyai/genfun"
	gferrors "github.com/wippyai/genfun/errors"
)

type shape interface{ Area() float64 }

type square struct{ side float64 }

func (s square) Area() float64 { return s.side * s.side }

type circle struct{ r float64 }

func (c circle) Area() float64 { return 3 * c.r * c.r }

type celsius float64

type point struct{ X, Y int }

func TestRegistry_BuiltinHierarchy(t *testing.T) {
	reg := NewRegistry()

	tests := []struct {
		name  string
		value any
		want  []string
	}{
		{"int", 1, []string{"int", "Integer", "Number", "Root"}},
		{"uint8", uint8(1), []string{"uint8", "Integer", "Number", "Root"}},
		{"float64", 1.5, []string{"float64", "Float", "Number", "Root"}},
		{"complex128", complex(1, 2), []string{"complex128", "Complex", "Number", "Root"}},
		{"string", "s", []string{"string", "Root"}},
		{"bool", true, []string{"bool", "Root"}},
		{"nil", nil, []string{"nil", "Root"}},
		{"undefined", genfun.Undefined, []string{"undefined", "Root"}},
		{"named float", celsius(20), []string{"types.celsius", "float64", "Float", "Number", "Root"}},
		{"struct", point{}, []string{"types.point", "Root"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prec, err := reg.PrecedenceList(reg.DispatchType(tt.value))
			if err != nil {
				t.Fatalf("PrecedenceList: %v", err)
			}
			if diff := cmp.Diff(tt.want, names(reg, prec)); diff != "" {
				t.Errorf("precedence mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRegistry_ReferentiallyStable(t *testing.T) {
	reg := NewRegistry()

	if reg.TypeOf(point{1, 2}) != reg.TypeOf(point{3, 4}) {
		t.Fatal("same type should map to the same handle")
	}
	if reg.TypeOf(point{}) != For[point](reg) {
		t.Fatal("For should agree with TypeOf")
	}
	if reg.TypeOf(int32(1)) == reg.TypeOf(int64(1)) {
		t.Fatal("distinct kinds should map to distinct handles")
	}
	if reg.TypeOf(nil) == reg.TypeOf(genfun.Undefined) {
		t.Fatal("nil and undefined must be disjoint")
	}
}

func TestRegistry_DefineAndRegister(t *testing.T) {
	reg := NewRegistry()

	animal, err := reg.Define("Animal")
	if err != nil {
		t.Fatalf("Define: %v", err)
	}
	pet, err := reg.Define("Pet")
	if err != nil {
		t.Fatalf("Define: %v", err)
	}
	dog, err := reg.Register(reflect.TypeFor[point](), animal, pet)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	prec, _ := reg.PrecedenceList(reg.TypeOf(point{}))
	if prec[0] != dog {
		t.Fatalf("TypeOf should return the registered handle")
	}
	if diff := cmp.Diff([]string{"types.point", "Animal", "Pet", "Root"}, names(reg, prec)); diff != "" {
		t.Errorf("precedence mismatch (-want +got):\n%s", diff)
	}

	if h, ok := reg.Lookup("Animal"); !ok || h != animal {
		t.Errorf("Lookup(Animal) = %d, %v", h, ok)
	}

	t.Run("duplicate name", func(t *testing.T) {
		_, err := reg.Define("Animal")
		assertKind(t, err, gferrors.KindDuplicate)
	})
	t.Run("duplicate type", func(t *testing.T) {
		_, err := reg.Register(reflect.TypeFor[point]())
		assertKind(t, err, gferrors.KindDuplicate)
	})
	t.Run("type already seen by dispatch", func(t *testing.T) {
		reg.TypeOf(square{})
		_, err := reg.Register(reflect.TypeFor[square]())
		assertKind(t, err, gferrors.KindDuplicate)
	})
	t.Run("unknown super", func(t *testing.T) {
		_, err := reg.Define("Ghost", 999)
		assertKind(t, err, gferrors.KindNotFound)
	})
	t.Run("null super", func(t *testing.T) {
		_, err := reg.Define("Nullish", genfun.NullType)
		assertKind(t, err, gferrors.KindInvalidInput)
	})
	t.Run("empty name", func(t *testing.T) {
		_, err := reg.Define("")
		assertKind(t, err, gferrors.KindInvalidInput)
	})
}

func TestRegistry_DiamondLinearization(t *testing.T) {
	reg := NewRegistry()

	top, _ := reg.Define("Top")
	left, _ := reg.Define("Left", top)
	right, _ := reg.Define("Right", top)
	bottom, _ := reg.Define("Bottom", left, right)

	prec, _ := reg.PrecedenceList(bottom)
	if diff := cmp.Diff([]string{"Bottom", "Left", "Top", "Right", "Root"}, names(reg, prec)); diff != "" {
		t.Errorf("precedence mismatch (-want +got):\n%s", diff)
	}
}

func TestRegistry_Interfaces(t *testing.T) {
	reg := NewRegistry()

	sh, err := reg.DeclareInterface(reflect.TypeFor[shape]())
	if err != nil {
		t.Fatalf("DeclareInterface: %v", err)
	}

	prec, _ := reg.PrecedenceList(reg.TypeOf(circle{}))
	if len(prec) != 3 || prec[1] != sh {
		t.Fatalf("circle precedence = %v, want Shape as first super", names(reg, prec))
	}

	if _, err := reg.DeclareInterface(reflect.TypeFor[point]()); err == nil {
		t.Fatal("non-interface type should be rejected")
	}
	if _, err := reg.Register(reflect.TypeFor[shape]()); !errors.Is(err, &gferrors.Error{Phase: gferrors.PhaseRegistry, Kind: gferrors.KindDuplicate}) {
		t.Fatalf("Register of a declared interface = %v, want duplicate", err)
	}
}

func TestRegistry_Instances(t *testing.T) {
	reg := NewRegistry()

	if _, ok := reg.InstanceOf(7); ok {
		t.Fatal("no instances registered yet")
	}

	seven, err := reg.Instance(7)
	if err != nil {
		t.Fatalf("Instance: %v", err)
	}
	again, _ := reg.Instance(7)
	if again != seven {
		t.Fatal("Instance should be idempotent")
	}

	h, ok := reg.InstanceOf(7)
	if !ok || h != seven {
		t.Fatalf("InstanceOf(7) = %d, %v", h, ok)
	}
	if _, ok := reg.InstanceOf(8); ok {
		t.Fatal("8 is not an instance")
	}
	if _, ok := reg.InstanceOf([]int{1}); ok {
		t.Fatal("non-comparable values are never instances")
	}
	if reg.DispatchType(7) != reg.TypeOf(0) {
		t.Fatal("DispatchType must return the concrete type, not the instance")
	}

	prec, _ := reg.PrecedenceList(seven)
	if diff := cmp.Diff([]string{"int(7)", "int", "Integer", "Number", "Root"}, names(reg, prec)); diff != "" {
		t.Errorf("precedence mismatch (-want +got):\n%s", diff)
	}

	if _, err := reg.Instance(nil); err == nil {
		t.Fatal("nil instance should be rejected")
	}
	if _, err := reg.Instance([]int{1}); err == nil {
		t.Fatal("non-comparable instance should be rejected")
	}
	if _, err := reg.Define("Sub", seven); err == nil {
		t.Fatal("instances cannot be supers")
	}
}

type boxed struct{ v any }

func TestRegistry_UnhashableInstances(t *testing.T) {
	reg := NewRegistry()
	if _, err := reg.Instance(7); err != nil {
		t.Fatalf("Instance: %v", err)
	}

	tests := []struct {
		name  string
		value any
	}{
		{"slice in tagged value", Value{Tag: genfun.Root, Data: []int{1}}},
		{"map in struct field", boxed{v: map[string]int{}}},
		{"func in array", [2]any{1, func() {}}},
		{"nested", boxed{v: boxed{v: []byte("x")}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, ok := reg.InstanceOf(tt.value); ok {
				t.Error("unhashable value cannot be an instance")
			}
			_, err := reg.Instance(tt.value)
			assertKind(t, err, gferrors.KindInvalidInput)
		})
	}

	hashable := boxed{v: "rex"}
	h, err := reg.Instance(hashable)
	if err != nil {
		t.Fatalf("Instance(%v): %v", hashable, err)
	}
	if got, ok := reg.InstanceOf(boxed{v: "rex"}); !ok || got != h {
		t.Errorf("InstanceOf = %d, %v, want %d", got, ok, h)
	}
}

func TestRegistry_Tagged(t *testing.T) {
	reg := NewRegistry()
	dog, _ := reg.Define("Dog")

	v := Tag(dog, "Rex")
	if reg.DispatchType(v) != dog {
		t.Fatalf("tagged value should dispatch as its tag")
	}
	if fmt.Sprint(v) == "" {
		t.Fatal("tagged value should print")
	}
}

func TestRegistry_UnknownHandle(t *testing.T) {
	reg := NewRegistry()

	if _, err := reg.PrecedenceList(12345); err == nil {
		t.Fatal("unknown handle should fail")
	}
	if reg.TypeName(12345) == "" {
		t.Fatal("TypeName should describe unknown handles")
	}
}

func TestRegistry_ConcurrentDispatchType(t *testing.T) {
	reg := NewRegistry()
	var wg sync.WaitGroup
	results := make([]genfun.Handle, 64)

	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = reg.DispatchType(point{X: i})
		}(i)
	}
	wg.Wait()

	for i := range results {
		if results[i] != results[0] {
			t.Fatalf("result %d = %d, want %d", i, results[i], results[0])
		}
	}
}

func names(reg *Registry, hs []genfun.Handle) []string {
	out := make([]string, len(hs))
	for i, h := range hs {
		out[i] = reg.TypeName(h)
	}
	return out
}

func assertKind(t *testing.T, err error, kind gferrors.Kind) {
	t.Helper()
	var e *gferrors.Error
	if !errors.As(err, &e) {
		t.Fatalf("expected *errors.Error, got %v", err)
	}
	if e.Kind != kind {
		t.Fatalf("Kind = %v, want %v", e.Kind, kind)
	}
}
