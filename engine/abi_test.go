package engine

import (
	"math"
	"reflect"
	"testing"

	"github.com/tetratelabs/wazero/api"
	"go.bytecodealliance.org/wit"
)

func TestParseType(t *testing.T) {
	for _, name := range []string{"bool", "s8", "u8", "s16", "u16", "s32", "u32", "s64", "u64", "f32", "f64", "char"} {
		typ, err := ParseType(name)
		if err != nil {
			t.Fatalf("ParseType(%q) failed: %v", name, err)
		}
		if TypeName(typ) != name {
			t.Errorf("TypeName(ParseType(%q)) = %q", name, TypeName(typ))
		}
		if _, ok := flatType(typ); !ok {
			t.Errorf("%s should flatten to a core type", name)
		}
		if _, err := GoType(typ); err != nil {
			t.Errorf("GoType(%s) failed: %v", name, err)
		}
	}

	if _, err := ParseType("string"); err == nil {
		t.Error("string is not a primitive number type")
	}
	if _, err := GoType(wit.String{}); err == nil {
		t.Error("strings have no Go selector type")
	}
}

func TestConvert(t *testing.T) {
	tests := []struct {
		name    string
		typ     wit.Type
		in      any
		want    any
		wantErr bool
	}{
		{"exact", wit.S32{}, int32(5), int32(5), false},
		{"int to s32", wit.S32{}, 5, int32(5), false},
		{"int to u8", wit.U8{}, 255, uint8(255), false},
		{"u8 overflow", wit.U8{}, 256, nil, true},
		{"negative to unsigned", wit.U32{}, -1, nil, true},
		{"uint to s64", wit.S64{}, uint(7), int64(7), false},
		{"uint64 overflow s64", wit.S64{}, uint64(math.MaxUint64), nil, true},
		{"int to f64", wit.F64{}, 3, 3.0, false},
		{"f64 to f32", wit.F32{}, 0.5, float32(0.5), false},
		{"float to int", wit.S32{}, 1.5, nil, true},
		{"bool", wit.Bool{}, true, true, false},
		{"int to bool", wit.Bool{}, 1, nil, true},
		{"nil", wit.S32{}, nil, nil, true},
		{"string", wit.S32{}, "1", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Convert(tt.typ, tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Convert(%s, %v) = %v, expected error", TypeName(tt.typ), tt.in, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Convert failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("Convert(%s, %v) = %v (%T), want %v (%T)", TypeName(tt.typ), tt.in, got, got, tt.want, tt.want)
			}
		})
	}
}

func TestLowerLift(t *testing.T) {
	tests := []struct {
		typ wit.Type
		v   any
	}{
		{wit.Bool{}, true},
		{wit.S8{}, int8(-3)},
		{wit.U16{}, uint16(65535)},
		{wit.S32{}, int32(math.MinInt32)},
		{wit.U32{}, uint32(math.MaxUint32)},
		{wit.S64{}, int64(-1)},
		{wit.U64{}, uint64(math.MaxUint64)},
		{wit.F32{}, float32(-2.25)},
		{wit.F64{}, math.Pi},
	}

	for _, tt := range tests {
		t.Run(TypeName(tt.typ), func(t *testing.T) {
			raw, err := lower(tt.typ, tt.v)
			if err != nil {
				t.Fatalf("lower failed: %v", err)
			}
			got, err := lift(tt.typ, raw)
			if err != nil {
				t.Fatalf("lift failed: %v", err)
			}
			if !reflect.DeepEqual(got, tt.v) {
				t.Errorf("round trip = %v (%T), want %v (%T)", got, got, tt.v, tt.v)
			}
		})
	}

	if _, err := lower(wit.S32{}, int64(1)); err == nil {
		t.Error("lower expects the exact Go type")
	}
	if raw, _ := lower(wit.S8{}, int8(-1)); raw != api.EncodeI32(-1) {
		t.Errorf("s8 should sign-extend to i32, got %#x", raw)
	}
}

func TestWitType(t *testing.T) {
	for _, vt := range []api.ValueType{api.ValueTypeI32, api.ValueTypeI64, api.ValueTypeF32, api.ValueTypeF64} {
		typ, ok := witType(vt)
		if !ok {
			t.Fatalf("witType(%s) unsupported", api.ValueTypeName(vt))
		}
		back, _ := flatType(typ)
		if back != vt {
			t.Errorf("%s maps to %s which flattens to %s", api.ValueTypeName(vt), TypeName(typ), api.ValueTypeName(back))
		}
	}
	if _, ok := witType(api.ValueTypeExternref); ok {
		t.Error("externref has no WIT primitive")
	}
}
