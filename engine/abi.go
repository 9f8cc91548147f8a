package engine

import (
	"fmt"
	"math"
	"reflect"

	"github.com/tetratelabs/wazero/api"
	"go.bytecodealliance.org/wit"

	"github.com/wippyai/genfun/errors"
)

// flatType returns the core value type a primitive WIT type flattens to.
func flatType(t wit.Type) (api.ValueType, bool) {
	switch t.(type) {
	case wit.Bool, wit.U8, wit.S8, wit.U16, wit.S16, wit.U32, wit.S32, wit.Char:
		return api.ValueTypeI32, true
	case wit.U64, wit.S64:
		return api.ValueTypeI64, true
	case wit.F32:
		return api.ValueTypeF32, true
	case wit.F64:
		return api.ValueTypeF64, true
	default:
		return 0, false
	}
}

// witType returns the default WIT type for a core value type.
func witType(vt api.ValueType) (wit.Type, bool) {
	switch vt {
	case api.ValueTypeI32:
		return wit.S32{}, true
	case api.ValueTypeI64:
		return wit.S64{}, true
	case api.ValueTypeF32:
		return wit.F32{}, true
	case api.ValueTypeF64:
		return wit.F64{}, true
	default:
		return nil, false
	}
}

// GoType returns the Go type values of t are represented as.
func GoType(t wit.Type) (reflect.Type, error) {
	switch t.(type) {
	case wit.Bool:
		return reflect.TypeFor[bool](), nil
	case wit.S8:
		return reflect.TypeFor[int8](), nil
	case wit.U8:
		return reflect.TypeFor[uint8](), nil
	case wit.S16:
		return reflect.TypeFor[int16](), nil
	case wit.U16:
		return reflect.TypeFor[uint16](), nil
	case wit.S32, wit.Char:
		return reflect.TypeFor[int32](), nil
	case wit.U32:
		return reflect.TypeFor[uint32](), nil
	case wit.S64:
		return reflect.TypeFor[int64](), nil
	case wit.U64:
		return reflect.TypeFor[uint64](), nil
	case wit.F32:
		return reflect.TypeFor[float32](), nil
	case wit.F64:
		return reflect.TypeFor[float64](), nil
	default:
		return nil, errors.Unsupported(errors.PhaseLoad, fmt.Sprintf("WIT type %s", TypeName(t)))
	}
}

// TypeName returns the WIT spelling of a primitive type.
func TypeName(t wit.Type) string {
	switch t.(type) {
	case wit.Bool:
		return "bool"
	case wit.S8:
		return "s8"
	case wit.U8:
		return "u8"
	case wit.S16:
		return "s16"
	case wit.U16:
		return "u16"
	case wit.S32:
		return "s32"
	case wit.U32:
		return "u32"
	case wit.S64:
		return "s64"
	case wit.U64:
		return "u64"
	case wit.F32:
		return "f32"
	case wit.F64:
		return "f64"
	case wit.Char:
		return "char"
	case wit.String:
		return "string"
	case nil:
		return "<none>"
	default:
		return fmt.Sprintf("%T", t)
	}
}

// ParseType parses a primitive WIT type name.
func ParseType(name string) (wit.Type, error) {
	switch name {
	case "bool":
		return wit.Bool{}, nil
	case "s8":
		return wit.S8{}, nil
	case "u8":
		return wit.U8{}, nil
	case "s16":
		return wit.S16{}, nil
	case "u16":
		return wit.U16{}, nil
	case "s32":
		return wit.S32{}, nil
	case "u32":
		return wit.U32{}, nil
	case "s64":
		return wit.S64{}, nil
	case "u64":
		return wit.U64{}, nil
	case "f32":
		return wit.F32{}, nil
	case "f64":
		return wit.F64{}, nil
	case "char":
		return wit.Char{}, nil
	default:
		return nil, errors.NotFound(errors.PhaseLoad, "WIT type", name)
	}
}

// Convert converts a Go number or bool to the representation of t.
// Integer conversions fail when the value does not fit.
func Convert(t wit.Type, v any) (any, error) {
	goType, err := GoType(t)
	if err != nil {
		return nil, err
	}
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return nil, errors.TypeMismatch(errors.PhaseInvoke, TypeName(t), "nil")
	}
	if rv.Type() == goType {
		return v, nil
	}

	out := reflect.New(goType).Elem()
	switch {
	case goType.Kind() == reflect.Bool && rv.Kind() == reflect.Bool:
		out.SetBool(rv.Bool())
	case rv.CanInt() && out.CanInt():
		if out.OverflowInt(rv.Int()) {
			return nil, overflow(t, v)
		}
		out.SetInt(rv.Int())
	case rv.CanInt() && out.CanUint():
		if rv.Int() < 0 || out.OverflowUint(uint64(rv.Int())) {
			return nil, overflow(t, v)
		}
		out.SetUint(uint64(rv.Int()))
	case rv.CanUint() && out.CanUint():
		if out.OverflowUint(rv.Uint()) {
			return nil, overflow(t, v)
		}
		out.SetUint(rv.Uint())
	case rv.CanUint() && out.CanInt():
		if rv.Uint() > math.MaxInt64 || out.OverflowInt(int64(rv.Uint())) {
			return nil, overflow(t, v)
		}
		out.SetInt(int64(rv.Uint()))
	case (rv.CanInt() || rv.CanUint() || rv.CanFloat()) && out.CanFloat():
		out.Set(rv.Convert(goType))
	default:
		return nil, errors.TypeMismatch(errors.PhaseInvoke, TypeName(t), fmt.Sprintf("%T", v))
	}
	return out.Interface(), nil
}

func overflow(t wit.Type, v any) error {
	return errors.New(errors.PhaseInvoke, errors.KindInvalidInput).
		Value(v).
		Detail("%v overflows %s", v, TypeName(t)).
		Build()
}

// lower encodes v, which must already have the Go type of t, as a core value.
func lower(t wit.Type, v any) (uint64, error) {
	switch t.(type) {
	case wit.Bool:
		if b, ok := v.(bool); ok {
			if b {
				return 1, nil
			}
			return 0, nil
		}
	case wit.S8:
		if x, ok := v.(int8); ok {
			return api.EncodeI32(int32(x)), nil
		}
	case wit.U8:
		if x, ok := v.(uint8); ok {
			return api.EncodeU32(uint32(x)), nil
		}
	case wit.S16:
		if x, ok := v.(int16); ok {
			return api.EncodeI32(int32(x)), nil
		}
	case wit.U16:
		if x, ok := v.(uint16); ok {
			return api.EncodeU32(uint32(x)), nil
		}
	case wit.S32, wit.Char:
		if x, ok := v.(int32); ok {
			return api.EncodeI32(x), nil
		}
	case wit.U32:
		if x, ok := v.(uint32); ok {
			return api.EncodeU32(x), nil
		}
	case wit.S64:
		if x, ok := v.(int64); ok {
			return api.EncodeI64(x), nil
		}
	case wit.U64:
		if x, ok := v.(uint64); ok {
			return x, nil
		}
	case wit.F32:
		if x, ok := v.(float32); ok {
			return api.EncodeF32(x), nil
		}
	case wit.F64:
		if x, ok := v.(float64); ok {
			return api.EncodeF64(x), nil
		}
	default:
		return 0, errors.Unsupported(errors.PhaseInvoke, fmt.Sprintf("lowering %s", TypeName(t)))
	}
	return 0, errors.TypeMismatch(errors.PhaseInvoke, TypeName(t), fmt.Sprintf("%T", v))
}

// lift decodes a core value as t.
func lift(t wit.Type, raw uint64) (any, error) {
	switch t.(type) {
	case wit.Bool:
		return api.DecodeU32(raw) != 0, nil
	case wit.S8:
		return int8(api.DecodeI32(raw)), nil
	case wit.U8:
		return uint8(api.DecodeU32(raw)), nil
	case wit.S16:
		return int16(api.DecodeI32(raw)), nil
	case wit.U16:
		return uint16(api.DecodeU32(raw)), nil
	case wit.S32, wit.Char:
		return api.DecodeI32(raw), nil
	case wit.U32:
		return api.DecodeU32(raw), nil
	case wit.S64:
		return int64(raw), nil
	case wit.U64:
		return raw, nil
	case wit.F32:
		return api.DecodeF32(raw), nil
	case wit.F64:
		return api.DecodeF64(raw), nil
	default:
		return nil, errors.Unsupported(errors.PhaseInvoke, fmt.Sprintf("lifting %s", TypeName(t)))
	}
}
