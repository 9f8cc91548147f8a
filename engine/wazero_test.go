package engine

import (
	"context"
	"encoding/hex"
	"strings"
	"sync"
	"testing"

	"go.bytecodealliance.org/wit"

	"github.com/wippyai/genfun"
	"github.com/wippyai/genfun/dispatch"
	"github.com/wippyai/genfun/errors"
	"github.com/wippyai/genfun/types"
)

// mathWasm exports double (i32) -> i32 returning x*2 and half (f64) -> f64
// returning x*0.5.
var mathWasm = mustHex(strings.Join([]string{
	"0061736d01000000",
	"010b0260017f017f60017c017c",
	"0303020001",
	"07110206646f75626c650000",
	"0468616c660001",
	"0a18020700200041026c0b",
	"0e00200044000000000000e03fa20b",
}, ""))

func mustHex(s string) []byte {
	b, err := hex.DecodeString(s)
	if err != nil {
		panic(err)
	}
	return b
}

func loadMath(t *testing.T) (*WazeroModule, *WazeroInstance) {
	t.Helper()
	ctx := context.Background()

	eng, err := NewWazeroEngine(ctx)
	if err != nil {
		t.Fatalf("NewWazeroEngine failed: %v", err)
	}
	t.Cleanup(func() { eng.Close(ctx) })

	mod, err := eng.LoadModule(ctx, mathWasm)
	if err != nil {
		t.Fatalf("LoadModule failed: %v", err)
	}
	inst, err := mod.Instantiate(ctx)
	if err != nil {
		t.Fatalf("Instantiate failed: %v", err)
	}
	return mod, inst
}

func TestNewWazeroEngineWithConfig(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		cfg  *Config
		name string
	}{
		{nil, "nil config"},
		{&Config{}, "default config"},
		{&Config{MemoryLimitPages: 256}, "16MB limit"},
		{&Config{CloseOnContextDone: true}, "close on done"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			engine, err := NewWazeroEngineWithConfig(ctx, tc.cfg)
			if err != nil {
				t.Fatalf("NewWazeroEngineWithConfig failed: %v", err)
			}
			defer engine.Close(ctx)

			if engine.runtime == nil {
				t.Error("engine runtime should not be nil")
			}
		})
	}
}

func TestWazeroEngine_Close(t *testing.T) {
	ctx := context.Background()

	engine, err := NewWazeroEngine(ctx)
	if err != nil {
		t.Fatalf("NewWazeroEngine failed: %v", err)
	}
	if err := engine.Close(ctx); err != nil {
		t.Errorf("Close failed: %v", err)
	}
	if err := engine.Close(ctx); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
	if _, err := engine.LoadModule(ctx, mathWasm); err == nil {
		t.Error("LoadModule on a closed engine should fail")
	}
}

func TestWazeroEngine_LoadModuleErrors(t *testing.T) {
	ctx := context.Background()
	engine, _ := NewWazeroEngine(ctx)
	defer engine.Close(ctx)

	for name, input := range map[string][]byte{
		"empty":   nil,
		"garbage": []byte("not wasm"),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := engine.LoadModule(ctx, input)
			var e *errors.Error
			if !errors.As(err, &e) || e.Phase != errors.PhaseLoad {
				t.Fatalf("expected load error, got %v", err)
			}
		})
	}
}

func TestWazeroModule_Exports(t *testing.T) {
	mod, _ := loadMath(t)

	exports := mod.Exports()
	if len(exports) != 2 {
		t.Fatalf("expected 2 exports, got %d", len(exports))
	}

	want := []string{"double(s32) -> s32", "half(f64) -> f64"}
	for i, x := range exports {
		if x.Signature() != want[i] {
			t.Errorf("export %d = %q, want %q", i, x.Signature(), want[i])
		}
	}

	if _, err := mod.Export("missing"); err == nil {
		t.Error("unknown export should fail")
	}
}

func TestWazeroInstance_Call(t *testing.T) {
	mod, inst := loadMath(t)
	ctx := context.Background()

	double, _ := mod.Export("double")
	half, _ := mod.Export("half")

	tests := []struct {
		name string
		x    Export
		arg  any
		want any
	}{
		{"int32", double, int32(21), int32(42)},
		{"negative", double, int32(-4), int32(-8)},
		{"converted int", double, 5, int32(10)},
		{"float", half, 3.0, 1.5},
		{"converted int to float", half, 7, 3.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := inst.Call(ctx, tt.x, tt.arg)
			if err != nil {
				t.Fatalf("Call failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("Call(%v) = %v (%T), want %v (%T)", tt.arg, got, got, tt.want, tt.want)
			}
		})
	}

	t.Run("arity", func(t *testing.T) {
		if _, err := inst.Call(ctx, double, int32(1), int32(2)); err == nil {
			t.Error("extra arguments should fail")
		}
	})
	t.Run("overflow", func(t *testing.T) {
		if _, err := inst.Call(ctx, double, int64(1)<<40); err == nil {
			t.Error("out of range argument should fail")
		}
	})
	t.Run("type mismatch", func(t *testing.T) {
		_, err := inst.Call(ctx, double, "x")
		var e *errors.Error
		if !errors.As(err, &e) || e.Kind != errors.KindTypeMismatch {
			t.Errorf("expected type mismatch, got %v", err)
		}
	})
}

func TestExport_WithSignature(t *testing.T) {
	mod, inst := loadMath(t)
	ctx := context.Background()
	double, _ := mod.Export("double")

	unsigned, err := double.WithSignature([]wit.Type{wit.U32{}}, []wit.Type{wit.U32{}})
	if err != nil {
		t.Fatalf("WithSignature failed: %v", err)
	}
	got, err := inst.Call(ctx, unsigned, uint32(7))
	if err != nil || got != uint32(14) {
		t.Fatalf("Call = %v, %v", got, err)
	}

	nonZero, err := double.WithSignature([]wit.Type{wit.Bool{}}, []wit.Type{wit.Bool{}})
	if err != nil {
		t.Fatalf("WithSignature failed: %v", err)
	}
	for _, b := range []bool{true, false} {
		if got, _ := inst.Call(ctx, nonZero, b); got != b {
			t.Errorf("bool round trip %v = %v", b, got)
		}
	}

	if _, err := double.WithSignature([]wit.Type{wit.F64{}}, []wit.Type{wit.S32{}}); err == nil {
		t.Error("f64 does not flatten to i32")
	}
	if _, err := double.WithSignature(nil, []wit.Type{wit.S32{}}); err == nil {
		t.Error("parameter count must match")
	}
	if _, err := double.WithSignature([]wit.Type{wit.String{}}, []wit.Type{wit.S32{}}); err == nil {
		t.Error("strings are not supported")
	}
	if _, err := (Export{Name: "loose"}).WithSignature(nil, nil); err == nil {
		t.Error("export without a core signature should fail")
	}
}

func TestBind_Dispatch(t *testing.T) {
	mod, inst := loadMath(t)
	ctx := context.Background()
	reg := types.NewRegistry()

	scale := dispatch.New("scale", reg)
	for _, x := range mod.Exports() {
		if _, err := Bind(scale, reg, inst, x); err != nil {
			t.Fatalf("Bind(%s) failed: %v", x.Name, err)
		}
	}
	_, err := scale.AddMethod(nil, func(ctx context.Context, _ any, args ...any) (any, error) {
		return "no wasm method", nil
	})
	if err != nil {
		t.Fatalf("AddMethod failed: %v", err)
	}

	tests := []struct {
		arg  any
		want any
	}{
		{int32(21), int32(42)},
		{2.0, 1.0},
		{21, "no wasm method"},
		{"x", "no wasm method"},
	}

	for _, tt := range tests {
		got, err := scale.Call(ctx, tt.arg)
		if err != nil {
			t.Fatalf("Call(%T) failed: %v", tt.arg, err)
		}
		if got != tt.want {
			t.Errorf("Call(%T %v) = %v, want %v", tt.arg, tt.arg, got, tt.want)
		}
	}

	methods := scale.Methods()
	if len(methods) != 2 || methods[0].String() != "scale(int32)" {
		t.Errorf("methods = %v", methods)
	}
}

func TestBind_NextMethodIntoWasm(t *testing.T) {
	mod, inst := loadMath(t)
	ctx := context.Background()
	reg := types.NewRegistry()
	double, _ := mod.Export("double")

	three, err := reg.Instance(int32(3))
	if err != nil {
		t.Fatalf("Instance failed: %v", err)
	}

	gf := dispatch.New("twiceplusone", reg)
	if _, err := Bind(gf, reg, inst, double); err != nil {
		t.Fatalf("Bind failed: %v", err)
	}
	_, err = gf.AddMethod([]genfun.Handle{three}, func(ctx context.Context, _ any, _ ...any) (any, error) {
		v, err := dispatch.CallNextMethod(ctx)
		if err != nil {
			return nil, err
		}
		return v.(int32) + 1, nil
	})
	if err != nil {
		t.Fatalf("AddMethod failed: %v", err)
	}

	if got, err := gf.Call(ctx, int32(3)); err != nil || got != int32(7) {
		t.Fatalf("Call(3) = %v, %v, want 7", got, err)
	}
	if got, err := gf.Call(ctx, int32(4)); err != nil || got != int32(8) {
		t.Fatalf("Call(4) = %v, %v, want 8", got, err)
	}
}

func TestWazeroInstance_ConcurrentCalls(t *testing.T) {
	mod, inst := loadMath(t)
	ctx := context.Background()
	double, _ := mod.Export("double")

	var wg sync.WaitGroup
	results := make([]any, 32)
	for n := range results {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			results[n], _ = inst.Call(ctx, double, int32(n))
		}(n)
	}
	wg.Wait()

	for n, got := range results {
		if got != int32(2*n) {
			t.Errorf("double(%d) = %v", n, got)
		}
	}
}
