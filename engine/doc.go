// Package engine runs WebAssembly exports as generic function methods.
//
// Modules are compiled and instantiated with wazero. Exports whose core
// signature uses only numeric types are described by Export with WIT
// primitive parameter and result types; i32 and i64 default to s32 and s64
// and may be retyped with Export.WithSignature as long as every type
// flattens to the same core type.
//
// # Binding
//
//	eng, _ := engine.NewWazeroEngine(ctx)
//	defer eng.Close(ctx)
//
//	mod, _ := eng.LoadModule(ctx, wasmBytes)
//	inst, _ := mod.Instantiate(ctx)
//
//	scale := dispatch.New("scale", reg)
//	double, _ := mod.Export("double")
//	engine.Bind(scale, reg, inst, double) // selector: (int32)
//
//	scale.Call(ctx, int32(21)) // 42
//
// Each WIT type selects on one Go type:
//
//	bool         bool
//	s8 u8        int8 uint8
//	s16 u16      int16 uint16
//	s32 u32      int32 uint32
//	s64 u64      int64 uint64
//	f32 f64      float32 float64
//	char         int32
//
// Calls on an instance are serialized. Strings and compound types are not
// supported since they need a linear memory allocator in the module.
package engine
