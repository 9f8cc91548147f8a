package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.bytecodealliance.org/wit"
	"go.uber.org/zap"

	"github.com/wippyai/genfun/errors"
)

// WazeroEngine compiles and instantiates core wasm modules whose exports
// serve as method bodies.
type WazeroEngine struct {
	runtime wazero.Runtime
	closed  atomic.Bool
}

// Config holds configuration for engine creation
type Config struct {
	// MemoryLimitPages sets the maximum memory per instance in pages (64KB each).
	// 0 means default (65536 pages = 4GB).
	MemoryLimitPages uint32

	// CloseOnContextDone aborts running wasm calls when their context is done.
	CloseOnContextDone bool
}

// NewWazeroEngine creates a new wazero-based engine
func NewWazeroEngine(ctx context.Context) (*WazeroEngine, error) {
	return NewWazeroEngineWithConfig(ctx, nil)
}

// NewWazeroEngineWithConfig creates a new engine with custom configuration
func NewWazeroEngineWithConfig(ctx context.Context, cfg *Config) (*WazeroEngine, error) {
	runtimeCfg := wazero.NewRuntimeConfig()

	if cfg != nil {
		if cfg.MemoryLimitPages > 0 {
			runtimeCfg = runtimeCfg.WithMemoryLimitPages(cfg.MemoryLimitPages)
		}
		if cfg.CloseOnContextDone {
			runtimeCfg = runtimeCfg.WithCloseOnContextDone(true)
		}
	}

	runtime := wazero.NewRuntimeWithConfig(ctx, runtimeCfg)
	return &WazeroEngine{runtime: runtime}, nil
}

// LoadModule compiles a core wasm module.
func (e *WazeroEngine) LoadModule(ctx context.Context, wasmBytes []byte) (*WazeroModule, error) {
	if e.closed.Load() {
		return nil, errors.Load("engine is closed", nil)
	}
	if len(wasmBytes) == 0 {
		return nil, errors.Load("empty module", nil)
	}

	compiled, err := e.runtime.CompileModule(ctx, wasmBytes)
	if err != nil {
		return nil, errors.Load("compile failed", err)
	}

	m := &WazeroModule{engine: e, compiled: compiled}
	m.exports = collectExports(compiled.ExportedFunctions())

	Logger().Debug("module loaded",
		zap.String("name", compiled.Name()),
		zap.Int("exports", len(m.exports)))
	return m, nil
}

// Close releases the runtime and every module compiled or instantiated by it.
func (e *WazeroEngine) Close(ctx context.Context) error {
	if !e.closed.CompareAndSwap(false, true) {
		return nil
	}
	return e.runtime.Close(ctx)
}

// Export describes an exported function usable as a method body.
// Params and Results are WIT primitive types; by default they are derived
// from the core signature (i32 as s32, i64 as s64).
type Export struct {
	Name    string
	Params  []wit.Type
	Results []wit.Type
	core    api.FunctionDefinition
}

// Signature renders the export as "name(s32, f64) -> f64".
func (x Export) Signature() string {
	s := x.Name + "("
	for i, p := range x.Params {
		if i > 0 {
			s += ", "
		}
		s += TypeName(p)
	}
	s += ")"
	switch len(x.Results) {
	case 0:
	case 1:
		s += " -> " + TypeName(x.Results[0])
	default:
		s += " -> ("
		for i, r := range x.Results {
			if i > 0 {
				s += ", "
			}
			s += TypeName(r)
		}
		s += ")"
	}
	return s
}

// WithSignature returns a copy of x typed with params and results. Each
// type must flatten to the core type at the same position, so an i32
// parameter may be retyped as bool, u8, u32 and so on.
func (x Export) WithSignature(params, results []wit.Type) (Export, error) {
	if x.core == nil {
		return x, errors.NotFound(errors.PhaseLoad, "export", x.Name)
	}
	if err := matchFlat(x.Name, "parameter", params, x.core.ParamTypes()); err != nil {
		return x, err
	}
	if err := matchFlat(x.Name, "result", results, x.core.ResultTypes()); err != nil {
		return x, err
	}
	x.Params = append([]wit.Type(nil), params...)
	x.Results = append([]wit.Type(nil), results...)
	return x, nil
}

func matchFlat(name, what string, types []wit.Type, core []api.ValueType) error {
	if len(types) != len(core) {
		return errors.New(errors.PhaseLoad, errors.KindTypeMismatch).
			Function(name).
			Detail("%d %ss declared, core signature has %d", len(types), what, len(core)).
			Build()
	}
	for i, t := range types {
		vt, ok := flatType(t)
		if !ok {
			return errors.Unsupported(errors.PhaseLoad, fmt.Sprintf("%s %d of %s: %s", what, i, name, TypeName(t)))
		}
		if vt != core[i] {
			return errors.New(errors.PhaseLoad, errors.KindTypeMismatch).
				Function(name).
				Detail("%s %d: %s does not flatten to %s", what, i, TypeName(t), api.ValueTypeName(core[i])).
				Build()
		}
	}
	return nil
}

// collectExports keeps the exports whose core signature maps onto WIT
// primitives, sorted by name.
func collectExports(defs map[string]api.FunctionDefinition) []Export {
	exports := make([]Export, 0, len(defs))
	for name, def := range defs {
		exp := Export{Name: name, core: def}
		ok := true
		for _, vt := range def.ParamTypes() {
			t, supported := witType(vt)
			if !supported {
				ok = false
				break
			}
			exp.Params = append(exp.Params, t)
		}
		for _, vt := range def.ResultTypes() {
			t, supported := witType(vt)
			if !supported {
				ok = false
				break
			}
			exp.Results = append(exp.Results, t)
		}
		if !ok {
			Logger().Debug("skipping export with unsupported signature", zap.String("export", name))
			continue
		}
		exports = append(exports, exp)
	}
	sort.Slice(exports, func(i, j int) bool { return exports[i].Name < exports[j].Name })
	return exports
}

// WazeroModule is a compiled WASM module
type WazeroModule struct {
	engine   *WazeroEngine
	compiled wazero.CompiledModule
	exports  []Export
}

// Exports returns the exports usable as method bodies, sorted by name.
func (m *WazeroModule) Exports() []Export {
	return append([]Export(nil), m.exports...)
}

// Export returns the export called name.
func (m *WazeroModule) Export(name string) (Export, error) {
	for _, x := range m.exports {
		if x.Name == name {
			return x, nil
		}
	}
	return Export{}, errors.NotFound(errors.PhaseLoad, "export", name)
}

// Instantiate creates an anonymous instance of the module.
func (m *WazeroModule) Instantiate(ctx context.Context) (*WazeroInstance, error) {
	mod, err := m.engine.runtime.InstantiateModule(ctx, m.compiled, wazero.NewModuleConfig().WithName(""))
	if err != nil {
		return nil, errors.Instantiation(err)
	}
	return &WazeroInstance{
		module: mod,
		funcs:  make(map[string]api.Function),
	}, nil
}

// Close releases the compiled module.
func (m *WazeroModule) Close(ctx context.Context) error {
	return m.compiled.Close(ctx)
}

// WazeroInstance is a running WASM instance. Calls into it are serialized.
type WazeroInstance struct {
	module api.Module
	funcs  map[string]api.Function
	mu     sync.Mutex
}

// Call invokes an export with Go arguments. Each argument is converted to
// the corresponding parameter type first. A single result is returned as is,
// several as []any, none as nil.
func (i *WazeroInstance) Call(ctx context.Context, x Export, args ...any) (any, error) {
	if len(args) != len(x.Params) {
		return nil, errors.New(errors.PhaseInvoke, errors.KindInvalidInput).
			Function(x.Name).
			Args(args...).
			Detail("takes %d arguments, got %d", len(x.Params), len(args)).
			Build()
	}

	stack := make([]uint64, len(args))
	for n, arg := range args {
		v, err := Convert(x.Params[n], arg)
		if err != nil {
			return nil, err
		}
		if stack[n], err = lower(x.Params[n], v); err != nil {
			return nil, err
		}
	}

	i.mu.Lock()
	fn, err := i.function(x.Name)
	if err != nil {
		i.mu.Unlock()
		return nil, err
	}
	raw, err := fn.Call(ctx, stack...)
	i.mu.Unlock()
	if err != nil {
		return nil, errors.New(errors.PhaseInvoke, errors.KindInstantiation).
			Function(x.Name).
			Args(args...).
			Cause(err).
			Detail("wasm call failed").
			Build()
	}

	if len(raw) != len(x.Results) {
		return nil, errors.TypeMismatch(errors.PhaseInvoke,
			fmt.Sprintf("%d results", len(x.Results)), fmt.Sprintf("%d", len(raw)))
	}
	results := make([]any, len(raw))
	for n := range raw {
		if results[n], err = lift(x.Results[n], raw[n]); err != nil {
			return nil, err
		}
	}
	switch len(results) {
	case 0:
		return nil, nil
	case 1:
		return results[0], nil
	default:
		return results, nil
	}
}

// function resolves an export. Must be called with i.mu held.
func (i *WazeroInstance) function(name string) (api.Function, error) {
	if fn, ok := i.funcs[name]; ok {
		return fn, nil
	}
	fn := i.module.ExportedFunction(name)
	if fn == nil {
		return nil, errors.NotFound(errors.PhaseInvoke, "export", name)
	}
	i.funcs[name] = fn
	return fn, nil
}

// Close closes the instance.
func (i *WazeroInstance) Close(ctx context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if err := i.module.Close(ctx); err != nil {
		Logger().Warn("failed to close instance", zap.Error(err))
		return err
	}
	return nil
}
