package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.bytecodealliance.org/wit"

	"github.com/wippyai/genfun"
	"github.com/wippyai/genfun/dispatch"
	"github.com/wippyai/genfun/engine"
	"github.com/wippyai/genfun/types"
)

// Playground holds the generic functions built from a Config.
type Playground struct {
	registry  *types.Registry
	functions map[string]*dispatch.GenericFunction
	names     []string
	engine    *engine.WazeroEngine
	instance  *engine.WazeroInstance
}

// CallResult describes one call made through the playground.
type CallResult struct {
	Value    any
	Function string
	Args     []any
	Methods  []string
}

// Build creates the registry, types and generic functions of cfg. Relative
// wasm paths are resolved against baseDir.
func Build(ctx context.Context, cfg *Config, baseDir string) (*Playground, error) {
	p := &Playground{
		registry:  types.NewRegistry(),
		functions: make(map[string]*dispatch.GenericFunction),
	}

	for _, t := range cfg.Types {
		supers := make([]genfun.Handle, len(t.Supers))
		for i, name := range t.Supers {
			h, err := resolveType(p.registry, name)
			if err != nil {
				return nil, fmt.Errorf("type %s: %w", t.Name, err)
			}
			supers[i] = h
		}
		if _, err := p.registry.Define(t.Name, supers...); err != nil {
			return nil, fmt.Errorf("type %s: %w", t.Name, err)
		}
	}

	for _, f := range cfg.Functions {
		gf := p.function(f.Name, f.MaxCacheSize)
		for i, m := range f.Methods {
			sel := make([]genfun.Handle, len(m.Selector))
			for n, word := range m.Selector {
				h, err := resolveType(p.registry, word)
				if err != nil {
					return nil, fmt.Errorf("%s method %d: %w", f.Name, i, err)
				}
				sel[n] = h
			}
			if _, err := gf.AddMethod(sel, cannedMethod(m)); err != nil {
				return nil, fmt.Errorf("%s method %d: %w", f.Name, i, err)
			}
		}
	}

	if cfg.Wasm != nil {
		path := cfg.Wasm.Path
		if !filepath.IsAbs(path) && baseDir != "" {
			path = filepath.Join(baseDir, path)
		}
		if err := p.loadWasm(ctx, path, cfg.Wasm.Bind); err != nil {
			p.Close(ctx)
			return nil, err
		}
	}
	return p, nil
}

func (p *Playground) function(name string, maxCache int) *dispatch.GenericFunction {
	if gf, ok := p.functions[name]; ok {
		return gf
	}
	opts := dispatch.DefaultOptions()
	if maxCache > 0 {
		opts.MaxCacheSize = maxCache
	}
	gf := dispatch.NewWithOptions(name, p.registry, opts)
	p.functions[name] = gf
	p.names = append(p.names, name)
	return gf
}

func cannedMethod(m MethodConfig) dispatch.MethodFunc {
	result, next := m.Result, m.Next
	return func(ctx context.Context, _ any, _ ...any) (any, error) {
		if !next {
			return result, nil
		}
		v, err := dispatch.CallNextMethod(ctx)
		if err != nil {
			return nil, err
		}
		return fmt.Sprintf("%s > %v", result, v), nil
	}
}

func (p *Playground) loadWasm(ctx context.Context, path string, binds []BindConfig) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read wasm: %w", err)
	}

	eng, err := engine.NewWazeroEngine(ctx)
	if err != nil {
		return fmt.Errorf("create engine: %w", err)
	}
	p.engine = eng

	mod, err := eng.LoadModule(ctx, data)
	if err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	inst, err := mod.Instantiate(ctx)
	if err != nil {
		return fmt.Errorf("instantiate %s: %w", path, err)
	}
	p.instance = inst

	if len(binds) == 0 {
		for _, x := range mod.Exports() {
			binds = append(binds, BindConfig{Export: x.Name, Function: x.Name})
		}
	}

	for _, b := range binds {
		x, err := mod.Export(b.Export)
		if err != nil {
			return err
		}
		if b.Params != nil || b.Results != nil {
			params, err := parseTypes(b.Params)
			if err != nil {
				return fmt.Errorf("bind %s: %w", b.Export, err)
			}
			results, err := parseTypes(b.Results)
			if err != nil {
				return fmt.Errorf("bind %s: %w", b.Export, err)
			}
			if x, err = x.WithSignature(params, results); err != nil {
				return fmt.Errorf("bind %s: %w", b.Export, err)
			}
		}
		if _, err := engine.Bind(p.function(b.Function, 0), p.registry, inst, x); err != nil {
			return fmt.Errorf("bind %s: %w", b.Export, err)
		}
	}
	return nil
}

func parseTypes(names []string) ([]wit.Type, error) {
	out := make([]wit.Type, len(names))
	for i, name := range names {
		t, err := engine.ParseType(name)
		if err != nil {
			return nil, err
		}
		out[i] = t
	}
	return out, nil
}

// Names returns the generic function names in definition order.
func (p *Playground) Names() []string {
	return append([]string(nil), p.names...)
}

// Function returns a generic function by name.
func (p *Playground) Function(name string) (*dispatch.GenericFunction, bool) {
	gf, ok := p.functions[name]
	return gf, ok
}

// Call parses and runs a call line of the form "function arg ...".
func (p *Playground) Call(ctx context.Context, line string) (*CallResult, error) {
	words, err := splitCall(line)
	if err != nil {
		return nil, err
	}
	if len(words) == 0 {
		return nil, fmt.Errorf("empty call")
	}
	return p.CallArgs(ctx, words[0], words[1:])
}

// CallArgs runs function with literal arguments.
func (p *Playground) CallArgs(ctx context.Context, function string, literals []string) (*CallResult, error) {
	gf, ok := p.functions[function]
	if !ok {
		return nil, fmt.Errorf("unknown function %q", function)
	}

	args := make([]any, len(literals))
	for i, lit := range literals {
		v, err := parseLiteral(p.registry, lit)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i+1, err)
		}
		args[i] = v
	}

	res := &CallResult{Function: function, Args: args}
	methods, err := gf.ApplicableMethods(args...)
	if err != nil {
		return res, err
	}
	for _, m := range methods {
		res.Methods = append(res.Methods, m.String())
	}

	res.Value, err = gf.Call(ctx, args...)
	return res, err
}

// Signature describes the methods of a function, one per line.
func (p *Playground) Signature(name string) string {
	gf, ok := p.functions[name]
	if !ok {
		return ""
	}
	var lines []string
	for _, m := range gf.Methods() {
		lines = append(lines, m.String())
	}
	if d := gf.DefaultMethod(); d != nil {
		lines = append(lines, d.String())
	}
	return strings.Join(lines, "\n")
}

// Close releases the wasm engine, if any.
func (p *Playground) Close(ctx context.Context) {
	if p.instance != nil {
		p.instance.Close(ctx)
	}
	if p.engine != nil {
		p.engine.Close(ctx)
	}
}

func (r *CallResult) String() string {
	args := make([]string, len(r.Args))
	for i, a := range r.Args {
		args[i] = formatValue(a)
	}
	return fmt.Sprintf("%s(%s) = %s", r.Function, strings.Join(args, ", "), formatValue(r.Value))
}

func formatValue(v any) string {
	switch x := v.(type) {
	case string:
		return fmt.Sprintf("%q", x)
	case nil:
		return "nil"
	default:
		return fmt.Sprintf("%v", x)
	}
}
