package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is a playground definition: types, generic functions with canned
// method results, an optional wasm module and calls to run.
type Config struct {
	// Types are nominal types, declared in order. Supers must be declared
	// before the types that reference them.
	Types []TypeConfig `yaml:"types"`

	Functions []FunctionConfig `yaml:"functions"`

	Wasm *WasmConfig `yaml:"wasm,omitempty"`

	// Calls are run in order when no call is given on the command line.
	Calls []string `yaml:"calls,omitempty"`
}

// TypeConfig declares a nominal type.
type TypeConfig struct {
	Name   string   `yaml:"name"`
	Supers []string `yaml:"supers,omitempty"`
}

// FunctionConfig declares a generic function.
type FunctionConfig struct {
	Name string `yaml:"name"`

	// MaxCacheSize overrides the dispatch cache size.
	MaxCacheSize int `yaml:"max_cache_size,omitempty"`

	Methods []MethodConfig `yaml:"methods"`
}

// MethodConfig declares a method returning a fixed result.
type MethodConfig struct {
	// Selector names one type per argument position: a nominal type, a Go
	// type name (int, string, float64 ...), an instance literal prefixed
	// with '=', or "_" for any. An empty selector is the default method.
	Selector []string `yaml:"selector"`

	Result string `yaml:"result"`

	// Next appends " > " and the result of the next method.
	Next bool `yaml:"next,omitempty"`
}

// WasmConfig binds exports of a core wasm module as methods.
type WasmConfig struct {
	Path string `yaml:"path"`

	// Bind lists exports to bind. Empty binds every export to a generic
	// function of the same name.
	Bind []BindConfig `yaml:"bind,omitempty"`
}

// BindConfig binds one export.
type BindConfig struct {
	Export string `yaml:"export"`

	// Function defaults to the export name.
	Function string `yaml:"function,omitempty"`

	// Params and Results retype the export with WIT primitive names.
	Params  []string `yaml:"params,omitempty"`
	Results []string `yaml:"results,omitempty"`
}

// LoadConfig reads and parses a playground definition file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	return ParseConfig(data, path)
}

// ParseConfig parses playground YAML. The path argument is used only for
// error messages.
func ParseConfig(data []byte, path string) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := cfg.validate(path); err != nil {
		return nil, err
	}
	cfg.setDefaults()
	return &cfg, nil
}

func (c *Config) validate(path string) error {
	types := make(map[string]bool)
	for i, t := range c.Types {
		if t.Name == "" {
			return fmt.Errorf("%s: types[%d]: name is required", path, i)
		}
		if types[t.Name] {
			return fmt.Errorf("%s: types[%d]: duplicate type %q", path, i, t.Name)
		}
		types[t.Name] = true
	}

	funcs := make(map[string]bool)
	for i, f := range c.Functions {
		if f.Name == "" {
			return fmt.Errorf("%s: functions[%d]: name is required", path, i)
		}
		if funcs[f.Name] {
			return fmt.Errorf("%s: functions[%d]: duplicate function %q", path, i, f.Name)
		}
		funcs[f.Name] = true
		if f.MaxCacheSize < 0 {
			return fmt.Errorf("%s: function %q: max_cache_size must not be negative", path, f.Name)
		}
	}

	if c.Wasm != nil {
		if c.Wasm.Path == "" {
			return fmt.Errorf("%s: wasm: path is required", path)
		}
		for i, b := range c.Wasm.Bind {
			if b.Export == "" {
				return fmt.Errorf("%s: wasm.bind[%d]: export is required", path, i)
			}
		}
	}
	return nil
}

func (c *Config) setDefaults() {
	if c.Wasm == nil {
		return
	}
	for i := range c.Wasm.Bind {
		if c.Wasm.Bind[i].Function == "" {
			c.Wasm.Bind[i].Function = c.Wasm.Bind[i].Export
		}
	}
}

// defaultConfig is used when no -config is given.
const defaultConfig = `
types:
  - name: Animal
  - name: Dog
    supers: [Animal]
  - name: Puppy
    supers: [Dog]

functions:
  - name: frobnicate
    methods:
      - selector: [Number]
        result: num
      - selector: [string]
        result: str
      - selector: [string, Number]
        result: str+num
      - selector: [Number, string]
        result: num+str
      - selector: []
        result: default
      - selector: [Number, _, string]
        result: complex

  - name: speak
    methods:
      - selector: [Animal]
        result: "..."
      - selector: [Dog]
        result: woof
        next: true
      - selector: [Puppy]
        result: yip
        next: true

  - name: describe
    methods:
      - selector: [Integer]
        result: an integer
      - selector: ["=42"]
        result: the answer
        next: true
      - selector: [nil]
        result: nothing
      - selector: [undefined]
        result: missing

calls:
  - frobnicate 1
  - frobnicate "s"
  - frobnicate "s" 1
  - frobnicate 1 "s"
  - frobnicate 1 2
  - frobnicate true
  - frobnicate
  - frobnicate 1 true "s"
  - speak Puppy{rex}
  - speak Animal{}
  - describe 7
  - describe 42
  - describe nil
  - describe undefined
`
