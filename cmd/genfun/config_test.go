package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseConfig_Default(t *testing.T) {
	cfg, err := ParseConfig([]byte(defaultConfig), "<builtin>")
	if err != nil {
		t.Fatalf("ParseConfig failed: %v", err)
	}

	if len(cfg.Types) != 3 || cfg.Types[2].Name != "Puppy" {
		t.Errorf("types = %+v", cfg.Types)
	}
	if diff := cmp.Diff([]string{"Dog"}, cfg.Types[2].Supers); diff != "" {
		t.Errorf("Puppy supers mismatch (-want +got):\n%s", diff)
	}
	if len(cfg.Functions) != 3 {
		t.Fatalf("expected 3 functions, got %d", len(cfg.Functions))
	}

	frob := cfg.Functions[0]
	if frob.Name != "frobnicate" || len(frob.Methods) != 6 {
		t.Errorf("frobnicate = %+v", frob)
	}
	if len(frob.Methods[4].Selector) != 0 {
		t.Errorf("default method selector = %v", frob.Methods[4].Selector)
	}
	if !cfg.Functions[1].Methods[2].Next {
		t.Error("Puppy method should call next")
	}
	if cfg.Wasm != nil {
		t.Error("default config has no wasm module")
	}
	if len(cfg.Calls) == 0 {
		t.Error("default config should carry calls")
	}
}

func TestParseConfig_Wasm(t *testing.T) {
	cfg, err := ParseConfig([]byte(`
wasm:
  path: math.wasm
  bind:
    - export: double
    - export: half
      function: scale
      params: [f64]
      results: [f64]
`), "test.yaml")
	if err != nil {
		t.Fatalf("ParseConfig failed: %v", err)
	}

	want := []BindConfig{
		{Export: "double", Function: "double"},
		{Export: "half", Function: "scale", Params: []string{"f64"}, Results: []string{"f64"}},
	}
	if diff := cmp.Diff(want, cfg.Wasm.Bind); diff != "" {
		t.Errorf("bind mismatch (-want +got):\n%s", diff)
	}
}

func TestParseConfig_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"bad yaml", "types: [", "parsing"},
		{"unnamed type", "types:\n  - supers: [Animal]", "name is required"},
		{"duplicate type", "types:\n  - name: A\n  - name: A", "duplicate type"},
		{"unnamed function", "functions:\n  - methods: []", "name is required"},
		{"duplicate function", "functions:\n  - name: f\n  - name: f", "duplicate function"},
		{"negative cache", "functions:\n  - name: f\n    max_cache_size: -1", "must not be negative"},
		{"wasm without path", "wasm:\n  bind: []", "path is required"},
		{"bind without export", "wasm:\n  path: m.wasm\n  bind:\n    - function: f", "export is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfig([]byte(tt.yaml), "test.yaml")
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q should contain %q", err, tt.want)
			}
			if !strings.Contains(err.Error(), "test.yaml") {
				t.Errorf("error %q should name the file", err)
			}
		})
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pg.yaml")
	if err := os.WriteFile(path, []byte("functions:\n  - name: f\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if len(cfg.Functions) != 1 || cfg.Functions[0].Name != "f" {
		t.Errorf("functions = %+v", cfg.Functions)
	}

	if _, err := LoadConfig(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("missing file should fail")
	}
}

func TestLoadConfig_WasmOverride(t *testing.T) {
	cfg, baseDir, err := loadConfig("", "other.wasm")
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if cfg.Wasm == nil || cfg.Wasm.Path != "other.wasm" {
		t.Errorf("wasm = %+v", cfg.Wasm)
	}
	if baseDir != "" {
		t.Errorf("-wasm paths are relative to the working directory, got base %q", baseDir)
	}
}
