package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/genfun/dispatch"
	"github.com/wippyai/genfun/engine"
)

type callList []string

func (c *callList) String() string { return strings.Join(*c, "; ") }

func (c *callList) Set(s string) error {
	*c = append(*c, s)
	return nil
}

func main() {
	var (
		configFile  = flag.String("config", "", "Playground definition (YAML); built-in demo if empty")
		wasmFile    = flag.String("wasm", "", "Core wasm module whose exports are bound as methods")
		list        = flag.Bool("list", false, "List generic functions and their methods and exit")
		explain     = flag.Bool("explain", false, "Print the applicable method chain of each call")
		verbose     = flag.Bool("v", false, "Log dispatch and engine events")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
		calls       callList
	)
	flag.Var(&calls, "call", "Call to run, e.g. 'frobnicate 1 \"s\"' (repeatable)")
	flag.Parse()

	if *verbose {
		logger, err := zap.NewDevelopment()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer logger.Sync() //nolint:errcheck
		dispatch.SetLogger(logger)
		engine.SetLogger(logger)
	}

	cfg, baseDir, err := loadConfig(*configFile, *wasmFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *interactive {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			fmt.Fprintln(os.Stderr, "Error: interactive mode needs a terminal")
			os.Exit(1)
		}
		if err := runInteractive(cfg, baseDir); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if len(calls) == 0 {
		calls = cfg.Calls
	}
	if err := run(cfg, baseDir, calls, *list, *explain); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(path, wasmFile string) (*Config, string, error) {
	var (
		cfg     *Config
		baseDir string
		err     error
	)
	if path == "" {
		cfg, err = ParseConfig([]byte(defaultConfig), "<builtin>")
	} else {
		cfg, err = LoadConfig(path)
		baseDir = filepath.Dir(path)
	}
	if err != nil {
		return nil, "", err
	}

	if wasmFile != "" {
		if cfg.Wasm == nil {
			cfg.Wasm = &WasmConfig{}
		}
		cfg.Wasm.Path = wasmFile
		baseDir = ""
	}
	return cfg, baseDir, nil
}

func run(cfg *Config, baseDir string, calls []string, listOnly, explain bool) error {
	ctx := context.Background()

	p, err := Build(ctx, cfg, baseDir)
	if err != nil {
		return fmt.Errorf("build: %w", err)
	}
	defer p.Close(ctx)

	if listOnly {
		for _, name := range p.Names() {
			fmt.Printf("%s\n", name)
			for _, line := range strings.Split(p.Signature(name), "\n") {
				if line != "" {
					fmt.Printf("  %s\n", line)
				}
			}
		}
		return nil
	}

	for _, line := range calls {
		res, err := p.Call(ctx, line)
		if err != nil {
			fmt.Printf("%s: error: %v\n", line, err)
			continue
		}
		fmt.Println(res)
		if explain {
			for i, m := range res.Methods {
				fmt.Printf("  %d. %s\n", i+1, m)
			}
		}
	}
	return nil
}
