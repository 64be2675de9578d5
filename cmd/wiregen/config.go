package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"google.golang.org/protobuf/reflect/protoreflect"

	"github.com/jhump/protoschema/externtype"
)

// Config is the configuration of one wiregen run.
type Config struct {
	// ImportPaths are the directories searched for .proto files and their
	// imports.
	ImportPaths []string
	Targets     []Target
}

// Target is a set of .proto files generated into one output tree.
type Target struct {
	Name              string
	Files             []string
	Out               string
	ImportRoot        string
	KeepOneofWrappers bool
	NoWellKnownTypes  bool
	StrictFormatting  bool
	// Exclude lists fully-qualified names or prefixes of types that are not
	// generated.
	Exclude []string
	Extern  []externtype.Entry
}

type fileConfig struct {
	ImportPaths []string     `toml:"import_paths"`
	Targets     []fileTarget `toml:"target"`
}

type fileTarget struct {
	Name              string       `toml:"name"`
	Files             []string     `toml:"files"`
	Out               string       `toml:"out"`
	ImportRoot        string       `toml:"import_root"`
	KeepOneofWrappers bool         `toml:"keep_oneof_wrappers"`
	NoWellKnownTypes  bool         `toml:"no_well_known_types"`
	StrictFormatting  bool         `toml:"strict_formatting"`
	Exclude           []string     `toml:"exclude"`
	Extern            []fileExtern `toml:"extern"`
}

type fileExtern struct {
	Path   string `toml:"path"`
	Target string `toml:"target"`
}

const defaultOut = "gen"

func loadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return parseConfig(string(data), filepath.Dir(abs))
}

// parseConfig decodes a TOML configuration. Relative directories in it are
// resolved against dir, the directory holding the configuration file.
func parseConfig(data, dir string) (*Config, error) {
	var raw fileConfig
	meta, err := toml.Decode(data, &raw)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("parse config: unknown keys: %s", strings.Join(keys, ", "))
	}

	cfg := &Config{}
	for _, p := range normalizeList(raw.ImportPaths) {
		cfg.ImportPaths = append(cfg.ImportPaths, resolvePath(dir, p))
	}
	if len(cfg.ImportPaths) == 0 {
		cfg.ImportPaths = []string{dir}
	}

	if len(raw.Targets) == 0 {
		return nil, fmt.Errorf("config: no targets defined")
	}
	names := map[string]struct{}{}
	for i, rt := range raw.Targets {
		t := Target{
			Name:              strings.TrimSpace(rt.Name),
			Files:             normalizeList(rt.Files),
			Out:               strings.TrimSpace(rt.Out),
			ImportRoot:        strings.TrimSpace(rt.ImportRoot),
			KeepOneofWrappers: rt.KeepOneofWrappers,
			NoWellKnownTypes:  rt.NoWellKnownTypes,
			StrictFormatting:  rt.StrictFormatting,
			Exclude:           normalizeList(rt.Exclude),
		}
		if t.Name == "" {
			t.Name = fmt.Sprintf("target-%d", i+1)
		}
		if _, dup := names[t.Name]; dup {
			return nil, fmt.Errorf("config: duplicate target name %q", t.Name)
		}
		names[t.Name] = struct{}{}
		if len(t.Files) == 0 {
			return nil, fmt.Errorf("config: target %s: no files", t.Name)
		}
		if t.ImportRoot == "" {
			return nil, fmt.Errorf("config: target %s: import_root is required", t.Name)
		}
		if t.Out == "" {
			t.Out = defaultOut
		}
		t.Out = resolvePath(dir, t.Out)
		for _, e := range rt.Extern {
			t.Extern = append(t.Extern, externtype.Entry{
				Path:   strings.TrimSpace(e.Path),
				Target: strings.TrimSpace(e.Target),
			})
		}
		// report bad entries now rather than after compiling
		if _, err := externtype.New(t.Extern, !t.NoWellKnownTypes); err != nil {
			return nil, fmt.Errorf("config: target %s: %w", t.Name, err)
		}
		cfg.Targets = append(cfg.Targets, t)
	}
	return cfg, nil
}

// filter returns the generator filter for the target's exclusions, or nil
// if nothing is excluded.
func (t *Target) filter() func(protoreflect.FullName) bool {
	if len(t.Exclude) == 0 {
		return nil
	}
	prefixes := make([]string, len(t.Exclude))
	for i, e := range t.Exclude {
		prefixes[i] = strings.TrimPrefix(e, ".")
	}
	return func(name protoreflect.FullName) bool {
		for _, p := range prefixes {
			if string(name) == p || strings.HasPrefix(string(name), p+".") {
				return false
			}
		}
		return true
	}
}

func resolvePath(dir, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(dir, p)
}

func normalizeList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}
