package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Options struct {
	Constants ConstantsOptions `koanf:"constants"`
	Modules   ModulesOptions   `koanf:"modules"`
	Requires  RequiresOptions  `koanf:"requires"`
	Inspect   InspectOptions   `koanf:"inspect"`
	Log       LogOptions       `koanf:"log"`
}

type ConstantsOptions struct {
	Enabled bool `koanf:"enabled"`

	// Fully-qualified constructor names whose calls may be hoisted
	Types []string `koanf:"types"`

	// Every hoisted binding name starts with this
	KeyPrefix string `koanf:"key_prefix"`

	// A unit whose path starts with this receives the declarations placed in
	// its chunk instead of the chunk's first unit
	ConstantsUnitPrefix string `koanf:"constants_unit_prefix"`

	// The chunk that receives a constant whose users share no dependency. If
	// this is empty, such a constant fails the compilation.
	FallbackChunk string `koanf:"fallback_chunk"`

	// Declare keywords with the compact "shadow$keyword" helpers
	ShadowKeywords bool `koanf:"shadow_keywords"`

	// Only units whose path contains one of these substrings are searched for
	// constants. Empty means every unit.
	UnitFilter []string `koanf:"unit_filter"`
}

type ModulesOptions struct {
	Enabled bool `koanf:"enabled"`
}

type RequiresOptions struct {
	Enabled bool `koanf:"enabled"`

	// Replace the callee of a resolved string or number require with this
	// qualified name. Empty keeps the callee as written.
	RequireFn string `koanf:"require_fn"`

	// Qualified name of the runtime helper that loads a dynamically imported
	// module by id
	DynamicImportFn string `koanf:"dynamic_import_fn"`

	// Qualified names the dead-require classifier treats as require calls
	ClassifyNames []string `koanf:"classify_names"`

	// Physically remove bare require statements classified as dead
	RemoveDead bool `koanf:"remove_dead"`
}

type InspectOptions struct {
	// Maximum number of units inspected at once. Zero or less means one per
	// available CPU.
	Parallelism int `koanf:"parallelism"`
}

type LogOptions struct {
	// One of "debug", "info", "warn" or "error"
	Level string `koanf:"level"`

	// Either "console" or "json"
	Format string `koanf:"format"`

	Color bool `koanf:"color"`
}

func DefaultOptions() *Options {
	return &Options{
		Constants: ConstantsOptions{
			Enabled:             true,
			Types:               []string{"cljs.core.Keyword", "cljs.core.Symbol"},
			KeyPrefix:           "cljs$cst$",
			ConstantsUnitPrefix: "shadow/cljs/constants/",
		},
		Modules: ModulesOptions{
			Enabled: true,
		},
		Requires: RequiresOptions{
			Enabled:         true,
			RequireFn:       "shadow.js.require",
			DynamicImportFn: "shadow.esm.dynamic_import",
			ClassifyNames:   []string{"shadow.js.require", "shadow.js.jsRequire"},
			RemoveDead:      true,
		},
		Log: LogOptions{
			Level:  "info",
			Format: "console",
			Color:  true,
		},
	}
}

// Loads options from a TOML, YAML or JSON file on top of the defaults. The
// format is chosen by file extension.
func Load(path string) (*Options, error) {
	k := koanf.New(".")
	options := DefaultOptions()

	var parser koanf.Parser
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		parser = toml.Parser()
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config file extension in %q", path)
	}

	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	if err := k.Unmarshal("", options); err != nil {
		return nil, err
	}
	if err := options.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return options, nil
}

var configNames = []string{
	"chunkpass.toml",
	"chunkpass.yaml",
	"chunkpass.yml",
	"chunkpass.json",
}

// Looks for a config file in "dir". Returns the defaults and an empty path if
// there is none.
func Find(dir string) (*Options, string, error) {
	for _, name := range configNames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			options, err := Load(path)
			return options, path, err
		}
	}
	return DefaultOptions(), "", nil
}

func (options *Options) Validate() error {
	if options.Constants.Enabled {
		if len(options.Constants.Types) == 0 {
			return fmt.Errorf("constants.types must not be empty")
		}
		for _, name := range options.Constants.Types {
			if !isQualifiedName(name) {
				return fmt.Errorf("constants.types: %q is not a qualified name", name)
			}
		}
	}
	if options.Requires.RequireFn != "" && !isQualifiedName(options.Requires.RequireFn) {
		return fmt.Errorf("requires.require_fn: %q is not a qualified name", options.Requires.RequireFn)
	}
	if !isQualifiedName(options.Requires.DynamicImportFn) {
		return fmt.Errorf("requires.dynamic_import_fn: %q is not a qualified name", options.Requires.DynamicImportFn)
	}
	switch options.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level: unknown level %q", options.Log.Level)
	}
	switch options.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("log.format: unknown format %q", options.Log.Format)
	}
	return nil
}

func isQualifiedName(name string) bool {
	if name == "" {
		return false
	}
	for _, part := range strings.Split(name, ".") {
		if part == "" || strings.ContainsAny(part, " \t\n()[]{}\"'`,;") {
			return false
		}
	}
	return true
}
