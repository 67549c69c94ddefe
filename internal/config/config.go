// Package config loads settings from defaults, an optional YAML file,
// environment variables, and command-line flags, in that order of
// precedence (later wins).
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/lineagraph/lineagraph/pkg/core"
)

// Defaults.
const (
	DefaultStatePath      = ".lineagraph/graph.db"
	DefaultSchema         = "public"
	DefaultDialect        = "postgres"
	DefaultTraversalDepth = 5
)

// envPrefix namespaces environment overrides, e.g.
// LINEAGRAPH_SOURCE__HOST maps to source.host.
const envPrefix = "LINEAGRAPH_"

// configFileNames are probed in the working directory when --config is
// not given.
var configFileNames = []string{"lineagraph.yaml", "lineagraph.yml"}

// SourceConfig holds the connection settings of the source database.
type SourceConfig struct {
	Name     string   `koanf:"name"`
	Platform string   `koanf:"platform"`
	Host     string   `koanf:"host"`
	Port     int      `koanf:"port"`
	Database string   `koanf:"database"`
	User     string   `koanf:"user"`
	Password string   `koanf:"password"`
	Schemas  []string `koanf:"schemas"`
}

// Config is the full runtime configuration.
type Config struct {
	Source               SourceConfig `koanf:"source"`
	DefaultSchema        string       `koanf:"default_schema"`
	Dialect              string       `koanf:"dialect"`
	IncludeColumnLineage bool         `koanf:"include_column_lineage"`
	StatePath            string       `koanf:"state_path"`
	MaxDepth             int          `koanf:"max_depth"`
	Verbose              bool         `koanf:"verbose"`
}

func defaults() map[string]any {
	return map[string]any{
		"source.platform":        string(core.PlatformPostgreSQL),
		"source.port":            5432,
		"default_schema":         DefaultSchema,
		"dialect":                DefaultDialect,
		"include_column_lineage": true,
		"state_path":             DefaultStatePath,
		"max_depth":              DefaultTraversalDepth,
		"verbose":                false,
	}
}

// flagMapping translates kebab-case flag names to config keys.
var flagMapping = map[string]string{
	"state":                  "state_path",
	"schema":                 "default_schema",
	"depth":                  "max_depth",
	"include-column-lineage": "include_column_lineage",
}

// Load builds the configuration. cfgFile may be empty, in which case
// the default file names are probed; a missing default file is fine, a
// missing explicit file is an error.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	path, explicit := cfgFile, cfgFile != ""
	if !explicit {
		for _, name := range configFileNames {
			if _, err := os.Stat(name); err == nil {
				path = name
				break
			}
		}
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			if explicit || !os.IsNotExist(err) {
				return nil, fmt.Errorf("load config file %s: %w", path, err)
			}
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", func(key string) string {
		key = strings.ToLower(strings.TrimPrefix(key, envPrefix))
		return strings.ReplaceAll(key, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	if flags != nil {
		provider := posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			if !f.Changed {
				return "", nil
			}
			key := f.Name
			if mapped, ok := flagMapping[key]; ok {
				key = mapped
			} else {
				key = strings.ReplaceAll(key, "-", "_")
			}
			return key, posflag.FlagVal(flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, fmt.Errorf("load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}
