// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/smukherj1/srm/internal/issue"
	"github.com/smukherj1/srm/pkg/cueutil"

	"github.com/spf13/viper"
)

const (
	// AppName is the application name.
	AppName = "srm"
	// DefaultFileName is the config file name inside the home directory.
	DefaultFileName = ".srm.json"
	// PathEnvVar overrides the config file location.
	PathEnvVar = "SRM_CONFIG"
	// EnvPrefix prefixes environment overrides of individual keys.
	EnvPrefix = "SRM"

	keyResourceDefs = "resource_defs"
	keyDBPath       = "db_path"

	defaultDBName = "srm.db"
)

var (
	// ErrConfigNotFound is returned when the config file does not exist.
	ErrConfigNotFound = errors.New("config file not found")
	// ErrEmptyResourceDefs is returned when resource_defs is set to "".
	ErrEmptyResourceDefs = errors.New("resource_defs must not be empty")

	//go:embed config_schema.cue
	configSchema []byte
)

// Config is the resolved srm configuration. Paths are absolute or relative
// as written, with a leading ~ expanded.
type Config struct {
	// ResourceDefs is the root directory of resource definitions.
	ResourceDefs string `mapstructure:"resource_defs" json:"resource_defs"`
	// DBPath is the resource catalog database.
	DBPath string `mapstructure:"db_path" json:"db_path"`
}

// DefaultConfig returns the configuration used for keys the file omits.
// db_path is derived from resource_defs after loading.
func DefaultConfig() *Config {
	return &Config{ResourceDefs: filepath.Join("~", "."+AppName)}
}

// envKey returns the environment variable that overrides a config key,
// e.g. SRM_RESOURCE_DEFS for resource_defs.
func envKey(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(key)
}

// DefaultPath returns ~/.srm.json for the given home directory.
func DefaultPath(home string) string {
	return filepath.Join(home, DefaultFileName)
}

// loadWithOptions reads, validates and resolves the configuration. It returns
// the config and the file it was read from.
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	home, err := opts.homeDir()
	if err != nil {
		return nil, "", err
	}

	path := opts.ConfigFilePath
	if path == "" {
		path = opts.getenv(PathEnvVar)
	}
	if path == "" {
		path = DefaultPath(home)
	}
	path = expandHome(path, home)

	v := viper.New()
	defaults := DefaultConfig()
	v.SetDefault(keyResourceDefs, defaults.ResourceDefs)
	v.SetDefault(keyDBPath, defaults.DBPath)

	if err := loadJSONIntoViper(v, path); err != nil {
		return nil, path, issue.NewErrorContext().
			WithOperation("load configuration").
			WithResource(path).
			WithIssue(issue.ConfigLoadFailedId).
			WithSuggestion("Check that the file exists and is valid JSON").
			WithSuggestion("Pass another file with -c/--config or " + PathEnvVar).
			Wrap(err).
			BuildError()
	}

	// SRM_RESOURCE_DEFS and SRM_DB_PATH override the file. They are read
	// through opts so that SRM_CONFIG and the overrides share one source.
	for _, key := range []string{keyResourceDefs, keyDBPath} {
		if val := opts.getenv(envKey(key)); val != "" {
			v.Set(key, val)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, path, fmt.Errorf("failed to parse config: %w", err)
	}

	if strings.TrimSpace(cfg.ResourceDefs) == "" {
		return nil, path, issue.NewErrorContext().
			WithOperation("validate configuration").
			WithResource(path).
			WithIssue(issue.ResourceDefsMissingId).
			WithSuggestion("Set " + keyResourceDefs + " to the directory holding your resource definitions").
			Wrap(ErrEmptyResourceDefs).
			BuildError()
	}

	cfg.ResourceDefs = expandHome(cfg.ResourceDefs, home)
	if cfg.DBPath == "" {
		cfg.DBPath = filepath.Join(cfg.ResourceDefs, defaultDBName)
	}
	cfg.DBPath = expandHome(cfg.DBPath, home)

	return &cfg, path, nil
}

// loadJSONIntoViper validates the JSON file at path against #Config and
// merges it into v, keeping defaults for omitted keys.
func loadJSONIntoViper(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	result, err := cueutil.ParseAndDecode[map[string]any](configSchema, data, "#Config",
		cueutil.WithJSON(),
		cueutil.WithFilename(path),
	)
	if err != nil {
		return err
	}

	if err := v.MergeConfigMap(*result.Value); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}
	return nil
}

// expandHome replaces a leading "~" or "~/" with home.
func expandHome(path, home string) string {
	switch {
	case path == "~":
		return home
	case strings.HasPrefix(path, "~/"), strings.HasPrefix(path, "~"+string(filepath.Separator)):
		return filepath.Join(home, path[2:])
	default:
		return path
	}
}
