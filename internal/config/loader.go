package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Environment variables read by Load.
const (
	EnvPrefix     = "SIMPLEHTTP_"
	EnvConfig     = EnvPrefix + "CONFIG"
	EnvEnvFile    = EnvPrefix + "ENV_FILE"
	EnvPort       = "PORT"
	defaultDotenv = ".env"
)

// Load builds a Config by layering defaults, an optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. config file (YAML or JSON, by extension) if SIMPLEHTTP_CONFIG is set
//  3. env (prefix SIMPLEHTTP_)
//  4. PORT
//
// Before layering, a dotenv file (SIMPLEHTTP_ENV_FILE, or ./.env when present)
// fills in environment variables that are not already set.
func Load(ctx context.Context) (*Config, error) {
	if err := loadDotenv(); err != nil {
		return nil, err
	}

	k := koanf.New(".")

	if path := os.Getenv(EnvConfig); path != "" {
		parser, err := parserFor(path)
		if err != nil {
			return nil, err
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// Environment variables: SIMPLEHTTP_LOG_LEVEL -> log_level (flat keys).
	// Preserve underscores to match koanf tags on the struct.
	prefixed := env.ProviderWithValue(EnvPrefix, ".", func(key, value string) (string, interface{}) {
		if strings.TrimSpace(value) == "" {
			return "", nil
		}
		return strings.TrimPrefix(strings.ToLower(key), strings.ToLower(EnvPrefix)), value
	})
	if err := k.Load(prefixed, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	// PORT is matched exactly; PORTAL_* and friends are ignored.
	port := env.ProviderWithValue(EnvPort, ".", func(key, value string) (string, interface{}) {
		value = strings.TrimSpace(value)
		if key != EnvPort || value == "" {
			return "", nil
		}
		return "port", value
	})
	if err := k.Load(port, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	// Unmarshal over a copy of the defaults. A non-numeric port fails here.
	cfg := *New()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// parserFor picks a koanf parser from the config file extension.
func parserFor(path string) (koanf.Parser, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Parser(), nil
	case ".json":
		return json.Parser(), nil
	default:
		return nil, fmt.Errorf("%w: unsupported config file type %q", ErrLoadConfig, path)
	}
}

// loadDotenv populates unset environment variables from a dotenv file.
// An explicit SIMPLEHTTP_ENV_FILE must exist; the implicit ./.env is optional.
func loadDotenv() error {
	path, explicit := os.LookupEnv(EnvEnvFile)
	if !explicit || path == "" {
		path = defaultDotenv
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			return nil
		}
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
	}
	return nil
}
