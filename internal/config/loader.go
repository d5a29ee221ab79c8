package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix = "FAIRWAY_"
	// EnvConfigFile names the YAML file to load when no explicit path is given.
	EnvConfigFile = envPrefix + "CONFIG"
)

// LoadOption adjusts Load.
type LoadOption func(*loadSettings)

type loadSettings struct {
	path string
}

// FromFile loads path instead of the file named by FAIRWAY_CONFIG.
func FromFile(path string) LoadOption {
	return func(s *loadSettings) {
		s.path = path
	}
}

// Load builds a Config by layering defaults, an optional file and env vars.
// Order of precedence (low -> high):
//  1. defaults (New(ctx))
//  2. file (YAML) from FromFile or FAIRWAY_CONFIG
//  3. env (prefix FAIRWAY_, "__" separates nested keys, e.g.
//     FAIRWAY_SCORING__COVERAGE_THRESHOLD)
func Load(ctx context.Context, opts ...LoadOption) (*Config, error) {
	s := loadSettings{path: os.Getenv(EnvConfigFile)}
	for _, opt := range opts {
		opt(&s)
	}

	base := New(ctx)
	k := koanf.New(".")

	if s.path != "" {
		if err := k.Load(file.Provider(s.path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrLoadConfig, s.path, err)
		}
	}

	envProvider := env.Provider(envPrefix, ".", func(key string) string {
		key = strings.TrimPrefix(strings.ToLower(key), strings.ToLower(envPrefix))
		return strings.ReplaceAll(key, "__", ".")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %v", ErrLoadConfig, err)
	}
	// the file path itself is not a config key
	k.Delete("config")

	cfg := *base
	// lists given by the file or env replace the defaults instead of merging
	for key, reset := range map[string]func(){
		"template_paths":      func() { cfg.TemplatePaths = nil },
		"scoring.adjustments": func() { cfg.Scoring.Adjustments = nil },
		"validation.top_n":    func() { cfg.Validation.TopN = nil },
	} {
		if k.Exists(key) {
			reset()
		}
	}
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
