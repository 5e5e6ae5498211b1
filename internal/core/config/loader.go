package config

import (
	"errors"
	"io/fs"
	"os"

	coreerrors "crashmap/internal/core/errors"

	"github.com/BurntSushi/toml"
)

// Load reads a TOML config file, applies defaults and validates it.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, coreerrors.AddContext(coreerrors.Wrap(err, coreerrors.CodeNotFound, "config file not found"), coreerrors.CtxPath, path)
		}
		return nil, err
	}

	var cfg Config
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, coreerrors.AddContext(coreerrors.Wrap(err, coreerrors.CodeValidationError, "invalid config file"), coreerrors.CtxPath, path)
	}

	applyDefaults(&cfg)
	normalize(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, coreerrors.Wrap(err, coreerrors.CodeValidationError, "invalid config")
	}
	return &cfg, nil
}

// LoadOrDefault loads path when it is set. An unset path falls back to
// DefaultConfigFile if present and to Default otherwise.
func LoadOrDefault(path string) (*Config, string, error) {
	if path != "" {
		cfg, err := Load(path)
		return cfg, path, err
	}
	if _, err := os.Stat(DefaultConfigFile); err == nil {
		cfg, err := Load(DefaultConfigFile)
		return cfg, DefaultConfigFile, err
	}
	return Default(), "", nil
}

// Finalize re-applies defaults and normalization after environment and flag
// overrides, then validates the result.
func Finalize(cfg *Config) error {
	applyDefaults(cfg)
	normalize(cfg)
	if err := Validate(cfg); err != nil {
		return coreerrors.Wrap(err, coreerrors.CodeValidationError, "invalid config")
	}
	return nil
}
