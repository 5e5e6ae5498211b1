package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/gobwas/glob"
)

const (
	DefaultConfigFile = "crashmap.toml"
	DefaultOutDir     = "dist"
)

type Config struct {
	Version       int           `toml:"version"`
	Crashlogs     []string      `toml:"crashlogs"`
	Projects      []string      `toml:"projects"`
	Cwd           string        `toml:"cwd"`
	OutDir        string        `toml:"out_dir"`
	LogLevel      string        `toml:"log_level"`
	Exclude       Exclude       `toml:"exclude"`
	Output        Output        `toml:"output"`
	Resolve       Resolve       `toml:"resolve"`
	Watch         Watch         `toml:"watch"`
	Observability Observability `toml:"observability"`
}

type Exclude struct {
	Dirs  []string `toml:"dirs"`
	Files []string `toml:"files"`
}

type Output struct {
	Clean   *bool `toml:"clean"`
	JSON    bool  `toml:"json"`
	Summary *bool `toml:"summary"`
}

type Resolve struct {
	Concurrency int `toml:"concurrency"`
}

type Watch struct {
	Enabled  bool          `toml:"enabled"`
	Debounce time.Duration `toml:"debounce"`
	Rate     float64       `toml:"rate"`
	Burst    int           `toml:"burst"`
}

type Observability struct {
	Enabled       bool   `toml:"enabled"`
	Port          int    `toml:"port"`
	OTLPEndpoint  string `toml:"otlp_endpoint"`
	EnableTracing bool   `toml:"enable_tracing"`
	EnableMetrics *bool  `toml:"enable_metrics"`
	ServiceName   string `toml:"service_name"`
}

func (o Output) CleanEnabled() bool {
	return o.Clean == nil || *o.Clean
}

func (o Output) SummaryEnabled() bool {
	return o.Summary == nil || *o.Summary
}

func (o Observability) MetricsEnabled() bool {
	return o.EnableMetrics == nil || *o.EnableMetrics
}

// Default returns a configuration with every default applied and no crash
// log globs or projects.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Version == 0 {
		cfg.Version = 1
	}
	if strings.TrimSpace(cfg.OutDir) == "" {
		cfg.OutDir = DefaultOutDir
	}
	if strings.TrimSpace(cfg.LogLevel) == "" {
		cfg.LogLevel = "info"
	}
	if cfg.Resolve.Concurrency <= 0 {
		cfg.Resolve.Concurrency = 16
	}
	// Default debounce if not set.
	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = 500 * time.Millisecond
	}
	if cfg.Watch.Rate <= 0 {
		cfg.Watch.Rate = 5
	}
	if cfg.Watch.Burst <= 0 {
		cfg.Watch.Burst = 10
	}
	if cfg.Observability.Port == 0 {
		cfg.Observability.Port = 9464
	}
	if strings.TrimSpace(cfg.Observability.ServiceName) == "" {
		cfg.Observability.ServiceName = "crashmap"
	}
}

func normalize(cfg *Config) {
	cfg.Crashlogs = trimEntries(cfg.Crashlogs)
	cfg.Projects = trimEntries(cfg.Projects)
	cfg.Cwd = strings.TrimSpace(cfg.Cwd)
	cfg.OutDir = strings.TrimSpace(cfg.OutDir)
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	cfg.Observability.OTLPEndpoint = strings.TrimSpace(cfg.Observability.OTLPEndpoint)
}

func trimEntries(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}

// Validate checks a fully merged configuration (file, environment and
// flags).
func Validate(cfg *Config) error {
	if err := validateVersion(cfg); err != nil {
		return err
	}
	if err := validateLogLevel(cfg); err != nil {
		return err
	}
	if err := validateResolve(cfg); err != nil {
		return err
	}
	if err := validateWatch(cfg); err != nil {
		return err
	}
	if err := validateObservability(cfg); err != nil {
		return err
	}
	return validateExclude(cfg)
}

func validateVersion(cfg *Config) error {
	if cfg.Version < 1 {
		return fmt.Errorf("version must be >= 1, got %d", cfg.Version)
	}
	if cfg.Version > 1 {
		return fmt.Errorf("unsupported config version %d; supported version is 1", cfg.Version)
	}
	return nil
}

func validateLogLevel(cfg *Config) error {
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "off":
		return nil
	}
	return fmt.Errorf("log_level must be one of: debug, info, warn, error, off")
}

func validateResolve(cfg *Config) error {
	if cfg.Resolve.Concurrency < 1 {
		return fmt.Errorf("resolve.concurrency must be >= 1, got %d", cfg.Resolve.Concurrency)
	}
	return nil
}

func validateWatch(cfg *Config) error {
	if cfg.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce must not be negative")
	}
	if cfg.Watch.Rate <= 0 {
		return fmt.Errorf("watch.rate must be > 0")
	}
	if cfg.Watch.Burst < 1 {
		return fmt.Errorf("watch.burst must be >= 1")
	}
	return nil
}

func validateObservability(cfg *Config) error {
	obs := cfg.Observability
	if obs.Port < 0 || obs.Port > 65535 {
		return fmt.Errorf("observability.port must be between 0 and 65535, got %d", obs.Port)
	}
	if obs.EnableTracing && obs.OTLPEndpoint == "" {
		return fmt.Errorf("observability.otlp_endpoint must not be empty when observability.enable_tracing=true")
	}
	return nil
}

func validateExclude(cfg *Config) error {
	for _, pattern := range append(append([]string(nil), cfg.Exclude.Dirs...), cfg.Exclude.Files...) {
		if _, err := glob.Compile(pattern); err != nil {
			return fmt.Errorf("invalid exclude pattern %q: %w", pattern, err)
		}
	}
	return nil
}
