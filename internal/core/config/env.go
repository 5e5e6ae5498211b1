package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnvOverrides applies environment variable overrides to the configuration.
// Pattern: CRASHMAP_[SECTION]_[KEY] (e.g., CRASHMAP_OBSERVABILITY_PORT).
// List values are comma separated.
func ApplyEnvOverrides(cfg *Config) {
	setEnvList(&cfg.Crashlogs, "CRASHMAP_CRASHLOGS")
	setEnvList(&cfg.Projects, "CRASHMAP_PROJECTS")
	setEnvString(&cfg.Cwd, "CRASHMAP_CWD")
	setEnvString(&cfg.OutDir, "CRASHMAP_OUT_DIR")
	setEnvString(&cfg.LogLevel, "CRASHMAP_LOG_LEVEL")

	// Output
	setEnvBoolPtr(&cfg.Output.Clean, "CRASHMAP_OUTPUT_CLEAN")
	setEnvBool(&cfg.Output.JSON, "CRASHMAP_OUTPUT_JSON")
	setEnvBoolPtr(&cfg.Output.Summary, "CRASHMAP_OUTPUT_SUMMARY")

	// Resolve
	setEnvInt(&cfg.Resolve.Concurrency, "CRASHMAP_RESOLVE_CONCURRENCY")

	// Watch
	setEnvBool(&cfg.Watch.Enabled, "CRASHMAP_WATCH_ENABLED")
	setEnvDuration(&cfg.Watch.Debounce, "CRASHMAP_WATCH_DEBOUNCE")
	setEnvFloat64(&cfg.Watch.Rate, "CRASHMAP_WATCH_RATE")
	setEnvInt(&cfg.Watch.Burst, "CRASHMAP_WATCH_BURST")

	// Observability
	setEnvBool(&cfg.Observability.Enabled, "CRASHMAP_OBSERVABILITY_ENABLED")
	setEnvInt(&cfg.Observability.Port, "CRASHMAP_OBSERVABILITY_PORT")
	setEnvString(&cfg.Observability.OTLPEndpoint, "CRASHMAP_OBSERVABILITY_OTLP_ENDPOINT")
	setEnvBool(&cfg.Observability.EnableTracing, "CRASHMAP_OBSERVABILITY_ENABLE_TRACING")
	setEnvBoolPtr(&cfg.Observability.EnableMetrics, "CRASHMAP_OBSERVABILITY_ENABLE_METRICS")
	setEnvString(&cfg.Observability.ServiceName, "CRASHMAP_OBSERVABILITY_SERVICE_NAME")
}

func setEnvString(target *string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		slog.Debug("applying env override", "key", key, "value", val)
		*target = val
	}
}

func setEnvList(target *[]string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		slog.Debug("applying env override", "key", key, "value", val)
		*target = trimEntries(strings.Split(val, ","))
	}
}

func setEnvInt(target *int, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = i
		}
	}
}

func setEnvBool(target *bool, key string) {
	if val, ok := os.LookupEnv(key); ok {
		b, err := strconv.ParseBool(strings.ToLower(val))
		if err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = b
		}
	}
}

func setEnvBoolPtr(target **bool, key string) {
	if val, ok := os.LookupEnv(key); ok {
		b, err := strconv.ParseBool(strings.ToLower(val))
		if err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = &b
		}
	}
}

func setEnvFloat64(target *float64, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = f
		}
	}
}

func setEnvDuration(target *time.Duration, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = d
		}
	}
}
