package cliapp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	coreapp "crashmap/internal/core/app"
	"crashmap/internal/core/config"
	"crashmap/internal/shared/observability"
	"crashmap/internal/ui/report"

	"github.com/spf13/cobra"
)

// Run executes the command line and returns the process exit code: 0 on
// success, 1 when the run fails and 2 for invalid flags.
func Run(args []string) int {
	return run(context.Background(), args, os.Stdout, os.Stderr)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	var opts cliOptions
	code := 0
	cmd := newRootCommand(&opts, func(cmd *cobra.Command) error {
		code = execute(cmd.Context(), opts, stdout, stderr)
		return nil
	})
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(stderr, "Error:", err.Error())
		var fe *flagError
		if errors.As(err, &fe) {
			fmt.Fprintln(stderr, cmd.UsageString())
			return 2
		}
		return 1
	}
	return code
}

func execute(ctx context.Context, opts cliOptions, stdout, stderr io.Writer) int {
	if opts.version {
		fmt.Fprintf(stdout, "crashmap v%s\n", versionString)
		return 0
	}

	cfg, cfgPath, err := config.LoadOrDefault(opts.configPath)
	if err != nil {
		fmt.Fprintln(stderr, "failed to load config:", err.Error())
		return 1
	}
	config.ApplyEnvOverrides(cfg)
	if err := applyOptions(opts, cfg); err != nil {
		fmt.Fprintln(stderr, err.Error())
		return 2
	}
	if err := config.Finalize(cfg); err != nil {
		fmt.Fprintln(stderr, err.Error())
		return 1
	}

	configureLogging(cfg.LogLevel, stderr)
	if cfgPath != "" {
		slog.Debug("loaded config", "path", cfgPath)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := setupTracing(ctx, cfg)
	if err != nil {
		slog.Error("failed to initialize tracing", "error", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			slog.Warn("failed to flush traces", "error", err)
		}
	}()

	app, err := coreapp.New(cfg)
	if err != nil {
		slog.Error("failed to initialize app", "error", err)
		return 1
	}
	logger := slog.With("run_id", app.RunID())

	server, err := startObservability(ctx, cfg, app)
	if err != nil {
		logger.Error("failed to start observability server", "error", err)
		return 1
	}
	if server != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = server.Stop(shutdownCtx)
		}()
	}

	summary, err := app.Run(ctx)
	if cfg.Output.SummaryEnabled() {
		_ = report.PrintSummary(stdout, summary)
	}
	if err != nil {
		logger.Error("run failed", "error", err)
		return 1
	}

	if !cfg.Watch.Enabled {
		return 0
	}

	err = app.Watch(ctx, func(s report.Summary) {
		logger.Info("processed changed crash logs",
			"documents", s.Documents, "resolved", s.Resolved, "unresolved", s.Unresolved, "written", len(s.Written))
	})
	if err != nil {
		logger.Error("watch failed", "error", err)
		return 1
	}
	return 0
}

func setupTracing(ctx context.Context, cfg *config.Config) (observability.ShutdownFunc, error) {
	if !cfg.Observability.Enabled || !cfg.Observability.EnableTracing {
		return func(context.Context) error { return nil }, nil
	}
	return observability.InitTracing(ctx, cfg.Observability.OTLPEndpoint, cfg.Observability.ServiceName)
}

func startObservability(ctx context.Context, cfg *config.Config, app *coreapp.App) (*ObservabilityServer, error) {
	if !cfg.Observability.Enabled || cfg.Observability.Port <= 0 {
		return nil, nil
	}
	addr := ":" + strconv.Itoa(cfg.Observability.Port)
	server := NewObservabilityServer(addr, coreapp.NewHealthService(app), cfg.Observability.MetricsEnabled())
	if err := server.Start(ctx); err != nil {
		return nil, err
	}
	return server, nil
}

// configureLogging installs the default slog logger. "off" discards every
// record.
func configureLogging(level string, output io.Writer) {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	case "off":
		output = io.Discard
	default:
		logLevel = slog.LevelInfo
	}

	logger := slog.New(slog.NewTextHandler(output, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)
}
