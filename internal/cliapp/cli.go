package cliapp

import (
	"errors"

	"crashmap/internal/core/config"

	"github.com/spf13/cobra"
)

const versionString = "1.0.0"

type cliOptions struct {
	configPath string
	crashlogs  []string
	projects   []string
	outDir     string
	cwd        string
	json       bool
	watch      bool
	logLevel   string
	verbose    bool
	version    bool
	args       []string

	// --project values, appended after --projects
	projectAlias []string
	changed      map[string]bool
}

// flagError marks command line parse failures so Run can exit with 2.
type flagError struct {
	err error
}

func (e *flagError) Error() string { return e.err.Error() }
func (e *flagError) Unwrap() error { return e.err }

func newRootCommand(opts *cliOptions, run func(cmd *cobra.Command) error) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crashmap [crashlog globs...]",
		Short: "Rewrite Roku crash logs to point at your source code",
		Long: `crashmap reads Roku crash logs, finds every package path such as
pkg:/source/main.brs(14), resolves it through your projects' sourcemaps and
writes a copy of each log with source paths in place of package paths.
Zip archives are extracted and every file inside is processed.`,
		Example: `  crashmap './OSCrashes-2022-02-12/**/*.text' --project ./YourAppCode
  crashmap './crashlogs/**/*' --projects ./YourAppCode yourcomplib:./ComplibCode
  crashmap './crashlogs/**/*' --project ./YourAppCode --out-dir ./crashlogs_formatted`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.args = args
			opts.changed = make(map[string]bool)
			for _, name := range []string{"out-dir", "cwd", "json", "watch", "log-level"} {
				opts.changed[name] = cmd.Flags().Changed(name)
			}
			return run(cmd)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "Path to config file (default ./"+config.DefaultConfigFile+" when present)")
	flags.StringArrayVar(&opts.crashlogs, "crashlogs", nil, "Crash log globs; prefix with ! to exclude")
	flags.StringArrayVarP(&opts.projects, "projects", "p", nil, "Source project folders, optionally prefixed: [prefix:]path")
	flags.StringArrayVar(&opts.projectAlias, "project", nil, "Alias for --projects")
	flags.StringVar(&opts.outDir, "out-dir", "", "Directory for processed logs (default ./"+config.DefaultOutDir+")")
	flags.StringVar(&opts.cwd, "cwd", "", "Override the working directory globs and projects are relative to")
	flags.BoolVar(&opts.json, "json", false, "Also write a JSON report next to every processed log")
	flags.BoolVarP(&opts.watch, "watch", "w", false, "Keep running and process crash logs as they appear")
	flags.StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error or off")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Enable verbose logging")
	flags.BoolVar(&opts.version, "version", false, "Print version and exit")

	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &flagError{err: err}
	})
	return cmd
}

// applyOptions layers command line options over cfg. Only flags that were
// set override the config file.
func applyOptions(opts cliOptions, cfg *config.Config) error {
	crashlogs := append(append([]string(nil), opts.args...), opts.crashlogs...)
	if len(crashlogs) > 0 {
		cfg.Crashlogs = crashlogs
	}
	projects := append(append([]string(nil), opts.projects...), opts.projectAlias...)
	if len(projects) > 0 {
		cfg.Projects = projects
	}
	if opts.changed["out-dir"] {
		cfg.OutDir = opts.outDir
	}
	if opts.changed["cwd"] {
		cfg.Cwd = opts.cwd
	}
	if opts.changed["json"] {
		cfg.Output.JSON = opts.json
	}
	if opts.changed["watch"] {
		cfg.Watch.Enabled = opts.watch
	}
	if opts.verbose {
		cfg.LogLevel = "debug"
	}
	if opts.changed["log-level"] {
		if opts.verbose {
			return errors.New("--verbose and --log-level cannot be used together")
		}
		cfg.LogLevel = opts.logLevel
	}
	return nil
}
