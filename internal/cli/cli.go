package cli

import (
	"errors"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/vk/mathscope/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// flagValues holds the raw flag values before they are merged with the
// config file.
type flagValues struct {
	configPath       string
	logFormat        string
	logLevel         string
	duplicatePattern string
	parseCacheSize   int
	failOnErrors     bool
	noColor          bool
	deleteIDs        []string
}

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
// Flags given explicitly take precedence over the config file, which takes
// precedence over the defaults.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	defaults := app.DefaultConfig()
	var fv flagValues
	var cfg *app.Config
	ran := false

	cmd := &cobra.Command{
		Use:   "mathscope [flags] SCENE_PATH...",
		Short: "Evaluate a scene of mathematical expressions",
		Long: `mathscope - Evaluate a scene of interdependent mathematical expressions.

A scene is one or more .hcl files containing expression blocks:

  expression {
    id   = "area"
    expr = "area = pi * pow(r, 2)"
  }

Arguments:
  SCENE_PATH
    Path to a single .hcl file or a directory containing .hcl files.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, paths []string) error {
			if len(paths) == 0 {
				slog.Debug("No scene path provided, printing usage and exiting.")
				return cmd.Help()
			}
			ran = true
			merged := defaults
			if fv.configPath != "" {
				fc, err := app.LoadFileConfig(fv.configPath)
				if err != nil {
					return err
				}
				fc.ApplyTo(&merged)
			}
			applyFlags(cmd, &fv, &merged)
			merged.ScenePaths = paths
			merged.DeleteIDs = fv.deleteIDs

			validated, err := app.NewConfig(merged)
			if err != nil {
				return err
			}
			cfg = validated
			return nil
		},
	}
	if args == nil {
		// cobra falls back to os.Args for a nil slice.
		args = []string{}
	}
	cmd.SetArgs(args)
	cmd.SetOut(output)
	cmd.SetErr(output)

	flags := cmd.Flags()
	flags.StringVarP(&fv.configPath, "config", "c", "", "Path to a TOML config file.")
	flags.StringVar(&fv.logFormat, "log-format", defaults.LogFormat, "Log output format. Options: 'text' or 'json'.")
	flags.StringVar(&fv.logLevel, "log-level", defaults.LogLevel, "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	flags.StringVar(&fv.duplicatePattern, "allowed-duplicate-pattern", defaults.AllowedDuplicatePattern, "Names matching this regexp may be assigned more than once if nothing reads them. Empty disables.")
	flags.IntVar(&fv.parseCacheSize, "parse-cache-size", defaults.ParseCacheSize, "Number of compiled expressions to cache.")
	flags.BoolVar(&fv.failOnErrors, "fail-on-errors", false, "Exit with status 1 if any expression has an error.")
	flags.BoolVar(&fv.noColor, "no-color", false, "Disable colored output.")
	flags.StringArrayVar(&fv.deleteIDs, "delete", nil, "Expression id to delete after the first evaluation (repeatable).")

	if err := cmd.Execute(); err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	if !ran {
		// Help or usage was printed.
		return nil, true, nil
	}

	slog.Debug("CLI parser finished successfully.", "config", cfg)
	return cfg, false, nil
}

func applyFlags(cmd *cobra.Command, fv *flagValues, cfg *app.Config) {
	flags := cmd.Flags()
	if flags.Changed("log-format") {
		cfg.LogFormat = fv.logFormat
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = fv.logLevel
	}
	if flags.Changed("allowed-duplicate-pattern") {
		cfg.AllowedDuplicatePattern = fv.duplicatePattern
	}
	if flags.Changed("parse-cache-size") {
		cfg.ParseCacheSize = fv.parseCacheSize
	}
	if flags.Changed("fail-on-errors") {
		cfg.FailOnErrors = fv.failOnErrors
	}
	if flags.Changed("no-color") {
		cfg.NoColor = fv.noColor
	}
}

// ExitCode maps an error returned by the application to a process exit
// code.
func ExitCode(err error) int {
	var exitErr *ExitError
	switch {
	case err == nil:
		return 0
	case errors.As(err, &exitErr):
		return exitErr.Code
	default:
		return 1
	}
}
