package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/labtools/expsync/internal/config"
	"github.com/labtools/expsync/internal/engine"
	"github.com/labtools/expsync/internal/progress"
	"github.com/labtools/expsync/internal/storage"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgPath     string
	logLevel    string
	quiet       bool
	dryRun      bool
	promptCreds bool
	logger      *slog.Logger
)

// NewRootCmd creates and returns the root command
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "expsync <account> [project [experiment]]",
		Short: "Sync successfully exported experiment files from object storage",
		Long: `expsync downloads the files listed in per-project export manifests from an
S3-compatible bucket into the current directory. Files already present are
verified against the remote content checksum and left alone when they match;
stale copies are truncated and redownloaded. Every download is verified
after it lands on disk, so a rerun after any interruption converges on the
same valid state.`,
		Example: `  expsync 123
  expsync 123 456
  expsync 123 456 111 --dry-run
  expsync 123 --prompt-creds`,
		Version: "0.1.0",
		Args:    cobra.RangeArgs(1, 3),
		RunE:    runSync,
	}

	cmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to config file (auto-discovered if not specified)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	cmd.Flags().BoolVar(&quiet, "quiet", false, "suppress status and progress output on stderr")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report what would be done without downloading")
	cmd.Flags().BoolVar(&promptCreds, "prompt-creds", false, "prompt for storage credentials interactively")

	return cmd
}

func runSync(cmd *cobra.Command, args []string) error {
	setupLogging()

	filter, err := parseFilter(args)
	if err != nil {
		return err
	}

	// Arguments are valid past this point; failures are runtime errors
	// and should not trigger a usage dump.
	cmd.SilenceUsage = true

	// Load config
	if cfgPath == "" {
		var findErr error
		cfgPath, findErr = config.FindConfigFile()
		if findErr != nil {
			logger.Warn("config file not found, using defaults", "error", findErr)
		}
	}
	var cfg *config.Config
	if cfgPath != "" {
		cfg, err = config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
	} else {
		cfg = config.DefaultConfig()
	}

	access, secret := cfg.ResolveCredentials()
	if promptCreds {
		access, secret, err = config.PromptCredentials(os.Stdin, os.Stderr)
		if err != nil {
			return err
		}
	}

	bucket, err := storage.NewMinioBucket(
		cfg.Storage.Endpoint,
		cfg.Storage.Bucket,
		storage.Credentials{AccessKey: access, SecretKey: secret},
		cfg.Storage.UseSSL,
		logger,
	)
	if err != nil {
		return err
	}

	// Progress is rendered only on an interactive, non-quiet terminal.
	// The decision is made once here; the engine sees either a factory
	// or nothing.
	var observe engine.ObserverFactory
	if progress.Interactive(os.Stderr) && !quiet {
		observe = func(total int64) storage.ObserveFunc {
			return progress.New(total, os.Stderr, true).Update
		}
	}

	coord := engine.NewCoordinator(bucket, logger, observe)
	driver := engine.NewDriver(bucket, coord, os.Stdout, logger, dryRun, filter)
	return driver.Run()
}

// parseFilter validates the positional account/project/experiment args.
func parseFilter(args []string) (engine.Filter, error) {
	var f engine.Filter

	account, err := strconv.Atoi(args[0])
	if err != nil {
		return f, fmt.Errorf("account id must be an integer, got %q", args[0])
	}
	f.Account = account

	if len(args) > 1 {
		project, err := strconv.Atoi(args[1])
		if err != nil {
			return f, fmt.Errorf("project id must be an integer, got %q", args[1])
		}
		f.Project = &project
	}
	if len(args) > 2 {
		experiment, err := strconv.Atoi(args[2])
		if err != nil {
			return f, fmt.Errorf("experiment id must be an integer, got %q", args[2])
		}
		f.Experiment = &experiment
	}
	return f, nil
}

// setupLogging initializes the slog logger based on flags
func setupLogging() {
	var level slog.Level
	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	if quiet {
		level = slog.LevelError
	}

	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}
