// Package cmd provides the CLI commands for shopsearch.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/shopsearch/internal/config"
	shoperrors "github.com/Aman-CERP/shopsearch/internal/errors"
	"github.com/Aman-CERP/shopsearch/internal/logging"
	"github.com/Aman-CERP/shopsearch/internal/profiling"
	"github.com/Aman-CERP/shopsearch/pkg/searcher"
	"github.com/Aman-CERP/shopsearch/pkg/version"
)

// Profiling flags
var (
	profileCPU string
	profileMem string
	profiler   = profiling.NewProfiler()
	cpuCleanup func()
)

// Debug logging flag
var (
	debugMode      bool
	loggingCleanup func()
)

// NewRootCmd creates the root command for the shopsearch CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shopsearch",
		Short: "Hybrid full-text and relational shop search",
		Long: `shopsearch answers shop queries with a full-text index when a search
term is given and falls back to the relational store when the index is
unavailable or fails.

Data lives in ~/.shopsearch/ unless configured otherwise.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("shopsearch version {{.Version}}\n")

	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging to stderr and ~/.shopsearch/logs/")
	cmd.PersistentFlags().StringVar(&profileCPU, "profile-cpu", "", "Write CPU profile to file")
	cmd.PersistentFlags().StringVar(&profileMem, "profile-mem", "", "Write memory profile to file")

	cmd.PersistentPreRunE = startProfilingAndLogging
	cmd.PersistentPostRunE = stopProfilingAndLogging

	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newShowCmd())
	cmd.AddCommand(newDeleteCmd())
	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newSeedCmd())
	cmd.AddCommand(newStatsCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// startProfilingAndLogging starts CPU profiling and file logging.
func startProfilingAndLogging(cmd *cobra.Command, _ []string) error {
	logCfg := logging.DefaultConfig()
	if cfg, err := config.Load("."); err == nil {
		logCfg.Level = cfg.Logging.Level
		if cfg.Logging.File != "" {
			logCfg.FilePath = cfg.Logging.File
		}
		logCfg.MaxSizeMB = cfg.Logging.MaxSizeMB
		logCfg.MaxFiles = cfg.Logging.MaxFiles
	}
	if debugMode {
		debug := logging.DebugConfig()
		logCfg.Level = debug.Level
		logCfg.WriteToStderr = debug.WriteToStderr
	}

	logger, cleanup, err := logging.Setup(logCfg)
	if err != nil {
		if debugMode {
			return fmt.Errorf("failed to setup debug logging: %w", err)
		}
		// Unwritable log dir: keep warnings visible on stderr
		logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelWarn}))
		cleanup = func() {}
	}
	loggingCleanup = cleanup
	slog.SetDefault(logger)
	slog.Debug("command_started",
		slog.String("command", cmd.CommandPath()),
		slog.String("version", version.Version))

	if profileCPU != "" {
		cpuCleanup, err = profiler.StartCPU(profileCPU)
		if err != nil {
			return fmt.Errorf("failed to start CPU profile: %w", err)
		}
	}
	return nil
}

// stopProfilingAndLogging stops profiling and logging, writes memory profile if requested.
func stopProfilingAndLogging(_ *cobra.Command, _ []string) error {
	if cpuCleanup != nil {
		cpuCleanup()
		cpuCleanup = nil
	}

	if profileMem != "" {
		if err := profiler.WriteHeap(profileMem); err != nil {
			return fmt.Errorf("failed to write memory profile: %w", err)
		}
	}

	if loggingCleanup != nil {
		loggingCleanup()
		loggingCleanup = nil
	}
	return nil
}

// Execute runs the root command and prints a failure the way users read it.
func Execute() error {
	root := NewRootCmd()
	err := root.Execute()
	if err != nil {
		if debugMode {
			_, _ = fmt.Fprintln(os.Stderr, shoperrors.FormatForUser(err, true))
		} else {
			_, _ = fmt.Fprintln(os.Stderr, shoperrors.FormatForCLI(err))
		}
	}
	return err
}

// openSearcher loads the configuration for the working directory and opens
// a Searcher over it.
func openSearcher(ctx context.Context) (*searcher.Searcher, *config.Config, error) {
	cfg, err := config.Load(".")
	if err != nil {
		return nil, nil, err
	}
	s, err := searcher.Open(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return s, cfg, nil
}

// closeSearcher closes s, logging rather than failing on close errors.
func closeSearcher(s *searcher.Searcher) {
	if err := s.Close(); err != nil {
		slog.Warn("searcher_close_failed", slog.String("error", err.Error()))
	}
}
