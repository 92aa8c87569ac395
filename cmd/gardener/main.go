// Command gardener is the CLI entry point, grounded on the teacher's
// cmd/nerd/main.go: a cobra root command whose PersistentPreRunE wires a
// zap logger for CLI-facing output and initializes the category file
// logger before any subcommand runs, and whose PersistentPostRun flushes
// both on the way out.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/codebase-gardener/gardener/internal/config"
	"github.com/codebase-gardener/gardener/internal/errs"
	"github.com/codebase-gardener/gardener/internal/logging"
	"github.com/codebase-gardener/gardener/internal/runtime"
)

var (
	cfgPath string
	verbose bool

	log *zap.Logger
	rt  *runtime.Runtime
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(errs.ExitCode(err))
	}
}

var rootCmd = &cobra.Command{
	Use:   "gardener",
	Short: "Local-first codebase analysis assistant",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zapCfg := zap.NewProductionConfig()
		if verbose {
			zapCfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
		}
		l, err := zapCfg.Build()
		if err != nil {
			return fmt.Errorf("build logger: %w", err)
		}
		log = l

		cfg, err := config.Load(cfgPath)
		if err != nil {
			return err
		}
		if err := logging.Initialize(cfg.DataRoot, cfg.Logging.Debug, cfg.Logging.Level); err != nil {
			return err
		}

		built, err := runtime.New(cfg)
		if err != nil {
			return err
		}
		rt = built
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if log != nil {
			_ = log.Sync()
		}
		logging.CloseAll()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", defaultConfigPath(), "path to config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(featuresCmd)
	rootCmd.AddCommand(projectsCmd)
	rootCmd.AddCommand(projectCmd)
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".codebase-gardener/config.yaml"
	}
	return home + "/.codebase-gardener/config.yaml"
}
