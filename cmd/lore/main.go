// Package main implements the lore CLI, the operator surface of the shared
// technology experience repository.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"techlore/internal/config"
	"techlore/internal/logging"
	"techlore/internal/maintenance"
	"techlore/internal/store"
	"techlore/internal/validate"
)

var (
	// Global flags
	verbose   bool
	workspace string
	storeFile string
	timeout   time.Duration

	// Logger
	logger *zap.Logger

	// Loaded in PersistentPreRunE for every subcommand
	cfg *config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "lore",
	Short: "techlore - shared technology experience repository",
	Long: `techlore is a quality-gated repository of technology experience records.

Agents and engineers submit structured write-ups of how a technology behaved
in practice. Every submission passes a validation gate (forbidden names,
content heuristics, rating precision, a minimum quality score) before it is
persisted, so the repository stays useful as it grows.

State lives in the workspace .lore/ directory: the experience file, its
timestamped backups, the maintenance ledger, and optional rule overlays.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if workspace == "" {
			wd, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to resolve working directory: %w", err)
			}
			workspace = config.FindWorkspaceRoot(wd)
		}

		if err := logging.Initialize(workspace); err != nil {
			fmt.Fprintf(os.Stderr, "⚠️  logging unavailable: %v\n", err)
		}

		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		cfg, err = config.Load(workspace)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		logger.Debug("workspace resolved", zap.String("workspace", workspace))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		logging.CloseAll()
	},
}

// buildValidator assembles the validator from the compiled defaults, the
// optional rules.yaml overlay, and the config threshold override.
func buildValidator() *validate.Validator {
	rules := validate.DefaultRuleSet()

	if path := cfg.RulesPath(workspace); path != "" {
		if _, err := os.Stat(path); err == nil {
			loaded, err := validate.LoadRuleSet(path)
			if err != nil {
				fmt.Fprintf(os.Stderr, "⚠️  rule overlay ignored: %v\n", err)
			} else {
				rules = loaded
			}
		}
	}

	if cfg.Validation.MinQualityScore > 0 {
		rules.MinQualityScore = cfg.Validation.MinQualityScore
	}
	return validate.New(rules)
}

// openStore opens the workspace experience repository.
func openStore(watch bool) (*store.Store, error) {
	path := cfg.StorePath(workspace)
	if storeFile != "" {
		path = storeFile
	}
	return store.New(path, store.Options{
		Validator:      buildValidator(),
		MaxRecords:     cfg.Store.MaxRecords,
		MaxFieldLength: cfg.Store.MaxFieldLength,
		BackupDir:      cfg.BackupDirPath(workspace),
		WatchFile:      watch,
	})
}

// openHistory opens the maintenance ledger, or returns nil when it cannot
// be opened (a missing ledger never blocks a maintenance pass).
func openHistory() *maintenance.History {
	h, err := maintenance.OpenHistory(cfg.HistoryPath(workspace))
	if err != nil {
		fmt.Fprintf(os.Stderr, "⚠️  maintenance ledger unavailable: %v\n", err)
		return nil
	}
	return h
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "workspace root (default: nearest .lore ancestor)")
	rootCmd.PersistentFlags().StringVar(&storeFile, "store", "", "experience file path (default from config)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 5*time.Minute, "timeout for batch operations")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(recordCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(cleanCmd)
	rootCmd.AddCommand(purgeTestCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(historyCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
