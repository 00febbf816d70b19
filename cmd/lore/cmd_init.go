package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"techlore/internal/config"
)

// initCmd seeds the workspace dot-directory
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a .lore directory in the current workspace",
	Long: `Creates the .lore directory with a default config.yaml. Run this once
per workspace before recording experiences.`,
	RunE: runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	path := filepath.Join(config.Dir(workspace), "config.yaml")
	if _, err := os.Stat(path); err == nil {
		fmt.Printf("⚠️  %s already exists, leaving it untouched\n", path)
		return nil
	}

	if err := config.DefaultConfig().Save(workspace); err != nil {
		return fmt.Errorf("failed to initialize workspace: %w", err)
	}

	fmt.Printf("✅ Initialized %s\n", config.Dir(workspace))
	fmt.Println("   Edit config.yaml to adjust store limits, logging, and rule overlays.")
	return nil
}
