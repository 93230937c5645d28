package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/habitmastery/blueprint-api/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "blueprint-api",
	Short: "Habit blueprint report service",
	Long:  "Validates funnel submissions against the CRM, generates personalized habit blueprint reports via Claude, stores them durably, and notifies the contact.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
