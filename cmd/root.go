package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/bizclone/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "bizclone",
	Short: "AI-driven business cloning analysis",
	Long:  "Analyzes a business from its URL via a chain of AI providers, then walks a six-stage cloning workflow: market deep dive, build plan, acquisition, monetization, scale.",
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
