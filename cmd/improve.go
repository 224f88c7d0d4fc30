package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var improveCmd = &cobra.Command{
	Use:   "improve <analysis-id>",
	Short: "Generate improvement suggestions for an analysis",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		e, err := initEnv(ctx, "analyze")
		if err != nil {
			return err
		}
		defer e.Close()

		out, err := e.Service.GenerateImprovement(ctx, cliOwner, args[0])
		if err != nil {
			return describeFault(err)
		}

		zap.L().Info("improvement complete", zap.String("provider", out.ProviderUsed))
		return printJSON(out.Improvement)
	},
}

func init() {
	rootCmd.AddCommand(improveCmd)
}
