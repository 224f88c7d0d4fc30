package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/bizclone/internal/workflow"
)

var (
	listLimit  int
	listOffset int
)

var analysesCmd = &cobra.Command{
	Use:   "analyses",
	Short: "Inspect stored analyses",
}

var analysesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List analyses for the current owner",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		e, err := initEnv(ctx, "analyze")
		if err != nil {
			return err
		}
		defer e.Close()

		recs, err := e.Service.ListAnalyses(ctx, cliOwner, listLimit, listOffset)
		if err != nil {
			return describeFault(err)
		}
		return printJSON(recs)
	},
}

var analysesGetCmd = &cobra.Command{
	Use:   "get <analysis-id>",
	Short: "Show one analysis with its stage progress",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		e, err := initEnv(ctx, "analyze")
		if err != nil {
			return err
		}
		defer e.Close()

		rec, err := e.Service.GetAnalysis(ctx, cliOwner, args[0])
		if err != nil {
			return describeFault(err)
		}
		return printJSON(map[string]any{
			"analysis": rec,
			"progress": workflow.Progress(rec),
		})
	},
}

var analysesDeleteCmd = &cobra.Command{
	Use:   "delete <analysis-id>",
	Short: "Delete one analysis",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		e, err := initEnv(ctx, "analyze")
		if err != nil {
			return err
		}
		defer e.Close()

		if err := e.Service.DeleteAnalysis(ctx, cliOwner, args[0]); err != nil {
			return describeFault(err)
		}
		zap.L().Info("analysis deleted", zap.String("id", args[0]))
		return nil
	},
}

func init() {
	analysesListCmd.Flags().IntVar(&listLimit, "limit", 50, "maximum analyses to list")
	analysesListCmd.Flags().IntVar(&listOffset, "offset", 0, "listing offset")
	analysesCmd.AddCommand(analysesListCmd, analysesGetCmd, analysesDeleteCmd)
	rootCmd.AddCommand(analysesCmd)
}
