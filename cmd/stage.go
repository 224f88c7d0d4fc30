package main

import (
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/bizclone/internal/prompt"
)

var stageRegenerate bool

var stageCmd = &cobra.Command{
	Use:   "stage <analysis-id> <stage>",
	Short: "Generate one workflow stage (2-6) of an analysis",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		stage, err := strconv.Atoi(args[1])
		if err != nil {
			return eris.Errorf("stage must be a number, got %q", args[1])
		}

		e, err := initEnv(ctx, "analyze")
		if err != nil {
			return err
		}
		defer e.Close()

		out, err := e.Service.GenerateStage(ctx, cliOwner, args[0], stage, stageRegenerate)
		if err != nil {
			return describeFault(err)
		}

		zap.L().Info("stage complete",
			zap.Int("stage", out.Stage),
			zap.String("name", prompt.StageName(out.Stage)),
			zap.Int("next_stage", out.NextStage),
		)
		return printJSON(out)
	},
}

func init() {
	stageCmd.Flags().BoolVar(&stageRegenerate, "regenerate", false, "regenerate an already-completed stage")
	rootCmd.AddCommand(stageCmd)
}
