package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/bizclone/internal/fault"
	"github.com/sells-group/bizclone/internal/model"
)

// cliOwner scopes analyses created from the command line. Every CLI
// invocation on the same machine config shares it.
var cliOwner string

var analyzeCmd = &cobra.Command{
	Use:   "analyze <url> [url...]",
	Short: "Run the initial analysis of one or more business URLs",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		e, err := initEnv(ctx, "analyze")
		if err != nil {
			return err
		}
		defer e.Close()

		results := make([]*model.AnalysisRecord, len(args))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(cfg.Gate.MaxConcurrent)
		for i, rawURL := range args {
			g.Go(func() error {
				out, err := e.Service.CreateAnalysis(gctx, cliOwner, rawURL)
				if err != nil {
					return describeFault(err)
				}
				zap.L().Info("analysis complete",
					zap.String("id", out.Record.ID),
					zap.String("url", rawURL),
					zap.String("provider", out.ProviderUsed),
				)
				results[i] = out.Record
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		if len(results) == 1 {
			return printJSON(results[0])
		}
		return printJSON(results)
	},
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// describeFault logs the fault diagnostics before handing the error back to
// cobra.
func describeFault(err error) error {
	f := fault.As(err)
	fields := []zap.Field{zap.String("kind", string(f.Kind)), zap.Bool("retryable", f.Retryable)}
	for k, v := range f.Diagnostics {
		fields = append(fields, zap.Any(k, v))
	}
	zap.L().Error("operation failed", fields...)
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cliOwner, "owner", "cli", "owner identity for CLI-created analyses")
	rootCmd.AddCommand(analyzeCmd)
}
