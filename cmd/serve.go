package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/bizclone/internal/server"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		e, err := initEnv(ctx, "serve")
		if err != nil {
			return err
		}
		defer e.Close()

		srvCfg := server.DefaultConfig()
		srvCfg.Host = cfg.Server.Host
		srvCfg.Port = cfg.Server.Port
		if servePort != 0 {
			srvCfg.Port = servePort
		}
		if len(cfg.Server.CORSOrigins) > 0 {
			srvCfg.CORSOrigins = cfg.Server.CORSOrigins
		}
		if cfg.Server.RatePerSecond > 0 {
			srvCfg.RatePerSecond = cfg.Server.RatePerSecond
		}
		if cfg.Server.RateBurst > 0 {
			srvCfg.RateBurst = cfg.Server.RateBurst
		}

		zap.L().Info("starting server",
			zap.String("host", srvCfg.Host),
			zap.Int("port", srvCfg.Port),
			zap.Strings("providers", cfg.Providers.Order),
		)
		return server.New(srvCfg, e.Service).ListenAndServe(ctx)
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "override configured server port")
	rootCmd.AddCommand(serveCmd)
}
