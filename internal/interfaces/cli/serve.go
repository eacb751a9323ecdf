package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/turtacn/COF-H2-Predictor/internal/bootstrap"
	"github.com/turtacn/COF-H2-Predictor/internal/config"
	httpapi "github.com/turtacn/COF-H2-Predictor/internal/interfaces/http"
	"github.com/turtacn/COF-H2-Predictor/internal/infrastructure/monitoring/logging"
)

// NewServeCmd runs the web predictor and the JSON API until interrupted.
func NewServeCmd() *cobra.Command {
	var (
		host string
		port int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the web predictor and the JSON API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			cfg := cliCtx.Config
			if cmd.Flags().Changed("host") {
				cfg.Server.Host = host
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			app, err := cliCtx.NewApp(ctx, bootstrap.Options{Watch: true})
			if err != nil {
				return err
			}
			defer app.Close()

			handler, err := app.Handler(Version)
			if err != nil {
				return err
			}

			if cliCtx.ConfigPath != "" {
				watchConfig(ctx, cliCtx.ConfigPath, app, cliCtx.Logger)
			}

			return httpapi.NewServer(cfg.Server, handler, cliCtx.Logger.Named("server")).Run(ctx)
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "listen host (overrides server.host)")
	cmd.Flags().IntVar(&port, "port", 0, "listen port (overrides server.port)")
	return cmd
}

// watchConfig reloads the model when the config file is rewritten. Other
// settings take effect on restart.
func watchConfig(ctx context.Context, path string, app *bootstrap.App, logger logging.Logger) {
	err := config.Watch(path, func(*config.Config) {
		if _, err := app.Store.Reload(ctx); err != nil {
			logger.Warn("config changed but the model reload failed", logging.Err(err))
			return
		}
		logger.Info("config changed: model reloaded, other settings apply on restart", logging.String("path", path))
	}, func(err error) {
		logger.Warn("ignoring invalid config revision", logging.Err(err))
	})
	if err != nil {
		logger.Warn("config watcher not started", logging.Err(err))
	}
}

//Personal.AI order the ending
