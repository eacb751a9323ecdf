// Command apiserver serves the web predictor and the JSON API. It is the
// container entry point; cofh2 serve does the same from the CLI.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/turtacn/COF-H2-Predictor/internal/bootstrap"
	"github.com/turtacn/COF-H2-Predictor/internal/config"
	"github.com/turtacn/COF-H2-Predictor/internal/infrastructure/monitoring/logging"
	httpserver "github.com/turtacn/COF-H2-Predictor/internal/interfaces/http"
)

const defaultConfigPath = "configs/config.yaml"

var version = "dev"

func main() {
	configPath := flag.String("config", defaultConfigPath, "path to configuration file")
	httpPort := flag.Int("http-port", 0, "HTTP server port (overrides config)")
	migrate := flag.Bool("migrate", false, "apply database migrations before serving")
	flag.Parse()

	if err := run(*configPath, *httpPort, *migrate); err != nil {
		fmt.Fprintf(os.Stderr, "apiserver: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, httpPort int, migrate bool) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if httpPort > 0 {
		cfg.Server.Port = httpPort
	}

	logger, err := logging.NewLogger(logging.LogConfig{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		OutputPaths: cfg.Log.Output,
		Caller:      cfg.Log.EnableCaller,
	})
	if err != nil {
		return err
	}
	defer logger.Sync()
	logging.SetDefault(logger)

	logger.Info("starting COF-H2 predictor API server",
		logging.String("version", version),
		logging.String("addr", cfg.Server.Addr()),
		logging.String("model_source", cfg.Model.Source),
	)

	if migrate && cfg.Database.Enabled {
		if err := postgresMigrate(cfg); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger, bootstrap.Options{Watch: true})
	if err != nil {
		return err
	}
	defer app.Close()

	handler, err := app.Handler(version)
	if err != nil {
		return err
	}
	return httpserver.NewServer(cfg.Server, handler, logger.Named("server")).Run(ctx)
}

// loadConfig reads the file when it exists, else builds the configuration
// from defaults and COFH2_* variables.
func loadConfig(path string) (*config.Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "warning: config file %s not found, using defaults and environment\n", path)
		return config.LoadFromEnv()
	}
	return config.Load(path)
}

//Personal.AI order the ending
