package main

import (
	"github.com/turtacn/COF-H2-Predictor/internal/config"
	"github.com/turtacn/COF-H2-Predictor/internal/infrastructure/database/postgres"
)

func postgresMigrate(cfg *config.Config) error {
	return postgres.RunMigrations(cfg.Database.DSN(), cfg.Database.MigrationPath)
}
