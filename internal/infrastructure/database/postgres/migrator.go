// Package postgres holds the prediction-history database: the connection
// pool, schema migrations and (in repositories/) the history repository.
package postgres

import (
	stderrors "errors"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5" // pgx5:// driver
	_ "github.com/golang-migrate/migrate/v4/source/file"     // file:// source

	"github.com/turtacn/COF-H2-Predictor/pkg/errors"
)

// MigrationState is the applied schema version.
type MigrationState struct {
	Version uint `json:"version"`
	Dirty   bool `json:"dirty"`
}

// newMigrate is a variable to allow tests to avoid a live database.
var newMigrate = func(sourceURL, databaseURL string) (*migrate.Migrate, error) {
	return migrate.New(sourceURL, databaseURL)
}

// databaseURL rewrites a postgres:// DSN for the pgx v5 migrate driver.
func databaseURL(dsn string) string {
	for _, prefix := range []string{"postgres://", "postgresql://"} {
		if strings.HasPrefix(dsn, prefix) {
			return "pgx5://" + strings.TrimPrefix(dsn, prefix)
		}
	}
	return dsn
}

// sourceURL accepts a bare directory or a URL with a scheme.
func sourceURL(path string) string {
	if strings.Contains(path, "://") {
		return path
	}
	return "file://" + path
}

func open(dsn, migrationsPath string) (*migrate.Migrate, error) {
	m, err := newMigrate(sourceURL(migrationsPath), databaseURL(dsn))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to create migrate instance")
	}
	return m, nil
}

// RunMigrations applies all pending migrations. No pending migration is not
// an error.
func RunMigrations(dsn, migrationsPath string) error {
	m, err := open(dsn, migrationsPath)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil && !stderrors.Is(err, migrate.ErrNoChange) {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to run migrations")
	}
	return nil
}

// RollbackMigration rolls back the given number of steps.
func RollbackMigration(dsn, migrationsPath string, steps int) error {
	if steps <= 0 {
		return errors.Newf(errors.CodeInvalidParam, "steps must be greater than 0, got %d", steps)
	}

	m, err := open(dsn, migrationsPath)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Steps(-steps); err != nil {
		if stderrors.Is(err, migrate.ErrNoChange) {
			return errors.New(errors.CodeInvalidParam, "no migrations to roll back")
		}
		return errors.Wrapf(err, errors.ErrCodeDatabaseError, "failed to rollback %d step(s)", steps)
	}
	return nil
}

// MigrationStatus reports the applied version. A dirty state means a previous
// migration failed half-way and needs ForceMigrationVersion.
func MigrationStatus(dsn, migrationsPath string) (MigrationState, error) {
	m, err := open(dsn, migrationsPath)
	if err != nil {
		return MigrationState{}, err
	}
	defer m.Close()

	version, dirty, err := m.Version()
	if err != nil {
		if stderrors.Is(err, migrate.ErrNilVersion) {
			return MigrationState{}, nil
		}
		return MigrationState{}, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to get migration version")
	}
	return MigrationState{Version: version, Dirty: dirty}, nil
}

// ForceMigrationVersion sets the version without running migrations.
func ForceMigrationVersion(dsn, migrationsPath string, version int) error {
	m, err := open(dsn, migrationsPath)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Force(version); err != nil {
		return errors.Wrapf(err, errors.ErrCodeDatabaseError, "failed to force version %d", version)
	}
	return nil
}

//Personal.AI order the ending
