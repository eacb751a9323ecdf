package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/COF-H2-Predictor/internal/infrastructure/database/postgres"
)

type migrationCalls struct {
	dsn, source string
	steps       int
	version     int
}

func stubMigrations(t *testing.T) *migrationCalls {
	t.Helper()
	calls := &migrationCalls{}
	origUp, origDown, origStatus, origForce := runMigrations, rollbackMigration, migrationStatus, forceMigration
	t.Cleanup(func() {
		runMigrations, rollbackMigration, migrationStatus, forceMigration = origUp, origDown, origStatus, origForce
	})

	runMigrations = func(dsn, source string) error {
		calls.dsn, calls.source = dsn, source
		return nil
	}
	rollbackMigration = func(dsn, source string, steps int) error {
		calls.dsn, calls.source, calls.steps = dsn, source, steps
		return nil
	}
	migrationStatus = func(dsn, source string) (postgres.MigrationState, error) {
		calls.dsn, calls.source = dsn, source
		return postgres.MigrationState{Version: 1, Dirty: true}, nil
	}
	forceMigration = func(dsn, source string, version int) error {
		calls.version = version
		return nil
	}
	return calls
}

func TestMigrate_Up(t *testing.T) {
	calls := stubMigrations(t)
	out, err := run(t, newHarness(), "migrate", "up")
	require.NoError(t, err)
	assert.Contains(t, out, "OK: migrations applied")
	assert.Equal(t, "file://migrations", calls.source)
	assert.Contains(t, calls.dsn, "postgres://")
}

func TestMigrate_DownSteps(t *testing.T) {
	calls := stubMigrations(t)
	_, err := run(t, newHarness(), "migrate", "down", "--steps", "2", "--path", "/srv/migrations")
	require.NoError(t, err)
	assert.Equal(t, 2, calls.steps)
	assert.Equal(t, "/srv/migrations", calls.source)
}

func TestMigrate_Status(t *testing.T) {
	stubMigrations(t)
	out, err := run(t, newHarness(), "migrate", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "VERSION")
	assert.Contains(t, out, "true")
}

func TestMigrate_Force(t *testing.T) {
	calls := stubMigrations(t)
	_, err := run(t, newHarness(), "migrate", "force", "3")
	require.NoError(t, err)
	assert.Equal(t, 3, calls.version)

	_, err = run(t, newHarness(), "migrate", "force", "three")
	assert.Error(t, err)
}
