package postgres

import (
	"fmt"
	"testing"

	"github.com/golang-migrate/migrate/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/turtacn/COF-H2-Predictor/pkg/errors"
)

func TestDatabaseURL(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"postgres://u:p@localhost:5432/db?sslmode=disable", "pgx5://u:p@localhost:5432/db?sslmode=disable"},
		{"postgresql://u@h/db", "pgx5://u@h/db"},
		{"pgx5://already", "pgx5://already"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, databaseURL(tt.in))
	}
}

func TestSourceURL(t *testing.T) {
	assert.Equal(t, "file://migrations", sourceURL("migrations"))
	assert.Equal(t, "file:///srv/migrations", sourceURL("/srv/migrations"))
	assert.Equal(t, "github://org/repo/migrations", sourceURL("github://org/repo/migrations"))
}

func stubMigrate(t *testing.T, err error) *[2]string {
	t.Helper()
	var got [2]string
	orig := newMigrate
	t.Cleanup(func() { newMigrate = orig })
	newMigrate = func(src, db string) (*migrate.Migrate, error) {
		got = [2]string{src, db}
		return nil, err
	}
	return &got
}

func TestRunMigrations_OpenFailure(t *testing.T) {
	got := stubMigrate(t, fmt.Errorf("dial tcp: connection refused"))

	err := RunMigrations("postgres://u:p@localhost:5432/db", "migrations")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.ErrCodeDatabaseError))
	assert.Equal(t, "file://migrations", got[0])
	assert.Equal(t, "pgx5://u:p@localhost:5432/db", got[1])
}

func TestMigrationStatus_OpenFailure(t *testing.T) {
	stubMigrate(t, fmt.Errorf("boom"))

	state, err := MigrationStatus("postgres://localhost/db", "migrations")
	assert.Error(t, err)
	assert.Equal(t, MigrationState{}, state)
}

func TestRollbackMigration_InvalidSteps(t *testing.T) {
	got := stubMigrate(t, nil)

	err := RollbackMigration("postgres://localhost/db", "migrations", 0)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidParam))
	assert.Empty(t, got[0], "no migrate instance is opened for invalid steps")
}

func TestForceMigrationVersion_OpenFailure(t *testing.T) {
	stubMigrate(t, fmt.Errorf("boom"))
	assert.Error(t, ForceMigrationVersion("postgres://localhost/db", "migrations", 1))
}

//Personal.AI order the ending
