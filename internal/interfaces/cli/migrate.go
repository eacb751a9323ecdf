package cli

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/turtacn/COF-H2-Predictor/internal/infrastructure/database/postgres"
)

// Migration entry points, swapped in tests.
var (
	runMigrations     = postgres.RunMigrations
	rollbackMigration = postgres.RollbackMigration
	migrationStatus   = postgres.MigrationStatus
	forceMigration    = postgres.ForceMigrationVersion
)

// NewMigrateCmd manages the prediction-history schema.
func NewMigrateCmd() *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the prediction history database schema",
	}
	cmd.PersistentFlags().StringVar(&path, "path", "", "migrations directory or source URL (overrides database.migration_path)")

	target := func(cmd *cobra.Command) (dsn, source string, err error) {
		cliCtx, err := GetCLIContext(cmd)
		if err != nil {
			return "", "", err
		}
		db := cliCtx.Config.Database
		source = db.MigrationPath
		if path != "" {
			source = path
		}
		return db.DSN(), source, nil
	}

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dsn, source, err := target(cmd)
			if err != nil {
				return err
			}
			if err := runMigrations(dsn, source); err != nil {
				return err
			}
			PrintSuccess(cmd, "migrations applied")
			return nil
		},
	}

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dsn, source, err := target(cmd)
			if err != nil {
				return err
			}
			if err := rollbackMigration(dsn, source, steps); err != nil {
				return err
			}
			PrintSuccess(cmd, "rolled back "+strconv.Itoa(steps)+" step(s)")
			return nil
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")

	status := &cobra.Command{
		Use:   "status",
		Short: "Show the applied schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dsn, source, err := target(cmd)
			if err != nil {
				return err
			}
			state, err := migrationStatus(dsn, source)
			if err != nil {
				return err
			}
			return PrintResult(cmd, migrationView(state))
		},
	}

	force := &cobra.Command{
		Use:   "force <version>",
		Short: "Set the schema version without running migrations",
		Long:  "force clears a dirty state left by a failed migration.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			version, err := strconv.Atoi(args[0])
			if err != nil {
				return err
			}
			dsn, source, err := target(cmd)
			if err != nil {
				return err
			}
			if err := forceMigration(dsn, source, version); err != nil {
				return err
			}
			PrintSuccess(cmd, "schema version forced to "+args[0])
			return nil
		},
	}

	cmd.AddCommand(up, down, status, force)
	return cmd
}

type migrationView postgres.MigrationState

func (v migrationView) TableHeaders() []string { return []string{"VERSION", "DIRTY"} }

func (v migrationView) TableRows() [][]string {
	return [][]string{{strconv.FormatUint(uint64(v.Version), 10), strconv.FormatBool(v.Dirty)}}
}

//Personal.AI order the ending
