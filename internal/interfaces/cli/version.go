package cli

import (
	"runtime"

	"github.com/spf13/cobra"
)

// NewVersionCmd prints the build information.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		// The version needs no configuration.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			return PrintResult(cmd, CurrentBuild())
		},
	}
}

func (b BuildInfo) TableHeaders() []string { return []string{"VERSION", "COMMIT", "BUILT", "GO"} }

func (b BuildInfo) TableRows() [][]string {
	return [][]string{{b.Version, b.Commit, b.BuildDate, runtime.Version()}}
}
