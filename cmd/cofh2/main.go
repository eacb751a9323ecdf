// Command cofh2 is the predictor CLI: descriptors, predictions, the schema,
// the web server and database migrations.
package main

import (
	"context"
	"os"

	"github.com/turtacn/COF-H2-Predictor/internal/interfaces/cli"
)

// Build-time variables injected via ldflags.
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func init() {
	cli.Version = version
	cli.GitCommit = commit
	cli.BuildDate = buildDate
}

func main() {
	// Execute prints the error itself.
	if err := cli.Execute(context.Background()); err != nil {
		os.Exit(1)
	}
}

//Personal.AI order the ending
