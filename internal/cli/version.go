package cli

import (
	"context"
	"runtime"

	"github.com/urfave/cli/v3"
)

func versionCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Display version and build information",
		Action: func(_ context.Context, _ *cli.Command) error {
			e.printf("canvas version %s\n", Version)
			e.printf("  commit: %s\n", Commit)
			e.printf("  built: %s\n", BuildDate)
			e.printf("  go: %s\n", runtime.Version())
			return nil
		},
	}
}
