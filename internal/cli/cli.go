// Package cli provides the command-line interface for canvas.
package cli

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/urfave/cli/v3"

	"github.com/Brehove/canvas-cli-for-codex/internal/logging"
	"github.com/Brehove/canvas-cli-for-codex/internal/ui"
)

var (
	// Version is the current version of the application.
	Version = "dev"
	// Commit is the git commit hash.
	Commit = "unknown"
	// BuildDate is the date and time of the build.
	BuildDate = "unknown"
)

// Exit codes.
const (
	ExitSuccess = 0
	ExitFatal   = 1
	ExitPartial = 2
)

// ErrPartial marks a command that finished but left some items failed.
var ErrPartial = errors.New("finished with failures")

// ExitCode maps the error returned by Run to a process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitSuccess
	case errors.Is(err, ErrPartial):
		return ExitPartial
	default:
		return ExitFatal
	}
}

// Run executes the CLI application with the given context and arguments.
func Run(ctx context.Context, args []string) error {
	return newApp(defaultEnv()).Run(ctx, args)
}

func newApp(e *env) *cli.Command {
	return &cli.Command{
		Name:    "canvas",
		Usage:   "Pull Canvas course content into local Markdown and push edits back",
		Version: Version,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Enable verbose output (info level logging)",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug output (debug level logging, implies verbose)",
			},
			&cli.BoolFlag{
				Name:  "no-color",
				Usage: "Disable colored output",
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			configureColors(cmd)
			return configureLogging(ctx, cmd), nil
		},
		Commands: []*cli.Command{
			pullCommand(e),
			pushCommand(e),
			coursesCommand(e),
			modulesCommand(e),
			itemsCommand(e),
			rubricsCommand(e),
			attachRubricCommand(e),
			statusCommand(e),
			configCommand(e),
			versionCommand(e),
		},
	}
}

// configureColors sets up color output based on CLI flags.
func configureColors(cmd *cli.Command) {
	if cmd.Bool("no-color") {
		ui.DisableColors()
	}
}

// configureLogging installs the process logger for the --verbose and
// --debug flags and tags it with a fresh run id.
func configureLogging(ctx context.Context, cmd *cli.Command) context.Context {
	opts := logging.DefaultOptions()
	opts.Level = logging.LevelFor(cmd.Bool("verbose"), cmd.Bool("debug"))
	opts.AddSource = cmd.Bool("debug")

	logger := logging.New(opts).With(logging.RunID(uuid.NewString()))
	logging.SetDefault(logger)

	logging.Debug("logging configured", slog.String("level", opts.Level.String()))
	return logging.NewContext(ctx, logger)
}
