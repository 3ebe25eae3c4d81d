package cli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/Brehove/canvas-cli-for-codex/internal/config"
	"github.com/Brehove/canvas-cli-for-codex/internal/faults"
	"github.com/Brehove/canvas-cli-for-codex/internal/ui"
)

func configCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Show or write the Canvas connection settings",
		Description: `Without flags, show the configuration in effect. With flags, update the
   nearest ` + config.FileName + ` (or create one in the current directory).
   When --token is omitted on a terminal, the token is prompted for without echo.

   Examples:
     canvas config --url https://school.instructure.com
     canvas config --url https://school.instructure.com --token 1234~abcd`,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Usage: "Canvas base `URL`"},
			&cli.StringFlag{Name: "token", Usage: "Canvas API `TOKEN`"},
			&cli.StringFlag{Name: "default-folder", Usage: "Folder for courses no course_folders prefix matches"},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			wd, err := e.wd()
			if err != nil {
				return err
			}
			updating := cmd.IsSet("url") || cmd.IsSet("token") || cmd.IsSet("default-folder")

			cfg, err := config.Load(wd)
			switch {
			case errors.Is(err, config.ErrNotFound):
				if !updating {
					return err
				}
				cfg = config.Default()
			case err != nil:
				return err
			}

			if !updating {
				e.showConfig(cfg)
				return nil
			}
			return e.writeConfig(cmd, cfg, wd)
		},
	}
}

func (e *env) writeConfig(cmd *cli.Command, cfg *config.Config, wd string) error {
	if v := cmd.String("url"); v != "" {
		cfg.CanvasURL = strings.TrimRight(strings.TrimSpace(v), "/")
	}
	if v := cmd.String("default-folder"); v != "" {
		cfg.DefaultFolder = v
	}
	if v := cmd.String("token"); v != "" {
		cfg.APIToken = strings.TrimSpace(v)
	} else if cfg.APIToken == "" && e.interactive() {
		token, err := e.secret("Canvas API token: ")
		if err != nil {
			return fmt.Errorf("failed to read token: %w", err)
		}
		cfg.APIToken = strings.TrimSpace(token)
	}
	if cfg.CanvasURL == "" && e.interactive() {
		url, err := e.readLine("Canvas URL: ")
		if err != nil {
			return fmt.Errorf("failed to read url: %w", err)
		}
		cfg.CanvasURL = strings.TrimRight(url, "/")
	}
	if cfg.CanvasURL == "" {
		return faults.Invalid("url", "is required when creating %s", config.FileName)
	}

	if err := cfg.Save(wd); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	e.println(ui.StatusSuccess("Wrote " + cfg.Path))
	if cfg.APIToken == "" {
		e.println(ui.StatusWarning("api_token is not set; run canvas config --token"))
	}
	return nil
}

func (e *env) showConfig(cfg *config.Config) {
	e.printf("%s %s\n", ui.Bold("Config:"), cfg.Path)
	e.printf("  canvas_url:     %s\n", orUnset(cfg.CanvasURL))
	e.printf("  api_token:      %s\n", maskToken(cfg.APIToken))
	e.printf("  default_folder: %s\n", cfg.DefaultFolderName())
	if len(cfg.CourseFolders) > 0 {
		e.println("  course_folders:")
		prefixes := make([]string, 0, len(cfg.CourseFolders))
		for p := range cfg.CourseFolders {
			prefixes = append(prefixes, p)
		}
		slices.Sort(prefixes)
		for _, p := range prefixes {
			e.printf("    %-8s %s\n", p+":", filepath.Join(cfg.Root(), cfg.CourseFolders[p]))
		}
	}
	e.printf("  pull.workers:   %d\n", cfg.Pull.Workers)
	e.printf("  http.rate_limit: %g/s, timeout %s, %d attempts\n", cfg.HTTP.RateLimit, cfg.HTTP.Timeout, cfg.HTTP.MaxAttempts)
}

func orUnset(v string) string {
	if v == "" {
		return ui.Warning("(not set)")
	}
	return v
}

// maskToken hides all but the last four characters of a token.
func maskToken(token string) string {
	switch {
	case token == "":
		return ui.Warning("(not set)")
	case len(token) <= 4:
		return strings.Repeat("*", len(token))
	default:
		return strings.Repeat("*", 8) + token[len(token)-4:]
	}
}
