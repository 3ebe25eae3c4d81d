package cli

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/Brehove/canvas-cli-for-codex/internal/logging"
	"github.com/Brehove/canvas-cli-for-codex/internal/pull"
	"github.com/Brehove/canvas-cli-for-codex/internal/ui"
)

func pullCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:      "pull",
		Usage:     "Download course content as local Markdown",
		ArgsUsage: "[course]",
		Description: `Pull a whole course, or only the items named by the selectors, into the
   course folder chosen by course_folders. Pulling overwrites local files:
   push your edits first.

   Examples:
     canvas pull 123456
     canvas pull --module "Week 3" "PHIL 123"
     canvas pull --assignment "Essay 1" --submissions ungraded 123456`,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "page", Usage: "Pull pages whose title matches `NAME`"},
			&cli.StringFlag{Name: "assignment", Usage: "Pull assignments whose name matches `NAME`"},
			&cli.StringFlag{Name: "discussion", Usage: "Pull discussions whose title matches `NAME`"},
			&cli.StringFlag{Name: "module", Aliases: []string{"m"}, Usage: "Pull the module whose name matches `NAME` and its items"},
			&cli.BoolFlag{Name: "rubrics", Usage: "Also pull every course rubric"},
			&cli.StringFlag{Name: "submissions", Value: string(pull.SubmissionsNone), Usage: "Pull submissions of pulled assignments: none, all or ungraded"},
			&cli.BoolFlag{Name: "discussions", Usage: "Pull the posts of discussion-graded assignments"},
			&cli.IntFlag{Name: "workers", Usage: "Concurrent requests (default from config)"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			s, err := e.connect()
			if err != nil {
				return err
			}
			course, err := e.resolveCourse(ctx, s, cmd.Args().First())
			if err != nil {
				return err
			}
			filter, err := pull.ParseSubmissionFilter(cmd.String("submissions"))
			if err != nil {
				return err
			}

			workers := s.cfg.Pull.Workers
			if n := cmd.Int("workers"); n > 0 {
				workers = n
			}

			sel := pull.Selectors{
				Page:       cmd.String("page"),
				Assignment: cmd.String("assignment"),
				Discussion: cmd.String("discussion"),
				Module:     cmd.String("module"),
				Rubrics:    cmd.Bool("rubrics"),
			}
			opts := pull.Options{
				Submissions:     filter,
				DiscussionPosts: cmd.Bool("discussions"),
				Workers:         workers,
			}

			o := pull.New(s.client, s.cfg.Router(), s.cfg.Root())
			result, err := o.Pull(ctx, course.ID, sel, opts)
			if err != nil {
				return err
			}
			return e.reportPull(result)
		},
	}
}

func (e *env) reportPull(result *pull.Result) error {
	e.printf("%s", result.Summary())
	logging.Info("pull finished",
		logging.Course(result.Course.ID),
		logging.Path(result.CourseDir),
		logging.Count(result.Documents()),
		"result", string(result.Status()))

	switch result.Status() {
	case pull.StatusFailed:
		if err := result.Err(); err != nil {
			return fmt.Errorf("nothing was pulled from %s: %w", result.Course.Name, err)
		}
		return fmt.Errorf("nothing was pulled from %s", result.Course.Name)
	case pull.StatusPartial:
		return fmt.Errorf("pull %w", ErrPartial)
	default:
		e.println(ui.StatusSuccess(result.Course.Name + " pulled"))
		return nil
	}
}
