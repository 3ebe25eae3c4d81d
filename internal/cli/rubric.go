package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/Brehove/canvas-cli-for-codex/internal/faults"
	"github.com/Brehove/canvas-cli-for-codex/internal/logging"
	"github.com/Brehove/canvas-cli-for-codex/internal/ui"
)

func attachRubricCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:      "attach-rubric",
		Usage:     "Attach a rubric to one or more assignments",
		ArgsUsage: "[course]",
		Description: `Associate a course rubric with assignments. The rubric is used for
   grading unless --no-grading is given.

   Examples:
     canvas attach-rubric -r 19841 -a 7 -a 8 123456`,
		Flags: []cli.Flag{
			&cli.Int64Flag{Name: "rubric", Aliases: []string{"r"}, Usage: "Rubric `ID`", Required: true},
			&cli.Int64SliceFlag{Name: "assignment", Aliases: []string{"a"}, Usage: "Assignment `ID` (repeatable)", Required: true},
			&cli.BoolFlag{Name: "no-grading", Usage: "Attach for display only"},
			&cli.BoolFlag{Name: "dry-run", Aliases: []string{"d"}, Usage: "Show what would be attached"},
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

			rubric := cmd.Int64("rubric")
			assignments := cmd.Int64Slice("assignment")
			grading := !cmd.Bool("no-grading")
			if len(assignments) == 0 {
				return faults.Invalid("assignment", "at least one assignment is required")
			}

			if cmd.Bool("dry-run") {
				for _, a := range assignments {
					e.println(ui.StatusSkipped(fmt.Sprintf("would attach rubric %d to assignment %d (grading: %t)", rubric, a, grading)))
				}
				return nil
			}

			var errs []error
			for _, a := range assignments {
				if err := s.client.AttachRubric(ctx, course.ID, rubric, a, grading); err != nil {
					errs = append(errs, fmt.Errorf("assignment %d: %w", a, err))
					e.println(ui.StatusError(fmt.Sprintf("assignment %d: %v", a, err)))
					continue
				}
				logging.Info("rubric attached", logging.Course(course.ID), "rubric", rubric, "assignment", a)
				e.println(ui.StatusSuccess(fmt.Sprintf("attached rubric %d to assignment %d", rubric, a)))
			}

			switch {
			case len(errs) == 0:
				return nil
			case len(errs) == len(assignments):
				return errors.Join(errs...)
			default:
				return fmt.Errorf("attach-rubric %w: %w", ErrPartial, errors.Join(errs...))
			}
		},
	}
}
