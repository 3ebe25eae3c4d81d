package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/Brehove/canvas-cli-for-codex/internal/canvas"
	"github.com/Brehove/canvas-cli-for-codex/internal/diff"
	"github.com/Brehove/canvas-cli-for-codex/internal/faults"
	"github.com/Brehove/canvas-cli-for-codex/internal/push"
	"github.com/Brehove/canvas-cli-for-codex/internal/ui"
	"github.com/Brehove/canvas-cli-for-codex/internal/util"
)

func pushCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:      "push",
		Usage:     "Publish local edits to Canvas",
		ArgsUsage: "[file]",
		Description: `Push one document, or with --module every document of a pulled module
   folder plus its item list. Only changed fields are sent, though a rubric
   update resends all of its criteria. A document with canvas_id: null is
   created and its new id is written back to the file.

   Examples:
     canvas push pages/Welcome.md
     canvas push --dry-run --module "Week 3"`,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "module", Aliases: []string{"m"}, Usage: "Push the pulled module whose name matches `NAME`"},
			&cli.Int64Flag{Name: "course", Usage: "Course `ID` to push to instead of the one in _course.yaml"},
			&cli.BoolFlag{Name: "dry-run", Aliases: []string{"d"}, Usage: "Preview changes without modifying Canvas or local files"},
			&cli.BoolFlag{Name: "show-requests", Usage: "Print the API requests that are (or would be) sent"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			var target push.Target
			switch module, file := cmd.String("module"), cmd.Args().First(); {
			case module != "" && file != "":
				return faults.Invalid("push", "pass either a file or --module, not both")
			case module != "":
				target = push.ModuleTarget(module)
			case file != "":
				target = push.FileTarget(file)
			default:
				return faults.Invalid("push", "a file or --module is required")
			}

			s, err := e.connect()
			if err != nil {
				return err
			}
			if !target.IsModule() {
				target = push.FileTarget(s.abs(cmd.Args().First()))
			}

			root := s.courseDir()
			if root == "" {
				root = s.cfg.Root()
			}
			o := push.New(s.client, root)
			report, err := o.Push(ctx, target, push.Options{
				DryRun: cmd.Bool("dry-run"),
				Course: cmd.Int64("course"),
			})
			if err != nil {
				return err
			}

			e.printReport(s, report, cmd.Bool("show-requests"))
			return pushOutcome(target, report)
		},
	}
}

// pushOutcome maps a report to the command result. A failed single file is
// fatal; a module push that failed only some items is partial.
func pushOutcome(target push.Target, report *push.Report) error {
	switch report.Status() {
	case push.StatusSuccess:
		return nil
	case push.StatusFailed:
		if !target.IsModule() && len(report.Items) == 1 {
			return report.Items[0].Err
		}
		if err := report.Err(); err != nil {
			return fmt.Errorf("push failed: %w", err)
		}
		return fmt.Errorf("push of %s was interrupted", target)
	default:
		return fmt.Errorf("push %w", ErrPartial)
	}
}

func (e *env) printReport(s *session, report *push.Report, showRequests bool) {
	for _, ir := range report.Items {
		e.println(itemLine(s, ir))
		if ir.Err != nil {
			continue
		}
		if ir.Op == push.OpCreate || ir.Op == push.OpUpdate {
			_ = diff.Preview(e.stdout, ir.Changes, diff.PreviewOptions{Indent: "    ", MaxHunks: 5})
		}
		if showRequests {
			e.printRequest(report.Course, ir)
		}
	}

	e.println()
	e.printf("%s", report.Summary())

	for _, ir := range report.IntegrityFailures() {
		e.println()
		e.println(ui.Error("IMPORTANT: ") + ir.Err.Error())
	}
}

func itemLine(s *session, ir push.ItemReport) string {
	label := ir.Label()
	if ir.Name != "" && ir.Kind != "" {
		label += " " + ui.Dim("("+util.RelPath(s.wd, ir.Path)+")")
	}
	if ir.Err != nil {
		return ui.StatusError(fmt.Sprintf("%s: %v", label, ir.Err))
	}

	verb := map[push.Op]string{
		push.OpCreate: "created",
		push.OpUpdate: "updated",
	}[ir.Op]
	if ir.DryRun && verb != "" {
		verb = "would be " + verb
	}

	switch ir.Op {
	case push.OpNone:
		return ui.StatusSkipped(label + ": no changes")
	case push.OpSkipped:
		return ui.StatusSkipped(label + ": read-only export, skipped")
	case push.OpCreate:
		if ir.ID != nil {
			return ui.StatusSuccess(fmt.Sprintf("%s %s (canvas_id %d)", label, verb, *ir.ID))
		}
		return ui.StatusSuccess(fmt.Sprintf("%s %s", label, verb))
	default:
		return ui.StatusSuccess(fmt.Sprintf("%s %s: %s", label, verb, diff.Summary(ir.Changes)))
	}
}

func (e *env) printRequest(course int64, ir push.ItemReport) {
	var (
		reqs []canvas.Request
		err  error
	)
	switch ir.Op {
	case push.OpCreate:
		if ir.Candidate == nil {
			return
		}
		var req canvas.Request
		req, err = canvas.BuildCreate(course, ir.Candidate)
		reqs = []canvas.Request{req}
	case push.OpUpdate:
		reqs, err = canvas.BuildUpdate(course, ir.Changes)
	default:
		return
	}
	if err != nil {
		e.printf("    %s\n", ui.Warning(fmt.Sprintf("cannot render request: %v", err)))
		return
	}
	for _, req := range reqs {
		e.printf("    %s\n", ui.Info(req.String()))
		if req.Body == nil {
			continue
		}
		var body strings.Builder
		enc := json.NewEncoder(&body)
		enc.SetEscapeHTML(false)
		enc.SetIndent("    ", "  ")
		if err := enc.Encode(req.Body); err != nil {
			continue
		}
		e.printf("    %s", body.String())
	}
}
