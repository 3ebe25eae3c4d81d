package cli

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/Brehove/canvas-cli-for-codex/internal/diff"
	"github.com/Brehove/canvas-cli-for-codex/internal/faults"
	"github.com/Brehove/canvas-cli-for-codex/internal/model"
	"github.com/Brehove/canvas-cli-for-codex/internal/route"
	"github.com/Brehove/canvas-cli-for-codex/internal/ui"
)

func coursesCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:  "courses",
		Usage: "List your Canvas courses",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			s, err := e.connect()
			if err != nil {
				return err
			}
			courses, err := s.client.Courses(ctx)
			if err != nil {
				return err
			}
			if len(courses) == 0 {
				e.println("No courses found.")
				return nil
			}
			e.printf("%s\n", ui.Header(fmt.Sprintf("%-10s %-16s %s", "ID", "CODE", "NAME")))
			for _, c := range courses {
				name := c.Name
				if c.Term != "" {
					name += " " + ui.Dim("("+c.Term+")")
				}
				e.printf("%-10d %-16s %s\n", c.ID, c.Code, name)
			}
			return nil
		},
	}
}

func modulesCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:      "modules",
		Usage:     "List the modules of a course",
		ArgsUsage: "[course]",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			s, err := e.connect()
			if err != nil {
				return err
			}
			course, err := e.resolveCourse(ctx, s, cmd.Args().First())
			if err != nil {
				return err
			}
			modules, err := s.client.Modules(ctx, course.ID)
			if err != nil {
				return err
			}
			e.printf("%s\n", ui.Bold(course.Name))
			if len(modules) == 0 {
				e.println("  No modules.")
				return nil
			}
			for _, m := range modules {
				e.printf("  %-4d %-10d %s%s\n", m.Position, m.ID, m.Name, publishedMark(m.Published))
			}
			return nil
		},
	}
}

func itemsCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:      "items",
		Usage:     "List the items of a course module",
		ArgsUsage: "<course> <module>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 2 {
				return faults.Invalid("items", "requires exactly 2 arguments: <course> <module>")
			}
			s, err := e.connect()
			if err != nil {
				return err
			}
			course, err := e.resolveCourse(ctx, s, cmd.Args().Get(0))
			if err != nil {
				return err
			}
			modules, err := s.client.Modules(ctx, course.ID)
			if err != nil {
				return err
			}
			m, err := findRemoteModule(modules, cmd.Args().Get(1))
			if err != nil {
				return err
			}
			items, err := s.client.ModuleItems(ctx, course.ID, m.ID)
			if err != nil {
				return err
			}
			slices.SortStableFunc(items, func(a, b model.ModuleItem) int { return a.Position - b.Position })

			e.printf("%s\n", ui.Bold(m.Name))
			if len(items) == 0 {
				e.println("  No items.")
				return nil
			}
			for _, it := range items {
				id := "-"
				if it.ID != nil {
					id = strconv.FormatInt(*it.ID, 10)
				}
				e.printf("  %-4d %-10s %-16s %s%s%s\n", it.Position, id, it.Type,
					strings.Repeat("  ", it.Indent), it.Title, publishedMark(it.Published))
			}
			return nil
		},
	}
}

// findRemoteModule picks the module whose id or name matches arg. An exact
// name wins over a partial one.
func findRemoteModule(modules []model.Module, arg string) (model.Module, error) {
	if id, err := strconv.ParseInt(arg, 10, 64); err == nil {
		for _, m := range modules {
			if m.ID == id {
				return m, nil
			}
		}
	}
	var matches []model.Module
	for _, m := range modules {
		if strings.EqualFold(m.Name, strings.TrimSpace(arg)) {
			return m, nil
		}
		if route.MatchesName(arg, m.Name) || strings.Contains(strings.ToLower(m.Name), strings.ToLower(arg)) {
			matches = append(matches, m)
		}
	}
	switch len(matches) {
	case 0:
		return model.Module{}, faults.NotFound("no module matching %q", arg)
	case 1:
		return matches[0], nil
	default:
		names := make([]string, 0, len(matches))
		for _, m := range matches {
			names = append(names, m.Name)
		}
		return model.Module{}, faults.Invalid("module", "%q matches %d modules: %s", arg, len(matches), strings.Join(names, ", "))
	}
}

func rubricsCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:      "rubrics",
		Usage:     "List the rubrics of a course",
		ArgsUsage: "[course]",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			s, err := e.connect()
			if err != nil {
				return err
			}
			course, err := e.resolveCourse(ctx, s, cmd.Args().First())
			if err != nil {
				return err
			}
			rubrics, err := s.client.Rubrics(ctx, course.ID)
			if err != nil {
				return err
			}
			e.printf("%s\n", ui.Bold(course.Name))
			if len(rubrics) == 0 {
				e.println("  No rubrics.")
				return nil
			}
			for _, r := range rubrics {
				e.printf("  %-10s %-8s %s %s\n", diff.FormatValue(r.ID), diff.FormatValue(r.PointsPossible), r.Title,
					ui.Dim(fmt.Sprintf("(%d criteria)", len(r.Criteria))))
			}
			return nil
		},
	}
}

func publishedMark(published bool) string {
	if published {
		return ""
	}
	return " " + ui.Dim("(unpublished)")
}
