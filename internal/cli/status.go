package cli

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/Brehove/canvas-cli-for-codex/internal/codec"
	"github.com/Brehove/canvas-cli-for-codex/internal/config"
	"github.com/Brehove/canvas-cli-for-codex/internal/document"
	"github.com/Brehove/canvas-cli-for-codex/internal/model"
	"github.com/Brehove/canvas-cli-for-codex/internal/ui"
	"github.com/Brehove/canvas-cli-for-codex/internal/util"
)

// courseStatus summarizes one pulled course folder.
type courseStatus struct {
	Dir     string
	Course  model.Course
	Counts  map[model.Kind]int
	Modules int
	// Reports counts read-only exports such as discussion posts.
	Reports int
	// Pending lists documents and module items with a null canvas_id.
	Pending []string
	// Unreadable lists files that are not valid documents.
	Unreadable []string
}

func statusCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Summarize pulled course folders and documents awaiting creation",
		Action: func(_ context.Context, _ *cli.Command) error {
			wd, err := e.wd()
			if err != nil {
				return err
			}
			root := wd
			if descriptor := util.FindUp(wd, codec.CourseFile); descriptor != "" {
				root = filepath.Dir(descriptor)
			} else if cfg, err := config.Load(wd); err == nil {
				root = cfg.Root()
			}

			statuses, err := collectStatus(root)
			if err != nil {
				return err
			}
			if len(statuses) == 0 {
				e.printf("No pulled courses under %s\n", root)
				return nil
			}
			for i, st := range statuses {
				if i > 0 {
					e.println()
				}
				e.printStatus(wd, st)
			}
			return nil
		},
	}
}

func (e *env) printStatus(wd string, st courseStatus) {
	e.printf("%s %s\n", ui.Bold(st.Course.Name), ui.Dim(fmt.Sprintf("(%d, %s)", st.Course.ID, util.RelPath(wd, st.Dir))))
	for _, kind := range []model.Kind{model.KindPage, model.KindAssignment, model.KindDiscussion, model.KindRubric, model.KindSubmission} {
		e.printf("  %-12s %d\n", kind.Subdir()+":", st.Counts[kind])
	}
	e.printf("  %-12s %d\n", "modules:", st.Modules)
	if st.Reports > 0 {
		e.printf("  %-12s %d\n", "reports:", st.Reports)
	}

	if len(st.Pending) > 0 {
		e.println(ui.StatusWarning(fmt.Sprintf("%d pending creation (canvas_id: null):", len(st.Pending))))
		for _, p := range st.Pending {
			e.printf("    %s\n", p)
		}
	}
	for _, p := range st.Unreadable {
		e.println(ui.StatusError("unreadable: " + p))
	}
}

// collectStatus finds every pulled course folder under root.
func collectStatus(root string) ([]courseStatus, error) {
	var dirs []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Name() == codec.CourseFile {
			dirs = append(dirs, filepath.Dir(path))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.Sort(dirs)

	out := make([]courseStatus, 0, len(dirs))
	for _, dir := range dirs {
		st, err := courseStatusOf(dir)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, nil
}

func courseStatusOf(dir string) (courseStatus, error) {
	st := courseStatus{Dir: dir, Counts: map[model.Kind]int{}}

	doc, err := document.Load(filepath.Join(dir, codec.CourseFile))
	if err != nil {
		return st, err
	}
	c, err := codec.EncodeCourse(doc)
	if err != nil {
		return st, err
	}
	st.Course = *c

	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		rel := util.RelPath(dir, path)
		switch {
		case d.Name() == codec.CourseFile:
			return nil
		case d.Name() == codec.ModuleFile:
			st.addModule(path, rel)
			return nil
		case !isDocumentFile(d.Name()):
			return nil
		}
		st.addDocument(path, rel)
		return nil
	})
	return st, err
}

func (st *courseStatus) addModule(path, rel string) {
	doc, err := document.Load(path)
	if err != nil {
		st.Unreadable = append(st.Unreadable, rel)
		return
	}
	m, err := codec.EncodeModule(doc)
	if err != nil {
		st.Unreadable = append(st.Unreadable, rel)
		return
	}
	st.Modules++
	for _, item := range m.Items {
		if item.ID == nil {
			st.Pending = append(st.Pending, fmt.Sprintf("%s: %s %q", rel, model.KindModuleItem, item.Title))
		}
	}
}

func (st *courseStatus) addDocument(path, rel string) {
	doc, err := document.Load(path)
	if err != nil {
		st.Unreadable = append(st.Unreadable, rel)
		return
	}
	if codec.ReadOnly(doc) {
		st.Reports++
		return
	}
	kind, err := codec.Detect(doc)
	if err != nil {
		st.Unreadable = append(st.Unreadable, rel)
		return
	}
	st.Counts[kind]++
	if !doc.Has(codec.KeyID) {
		st.Pending = append(st.Pending, rel)
	}
}

// isDocumentFile reports whether name can hold a document. Submission
// attachments live next to their documents and are not counted.
func isDocumentFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".md", ".yaml", ".yml":
		return !strings.HasPrefix(name, ".")
	default:
		return false
	}
}
