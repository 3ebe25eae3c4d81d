package push

import (
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/Brehove/canvas-cli-for-codex/internal/codec"
	"github.com/Brehove/canvas-cli-for-codex/internal/document"
	"github.com/Brehove/canvas-cli-for-codex/internal/faults"
	"github.com/Brehove/canvas-cli-for-codex/internal/model"
	"github.com/Brehove/canvas-cli-for-codex/internal/route"
	"github.com/Brehove/canvas-cli-for-codex/internal/util"
)

// Target is what a push publishes: one file, or every document pulled
// into a module folder.
type Target struct {
	path   string
	module string
}

// FileTarget pushes the document at path.
func FileTarget(path string) Target {
	return Target{path: path}
}

// ModuleTarget pushes the module whose name or folder matches name.
func ModuleTarget(name string) Target {
	return Target{module: name}
}

// IsModule reports whether t names a module.
func (t Target) IsModule() bool {
	return t.module != ""
}

func (t Target) String() string {
	if t.IsModule() {
		return "module " + t.module
	}
	return t.path
}

// moduleFolder is a module descriptor found on disk.
type moduleFolder struct {
	dir    string
	doc    *document.Document
	module *model.Module
}

// findModule searches root for a module descriptor matching name. A
// case-insensitive exact name wins over partial matches.
func findModule(root, name string) (*moduleFolder, error) {
	var found []*moduleFolder
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
		if d.Name() != codec.ModuleFile {
			return nil
		}
		doc, err := document.Load(path)
		if err != nil {
			return err
		}
		m, err := codec.EncodeModule(doc)
		if err != nil {
			return err
		}
		found = append(found, &moduleFolder{dir: filepath.Dir(path), doc: doc, module: m})
		return nil
	})
	if err != nil {
		return nil, err
	}

	var matches []*moduleFolder
	for _, mf := range found {
		if strings.EqualFold(strings.TrimSpace(name), mf.module.Name) {
			return mf, nil
		}
		if moduleMatches(name, mf.module.Name) || moduleMatches(name, filepath.Base(mf.dir)) {
			matches = append(matches, mf)
		}
	}

	switch len(matches) {
	case 0:
		return nil, faults.NotFound("no pulled module matching %q under %s", name, root)
	case 1:
		return matches[0], nil
	default:
		names := make([]string, 0, len(matches))
		for _, mf := range matches {
			names = append(names, mf.module.Name)
		}
		return nil, faults.Invalid("module", "%q matches %d modules: %s", name, len(matches), strings.Join(names, ", "))
	}
}

func moduleMatches(search, name string) bool {
	return route.MatchesName(search, name) ||
		strings.Contains(strings.ToLower(name), strings.ToLower(strings.TrimSpace(search)))
}

// moduleDocuments lists the Markdown documents in a module folder in name
// order.
func moduleDocuments(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") || filepath.Ext(e.Name()) != ".md" {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	slices.Sort(paths)
	return paths, nil
}

// courseOf reads the course id from the nearest course descriptor above
// path.
func courseOf(path string) (int64, error) {
	descriptor := util.FindUp(path, codec.CourseFile)
	if descriptor == "" {
		return 0, faults.Invalid("course", "%s is not inside a pulled course folder (no %s found); pass the course explicitly", path, codec.CourseFile)
	}
	doc, err := document.Load(descriptor)
	if err != nil {
		return 0, err
	}
	c, err := codec.EncodeCourse(doc)
	if err != nil {
		return 0, err
	}
	return c.ID, nil
}
