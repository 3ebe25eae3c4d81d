package document

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Brehove/canvas-cli-for-codex/internal/faults"
)

func TestSplitFrontmatter(t *testing.T) {
	tests := map[string]struct {
		input      string
		wantFound  bool
		wantHeader string
		wantBody   string
	}{
		"header and body": {
			input:      "---\ntitle: Week 1\n---\n\nBody text\n",
			wantFound:  true,
			wantHeader: "title: Week 1\n",
			wantBody:   "\nBody text\n",
		},
		"windows line endings": {
			input:      "---\r\ntitle: x\r\n---\r\nBody",
			wantFound:  true,
			wantHeader: "title: x\n",
			wantBody:   "Body",
		},
		"empty header": {
			input:     "---\n---\nBody",
			wantFound: true,
			wantBody:  "Body",
		},
		"no header": {
			input:    "Just text",
			wantBody: "Just text",
		},
		"unterminated header": {
			input:    "---\ntitle: x\nstill header",
			wantBody: "---\ntitle: x\nstill header",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			header, body, found := splitFrontmatter([]byte(tt.input))
			if found != tt.wantFound {
				t.Fatalf("found = %v, want %v", found, tt.wantFound)
			}
			if string(header) != tt.wantHeader {
				t.Errorf("header = %q, want %q", header, tt.wantHeader)
			}
			if body != tt.wantBody {
				t.Errorf("body = %q, want %q", body, tt.wantBody)
			}
		})
	}
}

func TestParseAndRender(t *testing.T) {
	input := "---\ncanvas_id: 42\ntitle: Syllabus\n---\n\n# Welcome\n\nHello.\n"

	doc, err := Parse("pages/syllabus.md", []byte(input))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if doc.Format != Markdown {
		t.Errorf("Format = %v, want markdown", doc.Format)
	}
	if doc.Body != "# Welcome\n\nHello." {
		t.Errorf("Body = %q", doc.Body)
	}
	if got := string(doc.Bytes()); got != input {
		t.Errorf("Bytes() = %q, want %q", got, input)
	}

	if v, ok := doc.Field("title"); !ok || v != "Syllabus" {
		t.Errorf("Field(title) = %q, %v", v, ok)
	}
	if _, ok := doc.Field("missing"); ok {
		t.Error("Field(missing) should not be found")
	}
}

func TestParseErrors(t *testing.T) {
	tests := map[string]struct {
		path  string
		input string
	}{
		"markdown without header": {path: "a.md", input: "no header here"},
		"invalid yaml":            {path: "a.md", input: "---\ntitle: [unclosed\n---\nbody"},
		"header not a mapping":    {path: "a.md", input: "---\n- one\n- two\n---\nbody"},
		"yaml descriptor list":    {path: "rubric.yaml", input: "- a\n- b\n"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(tt.path, []byte(tt.input))
			if err == nil {
				t.Fatal("expected error")
			}
			if !faults.IsCategory(err, faults.ValidationError) {
				t.Errorf("expected ValidationError, got %v", err)
			}
		})
	}
}

func TestSetFieldPreservesOtherEntries(t *testing.T) {
	input := "---\ncanvas_id: null\ntitle: Homework 1 # keep me\npoints_possible: 20\n---\n\nDo the reading.\n"
	doc, err := Parse("assignments/homework-1.md", []byte(input))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if err := doc.SetField("canvas_id", int64(981)); err != nil {
		t.Fatalf("SetField() error = %v", err)
	}

	want := "---\ncanvas_id: 981\ntitle: Homework 1 # keep me\npoints_possible: 20\n---\n\nDo the reading.\n"
	if got := string(doc.Bytes()); got != want {
		t.Errorf("after SetField:\n%s\nwant:\n%s", got, want)
	}

	if err := doc.SetField("canvas_origin", "assignment/981"); err != nil {
		t.Fatalf("SetField(new key) error = %v", err)
	}
	if !strings.Contains(string(doc.Header), "canvas_origin: assignment/981\n") {
		t.Errorf("new key not appended: %s", doc.Header)
	}
}

func TestSetItemField(t *testing.T) {
	input := "canvas_id: 12\nname: Week 1\nitems:\n  - canvas_id: 900\n    title: Welcome\n  - canvas_id: null\n    title: Readings\n"
	doc, err := Parse("week-1/_module.yaml", []byte(input))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if err := doc.SetItemField("items", 1, "canvas_id", int64(905)); err != nil {
		t.Fatalf("SetItemField() error = %v", err)
	}
	got := string(doc.Bytes())
	for _, want := range []string{"canvas_id: 12\n", "canvas_id: 900\n", "canvas_id: 905\n", "title: Readings\n"} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %q in:\n%s", want, got)
		}
	}
	if strings.Contains(got, "null") {
		t.Errorf("null id left behind:\n%s", got)
	}

	tests := map[string]struct {
		list  string
		index int
	}{
		"missing list":   {list: "entries", index: 0},
		"out of range":   {list: "items", index: 2},
		"not a sequence": {list: "name", index: 0},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			if err := doc.SetItemField(tt.list, tt.index, "canvas_id", 1); !faults.IsCategory(err, faults.ValidationError) {
				t.Errorf("SetItemField() error = %v, want ValidationError", err)
			}
		})
	}
}

func TestYAMLDocument(t *testing.T) {
	input := "canvas_id: 7\ntitle: Essay Rubric\n"
	doc, err := Parse("rubrics/essay-rubric.yaml", []byte(input))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if doc.Format != YAML {
		t.Fatalf("Format = %v, want yaml", doc.Format)
	}
	if string(doc.Bytes()) != input {
		t.Errorf("Bytes() = %q", doc.Bytes())
	}
}

func TestNewAndSave(t *testing.T) {
	type header struct {
		ID    *int64 `yaml:"canvas_id"`
		Title string `yaml:"title"`
	}
	doc, err := New(Markdown, header{Title: "Draft"}, "\n\nBody\n\n")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	doc.Path = filepath.Join(t.TempDir(), "pages", "draft.md")
	if err := doc.Save(); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	data, err := os.ReadFile(doc.Path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	want := "---\ncanvas_id: null\ntitle: Draft\n---\n\nBody\n"
	if string(data) != want {
		t.Errorf("saved = %q, want %q", data, want)
	}

	loaded, err := Load(doc.Path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	var h header
	if err := loaded.DecodeHeader(&h); err != nil {
		t.Fatalf("DecodeHeader() error = %v", err)
	}
	if h.ID != nil || h.Title != "Draft" {
		t.Errorf("decoded header = %+v", h)
	}
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.md"))
	if !faults.IsCategory(err, faults.NotFoundError) {
		t.Errorf("expected NotFoundError, got %v", err)
	}
}

func TestWriteFileLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.md")
	for _, content := range []string{"one", "two"} {
		if err := WriteFile(path, []byte(content)); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("expected 1 file, found %d", len(entries))
	}
	data, _ := os.ReadFile(path)
	if string(data) != "two" {
		t.Errorf("content = %q, want two", data)
	}
}
