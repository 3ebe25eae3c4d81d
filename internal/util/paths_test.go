package util

import (
	"path/filepath"
	"testing"
)

func TestHomeDir(t *testing.T) {
	home := HomeDir()
	if home == "" {
		t.Error("HomeDir() returned empty string")
	}

	// Verify it's an absolute path
	if !filepath.IsAbs(home) {
		t.Errorf("HomeDir() returned relative path: %s", home)
	}
}

func TestExpandHome(t *testing.T) {
	tests := map[string]struct {
		input string
		want  string
	}{
		"tilde only": {input: "~", want: HomeDir()},
		"tilde path": {input: "~/Canvas", want: filepath.Join(HomeDir(), "Canvas")},
		"absolute":   {input: "/srv/canvas", want: "/srv/canvas"},
		"tilde user": {input: "~bob/x", want: "~bob/x"},
		"relative":   {input: "courses", want: "courses"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			if got := ExpandHome(tt.input); got != tt.want {
				t.Errorf("ExpandHome(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestFindUp(t *testing.T) {
	root := t.TempDir()
	WriteFile(t, filepath.Join(root, "course", "_course.yaml"), "canvas_id: 1\n")
	WriteFile(t, filepath.Join(root, "course", "pages", "intro.md"), "---\n---\n")

	got := FindUp(filepath.Join(root, "course", "pages", "intro.md"), "_course.yaml")
	if want := filepath.Join(root, "course", "_course.yaml"); got != want {
		t.Errorf("FindUp(file) = %q, want %q", got, want)
	}

	got = FindUp(filepath.Join(root, "course", "pages"), "_course.yaml")
	if want := filepath.Join(root, "course", "_course.yaml"); got != want {
		t.Errorf("FindUp(dir) = %q, want %q", got, want)
	}

	if got := FindUp(root, "_course.yaml"); got != "" {
		t.Errorf("FindUp() above the course = %q, want empty", got)
	}
}

func TestRelPath(t *testing.T) {
	if got := RelPath("/a/b", "/a/b/c/d.md"); got != filepath.Join("c", "d.md") {
		t.Errorf("RelPath() = %q", got)
	}
	if got := RelPath("/a/b", "/x/y.md"); got != "/x/y.md" {
		t.Errorf("RelPath() outside base = %q", got)
	}
}
