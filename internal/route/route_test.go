package route

import (
	"path/filepath"
	"testing"
)

func TestFolderFor(t *testing.T) {
	r := New(map[string]string{
		"PHIL":     "CWI/Philosophy",
		"PHIL-123": "CWI/Ethics",
		"HIST":     "History",
		"":         "ignored",
	}, "courses")

	tests := map[string]struct {
		code, name string
		want       string
	}{
		"longest prefix wins": {code: "PHIL-123-001H", name: "2026SP-PHIL-123-001H-16W: AI and Ethics", want: "CWI/Ethics"},
		"shorter prefix":      {code: "PHIL-101", name: "Intro to Philosophy", want: "CWI/Philosophy"},
		"case insensitive":    {code: "hist-200", name: "", want: "History"},
		"match in name":       {code: "", name: "World HIST Survey", want: "History"},
		"no partial token":    {code: "PHILOSOPHY-1", name: "", want: "courses"},
		"no match uses default": {code: "MATH-1", name: "Calculus", want: "courses"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			if got := r.FolderFor(tt.code, tt.name); got != tt.want {
				t.Errorf("FolderFor(%q, %q) = %q, want %q", tt.code, tt.name, got, tt.want)
			}
		})
	}
}

func TestRouteIsDeterministic(t *testing.T) {
	r := New(map[string]string{"ENG": "English", "ENGL": "Literature"}, "")
	want := filepath.Join("Literature", "FA25-ENGL-102-codex-course")
	for range 20 {
		if got := r.Route("ENGL-102", "2025FA-ENGL-102-003: Composition"); got != want {
			t.Fatalf("Route() = %q, want %q", got, want)
		}
	}
	if r.DefaultFolder() != DefaultFolder {
		t.Errorf("DefaultFolder() = %q, want %q", r.DefaultFolder(), DefaultFolder)
	}
	if rules := r.Rules(); rules[0].Prefix != "ENGL" {
		t.Errorf("Rules()[0] = %+v, want ENGL first", rules[0])
	}
}

func TestParseCourseInfo(t *testing.T) {
	tests := map[string]struct {
		name   string
		want   CourseInfo
		wantOK bool
	}{
		"standard":   {name: "2026SP-PHIL-123-001H-16W: AI and Ethics", want: CourseInfo{Semester: "SP26", Code: "PHIL-123"}, wantOK: true},
		"lowercase":  {name: "2025fa-hist-101", want: CourseInfo{Semester: "FA25", Code: "HIST-101"}, wantOK: true},
		"non-standard": {name: "Faculty Sandbox"},
		"empty":      {name: ""},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got, ok := ParseCourseInfo(tt.name)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("ParseCourseInfo(%q) = %+v, %v; want %+v, %v", tt.name, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestCourseSubfolder(t *testing.T) {
	tests := map[string]struct {
		name string
		want string
	}{
		"standard name":    {name: "2026SP-PHIL-123-001H-16W: AI and Ethics", want: "SP26-PHIL-123-codex-course"},
		"non-standard":     {name: "Faculty Sandbox", want: "faculty-sandbox-codex-course"},
		"empty":            {name: "", want: "codex-course"},
		"only punctuation": {name: "???", want: "codex-course"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			if got := CourseSubfolder(tt.name); got != tt.want {
				t.Errorf("CourseSubfolder(%q) = %q, want %q", tt.name, got, tt.want)
			}
		})
	}
}

func TestSlugify(t *testing.T) {
	tests := map[string]struct {
		input string
		want  string
	}{
		"spaces":           {input: "Week 1 Intro", want: "Week-1-Intro"},
		"unsafe chars":     {input: `What? Why: "because"`, want: "What-Why-because"},
		"collapse dashes":  {input: "A -- B", want: "A-B"},
		"trim":             {input: "  padded  ", want: "padded"},
		"slash":            {input: "Pass/Fail", want: "PassFail"},
		"nfc normalized":   {input: "Café", want: "Café"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			if got := Slugify(tt.input); got != tt.want {
				t.Errorf("Slugify(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}

	long := ""
	for range 30 {
		long += "word "
	}
	if got := Slugify(long); len([]rune(got)) > maxSlug {
		t.Errorf("Slugify() length = %d, want <= %d", len([]rune(got)), maxSlug)
	}
}

func TestMatchesName(t *testing.T) {
	tests := map[string]struct {
		search, target string
		want           bool
	}{
		"exact":                 {search: "Syllabus", target: "Syllabus", want: true},
		"case insensitive":      {search: "syllabus", target: "Course Syllabus", want: true},
		"decimal prefix":        {search: "1.5", target: "1.5 Assignment", want: true},
		"decimal not inside":    {search: "1.5", target: "11.5 Assignment", want: false},
		"module number":         {search: "Module 1", target: "Module 1 - Intro", want: true},
		"module number prefix":  {search: "Module 1", target: "Module 10", want: false},
		"trailing punctuation":  {search: "Essay", target: "Essay: Draft", want: true},
		"substring inside word": {search: "say", target: "Essay", want: false},
		"empty search":          {search: " ", target: "anything", want: false},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			if got := MatchesName(tt.search, tt.target); got != tt.want {
				t.Errorf("MatchesName(%q, %q) = %v, want %v", tt.search, tt.target, got, tt.want)
			}
		})
	}
}
