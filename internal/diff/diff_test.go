package diff

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/Brehove/canvas-cli-for-codex/internal/codec"
	"github.com/Brehove/canvas-cli-for-codex/internal/model"
	"github.com/Brehove/canvas-cli-for-codex/internal/ui"
)

func essay() *model.Assignment {
	due := time.Date(2026, 3, 1, 23, 59, 0, 0, time.UTC)
	return &model.Assignment{
		Base:            model.Base{ID: model.Int64(7), Title: "Essay 1", Published: true},
		Description:     "<p>Write <strong>500</strong> words.</p>",
		DueAt:           &due,
		PointsPossible:  model.Float64(20),
		SubmissionTypes: []string{"online_upload", "online_text_entry"},
	}
}

// candidateFrom pulls r into a document, applies edits and reads it back
// the way push does.
func candidateFrom(t *testing.T, r model.Resource, edits map[string]any) model.Resource {
	t.Helper()
	doc, err := codec.Decode(r)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	for key, value := range edits {
		if err := doc.SetField(key, value); err != nil {
			t.Fatalf("SetField(%q) error = %v", key, err)
		}
	}
	candidate, err := codec.Encode(doc, r.Kind())
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	return candidate
}

func TestDiffUnchangedDocumentIsEmpty(t *testing.T) {
	resources := map[string]model.Resource{
		"assignment": essay(),
		"page": &model.Page{
			Base: model.Base{ID: model.Int64(1), Title: "Syllabus", Published: true},
			URL:  "syllabus",
			Body: `<h2>Policies</h2><ul><li>Be kind</li><li>Be <em>on time</em></li></ul><table><caption>Scale</caption><tr><th scope="row">A</th><td>90</td></tr></table>`,
		},
		"discussion": &model.Discussion{
			Base:    model.Base{ID: model.Int64(55), Title: "Forum"},
			Message: "<p>Introduce yourself &amp; say hi.</p>",
		},
		"rubric": &model.Rubric{
			Base:           model.Base{ID: model.Int64(3), Title: "Essay Rubric"},
			PointsPossible: model.Float64(20),
			Criteria: []model.Criterion{
				{ID: "_1", Description: "Thesis", Points: 10, Ratings: []model.Rating{{ID: "r1", Description: "Full", Points: 10}}},
				{ID: "_2", Description: "Evidence", Points: 10},
			},
		},
		"module item": &model.ModuleItem{
			Base:     model.Base{ID: model.Int64(900), Title: "Read chapter 1", Published: true},
			ModuleID: 12,
			Type:     "Page",
			Position: 2,
		},
		"submission": &model.Submission{
			Base:         model.Base{ID: model.Int64(5001), Title: "Ada"},
			AssignmentID: 7,
			UserID:       77,
			Grade:        "18",
			Score:        model.Float64(18),
		},
	}

	for name, r := range resources {
		t.Run(name, func(t *testing.T) {
			cs, err := Diff(r, candidateFrom(t, r, nil))
			if err != nil {
				t.Fatalf("Diff() error = %v", err)
			}
			if !cs.Empty() {
				t.Errorf("Diff() = %v, want no changes", cs.Fields())
			}
		})
	}
}

func TestDiffPointsAndDueDate(t *testing.T) {
	current := essay()
	candidate := candidateFrom(t, current, map[string]any{
		"points_possible": 25,
		"due_at":          "2026-03-08T23:59:00Z",
	})

	cs, err := Diff(current, candidate)
	if err != nil {
		t.Fatalf("Diff() error = %v", err)
	}

	want := []string{FieldDueAt, FieldPointsPossible}
	if got := cs.Fields(); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("Fields() = %v, want %v", got, want)
	}
	if cs.Has(FieldBody) {
		t.Error("body should not change")
	}

	points, _ := cs.Get(FieldPointsPossible)
	if got := *points.New.(*float64); got != 25 {
		t.Errorf("points_possible new = %v, want 25", got)
	}
	due, _ := cs.Get(FieldDueAt)
	if got := due.New.(*time.Time).Day(); got != 8 {
		t.Errorf("due_at new day = %d, want 8", got)
	}
	if cs.Ref != (model.Ref{Kind: model.KindAssignment, ID: 7}) {
		t.Errorf("Ref = %+v", cs.Ref)
	}
}

func TestDiffSemanticEquality(t *testing.T) {
	base := func() *model.Assignment { return essay() }

	tests := map[string]struct {
		edit func(a *model.Assignment)
		want []string
	}{
		"points within tolerance": {
			edit: func(a *model.Assignment) { a.PointsPossible = model.Float64(20.0000001) },
		},
		"points beyond tolerance": {
			edit: func(a *model.Assignment) { a.PointsPossible = model.Float64(20.01) },
			want: []string{FieldPointsPossible},
		},
		"same instant in another zone": {
			edit: func(a *model.Assignment) {
				loc := time.FixedZone("MST", -7*3600)
				a.DueAt = model.Time(a.DueAt.In(loc))
			},
		},
		"due date cleared": {
			edit: func(a *model.Assignment) { a.DueAt = nil },
			want: []string{FieldDueAt},
		},
		"submission types reordered": {
			edit: func(a *model.Assignment) { a.SubmissionTypes = []string{"online_text_entry", "online_upload"} },
		},
		"submission type added": {
			edit: func(a *model.Assignment) { a.SubmissionTypes = append(a.SubmissionTypes, "online_url") },
			want: []string{FieldSubmissionTypes},
		},
		"title whitespace": {
			edit: func(a *model.Assignment) { a.Title = " Essay 1 " },
		},
		"title and body": {
			edit: func(a *model.Assignment) {
				a.Title = "Essay One"
				a.Description = "<p>Write <strong>750</strong> words.</p>"
			},
			want: []string{FieldTitle, FieldBody},
		},
		"unpublished": {
			edit: func(a *model.Assignment) { a.Published = false },
			want: []string{FieldPublished},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			current := base()
			candidate := candidateFrom(t, current, nil).(*model.Assignment)
			tt.edit(candidate)

			cs, err := Diff(current, candidate)
			if err != nil {
				t.Fatalf("Diff() error = %v", err)
			}
			if got := strings.Join(cs.Fields(), ","); got != strings.Join(tt.want, ",") {
				t.Errorf("Fields() = %q, want %q", got, strings.Join(tt.want, ","))
			}
		})
	}
}

func TestDiffRubricCriteriaOrder(t *testing.T) {
	current := &model.Rubric{
		Base: model.Base{ID: model.Int64(3), Title: "R"},
		Criteria: []model.Criterion{
			{ID: "_1", Description: "Thesis", Points: 10},
			{ID: "_2", Description: "Evidence", Points: 10},
		},
	}
	reordered := &model.Rubric{
		Base: model.Base{ID: model.Int64(3), Title: "R"},
		Criteria: []model.Criterion{
			{ID: "_2", Description: "Evidence", Points: 10},
			{ID: "_1", Description: "Thesis", Points: 10},
		},
	}

	cs, err := Diff(current, reordered)
	if err != nil {
		t.Fatalf("Diff() error = %v", err)
	}
	if got := cs.Fields(); len(got) != 1 || got[0] != FieldCriteria {
		t.Errorf("Fields() = %v, want [criteria]", got)
	}
}

func TestDiffSubmissionGrade(t *testing.T) {
	current := &model.Submission{Base: model.Base{ID: model.Int64(1)}, AssignmentID: 7, UserID: 77, Body: "<p>Essay</p>"}
	candidate := &model.Submission{Base: model.Base{ID: model.Int64(1)}, AssignmentID: 7, UserID: 77, Grade: "A", Body: "<p>Edited</p>"}

	cs, err := Diff(current, candidate)
	if err != nil {
		t.Fatalf("Diff() error = %v", err)
	}
	if got := cs.Fields(); len(got) != 1 || got[0] != FieldGrade {
		t.Errorf("Fields() = %v, want [grade]", got)
	}
}

func TestDiffRejectsKindMismatch(t *testing.T) {
	if _, err := Diff(&model.Page{}, &model.Assignment{}); err == nil {
		t.Error("expected error comparing a page with an assignment")
	}
	if _, err := Diff(nil, &model.Page{}); err == nil {
		t.Error("expected error for nil current")
	}
}

func TestAdditions(t *testing.T) {
	r := &model.Rubric{
		Base:     model.Base{Title: "New Rubric"},
		Criteria: []model.Criterion{{Description: "Clarity", Points: 5}},
	}
	cs := Additions(r)
	want := []string{FieldTitle, FieldCriteria}
	if got := cs.Fields(); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("Fields() = %v, want %v", got, want)
	}
	for _, ch := range cs.Changes {
		if ch.Old != nil {
			t.Errorf("%s: Old = %v, want nil", ch.Field, ch.Old)
		}
	}
	if cs.Ref.ID != 0 {
		t.Errorf("Ref.ID = %d, want 0", cs.Ref.ID)
	}
}

func TestPreview(t *testing.T) {
	ui.DisableColors()
	defer ui.EnableColors()

	current := essay()
	candidate := candidateFrom(t, current, map[string]any{"points_possible": 25}).(*model.Assignment)
	candidate.Description = "<p>Write <strong>750</strong> words.</p>"

	cs, err := Diff(current, candidate)
	if err != nil {
		t.Fatalf("Diff() error = %v", err)
	}

	var buf bytes.Buffer
	if err := Preview(&buf, cs, PreviewOptions{Indent: "  "}); err != nil {
		t.Fatalf("Preview() error = %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"  points_possible: 20 → 25\n",
		"  body: +1/-1 lines\n",
		"-Write **500** words.",
		"+Write **750** words.",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Preview() missing %q in:\n%s", want, out)
		}
	}

	buf.Reset()
	if err := Preview(&buf, ChangeSet{}, PreviewOptions{}); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "no changes\n" {
		t.Errorf("Preview(empty) = %q", buf.String())
	}
}

func TestPreviewRubricNotesCriteriaResent(t *testing.T) {
	ui.DisableColors()
	defer ui.EnableColors()

	current := &model.Rubric{
		Base:     model.Base{ID: model.Int64(19841), Title: "Essay Rubric"},
		Criteria: []model.Criterion{{ID: "c1", Description: "Thesis", Points: 20}},
	}
	candidate := *current
	candidate.Title = "Essay Rubric v2"

	cs, err := Diff(current, &candidate)
	if err != nil {
		t.Fatalf("Diff() error = %v", err)
	}
	if cs.Target != &candidate {
		t.Error("Target should be the candidate")
	}

	var buf bytes.Buffer
	if err := Preview(&buf, cs, PreviewOptions{}); err != nil {
		t.Fatalf("Preview() error = %v", err)
	}
	want := "title: \"Essay Rubric\" → \"Essay Rubric v2\"\ncriteria: unchanged, sent in full\n"
	if buf.String() != want {
		t.Errorf("Preview() = %q, want %q", buf.String(), want)
	}
}

func TestSummary(t *testing.T) {
	tests := map[string]struct {
		cs   ChangeSet
		want string
	}{
		"empty":  {cs: ChangeSet{}, want: "no changes"},
		"single": {cs: ChangeSet{Changes: []FieldChange{{Field: "title"}}}, want: "1 field: title"},
		"many": {
			cs:   ChangeSet{Changes: []FieldChange{{Field: "due_at"}, {Field: "points_possible"}}},
			want: "2 fields: due_at, points_possible",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			if got := Summary(tt.cs); got != tt.want {
				t.Errorf("Summary() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatValue(t *testing.T) {
	due := time.Date(2026, 3, 8, 23, 59, 0, 0, time.UTC)
	tests := map[string]struct {
		v    any
		want string
	}{
		"nil":      {v: nil, want: "(none)"},
		"string":   {v: "Essay", want: `"Essay"`},
		"float":    {v: model.Float64(2.5), want: "2.5"},
		"nil ptr":  {v: (*float64)(nil), want: "(none)"},
		"time":     {v: &due, want: "2026-03-08T23:59:00Z"},
		"list":     {v: []string{"a", "b"}, want: "[a, b]"},
		"criteria": {v: []model.Criterion{{Description: "Thesis", Points: 10}}, want: "[Thesis (10)]"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			if got := FormatValue(tt.v); got != tt.want {
				t.Errorf("FormatValue() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLineDiff(t *testing.T) {
	hs := LineDiff("a\nb\nc\n", "a\nB\nc\nd\n")
	if len(hs) != 2 {
		t.Fatalf("LineDiff() = %d hunks, want 2: %+v", len(hs), hs)
	}
	if hs[0].Header() != "@@ -2,1 +2,1 @@" {
		t.Errorf("first hunk header = %q", hs[0].Header())
	}
	if hs[1].NewCount != 1 || hs[1].OldCount != 0 {
		t.Errorf("second hunk = %+v", hs[1])
	}
	if len(LineDiff("same", "same")) != 0 {
		t.Error("identical texts should not produce hunks")
	}
}
