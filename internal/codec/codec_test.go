package codec

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Brehove/canvas-cli-for-codex/internal/document"
	"github.com/Brehove/canvas-cli-for-codex/internal/faults"
	"github.com/Brehove/canvas-cli-for-codex/internal/model"
	"github.com/Brehove/canvas-cli-for-codex/internal/transcode"
)

func sampleResources() map[string]model.Resource {
	due := time.Date(2026, 1, 20, 6, 59, 59, 0, time.UTC)
	submitted := time.Date(2026, 1, 19, 22, 0, 0, 0, time.UTC)
	attempt := 2

	return map[string]model.Resource{
		"page with accessible table": &model.Page{
			Base: model.Base{ID: model.Int64(42), Title: "Syllabus", Published: true},
			URL:  "syllabus",
			Body: `<h2>Grading</h2><table><caption>Scale</caption><tr><th scope="row">A</th><td>90</td></tr></table>`,
		},
		"assignment": &model.Assignment{
			Base:            model.Base{ID: model.Int64(7), Title: "Essay 1", Published: true},
			Description:     "<p>Write <strong>500</strong> words.</p>",
			DueAt:           &due,
			PointsPossible:  model.Float64(20),
			SubmissionTypes: []string{"online_upload", "online_text_entry"},
			RubricID:        model.Int64(3),
		},
		"graded discussion assignment": &model.Assignment{
			Base:              model.Base{ID: model.Int64(8), Title: "Forum 1"},
			PointsPossible:    model.Float64(2.5),
			SubmissionTypes:   []string{"discussion_topic"},
			DiscussionTopicID: model.Int64(55),
		},
		"discussion": &model.Discussion{
			Base:         model.Base{ID: model.Int64(55), Title: "Forum 1", Published: true},
			Message:      "<p>Introduce yourself.</p>",
			AssignmentID: model.Int64(8),
		},
		"rubric": &model.Rubric{
			Base:           model.Base{ID: model.Int64(3), Title: "Essay Rubric"},
			PointsPossible: model.Float64(20),
			Criteria: []model.Criterion{
				{ID: "_1", Description: "Thesis", LongDescription: "Clear claim", Points: 10, Ratings: []model.Rating{
					{ID: "r1", Description: "Full", Points: 10},
					{ID: "r2", Description: "None", Points: 0},
				}},
				{ID: "_2", Description: "Evidence", Points: 10},
			},
		},
		"module item": &model.ModuleItem{
			Base:      model.Base{ID: model.Int64(900), Title: "Read chapter 1", Published: true},
			ModuleID:  12,
			Type:      "Page",
			PageURL:   "chapter-1",
			Position:  1,
			Indent:    1,
			ContentID: model.Int64(31),
		},
		"submission": &model.Submission{
			Base:          model.Base{ID: model.Int64(5001), Title: "Ada Lovelace"},
			AssignmentID:  7,
			UserID:        77,
			SubmittedAt:   &submitted,
			WorkflowState: "graded",
			Type:          "online_text_entry",
			Attempt:       &attempt,
			Grade:         "18",
			Score:         model.Float64(18),
			Body:          "<p>My essay.</p>",
			Attachments:   []model.Attachment{{ID: 1, Filename: "essay.pdf", ContentType: "application/pdf"}},
			Comments:      []model.Comment{{Author: "Instructor", CreatedAt: &submitted, Text: "Nice work"}},
		},
	}
}

func body(r model.Resource) string {
	switch v := r.(type) {
	case *model.Page:
		return v.Body
	case *model.Assignment:
		return v.Description
	case *model.Discussion:
		return v.Message
	case *model.Submission:
		return v.Body
	}
	return ""
}

func pathFor(kind model.Kind) string {
	switch kind {
	case model.KindRubric, model.KindModuleItem:
		return filepath.Join("course", kind.Subdir(), "doc.yaml")
	case model.KindSubmission:
		return filepath.Join("course", "submissions", "essay-1", "doc.md")
	}
	return filepath.Join("course", kind.Subdir(), "doc.md")
}

func TestRoundTrip(t *testing.T) {
	for name, r := range sampleResources() {
		t.Run(name, func(t *testing.T) {
			decoded, err := Decode(r)
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}

			parsed, err := document.Parse(pathFor(r.Kind()), decoded.Bytes())
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}

			kind, err := Detect(parsed)
			if err != nil {
				t.Fatalf("Detect() error = %v", err)
			}
			if kind != r.Kind() {
				t.Fatalf("Detect() = %q, want %q", kind, r.Kind())
			}

			encoded, err := Encode(parsed, kind)
			if err != nil {
				t.Fatalf("Encode() error = %v", err)
			}

			again, err := Decode(encoded)
			if err != nil {
				t.Fatalf("Decode(Encode()) error = %v", err)
			}
			if !bytes.Equal(again.Header, decoded.Header) {
				t.Errorf("header changed across round trip:\n%s\nwant:\n%s", again.Header, decoded.Header)
			}
			if got, want := body(encoded), transcode.Normalize(body(r)); got != want {
				t.Errorf("body = %q, want %q", got, want)
			}
		})
	}
}

func TestDecodeIsDeterministic(t *testing.T) {
	page := &model.Page{
		Base: model.Base{ID: model.Int64(42), Title: "Syllabus", Published: true},
		URL:  "syllabus",
		Body: "<p>Hello</p>",
	}

	want := "---\ncanvas_id: 42\ncanvas_url: syllabus\ntitle: Syllabus\npublished: true\ncanvas_origin: page/42\n---\n\nHello\n"
	for range 3 {
		doc, err := Decode(page)
		if err != nil {
			t.Fatalf("Decode() error = %v", err)
		}
		if got := string(doc.Bytes()); got != want {
			t.Fatalf("Decode() =\n%q\nwant\n%q", got, want)
		}
	}
}

func TestEncodeNewDocument(t *testing.T) {
	doc, err := document.Parse("course/pages/new.md", []byte("---\ncanvas_id: null\ntitle: Office Hours\n---\n\nTuesdays.\n"))
	if err != nil {
		t.Fatal(err)
	}
	r, err := Encode(doc, model.KindPage)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if r.RemoteID() != nil {
		t.Errorf("new page should have nil id, got %d", *r.RemoteID())
	}
	if page := r.(*model.Page); page.Body != "<p>Tuesdays.</p>" {
		t.Errorf("Body = %q", page.Body)
	}
}

func TestEncodeValidation(t *testing.T) {
	tests := map[string]struct {
		kind   model.Kind
		path   string
		header string
		field  string
	}{
		"missing title": {
			kind: model.KindPage, header: "canvas_id: 1\n", field: "title",
		},
		"quoted id": {
			kind: model.KindPage, header: "canvas_id: \"42\"\ntitle: x\n", field: KeyID,
		},
		"fractional id": {
			kind: model.KindPage, header: "canvas_id: 42.5\ntitle: x\n", field: KeyID,
		},
		"published not a bool": {
			kind: model.KindPage, header: "canvas_id: 1\ntitle: x\npublished: yes\n", field: "published",
		},
		"points not a number": {
			kind: model.KindAssignment, header: "canvas_id: 1\ntitle: x\npoints_possible: twenty\n", field: "points_possible",
		},
		"negative points": {
			kind: model.KindAssignment, header: "canvas_id: 1\ntitle: x\npoints_possible: -5\n", field: "points_possible",
		},
		"nan points": {
			kind: model.KindAssignment, header: "canvas_id: 1\ntitle: x\npoints_possible: .nan\n", field: "points_possible",
		},
		"malformed due date": {
			kind: model.KindAssignment, header: "canvas_id: 1\ntitle: x\ndue_at: next tuesday\n", field: "due_at",
		},
		"submission types not a list": {
			kind: model.KindAssignment, header: "canvas_id: 1\ntitle: x\nsubmission_types: online_upload\n", field: "submission_types",
		},
		"id changed after pull": {
			kind: model.KindAssignment, header: "canvas_id: 8\ntitle: x\ncanvas_origin: assignment/7\n", field: KeyID,
		},
		"id cleared after pull": {
			kind: model.KindAssignment, header: "canvas_id: null\ntitle: x\ncanvas_origin: assignment/7\n", field: KeyID,
		},
		"origin of another kind": {
			kind: model.KindAssignment, header: "canvas_id: 7\ntitle: x\ncanvas_origin: page/7\n", field: KeyOrigin,
		},
		"malformed origin": {
			kind: model.KindPage, header: "canvas_id: 7\ntitle: x\ncanvas_origin: seven\n", field: KeyOrigin,
		},
		"rubric without criteria": {
			kind: model.KindRubric, path: "course/rubrics/r.yaml", header: "canvas_id: 3\ntitle: R\n", field: "criteria",
		},
		"rubric criterion without points": {
			kind:   model.KindRubric,
			path:   "course/rubrics/r.yaml",
			header: "canvas_id: 3\ntitle: R\ncriteria:\n  - description: Thesis\n",
			field:  "criteria[0].points",
		},
		"submission without id": {
			kind:   model.KindSubmission,
			header: "canvas_id: null\nassignment_id: 7\nstudent_id: 77\n",
			field:  KeyID,
		},
		"module item without module": {
			kind: model.KindModuleItem, path: "course/m/item.yaml", header: "canvas_id: 1\ntitle: x\ntype: Page\n", field: "module_id",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			path := tt.path
			var data string
			if path == "" {
				path = "course/doc.md"
				data = "---\n" + tt.header + "---\n\nbody\n"
			} else {
				data = tt.header
			}
			doc, err := document.Parse(path, []byte(data))
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}

			_, err = Encode(doc, tt.kind)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !faults.IsCategory(err, faults.ValidationError) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if !strings.HasPrefix(err.Error(), tt.field+":") {
				t.Errorf("error %q does not name field %q", err, tt.field)
			}
		})
	}
}

func TestDetect(t *testing.T) {
	tests := map[string]struct {
		path   string
		data   string
		want   model.Kind
		reject bool
	}{
		"explicit kind wins":    {path: "c/pages/x.md", data: "---\ncanvas_kind: discussion\n---\n", want: model.KindDiscussion},
		"origin recorded":       {path: "c/week-1/x.md", data: "---\ncanvas_origin: assignment/4\n---\n", want: model.KindAssignment},
		"rubric folder":         {path: "c/rubrics/x.yaml", data: "title: R\n", want: model.KindRubric},
		"submission folder":     {path: "c/submissions/essay/ada.md", data: "---\ntitle: x\n---\n", want: model.KindSubmission},
		"discussions folder":    {path: "c/discussions/x.md", data: "---\ntitle: x\n---\n", want: model.KindDiscussion},
		"page by canvas_url":    {path: "c/week-1/x.md", data: "---\ncanvas_url: x\n---\n", want: model.KindPage},
		"assignment by types":   {path: "c/week-1/x.md", data: "---\nsubmission_types: [online_upload]\n---\n", want: model.KindAssignment},
		"module item yaml":      {path: "c/week-1/item.yaml", data: "type: Page\ntitle: x\n", want: model.KindModuleItem},
		"defaults to page":      {path: "c/week-1/x.md", data: "---\ntitle: x\n---\n", want: model.KindPage},
		"discussion posts skip": {path: "c/discussions/x-posts.md", data: "---\ncanvas_kind: discussion_posts\n---\n", reject: true},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			doc, err := document.Parse(tt.path, []byte(tt.data))
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			got, err := Detect(doc)
			if tt.reject {
				if err == nil || !ReadOnly(doc) {
					t.Fatalf("expected read-only rejection, got %q, %v", got, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Detect() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Detect() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestModuleDescriptor(t *testing.T) {
	m := model.Module{
		ID:        12,
		Name:      "Week 1",
		Position:  1,
		Published: true,
		Items: []model.ModuleItem{
			{Base: model.Base{ID: model.Int64(900), Title: "Syllabus", Published: true}, Type: "Page", PageURL: "syllabus", Position: 1},
			{Base: model.Base{ID: model.Int64(901), Title: "Essay 1"}, Type: "Assignment", ContentID: model.Int64(7), Position: 2, Indent: 1},
		},
	}

	doc, err := DecodeModule(m)
	if err != nil {
		t.Fatalf("DecodeModule() error = %v", err)
	}
	parsed, err := document.Parse(filepath.Join("course", "week-1", ModuleFile), doc.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	got, err := EncodeModule(parsed)
	if err != nil {
		t.Fatalf("EncodeModule() error = %v", err)
	}

	if got.ID != 12 || got.Name != "Week 1" || len(got.Items) != 2 {
		t.Fatalf("EncodeModule() = %+v", got)
	}
	second := got.Items[1]
	if second.ModuleID != 12 || *second.ID != 901 || *second.ContentID != 7 || second.Indent != 1 || second.Position != 2 {
		t.Errorf("item = %+v", second)
	}
}

func TestCourseDescriptor(t *testing.T) {
	doc, err := DecodeCourse(model.Course{ID: 101, Name: "History 101", Code: "HIST-101", Term: "Fall 2026"})
	if err != nil {
		t.Fatal(err)
	}
	parsed, err := document.Parse(CourseFile, doc.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	c, err := EncodeCourse(parsed)
	if err != nil {
		t.Fatalf("EncodeCourse() error = %v", err)
	}
	if c.ID != 101 || c.Code != "HIST-101" || c.Term != "Fall 2026" {
		t.Errorf("EncodeCourse() = %+v", c)
	}
}
