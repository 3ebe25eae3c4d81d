// Package codec maps remote resources to local documents and back.
//
// Decode is total for well-formed resources. Encode validates the header of a
// local document and reconstructs the resource it describes, converting the
// Markdown body back to HTML. Neither direction performs I/O.
package codec

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/Brehove/canvas-cli-for-codex/internal/document"
	"github.com/Brehove/canvas-cli-for-codex/internal/faults"
	"github.com/Brehove/canvas-cli-for-codex/internal/model"
	"github.com/Brehove/canvas-cli-for-codex/internal/transcode"
)

// Header keys with meaning across kinds.
const (
	KeyID     = "canvas_id"
	KeyOrigin = "canvas_origin"
	KeyKind   = "canvas_kind"
)

// KindDiscussionPosts marks the read-only discussion post export written by pull.
const KindDiscussionPosts = "discussion_posts"

// Origin formats the canvas_origin header value.
func Origin(kind model.Kind, id int64) string {
	return fmt.Sprintf("%s/%d", kind, id)
}

// ParseOrigin splits a canvas_origin header value.
func ParseOrigin(s string) (model.Kind, int64, error) {
	kind, idText, ok := strings.Cut(s, "/")
	if !ok {
		return "", 0, faults.Invalid(KeyOrigin, "must look like <kind>/<id>, got %q", s)
	}
	k := model.Kind(kind)
	if !k.IsValid() {
		return "", 0, faults.Invalid(KeyOrigin, "unknown kind %q", kind)
	}
	id, err := strconv.ParseInt(idText, 10, 64)
	if err != nil || id <= 0 {
		return "", 0, faults.Invalid(KeyOrigin, "invalid id %q", idText)
	}
	return k, id, nil
}

func origin(r model.Resource) string {
	if id := r.RemoteID(); id != nil {
		return Origin(r.Kind(), *id)
	}
	return ""
}

// FormatTime renders a timestamp the way headers store it.
func FormatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// Decode renders r as a local document. The document has no Path.
func Decode(r model.Resource) (*document.Document, error) {
	switch v := r.(type) {
	case *model.Page:
		return document.New(document.Markdown, pageHeader{
			ID:        v.ID,
			URL:       v.URL,
			Title:     v.Title,
			Published: v.Published,
			Origin:    origin(v),
		}, transcode.ToMarkdown(v.Body))

	case *model.Assignment:
		return document.New(document.Markdown, assignmentHeader{
			ID:                v.ID,
			Title:             v.Title,
			DueAt:             FormatTime(v.DueAt),
			PointsPossible:    v.PointsPossible,
			SubmissionTypes:   v.SubmissionTypes,
			Published:         v.Published,
			RubricID:          v.RubricID,
			DiscussionTopicID: v.DiscussionTopicID,
			Origin:            origin(v),
		}, transcode.ToMarkdown(v.Description))

	case *model.Discussion:
		return document.New(document.Markdown, discussionHeader{
			ID:           v.ID,
			Title:        v.Title,
			Published:    v.Published,
			AssignmentID: v.AssignmentID,
			Origin:       origin(v),
		}, transcode.ToMarkdown(v.Message))

	case *model.Rubric:
		return document.New(document.YAML, rubricHeader{
			ID:             v.ID,
			Title:          v.Title,
			PointsPossible: v.PointsPossible,
			Criteria:       criteriaHeaders(v.Criteria),
			Origin:         origin(v),
		}, "")

	case *model.ModuleItem:
		h := itemHeader(*v)
		h.ModuleID = v.ModuleID
		h.Origin = origin(v)
		return document.New(document.YAML, h, "")

	case *model.Submission:
		return document.New(document.Markdown, submissionHeaderFor(v), transcode.ToMarkdown(v.Body))

	default:
		return nil, fmt.Errorf("cannot decode resource of type %T", r)
	}
}

func criteriaHeaders(criteria []model.Criterion) []criterionHeader {
	out := make([]criterionHeader, 0, len(criteria))
	for _, c := range criteria {
		ch := criterionHeader{
			ID:              c.ID,
			Description:     c.Description,
			LongDescription: c.LongDescription,
			Points:          c.Points,
		}
		for _, r := range c.Ratings {
			ch.Ratings = append(ch.Ratings, ratingHeader{
				ID:              r.ID,
				Description:     r.Description,
				LongDescription: r.LongDescription,
				Points:          r.Points,
			})
		}
		out = append(out, ch)
	}
	return out
}

func itemHeader(item model.ModuleItem) moduleItemHeader {
	return moduleItemHeader{
		ID:        item.ID,
		Title:     item.Title,
		Type:      item.Type,
		ContentID: item.ContentID,
		PageURL:   item.PageURL,
		Position:  item.Position,
		Indent:    item.Indent,
		Published: item.Published,
	}
}

func submissionHeaderFor(s *model.Submission) submissionHeader {
	h := submissionHeader{
		ID:            s.ID,
		AssignmentID:  s.AssignmentID,
		StudentID:     s.UserID,
		StudentName:   s.Title,
		SubmittedAt:   FormatTime(s.SubmittedAt),
		WorkflowState: s.WorkflowState,
		Type:          s.Type,
		Late:          s.Late,
		Attempt:       s.Attempt,
		Grade:         s.Grade,
		Score:         s.Score,
		URL:           s.URL,
		Origin:        origin(s),
	}
	for _, a := range s.Attachments {
		h.Attachments = append(h.Attachments, attachmentHeader{ID: a.ID, Filename: a.Filename, ContentType: a.ContentType})
	}
	for _, c := range s.Comments {
		h.Comments = append(h.Comments, commentHeader{Author: c.Author, CreatedAt: FormatTime(c.CreatedAt), Text: c.Text})
	}
	return h
}

// Encode reconstructs the resource described by doc.
func Encode(doc *document.Document, kind model.Kind) (model.Resource, error) {
	f, err := newFields(doc.Header)
	if err != nil {
		return nil, err
	}

	id, err := f.id(KeyID)
	if err != nil {
		return nil, err
	}
	if err := checkOrigin(f, kind, id); err != nil {
		return nil, err
	}

	var r model.Resource
	switch kind {
	case model.KindPage:
		r, err = encodePage(f, id, doc.Body)
	case model.KindAssignment:
		r, err = encodeAssignment(f, id, doc.Body)
	case model.KindDiscussion:
		r, err = encodeDiscussion(f, id, doc.Body)
	case model.KindRubric:
		r, err = encodeRubric(f, id)
	case model.KindModuleItem:
		var item *model.ModuleItem
		item, err = encodeItem(f, id)
		if err == nil {
			item.ModuleID, err = f.requiredID("module_id")
		}
		r = item
	case model.KindSubmission:
		r, err = encodeSubmission(f, id, doc.Body)
	default:
		return nil, faults.Invalid(KeyKind, "unsupported kind %q", kind)
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

// checkOrigin rejects a document whose canvas_id no longer matches the
// object it was pulled from.
func checkOrigin(f *fields, kind model.Kind, id *int64) error {
	raw, err := f.str(KeyOrigin)
	if err != nil || raw == "" {
		return err
	}
	originKind, originID, err := ParseOrigin(raw)
	if err != nil {
		return err
	}
	switch {
	case originKind != kind:
		return faults.Invalid(KeyOrigin, "document was pulled as a %s but is being read as a %s", originKind, kind)
	case id == nil:
		return faults.Invalid(KeyID, "is null but the document was pulled from %s; remove canvas_origin to create a new %s", raw, kind)
	case *id != originID:
		return faults.Invalid(KeyID, "is %d but the document was pulled from %s", *id, raw)
	}
	return nil
}

func encodePage(f *fields, id *int64, body string) (*model.Page, error) {
	p := &model.Page{Base: model.Base{ID: id}, Body: transcode.ToHTML(body)}
	var err error
	if p.Title, err = f.requiredStr("title"); err != nil {
		return nil, err
	}
	if p.URL, err = f.str("canvas_url"); err != nil {
		return nil, err
	}
	if p.Published, err = f.boolean("published"); err != nil {
		return nil, err
	}
	return p, nil
}

func encodeAssignment(f *fields, id *int64, body string) (*model.Assignment, error) {
	a := &model.Assignment{Base: model.Base{ID: id}, Description: transcode.ToHTML(body)}
	var err error
	if a.Title, err = f.requiredStr("title"); err != nil {
		return nil, err
	}
	if a.DueAt, err = f.timestamp("due_at"); err != nil {
		return nil, err
	}
	if a.PointsPossible, err = f.points("points_possible"); err != nil {
		return nil, err
	}
	if a.SubmissionTypes, err = f.strings("submission_types"); err != nil {
		return nil, err
	}
	if a.Published, err = f.boolean("published"); err != nil {
		return nil, err
	}
	if a.RubricID, err = f.id("rubric_id"); err != nil {
		return nil, err
	}
	if a.DiscussionTopicID, err = f.id("discussion_topic_id"); err != nil {
		return nil, err
	}
	return a, nil
}

func encodeDiscussion(f *fields, id *int64, body string) (*model.Discussion, error) {
	d := &model.Discussion{Base: model.Base{ID: id}, Message: transcode.ToHTML(body)}
	var err error
	if d.Title, err = f.requiredStr("title"); err != nil {
		return nil, err
	}
	if d.Published, err = f.boolean("published"); err != nil {
		return nil, err
	}
	if d.AssignmentID, err = f.id("assignment_id"); err != nil {
		return nil, err
	}
	return d, nil
}

func encodeRubric(f *fields, id *int64) (*model.Rubric, error) {
	r := &model.Rubric{Base: model.Base{ID: id}}
	var err error
	if r.Title, err = f.requiredStr("title"); err != nil {
		return nil, err
	}
	if r.PointsPossible, err = f.points("points_possible"); err != nil {
		return nil, err
	}
	if !f.present("criteria") {
		return nil, faults.Invalid("criteria", "is required")
	}

	err = f.each("criteria", func(cf *fields) error {
		var c model.Criterion
		var err error
		if c.ID, err = cf.str("id"); err != nil {
			return err
		}
		if c.Description, err = cf.requiredStr("description"); err != nil {
			return err
		}
		if c.LongDescription, err = cf.str("long_description"); err != nil {
			return err
		}
		if c.Points, err = cf.requiredPoints("points"); err != nil {
			return err
		}
		err = cf.each("ratings", func(rf *fields) error {
			var rating model.Rating
			var err error
			if rating.ID, err = rf.str("id"); err != nil {
				return err
			}
			if rating.Description, err = rf.requiredStr("description"); err != nil {
				return err
			}
			if rating.LongDescription, err = rf.str("long_description"); err != nil {
				return err
			}
			if rating.Points, err = rf.requiredPoints("points"); err != nil {
				return err
			}
			c.Ratings = append(c.Ratings, rating)
			return nil
		})
		if err != nil {
			return err
		}
		r.Criteria = append(r.Criteria, c)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(r.Criteria) == 0 {
		return nil, faults.Invalid("criteria", "must list at least one criterion")
	}
	return r, nil
}

func encodeItem(f *fields, id *int64) (*model.ModuleItem, error) {
	item := &model.ModuleItem{Base: model.Base{ID: id}}
	var err error
	if item.Title, err = f.requiredStr("title"); err != nil {
		return nil, err
	}
	if item.Type, err = f.requiredStr("type"); err != nil {
		return nil, err
	}
	if item.ContentID, err = f.id("content_id"); err != nil {
		return nil, err
	}
	if item.PageURL, err = f.str("page_url"); err != nil {
		return nil, err
	}
	if item.Position, err = f.integer("position"); err != nil {
		return nil, err
	}
	if item.Indent, err = f.integer("indent"); err != nil {
		return nil, err
	}
	if item.Published, err = f.boolean("published"); err != nil {
		return nil, err
	}
	return item, nil
}

func encodeSubmission(f *fields, id *int64, body string) (*model.Submission, error) {
	if id == nil {
		return nil, faults.Invalid(KeyID, "submissions cannot be created locally")
	}
	s := &model.Submission{Base: model.Base{ID: id}, Body: transcode.ToHTML(body)}
	var err error
	if s.AssignmentID, err = f.requiredID("assignment_id"); err != nil {
		return nil, err
	}
	if s.UserID, err = f.requiredID("student_id"); err != nil {
		return nil, err
	}
	if s.Title, err = f.str("student_name"); err != nil {
		return nil, err
	}
	if s.SubmittedAt, err = f.timestamp("submitted_at"); err != nil {
		return nil, err
	}
	if s.WorkflowState, err = f.str("workflow_state"); err != nil {
		return nil, err
	}
	if s.Type, err = f.str("submission_type"); err != nil {
		return nil, err
	}
	if s.Late, err = f.boolean("late"); err != nil {
		return nil, err
	}
	if f.present("attempt") {
		attempt, err := f.integer("attempt")
		if err != nil {
			return nil, err
		}
		s.Attempt = &attempt
	}
	if s.Grade, err = f.str("grade"); err != nil {
		return nil, err
	}
	if s.Score, err = f.points("score"); err != nil {
		return nil, err
	}
	if s.URL, err = f.str("url"); err != nil {
		return nil, err
	}
	err = f.each("attachments", func(af *fields) error {
		var a model.Attachment
		var err error
		if a.ID, err = af.requiredID("id"); err != nil {
			return err
		}
		if a.Filename, err = af.requiredStr("filename"); err != nil {
			return err
		}
		if a.ContentType, err = af.str("content_type"); err != nil {
			return err
		}
		s.Attachments = append(s.Attachments, a)
		return nil
	})
	if err != nil {
		return nil, err
	}
	err = f.each("comments", func(cf *fields) error {
		var c model.Comment
		var err error
		if c.Author, err = cf.str("author"); err != nil {
			return err
		}
		if c.CreatedAt, err = cf.timestamp("created_at"); err != nil {
			return err
		}
		if c.Text, err = cf.str("text"); err != nil {
			return err
		}
		s.Comments = append(s.Comments, c)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Detect determines the kind of a local document. An explicit canvas_kind
// header wins, then the recorded origin, then the file's location, then the
// header keys present.
func Detect(doc *document.Document) (model.Kind, error) {
	if v, ok := doc.Field(KeyKind); ok {
		if v == KindDiscussionPosts {
			return "", faults.Invalid(KeyKind, "%s is a read-only export", KindDiscussionPosts)
		}
		return model.ParseKind(v)
	}
	if v, ok := doc.Field(KeyOrigin); ok {
		kind, _, err := ParseOrigin(v)
		return kind, err
	}

	dir := filepath.Base(filepath.Dir(doc.Path))
	parent := filepath.Base(filepath.Dir(filepath.Dir(doc.Path)))
	switch {
	case dir == "rubrics" && doc.Format == document.YAML:
		return model.KindRubric, nil
	case dir == model.KindSubmission.Subdir() || parent == model.KindSubmission.Subdir():
		return model.KindSubmission, nil
	case dir == model.KindPage.Subdir():
		return model.KindPage, nil
	case dir == model.KindAssignment.Subdir():
		return model.KindAssignment, nil
	case dir == model.KindDiscussion.Subdir():
		return model.KindDiscussion, nil
	}

	if doc.Format == document.YAML {
		if doc.Has("type") {
			return model.KindModuleItem, nil
		}
		return model.KindRubric, nil
	}
	if doc.Has("canvas_url") {
		return model.KindPage, nil
	}
	for _, key := range []string{"points_possible", "submission_types", "due_at"} {
		if doc.Has(key) {
			return model.KindAssignment, nil
		}
	}
	return model.KindPage, nil
}

// ReadOnly reports whether doc is an export that push must skip.
func ReadOnly(doc *document.Document) bool {
	v, _ := doc.Field(KeyKind)
	return v == KindDiscussionPosts
}
