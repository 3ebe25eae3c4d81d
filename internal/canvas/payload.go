package canvas

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/Brehove/canvas-cli-for-codex/internal/diff"
	"github.com/Brehove/canvas-cli-for-codex/internal/faults"
	"github.com/Brehove/canvas-cli-for-codex/internal/model"
)

// Request is a Canvas API call derived from a change set. Preview renders
// it for --show-requests and the client sends it unchanged.
type Request struct {
	Method string
	// Path is relative to /api/v1.
	Path string
	Body map[string]any
}

func (r Request) String() string {
	return r.Method + " /api/v1/" + r.Path
}

// wireNames maps change set fields to request keys per kind, with the
// envelope key the request body is wrapped in. An empty envelope sends
// the fields at the top level.
var wireNames = map[model.Kind]struct {
	envelope string
	fields   map[string]string
}{
	model.KindPage: {"wiki_page", map[string]string{
		diff.FieldTitle:     "title",
		diff.FieldPublished: "published",
		diff.FieldBody:      "body",
	}},
	model.KindAssignment: {"assignment", map[string]string{
		diff.FieldTitle:           "name",
		diff.FieldDueAt:           "due_at",
		diff.FieldPointsPossible:  "points_possible",
		diff.FieldSubmissionTypes: "submission_types",
		diff.FieldPublished:       "published",
		diff.FieldBody:            "description",
	}},
	model.KindDiscussion: {"", map[string]string{
		diff.FieldTitle:     "title",
		diff.FieldPublished: "published",
		diff.FieldBody:      "message",
	}},
	model.KindRubric: {"rubric", map[string]string{
		diff.FieldTitle:          "title",
		diff.FieldPointsPossible: "points_possible",
		diff.FieldCriteria:       "criteria",
	}},
	model.KindModuleItem: {"module_item", map[string]string{
		diff.FieldTitle:     "title",
		diff.FieldPosition:  "position",
		diff.FieldIndent:    "indent",
		diff.FieldPublished: "published",
	}},
	model.KindSubmission: {"submission", map[string]string{
		diff.FieldGrade: "posted_grade",
		diff.FieldScore: "posted_grade",
	}},
}

// BuildUpdate returns the requests that apply cs. A graded discussion
// takes its title and body on the topic and its grading fields on the
// assignment. A rubric update always carries every criterion of cs.Target:
// Canvas rebuilds the criteria from each update.
func BuildUpdate(course int64, cs diff.ChangeSet) ([]Request, error) {
	if cs.Ref.ID == 0 {
		return nil, faults.Invalid("canvas_id", "cannot update a %s without an id", cs.Ref.Kind)
	}
	if a, ok := cs.Target.(*model.Assignment); ok && a.IsDiscussion() {
		return gradedDiscussionUpdate(course, cs, a)
	}

	path, err := resourcePath(course, cs.Ref)
	if err != nil {
		return nil, err
	}
	fields, err := wireFields(cs)
	if err != nil {
		return nil, err
	}
	if cs.Ref.Kind == model.KindRubric {
		r, ok := cs.Target.(*model.Rubric)
		if !ok {
			return nil, faults.Invalid("criteria", "rubric %d cannot be updated without its full criteria", cs.Ref.ID)
		}
		fields["criteria"] = criteriaPayload(r.Criteria)
		if r.PointsPossible != nil {
			fields["points_possible"] = *r.PointsPossible
		}
	}
	return []Request{{Method: http.MethodPut, Path: path, Body: wrap(cs.Ref.Kind, fields)}}, nil
}

func gradedDiscussionUpdate(course int64, cs diff.ChangeSet, a *model.Assignment) ([]Request, error) {
	assignment := diff.ChangeSet{Ref: cs.Ref}
	topic := diff.ChangeSet{Ref: model.Ref{Kind: model.KindDiscussion}}
	for _, ch := range cs.Changes {
		if ch.Field == diff.FieldTitle || ch.Field == diff.FieldBody {
			topic.Changes = append(topic.Changes, ch)
		} else {
			assignment.Changes = append(assignment.Changes, ch)
		}
	}

	var reqs []Request
	if !topic.Empty() {
		if a.DiscussionTopicID == nil {
			return nil, faults.Invalid("discussion_topic_id", "assignment %d is a graded discussion with no topic id; pull it again", cs.Ref.ID)
		}
		topic.Ref.ID = *a.DiscussionTopicID
		fields, err := wireFields(topic)
		if err != nil {
			return nil, err
		}
		path := fmt.Sprintf("courses/%d/discussion_topics/%d", course, topic.Ref.ID)
		reqs = append(reqs, Request{Method: http.MethodPut, Path: path, Body: wrap(model.KindDiscussion, fields)})
	}
	if !assignment.Empty() {
		fields, err := wireFields(assignment)
		if err != nil {
			return nil, err
		}
		path := fmt.Sprintf("courses/%d/assignments/%d", course, cs.Ref.ID)
		reqs = append(reqs, Request{Method: http.MethodPut, Path: path, Body: wrap(model.KindAssignment, fields)})
	}
	return reqs, nil
}

// BuildCreate returns the request that creates r. The body carries the
// same fields a dry run reports.
func BuildCreate(course int64, r model.Resource) (Request, error) {
	fields, err := wireFields(diff.Additions(r))
	if err != nil {
		return Request{}, err
	}
	c := strconv.FormatInt(course, 10)

	switch v := r.(type) {
	case *model.Page:
		return Request{http.MethodPost, "courses/" + c + "/pages", wrap(v.Kind(), fields)}, nil
	case *model.Assignment:
		return Request{http.MethodPost, "courses/" + c + "/assignments", wrap(v.Kind(), fields)}, nil
	case *model.Discussion:
		return Request{http.MethodPost, "courses/" + c + "/discussion_topics", wrap(v.Kind(), fields)}, nil
	case *model.Rubric:
		body := wrap(v.Kind(), fields)
		body["rubric_association"] = map[string]any{
			"association_id":   course,
			"association_type": "Course",
			"purpose":          "bookmark",
			"use_for_grading":  false,
		}
		return Request{http.MethodPost, "courses/" + c + "/rubrics", body}, nil
	case *model.ModuleItem:
		if v.ModuleID == 0 {
			return Request{}, faults.Invalid("module_id", "is required to create a module item")
		}
		fields["type"] = v.Type
		if v.ContentID != nil {
			fields["content_id"] = *v.ContentID
		}
		if v.PageURL != "" {
			fields["page_url"] = v.PageURL
		}
		path := fmt.Sprintf("courses/%s/modules/%d/items", c, v.ModuleID)
		return Request{http.MethodPost, path, wrap(v.Kind(), fields)}, nil
	case *model.Submission:
		return Request{}, faults.Invalid("canvas_id", "submissions cannot be created")
	default:
		return Request{}, fmt.Errorf("cannot create resource of type %T", r)
	}
}

func resourcePath(course int64, ref model.Ref) (string, error) {
	switch ref.Kind {
	case model.KindPage:
		return fmt.Sprintf("courses/%d/pages/%d", course, ref.ID), nil
	case model.KindAssignment:
		return fmt.Sprintf("courses/%d/assignments/%d", course, ref.ID), nil
	case model.KindDiscussion:
		return fmt.Sprintf("courses/%d/discussion_topics/%d", course, ref.ID), nil
	case model.KindRubric:
		return fmt.Sprintf("courses/%d/rubrics/%d", course, ref.ID), nil
	case model.KindModuleItem:
		if ref.Parent == 0 {
			return "", faults.Invalid("module_id", "is required for module items")
		}
		return fmt.Sprintf("courses/%d/modules/%d/items/%d", course, ref.Parent, ref.ID), nil
	case model.KindSubmission:
		if ref.Parent == 0 || ref.User == 0 {
			return "", faults.Invalid("student_id", "submissions need an assignment and a student")
		}
		return fmt.Sprintf("courses/%d/assignments/%d/submissions/%d", course, ref.Parent, ref.User), nil
	default:
		return "", faults.Invalid("canvas_kind", "unsupported kind %q", ref.Kind)
	}
}

func wireFields(cs diff.ChangeSet) (map[string]any, error) {
	names, ok := wireNames[cs.Ref.Kind]
	if !ok {
		return nil, faults.Invalid("canvas_kind", "unsupported kind %q", cs.Ref.Kind)
	}
	out := make(map[string]any, len(cs.Changes))
	for _, ch := range cs.Changes {
		key, ok := names.fields[ch.Field]
		if !ok {
			return nil, faults.Invalid(ch.Field, "cannot be changed on a %s", cs.Ref.Kind)
		}
		// A grade takes precedence over a score for the same submission.
		if cs.Ref.Kind == model.KindSubmission && ch.Field == diff.FieldScore && cs.Has(diff.FieldGrade) {
			continue
		}
		out[key] = wireValue(ch.New)
	}
	return out, nil
}

func wrap(kind model.Kind, fields map[string]any) map[string]any {
	envelope := wireNames[kind].envelope
	if envelope == "" {
		return fields
	}
	return map[string]any{envelope: fields}
}

// wireValue converts a change value to its JSON form. Cleared values
// become null.
func wireValue(v any) any {
	switch x := v.(type) {
	case *time.Time:
		if x == nil {
			return nil
		}
		return x.UTC().Format(time.RFC3339)
	case *float64:
		if x == nil {
			return nil
		}
		return *x
	case *int64:
		if x == nil {
			return nil
		}
		return *x
	case []string:
		if x == nil {
			return []string{}
		}
		return x
	case []model.Criterion:
		return criteriaPayload(x)
	default:
		return v
	}
}

// criteriaPayload renders criteria in the index-keyed form the rubric
// endpoints expect.
func criteriaPayload(criteria []model.Criterion) map[string]any {
	out := make(map[string]any, len(criteria))
	for i, c := range criteria {
		ratings := make(map[string]any, len(c.Ratings))
		for j, r := range c.Ratings {
			rating := map[string]any{
				"description":      r.Description,
				"long_description": r.LongDescription,
				"points":           r.Points,
			}
			if r.ID != "" {
				rating["id"] = r.ID
			}
			ratings[strconv.Itoa(j)] = rating
		}
		criterion := map[string]any{
			"description":      c.Description,
			"long_description": c.LongDescription,
			"points":           c.Points,
			"ratings":          ratings,
		}
		if c.ID != "" {
			criterion["id"] = c.ID
		}
		out[strconv.Itoa(i)] = criterion
	}
	return out
}
