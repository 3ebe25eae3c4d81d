package canvas

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/Brehove/canvas-cli-for-codex/internal/diff"
	"github.com/Brehove/canvas-cli-for-codex/internal/faults"
	"github.com/Brehove/canvas-cli-for-codex/internal/httpx"
	"github.com/Brehove/canvas-cli-for-codex/internal/model"
)

func coursePath(course int64, parts ...string) string {
	p := "courses/" + strconv.FormatInt(course, 10)
	for _, part := range parts {
		p += "/" + part
	}
	return p
}

func idPath(v int64) string { return strconv.FormatInt(v, 10) }

// Courses lists the courses visible to the token owner.
func (c *Client) Courses(ctx context.Context) ([]model.Course, error) {
	raw, err := list[courseJSON](ctx, c, "courses", url.Values{"include[]": {"term"}})
	if err != nil {
		return nil, err
	}
	out := make([]model.Course, 0, len(raw))
	for _, r := range raw {
		out = append(out, r.model())
	}
	return out, nil
}

func (c *Client) Course(ctx context.Context, course int64) (model.Course, error) {
	var raw courseJSON
	if err := c.get(ctx, coursePath(course), url.Values{"include[]": {"term"}}, &raw); err != nil {
		return model.Course{}, err
	}
	return raw.model(), nil
}

// Pages lists page summaries. Canvas omits bodies from the listing.
func (c *Client) Pages(ctx context.Context, course int64) ([]*model.Page, error) {
	raw, err := list[pageJSON](ctx, c, coursePath(course, "pages"), nil)
	if err != nil {
		return nil, err
	}
	out := make([]*model.Page, 0, len(raw))
	for _, r := range raw {
		out = append(out, r.model())
	}
	return out, nil
}

// Page fetches a page by its URL slug or numeric id.
func (c *Client) Page(ctx context.Context, course int64, urlOrID string) (*model.Page, error) {
	var raw pageJSON
	if err := c.get(ctx, coursePath(course, "pages", urlOrID), nil, &raw); err != nil {
		return nil, err
	}
	return raw.model(), nil
}

func (c *Client) Assignments(ctx context.Context, course int64) ([]*model.Assignment, error) {
	raw, err := list[assignmentJSON](ctx, c, coursePath(course, "assignments"), nil)
	if err != nil {
		return nil, err
	}
	out := make([]*model.Assignment, 0, len(raw))
	for _, r := range raw {
		out = append(out, r.model())
	}
	return out, nil
}

func (c *Client) Assignment(ctx context.Context, course, assignment int64) (*model.Assignment, error) {
	var raw assignmentJSON
	if err := c.get(ctx, coursePath(course, "assignments", idPath(assignment)), nil, &raw); err != nil {
		return nil, err
	}
	return raw.model(), nil
}

func (c *Client) Discussions(ctx context.Context, course int64) ([]*model.Discussion, error) {
	raw, err := list[discussionJSON](ctx, c, coursePath(course, "discussion_topics"), nil)
	if err != nil {
		return nil, err
	}
	out := make([]*model.Discussion, 0, len(raw))
	for _, r := range raw {
		out = append(out, r.model())
	}
	return out, nil
}

func (c *Client) Discussion(ctx context.Context, course, topic int64) (*model.Discussion, error) {
	var raw discussionJSON
	if err := c.get(ctx, coursePath(course, "discussion_topics", idPath(topic)), nil, &raw); err != nil {
		return nil, err
	}
	return raw.model(), nil
}

// DiscussionView fetches the threaded posts and replies of a topic.
func (c *Client) DiscussionView(ctx context.Context, course, topic int64) (*model.DiscussionView, error) {
	var raw discussionViewJSON
	if err := c.get(ctx, coursePath(course, "discussion_topics", idPath(topic), "view"), nil, &raw); err != nil {
		return nil, err
	}
	return raw.model(), nil
}

func (c *Client) Rubrics(ctx context.Context, course int64) ([]*model.Rubric, error) {
	raw, err := list[rubricJSON](ctx, c, coursePath(course, "rubrics"), nil)
	if err != nil {
		return nil, err
	}
	out := make([]*model.Rubric, 0, len(raw))
	for _, r := range raw {
		out = append(out, r.model())
	}
	return out, nil
}

func (c *Client) Rubric(ctx context.Context, course, rubric int64) (*model.Rubric, error) {
	var raw rubricJSON
	if err := c.get(ctx, coursePath(course, "rubrics", idPath(rubric)), nil, &raw); err != nil {
		return nil, err
	}
	return raw.model(), nil
}

// Modules lists modules without their items.
func (c *Client) Modules(ctx context.Context, course int64) ([]model.Module, error) {
	raw, err := list[moduleJSON](ctx, c, coursePath(course, "modules"), nil)
	if err != nil {
		return nil, err
	}
	out := make([]model.Module, 0, len(raw))
	for _, r := range raw {
		out = append(out, r.model())
	}
	return out, nil
}

func (c *Client) ModuleItems(ctx context.Context, course, module int64) ([]model.ModuleItem, error) {
	raw, err := list[moduleItemJSON](ctx, c, coursePath(course, "modules", idPath(module), "items"), nil)
	if err != nil {
		return nil, err
	}
	out := make([]model.ModuleItem, 0, len(raw))
	for _, r := range raw {
		item := r.model()
		if item.ModuleID == 0 {
			item.ModuleID = module
		}
		out = append(out, *item)
	}
	return out, nil
}

func (c *Client) ModuleItem(ctx context.Context, course, module, item int64) (*model.ModuleItem, error) {
	var raw moduleItemJSON
	if err := c.get(ctx, coursePath(course, "modules", idPath(module), "items", idPath(item)), nil, &raw); err != nil {
		return nil, err
	}
	out := raw.model()
	if out.ModuleID == 0 {
		out.ModuleID = module
	}
	return out, nil
}

var submissionIncludes = url.Values{"include[]": {"submission_comments", "user"}}

// Submissions lists every submission of an assignment, including comments
// and the student's name.
func (c *Client) Submissions(ctx context.Context, course, assignment int64) ([]*model.Submission, error) {
	query := url.Values{"include[]": submissionIncludes["include[]"]}
	raw, err := list[submissionJSON](ctx, c, coursePath(course, "assignments", idPath(assignment), "submissions"), query)
	if err != nil {
		return nil, err
	}
	out := make([]*model.Submission, 0, len(raw))
	for _, r := range raw {
		out = append(out, r.model())
	}
	return out, nil
}

func (c *Client) Submission(ctx context.Context, course, assignment, user int64) (*model.Submission, error) {
	var raw submissionJSON
	path := coursePath(course, "assignments", idPath(assignment), "submissions", idPath(user))
	if err := c.get(ctx, path, submissionIncludes, &raw); err != nil {
		return nil, err
	}
	return raw.model(), nil
}

// AttachRubric associates a rubric with an assignment.
func (c *Client) AttachRubric(ctx context.Context, course, rubric, assignment int64, useForGrading bool) error {
	payload := map[string]any{
		"rubric_association": map[string]any{
			"rubric_id":        rubric,
			"association_id":   assignment,
			"association_type": "Assignment",
			"use_for_grading":  useForGrading,
			"purpose":          "grading",
		},
	}
	return c.send(ctx, http.MethodPost, coursePath(course, "rubric_associations"), payload, nil)
}

// Download copies the file at rawURL to w. The API token is only sent to
// the Canvas host itself.
func (c *Client) Download(ctx context.Context, rawURL string, w io.Writer) (int64, error) {
	target, err := url.Parse(rawURL)
	if err != nil {
		return 0, faults.Transport("invalid download URL", err)
	}
	build := func(ctx context.Context) (*http.Request, error) {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
		if err != nil {
			return nil, err
		}
		if target.Host == c.apiURL.Host {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}
		req.Header.Set("Accept-Encoding", httpx.AcceptEncoding)
		return req, nil
	}
	_, body, err := httpx.DoWithRetry(ctx, c.http, build, c.retry)
	if err != nil {
		return 0, classify(http.MethodGet, rawURL, err)
	}
	n, err := w.Write(body)
	return int64(n), err
}

// Fetch returns the current remote state of ref.
func (c *Client) Fetch(ctx context.Context, course int64, ref model.Ref) (model.Resource, error) {
	if ref.ID == 0 {
		return nil, faults.Invalid("canvas_id", "cannot fetch a %s without an id", ref.Kind)
	}
	switch ref.Kind {
	case model.KindPage:
		return c.Page(ctx, course, idPath(ref.ID))
	case model.KindAssignment:
		return c.Assignment(ctx, course, ref.ID)
	case model.KindDiscussion:
		return c.Discussion(ctx, course, ref.ID)
	case model.KindRubric:
		return c.Rubric(ctx, course, ref.ID)
	case model.KindModuleItem:
		if ref.Parent == 0 {
			return nil, faults.Invalid("module_id", "is required for module items")
		}
		return c.ModuleItem(ctx, course, ref.Parent, ref.ID)
	case model.KindSubmission:
		if ref.Parent == 0 || ref.User == 0 {
			return nil, faults.Invalid("student_id", "submissions need an assignment and a student")
		}
		return c.Submission(ctx, course, ref.Parent, ref.User)
	default:
		return nil, faults.Invalid("canvas_kind", "unsupported kind %q", ref.Kind)
	}
}

// Create creates r and returns the id Canvas assigned.
func (c *Client) Create(ctx context.Context, course int64, r model.Resource) (int64, error) {
	req, err := BuildCreate(course, r)
	if err != nil {
		return 0, err
	}

	var newID int64
	switch r.Kind() {
	case model.KindPage:
		var out pageJSON
		err = c.send(ctx, req.Method, req.Path, req.Body, &out)
		newID = out.PageID
	case model.KindRubric:
		var out rubricEnvelope
		err = c.send(ctx, req.Method, req.Path, req.Body, &out)
		newID = out.id()
	default:
		var out struct {
			ID int64 `json:"id"`
		}
		err = c.send(ctx, req.Method, req.Path, req.Body, &out)
		newID = out.ID
	}
	if err != nil {
		return 0, err
	}
	if newID == 0 {
		return 0, faults.Transport(fmt.Sprintf("%s %s: response carried no id", req.Method, req.Path), nil)
	}
	return newID, nil
}

// Update applies cs. An empty change set sends nothing.
func (c *Client) Update(ctx context.Context, course int64, cs diff.ChangeSet) error {
	if cs.Empty() {
		return nil
	}
	reqs, err := BuildUpdate(course, cs)
	if err != nil {
		return err
	}
	for _, req := range reqs {
		if err := c.send(ctx, req.Method, req.Path, req.Body, nil); err != nil {
			return err
		}
	}
	return nil
}
