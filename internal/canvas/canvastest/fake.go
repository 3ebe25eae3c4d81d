// Package canvastest provides an in-memory Canvas course for orchestrator
// tests. It records every call and can be told to fail specific ones.
package canvastest

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/Brehove/canvas-cli-for-codex/internal/diff"
	"github.com/Brehove/canvas-cli-for-codex/internal/faults"
	"github.com/Brehove/canvas-cli-for-codex/internal/model"
)

// Update is one recorded Update call.
type Update struct {
	Course    int64
	ChangeSet diff.ChangeSet
}

// Create is one recorded Create call.
type Create struct {
	Course   int64
	Resource model.Resource
	ID       int64
}

// Store is the remote state of one course. Listings return copies, so
// tests can compare against the originals.
type Store struct {
	Info        model.Course
	Pages       []*model.Page
	Assignments []*model.Assignment
	Discussions []*model.Discussion
	Rubrics     []*model.Rubric
	Modules     []model.Module
	Submissions map[int64][]*model.Submission
	Views       map[int64]*model.DiscussionView
	Files       map[string][]byte

	// Others are further courses returned by Courses.
	Others []model.Course
}

// Fake serves a Store. Populate it before use; it must not be modified
// while calls are in flight.
type Fake struct {
	Store Store

	// NextID is the first id handed out by Create. Defaults to 1000.
	NextID int64

	mu      sync.Mutex
	errs    map[string]error
	calls   []string
	creates []Create
	updates []Update
	attach  []Attachment
}

// Attachment is one recorded AttachRubric call.
type Attachment struct {
	Rubric, Assignment int64
	UseForGrading      bool
}

// FailOn makes the call named op return err. Names match the entries of
// Calls, for example "update assignment/7" or "create rubric".
func (f *Fake) FailOn(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.errs == nil {
		f.errs = map[string]error{}
	}
	f.errs[op] = err
}

// Calls returns every call made so far, in order.
func (f *Fake) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.calls)
}

// Mutations returns the create, update and attach calls made so far.
func (f *Fake) Mutations() []string {
	var out []string
	for _, c := range f.Calls() {
		if strings.HasPrefix(c, "create ") || strings.HasPrefix(c, "update ") || strings.HasPrefix(c, "attach ") {
			out = append(out, c)
		}
	}
	return out
}

// Creates returns the recorded successful creates.
func (f *Fake) Creates() []Create {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.creates)
}

// Updates returns the recorded successful updates.
func (f *Fake) Updates() []Update {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.updates)
}

func (f *Fake) record(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, op)
	return f.errs[op]
}

func notFound(what string) error {
	return faults.NotFound("%s does not exist", what)
}

func (f *Fake) Course(_ context.Context, course int64) (model.Course, error) {
	if err := f.record("get course"); err != nil {
		return model.Course{}, err
	}
	if course == f.Store.Info.ID {
		return f.Store.Info, nil
	}
	for _, c := range f.Store.Others {
		if c.ID == course {
			return c, nil
		}
	}
	return model.Course{}, notFound(fmt.Sprintf("course %d", course))
}

func (f *Fake) Courses(_ context.Context) ([]model.Course, error) {
	if err := f.record("list courses"); err != nil {
		return nil, err
	}
	return append([]model.Course{f.Store.Info}, f.Store.Others...), nil
}

func (f *Fake) Pages(_ context.Context, _ int64) ([]*model.Page, error) {
	if err := f.record("list pages"); err != nil {
		return nil, err
	}
	out := make([]*model.Page, 0, len(f.Store.Pages))
	for _, p := range f.Store.Pages {
		summary := *p
		summary.Body = ""
		out = append(out, &summary)
	}
	return out, nil
}

func (f *Fake) Page(_ context.Context, _ int64, urlOrID string) (*model.Page, error) {
	if err := f.record("get page/" + urlOrID); err != nil {
		return nil, err
	}
	for _, p := range f.Store.Pages {
		if p.URL == urlOrID || (p.ID != nil && strconv.FormatInt(*p.ID, 10) == urlOrID) {
			v := *p
			return &v, nil
		}
	}
	return nil, notFound("page " + urlOrID)
}

func (f *Fake) Assignments(_ context.Context, _ int64) ([]*model.Assignment, error) {
	if err := f.record("list assignments"); err != nil {
		return nil, err
	}
	return cloneAll(f.Store.Assignments), nil
}

func (f *Fake) Assignment(_ context.Context, _ int64, id int64) (*model.Assignment, error) {
	if err := f.record(fmt.Sprintf("get assignment/%d", id)); err != nil {
		return nil, err
	}
	return find(f.Store.Assignments, id, "assignment")
}

func (f *Fake) Discussions(_ context.Context, _ int64) ([]*model.Discussion, error) {
	if err := f.record("list discussions"); err != nil {
		return nil, err
	}
	return cloneAll(f.Store.Discussions), nil
}

func (f *Fake) Discussion(_ context.Context, _ int64, id int64) (*model.Discussion, error) {
	if err := f.record(fmt.Sprintf("get discussion/%d", id)); err != nil {
		return nil, err
	}
	return find(f.Store.Discussions, id, "discussion")
}

func (f *Fake) DiscussionView(_ context.Context, _ int64, topic int64) (*model.DiscussionView, error) {
	if err := f.record(fmt.Sprintf("get view/%d", topic)); err != nil {
		return nil, err
	}
	if v, ok := f.Store.Views[topic]; ok {
		return v, nil
	}
	return &model.DiscussionView{Participants: map[int64]string{}}, nil
}

func (f *Fake) Rubrics(_ context.Context, _ int64) ([]*model.Rubric, error) {
	if err := f.record("list rubrics"); err != nil {
		return nil, err
	}
	return cloneAll(f.Store.Rubrics), nil
}

func (f *Fake) Modules(_ context.Context, _ int64) ([]model.Module, error) {
	if err := f.record("list modules"); err != nil {
		return nil, err
	}
	out := make([]model.Module, 0, len(f.Store.Modules))
	for _, m := range f.Store.Modules {
		m.Items = nil
		out = append(out, m)
	}
	return out, nil
}

func (f *Fake) ModuleItems(_ context.Context, _ int64, module int64) ([]model.ModuleItem, error) {
	if err := f.record(fmt.Sprintf("list items/%d", module)); err != nil {
		return nil, err
	}
	for _, m := range f.Store.Modules {
		if m.ID == module {
			return slices.Clone(m.Items), nil
		}
	}
	return nil, notFound(fmt.Sprintf("module %d", module))
}

func (f *Fake) Submissions(_ context.Context, _ int64, assignment int64) ([]*model.Submission, error) {
	if err := f.record(fmt.Sprintf("list submissions/%d", assignment)); err != nil {
		return nil, err
	}
	return cloneAll(f.Store.Submissions[assignment]), nil
}

func (f *Fake) Download(_ context.Context, url string, w io.Writer) (int64, error) {
	if err := f.record("download " + url); err != nil {
		return 0, err
	}
	data, ok := f.Store.Files[url]
	if !ok {
		return 0, notFound("file " + url)
	}
	n, err := w.Write(data)
	return int64(n), err
}

// Fetch returns a copy of the stored resource for ref.
func (f *Fake) Fetch(_ context.Context, _ int64, ref model.Ref) (model.Resource, error) {
	if err := f.record("fetch " + ref.String()); err != nil {
		return nil, err
	}
	switch ref.Kind {
	case model.KindPage:
		return find(f.Store.Pages, ref.ID, "page")
	case model.KindAssignment:
		return find(f.Store.Assignments, ref.ID, "assignment")
	case model.KindDiscussion:
		return find(f.Store.Discussions, ref.ID, "discussion")
	case model.KindRubric:
		return find(f.Store.Rubrics, ref.ID, "rubric")
	case model.KindModuleItem:
		for _, m := range f.Store.Modules {
			for _, item := range m.Items {
				if item.ID != nil && *item.ID == ref.ID {
					v := item
					v.ModuleID = m.ID
					return &v, nil
				}
			}
		}
		return nil, notFound(ref.String())
	case model.KindSubmission:
		for _, s := range f.Store.Submissions[ref.Parent] {
			if s.UserID == ref.User {
				v := *s
				return &v, nil
			}
		}
		return nil, notFound(ref.String())
	default:
		return nil, faults.Invalid("canvas_kind", "unsupported kind %q", ref.Kind)
	}
}

// Create records r and hands out the next id.
func (f *Fake) Create(_ context.Context, course int64, r model.Resource) (int64, error) {
	if err := f.record("create " + r.Kind().String()); err != nil {
		return 0, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.NextID == 0 {
		f.NextID = 1000
	}
	id := f.NextID
	f.NextID++
	f.creates = append(f.creates, Create{Course: course, Resource: r, ID: id})
	return id, nil
}

// Update records cs. An empty change set is an error so tests catch
// callers that submit no-op updates.
func (f *Fake) Update(_ context.Context, course int64, cs diff.ChangeSet) error {
	if err := f.record("update " + cs.Ref.String()); err != nil {
		return err
	}
	if cs.Empty() {
		return fmt.Errorf("empty change set submitted for %s", cs.Ref)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, Update{Course: course, ChangeSet: cs})
	return nil
}

type identified interface {
	*model.Page | *model.Assignment | *model.Discussion | *model.Rubric | *model.Submission
	model.Resource
}

func find[T identified](items []T, id int64, what string) (T, error) {
	for _, item := range items {
		if rid := item.RemoteID(); rid != nil && *rid == id {
			return clone(item), nil
		}
	}
	var zero T
	return zero, notFound(fmt.Sprintf("%s %d", what, id))
}

func cloneAll[T identified](items []T) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		out = append(out, clone(item))
	}
	return out
}

func clone[T identified](item T) T {
	var out any
	switch v := any(item).(type) {
	case *model.Page:
		c := *v
		out = &c
	case *model.Assignment:
		c := *v
		out = &c
	case *model.Discussion:
		c := *v
		out = &c
	case *model.Rubric:
		c := *v
		out = &c
	case *model.Submission:
		c := *v
		out = &c
	}
	return out.(T)
}

// AttachRubric records the association. It fails for unknown rubrics and
// assignments.
func (f *Fake) AttachRubric(_ context.Context, _ int64, rubric, assignment int64, useForGrading bool) error {
	if err := f.record(fmt.Sprintf("attach rubric/%d assignment/%d", rubric, assignment)); err != nil {
		return err
	}
	if _, err := find(f.Store.Rubrics, rubric, "rubric"); err != nil {
		return err
	}
	if _, err := find(f.Store.Assignments, assignment, "assignment"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attach = append(f.attach, Attachment{Rubric: rubric, Assignment: assignment, UseForGrading: useForGrading})
	return nil
}

// Attachments returns the recorded successful rubric attachments.
func (f *Fake) Attachments() []Attachment {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.attach)
}
