package pull

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/Brehove/canvas-cli-for-codex/internal/catalog"
	"github.com/Brehove/canvas-cli-for-codex/internal/codec"
	"github.com/Brehove/canvas-cli-for-codex/internal/model"
	"github.com/Brehove/canvas-cli-for-codex/internal/route"
)

// Module item types that have their own document.
const (
	itemPage       = "Page"
	itemAssignment = "Assignment"
	itemDiscussion = "Discussion"
)

func (r *run) allPages(ctx context.Context) []job {
	pages, ok := list(r, "pages", func() ([]*model.Page, error) {
		return r.o.source.Pages(ctx, r.course.ID)
	})
	if !ok {
		return nil
	}
	jobs := make([]job, 0, len(pages))
	for _, p := range pages {
		jobs = append(jobs, r.pageJob(r.subdir(model.KindPage), p))
	}
	return jobs
}

func (r *run) pagesNamed(ctx context.Context) []job {
	pages, ok := list(r, "pages", func() ([]*model.Page, error) {
		return r.o.source.Pages(ctx, r.course.ID)
	})
	if !ok {
		return nil
	}
	var jobs []job
	for _, p := range pages {
		if route.MatchesName(r.sel.Page, p.Title) {
			jobs = append(jobs, r.pageJob(r.subdir(model.KindPage), p))
		}
	}
	if len(jobs) == 0 {
		r.warn("no pages found matching %q", r.sel.Page)
	}
	return jobs
}

// pageJob fetches the full page, since listings omit the body.
func (r *run) pageJob(dir string, summary *model.Page) job {
	title := summary.Title
	if title == "" {
		title = summary.URL
	}
	path := r.claim(dir, route.Slugify(title), summary.ID, ".md")
	return job{
		label: "page " + title,
		run: func(ctx context.Context) error {
			page, err := r.o.source.Page(ctx, r.course.ID, summary.URL)
			if err != nil {
				return err
			}
			return r.write(path, page)
		},
	}
}

func (r *run) allAssignments(ctx context.Context) []job {
	assignments, ok := list(r, "assignments", func() ([]*model.Assignment, error) {
		return r.o.source.Assignments(ctx, r.course.ID)
	})
	if !ok {
		return nil
	}
	jobs := make([]job, 0, len(assignments))
	for _, a := range assignments {
		jobs = append(jobs, r.assignmentJob(r.subdir(model.KindAssignment), a.Title, a.ID, constant(a)))
	}
	return jobs
}

func (r *run) assignmentsNamed(ctx context.Context) []job {
	assignments, ok := list(r, "assignments", func() ([]*model.Assignment, error) {
		return r.o.source.Assignments(ctx, r.course.ID)
	})
	if !ok {
		return nil
	}
	var jobs []job
	for _, a := range assignments {
		if route.MatchesName(r.sel.Assignment, a.Title) {
			jobs = append(jobs, r.assignmentJob(r.subdir(model.KindAssignment), a.Title, a.ID, constant(a)))
		}
	}
	if len(jobs) == 0 {
		r.warn("no assignments found matching %q", r.sel.Assignment)
	}
	return jobs
}

func constant(a *model.Assignment) func(context.Context) (*model.Assignment, error) {
	return func(context.Context) (*model.Assignment, error) { return a, nil }
}

// assignmentJob writes an assignment and then, as options ask, its
// discussion posts and submissions.
func (r *run) assignmentJob(dir, title string, id *int64, get func(context.Context) (*model.Assignment, error)) job {
	path := r.claim(dir, route.Slugify(title), id, ".md")
	return job{
		label: "assignment " + title,
		run: func(ctx context.Context) error {
			a, err := get(ctx)
			if err != nil {
				return err
			}
			if err := r.write(path, a); err != nil {
				return err
			}

			var errs []error
			if r.opts.DiscussionPosts && a.IsDiscussion() {
				if err := r.assignmentPosts(ctx, a); err != nil {
					errs = append(errs, err)
				}
			}
			if err := r.pullSubmissions(ctx, a); err != nil {
				errs = append(errs, err)
			}
			return errors.Join(errs...)
		},
	}
}

func (r *run) discussionsNamed(ctx context.Context) []job {
	topics, ok := list(r, "discussions", func() ([]*model.Discussion, error) {
		return r.o.source.Discussions(ctx, r.course.ID)
	})
	if !ok {
		return nil
	}
	var jobs []job
	for _, d := range topics {
		if !route.MatchesName(r.sel.Discussion, d.Title) {
			continue
		}
		path := r.claim(r.subdir(model.KindDiscussion), route.Slugify(d.Title), d.ID, ".md")
		jobs = append(jobs, job{
			label: "discussion " + d.Title,
			run: func(ctx context.Context) error {
				if err := r.write(path, d); err != nil {
					return err
				}
				return r.pullPosts(ctx, d.Title, *d.ID)
			},
		})
	}
	if len(jobs) == 0 {
		r.warn("no discussions found matching %q", r.sel.Discussion)
	}
	return jobs
}

func (r *run) allRubrics(ctx context.Context) []job {
	rubrics, ok := list(r, "rubrics", func() ([]*model.Rubric, error) {
		return r.o.source.Rubrics(ctx, r.course.ID)
	})
	if !ok {
		return nil
	}
	jobs := make([]job, 0, len(rubrics))
	for _, rb := range rubrics {
		path := r.claim(r.subdir(model.KindRubric), route.Slugify(rb.Title), rb.ID, ".yaml")
		jobs = append(jobs, job{
			label: "rubric " + rb.Title,
			run:   func(context.Context) error { return r.write(path, rb) },
		})
	}
	return jobs
}

// moduleMatches accepts whole-word matches and plain substrings.
func moduleMatches(search, name string) bool {
	return route.MatchesName(search, name) ||
		strings.Contains(strings.ToLower(name), strings.ToLower(strings.TrimSpace(search)))
}

// modulesNamed writes each matching module into its own folder: the
// descriptor with the item list, and a document for every page,
// assignment and discussion item.
func (r *run) modulesNamed(ctx context.Context) []job {
	modules, ok := list(r, "modules", func() ([]model.Module, error) {
		return r.o.source.Modules(ctx, r.course.ID)
	})
	if !ok {
		return nil
	}

	var jobs []job
	found := false
	for _, m := range modules {
		if !moduleMatches(r.sel.Module, m.Name) {
			continue
		}
		found = true
		items, ok := list(r, "items of "+m.Name, func() ([]model.ModuleItem, error) {
			return r.o.source.ModuleItems(ctx, r.course.ID, m.ID)
		})
		if !ok {
			continue
		}
		m.Items = items
		jobs = append(jobs, r.moduleJobs(m)...)
	}
	if !found {
		r.warn("no modules found matching %q", r.sel.Module)
	}
	return jobs
}

func (r *run) moduleJobs(m model.Module) []job {
	dir := filepath.Join(r.dir, route.Slugify(m.Name))
	descriptor := filepath.Join(dir, codec.ModuleFile)

	jobs := []job{{
		label: "module " + m.Name,
		run: func(context.Context) error {
			doc, err := codec.DecodeModule(m)
			if err != nil {
				return err
			}
			if err := r.writeDocument(descriptor, doc, nil); err != nil {
				return err
			}
			return r.registerItems(descriptor, m)
		},
	}}

	for _, item := range m.Items {
		switch item.Type {
		case itemPage:
			summary := &model.Page{Base: model.Base{ID: item.ContentID, Title: item.Title}, URL: item.PageURL}
			jobs = append(jobs, r.pageJob(dir, summary))
		case itemAssignment:
			if item.ContentID == nil {
				continue
			}
			id := *item.ContentID
			jobs = append(jobs, r.assignmentJob(dir, item.Title, item.ContentID, func(ctx context.Context) (*model.Assignment, error) {
				return r.o.source.Assignment(ctx, r.course.ID, id)
			}))
		case itemDiscussion:
			if item.ContentID == nil {
				continue
			}
			id := *item.ContentID
			path := r.claim(dir, route.Slugify(item.Title), item.ContentID, ".md")
			jobs = append(jobs, job{
				label: "discussion " + item.Title,
				run: func(ctx context.Context) error {
					d, err := r.o.source.Discussion(ctx, r.course.ID, id)
					if err != nil {
						return err
					}
					if err := r.write(path, d); err != nil {
						return err
					}
					if r.opts.DiscussionPosts {
						return r.pullPosts(ctx, d.Title, id)
					}
					return nil
				},
			})
		}
	}
	return jobs
}

func (r *run) registerItems(path string, m model.Module) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range m.Items {
		item := m.Items[i]
		if item.ID == nil {
			continue
		}
		item.ModuleID = m.ID
		if err := r.catalog.Register(catalog.Entry{Course: r.course.ID, Resource: &item, Path: path}); err != nil {
			return err
		}
	}
	return nil
}

// assignmentPosts finds the topic behind a discussion-graded assignment.
func (r *run) assignmentPosts(ctx context.Context, a *model.Assignment) error {
	if a.DiscussionTopicID != nil {
		return r.pullPosts(ctx, a.Title, *a.DiscussionTopicID)
	}
	topics, err := r.o.source.Discussions(ctx, r.course.ID)
	if err != nil {
		return fmt.Errorf("list discussions: %w", err)
	}
	for _, t := range topics {
		if t.AssignmentID != nil && a.ID != nil && *t.AssignmentID == *a.ID && t.ID != nil {
			return r.pullPosts(ctx, a.Title, *t.ID)
		}
	}
	r.warn("no discussion topic found for assignment %q", a.Title)
	return nil
}

func (r *run) pullPosts(ctx context.Context, title string, topic int64) error {
	view, err := r.o.source.DiscussionView(ctx, r.course.ID, topic)
	if err != nil {
		return fmt.Errorf("discussion posts of %q: %w", title, err)
	}
	doc, err := renderPosts(title, topic, view)
	if err != nil {
		return err
	}
	path := r.claim(r.subdir(model.KindDiscussion), route.Slugify(title)+"-entries", nil, ".md")
	return r.writeDocument(path, doc, nil)
}

func (r *run) pullSubmissions(ctx context.Context, a *model.Assignment) error {
	if r.opts.Submissions == SubmissionsNone || a.ID == nil {
		return nil
	}
	subs, err := r.o.source.Submissions(ctx, r.course.ID, *a.ID)
	if err != nil {
		return fmt.Errorf("submissions of %q: %w", a.Title, err)
	}

	dir := filepath.Join(r.subdir(model.KindSubmission), route.Slugify(a.Title))
	var errs []error
	for _, s := range subs {
		if s.WorkflowState == "unsubmitted" {
			continue
		}
		if r.opts.Submissions == SubmissionsUngraded && s.Graded() {
			continue
		}
		if err := r.pullSubmission(ctx, dir, s); err != nil {
			errs = append(errs, fmt.Errorf("submission of %s: %w", studentName(s), err))
		}
	}
	return errors.Join(errs...)
}

func studentName(s *model.Submission) string {
	if s.Title != "" {
		return s.Title
	}
	return fmt.Sprintf("user-%d", s.UserID)
}

// pullSubmission writes the submission and downloads its attachments
// next to it as <student>.<ext>, or <student>-<n>.<ext> when there are
// several. A failed download is a warning, not an error.
func (r *run) pullSubmission(ctx context.Context, dir string, s *model.Submission) error {
	name := studentName(s)
	path := r.claim(dir, route.Slugify(name), &s.UserID, ".md")
	stem := strings.TrimSuffix(path, ".md")

	var kept []model.Attachment
	for i, a := range s.Attachments {
		if a.URL == "" {
			continue
		}
		local := stem + filepath.Ext(a.Filename)
		if len(s.Attachments) > 1 {
			local = fmt.Sprintf("%s-%d%s", stem, i+1, filepath.Ext(a.Filename))
		}
		var buf bytes.Buffer
		if _, err := r.o.source.Download(ctx, a.URL, &buf); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			r.warn("failed to download %s for %s: %v", a.Filename, name, err)
			continue
		}
		if err := r.writeFile(local, buf.Bytes()); err != nil {
			return err
		}
		a.Filename = filepath.Base(local)
		a.URL = ""
		kept = append(kept, a)
	}
	s.Attachments = kept
	return r.write(path, s)
}
