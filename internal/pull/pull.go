// Package pull mirrors remote course content into local documents.
//
// A pull overwrites every file it writes. Local edits that have not been
// pushed are lost, so users must push before pulling the same content
// again. Pull never mutates the remote course.
package pull

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/Brehove/canvas-cli-for-codex/internal/catalog"
	"github.com/Brehove/canvas-cli-for-codex/internal/codec"
	"github.com/Brehove/canvas-cli-for-codex/internal/document"
	"github.com/Brehove/canvas-cli-for-codex/internal/logging"
	"github.com/Brehove/canvas-cli-for-codex/internal/model"
	"github.com/Brehove/canvas-cli-for-codex/internal/progress"
	"github.com/Brehove/canvas-cli-for-codex/internal/route"
)

// DefaultWorkers bounds concurrent fetches when Options.Workers is zero.
const DefaultWorkers = 4

// Source is the read side of the Canvas transport.
type Source interface {
	Course(ctx context.Context, course int64) (model.Course, error)
	Pages(ctx context.Context, course int64) ([]*model.Page, error)
	Page(ctx context.Context, course int64, urlOrID string) (*model.Page, error)
	Assignments(ctx context.Context, course int64) ([]*model.Assignment, error)
	Assignment(ctx context.Context, course, assignment int64) (*model.Assignment, error)
	Discussions(ctx context.Context, course int64) ([]*model.Discussion, error)
	Discussion(ctx context.Context, course, topic int64) (*model.Discussion, error)
	DiscussionView(ctx context.Context, course, topic int64) (*model.DiscussionView, error)
	Rubrics(ctx context.Context, course int64) ([]*model.Rubric, error)
	Modules(ctx context.Context, course int64) ([]model.Module, error)
	ModuleItems(ctx context.Context, course, module int64) ([]model.ModuleItem, error)
	Submissions(ctx context.Context, course, assignment int64) ([]*model.Submission, error)
	Download(ctx context.Context, url string, w io.Writer) (int64, error)
}

// SubmissionFilter selects which submissions are pulled with assignments.
type SubmissionFilter string

const (
	SubmissionsNone     SubmissionFilter = "none"
	SubmissionsAll      SubmissionFilter = "all"
	SubmissionsUngraded SubmissionFilter = "ungraded"
)

// ParseSubmissionFilter converts a flag value to a filter.
func ParseSubmissionFilter(s string) (SubmissionFilter, error) {
	switch f := SubmissionFilter(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return SubmissionsNone, nil
	case SubmissionsNone, SubmissionsAll, SubmissionsUngraded:
		return f, nil
	default:
		return "", fmt.Errorf("invalid submissions filter %q (want none, all or ungraded)", s)
	}
}

// Selectors choose what to pull. Names match whole words of a title,
// case-insensitively. With no name selector the whole course is pulled.
type Selectors struct {
	Page       string
	Assignment string
	Discussion string
	Module     string
	// Rubrics adds every course rubric.
	Rubrics bool
}

// Whole reports whether no name selector is set.
func (s Selectors) Whole() bool {
	return s.Page == "" && s.Assignment == "" && s.Discussion == "" && s.Module == ""
}

// Options tune a pull.
type Options struct {
	Submissions SubmissionFilter
	// DiscussionPosts pulls the posts of discussion-graded assignments.
	DiscussionPosts bool
	Workers         int
	// Progress receives the progress bar. Nil draws to stderr when it is a
	// terminal.
	Progress io.Writer
	Quiet    bool
}

// Orchestrator runs pulls against one Canvas instance.
type Orchestrator struct {
	source Source
	router *route.Router
	root   string
}

// New returns an orchestrator writing course folders under root.
func New(source Source, router *route.Router, root string) *Orchestrator {
	if router == nil {
		router = route.New(nil, "")
	}
	return &Orchestrator{source: source, router: router, root: root}
}

// CourseDir returns the local folder for c.
func (o *Orchestrator) CourseDir(c model.Course) string {
	return filepath.Join(o.root, o.router.Route(c.Code, c.Name))
}

// run is the state of one pull.
type run struct {
	o       *Orchestrator
	course  model.Course
	dir     string
	sel     Selectors
	opts    Options
	catalog *catalog.Catalog
	result  *Result
	bar     *progress.Bar

	// mu serializes file writes, catalog registration and result updates.
	mu      sync.Mutex
	claimed map[string]bool
}

// job fetches one unit of content and writes its files.
type job struct {
	label string
	run   func(ctx context.Context) error
}

// Pull fetches the selected content of course and writes it locally. The
// returned error is non-nil only when the course itself cannot be read or
// its folder cannot be written; per-item failures are in the result.
func (o *Orchestrator) Pull(ctx context.Context, course int64, sel Selectors, opts Options) (*Result, error) {
	log := logging.WithContext(ctx).With(logging.Course(course), logging.Operation("pull"))

	if opts.Submissions == "" {
		opts.Submissions = SubmissionsNone
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}

	info, err := o.source.Course(ctx, course)
	if err != nil {
		return nil, fmt.Errorf("failed to read course %d: %w", course, err)
	}

	r := &run{
		o:       o,
		course:  info,
		dir:     o.CourseDir(info),
		sel:     sel,
		opts:    opts,
		catalog: catalog.New(),
		result:  &Result{Course: info},
		claimed: map[string]bool{},
	}
	r.result.CourseDir = r.dir

	if err := r.writeCourse(); err != nil {
		return nil, err
	}

	jobs := r.plan(ctx)
	log.Debug("planned pull", logging.Count(len(jobs)))
	r.result.Planned = len(jobs)

	r.bar = progress.New(progress.Options{
		Max:         len(jobs),
		Description: "Pulling " + info.Name,
		Writer:      opts.Progress,
		Quiet:       opts.Quiet,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for _, j := range jobs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			defer r.bar.Add(1)
			r.bar.Describe("Pulling " + j.label)
			if err := j.run(gctx); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				r.fail(j.label, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil || ctx.Err() != nil {
		r.result.Interrupted = true
		log.Warn("pull interrupted", logging.Err(ctx.Err()))
	}
	r.result.Finished = r.bar.Done()
	r.bar.Finish()

	o.finish(r)
	return r.result, nil
}

func (o *Orchestrator) finish(r *run) {
	r.catalog.Freeze()
	r.result.Catalog = r.catalog
	slices.Sort(r.result.Written)
	logging.Info("pull finished",
		logging.Course(r.course.ID),
		logging.Count(len(r.result.Written)),
		"warnings", len(r.result.Warnings),
		"errors", len(r.result.Errors),
		"result", string(r.result.Status()))
}

func (r *run) writeCourse() error {
	doc, err := codec.DecodeCourse(r.course)
	if err != nil {
		return err
	}
	path := filepath.Join(r.dir, codec.CourseFile)
	if err := document.WriteFile(path, doc.Bytes()); err != nil {
		return fmt.Errorf("failed to write course descriptor: %w", err)
	}
	r.result.Written = append(r.result.Written, path)
	return nil
}

// plan lists the selected content and claims a path for every document.
// Listing happens up front and in order so that path collisions resolve
// the same way on every run.
func (r *run) plan(ctx context.Context) []job {
	var steps []func(context.Context) []job
	if r.sel.Whole() {
		steps = append(steps, r.allPages, r.allAssignments)
	}
	if r.sel.Page != "" {
		steps = append(steps, r.pagesNamed)
	}
	if r.sel.Assignment != "" {
		steps = append(steps, r.assignmentsNamed)
	}
	if r.sel.Discussion != "" {
		steps = append(steps, r.discussionsNamed)
	}
	if r.sel.Module != "" {
		steps = append(steps, r.modulesNamed)
	}
	if r.sel.Rubrics {
		steps = append(steps, r.allRubrics)
	}

	var jobs []job
	for _, step := range steps {
		if ctx.Err() != nil {
			break
		}
		jobs = append(jobs, step(ctx)...)
	}
	return jobs
}

// claim reserves a file name in dir. A name already taken in this run gets
// the remote id appended, or a counter when there is no id.
func (r *run) claim(dir, slug string, id *int64, ext string) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if slug == "" && id != nil {
		slug = fmt.Sprintf("%d", *id)
	}
	path := filepath.Join(dir, slug+ext)
	if r.claimed[path] && id != nil {
		path = filepath.Join(dir, fmt.Sprintf("%s-%d%s", slug, *id, ext))
	}
	for n := 2; r.claimed[path]; n++ {
		path = filepath.Join(dir, fmt.Sprintf("%s-%d%s", slug, n, ext))
	}
	r.claimed[path] = true
	return path
}

// write renders res and writes it to path, then records it.
func (r *run) write(path string, res model.Resource) error {
	doc, err := codec.Decode(res)
	if err != nil {
		return err
	}
	return r.writeDocument(path, doc, res)
}

func (r *run) writeDocument(path string, doc *document.Document, res model.Resource) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := document.WriteFile(path, doc.Bytes()); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if res != nil && res.RemoteID() != nil {
		if err := r.catalog.Register(catalog.Entry{Course: r.course.ID, Resource: res, Path: path}); err != nil {
			return err
		}
	}
	r.result.Written = append(r.result.Written, path)
	logging.Debug("wrote document", logging.Path(path), logging.Kind(kindOf(res)), logging.CanvasID(idOf(res)))
	return nil
}

func (r *run) writeFile(path string, data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := document.WriteFile(path, data); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	r.result.Written = append(r.result.Written, path)
	return nil
}

func (r *run) warn(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	r.mu.Lock()
	r.result.Warnings = append(r.result.Warnings, msg)
	r.mu.Unlock()
	logging.Warn(msg, logging.Course(r.course.ID))
}

func (r *run) fail(label string, err error) {
	r.mu.Lock()
	r.result.Errors = append(r.result.Errors, fmt.Errorf("%s: %w", label, err))
	r.mu.Unlock()
	logging.Warn("pull item failed", logging.Course(r.course.ID), "item", label, logging.Err(err))
}

// list runs a listing call during planning. A failure is recorded and
// yields no jobs.
func list[T any](r *run, what string, fn func() ([]T, error)) ([]T, bool) {
	items, err := fn()
	if err != nil {
		r.fail("list "+what, err)
		return nil, false
	}
	return items, true
}

func (r *run) subdir(kind model.Kind) string {
	return filepath.Join(r.dir, kind.Subdir())
}

func kindOf(res model.Resource) string {
	if res == nil {
		return ""
	}
	return res.Kind().String()
}

func idOf(res model.Resource) *int64 {
	if res == nil {
		return nil
	}
	return res.RemoteID()
}
