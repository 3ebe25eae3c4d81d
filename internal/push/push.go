// Package push publishes local documents back to Canvas.
//
// Every document is encoded into a candidate resource and compared with the
// remote object. A null canvas_id creates the object and writes the new id
// into the file immediately; an unchanged document is never submitted. A dry
// run computes the same change sets and performs no remote mutation.
package push

import (
	"context"
	"fmt"

	"github.com/Brehove/canvas-cli-for-codex/internal/catalog"
	"github.com/Brehove/canvas-cli-for-codex/internal/codec"
	"github.com/Brehove/canvas-cli-for-codex/internal/diff"
	"github.com/Brehove/canvas-cli-for-codex/internal/document"
	"github.com/Brehove/canvas-cli-for-codex/internal/faults"
	"github.com/Brehove/canvas-cli-for-codex/internal/logging"
	"github.com/Brehove/canvas-cli-for-codex/internal/model"
)

// Remote is the mutation side of the Canvas transport.
type Remote interface {
	Fetch(ctx context.Context, course int64, ref model.Ref) (model.Resource, error)
	Create(ctx context.Context, course int64, r model.Resource) (int64, error)
	Update(ctx context.Context, course int64, cs diff.ChangeSet) error
}

// Options tune a push.
type Options struct {
	DryRun bool

	// Course overrides the course read from the nearest _course.yaml.
	Course int64
}

// Orchestrator pushes documents found under one local root.
type Orchestrator struct {
	remote Remote
	root   string

	// save persists a document after its id was backfilled.
	save func(*document.Document) error
}

// New returns an orchestrator. Module targets are searched for under root.
func New(remote Remote, root string) *Orchestrator {
	return &Orchestrator{
		remote: remote,
		root:   root,
		save:   (*document.Document).Save,
	}
}

// run is the state of one push.
type run struct {
	o       *Orchestrator
	course  int64
	opts    Options
	catalog *catalog.Catalog
	report  *Report
}

// Push publishes target. The returned error is non-nil only when the
// target itself cannot be resolved; per-item failures are in the report.
func (o *Orchestrator) Push(ctx context.Context, target Target, opts Options) (*Report, error) {
	log := logging.WithContext(ctx).With(logging.Operation("push"))

	if target.IsModule() {
		return o.pushModule(ctx, target, opts)
	}

	course, err := o.resolveCourse(target.path, opts)
	if err != nil {
		return nil, err
	}
	r := o.newRun(course, opts)
	r.pushFile(ctx, target.path)
	log.Info("push finished", logging.Course(course), logging.Path(target.path), "result", string(r.report.Status()))
	return r.report, nil
}

func (o *Orchestrator) pushModule(ctx context.Context, target Target, opts Options) (*Report, error) {
	mf, err := findModule(o.root, target.module)
	if err != nil {
		return nil, err
	}
	course, err := o.resolveCourse(mf.dir, opts)
	if err != nil {
		return nil, err
	}
	paths, err := moduleDocuments(mf.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list module folder %s: %w", mf.dir, err)
	}

	log := logging.WithContext(ctx).With(logging.Operation("push"), logging.Course(course))
	log.Debug("pushing module", "module", mf.module.Name, logging.Count(len(paths)+len(mf.module.Items)))

	r := o.newRun(course, opts)
	for _, path := range paths {
		if ctx.Err() != nil {
			r.report.Interrupted = true
			break
		}
		r.pushFile(ctx, path)
	}
	if !r.report.Interrupted {
		r.pushItems(ctx, mf)
	}

	log.Info("push finished",
		"module", mf.module.Name,
		"succeeded", len(r.report.Succeeded()),
		"failed", len(r.report.Failed()),
		"result", string(r.report.Status()))
	return r.report, nil
}

func (o *Orchestrator) resolveCourse(path string, opts Options) (int64, error) {
	if opts.Course != 0 {
		return opts.Course, nil
	}
	return courseOf(path)
}

func (o *Orchestrator) newRun(course int64, opts Options) *run {
	return &run{
		o:       o,
		course:  course,
		opts:    opts,
		catalog: catalog.New(),
		report:  &Report{Course: course, DryRun: opts.DryRun},
	}
}

// pushFile pushes one document and records its outcome.
func (r *run) pushFile(ctx context.Context, path string) {
	ir := ItemReport{Path: path, DryRun: r.opts.DryRun}
	r.pushDocument(ctx, &ir)
	r.record(ir)
}

func (r *run) pushDocument(ctx context.Context, ir *ItemReport) {
	doc, err := document.Load(ir.Path)
	if err != nil {
		ir.Err = err
		return
	}
	if codec.ReadOnly(doc) {
		ir.Op = OpSkipped
		return
	}
	kind, err := codec.Detect(doc)
	if err != nil {
		ir.Err = err
		return
	}
	ir.Kind = kind
	candidate, err := codec.Encode(doc, kind)
	if err != nil {
		ir.Err = err
		return
	}
	ir.Name = candidate.Name()
	ir.Candidate = candidate

	if candidate.RemoteID() == nil {
		if kind == model.KindSubmission {
			ir.Err = faults.Invalid(codec.KeyID, "submissions cannot be created; pull the assignment's submissions first")
			return
		}
		r.create(ctx, ir, candidate, func(id int64) error {
			if err := doc.SetField(codec.KeyID, id); err != nil {
				return err
			}
			return r.o.save(doc)
		})
		return
	}
	r.update(ctx, ir, candidate)
}

// pushItems pushes the module items listed in the descriptor.
func (r *run) pushItems(ctx context.Context, mf *moduleFolder) {
	for i, item := range mf.module.Items {
		if ctx.Err() != nil {
			r.report.Interrupted = true
			return
		}
		ir := ItemReport{
			Path:   mf.doc.Path,
			Name:   item.Title,
			Kind:   model.KindModuleItem,
			DryRun: r.opts.DryRun,
		}
		candidate := &item
		ir.Candidate = candidate
		if candidate.RemoteID() == nil {
			r.create(ctx, &ir, candidate, func(id int64) error {
				if err := mf.doc.SetItemField("items", i, codec.KeyID, id); err != nil {
					return err
				}
				return r.o.save(mf.doc)
			})
		} else {
			r.update(ctx, &ir, candidate)
		}
		r.record(ir)
	}
}

// create adds candidate remotely and hands the new id to backfill. A
// backfill failure is an IntegrityError: the remote object exists but the
// local file does not know it.
func (r *run) create(ctx context.Context, ir *ItemReport, candidate model.Resource, backfill func(id int64) error) {
	ir.Op = OpCreate
	ir.Changes = diff.Additions(candidate)
	if r.opts.DryRun {
		return
	}

	id, err := r.o.remote.Create(ctx, r.course, candidate)
	if err != nil {
		ir.Err = err
		return
	}
	ir.ID = model.Int64(id)
	ir.Changes.Ref.ID = id

	if err := backfill(id); err != nil {
		ir.Err = faults.Integrity(fmt.Sprintf("created %s %d but could not record its id in %s; add canvas_id: %d by hand before pushing again", candidate.Kind(), id, ir.Path, id), err)
		logging.Error("id backfill failed", logging.Course(r.course), logging.Kind(candidate.Kind().String()), logging.CanvasID(ir.ID), logging.Path(ir.Path), logging.Err(err))
	}
}

// update diffs candidate against the remote object and sends the changes.
func (r *run) update(ctx context.Context, ir *ItemReport, candidate model.Resource) {
	ir.ID = candidate.RemoteID()
	current, err := r.current(ctx, candidate)
	if err != nil {
		ir.Op = OpUpdate
		ir.Err = err
		return
	}
	// A document pulled before its assignment became a graded discussion
	// has no topic id; the fetched assignment carries it.
	if a, ok := candidate.(*model.Assignment); ok && a.DiscussionTopicID == nil {
		if cur, ok := current.(*model.Assignment); ok {
			a.DiscussionTopicID = cur.DiscussionTopicID
		}
	}
	cs, err := diff.Diff(current, candidate)
	if err != nil {
		ir.Op = OpUpdate
		ir.Err = err
		return
	}
	ir.Changes = cs
	if cs.Empty() {
		ir.Op = OpNone
		return
	}
	ir.Op = OpUpdate
	if r.opts.DryRun {
		return
	}
	if err := r.o.remote.Update(ctx, r.course, cs); err != nil {
		ir.Err = err
	}
}

// current returns the remote state of candidate's object, fetching it
// only once per push.
func (r *run) current(ctx context.Context, candidate model.Resource) (model.Resource, error) {
	e, err := r.catalog.Lookup(r.course, candidate.Kind(), *candidate.RemoteID())
	if err == nil {
		return e.Resource, nil
	}
	if !faults.IsCategory(err, faults.NotFoundError) {
		return nil, err
	}

	ref := model.RefOf(candidate)
	current, err := r.o.remote.Fetch(ctx, r.course, ref)
	if err != nil {
		return nil, err
	}
	if err := r.catalog.Register(catalog.Entry{Course: r.course, Resource: current}); err != nil {
		return nil, err
	}
	return current, nil
}

func (r *run) record(ir ItemReport) {
	r.report.Items = append(r.report.Items, ir)
	attrs := []any{logging.Course(r.course), logging.Path(ir.Path), logging.Kind(ir.Kind.String()), logging.CanvasID(ir.ID), "op", string(ir.Op)}
	if ir.Err != nil {
		logging.Warn("push item failed", append(attrs, logging.Err(ir.Err))...)
		return
	}
	logging.Debug("push item done", attrs...)
}
