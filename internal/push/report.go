package push

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Brehove/canvas-cli-for-codex/internal/diff"
	"github.com/Brehove/canvas-cli-for-codex/internal/faults"
	"github.com/Brehove/canvas-cli-for-codex/internal/model"
)

// Op is the operation push chose for one document.
type Op string

const (
	// OpCreate creates a new remote object and writes its id back.
	OpCreate Op = "create"

	// OpUpdate sends the changed fields of an existing object.
	OpUpdate Op = "update"

	// OpNone means the document matches the remote object; nothing is sent.
	OpNone Op = "none"

	// OpSkipped means the document is a read-only export.
	OpSkipped Op = "skipped"
)

// Status is the overall outcome of a push.
type Status string

const (
	StatusSuccess Status = "success"
	StatusPartial Status = "partial"
	StatusFailed  Status = "failed"
)

// ItemReport is the outcome of pushing one document or module item.
type ItemReport struct {
	// Path is the local file. Module items share the descriptor's path.
	Path string

	// Name is the resource title.
	Name string

	Kind model.Kind

	// ID is the remote id after the push; nil when a create failed or
	// was only previewed.
	ID *int64

	// Op is the operation chosen. It is set even when the item failed.
	Op Op

	// Changes are the fields sent, or that would be sent in a dry run.
	Changes diff.ChangeSet

	// Candidate is the resource encoded from the document.
	Candidate model.Resource

	// Err is set when the item failed.
	Err error

	DryRun bool
}

// Ok reports whether the item succeeded.
func (ir *ItemReport) Ok() bool {
	return ir.Err == nil
}

// Label names the item for output.
func (ir *ItemReport) Label() string {
	if ir.Name != "" {
		return fmt.Sprintf("%s %q", ir.Kind, ir.Name)
	}
	return ir.Path
}

// Report is the complete outcome of a push.
type Report struct {
	// Course is the course pushed to.
	Course int64

	// Items are in processing order.
	Items []ItemReport

	// Interrupted is set when the push was cancelled before every item ran.
	Interrupted bool

	DryRun bool
}

// Succeeded returns the items that succeeded.
func (r *Report) Succeeded() []ItemReport {
	var out []ItemReport
	for _, ir := range r.Items {
		if ir.Ok() {
			out = append(out, ir)
		}
	}
	return out
}

// Failed returns the items that failed.
func (r *Report) Failed() []ItemReport {
	var out []ItemReport
	for _, ir := range r.Items {
		if !ir.Ok() {
			out = append(out, ir)
		}
	}
	return out
}

// ByOp returns the successful items with the given operation.
func (r *Report) ByOp(op Op) []ItemReport {
	var out []ItemReport
	for _, ir := range r.Items {
		if ir.Ok() && ir.Op == op {
			out = append(out, ir)
		}
	}
	return out
}

// Status classifies the push. Nothing failing is success, everything
// failing is failed, anything in between is partial.
func (r *Report) Status() Status {
	failed := len(r.Failed())
	switch {
	case failed == 0 && !r.Interrupted:
		return StatusSuccess
	case failed == len(r.Items):
		return StatusFailed
	default:
		return StatusPartial
	}
}

// Err joins the item errors.
func (r *Report) Err() error {
	var errs []error
	for _, ir := range r.Failed() {
		errs = append(errs, fmt.Errorf("%s: %w", ir.Label(), ir.Err))
	}
	return errors.Join(errs...)
}

// IntegrityFailures returns the items whose remote object was created but
// whose id could not be written locally.
func (r *Report) IntegrityFailures() []ItemReport {
	var out []ItemReport
	for _, ir := range r.Failed() {
		if faults.IsCategory(ir.Err, faults.IntegrityError) {
			out = append(out, ir)
		}
	}
	return out
}

// Summary returns a human-readable summary of the push.
func (r *Report) Summary() string {
	var sb strings.Builder

	if r.DryRun {
		sb.WriteString("Dry run - no changes made\n")
	}
	fmt.Fprintf(&sb, "Pushed %d items to course %d\n", len(r.Items), r.Course)
	fmt.Fprintf(&sb, "  Created:    %d\n", len(r.ByOp(OpCreate)))
	fmt.Fprintf(&sb, "  Updated:    %d\n", len(r.ByOp(OpUpdate)))
	fmt.Fprintf(&sb, "  No changes: %d\n", len(r.ByOp(OpNone)))
	fmt.Fprintf(&sb, "  Skipped:    %d\n", len(r.ByOp(OpSkipped)))
	fmt.Fprintf(&sb, "  Failed:     %d\n", len(r.Failed()))

	if r.Interrupted {
		sb.WriteString("\nInterrupted before every item was pushed\n")
	}
	if failed := r.Failed(); len(failed) > 0 {
		sb.WriteString("\nErrors:\n")
		for _, ir := range failed {
			fmt.Fprintf(&sb, "  - %s: %v\n", ir.Label(), ir.Err)
		}
	}
	return sb.String()
}
