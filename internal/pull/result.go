package pull

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Brehove/canvas-cli-for-codex/internal/catalog"
	"github.com/Brehove/canvas-cli-for-codex/internal/model"
)

// Status is the overall outcome of a pull.
type Status string

const (
	StatusSuccess Status = "success"
	StatusPartial Status = "partial"
	StatusFailed  Status = "failed"
)

// Result is the outcome of one pull.
type Result struct {
	Course    model.Course
	CourseDir string
	// Written lists every file written, including the course descriptor,
	// in sorted order.
	Written []string
	// Warnings are selectors that matched nothing and downloads that failed.
	Warnings []string
	// Errors are per-item failures.
	Errors []error
	// Interrupted is set when the pull was cancelled before every item ran.
	Interrupted bool
	// Planned and Finished count the items scheduled and the items that
	// ran to completion or failure.
	Planned, Finished int
	// Catalog holds the snapshots of everything written. It is frozen.
	Catalog *catalog.Catalog
}

// Documents returns the number of files written besides the course
// descriptor.
func (r *Result) Documents() int {
	if len(r.Written) == 0 {
		return 0
	}
	return len(r.Written) - 1
}

// Status classifies the pull. A pull that wrote nothing but the course
// descriptor and hit any problem failed; one that wrote content and hit
// problems is partial.
func (r *Result) Status() Status {
	problems := len(r.Warnings) > 0 || len(r.Errors) > 0 || r.Interrupted
	switch {
	case !problems:
		return StatusSuccess
	case r.Documents() == 0:
		return StatusFailed
	default:
		return StatusPartial
	}
}

// Err joins the per-item errors.
func (r *Result) Err() error {
	return errors.Join(r.Errors...)
}

// Summary returns a human-readable summary of the pull.
func (r *Result) Summary() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Pulled %d files from %s to %s\n", r.Documents(), r.Course.Name, r.CourseDir)
	if r.Interrupted {
		fmt.Fprintf(&sb, "Interrupted after %d of %d items\n", r.Finished, r.Planned)
	}
	if len(r.Warnings) > 0 {
		sb.WriteString("\nWarnings:\n")
		for _, w := range r.Warnings {
			fmt.Fprintf(&sb, "  - %s\n", w)
		}
	}
	if len(r.Errors) > 0 {
		sb.WriteString("\nErrors:\n")
		for _, err := range r.Errors {
			fmt.Fprintf(&sb, "  - %v\n", err)
		}
	}
	return sb.String()
}
