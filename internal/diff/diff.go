// Package diff compares a remote resource with the candidate built from a
// local document and renders the result.
//
// Diff and Preview share one ChangeSet, so what a dry run shows is what a
// real push sends.
package diff

import (
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/Brehove/canvas-cli-for-codex/internal/model"
	"github.com/Brehove/canvas-cli-for-codex/internal/transcode"
)

// Tolerance is the absolute difference under which two point values are equal.
const Tolerance = 1e-6

// Field names used in change sets. They match the document header keys.
const (
	FieldTitle           = "title"
	FieldDueAt           = "due_at"
	FieldPointsPossible  = "points_possible"
	FieldSubmissionTypes = "submission_types"
	FieldPublished       = "published"
	FieldCriteria        = "criteria"
	FieldPosition        = "position"
	FieldIndent          = "indent"
	FieldGrade           = "grade"
	FieldScore           = "score"
	FieldBody            = "body"
)

// FieldChange is one differing field. Old is nil for additions.
type FieldChange struct {
	Field string
	Old   any
	New   any
}

// ChangeSet lists the fields that differ between the remote resource and
// the local candidate, in header order with the body last.
type ChangeSet struct {
	Ref     model.Ref
	Name    string
	Changes []FieldChange

	// Target is the candidate the changes were computed for. Updates that
	// resend unchanged fields read them from it.
	Target model.Resource
}

// Empty reports whether nothing would be sent.
func (c ChangeSet) Empty() bool {
	return len(c.Changes) == 0
}

// Fields returns the changed field names in order.
func (c ChangeSet) Fields() []string {
	fields := make([]string, 0, len(c.Changes))
	for _, ch := range c.Changes {
		fields = append(fields, ch.Field)
	}
	return fields
}

// Has reports whether field changed.
func (c ChangeSet) Has(field string) bool {
	_, ok := c.Get(field)
	return ok
}

// Get returns the change for field.
func (c ChangeSet) Get(field string) (FieldChange, bool) {
	for _, ch := range c.Changes {
		if ch.Field == field {
			return ch, true
		}
	}
	return FieldChange{}, false
}

type changes []FieldChange

func (cs *changes) add(field string, old, new any) {
	*cs = append(*cs, FieldChange{Field: field, Old: old, New: new})
}

func (cs *changes) str(field, old, new string) {
	if strings.TrimSpace(old) != strings.TrimSpace(new) {
		cs.add(field, old, new)
	}
}

func (cs *changes) boolean(field string, old, new bool) {
	if old != new {
		cs.add(field, old, new)
	}
}

func (cs *changes) integer(field string, old, new int) {
	if old != new {
		cs.add(field, old, new)
	}
}

func (cs *changes) points(field string, old, new *float64) {
	if !pointsEqual(old, new) {
		cs.add(field, old, new)
	}
}

func (cs *changes) timestamp(field string, old, new *time.Time) {
	if !timesEqual(old, new) {
		cs.add(field, old, new)
	}
}

// body compares the remote HTML, projected through the transcoder, with
// the candidate HTML rendered from the local Markdown.
func (cs *changes) body(old, new string) {
	if strings.TrimSpace(transcode.Normalize(old)) != strings.TrimSpace(new) {
		cs.add(FieldBody, old, new)
	}
}

// Diff compares the current remote state with the candidate built from a
// local document. Both must be of the same kind.
func Diff(current, candidate model.Resource) (ChangeSet, error) {
	if current == nil || candidate == nil {
		return ChangeSet{}, fmt.Errorf("diff: both resources are required")
	}
	if current.Kind() != candidate.Kind() {
		return ChangeSet{}, fmt.Errorf("diff: cannot compare %s with %s", current.Kind(), candidate.Kind())
	}

	ref := model.RefOf(current)
	cs := ChangeSet{Ref: ref, Name: candidate.Name(), Target: candidate}
	var ch changes

	switch cur := current.(type) {
	case *model.Page:
		cand := candidate.(*model.Page)
		ch.str(FieldTitle, cur.Title, cand.Title)
		ch.boolean(FieldPublished, cur.Published, cand.Published)
		ch.body(cur.Body, cand.Body)

	case *model.Assignment:
		cand := candidate.(*model.Assignment)
		ch.str(FieldTitle, cur.Title, cand.Title)
		ch.timestamp(FieldDueAt, cur.DueAt, cand.DueAt)
		ch.points(FieldPointsPossible, cur.PointsPossible, cand.PointsPossible)
		if !sameSet(cur.SubmissionTypes, cand.SubmissionTypes) {
			ch.add(FieldSubmissionTypes, cur.SubmissionTypes, cand.SubmissionTypes)
		}
		ch.boolean(FieldPublished, cur.Published, cand.Published)
		ch.body(cur.Description, cand.Description)

	case *model.Discussion:
		cand := candidate.(*model.Discussion)
		ch.str(FieldTitle, cur.Title, cand.Title)
		ch.boolean(FieldPublished, cur.Published, cand.Published)
		ch.body(cur.Message, cand.Message)

	case *model.Rubric:
		cand := candidate.(*model.Rubric)
		ch.str(FieldTitle, cur.Title, cand.Title)
		ch.points(FieldPointsPossible, cur.PointsPossible, cand.PointsPossible)
		if !criteriaEqual(cur.Criteria, cand.Criteria) {
			ch.add(FieldCriteria, cur.Criteria, cand.Criteria)
		}

	case *model.ModuleItem:
		cand := candidate.(*model.ModuleItem)
		ch.str(FieldTitle, cur.Title, cand.Title)
		ch.integer(FieldPosition, cur.Position, cand.Position)
		ch.integer(FieldIndent, cur.Indent, cand.Indent)
		ch.boolean(FieldPublished, cur.Published, cand.Published)

	case *model.Submission:
		cand := candidate.(*model.Submission)
		ch.str(FieldGrade, cur.Grade, cand.Grade)
		ch.points(FieldScore, cur.Score, cand.Score)

	default:
		return ChangeSet{}, fmt.Errorf("diff: unsupported resource %T", current)
	}

	cs.Changes = ch
	return cs, nil
}

// Additions lists every field of a resource that does not exist remotely
// yet. Dry runs of a create report it.
func Additions(r model.Resource) ChangeSet {
	cs := ChangeSet{Ref: model.RefOf(r), Name: r.Name(), Target: r}
	var ch changes
	set := func(field string, v any, present bool) {
		if present {
			ch.add(field, nil, v)
		}
	}

	switch v := r.(type) {
	case *model.Page:
		set(FieldTitle, v.Title, true)
		set(FieldPublished, v.Published, true)
		set(FieldBody, v.Body, v.Body != "")
	case *model.Assignment:
		set(FieldTitle, v.Title, true)
		set(FieldDueAt, v.DueAt, v.DueAt != nil)
		set(FieldPointsPossible, v.PointsPossible, v.PointsPossible != nil)
		set(FieldSubmissionTypes, v.SubmissionTypes, len(v.SubmissionTypes) > 0)
		set(FieldPublished, v.Published, true)
		set(FieldBody, v.Description, v.Description != "")
	case *model.Discussion:
		set(FieldTitle, v.Title, true)
		set(FieldPublished, v.Published, true)
		set(FieldBody, v.Message, v.Message != "")
	case *model.Rubric:
		set(FieldTitle, v.Title, true)
		set(FieldPointsPossible, v.PointsPossible, v.PointsPossible != nil)
		set(FieldCriteria, v.Criteria, true)
	case *model.ModuleItem:
		set(FieldTitle, v.Title, true)
		set(FieldPosition, v.Position, v.Position != 0)
		set(FieldIndent, v.Indent, v.Indent != 0)
		set(FieldPublished, v.Published, true)
	case *model.Submission:
		set(FieldGrade, v.Grade, v.Grade != "")
		set(FieldScore, v.Score, v.Score != nil)
	}

	cs.Changes = ch
	return cs
}

func pointsEqual(a, b *float64) bool {
	switch {
	case a == nil || b == nil:
		return a == nil && b == nil
	default:
		return math.Abs(*a-*b) <= Tolerance
	}
}

func timesEqual(a, b *time.Time) bool {
	switch {
	case a == nil || b == nil:
		return a == nil && b == nil
	default:
		return a.UTC().Truncate(time.Second).Equal(b.UTC().Truncate(time.Second))
	}
}

func sameSet(a, b []string) bool {
	return slices.Equal(setOf(a), setOf(b))
}

func setOf(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// criteriaEqual compares criteria in order. Moving a criterion is an edit.
func criteriaEqual(a, b []model.Criterion) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		x, y := a[i], b[i]
		if x.ID != y.ID ||
			strings.TrimSpace(x.Description) != strings.TrimSpace(y.Description) ||
			strings.TrimSpace(x.LongDescription) != strings.TrimSpace(y.LongDescription) ||
			math.Abs(x.Points-y.Points) > Tolerance ||
			!ratingsEqual(x.Ratings, y.Ratings) {
			return false
		}
	}
	return true
}

func ratingsEqual(a, b []model.Rating) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		x, y := a[i], b[i]
		if x.ID != y.ID ||
			strings.TrimSpace(x.Description) != strings.TrimSpace(y.Description) ||
			strings.TrimSpace(x.LongDescription) != strings.TrimSpace(y.LongDescription) ||
			math.Abs(x.Points-y.Points) > Tolerance {
			return false
		}
	}
	return true
}
