package model

import (
	"fmt"
	"time"
)

// Resource is a course resource in its remote (Canvas) representation.
// The set of implementations is closed: Page, Assignment, Discussion,
// Rubric, ModuleItem and Submission.
type Resource interface {
	Kind() Kind
	// RemoteID returns nil for resources that have not been created yet.
	RemoteID() *int64
	Name() string
	resource()
}

// Base holds the fields shared by every resource kind.
type Base struct {
	ID        *int64
	Title     string
	Published bool
}

// RemoteID returns the Canvas identifier, or nil if the resource is new.
func (b Base) RemoteID() *int64 { return b.ID }

// Name returns the display title.
func (b Base) Name() string { return b.Title }

func (Base) resource() {}

// Page is a Canvas wiki page.
type Page struct {
	Base
	// URL is the page slug Canvas uses in page URLs.
	URL  string
	Body string
}

// Kind implements Resource.
func (*Page) Kind() Kind { return KindPage }

// Assignment is a gradable Canvas assignment.
type Assignment struct {
	Base
	Description     string
	DueAt           *time.Time
	PointsPossible  *float64
	SubmissionTypes []string
	RubricID        *int64
	// DiscussionTopicID is set when the assignment backs a graded discussion.
	DiscussionTopicID *int64
}

// Kind implements Resource.
func (*Assignment) Kind() Kind { return KindAssignment }

// IsDiscussion reports whether the assignment is graded through a discussion.
func (a *Assignment) IsDiscussion() bool {
	for _, t := range a.SubmissionTypes {
		if t == "discussion_topic" {
			return true
		}
	}
	return a.DiscussionTopicID != nil
}

// Discussion is a Canvas discussion topic.
type Discussion struct {
	Base
	Message      string
	AssignmentID *int64
}

// Kind implements Resource.
func (*Discussion) Kind() Kind { return KindDiscussion }

// Rubric is a grading rubric. Criterion order is significant.
type Rubric struct {
	Base
	PointsPossible *float64
	Criteria       []Criterion
}

// Kind implements Resource.
func (*Rubric) Kind() Kind { return KindRubric }

// Criterion is one row of a rubric.
type Criterion struct {
	ID              string
	Description     string
	LongDescription string
	Points          float64
	Ratings         []Rating
}

// Rating is one scoring level of a criterion.
type Rating struct {
	ID              string
	Description     string
	LongDescription string
	Points          float64
}

// ModuleItem is one entry of a course module.
type ModuleItem struct {
	Base
	ModuleID  int64
	Type      string
	ContentID *int64
	PageURL   string
	Position  int
	Indent    int
}

// Kind implements Resource.
func (*ModuleItem) Kind() Kind { return KindModuleItem }

// Submission is a student's submission to an assignment. Title holds the
// student's display name.
// Only the grade is pushed back; everything else is read-only.
type Submission struct {
	Base
	AssignmentID  int64
	UserID        int64
	WorkflowState string
	Type          string
	SubmittedAt   *time.Time
	Late          bool
	Attempt       *int
	Grade         string
	Score         *float64
	Body          string
	URL           string
	Attachments   []Attachment
	Comments      []Comment
}

// Kind implements Resource.
func (*Submission) Kind() Kind { return KindSubmission }

// Graded reports whether the submission has a grade.
func (s *Submission) Graded() bool {
	return s.Grade != "" || s.Score != nil
}

// Attachment is a file attached to a submission.
type Attachment struct {
	ID          int64
	Filename    string
	ContentType string
	// URL is a short-lived download link and is never persisted locally.
	URL string
}

// Comment is a submission comment.
type Comment struct {
	Author    string
	CreatedAt *time.Time
	Text      string
}

// Ref identifies a remote resource well enough to fetch or update it.
type Ref struct {
	Kind Kind
	ID   int64
	// Parent is the module for module items and the assignment for submissions.
	Parent int64
	// User is the student for submissions.
	User int64
}

func (r Ref) String() string {
	return fmt.Sprintf("%s/%d", r.Kind, r.ID)
}

// RefOf returns the reference for r. The ID is zero when r is new.
func RefOf(r Resource) Ref {
	ref := Ref{Kind: r.Kind()}
	if id := r.RemoteID(); id != nil {
		ref.ID = *id
	}
	switch v := r.(type) {
	case *ModuleItem:
		ref.Parent = v.ModuleID
	case *Submission:
		ref.Parent = v.AssignmentID
		ref.User = v.UserID
	}
	return ref
}

// Course is a Canvas course.
type Course struct {
	ID   int64
	Name string
	Code string
	Term string
}

// Module is a course module with its items in position order.
type Module struct {
	ID                        int64
	Name                      string
	Position                  int
	UnlockAt                  *time.Time
	RequireSequentialProgress bool
	Published                 bool
	Items                     []ModuleItem
}

// DiscussionView is the threaded participant view of a discussion topic.
type DiscussionView struct {
	Participants map[int64]string
	Entries      []DiscussionEntry
}

// DiscussionEntry is a post or reply in a discussion.
type DiscussionEntry struct {
	ID        int64
	UserID    int64
	Message   string
	CreatedAt *time.Time
	Replies   []DiscussionEntry
}

// Int64 returns a pointer to v.
func Int64(v int64) *int64 { return &v }

// Float64 returns a pointer to v.
func Float64(v float64) *float64 { return &v }

// Time returns a pointer to t.
func Time(t time.Time) *time.Time { return &t }
