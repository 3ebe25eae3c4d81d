package canvas

import (
	"time"

	"github.com/Brehove/canvas-cli-for-codex/internal/model"
)

// Wire formats of the Canvas REST API. Only the fields the sync engine
// reads are declared.

type courseJSON struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	CourseCode string `json:"course_code"`
	Term       *struct {
		Name string `json:"name"`
	} `json:"term"`
}

func (c courseJSON) model() model.Course {
	course := model.Course{ID: c.ID, Name: c.Name, Code: c.CourseCode}
	if c.Term != nil {
		course.Term = c.Term.Name
	}
	return course
}

type pageJSON struct {
	PageID    int64   `json:"page_id"`
	URL       string  `json:"url"`
	Title     string  `json:"title"`
	Body      *string `json:"body"`
	Published bool    `json:"published"`
}

func (p pageJSON) model() *model.Page {
	return &model.Page{
		Base: model.Base{ID: model.Int64(p.PageID), Title: p.Title, Published: p.Published},
		URL:  p.URL,
		Body: deref(p.Body),
	}
}

type assignmentJSON struct {
	ID              int64      `json:"id"`
	Name            string     `json:"name"`
	Description     *string    `json:"description"`
	DueAt           *time.Time `json:"due_at"`
	PointsPossible  *float64   `json:"points_possible"`
	SubmissionTypes []string   `json:"submission_types"`
	Published       bool       `json:"published"`
	RubricSettings  *struct {
		ID *int64 `json:"id"`
	} `json:"rubric_settings"`
	DiscussionTopic *struct {
		ID int64 `json:"id"`
	} `json:"discussion_topic"`
}

func (a assignmentJSON) model() *model.Assignment {
	out := &model.Assignment{
		Base:            model.Base{ID: model.Int64(a.ID), Title: a.Name, Published: a.Published},
		Description:     deref(a.Description),
		DueAt:           utc(a.DueAt),
		PointsPossible:  a.PointsPossible,
		SubmissionTypes: a.SubmissionTypes,
	}
	if a.RubricSettings != nil {
		out.RubricID = a.RubricSettings.ID
	}
	if a.DiscussionTopic != nil && a.DiscussionTopic.ID != 0 {
		out.DiscussionTopicID = model.Int64(a.DiscussionTopic.ID)
	}
	return out
}

type discussionJSON struct {
	ID           int64   `json:"id"`
	Title        string  `json:"title"`
	Message      *string `json:"message"`
	Published    bool    `json:"published"`
	AssignmentID *int64  `json:"assignment_id"`
}

func (d discussionJSON) model() *model.Discussion {
	return &model.Discussion{
		Base:         model.Base{ID: model.Int64(d.ID), Title: d.Title, Published: d.Published},
		Message:      deref(d.Message),
		AssignmentID: d.AssignmentID,
	}
}

type ratingJSON struct {
	ID              string  `json:"id,omitempty"`
	Description     string  `json:"description"`
	LongDescription string  `json:"long_description"`
	Points          float64 `json:"points"`
}

type criterionJSON struct {
	ID              string       `json:"id,omitempty"`
	Description     string       `json:"description"`
	LongDescription string       `json:"long_description"`
	Points          float64      `json:"points"`
	Ratings         []ratingJSON `json:"ratings"`
}

type rubricJSON struct {
	ID             int64           `json:"id"`
	Title          string          `json:"title"`
	PointsPossible *float64        `json:"points_possible"`
	Data           []criterionJSON `json:"data"`
}

func (r rubricJSON) model() *model.Rubric {
	out := &model.Rubric{
		Base:           model.Base{ID: model.Int64(r.ID), Title: r.Title},
		PointsPossible: r.PointsPossible,
	}
	for _, c := range r.Data {
		criterion := model.Criterion{
			ID:              c.ID,
			Description:     c.Description,
			LongDescription: c.LongDescription,
			Points:          c.Points,
		}
		for _, rt := range c.Ratings {
			criterion.Ratings = append(criterion.Ratings, model.Rating{
				ID:              rt.ID,
				Description:     rt.Description,
				LongDescription: rt.LongDescription,
				Points:          rt.Points,
			})
		}
		out.Criteria = append(out.Criteria, criterion)
	}
	return out
}

// rubricEnvelope is the response of rubric create and update calls.
type rubricEnvelope struct {
	ID     int64 `json:"id"`
	Rubric *struct {
		ID int64 `json:"id"`
	} `json:"rubric"`
}

func (e rubricEnvelope) id() int64 {
	if e.Rubric != nil && e.Rubric.ID != 0 {
		return e.Rubric.ID
	}
	return e.ID
}

type moduleJSON struct {
	ID                        int64      `json:"id"`
	Name                      string     `json:"name"`
	Position                  int        `json:"position"`
	UnlockAt                  *time.Time `json:"unlock_at"`
	RequireSequentialProgress bool       `json:"require_sequential_progress"`
	Published                 bool       `json:"published"`
	ItemsCount                int        `json:"items_count"`
}

func (m moduleJSON) model() model.Module {
	return model.Module{
		ID:                        m.ID,
		Name:                      m.Name,
		Position:                  m.Position,
		UnlockAt:                  utc(m.UnlockAt),
		RequireSequentialProgress: m.RequireSequentialProgress,
		Published:                 m.Published,
	}
}

type moduleItemJSON struct {
	ID        int64  `json:"id"`
	ModuleID  int64  `json:"module_id"`
	Title     string `json:"title"`
	Type      string `json:"type"`
	ContentID *int64 `json:"content_id"`
	PageURL   string `json:"page_url"`
	Position  int    `json:"position"`
	Indent    int    `json:"indent"`
	Published bool   `json:"published"`
}

func (i moduleItemJSON) model() *model.ModuleItem {
	return &model.ModuleItem{
		Base:      model.Base{ID: model.Int64(i.ID), Title: i.Title, Published: i.Published},
		ModuleID:  i.ModuleID,
		Type:      i.Type,
		ContentID: i.ContentID,
		PageURL:   i.PageURL,
		Position:  i.Position,
		Indent:    i.Indent,
	}
}

type attachmentJSON struct {
	ID          int64  `json:"id"`
	Filename    string `json:"filename"`
	DisplayName string `json:"display_name"`
	ContentType string `json:"content-type"`
	URL         string `json:"url"`
}

type commentJSON struct {
	AuthorName string     `json:"author_name"`
	CreatedAt  *time.Time `json:"created_at"`
	Comment    string     `json:"comment"`
}

type userJSON struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type submissionJSON struct {
	ID                 int64            `json:"id"`
	AssignmentID       int64            `json:"assignment_id"`
	UserID             int64            `json:"user_id"`
	WorkflowState      string           `json:"workflow_state"`
	SubmissionType     *string          `json:"submission_type"`
	SubmittedAt        *time.Time       `json:"submitted_at"`
	Late               bool             `json:"late"`
	Attempt            *int             `json:"attempt"`
	Grade              *string          `json:"grade"`
	Score              *float64         `json:"score"`
	Body               *string          `json:"body"`
	URL                *string          `json:"url"`
	Attachments        []attachmentJSON `json:"attachments"`
	SubmissionComments []commentJSON    `json:"submission_comments"`
	User               *userJSON        `json:"user"`
}

func (s submissionJSON) model() *model.Submission {
	out := &model.Submission{
		Base:          model.Base{ID: model.Int64(s.ID)},
		AssignmentID:  s.AssignmentID,
		UserID:        s.UserID,
		WorkflowState: s.WorkflowState,
		Type:          deref(s.SubmissionType),
		SubmittedAt:   utc(s.SubmittedAt),
		Late:          s.Late,
		Attempt:       s.Attempt,
		Grade:         deref(s.Grade),
		Score:         s.Score,
		Body:          deref(s.Body),
		URL:           deref(s.URL),
	}
	if s.User != nil {
		out.Title = s.User.Name
	}
	for _, a := range s.Attachments {
		name := a.DisplayName
		if name == "" {
			name = a.Filename
		}
		out.Attachments = append(out.Attachments, model.Attachment{
			ID:          a.ID,
			Filename:    name,
			ContentType: a.ContentType,
			URL:         a.URL,
		})
	}
	for _, c := range s.SubmissionComments {
		out.Comments = append(out.Comments, model.Comment{
			Author:    c.AuthorName,
			CreatedAt: utc(c.CreatedAt),
			Text:      c.Comment,
		})
	}
	return out
}

type participantJSON struct {
	ID          int64  `json:"id"`
	DisplayName string `json:"display_name"`
}

type entryJSON struct {
	ID        int64       `json:"id"`
	UserID    int64       `json:"user_id"`
	Message   string      `json:"message"`
	CreatedAt *time.Time  `json:"created_at"`
	Replies   []entryJSON `json:"replies"`
}

func (e entryJSON) model() model.DiscussionEntry {
	out := model.DiscussionEntry{ID: e.ID, UserID: e.UserID, Message: e.Message, CreatedAt: utc(e.CreatedAt)}
	for _, r := range e.Replies {
		out.Replies = append(out.Replies, r.model())
	}
	return out
}

type discussionViewJSON struct {
	Participants []participantJSON `json:"participants"`
	View         []entryJSON       `json:"view"`
}

func (v discussionViewJSON) model() *model.DiscussionView {
	out := &model.DiscussionView{Participants: make(map[int64]string, len(v.Participants))}
	for _, p := range v.Participants {
		out.Participants[p.ID] = p.DisplayName
	}
	for _, e := range v.View {
		out.Entries = append(out.Entries, e.model())
	}
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}
