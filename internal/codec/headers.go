package codec

// Header layouts written by Decode. Field order is the on-disk key order and
// must stay stable so repeated pulls produce identical files.

type pageHeader struct {
	ID        *int64 `yaml:"canvas_id"`
	URL       string `yaml:"canvas_url,omitempty"`
	Title     string `yaml:"title"`
	Published bool   `yaml:"published"`
	Origin    string `yaml:"canvas_origin,omitempty"`
}

type assignmentHeader struct {
	ID                *int64   `yaml:"canvas_id"`
	Title             string   `yaml:"title"`
	DueAt             string   `yaml:"due_at,omitempty"`
	PointsPossible    *float64 `yaml:"points_possible,omitempty"`
	SubmissionTypes   []string `yaml:"submission_types,omitempty,flow"`
	Published         bool     `yaml:"published"`
	RubricID          *int64   `yaml:"rubric_id,omitempty"`
	DiscussionTopicID *int64   `yaml:"discussion_topic_id,omitempty"`
	Origin            string   `yaml:"canvas_origin,omitempty"`
}

type discussionHeader struct {
	ID           *int64 `yaml:"canvas_id"`
	Title        string `yaml:"title"`
	Published    bool   `yaml:"published"`
	AssignmentID *int64 `yaml:"assignment_id,omitempty"`
	Origin       string `yaml:"canvas_origin,omitempty"`
}

type rubricHeader struct {
	ID             *int64            `yaml:"canvas_id"`
	Title          string            `yaml:"title"`
	PointsPossible *float64          `yaml:"points_possible,omitempty"`
	Criteria       []criterionHeader `yaml:"criteria"`
	Origin         string            `yaml:"canvas_origin,omitempty"`
}

type criterionHeader struct {
	ID              string         `yaml:"id,omitempty"`
	Description     string         `yaml:"description"`
	LongDescription string         `yaml:"long_description,omitempty"`
	Points          float64        `yaml:"points"`
	Ratings         []ratingHeader `yaml:"ratings,omitempty"`
}

type ratingHeader struct {
	ID              string  `yaml:"id,omitempty"`
	Description     string  `yaml:"description"`
	LongDescription string  `yaml:"long_description,omitempty"`
	Points          float64 `yaml:"points"`
}

type moduleItemHeader struct {
	ID        *int64 `yaml:"canvas_id"`
	ModuleID  int64  `yaml:"module_id,omitempty"`
	Title     string `yaml:"title"`
	Type      string `yaml:"type"`
	ContentID *int64 `yaml:"content_id,omitempty"`
	PageURL   string `yaml:"page_url,omitempty"`
	Position  int    `yaml:"position,omitempty"`
	Indent    int    `yaml:"indent"`
	Published bool   `yaml:"published"`
	Origin    string `yaml:"canvas_origin,omitempty"`
}

type submissionHeader struct {
	ID            *int64             `yaml:"canvas_id"`
	AssignmentID  int64              `yaml:"assignment_id"`
	StudentID     int64              `yaml:"student_id"`
	StudentName   string             `yaml:"student_name,omitempty"`
	SubmittedAt   string             `yaml:"submitted_at,omitempty"`
	WorkflowState string             `yaml:"workflow_state,omitempty"`
	Type          string             `yaml:"submission_type,omitempty"`
	Late          bool               `yaml:"late"`
	Attempt       *int               `yaml:"attempt,omitempty"`
	Grade         string             `yaml:"grade,omitempty"`
	Score         *float64           `yaml:"score,omitempty"`
	URL           string             `yaml:"url,omitempty"`
	Attachments   []attachmentHeader `yaml:"attachments,omitempty"`
	Comments      []commentHeader    `yaml:"comments,omitempty"`
	Origin        string             `yaml:"canvas_origin,omitempty"`
}

type attachmentHeader struct {
	ID          int64  `yaml:"id"`
	Filename    string `yaml:"filename"`
	ContentType string `yaml:"content_type,omitempty"`
}

type commentHeader struct {
	Author    string `yaml:"author"`
	CreatedAt string `yaml:"created_at,omitempty"`
	Text      string `yaml:"text"`
}

type moduleHeader struct {
	ID                        int64              `yaml:"canvas_id"`
	Name                      string             `yaml:"name"`
	Position                  int                `yaml:"position"`
	UnlockAt                  string             `yaml:"unlock_at,omitempty"`
	RequireSequentialProgress bool               `yaml:"require_sequential_progress"`
	Published                 bool               `yaml:"published"`
	Items                     []moduleItemHeader `yaml:"items"`
}

type courseHeader struct {
	ID   int64  `yaml:"canvas_id"`
	Name string `yaml:"name"`
	Code string `yaml:"course_code,omitempty"`
	Term string `yaml:"term,omitempty"`
}
