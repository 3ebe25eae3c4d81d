package tui

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Brehove/canvas-cli-for-codex/internal/model"
)

// CoursePickerAction represents the action to perform after course selection.
type CoursePickerAction int

const (
	// CoursePickerActionNone means the user quit without choosing.
	CoursePickerActionNone CoursePickerAction = iota
	// CoursePickerActionSelect means the user chose a course.
	CoursePickerActionSelect
)

// CoursePickerResult contains the result of the course picker interaction.
type CoursePickerResult struct {
	Action CoursePickerAction
	Course model.Course
}

type coursePickerKeyMap struct {
	Select   key.Binding
	Filter   key.Binding
	ClearFlt key.Binding
	Help     key.Binding
	Quit     key.Binding
}

func defaultCoursePickerKeyMap() coursePickerKeyMap {
	return coursePickerKeyMap{
		Select: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "select"),
		),
		Filter: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "filter"),
		),
		ClearFlt: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "clear filter"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// CoursePickerModel is the BubbleTea model that asks the user to choose
// one of several courses matching a search.
type CoursePickerModel struct {
	title     string
	courses   []model.Course
	filtered  []model.Course
	table     table.Model
	keys      coursePickerKeyMap
	filter    string
	filtering bool
	showHelp  bool
	result    CoursePickerResult
	width     int
	quitting  bool
}

const (
	idColumnWidth   = 8
	codeColumnWidth = 14
	termColumnWidth = 14
	nameColumnWidth = 48
)

// NewCoursePickerModel creates a picker over courses. The title names what
// the user searched for.
func NewCoursePickerModel(title string, courses []model.Course) CoursePickerModel {
	columns := []table.Column{
		{Title: "ID", Width: idColumnWidth},
		{Title: "Code", Width: codeColumnWidth},
		{Title: "Name", Width: nameColumnWidth},
		{Title: "Term", Width: termColumnWidth},
	}

	height := min(max(len(courses), 1), 15)
	t := table.New(
		table.WithColumns(columns),
		table.WithRows(courseRows(courses)),
		table.WithFocused(true),
		table.WithHeight(height),
	)
	s := table.DefaultStyles()
	s.Selected = Styles.Selected
	t.SetStyles(s)

	return CoursePickerModel{
		title:    title,
		courses:  courses,
		filtered: courses,
		table:    t,
		keys:     defaultCoursePickerKeyMap(),
	}
}

func courseRows(courses []model.Course) []table.Row {
	rows := make([]table.Row, 0, len(courses))
	for _, c := range courses {
		rows = append(rows, table.Row{
			strconv.FormatInt(c.ID, 10),
			clip(c.Code, codeColumnWidth),
			clip(c.Name, nameColumnWidth),
			clip(c.Term, termColumnWidth),
		})
	}
	return rows
}

// Init implements tea.Model.
func (m CoursePickerModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m CoursePickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		if m.filtering {
			switch msg.String() {
			case "enter":
				m.filtering = false
			case "esc":
				m.filter = ""
				m.filtering = false
				m.applyFilter()
			case "backspace":
				if len(m.filter) > 0 {
					m.filter = m.filter[:len(m.filter)-1]
					m.applyFilter()
				}
			default:
				if len(msg.String()) == 1 {
					m.filter += msg.String()
					m.applyFilter()
				}
			}
			return m, nil
		}

		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit

		case key.Matches(msg, m.keys.Help):
			m.showHelp = !m.showHelp
			return m, nil

		case key.Matches(msg, m.keys.Filter):
			m.filtering = true
			return m, nil

		case key.Matches(msg, m.keys.ClearFlt):
			m.filter = ""
			m.applyFilter()
			return m, nil

		case key.Matches(msg, m.keys.Select):
			if c, ok := m.current(); ok {
				m.result = CoursePickerResult{Action: CoursePickerActionSelect, Course: c}
				m.quitting = true
				return m, tea.Quit
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m *CoursePickerModel) applyFilter() {
	if m.filter == "" {
		m.filtered = m.courses
	} else {
		needle := strings.ToLower(m.filter)
		var filtered []model.Course
		for _, c := range m.courses {
			if strings.Contains(strings.ToLower(c.Name), needle) ||
				strings.Contains(strings.ToLower(c.Code), needle) ||
				strings.Contains(strconv.FormatInt(c.ID, 10), needle) {
				filtered = append(filtered, c)
			}
		}
		m.filtered = filtered
	}
	m.table.SetRows(courseRows(m.filtered))
	m.table.SetCursor(0)
}

func (m CoursePickerModel) current() (model.Course, bool) {
	cursor := m.table.Cursor()
	if cursor < 0 || cursor >= len(m.filtered) {
		return model.Course{}, false
	}
	return m.filtered[cursor], true
}

// View implements tea.Model.
func (m CoursePickerModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(Styles.Title.Render(m.title))
	b.WriteString("\n\n")

	if len(m.filtered) == 0 {
		b.WriteString(Styles.Status.Render("No courses match the filter"))
		b.WriteString("\n")
	} else {
		b.WriteString(m.table.View())
		b.WriteString("\n")
		if c, ok := m.current(); ok && utf8.RuneCountInString(c.Name) > nameColumnWidth {
			width := m.width
			if width == 0 {
				width = 80
			}
			b.WriteString(Styles.Detail.Render(nameDetail(c.Name, width-2)))
			b.WriteString("\n")
		}
	}

	status := fmt.Sprintf("%d of %d courses", len(m.filtered), len(m.courses))
	if m.filtering {
		status = "Filter: " + m.filter + "_"
	} else if m.filter != "" {
		status += fmt.Sprintf(" (filter: %q)", m.filter)
	}
	b.WriteString(Styles.Status.Render(status))
	b.WriteString("\n")

	if m.showHelp {
		b.WriteString("\n")
		b.WriteString(m.renderFullHelp())
	} else {
		b.WriteString(m.renderShortHelp())
	}
	return b.String()
}

func (m CoursePickerModel) renderShortHelp() string {
	keys := []string{"↑/↓ navigate", "enter select", "/ filter", "? help", "q quit"}
	return Styles.Help.Render(strings.Join(keys, " • "))
}

func (m CoursePickerModel) renderFullHelp() string {
	help := `Navigation:
  ↑/k      Move up
  ↓/j      Move down

Actions:
  Enter    Use the highlighted course
  /        Filter by name, code or id
  Esc      Clear the filter

General:
  ?        Toggle full help
  q        Quit without choosing`
	return Styles.Help.Render(help)
}

// Result returns the result of the user interaction.
func (m CoursePickerModel) Result() CoursePickerResult {
	return m.result
}

// RunCoursePicker asks the user to choose one of courses.
func RunCoursePicker(title string, courses []model.Course) (CoursePickerResult, error) {
	finalModel, err := Run(NewCoursePickerModel(title, courses))
	if err != nil {
		return CoursePickerResult{}, err
	}
	if m, ok := finalModel.(CoursePickerModel); ok {
		return m.Result(), nil
	}
	return CoursePickerResult{}, nil
}

// clip shortens s to width runes, ending in an ellipsis when there is room.
func clip(s string, width int) string {
	r := []rune(s)
	switch {
	case width <= 0:
		return ""
	case len(r) <= width:
		return s
	case width <= 3:
		return string(r[:width])
	}
	return string(r[:width-3]) + "..."
}

// nameDetail wraps a course name to width under a "Name: " label.
func nameDetail(name string, width int) string {
	const label = "Name: "
	avail := width - len(label)

	var b strings.Builder
	b.WriteString(label)
	n := 0
	for i, word := range strings.Fields(name) {
		w := utf8.RuneCountInString(word)
		switch {
		case i == 0:
		case avail > 0 && n+1+w > avail:
			b.WriteString("\n")
			b.WriteString(strings.Repeat(" ", len(label)))
			n = 0
		default:
			b.WriteByte(' ')
			n++
		}
		b.WriteString(word)
		n += w
	}
	return b.String()
}
