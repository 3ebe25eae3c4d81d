// Package route decides where a course lives on disk and how resource names
// become file names. Everything here is a pure function of its inputs.
package route

import (
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// DefaultFolder is used when no default is configured.
const DefaultFolder = "courses"

// Rule maps a course code prefix to a folder.
type Rule struct {
	Prefix string
	Folder string
}

// Router maps courses to folders. It is immutable after New.
type Router struct {
	rules         []Rule
	defaultFolder string
}

// New builds a router from a prefix → folder table. Longer prefixes are
// tried first; ties break alphabetically so routing never depends on map order.
func New(folders map[string]string, defaultFolder string) *Router {
	rules := make([]Rule, 0, len(folders))
	for prefix, folder := range folders {
		prefix = strings.TrimSpace(prefix)
		if prefix == "" || folder == "" {
			continue
		}
		rules = append(rules, Rule{Prefix: prefix, Folder: folder})
	}
	sort.Slice(rules, func(i, j int) bool {
		if len(rules[i].Prefix) != len(rules[j].Prefix) {
			return len(rules[i].Prefix) > len(rules[j].Prefix)
		}
		return rules[i].Prefix < rules[j].Prefix
	})
	if defaultFolder == "" {
		defaultFolder = DefaultFolder
	}
	return &Router{rules: rules, defaultFolder: defaultFolder}
}

// Rules returns the rules in match order.
func (r *Router) Rules() []Rule {
	return append([]Rule(nil), r.rules...)
}

// DefaultFolder returns the folder used when no rule matches.
func (r *Router) DefaultFolder() string {
	return r.defaultFolder
}

// FolderFor returns the folder of the longest prefix found as a whole token
// in the course code or name, or the default folder.
func (r *Router) FolderFor(courseCode, courseName string) string {
	text := strings.ToUpper(courseCode + " " + courseName)
	for _, rule := range r.rules {
		if containsToken(text, strings.ToUpper(rule.Prefix)) {
			return rule.Folder
		}
	}
	return r.defaultFolder
}

// Route returns the course folder relative to the configuration root.
func (r *Router) Route(courseCode, courseName string) string {
	return filepath.Join(r.FolderFor(courseCode, courseName), CourseSubfolder(courseName))
}

// containsToken reports whether token occurs in text bounded by
// non-alphanumeric characters or the ends of text.
func containsToken(text, token string) bool {
	for start := 0; start <= len(text)-len(token); {
		i := strings.Index(text[start:], token)
		if i < 0 {
			return false
		}
		i += start
		end := i + len(token)
		before, _ := utf8.DecodeLastRuneInString(text[:i])
		after, _ := utf8.DecodeRuneInString(text[end:])
		if (i == 0 || !isAlnum(before)) && (end == len(text) || !isAlnum(after)) {
			return true
		}
		start = i + 1
	}
	return false
}

func isAlnum(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

var courseInfo = regexp.MustCompile(`^(\d{4})([A-Za-z]{2})-([A-Za-z]+)-(\d+)`)

// CourseInfo holds the parts of a standardized course name such as
// "2026SP-PHIL-123-001H-16W: AI and Ethics".
type CourseInfo struct {
	// Semester is the term code followed by the two-digit year, e.g. SP26.
	Semester string
	// Code is the subject and number, e.g. PHIL-123.
	Code string
}

// ParseCourseInfo extracts the term and course code from a standardized name.
func ParseCourseInfo(name string) (CourseInfo, bool) {
	m := courseInfo.FindStringSubmatch(strings.TrimSpace(name))
	if m == nil {
		return CourseInfo{}, false
	}
	return CourseInfo{
		Semester: strings.ToUpper(m[2]) + m[1][2:],
		Code:     strings.ToUpper(m[3]) + "-" + m[4],
	}, true
}

// CourseSubfolder derives the folder name of a course from its name. The
// same name always yields the same folder.
func CourseSubfolder(name string) string {
	if info, ok := ParseCourseInfo(name); ok {
		return info.Semester + "-" + info.Code + "-codex-course"
	}
	slug := strings.ToLower(Slugify(name))
	if slug == "" {
		return "codex-course"
	}
	return slug + "-codex-course"
}

var (
	unsafeChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)
	whitespace  = regexp.MustCompile(`\s+`)
	dashes      = regexp.MustCompile(`-+`)
)

// maxSlug bounds file name length in runes.
const maxSlug = 100

// Slugify turns a resource title into a file name stem.
func Slugify(text string) string {
	text = norm.NFC.String(text)
	text = unsafeChars.ReplaceAllString(text, "")
	text = whitespace.ReplaceAllString(strings.TrimSpace(text), "-")
	text = dashes.ReplaceAllString(text, "-")
	text = strings.Trim(text, "-.")
	if utf8.RuneCountInString(text) > maxSlug {
		text = strings.TrimRight(string([]rune(text)[:maxSlug]), "-.")
	}
	return text
}

// MatchesName reports whether search occurs in target as a whole term:
// "1.5" matches "1.5 Assignment" but not "11.5 Assignment", and "Module 1"
// matches "Module 1 - Intro" but not "Module 10".
func MatchesName(search, target string) bool {
	fold := cases.Fold()
	s := fold.String(strings.TrimSpace(search))
	t := fold.String(target)
	if s == "" {
		return false
	}

	first, _ := utf8.DecodeRuneInString(s)
	last, _ := utf8.DecodeLastRuneInString(s)

	for start := 0; start <= len(t)-len(s); {
		i := strings.Index(t[start:], s)
		if i < 0 {
			return false
		}
		i += start
		end := i + len(s)

		var before, after rune
		if i > 0 {
			before, _ = utf8.DecodeLastRuneInString(t[:i])
		}
		if end < len(t) {
			after, _ = utf8.DecodeRuneInString(t[end:])
		}

		if separated(before) && separated(after) {
			return true
		}
		if wordBoundary(before, first) && wordBoundary(last, after) {
			return true
		}
		start = i + 1
	}
	return false
}

// separated reports whether r may sit next to a match: string edge,
// whitespace, or punctuation other than a dot.
func separated(r rune) bool {
	return r == 0 || unicode.IsSpace(r) || (!isWord(r) && r != '.')
}

// wordBoundary reports a regexp-style \b between a and b, where 0 is an edge.
func wordBoundary(a, b rune) bool {
	return isWord(a) != isWord(b)
}

func isWord(r rune) bool {
	return r != 0 && (r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r))
}
