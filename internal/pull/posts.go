package pull

import (
	"fmt"
	"strings"

	"github.com/Brehove/canvas-cli-for-codex/internal/codec"
	"github.com/Brehove/canvas-cli-for-codex/internal/document"
	"github.com/Brehove/canvas-cli-for-codex/internal/model"
	"github.com/Brehove/canvas-cli-for-codex/internal/transcode"
)

type postsHeader struct {
	Kind    string `yaml:"canvas_kind"`
	TopicID int64  `yaml:"topic_id"`
	Title   string `yaml:"title"`
	Posts   int    `yaml:"posts"`
}

// renderPosts writes the threaded posts of a topic as a read-only report.
// Top-level posts become sections; replies are nested block quotes.
func renderPosts(title string, topic int64, view *model.DiscussionView) (*document.Document, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s - Student Posts\n", title)
	for _, e := range view.Entries {
		fmt.Fprintf(&b, "\n## %s\n\n", author(view, e))
		if posted := postedOn(e); posted != "" {
			fmt.Fprintf(&b, "*Posted: %s*\n\n", posted)
		}
		b.WriteString(message(e))
		b.WriteString("\n")
		for _, reply := range e.Replies {
			writeReply(&b, view, reply, 1)
		}
	}

	return document.New(document.Markdown, postsHeader{
		Kind:    codec.KindDiscussionPosts,
		TopicID: topic,
		Title:   title,
		Posts:   len(view.Entries),
	}, b.String())
}

func writeReply(b *strings.Builder, view *model.DiscussionView, e model.DiscussionEntry, depth int) {
	quote := strings.Repeat(">", depth) + " "
	header := "**" + author(view, e) + "**"
	if posted := postedOn(e); posted != "" {
		header += " (" + posted + ")"
	}
	b.WriteString("\n")
	b.WriteString(quote + header + "\n")
	b.WriteString(strings.TrimRight(quote, " ") + "\n")
	for line := range strings.SplitSeq(message(e), "\n") {
		if line == "" {
			b.WriteString(strings.TrimRight(quote, " ") + "\n")
			continue
		}
		b.WriteString(quote + line + "\n")
	}
	for _, reply := range e.Replies {
		writeReply(b, view, reply, depth+1)
	}
}

func author(view *model.DiscussionView, e model.DiscussionEntry) string {
	if name, ok := view.Participants[e.UserID]; ok && name != "" {
		return name
	}
	return "Unknown"
}

func postedOn(e model.DiscussionEntry) string {
	if e.CreatedAt == nil {
		return ""
	}
	return e.CreatedAt.UTC().Format("2006-01-02")
}

func message(e model.DiscussionEntry) string {
	md := strings.TrimSpace(transcode.ToMarkdown(e.Message))
	if md == "" {
		return "(No content)"
	}
	return md
}
