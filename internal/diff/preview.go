package diff

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/Brehove/canvas-cli-for-codex/internal/model"
	"github.com/Brehove/canvas-cli-for-codex/internal/transcode"
	"github.com/Brehove/canvas-cli-for-codex/internal/ui"
)

// PreviewOptions control how a change set is rendered.
type PreviewOptions struct {
	// Indent prefixes every rendered line.
	Indent string
	// MaxHunks limits the body hunks shown. Zero shows all.
	MaxHunks int
}

// Preview writes a human-readable rendering of cs.
func Preview(w io.Writer, cs ChangeSet, opts PreviewOptions) error {
	if cs.Empty() {
		_, err := fmt.Fprintf(w, "%s%s\n", opts.Indent, ui.Dim("no changes"))
		return err
	}
	for _, ch := range cs.Changes {
		if err := previewChange(w, ch, opts); err != nil {
			return err
		}
	}
	if cs.Ref.Kind == model.KindRubric && !cs.Has(FieldCriteria) {
		if _, err := fmt.Fprintf(w, "%s%s\n", opts.Indent, ui.Dim("criteria: unchanged, sent in full")); err != nil {
			return err
		}
	}
	return nil
}

func previewChange(w io.Writer, ch FieldChange, opts PreviewOptions) error {
	if ch.Field != FieldBody {
		var line string
		if ch.Old == nil {
			line = fmt.Sprintf("%s%s: %s", opts.Indent, ch.Field, ui.Success(FormatValue(ch.New)))
		} else {
			line = fmt.Sprintf("%s%s: %s → %s", opts.Indent, ch.Field, ui.Error(FormatValue(ch.Old)), ui.Success(FormatValue(ch.New)))
		}
		_, err := fmt.Fprintln(w, line)
		return err
	}

	oldMD := ""
	if s, ok := ch.Old.(string); ok {
		oldMD = transcode.ToMarkdown(s)
	}
	newMD := ""
	if s, ok := ch.New.(string); ok {
		newMD = transcode.ToMarkdown(s)
	}

	hs := LineDiff(oldMD, newMD)
	added, removed := countLines(hs)
	if _, err := fmt.Fprintf(w, "%sbody: %s\n", opts.Indent, ui.Dim(fmt.Sprintf("+%d/-%d lines", added, removed))); err != nil {
		return err
	}

	shown := hs
	if opts.MaxHunks > 0 && len(shown) > opts.MaxHunks {
		shown = shown[:opts.MaxHunks]
	}
	for _, h := range shown {
		if _, err := fmt.Fprintf(w, "%s  %s\n", opts.Indent, ui.Info(h.Header())); err != nil {
			return err
		}
		for _, l := range h.Lines {
			if _, err := fmt.Fprintf(w, "%s  %s\n", opts.Indent, colorLine(l)); err != nil {
				return err
			}
		}
	}
	if len(shown) < len(hs) {
		if _, err := fmt.Fprintf(w, "%s  ... (%d more hunks not shown)\n", opts.Indent, len(hs)-len(shown)); err != nil {
			return err
		}
	}
	return nil
}

func countLines(hs []Hunk) (added, removed int) {
	for _, h := range hs {
		added += h.NewCount
		removed += h.OldCount
	}
	return added, removed
}

func colorLine(l Line) string {
	switch l.Type {
	case LineAdded:
		return ui.Success(l.String())
	case LineRemoved:
		return ui.Error(l.String())
	default:
		return l.String()
	}
}

// Summary returns a one-line description such as "2 fields: due_at, points_possible".
func Summary(cs ChangeSet) string {
	if cs.Empty() {
		return "no changes"
	}
	noun := "fields"
	if len(cs.Changes) == 1 {
		noun = "field"
	}
	return fmt.Sprintf("%d %s: %s", len(cs.Changes), noun, strings.Join(cs.Fields(), ", "))
}

// FormatValue renders a change value for display.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "(none)"
	case string:
		return strconv.Quote(x)
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.Itoa(x)
	case *int64:
		if x == nil {
			return "(none)"
		}
		return strconv.FormatInt(*x, 10)
	case *float64:
		if x == nil {
			return "(none)"
		}
		return strconv.FormatFloat(*x, 'f', -1, 64)
	case *time.Time:
		if x == nil {
			return "(none)"
		}
		return x.UTC().Format(time.RFC3339)
	case []string:
		return "[" + strings.Join(x, ", ") + "]"
	case []model.Criterion:
		parts := make([]string, 0, len(x))
		for _, c := range x {
			parts = append(parts, fmt.Sprintf("%s (%s)", c.Description, strconv.FormatFloat(c.Points, 'f', -1, 64)))
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return fmt.Sprint(v)
	}
}
