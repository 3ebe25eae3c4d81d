package transcode

import (
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// extractHTMLTables replaces every top-level table in src with a placeholder
// block and returns the Markdown each placeholder stands for: a pipe table
// for plain tables, the original bytes otherwise.
func extractHTMLTables(src string) (string, []string) {
	z := html.NewTokenizer(strings.NewReader(src))

	var out, current strings.Builder
	var tables []string
	depth := 0

	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			if z.Err() != io.EOF {
				out.WriteString(string(z.Raw()))
			}
			break
		}
		raw := string(z.Raw())

		isTable := false
		if tt == html.StartTagToken || tt == html.EndTagToken {
			name, _ := z.TagName()
			isTable = string(name) == "table"
		}

		switch {
		case isTable && tt == html.StartTagToken:
			depth++
			current.WriteString(raw)
		case isTable && tt == html.EndTagToken && depth > 0:
			depth--
			current.WriteString(raw)
			if depth == 0 {
				out.WriteString("<div>" + placeholder(len(tables)) + "</div>")
				tables = append(tables, tableMarkdown(current.String()))
				current.Reset()
			}
		case depth > 0:
			current.WriteString(raw)
		default:
			out.WriteString(raw)
		}
	}

	// An unterminated table is left for the regular converter.
	if depth > 0 {
		out.WriteString(current.String())
	}
	return out.String(), tables
}

// tableMarkdown returns a pipe table when raw is a plain table, else raw.
func tableMarkdown(raw string) string {
	nodes, err := html.ParseFragment(strings.NewReader(raw), &html.Node{
		Type:     html.ElementNode,
		Data:     "body",
		DataAtom: atom.Body,
	})
	if err != nil || len(nodes) != 1 || nodes[0].DataAtom != atom.Table {
		return raw
	}

	rows, ok := plainRows(nodes[0])
	if !ok {
		return raw
	}

	var b strings.Builder
	for i, row := range rows {
		b.WriteString("|")
		for _, cell := range row {
			b.WriteString(" " + cell + " |")
		}
		b.WriteString("\n")
		if i == 0 {
			b.WriteString("|")
			for range row {
				b.WriteString(" --- |")
			}
			b.WriteString("\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// plainRows returns the rendered cells of a table that a pipe table can
// express without loss: no attributes anywhere, no caption, a single header
// row of th cells, data rows of td cells, equal widths and inline-only cells.
func plainRows(table *html.Node) ([][]string, bool) {
	if len(table.Attr) > 0 {
		return nil, false
	}

	var trs []*html.Node
	for c := table.FirstChild; c != nil; c = c.NextSibling {
		switch {
		case isBlankText(c):
		case c.Type != html.ElementNode:
			return nil, false
		case c.DataAtom == atom.Thead || c.DataAtom == atom.Tbody:
			if len(c.Attr) > 0 {
				return nil, false
			}
			for r := c.FirstChild; r != nil; r = r.NextSibling {
				if isBlankText(r) {
					continue
				}
				if r.DataAtom != atom.Tr || len(r.Attr) > 0 {
					return nil, false
				}
				trs = append(trs, r)
			}
		default:
			return nil, false
		}
	}
	if len(trs) == 0 {
		return nil, false
	}

	var rows [][]string
	for i, tr := range trs {
		want := atom.Td
		if i == 0 {
			want = atom.Th
		}
		var row []string
		for cell := tr.FirstChild; cell != nil; cell = cell.NextSibling {
			if isBlankText(cell) {
				continue
			}
			if cell.DataAtom != want || len(cell.Attr) > 0 || hasBlockContent(cell) {
				return nil, false
			}
			text := cleanInline(inlineChildren(cell))
			text = strings.ReplaceAll(text, "|", `\|`)
			row = append(row, text)
		}
		if len(row) == 0 || (len(rows) > 0 && len(row) != len(rows[0])) {
			return nil, false
		}
		rows = append(rows, row)
	}
	return rows, true
}

func hasBlockContent(n *html.Node) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && (isBlock(c) || c.DataAtom == atom.Br) {
			return true
		}
		if hasBlockContent(c) {
			return true
		}
	}
	return false
}

func isBlankText(n *html.Node) bool {
	return n.Type == html.TextNode && strings.TrimSpace(n.Data) == "" ||
		n.Type == html.CommentNode
}

// extractMarkdownTables lifts embedded HTML tables out of Markdown so the
// renderer never sees them. A table starts on a line whose content after any
// list or quote prefix begins with "<table", outside fenced code, and ends on
// the line that balances it. Continuation lines carry the same container
// prefix, which is removed from the lifted table.
func extractMarkdownTables(src string) (string, []string) {
	lines := strings.Split(src, "\n")

	var out []string
	var tables []string
	fence := ""

	for i := 0; i < len(lines); i++ {
		line := lines[i]
		prefix := containerPrefix(line)
		rest := line[len(prefix):]

		if marker := fenceMarker(rest); marker != "" {
			switch {
			case fence == "":
				fence = marker
			case strings.HasPrefix(strings.TrimSpace(rest), fence):
				fence = ""
			}
			out = append(out, line)
			continue
		}
		if fence != "" || !strings.HasPrefix(strings.ToLower(rest), "<table") {
			out = append(out, line)
			continue
		}

		cont := continuation(prefix)
		body := []string{rest}
		depth := tableDepth(rest)
		end := i
		for depth > 0 && end+1 < len(lines) {
			end++
			l := unindent(lines[end], cont)
			body = append(body, l)
			depth += tableDepth(l)
		}
		if depth > 0 {
			out = append(out, line)
			continue
		}

		// The placeholder must stand alone as a paragraph of its container.
		blank := strings.TrimRight(cont, " ")
		if cont == prefix && len(out) > 0 && !isBlankLine(out[len(out)-1]) {
			out = append(out, blank)
		}
		out = append(out, prefix+placeholder(len(tables)))
		if end+1 < len(lines) && !isBlankLine(lines[end+1]) && !startsListItem(lines[end+1]) {
			out = append(out, blank)
		}
		tables = append(tables, strings.Join(body, "\n"))
		i = end
	}
	return strings.Join(out, "\n"), tables
}

func tableDepth(line string) int {
	lower := strings.ToLower(line)
	return strings.Count(lower, "<table") - strings.Count(lower, "</table>")
}

// containerPrefix returns the leading block quote markers, list markers and
// indentation of a Markdown line.
func containerPrefix(line string) string {
	i := 0
	for i < len(line) {
		c := line[i]
		switch {
		case c == ' ' || c == '>':
			i++
		case (c == '-' || c == '*' || c == '+') && i+1 < len(line) && line[i+1] == ' ':
			i += 2
		case c >= '0' && c <= '9':
			j := i
			for j < len(line) && j-i < 9 && line[j] >= '0' && line[j] <= '9' {
				j++
			}
			if j+1 >= len(line) || (line[j] != '.' && line[j] != ')') || line[j+1] != ' ' {
				return line[:i]
			}
			i = j + 2
		default:
			return line[:i]
		}
	}
	return line[:i]
}

// continuation turns the prefix of a container's first line into the prefix
// of its following lines: quote markers stay, list markers become spaces.
func continuation(prefix string) string {
	b := []byte(prefix)
	for i, c := range b {
		if c != '>' {
			b[i] = ' '
		}
	}
	return string(b)
}

// indentLines prefixes every line of s after the first.
func indentLines(s, prefix string) string {
	if prefix == "" {
		return s
	}
	lines := strings.Split(s, "\n")
	blank := strings.TrimRight(prefix, " ")
	for i := 1; i < len(lines); i++ {
		if lines[i] == "" {
			lines[i] = blank
		} else {
			lines[i] = prefix + lines[i]
		}
	}
	return strings.Join(lines, "\n")
}

func unindent(line, prefix string) string {
	switch {
	case prefix == "":
		return line
	case strings.HasPrefix(line, prefix):
		return line[len(prefix):]
	case line == strings.TrimRight(prefix, " "):
		return ""
	}
	return line
}

func isBlankLine(line string) bool {
	return strings.Trim(line, " >") == ""
}

func startsListItem(line string) bool {
	p := containerPrefix(line)
	return continuation(p) != p
}

func fenceMarker(line string) string {
	trimmed := strings.TrimLeft(line, " ")
	if len(line)-len(trimmed) > 3 {
		return ""
	}
	for _, m := range []string{"```", "~~~"} {
		if strings.HasPrefix(trimmed, m) {
			n := len(trimmed) - len(strings.TrimLeft(trimmed, m[:1]))
			return strings.Repeat(m[:1], n)
		}
	}
	return ""
}
