package transcode

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var (
	spaceRun    = regexp.MustCompile(`[ \t\n\r\f]+`)
	entityLike  = regexp.MustCompile(`&(#?[0-9A-Za-z]+;)`)
	orderedLike = regexp.MustCompile(`^(\d+)([.)])`)
	blankRun    = regexp.MustCompile(`\n\s*\n`)
)

// convert renders an HTML fragment (tables already removed) as Markdown.
func convert(src string) string {
	nodes, err := html.ParseFragment(strings.NewReader(src), &html.Node{
		Type:     html.ElementNode,
		Data:     "body",
		DataAtom: atom.Body,
	})
	if err != nil {
		return src
	}
	root := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	for _, n := range nodes {
		root.AppendChild(n)
	}
	return strings.Join(blocks(root), "\n\n")
}

func isBlock(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	switch n.DataAtom {
	case atom.P, atom.Div, atom.Section, atom.Article, atom.Header, atom.Footer,
		atom.Main, atom.Aside, atom.Nav, atom.Figure, atom.Figcaption, atom.Details, atom.Summary,
		atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6,
		atom.Ul, atom.Ol, atom.Li, atom.Dl, atom.Dt, atom.Dd,
		atom.Blockquote, atom.Pre, atom.Hr, atom.Table, atom.Address, atom.Center,
		atom.Iframe, atom.Video, atom.Audio, atom.Object, atom.Embed:
		return true
	}
	return false
}

// blocks renders the children of n as a sequence of Markdown blocks.
func blocks(n *html.Node) []string {
	var out []string
	var inline strings.Builder

	flush := func() {
		if text := cleanInline(inline.String()); text != "" {
			out = append(out, escapeLineStarts(text))
		}
		inline.Reset()
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if !isBlock(c) {
			inline.WriteString(inlineNode(c))
			continue
		}
		flush()
		out = append(out, block(c)...)
	}
	flush()
	return out
}

func block(n *html.Node) []string {
	switch n.DataAtom {
	case atom.P, atom.Dt, atom.Dd, atom.Summary, atom.Figcaption:
		if n.DataAtom == atom.P && attr(n, "class") != "" {
			return rawBlock(n)
		}
		text := cleanInline(inlineChildren(n))
		if text == "" {
			return nil
		}
		return []string{escapeLineStarts(text)}

	case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
		level := int(n.Data[1] - '0')
		text := cleanInline(inlineChildren(n))
		text = strings.ReplaceAll(text, "\\\n", " ")
		if text == "" {
			return nil
		}
		return []string{strings.Repeat("#", level) + " " + text}

	case atom.Ul:
		return []string{list(n, false)}
	case atom.Ol:
		return []string{list(n, true)}
	case atom.Li:
		return []string{listItem(n, "- ")}

	case atom.Blockquote:
		inner := strings.Join(blocks(n), "\n\n")
		if inner == "" {
			return nil
		}
		lines := strings.Split(inner, "\n")
		for i, l := range lines {
			if l == "" {
				lines[i] = ">"
			} else {
				lines[i] = "> " + l
			}
		}
		return []string{strings.Join(lines, "\n")}

	case atom.Pre:
		return []string{codeBlock(n)}

	case atom.Hr:
		return []string{"---"}

	case atom.Iframe, atom.Video, atom.Audio, atom.Object, atom.Embed:
		return rawBlock(n)

	default:
		return blocks(n)
	}
}

// rawBlock renders n as an HTML block. Blank lines would end the block early,
// so whitespace runs holding them collapse to one newline.
func rawBlock(n *html.Node) []string {
	var b strings.Builder
	if err := html.Render(&b, n); err != nil {
		return nil
	}
	return []string{blankRun.ReplaceAllString(b.String(), "\n")}
}

func list(n *html.Node, ordered bool) string {
	number := 1
	if ordered {
		if v, err := strconv.Atoi(attr(n, "start")); err == nil {
			number = v
		}
	}

	var items []string
	for li := n.FirstChild; li != nil; li = li.NextSibling {
		if li.Type != html.ElementNode || li.DataAtom != atom.Li {
			continue
		}

		marker := "- "
		if ordered {
			marker = fmt.Sprintf("%d. ", number)
			number++
		}
		items = append(items, listItem(li, marker))
	}
	return strings.Join(items, "\n")
}

func listItem(li *html.Node, marker string) string {
	parts := blocks(li)
	var body strings.Builder
	for i, part := range parts {
		if i > 0 {
			if isListBlock(part) {
				body.WriteString("\n")
			} else {
				body.WriteString("\n\n")
			}
		}
		body.WriteString(part)
	}

	indent := strings.Repeat(" ", len(marker))
	lines := strings.Split(body.String(), "\n")
	for i, l := range lines {
		switch {
		case i == 0:
			lines[i] = strings.TrimRight(marker+l, " ")
		case l != "":
			lines[i] = indent + l
		}
	}
	return strings.Join(lines, "\n")
}

func isListBlock(s string) bool {
	return strings.HasPrefix(s, "- ") || s == "-" || orderedMarker(s)
}

func orderedMarker(s string) bool {
	m := orderedLike.FindStringSubmatch(s)
	return m != nil && m[2] == "." && (len(s) == len(m[0]) || s[len(m[0])] == ' ')
}

func codeBlock(n *html.Node) string {
	lang := ""
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == atom.Code {
			for _, class := range strings.Fields(attr(c, "class")) {
				if after, ok := strings.CutPrefix(class, "language-"); ok {
					lang = after
				}
			}
		}
	}

	code := strings.TrimRight(textContent(n), "\n")
	fence := "```"
	for strings.Contains(code, fence) {
		fence += "`"
	}
	return fence + lang + "\n" + code + "\n" + fence
}

func inlineChildren(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(inlineNode(c))
	}
	return b.String()
}

func inlineNode(n *html.Node) string {
	switch n.Type {
	case html.TextNode:
		return escapeText(spaceRun.ReplaceAllString(n.Data, " "))
	case html.ElementNode:
	default:
		return ""
	}

	switch n.DataAtom {
	case atom.Strong, atom.B:
		return wrap("**", inlineChildren(n))
	case atom.Em, atom.I:
		return wrap("*", inlineChildren(n))
	case atom.Del, atom.S, atom.Strike:
		return wrap("~~", inlineChildren(n))
	case atom.Code, atom.Kbd, atom.Samp, atom.Tt:
		return codeSpan(textContent(n))
	case atom.Br:
		return "\\\n"
	case atom.A:
		return link(n)
	case atom.Img:
		return image(n)
	case atom.Script, atom.Style, atom.Template:
		return ""
	default:
		return inlineChildren(n)
	}
}

func wrap(delim, inner string) string {
	trimmed := strings.TrimSpace(inner)
	if trimmed == "" {
		return inner
	}
	lead := inner[:len(inner)-len(strings.TrimLeft(inner, " "))]
	trail := inner[len(strings.TrimRight(inner, " ")):]
	return lead + delim + trimmed + delim + trail
}

func codeSpan(code string) string {
	code = spaceRun.ReplaceAllString(code, " ")
	if code == "" {
		return ""
	}
	fence := "`"
	for strings.Contains(code, fence) {
		fence += "`"
	}
	if strings.HasPrefix(code, "`") || strings.HasSuffix(code, "`") {
		code = " " + code + " "
	}
	return fence + code + fence
}

func link(n *html.Node) string {
	href := attr(n, "href")
	text := strings.TrimSpace(inlineChildren(n))
	if href == "" {
		return text
	}
	if text == href && (strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://")) {
		return "<" + href + ">"
	}
	return "[" + text + "](" + destination(href) + title(n) + ")"
}

func image(n *html.Node) string {
	src := attr(n, "src")
	if src == "" {
		return ""
	}
	alt := escapeText(attr(n, "alt"))
	return "![" + alt + "](" + destination(src) + title(n) + ")"
}

func destination(url string) string {
	if strings.ContainsAny(url, " ()<>") {
		return "<" + strings.NewReplacer("<", "%3C", ">", "%3E").Replace(url) + ">"
	}
	return url
}

func title(n *html.Node) string {
	t := attr(n, "title")
	if t == "" {
		return ""
	}
	return ` "` + strings.ReplaceAll(t, `"`, `\"`) + `"`
}

var textEscaper = strings.NewReplacer(
	`\`, `\\`,
	"*", `\*`,
	"_", `\_`,
	"`", "\\`",
	"[", `\[`,
	"]", `\]`,
	"<", `\<`,
	"~", `\~`,
)

func escapeText(s string) string {
	s = textEscaper.Replace(s)
	return entityLike.ReplaceAllString(s, `\&$1`)
}

// escapeLineStarts keeps paragraph lines from being read as headings, list
// items, quotes or rules.
func escapeLineStarts(text string) string {
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		if l == "" {
			continue
		}
		switch l[0] {
		case '#', '-', '+', '=', '>', '|':
			lines[i] = `\` + l
			continue
		}
		if m := orderedLike.FindStringSubmatch(l); m != nil {
			lines[i] = m[1] + `\` + l[len(m[1]):]
		}
	}
	return strings.Join(lines, "\n")
}

// cleanInline collapses the whitespace left by adjacent inline nodes and
// drops hard breaks at paragraph edges.
func cleanInline(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, l := range lines {
		l = strings.TrimSpace(spaceRun.ReplaceAllString(l, " "))
		if l == "" || l == `\` {
			continue
		}
		out = append(out, l)
	}
	if len(out) == 0 {
		return ""
	}
	last := len(out) - 1
	if strings.HasSuffix(out[last], `\`) && !strings.HasSuffix(out[last], `\\`) {
		out[last] = strings.TrimRight(strings.TrimSuffix(out[last], `\`), " ")
	}
	return strings.Join(out, "\n")
}

func textContent(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == atom.Br {
			b.WriteString("\n")
			continue
		}
		b.WriteString(textContent(c))
	}
	return b.String()
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
