package transcode

import (
	"strings"
	"testing"
)

func TestToMarkdown(t *testing.T) {
	tests := map[string]struct {
		html string
		want string
	}{
		"empty": {
			html: "  \n",
			want: "",
		},
		"heading with emphasis": {
			html: "<h2>Week <em>One</em></h2>",
			want: "## Week *One*",
		},
		"paragraph with link": {
			html: `<p>See <a href="https://example.com/syllabus">the syllabus</a> for details.</p>`,
			want: "See [the syllabus](https://example.com/syllabus) for details.",
		},
		"bare link": {
			html: `<p><a href="https://example.com">https://example.com</a></p>`,
			want: "<https://example.com>",
		},
		"strong and em": {
			html: "<p><strong>Bold</strong> and <em>italic</em></p>",
			want: "**Bold** and *italic*",
		},
		"nested unordered list": {
			html: "<ul><li>One<ul><li>Sub</li></ul></li><li>Two</li></ul>",
			want: "- One\n  - Sub\n- Two",
		},
		"ordered list with start": {
			html: `<ol start="3"><li>Third</li><li>Fourth</li></ol>`,
			want: "3. Third\n4. Fourth",
		},
		"paragraphs separated by blank line": {
			html: "<p>First</p>\n\n<p>Second</p>",
			want: "First\n\nSecond",
		},
		"markdown characters escaped": {
			html: "<p>Use 2*3 and snake_case</p>",
			want: `Use 2\*3 and snake\_case`,
		},
		"line start escaped": {
			html: "<p># not a heading</p><p>1. not a list</p>",
			want: "\\# not a heading\n\n1\\. not a list",
		},
		"hard break": {
			html: "<p>Line one<br>Line two<br></p>",
			want: "Line one\\\nLine two",
		},
		"code block with language": {
			html: "<pre><code class=\"language-go\">fmt.Println(\"hi\")\n</code></pre>",
			want: "```go\nfmt.Println(\"hi\")\n```",
		},
		"inline code": {
			html: "<p>Run <code>go test</code> now</p>",
			want: "Run `go test` now",
		},
		"blockquote": {
			html: "<blockquote><p>Quoted</p><p>Twice</p></blockquote>",
			want: "> Quoted\n>\n> Twice",
		},
		"image": {
			html: `<p><img src="https://example.com/a.png" alt="Diagram"></p>`,
			want: "![Diagram](https://example.com/a.png)",
		},
		"entities stay literal": {
			html: "<p>AT&amp;T &amp;copy;</p>",
			want: `AT&T \&copy;`,
		},
		"spans and divs unwrap": {
			html: `<div><span style="color: red">Red</span> text</div>`,
			want: "Red text",
		},
		"script dropped": {
			html: "<p>Keep</p><script>alert(1)</script>",
			want: "Keep",
		},
		"horizontal rule": {
			html: "<p>Above</p><hr><p>Below</p>",
			want: "Above\n\n---\n\nBelow",
		},
		"plain table becomes pipe table": {
			html: "<table><thead><tr><th>Name</th><th>Points</th></tr></thead><tbody><tr><td>Quiz | 1</td><td>10</td></tr></tbody></table>",
			want: "| Name | Points |\n| --- | --- |\n| Quiz \\| 1 | 10 |",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			if got := ToMarkdown(tt.html); got != tt.want {
				t.Errorf("ToMarkdown() =\n%q\nwant\n%q", got, tt.want)
			}
		})
	}
}

func TestToHTML(t *testing.T) {
	tests := map[string]struct {
		md       string
		contains []string
		absent   []string
	}{
		"heading": {
			md:       "## Week *One*",
			contains: []string{"<h2>Week <em>One</em></h2>"},
		},
		"escapes restored": {
			md:       `Use 2\*3 and snake\_case`,
			contains: []string{"<p>Use 2*3 and snake_case</p>"},
		},
		"nested list": {
			md:       "- One\n  - Sub\n- Two",
			contains: []string{"<li>Sub</li>", "<li>Two</li>"},
		},
		"pipe table": {
			md:       "| Name | Points |\n| --- | --- |\n| Quiz | 10 |",
			contains: []string{"<th>Name</th>", "<td>Quiz</td>"},
		},
		"table inside code fence is code": {
			md:       "```\n<table>\n```",
			contains: []string{"&lt;table&gt;"},
			absent:   []string{"CANVASTABLE"},
		},
		"raw iframe passes through": {
			md:       `<iframe src="https://example.com/embed"></iframe>`,
			contains: []string{`<iframe src="https://example.com/embed"></iframe>`},
		},
		"strikethrough": {
			md:       "~~old~~",
			contains: []string{"<del>old</del>"},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got := ToHTML(tt.md)
			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Errorf("ToHTML() = %q, missing %q", got, want)
				}
			}
			for _, unwanted := range tt.absent {
				if strings.Contains(got, unwanted) {
					t.Errorf("ToHTML() = %q, should not contain %q", got, unwanted)
				}
			}
		})
	}
}

func TestAccessibleTableRoundTrip(t *testing.T) {
	table := `<table class="ic-Table"><caption>Grading scale</caption>` +
		`<thead><tr><th scope="col">Grade</th><th scope="col">Range</th></tr></thead>` +
		`<tbody><tr><th scope="row">A</th><td>90&ndash;100</td></tr></tbody></table>`
	src := "<p>Grades</p>" + table

	md := ToMarkdown(src)
	if !strings.Contains(md, table) {
		t.Fatalf("table not embedded verbatim:\n%s", md)
	}

	got := ToHTML(md)
	want := "<p>Grades</p>\n" + table
	if got != want {
		t.Errorf("ToHTML(ToMarkdown()) =\n%q\nwant\n%q", got, want)
	}
}

func TestMultilineTableRoundTrip(t *testing.T) {
	table := "<table>\n<caption>Due dates</caption>\n\n" +
		"<tr>\n  <th scope=\"row\">Week 1</th>\n  <td>Jan 5</td>\n</tr>\n</table>"

	md := ToMarkdown(table)
	if md != table {
		t.Fatalf("ToMarkdown() = %q, want verbatim table", md)
	}
	if got := ToHTML(md); got != table {
		t.Errorf("ToHTML() = %q, want %q", got, table)
	}
}

func TestTablesKeptVerbatim(t *testing.T) {
	tests := map[string]string{
		"colspan":       `<table><tr><th colspan="2">Both</th></tr><tr><td>a</td><td>b</td></tr></table>`,
		"no header row": `<table><tr><td>a</td><td>b</td></tr></table>`,
		"block in cell": `<table><tr><th>H</th></tr><tr><td><p>para</p></td></tr></table>`,
		"nested table":  `<table><tr><th>H</th></tr><tr><td><table><tr><td>x</td></tr></table></td></tr></table>`,
		"uneven rows":   `<table><tr><th>A</th><th>B</th></tr><tr><td>1</td></tr></table>`,
	}

	for name, table := range tests {
		t.Run(name, func(t *testing.T) {
			md := ToMarkdown(table)
			if md != table {
				t.Fatalf("ToMarkdown() = %q, want verbatim", md)
			}
			if got := ToHTML(md); got != table {
				t.Errorf("ToHTML() = %q, want %q", got, table)
			}
		})
	}
}

func TestStructurePreservedThroughRoundTrip(t *testing.T) {
	src := "<h3>Overview</h3><ol><li>Read<ul><li>Chapter 1</li></ul></li></ol>"
	got := ToHTML(ToMarkdown(src))

	for _, want := range []string{"<h3>Overview</h3>", "<ol>", "<ul>", "<li>Chapter 1</li>"} {
		if !strings.Contains(got, want) {
			t.Errorf("round trip lost %q: %s", want, got)
		}
	}
	if strings.Index(got, "<ul>") < strings.Index(got, "<ol>") {
		t.Errorf("list nesting changed: %s", got)
	}
}

func TestNormalizeIsStableForPulledContent(t *testing.T) {
	remote := `<p>Intro with <strong>bold</strong></p><ul><li>a</li><li>b</li></ul>`
	local := ToMarkdown(remote)

	if Normalize(remote) != ToHTML(local) {
		t.Errorf("Normalize(remote) should equal ToHTML of the pulled markdown")
	}
}

func TestNestedTableRoundTrip(t *testing.T) {
	table := "<table><caption>C</caption><tr><th scope=\"col\">H</th></tr>\n\n<tr><td>x</td></tr></table>"
	tests := map[string]struct {
		html     string
		wantMD   string
		closing  string
		siblings []string
	}{
		"inside list item": {
			html:     "<ul><li>Intro" + table + "</li><li>two</li></ul>",
			wantMD:   "- Intro\n\n  <table><caption>C</caption><tr><th scope=\"col\">H</th></tr>\n\n  <tr><td>x</td></tr></table>\n- two",
			closing:  "</ul>",
			siblings: []string{"Intro", "two"},
		},
		"first in list item": {
			html:     "<ol><li>" + table + "</li><li>next</li></ol>",
			wantMD:   "1. <table><caption>C</caption><tr><th scope=\"col\">H</th></tr>\n\n   <tr><td>x</td></tr></table>\n2. next",
			closing:  "</ol>",
			siblings: []string{"next"},
		},
		"inside blockquote": {
			html:     "<blockquote><p>See</p>" + table + "</blockquote><p>After</p>",
			wantMD:   "> See\n>\n> <table><caption>C</caption><tr><th scope=\"col\">H</th></tr>\n>\n> <tr><td>x</td></tr></table>\n\nAfter",
			closing:  "</blockquote>",
			siblings: []string{"See"},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			md := ToMarkdown(tt.html)
			if md != tt.wantMD {
				t.Fatalf("ToMarkdown() =\n%q\nwant\n%q", md, tt.wantMD)
			}

			got := ToHTML(md)
			at := strings.Index(got, table)
			if at < 0 {
				t.Fatalf("table not restored verbatim:\n%s", got)
			}
			closeAt := strings.Index(got, tt.closing)
			if closeAt < at+len(table) {
				t.Errorf("%s closed before the table ended:\n%s", tt.closing, got)
			}
			for _, s := range tt.siblings {
				if i := strings.Index(got, s); i < 0 || i > closeAt {
					t.Errorf("%q should stay inside the container:\n%s", s, got)
				}
			}
			if strings.Contains(got, "- two") || strings.Contains(got, "CANVASTABLE") {
				t.Errorf("markdown leaked into html:\n%s", got)
			}
			if Normalize(tt.html) != got {
				t.Errorf("Normalize() should equal the round trip of the pulled markdown")
			}
		})
	}
}

func TestPipeTableInsideListKeepsIndent(t *testing.T) {
	src := "<ul><li>Scores<table><thead><tr><th>A</th></tr></thead><tbody><tr><td>1</td></tr></tbody></table></li></ul>"

	md := ToMarkdown(src)
	want := "- Scores\n\n  | A |\n  | --- |\n  | 1 |"
	if md != want {
		t.Fatalf("ToMarkdown() = %q, want %q", md, want)
	}
	if got := ToHTML(md); !strings.Contains(got, "<td>1</td>") {
		t.Errorf("ToHTML() = %q, want a table inside the list", got)
	}
}

func TestClassedParagraphKeepsMarkup(t *testing.T) {
	src := `<p class="callout">Heads up: <strong>due Friday</strong></p><p>Plain</p>`

	md := ToMarkdown(src)
	want := "<p class=\"callout\">Heads up: <strong>due Friday</strong></p>\n\nPlain"
	if md != want {
		t.Fatalf("ToMarkdown() = %q, want %q", md, want)
	}
	got := ToHTML(md)
	if want := `<p class="callout">Heads up: <strong>due Friday</strong></p>` + "\n<p>Plain</p>"; got != want {
		t.Errorf("ToHTML() = %q, want %q", got, want)
	}
}
