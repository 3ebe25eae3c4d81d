package diff

import (
	"fmt"
	"strings"
)

// LineType marks a line of a body diff.
type LineType string

const (
	// LineContext is an unchanged line.
	LineContext LineType = " "
	// LineAdded is a line present only in the candidate.
	LineAdded LineType = "+"
	// LineRemoved is a line present only in the current body.
	LineRemoved LineType = "-"
)

// Line is a single line of a body diff.
type Line struct {
	Type    LineType
	Content string
}

func (l Line) String() string {
	return string(l.Type) + l.Content
}

// Hunk is a contiguous block of changed lines.
type Hunk struct {
	OldStart, OldCount int
	NewStart, NewCount int
	Lines              []Line
}

// Header returns the unified diff hunk header.
func (h Hunk) Header() string {
	return fmt.Sprintf("@@ -%d,%d +%d,%d @@", h.OldStart, h.OldCount, h.NewStart, h.NewCount)
}

// LineDiff computes hunks between two texts, split on newlines.
func LineDiff(old, new string) []Hunk {
	return hunks(splitLines(old), splitLines(new))
}

func splitLines(s string) []string {
	s = strings.TrimRight(s, "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

func hunks(source, target []string) []Hunk {
	common := lcs(source, target)

	var out []Hunk
	var current *Hunk
	si, ti, ci := 0, 0, 0

	for si < len(source) || ti < len(target) {
		inCommon := ci < len(common) &&
			si < len(source) &&
			ti < len(target) &&
			source[si] == common[ci] &&
			target[ti] == common[ci]

		if inCommon {
			if current != nil {
				current.Lines = append(current.Lines, Line{Type: LineContext, Content: source[si]})
				out = append(out, *current)
				current = nil
			}
			si++
			ti++
			ci++
			continue
		}

		if current == nil {
			current = &Hunk{OldStart: si + 1, NewStart: ti + 1}
		}
		if si < len(source) && (ci >= len(common) || source[si] != common[ci]) {
			current.Lines = append(current.Lines, Line{Type: LineRemoved, Content: source[si]})
			current.OldCount++
			si++
		}
		if ti < len(target) && (ci >= len(common) || target[ti] != common[ci]) {
			current.Lines = append(current.Lines, Line{Type: LineAdded, Content: target[ti]})
			current.NewCount++
			ti++
		}
	}

	if current != nil {
		out = append(out, *current)
	}
	return out
}

// lcs returns the longest common subsequence of two line slices.
func lcs(source, target []string) []string {
	m, n := len(source), len(target)
	if m == 0 || n == 0 {
		return nil
	}

	dp := make([][]int, m+1)
	for i := range dp {
		dp[i] = make([]int, n+1)
	}
	for i := 1; i <= m; i++ {
		for j := 1; j <= n; j++ {
			if source[i-1] == target[j-1] {
				dp[i][j] = dp[i-1][j-1] + 1
			} else {
				dp[i][j] = max(dp[i-1][j], dp[i][j-1])
			}
		}
	}

	out := make([]string, dp[m][n])
	i, j, k := m, n, dp[m][n]-1
	for i > 0 && j > 0 {
		switch {
		case source[i-1] == target[j-1]:
			out[k] = source[i-1]
			i--
			j--
			k--
		case dp[i-1][j] > dp[i][j-1]:
			i--
		default:
			j--
		}
	}
	return out
}
