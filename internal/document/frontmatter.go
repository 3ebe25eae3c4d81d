package document

import "bytes"

var delimiter = []byte("---")

// splitFrontmatter separates a leading "---" delimited YAML header from the
// rest of content. Windows line endings in the header are normalized.
// found is false when content has no complete header block.
func splitFrontmatter(content []byte) (header []byte, body string, found bool) {
	var remaining []byte
	switch {
	case bytes.HasPrefix(content, []byte("---\n")):
		remaining = content[4:]
	case bytes.HasPrefix(content, []byte("---\r\n")):
		remaining = content[5:]
	default:
		return nil, string(content), false
	}

	var bodyStart int
	switch {
	case bytes.HasPrefix(remaining, delimiter):
		header = []byte{}
		bodyStart = len(delimiter)
	default:
		idx := bytes.Index(remaining, []byte("\n---"))
		if idx == -1 {
			return nil, string(content), false
		}
		header = remaining[:idx+1]
		bodyStart = idx + 4
	}

	// The closing delimiter must end its line.
	rest := remaining[bodyStart:]
	switch {
	case len(rest) == 0:
	case bytes.HasPrefix(rest, []byte("\r\n")):
		rest = rest[2:]
	case bytes.HasPrefix(rest, []byte("\n")):
		rest = rest[1:]
	default:
		return nil, string(content), false
	}

	header = bytes.ReplaceAll(header, []byte("\r\n"), []byte("\n"))
	return header, string(rest), true
}
