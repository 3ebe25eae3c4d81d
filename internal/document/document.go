// Package document reads and writes the local file representation of course
// resources: Markdown files with a YAML header, or plain YAML descriptors.
package document

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Brehove/canvas-cli-for-codex/internal/faults"
	"gopkg.in/yaml.v3"
)

// Format is the on-disk layout of a document.
type Format int

const (
	// Markdown documents carry a YAML header between "---" lines followed by a body.
	Markdown Format = iota
	// YAML documents are a single mapping with no body.
	YAML
)

func (f Format) String() string {
	if f == YAML {
		return "yaml"
	}
	return "markdown"
}

// FormatFor picks the format from the file extension.
func FormatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return YAML
	default:
		return Markdown
	}
}

// Document is a parsed local file.
type Document struct {
	Path   string
	Format Format
	// Header is the raw YAML mapping, always newline terminated when non-empty.
	Header []byte
	// Body is the Markdown content without surrounding blank lines.
	Body string
}

// New builds a document from a header value and body.
func New(format Format, header any, body string) (*Document, error) {
	raw, err := MarshalHeader(header)
	if err != nil {
		return nil, err
	}
	return &Document{Format: format, Header: raw, Body: normalizeBody(body)}, nil
}

// Parse decodes file content. Markdown content must start with a header block.
func Parse(path string, data []byte) (*Document, error) {
	doc := &Document{Path: path, Format: FormatFor(path)}
	if doc.Format == YAML {
		doc.Header = bytes.ReplaceAll(data, []byte("\r\n"), []byte("\n"))
		return doc, doc.checkHeader()
	}

	header, body, found := splitFrontmatter(data)
	if !found {
		return nil, faults.Invalid("header", "%s has no YAML header block", displayPath(path))
	}
	doc.Header = header
	doc.Body = normalizeBody(body)
	return doc, doc.checkHeader()
}

// Load reads and parses the file at path.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, faults.NotFound("file %s does not exist", path)
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return Parse(path, data)
}

func (d *Document) checkHeader() error {
	if len(bytes.TrimSpace(d.Header)) == 0 {
		return nil
	}
	var node yaml.Node
	if err := yaml.Unmarshal(d.Header, &node); err != nil {
		return &faults.TypedError{Category: faults.ValidationError, Field: "header", Message: "invalid YAML in " + displayPath(d.Path), Cause: err}
	}
	if m := mapping(&node); m == nil {
		return faults.Invalid("header", "%s header is not a mapping", displayPath(d.Path))
	}
	return nil
}

// DecodeHeader unmarshals the header into v.
func (d *Document) DecodeHeader(v any) error {
	if err := yaml.Unmarshal(d.Header, v); err != nil {
		return &faults.TypedError{Category: faults.ValidationError, Field: "header", Message: "invalid header in " + displayPath(d.Path), Cause: err}
	}
	return nil
}

// Field returns the scalar value of a top-level header key.
func (d *Document) Field(key string) (string, bool) {
	var node yaml.Node
	if err := yaml.Unmarshal(d.Header, &node); err != nil {
		return "", false
	}
	m := mapping(&node)
	if m == nil {
		return "", false
	}
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			v := m.Content[i+1]
			if v.Kind != yaml.ScalarNode || v.Tag == "!!null" {
				return "", false
			}
			return v.Value, true
		}
	}
	return "", false
}

// Has reports whether key is present in the header with a non-null value
// of any shape.
func (d *Document) Has(key string) bool {
	var node yaml.Node
	if err := yaml.Unmarshal(d.Header, &node); err != nil {
		return false
	}
	m := mapping(&node)
	if m == nil {
		return false
	}
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			v := m.Content[i+1]
			return !(v.Kind == yaml.ScalarNode && v.Tag == "!!null")
		}
	}
	return false
}

// SetField replaces the value of key, or appends it, leaving every other
// header entry and its position untouched.
func (d *Document) SetField(key string, value any) error {
	return d.edit(func(m *yaml.Node) error {
		return setKey(m, key, value)
	})
}

// SetItemField sets key on the index-th mapping of the top-level sequence
// list, leaving the rest of the header untouched.
func (d *Document) SetItemField(list string, index int, key string, value any) error {
	return d.edit(func(m *yaml.Node) error {
		for i := 0; i+1 < len(m.Content); i += 2 {
			if m.Content[i].Value != list {
				continue
			}
			seq := m.Content[i+1]
			if seq.Kind != yaml.SequenceNode || index < 0 || index >= len(seq.Content) {
				return faults.Invalid(list, "has no entry %d", index)
			}
			item := seq.Content[index]
			if item.Kind != yaml.MappingNode {
				return faults.Invalid(list, "entry %d is not a mapping", index)
			}
			return setKey(item, key, value)
		}
		return faults.Invalid(list, "is not in the header")
	})
}

func (d *Document) edit(fn func(m *yaml.Node) error) error {
	var node yaml.Node
	if len(bytes.TrimSpace(d.Header)) > 0 {
		if err := yaml.Unmarshal(d.Header, &node); err != nil {
			return fmt.Errorf("failed to parse header: %w", err)
		}
	}
	if node.Kind == 0 {
		node = yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{{Kind: yaml.MappingNode, Tag: "!!map"}}}
	}
	m := mapping(&node)
	if m == nil {
		return faults.Invalid("header", "header is not a mapping")
	}
	if err := fn(m); err != nil {
		return err
	}

	raw, err := MarshalHeader(&node)
	if err != nil {
		return err
	}
	d.Header = raw
	return nil
}

func setKey(m *yaml.Node, key string, value any) error {
	var valueNode yaml.Node
	if err := valueNode.Encode(value); err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			valueNode.LineComment = m.Content[i+1].LineComment
			m.Content[i+1] = &valueNode
			return nil
		}
	}
	m.Content = append(m.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
		&valueNode)
	return nil
}

// Bytes renders the document in its on-disk form.
func (d *Document) Bytes() []byte {
	if d.Format == YAML {
		return append([]byte(nil), d.Header...)
	}

	var buf bytes.Buffer
	buf.WriteString("---\n")
	buf.Write(d.Header)
	if len(d.Header) > 0 && !bytes.HasSuffix(d.Header, []byte("\n")) {
		buf.WriteByte('\n')
	}
	buf.WriteString("---\n")
	if d.Body != "" {
		buf.WriteByte('\n')
		buf.WriteString(d.Body)
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

// Save writes the document back to its Path.
func (d *Document) Save() error {
	if d.Path == "" {
		return fmt.Errorf("document has no path")
	}
	return WriteFile(d.Path, d.Bytes())
}

// MarshalHeader encodes v as a YAML mapping with two-space indentation.
func MarshalHeader(v any) ([]byte, error) {
	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(v); err != nil {
		_ = encoder.Close()
		return nil, fmt.Errorf("failed to encode header: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode header: %w", err)
	}
	return buf.Bytes(), nil
}

func mapping(node *yaml.Node) *yaml.Node {
	if node.Kind == yaml.DocumentNode && len(node.Content) == 1 {
		node = node.Content[0]
	}
	if node.Kind != yaml.MappingNode {
		return nil
	}
	return node
}

func normalizeBody(body string) string {
	body = strings.ReplaceAll(body, "\r\n", "\n")
	return strings.Trim(body, "\n")
}

func displayPath(path string) string {
	if path == "" {
		return "document"
	}
	return path
}
