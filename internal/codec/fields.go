package codec

import (
	"math"
	"strconv"
	"time"

	"github.com/Brehove/canvas-cli-for-codex/internal/faults"
	"gopkg.in/yaml.v3"
)

// fields gives typed, field-named access to a YAML mapping so validation
// errors point at the offending key.
type fields struct {
	prefix string
	nodes  map[string]*yaml.Node
}

func newFields(raw []byte) (*fields, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, &faults.TypedError{Category: faults.ValidationError, Field: "header", Message: "invalid YAML", Cause: err}
	}
	node := &doc
	if node.Kind == yaml.DocumentNode && len(node.Content) == 1 {
		node = node.Content[0]
	}
	if node.Kind == 0 {
		return &fields{nodes: map[string]*yaml.Node{}}, nil
	}
	return mappingFields(node, "")
}

func mappingFields(node *yaml.Node, prefix string) (*fields, error) {
	if node.Kind != yaml.MappingNode {
		name := prefix
		if name == "" {
			name = "header"
		}
		return nil, faults.Invalid(name, "expected a mapping")
	}
	f := &fields{prefix: prefix, nodes: make(map[string]*yaml.Node, len(node.Content)/2)}
	for i := 0; i+1 < len(node.Content); i += 2 {
		f.nodes[node.Content[i].Value] = node.Content[i+1]
	}
	return f, nil
}

func (f *fields) name(key string) string {
	return f.prefix + key
}

// present reports whether key exists with a non-null value.
func (f *fields) present(key string) bool {
	n, ok := f.nodes[key]
	return ok && !isNull(n)
}

func isNull(n *yaml.Node) bool {
	return n.Kind == yaml.ScalarNode && n.ShortTag() == "!!null"
}

func (f *fields) scalar(key string) (*yaml.Node, error) {
	n, ok := f.nodes[key]
	if !ok || isNull(n) {
		return nil, nil
	}
	if n.Kind != yaml.ScalarNode {
		return nil, faults.Invalid(f.name(key), "expected a single value")
	}
	return n, nil
}

func (f *fields) str(key string) (string, error) {
	n, err := f.scalar(key)
	if n == nil || err != nil {
		return "", err
	}
	return n.Value, nil
}

func (f *fields) requiredStr(key string) (string, error) {
	s, err := f.str(key)
	if err != nil {
		return "", err
	}
	if s == "" {
		return "", faults.Invalid(f.name(key), "is required")
	}
	return s, nil
}

// id reads an optional remote identifier. A null value means "not created".
func (f *fields) id(key string) (*int64, error) {
	n, err := f.scalar(key)
	if n == nil || err != nil {
		return nil, err
	}
	if n.ShortTag() != "!!int" {
		return nil, faults.Invalid(f.name(key), "must be an integer id or null, got %q", n.Value)
	}
	v, err := strconv.ParseInt(n.Value, 0, 64)
	if err != nil || v <= 0 {
		return nil, faults.Invalid(f.name(key), "must be a positive integer, got %q", n.Value)
	}
	return &v, nil
}

func (f *fields) requiredID(key string) (int64, error) {
	v, err := f.id(key)
	if err != nil {
		return 0, err
	}
	if v == nil {
		return 0, faults.Invalid(f.name(key), "is required")
	}
	return *v, nil
}

func (f *fields) boolean(key string) (bool, error) {
	n, err := f.scalar(key)
	if n == nil || err != nil {
		return false, err
	}
	if n.ShortTag() != "!!bool" {
		return false, faults.Invalid(f.name(key), "must be true or false, got %q", n.Value)
	}
	var b bool
	if err := n.Decode(&b); err != nil {
		return false, faults.Invalid(f.name(key), "must be true or false, got %q", n.Value)
	}
	return b, nil
}

func (f *fields) integer(key string) (int, error) {
	n, err := f.scalar(key)
	if n == nil || err != nil {
		return 0, err
	}
	if n.ShortTag() != "!!int" {
		return 0, faults.Invalid(f.name(key), "must be an integer, got %q", n.Value)
	}
	v, err := strconv.Atoi(n.Value)
	if err != nil || v < 0 {
		return 0, faults.Invalid(f.name(key), "must be a non-negative integer, got %q", n.Value)
	}
	return v, nil
}

// points reads a non-negative, finite point value.
func (f *fields) points(key string) (*float64, error) {
	n, err := f.scalar(key)
	if n == nil || err != nil {
		return nil, err
	}
	tag := n.ShortTag()
	if tag != "!!int" && tag != "!!float" {
		return nil, faults.Invalid(f.name(key), "must be a number, got %q", n.Value)
	}
	var v float64
	if err := n.Decode(&v); err != nil {
		return nil, faults.Invalid(f.name(key), "must be a number, got %q", n.Value)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return nil, faults.Invalid(f.name(key), "must be a finite, non-negative number, got %q", n.Value)
	}
	return &v, nil
}

func (f *fields) requiredPoints(key string) (float64, error) {
	v, err := f.points(key)
	if err != nil {
		return 0, err
	}
	if v == nil {
		return 0, faults.Invalid(f.name(key), "is required")
	}
	return *v, nil
}

func (f *fields) timestamp(key string) (*time.Time, error) {
	n, err := f.scalar(key)
	if n == nil || err != nil {
		return nil, err
	}
	t, err := time.Parse(time.RFC3339, n.Value)
	if err != nil {
		return nil, faults.Invalid(f.name(key), "must be an RFC 3339 timestamp, got %q", n.Value)
	}
	return &t, nil
}

func (f *fields) strings(key string) ([]string, error) {
	n, ok := f.nodes[key]
	if !ok || isNull(n) {
		return nil, nil
	}
	if n.Kind != yaml.SequenceNode {
		return nil, faults.Invalid(f.name(key), "must be a list")
	}
	out := make([]string, 0, len(n.Content))
	for i, item := range n.Content {
		if item.Kind != yaml.ScalarNode || isNull(item) || item.Value == "" {
			return nil, faults.Invalid(f.name(key)+"["+strconv.Itoa(i)+"]", "must be a non-empty value")
		}
		out = append(out, item.Value)
	}
	return out, nil
}

// each calls fn for every mapping in the sequence at key.
func (f *fields) each(key string, fn func(*fields) error) error {
	n, ok := f.nodes[key]
	if !ok || isNull(n) {
		return nil
	}
	if n.Kind != yaml.SequenceNode {
		return faults.Invalid(f.name(key), "must be a list")
	}
	for i, item := range n.Content {
		sub, err := mappingFields(item, f.name(key)+"["+strconv.Itoa(i)+"].")
		if err != nil {
			return err
		}
		if err := fn(sub); err != nil {
			return err
		}
	}
	return nil
}
