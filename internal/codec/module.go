package codec

import (
	"fmt"

	"github.com/Brehove/canvas-cli-for-codex/internal/document"
	"github.com/Brehove/canvas-cli-for-codex/internal/model"
)

// Descriptor file names written into course and module folders.
const (
	CourseFile = "_course.yaml"
	ModuleFile = "_module.yaml"
)

// DecodeModule renders a module and its items as a descriptor document.
func DecodeModule(m model.Module) (*document.Document, error) {
	h := moduleHeader{
		ID:                        m.ID,
		Name:                      m.Name,
		Position:                  m.Position,
		UnlockAt:                  FormatTime(m.UnlockAt),
		RequireSequentialProgress: m.RequireSequentialProgress,
		Published:                 m.Published,
		Items:                     make([]moduleItemHeader, 0, len(m.Items)),
	}
	for _, item := range m.Items {
		h.Items = append(h.Items, itemHeader(item))
	}
	return document.New(document.YAML, h, "")
}

// EncodeModule reads a module descriptor. Every item inherits the module id.
func EncodeModule(doc *document.Document) (*model.Module, error) {
	f, err := newFields(doc.Header)
	if err != nil {
		return nil, err
	}

	m := &model.Module{}
	if m.ID, err = f.requiredID(KeyID); err != nil {
		return nil, err
	}
	if m.Name, err = f.requiredStr("name"); err != nil {
		return nil, err
	}
	if m.Position, err = f.integer("position"); err != nil {
		return nil, err
	}
	if m.UnlockAt, err = f.timestamp("unlock_at"); err != nil {
		return nil, err
	}
	if m.RequireSequentialProgress, err = f.boolean("require_sequential_progress"); err != nil {
		return nil, err
	}
	if m.Published, err = f.boolean("published"); err != nil {
		return nil, err
	}

	err = f.each("items", func(itemFields *fields) error {
		id, err := itemFields.id(KeyID)
		if err != nil {
			return err
		}
		item, err := encodeItem(itemFields, id)
		if err != nil {
			return err
		}
		item.ModuleID = m.ID
		m.Items = append(m.Items, *item)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// DecodeCourse renders the course descriptor.
func DecodeCourse(c model.Course) (*document.Document, error) {
	return document.New(document.YAML, courseHeader{ID: c.ID, Name: c.Name, Code: c.Code, Term: c.Term}, "")
}

// EncodeCourse reads a course descriptor.
func EncodeCourse(doc *document.Document) (*model.Course, error) {
	f, err := newFields(doc.Header)
	if err != nil {
		return nil, err
	}
	c := &model.Course{}
	if c.ID, err = f.requiredID(KeyID); err != nil {
		return nil, fmt.Errorf("%s: %w", doc.Path, err)
	}
	if c.Name, err = f.requiredStr("name"); err != nil {
		return nil, fmt.Errorf("%s: %w", doc.Path, err)
	}
	if c.Code, err = f.str("course_code"); err != nil {
		return nil, err
	}
	if c.Term, err = f.str("term"); err != nil {
		return nil, err
	}
	return c, nil
}
