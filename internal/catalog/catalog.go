// Package catalog records the remote snapshots observed during one pull or
// push so the diff step can compare against them without refetching.
package catalog

import (
	"fmt"

	"github.com/Brehove/canvas-cli-for-codex/internal/faults"
	"github.com/Brehove/canvas-cli-for-codex/internal/model"
)

// Key identifies a remote object within a course.
type Key struct {
	Course int64
	Kind   model.Kind
	ID     int64
}

func (k Key) String() string {
	return fmt.Sprintf("course %d %s/%d", k.Course, k.Kind, k.ID)
}

// Entry is the latest snapshot of a remote object and the local file
// materialized for it, if any.
type Entry struct {
	Course   int64
	Resource model.Resource
	Path     string
}

// Key returns the catalog key of e.
func (e Entry) Key() Key {
	k := Key{Course: e.Course, Kind: e.Resource.Kind()}
	if id := e.Resource.RemoteID(); id != nil {
		k.ID = *id
	}
	return k
}

// Catalog is built fresh for every invocation and is not safe for
// concurrent use; callers serialize registration.
type Catalog struct {
	entries map[Key]Entry
	order   []Key
	frozen  bool
}

// New returns an empty catalog.
func New() *Catalog {
	return &Catalog{entries: make(map[Key]Entry)}
}

// Register records e, replacing any earlier snapshot of the same object.
func (c *Catalog) Register(e Entry) error {
	if c.frozen {
		return fmt.Errorf("catalog is frozen")
	}
	if e.Resource == nil || e.Resource.RemoteID() == nil {
		return fmt.Errorf("cannot register a resource without a remote id")
	}
	k := e.Key()
	if _, ok := c.entries[k]; !ok {
		c.order = append(c.order, k)
	}
	c.entries[k] = e
	return nil
}

// Lookup returns the entry for the object, or a NotFoundError.
func (c *Catalog) Lookup(course int64, kind model.Kind, id int64) (Entry, error) {
	k := Key{Course: course, Kind: kind, ID: id}
	e, ok := c.entries[k]
	if !ok {
		return Entry{}, faults.NotFound("%s is not in the catalog", k)
	}
	return e, nil
}

// Len returns the number of distinct objects registered.
func (c *Catalog) Len() int {
	return len(c.entries)
}

// Entries returns entries in first-registration order.
func (c *Catalog) Entries() []Entry {
	out := make([]Entry, 0, len(c.order))
	for _, k := range c.order {
		out = append(out, c.entries[k])
	}
	return out
}

// Freeze rejects further registration for the rest of the pass.
func (c *Catalog) Freeze() {
	c.frozen = true
}
