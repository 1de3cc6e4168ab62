// Package store keeps the mock resources of a session in memory.
//
// Resources are grouped by kind ("customers", "events", ...). Each kind is a
// Collection that preserves insertion order, which is the order used by every
// listing operation. A Store is owned by a single session and is discarded
// with it; it is not safe for concurrent use.
package store

import (
	"errors"
	"fmt"
	"slices"
	"sort"

	"github.com/aarondl/opt/omit"
)

var (
	// ErrNotFound is returned when a lookup targets an unknown id.
	ErrNotFound = errors.New("resource not found")

	// ErrDuplicateIdentity is returned when an insert reuses an existing id.
	ErrDuplicateIdentity = errors.New("duplicate identity")

	// ErrInvalidPage is returned for inconsistent pagination parameters.
	ErrInvalidPage = errors.New("invalid page parameters")
)

// Record is a single resource in its JSON form.
type Record = map[string]any

type Store struct {
	collections map[string]*Collection
}

func New() *Store {
	return &Store{collections: make(map[string]*Collection)}
}

// Collection returns the collection for kind, creating it when needed. The
// returned value gives direct access to the stored records.
func (s *Store) Collection(kind string) *Collection {
	c, ok := s.collections[kind]
	if !ok {
		c = newCollection()
		s.collections[kind] = c
	}
	return c
}

// lookup returns the collection for kind without creating it. Missing kinds
// read as an empty collection.
func (s *Store) lookup(kind string) *Collection {
	if c, ok := s.collections[kind]; ok {
		return c
	}
	return newCollection()
}

// Kinds lists the kinds that hold at least one record, sorted by name.
func (s *Store) Kinds() []string {
	kinds := make([]string, 0, len(s.collections))
	for kind, c := range s.collections {
		if c.Len() > 0 {
			kinds = append(kinds, kind)
		}
	}
	sort.Strings(kinds)
	return kinds
}

// Insert adds a new record under id.
func (s *Store) Insert(kind, id string, rec Record) error {
	c := s.Collection(kind)
	if _, ok := c.records[id]; ok {
		return fmt.Errorf("%w: %s %q", ErrDuplicateIdentity, kind, id)
	}
	c.Set(id, rec)
	return nil
}

// Replace swaps the record stored under id, keeping its position.
func (s *Store) Replace(kind, id string, rec Record) error {
	c := s.lookup(kind)
	if _, ok := c.records[id]; !ok {
		return fmt.Errorf("%w: %s %q", ErrNotFound, kind, id)
	}
	c.records[id] = rec
	return nil
}

func (s *Store) Get(kind, id string) (Record, error) {
	rec, ok := s.lookup(kind).Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s %q", ErrNotFound, kind, id)
	}
	return rec, nil
}

// Delete removes the record stored under id and returns it.
func (s *Store) Delete(kind, id string) (Record, error) {
	c := s.lookup(kind)
	rec, ok := c.records[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s %q", ErrNotFound, kind, id)
	}
	delete(c.records, id)
	c.order = slices.DeleteFunc(c.order, func(k string) bool { return k == id })
	return rec, nil
}

// List returns the records of kind in insertion order. When limit is set only
// the earliest limit records are returned.
func (s *Store) List(kind string, limit omit.Val[int]) []Record {
	c := s.lookup(kind)
	n := c.Len()
	if l, ok := limit.Get(); ok && l >= 0 && l < n {
		n = l
	}
	out := make([]Record, 0, n)
	for _, id := range c.order[:n] {
		out = append(out, c.records[id])
	}
	return out
}

// ClearAll drops every collection.
func (s *Store) ClearAll() {
	s.collections = make(map[string]*Collection)
}

// Collection is an insertion-ordered set of records keyed by id.
type Collection struct {
	order   []string
	records map[string]Record
}

func newCollection() *Collection {
	return &Collection{records: make(map[string]Record)}
}

// Set stores rec under id. New ids are appended to the order; existing ids
// keep their position.
func (c *Collection) Set(id string, rec Record) {
	if _, ok := c.records[id]; !ok {
		c.order = append(c.order, id)
	}
	c.records[id] = rec
}

func (c *Collection) Get(id string) (Record, bool) {
	rec, ok := c.records[id]
	return rec, ok
}

// Keys returns the ids in insertion order.
func (c *Collection) Keys() []string {
	return slices.Clone(c.order)
}

func (c *Collection) Len() int {
	return len(c.order)
}

func (c *Collection) index(id string) int {
	return slices.Index(c.order, id)
}
