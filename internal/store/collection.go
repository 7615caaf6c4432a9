// Package store is the in-memory document store backing the practice website.
// Every collection hands out copies: mutating a returned record never touches
// the stored one, and all writes go through Create, Update and Delete.
package store

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"practice/internal/model"

	"github.com/jonboulle/clockwork"
)

var (
	// ErrNotFound is returned when no record matches an id or predicate.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateID is returned when the id generator yields an id already issued.
	ErrDuplicateID = errors.New("duplicate record id")
	// ErrConflict is returned by CreateUnique when an existing record clashes with the new one.
	ErrConflict = errors.New("record conflicts with an existing record")
)

// Document is satisfied by pointers to record types that embed model.Base
// and can deep-copy themselves.
type Document[T any] interface {
	*T
	Meta() *model.Base
	Clone() T
}

// Collection is an ordered, id-keyed set of records of one type.
type Collection[T any, P Document[T]] struct {
	name  string
	ids   IDGenerator
	clock clockwork.Clock

	mu      sync.RWMutex
	records map[string]T
	order   []string
	issued  map[string]struct{}
}

// NewCollection creates an empty collection. Ids issued by gen are never reused,
// even after the record is deleted.
func NewCollection[T any, P Document[T]](name string, gen IDGenerator, clock clockwork.Clock) *Collection[T, P] {
	if gen == nil {
		gen = UUID
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Collection[T, P]{
		name:    name,
		ids:     gen,
		clock:   clock,
		records: make(map[string]T),
		issued:  make(map[string]struct{}),
	}
}

// Name returns the collection name, e.g. "appointments".
func (c *Collection[T, P]) Name() string { return c.name }

// Create stores a copy of rec under a fresh id and returns the stored record.
// Any id or timestamps already set on rec are ignored.
func (c *Collection[T, P]) Create(rec T) (T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.insert(rec)
}

// CreateUnique is Create guarded by a uniqueness check: if clash reports true
// for any stored record, nothing is written and ErrConflict is returned. The
// check and the insert happen under one lock.
func (c *Collection[T, P]) CreateUnique(rec T, clash func(existing T) bool) (T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, id := range c.order {
		if clash(c.records[id]) {
			var zero T
			return zero, fmt.Errorf("%s: %w", c.name, ErrConflict)
		}
	}
	return c.insert(rec)
}

func (c *Collection[T, P]) insert(rec T) (T, error) {
	id := c.ids()
	if _, dup := c.issued[id]; dup || id == "" {
		var zero T
		return zero, fmt.Errorf("%s: %w: %q", c.name, ErrDuplicateID, id)
	}

	stored := P(&rec).Clone()
	now := c.clock.Now().UTC()
	meta := P(&stored).Meta()
	meta.ID = id
	meta.CreatedAt = now
	meta.UpdatedAt = now

	c.records[id] = stored
	c.order = append(c.order, id)
	c.issued[id] = struct{}{}
	return P(&stored).Clone(), nil
}

// FindByID returns the record with the given id or ErrNotFound.
func (c *Collection[T, P]) FindByID(id string) (T, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	rec, ok := c.records[id]
	if !ok {
		var zero T
		return zero, c.notFound(id)
	}
	return P(&rec).Clone(), nil
}

// FindOne returns the first record, in insertion order, matching match.
func (c *Collection[T, P]) FindOne(match func(T) bool) (T, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, id := range c.order {
		rec := c.records[id]
		if match(rec) {
			return P(&rec).Clone(), nil
		}
	}
	var zero T
	return zero, fmt.Errorf("%s: %w", c.name, ErrNotFound)
}

// FindAll returns a snapshot of all records matching match in insertion order.
// A nil match selects every record.
func (c *Collection[T, P]) FindAll(match func(T) bool) []T {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]T, 0, len(c.order))
	for _, id := range c.order {
		rec := c.records[id]
		if match == nil || match(rec) {
			out = append(out, P(&rec).Clone())
		}
	}
	return out
}

// Count returns how many records match; a nil match counts everything.
func (c *Collection[T, P]) Count(match func(T) bool) int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if match == nil {
		return len(c.order)
	}
	n := 0
	for _, id := range c.order {
		if match(c.records[id]) {
			n++
		}
	}
	return n
}

// Update applies mutate to a copy of the stored record and, if mutate returns
// nil, replaces the record with it. Fields mutate does not assign keep their
// previous values. The id and CreatedAt cannot be changed; UpdatedAt always
// moves forward. A mutate error leaves the stored record untouched.
func (c *Collection[T, P]) Update(id string, mutate func(*T) error) (T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	current, ok := c.records[id]
	if !ok {
		return zero, c.notFound(id)
	}

	draft := P(&current).Clone()
	if err := mutate(&draft); err != nil {
		return zero, err
	}

	prev := P(&current).Meta()
	meta := P(&draft).Meta()
	meta.ID = prev.ID
	meta.CreatedAt = prev.CreatedAt
	meta.UpdatedAt = c.advance(prev.UpdatedAt)

	c.records[id] = draft
	return P(&draft).Clone(), nil
}

// Delete removes the record and returns it.
func (c *Collection[T, P]) Delete(id string) (T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	rec, ok := c.records[id]
	if !ok {
		var zero T
		return zero, c.notFound(id)
	}
	delete(c.records, id)
	for i, v := range c.order {
		if v == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return rec, nil
}

// advance returns the current time, nudged past prev when the clock has not moved.
func (c *Collection[T, P]) advance(prev time.Time) time.Time {
	now := c.clock.Now().UTC()
	if !now.After(prev) {
		now = prev.Add(time.Microsecond)
	}
	return now
}

func (c *Collection[T, P]) notFound(id string) error {
	return fmt.Errorf("%s %q: %w", c.name, id, ErrNotFound)
}
