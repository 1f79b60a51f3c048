package store

import (
	"fmt"
	"iter"

	"github.com/mesikahq/hospital-records/internal/records"
)

// Collection is the in-memory, insertion-ordered set of one entity type.
// It is not safe for concurrent use.
type Collection[T records.Identified] struct {
	kind  string
	items []T
}

func NewCollection[T records.Identified](kind string, items ...T) *Collection[T] {
	c := &Collection[T]{kind: kind, items: make([]T, 0, len(items))}
	c.items = append(c.items, items...)
	return c
}

func (c *Collection[T]) Kind() string { return c.kind }

func (c *Collection[T]) Len() int { return len(c.items) }

// Items returns a copy of the members in insertion order.
func (c *Collection[T]) Items() []T {
	out := make([]T, len(c.items))
	copy(out, c.items)
	return out
}

// All yields every member in insertion order.
func (c *Collection[T]) All() iter.Seq[T] {
	return c.Search(func(T) bool { return true })
}

// NextID returns 1 for an empty collection, otherwise the largest id plus one.
func (c *Collection[T]) NextID() int {
	return NextID(c.items)
}

func (c *Collection[T]) FindByID(id int) (T, bool) {
	if i := c.index(id); i >= 0 {
		return c.items[i], true
	}
	var zero T
	return zero, false
}

// Get is FindByID for callers that require a match.
func (c *Collection[T]) Get(id int) (T, error) {
	item, ok := c.FindByID(id)
	if !ok {
		return item, &NotFoundError{Kind: c.kind, ID: id}
	}
	return item, nil
}

// Add appends item. The id must not already be in use.
func (c *Collection[T]) Add(item T) error {
	if c.index(item.Identity()) >= 0 {
		return fmt.Errorf("%s %d: %w", c.kind, item.Identity(), ErrDuplicateID)
	}
	c.items = append(c.items, item)
	return nil
}

// Replace swaps the member with the same id for item, keeping its position.
func (c *Collection[T]) Replace(item T) error {
	i := c.index(item.Identity())
	if i < 0 {
		return &NotFoundError{Kind: c.kind, ID: item.Identity()}
	}
	c.items[i] = item
	return nil
}

// Delete removes the member with the given id and reports whether one was
// removed.
func (c *Collection[T]) Delete(id int) bool {
	i := c.index(id)
	if i < 0 {
		return false
	}
	c.items = append(c.items[:i:i], c.items[i+1:]...)
	return true
}

// Search lazily yields the members accepted by match, in insertion order.
// The returned sequence can be ranged over more than once.
func (c *Collection[T]) Search(match func(T) bool) iter.Seq[T] {
	return func(yield func(T) bool) {
		for _, item := range c.items {
			if match(item) && !yield(item) {
				return
			}
		}
	}
}

// First returns the first member accepted by match.
func (c *Collection[T]) First(match func(T) bool) (T, bool) {
	for item := range c.Search(match) {
		return item, true
	}
	var zero T
	return zero, false
}

func (c *Collection[T]) index(id int) int {
	for i, item := range c.items {
		if item.Identity() == id {
			return i
		}
	}
	return -1
}

// NextID returns 1 for an empty list, otherwise the largest id plus one.
func NextID[T records.Identified](items []T) int {
	highest := 0
	for _, item := range items {
		if id := item.Identity(); id > highest {
			highest = id
		}
	}
	return highest + 1
}
