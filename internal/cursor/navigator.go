// Package cursor moves through the Nth item of a cached collection without
// holding a copy of the list.
//
// A Navigator stores only a query key and an index. Every read resolves the
// key against the cache, so a refetch is visible immediately. The cursor
// follows index position, not item identity: after the list reorders or
// shrinks the same index may name a different item. Callers that need a
// valid position call Clamp after a refresh.
package cursor

import "github.com/five82/repeater/internal/query"

// NoItem is the index of a cursor with no active item.
const NoItem = -1

// Resolver returns the current snapshot of a cached collection.
type Resolver interface {
	Get(key query.Key) (query.Entry, bool)
}

// Navigator is a cursor over a cached []T. It is not safe for concurrent
// use; the UI loop owns it.
type Navigator[T any] struct {
	resolver Resolver
	key      query.Key
	index    int
}

// New returns a navigator positioned at the first item.
func New[T any](resolver Resolver, key query.Key) *Navigator[T] {
	return NewAt[T](resolver, key, 0)
}

// NewAt returns a navigator positioned at index.
func NewAt[T any](resolver Resolver, key query.Key, index int) *Navigator[T] {
	if index < NoItem {
		index = NoItem
	}
	return &Navigator[T]{resolver: resolver, key: key.Clone(), index: index}
}

// Key returns the collection the cursor reads.
func (n *Navigator[T]) Key() query.Key {
	return n.key.Clone()
}

// Items returns the resolved list. It reports false unless the entry is Ready.
func (n *Navigator[T]) Items() ([]T, bool) {
	entry, ok := n.resolver.Get(n.key)
	if !ok || !entry.Ready() {
		return nil, false
	}
	return query.Value[[]T](entry)
}

// Len returns the length of the resolved list, or 0 when it is not Ready.
func (n *Navigator[T]) Len() int {
	items, _ := n.Items()
	return len(items)
}

// Current returns the item at the cursor. It reports false when the index
// is out of range or the collection is not Ready.
func (n *Navigator[T]) Current() (T, bool) {
	var zero T
	items, ok := n.Items()
	if !ok || n.index < 0 || n.index >= len(items) {
		return zero, false
	}
	return items[n.index], true
}

// Next advances unless the cursor is on the last item.
func (n *Navigator[T]) Next() bool {
	if !n.HasNext() {
		return false
	}
	n.index++
	return true
}

// Prev moves back unless the cursor is on the first item.
func (n *Navigator[T]) Prev() bool {
	if !n.HasPrev() {
		return false
	}
	n.index--
	return true
}

// HasNext reports whether Next would move.
func (n *Navigator[T]) HasNext() bool {
	return n.index < n.Len()-1
}

// HasPrev reports whether Prev would move.
func (n *Navigator[T]) HasPrev() bool {
	return n.index > 0 && n.Len() > 0
}

// Index returns the raw cursor position, which may be out of range after
// the list shrinks.
func (n *Navigator[T]) Index() int {
	return n.index
}

// SetIndex moves the cursor. Values below NoItem are treated as NoItem.
func (n *Navigator[T]) SetIndex(index int) {
	if index < NoItem {
		index = NoItem
	}
	n.index = index
}

// Reset clears the active item.
func (n *Navigator[T]) Reset() {
	n.index = NoItem
}

// Clamp pulls an index past the end back to the last item, or to NoItem when
// the list is empty or not Ready. It returns the new index.
func (n *Navigator[T]) Clamp() int {
	length := n.Len()
	switch {
	case length == 0:
		n.index = NoItem
	case n.index >= length:
		n.index = length - 1
	}
	return n.index
}

// Retarget points the cursor at another collection and rewinds to its first item.
func (n *Navigator[T]) Retarget(key query.Key) {
	n.key = key.Clone()
	n.index = 0
}
