// Package block implements the RFC 8618 block model: the per-block
// content-addressed tables, the three item buffers (query/response pairs,
// malformed messages, address event counts), and the block parameters
// structures that describe how a block's fields are populated.
package block

import (
	"github.com/cespare/xxhash/v2"
)

// InternTable is a content-addressed, insertion-order-stable table: adding
// the same content twice returns the same index, and iteration order always
// matches first-insertion order. V is typically a small value struct (an
// address, a classtype pair, a signature) whose wire-key bytes are produced
// by a caller-supplied function.
//
// Indices are 0-based in memory (Get/value by position) but the table also
// exposes the 1-based wire index C-DNS uses, where 0 means "no entry" — see
// WireIndex.
type InternTable[V any] struct {
	keyOf   func(V) string
	values  []V
	buckets map[uint64][]int // content hash -> candidate positions in values
}

// NewInternTable creates an empty table. keyOf must return a canonical byte
// representation of v such that equal content always produces an equal
// string (used both for hashing and for exact-match comparison on a bucket
// hit).
func NewInternTable[V any](keyOf func(V) string) *InternTable[V] {
	return &InternTable[V]{
		keyOf:   keyOf,
		buckets: make(map[uint64][]int),
	}
}

// Add returns the 0-based index of v in the table, inserting it if this
// exact content has not been seen before.
func (t *InternTable[V]) Add(v V) int {
	key := t.keyOf(v)
	h := xxhash.Sum64String(key)

	for _, idx := range t.buckets[h] {
		if t.keyOf(t.values[idx]) == key {
			return idx
		}
	}

	idx := len(t.values)
	t.values = append(t.values, v)
	t.buckets[h] = append(t.buckets[h], idx)

	return idx
}

// Find reports the 0-based index of v if it is already present, without
// inserting it.
func (t *InternTable[V]) Find(v V) (index int, ok bool) {
	key := t.keyOf(v)
	h := xxhash.Sum64String(key)

	for _, idx := range t.buckets[h] {
		if t.keyOf(t.values[idx]) == key {
			return idx, true
		}
	}

	return 0, false
}

// Get returns the value stored at the given 0-based index.
func (t *InternTable[V]) Get(index int) V {
	return t.values[index]
}

// Len returns the number of distinct entries in the table.
func (t *InternTable[V]) Len() int {
	return len(t.values)
}

// Values returns the entries in insertion order. The returned slice must
// not be mutated by the caller.
func (t *InternTable[V]) Values() []V {
	return t.values
}

// Clear empties the table, retaining its backing storage for reuse across
// blocks.
func (t *InternTable[V]) Clear() {
	t.values = t.values[:0]

	for h := range t.buckets {
		delete(t.buckets, h)
	}
}

// WireIndex converts a 0-based in-memory index to the 1-based index C-DNS
// writes on the wire.
func WireIndex(index int) uint64 {
	return uint64(index) + 1
}

// WireIndexOptional converts a 0-based in-memory index to its 1-based wire
// form, or 0 ("absent") when present is false.
func WireIndexOptional(index int, present bool) uint64 {
	if !present {
		return 0
	}

	return WireIndex(index)
}

// FromWireIndex converts a 1-based wire index back to a 0-based in-memory
// index. ok is false if the wire index is 0 ("absent").
func FromWireIndex(wire uint64) (index int, ok bool) {
	if wire == 0 {
		return 0, false
	}

	return int(wire - 1), true
}
