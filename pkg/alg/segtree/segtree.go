// Package segtree provides a generic array-backed segment tree supporting
// point updates, associative range folds, and predicate-based bisection
// over folded ranges.
//
// The tree is a perfect binary tree stored in one flat slice. Leaves are
// padded to the next power of two with the monoid identity, and every
// internal node holds the combination of its two children. Update is
// O(log N), Query is O(log N) and iterative, Bisect is O(log² N).
//
// A Tree is not safe for concurrent use. Callers sharing a tree across
// goroutines must guard it externally, e.g. with a sync.RWMutex that lets
// Query and Bisect share the read lock while Update, UpdateWith and Swap
// take the write lock.
package segtree

import (
	"errors"
	"fmt"
	"math/bits"
)

// rootIndex is the slot of the root node. Slot 0 is unused so that the
// children of node i are 2i and 2i+1 and its parent is i/2.
const rootIndex = 1

// ErrIndexOutOfRange is returned when a leaf index is outside [0, Len).
var ErrIndexOutOfRange = errors.New("index out of range")

// IndexError reports a leaf index outside the logical leaf range.
type IndexError struct {
	Index int
	Len   int
}

// Error implements the error interface.
func (e *IndexError) Error() string {
	return fmt.Sprintf("segtree: index %d is out of 0..%d", e.Index, e.Len)
}

// Unwrap returns ErrIndexOutOfRange so callers can match with errors.Is.
func (e *IndexError) Unwrap() error {
	return ErrIndexOutOfRange
}

// Monoid is the aggregation capability a Tree is built over.
//
// Identity must be neutral on both sides of Combine, and Combine must be
// associative. Combine need not be commutative: the tree always combines
// in left-to-right leaf order. Wrap lifts a raw element T into the monoid
// representation S, and Unwrap recovers a raw element from it.
type Monoid[T, S any] interface {
	Identity() S
	Combine(a, b S) S
	Wrap(v T) S
	Unwrap(s S) T
}

// Tree is a segment tree over elements of type T aggregated by the
// monoid M with internal representation S.
type Tree[T, S any, M Monoid[T, S]] struct {
	monoid M
	nodes  []S
	offset int // Slot of leaf 0; always a power of two.
	size   int // Logical number of leaves.
}

// New builds a tree over data in O(len(data)). An empty slice is valid and
// produces a tree whose every fold is the identity.
func New[T, S any, M Monoid[T, S]](data []T, m M) *Tree[T, S, M] {
	offset := leafSlots(len(data))

	t := &Tree[T, S, M]{
		monoid: m,
		nodes:  make([]S, 2*offset),
		offset: offset,
		size:   len(data),
	}

	identity := m.Identity()
	for i := range t.nodes {
		t.nodes[i] = identity
	}

	for i, v := range data {
		t.nodes[offset+i] = m.Wrap(v)
	}

	for node := offset - 1; node >= rootIndex; node-- {
		t.pull(node)
	}

	return t
}

// leafSlots returns the smallest power of two >= n, and 1 for n == 0.
func leafSlots(n int) int {
	if n <= 1 {
		return 1
	}

	return 1 << bits.Len(uint(n-1))
}

// Len returns the number of logical leaves.
func (t *Tree[T, S, M]) Len() int {
	return t.size
}

// LeafOffset returns the slot of the first leaf in the backing array.
func (t *Tree[T, S, M]) LeafOffset() int {
	return t.offset
}

// Monoid returns the aggregation capability the tree was built with.
func (t *Tree[T, S, M]) Monoid() M {
	return t.monoid
}

// Get returns the raw element at leaf i.
func (t *Tree[T, S, M]) Get(i int) (T, error) {
	err := t.checkIndex(i)
	if err != nil {
		var zero T

		return zero, err
	}

	return t.monoid.Unwrap(t.nodes[t.offset+i]), nil
}

// Values returns a copy of the raw elements covered by r.
func (t *Tree[T, S, M]) Values(r Range) []T {
	left, right := r.indices(t.size)
	if left >= right {
		return nil
	}

	out := make([]T, 0, right-left)
	for _, s := range t.nodes[t.offset+left : t.offset+right] {
		out = append(out, t.monoid.Unwrap(s))
	}

	return out
}

// Update replaces leaf i with v and returns the previous element.
func (t *Tree[T, S, M]) Update(i int, v T) (T, error) {
	return t.UpdateWith(i, func(T) T { return v })
}

// UpdateWith replaces leaf i with f(old) and returns old.
// f is not called when i is out of range.
func (t *Tree[T, S, M]) UpdateWith(i int, f func(T) T) (T, error) {
	err := t.checkIndex(i)
	if err != nil {
		var zero T

		return zero, err
	}

	node := t.offset + i
	old := t.monoid.Unwrap(t.nodes[node])
	t.nodes[node] = t.monoid.Wrap(f(old))
	t.pullAncestors(node)

	return old, nil
}

// Swap exchanges leaves i and j. Both indices are validated before the
// tree is touched.
func (t *Tree[T, S, M]) Swap(i, j int) error {
	err := t.checkIndex(i)
	if err != nil {
		return err
	}

	err = t.checkIndex(j)
	if err != nil {
		return err
	}

	if i == j {
		return nil
	}

	vi := t.monoid.Unwrap(t.nodes[t.offset+i])

	vj, err := t.Update(j, vi)
	if err != nil {
		return err
	}

	_, err = t.Update(i, vj)

	return err
}

// Query folds the leaves covered by r and returns the unwrapped result.
// An empty or inverted range yields the unwrapped identity.
func (t *Tree[T, S, M]) Query(r Range) T {
	return t.monoid.Unwrap(t.Fold(r))
}

// Fold folds the leaves covered by r in left-to-right order and returns the
// monoid representation.
func (t *Tree[T, S, M]) Fold(r Range) S {
	left, right := r.indices(t.size)

	return t.fold(left, right)
}

// fold walks both boundaries upward. Nodes passed on the left are appended
// to leftAcc and nodes passed on the right are prepended to rightAcc, which
// keeps the combine order intact for non-commutative monoids.
func (t *Tree[T, S, M]) fold(left, right int) S {
	leftAcc := t.monoid.Identity()
	rightAcc := t.monoid.Identity()

	if left >= right {
		return leftAcc
	}

	left += t.offset
	right += t.offset

	for left < right {
		if left&1 == 1 {
			leftAcc = t.monoid.Combine(leftAcc, t.nodes[left])
			left++
		}

		if right&1 == 1 {
			right--
			rightAcc = t.monoid.Combine(t.nodes[right], rightAcc)
		}

		left >>= 1
		right >>= 1
	}

	return t.monoid.Combine(leftAcc, rightAcc)
}

// pull recomputes node from its two children.
func (t *Tree[T, S, M]) pull(node int) {
	t.nodes[node] = t.monoid.Combine(t.nodes[2*node], t.nodes[2*node+1])
}

// pullAncestors recomputes every ancestor of node up to the root.
func (t *Tree[T, S, M]) pullAncestors(node int) {
	for node > rootIndex {
		node >>= 1
		t.pull(node)
	}
}

func (t *Tree[T, S, M]) checkIndex(i int) error {
	if i < 0 || i >= t.size {
		return &IndexError{Index: i, Len: t.size}
	}

	return nil
}
