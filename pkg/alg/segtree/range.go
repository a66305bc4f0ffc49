package segtree

import (
	"fmt"
	"math"
)

// BoundKind classifies one end of a Range.
type BoundKind uint8

// Bound kinds.
const (
	Unbounded BoundKind = iota
	Included
	Excluded
)

// Bound is one end of a Range.
type Bound struct {
	Kind  BoundKind
	Index int
}

// IncludedBound returns a bound that contains i.
func IncludedBound(i int) Bound {
	return Bound{Kind: Included, Index: i}
}

// ExcludedBound returns a bound that stops just short of i.
func ExcludedBound(i int) Bound {
	return Bound{Kind: Excluded, Index: i}
}

// Range selects a contiguous run of leaves. The zero value covers every leaf.
type Range struct {
	Start Bound
	End   Bound
}

// Span returns the half-open range [left, right).
func Span(left, right int) Range {
	return Range{Start: IncludedBound(left), End: ExcludedBound(right)}
}

// Closed returns the inclusive range [left, right].
func Closed(left, right int) Range {
	return Range{Start: IncludedBound(left), End: IncludedBound(right)}
}

// From returns the range [left, len).
func From(left int) Range {
	return Range{Start: IncludedBound(left)}
}

// To returns the range [0, right).
func To(right int) Range {
	return Range{End: ExcludedBound(right)}
}

// Through returns the range [0, right].
func Through(right int) Range {
	return Range{End: IncludedBound(right)}
}

// All returns the range covering every leaf.
func All() Range {
	return Range{}
}

// Bounds returns the half-open leaf indices selected by r in a tree of n
// leaves, clamped to [0, n]. The result may be empty (left >= right).
func (r Range) Bounds(n int) (left, right int) {
	return r.indices(n)
}

func (r Range) indices(n int) (left, right int) {
	switch r.Start.Kind {
	case Included:
		left = r.Start.Index
	case Excluded:
		left = successor(r.Start.Index)
	case Unbounded:
		left = 0
	}

	switch r.End.Kind {
	case Included:
		right = successor(r.End.Index)
	case Excluded:
		right = r.End.Index
	case Unbounded:
		right = n
	}

	return clamp(left, n), clamp(right, n)
}

// successor returns i+1, saturating at math.MaxInt. Any index that large
// clamps to n anyway.
func successor(i int) int {
	if i == math.MaxInt {
		return i
	}

	return i + 1
}

func clamp(i, n int) int {
	switch {
	case i < 0:
		return 0
	case i > n:
		return n
	default:
		return i
	}
}

// String renders r in the a..b / a..=b notation.
func (r Range) String() string {
	var start string

	switch r.Start.Kind {
	case Included:
		start = fmt.Sprint(r.Start.Index)
	case Excluded:
		start = fmt.Sprint(r.Start.Index + 1)
	case Unbounded:
	}

	switch r.End.Kind {
	case Included:
		return fmt.Sprintf("%s..=%d", start, r.End.Index)
	case Excluded:
		return fmt.Sprintf("%s..%d", start, r.End.Index)
	case Unbounded:
	}

	return start + ".."
}
