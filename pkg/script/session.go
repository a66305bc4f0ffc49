package script

import (
	"fmt"

	"github.com/Sumatoshi-tech/segtree/pkg/alg/monoid"
	"github.com/Sumatoshi-tech/segtree/pkg/alg/segtree"
	"github.com/Sumatoshi-tech/segtree/pkg/config"
)

// Session is a segment tree whose monoid was chosen at runtime by name.
// Element values cross the interface as text on the way in and as int64,
// string, or slices of those on the way out.
//
// A Session is not safe for concurrent use; see the workspace package for
// the locking wrapper.
type Session interface {
	// Monoid returns the monoid name the session was built with.
	Monoid() string
	// Len returns the number of leaves.
	Len() int
	// Query folds r.
	Query(r segtree.Range) any
	// Get reads leaf i.
	Get(i int) (any, error)
	// Values copies the leaves covered by r.
	Values(r segtree.Range) any
	// Update parses value and stores it at leaf i, returning the old element.
	Update(i int, value string) (any, error)
	// Apply parses fn as a transform and applies it to leaf i, returning the
	// old element.
	Apply(i int, fn string) (any, error)
	// Swap exchanges leaves i and j.
	Swap(i, j int) error
	// Bisect parses predicate and searches r in dir.
	Bisect(r segtree.Range, predicate string, dir segtree.Direction) (int, bool, error)
	// Leaves renders every leaf in the text form NewSession accepts.
	Leaves() []string
	// Series returns the leaves and their running prefix folds as numbers
	// for charting. String elements are measured by length.
	Series() Series
}

// Series is the numeric view of a session used by charts.
type Series struct {
	Leaves []float64
	Prefix []float64
}

// NewSession builds a tree over data for the named monoid. maxLeaves <= 0
// disables the size check.
func NewSession(monoidName string, data []string, maxLeaves int) (Session, error) {
	if maxLeaves > 0 && len(data) > maxLeaves {
		return nil, fmt.Errorf("%w: %d > %d", ErrTooManyLeaves, len(data), maxLeaves)
	}

	switch monoidName {
	case "sum":
		return newTreeSession[int64, int64](monoidName, data, monoid.Sum[int64]{}, int64Codec)
	case "product":
		return newTreeSession[int64, int64](monoidName, data, monoid.Product[int64]{}, int64Codec)
	case "max":
		return newTreeSession[int64, monoid.Extremum[int64]](monoidName, data, monoid.Max[int64]{}, int64Codec)
	case "min":
		return newTreeSession[int64, monoid.Extremum[int64]](monoidName, data, monoid.Min[int64]{}, int64Codec)
	case "gcd":
		return newTreeSession[int64, int64](monoidName, data, monoid.GCD[int64]{}, naturalCodec)
	case "lcm":
		return newTreeSession[int64, int64](monoidName, data, monoid.LCM[int64]{}, naturalCodec)
	case "xor":
		return newTreeSession[int64, int64](monoidName, data, monoid.Xor[int64]{}, int64Codec)
	case "concat":
		return newTreeSession[string, string](monoidName, data, monoid.Concat{}, stringCodec)
	default:
		return nil, fmt.Errorf("%w: %q%s", ErrUnknownMonoid, monoidName, config.MonoidHint(monoidName))
	}
}

type treeSession[T, S any, M segtree.Monoid[T, S]] struct {
	name  string
	tree  *segtree.Tree[T, S, M]
	codec codec[T]
}

func newTreeSession[T, S any, M segtree.Monoid[T, S]](
	name string, raw []string, m M, c codec[T],
) (Session, error) {
	data := make([]T, len(raw))

	for i, text := range raw {
		v, err := c.parse(text)
		if err == nil {
			err = c.validate(v)
		}

		if err != nil {
			return nil, fmt.Errorf("data[%d]: %w", i, err)
		}

		data[i] = v
	}

	return &treeSession[T, S, M]{
		name:  name,
		tree:  segtree.New[T, S](data, m),
		codec: c,
	}, nil
}

func (s *treeSession[T, S, M]) Monoid() string {
	return s.name
}

func (s *treeSession[T, S, M]) Len() int {
	return s.tree.Len()
}

func (s *treeSession[T, S, M]) Query(r segtree.Range) any {
	return s.tree.Query(r)
}

func (s *treeSession[T, S, M]) Get(i int) (any, error) {
	v, err := s.tree.Get(i)
	if err != nil {
		return nil, err
	}

	return v, nil
}

func (s *treeSession[T, S, M]) Values(r segtree.Range) any {
	values := s.tree.Values(r)
	if values == nil {
		return []T{}
	}

	return values
}

func (s *treeSession[T, S, M]) Update(i int, value string) (any, error) {
	v, err := s.codec.parse(value)
	if err != nil {
		return nil, err
	}

	err = s.codec.validate(v)
	if err != nil {
		return nil, err
	}

	old, err := s.tree.Update(i, v)
	if err != nil {
		return nil, err
	}

	return old, nil
}

func (s *treeSession[T, S, M]) Apply(i int, fn string) (any, error) {
	f, err := s.codec.transform(fn)
	if err != nil {
		return nil, err
	}

	// A rejected result keeps the old element.
	var rejected error

	old, err := s.tree.UpdateWith(i, func(v T) T {
		next := f(v)

		rejected = s.codec.validate(next)
		if rejected != nil {
			return v
		}

		return next
	})
	if err != nil {
		return nil, err
	}

	if rejected != nil {
		return nil, rejected
	}

	return old, nil
}

func (s *treeSession[T, S, M]) Swap(i, j int) error {
	return s.tree.Swap(i, j)
}

func (s *treeSession[T, S, M]) Bisect(r segtree.Range, predicate string, dir segtree.Direction) (int, bool, error) {
	pred, err := s.codec.predicate(predicate)
	if err != nil {
		return 0, false, err
	}

	idx, found := s.tree.Bisect(r, pred, dir)

	return idx, found, nil
}

func (s *treeSession[T, S, M]) Leaves() []string {
	values := s.tree.Values(segtree.All())
	out := make([]string, len(values))

	for i, v := range values {
		out[i] = s.codec.format(v)
	}

	return out
}

func (s *treeSession[T, S, M]) Series() Series {
	n := s.tree.Len()
	series := Series{
		Leaves: make([]float64, n),
		Prefix: make([]float64, n),
	}

	for i, v := range s.tree.Values(segtree.All()) {
		series.Leaves[i] = s.codec.magnitude(v)
		series.Prefix[i] = s.codec.magnitude(s.tree.Query(segtree.To(i + 1)))
	}

	return series
}
