// Package monoid provides stock aggregation capabilities for segtree.Tree.
//
// Each type is a zero-size value implementing segtree.Monoid, so the
// combine operation is resolved at compile time through the tree's type
// parameter. Func is the exception: it carries closures and dispatches
// dynamically.
package monoid

import (
	"cmp"

	"golang.org/x/exp/constraints"

	"github.com/Sumatoshi-tech/segtree/pkg/mathutil"
)

// Number is the set of element types Sum and Product accept.
type Number interface {
	constraints.Integer | constraints.Float
}

// Sum adds elements. Identity is 0.
type Sum[T Number] struct{}

// Identity returns 0.
func (Sum[T]) Identity() T { return 0 }

// Combine returns a + b.
func (Sum[T]) Combine(a, b T) T { return a + b }

// Wrap returns v unchanged.
func (Sum[T]) Wrap(v T) T { return v }

// Unwrap returns s unchanged.
func (Sum[T]) Unwrap(s T) T { return s }

// Product multiplies elements. Identity is 1.
type Product[T Number] struct{}

// Identity returns 1.
func (Product[T]) Identity() T { return 1 }

// Combine returns a * b.
func (Product[T]) Combine(a, b T) T { return a * b }

// Wrap returns v unchanged.
func (Product[T]) Wrap(v T) T { return v }

// Unwrap returns s unchanged.
func (Product[T]) Unwrap(s T) T { return s }

// Xor combines elements with bitwise exclusive or. Identity is 0.
type Xor[T constraints.Integer] struct{}

// Identity returns 0.
func (Xor[T]) Identity() T { return 0 }

// Combine returns a ^ b.
func (Xor[T]) Combine(a, b T) T { return a ^ b }

// Wrap returns v unchanged.
func (Xor[T]) Wrap(v T) T { return v }

// Unwrap returns s unchanged.
func (Xor[T]) Unwrap(s T) T { return s }

// GCD folds elements to their greatest common divisor. Identity is 0, which
// is neutral for non-negative elements only; callers holding signed data
// must keep it non-negative.
type GCD[T constraints.Integer] struct{}

// Identity returns 0.
func (GCD[T]) Identity() T { return 0 }

// Combine returns gcd(a, b).
func (GCD[T]) Combine(a, b T) T { return mathutil.GCD(a, b) }

// Wrap returns v unchanged.
func (GCD[T]) Wrap(v T) T { return v }

// Unwrap returns s unchanged.
func (GCD[T]) Unwrap(s T) T { return s }

// LCM folds elements to their least common multiple. Identity is 1.
type LCM[T constraints.Integer] struct{}

// Identity returns 1.
func (LCM[T]) Identity() T { return 1 }

// Combine returns lcm(a, b).
func (LCM[T]) Combine(a, b T) T { return mathutil.LCM(a, b) }

// Wrap returns v unchanged.
func (LCM[T]) Wrap(v T) T { return v }

// Unwrap returns s unchanged.
func (LCM[T]) Unwrap(s T) T { return s }

// Concat joins strings left to right. Identity is "". It is the
// non-commutative member of the set.
type Concat struct{}

// Identity returns the empty string.
func (Concat) Identity() string { return "" }

// Combine returns a + b.
func (Concat) Combine(a, b string) string { return a + b }

// Wrap returns v unchanged.
func (Concat) Wrap(v string) string { return v }

// Unwrap returns s unchanged.
func (Concat) Unwrap(s string) string { return s }

// Extremum is the representation used by Max and Min. The identity is the
// invalid extremum, which loses every comparison, so no sentinel element
// value is needed.
type Extremum[T cmp.Ordered] struct {
	Value T
	Valid bool
}

// Max keeps the largest element.
type Max[T cmp.Ordered] struct{}

// Identity returns the invalid extremum.
func (Max[T]) Identity() Extremum[T] { return Extremum[T]{} }

// Combine returns the larger valid operand. Ties keep a.
func (Max[T]) Combine(a, b Extremum[T]) Extremum[T] {
	if !b.Valid || (a.Valid && cmp.Compare(a.Value, b.Value) >= 0) {
		return a
	}

	return b
}

// Wrap returns a valid extremum holding v.
func (Max[T]) Wrap(v T) Extremum[T] { return Extremum[T]{Value: v, Valid: true} }

// Unwrap returns the held value, or the zero T for the identity.
func (Max[T]) Unwrap(s Extremum[T]) T { return s.Value }

// Min keeps the smallest element.
type Min[T cmp.Ordered] struct{}

// Identity returns the invalid extremum.
func (Min[T]) Identity() Extremum[T] { return Extremum[T]{} }

// Combine returns the smaller valid operand. Ties keep a.
func (Min[T]) Combine(a, b Extremum[T]) Extremum[T] {
	if !b.Valid || (a.Valid && cmp.Compare(a.Value, b.Value) <= 0) {
		return a
	}

	return b
}

// Wrap returns a valid extremum holding v.
func (Min[T]) Wrap(v T) Extremum[T] { return Extremum[T]{Value: v, Valid: true} }

// Unwrap returns the held value, or the zero T for the identity.
func (Min[T]) Unwrap(s Extremum[T]) T { return s.Value }

// Func is a monoid assembled from closures for one-off aggregations.
// Unlike the other types here its Combine is an indirect call.
type Func[T any] struct {
	Neutral func() T
	Op      func(a, b T) T
}

// Identity returns f.Neutral().
func (f Func[T]) Identity() T { return f.Neutral() }

// Combine returns f.Op(a, b).
func (f Func[T]) Combine(a, b T) T { return f.Op(a, b) }

// Wrap returns v unchanged.
func (Func[T]) Wrap(v T) T { return v }

// Unwrap returns s unchanged.
func (Func[T]) Unwrap(s T) T { return s }
