// Package mathutil provides generic integer math helper functions.
package mathutil

import "golang.org/x/exp/constraints"

// Min returns the smaller of a and b.
func Min[T constraints.Ordered](a, b T) T {
	if a < b {
		return a
	}

	return b
}

// Max returns the larger of a and b.
func Max[T constraints.Ordered](a, b T) T {
	if a < b {
		return b
	}

	return a
}

// Abs returns the absolute value of v. The minimum value of a signed type
// has no positive counterpart and is returned unchanged.
func Abs[T constraints.Integer](v T) T {
	if v < 0 {
		return -v
	}

	return v
}

// GCD returns the greatest common divisor of a and b using Euclid's
// algorithm. GCD(0, 0) is 0. The result is non-negative except when it would
// be the magnitude of the signed minimum, which Abs cannot represent:
// GCD(math.MinInt64, 0) is math.MinInt64.
func GCD[T constraints.Integer](a, b T) T {
	a, b = Abs(a), Abs(b)

	for b != 0 {
		a, b = b, a%b
	}

	return a
}

// LCM returns the least common multiple of a and b. LCM(x, 0) is 0.
// Overflow wraps as in ordinary integer arithmetic.
func LCM[T constraints.Integer](a, b T) T {
	if a == 0 || b == 0 {
		return 0
	}

	return Abs(a / GCD(a, b) * b)
}
