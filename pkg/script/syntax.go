package script

import (
	"cmp"
	"fmt"
	"strconv"
	"strings"

	"github.com/Sumatoshi-tech/segtree/pkg/alg/segtree"
	"github.com/Sumatoshi-tech/segtree/pkg/mathutil"
)

const rangeSep = ".."

// ParseRange parses the a..b notation: "a..b" is [a, b), "a..=b" is
// [a, b], either end may be omitted, and an empty string means "..".
func ParseRange(s string) (segtree.Range, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return segtree.All(), nil
	}

	startText, endText, ok := strings.Cut(s, rangeSep)
	if !ok {
		return segtree.Range{}, fmt.Errorf("%w: %q", ErrInvalidRange, s)
	}

	var r segtree.Range

	if startText != "" {
		start, err := parseIndex(startText)
		if err != nil {
			return segtree.Range{}, fmt.Errorf("%w: %q", ErrInvalidRange, s)
		}

		r.Start = segtree.IncludedBound(start)
	}

	inclusive := strings.HasPrefix(endText, "=")
	endText = strings.TrimPrefix(endText, "=")

	switch {
	case endText == "" && inclusive:
		return segtree.Range{}, fmt.Errorf("%w: %q", ErrInvalidRange, s)
	case endText == "":
	default:
		end, err := parseIndex(endText)
		if err != nil {
			return segtree.Range{}, fmt.Errorf("%w: %q", ErrInvalidRange, s)
		}

		if inclusive {
			r.End = segtree.IncludedBound(end)
		} else {
			r.End = segtree.ExcludedBound(end)
		}
	}

	return r, nil
}

func parseIndex(s string) (int, error) {
	i, err := strconv.Atoi(s)
	if err != nil || i < 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidRange, s)
	}

	return i, nil
}

// ParseDirection maps "leftmost" (or "") and "rightmost" to a Direction.
func ParseDirection(s string) (segtree.Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", segtree.Leftmost.String():
		return segtree.Leftmost, nil
	case segtree.Rightmost.String():
		return segtree.Rightmost, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidDirection, s)
	}
}

// codec converts between script text and one element type.
type codec[T any] struct {
	parse     func(string) (T, error)
	predicate func(string) (func(T) bool, error)
	transform func(string) (func(T) T, error)
	magnitude func(T) float64
	format    func(T) string
	// check rejects elements the monoid has no identity for. Nil accepts all.
	check func(T) error
}

var int64Codec = codec[int64]{
	parse:     parseInt64,
	predicate: func(expr string) (func(int64) bool, error) { return comparison(expr, parseInt64) },
	transform: int64Transform,
	magnitude: func(v int64) float64 { return float64(v) },
	format:    func(v int64) string { return strconv.FormatInt(v, 10) },
}

// naturalCodec is int64Codec restricted to non-negative elements, for the
// gcd and lcm monoids whose identities are only neutral there.
var naturalCodec = func() codec[int64] {
	c := int64Codec
	c.check = requireNonNegative

	return c
}()

func requireNonNegative(v int64) error {
	if v < 0 {
		return fmt.Errorf("%w: %d is negative", ErrInvalidValue, v)
	}

	return nil
}

// validate applies check when the codec has one.
func (c codec[T]) validate(v T) error {
	if c.check == nil {
		return nil
	}

	return c.check(v)
}

var stringCodec = codec[string]{
	parse:     func(s string) (string, error) { return s, nil },
	predicate: stringPredicate,
	transform: stringTransform,
	magnitude: func(v string) float64 { return float64(len(v)) },
	format:    func(v string) string { return v },
}

func parseInt64(s string) (int64, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not an integer", ErrInvalidValue, s)
	}

	return v, nil
}

// splitOperator separates a leading operator token from its operand.
func splitOperator(expr string, operators []string) (op, operand string, ok bool) {
	expr = strings.TrimSpace(expr)

	for _, candidate := range operators {
		if rest, found := strings.CutPrefix(expr, candidate); found {
			return candidate, strings.TrimSpace(rest), true
		}
	}

	return "", "", false
}

// Two-character operators come first so ">=" is not read as ">".
var comparisonOperators = []string{">=", "<=", "==", "!=", ">", "<"}

// comparison builds a predicate of the form "<op> <literal>".
func comparison[T cmp.Ordered](expr string, parse func(string) (T, error)) (func(T) bool, error) {
	op, operand, ok := splitOperator(expr, comparisonOperators)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPredicate, expr)
	}

	want, err := parse(operand)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPredicate, err)
	}

	switch op {
	case ">=":
		return func(v T) bool { return cmp.Compare(v, want) >= 0 }, nil
	case "<=":
		return func(v T) bool { return cmp.Compare(v, want) <= 0 }, nil
	case "==":
		return func(v T) bool { return v == want }, nil
	case "!=":
		return func(v T) bool { return v != want }, nil
	case ">":
		return func(v T) bool { return cmp.Compare(v, want) > 0 }, nil
	default:
		return func(v T) bool { return cmp.Compare(v, want) < 0 }, nil
	}
}

func stringPredicate(expr string) (func(string) bool, error) {
	trimmed := strings.TrimSpace(expr)

	if rest, ok := strings.CutPrefix(trimmed, "contains "); ok {
		needle := strings.TrimSpace(rest)

		return func(v string) bool { return strings.Contains(v, needle) }, nil
	}

	if rest, ok := strings.CutPrefix(trimmed, "len>="); ok {
		n, err := strconv.Atoi(strings.TrimSpace(rest))
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPredicate, expr)
		}

		return func(v string) bool { return len(v) >= n }, nil
	}

	return comparison(expr, func(s string) (string, error) { return s, nil })
}

var int64Functions = []string{"+", "-", "*", "max", "min", "set"}

// int64Transform builds an update function of the form "<op> <literal>".
func int64Transform(expr string) (func(int64) int64, error) {
	op, operand, ok := splitOperator(expr, int64Functions)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidFunction, expr)
	}

	arg, err := parseInt64(operand)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFunction, err)
	}

	switch op {
	case "+":
		return func(v int64) int64 { return v + arg }, nil
	case "-":
		return func(v int64) int64 { return v - arg }, nil
	case "*":
		return func(v int64) int64 { return v * arg }, nil
	case "max":
		return func(v int64) int64 { return mathutil.Max(v, arg) }, nil
	case "min":
		return func(v int64) int64 { return mathutil.Min(v, arg) }, nil
	default:
		return func(int64) int64 { return arg }, nil
	}
}

var stringFunctions = []string{"append", "prepend", "set"}

func stringTransform(expr string) (func(string) string, error) {
	op, operand, ok := splitOperator(expr, stringFunctions)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidFunction, expr)
	}

	switch op {
	case "append":
		return func(v string) string { return v + operand }, nil
	case "prepend":
		return func(v string) string { return operand + v }, nil
	default:
		return func(string) string { return operand }, nil
	}
}
