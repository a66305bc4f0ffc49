package segtree

// Direction selects which boundary Bisect looks for.
type Direction uint8

const (
	// Leftmost finds the first index k in [from, to) such that
	// pred(Query(Span(from, k+1))) holds.
	Leftmost Direction = iota
	// Rightmost finds the last index k in [from, to) such that
	// pred(Query(Span(k, to))) holds.
	Rightmost
)

// String returns the lowercase name of the direction.
func (d Direction) String() string {
	if d == Rightmost {
		return "rightmost"
	}

	return "leftmost"
}

// Bisect binary-searches r for the boundary leaf where pred changes truth
// value. For Leftmost, pred is evaluated on prefixes of r and must be false
// up to some length and true from there on. For Rightmost, pred is
// evaluated on suffixes of r with the mirrored requirement.
//
// It returns the boundary index and true, or false when pred does not hold
// for any prefix (suffix) of r. An empty range never matches.
//
// Monotonicity is not verified. For a non-monotone pred the call still
// terminates, but the returned index has no defined meaning.
//
// Each of the O(log N) halving steps issues one O(log N) fold.
func (t *Tree[T, S, M]) Bisect(r Range, pred func(T) bool, dir Direction) (int, bool) {
	from, to := r.indices(t.size)
	if from >= to {
		return 0, false
	}

	if dir == Rightmost {
		return t.bisectRightmost(from, to, pred)
	}

	return t.bisectLeftmost(from, to, pred)
}

// bisectLeftmost keeps acc = fold(start, from) so every candidate is a full
// prefix of the original range.
func (t *Tree[T, S, M]) bisectLeftmost(from, to int, pred func(T) bool) (int, bool) {
	acc := t.monoid.Identity()

	for to-from > 1 {
		mid := from + (to-from)/2
		candidate := t.monoid.Combine(acc, t.fold(from, mid))

		if pred(t.monoid.Unwrap(candidate)) {
			to = mid
		} else {
			acc = candidate
			from = mid
		}
	}

	last := t.monoid.Combine(acc, t.nodes[t.offset+from])
	if pred(t.monoid.Unwrap(last)) {
		return from, true
	}

	return 0, false
}

// bisectRightmost keeps acc = fold(to, end) so every candidate is a full
// suffix of the original range.
func (t *Tree[T, S, M]) bisectRightmost(from, to int, pred func(T) bool) (int, bool) {
	acc := t.monoid.Identity()

	for to-from > 1 {
		mid := from + (to-from)/2
		candidate := t.monoid.Combine(t.fold(mid, to), acc)

		if pred(t.monoid.Unwrap(candidate)) {
			from = mid
		} else {
			acc = candidate
			to = mid
		}
	}

	last := t.monoid.Combine(t.nodes[t.offset+from], acc)
	if pred(t.monoid.Unwrap(last)) {
		return from, true
	}

	return 0, false
}
