package segtree_test

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/segtree/pkg/alg/segtree"
)

// Bisect test constants.
const (
	bisectSeed1     = 7
	bisectSeed2     = 11
	bisectLeafCount = 37
	bisectMaxValue  = 9
	bisectRounds    = 200
)

func atLeast(threshold int64) func(int64) bool {
	return func(v int64) bool { return v >= threshold }
}

// TestBisect_Leftmost verifies leftmost search over the max monoid.
func TestBisect_Leftmost(t *testing.T) {
	t.Parallel()

	tree := newMax(mixedSigns())

	idx, found := tree.Bisect(segtree.Span(2, 5), atLeast(10), segtree.Leftmost)
	require.True(t, found)
	assert.Equal(t, 2, idx)

	_, found = tree.Bisect(segtree.Span(3, 5), atLeast(10), segtree.Leftmost)
	assert.False(t, found)

	_, err := tree.Update(2, -5)
	require.NoError(t, err)

	idx, found = tree.Bisect(segtree.Span(1, 3), atLeast(-5), segtree.Leftmost)
	require.True(t, found)
	assert.Equal(t, 1, idx)

	_, found = tree.Bisect(segtree.Span(1, 5), atLeast(500), segtree.Leftmost)
	assert.False(t, found)

	idx, found = tree.Bisect(segtree.Span(5, 10), atLeast(500), segtree.Leftmost)
	require.True(t, found)
	assert.Equal(t, 7, idx)
}

// TestBisect_Rightmost verifies rightmost search over the max monoid.
func TestBisect_Rightmost(t *testing.T) {
	t.Parallel()

	tree := newMax(mixedSigns())

	idx, found := tree.Bisect(segtree.Span(2, 5), atLeast(10), segtree.Rightmost)
	require.True(t, found)
	assert.Equal(t, 2, idx)

	_, found = tree.Bisect(segtree.Span(3, 5), atLeast(10), segtree.Rightmost)
	assert.False(t, found)

	_, err := tree.Update(2, -5)
	require.NoError(t, err)

	idx, found = tree.Bisect(segtree.Span(1, 3), atLeast(-5), segtree.Rightmost)
	require.True(t, found)
	assert.Equal(t, 2, idx)

	_, found = tree.Bisect(segtree.Span(1, 5), atLeast(500), segtree.Rightmost)
	assert.False(t, found)

	idx, found = tree.Bisect(segtree.Span(5, 10), atLeast(500), segtree.Rightmost)
	require.True(t, found)
	assert.Equal(t, 7, idx)

	_, err = tree.Update(3, -5)
	require.NoError(t, err)

	idx, found = tree.Bisect(segtree.Span(1, 5), atLeast(-5), segtree.Rightmost)
	require.True(t, found)
	assert.Equal(t, 3, idx)

	_, err = tree.Update(4, -5)
	require.NoError(t, err)

	idx, found = tree.Bisect(segtree.Span(1, 5), atLeast(-5), segtree.Rightmost)
	require.True(t, found)
	assert.Equal(t, 4, idx)
}

// TestBisect_EmptyRange verifies that empty and inverted ranges never match.
func TestBisect_EmptyRange(t *testing.T) {
	t.Parallel()

	tree := newSum(zeroToTen())
	always := func(int64) bool { return true }

	for _, r := range []segtree.Range{segtree.Span(4, 4), segtree.Span(6, 2), segtree.From(20)} {
		_, found := tree.Bisect(r, always, segtree.Leftmost)
		assert.False(t, found, "%s", r)

		_, found = tree.Bisect(r, always, segtree.Rightmost)
		assert.False(t, found, "%s", r)
	}
}

// TestBisect_SingleLeafRange verifies that a one-leaf range only tests that leaf.
func TestBisect_SingleLeafRange(t *testing.T) {
	t.Parallel()

	tree := newSum(zeroToTen())

	idx, found := tree.Bisect(segtree.Span(6, 7), atLeast(6), segtree.Leftmost)
	require.True(t, found)
	assert.Equal(t, 6, idx)

	_, found = tree.Bisect(segtree.Span(6, 7), atLeast(7), segtree.Rightmost)
	assert.False(t, found)
}

// TestBisect_PrefixSums verifies leftmost search against a linear scan of
// prefix sums over non-negative data.
func TestBisect_PrefixSums(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewPCG(bisectSeed1, bisectSeed2))
	data := randomData(rng, bisectLeafCount)
	tree := newSum(data)

	for range bisectRounds {
		from := rng.IntN(len(data))
		to := from + rng.IntN(len(data)-from) + 1
		target := rng.Int64N(int64(bisectMaxValue * (to - from + 1)))

		wantIdx, wantFound := scanPrefix(data, from, to, target)
		gotIdx, gotFound := tree.Bisect(segtree.Span(from, to), atLeast(target), segtree.Leftmost)

		require.Equal(t, wantFound, gotFound, "[%d, %d) target %d", from, to, target)

		if wantFound {
			assert.Equal(t, wantIdx, gotIdx, "[%d, %d) target %d", from, to, target)
		}
	}
}

// TestBisect_SuffixSums verifies rightmost search against a linear scan of
// suffix sums over non-negative data.
func TestBisect_SuffixSums(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewPCG(bisectSeed2, bisectSeed1))
	data := randomData(rng, bisectLeafCount)
	tree := newSum(data)

	for range bisectRounds {
		from := rng.IntN(len(data))
		to := from + rng.IntN(len(data)-from) + 1
		target := rng.Int64N(int64(bisectMaxValue * (to - from + 1)))

		wantIdx, wantFound := scanSuffix(data, from, to, target)
		gotIdx, gotFound := tree.Bisect(segtree.Span(from, to), atLeast(target), segtree.Rightmost)

		require.Equal(t, wantFound, gotFound, "[%d, %d) target %d", from, to, target)

		if wantFound {
			assert.Equal(t, wantIdx, gotIdx, "[%d, %d) target %d", from, to, target)
		}
	}
}

// TestBisect_NonMonotoneTerminates verifies that a predicate violating the
// monotonicity precondition still returns an index inside the range.
func TestBisect_NonMonotoneTerminates(t *testing.T) {
	t.Parallel()

	tree := newSum(zeroToTen())
	odd := func(v int64) bool { return v%2 == 1 }

	for _, dir := range []segtree.Direction{segtree.Leftmost, segtree.Rightmost} {
		idx, found := tree.Bisect(segtree.Span(2, 9), odd, dir)
		if found {
			assert.GreaterOrEqual(t, idx, 2)
			assert.Less(t, idx, 9)
		}
	}
}

// TestDirection_String verifies direction names.
func TestDirection_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "leftmost", segtree.Leftmost.String())
	assert.Equal(t, "rightmost", segtree.Rightmost.String())
}

func randomData(rng *rand.Rand, n int) []int64 {
	data := make([]int64, n)
	for i := range data {
		data[i] = rng.Int64N(bisectMaxValue + 1)
	}

	return data
}

func scanPrefix(data []int64, from, to int, target int64) (int, bool) {
	var acc int64

	for k := from; k < to; k++ {
		acc += data[k]
		if acc >= target {
			return k, true
		}
	}

	return 0, false
}

func scanSuffix(data []int64, from, to int, target int64) (int, bool) {
	var acc int64

	for k := to - 1; k >= from; k-- {
		acc += data[k]
		if acc >= target {
			return k, true
		}
	}

	return 0, false
}
