package segtree_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/segtree/pkg/alg/monoid"
	"github.com/Sumatoshi-tech/segtree/pkg/alg/segtree"
)

type (
	sumTree    = segtree.Tree[int64, int64, monoid.Sum[int64]]
	maxTree    = segtree.Tree[int64, monoid.Extremum[int64], monoid.Max[int64]]
	minTree    = segtree.Tree[int64, monoid.Extremum[int64], monoid.Min[int64]]
	concatTree = segtree.Tree[string, string, monoid.Concat]
)

func newSum(data []int64) *sumTree {
	return segtree.New[int64, int64](data, monoid.Sum[int64]{})
}

func newMax(data []int64) *maxTree {
	return segtree.New[int64, monoid.Extremum[int64]](data, monoid.Max[int64]{})
}

func newMin(data []int64) *minTree {
	return segtree.New[int64, monoid.Extremum[int64]](data, monoid.Min[int64]{})
}

func newConcat(data []string) *concatTree {
	return segtree.New[string, string](data, monoid.Concat{})
}

func zeroToTen() []int64 {
	return []int64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
}

func mixedSigns() []int64 {
	return []int64{2, -5, 122, -33, -12, 14, -55, 500, 3}
}

// TestNew_Len verifies length and leaf offset after construction.
func TestNew_Len(t *testing.T) {
	t.Parallel()

	tests := []struct {
		n          int
		wantOffset int
	}{
		{n: 0, wantOffset: 1},
		{n: 1, wantOffset: 1},
		{n: 2, wantOffset: 2},
		{n: 5, wantOffset: 8},
		{n: 8, wantOffset: 8},
		{n: 9, wantOffset: 16},
	}

	for _, tt := range tests {
		tree := newSum(make([]int64, tt.n))
		assert.Equal(t, tt.n, tree.Len())
		assert.Equal(t, tt.wantOffset, tree.LeafOffset(), "n=%d", tt.n)
	}
}

// TestEmptyTree verifies every operation on a zero-length tree.
func TestEmptyTree(t *testing.T) {
	t.Parallel()

	sum := newSum(nil)
	assert.Equal(t, int64(0), sum.Query(segtree.All()))
	assert.Equal(t, int64(0), sum.Query(segtree.Span(0, 1)))
	assert.Nil(t, sum.Values(segtree.All()))

	_, found := sum.Bisect(segtree.All(), func(int64) bool { return true }, segtree.Leftmost)
	assert.False(t, found)

	_, err := sum.Update(0, 1)
	require.ErrorIs(t, err, segtree.ErrIndexOutOfRange)

	assert.Equal(t, int64(0), newMax([]int64{}).Query(segtree.All()))
	assert.Equal(t, int64(1), segtree.New[int64, int64](nil, monoid.Product[int64]{}).Query(segtree.All()))
	assert.Empty(t, newConcat(nil).Query(segtree.All()))
	assert.Equal(t, monoid.Extremum[int64]{}, newMin(nil).Fold(segtree.All()))
}

// TestSingleLeaf verifies a one-leaf tree where the leaf is also the root.
func TestSingleLeaf(t *testing.T) {
	t.Parallel()

	tree := newSum([]int64{4})
	assert.Equal(t, int64(4), tree.Query(segtree.Span(0, 1)))
	assert.Equal(t, int64(0), tree.Query(segtree.Span(0, 0)))

	prev, err := tree.Update(0, 100)
	require.NoError(t, err)
	assert.Equal(t, int64(4), prev)
	assert.Equal(t, int64(100), tree.Query(segtree.All()))
	assert.Equal(t, int64(0), tree.Query(segtree.Span(0, 0)))
}

// TestSum_UpdateQuery verifies the sum scenario from the reference data.
func TestSum_UpdateQuery(t *testing.T) {
	t.Parallel()

	tree := newSum(zeroToTen())
	assert.Equal(t, int64(7), tree.Query(segtree.Span(3, 5)))
	assert.Equal(t, int64(20), tree.Query(segtree.Span(2, 7)))
	assert.Equal(t, int64(55), tree.Query(segtree.Span(0, 11)))
	assert.Equal(t, int64(55), tree.Query(segtree.All()))

	prev, err := tree.Update(5, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(5), prev)

	assert.Equal(t, int64(7), tree.Query(segtree.Span(3, 5)))
	assert.Equal(t, int64(7), tree.Query(segtree.Closed(3, 4)))
	assert.Equal(t, int64(25), tree.Query(segtree.Span(2, 7)))
	assert.Equal(t, int64(60), tree.Query(segtree.Span(0, 11)))
	assert.Equal(t, int64(60), tree.Query(segtree.From(1)))

	prev, err = tree.UpdateWith(7, func(v int64) int64 { return v * 2 })
	require.NoError(t, err)
	assert.Equal(t, int64(7), prev)
	assert.Equal(t, int64(20), tree.Query(segtree.To(6)))
	assert.Equal(t, int64(28), tree.Query(segtree.Closed(6, 8)))
}

// TestQuery_Bounds verifies clamping of out-of-range and inverted ranges.
func TestQuery_Bounds(t *testing.T) {
	t.Parallel()

	tree := newSum([]int64{0, 1, 2, 3, 4, 5, 6, 7})
	assert.Equal(t, int64(0), tree.Query(segtree.Span(0, 1)))
	assert.Equal(t, int64(0), tree.Query(segtree.Span(0, 0)))
	assert.Equal(t, int64(0), tree.Query(segtree.Span(9, 3)))
	assert.Equal(t, int64(0), tree.Query(segtree.Span(5, 2)))
	assert.Equal(t, int64(28), tree.Query(segtree.Span(-4, 100)))
	assert.Equal(t, int64(14), tree.Query(segtree.Span(2, 6)))
	assert.Equal(t, int64(9), tree.Query(segtree.Span(2, 5)))
	assert.Equal(t, int64(12), tree.Query(segtree.Span(3, 6)))
	assert.Equal(t, int64(28), tree.Query(segtree.Through(7)))
}

// TestProduct verifies the product monoid including a zero factor.
func TestProduct(t *testing.T) {
	t.Parallel()

	tree := segtree.New[int64, int64](zeroToTen(), monoid.Product[int64]{})
	assert.Equal(t, int64(12), tree.Query(segtree.Span(3, 5)))
	assert.Equal(t, int64(720), tree.Query(segtree.Span(2, 7)))
	assert.Equal(t, int64(0), tree.Query(segtree.Span(0, 11)))

	_, err := tree.Update(5, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(12), tree.Query(segtree.Span(3, 5)))
	assert.Equal(t, int64(1440), tree.Query(segtree.Span(2, 7)))
	assert.Equal(t, int64(0), tree.Query(segtree.From(0)))

	_, err = tree.UpdateWith(7, func(v int64) int64 { return v / 2 })
	require.NoError(t, err)
	assert.Equal(t, int64(180), tree.Query(segtree.Closed(5, 7)))
	assert.Equal(t, int64(720), tree.Query(segtree.From(8)))
}

// TestMax verifies the max monoid.
func TestMax(t *testing.T) {
	t.Parallel()

	tree := newMax(mixedSigns())
	assert.Equal(t, int64(-12), tree.Query(segtree.Span(3, 5)))
	assert.Equal(t, int64(122), tree.Query(segtree.Closed(2, 6)))
	assert.Equal(t, int64(500), tree.Query(segtree.All()))

	_, err := tree.Update(5, 1000)
	require.NoError(t, err)
	assert.Equal(t, int64(-12), tree.Query(segtree.Closed(3, 4)))
	assert.Equal(t, int64(1000), tree.Query(segtree.Span(2, 7)))
	assert.Equal(t, int64(1000), tree.Query(segtree.To(10)))
}

// TestMin verifies the min monoid.
func TestMin(t *testing.T) {
	t.Parallel()

	tree := newMin([]int64{2, -5, 122, 33, 12, 14, -55, 500, 3})
	assert.Equal(t, int64(12), tree.Query(segtree.Span(3, 5)))
	assert.Equal(t, int64(-55), tree.Query(segtree.Span(2, 7)))
	assert.Equal(t, int64(-55), tree.Query(segtree.From(0)))

	_, err := tree.Update(5, -1000)
	require.NoError(t, err)
	assert.Equal(t, int64(12), tree.Query(segtree.Span(3, 5)))
	assert.Equal(t, int64(-1000), tree.Query(segtree.Span(2, 7)))
	assert.Equal(t, int64(-1000), tree.Query(segtree.To(10)))
}

// TestGCD verifies the gcd monoid.
func TestGCD(t *testing.T) {
	t.Parallel()

	tree := segtree.New[uint64, uint64]([]uint64{10, 3, 4, 8, 6, 2}, monoid.GCD[uint64]{})
	assert.Equal(t, uint64(4), tree.Query(segtree.Span(2, 4)))
	assert.Equal(t, uint64(2), tree.Query(segtree.Span(2, 6)))
	assert.Equal(t, uint64(1), tree.Query(segtree.Span(0, 6)))

	_, err := tree.Update(5, 7)
	require.NoError(t, err)
	assert.Equal(t, uint64(4), tree.Query(segtree.Span(2, 4)))
	assert.Equal(t, uint64(1), tree.Query(segtree.Span(2, 6)))
	assert.Equal(t, uint64(1), tree.Query(segtree.Span(0, 6)))
}

// TestLCM verifies the lcm monoid.
func TestLCM(t *testing.T) {
	t.Parallel()

	tree := segtree.New[uint64, uint64]([]uint64{10, 3, 4, 8, 6, 2}, monoid.LCM[uint64]{})
	assert.Equal(t, uint64(8), tree.Query(segtree.Span(2, 4)))
	assert.Equal(t, uint64(24), tree.Query(segtree.Span(2, 6)))
	assert.Equal(t, uint64(120), tree.Query(segtree.Span(0, 6)))

	_, err := tree.Update(5, 7)
	require.NoError(t, err)
	assert.Equal(t, uint64(8), tree.Query(segtree.Span(2, 4)))
	assert.Equal(t, uint64(168), tree.Query(segtree.Span(2, 6)))
	assert.Equal(t, uint64(840), tree.Query(segtree.Span(0, 6)))
}

// TestXor verifies the xor monoid.
func TestXor(t *testing.T) {
	t.Parallel()

	tree := segtree.New[uint64, uint64]([]uint64{0b111, 0b101, 0b100, 0b000, 0b010}, monoid.Xor[uint64]{})
	assert.Equal(t, uint64(0b100), tree.Query(segtree.Span(2, 4)))
	assert.Equal(t, uint64(0b110), tree.Query(segtree.Span(2, 5)))
	assert.Equal(t, uint64(0b100), tree.Query(segtree.Span(0, 5)))

	_, err := tree.Update(4, 0b110)
	require.NoError(t, err)
	assert.Equal(t, uint64(0b100), tree.Query(segtree.Span(2, 4)))
	assert.Equal(t, uint64(0b010), tree.Query(segtree.Span(2, 5)))
	assert.Equal(t, uint64(0b000), tree.Query(segtree.Span(0, 5)))
}

// TestConcat_PreservesOrder verifies left-to-right combine order for a
// non-commutative monoid over every range.
func TestConcat_PreservesOrder(t *testing.T) {
	t.Parallel()

	data := []string{"a", "b", "c", "d", "e", "f", "g"}
	tree := newConcat(data)

	for left := 0; left <= len(data); left++ {
		for right := left; right <= len(data); right++ {
			want := ""
			for _, s := range data[left:right] {
				want += s
			}

			assert.Equal(t, want, tree.Query(segtree.Span(left, right)), "[%d, %d)", left, right)
		}
	}

	_, err := tree.Update(3, "XY")
	require.NoError(t, err)
	assert.Equal(t, "bcXYe", tree.Query(segtree.Span(1, 5)))
}

// TestUpdate_OutOfRange verifies index validation on every mutating call.
func TestUpdate_OutOfRange(t *testing.T) {
	t.Parallel()

	tree := newSum(zeroToTen())

	for _, idx := range []int{-1, 11, 100} {
		_, err := tree.Update(idx, 1)
		require.ErrorIs(t, err, segtree.ErrIndexOutOfRange)

		var idxErr *segtree.IndexError
		require.True(t, errors.As(err, &idxErr))
		assert.Equal(t, idx, idxErr.Index)
		assert.Equal(t, 11, idxErr.Len)

		_, err = tree.Get(idx)
		require.ErrorIs(t, err, segtree.ErrIndexOutOfRange)
	}

	called := false
	_, err := tree.UpdateWith(11, func(v int64) int64 {
		called = true

		return v
	})
	require.ErrorIs(t, err, segtree.ErrIndexOutOfRange)
	assert.False(t, called)

	assert.Equal(t, int64(55), tree.Query(segtree.All()))
}

// TestSwap verifies exchanging two leaves and failure atomicity.
func TestSwap(t *testing.T) {
	t.Parallel()

	tree := newConcat([]string{"a", "b", "c", "d"})

	require.NoError(t, tree.Swap(0, 3))
	assert.Equal(t, "dbca", tree.Query(segtree.All()))

	require.NoError(t, tree.Swap(2, 2))
	assert.Equal(t, "dbca", tree.Query(segtree.All()))

	err := tree.Swap(1, 4)
	require.ErrorIs(t, err, segtree.ErrIndexOutOfRange)
	assert.Equal(t, "dbca", tree.Query(segtree.All()))

	err = tree.Swap(-1, 1)
	require.ErrorIs(t, err, segtree.ErrIndexOutOfRange)
	assert.Equal(t, "dbca", tree.Query(segtree.All()))
}

// TestGetValues verifies index and index-range reads.
func TestGetValues(t *testing.T) {
	t.Parallel()

	tree := newMax(mixedSigns())

	v, err := tree.Get(2)
	require.NoError(t, err)
	assert.Equal(t, int64(122), v)

	assert.Equal(t, mixedSigns(), tree.Values(segtree.All()))
	assert.Equal(t, []int64{-33, -12, 14}, tree.Values(segtree.Span(3, 6)))
	assert.Equal(t, []int64{3}, tree.Values(segtree.From(8)))
	assert.Nil(t, tree.Values(segtree.Span(4, 4)))

	values := tree.Values(segtree.All())
	values[0] = 999

	v, err = tree.Get(0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)
}

// affine is x -> Mul*x + Add.
type affine struct {
	Mul, Add int64
}

// TestFuncMonoid verifies the closure-backed monoid with affine map
// composition, which is associative but not commutative.
func TestFuncMonoid(t *testing.T) {
	t.Parallel()

	compose := monoid.Func[affine]{
		Neutral: func() affine { return affine{Mul: 1} },
		// Apply a first, then b.
		Op: func(a, b affine) affine {
			return affine{Mul: a.Mul * b.Mul, Add: a.Add*b.Mul + b.Add}
		},
	}

	data := []affine{{Mul: 2, Add: 1}, {Mul: 3, Add: 0}, {Mul: 1, Add: 5}}
	tree := segtree.New[affine, affine](data, compose)

	// x -> ((2x+1)*3)+5 = 6x+8.
	assert.Equal(t, affine{Mul: 6, Add: 8}, tree.Query(segtree.All()))
	// x -> 3x+5.
	assert.Equal(t, affine{Mul: 3, Add: 5}, tree.Query(segtree.From(1)))
	assert.Equal(t, affine{Mul: 1}, tree.Query(segtree.Span(2, 2)))
}
