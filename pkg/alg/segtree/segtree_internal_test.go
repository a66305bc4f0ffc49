package segtree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sum is a minimal int monoid so the layout tests do not depend on the
// monoid package.
type sum struct{}

func (sum) Identity() int        { return 0 }
func (sum) Combine(a, b int) int { return a + b }
func (sum) Wrap(v int) int       { return v }
func (sum) Unwrap(s int) int     { return s }

// TestLayout_Build verifies the backing array after construction: slot 0
// unused, padding leaves hold the identity, internal nodes hold child sums.
func TestLayout_Build(t *testing.T) {
	t.Parallel()

	tree := New[int, int]([]int{10, 2, 3, 12, 13}, sum{})

	assert.Equal(t, []int{0, 40, 27, 13, 12, 15, 13, 0, 10, 2, 3, 12, 13, 0, 0, 0}, tree.nodes)
}

// TestLayout_Update verifies that an update rewrites exactly one leaf and
// its ancestor chain.
func TestLayout_Update(t *testing.T) {
	t.Parallel()

	tree := New[int, int]([]int{10, 2, 3, 12, 13}, sum{})

	prev, err := tree.Update(3, 22)
	require.NoError(t, err)
	assert.Equal(t, 12, prev)
	assert.Equal(t, []int{0, 50, 37, 13, 12, 25, 13, 0, 10, 2, 3, 22, 13, 0, 0, 0}, tree.nodes)
}

// TestLayout_Invariant verifies that every internal node equals the
// combination of its children after a sequence of mutations.
func TestLayout_Invariant(t *testing.T) {
	t.Parallel()

	tree := New[int, int]([]int{5, 1, 4, 1, 5, 9, 2, 6, 5, 3, 5}, sum{})

	_, err := tree.UpdateWith(4, func(v int) int { return v * 7 })
	require.NoError(t, err)
	require.NoError(t, tree.Swap(0, 10))

	for node := rootIndex; node < tree.offset; node++ {
		assert.Equal(t, tree.nodes[2*node]+tree.nodes[2*node+1], tree.nodes[node], "node %d", node)
	}

	for slot := tree.offset + tree.size; slot < len(tree.nodes); slot++ {
		assert.Equal(t, 0, tree.nodes[slot], "padding slot %d", slot)
	}
}

// TestLeafSlots verifies the power-of-two rounding.
func TestLeafSlots(t *testing.T) {
	t.Parallel()

	tests := map[int]int{0: 1, 1: 1, 2: 2, 3: 4, 4: 4, 5: 8, 1000: 1024, 1024: 1024, 1025: 2048}

	for n, want := range tests {
		assert.Equal(t, want, leafSlots(n), "n=%d", n)
	}
}
