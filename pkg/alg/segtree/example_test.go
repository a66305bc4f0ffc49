package segtree_test

import (
	"fmt"

	"github.com/Sumatoshi-tech/segtree/pkg/alg/monoid"
	"github.com/Sumatoshi-tech/segtree/pkg/alg/segtree"
)

func Example() {
	tree := segtree.New[int, int]([]int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, monoid.Sum[int]{})

	fmt.Println(tree.Query(segtree.Span(2, 7)))

	prev, _ := tree.Update(5, 10)
	fmt.Println(prev, tree.Query(segtree.Span(2, 7)))

	// First index whose prefix sum reaches 15.
	idx, ok := tree.Bisect(segtree.All(), func(sum int) bool { return sum >= 15 }, segtree.Leftmost)
	fmt.Println(idx, ok)

	// Output:
	// 20
	// 5 25
	// 5 true
}

func ExampleTree_Bisect() {
	data := []int{2, -5, 122, -33, -12, 14, -55, 500, 3}
	tree := segtree.New[int, monoid.Extremum[int]](data, monoid.Max[int]{})

	atLeast10 := func(v int) bool { return v >= 10 }

	fmt.Println(tree.Bisect(segtree.Span(2, 5), atLeast10, segtree.Leftmost))
	fmt.Println(tree.Bisect(segtree.Span(3, 5), atLeast10, segtree.Leftmost))
	fmt.Println(tree.Bisect(segtree.All(), atLeast10, segtree.Rightmost))

	// Output:
	// 2 true
	// 0 false
	// 7 true
}
