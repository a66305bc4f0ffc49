package segtree_test

import (
	"testing"

	"github.com/Sumatoshi-tech/segtree/pkg/alg/segtree"
)

// Benchmark constants.
const (
	benchLeafCount = 1 << 16
	benchSpan      = 1000
)

func benchData() []int64 {
	data := make([]int64, benchLeafCount)
	for i := range data {
		data[i] = int64(i % benchSpan)
	}

	return data
}

// BenchmarkNew benchmarks construction.
func BenchmarkNew(b *testing.B) {
	data := benchData()

	b.ResetTimer()

	for range b.N {
		newSum(data)
	}
}

// BenchmarkUpdate benchmarks point updates.
func BenchmarkUpdate(b *testing.B) {
	tree := newSum(benchData())

	b.ResetTimer()

	for i := range b.N {
		_, _ = tree.Update(i%benchLeafCount, int64(i))
	}
}

// BenchmarkQuery benchmarks range folds.
func BenchmarkQuery(b *testing.B) {
	tree := newSum(benchData())

	b.ResetTimer()

	for i := range b.N {
		left := i % (benchLeafCount - benchSpan)
		tree.Query(segtree.Span(left, left+benchSpan))
	}
}

// BenchmarkBisect benchmarks prefix-sum bisection.
func BenchmarkBisect(b *testing.B) {
	tree := newSum(benchData())
	total := tree.Query(segtree.All())

	b.ResetTimer()

	for i := range b.N {
		target := int64(i) % total
		tree.Bisect(segtree.All(), func(v int64) bool { return v >= target }, segtree.Leftmost)
	}
}
