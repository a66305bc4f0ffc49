package script_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/segtree/pkg/alg/segtree"
	"github.com/Sumatoshi-tech/segtree/pkg/script"
)

func TestParseRange(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  segtree.Range
	}{
		{"", segtree.All()},
		{"..", segtree.All()},
		{" 2..5 ", segtree.Span(2, 5)},
		{"2..=5", segtree.Closed(2, 5)},
		{"3..", segtree.From(3)},
		{"..4", segtree.To(4)},
		{"..=4", segtree.Through(4)},
		{"0..0", segtree.Span(0, 0)},
		{"0..=9223372036854775807", segtree.Closed(0, math.MaxInt64)},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()

			got, err := script.ParseRange(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// TestParseRange_RoundTrip verifies that Range.String output parses back to
// the same range.
func TestParseRange_RoundTrip(t *testing.T) {
	t.Parallel()

	for _, r := range []segtree.Range{
		segtree.Span(1, 7), segtree.Closed(0, 3), segtree.From(9), segtree.To(2), segtree.Through(6), segtree.All(),
	} {
		got, err := script.ParseRange(r.String())
		require.NoError(t, err, r.String())
		assert.Equal(t, r, got)
	}
}

func TestParseRange_Invalid(t *testing.T) {
	t.Parallel()

	for _, input := range []string{"5", "1-2", "a..b", "-1..3", "2..=", "1..2..3", "..=-1"} {
		_, err := script.ParseRange(input)
		assert.ErrorIs(t, err, script.ErrInvalidRange, input)
	}
}

func TestParseDirection(t *testing.T) {
	t.Parallel()

	dir, err := script.ParseDirection("")
	require.NoError(t, err)
	assert.Equal(t, segtree.Leftmost, dir)

	dir, err = script.ParseDirection("Rightmost")
	require.NoError(t, err)
	assert.Equal(t, segtree.Rightmost, dir)

	_, err = script.ParseDirection("up")
	require.ErrorIs(t, err, script.ErrInvalidDirection)
}
