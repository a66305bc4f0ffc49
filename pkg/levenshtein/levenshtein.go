// Package levenshtein measures edit distance between short identifiers and
// picks the closest known name for "did you mean" hints.
package levenshtein

// Context reuses its scratch column between calls. It is not safe for
// concurrent use.
type Context struct {
	column []int
}

func (ctx *Context) scratch(length int) []int {
	if cap(ctx.column) < length {
		ctx.column = make([]int, length)
	}

	return ctx.column[:length]
}

// Distance returns the minimum number of single-rune insertions, deletions
// and substitutions turning a into b. It keeps one column of the DP table.
func (ctx *Context) Distance(a, b string) int {
	ra, rb := []rune(a), []rune(b)

	if len(rb) == 0 {
		return len(ra)
	}

	column := ctx.scratch(len(ra) + 1)
	for i := range column {
		column[i] = i
	}

	for j, r := range rb {
		diag := column[0]
		column[0] = j + 1

		for i := range ra {
			above := column[i+1]

			cost := 1
			if ra[i] == r {
				cost = 0
			}

			column[i+1] = min(above+1, column[i]+1, diag+cost)
			diag = above
		}
	}

	return column[len(ra)]
}

// Closest returns the candidate nearest to name when it is within
// maxDistance edits. Ties go to the earlier candidate.
func Closest(name string, candidates []string, maxDistance int) (string, bool) {
	var (
		ctx  Context
		best string
	)

	bestDistance := maxDistance + 1

	for _, candidate := range candidates {
		d := ctx.Distance(name, candidate)
		if d < bestDistance {
			best, bestDistance = candidate, d
		}
	}

	return best, bestDistance <= maxDistance
}
