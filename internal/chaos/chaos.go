// Package chaos implements GCIF's order-1 residual-activity classifier
// (spec.md §4.4): each residual byte contributes a small "score", the
// scores of a pixel's already-decoded neighbors are summed, and a fixed
// monotone table maps that sum to one of chaos_levels context bins used
// to pick which entropy model (internal/entropy) a residual is coded
// under.
//
// Reference: github.com/deepteams/webp internal/lossless/encode_histogram.go
// (the idea of a small derived context selecting among several entropy
// models) and internal/lossless/encode_predictor.go (residual byte
// arithmetic); GCIF's chaos table itself has no VP8L analogue and is
// built directly from spec.md's score()/CHAOS_TABLE description.
package chaos

// MaxSum is the largest possible sum of neighbor scores the table must
// cover (spec.md §4.4: CHAOS_TABLE[0..510]).
const MaxSum = 510

// MaxLevels bounds chaos_levels, stored in a 4-bit header field
// (spec.md §4.4).
const MaxLevels = 16

// Score maps a residual byte to its "activity" contribution: small
// near 0 or 256 (mod-wraparound neighbors), large near 128.
func Score(r uint8) int {
	v := int(r)
	if v <= 128 {
		return v
	}
	return 256 - v
}

// Table is a fixed monotone mapping from a neighbor-score sum to a
// chaos bin index in [0, levels).
type Table struct {
	levels int
	bins   [MaxSum + 1]int
}

// NewTable builds the classifier table for the given number of chaos
// levels (1..MaxLevels), splitting the sum domain into contiguous bands
// of increasing width so low-activity sums (the common case in smooth
// images) get finer-grained bins.
func NewTable(levels int) *Table {
	if levels < 1 {
		levels = 1
	}
	if levels > MaxLevels {
		levels = MaxLevels
	}
	t := &Table{levels: levels}
	if levels == 1 {
		return t
	}
	// Quadratic banding: bin boundaries grow as i^2 so the classifier is
	// most sensitive at low sums, where most real images concentrate.
	var bounds [MaxLevels]int
	for i := 1; i < levels; i++ {
		bounds[i] = MaxSum * i * i / ((levels - 1) * (levels - 1))
	}
	for sum := 0; sum <= MaxSum; sum++ {
		bin := 0
		for i := 1; i < levels; i++ {
			if sum >= bounds[i] {
				bin = i
			}
		}
		t.bins[sum] = bin
	}
	return t
}

// Levels reports the table's chaos_levels.
func (t *Table) Levels() int { return t.levels }

// Index classifies a neighbor-score sum, clamping out-of-range input.
func (t *Table) Index(sum int) int {
	if sum < 0 {
		sum = 0
	}
	if sum > MaxSum {
		sum = MaxSum
	}
	return t.bins[sum]
}

// NeighborSum sums the Score of a pixel's left and upper residuals, the
// order-1 context used throughout the RGBA and mono writers. Missing
// neighbors (image edges) pass 0.
func NeighborSum(left, up uint8, haveLeft, haveUp bool) int {
	sum := 0
	if haveLeft {
		sum += Score(left)
	}
	if haveUp {
		sum += Score(up)
	}
	return sum
}
