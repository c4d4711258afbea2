// Package lz implements GCIF's 2-D LZ exact-match pass (spec.md §4.9):
// before per-pixel filtering, the encoder looks for rectangular regions
// of pixels that exactly duplicate an earlier region (the common case
// for sprite sheets and tiled game art) and replaces each with a single
// match record, so the filter/entropy stages never see the duplicate
// pixels at all.
//
// Reference: github.com/deepteams/webp internal/lossless/hashchain.go
// (rolling hash-chain match search over a 1-D ARGB pixel stream),
// generalized here to grow a 1-D row match into a 2-D rectangle by
// checking the same horizontal run on successive rows.
//
// Known simplification (see DESIGN.md): matches are found with a
// hash-chain rather than a suffix array, and are transmitted as an
// explicit up-front list (count + records) rather than interleaved
// escape codes in the Y-channel entropy stream. Both are compatible
// with spec.md's match-record contract (§3.1, §8.2); only the finder
// algorithm and the transmission granularity differ.
package lz

const (
	// MinWidth/MinHeight is the smallest rectangle worth transmitting as
	// a match: anything smaller costs more in record overhead than it
	// saves in suppressed filter/entropy coding.
	MinWidth  = 4
	MinHeight = 2

	hashBits = 16
	hashSize = 1 << hashBits

	hashMulHi = uint32(0xc6a4a793)
	hashMulLo = uint32(0x5bd1e996)
)

// Match is one exact-duplicate rectangle: the W x H block at (DestX,
// DestY) is pixel-identical to the block at (SrcX, SrcY), which lies
// earlier in raster order.
type Match struct {
	DestX, DestY int
	SrcX, SrcY   int
	W, H         int
}

func rowHash(row []uint32, x int) uint32 {
	key := row[x+1]*hashMulHi + row[x]*hashMulLo
	return key >> (32 - hashBits)
}

// Finder locates 2-D exact-match rectangles in a packed RGBA image
// (row-major, one uint32 per pixel).
type Finder struct {
	pixels        []uint32
	width, height int
}

// NewFinder wraps a packed pixel buffer for match search.
func NewFinder(pixels []uint32, width, height int) *Finder {
	return &Finder{pixels: pixels, width: width, height: height}
}

func (f *Finder) at(x, y int) uint32 { return f.pixels[y*f.width+x] }

func (f *Finder) rowAt(y int) []uint32 { return f.pixels[y*f.width : (y+1)*f.width] }

// rowMatchLen returns how many consecutive pixels starting at (srcX,
// srcY) equal those starting at (destX, destY), capped by the row bounds.
func (f *Finder) rowMatchLen(srcX, srcY, destX, destY, limit int) int {
	src, dest := f.rowAt(srcY), f.rowAt(destY)
	n := 0
	for n < limit && srcX+n < f.width && destX+n < f.width && src[srcX+n] == dest[destX+n] {
		n++
	}
	return n
}

// FindMatches scans the image in raster order and greedily emits
// non-overlapping rectangular matches against already-covered pixels
// earlier in the stream, using a hash chain over 2-pixel row prefixes
// to locate candidate source rows.
func (f *Finder) FindMatches() []Match {
	covered := make([]bool, len(f.pixels))
	var matches []Match

	head := make([]int32, hashSize)
	for i := range head {
		head[i] = -1
	}
	chain := make([]int32, f.width*f.height)
	for i := range chain {
		chain[i] = -1
	}

	pos := func(x, y int) int { return y*f.width + x }

	for y := 0; y < f.height; y++ {
		for x := 0; x+1 < f.width; x++ {
			p := pos(x, y)
			if covered[p] {
				continue
			}
			h := rowHash(f.rowAt(y), x)

			bestW, bestH, bestSX, bestSY := 0, 0, 0, 0
			tries := 0
			for cand := head[h]; cand >= 0 && tries < 32; cand, tries = chain[cand], tries+1 {
				sy := int(cand) / f.width
				sx := int(cand) % f.width
				if sy == y && sx >= x {
					continue
				}
				w := f.rowMatchLen(sx, sy, x, y, f.width-x)
				if w < MinWidth {
					continue
				}
				h2 := 1
				for y+h2 < f.height && sy+h2 < f.height {
					if f.rowMatchLen(sx, sy+h2, x, y+h2, w) < w {
						break
					}
					h2++
				}
				if h2 < MinHeight {
					continue
				}
				if w*h2 > bestW*bestH {
					bestW, bestH, bestSX, bestSY = w, h2, sx, sy
				}
			}

			chain[p] = head[h]
			head[h] = int32(p)

			if bestW >= MinWidth && bestH >= MinHeight {
				matches = append(matches, Match{DestX: x, DestY: y, SrcX: bestSX, SrcY: bestSY, W: bestW, H: bestH})
				for dy := 0; dy < bestH; dy++ {
					for dx := 0; dx < bestW; dx++ {
						covered[pos(x+dx, y+dy)] = true
					}
				}
				x += bestW - 1
			}
		}
	}
	return matches
}

// Mask builds a boolean plane marking every pixel covered by some
// match, for the filter/entropy stages to skip.
func Mask(width, height int, matches []Match) []bool {
	covered := make([]bool, width*height)
	for _, m := range matches {
		for dy := 0; dy < m.H; dy++ {
			row := (m.DestY + dy) * width
			for dx := 0; dx < m.W; dx++ {
				covered[row+m.DestX+dx] = true
			}
		}
	}
	return covered
}
