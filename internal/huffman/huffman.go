// Package huffman implements GCIF's canonical Huffman codec (spec.md
// §4.2): a code-length builder that minimizes expected length subject to
// a maximum length, a fast two-level lookup-table decoder, and a table
// compressor that Huffman-codes the codelens themselves (using the 17
// and 335 variable-length integer encodings for runs of zero codelens).
//
// Reference: github.com/deepteams/webp internal/lossless/huffman.go
// (BuildHuffmanTable), generalized from VP8L's fixed 5-alphabet model to
// GCIF's per-context variable alphabet.
package huffman

import (
	"errors"
	"sort"

	"github.com/play-co/gcif-sub001/internal/bitio"
)

// MaxCodeLength is the longest canonical code GCIF ever emits. It is
// sized to fit comfortably within the codelen-of-codelens alphabet used
// by the table compressor (§4.2 step 3).
const MaxCodeLength = 16

// RootBits sizes the first-level lookup table used by Decoder.
const RootBits = 11

var (
	ErrInvalidTree = errors.New("huffman: invalid code length set")
	ErrEmpty       = errors.New("huffman: all code lengths are zero")
)

// BuildCodeLengths derives canonical code lengths from a symbol
// histogram using a package-merge-free, simple two-pass greedy
// algorithm: a Huffman tree built by repeatedly merging the two
// smallest weights (via a min-heap substitute, a sorted slice, which is
// fine at GCIF's alphabet sizes), then clamped to maxLen by redistributing
// any overflow (Kraft-inequality repair).
func BuildCodeLengths(hist []int, maxLen int) []int {
	n := len(hist)
	lengths := make([]int, n)

	type node struct {
		weight int
		sym    int  // -1 for internal nodes
		left   int  // index into nodes, -1 if leaf
		right  int
	}
	var nodes []node
	active := []int{} // indices into nodes, live roots
	for i, w := range hist {
		if w == 0 {
			continue
		}
		nodes = append(nodes, node{weight: w, sym: i, left: -1, right: -1})
		active = append(active, len(nodes)-1)
	}
	if len(active) == 0 {
		return lengths
	}
	if len(active) == 1 {
		lengths[nodes[active[0]].sym] = 1
		return lengths
	}

	for len(active) > 1 {
		sort.Slice(active, func(i, j int) bool { return nodes[active[i]].weight < nodes[active[j]].weight })
		a, b := active[0], active[1]
		merged := node{weight: nodes[a].weight + nodes[b].weight, sym: -1, left: a, right: b}
		nodes = append(nodes, merged)
		active = append(active[2:], len(nodes)-1)
	}

	root := active[0]
	var walk func(idx, depth int)
	walk = func(idx, depth int) {
		nd := nodes[idx]
		if nd.sym >= 0 {
			d := depth
			if d == 0 {
				d = 1
			}
			lengths[nd.sym] = d
			return
		}
		walk(nd.left, depth+1)
		walk(nd.right, depth+1)
	}
	walk(root, 0)

	clampLengths(lengths, maxLen)
	return lengths
}

// clampLengths enforces the Kraft inequality after bounding every
// length to maxLen, following the standard "overflow redistribution"
// technique: codes that were clamped down free up Kraft budget that
// must be paid for by lengthening other codes.
func clampLengths(lengths []int, maxLen int) {
	overflow := 0
	for i, l := range lengths {
		if l > maxLen {
			overflow += 1 << uint(l-maxLen)
			lengths[i] = maxLen
		}
	}
	if overflow == 0 {
		return
	}
	// Kraft budget remaining, scaled by 1<<maxLen.
	budget := 0
	for _, l := range lengths {
		if l > 0 {
			budget += 1 << uint(maxLen-l)
		}
	}
	full := 1 << uint(maxLen)
	for budget > full {
		// Find the shortest non-zero code and lengthen it by one,
		// shrinking the Kraft budget it consumes by half.
		idx := -1
		best := maxLen + 1
		for i, l := range lengths {
			if l > 0 && l < best {
				best = l
				idx = i
			}
		}
		if idx < 0 || best >= maxLen {
			break
		}
		lengths[idx]++
		budget -= 1 << uint(maxLen-best-1)
	}
}

// Code is a canonical Huffman code (code value + bit length).
type Code struct {
	Bits uint32
	Len  int
}

// BuildCanonicalCodes assigns canonical codes from code lengths: symbols
// are ordered by (length, symbol index), and codes increment in that
// order, left-justified per length.
func BuildCanonicalCodes(lengths []int) []Code {
	n := len(lengths)
	codes := make([]Code, n)

	maxLen := 0
	for _, l := range lengths {
		if l > maxLen {
			maxLen = l
		}
	}
	if maxLen == 0 {
		return codes
	}

	var blCount [MaxCodeLength + 2]int
	for _, l := range lengths {
		if l > 0 {
			blCount[l]++
		}
	}
	var nextCode [MaxCodeLength + 2]uint32
	code := uint32(0)
	for bits := 1; bits <= maxLen; bits++ {
		code = (code + uint32(blCount[bits-1])) << 1
		nextCode[bits] = code
	}
	for sym, l := range lengths {
		if l == 0 {
			continue
		}
		codes[sym] = Code{Bits: nextCode[l], Len: l}
		nextCode[l]++
	}
	return codes
}

// tableEntry is one slot of the fast-path lookup table.
type tableEntry struct {
	length int
	symbol int
}

// Decoder is a fast canonical-Huffman decoder: a direct lookup table of
// up to 2^RootBits entries, falling back to a bit-by-bit tree walk for
// codes longer than the table width (spec.md §4.2).
type Decoder struct {
	lengths   []int
	codes     []Code
	table     []tableEntry // size 1<<tableBits, or nil if maxLen <= 0
	tableBits int
	maxLen    int
	long      map[int]int // (length<<20 | code) -> symbol, for codes longer than tableBits
}

// NewDecoder builds a Decoder from code lengths (0 = unused symbol).
func NewDecoder(lengths []int) (*Decoder, error) {
	maxLen := 0
	nonZero := 0
	for _, l := range lengths {
		if l > 0 {
			nonZero++
			if l > maxLen {
				maxLen = l
			}
		}
	}
	if nonZero == 0 {
		return &Decoder{lengths: lengths}, nil
	}
	if maxLen > MaxCodeLength {
		return nil, ErrInvalidTree
	}

	codes := BuildCanonicalCodes(lengths)

	tableBits := maxLen
	if tableBits > RootBits {
		tableBits = RootBits
	}
	d := &Decoder{lengths: lengths, codes: codes, tableBits: tableBits, maxLen: maxLen}
	if tableBits > 0 {
		d.table = make([]tableEntry, 1<<uint(tableBits))
		for sym, l := range lengths {
			if l == 0 || l > tableBits {
				continue
			}
			c := codes[sym]
			// Left-justify the code within tableBits and replicate
			// across all don't-care suffix bits.
			base := c.Bits << uint(tableBits-l)
			step := 1 << uint(tableBits-l)
			for idx := int(base); idx < int(base)+step; idx++ {
				d.table[idx] = tableEntry{length: l, symbol: sym}
			}
		}
	}
	for sym, l := range lengths {
		if l > tableBits {
			if d.long == nil {
				d.long = make(map[int]int)
			}
			d.long[l<<20|int(codes[sym].Bits)] = sym
		}
	}
	return d, nil
}

// ReadSymbol decodes the next symbol from r. Bits are consumed
// MSB-first to match bitio.Writer/Reader.
func (d *Decoder) ReadSymbol(r *bitio.Reader) (int, error) {
	if d.tableBits == 0 {
		// No used symbols: nothing can be decoded.
		for sym, l := range d.lengths {
			if l > 0 {
				return sym, nil
			}
		}
		return 0, ErrEmpty
	}
	prefix := r.PeekBits(d.tableBits)
	entry := d.table[prefix]
	if entry.length != 0 {
		r.Advance(entry.length)
		return entry.symbol, nil
	}
	if len(d.long) == 0 {
		return 0, ErrInvalidTree
	}
	// Tree-walk fallback for codes longer than the root table width:
	// grow the peeked prefix one bit at a time until it matches a known
	// long code.
	for l := d.tableBits + 1; l <= d.maxLen; l++ {
		v := r.PeekBits(l)
		if sym, ok := d.long[l<<20|int(v)]; ok {
			r.Advance(l)
			return sym, nil
		}
	}
	return 0, ErrInvalidTree
}
