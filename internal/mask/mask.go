// Package mask implements GCIF's dominant-colour mask layer (spec.md
// §4.6 step 1 / component F): a bitmap marking every pixel equal to the
// image's single most common colour, transmitted as alternating
// run-lengths rather than per-pixel bits so large flat regions (the
// common case for sprite backgrounds and UI chrome) cost almost
// nothing.
//
// Reference: spec.md's "Mask" entity (§3.1) for the bitmap's bit order
// contract (row-major, MSB-first per word); the run-length wire shape
// reuses the 255255 variable-length integer encoding GCIF's own entropy
// layer uses for zero-run lengths (internal/entropy), rather than a
// fresh scheme, per spec.md §4.1's note that the 255255 encoding is the
// project's general-purpose run-length VLC.
package mask

import (
	"github.com/play-co/gcif-sub001/internal/bitio"
)

// Mask is a bitmap of claimed pixels for one image.
type Mask struct {
	Width, Height int
	Color         uint32
	bits          []bool // row-major, true = claimed by the mask layer
}

// FindDominantColor returns the most frequent colour in pixels and its
// occurrence count.
func FindDominantColor(pixels []uint32) (uint32, int) {
	counts := make(map[uint32]int, 64)
	for _, p := range pixels {
		counts[p]++
	}
	var best uint32
	bestCount := -1
	for c, n := range counts {
		if n > bestCount || (n == bestCount && c < best) {
			best, bestCount = c, n
		}
	}
	return best, bestCount
}

// Build marks every pixel equal to color as claimed.
func Build(pixels []uint32, width, height int, color uint32) *Mask {
	m := &Mask{Width: width, Height: height, Color: color, bits: make([]bool, width*height)}
	for i, p := range pixels {
		m.bits[i] = p == color
	}
	return m
}

// Get reports whether (x, y) is claimed by the mask.
func (m *Mask) Get(x, y int) bool {
	return m.bits[y*m.Width+x]
}

// Claim marks (x, y) as claimed.
func (m *Mask) Claim(x, y int) {
	m.bits[y*m.Width+x] = true
}

// CoverageRatio returns the fraction of pixels currently claimed.
func (m *Mask) CoverageRatio() float64 {
	n := 0
	for _, b := range m.bits {
		if b {
			n++
		}
	}
	return float64(n) / float64(len(m.bits))
}

// Write serializes the mask: an enabled bit, then (if enabled) the
// dominant colour word and the claimed-bit runs.
func Write(w *bitio.Writer, m *Mask, enabled bool) {
	if !enabled || m == nil {
		w.WriteBit(0)
		return
	}
	w.WriteBit(1)
	w.WriteWord(m.Color)
	writeRuns(w, m.bits)
}

// Read deserializes a mask written by Write, returning nil when the
// enabled bit is clear. The returned Mask's Color is the dominant
// colour the caller fills claimed pixels with.
func Read(r *bitio.Reader, width, height int) *Mask {
	if r.ReadBit() == 0 {
		return nil
	}
	color := r.ReadWord()
	m := &Mask{Width: width, Height: height, Color: color, bits: make([]bool, width*height)}
	readRuns(r, m.bits)
	return m
}

// writeRuns emits alternating run lengths starting with a (possibly
// zero-length) run of unclaimed pixels.
func writeRuns(w *bitio.Writer, bits []bool) {
	i := 0
	cur := false // runs alternate starting with "false" (unclaimed)
	for i < len(bits) {
		run := 0
		for i < len(bits) && bits[i] == cur {
			run++
			i++
		}
		w.Write255255(run)
		cur = !cur
	}
}

func readRuns(r *bitio.Reader, bits []bool) {
	i := 0
	cur := false
	for i < len(bits) {
		run := r.Read255255()
		for k := 0; k < run && i < len(bits); k++ {
			bits[i] = cur
			i++
		}
		cur = !cur
	}
}
