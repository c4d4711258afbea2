package huffman

import "github.com/play-co/gcif-sub001/internal/bitio"

// Encoder writes symbols using a fixed set of canonical codes.
type Encoder struct {
	codes []Code
}

// NewEncoder builds an Encoder from code lengths.
func NewEncoder(lengths []int) *Encoder {
	return &Encoder{codes: BuildCanonicalCodes(lengths)}
}

// WriteSymbol emits sym's canonical code, MSB-first.
func (e *Encoder) WriteSymbol(w *bitio.Writer, sym int) {
	c := e.codes[sym]
	if c.Len == 0 {
		return // unused symbol (length 0): no code to transmit
	}
	w.WriteBits(c.Bits, c.Len)
}

// BitLength returns the number of bits WriteSymbol(sym) would emit,
// used by entropy-cost estimation (spec.md §4.10).
func (e *Encoder) BitLength(sym int) int {
	return e.codes[sym].Len
}
