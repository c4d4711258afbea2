package huffman

import "github.com/play-co/gcif-sub001/internal/bitio"

// Table compression (spec.md §4.2 steps 2-3): a primary encoder's code
// lengths (0..16) are themselves entropy-coded so the table header is
// small. Runs of unused (zero) code lengths collapse into a single
// 335-encoded run length; every other code length is a literal symbol
// in a small alphabet {0..16, zeroRun} that is Huffman-coded with a
// fixed table built once at init time (never transmitted).
//
// Design note: spec.md's component table (§2) describes this as "a
// second Huffman over codelen deltas", while its prose (§4.2) describes
// a 17-encoding with a 335 run-length escape. This implementation picks
// the latter reading, generalized so the literal alphabet itself is
// entropy-coded (rather than raw 4-bit 17-encoded) since that is a
// strict improvement and still satisfies "fixed tiny table" (the
// literal alphabet's Huffman table is fixed, not per-image). See
// DESIGN.md.
const (
	metaAlphabetSize = MaxCodeLength + 2 // 0..16 literal, plus the zero-run escape
	zeroRunSymbol    = MaxCodeLength + 1
)

var metaLengths []int
var metaEncoder *Encoder
var metaDecoder *Decoder

func init() {
	// Hand-tuned static weights: codelen 0 (unused) and the zero-run
	// escape are overwhelmingly common in sparse tables; short codelens
	// are more common than long ones.
	weights := make([]int, metaAlphabetSize)
	weights[0] = 1000
	weights[zeroRunSymbol] = 800
	for i := 1; i <= MaxCodeLength; i++ {
		weights[i] = 400 / i
		if weights[i] == 0 {
			weights[i] = 1
		}
	}
	metaLengths = BuildCodeLengths(weights, 7)
	metaEncoder = NewEncoder(metaLengths)
	var err error
	metaDecoder, err = NewDecoder(metaLengths)
	if err != nil {
		panic("huffman: invalid fixed meta table: " + err.Error())
	}
}

// CompressLengths writes the code-length array lengths (each 0..16)
// using the fixed meta table plus 335-encoded zero runs.
func CompressLengths(w *bitio.Writer, lengths []int) {
	i := 0
	for i < len(lengths) {
		if lengths[i] == 0 {
			run := 1
			for i+run < len(lengths) && lengths[i+run] == 0 {
				run++
			}
			metaEncoder.WriteSymbol(w, zeroRunSymbol)
			w.Write335(run - 1)
			i += run
			continue
		}
		metaEncoder.WriteSymbol(w, lengths[i])
		i++
	}
}

// DecompressLengths reads numSymbols code lengths written by
// CompressLengths.
func DecompressLengths(r *bitio.Reader, numSymbols int) ([]int, error) {
	lengths := make([]int, numSymbols)
	i := 0
	for i < numSymbols {
		sym, err := metaDecoder.ReadSymbol(r)
		if err != nil {
			return nil, err
		}
		if sym == zeroRunSymbol {
			run := r.Read335() + 1
			i += run
			continue
		}
		if i >= numSymbols {
			return nil, ErrInvalidTree
		}
		lengths[i] = sym
		i++
	}
	return lengths, nil
}
