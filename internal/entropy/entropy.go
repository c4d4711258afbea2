// Package entropy implements GCIF's symbol + zero-run-length entropy
// coder (spec.md §4.3): for each context, a Before-Zero/After-Zero pair
// of Huffman tables plus zero-run escape codes (ZRLE mode), with a
// basic single-table fallback chosen by simulated bit cost.
//
// The zero-run escape is written at the START of a run rather than at
// its close (ground truth: original_source/encoder/EntropyEncoder.hpp's
// add()/finalize() pass records each run's length into an ordered
// _runList during a full lookahead over the context's symbols; the
// later write() pass pops the next _runList entry the instant it sees
// the run's first zero). That is what lets many independent per-context
// Coders interleave their bits into one shared, raster-order bitstream:
// a decoder asked for context C's value at some position never needs
// bits that a later position will write.
//
// Reference: github.com/deepteams/webp internal/lossless/encode_histogram.go
// (bit-cost simulation driving a mode choice) generalized to GCIF's
// two-histogram ZRLE scheme, which VP8L does not have.
package entropy

import (
	"github.com/play-co/gcif-sub001/internal/bitio"
	"github.com/play-co/gcif-sub001/internal/huffman"
)

// ZRLESyms is the number of zero-run escape codes appended after the
// literal alphabet in the Before-Zero table (spec.md §4.3). The last
// one is the "long zero run" escape followed by a 255255-encoded extra
// count.
const ZRLESyms = 16

// Model holds the code lengths needed to reconstruct a context's
// encoder/decoder pair. It is itself serialized using the huffman
// package's table compressor.
type Model struct {
	NumSyms int
	UseZRLE bool

	BZLengths    []int // len NumSyms+ZRLESyms
	AZLengths    []int // len NumSyms
	BasicLengths []int // len NumSyms

	// runQueue holds each zero run's length, in the order the runs
	// occur in the symbol sequence BuildModel was given. It is
	// encode-side only (never serialized) and lets Coder emit a run's
	// escape the instant it sees the run's first zero, mirroring
	// EntropyEncoder::add()'s _runList.
	runQueue []int
}

// BuildModel analyzes a symbol sequence (each in [0, numSyms)) and
// chooses between ZRLE and basic mode by simulated bit cost.
func BuildModel(symbols []int, numSyms int) *Model {
	bzHist := make([]int, numSyms+ZRLESyms)
	azHist := make([]int, numSyms)
	basicHist := make([]int, numSyms)
	var runQueue []int

	run := 0
	for _, s := range symbols {
		basicHist[s]++
		if s == 0 {
			run++
			continue
		}
		if run > 0 {
			bzHist[escapeSymbol(numSyms, run)]++
			azHist[s]++
			runQueue = append(runQueue, run)
			run = 0
		} else {
			bzHist[s]++
		}
	}
	if run > 0 {
		bzHist[escapeSymbol(numSyms, run)]++
		runQueue = append(runQueue, run)
	}

	m := &Model{
		NumSyms:      numSyms,
		BZLengths:    huffman.BuildCodeLengths(bzHist, huffman.MaxCodeLength),
		AZLengths:    huffman.BuildCodeLengths(azHist, huffman.MaxCodeLength),
		BasicLengths: huffman.BuildCodeLengths(basicHist, huffman.MaxCodeLength),
		runQueue:     runQueue,
	}

	zrleCost := modelCost(m.BZLengths, bzHist) + modelCost(m.AZLengths, azHist)
	basicCost := modelCost(m.BasicLengths, basicHist)
	m.UseZRLE = zrleCost <= basicCost
	return m
}

func modelCost(lengths, hist []int) int {
	cost := 0
	for sym, n := range hist {
		cost += n * lengths[sym]
	}
	return cost
}

// escapeSymbol returns the BZ-table escape symbol for a zero run of the
// given length (>=1).
func escapeSymbol(numSyms, run int) int {
	if run < ZRLESyms {
		return numSyms + run - 1
	}
	return numSyms + ZRLESyms - 1
}

// Coder encodes one context's symbol stream using a Model. Symbols must
// be fed through EncodeSymbol (or EncodeStream) in the same order the
// Model was built from, since the run queue is consumed in that order.
type Coder struct {
	model *Model
	bz    *huffman.Encoder
	az    *huffman.Encoder
	basic *huffman.Encoder

	runQueue  []int
	runIdx    int
	pending   int // zeros remaining in the run whose escape was already written
	afterZero bool
}

// NewCoder builds an encoder-side Coder from a Model.
func NewCoder(m *Model) *Coder {
	c := &Coder{model: m, runQueue: m.runQueue}
	if m.UseZRLE {
		c.bz = huffman.NewEncoder(m.BZLengths)
		c.az = huffman.NewEncoder(m.AZLengths)
	} else {
		c.basic = huffman.NewEncoder(m.BasicLengths)
	}
	return c
}

// WriteHeader serializes the mode bit and the chosen table(s).
func (c *Coder) WriteHeader(w *bitio.Writer) {
	if c.model.UseZRLE {
		w.WriteBit(1)
		huffman.CompressLengths(w, c.model.BZLengths)
		huffman.CompressLengths(w, c.model.AZLengths)
	} else {
		w.WriteBit(0)
		huffman.CompressLengths(w, c.model.BasicLengths)
	}
}

// EncodeStream writes the full symbol sequence (excluding the header).
// The sequence must be the same one (and in the same order) used to
// build the Model this Coder came from.
func (c *Coder) EncodeStream(w *bitio.Writer, symbols []int) {
	for _, s := range symbols {
		c.EncodeSymbol(w, s)
	}
}

// EncodeSymbol writes one symbol of the context's stream. When it is
// the first zero of a run, the run's escape (and, for long runs, its
// 255255-encoded tail count) is written immediately using the next
// precomputed length from the Model's run queue — never deferred to
// the run's closing nonzero symbol.
func (c *Coder) EncodeSymbol(w *bitio.Writer, sym int) {
	if !c.model.UseZRLE {
		c.basic.WriteSymbol(w, sym)
		return
	}

	if c.pending > 0 {
		c.pending--
		if c.pending == 0 {
			c.afterZero = true
		}
		return
	}

	if sym == 0 {
		run := c.runQueue[c.runIdx]
		c.runIdx++
		c.emitRun(w, run)
		c.pending = run - 1
		if c.pending == 0 {
			c.afterZero = true
		}
		return
	}

	if c.afterZero {
		c.afterZero = false
		c.az.WriteSymbol(w, sym)
		return
	}
	c.bz.WriteSymbol(w, sym)
}

func (c *Coder) emitRun(w *bitio.Writer, run int) {
	esc := escapeSymbol(c.model.NumSyms, run)
	c.bz.WriteSymbol(w, esc)
	if esc == c.model.NumSyms+ZRLESyms-1 && run >= ZRLESyms {
		w.Write255255(run - ZRLESyms)
	}
}

// Decoder decodes one context's symbol stream using a Model read back
// from the bitstream.
type Decoder struct {
	model *Model
	bz    *huffman.Decoder
	az    *huffman.Decoder
	basic *huffman.Decoder

	pending   int
	afterZero bool
}

// ReadModel reads the mode bit and table(s) written by Coder.WriteHeader.
func ReadModel(r *bitio.Reader, numSyms int) (*Model, error) {
	m := &Model{NumSyms: numSyms}
	m.UseZRLE = r.ReadBit() == 1
	if m.UseZRLE {
		bz, err := huffman.DecompressLengths(r, numSyms+ZRLESyms)
		if err != nil {
			return nil, err
		}
		az, err := huffman.DecompressLengths(r, numSyms)
		if err != nil {
			return nil, err
		}
		m.BZLengths, m.AZLengths = bz, az
	} else {
		basic, err := huffman.DecompressLengths(r, numSyms)
		if err != nil {
			return nil, err
		}
		m.BasicLengths = basic
	}
	return m, nil
}

// NewDecoderFromModel builds a decoder-side Decoder from a Model.
func NewDecoderFromModel(m *Model) (*Decoder, error) {
	d := &Decoder{model: m}
	var err error
	if m.UseZRLE {
		d.bz, err = huffman.NewDecoder(m.BZLengths)
		if err != nil {
			return nil, err
		}
		d.az, err = huffman.NewDecoder(m.AZLengths)
		if err != nil {
			return nil, err
		}
	} else {
		d.basic, err = huffman.NewDecoder(m.BasicLengths)
		if err != nil {
			return nil, err
		}
	}
	return d, nil
}

// DecodeStream reverses EncodeStream for a known total symbol count.
func (d *Decoder) DecodeStream(r *bitio.Reader, count int) []int {
	out := make([]int, count)
	for i := 0; i < count; i++ {
		s, err := d.DecodeSymbol(r)
		if err != nil {
			break
		}
		out[i] = s
	}
	return out
}

// DecodeSymbol decodes the next symbol of this context's stream. State
// (pending run length, after-zero flag) is tracked on the Decoder
// itself, so a caller visiting several contexts' decoders in whatever
// interleaved order the bitstream was written in — e.g. one decoder
// per chaos bin, advanced only at that bin's own raster positions —
// gets back exactly the original sequence, no external bookkeeping
// required.
func (d *Decoder) DecodeSymbol(r *bitio.Reader) (int, error) {
	if !d.model.UseZRLE {
		return d.basic.ReadSymbol(r)
	}

	if d.pending > 0 {
		d.pending--
		if d.pending == 0 {
			d.afterZero = true
		}
		return 0, nil
	}

	if d.afterZero {
		d.afterZero = false
		return d.az.ReadSymbol(r)
	}

	s, err := d.bz.ReadSymbol(r)
	if err != nil {
		return 0, err
	}
	if s < d.model.NumSyms {
		return s, nil
	}

	run := s - d.model.NumSyms + 1
	if s == d.model.NumSyms+ZRLESyms-1 {
		extra := r.Read255255()
		run = ZRLESyms + extra
	}
	d.pending = run - 1
	if d.pending == 0 {
		d.afterZero = true
	}
	return 0, nil
}
