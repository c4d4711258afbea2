// Package mono implements GCIF's recursive single-channel tile coder
// (spec.md §4.8): the generic workhorse shared by the alpha plane,
// global-palette indices, and the RGBA writer's own SF-map/CF-map
// (internal/rgba). A flat byte plane is partitioned into tiles, each
// tile picks a first-order predictor (reusing internal/filter's SF_*
// catalogue plus per-image "palette filters" that predict a constant
// value), residuals are classified into chaos bins (internal/chaos),
// and each bin gets its own internal/entropy.Coder (BZ/AZ Huffman
// tables plus ZRLE zero-run escapes). The tile-filter assignment itself
// is small enough to recurse through the same coder, bottoming out in
// a flat, unbinned entropy-coded leaf that reuses the same Coder type
// over the plane's raw symbol alphabet instead of a per-bin residual
// alphabet.
//
// Reference: github.com/deepteams/webp internal/lossless/encode_histogram.go
// for the per-candidate cost-simulation pattern (here applied to SF
// candidates per tile instead of VP8L's per-image predictor), and
// spec.md §9's note that the filter-map recursion is bounded and
// should be expressed as an explicit-depth call rather than unbounded
// self-similarity.
package mono

import (
	"github.com/play-co/gcif-sub001/internal/bitio"
	"github.com/play-co/gcif-sub001/internal/chaos"
	"github.com/play-co/gcif-sub001/internal/entropy"
	"github.com/play-co/gcif-sub001/internal/filter"
)

// residualSyms is the alphabet size for tile-residual coding: a
// residual is a mod-256 byte difference (data minus predictor),
// independent of numSyms (the plane's raw-symbol alphabet, which only
// bounds leaf coding — see encodeLeaf/decodeLeaf).
const residualSyms = 256

// MaskFunc reports whether (x, y) is already accounted for by an
// earlier layer (mask or LZ) and should be skipped entirely.
type MaskFunc func(x, y int) bool

const (
	maxDepth          = 3
	leafPixelCeiling  = 48
	maxPaletteFilters = 4
	sympalThresh      = 0.1
	numChaosLevels    = 8
)

var tileBitCandidates = []int{2, 3}

// plane is the shared encode/decode scratch: reconstructed byte values
// and their residuals, both addressed row-major.
type plane struct {
	width, height int
	data          []uint8
	residual      []uint8
	maskFn        MaskFunc
	maskValue     uint8
}

func newPlane(width, height int, maskFn MaskFunc, maskValue uint8) *plane {
	p := &plane{width: width, height: height, maskFn: maskFn, maskValue: maskValue}
	p.data = make([]uint8, width*height)
	p.residual = make([]uint8, width*height)
	for i := range p.data {
		p.data[i] = maskValue
	}
	return p
}

func (p *plane) neighborhood(x, y int) filter.Neighborhood {
	var n filter.Neighborhood
	if x > 0 {
		n.A = p.data[y*p.width+x-1]
	}
	if y > 0 {
		n.B = p.data[(y-1)*p.width+x]
		if x > 0 {
			n.C = p.data[(y-1)*p.width+x-1]
		}
		if x+1 < p.width {
			n.D = p.data[(y-1)*p.width+x+1]
		} else {
			n.D = n.B
		}
	}
	return n
}

func (p *plane) chaosSum(x, y int) int {
	var left, up uint8
	haveLeft, haveUp := x > 0, y > 0
	if haveLeft {
		left = p.residual[y*p.width+x-1]
	}
	if haveUp {
		up = p.residual[(y-1)*p.width+x]
	}
	return chaos.NeighborSum(left, up, haveLeft, haveUp)
}

// catalogue is the combined first-order + palette-filter id space for
// one mono coder invocation.
type catalogue struct {
	paletteValues []uint8
}

func (c *catalogue) size() int { return int(filter.SFFixedCount) + len(c.paletteValues) }

func (c *catalogue) predict(id int, n filter.Neighborhood) uint8 {
	if id < int(filter.SFFixedCount) {
		return filter.Predict(filter.SF(id), n)
	}
	return c.paletteValues[id-int(filter.SFFixedCount)]
}

// discoverPaletteFilters implements spec.md §4.8 step 2: tiles whose
// unmasked pixels are all one value vote for that value; values
// covering more than sympalThresh of all tiles are promoted.
func discoverPaletteFilters(p *plane, tileSize int) []uint8 {
	tilesX := (p.width + tileSize - 1) / tileSize
	tilesY := (p.height + tileSize - 1) / tileSize
	totalTiles := tilesX * tilesY
	if totalTiles == 0 {
		return nil
	}
	votes := make(map[uint8]int)
	for ty := 0; ty < tilesY; ty++ {
		for tx := 0; tx < tilesX; tx++ {
			v, uniform, any := uint8(0), true, false
			for y := ty * tileSize; y < (ty+1)*tileSize && y < p.height; y++ {
				for x := tx * tileSize; x < (tx+1)*tileSize && x < p.width; x++ {
					if p.maskFn(x, y) {
						continue
					}
					val := p.data[y*p.width+x]
					if !any {
						v, any = val, true
					} else if val != v {
						uniform = false
					}
				}
			}
			if any && uniform {
				votes[v]++
			}
		}
	}
	type kv struct {
		v uint8
		n int
	}
	var ranked []kv
	for v, n := range votes {
		if float64(n)/float64(totalTiles) > sympalThresh {
			ranked = append(ranked, kv{v, n})
		}
	}
	// Simple insertion sort by descending count; catalogues are tiny.
	for i := 1; i < len(ranked); i++ {
		for j := i; j > 0 && ranked[j].n > ranked[j-1].n; j-- {
			ranked[j], ranked[j-1] = ranked[j-1], ranked[j]
		}
	}
	if len(ranked) > maxPaletteFilters {
		ranked = ranked[:maxPaletteFilters]
	}
	out := make([]uint8, len(ranked))
	for i, r := range ranked {
		out[i] = r.v
	}
	return out
}

// designTiles picks, for each tile, the catalogue entry minimizing the
// L1 prediction error over the tile's unmasked pixels (spec.md §4.8
// step 3/5, single-pass: see DESIGN.md "Known simplifications" for the
// omitted multi-pass revisit and neighbour-tie-break bonus).
func designTiles(p *plane, tileSize int, cat *catalogue) []uint8 {
	tilesX := (p.width + tileSize - 1) / tileSize
	tilesY := (p.height + tileSize - 1) / tileSize
	assignment := make([]uint8, tilesX*tilesY)
	for ty := 0; ty < tilesY; ty++ {
		for tx := 0; tx < tilesX; tx++ {
			bestID, bestCost := 0, -1
			for id := 0; id < cat.size(); id++ {
				cost := 0
				for y := ty * tileSize; y < (ty+1)*tileSize && y < p.height; y++ {
					for x := tx * tileSize; x < (tx+1)*tileSize && x < p.width; x++ {
						if p.maskFn(x, y) {
							continue
						}
						pred := cat.predict(id, p.neighborhood(x, y))
						d := int(p.data[y*p.width+x]) - int(pred)
						if d < 0 {
							d = -d
						}
						cost += d
					}
				}
				if bestCost < 0 || cost < bestCost {
					bestCost, bestID = cost, id
				}
			}
			assignment[ty*tilesX+tx] = uint8(bestID)
		}
	}
	return assignment
}

// Encode writes data (width*height bytes, symbols in [0, numSyms)) to
// bw. maskFn identifies pixels already accounted for elsewhere
// (spec.md §4.6's mask/LZ delegate); maskValue fills those positions so
// they remain valid prediction neighbours. depth bounds filter-map
// recursion.
func Encode(bw *bitio.Writer, data []uint8, width, height int, maskFn MaskFunc, maskValue uint8, numSyms int, depth int) {
	if maskFn == nil {
		maskFn = func(int, int) bool { return false }
	}
	n := width * height
	if depth >= maxDepth || n <= leafPixelCeiling {
		bw.WriteBit(1)
		encodeLeaf(bw, data, width, height, maskFn, numSyms)
		return
	}
	bw.WriteBit(0)

	p := newPlane(width, height, maskFn, maskValue)
	copy(p.data, data)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if maskFn(x, y) {
				p.data[y*width+x] = maskValue
			}
		}
	}

	bestTileSize, bestCat, bestAssign, bestCost := 0, (*catalogue)(nil), []uint8(nil), -1
	for _, bits := range tileBitCandidates {
		tileSize := 1 << uint(bits)
		cat := &catalogue{paletteValues: discoverPaletteFilters(p, tileSize)}
		assign := designTiles(p, tileSize, cat)
		cost := estimateAssignmentCost(p, tileSize, cat, assign)
		if bestCost < 0 || cost < bestCost {
			bestCost, bestTileSize, bestCat, bestAssign = cost, tileSize, cat, assign
		}
	}

	tileBits := 2
	for ; 1<<uint(tileBits) != bestTileSize; tileBits++ {
	}
	bw.WriteBits(uint32(tileBits), 3)

	bw.WriteBits(uint32(len(bestCat.paletteValues)), 3)
	for _, v := range bestCat.paletteValues {
		bw.WriteBits(uint32(v), 8)
	}

	tilesX := (width + bestTileSize - 1) / bestTileSize
	tilesY := (height + bestTileSize - 1) / bestTileSize
	filterMapBytes := make([]uint8, len(bestAssign))
	copy(filterMapBytes, bestAssign)
	Encode(bw, filterMapBytes, tilesX, tilesY, nil, 0, bestCat.size(), depth+1)

	levels := numChaosLevels
	if numSyms < levels {
		levels = numSyms
	}
	if levels < 1 {
		levels = 1
	}
	bw.WriteBits(uint32(levels), 4)
	table := chaos.NewTable(levels)

	bins := make([]int, n)
	binSymbols := make([][]int, levels)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			idx := y*width + x
			if maskFn(x, y) {
				continue
			}
			tx, ty := x/bestTileSize, y/bestTileSize
			fid := int(bestAssign[ty*tilesX+tx])
			pred := bestCat.predict(fid, p.neighborhood(x, y))
			residual := uint8(int(p.data[idx]) - int(pred))
			bin := table.Index(p.chaosSum(x, y))
			bins[idx] = bin
			p.residual[idx] = residual
			binSymbols[bin] = append(binSymbols[bin], int(residual))
		}
	}

	coders := make([]*entropy.Coder, levels)
	for b := 0; b < levels; b++ {
		model := entropy.BuildModel(binSymbols[b], residualSyms)
		coders[b] = entropy.NewCoder(model)
		coders[b].WriteHeader(bw)
	}

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			idx := y*width + x
			if maskFn(x, y) {
				continue
			}
			coders[bins[idx]].EncodeSymbol(bw, int(p.residual[idx]))
		}
	}
}

func estimateAssignmentCost(p *plane, tileSize int, cat *catalogue, assign []uint8) int {
	tilesX := (p.width + tileSize - 1) / tileSize
	cost := 0
	for ty := 0; ty*tileSize < p.height; ty++ {
		for tx := 0; tx*tileSize < p.width; tx++ {
			fid := int(assign[ty*tilesX+tx])
			for y := ty * tileSize; y < (ty+1)*tileSize && y < p.height; y++ {
				for x := tx * tileSize; x < (tx+1)*tileSize && x < p.width; x++ {
					if p.maskFn(x, y) {
						continue
					}
					pred := cat.predict(fid, p.neighborhood(x, y))
					d := int(p.data[y*p.width+x]) - int(pred)
					if d < 0 {
						d = -d
					}
					cost += d
				}
			}
		}
	}
	return cost
}

func encodeLeaf(bw *bitio.Writer, data []uint8, width, height int, maskFn MaskFunc, numSyms int) {
	var symbols []int
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if maskFn(x, y) {
				continue
			}
			symbols = append(symbols, int(data[y*width+x]))
		}
	}
	model := entropy.BuildModel(symbols, numSyms)
	coder := entropy.NewCoder(model)
	coder.WriteHeader(bw)
	coder.EncodeStream(bw, symbols)
}

// Decode reverses Encode, reconstructing a width*height byte plane.
// Masked positions are filled with maskValue.
func Decode(br *bitio.Reader, width, height int, maskFn MaskFunc, maskValue uint8, numSyms int, depth int) []uint8 {
	if maskFn == nil {
		maskFn = func(int, int) bool { return false }
	}
	leaf := br.ReadBit() == 1
	if leaf {
		return decodeLeaf(br, width, height, maskFn, maskValue, numSyms)
	}

	tileBits := int(br.ReadBits(3))
	tileSize := 1 << uint(tileBits)

	numPal := int(br.ReadBits(3))
	paletteValues := make([]uint8, numPal)
	for i := range paletteValues {
		paletteValues[i] = uint8(br.ReadBits(8))
	}
	cat := &catalogue{paletteValues: paletteValues}

	tilesX := (width + tileSize - 1) / tileSize
	tilesY := (height + tileSize - 1) / tileSize
	assign := Decode(br, tilesX, tilesY, nil, 0, cat.size(), depth+1)

	levels := int(br.ReadBits(4))
	table := chaos.NewTable(levels)

	decoders := make([]*entropy.Decoder, levels)
	for b := 0; b < levels; b++ {
		model, err := entropy.ReadModel(br, residualSyms)
		if err != nil {
			return nil
		}
		dec, err := entropy.NewDecoderFromModel(model)
		if err != nil {
			return nil
		}
		decoders[b] = dec
	}

	p := newPlane(width, height, maskFn, maskValue)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			idx := y*width + x
			if maskFn(x, y) {
				continue
			}
			tx, ty := x/tileSize, y/tileSize
			fid := int(assign[ty*tilesX+tx])
			pred := cat.predict(fid, p.neighborhood(x, y))
			bin := table.Index(p.chaosSum(x, y))
			sym, err := decoders[bin].DecodeSymbol(br)
			if err != nil {
				return nil
			}
			residual := uint8(sym)
			p.residual[idx] = residual
			p.data[idx] = uint8(int(residual) + int(pred))
		}
	}
	return p.data
}

func decodeLeaf(br *bitio.Reader, width, height int, maskFn MaskFunc, maskValue uint8, numSyms int) []uint8 {
	count := 0
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if !maskFn(x, y) {
				count++
			}
		}
	}
	model, err := entropy.ReadModel(br, numSyms)
	if err != nil {
		return nil
	}
	decoder, err := entropy.NewDecoderFromModel(model)
	if err != nil {
		return nil
	}
	symbols := decoder.DecodeStream(br, count)

	out := make([]uint8, width*height)
	for i := range out {
		out[i] = maskValue
	}
	si := 0
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if maskFn(x, y) {
				continue
			}
			out[y*width+x] = uint8(symbols[si])
			si++
		}
	}
	return out
}
