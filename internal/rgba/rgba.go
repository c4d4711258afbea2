// Package rgba implements GCIF's tile-based RGBA writer (spec.md §4.6,
// component J): the terminal layer that handles every pixel the
// dominant-colour mask (internal/mask) and the global/small palette
// (internal/palette) did not already claim. Each tile picks a spatial
// filter (internal/filter SF_*) applied per-channel to the reconstructed
// R, G, B planes and a colour filter (CF_*) that decorrelates the
// resulting residual triple into (y, u, v); a 2-D LZ pass (internal/lz)
// removes exact-duplicate rectangles before any of that runs, and the
// alpha plane is handed off whole to the recursive mono writer
// (internal/mono), the same component that also compresses the tile
// filter maps themselves (spec.md §3.1 "Filter tile map").
//
// Reference: github.com/deepteams/webp internal/lossless/encode.go's
// phased-pass orchestration (design filters, compute residuals, emit
// pixel stream) adapted from VP8L's single global predictor to GCIF's
// per-tile (SF, CF) pair; internal/mono supplies the filter-map and
// alpha sub-coders spec.md §4.6 steps 6-7 call out by name.
//
// Known simplification (see DESIGN.md): tile design is single-pass (no
// MAX_PASSES revisit loop or neighbour-tie-break bonus), matching the
// simplification internal/mono already documents for its own tile
// design. Chaos-level selection tries a small fixed candidate set
// instead of every power of two up to MaxLevels.
package rgba

import (
	"github.com/play-co/gcif-sub001/internal/bitio"
	"github.com/play-co/gcif-sub001/internal/chaos"
	"github.com/play-co/gcif-sub001/internal/entropy"
	"github.com/play-co/gcif-sub001/internal/filter"
	"github.com/play-co/gcif-sub001/internal/huffman"
	"github.com/play-co/gcif-sub001/internal/lz"
	"github.com/play-co/gcif-sub001/internal/mono"
)

// MaskFunc reports whether (x, y) is already accounted for by an
// earlier layer (dominant-colour mask or palette) and must not be
// touched by the RGBA writer.
type MaskFunc func(x, y int) bool

// ChaosLevelCandidates is the small set of chaos_levels values tried
// during chaos design (spec.md §4.6 step 5: "try chaos_levels = 1, 2,
// 4, 8, ... and simulate total entropy cost").
var ChaosLevelCandidates = []int{1, 2, 4, 8}

// Config carries the per-image knobs the RGBA writer consults.
type Config struct {
	// TileBits is log2 of the tile edge length (spec.md §3.1: "uniform
	// tiles of size 2^b x 2^b").
	TileBits int
	// EnableLZ toggles the 2-D exact-match pass (knob: rgba_enableLZ).
	EnableLZ bool
}

// DefaultConfig returns GCIF's baseline RGBA writer configuration.
func DefaultConfig() Config {
	return Config{TileBits: 3, EnableLZ: true}
}

func packPixel(r, g, b, a uint8) uint32 {
	return uint32(r)<<24 | uint32(g)<<16 | uint32(b)<<8 | uint32(a)
}

func ceilDiv(a, b int) int { return (a + b - 1) / b }

func bit(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Encode writes the R, G, B, A planes (each width*height bytes, row
// major) not already claimed by preClaimed. It runs its own LZ pass
// over the full RGBA pixel stream and folds matched pixels into the
// same "done" accounting preClaimed represents, per spec.md's "every
// pixel accounted for exactly once" invariant (§3.2).
func Encode(bw *bitio.Writer, width, height int, r, g, b, a []uint8, preClaimed MaskFunc, cfg Config) {
	n := width * height
	pixels := make([]uint32, n)
	for i := 0; i < n; i++ {
		pixels[i] = packPixel(r[i], g[i], b[i], a[i])
	}

	bw.WriteBit(bit(cfg.EnableLZ))
	var matches []lz.Match
	if cfg.EnableLZ {
		matches = lz.NewFinder(pixels, width, height).FindMatches()
	}
	lz.WriteMatches(bw, matches)
	lzCovered := lz.Mask(width, height, matches)

	claimed := func(x, y int) bool {
		return preClaimed(x, y) || lzCovered[y*width+x]
	}

	tileSize := 1 << uint(cfg.TileBits)
	bw.WriteBits(uint32(cfg.TileBits), 3)
	tilesX, tilesY := ceilDiv(width, tileSize), ceilDiv(height, tileSize)

	sfMap, cfMap := designTiles(width, height, tileSize, tilesX, tilesY, r, g, b, claimed)

	mono.Encode(bw, sfMap, tilesX, tilesY, nil, 0, int(filter.SFFixedCount), 0)
	mono.Encode(bw, cfMap, tilesX, tilesY, nil, 0, int(filter.CFCount), 0)

	yRes, uRes, vRes := make([]uint8, n), make([]uint8, n), make([]uint8, n)
	computeResiduals(width, height, tileSize, tilesX, r, g, b, sfMap, cfMap, claimed, yRes, uRes, vRes)

	levels := designChaosLevels(width, height, claimed, yRes, uRes, vRes)
	bw.WriteBits(uint32(levels-1), 4)
	table := chaos.NewTable(levels)

	encY, encU, encV := buildPlaneEncoders(bw, width, height, claimed, table, levels, yRes, uRes, vRes)

	emitPlanes(bw, width, height, claimed, table, encY, encU, encV, yRes, uRes, vRes)

	mono.Encode(bw, a, width, height, claimed, 255, 256, 0)
}

// Decode reverses Encode, reconstructing the R, G, B, A planes for
// every pixel not claimed by preClaimed. fill supplies the RGBA value
// already known for claimed pixels (needed as prediction context for
// their unclaimed neighbours).
func Decode(br *bitio.Reader, width, height int, preClaimed MaskFunc, fillR, fillG, fillB, fillA []uint8, cfg Config) (r, g, b, a []uint8) {
	n := width * height
	r, g, b = make([]uint8, n), make([]uint8, n), make([]uint8, n)
	copy(r, fillR)
	copy(g, fillG)
	copy(b, fillB)

	enableLZ := br.ReadBit() == 1
	matches := lz.ReadMatches(br)
	_ = enableLZ
	lzCovered := lz.Mask(width, height, matches)
	claimed := func(x, y int) bool {
		return preClaimed(x, y) || lzCovered[y*width+x]
	}

	tileBits := int(br.ReadBits(3))
	tileSize := 1 << uint(tileBits)
	tilesX, tilesY := ceilDiv(width, tileSize), ceilDiv(height, tileSize)

	sfMap := mono.Decode(br, tilesX, tilesY, nil, 0, int(filter.SFFixedCount), 0)
	cfMap := mono.Decode(br, tilesX, tilesY, nil, 0, int(filter.CFCount), 0)

	levels := int(br.ReadBits(4)) + 1
	table := chaos.NewTable(levels)

	decY, decU, decV, err := readPlaneDecoders(br, levels)
	if err != nil {
		return nil, nil, nil, nil
	}

	// Map each LZ-covered destination pixel to its source pixel. Source
	// rectangles always precede their destination in raster order
	// (spec.md §8.2's LZ law), so by the time the main loop below
	// reaches a destination pixel its source has already been
	// reconstructed, whether by an earlier normal decode or by an
	// earlier LZ copy of its own.
	lzSrc := make([]int, n)
	for i := range lzSrc {
		lzSrc[i] = -1
	}
	for _, m := range matches {
		for dy := 0; dy < m.H; dy++ {
			for dx := 0; dx < m.W; dx++ {
				si := (m.SrcY+dy)*width + m.SrcX + dx
				di := (m.DestY+dy)*width + m.DestX + dx
				lzSrc[di] = si
			}
		}
	}

	prevY, prevU, prevV := make([]uint8, width), make([]uint8, width), make([]uint8, width)
	curY, curU, curV := make([]uint8, width), make([]uint8, width), make([]uint8, width)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			idxXY := y*width + x
			if si := lzSrc[idxXY]; si >= 0 {
				r[idxXY], g[idxXY], b[idxXY] = r[si], g[si], b[si]
			}
			if claimed(x, y) {
				curY[x], curU[x], curV[x] = 0, 0, 0
				continue
			}
			tx, ty := x/tileSize, y/tileSize
			sf := filter.SF(sfMap[ty*tilesX+tx])
			cf := filter.CF(cfMap[ty*tilesX+tx])

			haveLeft, haveUp := x > 0, y > 0
			var leftSum, upSum uint8
			if haveLeft {
				leftSum = curY[x-1]
			}
			if haveUp {
				upSum = prevY[x]
			}
			sum := chaos.NeighborSum(leftSum, upSum, haveLeft, haveUp)
			bin := table.Index(sum)

			ySym, err := decY[bin].DecodeSymbol(br)
			if err != nil {
				return nil, nil, nil, nil
			}
			var uLeftSum, uUpSum uint8
			if haveLeft {
				uLeftSum = curU[x-1]
			}
			if haveUp {
				uUpSum = prevU[x]
			}
			uBin := table.Index(chaos.NeighborSum(uLeftSum, uUpSum, haveLeft, haveUp))
			uSym, err := decU[uBin].DecodeSymbol(br)
			if err != nil {
				return nil, nil, nil, nil
			}
			var vLeftSum, vUpSum uint8
			if haveLeft {
				vLeftSum = curV[x-1]
			}
			if haveUp {
				vUpSum = prevV[x]
			}
			vBin := table.Index(chaos.NeighborSum(vLeftSum, vUpSum, haveLeft, haveUp))
			vSym, err := decV[vBin].DecodeSymbol(br)
			if err != nil {
				return nil, nil, nil, nil
			}

			yv, uv, vv := uint8(ySym), uint8(uSym), uint8(vSym)
			curY[x], curU[x], curV[x] = uint8(chaos.Score(yv)), uint8(chaos.Score(uv)), uint8(chaos.Score(vv))

			rgbResidual := filter.Invert(cf, filter.RGB{R: yv, G: uv, B: vv})

			nR := neighborhood(r, width, height, x, y)
			nG := neighborhood(g, width, height, x, y)
			nB := neighborhood(b, width, height, x, y)
			idx := y*width + x
			r[idx] = filter.Reconstruct(rgbResidual.R, sf, nR)
			g[idx] = filter.Reconstruct(rgbResidual.G, sf, nG)
			b[idx] = filter.Reconstruct(rgbResidual.B, sf, nB)
		}
		prevY, curY = curY, prevY
		prevU, curU = curU, prevU
		prevV, curV = curV, prevV
	}

	a = mono.Decode(br, width, height, claimed, 255, 256, 0)
	for i := range a {
		if si := lzSrc[i]; si >= 0 {
			a[i] = a[si]
		} else if claimed(i%width, i/width) {
			a[i] = fillA[i]
		}
	}
	return r, g, b, a
}

func neighborhood(plane []uint8, width, height, x, y int) filter.Neighborhood {
	var n filter.Neighborhood
	if x > 0 {
		n.A = plane[y*width+x-1]
	}
	if y > 0 {
		n.B = plane[(y-1)*width+x]
		if x > 0 {
			n.C = plane[(y-1)*width+x-1]
		}
		if x+1 < width {
			n.D = plane[(y-1)*width+x+1]
		} else {
			n.D = n.B
		}
	}
	return n
}

// designTiles picks, for each tile, the SF minimizing combined R+G+B L1
// prediction error, then the CF minimizing the L1 norm of the
// resulting (y, u, v) residual triple (spec.md §4.6 step 2-3, single
// pass: see package doc "Known simplification").
func designTiles(width, height, tileSize, tilesX, tilesY int, r, g, b []uint8, claimed MaskFunc) (sfMap, cfMap []uint8) {
	sfMap = make([]uint8, tilesX*tilesY)
	cfMap = make([]uint8, tilesX*tilesY)

	for ty := 0; ty < tilesY; ty++ {
		for tx := 0; tx < tilesX; tx++ {
			bestSF, bestSFCost := filter.SF(0), -1
			for sf := filter.SF(0); sf < filter.SFFixedCount; sf++ {
				cost := 0
				for y := ty * tileSize; y < (ty+1)*tileSize && y < height; y++ {
					for x := tx * tileSize; x < (tx+1)*tileSize && x < width; x++ {
						if claimed(x, y) {
							continue
						}
						idx := y*width + x
						cost += absDiff(filter.Residual(r[idx], sf, neighborhood(r, width, height, x, y)))
						cost += absDiff(filter.Residual(g[idx], sf, neighborhood(g, width, height, x, y)))
						cost += absDiff(filter.Residual(b[idx], sf, neighborhood(b, width, height, x, y)))
					}
				}
				if bestSFCost < 0 || cost < bestSFCost {
					bestSFCost, bestSF = cost, sf
				}
			}

			bestCF, bestCFCost := filter.CF(0), -1
			for cf := filter.CF(0); cf < filter.CFCount; cf++ {
				cost := 0
				for y := ty * tileSize; y < (ty+1)*tileSize && y < height; y++ {
					for x := tx * tileSize; x < (tx+1)*tileSize && x < width; x++ {
						if claimed(x, y) {
							continue
						}
						idx := y*width + x
						rr := filter.Residual(r[idx], bestSF, neighborhood(r, width, height, x, y))
						gg := filter.Residual(g[idx], bestSF, neighborhood(g, width, height, x, y))
						bb := filter.Residual(b[idx], bestSF, neighborhood(b, width, height, x, y))
						yuv := filter.Apply(cf, filter.RGB{R: rr, G: gg, B: bb})
						cost += absDiff(yuv.R) + absDiff(yuv.G) + absDiff(yuv.B)
					}
				}
				if bestCFCost < 0 || cost < bestCFCost {
					bestCFCost, bestCF = cost, cf
				}
			}

			sfMap[ty*tilesX+tx] = uint8(bestSF)
			cfMap[ty*tilesX+tx] = uint8(bestCF)
		}
	}
	return sfMap, cfMap
}

// absDiff treats a residual byte as a signed offset from zero (mod
// 256) and returns its magnitude, matching the "L1 norm of predictions
// against the true pixel" scoring spec.md §4.6 step 2 describes.
func absDiff(residual uint8) int {
	v := int(residual)
	if v > 128 {
		v = 256 - v
	}
	return v
}

func computeResiduals(width, height, tileSize, tilesX int, r, g, b []uint8, sfMap, cfMap []uint8, claimed MaskFunc, yRes, uRes, vRes []uint8) {
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if claimed(x, y) {
				continue
			}
			tx, ty := x/tileSize, y/tileSize
			sf := filter.SF(sfMap[ty*tilesX+tx])
			cf := filter.CF(cfMap[ty*tilesX+tx])
			idx := y*width + x
			rr := filter.Residual(r[idx], sf, neighborhood(r, width, height, x, y))
			gg := filter.Residual(g[idx], sf, neighborhood(g, width, height, x, y))
			bb := filter.Residual(b[idx], sf, neighborhood(b, width, height, x, y))
			yuv := filter.Apply(cf, filter.RGB{R: rr, G: gg, B: bb})
			yRes[idx], uRes[idx], vRes[idx] = yuv.R, yuv.G, yuv.B
		}
	}
}

// designChaosLevels tries each candidate in ChaosLevelCandidates and
// returns the one minimizing the combined estimated Huffman cost of
// the three residual planes (spec.md §4.6 step 5).
func designChaosLevels(width, height int, claimed MaskFunc, yRes, uRes, vRes []uint8) int {
	bestLevels, bestCost := ChaosLevelCandidates[0], -1
	for _, levels := range ChaosLevelCandidates {
		table := chaos.NewTable(levels)
		cost := planeCost(width, height, claimed, table, levels, yRes) +
			planeCost(width, height, claimed, table, levels, uRes) +
			planeCost(width, height, claimed, table, levels, vRes)
		if bestCost < 0 || cost < bestCost {
			bestCost, bestLevels = cost, levels
		}
	}
	return bestLevels
}

func planeCost(width, height int, claimed MaskFunc, table *chaos.Table, levels int, res []uint8) int {
	hists := make([][]int, levels)
	for i := range hists {
		hists[i] = make([]int, 256)
	}
	prev := make([]uint8, width)
	cur := make([]uint8, width)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if claimed(x, y) {
				cur[x] = 0
				continue
			}
			var leftSum, upSum uint8
			haveLeft, haveUp := x > 0, y > 0
			if haveLeft {
				leftSum = cur[x-1]
			}
			if haveUp {
				upSum = prev[x]
			}
			bin := table.Index(chaos.NeighborSum(leftSum, upSum, haveLeft, haveUp))
			idx := y*width + x
			hists[bin][res[idx]]++
			cur[x] = uint8(chaos.Score(res[idx]))
		}
		prev, cur = cur, prev
	}
	total := 0
	for _, h := range hists {
		lengths := huffman.BuildCodeLengths(h, huffman.MaxCodeLength)
		for sym, n := range h {
			total += n * lengths[sym]
		}
	}
	return total
}

func buildPlaneEncoders(bw *bitio.Writer, width, height int, claimed MaskFunc, table *chaos.Table, levels int, yRes, uRes, vRes []uint8) (encY, encU, encV []*entropy.Coder) {
	encY = writePlaneTables(bw, width, height, claimed, table, levels, yRes)
	encU = writePlaneTables(bw, width, height, claimed, table, levels, uRes)
	encV = writePlaneTables(bw, width, height, claimed, table, levels, vRes)
	return
}

// writePlaneTables groups one residual plane's values by chaos bin, in
// the raster order the bin will later be visited in, and builds a
// per-bin entropy.Coder from each bin's ordered subsequence (spec.md
// §4.4, §4.6 step 8): BZ/AZ Huffman tables plus ZRLE zero-run escapes,
// same scheme internal/mono's tile-residual coder uses.
func writePlaneTables(bw *bitio.Writer, width, height int, claimed MaskFunc, table *chaos.Table, levels int, res []uint8) []*entropy.Coder {
	binSymbols := make([][]int, levels)
	prev := make([]uint8, width)
	cur := make([]uint8, width)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if claimed(x, y) {
				cur[x] = 0
				continue
			}
			var leftSum, upSum uint8
			haveLeft, haveUp := x > 0, y > 0
			if haveLeft {
				leftSum = cur[x-1]
			}
			if haveUp {
				upSum = prev[x]
			}
			bin := table.Index(chaos.NeighborSum(leftSum, upSum, haveLeft, haveUp))
			idx := y*width + x
			binSymbols[bin] = append(binSymbols[bin], int(res[idx]))
			cur[x] = uint8(chaos.Score(res[idx]))
		}
		prev, cur = cur, prev
	}
	coders := make([]*entropy.Coder, levels)
	for b := 0; b < levels; b++ {
		model := entropy.BuildModel(binSymbols[b], 256)
		coders[b] = entropy.NewCoder(model)
		coders[b].WriteHeader(bw)
	}
	return coders
}

func readPlaneDecoders(br *bitio.Reader, levels int) (decY, decU, decV []*entropy.Decoder, err error) {
	decY, err = readOnePlaneDecoders(br, levels)
	if err != nil {
		return nil, nil, nil, err
	}
	decU, err = readOnePlaneDecoders(br, levels)
	if err != nil {
		return nil, nil, nil, err
	}
	decV, err = readOnePlaneDecoders(br, levels)
	if err != nil {
		return nil, nil, nil, err
	}
	return decY, decU, decV, nil
}

func readOnePlaneDecoders(br *bitio.Reader, levels int) ([]*entropy.Decoder, error) {
	decoders := make([]*entropy.Decoder, levels)
	for b := 0; b < levels; b++ {
		model, err := entropy.ReadModel(br, 256)
		if err != nil {
			return nil, err
		}
		dec, err := entropy.NewDecoderFromModel(model)
		if err != nil {
			return nil, err
		}
		decoders[b] = dec
	}
	return decoders, nil
}

func emitPlanes(bw *bitio.Writer, width, height int, claimed MaskFunc, table *chaos.Table, encY, encU, encV []*entropy.Coder, yRes, uRes, vRes []uint8) {
	prevY, curY := make([]uint8, width), make([]uint8, width)
	prevU, curU := make([]uint8, width), make([]uint8, width)
	prevV, curV := make([]uint8, width), make([]uint8, width)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			idx := y*width + x
			if claimed(x, y) {
				curY[x], curU[x], curV[x] = 0, 0, 0
				continue
			}
			haveLeft, haveUp := x > 0, y > 0
			var lY, uY uint8
			if haveLeft {
				lY = curY[x-1]
			}
			if haveUp {
				uY = prevY[x]
			}
			binY := table.Index(chaos.NeighborSum(lY, uY, haveLeft, haveUp))
			encY[binY].EncodeSymbol(bw, int(yRes[idx]))

			var lU, uU uint8
			if haveLeft {
				lU = curU[x-1]
			}
			if haveUp {
				uU = prevU[x]
			}
			binU := table.Index(chaos.NeighborSum(lU, uU, haveLeft, haveUp))
			encU[binU].EncodeSymbol(bw, int(uRes[idx]))

			var lV, uV uint8
			if haveLeft {
				lV = curV[x-1]
			}
			if haveUp {
				uV = prevV[x]
			}
			binV := table.Index(chaos.NeighborSum(lV, uV, haveLeft, haveUp))
			encV[binV].EncodeSymbol(bw, int(vRes[idx]))

			curY[x], curU[x], curV[x] = uint8(chaos.Score(yRes[idx])), uint8(chaos.Score(uRes[idx])), uint8(chaos.Score(vRes[idx]))
		}
		prevY, curY = curY, prevY
		prevU, curU = curU, prevU
		prevV, curV = curV, prevV
	}
}
