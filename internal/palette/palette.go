// Package palette implements GCIF's small-palette and global-palette
// modes (spec.md §4.7): when an image has few distinct colours, the
// RGBA plane is replaced by a compact index plane (handed to
// internal/mono) plus the colour table itself, which is far cheaper
// than filtering and entropy-coding four residual channels per pixel.
//
// Reference: spec.md §4.7's two-tier design (repacked sub-byte indices
// for <=16 colours, one-byte-per-pixel indices with a reserved mask
// slot for <=256); github.com/deepteams/webp internal/lossless/colorcache.go
// informed the distinct-colour discovery/ordering approach (a hash map
// built in first-seen order becomes the palette order).
package palette

import "github.com/play-co/gcif-sub001/internal/bitio"

// MaxSmallColors/MaxGlobalColors are the two mode thresholds (spec.md
// §4.7: "<=16" / "<=256").
const (
	MaxSmallColors  = 16
	MaxGlobalColors = 256
)

// Palette is an ordered, deduplicated colour table. Index 0 is
// reserved for the mask colour when a mask is active (spec.md §4.7).
type Palette struct {
	Colors []uint32
}

// Discover walks pixels in raster order and returns the palette
// (first-seen order) plus a per-pixel index array. ok is false if the
// image has more than maxColors distinct colours.
func Discover(pixels []uint32, maxColors int, maskColor uint32, maskActive bool) (pal *Palette, indices []uint8, ok bool) {
	index := make(map[uint32]int, maxColors+1)
	var colors []uint32
	if maskActive {
		index[maskColor] = 0
		colors = append(colors, maskColor)
	}
	indices = make([]uint8, len(pixels))
	for i, p := range pixels {
		idx, seen := index[p]
		if !seen {
			if len(colors) >= maxColors {
				return nil, nil, false
			}
			idx = len(colors)
			index[p] = idx
			colors = append(colors, p)
		}
		indices[i] = uint8(idx)
	}
	return &Palette{Colors: colors}, indices, true
}

// BitsPerIndex returns how many bits are needed to address n colours,
// rounded up to 1, 2 or 4; more than 16 colours give 8.
func BitsPerIndex(n int) int {
	switch {
	case n <= 2:
		return 1
	case n <= 4:
		return 2
	case n <= 16:
		return 4
	default:
		return 8
	}
}

// Pack repacks a full-resolution index plane into pixelsPerByte-per-byte
// rows (spec.md §4.7's "2, 4, or 8 pixels per byte"), MSB-first within
// each byte to match the mask bitmap's bit order convention.
func Pack(indices []uint8, width, height, bitsPerPixel int) (packed []byte, packedWidth int) {
	pixelsPerByte := 8 / bitsPerPixel
	packedWidth = (width + pixelsPerByte - 1) / pixelsPerByte
	packed = make([]byte, packedWidth*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			v := indices[y*width+x]
			byteIdx := y*packedWidth + x/pixelsPerByte
			shift := uint(8 - bitsPerPixel*(x%pixelsPerByte+1))
			packed[byteIdx] |= v << shift
		}
	}
	return packed, packedWidth
}

// Unpack reverses Pack.
func Unpack(packed []byte, width, height, packedWidth, bitsPerPixel int) []uint8 {
	pixelsPerByte := 8 / bitsPerPixel
	mask := uint8(1<<uint(bitsPerPixel)) - 1
	indices := make([]uint8, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			byteIdx := y*packedWidth + x/pixelsPerByte
			shift := uint(8 - bitsPerPixel*(x%pixelsPerByte+1))
			indices[y*width+x] = (packed[byteIdx] >> shift) & mask
		}
	}
	return indices
}

// WriteGlobal serializes a global palette: size (minus 1, in 8 bits)
// followed by each colour as a raw 32-bit word.
func WriteGlobal(w *bitio.Writer, pal *Palette) {
	w.WriteBits(uint32(len(pal.Colors)-1), 8)
	for _, c := range pal.Colors {
		w.WriteWord(c)
	}
}

// ReadGlobal deserializes a palette written by WriteGlobal.
func ReadGlobal(r *bitio.Reader) *Palette {
	n := int(r.ReadBits(8)) + 1
	colors := make([]uint32, n)
	for i := range colors {
		colors[i] = r.ReadWord()
	}
	return &Palette{Colors: colors}
}

// WriteSmall serializes a small palette: size (minus 1, in 4 bits)
// followed by each colour as a raw 32-bit word.
func WriteSmall(w *bitio.Writer, pal *Palette) {
	w.WriteBits(uint32(len(pal.Colors)-1), 4)
	for _, c := range pal.Colors {
		w.WriteWord(c)
	}
}

// ReadSmall deserializes a palette written by WriteSmall.
func ReadSmall(r *bitio.Reader) *Palette {
	n := int(r.ReadBits(4)) + 1
	colors := make([]uint32, n)
	for i := range colors {
		colors[i] = r.ReadWord()
	}
	return &Palette{Colors: colors}
}
