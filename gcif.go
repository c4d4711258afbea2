// Package gcif implements a pure Go encoder and decoder for the GCIF
// lossless image codec: a raster format tuned for the flat artwork,
// sprites, and UI textures common in games, trading encode-time effort
// for a compact bitstream and a fast, branch-light decoder.
//
// GCIF progressively strips redundancy through a layered pipeline: a
// dominant-colour mask, a small/global palette, and a tile-based RGBA
// writer backed by a 2-D LZ pass and a chaos-binned entropy coder.
//
// Basic usage for encoding:
//
//	err := gcif.Encode(w, img, gcif.BetterKnobs())
//
// Basic usage for decoding:
//
//	img, err := gcif.Decode(r)
package gcif

import (
	"encoding/binary"
	"fmt"
	"image"
	"image/color"
	"io"

	"github.com/play-co/gcif-sub001/internal/bitio"
	"github.com/play-co/gcif-sub001/internal/checksum"
	"github.com/play-co/gcif-sub001/internal/mask"
	"github.com/play-co/gcif-sub001/internal/mono"
	"github.com/play-co/gcif-sub001/internal/palette"
	"github.com/play-co/gcif-sub001/internal/rgba"
)

// MaxXBits/MaxYBits size the header's width/height fields (spec.md
// §3.1: "Width/height are 16-bit unsigned").
const (
	MaxXBits = 16
	MaxYBits = 16
	// MaxDimension is the largest width or height the header can
	// represent.
	MaxDimension = 1<<MaxXBits - 1
)

const magic uint32 = 0x46494347 // ASCII "GCIF" (spec.md §6.1)

const headerWords = 5 // magic, dims, headHash, fastHash, goodHash

// Code is one of the fixed error codes spec.md §6.3 defines.
type Code int

// Read-side and write-side error codes (spec.md §6.3).
const (
	OK Code = iota
	ErrFile
	ErrBadHead
	ErrBadDims
	ErrBadData
	ErrMaskCodes
	ErrMaskDeci
	ErrMaskLZ
	ErrLZCodes
	ErrLZBad
	ErrBadPal
	ErrBadMono
	ErrBadRGBA
	ErrBadParams
	ErrBug
)

var errorStrings = map[Code]string{
	OK:           "ok",
	ErrFile:      "file I/O error",
	ErrBadHead:   "corrupt header",
	ErrBadDims:   "invalid image dimensions",
	ErrBadData:   "data integrity check failed",
	ErrMaskCodes: "corrupt mask run-length codes",
	ErrMaskDeci:  "mask decode inconsistency",
	ErrMaskLZ:    "corrupt mask/LZ claim overlap",
	ErrLZCodes:   "corrupt LZ match codes",
	ErrLZBad:     "invalid LZ match rectangle",
	ErrBadPal:    "corrupt palette stream",
	ErrBadMono:   "corrupt monochrome stream",
	ErrBadRGBA:   "corrupt RGBA stream",
	ErrBadParams: "invalid encode parameters",
	ErrBug:       "internal error",
}

// Error is GCIF's boundary error type (spec.md §7: "errors are
// returned as integer codes and a static string lookup... no
// exceptions cross the core boundary").
type Error struct {
	Code Code
	Err  error // optional wrapped cause
}

func (e *Error) Error() string {
	s := errorStrings[e.Code]
	if e.Err != nil {
		return fmt.Sprintf("gcif: %s: %v", s, e.Err)
	}
	return "gcif: " + s
}

func (e *Error) Unwrap() error { return e.Err }

func newErr(code Code) error { return &Error{Code: code} }

// Knobs enumerates GCIF's in-memory encoder parameterisation (spec.md
// §6.2). The core accepts no environment variables and no on-disk
// configuration, mirroring the teacher's plain EncoderOptions struct.
type Knobs struct {
	// Bump is the tie-breaking random seed.
	Bump int64

	MaskMinColorRat float64
	MaskHuffThresh  float64

	PalHuffThresh        float64
	PalSympalThresh      float64
	PalFilterCoverThresh float64
	PalFilterIncThresh   float64
	PalAwards            [4]int
	PalEnableLZ          bool

	RGBAFastMode          bool
	RGBARevisitCount      int
	RGBALZPrematchLimit   int
	RGBALZInmatchLimit    int
	RGBAFilterCoverThresh float64
	RGBAFilterIncThresh   float64
	RGBAAwards            [4]int
	RGBAEnableLZ          bool
	RGBATileBits          int

	AlphaSympalThresh      float64
	AlphaFilterCoverThresh float64
	AlphaFilterIncThresh   float64
	AlphaAwards            [4]int
	AlphaEnableLZ          bool

	SFSympalThresh      float64
	SFFilterCoverThresh float64
	SFFilterIncThresh   float64
	SFAwards            [4]int
	SFEnableLZ          bool

	CFSympalThresh      float64
	CFFilterCoverThresh float64
	CFFilterIncThresh   float64
	CFAwards            [4]int
	CFEnableLZ          bool

	SmallPalSympalThresh      float64
	SmallPalFilterCoverThresh float64
	SmallPalFilterIncThresh   float64
	SmallPalAwards            [4]int
	SmallPalEnableLZ          bool

	MonoRevisitCount    int
	MonoLZPrematchLimit int
	MonoLZInmatchLimit  int

	// StripTransparentColor zeroes RGB under alpha=0 pixels before any
	// layer sees them (spec.md §9 Open Question #2, encode-only).
	StripTransparentColor bool

	// Verify is set by StrongerKnobs but is not read by Encode or
	// Decode. goodHash (checksum.Murmur3) is checked only by
	// DecodeVerify, in addition to the always-checked fastHash.
	Verify bool
}

func defaultAwards() [4]int { return [4]int{4, 3, 2, 1} }

// FasterKnobs favours encode speed: LZ disabled, smallest tile grid.
func FasterKnobs() *Knobs {
	k := baseKnobs()
	k.RGBAEnableLZ, k.PalEnableLZ, k.AlphaEnableLZ, k.SmallPalEnableLZ = false, false, false, false
	k.RGBATileBits = 2
	k.RGBAFastMode = true
	return k
}

// BetterKnobs is the balanced default preset.
func BetterKnobs() *Knobs {
	k := baseKnobs()
	k.RGBATileBits = 3
	return k
}

// HarderKnobs spends more effort: a coarser tile grid (fewer, larger
// tiles amortise header cost on big flat regions) with LZ enabled.
func HarderKnobs() *Knobs {
	k := baseKnobs()
	k.RGBATileBits = 4
	k.RGBARevisitCount = 2
	return k
}

// StrongerKnobs is the slowest, most thorough preset.
func StrongerKnobs() *Knobs {
	k := baseKnobs()
	k.RGBATileBits = 4
	k.RGBARevisitCount = 4
	k.MonoRevisitCount = 2
	k.Verify = true
	return k
}

func baseKnobs() *Knobs {
	return &Knobs{
		MaskMinColorRat:       0.02,
		MaskHuffThresh:        0.5,
		PalHuffThresh:         0.5,
		PalSympalThresh:       0.1,
		PalFilterCoverThresh:  0.95,
		PalFilterIncThresh:    0.02,
		PalAwards:             defaultAwards(),
		PalEnableLZ:           true,
		RGBAFilterCoverThresh: 0.95,
		RGBAFilterIncThresh:   0.02,
		RGBAAwards:            defaultAwards(),
		RGBAEnableLZ:          true,
		RGBATileBits:          3,
		AlphaSympalThresh:     0.1,
		AlphaEnableLZ:         true,
		SFSympalThresh:        0.1,
		SFEnableLZ:            true,
		CFSympalThresh:        0.1,
		CFEnableLZ:            true,
		SmallPalSympalThresh:  0.1,
		SmallPalEnableLZ:      true,
	}
}

// --- Pixel plane extraction ---

func extractPlanes(img image.Image) (w, h int, r, g, b, a []uint8) {
	bounds := img.Bounds()
	w, h = bounds.Dx(), bounds.Dy()
	n := w * h
	r, g, b, a = make([]uint8, n), make([]uint8, n), make([]uint8, n), make([]uint8, n)

	if nrgba, ok := img.(*image.NRGBA); ok {
		for y := 0; y < h; y++ {
			srcOff := nrgba.PixOffset(bounds.Min.X, bounds.Min.Y+y)
			row := nrgba.Pix[srcOff : srcOff+4*w]
			for x := 0; x < w; x++ {
				idx := y*w + x
				r[idx], g[idx], b[idx], a[idx] = row[4*x], row[4*x+1], row[4*x+2], row[4*x+3]
			}
		}
		return
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.NRGBAModel.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.NRGBA)
			idx := y*w + x
			r[idx], g[idx], b[idx], a[idx] = c.R, c.G, c.B, c.A
		}
	}
	return
}

func planesToImage(w, h int, r, g, b, a []uint8) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		destOff := img.PixOffset(0, y)
		for x := 0; x < w; x++ {
			idx := y*w + x
			o := destOff + 4*x
			img.Pix[o], img.Pix[o+1], img.Pix[o+2], img.Pix[o+3] = r[idx], g[idx], b[idx], a[idx]
		}
	}
	return img
}

func packPixel(r, g, b, a uint8) uint32 {
	return uint32(r)<<24 | uint32(g)<<16 | uint32(b)<<8 | uint32(a)
}

// Encode writes img to w as a GCIF bitstream using the given knobs
// (pass nil for BetterKnobs' defaults).
func Encode(w io.Writer, img image.Image, knobs *Knobs) error {
	if knobs == nil {
		knobs = BetterKnobs()
	}
	width, height, r, g, b, a := extractPlanes(img)
	if width <= 0 || height <= 0 || width > MaxDimension || height > MaxDimension {
		return newErr(ErrBadDims)
	}

	if knobs.StripTransparentColor {
		for i := range a {
			if a[i] == 0 {
				r[i], g[i], b[i] = 0, 0, 0
			}
		}
	}

	bw := bitio.NewWriter(width*height + 256)
	bw.WriteBits(uint32(width), MaxXBits)
	bw.WriteBits(uint32(height), MaxYBits)

	encodeBody(bw, width, height, r, g, b, a, knobs)
	body := bw.Finish()

	return writeFramed(w, width, height, body)
}

// writeFramed assembles the final byte stream: magic, dims, headHash,
// fastHash, goodHash (spec.md §6.1), followed by body (which already
// begins with the dims bits re-encoded via bitio so the reader stays
// symmetric — see decode).
func writeFramed(w io.Writer, width, height int, body []byte) error {
	head := make([]byte, headerWords*4)
	binary.LittleEndian.PutUint32(head[0:], magic)
	dimsWord := uint32(width)<<16 | uint32(height)
	binary.LittleEndian.PutUint32(head[4:], dimsWord)

	hh := checksum.NewHotRod(checksum.HeadSeed)
	hh.WriteWord(magic)
	hh.WriteWord(dimsWord)
	binary.LittleEndian.PutUint32(head[8:], hh.Sum())

	fh := checksum.NewHotRod(checksum.DataSeed)
	gh := checksum.NewMurmur3(checksum.DataSeed)
	for off := 0; off+4 <= len(body); off += 4 {
		word := binary.LittleEndian.Uint32(body[off:])
		fh.WriteWord(word)
		gh.WriteWord(word)
	}
	binary.LittleEndian.PutUint32(head[12:], fh.Sum())
	binary.LittleEndian.PutUint32(head[16:], gh.Sum())

	if _, err := w.Write(head); err != nil {
		return &Error{Code: ErrFile, Err: err}
	}
	if _, err := w.Write(body); err != nil {
		return &Error{Code: ErrFile, Err: err}
	}
	return nil
}

// encodeBody writes everything after the header's fixed hash fields:
// the small-palette / mask / global-palette / RGBA mode sequence
// (spec.md §6.1 steps 1-6).
func encodeBody(bw *bitio.Writer, width, height int, r, g, b, a []uint8, knobs *Knobs) {
	n := width * height
	pixels := make([]uint32, n)
	for i := 0; i < n; i++ {
		pixels[i] = packPixel(r[i], g[i], b[i], a[i])
	}

	domColor, _ := mask.FindDominantColor(pixels)

	smallPal, smallIdx, smallOK := palette.Discover(pixels, palette.MaxSmallColors, domColor, true)

	if smallOK {
		bw.WriteBit(1)
		palette.WriteSmall(bw, smallPal)
		if len(smallPal.Colors) == 1 {
			return // single-colour fast case: stream ends here.
		}

		m := buildMask(pixels, width, height, domColor, knobs)
		writeMaskHeader(bw, m)
		// The mask's (x, y) coordinates address the unpacked image, not
		// the packed sub-byte plane's narrower width (DESIGN.md "Small-
		// palette mask skip"), so it isn't threaded into mono.Encode here.

		bitsPerIndex := palette.BitsPerIndex(len(smallPal.Colors))
		packed, packedWidth := palette.Pack(smallIdx, width, height, bitsPerIndex)
		mono.Encode(bw, packed, packedWidth, height, nil, 0, 256, 0)
		return
	}

	bw.WriteBit(0)
	m := buildMask(pixels, width, height, domColor, knobs)
	writeMaskHeader(bw, m)
	maskFn := maskFuncFor(m)

	globalPal, globalIdx, globalOK := palette.Discover(pixels, palette.MaxGlobalColors, domColor, m != nil)
	if globalOK {
		bw.WriteBit(1)
		palette.WriteGlobal(bw, globalPal)
		mono.Encode(bw, globalIdx, width, height, mono.MaskFunc(maskFn), 0, len(globalPal.Colors), 0)
		return
	}

	bw.WriteBit(0)
	cfg := rgba.DefaultConfig()
	cfg.TileBits = knobs.RGBATileBits
	cfg.EnableLZ = knobs.RGBAEnableLZ
	rgba.Encode(bw, width, height, r, g, b, a, maskFn, cfg)
}

func buildMask(pixels []uint32, width, height int, domColor uint32, knobs *Knobs) *mask.Mask {
	m := mask.Build(pixels, width, height, domColor)
	if m.CoverageRatio() < knobs.MaskMinColorRat {
		return nil
	}
	return m
}

func writeMaskHeader(bw *bitio.Writer, m *mask.Mask) {
	mask.Write(bw, m, m != nil)
}

func maskFuncFor(m *mask.Mask) func(x, y int) bool {
	if m == nil {
		return func(int, int) bool { return false }
	}
	return m.Get
}

// Decode reads a GCIF bitstream from r and returns the reconstructed
// image as *image.NRGBA.
func Decode(r io.Reader) (image.Image, error) {
	return decode(r, false)
}

// DecodeVerify is like Decode but additionally checks the reserved
// goodHash verification field (spec.md §9 Open Question #1), returning
// ErrBadData if it fails to match.
func DecodeVerify(r io.Reader) (image.Image, error) {
	return decode(r, true)
}

func decode(r io.Reader, verify bool) (image.Image, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &Error{Code: ErrFile, Err: err}
	}
	if len(data) < headerWords*4 {
		return nil, newErr(ErrBadHead)
	}

	gotMagic := binary.LittleEndian.Uint32(data[0:])
	if gotMagic != magic {
		return nil, newErr(ErrBadHead)
	}
	dimsWord := binary.LittleEndian.Uint32(data[4:])
	width := int(dimsWord >> 16)
	height := int(dimsWord & 0xffff)
	if width <= 0 || height <= 0 {
		return nil, newErr(ErrBadDims)
	}

	headHash := binary.LittleEndian.Uint32(data[8:])
	hh := checksum.NewHotRod(checksum.HeadSeed)
	hh.WriteWord(gotMagic)
	hh.WriteWord(dimsWord)
	if hh.Sum() != headHash {
		return nil, newErr(ErrBadHead)
	}

	fastHash := binary.LittleEndian.Uint32(data[12:])
	goodHash := binary.LittleEndian.Uint32(data[16:])

	body := data[headerWords*4:]
	fh := checksum.NewHotRod(checksum.DataSeed)
	gh := checksum.NewMurmur3(checksum.DataSeed)
	for off := 0; off+4 <= len(body); off += 4 {
		word := binary.LittleEndian.Uint32(body[off:])
		fh.WriteWord(word)
		gh.WriteWord(word)
	}
	if fh.Sum() != fastHash {
		return nil, newErr(ErrBadData)
	}
	if verify && gh.Sum() != goodHash {
		return nil, newErr(ErrBadData)
	}

	br := bitio.NewReader(body)
	brWidth := int(br.ReadBits(MaxXBits))
	brHeight := int(br.ReadBits(MaxYBits))
	if brWidth != width || brHeight != height {
		return nil, newErr(ErrBadHead)
	}

	rPlane, gPlane, bPlane, aPlane, derr := decodeBody(br, width, height)
	if derr != nil {
		return nil, derr
	}
	return planesToImage(width, height, rPlane, gPlane, bPlane, aPlane), nil
}

func decodeBody(br *bitio.Reader, width, height int) (r, g, b, a []uint8, err error) {
	n := width * height
	smallPalEnabled := br.ReadBit() == 1
	if smallPalEnabled {
		pal := palette.ReadSmall(br)
		count := len(pal.Colors)
		if count == 1 {
			r, g, b, a = solidPlanes(n, pal.Colors[0])
			return r, g, b, a, nil
		}

		m := readMaskHeader(br, width, height)
		maskFn := maskFuncFor(m)

		bitsPerIndex := palette.BitsPerIndex(count)
		packedWidth := (width + (8/bitsPerIndex) - 1) / (8 / bitsPerIndex)
		packed := mono.Decode(br, packedWidth, height, nil, 0, 256, 0)
		if packed == nil {
			return nil, nil, nil, nil, newErr(ErrBadMono)
		}
		indices := palette.Unpack(packed, width, height, packedWidth, bitsPerIndex)
		r, g, b, a = resolvePaletteIndices(indices, pal.Colors, width, height, m, maskFn)
		return r, g, b, a, nil
	}

	m := readMaskHeader(br, width, height)
	maskFn := maskFuncFor(m)

	globalPalEnabled := br.ReadBit() == 1
	if globalPalEnabled {
		pal := palette.ReadGlobal(br)
		indices := mono.Decode(br, width, height, mono.MaskFunc(maskFn), 0, len(pal.Colors), 0)
		if indices == nil {
			return nil, nil, nil, nil, newErr(ErrBadMono)
		}
		r, g, b, a = resolvePaletteIndices(indices, pal.Colors, width, height, m, maskFn)
		return r, g, b, a, nil
	}

	fillR, fillG, fillB, fillA := make([]uint8, n), make([]uint8, n), make([]uint8, n), make([]uint8, n)
	if m != nil {
		mr, mg, mb, ma := unpackPixel(m.Color)
		for i := 0; i < n; i++ {
			x, y := i%width, i/width
			if m.Get(x, y) {
				fillR[i], fillG[i], fillB[i], fillA[i] = mr, mg, mb, ma
			}
		}
	}
	cfg := defaultRGBAConfig()
	r, g, b, a = rgba.Decode(br, width, height, maskFn, fillR, fillG, fillB, fillA, cfg)
	if r == nil {
		return nil, nil, nil, nil, newErr(ErrBadRGBA)
	}
	return r, g, b, a, nil
}

func readMaskHeader(br *bitio.Reader, width, height int) *mask.Mask {
	return mask.Read(br, width, height)
}

func resolvePaletteIndices(indices []uint8, colors []uint32, width, height int, m *mask.Mask, maskFn func(x, y int) bool) (r, g, b, a []uint8) {
	n := width * height
	r, g, b, a = make([]uint8, n), make([]uint8, n), make([]uint8, n), make([]uint8, n)
	for i := 0; i < n; i++ {
		x, y := i%width, i/width
		var c uint32
		if maskFn(x, y) {
			c = m.Color
		} else {
			c = colors[indices[i]]
		}
		r[i], g[i], b[i], a[i] = unpackPixel(c)
	}
	return
}

func unpackPixel(p uint32) (r, g, b, a uint8) {
	return uint8(p >> 24), uint8(p >> 16), uint8(p >> 8), uint8(p)
}

func solidPlanes(n int, color uint32) (r, g, b, a []uint8) {
	r, g, b, a = make([]uint8, n), make([]uint8, n), make([]uint8, n), make([]uint8, n)
	rv, gv, bv, av := unpackPixel(color)
	for i := 0; i < n; i++ {
		r[i], g[i], b[i], a[i] = rv, gv, bv, av
	}
	return
}

func defaultRGBAConfig() rgba.Config {
	return rgba.DefaultConfig()
}
