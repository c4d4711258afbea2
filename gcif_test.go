package gcif

import (
	"bytes"
	"image"
	"image/color"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func makeTestImage(width, height int, fill func(x, y int) color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, fill(x, y))
		}
	}
	return img
}

func planesOf(t *testing.T, img image.Image) (r, g, b, a [][]uint8) {
	t.Helper()
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	r = make([][]uint8, h)
	g = make([][]uint8, h)
	b = make([][]uint8, h)
	a = make([][]uint8, h)
	for y := 0; y < h; y++ {
		r[y], g[y], b[y], a[y] = make([]uint8, w), make([]uint8, w), make([]uint8, w), make([]uint8, w)
		for x := 0; x < w; x++ {
			c := color.NRGBAModel.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.NRGBA)
			r[y][x], g[y][x], b[y][x], a[y][x] = c.R, c.G, c.B, c.A
		}
	}
	return
}

func assertRoundTrip(t *testing.T, img image.Image, knobs *Knobs) {
	t.Helper()
	buf := &bytes.Buffer{}
	if err := Encode(buf, img, knobs); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := Decode(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	wantR, wantG, wantB, wantA := planesOf(t, img)
	gotR, gotG, gotB, gotA := planesOf(t, got)
	if diff := cmp.Diff(wantR, gotR); diff != "" {
		t.Errorf("R plane mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(wantG, gotG); diff != "" {
		t.Errorf("G plane mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(wantB, gotB); diff != "" {
		t.Errorf("B plane mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(wantA, gotA); diff != "" {
		t.Errorf("A plane mismatch (-want +got):\n%s", diff)
	}
}

func TestRoundTripSinglePixel(t *testing.T) {
	img := makeTestImage(1, 1, func(x, y int) color.NRGBA {
		return color.NRGBA{R: 12, G: 200, B: 77, A: 255}
	})
	assertRoundTrip(t, img, nil)
}

func TestRoundTripSolidTransparent(t *testing.T) {
	img := makeTestImage(16, 16, func(x, y int) color.NRGBA {
		return color.NRGBA{}
	})
	assertRoundTrip(t, img, nil)
}

func TestRoundTripGradient(t *testing.T) {
	img := makeTestImage(256, 256, func(x, y int) color.NRGBA {
		return color.NRGBA{R: uint8(x), G: uint8(y), B: uint8(x ^ y), A: 255}
	})
	assertRoundTrip(t, img, nil)
}

func TestRoundTripCheckerboardSmallPalette(t *testing.T) {
	palette := []color.NRGBA{
		{R: 255, G: 0, B: 0, A: 255},
		{R: 0, G: 255, B: 0, A: 255},
		{R: 0, G: 0, B: 255, A: 255},
	}
	img := makeTestImage(64, 64, func(x, y int) color.NRGBA {
		return palette[(x/8+y/8)%len(palette)]
	})
	assertRoundTrip(t, img, nil)
}

func TestRoundTripLZDuplicatedRectangle(t *testing.T) {
	img := makeTestImage(128, 128, func(x, y int) color.NRGBA {
		if x >= 64 {
			x -= 64
		}
		return color.NRGBA{R: uint8(x * 3), G: uint8(y * 2), B: uint8(x + y), A: 255}
	})
	assertRoundTrip(t, img, nil)
}

func TestRoundTripManyColorsRGBA(t *testing.T) {
	img := makeTestImage(48, 48, func(x, y int) color.NRGBA {
		return color.NRGBA{R: uint8((x * 7) % 200), G: uint8((y * 11) % 200), B: uint8((x + y) % 5), A: 255}
	})
	assertRoundTrip(t, img, nil)
}

// TestRoundTripGlobalPalette64Colors keeps the distinct-color count well
// under the small-palette/global-palette boundary (spec.md §4.5: a small
// palette covers up to 16 colors, dominant-color masking and the global
// palette handle up to 256) on a plane far larger than mono's leaf-tile
// threshold, so it actually exercises the non-leaf global-palette-index
// path through internal/mono rather than falling through to RGBA mode.
func TestRoundTripGlobalPalette64Colors(t *testing.T) {
	palette := make([]color.NRGBA, 64)
	for i := range palette {
		palette[i] = color.NRGBA{
			R: uint8(i * 4),
			G: uint8(255 - i*3),
			B: uint8((i * 17) % 256),
			A: 255,
		}
	}
	img := makeTestImage(64, 64, func(x, y int) color.NRGBA {
		return palette[(x+y*3)%len(palette)]
	})
	assertRoundTrip(t, img, nil)
}

func TestRoundTripWithMaskAndAlpha(t *testing.T) {
	img := makeTestImage(32, 32, func(x, y int) color.NRGBA {
		if x < 20 && y < 20 {
			return color.NRGBA{} // dominant transparent-black background
		}
		return color.NRGBA{R: uint8(x * 5), G: uint8(y * 5), B: 128, A: uint8(128 + x)}
	})
	assertRoundTrip(t, img, nil)
}

func TestRoundTripAllPresets(t *testing.T) {
	img := makeTestImage(40, 40, func(x, y int) color.NRGBA {
		return color.NRGBA{R: uint8(x * 2), G: uint8(y * 2), B: uint8(x + y), A: 255}
	})
	presets := map[string]*Knobs{
		"faster":   FasterKnobs(),
		"better":   BetterKnobs(),
		"harder":   HarderKnobs(),
		"stronger": StrongerKnobs(),
	}
	for name, knobs := range presets {
		knobs := knobs
		t.Run(name, func(t *testing.T) {
			assertRoundTrip(t, img, knobs)
		})
	}
}

func TestDecodeRejectsCorruptHeader(t *testing.T) {
	img := makeTestImage(8, 8, func(x, y int) color.NRGBA {
		return color.NRGBA{R: uint8(x), G: uint8(y), B: 1, A: 255}
	})
	buf := &bytes.Buffer{}
	if err := Encode(buf, img, nil); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	data := buf.Bytes()
	data[0] ^= 0xff // corrupt the magic

	if _, err := Decode(bytes.NewReader(data)); err == nil {
		t.Fatal("expected error decoding corrupted header")
	} else if gerr, ok := err.(*Error); !ok || gerr.Code != ErrBadHead {
		t.Fatalf("expected ErrBadHead, got %v", err)
	}
}

func TestDecodeRejectsCorruptBody(t *testing.T) {
	img := makeTestImage(24, 24, func(x, y int) color.NRGBA {
		return color.NRGBA{R: uint8(x * 3), G: uint8(y * 3), B: uint8(x ^ y), A: 255}
	})
	buf := &bytes.Buffer{}
	if err := Encode(buf, img, nil); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	data := buf.Bytes()
	// Flip every bit of the final byte, well inside the body, past the
	// fixed header words.
	data[len(data)-1] ^= 0xff

	if _, err := Decode(bytes.NewReader(data)); err == nil {
		t.Fatal("expected error decoding corrupted body")
	} else if gerr, ok := err.(*Error); !ok || gerr.Code != ErrBadData {
		t.Fatalf("expected ErrBadData, got %v", err)
	}
}

func TestDecodeVerifyCatchesGoodHashMismatch(t *testing.T) {
	img := makeTestImage(8, 8, func(x, y int) color.NRGBA {
		return color.NRGBA{R: uint8(x), G: uint8(y), B: 7, A: 255}
	})
	buf := &bytes.Buffer{}
	if err := Encode(buf, img, nil); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	data := buf.Bytes()
	data[19] ^= 0x01 // perturb goodHash's high byte without disturbing fastHash

	if _, err := DecodeVerify(bytes.NewReader(data)); err == nil {
		t.Fatal("expected error under DecodeVerify with corrupted goodHash")
	}
}
