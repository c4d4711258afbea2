package mono

import (
	"math/rand"
	"testing"

	"github.com/play-co/gcif-sub001/internal/bitio"
)

func noMask(int, int) bool { return false }

func TestRoundTripLeafSmallPlane(t *testing.T) {
	width, height := 5, 4
	data := make([]uint8, width*height)
	rng := rand.New(rand.NewSource(1))
	for i := range data {
		data[i] = uint8(rng.Intn(16))
	}
	w := bitio.NewWriter(64)
	Encode(w, data, width, height, noMask, 0, 16, 0)
	out := w.Finish()

	r := bitio.NewReader(out)
	got := Decode(r, width, height, noMask, 0, 16, 0)
	for i := range data {
		if got[i] != data[i] {
			t.Fatalf("index %d: got %d want %d", i, got[i], data[i])
		}
	}
}

func TestRoundTripChaosTiledPlane(t *testing.T) {
	width, height := 20, 18
	data := make([]uint8, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			data[y*width+x] = uint8((x + y*3) % 251)
		}
	}
	w := bitio.NewWriter(256)
	Encode(w, data, width, height, noMask, 0, 251, 0)
	out := w.Finish()

	r := bitio.NewReader(out)
	got := Decode(r, width, height, noMask, 0, 251, 0)
	for i := range data {
		if got[i] != data[i] {
			t.Fatalf("index %d: got %d want %d", i, got[i], data[i])
		}
	}
}

func TestRoundTripWithMask(t *testing.T) {
	width, height := 16, 16
	data := make([]uint8, width*height)
	for i := range data {
		data[i] = uint8(i % 200)
	}
	maskFn := func(x, y int) bool { return x < 4 && y < 4 }
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			data[y*width+x] = 77
		}
	}

	w := bitio.NewWriter(256)
	Encode(w, data, width, height, maskFn, 77, 200, 0)
	out := w.Finish()

	r := bitio.NewReader(out)
	got := Decode(r, width, height, maskFn, 77, 200, 0)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			idx := y*width + x
			if maskFn(x, y) {
				if got[idx] != 77 {
					t.Fatalf("masked pixel (%d,%d): got %d want 77", x, y, got[idx])
				}
				continue
			}
			if got[idx] != data[idx] {
				t.Fatalf("pixel (%d,%d): got %d want %d", x, y, got[idx], data[idx])
			}
		}
	}
}

func TestRoundTripConstantPlane(t *testing.T) {
	width, height := 12, 12
	data := make([]uint8, width*height)
	for i := range data {
		data[i] = 5
	}
	w := bitio.NewWriter(64)
	Encode(w, data, width, height, noMask, 0, 256, 0)
	out := w.Finish()

	r := bitio.NewReader(out)
	got := Decode(r, width, height, noMask, 0, 256, 0)
	for i := range data {
		if got[i] != 5 {
			t.Fatalf("index %d: got %d want 5", i, got[i])
		}
	}
}
