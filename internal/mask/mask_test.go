package mask

import (
	"testing"

	"github.com/play-co/gcif-sub001/internal/bitio"
)

func TestFindDominantColor(t *testing.T) {
	pixels := []uint32{1, 1, 1, 2, 2, 3}
	color, count := FindDominantColor(pixels)
	if color != 1 || count != 3 {
		t.Fatalf("got color=%d count=%d, want 1, 3", color, count)
	}
}

func TestBuildAndGet(t *testing.T) {
	pixels := []uint32{1, 2, 1, 2}
	m := Build(pixels, 2, 2, 1)
	if !m.Get(0, 0) || m.Get(1, 0) || !m.Get(0, 1) || m.Get(1, 1) {
		t.Fatalf("unexpected mask bits")
	}
	if m.CoverageRatio() != 0.5 {
		t.Fatalf("coverage = %f, want 0.5", m.CoverageRatio())
	}
}

func TestClaim(t *testing.T) {
	m := Build([]uint32{1, 2}, 2, 1, 1)
	if m.Get(1, 0) {
		t.Fatalf("pixel should start unclaimed")
	}
	m.Claim(1, 0)
	if !m.Get(1, 0) {
		t.Fatalf("Claim did not mark pixel")
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	width, height := 13, 7
	pixels := make([]uint32, width*height)
	for i := range pixels {
		if i%5 == 0 {
			pixels[i] = 42
		} else {
			pixels[i] = uint32(i)
		}
	}
	color, _ := FindDominantColor(pixels)
	m := Build(pixels, width, height, color)

	w := bitio.NewWriter(64)
	Write(w, m, true)
	data := w.Finish()

	r := bitio.NewReader(data)
	got := Read(r, width, height)
	if got == nil {
		t.Fatalf("Read returned nil mask")
	}
	if got.Color != m.Color {
		t.Fatalf("color mismatch: got %d want %d", got.Color, m.Color)
	}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if got.Get(x, y) != m.Get(x, y) {
				t.Fatalf("bit mismatch at (%d,%d)", x, y)
			}
		}
	}
}

func TestWriteDisabled(t *testing.T) {
	w := bitio.NewWriter(8)
	Write(w, nil, false)
	data := w.Finish()
	r := bitio.NewReader(data)
	if got := Read(r, 4, 4); got != nil {
		t.Fatalf("expected nil mask when disabled")
	}
}

func TestAllClaimedRoundTrip(t *testing.T) {
	width, height := 5, 5
	pixels := make([]uint32, width*height)
	m := Build(pixels, width, height, 0)
	w := bitio.NewWriter(16)
	Write(w, m, true)
	data := w.Finish()
	r := bitio.NewReader(data)
	got := Read(r, width, height)
	for i := 0; i < width*height; i++ {
		x, y := i%width, i/width
		if !got.Get(x, y) {
			t.Fatalf("expected all pixels claimed")
		}
	}
}
