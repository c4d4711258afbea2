package lz

import (
	"testing"

	"github.com/play-co/gcif-sub001/internal/bitio"
)

func buildTiledImage(w, h, tileW, tileH int) []uint32 {
	pixels := make([]uint32, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			tx, ty := x%tileW, y%tileH
			pixels[y*w+x] = uint32(tx)<<8 | uint32(ty)<<16 | 0xff000000
		}
	}
	return pixels
}

func TestFindMatchesOnTiledImage(t *testing.T) {
	w, h := 32, 16
	pixels := buildTiledImage(w, h, 8, 8)
	f := NewFinder(pixels, w, h)
	matches := f.FindMatches()
	if len(matches) == 0 {
		t.Fatalf("expected at least one match on a tiled image")
	}
	for _, m := range matches {
		if m.W < MinWidth || m.H < MinHeight {
			t.Fatalf("match below minimum size: %+v", m)
		}
		for dy := 0; dy < m.H; dy++ {
			for dx := 0; dx < m.W; dx++ {
				got := pixels[(m.DestY+dy)*w+m.DestX+dx]
				want := pixels[(m.SrcY+dy)*w+m.SrcX+dx]
				if got != want {
					t.Fatalf("match %+v not exact at offset (%d,%d): got %x want %x", m, dx, dy, got, want)
				}
			}
		}
	}
}

func TestFindMatchesNoFalsePositivesOnNoise(t *testing.T) {
	w, h := 16, 16
	pixels := make([]uint32, w*h)
	seed := uint32(12345)
	for i := range pixels {
		seed = seed*1103515245 + 12345
		pixels[i] = seed
	}
	f := NewFinder(pixels, w, h)
	matches := f.FindMatches()
	for _, m := range matches {
		for dy := 0; dy < m.H; dy++ {
			for dx := 0; dx < m.W; dx++ {
				got := pixels[(m.DestY+dy)*w+m.DestX+dx]
				want := pixels[(m.SrcY+dy)*w+m.SrcX+dx]
				if got != want {
					t.Fatalf("spurious match %+v not exact at (%d,%d)", m, dx, dy)
				}
			}
		}
	}
}

func TestMaskCoversMatches(t *testing.T) {
	matches := []Match{{DestX: 2, DestY: 2, SrcX: 0, SrcY: 0, W: 4, H: 3}}
	mask := Mask(10, 10, matches)
	for dy := 0; dy < 3; dy++ {
		for dx := 0; dx < 4; dx++ {
			if !mask[(2+dy)*10+2+dx] {
				t.Fatalf("mask missing covered pixel (%d,%d)", 2+dx, 2+dy)
			}
		}
	}
	if mask[0] {
		t.Fatalf("mask marked an uncovered pixel")
	}
}

func TestWriteReadMatchesRoundTrip(t *testing.T) {
	matches := []Match{
		{DestX: 10, DestY: 20, SrcX: 2, SrcY: 4, W: 8, H: 6},
		{DestX: 100, DestY: 50, SrcX: 100, SrcY: 10, W: 16, H: 16},
	}
	w := bitio.NewWriter(64)
	WriteMatches(w, matches)
	data := w.Finish()

	r := bitio.NewReader(data)
	got := ReadMatches(r)
	if len(got) != len(matches) {
		t.Fatalf("got %d matches, want %d", len(got), len(matches))
	}
	for i, m := range matches {
		if got[i] != m {
			t.Fatalf("match %d: got %+v, want %+v", i, got[i], m)
		}
	}
}

func TestWriteReadEmptyMatches(t *testing.T) {
	w := bitio.NewWriter(8)
	WriteMatches(w, nil)
	data := w.Finish()
	r := bitio.NewReader(data)
	got := ReadMatches(r)
	if len(got) != 0 {
		t.Fatalf("got %d matches, want 0", len(got))
	}
}
