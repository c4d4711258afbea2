package huffman

import (
	"math/rand"
	"testing"

	"github.com/play-co/gcif-sub001/internal/bitio"
)

func TestBuildCodeLengthsSatisfiesKraft(t *testing.T) {
	hist := []int{10, 1, 1, 5, 0, 20, 3, 1}
	lengths := BuildCodeLengths(hist, 7)
	sum := 0.0
	for i, l := range lengths {
		if l == 0 {
			if hist[i] != 0 {
				t.Fatalf("symbol %d has nonzero weight but zero length", i)
			}
			continue
		}
		sum += 1.0 / float64(int(1)<<uint(l))
	}
	if sum > 1.0001 {
		t.Fatalf("Kraft inequality violated: sum=%f", sum)
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	hist := []int{50, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1}
	lengths := BuildCodeLengths(hist, MaxCodeLength)
	enc := NewEncoder(lengths)
	dec, err := NewDecoder(lengths)
	if err != nil {
		t.Fatalf("NewDecoder: %v", err)
	}

	rng := rand.New(rand.NewSource(1))
	var symbols []int
	for i := 0; i < 500; i++ {
		symbols = append(symbols, rng.Intn(len(hist)))
	}

	w := bitio.NewWriter(256)
	for _, s := range symbols {
		enc.WriteSymbol(w, s)
	}
	data := w.Finish()

	r := bitio.NewReader(data)
	for i, want := range symbols {
		got, err := dec.ReadSymbol(r)
		if err != nil {
			t.Fatalf("symbol %d: ReadSymbol: %v", i, err)
		}
		if got != want {
			t.Fatalf("symbol %d: got %d want %d", i, got, want)
		}
	}
}

func TestSingleSymbolAlphabet(t *testing.T) {
	lengths := []int{0, 5, 0, 0}
	enc := NewEncoder(lengths)
	dec, err := NewDecoder(lengths)
	if err != nil {
		t.Fatalf("NewDecoder: %v", err)
	}
	w := bitio.NewWriter(16)
	for i := 0; i < 10; i++ {
		enc.WriteSymbol(w, 1)
	}
	data := w.Finish()
	r := bitio.NewReader(data)
	for i := 0; i < 10; i++ {
		got, err := dec.ReadSymbol(r)
		if err != nil {
			t.Fatalf("ReadSymbol: %v", err)
		}
		if got != 1 {
			t.Fatalf("got %d want 1", got)
		}
	}
}

func TestCompressDecompressLengths(t *testing.T) {
	lengths := []int{0, 0, 0, 3, 4, 0, 0, 0, 0, 0, 0, 7, 2, 0}
	w := bitio.NewWriter(64)
	CompressLengths(w, lengths)
	data := w.Finish()

	r := bitio.NewReader(data)
	got, err := DecompressLengths(r, len(lengths))
	if err != nil {
		t.Fatalf("DecompressLengths: %v", err)
	}
	for i := range lengths {
		if got[i] != lengths[i] {
			t.Fatalf("index %d: got %d want %d", i, got[i], lengths[i])
		}
	}
}

func TestCompressLengthsLongZeroRun(t *testing.T) {
	lengths := make([]int, 300)
	lengths[5] = 4
	lengths[290] = 6
	w := bitio.NewWriter(64)
	CompressLengths(w, lengths)
	data := w.Finish()

	r := bitio.NewReader(data)
	got, err := DecompressLengths(r, len(lengths))
	if err != nil {
		t.Fatalf("DecompressLengths: %v", err)
	}
	for i := range lengths {
		if got[i] != lengths[i] {
			t.Fatalf("index %d: got %d want %d", i, got[i], lengths[i])
		}
	}
}
