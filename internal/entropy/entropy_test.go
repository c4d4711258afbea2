package entropy

import (
	"math/rand"
	"testing"

	"github.com/play-co/gcif-sub001/internal/bitio"
)

func roundTrip(t *testing.T, symbols []int, numSyms int) {
	t.Helper()
	model := BuildModel(symbols, numSyms)
	coder := NewCoder(model)

	w := bitio.NewWriter(256)
	coder.WriteHeader(w)
	coder.EncodeStream(w, symbols)
	data := w.Finish()

	r := bitio.NewReader(data)
	gotModel, err := ReadModel(r, numSyms)
	if err != nil {
		t.Fatalf("ReadModel: %v", err)
	}
	if gotModel.UseZRLE != model.UseZRLE {
		t.Fatalf("UseZRLE mismatch: got %v want %v", gotModel.UseZRLE, model.UseZRLE)
	}
	dec, err := NewDecoderFromModel(gotModel)
	if err != nil {
		t.Fatalf("NewDecoderFromModel: %v", err)
	}

	got := dec.DecodeStream(r, len(symbols))
	for i := range symbols {
		if got[i] != symbols[i] {
			t.Fatalf("symbol %d: got %d want %d", i, got[i], symbols[i])
		}
	}
}

func TestRoundTripSparseSymbolsChoosesZRLE(t *testing.T) {
	numSyms := 20
	symbols := make([]int, 0, 400)
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 400; i++ {
		if rng.Intn(10) < 8 {
			symbols = append(symbols, 0)
			continue
		}
		symbols = append(symbols, 1+rng.Intn(numSyms-1))
	}
	roundTrip(t, symbols, numSyms)
}

func TestRoundTripDenseSymbols(t *testing.T) {
	numSyms := 16
	symbols := make([]int, 300)
	rng := rand.New(rand.NewSource(2))
	for i := range symbols {
		symbols[i] = rng.Intn(numSyms)
	}
	roundTrip(t, symbols, numSyms)
}

func TestRoundTripLongZeroRun(t *testing.T) {
	numSyms := 8
	symbols := make([]int, 0, 100)
	for i := 0; i < 40; i++ {
		symbols = append(symbols, 0)
	}
	symbols = append(symbols, 3, 5, 1)
	for i := 0; i < 30; i++ {
		symbols = append(symbols, 0)
	}
	symbols = append(symbols, 2)
	roundTrip(t, symbols, numSyms)
}

func TestRoundTripNoZerosAtAll(t *testing.T) {
	numSyms := 5
	symbols := []int{1, 2, 3, 4, 1, 2, 3, 4, 1, 1, 1, 2}
	roundTrip(t, symbols, numSyms)
}

func TestRoundTripSingleSymbol(t *testing.T) {
	symbols := make([]int, 50)
	roundTrip(t, symbols, 1)
}
