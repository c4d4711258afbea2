package lz

import "github.com/play-co/gcif-sub001/internal/bitio"

// WriteMatches serializes a match list: a 9-encoded count, then for
// each match a 9-encoded (destX, destY, w, h) and a zigzag-9-encoded
// (destX-srcX, destY-srcY) delta pair, since matches nearly always
// reference nearby source rows (sprite atlases tile small patterns).
func WriteMatches(w *bitio.Writer, matches []Match) {
	w.Write9(len(matches))
	for _, m := range matches {
		w.Write9(m.DestX)
		w.Write9(m.DestY)
		w.Write9(m.W)
		w.Write9(m.H)
		w.Write9(zigzag(m.DestX - m.SrcX))
		w.Write9(zigzag(m.DestY - m.SrcY))
	}
}

// ReadMatches reads a match list written by WriteMatches.
func ReadMatches(r *bitio.Reader) []Match {
	n := r.Read9()
	if n == 0 {
		return nil
	}
	matches := make([]Match, n)
	for i := range matches {
		destX := r.Read9()
		destY := r.Read9()
		w := r.Read9()
		h := r.Read9()
		dx := unzigzag(r.Read9())
		dy := unzigzag(r.Read9())
		matches[i] = Match{
			DestX: destX, DestY: destY,
			SrcX: destX - dx, SrcY: destY - dy,
			W: w, H: h,
		}
	}
	return matches
}

func zigzag(v int) int {
	return (v << 1) ^ (v >> 63)
}

func unzigzag(v int) int {
	return (v >> 1) ^ -(v & 1)
}
