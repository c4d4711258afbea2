// Package checksum implements the two hash functions named in GCIF's
// header (spec.md §6.1, §9): a fast, ARM-friendly streaming hash used to
// authenticate every successful decode (fastHash) and a full
// MurmurHash3 variant reserved for an explicit, opt-in verification
// mode (goodHash). See SPEC_FULL.md's Open Question #1 for why only
// the former gates normal decoding.
package checksum

const (
	// HeadSeed seeds the header hash.
	HeadSeed uint32 = 0x1f2e3d4c
	// DataSeed seeds the data-word hash.
	DataSeed uint32 = 0x7a91c3e5
)

// HotRod is a fast, branch-light streaming hash over 32-bit words with
// no finalization mix, tuned for low-power/ARM decode paths. It is the
// hash authenticated by fastHash.
type HotRod struct {
	state uint32
}

// NewHotRod creates a HotRod hash seeded with seed.
func NewHotRod(seed uint32) *HotRod {
	return &HotRod{state: seed}
}

// WriteWord folds one 32-bit word into the running hash.
func (h *HotRod) WriteWord(w uint32) {
	h.state += w
	h.state *= 0x7feb352d
	h.state ^= h.state >> 15
	h.state *= 0x846ca68b
}

// Sum returns the current hash state.
func (h *HotRod) Sum() uint32 {
	return h.state
}

// Murmur3 is a streaming wrapper around the MurmurHash3 x86_32
// finalizer, used only for the reserved goodHash verification field.
type Murmur3 struct {
	seed   uint32
	hash   uint32
	length int
}

const (
	murmurC1 = 0xcc9e2d51
	murmurC2 = 0x1b873593
)

// NewMurmur3 creates a Murmur3 hash seeded with seed.
func NewMurmur3(seed uint32) *Murmur3 {
	return &Murmur3{seed: seed, hash: seed}
}

// WriteWord folds one 32-bit word into the running hash.
func (m *Murmur3) WriteWord(w uint32) {
	k := w * murmurC1
	k = rotl32(k, 15)
	k *= murmurC2

	m.hash ^= k
	m.hash = rotl32(m.hash, 13)
	m.hash = m.hash*5 + 0xe6546b64
	m.length += 4
}

// Sum applies MurmurHash3's finalization mix and returns the hash.
func (m *Murmur3) Sum() uint32 {
	h := m.hash ^ uint32(m.length)
	h ^= h >> 16
	h *= 0x85ebca6b
	h ^= h >> 13
	h *= 0xc2b2ae35
	h ^= h >> 16
	return h
}

func rotl32(x uint32, r uint) uint32 {
	return (x << r) | (x >> (32 - r))
}
