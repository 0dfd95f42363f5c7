// Package bloom provides the fixed-size probabilistic membership filter kept
// per shard. A filter never reports false negatives for keys added to it;
// false positives occur at a rate of roughly (1 - e^(-k*n/m))^k for n
// inserted keys, m bits, and k hash rounds.
package bloom

import (
	"crypto/sha256"
	"encoding/binary"
)

// Filter is a bloom filter over m bits with k hash rounds. The zero value is
// not usable; construct with New or FromBytes.
type Filter struct {
	// bits holds the serialized form directly: a big-endian bit buffer of
	// ceil(m/8) bytes where bit position p lives in byte len(bits)-1-p/8.
	bits []byte
	m    int
	k    int
}

// New creates an empty filter with m bits and k hash rounds. Both parameters
// must match between the build that wrote a filter and any later read.
func New(m, k int) *Filter {
	return &Filter{
		bits: make([]byte, (m+7)/8),
		m:    m,
		k:    k,
	}
}

// FromBytes reconstructs a filter from its serialized bit buffer. The buffer
// is copied; b must be exactly ceil(m/8) bytes for positions to line up.
func FromBytes(b []byte, m, k int) *Filter {
	f := New(m, k)
	copy(f.bits[len(f.bits)-len(b):], b)
	return f
}

// positions derives the k bit positions for key from a single sha256 digest:
// round i reads the 8-byte big-endian window at offset (i*8) mod (len(h)-7)
// and reduces it mod m. For k > 4 the offsets wrap below len(h)-7 and the
// windows overlap, weakening hash independence; kept as-is so observed
// false-positive rates stay compatible with existing indexes.
func (f *Filter) positions(key string) []uint64 {
	h := sha256.Sum256([]byte(key))
	pos := make([]uint64, f.k)
	for i := 0; i < f.k; i++ {
		start := (i * 8) % (len(h) - 7)
		v := binary.BigEndian.Uint64(h[start : start+8])
		pos[i] = v % uint64(f.m)
	}
	return pos
}

// Add marks key as present. Bits are only ever set, never cleared.
func (f *Filter) Add(key string) {
	for _, p := range f.positions(key) {
		idx := len(f.bits) - 1 - int(p/8)
		f.bits[idx] |= 1 << (p % 8)
	}
}

// Contains reports whether key may have been added. A false return is
// definitive; a true return may be a false positive.
func (f *Filter) Contains(key string) bool {
	for _, p := range f.positions(key) {
		idx := len(f.bits) - 1 - int(p/8)
		if f.bits[idx]&(1<<(p%8)) == 0 {
			return false
		}
	}
	return true
}

// Bytes returns the serialized filter: a big-endian bit buffer of ceil(m/8)
// bytes. The returned slice is a copy.
func (f *Filter) Bytes() []byte {
	out := make([]byte, len(f.bits))
	copy(out, f.bits)
	return out
}

// M returns the configured bit count.
func (f *Filter) M() int { return f.m }

// K returns the configured hash-round count.
func (f *Filter) K() int { return f.k }
