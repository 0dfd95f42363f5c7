package codec

// CompressPostings encodes a sorted, duplicate-free list of block numbers
// as varint-encoded successive deltas. The running baseline starts at 0,
// so the first delta equals the first value. Empty input yields nil.
func CompressPostings(blocks []uint64) []byte {
	if len(blocks) == 0 {
		return nil
	}
	out := make([]byte, 0, len(blocks))
	var prev uint64
	for _, b := range blocks {
		out = AppendUvarint(out, b-prev)
		prev = b
	}
	return out
}

// DecompressPostings reverses CompressPostings via a running sum of decoded
// deltas. Empty input yields an empty list; a truncated buffer surfaces
// ErrMalformedPostings from the varint decoder.
func DecompressPostings(b []byte) ([]uint64, error) {
	deltas, err := DecodeStream(b)
	if err != nil {
		return nil, err
	}
	var prev uint64
	for i, d := range deltas {
		prev += d
		deltas[i] = prev
	}
	return deltas, nil
}
