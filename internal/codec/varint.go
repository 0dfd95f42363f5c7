// Package codec implements the wire format for postings lists: unsigned
// varints and delta compression over sorted block numbers.
package codec

import (
	pkgerrors "github.com/Adrijan-Petek/onchain-search-boolean-prototype/pkg/errors"
)

// AppendUvarint appends the varint encoding of n to dst and returns the
// extended slice. The encoding emits 7-bit groups low-order first; every
// byte except the last carries the continuation bit (0x80).
func AppendUvarint(dst []byte, n uint64) []byte {
	for n >= 0x80 {
		dst = append(dst, byte(n)|0x80)
		n >>= 7
	}
	return append(dst, byte(n))
}

// EncodeUvarint returns the varint encoding of n.
func EncodeUvarint(n uint64) []byte {
	return AppendUvarint(nil, n)
}

// DecodeStream decodes concatenated varints until the buffer is exhausted.
// A buffer that ends mid-value (final byte still has the continuation bit
// set) is rejected with ErrMalformedPostings rather than truncated.
func DecodeStream(b []byte) ([]uint64, error) {
	if len(b) == 0 {
		return nil, nil
	}
	out := make([]uint64, 0, len(b))
	for i := 0; i < len(b); {
		var (
			val   uint64
			shift uint
		)
		for {
			if i >= len(b) {
				return nil, pkgerrors.ErrMalformedPostings
			}
			c := b[i]
			i++
			val |= uint64(c&0x7f) << shift
			if c&0x80 == 0 {
				break
			}
			shift += 7
		}
		out = append(out, val)
	}
	return out, nil
}
