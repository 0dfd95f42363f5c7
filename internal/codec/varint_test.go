package codec

import (
	"errors"
	"math"
	"testing"

	pkgerrors "github.com/Adrijan-Petek/onchain-search-boolean-prototype/pkg/errors"
)

func TestUvarintRoundTrip(t *testing.T) {
	cases := []struct {
		n    uint64
		want []byte
	}{
		{0, []byte{0x00}},
		{1, []byte{0x01}},
		{127, []byte{0x7f}},
		{128, []byte{0x80, 0x01}},
		{300, []byte{0xac, 0x02}},
		{16383, []byte{0xff, 0x7f}},
		{16384, []byte{0x80, 0x80, 0x01}},
		{math.MaxUint64, []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x01}},
	}
	for _, tc := range cases {
		enc := EncodeUvarint(tc.n)
		if string(enc) != string(tc.want) {
			t.Errorf("EncodeUvarint(%d) = %x, want %x", tc.n, enc, tc.want)
		}
		dec, err := DecodeStream(enc)
		if err != nil {
			t.Fatalf("DecodeStream(%x): %v", enc, err)
		}
		if len(dec) != 1 || dec[0] != tc.n {
			t.Errorf("DecodeStream(%x) = %v, want [%d]", enc, dec, tc.n)
		}
	}
}

func TestDecodeStreamConcatenated(t *testing.T) {
	values := []uint64{0, 127, 128, 300, 1, 1 << 40, 99}
	var buf []byte
	for _, v := range values {
		buf = AppendUvarint(buf, v)
	}
	dec, err := DecodeStream(buf)
	if err != nil {
		t.Fatalf("DecodeStream: %v", err)
	}
	if len(dec) != len(values) {
		t.Fatalf("decoded %d values, want %d", len(dec), len(values))
	}
	for i, v := range values {
		if dec[i] != v {
			t.Errorf("dec[%d] = %d, want %d", i, dec[i], v)
		}
	}
}

func TestDecodeStreamEmpty(t *testing.T) {
	dec, err := DecodeStream(nil)
	if err != nil {
		t.Fatalf("DecodeStream(nil): %v", err)
	}
	if len(dec) != 0 {
		t.Errorf("DecodeStream(nil) = %v, want empty", dec)
	}
}

func TestDecodeStreamTruncated(t *testing.T) {
	// 300 encodes as {0xac, 0x02}; dropping the final byte leaves the
	// continuation bit dangling.
	truncated := [][]byte{
		{0xac},
		{0x80},
		{0xff, 0xff},
		append(EncodeUvarint(5), 0x80),
	}
	for _, buf := range truncated {
		if _, err := DecodeStream(buf); !errors.Is(err, pkgerrors.ErrMalformedPostings) {
			t.Errorf("DecodeStream(%x) error = %v, want ErrMalformedPostings", buf, err)
		}
	}
}
