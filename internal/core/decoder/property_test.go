package decoder

import (
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// randomBuffer mixes printable text, zero runs and arbitrary bytes so string,
// numeric and fallback classifiers all get exercised.
func randomBuffer(r *rand.Rand) []byte {
	n := r.Intn(300)
	buf := make([]byte, n)
	for i := range buf {
		switch r.Intn(4) {
		case 0:
			buf[i] = byte(32 + r.Intn(95))
		case 1:
			buf[i] = 0
		case 2:
			buf[i] = 0xFF
		default:
			buf[i] = byte(r.Intn(256))
		}
	}
	return buf
}

func checkInvariants(t *testing.T, buf []byte, fieldCap int, res Result) {
	t.Helper()

	if len(res.Fields) > fieldCap {
		t.Fatalf("field count %d exceeds cap %d", len(res.Fields), fieldCap)
	}

	pos := res.Start
	sum := 0
	for i, f := range res.Fields {
		if f.Width < 1 {
			t.Fatalf("field %d has width %d", i, f.Width)
		}
		if f.Offset != pos {
			t.Fatalf("field %d starts at %d, expected contiguous %d", i, f.Offset, pos)
		}
		pos += f.Width
		sum += f.Width
	}
	if pos > len(buf) {
		t.Fatalf("fields run past buffer end: %d > %d", pos, len(buf))
	}

	if res.Truncated {
		if res.Trailing <= 0 {
			t.Fatalf("truncated result reports %d trailing bytes", res.Trailing)
		}
	} else if res.Trailing != 0 {
		t.Fatalf("untruncated result reports %d trailing bytes", res.Trailing)
	}

	if got := res.Start + sum + res.Trailing; got != len(buf) {
		t.Fatalf("coverage: start %d + fields %d + trailing %d = %d, want %d",
			res.Start, sum, res.Trailing, got, len(buf))
	}
}

func TestDecodeInvariants(t *testing.T) {
	r := rand.New(rand.NewSource(20241019))
	caps := []int{0, 1, 4, 16, 1000}

	for i := 0; i < 2000; i++ {
		buf := randomBuffer(r)
		start := 0
		if len(buf) > 0 {
			start = r.Intn(len(buf) + 1)
		}
		fieldCap := caps[i%len(caps)]
		opts := DefaultOptions()
		opts.FieldCap = fieldCap

		first := Decode(buf, start, opts)
		checkInvariants(t, buf, fieldCap, first)

		second := Decode(buf, start, opts)
		if diff := cmp.Diff(first, second); diff != "" {
			t.Fatalf("decode is not deterministic (-first +second):\n%s", diff)
		}
	}
}

func TestDecodeAdversarialFill(t *testing.T) {
	for _, fill := range []byte{0x00, 0xFF, 0x7F, ' '} {
		buf := make([]byte, 4096)
		for i := range buf {
			buf[i] = fill
		}
		opts := DefaultOptions()
		opts.FieldCap = len(buf)

		res := Decode(buf, 0, opts)
		checkInvariants(t, buf, opts.FieldCap, res)
	}
}
