// Package decoder implements schema-less heuristic decoding of opaque
// application messages.
//
// Decode walks a buffer from a start cursor and, at every position, asks an
// ordered list of classifiers what the bytes look like: a terminated string,
// a zero-padded fixed-size string, a plausible float, a 32-bit or 16-bit
// integer, and finally a single byte. The first classifier that accepts wins
// and the cursor advances by the width it consumed. The byte classifier always
// accepts, so every call terminates and covers the buffer up to the field cap.
//
// The result is a best guess for a human reading a debug log. It is never a
// schema and is never fed back into anything.
package decoder

// Result is the outcome of one Decode call.
type Result struct {
	Start     int     // Cursor the classification loop began at
	Fields    []Field // Contiguous, in increasing offset order
	Truncated bool    // Field cap reached before the end of the buffer
	Trailing  int     // Bytes left unclassified when Truncated
}

// End returns the offset just past the last classified byte.
func (r Result) End() int {
	if len(r.Fields) == 0 {
		return r.Start
	}
	return r.Fields[len(r.Fields)-1].End()
}

// Decode classifies buf from start until the buffer ends or opts.FieldCap
// fields have been produced. start is clamped into [0, len(buf)].
//
// Decode never fails and does not retain buf.
func Decode(buf []byte, start int, opts Options) Result {
	opts = opts.Normalize()

	n := len(buf)
	if start < 0 {
		start = 0
	}
	if start > n {
		start = n
	}

	res := Result{Start: start}
	pos := start
	for pos < n {
		if len(res.Fields) >= opts.FieldCap {
			res.Truncated = true
			res.Trailing = n - pos
			break
		}
		f := classify(buf, pos, &opts)
		res.Fields = append(res.Fields, f)
		pos += f.Width
	}
	return res
}

// DecodeDefault decodes with DefaultOptions.
func DecodeDefault(buf []byte, start int) Result {
	return Decode(buf, start, DefaultOptions())
}

// DecodePacket detects the header prefix and decodes the remainder.
func DecodePacket(buf []byte, opts Options) Result {
	return Decode(buf, DetectStart(buf), opts)
}
