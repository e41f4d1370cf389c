package decoder

import "encoding/binary"

const (
	tagLen          = 1
	lengthPrefixEnd = 3
)

// DetectStart returns the offset field scanning should begin at: past the
// one-byte tag, and also past a two-byte little-endian total length when that
// length equals len(buf) exactly. An empty buffer starts at 0.
func DetectStart(buf []byte) int {
	if len(buf) == 0 {
		return 0
	}
	if HasLengthPrefix(buf) {
		return lengthPrefixEnd
	}
	return tagLen
}

// HasLengthPrefix reports whether bytes 1-2 carry the buffer's own length.
// DetectStart skips those bytes when it does.
func HasLengthPrefix(buf []byte) bool {
	if len(buf) < lengthPrefixEnd {
		return false
	}
	return int(binary.LittleEndian.Uint16(buf[tagLen:lengthPrefixEnd])) == len(buf)
}
