package decoder

import (
	"encoding/binary"
	"math"
)

// classifier inspects buf at pos and either accepts, returning a field of
// width ≥ 1, or declines without side effects.
type classifier func(buf []byte, pos int, opts *Options) (Field, bool)

// classifiers in priority order. Strings come first because an exact text
// pattern is the least ambiguous reading; classifyByte must stay last.
var classifiers = []classifier{
	classifyVariableString,
	classifyFixedString,
	classifyFloat32,
	classifyInt32,
	classifyInt16,
	classifyByte,
}

func classify(buf []byte, pos int, opts *Options) Field {
	last := len(classifiers) - 1
	for _, c := range classifiers[:last] {
		if f, ok := c(buf, pos, opts); ok {
			return f
		}
	}
	// the byte classifier accepts any in-bounds position
	f, _ := classifiers[last](buf, pos, opts)
	return f
}

// Captured traffic comes from little-endian hosts.
func read32(buf []byte, pos int) (uint32, bool) {
	if pos < 0 || pos+4 > len(buf) {
		return 0, false
	}
	return binary.LittleEndian.Uint32(buf[pos : pos+4]), true
}

func read16(buf []byte, pos int) (uint16, bool) {
	if pos < 0 || pos+2 > len(buf) {
		return 0, false
	}
	return binary.LittleEndian.Uint16(buf[pos : pos+2]), true
}

func classifyFloat32(buf []byte, pos int, _ *Options) (Field, bool) {
	bits, ok := read32(buf, pos)
	if !ok {
		return Field{}, false
	}
	v := math.Float32frombits(bits)
	if !IsPlausibleFloat(v) {
		return Field{}, false
	}
	return Field{Offset: pos, Kind: Float32, Width: 4, Float: v, Uint: uint64(bits)}, true
}

// classifyInt32 prefers a small negative signed reading over the unsigned
// one: deltas and offsets are common and otherwise look like huge unsigned
// values.
func classifyInt32(buf []byte, pos int, _ *Options) (Field, bool) {
	u, ok := read32(buf, pos)
	if !ok {
		return Field{}, false
	}
	if s := int32(u); IsPlausibleInt32(s) {
		return Field{Offset: pos, Kind: Int32, Width: 4, Int: int64(s), Uint: uint64(u)}, true
	}
	if IsPlausibleUint32(u) {
		return Field{Offset: pos, Kind: UInt32, Width: 4, Uint: uint64(u)}, true
	}
	return Field{}, false
}

func classifyInt16(buf []byte, pos int, _ *Options) (Field, bool) {
	u, ok := read16(buf, pos)
	if !ok {
		return Field{}, false
	}
	if s := int16(u); IsPlausibleInt16(s) {
		return Field{Offset: pos, Kind: Int16, Width: 2, Int: int64(s), Uint: uint64(u)}, true
	}
	if IsPlausibleUint16(u) {
		return Field{Offset: pos, Kind: UInt16, Width: 2, Uint: uint64(u)}, true
	}
	return Field{}, false
}

func classifyByte(buf []byte, pos int, _ *Options) (Field, bool) {
	return Field{Offset: pos, Kind: Byte, Width: 1, Uint: uint64(buf[pos])}, true
}
