package decoder

import "math"

// Plausibility bounds. Values outside them are far more likely to be noise,
// pointers or sentinels than real protocol data.
const (
	minFloatMagnitude float32 = 0.0001
	maxFloatMagnitude float32 = 100000

	minInt32       = -100000000 // exclusive
	maxUint32      = 0xF0000000 // inclusive
	minInt16       = -32000     // exclusive
	maxUint16      = 0xFFF0     // exclusive
	printableFirst = 32
	printableLast  = 126
)

// IsPrintable reports whether b is printable 7-bit ASCII.
func IsPrintable(b byte) bool {
	return b >= printableFirst && b <= printableLast
}

// IsPlausibleFloat rejects NaN, zero and magnitudes outside
// [0.0001, 100000].
func IsPlausibleFloat(f float32) bool {
	if math.IsNaN(float64(f)) || f == 0 {
		return false
	}
	m := float32(math.Abs(float64(f)))
	return m >= minFloatMagnitude && m <= maxFloatMagnitude
}

// IsPlausibleInt32 accepts small negative values only.
func IsPlausibleInt32(v int32) bool {
	return v < 0 && v > minInt32
}

// IsPlausibleUint32 rejects 0, all-ones and anything above 0xF0000000.
func IsPlausibleUint32(v uint32) bool {
	return v != 0 && v != math.MaxUint32 && v <= maxUint32
}

// IsPlausibleInt16 accepts small negative values only.
func IsPlausibleInt16(v int16) bool {
	return v < 0 && v > minInt16
}

// IsPlausibleUint16 accepts values strictly between 0 and 0xFFF0.
func IsPlausibleUint16(v uint16) bool {
	return v > 0 && v < maxUint16
}
