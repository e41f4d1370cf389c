package decoder

import (
	"fmt"
	"slices"

	"firestige.xyz/pktpeek/internal/core"
)

const (
	DefaultFieldCap     = 16
	DefaultMinStringLen = 3
	DefaultMaxStringLen = 64
)

// DefaultFixedWidths are the padded text-field sizes tried smallest-first.
var DefaultFixedWidths = []int{13, 16, 17, 24, 25, 31, 32, 33, 48, 64, 65, 128, 256}

// Options tunes the classifiers. The zero value is usable but has a field
// cap of zero; start from DefaultOptions.
type Options struct {
	FieldCap     int   // Maximum fields per buffer
	MinStringLen int   // Minimum printable characters for either string kind
	MaxStringLen int   // Scan limit for terminated strings
	FixedWidths  []int // Candidate padded string widths
}

// DefaultOptions returns the tuned defaults.
func DefaultOptions() Options {
	return Options{
		FieldCap:     DefaultFieldCap,
		MinStringLen: DefaultMinStringLen,
		MaxStringLen: DefaultMaxStringLen,
		FixedWidths:  slices.Clone(DefaultFixedWidths),
	}
}

// IsZero reports whether o is the zero value.
func (o Options) IsZero() bool {
	return o.FieldCap == 0 && o.MinStringLen == 0 && o.MaxStringLen == 0 && o.FixedWidths == nil
}

// Normalize fills unset string limits, clamps a negative field cap to zero and
// returns the fixed widths sorted ascending without duplicates or
// non-positive entries. A nil width list selects DefaultFixedWidths; an empty
// non-nil list disables fixed-width strings.
func (o Options) Normalize() Options {
	if o.FieldCap < 0 {
		o.FieldCap = 0
	}
	if o.MinStringLen <= 0 {
		o.MinStringLen = DefaultMinStringLen
	}
	if o.MaxStringLen <= 0 {
		o.MaxStringLen = DefaultMaxStringLen
	}

	src := o.FixedWidths
	if src == nil {
		src = DefaultFixedWidths
	}
	widths := make([]int, 0, len(src))
	for _, w := range src {
		if w > 0 {
			widths = append(widths, w)
		}
	}
	slices.Sort(widths)
	o.FixedWidths = slices.Compact(widths)
	return o
}

// Validate rejects option sets a user could only have produced by mistake.
func (o Options) Validate() error {
	if o.FieldCap < 0 {
		return fmt.Errorf("%w: field cap %d is negative", core.ErrConfigInvalid, o.FieldCap)
	}
	if o.MinStringLen < 0 || o.MaxStringLen < 0 {
		return fmt.Errorf("%w: string lengths must not be negative", core.ErrConfigInvalid)
	}
	if o.MinStringLen > 0 && o.MaxStringLen > 0 && o.MinStringLen > o.MaxStringLen {
		return fmt.Errorf("%w: min string length %d exceeds max %d",
			core.ErrConfigInvalid, o.MinStringLen, o.MaxStringLen)
	}
	for _, w := range o.FixedWidths {
		if w <= 0 {
			return fmt.Errorf("%w: fixed width %d must be positive", core.ErrConfigInvalid, w)
		}
	}
	return nil
}
