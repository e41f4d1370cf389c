package decoder

import "bytes"

// classifyVariableString accepts a printable run of at least MinStringLen
// bytes that ends with a zero byte or with the buffer. The terminator, if
// present, is part of the field.
func classifyVariableString(buf []byte, pos int, opts *Options) (Field, bool) {
	if !IsPrintable(buf[pos]) {
		return Field{}, false
	}

	end := pos
	for end < len(buf) && end-pos < opts.MaxStringLen && IsPrintable(buf[end]) {
		end++
	}
	run := end - pos
	if run < opts.MinStringLen {
		return Field{}, false
	}

	width := run
	if end < len(buf) {
		if buf[end] != 0 {
			return Field{}, false
		}
		width++
	}
	return Field{
		Offset: pos,
		Kind:   VariableString,
		Width:  width,
		Text:   string(buf[pos:end]),
	}, true
}

// classifyFixedString accepts the smallest candidate width that looks like a
// zero-padded text field and consumes all of it.
func classifyFixedString(buf []byte, pos int, opts *Options) (Field, bool) {
	w := DetectFixedString(buf[pos:], opts.FixedWidths, opts.MinStringLen)
	if w == 0 {
		return Field{}, false
	}
	span := buf[pos : pos+w]
	text := span
	if i := bytes.IndexByte(span, 0); i >= 0 {
		text = span[:i]
	}
	return Field{
		Offset: pos,
		Kind:   FixedString,
		Width:  w,
		Text:   string(text),
	}, true
}

// DetectFixedString returns the first width in widths whose span of buf holds
// only printable and zero bytes, with at least minPrintable printable bytes
// and at least one zero. Widths longer than buf are skipped. It returns 0
// when no width matches.
func DetectFixedString(buf []byte, widths []int, minPrintable int) int {
	for _, w := range widths {
		if w <= 0 || w > len(buf) {
			continue
		}
		if isPaddedText(buf[:w], minPrintable) {
			return w
		}
	}
	return 0
}

func isPaddedText(span []byte, minPrintable int) bool {
	printable, zeros := 0, 0
	for _, b := range span {
		switch {
		case IsPrintable(b):
			printable++
		case b == 0:
			zeros++
		default:
			return false
		}
	}
	return printable >= minPrintable && zeros > 0
}
