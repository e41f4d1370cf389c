package render

import (
	"fmt"

	"firestige.xyz/pktpeek/internal/core/decoder"
)

// TextRenderer writes one human-readable line per field, followed by a
// remainder line when the field cap cut the buffer short.
type TextRenderer struct {
	Indent string
}

func (r *TextRenderer) Render(res decoder.Result) []string {
	lines := make([]string, 0, len(res.Fields)+1)
	for _, f := range res.Fields {
		lines = append(lines, r.Indent+FormatField(f))
	}
	if res.Trailing > 0 {
		lines = append(lines, fmt.Sprintf("%s... +%d more bytes", r.Indent, res.Trailing))
	}
	return lines
}

// FormatField renders a single field without indentation.
func FormatField(f decoder.Field) string {
	var body string
	switch f.Kind {
	case decoder.VariableString:
		body = fmt.Sprintf("char[%d]: \"%s\"", len(f.Text)+1, f.Text)
	case decoder.FixedString:
		body = fmt.Sprintf("char[%d]: \"%s\"", f.Width, f.Text)
	case decoder.Float32:
		body = fmt.Sprintf("float: %.4f", f.Float)
	case decoder.Int32:
		body = fmt.Sprintf("long: %d (0x%08X)", f.Int, f.Uint)
	case decoder.UInt32:
		body = fmt.Sprintf("DWORD: %d (0x%08X)", f.Uint, f.Uint)
	case decoder.Int16:
		body = fmt.Sprintf("short: %d (0x%04X)", f.Int, f.Uint)
	case decoder.UInt16:
		body = fmt.Sprintf("WORD: %d (0x%04X)", f.Uint, f.Uint)
	case decoder.Byte:
		if f.IsBool() {
			body = fmt.Sprintf("BYTE/bool: %d", f.Uint)
		} else {
			body = fmt.Sprintf("BYTE: %d (0x%02X)", f.Uint, f.Uint)
		}
	default:
		body = fmt.Sprintf("%s: %v", f.Kind, f.Value())
	}
	return fmt.Sprintf("[%03d] %s", f.Offset, body)
}
