package render

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"firestige.xyz/pktpeek/internal/core/decoder"
)

func TestFormatField(t *testing.T) {
	tests := []struct {
		name  string
		field decoder.Field
		want  string
	}{
		{
			name:  "variable string",
			field: decoder.Field{Offset: 1, Kind: decoder.VariableString, Width: 3, Text: "OK"},
			want:  `[001] char[3]: "OK"`,
		},
		{
			name:  "unterminated string still counts a terminator",
			field: decoder.Field{Offset: 4, Kind: decoder.VariableString, Width: 3, Text: "abc"},
			want:  `[004] char[4]: "abc"`,
		},
		{
			name:  "fixed string reports width",
			field: decoder.Field{Offset: 12, Kind: decoder.FixedString, Width: 25, Text: "hero"},
			want:  `[012] char[25]: "hero"`,
		},
		{
			name:  "float",
			field: decoder.Field{Offset: 0, Kind: decoder.Float32, Width: 4, Float: 1.5},
			want:  "[000] float: 1.5000",
		},
		{
			name:  "long",
			field: decoder.Field{Offset: 0, Kind: decoder.Int32, Width: 4, Int: -500, Uint: 0xFFFFFE0C},
			want:  "[000] long: -500 (0xFFFFFE0C)",
		},
		{
			name:  "dword",
			field: decoder.Field{Offset: 3, Kind: decoder.UInt32, Width: 4, Uint: 100000},
			want:  "[003] DWORD: 100000 (0x000186A0)",
		},
		{
			name:  "short",
			field: decoder.Field{Offset: 0, Kind: decoder.Int16, Width: 2, Int: -2, Uint: 0xFFFE},
			want:  "[000] short: -2 (0xFFFE)",
		},
		{
			name:  "word",
			field: decoder.Field{Offset: 0, Kind: decoder.UInt16, Width: 2, Uint: 300},
			want:  "[000] WORD: 300 (0x012C)",
		},
		{
			name:  "bool byte",
			field: decoder.Field{Offset: 7, Kind: decoder.Byte, Width: 1, Uint: 1},
			want:  "[007] BYTE/bool: 1",
		},
		{
			name:  "byte",
			field: decoder.Field{Offset: 100, Kind: decoder.Byte, Width: 1, Uint: 0xAB},
			want:  "[100] BYTE: 171 (0xAB)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatField(tt.field))
		})
	}
}

func TestTextRendererDecodedBuffer(t *testing.T) {
	r := &TextRenderer{Indent: "  "}
	res := decoder.DecodeDefault([]byte{0x0A, 'O', 'K', 0x00}, 1)

	got := r.Render(res)

	assert.Equal(t, []string{
		"  [001] WORD: 19279 (0x4B4F)",
		"  [003] BYTE/bool: 0",
	}, got)
}

func TestTextRendererTrailing(t *testing.T) {
	r := &TextRenderer{Indent: DefaultIndent}
	res := decoder.Decode(make([]byte, 20), 0, decoder.Options{FieldCap: 2})

	got := r.Render(res)

	assert.Len(t, got, 3)
	assert.Equal(t, DefaultIndent+"... +18 more bytes", got[2])
}

func TestTextRendererEmpty(t *testing.T) {
	r := &TextRenderer{}
	assert.Empty(t, r.Render(decoder.Result{Start: 1}))
}
