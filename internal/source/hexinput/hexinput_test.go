package hexinput

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/pktpeek/internal/core"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []byte
	}{
		{"compact", "0a0b0c", []byte{0x0a, 0x0b, 0x0c}},
		{"spaced", "0A 0B  0C", []byte{0x0a, 0x0b, 0x0c}},
		{"prefixed", "0x0a, 0x0b,0x0C", []byte{0x0a, 0x0b, 0x0c}},
		{"colons", "de:ad:be:ef", []byte{0xde, 0xad, 0xbe, 0xef}},
		{"dashes", "de-ad", []byte{0xde, 0xad}},
		{"mixed", "0xdead be:ef\t01", []byte{0xde, 0xad, 0xbe, 0xef, 0x01}},
		{"empty", "   ", []byte{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseErrors(t *testing.T) {
	for _, in := range []string{"abc", "0xg0", "zz", "0x1"} {
		_, err := Parse(in)
		assert.True(t, errors.Is(err, core.ErrInvalidHex), "input %q: %v", in, err)
	}
}

func TestParseLine(t *testing.T) {
	pkt, ok, err := ParseLine("> 0a 01 # login", core.DirRecv)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, core.DirSend, pkt.Direction)
	assert.Equal(t, []byte{0x0a, 0x01}, pkt.Data)

	pkt, ok, err = ParseLine("<0b", core.DirSend)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, core.DirRecv, pkt.Direction)

	pkt, ok, err = ParseLine("0c", core.DirSend)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, core.DirSend, pkt.Direction)

	for _, blank := range []string{"", "   ", "# comment only"} {
		_, ok, err = ParseLine(blank, core.DirSend)
		assert.NoError(t, err)
		assert.False(t, ok)
	}
}

func TestReaderRun(t *testing.T) {
	input := strings.Join([]string{
		"# captured login",
		"> 0a 75 73 65 72 00",
		"",
		"< 0b 01",
		"0c",
	}, "\n")

	r := NewReader("", strings.NewReader(input), core.DirRecv)
	assert.Equal(t, "hexinput:stdin", r.Name())

	out := make(chan core.Packet, 8)
	require.NoError(t, r.Run(context.Background(), out))
	close(out)

	var dirs []core.Direction
	for p := range out {
		dirs = append(dirs, p.Direction)
	}
	assert.Equal(t, []core.Direction{core.DirSend, core.DirRecv, core.DirRecv}, dirs)
}

func TestReaderReportsLine(t *testing.T) {
	r := NewReader("dump.txt", strings.NewReader("0a\nxyz\n"), core.DirSend)
	out := make(chan core.Packet, 8)

	err := r.Run(context.Background(), out)

	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrInvalidHex))
	assert.Contains(t, err.Error(), "dump.txt line 2")
	assert.Len(t, out, 1)
}

func TestPacketsCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Packets{{Data: []byte{1}}}.Run(ctx, make(chan core.Packet))
	assert.True(t, errors.Is(err, context.Canceled))
}
