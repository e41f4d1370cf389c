// Package hexinput turns hex dumps into packets.
package hexinput

import (
	"encoding/hex"
	"fmt"
	"strings"

	"firestige.xyz/pktpeek/internal/core"
)

// Parse decodes a hex string. Bytes may be separated by whitespace, commas,
// colons or dashes, and each token may carry a 0x prefix. A token without
// separators must have an even number of digits ("0a0b" is two bytes).
func Parse(s string) ([]byte, error) {
	tokens := strings.FieldsFunc(s, func(r rune) bool {
		switch r {
		case ' ', '\t', '\r', '\n', ',', ':', '-':
			return true
		}
		return false
	})

	out := make([]byte, 0, len(s)/2)
	for _, tok := range tokens {
		if len(tok) > 2 && (tok[:2] == "0x" || tok[:2] == "0X") {
			tok = tok[2:]
		}
		if len(tok)%2 != 0 {
			return nil, fmt.Errorf("%w: odd number of digits in %q", core.ErrInvalidHex, tok)
		}
		b, err := hex.DecodeString(tok)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", core.ErrInvalidHex, err)
		}
		out = append(out, b...)
	}
	return out, nil
}

// ParseLine splits an optional direction prefix off line and decodes the rest.
// ok is false for blank lines and # comments.
func ParseLine(line string, def core.Direction) (pkt core.Packet, ok bool, err error) {
	line = strings.TrimSpace(line)
	if i := strings.IndexByte(line, '#'); i >= 0 {
		line = strings.TrimSpace(line[:i])
	}
	if line == "" {
		return core.Packet{}, false, nil
	}

	dir := def
	switch line[0] {
	case '>':
		dir, line = core.DirSend, line[1:]
	case '<':
		dir, line = core.DirRecv, line[1:]
	}

	data, err := Parse(line)
	if err != nil {
		return core.Packet{}, false, err
	}
	return core.Packet{Data: data, Direction: dir}, true, nil
}
