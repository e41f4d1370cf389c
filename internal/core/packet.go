// Package core defines the packet model shared by sources and sessions.
package core

import (
	"fmt"
	"net/netip"
	"strings"
	"time"
)

// Direction tells which way a packet travelled relative to the observed client.
type Direction uint8

const (
	DirSend Direction = iota // client to server
	DirRecv                  // server to client
)

// String returns the column label used in session output.
func (d Direction) String() string {
	switch d {
	case DirSend:
		return "SEND"
	case DirRecv:
		return "RECV"
	default:
		return "????"
	}
}

// Packet is one opaque application message handed to a session.
type Packet struct {
	Data      []byte    // Raw message bytes, borrowed for the duration of one Log call
	Timestamp time.Time // Capture time; zero means "now"
	Direction Direction
	Src       netip.AddrPort // Zero when the source has no endpoint information
	Dst       netip.AddrPort
}

// Tag returns the leading tag byte and whether the packet has one.
func (p Packet) Tag() (byte, bool) {
	if len(p.Data) == 0 {
		return 0, false
	}
	return p.Data[0], true
}

// ParseDirection accepts SEND/RECV in any case, and the > and < shorthands.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "SEND", ">":
		return DirSend, nil
	case "RECV", "<":
		return DirRecv, nil
	default:
		return 0, fmt.Errorf("%w: direction %q", ErrConfigInvalid, s)
	}
}
