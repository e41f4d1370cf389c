// Package filter selects link-layer frames before they are decoded.
package filter

import (
	"fmt"

	"golang.org/x/net/bpf"

	"firestige.xyz/pktpeek/internal/core"
)

const (
	etherTypeOffset = 12
	etherTypeIPv4   = 0x0800
	etherTypeIPv6   = 0x86dd
	ethHeaderLen    = 14

	ipv4ProtoOffset = ethHeaderLen + 9
	ipv4FlagsOffset = ethHeaderLen + 6
	ipv6NextOffset  = ethHeaderLen + 6
	ipv6PortsOffset = ethHeaderLen + 40

	protoTCP = 6
	protoUDP = 17

	fragOffsetMask = 0x1fff
	snapLen        = 262144
)

// PortFilter assembles the classic BPF equivalent of
// "(tcp or udp) and port N" for Ethernet frames carrying IPv4 or IPv6.
// Non-first IPv4 fragments never match.
func PortFilter(port uint16) ([]bpf.Instruction, error) {
	if port == 0 {
		return nil, fmt.Errorf("%w: bpf port must be non-zero", core.ErrConfigInvalid)
	}
	p := uint32(port)

	return []bpf.Instruction{
		// 0: ethertype
		bpf.LoadAbsolute{Off: etherTypeOffset, Size: 2},
		bpf.JumpIf{Cond: bpf.JumpEqual, Val: etherTypeIPv6, SkipFalse: 7},

		// 2: IPv6, no extension headers
		bpf.LoadAbsolute{Off: ipv6NextOffset, Size: 1},
		bpf.JumpIf{Cond: bpf.JumpEqual, Val: protoTCP, SkipTrue: 1},
		bpf.JumpIf{Cond: bpf.JumpEqual, Val: protoUDP, SkipFalse: 16},
		bpf.LoadAbsolute{Off: ipv6PortsOffset, Size: 2},
		bpf.JumpIf{Cond: bpf.JumpEqual, Val: p, SkipTrue: 13},
		bpf.LoadAbsolute{Off: ipv6PortsOffset + 2, Size: 2},
		bpf.JumpIf{Cond: bpf.JumpEqual, Val: p, SkipTrue: 11, SkipFalse: 12},

		// 9: IPv4
		bpf.JumpIf{Cond: bpf.JumpEqual, Val: etherTypeIPv4, SkipFalse: 11},
		bpf.LoadAbsolute{Off: ipv4ProtoOffset, Size: 1},
		bpf.JumpIf{Cond: bpf.JumpEqual, Val: protoTCP, SkipTrue: 1},
		bpf.JumpIf{Cond: bpf.JumpEqual, Val: protoUDP, SkipFalse: 8},
		bpf.LoadAbsolute{Off: ipv4FlagsOffset, Size: 2},
		bpf.JumpIf{Cond: bpf.JumpBitsSet, Val: fragOffsetMask, SkipTrue: 6},
		bpf.LoadMemShift{Off: ethHeaderLen},
		bpf.LoadIndirect{Off: ethHeaderLen, Size: 2},
		bpf.JumpIf{Cond: bpf.JumpEqual, Val: p, SkipTrue: 2},
		bpf.LoadIndirect{Off: ethHeaderLen + 2, Size: 2},
		bpf.JumpIf{Cond: bpf.JumpEqual, Val: p, SkipFalse: 1},

		// 20: verdicts
		bpf.RetConstant{Val: snapLen},
		bpf.RetConstant{Val: 0},
	}, nil
}

// Filter runs a classic BPF program in user space.
type Filter struct {
	prog []bpf.Instruction
	vm   *bpf.VM
}

// NewFilter validates prog and prepares a VM for it.
func NewFilter(prog []bpf.Instruction) (*Filter, error) {
	vm, err := bpf.NewVM(prog)
	if err != nil {
		return nil, fmt.Errorf("%w: bpf program: %v", core.ErrConfigInvalid, err)
	}
	return &Filter{prog: prog, vm: vm}, nil
}

// NewPortFilter is NewFilter(PortFilter(port)).
func NewPortFilter(port uint16) (*Filter, error) {
	prog, err := PortFilter(port)
	if err != nil {
		return nil, err
	}
	return NewFilter(prog)
}

// Match reports whether the program accepts frame. Frames too short for a
// load the program performs are rejected.
func (f *Filter) Match(frame []byte) bool {
	n, err := f.vm.Run(frame)
	return err == nil && n > 0
}

// Raw assembles the program, e.g. for attaching it to a socket.
func (f *Filter) Raw() ([]bpf.RawInstruction, error) {
	return bpf.Assemble(f.prog)
}
