// Package pcapfile replays application payloads from a capture file.
package pcapfile

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"net/netip"
	"os"
	"sync/atomic"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"firestige.xyz/pktpeek/internal/core"
	"firestige.xyz/pktpeek/internal/filter"
	"firestige.xyz/pktpeek/internal/log"
	"firestige.xyz/pktpeek/internal/source"
)

const Name = "pcapfile"

const pcapngMagic = 0x0A0D0D0A

type Config struct {
	Path       string
	ServerPort uint16 // 0 = emit every payload as RECV
	BPF        bool   // prefilter Ethernet frames by ServerPort
	Limit      int    // max packets emitted, 0 = unlimited
}

// packetReader is satisfied by both pcapgo.Reader and pcapgo.NgReader.
type packetReader interface {
	ReadPacketData() ([]byte, gopacket.CaptureInfo, error)
	LinkType() layers.LinkType
}

// Stats counts frames seen by a Source.
type Stats struct {
	Frames   uint64 // frames read from the file
	Filtered uint64 // frames dropped by the prefilter or the port match
	Emitted  uint64 // packets handed to the session
}

type Source struct {
	cfg    Config
	file   *os.File
	reader packetReader
	chain  *filter.Chain

	frames   atomic.Uint64
	filtered atomic.Uint64
	emitted  atomic.Uint64
}

var _ source.Source = (*Source)(nil)

func NewSource(cfg Config) (*Source, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("%w: capture file path is required", core.ErrConfigInvalid)
	}
	if cfg.Limit < 0 {
		return nil, fmt.Errorf("%w: limit must not be negative", core.ErrConfigInvalid)
	}
	return &Source{cfg: cfg}, nil
}

func (s *Source) Name() string {
	return Name + ":" + s.cfg.Path
}

// Start opens the capture file and detects its format.
func (s *Source) Start() error {
	f, err := os.Open(s.cfg.Path)
	if err != nil {
		return fmt.Errorf("failed to open capture file %s: %w", s.cfg.Path, err)
	}

	br := bufio.NewReader(f)
	magic, err := br.Peek(4)
	if err != nil {
		f.Close()
		return fmt.Errorf("failed to read capture header %s: %w", s.cfg.Path, err)
	}

	var r packetReader
	if binary.LittleEndian.Uint32(magic) == pcapngMagic {
		r, err = pcapgo.NewNgReader(br, pcapgo.DefaultNgReaderOptions)
	} else {
		r, err = pcapgo.NewReader(br)
	}
	if err != nil {
		f.Close()
		return fmt.Errorf("failed to parse capture file %s: %w", s.cfg.Path, err)
	}

	if !supportedLinkType(r.LinkType()) {
		f.Close()
		return fmt.Errorf("%w: %s", core.ErrUnsupportedLinkType, r.LinkType())
	}

	chain := filter.NewChain()
	if s.cfg.BPF && s.cfg.ServerPort != 0 && r.LinkType() == layers.LinkTypeEthernet {
		pf, err := filter.NewPortFilter(s.cfg.ServerPort)
		if err != nil {
			f.Close()
			return err
		}
		chain.Add(pf)
	}

	s.file, s.reader, s.chain = f, r, chain
	return nil
}

// ReadPacket returns the next raw frame.
func (s *Source) ReadPacket() ([]byte, gopacket.CaptureInfo, error) {
	if s.reader == nil {
		return nil, gopacket.CaptureInfo{}, core.ErrSourceNotStarted
	}
	data, ci, err := s.reader.ReadPacketData()
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, gopacket.CaptureInfo{}, io.EOF
		}
		return nil, gopacket.CaptureInfo{}, fmt.Errorf("failed to read packet: %w", err)
	}
	return data, ci, nil
}

func (s *Source) LinkType() layers.LinkType {
	if s.reader == nil {
		return layers.LinkTypeEthernet // default
	}
	return s.reader.LinkType()
}

func (s *Source) Stop() error {
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file, s.reader = nil, nil
	return err
}

// Stats returns a snapshot of the frame counters.
func (s *Source) Stats() Stats {
	return Stats{
		Frames:   s.frames.Load(),
		Filtered: s.filtered.Load(),
		Emitted:  s.emitted.Load(),
	}
}

// Run replays the file into out. It starts the source if needed and stops
// it before returning.
func (s *Source) Run(ctx context.Context, out chan<- core.Packet) error {
	if s.reader == nil {
		if err := s.Start(); err != nil {
			return err
		}
	}
	defer s.Stop()

	logger := log.GetLogger().WithField("source", s.Name())
	defer func() {
		st := s.Stats()
		logger.WithFields(map[string]interface{}{
			"frames":   st.Frames,
			"filtered": st.Filtered,
			"emitted":  st.Emitted,
		}).Info("capture replay finished")
	}()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if s.cfg.Limit > 0 && s.emitted.Load() >= uint64(s.cfg.Limit) {
			return nil
		}

		data, ci, err := s.ReadPacket()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		s.frames.Add(1)

		if !s.chain.Match(data) {
			s.filtered.Add(1)
			continue
		}

		pkt, ok := s.extract(data, ci)
		if !ok {
			s.filtered.Add(1)
			continue
		}
		if err := source.Emit(ctx, out, pkt); err != nil {
			return err
		}
		s.emitted.Add(1)
	}
}

// extract decodes one frame and returns its transport payload as a packet.
func (s *Source) extract(data []byte, ci gopacket.CaptureInfo) (core.Packet, bool) {
	p := gopacket.NewPacket(data, s.reader.LinkType(), gopacket.DecodeOptions{Lazy: true, NoCopy: true})

	var srcPort, dstPort uint16
	var payload []byte
	switch tl := p.TransportLayer().(type) {
	case *layers.TCP:
		srcPort, dstPort, payload = uint16(tl.SrcPort), uint16(tl.DstPort), tl.Payload
	case *layers.UDP:
		srcPort, dstPort, payload = uint16(tl.SrcPort), uint16(tl.DstPort), tl.Payload
	default:
		return core.Packet{}, false
	}
	if len(payload) == 0 {
		return core.Packet{}, false
	}

	dir := core.DirRecv
	if port := s.cfg.ServerPort; port != 0 {
		switch port {
		case dstPort:
			dir = core.DirSend
		case srcPort:
			dir = core.DirRecv
		default:
			return core.Packet{}, false
		}
	}

	var srcIP, dstIP net.IP
	switch nl := p.NetworkLayer().(type) {
	case *layers.IPv4:
		srcIP, dstIP = nl.SrcIP, nl.DstIP
	case *layers.IPv6:
		srcIP, dstIP = nl.SrcIP, nl.DstIP
	}

	return core.Packet{
		Data:      bytes.Clone(payload),
		Timestamp: ci.Timestamp,
		Direction: dir,
		Src:       addrPort(srcIP, srcPort),
		Dst:       addrPort(dstIP, dstPort),
	}, true
}

func addrPort(ip net.IP, port uint16) netip.AddrPort {
	addr, ok := netip.AddrFromSlice(ip)
	if !ok {
		return netip.AddrPort{}
	}
	return netip.AddrPortFrom(addr.Unmap(), port)
}

func supportedLinkType(lt layers.LinkType) bool {
	switch lt {
	case layers.LinkTypeEthernet, layers.LinkTypeNull, layers.LinkTypeLoop,
		layers.LinkTypeRaw, layers.LinkTypeLinuxSLL:
		return true
	default:
		return false
	}
}
