// Package session writes a human-readable debug log of opaque packets.
//
// A Session owns an output sink. Every logged packet produces a summary line
// (direction, counter, wall time, delta since the previous packet, tag byte
// and size) followed by one line per heuristically decoded field. Sessions
// are created and closed by the caller; there is no process-wide instance.
package session

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"firestige.xyz/pktpeek/internal/core"
	"firestige.xyz/pktpeek/internal/core/decoder"
	"firestige.xyz/pktpeek/internal/log"
	"firestige.xyz/pktpeek/internal/render"
)

const (
	rulerWidth   = 90
	columnHeader = " DIR  |     TIME      | DT(ms) |   HEADER ID   | SIZE  | CONTENT"
	columnRuler  = "------+---------------+--------+---------------+-------+----------------------------------"
)

var ruler = strings.Repeat("=", rulerWidth)

// Observer receives per-packet outcomes, e.g. for metrics. Calls are made
// with the session lock held and must not call back into the session.
type Observer interface {
	ObservePacket(dir core.Direction, size int, res decoder.Result)
	ObserveSuppressed(dir core.Direction, tag byte)
}

// TagNamer resolves a packet tag to a message name.
type TagNamer interface {
	Name(dir core.Direction, tag byte) (string, bool)
}

// Config configures a Session. The zero value logs with default decode
// options through a text renderer.
type Config struct {
	SinkName string          // Shown in the banner
	Decode   decoder.Options // Zero value selects decoder.DefaultOptions
	Renderer render.Renderer // nil selects a TextRenderer with the default indent
	Tags     TagNamer        // Optional tag names, e.g. *tags.Registry or *tags.Watcher
	Limit    LimitConfig
	Start    *int             // Fixed start offset; nil detects the header per packet
	Clock    func() time.Time // nil selects time.Now
	Observer Observer
}

// Stats are the session counters.
type Stats struct {
	Send       uint64
	Recv       uint64
	Suppressed uint64
}

// Session is safe for concurrent use; writes to the sink are serialized.
type Session struct {
	mu       sync.Mutex
	w        io.Writer
	cfg      Config
	id       string
	limiter  *TagLimiter
	last     time.Time
	stats    Stats
	closed   bool
	writeErr error
}

// Open starts a session on w and writes the banner.
func Open(w io.Writer, cfg Config) (*Session, error) {
	if w == nil {
		return nil, fmt.Errorf("%w: nil session writer", core.ErrConfigInvalid)
	}
	if cfg.Decode.IsZero() {
		cfg.Decode = decoder.DefaultOptions()
	}
	if err := cfg.Decode.Validate(); err != nil {
		return nil, err
	}
	cfg.Decode = cfg.Decode.Normalize()
	if cfg.Renderer == nil {
		cfg.Renderer = &render.TextRenderer{Indent: render.DefaultIndent}
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.SinkName == "" {
		cfg.SinkName = "-"
	}
	if cfg.Start != nil && *cfg.Start < 0 {
		cfg.Start = nil
	}

	now := cfg.Clock()
	s := &Session{
		w:       w,
		cfg:     cfg,
		id:      uuid.NewString(),
		limiter: NewTagLimiter(cfg.Limit),
		last:    now,
	}

	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(ruler + "\n")
	fmt.Fprintf(&b, "  PACKET DEBUG SESSION - %s\n", now.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "  Session: %s\n", s.id)
	fmt.Fprintf(&b, "  Log file: %s\n", cfg.SinkName)
	b.WriteString(ruler + "\n")
	b.WriteString(columnHeader + "\n")
	b.WriteString(columnRuler + "\n")
	if _, err := io.WriteString(w, b.String()); err != nil {
		return nil, fmt.Errorf("write session banner: %w", err)
	}

	log.GetLogger().WithFields(map[string]interface{}{
		"session": s.id,
		"sink":    cfg.SinkName,
	}).Info("packet debug session opened")
	return s, nil
}

// ID returns the session identifier printed in the banner.
func (s *Session) ID() string {
	return s.id
}

// LogSend logs data as a client-to-server packet stamped with the session
// clock.
func (s *Session) LogSend(data []byte) error {
	return s.Log(core.Packet{Data: data, Direction: core.DirSend})
}

// LogRecv logs data as a server-to-client packet stamped with the session
// clock.
func (s *Session) LogRecv(data []byte) error {
	return s.Log(core.Packet{Data: data, Direction: core.DirRecv})
}

// Log writes pkt to the session. Packets without data are ignored. After
// Close it returns core.ErrSessionClosed and writes nothing.
func (s *Session) Log(pkt core.Packet) error {
	if len(pkt.Data) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return core.ErrSessionClosed
	}

	ts := pkt.Timestamp
	if ts.IsZero() {
		ts = s.cfg.Clock()
	}
	tag := pkt.Data[0]

	allowed, finished := s.limiter.Allow(pkt.Direction, tag, ts)
	var b strings.Builder
	s.writeSuppressions(&b, finished)
	if !allowed {
		s.stats.Suppressed++
		if s.cfg.Observer != nil {
			s.cfg.Observer.ObserveSuppressed(pkt.Direction, tag)
		}
		return s.flush(&b)
	}

	switch pkt.Direction {
	case core.DirSend:
		s.stats.Send++
	default:
		s.stats.Recv++
	}

	dt := ts.Sub(s.last).Milliseconds()
	if dt < 0 {
		dt = 0
	}
	s.last = ts

	fmt.Fprintf(&b, " %s #%d | %s | %6d | %s | %5d |",
		pkt.Direction, s.stats.Send+s.stats.Recv, ts.Format("15:04:05.000"),
		dt, s.headerColumn(pkt.Direction, tag), len(pkt.Data))

	res := s.content(&b, pkt.Data)
	if s.cfg.Observer != nil {
		s.cfg.Observer.ObservePacket(pkt.Direction, len(pkt.Data), res)
	}
	return s.flush(&b)
}

func (s *Session) headerColumn(dir core.Direction, tag byte) string {
	col := fmt.Sprintf("%3d (0x%02X)", tag, tag)
	if s.cfg.Tags != nil {
		if name, ok := s.cfg.Tags.Name(dir, tag); ok {
			return col + " " + name
		}
	}
	return col + "   "
}

// content appends the decoded body and returns the decode result, which is
// empty for packets without a body.
func (s *Session) content(b *strings.Builder, data []byte) decoder.Result {
	if len(data) <= 1 {
		b.WriteString(" (empty)\n")
		return decoder.Result{Start: len(data)}
	}

	start := decoder.DetectStart(data)
	if s.cfg.Start != nil {
		start = *s.cfg.Start
	}
	if start >= len(data) {
		b.WriteString(" (header only)\n")
		return decoder.Result{Start: len(data)}
	}

	res := decoder.Decode(data, start, s.cfg.Decode)
	b.WriteString("\n")
	for _, line := range s.cfg.Renderer.Render(res) {
		b.WriteString(line)
		b.WriteString("\n")
	}
	return res
}

func (s *Session) writeSuppressions(b *strings.Builder, sup []Suppression) {
	for _, x := range sup {
		fmt.Fprintf(b, " %s ... suppressed %d packets (tag 0x%02X)\n", x.Direction, x.Count, x.Tag)
	}
}

// flush writes b to the sink. A write failure is returned and logged once.
func (s *Session) flush(b *strings.Builder) error {
	if b.Len() == 0 {
		return nil
	}
	if _, err := io.WriteString(s.w, b.String()); err != nil {
		if s.writeErr == nil {
			log.GetLogger().WithError(err).WithField("session", s.id).Warn("session sink write failed")
		}
		s.writeErr = err
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

// Stats returns a snapshot of the counters.
func (s *Session) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Close writes pending suppression summaries and the footer, then closes the
// sink if it is an io.Closer. Close is idempotent.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	var b strings.Builder
	s.writeSuppressions(&b, s.limiter.Flush())
	b.WriteString(ruler + "\n")
	fmt.Fprintf(&b, " SESSION END - SEND: %d packets | RECV: %d packets\n", s.stats.Send, s.stats.Recv)
	b.WriteString(ruler + "\n\n")
	err := s.flush(&b)

	if c, ok := s.w.(io.Closer); ok {
		if cerr := c.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close session sink: %w", cerr)
		}
	}

	log.GetLogger().WithFields(map[string]interface{}{
		"session":    s.id,
		"send":       s.stats.Send,
		"recv":       s.stats.Recv,
		"suppressed": s.stats.Suppressed,
	}).Info("packet debug session closed")
	return err
}
