// Package proxy relays a TCP connection to an upstream server and reports
// every chunk read in either direction as a packet.
package proxy

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/netip"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"firestige.xyz/pktpeek/internal/core"
	"firestige.xyz/pktpeek/internal/log"
	"firestige.xyz/pktpeek/internal/source"
)

const Name = "proxy"

const (
	DefaultBufferSize  = 64 * 1024
	DefaultDialTimeout = 5 * time.Second
)

type Config struct {
	Listen      string
	Upstream    string
	BufferSize  int           // read buffer per direction, bounds the packet size
	DialTimeout time.Duration // upstream dial timeout
}

// Proxy is a Source fed by live relayed traffic. Client to upstream chunks are
// SEND, upstream to client chunks are RECV.
type Proxy struct {
	cfg Config

	mu    sync.Mutex
	ln    net.Listener
	conns map[net.Conn]struct{}

	wg     sync.WaitGroup
	active atomic.Int64
	total  atomic.Uint64
}

var _ source.Source = (*Proxy)(nil)

func NewProxy(cfg Config) (*Proxy, error) {
	if cfg.Listen == "" {
		return nil, fmt.Errorf("%w: proxy listen address is required", core.ErrConfigInvalid)
	}
	if cfg.Upstream == "" {
		return nil, fmt.Errorf("%w: proxy upstream address is required", core.ErrConfigInvalid)
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultBufferSize
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = DefaultDialTimeout
	}
	return &Proxy{cfg: cfg, conns: make(map[net.Conn]struct{})}, nil
}

func (p *Proxy) Name() string {
	return Name + ":" + p.cfg.Listen + "->" + p.cfg.Upstream
}

// Listen binds the listen address. Run calls it when needed.
func (p *Proxy) Listen() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ln != nil {
		return nil
	}
	ln, err := net.Listen("tcp", p.cfg.Listen)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", p.cfg.Listen, err)
	}
	p.ln = ln
	return nil
}

// Addr returns the bound address, or nil before Listen.
func (p *Proxy) Addr() net.Addr {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ln == nil {
		return nil
	}
	return p.ln.Addr()
}

// Connections returns the number of open and accepted connections.
func (p *Proxy) Connections() (active int64, total uint64) {
	return p.active.Load(), p.total.Load()
}

// Run accepts clients until ctx is cancelled, then closes every relayed
// connection and waits for the handlers to exit.
func (p *Proxy) Run(ctx context.Context, out chan<- core.Packet) error {
	if err := p.Listen(); err != nil {
		return err
	}
	p.mu.Lock()
	ln := p.ln
	p.mu.Unlock()

	logger := log.GetLogger().WithField("source", p.Name())
	logger.Infof("proxy listening on %s", ln.Addr())

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
		case <-stop:
		}
		ln.Close()
		p.closeAll()
	}()

	var runErr error
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				runErr = ctx.Err()
			} else if !errors.Is(err, net.ErrClosed) {
				runErr = fmt.Errorf("accept failed: %w", err)
			}
			break
		}
		p.track(conn)
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			defer p.untrack(conn)
			p.handle(ctx, conn, out)
		}()
	}

	p.closeAll()
	p.wg.Wait()
	p.mu.Lock()
	p.ln = nil
	p.mu.Unlock()
	return runErr
}

func (p *Proxy) handle(ctx context.Context, client net.Conn, out chan<- core.Packet) {
	logger := log.GetLogger().WithField("client", client.RemoteAddr().String())
	p.total.Add(1)
	p.active.Add(1)
	defer p.active.Add(-1)

	d := net.Dialer{Timeout: p.cfg.DialTimeout}
	upstream, err := d.DialContext(ctx, "tcp", p.cfg.Upstream)
	if err != nil {
		logger.WithError(err).Warn("upstream dial failed")
		client.Close()
		return
	}
	p.track(upstream)
	defer p.untrack(upstream)
	logger.Infof("relaying to %s", upstream.RemoteAddr())

	g, gctx := errgroup.WithContext(ctx)
	unblock := context.AfterFunc(gctx, func() {
		client.Close()
		upstream.Close()
	})
	defer unblock()
	g.Go(func() error { return p.pipe(gctx, client, upstream, core.DirSend, out) })
	g.Go(func() error { return p.pipe(gctx, upstream, client, core.DirRecv, out) })
	err = g.Wait()

	client.Close()
	upstream.Close()
	if err != nil && ctx.Err() == nil {
		logger.WithError(err).Warn("relay ended with error")
		return
	}
	logger.Debug("relay closed")
}

// pipe copies src to dst, emitting each read before forwarding it. On EOF it
// half-closes dst so the peer sees the end of the stream.
func (p *Proxy) pipe(ctx context.Context, src, dst net.Conn, dir core.Direction, out chan<- core.Packet) error {
	buf := make([]byte, p.cfg.BufferSize)
	from, to := addrPort(src.RemoteAddr()), addrPort(dst.RemoteAddr())
	for {
		n, err := src.Read(buf)
		if n > 0 {
			pkt := core.Packet{
				Data:      bytes.Clone(buf[:n]),
				Timestamp: time.Now(),
				Direction: dir,
				Src:       from,
				Dst:       to,
			}
			if err := source.Emit(ctx, out, pkt); err != nil {
				return err
			}
			if _, err := dst.Write(buf[:n]); err != nil {
				return closedOr(err)
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				if cw, ok := dst.(interface{ CloseWrite() error }); ok {
					cw.CloseWrite()
				}
				return nil
			}
			return closedOr(err)
		}
	}
}

func closedOr(err error) error {
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

func (p *Proxy) track(c net.Conn) {
	p.mu.Lock()
	p.conns[c] = struct{}{}
	p.mu.Unlock()
}

func (p *Proxy) untrack(c net.Conn) {
	p.mu.Lock()
	delete(p.conns, c)
	p.mu.Unlock()
}

func (p *Proxy) closeAll() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for c := range p.conns {
		c.Close()
	}
}

func addrPort(a net.Addr) netip.AddrPort {
	if tcp, ok := a.(*net.TCPAddr); ok {
		ap := tcp.AddrPort()
		return netip.AddrPortFrom(ap.Addr().Unmap(), ap.Port())
	}
	return netip.AddrPort{}
}
