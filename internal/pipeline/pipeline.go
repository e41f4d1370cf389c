// Package pipeline feeds packets from a source into a debug session.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"firestige.xyz/pktpeek/internal/core"
	"firestige.xyz/pktpeek/internal/log"
	"firestige.xyz/pktpeek/internal/source"
)

const DefaultBufferSize = 1024

// PacketLogger consumes packets. *session.Session implements it.
type PacketLogger interface {
	Log(pkt core.Packet) error
}

// Config contains pipeline configuration.
type Config struct {
	Source     source.Source
	Session    PacketLogger
	BufferSize int // Packet channel buffer size
}

// Pipeline moves packets from one source into one session.
type Pipeline struct {
	source  source.Source
	session PacketLogger
	buffer  int
	metrics *Metrics
}

// New creates a new pipeline.
func New(cfg Config) (*Pipeline, error) {
	if cfg.Source == nil {
		return nil, fmt.Errorf("%w: pipeline source is required", core.ErrConfigInvalid)
	}
	if cfg.Session == nil {
		return nil, fmt.Errorf("%w: pipeline session is required", core.ErrConfigInvalid)
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultBufferSize
	}
	return &Pipeline{
		source:  cfg.Source,
		session: cfg.Session,
		buffer:  cfg.BufferSize,
		metrics: NewMetrics(cfg.Source.Name()),
	}, nil
}

// Run blocks until the source is exhausted, ctx is cancelled or the session
// rejects a packet. Cancellation is not reported as an error.
func (p *Pipeline) Run(ctx context.Context) error {
	logger := log.GetLogger().WithField("source", p.source.Name())
	logger.Info("pipeline starting")

	srcCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	packets := make(chan core.Packet, p.buffer)
	srcErr := make(chan error, 1)
	go func() {
		err := p.source.Run(srcCtx, packets)
		close(packets)
		srcErr <- err
	}()

	var logErr error
	for pkt := range packets {
		if logErr != nil {
			continue // draining after a session failure
		}
		p.metrics.received()
		if len(pkt.Data) == 0 {
			p.metrics.empty()
			continue
		}
		if err := p.session.Log(pkt); err != nil {
			p.metrics.failed()
			logErr = fmt.Errorf("session log failed: %w", err)
			cancel()
			continue
		}
		p.metrics.logged()
	}

	err := <-srcErr
	st := p.Stats()
	logger.WithFields(map[string]interface{}{
		"received": st.Received,
		"logged":   st.Logged,
		"empty":    st.Empty,
	}).Info("pipeline stopped")

	if logErr != nil {
		return logErr
	}
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("source %s failed: %w", p.source.Name(), err)
	}
	return nil
}

// Stats returns a snapshot of the pipeline counters.
func (p *Pipeline) Stats() Stats {
	return p.metrics.Snapshot()
}

