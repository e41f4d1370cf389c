// Package source defines where packets for a debug session come from.
package source

import (
	"context"

	"firestige.xyz/pktpeek/internal/core"
)

// Source produces packets until it is exhausted or ctx is cancelled. Run
// must not close out; the caller owns the channel. Exhaustion returns nil and
// cancellation returns ctx.Err().
type Source interface {
	Name() string
	Run(ctx context.Context, out chan<- core.Packet) error
}

// Emit sends pkt on out unless ctx is cancelled first.
func Emit(ctx context.Context, out chan<- core.Packet, pkt core.Packet) error {
	select {
	case out <- pkt:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
