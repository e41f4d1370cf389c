package hexinput

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"firestige.xyz/pktpeek/internal/core"
	"firestige.xyz/pktpeek/internal/source"
)

const Name = "hexinput"

// Reader emits one packet per non-empty line of r.
type Reader struct {
	r    io.Reader
	name string
	dir  core.Direction
}

var _ source.Source = (*Reader)(nil)

// NewReader reads hex lines from r. Lines without a > or < prefix get dir.
func NewReader(name string, r io.Reader, dir core.Direction) *Reader {
	if name == "" {
		name = "stdin"
	}
	return &Reader{r: r, name: name, dir: dir}
}

func (r *Reader) Name() string {
	return Name + ":" + r.name
}

func (r *Reader) Run(ctx context.Context, out chan<- core.Packet) error {
	sc := bufio.NewScanner(r.r)
	sc.Buffer(make([]byte, 64*1024), 1<<20)

	lineNo := 0
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		lineNo++
		pkt, ok, err := ParseLine(sc.Text(), r.dir)
		if err != nil {
			return fmt.Errorf("%s line %d: %w", r.name, lineNo, err)
		}
		if !ok {
			continue
		}
		if err := source.Emit(ctx, out, pkt); err != nil {
			return err
		}
	}
	return sc.Err()
}

// Packets is a fixed list of packets, used for hex given on the command line.
type Packets []core.Packet

func (p Packets) Name() string { return Name + ":args" }

func (p Packets) Run(ctx context.Context, out chan<- core.Packet) error {
	for _, pkt := range p {
		if err := source.Emit(ctx, out, pkt); err != nil {
			return err
		}
	}
	return nil
}
