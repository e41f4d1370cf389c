package session

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"

	"firestige.xyz/pktpeek/internal/core"
)

const (
	SinkStdout = "stdout"
	SinkFile   = "file"

	DefaultSinkPath = "debug_packet.log"
)

// SinkConfig selects where session text goes.
type SinkConfig struct {
	Type       string // stdout / file
	Path       string // file sinks only; default debug_packet.log
	MaxSizeMB  int    // megabytes before rotation, 0 = lumberjack default
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// Name is the sink label printed in the session banner.
func (c SinkConfig) Name() string {
	if c.Type == SinkFile {
		if c.Path == "" {
			return DefaultSinkPath
		}
		return c.Path
	}
	return SinkStdout
}

// OpenSink opens the configured output. File sinks append to an existing
// file and rotate by size; closing a stdout sink leaves stdout open.
func OpenSink(cfg SinkConfig) (io.WriteCloser, error) {
	switch cfg.Type {
	case SinkStdout, "":
		return nopCloser{os.Stdout}, nil
	case SinkFile:
		return &lumberjack.Logger{
			Filename:   cfg.Name(),
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		}, nil
	default:
		return nil, fmt.Errorf("%w: sink type %q", core.ErrConfigInvalid, cfg.Type)
	}
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }
