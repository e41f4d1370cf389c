package pipeline

import (
	"firestige.xyz/pktpeek/internal/source"
)

// Builder provides a fluent interface for building pipelines.
// This is an alternative to using Config directly.
type Builder struct {
	config Config
}

// NewBuilder creates a new pipeline builder.
func NewBuilder() *Builder {
	return &Builder{
		config: Config{
			BufferSize: DefaultBufferSize,
		},
	}
}

// WithSource sets the packet source.
func (b *Builder) WithSource(s source.Source) *Builder {
	b.config.Source = s
	return b
}

// WithSession sets the session packets are logged into.
func (b *Builder) WithSession(s PacketLogger) *Builder {
	b.config.Session = s
	return b
}

// WithBufferSize sets the packet channel buffer size.
func (b *Builder) WithBufferSize(size int) *Builder {
	b.config.BufferSize = size
	return b
}

// Build creates the pipeline.
func (b *Builder) Build() (*Pipeline, error) {
	return New(b.config)
}
