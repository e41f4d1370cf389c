// Package render turns decoded fields into output lines.
package render

import (
	"fmt"

	"github.com/mitchellh/mapstructure"

	"firestige.xyz/pktpeek/internal/core"
	"firestige.xyz/pktpeek/internal/core/decoder"
)

const (
	FormatText = "text"
	FormatJSON = "json"

	// DefaultIndent lines field rows up under the CONTENT column.
	DefaultIndent = "       "
)

// Renderer formats one decode result. Implementations must be safe for
// concurrent use.
type Renderer interface {
	Render(res decoder.Result) []string
}

// Options are the renderer settings accepted by New.
type Options struct {
	Indent *string `mapstructure:"indent"`
}

// New returns the renderer registered under format. opts may be nil.
func New(format string, opts map[string]any) (Renderer, error) {
	var o Options
	if opts != nil {
		if err := mapstructure.Decode(opts, &o); err != nil {
			return nil, fmt.Errorf("%w: renderer options: %v", core.ErrConfigInvalid, err)
		}
	}

	indent := DefaultIndent
	if o.Indent != nil {
		indent = *o.Indent
	}

	switch format {
	case FormatText, "":
		return &TextRenderer{Indent: indent}, nil
	case FormatJSON:
		return &JSONRenderer{Indent: indent}, nil
	default:
		return nil, fmt.Errorf("%w: %q, must be %s or %s", core.ErrUnknownFormat, format, FormatText, FormatJSON)
	}
}
