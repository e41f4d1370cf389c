package render

import (
	"encoding/json"

	"firestige.xyz/pktpeek/internal/core/decoder"
)

// JSONRenderer writes one JSON object per field so logs can be post-processed
// with line-oriented tools.
type JSONRenderer struct {
	Indent string
}

type jsonField struct {
	Offset int    `json:"offset"`
	Kind   string `json:"kind"`
	Width  int    `json:"width"`
	Value  any    `json:"value"`
	Bool   bool   `json:"bool,omitempty"`
}

type jsonTrailer struct {
	Truncated bool `json:"truncated"`
	Trailing  int  `json:"trailing"`
}

func (r *JSONRenderer) Render(res decoder.Result) []string {
	lines := make([]string, 0, len(res.Fields)+1)
	for _, f := range res.Fields {
		lines = append(lines, r.line(jsonField{
			Offset: f.Offset,
			Kind:   f.Kind.String(),
			Width:  f.Width,
			Value:  f.Value(),
			Bool:   f.IsBool(),
		}))
	}
	if res.Trailing > 0 {
		lines = append(lines, r.line(jsonTrailer{Truncated: res.Truncated, Trailing: res.Trailing}))
	}
	return lines
}

func (r *JSONRenderer) line(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		// Field values are plain strings and numbers; this only trips on NaN,
		// which the float classifier never produces.
		return r.Indent + `{"error":"unencodable field"}`
	}
	return r.Indent + string(data)
}
