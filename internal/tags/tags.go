// Package tags maps one-byte message tags to human-readable names.
package tags

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"firestige.xyz/pktpeek/internal/core"
)

// Registry resolves tag names per direction, falling back to a shared table.
// A nil *Registry is valid and knows no names.
type Registry struct {
	Common map[uint8]string `yaml:"common"`
	Send   map[uint8]string `yaml:"send"`
	Recv   map[uint8]string `yaml:"recv"`
}

// Name returns the name registered for tag in direction dir.
func (r *Registry) Name(dir core.Direction, tag byte) (string, bool) {
	if r == nil {
		return "", false
	}
	var table map[uint8]string
	switch dir {
	case core.DirSend:
		table = r.Send
	case core.DirRecv:
		table = r.Recv
	}
	if name, ok := table[tag]; ok {
		return name, true
	}
	name, ok := r.Common[tag]
	return name, ok
}

// Len returns the number of registered names across all tables.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Common) + len(r.Send) + len(r.Recv)
}

// Load reads a registry from a YAML file, or from a C header with
// HEADER_CG_* and HEADER_GC_* constants when path ends in .h.
func Load(path string) (*Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open tag file: %w", err)
	}
	defer f.Close()

	if filepath.Ext(path) == ".h" {
		return ParseHeader(f)
	}
	return Parse(f)
}

// Parse decodes a YAML registry.
func Parse(r io.Reader) (*Registry, error) {
	reg := &Registry{}
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(reg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: tag file: %v", core.ErrConfigInvalid, err)
	}
	return reg, nil
}

// Client-to-game constants are what the client sends; game-to-client ones
// are what it receives.
var headerConst = regexp.MustCompile(`\b(HEADER_(CG|GC)_\w+)\s*=\s*(0x[0-9a-fA-F]+|\d+)`)

// ParseHeader extracts tag names from enum or define lines of the form
// HEADER_CG_LOGIN = 1. Commented-out lines are skipped and values above 255
// are rejected.
func ParseHeader(r io.Reader) (*Registry, error) {
	reg := &Registry{Send: map[uint8]string{}, Recv: map[uint8]string{}}

	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		if i := indexComment(line); i >= 0 {
			line = line[:i]
		}
		m := headerConst.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		v, err := strconv.ParseUint(m[3], 0, 8)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %s value %s does not fit a byte",
				core.ErrConfigInvalid, lineNo, m[1], m[3])
		}
		if m[2] == "CG" {
			reg.Send[uint8(v)] = m[1]
		} else {
			reg.Recv[uint8(v)] = m[1]
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	return reg, nil
}

func indexComment(line string) int {
	return strings.Index(line, "//")
}
