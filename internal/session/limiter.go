package session

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"firestige.xyz/pktpeek/internal/core"
)

// LimitConfig configures per-tag rate limiting.
type LimitConfig struct {
	MaxPerTag int           // Max packets per (direction, tag) per window (0 = disabled)
	Window    time.Duration // Window size (default 10s)
}

type limitKey struct {
	dir core.Direction
	tag byte
}

// Suppression summarizes the packets of one (direction, tag) dropped during a
// window.
type Suppression struct {
	Direction core.Direction
	Tag       byte
	Count     int64
}

// TagLimiter caps how many packets of each tag are logged per window so a
// chatty heartbeat does not drown the rest of the session. Counts are kept
// per fixed window and reset when the window expires.
type TagLimiter struct {
	mu           sync.Mutex
	current      map[limitKey]*atomic.Int64 // (direction, tag) → packets seen in current window
	windowStart  time.Time
	windowSize   time.Duration
	maxPerWindow int64
}

// NewTagLimiter creates a limiter. The first window starts at the first
// packet's timestamp, so replayed captures are windowed in capture time.
// Returns nil if disabled (MaxPerTag <= 0); a nil limiter allows everything.
func NewTagLimiter(cfg LimitConfig) *TagLimiter {
	if cfg.MaxPerTag <= 0 {
		return nil
	}
	if cfg.Window <= 0 {
		cfg.Window = 10 * time.Second
	}
	return &TagLimiter{
		current:      make(map[limitKey]*atomic.Int64),
		windowSize:   cfg.Window,
		maxPerWindow: int64(cfg.MaxPerTag),
	}
}

// Allow reports whether a packet may be logged. When now falls outside the
// current window, past its end or before its start, the window is rotated
// first and the suppressions of the finished window are returned.
func (l *TagLimiter) Allow(dir core.Direction, tag byte, now time.Time) (bool, []Suppression) {
	if l == nil {
		return true, nil
	}

	l.mu.Lock()
	var finished []Suppression
	switch {
	case l.windowStart.IsZero():
		l.windowStart = now
	case now.Before(l.windowStart) || now.Sub(l.windowStart) >= l.windowSize:
		finished = l.overLimit()
		l.current = make(map[limitKey]*atomic.Int64)
		l.windowStart = now
	}

	k := limitKey{dir: dir, tag: tag}
	counter, exists := l.current[k]
	if !exists {
		counter = &atomic.Int64{}
		l.current[k] = counter
	}
	l.mu.Unlock()

	count := counter.Add(1)
	if count > l.maxPerWindow {
		return false, finished
	}
	return true, finished
}

// Flush returns the suppressions of the current window and clears them so
// they are not reported twice.
func (l *TagLimiter) Flush() []Suppression {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	out := l.overLimit()
	for _, s := range out {
		l.current[limitKey{dir: s.Direction, tag: s.Tag}].Store(l.maxPerWindow)
	}
	return out
}

// overLimit must be called with mu held.
func (l *TagLimiter) overLimit() []Suppression {
	var out []Suppression
	for k, c := range l.current {
		if n := c.Load() - l.maxPerWindow; n > 0 {
			out = append(out, Suppression{Direction: k.dir, Tag: k.tag, Count: n})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Direction != out[j].Direction {
			return out[i].Direction < out[j].Direction
		}
		return out[i].Tag < out[j].Tag
	})
	return out
}

// ActiveTags returns the number of distinct (direction, tag) pairs in the
// current window.
func (l *TagLimiter) ActiveTags() int {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.current)
}
