package session

import (
	"testing"
	"time"

	"firestige.xyz/pktpeek/internal/core"
)

func TestNewTagLimiterDisabled(t *testing.T) {
	l := NewTagLimiter(LimitConfig{MaxPerTag: 0})
	if l != nil {
		t.Fatal("expected nil limiter when MaxPerTag is 0")
	}
	// A nil limiter allows everything.
	for i := 0; i < 100; i++ {
		if ok, _ := l.Allow(core.DirSend, 1, time.Now()); !ok {
			t.Fatal("nil limiter must allow")
		}
	}
	if l.ActiveTags() != 0 || l.Flush() != nil {
		t.Error("nil limiter must report nothing")
	}
}

func TestTagLimiterPerKey(t *testing.T) {
	now := time.Now()
	l := NewTagLimiter(LimitConfig{MaxPerTag: 3, Window: 10 * time.Second})

	for i := 0; i < 3; i++ {
		if ok, _ := l.Allow(core.DirSend, 0x0A, now); !ok {
			t.Fatalf("packet %d should be allowed", i)
		}
	}
	if ok, _ := l.Allow(core.DirSend, 0x0A, now); ok {
		t.Error("4th packet should be suppressed")
	}

	// Same tag in the other direction and another tag have their own budgets.
	if ok, _ := l.Allow(core.DirRecv, 0x0A, now); !ok {
		t.Error("other direction should be allowed")
	}
	if ok, _ := l.Allow(core.DirSend, 0x0B, now); !ok {
		t.Error("other tag should be allowed")
	}

	if l.ActiveTags() != 3 {
		t.Errorf("expected 3 active tags, got %d", l.ActiveTags())
	}
}

func TestTagLimiterWindowRotation(t *testing.T) {
	now := time.Now()
	l := NewTagLimiter(LimitConfig{MaxPerTag: 1, Window: time.Second})

	l.Allow(core.DirRecv, 0x20, now)
	l.Allow(core.DirRecv, 0x20, now)
	l.Allow(core.DirRecv, 0x20, now)
	l.Allow(core.DirSend, 0x05, now)
	l.Allow(core.DirSend, 0x05, now)

	ok, finished := l.Allow(core.DirRecv, 0x20, now.Add(time.Second))
	if !ok {
		t.Error("first packet of a new window should be allowed")
	}
	want := []Suppression{
		{Direction: core.DirSend, Tag: 0x05, Count: 1},
		{Direction: core.DirRecv, Tag: 0x20, Count: 2},
	}
	if len(finished) != len(want) {
		t.Fatalf("expected %d suppressions, got %+v", len(want), finished)
	}
	for i := range want {
		if finished[i] != want[i] {
			t.Errorf("suppression %d = %+v, want %+v", i, finished[i], want[i])
		}
	}
	if l.ActiveTags() != 1 {
		t.Errorf("expected window reset to 1 active tag, got %d", l.ActiveTags())
	}
}

func TestTagLimiterFlush(t *testing.T) {
	now := time.Now()
	l := NewTagLimiter(LimitConfig{MaxPerTag: 1})

	l.Allow(core.DirSend, 1, now)
	l.Allow(core.DirSend, 1, now)

	got := l.Flush()
	if len(got) != 1 || got[0].Count != 1 {
		t.Fatalf("expected one suppression of 1, got %+v", got)
	}
	if again := l.Flush(); len(again) != 0 {
		t.Errorf("flushed suppressions must not repeat, got %+v", again)
	}

	l.Allow(core.DirSend, 1, now)
	if got := l.Flush(); len(got) != 1 || got[0].Count != 1 {
		t.Errorf("expected new suppression after flush, got %+v", got)
	}
}

func TestTagLimiterDefaultWindow(t *testing.T) {
	l := NewTagLimiter(LimitConfig{MaxPerTag: 1})
	if l.windowSize != 10*time.Second {
		t.Errorf("expected default window 10s, got %v", l.windowSize)
	}
}

func TestTagLimiterCaptureTime(t *testing.T) {
	// Capture timestamps years before the wall clock still rotate windows.
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewTagLimiter(LimitConfig{MaxPerTag: 1, Window: time.Second})

	for i := 0; i < 5; i++ {
		ts := base.Add(time.Duration(i) * 10 * time.Second)
		if ok, _ := l.Allow(core.DirRecv, 0x0A, ts); !ok {
			t.Errorf("packet %d at %v should start a new window", i, ts)
		}
	}
}

func TestTagLimiterBackwardsTime(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 10, 0, time.UTC)
	l := NewTagLimiter(LimitConfig{MaxPerTag: 1, Window: time.Second})

	l.Allow(core.DirSend, 1, now)
	if ok, _ := l.Allow(core.DirSend, 1, now); ok {
		t.Fatal("second packet in the window should be suppressed")
	}

	ok, finished := l.Allow(core.DirSend, 1, now.Add(-5*time.Second))
	if !ok {
		t.Error("a timestamp before the window start should rotate the window")
	}
	if len(finished) != 1 || finished[0].Count != 1 {
		t.Errorf("expected the finished window's suppression, got %+v", finished)
	}
}
