package app

import (
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/dkeye/dicetable/internal/domain"
	"github.com/stretchr/testify/require"
)

type fakeTimer struct {
	at    time.Time
	f     func()
	fired bool
}

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timers = append(c.timers, &fakeTimer{at: c.now.Add(d), f: f})
}

// Advance moves time forward and runs every timer that came due, oldest first.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []*fakeTimer
	for _, t := range c.timers {
		if !t.fired && !t.at.After(c.now) {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()

	slices.SortStableFunc(due, func(a, b *fakeTimer) int { return a.at.Compare(b.at) })
	for _, t := range due {
		t.f()
	}
}

func (c *fakeClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.fired {
			n++
		}
	}
	return n
}

type recordSink struct {
	mu  sync.Mutex
	out []Outbound
}

func (s *recordSink) Deliver(out []Outbound) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.out = append(s.out, out...)
}

func (s *recordSink) Take() []Outbound {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.out
	s.out = nil
	return out
}

// forcedRand always lands on face k of an f-sided die.
func forcedRand(k, f int) func() float64 {
	v := (float64(k) - 0.5) / float64(f)
	return func() float64 { return v }
}

// msgsFor collects the messages addressed to conn, in order.
func msgsFor(out []Outbound, conn domain.ConnID) []any {
	var msgs []any
	for _, o := range out {
		if slices.Contains(o.To, conn) {
			msgs = append(msgs, o.Msg)
		}
	}
	return msgs
}

// only returns the single message of type T addressed to conn.
func only[T any](t *testing.T, out []Outbound, conn domain.ConnID) T {
	t.Helper()
	var found []T
	for _, m := range msgsFor(out, conn) {
		if v, ok := m.(T); ok {
			found = append(found, v)
		}
	}
	require.Len(t, found, 1, "messages for %s: %#v", conn, msgsFor(out, conn))
	return found[0]
}

func frame(s string) []byte { return []byte(s) }
