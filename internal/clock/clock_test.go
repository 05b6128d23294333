package clock

import (
	"testing"
	"time"
)

func TestManualFiresEachInterval(t *testing.T) {
	m := NewManual(time.Unix(0, 0))
	ticks := 0
	stop := m.Every(time.Second, func() { ticks++ })

	m.Advance(3500 * time.Millisecond)
	if ticks != 3 {
		t.Fatalf("expected 3 ticks, got %d", ticks)
	}
	if got := m.Now(); !got.Equal(time.Unix(0, 0).Add(3500 * time.Millisecond)) {
		t.Fatalf("unexpected now %v", got)
	}

	stop()
	stop()
	m.Advance(5 * time.Second)
	if ticks != 3 {
		t.Fatalf("expected no ticks after stop, got %d", ticks)
	}
	if m.Active() != 0 {
		t.Fatalf("expected no active tickers")
	}
}

func TestManualCallbackCanStopItself(t *testing.T) {
	m := NewManual(time.Unix(0, 0))
	ticks := 0
	var stop func()
	stop = m.Every(time.Second, func() {
		ticks++
		if ticks == 2 {
			stop()
		}
	})
	m.Advance(10 * time.Second)
	if ticks != 2 {
		t.Fatalf("expected ticker to stop after 2 ticks, got %d", ticks)
	}
}

func TestRealStops(t *testing.T) {
	fired := make(chan struct{}, 16)
	stop := NewReal().Every(5*time.Millisecond, func() { fired <- struct{}{} })
	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatalf("expected a tick")
	}
	stop()
	stop()
}
