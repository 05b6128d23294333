// Package clock provides the repeating-timer abstraction behind the
// per-question countdown, with a wall-clock implementation and a manual one
// that only moves when told to.
package clock

import (
	"sync"
	"time"
)

// Clock schedules repeating callbacks.
type Clock interface {
	Now() time.Time
	// Every calls fn once per interval until the returned stop function is
	// called. Stop is idempotent and never blocks.
	Every(interval time.Duration, fn func()) (stop func())
}

// Real is backed by time.Ticker. Callbacks run on their own goroutine.
type Real struct{}

func NewReal() Real { return Real{} }

func (Real) Now() time.Time { return time.Now() }

func (Real) Every(interval time.Duration, fn func()) func() {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				select {
				case <-done:
					return
				default:
				}
				fn()
			case <-done:
				return
			}
		}
	}()
	var once sync.Once
	return func() { once.Do(func() { close(done) }) }
}

// Manual fires callbacks synchronously from Advance, in schedule order.
type Manual struct {
	mu      sync.Mutex
	now     time.Time
	nextID  int
	tickers map[int]*manualTicker
}

type manualTicker struct {
	id       int
	interval time.Duration
	next     time.Time
	fn       func()
}

// NewManual starts the clock at start.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start, tickers: make(map[int]*manualTicker)}
}

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *Manual) Every(interval time.Duration, fn func()) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	id := m.nextID
	m.tickers[id] = &manualTicker{id: id, interval: interval, next: m.now.Add(interval), fn: fn}
	return func() {
		m.mu.Lock()
		delete(m.tickers, id)
		m.mu.Unlock()
	}
}

// Active reports how many tickers are scheduled.
func (m *Manual) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tickers)
}

// Advance moves time forward by d, firing every tick that falls inside the
// window. Callbacks run without the clock lock held and may start or stop
// tickers.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now.Add(d)
	m.mu.Unlock()
	for {
		m.mu.Lock()
		var due *manualTicker
		for _, t := range m.tickers {
			if t.next.After(target) {
				continue
			}
			if due == nil || t.next.Before(due.next) || (t.next.Equal(due.next) && t.id < due.id) {
				due = t
			}
		}
		if due == nil {
			m.now = target
			m.mu.Unlock()
			return
		}
		m.now = due.next
		due.next = due.next.Add(due.interval)
		fn := due.fn
		m.mu.Unlock()
		fn()
	}
}
