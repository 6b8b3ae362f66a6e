// Package lock suppresses repeated recognitions of the same phrase.
//
// Continuous recognition re-emits overlapping interim and final results for a
// single utterance. Once a transcript has triggered an action it is held for a
// cooldown window; the same transcript is refused until the window passes or
// the lock is released.
package lock

import (
	"sync"
	"time"
)

const DefaultWindow = 2 * time.Second

// Clock is the time source. AfterFunc returns a func that cancels the timer.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) (cancel func())
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }
func (realClock) AfterFunc(d time.Duration, f func()) func() {
	t := time.AfterFunc(d, f)
	return func() { t.Stop() }
}

// RealClock is the wall clock.
var RealClock Clock = realClock{}

type Manager struct {
	mu     sync.Mutex
	window time.Duration
	clock  Clock

	last      string
	expiresAt time.Time
	gen       uint64
	cancel    func()
}

func New(window time.Duration, clock Clock) *Manager {
	if window <= 0 {
		window = DefaultWindow
	}
	if clock == nil {
		clock = RealClock
	}
	return &Manager{window: window, clock: clock}
}

// TryAccept records cmd and reports true, unless cmd is the held command and
// the window has not passed.
func (m *Manager) TryAccept(cmd string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.holdsLocked(cmd) {
		metricDuplicates.Inc()
		return false
	}
	m.last = cmd
	m.expiresAt = m.clock.Now().Add(m.window)
	m.restartTimerLocked()
	metricAccepted.Inc()
	return true
}

// Holds reports whether TryAccept(cmd) would refuse, without recording.
func (m *Manager) Holds(cmd string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.holdsLocked(cmd)
}

// Release clears the held command and its timer. Safe to call repeatedly.
func (m *Manager) Release() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clearLocked()
}

// Held returns the held command and its expiry, if any.
func (m *Manager) Held() (string, time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last, m.expiresAt
}

func (m *Manager) holdsLocked(cmd string) bool {
	return m.last != "" && cmd == m.last && m.clock.Now().Before(m.expiresAt)
}

func (m *Manager) restartTimerLocked() {
	if m.cancel != nil {
		m.cancel()
	}
	m.gen++
	gen := m.gen
	m.cancel = m.clock.AfterFunc(m.window, func() { m.expire(gen) })
}

func (m *Manager) expire(gen uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	// a newer accept or release owns the lock now
	if gen != m.gen {
		return
	}
	m.cancel = nil
	m.last = ""
	m.expiresAt = time.Time{}
}

func (m *Manager) clearLocked() {
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	m.gen++
	m.last = ""
	m.expiresAt = time.Time{}
}
