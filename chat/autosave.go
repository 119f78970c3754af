package chat

import (
	"sync"
	"time"
)

// DefaultQuietPeriod is the autosave debounce window.
const DefaultQuietPeriod = time.Second

// Saver decouples frequent in-memory mutations from storage writes.
// Schedule resets a trailing-debounce deadline; the persist function
// runs once after a quiet period with no further changes. Close cancels
// any pending timer so a torn-down owner never writes stale data.
type Saver struct {
	mu      sync.Mutex
	timer   *time.Timer
	quiet   time.Duration
	persist func()
	closed  bool
}

// NewSaver creates a saver that calls persist after quiet elapses from
// the latest Schedule call.
func NewSaver(quiet time.Duration, persist func()) *Saver {
	if quiet <= 0 {
		quiet = DefaultQuietPeriod
	}
	return &Saver{quiet: quiet, persist: persist}
}

// Schedule arms (or re-arms) the debounce timer. Calls after Close are
// ignored.
func (s *Saver) Schedule() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.quiet, s.run)
}

// Flush cancels any pending timer and persists immediately.
func (s *Saver) Flush() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()

	s.persist()
}

// Close cancels any pending persist and disables the saver on every
// exit path of the owning scope.
func (s *Saver) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// run is the timer callback; it re-checks closed so a Close racing the
// timer never persists.
func (s *Saver) run() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	s.mu.Unlock()

	s.persist()
}
