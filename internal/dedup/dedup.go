// Package dedup suppresses repeated notifications within a rolling window.
package dedup

import (
	"log/slog"
	"sync"
	"time"

	"marquee/internal/model"
)

// Filter decides whether an event is admitted or suppressed as a duplicate.
// The window is anchored on the first occurrence: a suppressed repeat does
// not refresh the entry, so a steady stream of duplicates surfaces again
// once per window rather than never.
type Filter struct {
	mu     sync.Mutex
	logger *slog.Logger

	enabled bool
	window  time.Duration
	seen    map[string]time.Time // fingerprint -> first-seen time

	now func() time.Time
}

// New creates a Filter with the given window.
func New(enabled bool, window time.Duration, logger *slog.Logger) *Filter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Filter{
		logger:  logger,
		enabled: enabled,
		window:  window,
		seen:    make(map[string]time.Time),
		now:     time.Now,
	}
}

// SetEnabled enables or disables duplicate suppression.
func (f *Filter) SetEnabled(enabled bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enabled = enabled
}

// SetWindow updates the suppression window.
func (f *Filter) SetWindow(window time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.window = window
}

// Admit returns true if the event should produce a banner.
// Expired entries are evicted on every call, so the table never grows
// beyond the set of fingerprints seen within one window.
func (f *Filter) Admit(event model.Event) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := f.now()
	for fp, first := range f.seen {
		if now.Sub(first) >= f.window {
			delete(f.seen, fp)
		}
	}

	if !f.enabled {
		return true
	}

	fp := event.Fingerprint()
	if first, ok := f.seen[fp]; ok && now.Sub(first) < f.window {
		f.logger.Info("suppressed duplicate notification",
			"fingerprint", fp[:12],
			"first_seen", first,
		)
		return false
	}

	f.seen[fp] = now
	return true
}

// Len returns the number of tracked fingerprints. Used by tests and status.
func (f *Filter) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.seen)
}
