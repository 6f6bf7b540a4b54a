package render

import (
	"log/slog"
	"sync"
	"time"

	"marquee/internal/transform"
)

// maxPendingPerBanner bounds the replay queue so a surface that stays down
// does not accumulate commands without limit.
const maxPendingPerBanner = 64

// Retrying wraps a Surface and treats command failures as transient: a
// failed command is queued and replayed on the next Flush call (the engine
// flushes once per tick). Commands issued for a banner with a non-empty
// queue are appended behind it so per-banner ordering is preserved.
type Retrying struct {
	mu      sync.Mutex
	logger  *slog.Logger
	next    Surface
	pending map[string][]func() error
}

// NewRetrying wraps next with transient-failure retry.
func NewRetrying(next Surface, logger *slog.Logger) *Retrying {
	if logger == nil {
		logger = slog.Default()
	}
	return &Retrying{
		logger:  logger,
		next:    next,
		pending: make(map[string][]func() error),
	}
}

// Flush replays queued commands. A command that fails again stays at the
// head of its banner's queue; later commands for that banner wait.
func (r *Retrying) Flush() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, queue := range r.pending {
		i := 0
		for ; i < len(queue); i++ {
			if err := queue[i](); err != nil {
				r.logger.Debug("surface command still failing", "banner", id, "error", err)
				break
			}
		}
		if i == len(queue) {
			delete(r.pending, id)
		} else {
			r.pending[id] = queue[i:]
		}
	}
}

// PendingCount returns the number of banners with queued commands.
func (r *Retrying) PendingCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

// issue runs cmd immediately unless the banner already has queued
// commands, in which case cmd joins the queue. On failure cmd is queued.
func (r *Retrying) issue(id string, cmd func() error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if queue, ok := r.pending[id]; ok {
		if len(queue) < maxPendingPerBanner {
			r.pending[id] = append(queue, cmd)
		} else {
			r.logger.Warn("surface retry queue full, dropping command", "banner", id)
		}
		return nil
	}

	if err := cmd(); err != nil {
		r.logger.Debug("surface command failed, will retry", "banner", id, "error", err)
		r.pending[id] = []func() error{cmd}
	}
	return nil
}

func (r *Retrying) CreateBanner(id string, opts BannerOptions) error {
	return r.issue(id, func() error { return r.next.CreateBanner(id, opts) })
}

func (r *Retrying) SetText(id string, text transform.RichText) error {
	return r.issue(id, func() error { return r.next.SetText(id, text) })
}

func (r *Retrying) SetPosition(id string, x, y int) error {
	return r.issue(id, func() error { return r.next.SetPosition(id, x, y) })
}

func (r *Retrying) SetOpacity(id string, opacity float64) error {
	return r.issue(id, func() error { return r.next.SetOpacity(id, opacity) })
}

func (r *Retrying) StartScrollPass(id string, fromX, toX int, duration time.Duration) error {
	return r.issue(id, func() error { return r.next.StartScrollPass(id, fromX, toX, duration) })
}

// DestroyBanner drops any queued commands for the banner before issuing
// the destroy; replaying stale draws for a dead banner is pointless.
func (r *Retrying) DestroyBanner(id string) error {
	r.mu.Lock()
	delete(r.pending, id)
	r.mu.Unlock()
	return r.issue(id, func() error { return r.next.DestroyBanner(id) })
}
