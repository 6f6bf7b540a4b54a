// Package stack owns the ordered collection of active banners and the
// tick loop that advances them.
//
// All banner and slot state is mutated from exactly one place: the tick.
// External entry points (admit, click, force-close) enqueue commands that
// the next tick applies in arrival order, so admission stays FIFO and no
// caller ever observes a banner mid-transition.
package stack

import (
	"log/slog"
	"sync"
	"time"

	"marquee/internal/banner"
	"marquee/internal/model"
	"marquee/internal/render"
	"marquee/internal/transform"
)

// DismissLast targets the newest dismissable banner in ForceClose.
const DismissLast = "last"

type commandKind int

const (
	cmdAdmit commandKind = iota
	cmdClick
	cmdForceClose
	cmdCloseAll
)

type command struct {
	kind      commandKind
	id        string
	cfg       banner.Config
	text      transform.RichText
	textWidth int
}

// Info is a read-only snapshot of one active banner.
type Info struct {
	ID          string    `json:"id"`
	Slot        int       `json:"slot"`
	State       string    `json:"state"`
	Text        string    `json:"text"`
	ScrollCount int       `json:"scroll_count"`
	ClickCount  int       `json:"click_count"`
	CreatedAt   time.Time `json:"created_at"`
}

type entry struct {
	lc        *banner.Lifecycle
	createdAt time.Time
}

// Engine drives all active banner lifecycles from a single tick loop.
// active is ordered newest-first; a banner's slot is its index.
type Engine struct {
	mu     sync.Mutex
	logger *slog.Logger

	surface render.Surface
	tick    time.Duration

	queue  []command
	active []entry

	newID func() string

	done    chan struct{}
	running bool
}

// New creates an Engine ticking at the given interval.
func New(surface render.Surface, tick time.Duration, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if tick <= 0 {
		tick = 16 * time.Millisecond
	}
	return &Engine{
		logger:  logger,
		surface: surface,
		tick:    tick,
		newID:   model.NewBannerID,
		done:    make(chan struct{}),
	}
}

// Start runs the tick loop until Stop.
func (e *Engine) Start() {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return
	}
	e.running = true
	e.mu.Unlock()

	go e.run()
	e.logger.Debug("banner engine started", "tick", e.tick)
}

// Stop halts the tick loop and destroys all active banners.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.running = false
	close(e.done)

	for _, ent := range e.active {
		e.surface.DestroyBanner(ent.lc.ID())
	}
	e.active = nil
	e.queue = nil
	e.mu.Unlock()
}

func (e *Engine) run() {
	ticker := time.NewTicker(e.tick)
	defer ticker.Stop()

	for {
		select {
		case now := <-ticker.C:
			e.Tick(now)
		case <-e.done:
			return
		}
	}
}

// Admit queues a new banner and returns its assigned id. The banner
// becomes visible on the next tick, entering at slot 0.
func (e *Engine) Admit(cfg banner.Config, text transform.RichText, textWidth int) string {
	id := e.newID()
	e.enqueue(command{kind: cmdAdmit, id: id, cfg: cfg, text: text, textWidth: textWidth})
	return id
}

// Click queues one user click for the banner.
func (e *Engine) Click(id string) {
	e.enqueue(command{kind: cmdClick, id: id})
}

// ForceClose queues a dismissal for the banner, or for the newest
// dismissable banner when id is DismissLast. Safe to call concurrently
// with ticks; a second call for the same banner is a no-op.
func (e *Engine) ForceClose(id string) {
	e.enqueue(command{kind: cmdForceClose, id: id})
}

// CloseAll queues a dismissal of every active banner.
func (e *Engine) CloseAll() {
	e.enqueue(command{kind: cmdCloseAll})
}

func (e *Engine) enqueue(cmd command) {
	e.mu.Lock()
	e.queue = append(e.queue, cmd)
	e.mu.Unlock()
}

// Count returns the number of active banners.
func (e *Engine) Count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.active)
}

// Snapshot returns the active banners, newest first.
func (e *Engine) Snapshot() []Info {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]Info, 0, len(e.active))
	for slot, ent := range e.active {
		out = append(out, Info{
			ID:          ent.lc.ID(),
			Slot:        slot,
			State:       ent.lc.State().String(),
			Text:        ent.lc.Text().Plain(),
			ScrollCount: ent.lc.ScrollCount(),
			ClickCount:  ent.lc.ClickCount(),
			CreatedAt:   ent.createdAt,
		})
	}
	return out
}

// Tick applies queued commands in arrival order, advances every
// lifecycle to now, and compacts slots left by closed banners. The lock
// spans the whole tick so clicks and admissions are never interleaved
// with state advancement.
func (e *Engine) Tick(now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()

	queue := e.queue
	e.queue = nil
	for _, cmd := range queue {
		e.apply(cmd, now)
	}

	for _, ent := range e.active {
		ent.lc.Advance(now)
	}

	e.compact()
	e.checkSlots()

	if f, ok := e.surface.(interface{ Flush() }); ok {
		f.Flush()
	}
}

// checkSlots validates the slot invariant after each tick: one entry per
// banner id, none closed. A violation is a programming error; recover by
// rebuilding the layout from scratch instead of crashing the listener.
func (e *Engine) checkSlots() {
	seen := make(map[string]bool, len(e.active))
	ok := true
	for _, ent := range e.active {
		if ent.lc.Closed() || seen[ent.lc.ID()] {
			ok = false
			break
		}
		seen[ent.lc.ID()] = true
	}
	if ok {
		return
	}

	e.logger.Warn("slot invariant violated, rebuilding layout")
	kept := e.active[:0]
	seen = make(map[string]bool, len(e.active))
	for _, ent := range e.active {
		if ent.lc.Closed() || seen[ent.lc.ID()] {
			continue
		}
		seen[ent.lc.ID()] = true
		kept = append(kept, ent)
	}
	e.active = kept
	e.reflow()
}

func (e *Engine) apply(cmd command, now time.Time) {
	switch cmd.kind {
	case cmdAdmit:
		lc := banner.New(cmd.id, cmd.cfg, cmd.text, cmd.textWidth, now, e.surface, e.logger)
		e.active = append([]entry{{lc: lc, createdAt: now}}, e.active...)
		e.reflow()
		e.logger.Info("banner admitted", "id", cmd.id, "active", len(e.active))

	case cmdClick:
		if lc := e.find(cmd.id); lc != nil {
			lc.Click(now)
		}

	case cmdForceClose:
		if cmd.id == DismissLast {
			e.forceCloseNewest(now)
			return
		}
		if lc := e.find(cmd.id); lc != nil {
			lc.ForceClose(now)
		}

	case cmdCloseAll:
		for _, ent := range e.active {
			ent.lc.ForceClose(now)
		}
	}
}

func (e *Engine) find(id string) *banner.Lifecycle {
	for _, ent := range e.active {
		if ent.lc.ID() == id {
			return ent.lc
		}
	}
	return nil
}

// forceCloseNewest dismisses the newest banner that is not already on its
// way out, so repeated "dismiss last" calls walk down the stack.
func (e *Engine) forceCloseNewest(now time.Time) {
	for _, ent := range e.active {
		switch ent.lc.State() {
		case banner.StateFadingOut, banner.StateClosed:
			continue
		default:
			ent.lc.ForceClose(now)
			return
		}
	}
}

// compact removes closed banners and renumbers the survivors. Slots are
// recomputed from scratch on every removal, which doubles as the
// self-heal path for any slot inconsistency.
func (e *Engine) compact() {
	kept := e.active[:0]
	removed := false
	for _, ent := range e.active {
		if ent.lc.Closed() {
			removed = true
			continue
		}
		kept = append(kept, ent)
	}
	e.active = kept
	if removed {
		e.reflow()
	}
}

// reflow repositions every banner to match its slot (index in active,
// newest at slot 0). The surface animates the move.
func (e *Engine) reflow() {
	for slot, ent := range e.active {
		ent.lc.SetSlot(slot)
	}
}
