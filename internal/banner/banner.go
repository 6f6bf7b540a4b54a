// Package banner implements the per-banner lifecycle state machine.
//
// A Lifecycle owns one visible banner from fade-in to destruction. It is
// advanced by the engine's tick and emits declarative surface commands;
// it never draws and never touches another banner's state.
package banner

import (
	"log/slog"
	"math"
	"time"

	"marquee/internal/config"
	"marquee/internal/render"
	"marquee/internal/transform"
)

// State is a lifecycle phase.
type State int

const (
	// StateEntering is the fade-in phase after creation.
	StateEntering State = iota
	// StateScrolling is an in-progress horizontal scroll pass.
	StateScrolling
	// StateIdle shows centered, non-moving text.
	StateIdle
	// StateFadingOut is the exit fade; clicks are ignored.
	StateFadingOut
	// StateClosed is terminal. The instance is discarded.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateEntering:
		return "entering"
	case StateScrolling:
		return "scrolling"
	case StateIdle:
		return "idle"
	case StateFadingOut:
		return "fading-out"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Config is the per-banner snapshot of display settings, copied at
// creation time. Later config reloads never touch an in-flight banner.
type Config struct {
	ScrollSpeed    float64 // px/s
	MaxScrolls     int     // 0 = unlimited
	ClickThreshold int
	RightSpacing   int
	FontSize       float64
	LeftMargin     int
	Height         int
	Spacing        int
	BaseOffset     int
	VisibleWidth   int
	Opacity        float64
	ScrollMode     config.ScrollMode
	Style          config.Style
	FadeDuration   time.Duration
	ShiftDuration  time.Duration
}

// SnapshotConfig copies the live banner settings into a per-banner Config.
func SnapshotConfig(b config.BannerConfig) Config {
	return Config{
		ScrollSpeed:    b.ScrollSpeed,
		MaxScrolls:     b.MaxScrolls,
		ClickThreshold: b.ClickToClose,
		RightSpacing:   b.RightSpacing,
		FontSize:       b.FontSize,
		LeftMargin:     b.LeftMargin,
		Height:         b.Height,
		Spacing:        b.Spacing,
		BaseOffset:     b.BaseOffset,
		VisibleWidth:   b.VisibleWidth(),
		Opacity:        b.Opacity,
		ScrollMode:     config.ScrollMode(b.ScrollMode),
		Style:          config.Style(b.Style),
		FadeDuration:   b.FadeDuration.Duration(),
		ShiftDuration:  b.ShiftDuration.Duration(),
	}
}

// SlotY returns the vertical offset for a stack slot.
func (c Config) SlotY(slot int) int {
	return c.BaseOffset + slot*(c.Height+c.Spacing)
}

// PassDuration returns the duration of one full scroll pass for text of
// the given pixel width, rounded to the millisecond.
func (c Config) PassDuration(textWidth int) time.Duration {
	if c.ScrollSpeed <= 0 {
		return 0
	}
	distance := float64(c.VisibleWidth + textWidth + c.RightSpacing)
	ms := math.Round(distance / c.ScrollSpeed * 1000)
	return time.Duration(ms) * time.Millisecond
}

// Lifecycle is the state machine for one banner instance.
type Lifecycle struct {
	id        string
	cfg       Config
	text      transform.RichText
	textWidth int

	state      State
	stateSince time.Time
	passEnds   time.Time

	scrollCount int
	clickCount  int

	y        int
	opacity  float64 // last opacity sent to the surface
	fadeFrom float64 // opacity when the exit fade started

	surface render.Surface
	logger  *slog.Logger
}

// New creates a Lifecycle in the Entering state and issues the initial
// surface commands (create, text, position at slot 0, opacity 0).
func New(id string, cfg Config, text transform.RichText, textWidth int, now time.Time, surface render.Surface, logger *slog.Logger) *Lifecycle {
	if logger == nil {
		logger = slog.Default()
	}

	l := &Lifecycle{
		id:         id,
		cfg:        cfg,
		text:       text,
		textWidth:  textWidth,
		state:      StateEntering,
		stateSince: now,
		y:          cfg.SlotY(0),
		surface:    surface,
		logger:     logger,
	}

	l.surface.CreateBanner(id, render.BannerOptions{
		Width:   cfg.VisibleWidth,
		Height:  cfg.Height,
		Opacity: cfg.Opacity,
		Style:   string(cfg.Style),
		FontPt:  cfg.FontSize,
	})
	l.surface.SetText(id, text)
	l.surface.SetPosition(id, cfg.LeftMargin, l.y)
	l.setOpacity(0)

	return l
}

// ID returns the banner's instance id.
func (l *Lifecycle) ID() string { return l.id }

// State returns the current lifecycle state.
func (l *Lifecycle) State() State { return l.state }

// ScrollCount returns the number of completed scroll passes.
func (l *Lifecycle) ScrollCount() int { return l.scrollCount }

// ClickCount returns the number of clicks received.
func (l *Lifecycle) ClickCount() int { return l.clickCount }

// Text returns the banner's display text.
func (l *Lifecycle) Text() transform.RichText { return l.text }

// Closed reports whether the lifecycle has reached its terminal state.
func (l *Lifecycle) Closed() bool { return l.state == StateClosed }

// SetSlot repositions the banner to a stack slot. The surface animates
// the move over the configured shift duration.
func (l *Lifecycle) SetSlot(slot int) {
	y := l.cfg.SlotY(slot)
	if y == l.y {
		return
	}
	l.y = y
	l.surface.SetPosition(l.id, l.cfg.LeftMargin, y)
}

// Advance moves the state machine forward to the given time. Called once
// per engine tick, always from the same goroutine.
func (l *Lifecycle) Advance(now time.Time) {
	switch l.state {
	case StateEntering:
		elapsed := now.Sub(l.stateSince)
		if elapsed < l.cfg.FadeDuration {
			l.setOpacity(l.cfg.Opacity * fraction(elapsed, l.cfg.FadeDuration))
			return
		}
		l.setOpacity(l.cfg.Opacity)
		if l.shouldScroll() {
			l.startScrollPass(now)
		} else {
			l.enterIdle(now)
		}

	case StateScrolling:
		if now.Before(l.passEnds) {
			return
		}
		l.scrollCount++
		if l.cfg.MaxScrolls > 0 && l.scrollCount >= l.cfg.MaxScrolls {
			l.beginFadeOut(now)
			return
		}
		l.startScrollPass(now)

	case StateIdle:
		// Waits for clicks or a force-close.

	case StateFadingOut:
		elapsed := now.Sub(l.stateSince)
		if elapsed < l.cfg.FadeDuration {
			l.setOpacity(l.fadeFrom * (1 - fraction(elapsed, l.cfg.FadeDuration)))
			return
		}
		l.setOpacity(0)
		l.surface.DestroyBanner(l.id)
		l.state = StateClosed
		l.stateSince = now
		l.logger.Debug("banner closed", "id", l.id, "scrolls", l.scrollCount, "clicks", l.clickCount)

	case StateClosed:
	}
}

// Click registers one user click. Reaching the threshold starts the exit
// fade immediately, whatever the scroll state. Clicks during fade-out or
// after close are ignored.
func (l *Lifecycle) Click(now time.Time) {
	if l.state == StateFadingOut || l.state == StateClosed {
		return
	}
	l.clickCount++
	if l.clickCount >= l.cfg.ClickThreshold {
		l.beginFadeOut(now)
	}
}

// ForceClose starts the exit fade regardless of click count. Calling it
// on a banner already fading or closed is a no-op.
func (l *Lifecycle) ForceClose(now time.Time) {
	if l.state == StateFadingOut || l.state == StateClosed {
		return
	}
	l.beginFadeOut(now)
}

// shouldScroll decides scroll vs idle from the configured mode. A
// non-positive scroll speed disables scrolling outright.
func (l *Lifecycle) shouldScroll() bool {
	if l.cfg.ScrollSpeed <= 0 {
		return false
	}
	switch l.cfg.ScrollMode {
	case config.ScrollNever:
		return false
	case config.ScrollAuto:
		return l.textWidth > l.cfg.VisibleWidth
	default:
		return true
	}
}

// startScrollPass begins one right-to-left pass: the text enters at the
// right edge and leaves once fully past the left edge plus the trailing
// gap.
func (l *Lifecycle) startScrollPass(now time.Time) {
	dur := l.cfg.PassDuration(l.textWidth)
	if dur <= 0 {
		l.enterIdle(now)
		return
	}
	l.state = StateScrolling
	l.stateSince = now
	l.passEnds = now.Add(dur)
	l.surface.StartScrollPass(l.id, l.cfg.VisibleWidth, -(l.textWidth + l.cfg.RightSpacing), dur)
}

func (l *Lifecycle) enterIdle(now time.Time) {
	l.state = StateIdle
	l.stateSince = now
}

// beginFadeOut ramps down from the current opacity, so a banner closed
// mid-fade-in never jumps to full brightness first.
func (l *Lifecycle) beginFadeOut(now time.Time) {
	l.fadeFrom = l.opacity
	l.state = StateFadingOut
	l.stateSince = now
}

func (l *Lifecycle) setOpacity(v float64) {
	l.opacity = v
	l.surface.SetOpacity(l.id, v)
}

// fraction returns elapsed/total clamped to [0,1].
func fraction(elapsed, total time.Duration) float64 {
	if total <= 0 {
		return 1
	}
	f := float64(elapsed) / float64(total)
	if f > 1 {
		return 1
	}
	if f < 0 {
		return 0
	}
	return f
}
