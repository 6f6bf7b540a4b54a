// Package daemon wires the marqueed pipeline: event source, dedup,
// text rules, banner engine, shared state, and the D-Bus control
// surface.
package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/time/rate"

	"marquee/internal/audio"
	"marquee/internal/banner"
	"marquee/internal/config"
	"marquee/internal/dedup"
	"marquee/internal/model"
	"marquee/internal/render"
	"marquee/internal/source"
	"marquee/internal/stack"
	"marquee/internal/store"
	"marquee/internal/transform"
)

// Daemon runs the notification-to-banner pipeline.
type Daemon struct {
	mu     sync.Mutex
	logger *slog.Logger

	cfg         *config.Config
	configPath  string
	watcher     *config.Watcher
	src         source.Source
	filter      *dedup.Filter
	transformer *transform.Transformer
	engine      *stack.Engine
	history     *store.History
	state       *store.SharedState
	limiter     *rate.Limiter
	player      *audio.Player
	cron        *cron.Cron
	control     *Control

	startedAt time.Time
}

// New builds a Daemon from the given config, emitting banners to surface.
func New(cfg *config.Config, configPath string, surface render.Surface, logger *slog.Logger) (*Daemon, error) {
	if logger == nil {
		logger = slog.Default()
	}

	state, err := store.LoadSharedState()
	if err != nil {
		return nil, fmt.Errorf("failed to load shared state: %w", err)
	}
	if cfg.DnD.Enabled && !state.DnDEnabled {
		state.SetDnD(true, store.DnDTriggerUser, "configured default", "marqueed")
	}

	historyPath, err := store.HistoryPath()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve history path: %w", err)
	}

	src, err := newSource(cfg, logger)
	if err != nil {
		return nil, err
	}

	rules, err := config.LoadRules(cfg.Rules.File)
	if err != nil {
		return nil, fmt.Errorf("failed to load rules: %w", err)
	}

	d := &Daemon{
		logger:      logger,
		cfg:         cfg,
		configPath:  configPath,
		src:         src,
		filter:      dedup.New(cfg.Dedup.Enabled, cfg.Dedup.Window.Duration(), logger),
		transformer: transform.New(transform.CompileRules(rules, logger), logger),
		engine:      stack.New(render.NewRetrying(surface, logger), cfg.Engine.Tick.Duration(), logger),
		history:     store.NewHistory(historyPath, store.DefaultReplayWindow),
		state:       state,
		limiter:     newLimiter(cfg.Limits),
		player:      audio.NewPlayer(logger),
		startedAt:   time.Now(),
	}
	d.control = NewControl(d, logger)

	if cfg.Audio.Enabled {
		d.player.SetVolume(float64(cfg.Audio.Volume) / 100.0)
		if err := d.player.Preload(cfg.Audio.Sound); err != nil {
			logger.Warn("failed to preload admit sound", "error", err)
		}
	}

	return d, nil
}

func newSource(cfg *config.Config, logger *slog.Logger) (source.Source, error) {
	switch config.SourceKind(cfg.Listen.Source) {
	case config.SourceToastDB:
		return source.NewToastDB(cfg.Listen.Database, cfg.Listen.Title, cfg.Listen.PollInterval.Duration(), logger), nil
	case config.SourceDBus:
		return source.NewDBusMonitor(cfg.Listen.Title, logger), nil
	default:
		return nil, fmt.Errorf("unknown source %q", cfg.Listen.Source)
	}
}

func newLimiter(limits config.LimitsConfig) *rate.Limiter {
	if limits.PerMinute <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	burst := limits.Burst
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(float64(limits.PerMinute)/60.0), burst)
}

// Run starts all components and processes events until ctx is cancelled.
func (d *Daemon) Run(ctx context.Context) error {
	d.engine.Start()
	defer d.engine.Stop()

	if err := d.src.Start(); err != nil {
		return fmt.Errorf("failed to start event source: %w", err)
	}
	defer d.src.Stop()

	if err := d.control.Start(); err != nil {
		d.logger.Warn("D-Bus control service unavailable", "error", err)
	} else {
		defer d.control.Stop()
	}

	if err := d.startConfigWatcher(); err != nil {
		d.logger.Warn("config hot-reload unavailable", "error", err)
	}
	defer d.stopConfigWatcher()

	d.startQuietHours()
	defer d.stopQuietHours()
	defer d.player.Close()

	d.logger.Info("marqueed running",
		"source", d.cfg.Listen.Source,
		"title", d.cfg.Listen.Title,
	)

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("shutting down")
			return nil
		case event, ok := <-d.src.Events():
			if !ok {
				return fmt.Errorf("event source closed")
			}
			d.handleEvent(event)
		}
	}
}

// handleEvent runs one event through the admission pipeline.
func (d *Daemon) handleEvent(event model.Event) {
	if err := event.Validate(); err != nil {
		d.logger.Debug("dropping invalid event", "error", err)
		return
	}
	// Sources filter by title already; re-check in case of a stale
	// in-flight event across a filter change.
	if title := d.currentTitle(); title != "" && event.Title != title {
		return
	}

	if d.DnDEnabled() {
		d.logger.Debug("suppressed by do-not-disturb", "title", event.Title)
		return
	}
	d.mu.Lock()
	limiter := d.limiter
	d.mu.Unlock()
	if !limiter.Allow() {
		d.logger.Warn("suppressed by rate limit", "title", event.Title)
		return
	}
	if !d.filter.Admit(event) {
		return
	}

	if err := d.history.Append(event); err != nil {
		d.logger.Warn("failed to record history", "error", err)
	}
	d.recordLastNotification(event)

	d.admit(event, 0)
}

// admit transforms and hands the event to the banner engine.
// scrollOverride > 0 replaces the configured max scroll count.
func (d *Daemon) admit(event model.Event, scrollOverride int) {
	d.mu.Lock()
	bannerCfg := banner.SnapshotConfig(d.cfg.Banner)
	transformer := d.transformer
	audioCfg := d.cfg.Audio
	d.mu.Unlock()

	if scrollOverride > 0 {
		bannerCfg.MaxScrolls = scrollOverride
	}

	text := transformer.Apply(event.Body)
	width := banner.EstimateTextWidth(text.Plain(), bannerCfg.FontSize)
	id := d.engine.Admit(bannerCfg, text, width)

	if audioCfg.Enabled && audioCfg.Sound != "" {
		if err := d.player.Play(audioCfg.Sound); err != nil {
			d.logger.Debug("admit sound failed", "error", err)
		}
	}

	d.logger.Info("banner created", "id", id, "title", event.Title)
}

func (d *Daemon) currentTitle() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cfg.Listen.Title
}

func (d *Daemon) recordLastNotification(event model.Event) {
	d.mu.Lock()
	d.state.LastNotificationAt = event.ReceivedAt.Unix()
	state := *d.state
	d.mu.Unlock()
	if err := store.SaveSharedState(&state); err != nil {
		d.logger.Warn("failed to persist shared state", "error", err)
	}
}

// DnDEnabled reports the current do-not-disturb state.
func (d *Daemon) DnDEnabled() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state.DnDEnabled
}

// SetDnD sets the do-not-disturb state and persists it.
func (d *Daemon) SetDnD(enabled bool, trigger store.DnDTrigger, reason, src string) {
	d.mu.Lock()
	d.state.SetDnD(enabled, trigger, reason, src)
	state := *d.state
	d.mu.Unlock()

	if err := store.SaveSharedState(&state); err != nil {
		d.logger.Warn("failed to persist shared state", "error", err)
	}
	d.logger.Info("do-not-disturb changed", "enabled", enabled, "trigger", trigger, "reason", reason)
}

// ToggleDnD flips the do-not-disturb state and returns the new value.
func (d *Daemon) ToggleDnD(trigger store.DnDTrigger, reason, src string) bool {
	enabled := !d.DnDEnabled()
	d.SetDnD(enabled, trigger, reason, src)
	return enabled
}

// SendTest creates a banner directly from the given body text, bypassing
// dedup and rate limiting. Do-not-disturb still applies.
func (d *Daemon) SendTest(body string, scrolls int) error {
	if d.DnDEnabled() {
		return fmt.Errorf("do-not-disturb is enabled")
	}
	event := model.NewEvent(d.currentTitle(), body, "", time.Now())
	if event.Title == "" {
		event.Title = "marquee"
	}
	if err := event.Validate(); err != nil {
		return err
	}
	d.admit(event, scrolls)
	return nil
}

// ShowLast replays the most recent notification from history, bypassing
// dedup and do-not-disturb.
func (d *Daemon) ShowLast() error {
	event, err := d.history.Last()
	if err != nil {
		return err
	}
	d.admit(event, 0)
	return nil
}

// Dismiss force-closes a banner by id, or the newest one for
// stack.DismissLast.
func (d *Daemon) Dismiss(id string) {
	d.engine.ForceClose(id)
}

// DismissAll force-closes every active banner.
func (d *Daemon) DismissAll() {
	d.engine.CloseAll()
}

// Click routes a surface click to the banner engine.
func (d *Daemon) Click(id string) {
	d.engine.Click(id)
}

// Status is the daemon state snapshot served over D-Bus.
type Status struct {
	DnDEnabled    bool         `json:"dnd_enabled"`
	Title         string       `json:"title"`
	Source        string       `json:"source"`
	ActiveBanners []stack.Info `json:"active_banners"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	DedupEnabled  bool         `json:"dedup_enabled"`
	DedupTracked  int          `json:"dedup_tracked"`
}

// Status returns the current daemon state.
func (d *Daemon) Status() Status {
	d.mu.Lock()
	cfg := d.cfg
	dnd := d.state.DnDEnabled
	d.mu.Unlock()

	return Status{
		DnDEnabled:    dnd,
		Title:         cfg.Listen.Title,
		Source:        cfg.Listen.Source,
		ActiveBanners: d.engine.Snapshot(),
		UptimeSeconds: int64(time.Since(d.startedAt).Seconds()),
		DedupEnabled:  cfg.Dedup.Enabled,
		DedupTracked:  d.filter.Len(),
	}
}

// startConfigWatcher wires hot reload: a valid new config updates the
// title filter, dedup, rules, and limits. In-flight banners keep the
// snapshot they were created with.
func (d *Daemon) startConfigWatcher() error {
	path := d.configPath
	if path == "" {
		var err error
		path, err = config.Path()
		if err != nil {
			return err
		}
	}
	watcher, err := config.NewWatcher(path, d.cfg, d.logger)
	if err != nil {
		return err
	}
	watcher.SetReloadCallback(d.applyConfig)
	if err := watcher.Start(); err != nil {
		return err
	}
	d.watcher = watcher
	return nil
}

func (d *Daemon) stopConfigWatcher() {
	if d.watcher != nil {
		if err := d.watcher.Stop(); err != nil {
			d.logger.Warn("failed to stop config watcher", "error", err)
		}
	}
}

func (d *Daemon) applyConfig(cfg *config.Config) {
	rules, err := config.LoadRules(cfg.Rules.File)
	if err != nil {
		d.logger.Warn("keeping previous rules", "error", err)
		rules = nil
	}

	d.mu.Lock()
	if cfg.Engine.Tick != d.cfg.Engine.Tick {
		d.logger.Warn("engine tick changed; restart marqueed to apply it",
			"tick", cfg.Engine.Tick.Duration())
	}
	d.cfg = cfg
	if rules != nil || cfg.Rules.File == "" {
		d.transformer = transform.New(transform.CompileRules(rules, d.logger), d.logger)
	}
	d.limiter = newLimiter(cfg.Limits)
	d.mu.Unlock()

	d.src.SetTitle(cfg.Listen.Title)
	d.filter.SetEnabled(cfg.Dedup.Enabled)
	d.filter.SetWindow(cfg.Dedup.Window.Duration())

	if cfg.Audio.Enabled {
		d.player.SetVolume(float64(cfg.Audio.Volume) / 100.0)
	}

	d.logger.Info("configuration applied", "title", cfg.Listen.Title)
}

// startQuietHours schedules DnD transitions from the configured cron
// specs.
func (d *Daemon) startQuietHours() {
	d.mu.Lock()
	start, end := d.cfg.DnD.QuietStart, d.cfg.DnD.QuietEnd
	d.mu.Unlock()
	if start == "" || end == "" {
		return
	}

	c := cron.New()
	if _, err := c.AddFunc(start, func() {
		d.SetDnD(true, store.DnDTriggerSchedule, "quiet hours start", "marqueed")
	}); err != nil {
		d.logger.Warn("invalid quiet_start schedule", "spec", start, "error", err)
		return
	}
	if _, err := c.AddFunc(end, func() {
		d.SetDnD(false, store.DnDTriggerSchedule, "quiet hours end", "marqueed")
	}); err != nil {
		d.logger.Warn("invalid quiet_end schedule", "spec", end, "error", err)
		return
	}

	c.Start()
	d.cron = c
	d.logger.Info("quiet hours scheduled", "start", start, "end", end)
}

func (d *Daemon) stopQuietHours() {
	if d.cron != nil {
		d.cron.Stop()
	}
}
