// Package config loads and validates the marqueed configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// SourceKind selects the notification event source.
type SourceKind string

const (
	// SourceDBus passively monitors org.freedesktop.Notifications traffic.
	SourceDBus SourceKind = "dbus"
	// SourceToastDB polls a SQLite toast notification database.
	SourceToastDB SourceKind = "toastdb"
)

// ScrollMode controls whether banner text scrolls.
type ScrollMode string

const (
	ScrollAlways ScrollMode = "always"
	ScrollAuto   ScrollMode = "auto"
	ScrollNever  ScrollMode = "never"
)

// Style selects the banner style variant.
type Style string

const (
	StyleDefault Style = "default"
	StyleWarning Style = "warning"
)

// Config is the configuration for marqueed.
// Loaded from ~/.config/marquee/marqueed.toml
type Config struct {
	Listen ListenConfig `toml:"listen"`
	Banner BannerConfig `toml:"banner"`
	Dedup  DedupConfig  `toml:"dedup"`
	DnD    DnDConfig    `toml:"dnd"`
	Limits LimitsConfig `toml:"limits"`
	Audio  AudioConfig  `toml:"audio"`
	Rules  RulesConfig  `toml:"rules"`
	Engine EngineConfig `toml:"engine"`
}

// ListenConfig contains event source settings.
type ListenConfig struct {
	Title        string   `toml:"title"`         // Title filter; empty matches any title
	Source       string   `toml:"source"`        // "dbus" or "toastdb"
	PollInterval Duration `toml:"poll_interval"` // ToastDB poll interval
	Database     string   `toml:"database"`      // ToastDB path
}

// BannerConfig contains banner appearance and timing settings.
// These values are snapshotted per banner at creation time.
type BannerConfig struct {
	ScrollSpeed    float64  `toml:"scroll_speed"`     // px/s
	MaxScrolls     int      `toml:"max_scrolls"`      // 0 = unlimited
	ClickToClose   int      `toml:"click_to_close"`   // clicks required to dismiss
	RightSpacing   int      `toml:"right_spacing"`    // gap trailing the scrolled text, px
	FontSize       float64  `toml:"font_size"`        // pt
	LeftMargin     int      `toml:"left_margin"`      // px
	RightMargin    int      `toml:"right_margin"`     // px
	Height         int      `toml:"height"`           // banner height, px
	LabelMaskWidth int      `toml:"label_mask_width"` // fixed label area width, px
	Spacing        int      `toml:"spacing"`          // gap between stacked banners, px
	BaseOffset     int      `toml:"base_offset"`      // vertical offset of slot 0, px
	ScreenWidth    int      `toml:"screen_width"`     // px
	Opacity        float64  `toml:"opacity"`          // 0.0-1.0
	ScrollMode     string   `toml:"scroll_mode"`      // "always", "auto", "never"
	Style          string   `toml:"style"`            // "default", "warning"
	FadeDuration   Duration `toml:"fade_duration"`    // fade in/out
	ShiftDuration  Duration `toml:"shift_duration"`   // stack reposition animation
}

// DedupConfig contains duplicate suppression settings.
type DedupConfig struct {
	Enabled bool     `toml:"enabled"`
	Window  Duration `toml:"window"`
}

// DnDConfig contains Do Not Disturb settings.
// QuietStart/QuietEnd are cron specs enabling scheduled quiet hours.
type DnDConfig struct {
	Enabled    bool   `toml:"enabled"` // initial state
	QuietStart string `toml:"quiet_start"`
	QuietEnd   string `toml:"quiet_end"`
}

// LimitsConfig contains banner-flood protection settings.
type LimitsConfig struct {
	PerMinute int `toml:"per_minute"` // sustained admissions per minute, 0 = unlimited
	Burst     int `toml:"burst"`
}

// AudioConfig contains admit-sound settings.
type AudioConfig struct {
	Enabled bool   `toml:"enabled"`
	Sound   string `toml:"sound"`  // path to wav/mp3/ogg file
	Volume  int    `toml:"volume"` // 0-100
}

// RulesConfig points at the keyword replacement rules file.
type RulesConfig struct {
	File string `toml:"file"` // .toml or .yaml; empty disables rewriting
}

// EngineConfig contains scheduler settings.
type EngineConfig struct {
	Tick Duration `toml:"tick"`
}

// Default returns a new Config with default values.
func Default() *Config {
	return &Config{
		Listen: ListenConfig{
			Title:        "",
			Source:       string(SourceDBus),
			PollInterval: Duration(time.Second),
		},
		Banner: BannerConfig{
			ScrollSpeed:    200.0,
			MaxScrolls:     3,
			ClickToClose:   3,
			RightSpacing:   150,
			FontSize:       48.0,
			LeftMargin:     93,
			RightMargin:    93,
			Height:         128,
			LabelMaskWidth: 305,
			Spacing:        10,
			BaseOffset:     50,
			ScreenWidth:    1920,
			Opacity:        0.9,
			ScrollMode:     string(ScrollAlways),
			Style:          string(StyleDefault),
			FadeDuration:   Duration(1500 * time.Millisecond),
			ShiftDuration:  Duration(100 * time.Millisecond),
		},
		Dedup: DedupConfig{
			Enabled: false,
			Window:  Duration(5 * time.Minute),
		},
		DnD: DnDConfig{},
		Limits: LimitsConfig{
			PerMinute: 30,
			Burst:     10,
		},
		Audio: AudioConfig{
			Enabled: false,
			Volume:  80,
		},
		Rules:  RulesConfig{},
		Engine: EngineConfig{Tick: Duration(16 * time.Millisecond)},
	}
}

// Path returns the path to the daemon config file.
func Path() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "marquee", "marqueed.toml"), nil
}

// Load loads the configuration from the given path.
// An empty path uses the default location. A missing file returns defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		var err error
		path, err = Path()
		if err != nil {
			return nil, fmt.Errorf("failed to get config path: %w", err)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Start with defaults, then overlay with file contents.
	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Save saves the configuration to the given path (default location if empty).
func Save(cfg *Config, path string) error {
	if path == "" {
		var err error
		path, err = Path()
		if err != nil {
			return fmt.Errorf("failed to get config path: %w", err)
		}
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Write atomically via temp file
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return os.Rename(tmpPath, path)
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	switch SourceKind(c.Listen.Source) {
	case SourceDBus, SourceToastDB:
	default:
		return fmt.Errorf("invalid source %q, must be %q or %q", c.Listen.Source, SourceDBus, SourceToastDB)
	}
	if SourceKind(c.Listen.Source) == SourceToastDB && c.Listen.Database == "" {
		return fmt.Errorf("source %q requires listen.database to be set", SourceToastDB)
	}
	if c.Listen.PollInterval.Duration() < 100*time.Millisecond {
		return fmt.Errorf("poll_interval must be at least 100ms, got %s", c.Listen.PollInterval.Duration())
	}

	switch ScrollMode(c.Banner.ScrollMode) {
	case ScrollAlways, ScrollAuto, ScrollNever:
	default:
		return fmt.Errorf("invalid scroll_mode %q, must be one of: always, auto, never", c.Banner.ScrollMode)
	}
	switch Style(c.Banner.Style) {
	case StyleDefault, StyleWarning:
	default:
		return fmt.Errorf("invalid style %q, must be %q or %q", c.Banner.Style, StyleDefault, StyleWarning)
	}
	if c.Banner.MaxScrolls < 0 {
		return fmt.Errorf("max_scrolls must be >= 0, got %d", c.Banner.MaxScrolls)
	}
	if c.Banner.ClickToClose < 1 {
		return fmt.Errorf("click_to_close must be >= 1, got %d", c.Banner.ClickToClose)
	}
	if c.Banner.Opacity < 0 || c.Banner.Opacity > 1 {
		return fmt.Errorf("opacity must be between 0.0 and 1.0, got %g", c.Banner.Opacity)
	}
	if c.Banner.Height < 1 {
		return fmt.Errorf("banner height must be positive, got %d", c.Banner.Height)
	}
	if c.Banner.ScreenWidth < 1 {
		return fmt.Errorf("screen_width must be positive, got %d", c.Banner.ScreenWidth)
	}

	if c.Dedup.Window.Duration() <= 0 && c.Dedup.Enabled {
		return fmt.Errorf("dedup window must be positive when dedup is enabled")
	}
	if (c.DnD.QuietStart == "") != (c.DnD.QuietEnd == "") {
		return fmt.Errorf("quiet_start and quiet_end must be set together")
	}

	if c.Audio.Volume < 0 || c.Audio.Volume > 100 {
		return fmt.Errorf("volume must be between 0 and 100, got %d", c.Audio.Volume)
	}
	if c.Limits.PerMinute < 0 || c.Limits.Burst < 0 {
		return fmt.Errorf("limits must be >= 0")
	}
	if c.Engine.Tick.Duration() < time.Millisecond {
		return fmt.Errorf("engine tick must be at least 1ms, got %s", c.Engine.Tick.Duration())
	}
	return nil
}

// VisibleWidth returns the width of the scrolling text area in pixels.
func (b BannerConfig) VisibleWidth() int {
	w := b.ScreenWidth - b.LeftMargin - b.LabelMaskWidth - b.RightMargin
	if w < 1 {
		return 1
	}
	return w
}
