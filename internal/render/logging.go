package render

import (
	"log/slog"
	"time"

	"marquee/internal/transform"
)

// Logging is a Surface that only logs commands. It backs headless runs
// where an external process consumes the engine via D-Bus, and doubles
// as a trace tool when debugging banner timing.
type Logging struct {
	logger *slog.Logger
}

// NewLogging creates a log-only surface.
func NewLogging(logger *slog.Logger) *Logging {
	if logger == nil {
		logger = slog.Default()
	}
	return &Logging{logger: logger}
}

func (l *Logging) CreateBanner(id string, opts BannerOptions) error {
	l.logger.Debug("surface: create", "id", id, "style", opts.Style, "width", opts.Width)
	return nil
}

func (l *Logging) SetText(id string, text transform.RichText) error {
	l.logger.Debug("surface: text", "id", id, "text", text.Plain())
	return nil
}

func (l *Logging) SetPosition(id string, x, y int) error {
	l.logger.Debug("surface: position", "id", id, "x", x, "y", y)
	return nil
}

func (l *Logging) SetOpacity(id string, opacity float64) error {
	l.logger.Debug("surface: opacity", "id", id, "opacity", opacity)
	return nil
}

func (l *Logging) StartScrollPass(id string, fromX, toX int, duration time.Duration) error {
	l.logger.Debug("surface: scroll", "id", id, "from", fromX, "to", toX, "duration", duration)
	return nil
}

func (l *Logging) DestroyBanner(id string) error {
	l.logger.Debug("surface: destroy", "id", id)
	return nil
}
