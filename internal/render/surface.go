// Package render defines the declarative command contract between the
// banner engine and whatever actually draws banners on screen.
//
// The engine never draws. It emits create/position/opacity/scroll/destroy
// commands; a Surface implementation turns those into pixels (or terminal
// cells, for the preview surface).
package render

import (
	"time"

	"marquee/internal/transform"
)

// Style variants a surface may render differently.
const (
	StyleDefault = "default"
	StyleWarning = "warning"
)

// BannerOptions is the visual configuration for one banner, fixed at
// creation time.
type BannerOptions struct {
	Width   int     // full banner width in px
	Height  int     // banner height in px
	Opacity float64 // target opacity once fully entered
	Style   string  // StyleDefault or StyleWarning
	FontPt  float64
}

// Surface receives draw commands for banners. Implementations must be safe
// for calls from the engine's tick goroutine. Commands may fail
// transiently (surface not ready); the engine retries rather than
// dropping the banner.
type Surface interface {
	CreateBanner(id string, opts BannerOptions) error
	SetText(id string, text transform.RichText) error
	SetPosition(id string, x, y int) error
	SetOpacity(id string, opacity float64) error
	StartScrollPass(id string, fromX, toX int, duration time.Duration) error
	DestroyBanner(id string) error
}
