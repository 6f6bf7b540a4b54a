// Package source produces notification events from the OS notification
// plumbing.
//
// Two sources exist: a passive D-Bus monitor that eavesdrops
// org.freedesktop.Notifications traffic, and a poller for a toast
// notification SQLite database. Both apply the configured title filter
// before emitting, and both support updating that filter at runtime.
package source

import "marquee/internal/model"

// Source yields notification events matching the configured title filter.
type Source interface {
	// Start begins producing events. Non-blocking.
	Start() error
	// Events returns the event channel. Closed after Stop.
	Events() <-chan model.Event
	// SetTitle replaces the title filter. An empty title matches any.
	SetTitle(title string)
	// Stop stops the source and closes the event channel.
	Stop() error
}

// eventBuffer sizes the event channels. Bursts beyond this within one
// poll interval block the producer, never drop events, preserving
// admission order.
const eventBuffer = 64
