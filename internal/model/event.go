// Package model defines the core data structures for marquee.
package model

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// Validation errors.
var (
	ErrEmptyTitle       = errors.New("title cannot be empty")
	ErrEmptyBody        = errors.New("body cannot be empty")
	ErrInvalidTimestamp = errors.New("received_at must be set")
)

// Event is a single notification admitted from an event source.
// It is immutable once produced: the intake pipeline consumes it exactly
// once and either creates a banner from it or suppresses it.
type Event struct {
	Title      string    `json:"title"`
	Body       string    `json:"body"`
	Icon       string    `json:"icon,omitempty"` // optional icon path
	ReceivedAt time.Time `json:"received_at"`
}

// NewEvent creates an Event with the body collapsed to a single line.
func NewEvent(title, body, icon string, receivedAt time.Time) Event {
	return Event{
		Title:      title,
		Body:       CollapseLines(body),
		Icon:       icon,
		ReceivedAt: receivedAt,
	}
}

// Validate checks that the event has all required fields.
func (e Event) Validate() error {
	if e.Title == "" {
		return ErrEmptyTitle
	}
	if e.Body == "" {
		return ErrEmptyBody
	}
	if e.ReceivedAt.IsZero() {
		return ErrInvalidTimestamp
	}
	return nil
}

// Fingerprint returns a content-derived key used to detect duplicate
// notifications. Title and body are hashed with a separator so that
// ("ab","c") and ("a","bc") do not collide.
func (e Event) Fingerprint() string {
	h := sha256.New()
	h.Write([]byte(e.Title))
	h.Write([]byte{0})
	h.Write([]byte(e.Body))
	return hex.EncodeToString(h.Sum(nil))
}

// BodyTruncated returns the body truncated to maxLen characters.
// If the body is longer, it is truncated and "..." is appended.
func (e Event) BodyTruncated(maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	body := CollapseLines(e.Body)
	if len(body) <= maxLen {
		return body
	}
	if maxLen <= 3 {
		return body[:maxLen]
	}
	return body[:maxLen-3] + "..."
}

// CollapseLines joins a multi-line string into a single line.
// Banner text scrolls horizontally, so newlines are never displayed.
func CollapseLines(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// NewBannerID generates a new ULID string for a banner instance. ULIDs
// sort by creation time, which keeps logs and status output readable.
func NewBannerID() string {
	return ulid.Make().String()
}
