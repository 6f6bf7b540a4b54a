package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewEvent(t *testing.T) {
	now := time.Now()
	e := NewEvent("Alerts", "line one\nline two", "", now)

	assert.Equal(t, "Alerts", e.Title)
	assert.Equal(t, "line one line two", e.Body)
	assert.Equal(t, now, e.ReceivedAt)
}

func TestEvent_Validate(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name    string
		event   Event
		wantErr error
	}{
		{"valid", Event{Title: "t", Body: "b", ReceivedAt: now}, nil},
		{"empty title", Event{Body: "b", ReceivedAt: now}, ErrEmptyTitle},
		{"empty body", Event{Title: "t", ReceivedAt: now}, ErrEmptyBody},
		{"zero timestamp", Event{Title: "t", Body: "b"}, ErrInvalidTimestamp},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.event.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestEvent_Fingerprint(t *testing.T) {
	a := Event{Title: "X", Body: "A"}
	b := Event{Title: "X", Body: "A"}
	c := Event{Title: "X", Body: "B"}

	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
	assert.NotEqual(t, a.Fingerprint(), c.Fingerprint())

	// Boundary must matter: ("ab","c") != ("a","bc")
	d := Event{Title: "ab", Body: "c"}
	e := Event{Title: "a", Body: "bc"}
	assert.NotEqual(t, d.Fingerprint(), e.Fingerprint())
}

func TestEvent_BodyTruncated(t *testing.T) {
	e := Event{Title: "t", Body: "hello world this is a long body"}

	assert.Equal(t, "hello worl...", e.BodyTruncated(13))
	assert.Equal(t, "hello world this is a long body", e.BodyTruncated(100))
	assert.Equal(t, "", e.BodyTruncated(0))
	assert.Equal(t, "he", e.BodyTruncated(2))
}

func TestNewBannerID(t *testing.T) {
	id1 := NewBannerID()
	id2 := NewBannerID()

	assert.Len(t, id1, 26)
	assert.NotEqual(t, id1, id2)
}
