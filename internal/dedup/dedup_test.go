package dedup

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"marquee/internal/model"
)

func newTestFilter(enabled bool, window time.Duration) (*Filter, *time.Time) {
	f := New(enabled, window, nil)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	f.now = func() time.Time { return now }
	return f, &now
}

func TestAdmit_SuppressesWithinWindow(t *testing.T) {
	f, now := newTestFilter(true, 300*time.Second)
	e := model.Event{Title: "X", Body: "A"}

	assert.True(t, f.Admit(e))

	// Same fingerprint 10s later is suppressed.
	*now = now.Add(10 * time.Second)
	assert.False(t, f.Admit(e))

	// A different body is a different fingerprint.
	assert.True(t, f.Admit(model.Event{Title: "X", Body: "B"}))
}

func TestAdmit_WindowAnchoredOnFirstSeen(t *testing.T) {
	f, now := newTestFilter(true, 300*time.Second)
	e := model.Event{Title: "X", Body: "A"}

	assert.True(t, f.Admit(e))

	// Repeats at t=100s and t=250s are suppressed but must not extend
	// the window past the first occurrence.
	*now = now.Add(100 * time.Second)
	assert.False(t, f.Admit(e))
	*now = now.Add(150 * time.Second)
	assert.False(t, f.Admit(e))

	// t=301s: outside the window anchored at t=0, admitted again.
	*now = now.Add(51 * time.Second)
	assert.True(t, f.Admit(e))
}

func TestAdmit_EvictsExpiredEntries(t *testing.T) {
	f, now := newTestFilter(true, time.Minute)

	f.Admit(model.Event{Title: "X", Body: "A"})
	f.Admit(model.Event{Title: "X", Body: "B"})
	assert.Equal(t, 2, f.Len())

	*now = now.Add(2 * time.Minute)
	f.Admit(model.Event{Title: "X", Body: "C"})
	assert.Equal(t, 1, f.Len()) // A and B evicted, only C remains
}

func TestAdmit_DisabledAlwaysAdmits(t *testing.T) {
	f, _ := newTestFilter(false, 300*time.Second)
	e := model.Event{Title: "X", Body: "A"}

	assert.True(t, f.Admit(e))
	assert.True(t, f.Admit(e))
	assert.True(t, f.Admit(e))
}

func TestSetEnabled(t *testing.T) {
	f, _ := newTestFilter(false, 300*time.Second)
	e := model.Event{Title: "X", Body: "A"}

	assert.True(t, f.Admit(e))

	f.SetEnabled(true)
	assert.True(t, f.Admit(e)) // first tracked occurrence
	assert.False(t, f.Admit(e))
}
