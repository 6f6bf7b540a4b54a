package store

import (
	"bufio"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"marquee/internal/model"
)

// ErrNoRecentEvent means the history holds nothing inside the replay
// window.
var ErrNoRecentEvent = errors.New("no notification within the replay window")

// DefaultReplayWindow is how far back "show last notification" reaches.
const DefaultReplayWindow = 5 * time.Minute

// History is an append-only JSONL record of admitted notifications,
// kept short so the CLI can replay the most recent one.
type History struct {
	mu     sync.Mutex
	path   string
	window time.Duration

	now func() time.Time
}

// NewHistory creates a History backed by the file at path. A zero window
// uses DefaultReplayWindow.
func NewHistory(path string, window time.Duration) *History {
	if window <= 0 {
		window = DefaultReplayWindow
	}
	return &History{
		path:   path,
		window: window,
		now:    time.Now,
	}
}

// Append records one admitted event and prunes entries older than the
// window while it holds the file.
func (h *History) Append(event model.Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	events, err := h.read()
	if err != nil {
		return err
	}
	events = append(events, event)

	cutoff := h.now().Add(-h.window)
	kept := events[:0]
	for _, e := range events {
		if e.ReceivedAt.After(cutoff) {
			kept = append(kept, e)
		}
	}
	return h.write(kept)
}

// Last returns the most recent event within the window.
func (h *History) Last() (model.Event, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	events, err := h.read()
	if err != nil {
		return model.Event{}, err
	}

	cutoff := h.now().Add(-h.window)
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].ReceivedAt.After(cutoff) {
			return events[i], nil
		}
	}
	return model.Event{}, ErrNoRecentEvent
}

// Recent returns all events within the window, oldest first.
func (h *History) Recent() ([]model.Event, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	events, err := h.read()
	if err != nil {
		return nil, err
	}

	cutoff := h.now().Add(-h.window)
	var out []model.Event
	for _, e := range events {
		if e.ReceivedAt.After(cutoff) {
			out = append(out, e)
		}
	}
	return out, nil
}

// read loads all entries; unparsable lines are skipped so one corrupted
// write never wedges replay.
func (h *History) read() ([]model.Event, error) {
	f, err := os.Open(h.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var events []model.Event
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var e model.Event
		if err := json.Unmarshal(line, &e); err != nil {
			continue
		}
		events = append(events, e)
	}
	return events, scanner.Err()
}

// write replaces the file atomically.
func (h *History) write(events []model.Event) error {
	if err := os.MkdirAll(filepath.Dir(h.path), 0700); err != nil {
		return err
	}

	tmpPath := h.path + ".tmp"
	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for _, e := range events {
		if err := enc.Encode(e); err != nil {
			f.Close()
			return err
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmpPath, h.path)
}
