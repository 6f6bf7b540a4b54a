package source

import (
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"marquee/internal/model"
)

// filetimeEpochOffset converts Unix time to Windows FILETIME
// (100ns intervals since 1601-01-01), the timestamp unit the toast
// notification database stores in ArrivalTime.
const filetimeEpochOffset = 116444736000000000

// ToastDB polls a toast notification SQLite database for new rows.
// Rows at or after an arrival-time watermark are decoded (XML toast
// payload), title-filtered, and emitted as events in arrival order.
type ToastDB struct {
	mu     sync.Mutex
	logger *slog.Logger

	path     string
	interval time.Duration
	title    string

	db     *sql.DB
	events chan model.Event
	// processed maps row id to arrival time for rows already emitted at
	// the current watermark. The poll query re-reads rows sharing the
	// watermark timestamp, so a writer committing another row at the
	// identical instant is picked up on the next poll; this table keeps
	// the re-read from duplicating what was already emitted. Pruned as
	// the watermark moves past the entries.
	processed map[int64]int64
	watermark int64

	done    chan struct{}
	stopped bool

	now func() time.Time
}

// NewToastDB creates a poller for the database at path.
func NewToastDB(path, title string, interval time.Duration, logger *slog.Logger) *ToastDB {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = time.Second
	}
	return &ToastDB{
		logger:    logger,
		path:      path,
		interval:  interval,
		title:     title,
		events:    make(chan model.Event, eventBuffer),
		processed: make(map[int64]int64),
		done:      make(chan struct{}),
		now:       time.Now,
	}
}

// Events returns the event channel.
func (t *ToastDB) Events() <-chan model.Event {
	return t.events
}

// SetTitle replaces the title filter.
func (t *ToastDB) SetTitle(title string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if title != t.title {
		t.logger.Info("title filter updated", "old", t.title, "new", title)
		t.title = title
	}
}

// Start opens the database read-only and begins polling. Only rows
// arriving from Start onward are reported.
func (t *ToastDB) Start() error {
	db, err := sql.Open("sqlite", "file:"+t.path+"?mode=ro")
	if err != nil {
		return fmt.Errorf("failed to open notification database: %w", err)
	}
	// The notification store is written by another process; a single
	// connection avoids piling up lock contention.
	db.SetMaxOpenConns(1)
	t.db = db
	t.watermark = toFiletime(t.now())

	go t.poll()
	t.logger.Info("polling notification database", "path", t.path, "interval", t.interval)
	return nil
}

// poll is the only goroutine that sends on events, so it owns the close.
func (t *ToastDB) poll() {
	defer close(t.events)

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := t.pollOnce(); err != nil {
				if strings.Contains(err.Error(), "database is locked") {
					// The owning process has it; next tick will catch up.
					t.logger.Warn("notification database locked, retrying next poll")
				} else {
					t.logger.Error("failed to poll notification database", "error", err)
				}
			}
		case <-t.done:
			return
		}
	}
}

// pollOnce reads rows at or after the watermark, oldest first so
// emission preserves arrival order. The comparison is inclusive: rows
// sharing the watermark timestamp are re-read every poll and the
// processed table filters the ones already emitted.
func (t *ToastDB) pollOnce() error {
	rows, err := t.db.Query(`
		SELECT Id, Payload, ArrivalTime
		FROM Notification
		WHERE Type = 'toast' AND ArrivalTime >= ?
		ORDER BY ArrivalTime ASC`,
		t.watermark,
	)
	if err != nil {
		return err
	}
	defer rows.Close()

	newWatermark := t.watermark
	for rows.Next() {
		var (
			id      int64
			payload []byte
			arrival int64
		)
		if err := rows.Scan(&id, &payload, &arrival); err != nil {
			return err
		}
		if arrival > newWatermark {
			newWatermark = arrival
		}
		if _, seen := t.processed[id]; seen {
			continue
		}
		t.processed[id] = arrival
		t.handleRow(id, payload, arrival)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	if newWatermark > t.watermark {
		t.watermark = newWatermark
		for id, arrival := range t.processed {
			if arrival < t.watermark {
				delete(t.processed, id)
			}
		}
	}
	return nil
}

func (t *ToastDB) handleRow(id int64, payload []byte, arrival int64) {
	if len(payload) == 0 {
		return
	}

	title, body, err := ParseToastPayload(payload)
	if err != nil {
		t.logger.Debug("skipping undecodable toast row", "id", id, "error", err)
		return
	}
	if !t.matches(title) {
		return
	}

	event := model.NewEvent(title, body, "", fromFiletime(arrival))
	if err := event.Validate(); err != nil {
		t.logger.Debug("dropping invalid toast row", "id", id, "error", err)
		return
	}

	t.logger.Debug("captured toast notification", "id", id, "title", title)
	t.emit(event)
}

func (t *ToastDB) matches(title string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.title == "" || t.title == title
}

// emit never blocks past Stop: with the buffer full and no consumer
// left, the send races the done signal instead of holding a lock.
func (t *ToastDB) emit(event model.Event) {
	select {
	case t.events <- event:
	case <-t.done:
	}
}

// Stop halts polling and closes the database. The poll goroutine closes
// the event channel on its way out.
func (t *ToastDB) Stop() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return nil
	}
	t.stopped = true
	close(t.done)
	if t.db != nil {
		return t.db.Close()
	}
	return nil
}

// toFiletime converts Go time to Windows FILETIME.
func toFiletime(t time.Time) int64 {
	return t.UnixNano()/100 + filetimeEpochOffset
}

// fromFiletime converts Windows FILETIME to Go time.
func fromFiletime(ft int64) time.Time {
	return time.Unix(0, (ft-filetimeEpochOffset)*100)
}
