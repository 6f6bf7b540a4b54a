package source

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marquee/internal/model"
)

func newTestDB(t *testing.T) (*sql.DB, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "wpndatabase.db")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`CREATE TABLE Notification (
		Id INTEGER PRIMARY KEY,
		Type TEXT,
		Payload BLOB,
		ArrivalTime INTEGER
	)`)
	require.NoError(t, err)
	return db, path
}

func insertToast(t *testing.T, db *sql.DB, id int64, title, body string, arrival int64) {
	t.Helper()
	payload := []byte(`<toast><visual><binding template="ToastGeneric"><text>` +
		title + `</text><text>` + body + `</text></binding></visual></toast>`)
	_, err := db.Exec(
		`INSERT INTO Notification (Id, Type, Payload, ArrivalTime) VALUES (?, 'toast', ?, ?)`,
		id, payload, arrival,
	)
	require.NoError(t, err)
}

func newTestPoller(t *testing.T, db *sql.DB, title string, start time.Time) *ToastDB {
	t.Helper()
	p := NewToastDB("unused", title, time.Second, nil)
	p.db = db
	p.watermark = toFiletime(start)
	return p
}

func drain(p *ToastDB) []model.Event {
	var out []model.Event
	for {
		select {
		case e := <-p.events:
			out = append(out, e)
		default:
			return out
		}
	}
}

func TestPollOnce_EmitsNewMatchingRows(t *testing.T) {
	db, _ := newTestDB(t)
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	p := newTestPoller(t, db, "Ops Alerts", start)

	insertToast(t, db, 1, "Ops Alerts", "disk almost full", toFiletime(start.Add(time.Second)))
	insertToast(t, db, 2, "Other Title", "ignored", toFiletime(start.Add(2*time.Second)))
	insertToast(t, db, 3, "Ops Alerts", "second alert", toFiletime(start.Add(3*time.Second)))

	require.NoError(t, p.pollOnce())

	events := drain(p)
	require.Len(t, events, 2)
	assert.Equal(t, "disk almost full", events[0].Body)
	assert.Equal(t, "second alert", events[1].Body) // arrival order preserved
	assert.Equal(t, start.Add(time.Second).Unix(), events[0].ReceivedAt.Unix())
}

func TestPollOnce_IgnoresRowsBeforeStart(t *testing.T) {
	db, _ := newTestDB(t)
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	p := newTestPoller(t, db, "", start)

	insertToast(t, db, 1, "Old", "before the poller started", toFiletime(start.Add(-time.Hour)))

	require.NoError(t, p.pollOnce())
	assert.Empty(t, drain(p))
}

func TestPollOnce_AdvancesWatermark(t *testing.T) {
	db, _ := newTestDB(t)
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	p := newTestPoller(t, db, "", start)

	insertToast(t, db, 1, "T", "first", toFiletime(start.Add(time.Second)))
	require.NoError(t, p.pollOnce())
	require.Len(t, drain(p), 1)

	// Same rows again: nothing new.
	require.NoError(t, p.pollOnce())
	assert.Empty(t, drain(p))

	insertToast(t, db, 2, "T", "second", toFiletime(start.Add(5*time.Second)))
	require.NoError(t, p.pollOnce())
	events := drain(p)
	require.Len(t, events, 1)
	assert.Equal(t, "second", events[0].Body)
}

func TestPollOnce_CatchesLateRowSharingWatermarkTimestamp(t *testing.T) {
	db, _ := newTestDB(t)
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	p := newTestPoller(t, db, "", start)
	arrival := toFiletime(start.Add(time.Second))

	insertToast(t, db, 1, "T", "one", arrival)
	require.NoError(t, p.pollOnce())
	require.Len(t, drain(p), 1)

	// The writer commits another row at the identical arrival time after
	// we have already polled past it. The inclusive watermark query must
	// pick it up; the ID table keeps the first row from doubling.
	insertToast(t, db, 2, "T", "two", arrival)
	require.NoError(t, p.pollOnce())

	events := drain(p)
	require.Len(t, events, 1)
	assert.Equal(t, "two", events[0].Body)

	// And nothing doubles on the poll after that.
	require.NoError(t, p.pollOnce())
	assert.Empty(t, drain(p))
}

func TestPollOnce_PrunesProcessedIDsWhenWatermarkAdvances(t *testing.T) {
	db, _ := newTestDB(t)
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	p := newTestPoller(t, db, "", start)

	insertToast(t, db, 1, "T", "one", toFiletime(start.Add(time.Second)))
	require.NoError(t, p.pollOnce())
	require.Len(t, drain(p), 1)
	require.Len(t, p.processed, 1)

	insertToast(t, db, 2, "T", "two", toFiletime(start.Add(2*time.Second)))
	require.NoError(t, p.pollOnce())
	require.Len(t, drain(p), 1)

	// Only the row at the new watermark remains tracked.
	assert.Len(t, p.processed, 1)
	_, tracked := p.processed[2]
	assert.True(t, tracked)
}

func TestToastDB_StopUnblocksPendingEmit(t *testing.T) {
	db, _ := newTestDB(t)
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	p := newTestPoller(t, db, "", start)

	// Fill the buffer so the next emit has nowhere to go.
	for i := 0; i < eventBuffer; i++ {
		p.events <- model.Event{Title: "t", Body: "b", ReceivedAt: start}
	}

	unblocked := make(chan struct{})
	go func() {
		p.emit(model.Event{Title: "t", Body: "b", ReceivedAt: start})
		close(unblocked)
	}()

	require.NoError(t, p.Stop())
	select {
	case <-unblocked:
	case <-time.After(time.Second):
		t.Fatal("emit still blocked after Stop")
	}
}

func TestPollOnce_SkipsMalformedPayloads(t *testing.T) {
	db, _ := newTestDB(t)
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	p := newTestPoller(t, db, "", start)

	_, err := db.Exec(
		`INSERT INTO Notification (Id, Type, Payload, ArrivalTime) VALUES (1, 'toast', ?, ?)`,
		[]byte("not xml at all"), toFiletime(start.Add(time.Second)),
	)
	require.NoError(t, err)
	insertToast(t, db, 2, "T", "good", toFiletime(start.Add(2*time.Second)))

	require.NoError(t, p.pollOnce())
	events := drain(p)
	require.Len(t, events, 1)
	assert.Equal(t, "good", events[0].Body)
}

func TestToastDB_SetTitle(t *testing.T) {
	db, _ := newTestDB(t)
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	p := newTestPoller(t, db, "A", start)

	insertToast(t, db, 1, "B", "missed", toFiletime(start.Add(time.Second)))
	require.NoError(t, p.pollOnce())
	require.Empty(t, drain(p))

	p.SetTitle("B")
	insertToast(t, db, 2, "B", "caught", toFiletime(start.Add(2*time.Second)))
	require.NoError(t, p.pollOnce())
	events := drain(p)
	require.Len(t, events, 1)
	assert.Equal(t, "caught", events[0].Body)
}
