package render

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marquee/internal/transform"
)

func TestRetrying_PassThroughWhenHealthy(t *testing.T) {
	rec := NewRecorder()
	r := NewRetrying(rec, nil)

	require.NoError(t, r.CreateBanner("b1", BannerOptions{}))
	require.NoError(t, r.SetPosition("b1", 10, 20))

	assert.Equal(t, []string{"CreateBanner", "SetPosition"}, rec.Ops("b1"))
	assert.Equal(t, 0, r.PendingCount())
}

func TestRetrying_QueuesFailureAndReplaysInOrder(t *testing.T) {
	rec := NewRecorder()
	r := NewRetrying(rec, nil)

	rec.SetFail("SetPosition", errors.New("surface not ready"))
	r.CreateBanner("b1", BannerOptions{})
	r.SetPosition("b1", 10, 20)
	r.SetOpacity("b1", 0.5) // queued behind the failed SetPosition

	assert.Equal(t, []string{"CreateBanner"}, rec.Ops("b1"))
	assert.Equal(t, 1, r.PendingCount())

	// Still failing: Flush keeps the queue.
	r.Flush()
	assert.Equal(t, 1, r.PendingCount())

	rec.SetFail("SetPosition", nil)
	r.Flush()
	assert.Equal(t, 0, r.PendingCount())
	assert.Equal(t, []string{"CreateBanner", "SetPosition", "SetOpacity"}, rec.Ops("b1"))
}

func TestRetrying_QueuesArePerBanner(t *testing.T) {
	rec := NewRecorder()
	r := NewRetrying(rec, nil)

	rec.SetFail("SetText", errors.New("not ready"))
	r.SetText("b1", transform.RichText{{Text: "stuck"}})
	rec.SetFail("SetText", nil)

	// A healthy banner is unaffected by another banner's queue.
	r.SetPosition("b2", 1, 2)
	assert.Equal(t, []string{"SetPosition"}, rec.Ops("b2"))
}

func TestRetrying_DestroyDropsQueuedCommands(t *testing.T) {
	rec := NewRecorder()
	r := NewRetrying(rec, nil)

	rec.SetFail("StartScrollPass", errors.New("not ready"))
	r.StartScrollPass("b1", 0, -100, time.Second)
	require.Equal(t, 1, r.PendingCount())

	r.DestroyBanner("b1")
	assert.Equal(t, 0, r.PendingCount())

	rec.SetFail("StartScrollPass", nil)
	r.Flush()
	// The stale scroll command never replays after destroy.
	assert.Equal(t, []string{"DestroyBanner"}, rec.Ops("b1"))
}
