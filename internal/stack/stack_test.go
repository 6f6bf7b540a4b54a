package stack

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marquee/internal/banner"
	"marquee/internal/config"
	"marquee/internal/render"
	"marquee/internal/transform"
)

func testBannerConfig() banner.Config {
	cfg := banner.SnapshotConfig(config.Default().Banner)
	cfg.FadeDuration = 100 * time.Millisecond
	cfg.ScrollMode = config.ScrollNever // keep lifecycles in Idle for stack tests
	return cfg
}

func newTestEngine() (*Engine, *render.Recorder, time.Time) {
	rec := render.NewRecorder()
	e := New(rec, 16*time.Millisecond, nil)
	return e, rec, time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
}

func text(s string) transform.RichText {
	return transform.RichText{{Text: s}}
}

func slotByText(t *testing.T, e *Engine, s string) int {
	t.Helper()
	for _, info := range e.Snapshot() {
		if info.Text == s {
			return info.Slot
		}
	}
	t.Fatalf("no banner with text %q", s)
	return -1
}

func TestAdmit_NewestTakesSlotZero(t *testing.T) {
	e, _, now := newTestEngine()
	cfg := testBannerConfig()

	e.Admit(cfg, text("A"), 100)
	now = now.Add(16 * time.Millisecond)
	e.Tick(now)
	e.Admit(cfg, text("B"), 100)
	now = now.Add(16 * time.Millisecond)
	e.Tick(now)
	e.Admit(cfg, text("C"), 100)
	now = now.Add(16 * time.Millisecond)
	e.Tick(now)

	require.Equal(t, 3, e.Count())
	assert.Equal(t, 2, slotByText(t, e, "A"))
	assert.Equal(t, 1, slotByText(t, e, "B"))
	assert.Equal(t, 0, slotByText(t, e, "C"))
}

func TestAdmit_SameTickPreservesFIFO(t *testing.T) {
	e, _, now := newTestEngine()
	cfg := testBannerConfig()

	e.Admit(cfg, text("first"), 100)
	e.Admit(cfg, text("second"), 100)
	e.Tick(now)

	// "second" was admitted after "first", so it is the newer banner.
	assert.Equal(t, 1, slotByText(t, e, "first"))
	assert.Equal(t, 0, slotByText(t, e, "second"))
}

func TestRelease_CompactsSlots(t *testing.T) {
	e, _, now := newTestEngine()
	cfg := testBannerConfig()

	e.Admit(cfg, text("A"), 100)
	e.Admit(cfg, text("B"), 100)
	e.Admit(cfg, text("C"), 100)
	e.Tick(now)
	require.Equal(t, 3, e.Count())

	var bID string
	for _, info := range e.Snapshot() {
		if info.Text == "B" {
			bID = info.ID
		}
	}
	require.NotEmpty(t, bID)

	e.ForceClose(bID)
	now = now.Add(16 * time.Millisecond)
	e.Tick(now) // applies force-close, fade-out starts
	now = now.Add(cfg.FadeDuration)
	e.Tick(now) // fade completes, B closed and removed

	require.Equal(t, 2, e.Count())
	assert.Equal(t, 0, slotByText(t, e, "C"))
	assert.Equal(t, 1, slotByText(t, e, "A"))
}

func TestSlotInvariant(t *testing.T) {
	e, _, now := newTestEngine()
	cfg := testBannerConfig()

	for i := 0; i < 5; i++ {
		e.Admit(cfg, text("x"), 100)
		now = now.Add(16 * time.Millisecond)
		e.Tick(now)
	}
	e.ForceClose(DismissLast)
	e.ForceClose(DismissLast)
	now = now.Add(16 * time.Millisecond)
	e.Tick(now)
	now = now.Add(cfg.FadeDuration)
	e.Tick(now)

	// Occupied slots are exactly {0..K-1}, no duplicates.
	infos := e.Snapshot()
	seen := make(map[int]bool)
	for _, info := range infos {
		assert.False(t, seen[info.Slot], "duplicate slot %d", info.Slot)
		seen[info.Slot] = true
		assert.Less(t, info.Slot, len(infos))
		assert.GreaterOrEqual(t, info.Slot, 0)
	}
}

func TestForceClose_Idempotent(t *testing.T) {
	e, rec, now := newTestEngine()
	cfg := testBannerConfig()

	id := e.Admit(cfg, text("A"), 100)
	e.Tick(now)

	e.ForceClose(id)
	e.ForceClose(id)
	now = now.Add(16 * time.Millisecond)
	e.Tick(now)
	now = now.Add(cfg.FadeDuration)
	e.Tick(now)

	assert.Equal(t, 0, e.Count())
	destroys := 0
	for _, op := range rec.Ops(id) {
		if op == "DestroyBanner" {
			destroys++
		}
	}
	assert.Equal(t, 1, destroys)
}

func TestForceClose_LastWalksDownTheStack(t *testing.T) {
	e, _, now := newTestEngine()
	cfg := testBannerConfig()

	e.Admit(cfg, text("older"), 100)
	e.Admit(cfg, text("newer"), 100)
	e.Tick(now)

	// Two dismiss-last calls in one tick hit different banners: the
	// second skips the one already fading.
	e.ForceClose(DismissLast)
	e.ForceClose(DismissLast)
	now = now.Add(16 * time.Millisecond)
	e.Tick(now)
	now = now.Add(cfg.FadeDuration)
	e.Tick(now)

	assert.Equal(t, 0, e.Count())
}

func TestCloseAll(t *testing.T) {
	e, _, now := newTestEngine()
	cfg := testBannerConfig()

	for i := 0; i < 4; i++ {
		e.Admit(cfg, text("x"), 100)
	}
	e.Tick(now)
	require.Equal(t, 4, e.Count())

	e.CloseAll()
	now = now.Add(16 * time.Millisecond)
	e.Tick(now)
	now = now.Add(cfg.FadeDuration)
	e.Tick(now)

	assert.Equal(t, 0, e.Count())
}

func TestClick_RoutedToBanner(t *testing.T) {
	e, _, now := newTestEngine()
	cfg := testBannerConfig()
	cfg.ClickThreshold = 2

	id := e.Admit(cfg, text("A"), 100)
	e.Tick(now)

	e.Click(id)
	now = now.Add(16 * time.Millisecond)
	e.Tick(now)
	require.Equal(t, 1, e.Snapshot()[0].ClickCount)
	assert.Equal(t, 1, e.Count())

	e.Click(id)
	now = now.Add(16 * time.Millisecond)
	e.Tick(now)
	now = now.Add(cfg.FadeDuration)
	e.Tick(now)
	assert.Equal(t, 0, e.Count())
}

func TestClick_UnknownIDIgnored(t *testing.T) {
	e, _, now := newTestEngine()

	e.Click("no-such-banner")
	e.ForceClose("no-such-banner")
	assert.NotPanics(t, func() { e.Tick(now) })
}

func TestTick_FlushesRetryingSurface(t *testing.T) {
	rec := render.NewRecorder()
	retrying := render.NewRetrying(rec, nil)
	e := New(retrying, 16*time.Millisecond, nil)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	cfg := testBannerConfig()

	rec.SetFail("SetText", errors.New("surface not ready"))
	id := e.Admit(cfg, text("A"), 100)
	e.Tick(now)

	// SetText failed and is queued; later commands for the banner wait
	// behind it in order.
	require.Equal(t, 1, retrying.PendingCount())
	assert.Equal(t, []string{"CreateBanner"}, rec.Ops(id))

	rec.SetFail("SetText", nil)
	now = now.Add(16 * time.Millisecond)
	e.Tick(now)

	assert.Equal(t, 0, retrying.PendingCount())
	ops := rec.Ops(id)
	require.GreaterOrEqual(t, len(ops), 4)
	assert.Equal(t, []string{"CreateBanner", "SetText", "SetPosition", "SetOpacity"}, ops[:4])
}
