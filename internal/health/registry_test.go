package health

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_RegisterStartsInactive(t *testing.T) {
	r := NewRegistry()
	r.Register("pncp")

	h, ok := r.Get("pncp")
	require.True(t, ok)
	assert.Equal(t, StatusInactive, h.Status)
	assert.False(t, r.IsUsable("pncp"))

	// Re-registering must not reset an updated entry.
	r.Update("pncp", StatusActive)
	r.Register("pncp")
	h, _ = r.Get("pncp")
	assert.Equal(t, StatusActive, h.Status)
}

func TestRegistry_UpdateClearsStaleFields(t *testing.T) {
	r := NewRegistry()
	r.Register("pncp")

	reset := time.Now().Add(time.Hour)
	r.Update("pncp", StatusRateLimited, WithRateLimitReset(reset))
	h, _ := r.Get("pncp")
	require.NotNil(t, h.RateLimitReset)

	r.Update("pncp", StatusActive, WithResponseTime(120*time.Millisecond))
	h, _ = r.Get("pncp")
	assert.Nil(t, h.RateLimitReset)
	assert.Empty(t, h.ErrorMessage)
	require.NotNil(t, h.ResponseTime)
	assert.Equal(t, 120*time.Millisecond, *h.ResponseTime)
}

func TestRegistry_UpdateUnknownNameDropped(t *testing.T) {
	r := NewRegistry()
	r.Update("ghost", StatusActive)

	_, ok := r.Get("ghost")
	assert.False(t, ok)
	assert.False(t, r.IsUsable("ghost"))
}

func TestRegistry_LazyRateLimitRecovery(t *testing.T) {
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	r := NewRegistry()
	r.nowFunc = func() time.Time { return now }
	r.Register("comprasnet")

	reset := now.Add(30 * time.Minute)
	r.Update("comprasnet", StatusRateLimited, WithRateLimitReset(reset))

	assert.False(t, r.IsUsable("comprasnet"), "before reset")

	now = reset.Add(-time.Second)
	assert.False(t, r.IsUsable("comprasnet"), "one second before reset")

	now = reset
	assert.True(t, r.IsUsable("comprasnet"), "at reset")

	// The transition is recorded, not just reported.
	h, _ := r.Get("comprasnet")
	assert.Equal(t, StatusActive, h.Status)
	assert.Nil(t, h.RateLimitReset)
}

func TestRegistry_SnapshotIsCopy(t *testing.T) {
	r := NewRegistry()
	r.Register("pncp")
	r.Update("pncp", StatusActive)

	snap := r.Snapshot()
	require.Len(t, snap, 1)

	entry := snap["pncp"]
	entry.Status = StatusError
	snap["pncp"] = entry

	h, _ := r.Get("pncp")
	assert.Equal(t, StatusActive, h.Status, "mutating a snapshot must not touch the registry")
}

func TestRegistry_ActiveSorted(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{"siconv", "pncp", "comprasnet", "receita"} {
		r.Register(name)
		r.Update(name, StatusActive)
	}
	r.Update("receita", StatusError, WithError(assertErr{}))

	assert.Equal(t, []string{"comprasnet", "pncp", "siconv"}, r.Active())
}

type assertErr struct{}

func (assertErr) Error() string { return "boom" }

func TestRegistry_ConcurrentUpdates(t *testing.T) {
	r := NewRegistry()
	r.Register("pncp")

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				r.Update("pncp", StatusActive)
			} else {
				r.Update("pncp", StatusError)
			}
			r.IsUsable("pncp")
			r.Snapshot()
		}(i)
	}
	wg.Wait()

	_, ok := r.Get("pncp")
	assert.True(t, ok)
}
