package resilience

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBreakers(threshold int, reset time.Duration) (*HostBreakers, *time.Time) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	hb := NewHostBreakers(BreakerConfig{FailureThreshold: threshold, ResetTimeout: reset})
	hb.now = func() time.Time { return now }
	return hb, &now
}

func TestHostBreakers_OpensAfterThreshold(t *testing.T) {
	hb, _ := newTestBreakers(3, time.Minute)
	boom := errors.New("boom")

	for range 2 {
		require.NoError(t, hb.Allow("x.com"))
		hb.Record("x.com", boom)
	}
	assert.False(t, hb.Open("x.com"))

	hb.Record("x.com", boom)
	assert.True(t, hb.Open("x.com"))

	err := hb.Allow("x.com")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCircuitOpen))

	// Other hosts are unaffected.
	assert.NoError(t, hb.Allow("y.com"))
}

func TestHostBreakers_SuccessResetsCount(t *testing.T) {
	hb, _ := newTestBreakers(2, time.Minute)
	boom := errors.New("boom")

	hb.Record("x.com", boom)
	hb.Record("x.com", nil)
	hb.Record("x.com", boom)
	assert.False(t, hb.Open("x.com"))
}

func TestHostBreakers_HalfOpenTrialCall(t *testing.T) {
	hb, now := newTestBreakers(1, time.Minute)
	boom := errors.New("boom")

	hb.Record("x.com", boom)
	require.Error(t, hb.Allow("x.com"))

	*now = now.Add(time.Minute)

	// One trial call passes, concurrent callers are still rejected.
	require.NoError(t, hb.Allow("x.com"))
	require.Error(t, hb.Allow("x.com"))

	// Failed trial call reopens for another full timeout.
	hb.Record("x.com", boom)
	require.Error(t, hb.Allow("x.com"))

	*now = now.Add(time.Minute)
	require.NoError(t, hb.Allow("x.com"))
	hb.Record("x.com", nil)
	assert.False(t, hb.Open("x.com"))
	assert.NoError(t, hb.Allow("x.com"))
}

func TestHostBreakers_ReleaseReopensHalfOpenSlot(t *testing.T) {
	hb, now := newTestBreakers(1, time.Minute)

	hb.Record("x.com", errors.New("boom"))
	*now = now.Add(time.Minute)
	require.NoError(t, hb.Allow("x.com"))
	require.Error(t, hb.Allow("x.com"))

	hb.Release("x.com")
	assert.True(t, hb.Open("x.com"))
	require.NoError(t, hb.Allow("x.com"))

	hb.Release("unknown.com")
	assert.NoError(t, hb.Allow("unknown.com"))
}

func TestNewHostBreakers_Defaults(t *testing.T) {
	hb := NewHostBreakers(BreakerConfig{})
	assert.Equal(t, 5, hb.cfg.FailureThreshold)
	assert.Equal(t, time.Minute, hb.cfg.ResetTimeout)
}
