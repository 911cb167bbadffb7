package limiter_test

import (
	"context"
	"testing"
	"time"

	"github.com/mohammadhprp/windowlimit/internal/limiter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestFixedWindowCounter_RecordPeekClear(t *testing.T) {
	store, _ := newTestStore(t)
	counter := limiter.NewFixedWindowCounter(store, zaptest.NewLogger(t))
	ctx := context.Background()

	count, err := counter.PeekCount(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.Zero(t, count, "absent key peeks as zero")

	for want := int64(1); want <= 3; want++ {
		got, err := counter.RecordAndCount(ctx, "k", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	count, err = counter.PeekCount(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	require.NoError(t, counter.Clear(ctx, "k"))

	got, err := counter.RecordAndCount(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got, "cleared key starts a fresh record")
}

func TestFixedWindowCounter_WindowExpires(t *testing.T) {
	store, c := newTestStore(t)
	counter := limiter.NewFixedWindowCounter(store, zaptest.NewLogger(t))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := counter.RecordAndCount(ctx, "k", 10*time.Second)
		require.NoError(t, err)
	}

	c.Advance(10 * time.Second)

	got, err := counter.RecordAndCount(ctx, "k", 10*time.Second)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got)
}

// TestFixedWindowCounter_BoundaryBurst documents the accepted weakness of the
// fixed window: two back-to-back windows each admit a full threshold.
func TestFixedWindowCounter_BoundaryBurst(t *testing.T) {
	store, c := newTestStore(t)
	rl, err := limiter.NewFixedWindowLimiter(limiter.Static(4), limiter.Static(10), store, limiter.WithClock(c))
	require.NoError(t, err)
	ctx := context.Background()

	// Open the window, then go quiet until just before it ends.
	exceeded, err := rl.IsExceeded(ctx, "user")
	require.NoError(t, err)
	require.False(t, exceeded)
	c.Advance(9900 * time.Millisecond)

	admitted := 0
	for i := 0; i < 2; i++ {
		exceeded, err := rl.IsExceeded(ctx, "user")
		require.NoError(t, err)
		if !exceeded {
			admitted++
		}
	}

	c.Advance(200 * time.Millisecond)
	for i := 0; i < 3; i++ {
		exceeded, err := rl.IsExceeded(ctx, "user")
		require.NoError(t, err)
		if !exceeded {
			admitted++
		}
	}

	assert.Equal(t, 5, admitted, "five admissions within 200ms although the per-window allowance is three")
}

func TestFixedWindowCounter_PropagatesStoreErrors(t *testing.T) {
	counter := limiter.NewFixedWindowCounter(&failingStore{}, nil)
	ctx := context.Background()

	_, err := counter.RecordAndCount(ctx, "k", time.Second)
	assert.ErrorIs(t, err, errStoreDown)

	_, err = counter.PeekCount(ctx, "k", time.Second)
	assert.ErrorIs(t, err, errStoreDown)

	assert.ErrorIs(t, counter.Clear(ctx, "k"), errStoreDown)
}
