package holders_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bewie03/bubblemap/holders"
	"github.com/bewie03/bubblemap/pkg/clock/clocktest"
)

func TestResolverRelatesSharedStakeKeys(t *testing.T) {
	t.Parallel()

	t.Run("it relates holders sharing a stake key and ignores outsiders", func(t *testing.T) {
		t.Parallel()

		// Arrange
		chain := newFakeChain().withStake("stake1s", "addr1a", "addr1b", "addr1c")
		resolver := holders.NewResolver(chain.client(t), holders.WithBatchDelay(0))
		dist := []holders.Holder{holder("addr1a", 30), holder("addr1b", 20), holder("addr1d", 10)}

		// Act
		relations, stats := resolver.Resolve(t.Context(), dist)

		// Assert
		assert.Equal(t, []string{"addr1b"}, relations.Related("addr1a"))
		assert.Equal(t, []string{"addr1a"}, relations.Related("addr1b"))
		assert.Empty(t, relations.Related("addr1d"))
		assert.NotContains(t, relations, "addr1c")
		assert.Equal(t, []holders.Link{{Source: "addr1a", Target: "addr1b"}}, relations.Links())
		assert.Equal(t, 3, stats.Resolved)
		assert.False(t, stats.Incomplete())
	})

	t.Run("it leaves unstaked addresses without relations", func(t *testing.T) {
		t.Parallel()

		// Arrange
		chain := newFakeChain()
		resolver := holders.NewResolver(chain.client(t), holders.WithBatchDelay(0))

		// Act
		relations, stats := resolver.Resolve(t.Context(), []holders.Holder{holder("addr1a", 1), holder("addr1b", 1)})

		// Assert
		assert.Empty(t, relations.Links())
		assert.Equal(t, 2, stats.Resolved)
		assert.Zero(t, chain.callsTo("/accounts/stake1s/addresses"))
	})

	t.Run("it reuses a cached group for later members", func(t *testing.T) {
		t.Parallel()

		// Arrange
		chain := newFakeChain().withStake("stake1s", "addr1a", "addr1b")
		resolver := holders.NewResolver(chain.client(t), holders.WithBatchSize(1), holders.WithBatchDelay(0))

		// Act
		relations, stats := resolver.Resolve(t.Context(), []holders.Holder{holder("addr1a", 2), holder("addr1b", 1)})

		// Assert
		assert.Equal(t, []string{"addr1b"}, relations.Related("addr1a"))
		assert.Equal(t, 1, stats.CacheHits)
		assert.Equal(t, 1, chain.callsTo("/addresses/addr1a"))
		assert.Zero(t, chain.callsTo("/addresses/addr1b"))
		assert.Equal(t, 1, chain.callsTo("/accounts/stake1s/addresses"))
	})
}

func TestResolverSwallowsFailures(t *testing.T) {
	t.Parallel()

	t.Run("it counts a failed lookup without aborting the batch", func(t *testing.T) {
		t.Parallel()

		// Arrange
		chain := newFakeChain().
			withStake("stake1s", "addr1a", "addr1b").
			failingWith("/addresses/addr1x", http.StatusInternalServerError)
		resolver := holders.NewResolver(chain.client(t), holders.WithBatchDelay(0))

		// Act
		relations, stats := resolver.Resolve(t.Context(), []holders.Holder{
			holder("addr1a", 3), holder("addr1x", 2), holder("addr1b", 1),
		})

		// Assert
		assert.Equal(t, []string{"addr1b"}, relations.Related("addr1a"))
		assert.Empty(t, relations.Related("addr1x"))
		assert.Equal(t, 1, stats.Failed)
		assert.Equal(t, 2, stats.Resolved)
		assert.True(t, stats.Incomplete())
	})

	t.Run("it counts a failed stake account listing", func(t *testing.T) {
		t.Parallel()

		// Arrange
		chain := newFakeChain().
			withStake("stake1s", "addr1a").
			failingWith("/accounts/stake1s/addresses", http.StatusForbidden)
		resolver := holders.NewResolver(chain.client(t), holders.WithBatchDelay(0))

		// Act
		relations, stats := resolver.Resolve(t.Context(), []holders.Holder{holder("addr1a", 1)})

		// Assert
		assert.Empty(t, relations.Links())
		assert.Equal(t, 1, stats.Failed)
	})
}

func TestResolverBatching(t *testing.T) {
	t.Parallel()

	t.Run("it separates batches by the configured delay", func(t *testing.T) {
		t.Parallel()

		// Arrange
		clk := clocktest.New(time.Now())
		batches := make(chan holders.BatchStats, 10)
		resolver := holders.NewResolver(newFakeChain().client(t),
			holders.WithClock(clk),
			holders.WithBatchSize(2),
			holders.WithBatchDelay(time.Second),
			holders.WithBatchObserver(func(b holders.BatchStats) { batches <- b }),
		)
		dist := []holders.Holder{holder("a1", 5), holder("a2", 4), holder("a3", 3), holder("a4", 2), holder("a5", 1)}

		// Act
		done := make(chan holders.ResolveStats, 1)
		go func() {
			_, stats := resolver.Resolve(t.Context(), dist)
			done <- stats
		}()

		// Assert
		assert.Equal(t, holders.BatchStats{Batch: 1, Batches: 3, Size: 2}, receive(t, batches))
		assertNoBatchUntilDelayElapsed(t, clk, batches)
		assert.Equal(t, holders.BatchStats{Batch: 2, Batches: 3, Size: 2}, receive(t, batches))
		assertNoBatchUntilDelayElapsed(t, clk, batches)
		assert.Equal(t, holders.BatchStats{Batch: 3, Batches: 3, Size: 1}, receive(t, batches))

		stats := receive(t, done)
		assert.Equal(t, 5, stats.Resolved)
		assert.Equal(t, 3, stats.Batches)
	})

	t.Run("it stops between batches when the context is cancelled", func(t *testing.T) {
		t.Parallel()

		// Arrange
		clk := clocktest.New(time.Now())
		resolver := holders.NewResolver(newFakeChain().client(t),
			holders.WithClock(clk),
			holders.WithBatchSize(2),
			holders.WithBatchDelay(time.Second),
		)
		ctx, cancel := context.WithCancel(t.Context())
		dist := []holders.Holder{holder("a1", 5), holder("a2", 4), holder("a3", 3), holder("a4", 2), holder("a5", 1)}

		done := make(chan holders.ResolveStats, 1)
		go func() {
			_, stats := resolver.Resolve(ctx, dist)
			done <- stats
		}()
		require.Eventually(t, func() bool { return clk.Timers() == 1 }, time.Second, time.Millisecond)

		// Act
		cancel()

		// Assert
		stats := receive(t, done)
		assert.Equal(t, 2, stats.Resolved)
		assert.Equal(t, 3, stats.Failed)
	})
}

// assertNoBatchUntilDelayElapsed waits for the inter-batch timer, checks nothing ran yet, then fires it
func assertNoBatchUntilDelayElapsed(t *testing.T, clk *clocktest.Clock, batches <-chan holders.BatchStats) {
	t.Helper()

	require.Eventually(t, func() bool { return clk.Timers() == 1 }, time.Second, time.Millisecond)
	assert.Empty(t, batches, "next batch must wait for the delay")
	clk.Advance(time.Second)
}

func receive[T any](t *testing.T, ch <-chan T) T {
	t.Helper()

	select {
	case v := <-ch:
		return v
	case <-time.After(5 * time.Second):
		require.FailNow(t, "timed out waiting for value")
		var zero T
		return zero
	}
}
