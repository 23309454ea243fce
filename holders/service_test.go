package holders_test

import (
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bewie03/bubblemap/holders"
	"github.com/bewie03/bubblemap/pkg/blockfrost"
)

// TestServiceLookupBehavior tests the end-to-end lookup flow
func TestServiceLookupBehavior(t *testing.T) {
	t.Parallel()

	t.Run("it ranks the holders of a single asset", func(t *testing.T) {
		t.Parallel()

		// Arrange
		chain := newFakeChain(fakeAsset{name: "HOSKY", holders: balances("addr1a:100", "addr1b:50", "addr1c:25")})
		svc := serviceFor(t, chain)

		// Act
		result, err := svc.Lookup(t.Context(), holders.Request{PolicyID: testPolicyID})

		// Assert
		require.NoError(t, err)
		assert.Equal(t, holders.ModeSingle, result.Mode)
		assert.Equal(t, "175", result.Distribution.TotalSupply)
		assertRanking(t, result.Distribution, "addr1a:100", "addr1b:50", "addr1c:25")
		assert.Empty(t, result.Links)
		assert.False(t, result.RelationsIncomplete)
		assert.NotEmpty(t, result.SessionID)
	})

	t.Run("it aggregates fungible assets sharing a name", func(t *testing.T) {
		t.Parallel()

		// Arrange
		chain := newFakeChain(
			fakeAsset{unit: "TOKEN1", name: "TOKEN", decimals: 1, holders: balances("A:30", "B:20")},
			fakeAsset{unit: "TOKEN2", name: "TOKEN", decimals: 1, holders: balances("A:10", "C:5")},
		)
		svc := serviceFor(t, chain, holders.WithRelations(false))

		// Act
		result, err := svc.Lookup(t.Context(), holders.Request{PolicyID: testPolicyID})

		// Assert
		require.NoError(t, err)
		assert.Equal(t, holders.ModeFungible, result.Mode)
		assert.Nil(t, result.Selected)
		assertRanking(t, result.Distribution, "A:40", "B:20", "C:5")
		assert.Equal(t, "4", result.Distribution.Holders[0].Amount)
		assert.Equal(t, "6.5", result.Distribution.TotalSupply)
	})

	t.Run("it shows the first asset of a collection", func(t *testing.T) {
		t.Parallel()

		// Arrange
		chain := newFakeChain(
			fakeAsset{name: "Jockey1", holders: balances("addr1a:1")},
			fakeAsset{name: "Jockey2", holders: balances("addr1b:1")},
		)
		svc := serviceFor(t, chain, holders.WithRelations(false))

		// Act
		result, err := svc.Lookup(t.Context(), holders.Request{PolicyID: testPolicyID})

		// Assert
		require.NoError(t, err)
		assert.Equal(t, holders.ModeCollection, result.Mode)
		require.NotNil(t, result.Selected)
		assert.Equal(t, assetID("Jockey1"), result.Selected.ID)
		assert.Len(t, result.Assets, 2)
		assertRanking(t, result.Distribution, "addr1a:1")
	})

	t.Run("it shows the selected asset of a collection", func(t *testing.T) {
		t.Parallel()

		// Arrange
		chain := newFakeChain(
			fakeAsset{name: "Jockey1", holders: balances("addr1a:1")},
			fakeAsset{name: "Jockey2", holders: balances("addr1b:1")},
		)
		svc := serviceFor(t, chain, holders.WithRelations(false))

		// Act
		result, err := svc.Lookup(t.Context(), holders.Request{PolicyID: testPolicyID, AssetID: assetID("Jockey2")})

		// Assert
		require.NoError(t, err)
		require.NotNil(t, result.Selected)
		assert.Equal(t, "Jockey2", result.Selected.DisplayName())
		assertRanking(t, result.Distribution, "addr1b:1")
	})

	t.Run("it aggregates every fungible asset beyond the inspected ones", func(t *testing.T) {
		t.Parallel()

		// Arrange
		chain := newFakeChain(
			fakeAsset{unit: "TOKEN1", name: "TOKEN", holders: balances("A:30")},
			fakeAsset{unit: "TOKEN2", name: "TOKEN", holders: balances("B:20")},
			fakeAsset{unit: "TOKEN3", name: "TOKEN", holders: balances("C:10")},
		)
		svc := serviceFor(t, chain, holders.WithMaxAssets(2), holders.WithRelations(false))

		// Act
		result, err := svc.Lookup(t.Context(), holders.Request{PolicyID: testPolicyID})

		// Assert
		require.NoError(t, err)
		assert.Equal(t, holders.ModeFungible, result.Mode)
		assert.Len(t, result.Assets, 3)
		assert.Equal(t, assetID("TOKEN3"), result.Assets[2].ID)
		assertRanking(t, result.Distribution, "A:30", "B:20", "C:10")
		assert.Equal(t, "60", result.Distribution.TotalSupply)
		assert.Zero(t, chain.callsTo("/assets/"+assetID("TOKEN3")), "metadata is only loaded for inspected assets")
	})

	t.Run("it lists every asset of a collection beyond the inspected ones", func(t *testing.T) {
		t.Parallel()

		// Arrange
		chain := newFakeChain(
			fakeAsset{name: "Jockey1", holders: balances("addr1a:1")},
			fakeAsset{name: "Jockey2", holders: balances("addr1b:1")},
			fakeAsset{name: "Jockey3", holders: balances("addr1c:1")},
			fakeAsset{name: "Jockey4", holders: balances("addr1d:1")},
		)
		svc := serviceFor(t, chain, holders.WithMaxAssets(2), holders.WithRelations(false))

		// Act
		result, err := svc.Lookup(t.Context(), holders.Request{PolicyID: testPolicyID})

		// Assert
		require.NoError(t, err)
		assert.Equal(t, holders.ModeCollection, result.Mode)
		require.Len(t, result.Assets, 4)
		assert.Equal(t, "Jockey4", result.Assets[3].DisplayName())
		assert.Empty(t, result.Assets[3].Fingerprint)
		require.NotNil(t, result.Selected)
		assert.Equal(t, assetID("Jockey1"), result.Selected.ID)
		assertRanking(t, result.Distribution, "addr1a:1")
	})

	t.Run("it loads the metadata of a selected asset beyond the inspected ones", func(t *testing.T) {
		t.Parallel()

		// Arrange
		chain := newFakeChain(
			fakeAsset{name: "Jockey1", holders: balances("addr1a:1")},
			fakeAsset{name: "Jockey2", holders: balances("addr1b:1")},
			fakeAsset{name: "Jockey3", holders: balances("addr1c:1")},
		)
		svc := serviceFor(t, chain, holders.WithMaxAssets(1), holders.WithRelations(false))

		// Act
		result, err := svc.Lookup(t.Context(), holders.Request{PolicyID: testPolicyID, AssetID: assetID("Jockey3")})

		// Assert
		require.NoError(t, err)
		assert.Equal(t, holders.ModeCollection, result.Mode)
		require.NotNil(t, result.Selected)
		assert.Equal(t, "asset1Jockey3", result.Selected.Fingerprint)
		assert.Equal(t, "asset1Jockey3", result.Assets[2].Fingerprint)
		assertRanking(t, result.Distribution, "addr1c:1")
	})

	t.Run("it caps the distribution at the maximum holders", func(t *testing.T) {
		t.Parallel()

		// Arrange
		chain := newFakeChain(fakeAsset{name: "HOSKY", holders: balances("a:5", "b:4", "c:3", "d:2", "e:1")})
		svc := serviceFor(t, chain, holders.WithMaxHolders(3), holders.WithPageSize(2), holders.WithRelations(false))

		// Act
		result, err := svc.Lookup(t.Context(), holders.Request{PolicyID: testPolicyID})

		// Assert
		require.NoError(t, err)
		assertRanking(t, result.Distribution, "a:5", "b:4", "c:3")
		assert.Equal(t, "12", result.Distribution.TotalSupply)
	})

	t.Run("it links holders sharing a stake key", func(t *testing.T) {
		t.Parallel()

		// Arrange
		chain := newFakeChain(fakeAsset{name: "HOSKY", holders: balances("addr1a:30", "addr1b:20", "addr1d:10")}).
			withStake("stake1s", "addr1a", "addr1b", "addr1c")
		svc := serviceFor(t, chain)

		// Act
		result, err := svc.Lookup(t.Context(), holders.Request{PolicyID: testPolicyID})

		// Assert
		require.NoError(t, err)
		assert.Equal(t, []holders.Link{{Source: "addr1a", Target: "addr1b"}}, result.Links)
		assert.Equal(t, []string{"addr1b"}, result.Distribution.Holders[0].Related)
		assert.Equal(t, []string{"addr1a"}, result.Distribution.Holders[1].Related)
		assert.Empty(t, result.Distribution.Holders[2].Related)
	})

	t.Run("it flags incomplete relations", func(t *testing.T) {
		t.Parallel()

		// Arrange
		chain := newFakeChain(fakeAsset{name: "HOSKY", holders: balances("addr1a:30", "addr1b:20")}).
			failingWith("/addresses/addr1b", http.StatusInternalServerError)
		svc := serviceFor(t, chain)

		// Act
		result, err := svc.Lookup(t.Context(), holders.Request{PolicyID: testPolicyID})

		// Assert
		require.NoError(t, err)
		assert.True(t, result.RelationsIncomplete)
		assert.Equal(t, 1, result.FailedRelationLookups)
	})
}

// TestServiceLookupFailures tests error classification of failed lookups
func TestServiceLookupFailures(t *testing.T) {
	t.Parallel()

	t.Run("it rejects a malformed policy id without calling the API", func(t *testing.T) {
		t.Parallel()

		// Arrange
		chain := newFakeChain()
		svc := serviceFor(t, chain)

		// Act
		_, err := svc.Lookup(t.Context(), holders.Request{PolicyID: "not-a-policy"})

		// Assert
		require.ErrorIs(t, err, holders.ErrInvalidPolicyID)
		assert.Zero(t, chain.totalCalls())
	})

	t.Run("it reports a policy without assets", func(t *testing.T) {
		t.Parallel()

		// Arrange
		svc := serviceFor(t, newFakeChain())

		// Act
		_, err := svc.Lookup(t.Context(), holders.Request{PolicyID: testPolicyID})

		// Assert
		require.ErrorIs(t, err, holders.ErrNoAssets)
		assert.True(t, holders.IsNotFound(err))
	})

	t.Run("it reports an asset without holders", func(t *testing.T) {
		t.Parallel()

		// Arrange
		svc := serviceFor(t, newFakeChain(fakeAsset{name: "EMPTY"}))

		// Act
		_, err := svc.Lookup(t.Context(), holders.Request{PolicyID: testPolicyID})

		// Assert
		require.ErrorIs(t, err, holders.ErrNoHolders)
	})

	t.Run("it rejects an asset outside the policy", func(t *testing.T) {
		t.Parallel()

		// Arrange
		svc := serviceFor(t, newFakeChain(fakeAsset{name: "HOSKY", holders: balances("a:1")}))

		// Act
		_, err := svc.Lookup(t.Context(), holders.Request{PolicyID: testPolicyID, AssetID: assetID("OTHER")})

		// Assert
		require.ErrorIs(t, err, holders.ErrAssetNotInPolicy)
	})

	t.Run("it keeps the api failure in the error chain", func(t *testing.T) {
		t.Parallel()

		// Arrange
		chain := newFakeChain().failingWith("/assets/policy/"+testPolicyID, http.StatusForbidden)
		svc := serviceFor(t, chain)

		// Act
		_, err := svc.Lookup(t.Context(), holders.Request{PolicyID: testPolicyID})

		// Assert
		require.ErrorIs(t, err, holders.ErrAssetsFetchFailed)
		require.ErrorIs(t, err, blockfrost.ErrAccessDenied)
		assert.Equal(t, "Access to the Blockfrost API was denied. Check the project ID.", holders.UserMessage(err))
	})

	t.Run("it fails on an invalid holder record instead of truncating", func(t *testing.T) {
		t.Parallel()

		// Arrange
		chain := newFakeChain(fakeAsset{name: "HOSKY", holders: balances("addr1a:30", ":20", "addr1c:10")})
		svc := serviceFor(t, chain, holders.WithRelations(false))

		// Act
		result, err := svc.Lookup(t.Context(), holders.Request{PolicyID: testPolicyID})

		// Assert
		require.ErrorIs(t, err, holders.ErrHoldersFetchFailed)
		require.ErrorIs(t, err, blockfrost.ErrInvalidRecord)
		assert.Nil(t, result)
	})

	t.Run("it wraps holder listing failures", func(t *testing.T) {
		t.Parallel()

		// Arrange
		chain := newFakeChain(fakeAsset{name: "HOSKY"}).
			failingWith("/assets/"+assetID("HOSKY")+"/addresses", http.StatusBadGateway)
		svc := serviceFor(t, chain)

		// Act
		_, err := svc.Lookup(t.Context(), holders.Request{PolicyID: testPolicyID})

		// Assert
		require.ErrorIs(t, err, holders.ErrHoldersFetchFailed)
		require.ErrorIs(t, err, blockfrost.ErrRequestFailed)
	})
}

// TestServiceEventEmission tests observability and event emission
func TestServiceEventEmission(t *testing.T) {
	t.Parallel()

	t.Run("it emits lookup lifecycle events", func(t *testing.T) {
		t.Parallel()

		// Arrange
		chain := newFakeChain(fakeAsset{name: "HOSKY", holders: balances("a:3", "b:2", "c:1")})
		events := make(chan holders.Event, 16)
		svc := serviceFor(t, chain, holders.WithEvents(events), holders.WithBatchSize(2))
		recorded := recordEvents(events)

		// Act
		_, err := svc.Lookup(t.Context(), holders.Request{PolicyID: testPolicyID})
		close(events)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, []string{
			"started", "assets:1:single", "aggregated:3:6", "batch:1/2", "batch:2/2", "done:3",
		}, recorded())
	})

	t.Run("it emits a failure event", func(t *testing.T) {
		t.Parallel()

		// Arrange
		events := make(chan holders.Event, 16)
		svc := serviceFor(t, newFakeChain(), holders.WithEvents(events))
		recorded := recordEvents(events)

		// Act
		_, err := svc.Lookup(t.Context(), holders.Request{PolicyID: "bad"})
		close(events)

		// Assert
		require.Error(t, err)
		assert.Equal(t, []string{"failed"}, recorded())
	})
}

// serviceFor builds a service against the fake chain without throttling
func serviceFor(t *testing.T, chain *fakeChain, opts ...holders.Option) *holders.Service {
	t.Helper()

	defaults := []holders.Option{
		holders.WithRateLimit(1000, 1000),
		holders.WithBatchDelay(0),
	}
	return holders.NewService(chain.client(t), append(defaults, opts...)...)
}

// recordEvents subscribes to events and returns a func yielding a summary once the channel is closed
func recordEvents(events <-chan holders.Event) func() []string {
	var (
		mu       sync.Mutex
		recorded []string
	)
	add := func(s string) {
		mu.Lock()
		defer mu.Unlock()
		recorded = append(recorded, s)
	}

	closer := holders.NewSubscriber(events,
		holders.OnLookupStarted(func(holders.LookupStarted) { add("started") }),
		holders.OnAssetsFetched(func(e holders.AssetsFetched) {
			add("assets:" + itoa(e.Count) + ":" + string(e.Mode))
		}),
		holders.OnHoldersAggregated(func(e holders.HoldersAggregated) {
			add("aggregated:" + itoa(e.Holders) + ":" + e.TotalSupply)
		}),
		holders.OnRelationBatchCompleted(func(e holders.RelationBatchCompleted) {
			add("batch:" + itoa(e.Batch) + "/" + itoa(e.Batches))
		}),
		holders.OnLookupDone(func(e holders.LookupDone) { add("done:" + itoa(e.Holders)) }),
		holders.OnLookupFailed(func(holders.LookupFailed) { add("failed") }),
	)

	return func() []string {
		closer()
		mu.Lock()
		defer mu.Unlock()
		return recorded
	}
}

func TestServiceStream(t *testing.T) {
	t.Parallel()

	t.Run("it delivers events of one lookup to its own channel", func(t *testing.T) {
		t.Parallel()

		// Arrange
		configured := make(chan holders.Event, 16)
		chain := newFakeChain(fakeAsset{name: "HOSKY", holders: balances("a:1")})
		svc := serviceFor(t, chain, holders.WithEvents(configured), holders.WithRelations(false))
		streamed := make(chan holders.Event, 16)
		recorded := recordEvents(streamed)

		// Act
		_, err := svc.Stream(t.Context(), holders.Request{PolicyID: testPolicyID}, streamed)
		close(streamed)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, []string{"started", "assets:1:single", "aggregated:1:1", "done:1"}, recorded())
		assert.Empty(t, configured)
	})
}
