package snapshot

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lazyrecipes/internal/shoppinglist"
)

func sampleResult() shoppinglist.Result {
	return shoppinglist.Result{
		ShoppingList: []shoppinglist.Item{
			{ID: "item-1-eggs", Item: "Eggs", Amount: "2 large", Price: 5.98},
		},
		TotalCost: 5.98,
		CreatedAt: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestKeeperRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	keeper := NewKeeper(store, 10*time.Minute, "v2")

	// First open establishes the timestamp and returns the empty default.
	res := keeper.Open(ctx, "sess")
	assert.Empty(t, res.ShoppingList)

	require.NoError(t, keeper.Save(ctx, "sess", sampleResult()))

	res = keeper.Open(ctx, "sess")
	require.Len(t, res.ShoppingList, 1)
	assert.Equal(t, "item-1-eggs", res.ShoppingList[0].ID)
	assert.Equal(t, 5.98, res.TotalCost)
}

func TestKeeperSaveEstablishesTimestamp(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	keeper := NewKeeper(store, 10*time.Minute, "v2")

	// Saving into a session that was never opened must still be readable.
	require.NoError(t, keeper.Save(ctx, "sess", sampleResult()))
	res := keeper.Open(ctx, "sess")
	assert.Len(t, res.ShoppingList, 1)
}

func TestKeeperSaveDoesNotSlideExpiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	keeper := NewKeeper(store, 10*time.Minute, "v2")

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	keeper.now = func() time.Time { return base }
	keeper.Open(ctx, "sess")

	// A save near the end of the window keeps the original clock.
	keeper.now = func() time.Time { return base.Add(9 * time.Minute) }
	require.NoError(t, keeper.Save(ctx, "sess", sampleResult()))

	keeper.now = func() time.Time { return base.Add(11 * time.Minute) }
	res := keeper.Open(ctx, "sess")
	assert.Empty(t, res.ShoppingList)
}

func TestKeeperExpiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	keeper := NewKeeper(store, 10*time.Minute, "v2")

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	keeper.now = func() time.Time { return base }

	keeper.Open(ctx, "sess")
	require.NoError(t, keeper.Save(ctx, "sess", sampleResult()))

	t.Run("FreshWithinMaxAge", func(t *testing.T) {
		keeper.now = func() time.Time { return base.Add(9 * time.Minute) }
		res := keeper.Open(ctx, "sess")
		assert.Len(t, res.ShoppingList, 1)
	})

	t.Run("ExpiredAfterMaxAge", func(t *testing.T) {
		keeper.now = func() time.Time { return base.Add(11 * time.Minute) }
		res := keeper.Open(ctx, "sess")
		assert.Empty(t, res.ShoppingList)

		// The purge is durable: even a fresh read now misses.
		_, err := store.Load(ctx, keeper.listKey("sess"))
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("ExpiryRecordsFreshTimestamp", func(t *testing.T) {
		stamp, err := store.Load(ctx, keeper.stampKey("sess"))
		require.NoError(t, err)
		established, err := time.Parse(time.RFC3339, string(stamp))
		require.NoError(t, err)
		assert.Equal(t, base.Add(11*time.Minute), established.UTC())
	})
}

func TestKeeperBuster(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	v2 := NewKeeper(store, 10*time.Minute, "v2")
	v2.Open(ctx, "sess")
	require.NoError(t, v2.Save(ctx, "sess", sampleResult()))

	// A different buster version never sees prior snapshots, expired or not.
	v3 := NewKeeper(store, 10*time.Minute, "v3")
	res := v3.Open(ctx, "sess")
	assert.Empty(t, res.ShoppingList)

	// The old version's record is untouched.
	res = v2.Open(ctx, "sess")
	assert.Len(t, res.ShoppingList, 1)
}

func TestKeeperCorruptSnapshot(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	keeper := NewKeeper(store, 10*time.Minute, "v2")

	keeper.Open(ctx, "sess")
	require.NoError(t, store.Save(ctx, keeper.listKey("sess"), []byte("{definitely not json")))

	res := keeper.Open(ctx, "sess")
	assert.Empty(t, res.ShoppingList)
	assert.Equal(t, 0.0, res.TotalCost)
}

func TestKeeperCorruptTimestamp(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	keeper := NewKeeper(store, 10*time.Minute, "v2")

	keeper.Open(ctx, "sess")
	require.NoError(t, keeper.Save(ctx, "sess", sampleResult()))
	require.NoError(t, store.Save(ctx, keeper.stampKey("sess"), []byte("three o'clock")))

	// An unreadable timestamp is treated as expired: purge and restart.
	res := keeper.Open(ctx, "sess")
	assert.Empty(t, res.ShoppingList)
}

func TestKeeperPurge(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	keeper := NewKeeper(store, 10*time.Minute, "v2")

	keeper.Open(ctx, "sess")
	require.NoError(t, keeper.Save(ctx, "sess", sampleResult()))
	require.NoError(t, keeper.Purge(ctx, "sess"))

	res := keeper.Open(ctx, "sess")
	assert.Empty(t, res.ShoppingList)
}

func TestKeeperSessionIsolation(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	keeper := NewKeeper(store, 10*time.Minute, "v2")

	keeper.Open(ctx, "alice")
	keeper.Open(ctx, "bob")
	require.NoError(t, keeper.Save(ctx, "alice", sampleResult()))

	assert.Len(t, keeper.Open(ctx, "alice").ShoppingList, 1)
	assert.Empty(t, keeper.Open(ctx, "bob").ShoppingList)
}
