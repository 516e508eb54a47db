package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"tombola/models"
	"tombola/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedCollection(t *testing.T, testDB *testutil.TestDatabase, itemCount int) *models.Collection {
	t.Helper()
	ctx := context.Background()

	collRepo := NewCollectionRepository(testDB.DB)
	itemRepo := NewItemRepository(testDB.DB)

	collection := testutil.CreateTestCollectionWithKind(1, models.CollectionKindRaffle, itemCount)
	require.NoError(t, collRepo.Create(ctx, collection))
	require.NoError(t, itemRepo.CreateBatch(ctx, collection.ID, itemCount))

	return collection
}

func TestItemRepository_CreateBatch(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()

	repo := NewItemRepository(testDB.DB)
	collection := seedCollection(t, testDB, 5)

	items, err := repo.ListByCollection(ctx, collection.ID)
	require.NoError(t, err)
	require.Len(t, items, 5)

	for i, item := range items {
		assert.Equal(t, i+1, item.ItemIndex)
		assert.Equal(t, models.ItemStateAvailable, item.State)
		assert.Nil(t, item.HolderID)
		assert.Nil(t, item.ReservedUntil)
	}
}

func TestItemRepository_Transition_ReserveAndConfirm(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()

	repo := NewItemRepository(testDB.DB)
	collection := seedCollection(t, testDB, 3)

	until := time.Now().Add(5 * time.Minute)

	t.Run("reserve available item", func(t *testing.T) {
		item, err := repo.Transition(ctx, collection.ID, 1, models.ReserveTransition(42, until))
		require.NoError(t, err)
		require.NotNil(t, item)

		assert.Equal(t, models.ItemStateReserved, item.State)
		require.NotNil(t, item.HolderID)
		assert.Equal(t, int64(42), *item.HolderID)
		require.NotNil(t, item.ReservedUntil)
	})

	t.Run("second reserve misses the guard", func(t *testing.T) {
		item, err := repo.Transition(ctx, collection.ID, 1, models.ReserveTransition(99, until))
		require.NoError(t, err)
		assert.Nil(t, item)
	})

	t.Run("confirm by holder", func(t *testing.T) {
		item, err := repo.Transition(ctx, collection.ID, 1, models.ConfirmTransition(42, time.Now(), 100))
		require.NoError(t, err)
		require.NotNil(t, item)

		assert.Equal(t, models.ItemStateSold, item.State)
		require.NotNil(t, item.PaidAmount)
		assert.Equal(t, int64(100), *item.PaidAmount)
		require.NotNil(t, item.SoldAt)
		assert.Nil(t, item.ReservedUntil)
	})

	t.Run("confirm by non-holder misses the guard", func(t *testing.T) {
		_, err := repo.Transition(ctx, collection.ID, 2, models.ReserveTransition(42, until))
		require.NoError(t, err)

		item, err := repo.Transition(ctx, collection.ID, 2, models.ConfirmTransition(99, time.Now(), 100))
		require.NoError(t, err)
		assert.Nil(t, item)
	})

	t.Run("release held by holder", func(t *testing.T) {
		item, err := repo.Transition(ctx, collection.ID, 2, models.ReleaseHeldTransition(42))
		require.NoError(t, err)
		require.NotNil(t, item)

		assert.Equal(t, models.ItemStateAvailable, item.State)
		assert.Nil(t, item.HolderID)
		assert.Nil(t, item.ReservedUntil)
	})
}

func TestItemRepository_Transition_ExpiryGuards(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()

	repo := NewItemRepository(testDB.DB)
	collection := seedCollection(t, testDB, 2)

	// Reserve with a deadline that has already passed
	past := time.Now().Add(-time.Minute)
	item, err := repo.Transition(ctx, collection.ID, 1, models.ReserveTransition(42, past))
	require.NoError(t, err)
	require.NotNil(t, item)

	t.Run("confirm fails on expired reservation", func(t *testing.T) {
		item, err := repo.Transition(ctx, collection.ID, 1, models.ConfirmTransition(42, time.Now(), 100))
		require.NoError(t, err)
		assert.Nil(t, item)
	})

	t.Run("expired reservation is listed", func(t *testing.T) {
		expired, err := repo.ListExpiredReserved(ctx, time.Now(), 10)
		require.NoError(t, err)
		require.Len(t, expired, 1)
		assert.Equal(t, 1, expired[0].ItemIndex)
	})

	t.Run("reclaim releases only expired reservations", func(t *testing.T) {
		// A live reservation is not reclaimable
		future := time.Now().Add(5 * time.Minute)
		_, err := repo.Transition(ctx, collection.ID, 2, models.ReserveTransition(42, future))
		require.NoError(t, err)

		live, err := repo.Transition(ctx, collection.ID, 2, models.ReclaimExpiredTransition())
		require.NoError(t, err)
		assert.Nil(t, live)

		reclaimed, err := repo.Transition(ctx, collection.ID, 1, models.ReclaimExpiredTransition())
		require.NoError(t, err)
		require.NotNil(t, reclaimed)
		assert.Equal(t, models.ItemStateAvailable, reclaimed.State)
	})
}

func TestItemRepository_Transition_ConcurrentReserve(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()

	repo := NewItemRepository(testDB.DB)
	collection := seedCollection(t, testDB, 1)

	const contenders = 20
	until := time.Now().Add(5 * time.Minute)

	var wg sync.WaitGroup
	winners := make(chan int64, contenders)

	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(holderID int64) {
			defer wg.Done()
			item, err := repo.Transition(ctx, collection.ID, 1, models.ReserveTransition(holderID, until))
			assert.NoError(t, err)
			if item != nil {
				winners <- holderID
			}
		}(int64(i + 1))
	}

	wg.Wait()
	close(winners)

	// Exactly one contender may hold the item
	var winnerIDs []int64
	for id := range winners {
		winnerIDs = append(winnerIDs, id)
	}
	require.Len(t, winnerIDs, 1)

	item, err := repo.Get(ctx, collection.ID, 1)
	require.NoError(t, err)
	require.NotNil(t, item.HolderID)
	assert.Equal(t, winnerIDs[0], *item.HolderID)
}

func TestItemRepository_ListHeldByCollection(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()

	repo := NewItemRepository(testDB.DB)
	collection := seedCollection(t, testDB, 4)

	until := time.Now().Add(5 * time.Minute)
	_, err := repo.Transition(ctx, collection.ID, 2, models.ReserveTransition(42, until))
	require.NoError(t, err)
	_, err = repo.Transition(ctx, collection.ID, 3, models.ReserveTransition(43, until))
	require.NoError(t, err)
	_, err = repo.Transition(ctx, collection.ID, 3, models.ConfirmTransition(43, time.Now(), 100))
	require.NoError(t, err)

	held, err := repo.ListHeldByCollection(ctx, collection.ID)
	require.NoError(t, err)
	require.Len(t, held, 2)

	assert.Equal(t, 2, held[0].ItemIndex)
	assert.Equal(t, models.ItemStateReserved, held[0].State)
	assert.Equal(t, 3, held[1].ItemIndex)
	assert.Equal(t, models.ItemStateSold, held[1].State)
}
