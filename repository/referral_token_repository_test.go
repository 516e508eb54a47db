package repository

import (
	"context"
	"testing"
	"time"

	"tombola/models"
	"tombola/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReferralTokenRepository(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()

	repo := NewReferralTokenRepository(testDB.DB)

	t.Run("missing token is nil", func(t *testing.T) {
		row, err := repo.Get(ctx, "nope")
		require.NoError(t, err)
		assert.Nil(t, row)
	})

	t.Run("create and get", func(t *testing.T) {
		row := testutil.CreateTestReferralToken("tok-1", 42)
		require.NoError(t, repo.Create(ctx, row))
		assert.False(t, row.CreatedAt.IsZero())

		got, err := repo.Get(ctx, "tok-1")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, int64(42), got.OwnerAccountID)
		assert.Equal(t, models.ReferralTokenStatusActive, got.Status)
		assert.Nil(t, got.ExpiresAt)
	})

	t.Run("expiry round trips", func(t *testing.T) {
		expiresAt := time.Now().Add(time.Hour).UTC().Truncate(time.Millisecond)
		row := testutil.CreateTestReferralTokenExpiring("tok-2", 42, expiresAt)
		require.NoError(t, repo.Create(ctx, row))

		got, err := repo.Get(ctx, "tok-2")
		require.NoError(t, err)
		require.NotNil(t, got.ExpiresAt)
		assert.WithinDuration(t, expiresAt, *got.ExpiresAt, time.Second)
	})

	t.Run("duplicate token fails", func(t *testing.T) {
		row := testutil.CreateTestReferralToken("tok-1", 99)
		err := repo.Create(ctx, row)
		assert.Error(t, err)
	})
}
