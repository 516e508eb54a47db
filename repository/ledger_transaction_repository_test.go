package repository

import (
	"context"
	"testing"

	"tombola/models"
	"tombola/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func creditTxn(accountID, amount, balanceBefore int64) *models.LedgerTransaction {
	return &models.LedgerTransaction{
		AccountID:     accountID,
		Currency:      models.CurrencyCoins,
		Kind:          models.TransactionKindCredit,
		Amount:        amount,
		BalanceBefore: balanceBefore,
		BalanceAfter:  balanceBefore + amount,
		Description:   "test credit",
	}
}

func TestLedgerTransactionRepository_Insert(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()

	repo := NewLedgerTransactionRepository(testDB.DB)

	t.Run("successful insert fills id and timestamp", func(t *testing.T) {
		txn := creditTxn(42, 100, 0)
		txn.Metadata = map[string]any{"source": "test"}

		err := repo.Insert(ctx, txn)
		require.NoError(t, err)

		assert.NotZero(t, txn.ID)
		assert.False(t, txn.CreatedAt.IsZero())
	})

	t.Run("arithmetic violation is rejected by the schema", func(t *testing.T) {
		txn := creditTxn(42, 100, 0)
		txn.BalanceAfter = 999

		err := repo.Insert(ctx, txn)
		assert.Error(t, err)
	})

	t.Run("duplicate reference violates the partial unique index", func(t *testing.T) {
		ref := "payment:abc"

		first := creditTxn(43, 100, 0)
		first.Reference = &ref
		require.NoError(t, repo.Insert(ctx, first))

		second := creditTxn(43, 50, 100)
		second.Reference = &ref
		err := repo.Insert(ctx, second)
		assert.Error(t, err)

		// The same reference on another wallet is fine
		third := creditTxn(44, 50, 0)
		third.Reference = &ref
		assert.NoError(t, repo.Insert(ctx, third))
	})
}

func TestLedgerTransactionRepository_GetByReference(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()

	repo := NewLedgerTransactionRepository(testDB.DB)

	ref := "refund:7:3"
	txn := creditTxn(42, 250, 0)
	txn.Reference = &ref
	require.NoError(t, repo.Insert(ctx, txn))

	got, err := repo.GetByReference(ctx, 42, models.CurrencyCoins, ref)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, txn.ID, got.ID)
	assert.Equal(t, int64(250), got.Amount)

	missing, err := repo.GetByReference(ctx, 42, models.CurrencyCoins, "refund:7:4")
	require.NoError(t, err)
	assert.Nil(t, missing)

	otherWallet, err := repo.GetByReference(ctx, 99, models.CurrencyCoins, ref)
	require.NoError(t, err)
	assert.Nil(t, otherWallet)
}

func TestLedgerTransactionRepository_GetByWallet(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()

	repo := NewLedgerTransactionRepository(testDB.DB)

	balance := int64(0)
	for i := 0; i < 5; i++ {
		txn := creditTxn(42, 100, balance)
		require.NoError(t, repo.Insert(ctx, txn))
		balance += 100
	}

	t.Run("newest first with limit", func(t *testing.T) {
		txns, err := repo.GetByWallet(ctx, 42, models.CurrencyCoins, 3)
		require.NoError(t, err)
		require.Len(t, txns, 3)

		// Most recent entry has the highest running balance
		assert.Equal(t, int64(500), txns[0].BalanceAfter)
		assert.Equal(t, int64(300), txns[2].BalanceAfter)
	})

	t.Run("empty wallet", func(t *testing.T) {
		txns, err := repo.GetByWallet(ctx, 99, models.CurrencyCoins, 10)
		require.NoError(t, err)
		assert.Empty(t, txns)
	})
}

func TestLedgerTransactionRepository_SumAmounts(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()

	repo := NewLedgerTransactionRepository(testDB.DB)

	require.NoError(t, repo.Insert(ctx, creditTxn(42, 300, 0)))

	debit := &models.LedgerTransaction{
		AccountID:     42,
		Currency:      models.CurrencyCoins,
		Kind:          models.TransactionKindDebit,
		Amount:        -100,
		BalanceBefore: 300,
		BalanceAfter:  200,
		Description:   "test debit",
	}
	require.NoError(t, repo.Insert(ctx, debit))

	// The signed sum of the log equals the wallet balance
	sum, err := repo.SumAmounts(ctx, 42, models.CurrencyCoins)
	require.NoError(t, err)
	assert.Equal(t, int64(200), sum)

	empty, err := repo.SumAmounts(ctx, 99, models.CurrencyCoins)
	require.NoError(t, err)
	assert.Zero(t, empty)
}
