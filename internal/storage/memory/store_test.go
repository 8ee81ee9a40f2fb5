package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hongminglow/fund-ledger/internal/models"
	"github.com/hongminglow/fund-ledger/internal/storage"
)

func seedUser(t *testing.T, s *Store, email string, balance int64) models.User {
	t.Helper()
	user, err := s.CreateUser(context.Background(), models.User{
		Name:    "Ana",
		Email:   email,
		Balance: decimal.NewFromInt(balance),
	})
	require.NoError(t, err)
	return user
}

func TestUsers(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	user := seedUser(t, s, "Ana@Example.com", 500)
	assert.NotEmpty(t, user.ID)
	assert.False(t, user.CreatedAt.IsZero())

	_, err := s.CreateUser(ctx, models.User{Email: "ana@example.com"})
	assert.ErrorIs(t, err, storage.ErrAlreadyExists)

	byEmail, err := s.FindUserByEmail(ctx, "ANA@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)

	_, err = s.FindUserByID(ctx, "nope")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	seedUser(t, s, "luis@example.com", 0)
	ids, err := s.ListUserIDs(ctx)
	require.NoError(t, err)
	require.Len(t, ids, 2)
	assert.Equal(t, user.ID, ids[0])
}

func TestFunds(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	a, err := s.CreateFund(ctx, models.Fund{Name: "A", MinimumFee: decimal.NewFromInt(1)})
	require.NoError(t, err)
	b, err := s.CreateFund(ctx, models.Fund{Name: "B", MinimumFee: decimal.NewFromInt(2)})
	require.NoError(t, err)

	list, err := s.ListFunds(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{a.ID, b.ID}, []string{list[0].ID, list[1].ID})

	require.NoError(t, s.DeleteFund(ctx, a.ID))
	assert.ErrorIs(t, s.DeleteFund(ctx, a.ID), storage.ErrNotFound)
	_, err = s.FindFund(ctx, a.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	list, err = s.ListFunds(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, b.ID, list[0].ID)
}

func TestCreateFund_RejectsValuesPostgresWouldRound(t *testing.T) {
	s := NewStore()
	for _, fee := range []string{"0.004", "10.005", "0", "-1"} {
		_, err := s.CreateFund(context.Background(), models.Fund{Name: "X", MinimumFee: decimal.RequireFromString(fee)})
		assert.ErrorIs(t, err, storage.ErrInvalidValue, fee)
	}
}

func TestApplyEntry(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	user := seedUser(t, s, "ana@example.com", 100)

	txn, err := s.ApplyEntry(ctx, storage.Entry{UserID: user.ID, FundID: "f1", Kind: models.KindOpen, Amount: decimal.NewFromInt(60)})
	require.NoError(t, err)
	assert.True(t, txn.BalanceAfter.Equal(decimal.NewFromInt(40)))
	assert.False(t, txn.Timestamp.IsZero())

	_, err = s.ApplyEntry(ctx, storage.Entry{UserID: user.ID, FundID: "f1", Kind: models.KindOpen, Amount: decimal.NewFromInt(60)})
	assert.ErrorIs(t, err, storage.ErrInsufficientBalance)

	_, err = s.ApplyEntry(ctx, storage.Entry{UserID: "ghost", FundID: "f1", Kind: models.KindClose, Amount: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, storage.ErrNotFound)

	got, err := s.FindUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(decimal.NewFromInt(40)))
	assert.Len(t, s.transactions, 1)
}

func TestApplyHookAborts(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	user := seedUser(t, s, "ana@example.com", 100)

	boom := errors.New("boom")
	s.SetApplyHook(func(storage.Entry) error { return boom })
	_, err := s.ApplyEntry(ctx, storage.Entry{UserID: user.ID, Kind: models.KindClose, Amount: decimal.NewFromInt(5)})
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, s.transactions)

	s.SetApplyHook(nil)
	_, err = s.ApplyEntry(ctx, storage.Entry{UserID: user.ID, Kind: models.KindClose, Amount: decimal.NewFromInt(5)})
	require.NoError(t, err)
}

func TestEachTransactionDetail_StopsEarly(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	user := seedUser(t, s, "ana@example.com", 100)
	for range 3 {
		_, err := s.ApplyEntry(ctx, storage.Entry{UserID: user.ID, Kind: models.KindClose, Amount: decimal.NewFromInt(1)})
		require.NoError(t, err)
	}

	calls := 0
	err := s.EachTransactionDetail(ctx, user.ID, func(models.TransactionDetail) bool {
		calls++
		return calls < 2
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestCancelledContext(t *testing.T) {
	s := NewStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.CreateUser(ctx, models.User{Email: "a@example.com"})
	assert.ErrorIs(t, err, context.Canceled)
}
