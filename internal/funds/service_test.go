package funds

import (
	"context"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hongminglow/fund-ledger/internal/apperr"
	"github.com/hongminglow/fund-ledger/internal/logging"
	"github.com/hongminglow/fund-ledger/internal/models"
	"github.com/hongminglow/fund-ledger/internal/storage"
	"github.com/hongminglow/fund-ledger/internal/storage/memory"
)

var (
	admin    = models.User{ID: "admin-1", Roles: models.NewRoleSet(models.RoleAdmin)}
	customer = models.User{ID: "cust-1", Roles: models.NewRoleSet(models.RoleCustomer)}
)

func newService() *Service {
	return NewService(memory.NewStore(), logging.NewSilent())
}

func TestCreate_RequiresAdmin(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	_, err := svc.Create(ctx, customer, CreateInput{Name: "X", MinimumFee: decimal.NewFromInt(10), Category: "FIC"})
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestCreate_Validation(t *testing.T) {
	svc := newService()
	cases := map[string]CreateInput{
		"no name":      {MinimumFee: decimal.NewFromInt(10), Category: "FIC"},
		"no category":  {Name: "X", MinimumFee: decimal.NewFromInt(10)},
		"zero fee":     {Name: "X", MinimumFee: decimal.Zero, Category: "FIC"},
		"negative fee": {Name: "X", MinimumFee: decimal.NewFromInt(-5), Category: "FIC"},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), admin, in)
			assert.ErrorIs(t, err, apperr.ErrValidation)
		})
	}
}

func TestCreate_RejectsSubCentFees(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	for _, fee := range []string{"0.004", "10.005", "1.0001"} {
		_, err := svc.Create(ctx, admin, CreateInput{Name: "X", MinimumFee: decimal.RequireFromString(fee), Category: "FIC"})
		assert.ErrorIs(t, err, apperr.ErrValidation, fee)
	}

	fund, err := svc.Create(ctx, admin, CreateInput{Name: "X", MinimumFee: decimal.RequireFromString("10.01"), Category: "FIC"})
	require.NoError(t, err)
	assert.True(t, fund.MinimumFee.Equal(decimal.RequireFromString("10.01")))

	list, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

// constraintStore fails every insert the way Postgres reports a CHECK violation.
type constraintStore struct {
	storage.FundStore
}

func (constraintStore) CreateFund(context.Context, models.Fund) (models.Fund, error) {
	return models.Fund{}, fmt.Errorf("%w: funds_minimum_fee_check", storage.ErrInvalidValue)
}

func TestCreate_ConstraintViolationIsValidation(t *testing.T) {
	svc := NewService(constraintStore{}, logging.NewSilent())
	_, err := svc.Create(context.Background(), admin, CreateInput{Name: "X", MinimumFee: decimal.NewFromInt(5), Category: "FIC"})
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Equal(t, 400, apperr.HTTPStatus(err))
}

func TestCatalogLifecycle(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	fund, err := svc.Create(ctx, admin, CreateInput{Name: " FDO-ACCIONES ", MinimumFee: decimal.NewFromInt(250000), Category: "FIC"})
	require.NoError(t, err)
	assert.NotEmpty(t, fund.ID)
	assert.Equal(t, "FDO-ACCIONES", fund.Name)

	got, err := svc.Get(ctx, fund.ID)
	require.NoError(t, err)
	assert.Equal(t, fund.ID, got.ID)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	assert.ErrorIs(t, svc.Delete(ctx, customer, fund.ID), apperr.ErrForbidden)
	require.NoError(t, svc.Delete(ctx, admin, fund.ID))
	assert.ErrorIs(t, svc.Delete(ctx, admin, fund.ID), apperr.ErrFundNotFound)

	_, err = svc.Get(ctx, fund.ID)
	assert.ErrorIs(t, err, apperr.ErrFundNotFound)
}
