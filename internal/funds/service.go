// Package funds manages the investment fund catalog.
package funds

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/hongminglow/fund-ledger/internal/apperr"
	"github.com/hongminglow/fund-ledger/internal/auth"
	"github.com/hongminglow/fund-ledger/internal/logging"
	"github.com/hongminglow/fund-ledger/internal/models"
	"github.com/hongminglow/fund-ledger/internal/storage"
)

// Service exposes catalog operations. Mutations require the Admin role.
type Service struct {
	store storage.FundStore
	log   *logging.Logger
}

// NewService constructs the catalog service.
func NewService(store storage.FundStore, log *logging.Logger) *Service {
	return &Service{store: store, log: log.Component("funds")}
}

// CreateInput describes a new fund.
type CreateInput struct {
	Name       string
	MinimumFee decimal.Decimal
	Category   string
}

// Create adds a fund to the catalog.
func (s *Service) Create(ctx context.Context, actor models.User, in CreateInput) (models.Fund, error) {
	if err := auth.RequireRole(actor, models.RoleAdmin); err != nil {
		s.log.Warn().Str("user_id", actor.ID).Msg("fund creation denied")
		return models.Fund{}, err
	}
	name := strings.TrimSpace(in.Name)
	category := strings.TrimSpace(in.Category)
	if name == "" || category == "" {
		return models.Fund{}, apperr.Validationf("name and category are required")
	}
	if !in.MinimumFee.IsPositive() {
		return models.Fund{}, apperr.Validationf("minimumFee must be greater than zero")
	}
	if !models.FitsMoneyScale(in.MinimumFee) {
		return models.Fund{}, apperr.Validationf("minimumFee must have at most %d decimal places", models.MoneyScale)
	}
	fund, err := s.store.CreateFund(ctx, models.Fund{Name: name, MinimumFee: in.MinimumFee, Category: category})
	if err != nil {
		if errors.Is(err, storage.ErrInvalidValue) {
			return models.Fund{}, apperr.Validationf("minimumFee is out of range")
		}
		return models.Fund{}, apperr.Wrap(apperr.CodeInternal, "failed to create fund", err)
	}
	s.log.Info().Str("fund_id", fund.ID).Str("name", fund.Name).Str("user_id", actor.ID).Msg("fund created")
	return fund, nil
}

// List returns the whole catalog.
func (s *Service) List(ctx context.Context) ([]models.Fund, error) {
	funds, err := s.store.ListFunds(ctx)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "failed to list funds", err)
	}
	if funds == nil {
		funds = []models.Fund{}
	}
	return funds, nil
}

// Get fetches one fund.
func (s *Service) Get(ctx context.Context, id string) (models.Fund, error) {
	fund, err := s.store.FindFund(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return models.Fund{}, apperr.ErrFundNotFound
		}
		return models.Fund{}, apperr.Wrap(apperr.CodeInternal, "failed to load fund", err)
	}
	return fund, nil
}

// Delete removes a fund. Its ledger history is kept.
func (s *Service) Delete(ctx context.Context, actor models.User, id string) error {
	if err := auth.RequireRole(actor, models.RoleAdmin); err != nil {
		s.log.Warn().Str("user_id", actor.ID).Str("fund_id", id).Msg("fund deletion denied")
		return err
	}
	if err := s.store.DeleteFund(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return apperr.ErrFundNotFound
		}
		return apperr.Wrap(apperr.CodeInternal, "failed to delete fund", err)
	}
	s.log.Info().Str("fund_id", id).Str("user_id", actor.ID).Msg("fund deleted")
	return nil
}
