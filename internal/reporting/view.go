// Package reporting projects the ledger into human readable transaction
// summaries. It only reads.
package reporting

import (
	"context"
	"errors"
	"iter"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"

	"github.com/hongminglow/fund-ledger/internal/apperr"
	"github.com/hongminglow/fund-ledger/internal/logging"
	"github.com/hongminglow/fund-ledger/internal/models"
	"github.com/hongminglow/fund-ledger/internal/storage"
)

// Source is what the view reads from.
type Source interface {
	storage.TransactionStore
	FindUserByID(ctx context.Context, id string) (models.User, error)
}

// View renders a customer's transaction history.
type View struct {
	source   Source
	currency string
	log      *logging.Logger
}

// NewView returns a View formatting amounts in currency (an ISO 4217 code).
func NewView(source Source, currency string, log *logging.Logger) *View {
	return &View{source: source, currency: currency, log: log.Component("reporting")}
}

// ListTransactions returns the user's ledger records enriched with customer
// and fund identity, in insertion order. The sequence is lazy: each range
// over it queries the store again. A store failure is yielded once as an
// InternalQuery error and ends the sequence.
func (v *View) ListTransactions(ctx context.Context, userID string) iter.Seq2[models.TransactionDetail, error] {
	return func(yield func(models.TransactionDetail, error) bool) {
		stopped := false
		err := v.source.EachTransactionDetail(ctx, userID, func(d models.TransactionDetail) bool {
			d.DisplayAmount = v.Format(d.Amount)
			if !yield(d, nil) {
				stopped = true
				return false
			}
			return true
		})
		if err != nil && !stopped {
			v.log.Error().Err(err).Str("user_id", userID).Msg("transaction query failed")
			yield(models.TransactionDetail{}, apperr.Wrap(apperr.CodeInternalQuery, apperr.ErrInternalQuery.Message, err))
		}
	}
}

// Collect drains seq into a slice, stopping at the first error.
func Collect(seq iter.Seq2[models.TransactionDetail, error]) ([]models.TransactionDetail, error) {
	out := []models.TransactionDetail{}
	for d, err := range seq {
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// Format renders amount in the view's currency, falling back to two decimals
// for codes go-money does not know.
func (v *View) Format(amount decimal.Decimal) string {
	cur := money.GetCurrency(v.currency)
	if cur == nil {
		return amount.StringFixed(2)
	}
	minor := amount.Shift(int32(cur.Fraction)).Round(0).IntPart()
	return money.New(minor, cur.Code).Display()
}

// Reconciliation compares a user's balance with what the ledger implies.
type Reconciliation struct {
	UserID   string          `json:"user_id"`
	Initial  decimal.Decimal `json:"initial_balance"`
	Opened   decimal.Decimal `json:"opened"`
	Closed   decimal.Decimal `json:"closed"`
	Expected decimal.Decimal `json:"expected_balance"`
	Actual   decimal.Decimal `json:"actual_balance"`
	Entries  int             `json:"entries"`
}

// Balanced reports whether initial - opened + closed equals the balance.
func (r Reconciliation) Balanced() bool {
	return r.Expected.Equal(r.Actual)
}

// Reconcile replays the user's ledger against their initial balance.
func (v *View) Reconcile(ctx context.Context, userID string) (Reconciliation, error) {
	user, err := v.source.FindUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			v.log.Warn().Str("user_id", userID).Msg("reconcile requested for unknown user")
			return Reconciliation{}, apperr.New(apperr.CodeValidation, "unknown user")
		}
		return Reconciliation{}, apperr.Wrap(apperr.CodeInternalQuery, apperr.ErrInternalQuery.Message, err)
	}
	r := Reconciliation{
		UserID:  userID,
		Initial: user.InitialBalance,
		Opened:  decimal.Zero,
		Closed:  decimal.Zero,
		Actual:  user.Balance,
	}
	for d, err := range v.ListTransactions(ctx, userID) {
		if err != nil {
			return Reconciliation{}, err
		}
		switch d.Kind {
		case models.KindOpen:
			r.Opened = r.Opened.Add(d.Amount)
		case models.KindClose:
			r.Closed = r.Closed.Add(d.Amount)
		}
		r.Entries++
	}
	r.Expected = r.Initial.Sub(r.Opened).Add(r.Closed)
	return r, nil
}
