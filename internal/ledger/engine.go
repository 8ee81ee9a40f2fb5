// Package ledger implements the subscribe and cancel transitions: each one
// validates eligibility, moves the fund's minimum fee in or out of the user's
// balance and appends a transaction record, as one indivisible unit.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hongminglow/fund-ledger/internal/apperr"
	"github.com/hongminglow/fund-ledger/internal/logging"
	"github.com/hongminglow/fund-ledger/internal/models"
	"github.com/hongminglow/fund-ledger/internal/notify"
	"github.com/hongminglow/fund-ledger/internal/storage"
)

const (
	DefaultMaxAttempts = 3
	DefaultBackoff     = 10 * time.Millisecond
)

// Store is the persistence the engine needs.
type Store interface {
	storage.UserStore
	storage.FundStore
	storage.LedgerStore
}

// Options tunes an Engine. Zero values pick the defaults.
type Options struct {
	// MaxAttempts bounds how many times a conflicting balance update is tried.
	MaxAttempts int
	Backoff     time.Duration
	Notifier    notify.Notifier
	Clock       func() time.Time
	Logger      *logging.Logger
}

// Engine executes ledger transitions.
type Engine struct {
	store       Store
	notifier    notify.Notifier
	maxAttempts int
	backoff     time.Duration
	now         func() time.Time
	log         *logging.Logger
}

// Receipt is the outcome of a committed transition.
type Receipt struct {
	Transaction models.Transaction
	Fund        models.Fund
	Balance     decimal.Decimal
}

// NewEngine constructs an Engine over store.
func NewEngine(store Store, opts Options) *Engine {
	e := &Engine{
		store:       store,
		notifier:    opts.Notifier,
		maxAttempts: opts.MaxAttempts,
		backoff:     opts.Backoff,
		now:         opts.Clock,
		log:         opts.Logger,
	}
	if e.maxAttempts <= 0 {
		e.maxAttempts = DefaultMaxAttempts
	}
	if e.backoff <= 0 {
		e.backoff = DefaultBackoff
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.notifier == nil {
		e.notifier = notify.Discard{}
	}
	if e.log == nil {
		e.log = logging.NewSilent()
	}
	e.log = e.log.Component("ledger")
	return e
}

// Subscribe debits the fund's minimum fee from the user and records an Open
// transaction. It fails with FundNotFound or InsufficientFunds without side
// effects.
func (e *Engine) Subscribe(ctx context.Context, userID, fundID string) (Receipt, error) {
	fund, err := e.fund(ctx, fundID)
	if err != nil {
		return Receipt{}, err
	}
	user, err := e.store.FindUserByID(ctx, userID)
	if err != nil {
		return Receipt{}, e.userError(err)
	}
	if user.Balance.LessThan(fund.MinimumFee) {
		e.log.Warn().Str("user_id", userID).Str("fund_id", fundID).
			Str("balance", user.Balance.String()).Str("fee", fund.MinimumFee.String()).
			Msg("insufficient balance to subscribe")
		return Receipt{}, insufficient(fund)
	}
	return e.commit(ctx, user, fund, models.KindOpen)
}

// Cancel credits the fund's minimum fee back to the user and records a Close
// transaction. There is no sufficiency check and no check that the user
// holds a subscription to the fund.
func (e *Engine) Cancel(ctx context.Context, userID, fundID string) (Receipt, error) {
	fund, err := e.fund(ctx, fundID)
	if err != nil {
		return Receipt{}, err
	}
	user, err := e.store.FindUserByID(ctx, userID)
	if err != nil {
		return Receipt{}, e.userError(err)
	}
	return e.commit(ctx, user, fund, models.KindClose)
}

func (e *Engine) commit(ctx context.Context, user models.User, fund models.Fund, kind models.TransactionKind) (Receipt, error) {
	entry := storage.Entry{
		UserID: user.ID,
		FundID: fund.ID,
		Kind:   kind,
		Amount: fund.MinimumFee,
		At:     e.now().UTC(),
	}
	txn, err := e.apply(ctx, entry)
	if err != nil {
		if errors.Is(err, storage.ErrInsufficientBalance) {
			return Receipt{}, insufficient(fund)
		}
		return Receipt{}, err
	}

	e.log.Info().Str("user_id", user.ID).Str("fund_id", fund.ID).Str("kind", string(kind)).
		Str("amount", txn.Amount.String()).Str("balance", txn.BalanceAfter.String()).
		Msg("ledger entry committed")

	notice := notify.Notice{
		UserID:   user.ID,
		Name:     user.Name,
		Email:    user.Email,
		Channel:  user.NotificationChannel,
		Kind:     kind,
		FundID:   fund.ID,
		FundName: fund.Name,
		Amount:   txn.Amount,
		Balance:  txn.BalanceAfter,
	}
	if err := e.notifier.Notify(ctx, notice); err != nil {
		e.log.Error().Err(err).Str("user_id", user.ID).Msg("notification failed")
	}

	return Receipt{Transaction: txn, Fund: fund, Balance: txn.BalanceAfter}, nil
}

// apply retries transient conflicts with a linear backoff.
func (e *Engine) apply(ctx context.Context, entry storage.Entry) (models.Transaction, error) {
	for attempt := 1; ; attempt++ {
		txn, err := e.store.ApplyEntry(ctx, entry)
		switch {
		case err == nil:
			return txn, nil
		case errors.Is(err, storage.ErrInsufficientBalance):
			return models.Transaction{}, err
		case errors.Is(err, storage.ErrNotFound):
			return models.Transaction{}, apperr.Wrap(apperr.CodeInternal, "user disappeared during ledger update", err)
		case errors.Is(err, storage.ErrConflict):
			if attempt >= e.maxAttempts {
				e.log.Error().Err(err).Str("user_id", entry.UserID).Int("attempts", attempt).Msg("ledger retry budget exhausted")
				return models.Transaction{}, apperr.Wrap(apperr.CodeConcurrencyConflict, apperr.ErrConcurrencyConflict.Message, err)
			}
			e.log.Debug().Err(err).Str("user_id", entry.UserID).Int("attempt", attempt).Msg("ledger conflict, retrying")
			if err := sleep(ctx, time.Duration(attempt)*e.backoff); err != nil {
				return models.Transaction{}, apperr.Wrap(apperr.CodeInternal, "ledger update cancelled", err)
			}
		default:
			return models.Transaction{}, apperr.Wrap(apperr.CodeInternal, "ledger update failed", err)
		}
	}
}

func (e *Engine) fund(ctx context.Context, fundID string) (models.Fund, error) {
	fund, err := e.store.FindFund(ctx, fundID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			e.log.Warn().Str("fund_id", fundID).Msg("fund not found")
			return models.Fund{}, apperr.ErrFundNotFound
		}
		return models.Fund{}, apperr.Wrap(apperr.CodeInternal, "failed to load fund", err)
	}
	return fund, nil
}

func (e *Engine) userError(err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return apperr.ErrInvalidToken
	}
	return apperr.Wrap(apperr.CodeInternal, "failed to load user", err)
}

func insufficient(fund models.Fund) error {
	return apperr.New(apperr.CodeInsufficientFunds,
		fmt.Sprintf("Not enough money to subscribe to the investment fund %s", fund.Name))
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
