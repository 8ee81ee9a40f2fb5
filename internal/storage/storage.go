package storage

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hongminglow/fund-ledger/internal/models"
)

// ErrNotFound indicates a record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrAlreadyExists indicates a uniqueness conflict.
var ErrAlreadyExists = errors.New("record already exists")

// ErrConflict indicates a transient write conflict; the operation may be retried.
var ErrConflict = errors.New("write conflict")

// ErrInvalidValue indicates a value was rejected by a storage constraint.
var ErrInvalidValue = errors.New("value violates a storage constraint")

// ErrInsufficientBalance indicates a conditional balance update was rejected
// because the result would be negative.
var ErrInsufficientBalance = errors.New("insufficient balance")

// UserStore captures persistence operations for user records.
type UserStore interface {
	CreateUser(ctx context.Context, user models.User) (models.User, error)
	FindUserByID(ctx context.Context, id string) (models.User, error)
	FindUserByEmail(ctx context.Context, email string) (models.User, error)
	ListUserIDs(ctx context.Context) ([]string, error)
}

// FundStore captures persistence operations for the fund catalog.
type FundStore interface {
	CreateFund(ctx context.Context, fund models.Fund) (models.Fund, error)
	FindFund(ctx context.Context, id string) (models.Fund, error)
	ListFunds(ctx context.Context) ([]models.Fund, error)
	DeleteFund(ctx context.Context, id string) error
}

// Entry is a ledger transition to apply to one user.
type Entry struct {
	UserID string
	FundID string
	Kind   models.TransactionKind
	Amount decimal.Decimal
	At     time.Time
}

// LedgerStore applies ledger transitions.
//
// ApplyEntry adds Kind.Delta(Amount) to the user's balance only if the result
// is not negative, and appends the matching transaction record. Both writes
// happen in one failure unit: on any error neither is visible. It returns
// ErrInsufficientBalance when the predicate fails, ErrConflict on a transient
// conflict and ErrNotFound when the user does not exist.
type LedgerStore interface {
	ApplyEntry(ctx context.Context, entry Entry) (models.Transaction, error)
}

// TransactionStore streams enriched transaction records for a customer in
// insertion order. yield returning false stops the scan early.
type TransactionStore interface {
	EachTransactionDetail(ctx context.Context, customerID string, yield func(models.TransactionDetail) bool) error
}

// Store is the full persistence surface used by the server.
type Store interface {
	UserStore
	FundStore
	LedgerStore
	TransactionStore
	Ping(ctx context.Context) error
	Close()
}
