// Package memory is an in-process implementation of the storage interfaces,
// used for local development and tests.
package memory

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hongminglow/fund-ledger/internal/models"
	"github.com/hongminglow/fund-ledger/internal/storage"
)

// Ensure Store satisfies the storage.Store interface at compile time.
var _ storage.Store = (*Store)(nil)

// ApplyHook runs inside ApplyEntry before any mutation. A non-nil error aborts
// the entry with no side effects.
type ApplyHook func(entry storage.Entry) error

// Store keeps users, funds and transactions in maps guarded by a RWMutex.
// Ledger transitions additionally serialize on a per-user mutex.
type Store struct {
	mu sync.RWMutex

	users        map[string]models.User
	userIDsByKey map[string]string
	userOrder    []string
	funds        map[string]models.Fund
	fundOrder    []string
	transactions []models.Transaction

	lockMu    sync.Mutex
	userLocks map[string]*sync.Mutex

	hook ApplyHook
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		users:        make(map[string]models.User),
		userIDsByKey: make(map[string]string),
		funds:        make(map[string]models.Fund),
		userLocks:    make(map[string]*sync.Mutex),
	}
}

// SetApplyHook installs a hook run by every ApplyEntry call. Pass nil to clear it.
func (s *Store) SetApplyHook(hook ApplyHook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hook = hook
}

// Close is a no-op.
func (s *Store) Close() {}

// Ping always succeeds unless ctx is done.
func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

// CreateUser inserts a new user, rejecting duplicate emails.
func (s *Store) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	if err := ctx.Err(); err != nil {
		return models.User{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	key := emailKey(user.Email)
	if _, exists := s.userIDsByKey[key]; exists {
		return models.User{}, storage.ErrAlreadyExists
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	user.Roles = slices.Clone(user.Roles)
	s.users[user.ID] = user
	s.userIDsByKey[key] = user.ID
	s.userOrder = append(s.userOrder, user.ID)
	return user, nil
}

// FindUserByID fetches a user by id.
func (s *Store) FindUserByID(ctx context.Context, id string) (models.User, error) {
	if err := ctx.Err(); err != nil {
		return models.User{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[id]
	if !ok {
		return models.User{}, storage.ErrNotFound
	}
	return user, nil
}

// FindUserByEmail fetches a user by email address, ignoring case.
func (s *Store) FindUserByEmail(ctx context.Context, email string) (models.User, error) {
	if err := ctx.Err(); err != nil {
		return models.User{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.userIDsByKey[emailKey(email)]
	if !ok {
		return models.User{}, storage.ErrNotFound
	}
	return s.users[id], nil
}

// ListUserIDs returns every user id in creation order.
func (s *Store) ListUserIDs(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.userOrder), nil
}

// CreateFund inserts a fund. Fees must be positive and fit the money scale,
// matching the Postgres column constraints.
func (s *Store) CreateFund(ctx context.Context, fund models.Fund) (models.Fund, error) {
	if err := ctx.Err(); err != nil {
		return models.Fund{}, err
	}
	if !fund.MinimumFee.IsPositive() || !models.FitsMoneyScale(fund.MinimumFee) {
		return models.Fund{}, storage.ErrInvalidValue
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if fund.ID == "" {
		fund.ID = uuid.NewString()
	}
	if _, exists := s.funds[fund.ID]; exists {
		return models.Fund{}, storage.ErrAlreadyExists
	}
	if fund.CreatedAt.IsZero() {
		fund.CreatedAt = time.Now().UTC()
	}
	s.funds[fund.ID] = fund
	s.fundOrder = append(s.fundOrder, fund.ID)
	return fund, nil
}

// FindFund fetches a fund by id.
func (s *Store) FindFund(ctx context.Context, id string) (models.Fund, error) {
	if err := ctx.Err(); err != nil {
		return models.Fund{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	fund, ok := s.funds[id]
	if !ok {
		return models.Fund{}, storage.ErrNotFound
	}
	return fund, nil
}

// ListFunds returns the catalog in creation order.
func (s *Store) ListFunds(ctx context.Context) ([]models.Fund, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Fund, 0, len(s.fundOrder))
	for _, id := range s.fundOrder {
		out = append(out, s.funds[id])
	}
	return out, nil
}

// DeleteFund removes a fund. Ledger records that reference it are kept.
func (s *Store) DeleteFund(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.funds[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.funds, id)
	s.fundOrder = slices.DeleteFunc(s.fundOrder, func(v string) bool { return v == id })
	return nil
}

// ApplyEntry serializes on the user's mutex, checks the balance predicate and
// writes the balance and the transaction record under one write lock so
// readers never observe one without the other.
func (s *Store) ApplyEntry(ctx context.Context, entry storage.Entry) (models.Transaction, error) {
	unlock := s.lockUser(entry.UserID)
	defer unlock()

	if err := ctx.Err(); err != nil {
		return models.Transaction{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.hook != nil {
		if err := s.hook(entry); err != nil {
			return models.Transaction{}, err
		}
	}

	user, ok := s.users[entry.UserID]
	if !ok {
		return models.Transaction{}, storage.ErrNotFound
	}
	next := user.Balance.Add(entry.Kind.Delta(entry.Amount))
	if next.IsNegative() {
		return models.Transaction{}, storage.ErrInsufficientBalance
	}

	at := entry.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	txn := models.Transaction{
		ID:           uuid.NewString(),
		CustomerID:   entry.UserID,
		FundID:       entry.FundID,
		Kind:         entry.Kind,
		Amount:       entry.Amount,
		BalanceAfter: next,
		Timestamp:    at,
	}
	user.Balance = next
	s.users[user.ID] = user
	s.transactions = append(s.transactions, txn)
	return txn, nil
}

// EachTransactionDetail snapshots the customer's records under the read lock
// and yields them after releasing it.
func (s *Store) EachTransactionDetail(ctx context.Context, customerID string, yield func(models.TransactionDetail) bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	customer, ok := s.users[customerID]
	var details []models.TransactionDetail
	if ok {
		for _, txn := range s.transactions {
			if txn.CustomerID != customerID {
				continue
			}
			fund := s.funds[txn.FundID]
			details = append(details, models.TransactionDetail{
				ID:           txn.ID,
				CustomerID:   txn.CustomerID,
				CustomerName: customer.Name,
				Kind:         txn.Kind,
				Amount:       txn.Amount,
				BalanceAfter: txn.BalanceAfter,
				FundID:       txn.FundID,
				FundName:     fund.Name,
				FundCategory: fund.Category,
				Timestamp:    txn.Timestamp,
			})
		}
	}
	s.mu.RUnlock()

	for _, d := range details {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !yield(d) {
			return nil
		}
	}
	return nil
}

func (s *Store) lockUser(id string) func() {
	s.lockMu.Lock()
	m, ok := s.userLocks[id]
	if !ok {
		m = &sync.Mutex{}
		s.userLocks[id] = m
	}
	s.lockMu.Unlock()
	m.Lock()
	return m.Unlock
}

func emailKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
