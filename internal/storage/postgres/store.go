package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/hongminglow/fund-ledger/internal/models"
	"github.com/hongminglow/fund-ledger/internal/storage"
)

// Ensure Store satisfies the storage.Store interface at compile time.
var _ storage.Store = (*Store)(nil)

// Store provides Postgres-backed persistence for users, funds and the ledger.
//
// Identifiers are uuid strings kept in TEXT columns. Monetary columns are
// NUMERIC and cross the wire as text so decimal precision is never lost.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Store and runs migrations.
func NewStore(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	s := &Store{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return s, nil
}

// Close releases database resources.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Ping checks that a pooled connection can reach the database.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			email TEXT UNIQUE NOT NULL,
			password_hash TEXT NOT NULL,
			balance NUMERIC(24,2) NOT NULL DEFAULT 0 CHECK (balance >= 0),
			initial_balance NUMERIC(24,2) NOT NULL DEFAULT 0,
			roles TEXT[] NOT NULL DEFAULT '{Customer}',
			notification_channel TEXT NOT NULL DEFAULT 'Email',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`,
		`CREATE TABLE IF NOT EXISTS funds (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			minimum_fee NUMERIC(24,2) NOT NULL CHECK (minimum_fee > 0),
			category TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`,
		`CREATE TABLE IF NOT EXISTS transactions (
			seq BIGSERIAL UNIQUE,
			id TEXT PRIMARY KEY,
			customer_id TEXT NOT NULL REFERENCES users(id),
			fund_id TEXT NOT NULL,
			kind TEXT NOT NULL CHECK (kind IN ('Open', 'Close')),
			amount NUMERIC(24,2) NOT NULL CHECK (amount > 0),
			balance_after NUMERIC(24,2) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`,
		`CREATE INDEX IF NOT EXISTS transactions_customer_seq_idx ON transactions (customer_id, seq);`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
	}
	return nil
}

const userColumns = `id, name, email, password_hash, balance::text, initial_balance::text, roles, notification_channel, created_at`

// CreateUser inserts a new user row.
func (s *Store) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	query := `
		INSERT INTO users (id, name, email, password_hash, balance, initial_balance, roles, notification_channel)
		VALUES ($1, $2, $3, $4, $5::text::numeric, $6::text::numeric, $7, $8)
		RETURNING ` + userColumns
	row := s.pool.QueryRow(ctx, query,
		user.ID, user.Name, strings.ToLower(user.Email), user.PasswordHash,
		user.Balance.String(), user.InitialBalance.String(), user.Roles.Strings(), string(user.NotificationChannel))
	created, err := scanUser(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return models.User{}, storage.ErrAlreadyExists
		}
		return models.User{}, err
	}
	return created, nil
}

// FindUserByID fetches a user by id.
func (s *Store) FindUserByID(ctx context.Context, id string) (models.User, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

// FindUserByEmail fetches a user by email address.
func (s *Store) FindUserByEmail(ctx context.Context, email string) (models.User, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, strings.ToLower(strings.TrimSpace(email)))
	return scanUser(row)
}

// ListUserIDs returns every user id in creation order.
func (s *Store) ListUserIDs(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT id FROM users ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

const fundColumns = `id, name, minimum_fee::text, category, created_at`

// CreateFund inserts a fund row.
func (s *Store) CreateFund(ctx context.Context, fund models.Fund) (models.Fund, error) {
	if fund.ID == "" {
		fund.ID = uuid.NewString()
	}
	row := s.pool.QueryRow(ctx, `
		INSERT INTO funds (id, name, minimum_fee, category)
		VALUES ($1, $2, $3::text::numeric, $4)
		RETURNING `+fundColumns,
		fund.ID, fund.Name, fund.MinimumFee.String(), fund.Category)
	created, err := scanFund(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				return models.Fund{}, storage.ErrAlreadyExists
			case "23514":
				return models.Fund{}, fmt.Errorf("%w: %s", storage.ErrInvalidValue, pgErr.ConstraintName)
			}
		}
		return models.Fund{}, err
	}
	return created, nil
}

// FindFund fetches a fund by id.
func (s *Store) FindFund(ctx context.Context, id string) (models.Fund, error) {
	return scanFund(s.pool.QueryRow(ctx, `SELECT `+fundColumns+` FROM funds WHERE id = $1`, id))
}

// ListFunds returns the catalog in creation order.
func (s *Store) ListFunds(ctx context.Context) ([]models.Fund, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+fundColumns+` FROM funds ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Fund
	for rows.Next() {
		fund, err := scanFund(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, fund)
	}
	return out, rows.Err()
}

// DeleteFund removes a fund row. Transactions keep their fund_id.
func (s *Store) DeleteFund(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM funds WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ApplyEntry runs the balance update and the ledger insert in one database
// transaction. The user row is locked first, then the balance is updated
// only when the result stays non-negative.
func (s *Store) ApplyEntry(ctx context.Context, entry storage.Entry) (models.Transaction, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return models.Transaction{}, mapTxError(err)
	}
	defer tx.Rollback(ctx)

	var locked string
	err = tx.QueryRow(ctx, `SELECT id FROM users WHERE id = $1 FOR UPDATE`, entry.UserID).Scan(&locked)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Transaction{}, storage.ErrNotFound
		}
		return models.Transaction{}, mapTxError(err)
	}

	delta := entry.Kind.Delta(entry.Amount).String()
	var balanceText string
	err = tx.QueryRow(ctx, `
		UPDATE users SET balance = balance + $2::text::numeric
		WHERE id = $1 AND balance + $2::text::numeric >= 0
		RETURNING balance::text`, entry.UserID, delta).Scan(&balanceText)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Transaction{}, storage.ErrInsufficientBalance
		}
		return models.Transaction{}, mapTxError(err)
	}
	balance, err := decimal.NewFromString(balanceText)
	if err != nil {
		return models.Transaction{}, fmt.Errorf("parse balance: %w", err)
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
		BalanceAfter: balance,
		Timestamp:    at,
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO transactions (id, customer_id, fund_id, kind, amount, balance_after, created_at)
		VALUES ($1, $2, $3, $4, $5::text::numeric, $6::text::numeric, $7)`,
		txn.ID, txn.CustomerID, txn.FundID, string(txn.Kind), txn.Amount.String(), txn.BalanceAfter.String(), txn.Timestamp)
	if err != nil {
		return models.Transaction{}, mapTxError(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return models.Transaction{}, mapTxError(err)
	}
	return txn, nil
}

// EachTransactionDetail streams the customer's ledger joined with user and
// fund identity. Records for deleted funds are kept with empty fund fields.
func (s *Store) EachTransactionDetail(ctx context.Context, customerID string, yield func(models.TransactionDetail) bool) error {
	const query = `
	SELECT t.id, t.customer_id, u.name, t.kind, t.amount::text, t.balance_after::text,
		t.fund_id, COALESCE(f.name, ''), COALESCE(f.category, ''), t.created_at
	FROM transactions t
	JOIN users u ON u.id = t.customer_id
	LEFT JOIN funds f ON f.id = t.fund_id
	WHERE t.customer_id = $1
	ORDER BY t.seq;
	`
	rows, err := s.pool.Query(ctx, query, customerID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			d                     models.TransactionDetail
			kind, amount, balance string
		)
		if err := rows.Scan(&d.ID, &d.CustomerID, &d.CustomerName, &kind, &amount, &balance,
			&d.FundID, &d.FundName, &d.FundCategory, &d.Timestamp); err != nil {
			return err
		}
		d.Kind = models.TransactionKind(kind)
		if d.Amount, err = decimal.NewFromString(amount); err != nil {
			return fmt.Errorf("parse amount: %w", err)
		}
		if d.BalanceAfter, err = decimal.NewFromString(balance); err != nil {
			return fmt.Errorf("parse balance_after: %w", err)
		}
		if !yield(d) {
			return nil
		}
	}
	return rows.Err()
}

// mapTxError turns retryable Postgres failures into storage.ErrConflict.
func mapTxError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01", "55P03":
			return fmt.Errorf("%w: %s", storage.ErrConflict, pgErr.Message)
		case "23514":
			return storage.ErrInsufficientBalance
		}
	}
	return err
}

func scanUser(row pgx.Row) (models.User, error) {
	var (
		user             models.User
		balance, initial string
		roles            []string
		channel          string
	)
	if err := row.Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &balance, &initial, &roles, &channel, &user.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, storage.ErrNotFound
		}
		return models.User{}, err
	}
	var err error
	if user.Balance, err = decimal.NewFromString(balance); err != nil {
		return models.User{}, fmt.Errorf("parse balance: %w", err)
	}
	if user.InitialBalance, err = decimal.NewFromString(initial); err != nil {
		return models.User{}, fmt.Errorf("parse initial_balance: %w", err)
	}
	if user.Roles, err = models.ParseRoleSet(roles); err != nil {
		return models.User{}, err
	}
	user.NotificationChannel = models.NotificationChannel(channel)
	return user, nil
}

func scanFund(row pgx.Row) (models.Fund, error) {
	var (
		fund models.Fund
		fee  string
	)
	if err := row.Scan(&fund.ID, &fund.Name, &fee, &fund.Category, &fund.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Fund{}, storage.ErrNotFound
		}
		return models.Fund{}, err
	}
	minimumFee, err := decimal.NewFromString(fee)
	if err != nil {
		return models.Fund{}, fmt.Errorf("parse minimum_fee: %w", err)
	}
	fund.MinimumFee = minimumFee
	return fund, nil
}
