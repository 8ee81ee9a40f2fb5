package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionKind is the direction of a ledger entry.
type TransactionKind string

const (
	// KindOpen debits the fund's minimum fee from the balance.
	KindOpen TransactionKind = "Open"
	// KindClose credits the fund's minimum fee back to the balance.
	KindClose TransactionKind = "Close"
)

// Transaction is an append-only ledger record. Amount is always positive;
// Kind carries the direction.
type Transaction struct {
	ID           string          `json:"id"`
	CustomerID   string          `json:"customer_id"`
	FundID       string          `json:"fund_id"`
	Kind         TransactionKind `json:"type"`
	Amount       decimal.Decimal `json:"amount"`
	BalanceAfter decimal.Decimal `json:"balance_after"`
	Timestamp    time.Time       `json:"timestamp"`
}

// Delta returns the signed change this kind applies to a balance.
func (k TransactionKind) Delta(amount decimal.Decimal) decimal.Decimal {
	if k == KindOpen {
		return amount.Neg()
	}
	return amount
}

// Valid reports whether k is a known kind.
func (k TransactionKind) Valid() bool {
	return k == KindOpen || k == KindClose
}

// TransactionDetail is a ledger record joined with customer and fund identity.
type TransactionDetail struct {
	ID            string          `json:"id"`
	CustomerID    string          `json:"customerId"`
	CustomerName  string          `json:"customerName"`
	Kind          TransactionKind `json:"type"`
	Amount        decimal.Decimal `json:"amount"`
	DisplayAmount string          `json:"displayAmount"`
	BalanceAfter  decimal.Decimal `json:"balanceAfter"`
	FundID        string          `json:"fundId"`
	FundName      string          `json:"fundName"`
	FundCategory  string          `json:"fundCategory"`
	Timestamp     time.Time       `json:"timestamp"`
}
