package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Fund is an entry of the investment fund catalog.
type Fund struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	MinimumFee decimal.Decimal `json:"minimumFee"`
	Category   string          `json:"category"`
	CreatedAt  time.Time       `json:"created_at"`
}
