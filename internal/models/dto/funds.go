package dto

import "github.com/shopspring/decimal"

type CreateFundRequest struct {
	Name       string          `json:"name"`
	MinimumFee decimal.Decimal `json:"minimumFee"`
	Category   string          `json:"category"`
}

type CreateFundResponse struct {
	ID string `json:"id"`
}

// FundResponse confirms a subscribe or cancel and reports the resulting balance.
type FundResponse struct {
	FundID         string          `json:"fund_id"`
	TransactionID  string          `json:"transaction_id"`
	CurrentBalance decimal.Decimal `json:"current_balance"`
}
