package models

import "github.com/shopspring/decimal"

// MoneyScale is the number of decimal places stored for balances and fees.
const MoneyScale = 2

// FitsMoneyScale reports whether d can be stored without rounding.
func FitsMoneyScale(d decimal.Decimal) bool {
	return d.Equal(d.Round(MoneyScale))
}
