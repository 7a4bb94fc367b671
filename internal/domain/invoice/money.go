package invoice

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/okian/invoy/internal/domain/model"
)

var currencySymbols = map[string]string{
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
}

// CurrencySymbol returns the display symbol for an ISO currency code, or
// an empty string when unknown.
func CurrencySymbol(code string) string {
	return currencySymbols[code]
}

// clampHours maps negative and non-finite values to zero.
func clampHours(h float64) float64 {
	if math.IsNaN(h) || math.IsInf(h, 0) || h < 0 {
		return 0
	}
	return h
}

// amount is round(hours × rate, 2).
func amount(hours float64, rate decimal.Decimal) decimal.Decimal {
	return decimal.NewFromFloat(hours).Mul(rate).Round(2)
}

// computeTotals derives subtotal, tax and total due from the items.
func computeTotals(items []model.LineItem, taxRate decimal.Decimal) model.Totals {
	subtotal := decimal.Zero
	for _, it := range items {
		subtotal = subtotal.Add(it.Amount)
	}
	subtotal = subtotal.Round(2)
	tax := subtotal.Mul(taxRate).Round(2)
	return model.Totals{
		Subtotal:  subtotal,
		TaxAmount: tax,
		TotalDue:  subtotal.Add(tax).Round(2),
	}
}
