package handler

import (
	"github.com/shopspring/decimal"

	"garage-system/internal/database/models"
)

// amount parses a stored decimal column. Absent or malformed values count
// as zero so a partially filled quote never breaks total recomputation.
func amount(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// ComputeTotal derives a quote's total from its line collections and
// mechanic assignments:
//
//	Σ service price + Σ pack price + Σ adhoc price×qty + Σ hours×rate
//
// The result is the only legitimate value of Quote.Total; callers persist
// it after every mutation instead of trusting client-supplied totals.
func ComputeTotal(q *models.Quote) decimal.Decimal {
	total := decimal.Zero

	for _, l := range q.ServiceLines {
		total = total.Add(amount(l.Price))
	}
	for _, l := range q.PackLines {
		total = total.Add(amount(l.Price))
	}
	for _, l := range q.AdhocLines {
		total = total.Add(amount(l.Price).Mul(decimal.NewFromInt32(l.Quantity)))
	}
	for _, m := range q.Mechanics {
		total = total.Add(amount(m.HourlyRate).Mul(decimal.NewFromFloat(m.HoursAllocated)))
	}

	return total
}

// itemCount is the finalize guard input: services + packs + adhoc lines.
func itemCount(q *models.Quote) int {
	return len(q.ServiceLines) + len(q.PackLines) + len(q.AdhocLines)
}
