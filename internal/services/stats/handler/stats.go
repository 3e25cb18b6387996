package handler

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"garage-system/internal/apperr"
	"garage-system/internal/database/models"
)

// StatsHandler aggregates revenue and quote figures for the manager
// dashboard. Amounts are summed with decimals on the Go side so the
// results are exact regardless of the column affinity of the driver.
type StatsHandler struct {
	db *gorm.DB
}

func NewStatsHandler(db *gorm.DB) *StatsHandler {
	return &StatsHandler{db: db}
}

type RevenueReport struct {
	From         time.Time `json:"from"`
	To           time.Time `json:"to"`
	InvoiceCount int       `json:"invoice_count"`
	TotalHT      string    `json:"total_ht"`
	TotalTVA     string    `json:"total_tva"`
	TotalTTC     string    `json:"total_ttc"`
}

type KindRevenue struct {
	Kind      string `json:"kind"`
	LineCount int    `json:"line_count"`
	AmountTTC string `json:"amount_ttc"`
}

type QuoteReport struct {
	From           time.Time        `json:"from"`
	To             time.Time        `json:"to"`
	Total          int64            `json:"total"`
	ByStatus       map[string]int64 `json:"by_status"`
	AcceptanceRate string           `json:"acceptance_rate"`
}

// periodBounds normalizes a [from, to] day pair into a half-open range.
// The upper bound is inclusive of the whole "to" day.
func periodBounds(from, to time.Time) (time.Time, time.Time, error) {
	if to.Before(from) {
		return time.Time{}, time.Time{}, apperr.New(apperr.KindValidation, "period end %s precedes start %s", to.Format("2006-01-02"), from.Format("2006-01-02"))
	}
	start := from.Truncate(24 * time.Hour)
	end := to.Truncate(24 * time.Hour).AddDate(0, 0, 1)
	return start, end, nil
}

// Revenue sums all non-cancelled invoices whose issue date falls in the
// period. Draft invoices count: the figure tracks invoiced work, not
// collected cash.
func (h *StatsHandler) Revenue(ctx context.Context, from, to time.Time) (*RevenueReport, error) {
	start, end, err := periodBounds(from, to)
	if err != nil {
		return nil, err
	}

	var invoices []models.Invoice
	if err := h.db.WithContext(ctx).
		Where("status <> ?", models.InvoiceStatusCancelled).
		Where("issue_date >= ? AND issue_date < ?", start, end).
		Find(&invoices).Error; err != nil {
		return nil, err
	}

	ht, tva, ttc := decimal.Zero, decimal.Zero, decimal.Zero
	for _, inv := range invoices {
		ht = ht.Add(parseAmount(inv.TotalHT))
		tva = tva.Add(parseAmount(inv.TotalTVA))
		ttc = ttc.Add(parseAmount(inv.TotalTTC))
	}

	return &RevenueReport{
		From:         start,
		To:           to.Truncate(24 * time.Hour),
		InvoiceCount: len(invoices),
		TotalHT:      ht.StringFixed(2),
		TotalTVA:     tva.StringFixed(2),
		TotalTTC:     ttc.StringFixed(2),
	}, nil
}

// RevenueByKind breaks the period's invoiced revenue down by line kind
// (service, pack), highest revenue first.
func (h *StatsHandler) RevenueByKind(ctx context.Context, from, to time.Time) ([]KindRevenue, error) {
	start, end, err := periodBounds(from, to)
	if err != nil {
		return nil, err
	}

	var invoices []models.Invoice
	if err := h.db.WithContext(ctx).
		Preload("Lines").
		Where("status <> ?", models.InvoiceStatusCancelled).
		Where("issue_date >= ? AND issue_date < ?", start, end).
		Find(&invoices).Error; err != nil {
		return nil, err
	}

	totals := make(map[string]decimal.Decimal)
	counts := make(map[string]int)
	for _, inv := range invoices {
		for _, line := range inv.Lines {
			totals[line.Kind] = totals[line.Kind].Add(parseAmount(line.AmountTTC))
			counts[line.Kind]++
		}
	}

	out := make([]KindRevenue, 0, len(totals))
	for kind, amount := range totals {
		out = append(out, KindRevenue{Kind: kind, LineCount: counts[kind], AmountTTC: amount.StringFixed(2)})
	}
	sort.Slice(out, func(i, j int) bool {
		a := parseAmount(out[i].AmountTTC)
		b := parseAmount(out[j].AmountTTC)
		if !a.Equal(b) {
			return a.GreaterThan(b)
		}
		return out[i].Kind < out[j].Kind
	})
	return out, nil
}

// QuoteActivity counts the period's quotes by status and derives the
// acceptance rate over everything created in the period, as a percentage
// with one decimal.
func (h *StatsHandler) QuoteActivity(ctx context.Context, from, to time.Time) (*QuoteReport, error) {
	start, end, err := periodBounds(from, to)
	if err != nil {
		return nil, err
	}

	var quotes []models.Quote
	if err := h.db.WithContext(ctx).
		Select("id", "status").
		Where("created_at >= ? AND created_at < ?", start, end).
		Find(&quotes).Error; err != nil {
		return nil, err
	}

	byStatus := map[string]int64{
		models.QuoteStatusPending:   0,
		models.QuoteStatusFinalized: 0,
		models.QuoteStatusAccepted:  0,
		models.QuoteStatusRefused:   0,
	}
	for _, q := range quotes {
		byStatus[q.Status]++
	}

	total := int64(len(quotes))
	rate := decimal.Zero
	if total > 0 {
		rate = decimal.NewFromInt(byStatus[models.QuoteStatusAccepted]).
			Mul(decimal.NewFromInt(100)).
			Div(decimal.NewFromInt(total))
	}

	return &QuoteReport{
		From:           start,
		To:             to.Truncate(24 * time.Hour),
		Total:          total,
		ByStatus:       byStatus,
		AcceptanceRate: rate.StringFixed(1),
	}, nil
}

// parseAmount reads a stored decimal string, treating blanks and
// unparseable values as zero so one bad row cannot sink a report.
func parseAmount(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
