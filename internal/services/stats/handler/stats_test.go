package handler

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"garage-system/internal/apperr"
	"garage-system/internal/database"
	"garage-system/internal/database/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.ReplaceAll(t.Name(), "/", "_")
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func seedInvoice(t *testing.T, db *gorm.DB, status string, issued time.Time, ht, tva, ttc string, lines ...models.InvoiceLine) models.Invoice {
	t.Helper()
	inv := models.Invoice{
		Number:      fmt.Sprintf("FACT-T%d", time.Now().UnixNano()),
		RepairID:    time.Now().UnixNano(),
		ClientID:    1,
		VehicleID:   1,
		IssueDate:   issued,
		DueDate:     issued.AddDate(0, 0, 30),
		TotalHT:     ht,
		TotalTVA:    tva,
		TotalTTC:    ttc,
		Status:      status,
		Lines:       lines,
		CreatedByID: 1,
	}
	if err := db.Create(&inv).Error; err != nil {
		t.Fatalf("seed invoice: %v", err)
	}
	return inv
}

func seedQuoteAt(t *testing.T, db *gorm.DB, status string, created time.Time) models.Quote {
	t.Helper()
	q := models.Quote{
		ClientID:  1,
		VehicleID: 1,
		Problem:   "x",
		Status:    status,
		Total:     "0.00",
		CreatedAt: &created,
	}
	if err := db.Create(&q).Error; err != nil {
		t.Fatalf("seed quote: %v", err)
	}
	return q
}

func TestRevenueSkipsCancelledAndOutOfPeriod(t *testing.T) {
	db := newTestDB(t)
	h := NewStatsHandler(db)
	ctx := context.Background()

	seedInvoice(t, db, models.InvoiceStatusIssued, day(2024, time.March, 5), "150.00", "30.00", "180.00")
	// Noon on the last day of the period still counts.
	seedInvoice(t, db, models.InvoiceStatusPaid, day(2024, time.March, 31).Add(12*time.Hour), "100.00", "20.00", "120.00")
	seedInvoice(t, db, models.InvoiceStatusCancelled, day(2024, time.March, 10), "500.00", "100.00", "600.00")
	seedInvoice(t, db, models.InvoiceStatusIssued, day(2024, time.April, 2), "75.00", "15.00", "90.00")

	rep, err := h.Revenue(ctx, day(2024, time.March, 1), day(2024, time.March, 31))
	if err != nil {
		t.Fatalf("revenue: %v", err)
	}
	if rep.InvoiceCount != 2 {
		t.Errorf("invoice_count = %d, want 2", rep.InvoiceCount)
	}
	if rep.TotalHT != "250.00" {
		t.Errorf("total_ht = %q, want 250.00", rep.TotalHT)
	}
	if rep.TotalTVA != "50.00" {
		t.Errorf("total_tva = %q, want 50.00", rep.TotalTVA)
	}
	if rep.TotalTTC != "300.00" {
		t.Errorf("total_ttc = %q, want 300.00", rep.TotalTTC)
	}
}

func TestRevenueEmptyPeriodIsZero(t *testing.T) {
	db := newTestDB(t)
	h := NewStatsHandler(db)

	rep, err := h.Revenue(context.Background(), day(2024, time.January, 1), day(2024, time.January, 31))
	if err != nil {
		t.Fatalf("revenue: %v", err)
	}
	if rep.InvoiceCount != 0 || rep.TotalTTC != "0.00" {
		t.Errorf("got count %d total %q, want 0 and 0.00", rep.InvoiceCount, rep.TotalTTC)
	}
}

func TestRevenueRejectsInvertedPeriod(t *testing.T) {
	db := newTestDB(t)
	h := NewStatsHandler(db)

	_, err := h.Revenue(context.Background(), day(2024, time.March, 31), day(2024, time.March, 1))
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("err = %v, want Validation", err)
	}
}

func TestRevenueByKindSortsHighestFirst(t *testing.T) {
	db := newTestDB(t)
	h := NewStatsHandler(db)
	ctx := context.Background()

	seedInvoice(t, db, models.InvoiceStatusIssued, day(2024, time.March, 5), "300.00", "60.00", "360.00",
		models.InvoiceLine{Designation: "Oil change", Quantity: 1, UnitPriceHT: "50.00", TVARate: "20.00", AmountHT: "50.00", AmountTVA: "10.00", AmountTTC: "60.00", Kind: "service"},
		models.InvoiceLine{Designation: "Pack: Winter check", Quantity: 1, UnitPriceHT: "200.00", TVARate: "20.00", AmountHT: "200.00", AmountTVA: "40.00", AmountTTC: "240.00", Kind: "pack"},
	)
	seedInvoice(t, db, models.InvoiceStatusPaid, day(2024, time.March, 12), "100.00", "20.00", "120.00",
		models.InvoiceLine{Designation: "Brake pads", Quantity: 1, UnitPriceHT: "100.00", TVARate: "20.00", AmountHT: "100.00", AmountTVA: "20.00", AmountTTC: "120.00", Kind: "service"},
	)
	// Cancelled invoices contribute nothing, whatever their lines say.
	seedInvoice(t, db, models.InvoiceStatusCancelled, day(2024, time.March, 15), "900.00", "180.00", "1080.00",
		models.InvoiceLine{Designation: "Engine swap", Quantity: 1, UnitPriceHT: "900.00", TVARate: "20.00", AmountHT: "900.00", AmountTVA: "180.00", AmountTTC: "1080.00", Kind: "service"},
	)

	kinds, err := h.RevenueByKind(ctx, day(2024, time.March, 1), day(2024, time.March, 31))
	if err != nil {
		t.Fatalf("revenue by kind: %v", err)
	}
	if len(kinds) != 2 {
		t.Fatalf("kinds = %d, want 2", len(kinds))
	}
	if kinds[0].Kind != "pack" || kinds[0].AmountTTC != "240.00" || kinds[0].LineCount != 1 {
		t.Errorf("kinds[0] = %+v, want pack 240.00 over 1 line", kinds[0])
	}
	if kinds[1].Kind != "service" || kinds[1].AmountTTC != "180.00" || kinds[1].LineCount != 2 {
		t.Errorf("kinds[1] = %+v, want service 180.00 over 2 lines", kinds[1])
	}
}

func TestQuoteActivityCountsAndRate(t *testing.T) {
	db := newTestDB(t)
	h := NewStatsHandler(db)
	ctx := context.Background()

	seedQuoteAt(t, db, models.QuoteStatusAccepted, day(2024, time.March, 3))
	seedQuoteAt(t, db, models.QuoteStatusAccepted, day(2024, time.March, 14))
	seedQuoteAt(t, db, models.QuoteStatusRefused, day(2024, time.March, 20))
	seedQuoteAt(t, db, models.QuoteStatusPending, day(2024, time.February, 10))

	rep, err := h.QuoteActivity(ctx, day(2024, time.March, 1), day(2024, time.March, 31))
	if err != nil {
		t.Fatalf("quote activity: %v", err)
	}
	if rep.Total != 3 {
		t.Errorf("total = %d, want 3", rep.Total)
	}
	if rep.ByStatus[models.QuoteStatusAccepted] != 2 {
		t.Errorf("accepted = %d, want 2", rep.ByStatus[models.QuoteStatusAccepted])
	}
	if rep.ByStatus[models.QuoteStatusRefused] != 1 {
		t.Errorf("refused = %d, want 1", rep.ByStatus[models.QuoteStatusRefused])
	}
	if rep.ByStatus[models.QuoteStatusPending] != 0 {
		t.Errorf("pending = %d, want 0", rep.ByStatus[models.QuoteStatusPending])
	}
	if rep.AcceptanceRate != "66.7" {
		t.Errorf("acceptance_rate = %q, want 66.7", rep.AcceptanceRate)
	}
}

func TestQuoteActivityEmptyPeriod(t *testing.T) {
	db := newTestDB(t)
	h := NewStatsHandler(db)

	rep, err := h.QuoteActivity(context.Background(), day(2024, time.June, 1), day(2024, time.June, 30))
	if err != nil {
		t.Fatalf("quote activity: %v", err)
	}
	if rep.Total != 0 || rep.AcceptanceRate != "0.0" {
		t.Errorf("got total %d rate %q, want 0 and 0.0", rep.Total, rep.AcceptanceRate)
	}
}
