package handler

import (
	"testing"

	"garage-system/internal/database/models"
)

func TestComputeTotal(t *testing.T) {
	q := &models.Quote{
		ServiceLines: []models.QuoteServiceLine{{Price: "100.00"}},
		PackLines:    []models.QuotePackLine{{Price: "50.00"}},
		AdhocLines:   []models.QuoteAdhocLine{{Price: "20.00", Quantity: 2}},
		Mechanics:    []models.QuoteMechanic{{HourlyRate: "30.00", HoursAllocated: 5}},
	}
	if got := ComputeTotal(q).StringFixed(2); got != "340.00" {
		t.Errorf("total = %s, want 340.00", got)
	}
}

func TestComputeTotalEmptyQuote(t *testing.T) {
	if got := ComputeTotal(&models.Quote{}).StringFixed(2); got != "0.00" {
		t.Errorf("total = %s, want 0.00", got)
	}
}

func TestComputeTotalIgnoresMalformedAmounts(t *testing.T) {
	q := &models.Quote{
		ServiceLines: []models.QuoteServiceLine{{Price: "not-a-number"}, {Price: "10.00"}},
		AdhocLines:   []models.QuoteAdhocLine{{Price: "", Quantity: 3}},
	}
	if got := ComputeTotal(q).StringFixed(2); got != "10.00" {
		t.Errorf("total = %s, want 10.00", got)
	}
}
