package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// fixed2 reformats a stored decimal column to two fractional digits.
// Drivers that give decimal columns numeric affinity (sqlite) strip
// trailing zeros on scan, so "340.00" would otherwise read back as
// "340"; every money-carrying model normalizes on load.
func fixed2(s string) string {
	if s == "" {
		return s
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return s
	}
	return d.StringFixed(2)
}

func (u *User) AfterFind(*gorm.DB) error {
	u.HourlyRate = fixed2(u.HourlyRate)
	return nil
}

func (p *ServicePack) AfterFind(*gorm.DB) error {
	p.Discount = fixed2(p.Discount)
	return nil
}

func (q *Quote) AfterFind(*gorm.DB) error {
	q.Total = fixed2(q.Total)
	return nil
}

func (l *QuoteServiceLine) AfterFind(*gorm.DB) error {
	l.Price = fixed2(l.Price)
	return nil
}

func (l *QuotePackLine) AfterFind(*gorm.DB) error {
	l.Price = fixed2(l.Price)
	return nil
}

func (l *QuoteAdhocLine) AfterFind(*gorm.DB) error {
	l.Price = fixed2(l.Price)
	return nil
}

func (m *QuoteMechanic) AfterFind(*gorm.DB) error {
	m.HourlyRate = fixed2(m.HourlyRate)
	return nil
}

func (r *RepairOrder) AfterFind(*gorm.DB) error {
	r.EstimatedCost = fixed2(r.EstimatedCost)
	r.FinalCost = fixed2(r.FinalCost)
	return nil
}

func (i *RepairServiceItem) AfterFind(*gorm.DB) error {
	i.Price = fixed2(i.Price)
	return nil
}

func (i *RepairPackItem) AfterFind(*gorm.DB) error {
	i.Price = fixed2(i.Price)
	return nil
}

func (i *Invoice) AfterFind(*gorm.DB) error {
	i.TotalHT = fixed2(i.TotalHT)
	i.TotalTVA = fixed2(i.TotalTVA)
	i.TotalTTC = fixed2(i.TotalTTC)
	i.Discount = fixed2(i.Discount)
	return nil
}

func (l *InvoiceLine) AfterFind(*gorm.DB) error {
	l.UnitPriceHT = fixed2(l.UnitPriceHT)
	l.TVARate = fixed2(l.TVARate)
	l.AmountHT = fixed2(l.AmountHT)
	l.AmountTVA = fixed2(l.AmountTVA)
	l.AmountTTC = fixed2(l.AmountTTC)
	return nil
}

func (p *PaymentTransaction) AfterFind(*gorm.DB) error {
	p.Amount = fixed2(p.Amount)
	return nil
}
