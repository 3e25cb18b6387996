package models

import "time"

const (
	InvoiceStatusDraft         = "draft"
	InvoiceStatusIssued        = "issued"
	InvoiceStatusPartiallyPaid = "partially_paid"
	InvoiceStatusPaid          = "paid"
	InvoiceStatusOverdue       = "overdue"
	InvoiceStatusCancelled     = "cancelled"
)

const (
	TransactionStatusPending   = "pending"
	TransactionStatusValidated = "validated"
	TransactionStatusRejected  = "rejected"
	TransactionStatusRefunded  = "refunded"
)

// Invoice is derived once from a completed repair order. Lines are
// immutable copies; totals are computed at creation and never re-edited.
type Invoice struct {
	ID           int64                `gorm:"primaryKey;autoIncrement" json:"id"`
	Number       string               `gorm:"uniqueIndex;not null" json:"number"`
	RepairID     int64                `gorm:"not null;uniqueIndex" json:"repair_id"`
	Repair       *RepairOrder         `gorm:"foreignKey:RepairID" json:"repair,omitempty"`
	QuoteID      int64                `gorm:"index" json:"quote_id"`
	ClientID     int64                `gorm:"not null;index" json:"client_id"`
	Client       *User                `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	VehicleID    int64                `gorm:"not null" json:"vehicle_id"`
	Vehicle      *Vehicle             `gorm:"foreignKey:VehicleID" json:"vehicle,omitempty"`
	IssueDate    time.Time            `gorm:"not null" json:"issue_date"`
	DueDate      time.Time            `gorm:"not null" json:"due_date"`
	PaymentTerms int32                `gorm:"default:30" json:"payment_terms"`
	Lines        []InvoiceLine        `gorm:"foreignKey:InvoiceID" json:"lines"`
	TotalHT      string               `gorm:"type:decimal(18,2);not null" json:"total_ht"`
	TotalTVA     string               `gorm:"type:decimal(18,2);not null" json:"total_tva"`
	TotalTTC     string               `gorm:"type:decimal(18,2);not null" json:"total_ttc"`
	Discount     string               `gorm:"type:decimal(18,2);default:'0.00'" json:"discount"`
	Status       string               `gorm:"not null;default:'draft';index" json:"status"`
	Transactions []PaymentTransaction `gorm:"foreignKey:InvoiceID" json:"transactions,omitempty"`
	CreatedByID  int64                `gorm:"not null" json:"created_by_id"`
	CreatedAt    *time.Time           `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    *time.Time           `gorm:"autoUpdateTime" json:"updated_at"`
}

type InvoiceLine struct {
	ID          int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	InvoiceID   int64  `gorm:"not null;index" json:"invoice_id"`
	Designation string `gorm:"not null" json:"designation"`
	Quantity    int32  `gorm:"not null;default:1" json:"quantity"`
	UnitPriceHT string `gorm:"type:decimal(18,2);not null" json:"unit_price_ht"`
	TVARate     string `gorm:"type:decimal(5,2);not null;default:'20.00'" json:"tva_rate"`
	AmountHT    string `gorm:"type:decimal(18,2);not null" json:"amount_ht"`
	AmountTVA   string `gorm:"type:decimal(18,2);not null" json:"amount_tva"`
	AmountTTC   string `gorm:"type:decimal(18,2);not null" json:"amount_ttc"`
	Kind        string `gorm:"not null" json:"kind"` // service or pack
	Reference   string `json:"reference"`
}

type PaymentTransaction struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	InvoiceID int64     `gorm:"not null;index" json:"invoice_id"`
	Amount    string    `gorm:"type:decimal(18,2);not null" json:"amount"`
	Method    string    `gorm:"not null" json:"method"`
	Reference string    `json:"reference"`
	Status    string    `gorm:"not null;default:'validated'" json:"status"`
	PaidAt    time.Time `gorm:"autoCreateTime" json:"paid_at"`
}

// SequenceCounter backs invoice numbering when redis is not available.
// Rows are incremented inside a transaction holding the row lock.
type SequenceCounter struct {
	Name string `gorm:"primaryKey" json:"name"`
	Seq  int64  `gorm:"not null;default:0" json:"seq"`
}
