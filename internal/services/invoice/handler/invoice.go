package handler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"garage-system/internal/apperr"
	"garage-system/internal/database/models"
	"garage-system/internal/services/access"
	"garage-system/internal/services/notification"
)

const (
	invoiceSequenceName = "invoice"
	defaultTVARate      = "20.00"
	defaultPaymentTerms = 30

	// Payments within one cent of the TTC total count as full payment.
	paymentToleranceStr = "0.01"
)

type InvoiceHandler struct {
	db       *gorm.DB
	redis    *redis.Client
	seq      Sequence
	notifier *notification.Dispatcher
}

func NewInvoiceHandler(db *gorm.DB, redisClient *redis.Client, seq Sequence, notifier *notification.Dispatcher) *InvoiceHandler {
	return &InvoiceHandler{
		db:       db,
		redis:    redisClient,
		seq:      seq,
		notifier: notifier,
	}
}

type PaymentInput struct {
	Amount    string `json:"amount" binding:"required"`
	Method    string `json:"method" binding:"required"`
	Reference string `json:"reference"`
}

func parseAmount(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func (h *InvoiceHandler) preload(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Client").
		Preload("Vehicle").
		Preload("Lines").
		Preload("Transactions")
}

func (h *InvoiceHandler) load(ctx context.Context, id int64) (*models.Invoice, error) {
	var inv models.Invoice
	if err := h.preload(h.db.WithContext(ctx)).First(&inv, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.KindNotFound, "invoice %d not found", id)
		}
		return nil, err
	}
	return &inv, nil
}

// CreateFromRepair derives the one invoice a completed repair order can
// ever have: every snapshot service and pack line becomes an immutable
// invoice line with computed HT/TVA/TTC amounts, the invoice number comes
// from the atomic sequence, and the repair flips to invoiced.
func (h *InvoiceHandler) CreateFromRepair(ctx context.Context, repairID, actorID int64) (*models.Invoice, error) {
	var actor models.User
	if err := h.db.WithContext(ctx).First(&actor, actorID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.KindNotFound, "user %d not found", actorID)
		}
		return nil, err
	}
	if !access.Allowed(actor, access.ActionCreateInvoice, access.Resource{}) {
		return nil, apperr.New(apperr.KindForbidden, "only a manager can create invoices")
	}

	var repair models.RepairOrder
	err := h.db.WithContext(ctx).
		Preload("Services.Service").
		Preload("Packs.Pack").
		First(&repair, repairID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.KindNotFound, "repair %d not found", repairID)
		}
		return nil, err
	}

	// The duplicate check runs before the status guard: the first invoice
	// flips the repair to invoiced, and a second attempt must still read
	// as Conflict, not InvalidState.
	var existing models.Invoice
	if err := h.db.WithContext(ctx).Where("repair_id = ?", repairID).First(&existing).Error; err == nil {
		return nil, apperr.New(apperr.KindConflict, "repair %d already has invoice %s", repairID, existing.Number)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if repair.Status != models.RepairStatusCompleted {
		return nil, apperr.New(apperr.KindInvalidState, "repair %d is %s, only completed repairs can be invoiced", repairID, repair.Status)
	}

	lines := buildLines(&repair)
	if len(lines) == 0 {
		return nil, apperr.New(apperr.KindValidation, "repair %d has no billable lines", repairID)
	}

	totalHT, totalTVA := decimal.Zero, decimal.Zero
	for _, l := range lines {
		totalHT = totalHT.Add(parseAmount(l.AmountHT))
		totalTVA = totalTVA.Add(parseAmount(l.AmountTVA))
	}
	totalTTC := totalHT.Add(totalTVA)

	seq, err := h.seq.Next(ctx, invoiceSequenceName)
	if err != nil {
		return nil, fmt.Errorf("allocate invoice number: %w", err)
	}

	issue := time.Now()
	inv := models.Invoice{
		Number:       fmt.Sprintf("FACT-%04d", seq),
		RepairID:     repairID,
		QuoteID:      repair.QuoteID,
		ClientID:     repair.ClientID,
		VehicleID:    repair.VehicleID,
		IssueDate:    issue,
		DueDate:      issue.AddDate(0, 0, defaultPaymentTerms),
		PaymentTerms: defaultPaymentTerms,
		Lines:        lines,
		TotalHT:      totalHT.StringFixed(2),
		TotalTVA:     totalTVA.StringFixed(2),
		TotalTTC:     totalTTC.StringFixed(2),
		Discount:     "0.00",
		Status:       models.InvoiceStatusDraft,
		CreatedByID:  actorID,
	}

	tx := h.db.WithContext(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	if err := tx.Create(&inv).Error; err != nil {
		tx.Rollback()
		// Concurrent create on the repair_id unique index.
		var winner models.Invoice
		if ferr := h.db.WithContext(ctx).Where("repair_id = ?", repairID).First(&winner).Error; ferr == nil {
			return nil, apperr.New(apperr.KindConflict, "repair %d already has invoice %s", repairID, winner.Number)
		}
		return nil, err
	}

	if err := tx.Model(&models.RepairOrder{}).
		Where("id = ?", repairID).
		Update("status", models.RepairStatusInvoiced).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	if h.notifier != nil {
		h.notifier.NotifyUser(ctx, repair.ClientID, notification.TypeInvoiceCreated,
			fmt.Sprintf("Invoice %s has been prepared for repair #%d", inv.Number, repairID),
			fmt.Sprintf("/invoices/%d", inv.ID))
	}
	logrus.WithFields(logrus.Fields{"invoice": inv.Number, "repair_id": repairID}).Info("invoice created")

	return h.load(ctx, inv.ID)
}

func buildLines(repair *models.RepairOrder) []models.InvoiceLine {
	lines := make([]models.InvoiceLine, 0, len(repair.Services)+len(repair.Packs))

	for _, item := range repair.Services {
		designation := fmt.Sprintf("Service #%d", item.ServiceID)
		if item.Service != nil {
			designation = item.Service.Name
		}
		lines = append(lines, computeLine(designation, 1, item.Price, defaultTVARate, "service", fmt.Sprintf("SRV-%d", item.ServiceID)))
	}
	for _, item := range repair.Packs {
		designation := fmt.Sprintf("Pack #%d", item.PackID)
		if item.Pack != nil {
			designation = "Pack: " + item.Pack.Name
		}
		lines = append(lines, computeLine(designation, 1, item.Price, defaultTVARate, "pack", fmt.Sprintf("PCK-%d", item.PackID)))
	}
	return lines
}

func computeLine(designation string, qty int32, unitPriceHT, tvaRate, kind, reference string) models.InvoiceLine {
	ht := parseAmount(unitPriceHT).Mul(decimal.NewFromInt32(qty))
	tva := ht.Mul(parseAmount(tvaRate)).Div(decimal.NewFromInt(100))
	return models.InvoiceLine{
		Designation: designation,
		Quantity:    qty,
		UnitPriceHT: parseAmount(unitPriceHT).StringFixed(2),
		TVARate:     tvaRate,
		AmountHT:    ht.StringFixed(2),
		AmountTVA:   tva.StringFixed(2),
		AmountTTC:   ht.Add(tva).StringFixed(2),
		Kind:        kind,
		Reference:   reference,
	}
}

// Issue moves a draft invoice to issued.
func (h *InvoiceHandler) Issue(ctx context.Context, invoiceID int64) (*models.Invoice, error) {
	inv, err := h.load(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if inv.Status != models.InvoiceStatusDraft {
		return nil, apperr.New(apperr.KindInvalidState, "invoice %s is %s, only drafts can be issued", inv.Number, inv.Status)
	}
	if err := h.db.WithContext(ctx).Model(inv).Update("status", models.InvoiceStatusIssued).Error; err != nil {
		return nil, err
	}
	return h.load(ctx, invoiceID)
}

// Cancel voids an invoice that has no validated payments.
func (h *InvoiceHandler) Cancel(ctx context.Context, invoiceID int64) (*models.Invoice, error) {
	inv, err := h.load(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	switch inv.Status {
	case models.InvoiceStatusPaid, models.InvoiceStatusPartiallyPaid:
		return nil, apperr.New(apperr.KindInvalidState, "invoice %s has payments and cannot be cancelled", inv.Number)
	case models.InvoiceStatusCancelled:
		return nil, apperr.New(apperr.KindInvalidState, "invoice %s is already cancelled", inv.Number)
	}
	if err := h.db.WithContext(ctx).Model(inv).Update("status", models.InvoiceStatusCancelled).Error; err != nil {
		return nil, err
	}
	return h.load(ctx, invoiceID)
}

// AddPayment appends a validated transaction to the ledger and rederives
// the payment status from the validated sum.
func (h *InvoiceHandler) AddPayment(ctx context.Context, invoiceID int64, in PaymentInput) (*models.Invoice, error) {
	amt, err := decimal.NewFromString(in.Amount)
	if err != nil || amt.LessThanOrEqual(decimal.Zero) {
		return nil, apperr.New(apperr.KindValidation, "payment amount must be a positive number")
	}

	inv, err := h.load(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	switch inv.Status {
	case models.InvoiceStatusDraft:
		return nil, apperr.New(apperr.KindInvalidState, "invoice %s must be issued before payments are recorded", inv.Number)
	case models.InvoiceStatusCancelled:
		return nil, apperr.New(apperr.KindInvalidState, "invoice %s is cancelled", inv.Number)
	case models.InvoiceStatusPaid:
		return nil, apperr.New(apperr.KindConflict, "invoice %s is already fully paid", inv.Number)
	}

	txn := models.PaymentTransaction{
		InvoiceID: invoiceID,
		Amount:    amt.StringFixed(2),
		Method:    in.Method,
		Reference: in.Reference,
		Status:    models.TransactionStatusValidated,
	}
	if err := h.db.WithContext(ctx).Create(&txn).Error; err != nil {
		return nil, err
	}

	if err := h.refreshPaymentStatus(ctx, invoiceID); err != nil {
		return nil, err
	}

	if h.notifier != nil {
		h.notifier.NotifyRole(ctx, models.RoleManager, notification.TypePaymentAdded,
			fmt.Sprintf("Payment of %s recorded on invoice %s", txn.Amount, inv.Number),
			fmt.Sprintf("/invoices/%d", invoiceID))
	}

	return h.load(ctx, invoiceID)
}

// refreshPaymentStatus rederives issued/partially_paid/paid/overdue from
// the validated transaction sum and the due date.
func (h *InvoiceHandler) refreshPaymentStatus(ctx context.Context, invoiceID int64) error {
	inv, err := h.load(ctx, invoiceID)
	if err != nil {
		return err
	}
	if inv.Status == models.InvoiceStatusDraft || inv.Status == models.InvoiceStatusCancelled {
		return nil
	}

	paid := decimal.Zero
	for _, t := range inv.Transactions {
		if t.Status == models.TransactionStatusValidated {
			paid = paid.Add(parseAmount(t.Amount))
		}
	}

	ttc := parseAmount(inv.TotalTTC)
	tolerance := parseAmount(paymentToleranceStr)

	status := models.InvoiceStatusIssued
	switch {
	case paid.GreaterThanOrEqual(ttc.Sub(tolerance)):
		status = models.InvoiceStatusPaid
	case paid.GreaterThan(decimal.Zero):
		status = models.InvoiceStatusPartiallyPaid
	case time.Now().After(inv.DueDate):
		status = models.InvoiceStatusOverdue
	}

	if status == inv.Status {
		return nil
	}
	return h.db.WithContext(ctx).Model(&models.Invoice{}).
		Where("id = ?", invoiceID).
		Update("status", status).Error
}

func (h *InvoiceHandler) Get(ctx context.Context, id int64) (*models.Invoice, error) {
	if err := h.refreshPaymentStatus(ctx, id); err != nil && !apperr.Is(err, apperr.KindNotFound) {
		return nil, err
	}
	return h.load(ctx, id)
}

func (h *InvoiceHandler) List(ctx context.Context, status string, clientID int64) ([]models.Invoice, error) {
	query := h.db.WithContext(ctx).Model(&models.Invoice{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if clientID != 0 {
		query = query.Where("client_id = ?", clientID)
	}
	var invoices []models.Invoice
	err := h.preload(query).Order("issue_date desc").Find(&invoices).Error
	return invoices, err
}
