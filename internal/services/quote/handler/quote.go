package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"garage-system/internal/apperr"
	"garage-system/internal/database/models"
	"garage-system/internal/services/access"
	"garage-system/internal/services/notification"
)

const (
	QUOTE_CACHE_PREFIX = "quote:"
	CACHE_TTL_SHORT    = 5 * time.Minute

	workdayHours = 8
	dayLayout    = "2006-01-02"
)

type QuoteHandler struct {
	db       *gorm.DB
	redis    *redis.Client
	notifier *notification.Dispatcher
}

func NewQuoteHandler(db *gorm.DB, redisClient *redis.Client, notifier *notification.Dispatcher) *QuoteHandler {
	return &QuoteHandler{
		db:       db,
		redis:    redisClient,
		notifier: notifier,
	}
}

// -- Inputs --

type ServiceLineInput struct {
	ServiceID int64  `json:"service_id" binding:"required"`
	Price     string `json:"price" binding:"required"`
	Note      string `json:"note"`
	Priority  int32  `json:"priority"`
}

type PackLineInput struct {
	PackID   int64  `json:"pack_id" binding:"required"`
	Price    string `json:"price" binding:"required"`
	Note     string `json:"note"`
	Priority int32  `json:"priority"`
}

type AdhocLineInput struct {
	Name     string `json:"name" binding:"required"`
	Price    string `json:"price" binding:"required"`
	Quantity int32  `json:"quantity"`
	Category string `json:"category"`
	Note     string `json:"note"`
	Priority int32  `json:"priority"`
}

type MechanicAssignmentInput struct {
	MechanicID int64   `json:"mechanic_id" binding:"required"`
	Hours      float64 `json:"hours"`
}

type FinalizeInput struct {
	Services         []ServiceLineInput        `json:"services"`
	Packs            []PackLineInput           `json:"packs"`
	AdhocLines       []AdhocLineInput          `json:"adhoc_lines"`
	Mechanics        []MechanicAssignmentInput `json:"mechanics"`
	InterventionDate *time.Time                `json:"intervention_date"`
}

type QuoteFilter struct {
	Status     string
	ClientID   int64
	MechanicID int64
	From       *time.Time
	To         *time.Time
	Search     string
	Page       int
	Limit      int
}

type Pagination struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
	HasPrev    bool  `json:"has_prev"`
}

// -- Cache helpers --

func (h *QuoteHandler) invalidateQuoteCache(ctx context.Context, quoteIDs ...int64) {
	if h.redis == nil {
		return
	}
	for _, id := range quoteIDs {
		cacheKey := fmt.Sprintf("%s%d", QUOTE_CACHE_PREFIX, id)
		_ = h.redis.Del(ctx, cacheKey)
	}
}

func (h *QuoteHandler) cacheQuote(ctx context.Context, q *models.Quote) {
	if h.redis == nil {
		return
	}
	payload, err := json.Marshal(q)
	if err != nil {
		return
	}
	_ = h.redis.Set(ctx, fmt.Sprintf("%s%d", QUOTE_CACHE_PREFIX, q.ID), payload, CACHE_TTL_SHORT)
}

// -- Loading --

func (h *QuoteHandler) preload(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Client").
		Preload("Vehicle").
		Preload("RespondedBy").
		Preload("ServiceLines.Service").
		Preload("PackLines.Pack").
		Preload("AdhocLines").
		Preload("Mechanics.Mechanic").
		Preload("Messages")
}

func (h *QuoteHandler) loadQuote(ctx context.Context, db *gorm.DB, id int64) (*models.Quote, error) {
	var q models.Quote
	if err := h.preload(db.WithContext(ctx)).First(&q, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.KindNotFound, "quote %d not found", id)
		}
		return nil, err
	}
	return &q, nil
}

func (h *QuoteHandler) loadUser(ctx context.Context, id int64, role string) (*models.User, error) {
	var u models.User
	if err := h.db.WithContext(ctx).First(&u, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.KindNotFound, "user %d not found", id)
		}
		return nil, err
	}
	if role != "" && u.Role != role {
		return nil, apperr.New(apperr.KindForbidden, "user %d is not a %s", id, role)
	}
	return &u, nil
}

// recomputeTotal reloads the aggregate inside db and persists the derived
// total. Always called after line or assignment mutations so the stored
// total can never drift from the pricing engine.
func (h *QuoteHandler) recomputeTotal(ctx context.Context, db *gorm.DB, quoteID int64) error {
	q, err := h.loadQuote(ctx, db, quoteID)
	if err != nil {
		return err
	}
	total := ComputeTotal(q)
	return db.WithContext(ctx).
		Model(&models.Quote{}).
		Where("id = ?", quoteID).
		Update("total", total.StringFixed(2)).Error
}

// -- Operations --

// Create opens a quote in pending state. actor is either the owning
// client or a manager opening it on the client's behalf.
func (h *QuoteHandler) Create(ctx context.Context, actorID, clientID, vehicleID int64, problem string) (*models.Quote, error) {
	if problem == "" {
		return nil, apperr.New(apperr.KindValidation, "problem description is required")
	}

	actor, err := h.loadUser(ctx, actorID, "")
	if err != nil {
		return nil, err
	}
	if !access.Allowed(*actor, access.ActionCreateQuote, access.Resource{}) {
		return nil, apperr.New(apperr.KindForbidden, "role %s cannot create quotes", actor.Role)
	}
	if actor.Role == models.RoleClient {
		clientID = actor.ID
	}

	if _, err := h.loadUser(ctx, clientID, models.RoleClient); err != nil {
		return nil, err
	}

	var vehicle models.Vehicle
	if err := h.db.WithContext(ctx).First(&vehicle, vehicleID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.KindNotFound, "vehicle %d not found", vehicleID)
		}
		return nil, err
	}
	if vehicle.ClientID != clientID {
		return nil, apperr.New(apperr.KindValidation, "vehicle %d does not belong to client %d", vehicleID, clientID)
	}

	q := models.Quote{
		ClientID:  clientID,
		VehicleID: vehicleID,
		Problem:   problem,
		Status:    models.QuoteStatusPending,
		Total:     "0.00",
	}
	if err := h.db.WithContext(ctx).Create(&q).Error; err != nil {
		return nil, err
	}
	return h.Get(ctx, q.ID)
}

// Get returns the fully loaded quote, serving from cache when possible.
func (h *QuoteHandler) Get(ctx context.Context, id int64) (*models.Quote, error) {
	if h.redis != nil {
		cached, err := h.redis.Get(ctx, fmt.Sprintf("%s%d", QUOTE_CACHE_PREFIX, id)).Result()
		if err == nil {
			var q models.Quote
			if json.Unmarshal([]byte(cached), &q) == nil {
				return &q, nil
			}
		}
	}

	q, err := h.loadQuote(ctx, h.db, id)
	if err != nil {
		return nil, err
	}
	h.cacheQuote(ctx, q)
	return q, nil
}

// List applies status/client/date/search filters with page pagination.
func (h *QuoteHandler) List(ctx context.Context, filter QuoteFilter) ([]models.Quote, Pagination, error) {
	page := filter.Page
	if page < 1 {
		page = 1
	}
	limit := filter.Limit
	if limit < 1 {
		limit = 10
	}

	query := h.db.WithContext(ctx).Model(&models.Quote{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.ClientID != 0 {
		query = query.Where("client_id = ?", filter.ClientID)
	}
	if filter.MechanicID != 0 {
		query = query.Where(
			"id IN (?)",
			h.db.Model(&models.QuoteMechanic{}).Select("quote_id").Where("mechanic_id = ?", filter.MechanicID),
		)
	}
	if filter.From != nil {
		query = query.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("created_at <= ?", *filter.To)
	}
	if filter.Search != "" {
		query = query.Where("problem LIKE ?", "%"+filter.Search+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, Pagination{}, err
	}

	var quotes []models.Quote
	err := h.preload(query.Session(&gorm.Session{})).
		Order("created_at desc").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&quotes).Error
	if err != nil {
		return nil, Pagination{}, err
	}

	totalPages := int(math.Ceil(float64(total) / float64(limit)))
	return quotes, Pagination{
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
		HasPrev:    page > 1,
	}, nil
}

// AddAdhocLine appends a free-form line to a pending quote.
func (h *QuoteHandler) AddAdhocLine(ctx context.Context, quoteID int64, in AdhocLineInput) (*models.Quote, error) {
	q, err := h.loadQuote(ctx, h.db, quoteID)
	if err != nil {
		return nil, err
	}
	if q.Status != models.QuoteStatusPending {
		return nil, apperr.New(apperr.KindInvalidState, "quote %d is %s, lines can only be added while pending", quoteID, q.Status)
	}

	qty := in.Quantity
	if qty == 0 {
		qty = 1
	}
	line := models.QuoteAdhocLine{
		QuoteID:  quoteID,
		Name:     in.Name,
		Price:    in.Price,
		Quantity: qty,
		Category: in.Category,
		Note:     in.Note,
		Priority: in.Priority,
	}
	if err := h.db.WithContext(ctx).Create(&line).Error; err != nil {
		return nil, err
	}
	if err := h.recomputeTotal(ctx, h.db, quoteID); err != nil {
		return nil, err
	}
	h.invalidateQuoteCache(ctx, quoteID)
	return h.Get(ctx, quoteID)
}

// AddMessage appends to the quote's chat thread with a sender snapshot.
func (h *QuoteHandler) AddMessage(ctx context.Context, quoteID, senderID int64, message string) (*models.QuoteMessage, error) {
	if message == "" {
		return nil, apperr.New(apperr.KindValidation, "message is required")
	}
	if _, err := h.loadQuote(ctx, h.db, quoteID); err != nil {
		return nil, err
	}
	sender, err := h.loadUser(ctx, senderID, "")
	if err != nil {
		return nil, err
	}

	msg := models.QuoteMessage{
		QuoteID:    quoteID,
		SenderID:   senderID,
		SenderName: sender.FirstName + " " + sender.LastName,
		SenderRole: sender.Role,
		Message:    message,
	}
	if err := h.db.WithContext(ctx).Create(&msg).Error; err != nil {
		return nil, err
	}
	h.invalidateQuoteCache(ctx, quoteID)
	return &msg, nil
}

// AssignMechanics books mechanics on a pending quote. Each entry
// snapshots the mechanic's current hourly rate; a mechanic can appear at
// most once per quote.
func (h *QuoteHandler) AssignMechanics(ctx context.Context, quoteID int64, mechanicIDs []int64, hours []float64) (*models.Quote, error) {
	if len(mechanicIDs) == 0 {
		return nil, apperr.New(apperr.KindValidation, "at least one mechanic is required")
	}
	if len(mechanicIDs) != len(hours) {
		return nil, apperr.New(apperr.KindValidation, "mechanic count does not match hours count")
	}

	tx := h.db.WithContext(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	// Assignments are validated against freshly read state inside the
	// transaction so two concurrent calls cannot double-book a mechanic.
	q, err := h.loadQuote(ctx, tx, quoteID)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if q.Status != models.QuoteStatusPending {
		tx.Rollback()
		return nil, apperr.New(apperr.KindInvalidState, "quote %d is %s, mechanics can only be assigned while pending", quoteID, q.Status)
	}

	assigned := make(map[int64]bool, len(q.Mechanics))
	for _, m := range q.Mechanics {
		assigned[m.MechanicID] = true
	}

	for i, mechanicID := range mechanicIDs {
		if assigned[mechanicID] {
			tx.Rollback()
			return nil, apperr.New(apperr.KindConflict, "mechanic %d is already assigned to quote %d", mechanicID, quoteID)
		}
		assigned[mechanicID] = true

		var mech models.User
		if err := tx.First(&mech, mechanicID).Error; err != nil {
			tx.Rollback()
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperr.New(apperr.KindNotFound, "mechanic %d not found", mechanicID)
			}
			return nil, err
		}
		if mech.Role != models.RoleMechanic {
			tx.Rollback()
			return nil, apperr.New(apperr.KindValidation, "user %d is not a mechanic", mechanicID)
		}

		booking := models.QuoteMechanic{
			QuoteID:        quoteID,
			MechanicID:     mechanicID,
			HourlyRate:     mech.HourlyRate,
			HoursAllocated: hours[i],
		}
		if err := tx.Create(&booking).Error; err != nil {
			tx.Rollback()
			return nil, apperr.Wrap(apperr.KindConflict, err, "mechanic assignment rejected")
		}
	}

	if err := h.recomputeTotal(ctx, tx, quoteID); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	h.invalidateQuoteCache(ctx, quoteID)
	return h.Get(ctx, quoteID)
}

// Finalize replaces the quote's collections wholesale with the manager's
// priced version, validates it is serviceable, and moves it to finalized.
func (h *QuoteHandler) Finalize(ctx context.Context, quoteID, managerID int64, in FinalizeInput) (*models.Quote, error) {
	manager, err := h.loadUser(ctx, managerID, "")
	if err != nil {
		return nil, err
	}
	if !access.Allowed(*manager, access.ActionFinalizeQuote, access.Resource{}) {
		return nil, apperr.New(apperr.KindForbidden, "only a manager can finalize a quote")
	}

	// Resolve the quote before validating the payload, so finalizing a
	// nonexistent quote reads as NotFound rather than a payload error.
	var exists models.Quote
	if err := h.db.WithContext(ctx).Select("id").First(&exists, quoteID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.KindNotFound, "quote %d not found", quoteID)
		}
		return nil, err
	}

	if len(in.Services)+len(in.Packs)+len(in.AdhocLines) == 0 {
		return nil, apperr.New(apperr.KindEmptyQuote, "a quote needs at least one priced item to be finalized")
	}
	if len(in.Mechanics) == 0 {
		return nil, apperr.New(apperr.KindNoMechanicAssigned, "a quote needs at least one assigned mechanic to be finalized")
	}

	var startDate *time.Time
	if in.InterventionDate != nil {
		day := in.InterventionDate.Truncate(24 * time.Hour)
		today := time.Now().Truncate(24 * time.Hour)
		if day.Before(today) {
			return nil, apperr.New(apperr.KindPastDate, "intervention date %s is in the past", day.Format(dayLayout))
		}
		startDate = &day

		occupied, err := h.occupancy(ctx, quoteID)
		if err != nil {
			return nil, err
		}
		busy := occupied[day.Format(dayLayout)]
		for _, m := range in.Mechanics {
			if _, taken := busy[m.MechanicID]; taken {
				return nil, apperr.New(apperr.KindMechanicBusy, "mechanic %d is already booked on %s", m.MechanicID, day.Format(dayLayout))
			}
		}
	}

	tx := h.db.WithContext(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	q, err := h.loadQuote(ctx, tx, quoteID)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	switch q.Status {
	case models.QuoteStatusPending:
	case models.QuoteStatusFinalized:
		tx.Rollback()
		return nil, apperr.New(apperr.KindAlreadyFinalized, "quote %d is already finalized", quoteID)
	default:
		tx.Rollback()
		return nil, apperr.New(apperr.KindInvalidState, "quote %d is %s and can no longer be finalized", quoteID, q.Status)
	}

	// Wholesale replacement: the manager's version of each collection is
	// authoritative, previous rows are dropped, not merged.
	for _, model := range []interface{}{
		&models.QuoteServiceLine{}, &models.QuotePackLine{}, &models.QuoteAdhocLine{}, &models.QuoteMechanic{},
	} {
		if err := tx.Where("quote_id = ?", quoteID).Delete(model).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	for _, s := range in.Services {
		line := models.QuoteServiceLine{QuoteID: quoteID, ServiceID: s.ServiceID, Price: s.Price, Note: s.Note, Priority: s.Priority}
		if err := tx.Create(&line).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
	}
	for _, p := range in.Packs {
		line := models.QuotePackLine{QuoteID: quoteID, PackID: p.PackID, Price: p.Price, Note: p.Note, Priority: p.Priority}
		if err := tx.Create(&line).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
	}
	for _, a := range in.AdhocLines {
		qty := a.Quantity
		if qty == 0 {
			qty = 1
		}
		line := models.QuoteAdhocLine{QuoteID: quoteID, Name: a.Name, Price: a.Price, Quantity: qty, Category: a.Category, Note: a.Note, Priority: a.Priority}
		if err := tx.Create(&line).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	seen := make(map[int64]bool, len(in.Mechanics))
	for _, m := range in.Mechanics {
		if seen[m.MechanicID] {
			tx.Rollback()
			return nil, apperr.New(apperr.KindConflict, "mechanic %d listed twice", m.MechanicID)
		}
		seen[m.MechanicID] = true

		var mech models.User
		if err := tx.First(&mech, m.MechanicID).Error; err != nil {
			tx.Rollback()
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperr.New(apperr.KindNotFound, "mechanic %d not found", m.MechanicID)
			}
			return nil, err
		}
		if mech.Role != models.RoleMechanic {
			tx.Rollback()
			return nil, apperr.New(apperr.KindValidation, "user %d is not a mechanic", m.MechanicID)
		}

		booking := models.QuoteMechanic{
			QuoteID:        quoteID,
			MechanicID:     m.MechanicID,
			HourlyRate:     mech.HourlyRate,
			HoursAllocated: m.Hours,
			StartDate:      startDate,
		}
		if err := tx.Create(&booking).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	if err := h.recomputeTotal(ctx, tx, quoteID); err != nil {
		tx.Rollback()
		return nil, err
	}

	now := time.Now()
	updates := map[string]interface{}{
		"status":          models.QuoteStatusFinalized,
		"responded_by_id": managerID,
		"response_date":   now,
	}
	if in.InterventionDate != nil {
		updates["intervention_date"] = *startDate
	}
	if err := tx.Model(&models.Quote{}).Where("id = ?", quoteID).Updates(updates).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	h.invalidateQuoteCache(ctx, quoteID)

	if h.notifier != nil {
		h.notifier.NotifyUser(ctx, q.ClientID, notification.TypeQuoteFinalized,
			fmt.Sprintf("Your quote #%d is ready for review", quoteID),
			fmt.Sprintf("/quotes/%d", quoteID))
	}
	logrus.WithFields(logrus.Fields{"quote_id": quoteID, "manager_id": managerID}).Info("quote finalized")

	return h.Get(ctx, quoteID)
}

// Accept moves a finalized quote to accepted and guarantees exactly one
// repair order exists for it. Re-running accept on an already accepted
// quote returns the existing repair id instead of failing or duplicating.
func (h *QuoteHandler) Accept(ctx context.Context, quoteID, clientID int64) (int64, error) {
	client, err := h.loadUser(ctx, clientID, "")
	if err != nil {
		return 0, err
	}

	q, err := h.loadQuote(ctx, h.db, quoteID)
	if err != nil {
		return 0, err
	}
	if !access.Allowed(*client, access.ActionRespondQuote, access.Resource{OwnerID: q.ClientID}) {
		return 0, apperr.New(apperr.KindForbidden, "only the owning client can accept quote %d", quoteID)
	}

	switch q.Status {
	case models.QuoteStatusAccepted:
		// Idempotent: surface the repair that the first accept created.
		var repair models.RepairOrder
		if err := h.db.WithContext(ctx).Where("quote_id = ?", quoteID).First(&repair).Error; err == nil {
			return repair.ID, nil
		}
	case models.QuoteStatusFinalized:
	case models.QuoteStatusRefused:
		return 0, apperr.New(apperr.KindAlreadyRefused, "quote %d was refused and cannot be accepted", quoteID)
	default:
		return 0, apperr.New(apperr.KindInvalidState, "quote %d must be finalized before it can be accepted", quoteID)
	}

	if itemCount(q) == 0 {
		return 0, apperr.New(apperr.KindEmptyQuote, "quote %d has no priced items", quoteID)
	}

	repairID, err := h.createRepairOnce(ctx, q)
	if err != nil {
		return 0, err
	}

	now := time.Now()
	err = h.db.WithContext(ctx).Model(&models.Quote{}).
		Where("id = ?", quoteID).
		Updates(map[string]interface{}{
			"status":        models.QuoteStatusAccepted,
			"response_date": now,
		}).Error
	if err != nil {
		return 0, err
	}
	h.invalidateQuoteCache(ctx, quoteID)

	if h.notifier != nil {
		h.notifier.NotifyRole(ctx, models.RoleManager, notification.TypeQuoteAccepted,
			fmt.Sprintf("Quote #%d was accepted by the client", quoteID),
			fmt.Sprintf("/repairs/%d", repairID))
		for _, m := range q.Mechanics {
			h.notifier.NotifyUser(ctx, m.MechanicID, notification.TypeQuoteAccepted,
				fmt.Sprintf("Repair #%d from quote #%d is scheduled", repairID, quoteID),
				fmt.Sprintf("/repairs/%d", repairID))
		}
	}
	logrus.WithFields(logrus.Fields{"quote_id": quoteID, "repair_id": repairID}).Info("quote accepted")

	return repairID, nil
}

// createRepairOnce snapshots the quote into a repair order. The unique
// index on repair_orders.quote_id makes concurrent accepts converge on a
// single row: the loser of the race re-reads the winner's repair.
func (h *QuoteHandler) createRepairOnce(ctx context.Context, q *models.Quote) (int64, error) {
	var existing models.RepairOrder
	err := h.db.WithContext(ctx).Where("quote_id = ?", q.ID).First(&existing).Error
	if err == nil {
		return existing.ID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, err
	}

	repair := models.RepairOrder{
		QuoteID:       q.ID,
		ClientID:      q.ClientID,
		VehicleID:     q.VehicleID,
		Status:        models.RepairStatusPlanned,
		Problem:       q.Problem,
		EstimatedCost: q.Total,
		PlannedStart:  q.InterventionDate,
	}
	for _, m := range q.Mechanics {
		repair.Mechanics = append(repair.Mechanics, models.RepairMechanic{MechanicID: m.MechanicID})
	}
	for _, s := range q.ServiceLines {
		repair.Services = append(repair.Services, models.RepairServiceItem{ServiceID: s.ServiceID, Price: s.Price, Note: s.Note})
	}
	for _, p := range q.PackLines {
		repair.Packs = append(repair.Packs, models.RepairPackItem{PackID: p.PackID, Price: p.Price, Note: p.Note})
	}

	if err := h.db.WithContext(ctx).Create(&repair).Error; err != nil {
		// Lost a concurrent race on the quote_id unique index.
		var winner models.RepairOrder
		if ferr := h.db.WithContext(ctx).Where("quote_id = ?", q.ID).First(&winner).Error; ferr == nil {
			return winner.ID, nil
		}
		return 0, err
	}
	return repair.ID, nil
}

// Refuse moves a finalized quote to refused.
func (h *QuoteHandler) Refuse(ctx context.Context, quoteID, clientID int64) error {
	client, err := h.loadUser(ctx, clientID, "")
	if err != nil {
		return err
	}

	q, err := h.loadQuote(ctx, h.db, quoteID)
	if err != nil {
		return err
	}
	if !access.Allowed(*client, access.ActionRespondQuote, access.Resource{OwnerID: q.ClientID}) {
		return apperr.New(apperr.KindForbidden, "only the owning client can refuse quote %d", quoteID)
	}

	switch q.Status {
	case models.QuoteStatusFinalized:
	case models.QuoteStatusAccepted:
		return apperr.New(apperr.KindAlreadyAccepted, "quote %d was accepted and can no longer be refused", quoteID)
	case models.QuoteStatusRefused:
		return apperr.New(apperr.KindAlreadyRefused, "quote %d is already refused", quoteID)
	default:
		return apperr.New(apperr.KindInvalidState, "quote %d must be finalized before it can be refused", quoteID)
	}

	now := time.Now()
	err = h.db.WithContext(ctx).Model(&models.Quote{}).
		Where("id = ?", quoteID).
		Updates(map[string]interface{}{
			"status":        models.QuoteStatusRefused,
			"response_date": now,
		}).Error
	if err != nil {
		return err
	}
	h.invalidateQuoteCache(ctx, quoteID)

	if h.notifier != nil {
		h.notifier.NotifyRole(ctx, models.RoleManager, notification.TypeQuoteRefused,
			fmt.Sprintf("Quote #%d was refused by the client", quoteID),
			fmt.Sprintf("/quotes/%d", quoteID))
	}
	logrus.WithField("quote_id", quoteID).Info("quote refused")

	return nil
}
