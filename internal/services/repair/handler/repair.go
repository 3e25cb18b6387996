package handler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"garage-system/internal/apperr"
	"garage-system/internal/database/models"
	"garage-system/internal/services/access"
	"garage-system/internal/services/notification"
)

type RepairHandler struct {
	db       *gorm.DB
	redis    *redis.Client
	notifier *notification.Dispatcher
}

func NewRepairHandler(db *gorm.DB, redisClient *redis.Client, notifier *notification.Dispatcher) *RepairHandler {
	return &RepairHandler{
		db:       db,
		redis:    redisClient,
		notifier: notifier,
	}
}

// Legal transitions of the repair lifecycle. "invoiced" is reached only
// through invoice derivation, never via UpdateStatus.
var repairTransitions = map[string][]string{
	models.RepairStatusPlanned:       {models.RepairStatusInProgress, models.RepairStatusCancelled},
	models.RepairStatusInProgress:    {models.RepairStatusAwaitingParts, models.RepairStatusCompleted, models.RepairStatusCancelled},
	models.RepairStatusAwaitingParts: {models.RepairStatusInProgress, models.RepairStatusCancelled},
}

type RepairFilter struct {
	Status     string
	ClientID   int64
	MechanicID int64
}

func (h *RepairHandler) preload(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Client").
		Preload("Vehicle").
		Preload("Mechanics.Mechanic").
		Preload("Services.Service").
		Preload("Packs.Pack").
		Preload("Steps.Comments").
		Preload("Photos")
}

func (h *RepairHandler) load(ctx context.Context, id int64) (*models.RepairOrder, error) {
	var r models.RepairOrder
	if err := h.preload(h.db.WithContext(ctx)).First(&r, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.KindNotFound, "repair %d not found", id)
		}
		return nil, err
	}
	return &r, nil
}

func (h *RepairHandler) Get(ctx context.Context, id int64) (*models.RepairOrder, error) {
	return h.load(ctx, id)
}

func (h *RepairHandler) List(ctx context.Context, filter RepairFilter) ([]models.RepairOrder, error) {
	query := h.db.WithContext(ctx).Model(&models.RepairOrder{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.ClientID != 0 {
		query = query.Where("client_id = ?", filter.ClientID)
	}
	if filter.MechanicID != 0 {
		query = query.Where(
			"id IN (?)",
			h.db.Model(&models.RepairMechanic{}).Select("repair_id").Where("mechanic_id = ?", filter.MechanicID),
		)
	}

	var repairs []models.RepairOrder
	err := h.preload(query).Order("created_at desc").Find(&repairs).Error
	return repairs, err
}

// authorize lets managers manage any repair and assigned mechanics work
// on theirs.
func (h *RepairHandler) authorize(ctx context.Context, r *models.RepairOrder, actorID int64) error {
	var actor models.User
	if err := h.db.WithContext(ctx).First(&actor, actorID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.New(apperr.KindNotFound, "user %d not found", actorID)
		}
		return err
	}

	assigned := make([]int64, 0, len(r.Mechanics))
	for _, m := range r.Mechanics {
		assigned = append(assigned, m.MechanicID)
	}
	if access.Allowed(actor, access.ActionManageRepair, access.Resource{}) {
		return nil
	}
	if access.Allowed(actor, access.ActionWorkOnRepair, access.Resource{AssignedIDs: assigned}) {
		return nil
	}
	return apperr.New(apperr.KindForbidden, "user %d cannot modify repair %d", actorID, r.ID)
}

// UpdateStatus advances the repair through its lifecycle, stamping actual
// start and end dates as the work begins and finishes.
func (h *RepairHandler) UpdateStatus(ctx context.Context, repairID, actorID int64, newStatus string) (*models.RepairOrder, error) {
	r, err := h.load(ctx, repairID)
	if err != nil {
		return nil, err
	}
	if err := h.authorize(ctx, r, actorID); err != nil {
		return nil, err
	}

	allowed := false
	for _, next := range repairTransitions[r.Status] {
		if next == newStatus {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, apperr.New(apperr.KindInvalidState, "repair %d cannot go from %s to %s", repairID, r.Status, newStatus)
	}

	now := time.Now()
	updates := map[string]interface{}{"status": newStatus}
	if newStatus == models.RepairStatusInProgress && r.ActualStart == nil {
		updates["actual_start"] = now
	}
	if newStatus == models.RepairStatusCompleted {
		updates["actual_end"] = now
		if amountIsZero(r.FinalCost) {
			updates["final_cost"] = r.EstimatedCost
		}
	}

	if err := h.db.WithContext(ctx).Model(&models.RepairOrder{}).Where("id = ?", repairID).Updates(updates).Error; err != nil {
		return nil, err
	}

	if h.notifier != nil {
		h.notifier.NotifyUser(ctx, r.ClientID, notification.TypeRepairUpdated,
			fmt.Sprintf("Repair #%d is now %s", repairID, newStatus),
			fmt.Sprintf("/repairs/%d", repairID))
	}
	logrus.WithFields(logrus.Fields{"repair_id": repairID, "from": r.Status, "to": newStatus}).Info("repair status updated")

	return h.load(ctx, repairID)
}

func amountIsZero(s string) bool {
	return s == "" || s == "0" || s == "0.00"
}

func (h *RepairHandler) AddStep(ctx context.Context, repairID, actorID int64, title, description string) (*models.RepairStep, error) {
	if title == "" {
		return nil, apperr.New(apperr.KindValidation, "step title is required")
	}
	r, err := h.load(ctx, repairID)
	if err != nil {
		return nil, err
	}
	if err := h.authorize(ctx, r, actorID); err != nil {
		return nil, err
	}

	step := models.RepairStep{
		RepairID:    repairID,
		Title:       title,
		Description: description,
		Status:      models.StepStatusPending,
	}
	if err := h.db.WithContext(ctx).Create(&step).Error; err != nil {
		return nil, err
	}
	return &step, nil
}

func (h *RepairHandler) UpdateStepStatus(ctx context.Context, repairID, stepID, actorID int64, newStatus string) (*models.RepairStep, error) {
	switch newStatus {
	case models.StepStatusPending, models.StepStatusInProgress, models.StepStatusDone, models.StepStatusBlocked:
	default:
		return nil, apperr.New(apperr.KindValidation, "unknown step status %q", newStatus)
	}

	r, err := h.load(ctx, repairID)
	if err != nil {
		return nil, err
	}
	if err := h.authorize(ctx, r, actorID); err != nil {
		return nil, err
	}

	var step models.RepairStep
	if err := h.db.WithContext(ctx).Where("id = ? AND repair_id = ?", stepID, repairID).First(&step).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.KindNotFound, "step %d not found on repair %d", stepID, repairID)
		}
		return nil, err
	}

	now := time.Now()
	updates := map[string]interface{}{"status": newStatus}
	if newStatus == models.StepStatusInProgress && step.StartedAt == nil {
		updates["started_at"] = now
	}
	if newStatus == models.StepStatusDone {
		updates["finished_at"] = now
	}
	if err := h.db.WithContext(ctx).Model(&step).Updates(updates).Error; err != nil {
		return nil, err
	}
	return &step, nil
}

func (h *RepairHandler) AddStepComment(ctx context.Context, repairID, stepID, authorID int64, message string) (*models.RepairStepComment, error) {
	if message == "" {
		return nil, apperr.New(apperr.KindValidation, "message is required")
	}
	r, err := h.load(ctx, repairID)
	if err != nil {
		return nil, err
	}
	if err := h.authorize(ctx, r, authorID); err != nil {
		return nil, err
	}

	var step models.RepairStep
	if err := h.db.WithContext(ctx).Where("id = ? AND repair_id = ?", stepID, repairID).First(&step).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.KindNotFound, "step %d not found on repair %d", stepID, repairID)
		}
		return nil, err
	}

	comment := models.RepairStepComment{
		StepID:   stepID,
		AuthorID: authorID,
		Message:  message,
	}
	if err := h.db.WithContext(ctx).Create(&comment).Error; err != nil {
		return nil, err
	}
	return &comment, nil
}

func (h *RepairHandler) AddPhoto(ctx context.Context, repairID, actorID int64, url, description string, stepID *int64) (*models.RepairPhoto, error) {
	if url == "" {
		return nil, apperr.New(apperr.KindValidation, "photo url is required")
	}
	r, err := h.load(ctx, repairID)
	if err != nil {
		return nil, err
	}
	if err := h.authorize(ctx, r, actorID); err != nil {
		return nil, err
	}

	photo := models.RepairPhoto{
		RepairID:    repairID,
		URL:         url,
		Description: description,
		AddedByID:   actorID,
		StepID:      stepID,
	}
	if err := h.db.WithContext(ctx).Create(&photo).Error; err != nil {
		return nil, err
	}
	return &photo, nil
}
