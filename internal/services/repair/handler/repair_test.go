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
	"garage-system/internal/services/notification"
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

func seedUser(t *testing.T, db *gorm.DB, role string) models.User {
	t.Helper()
	u := models.User{
		FirstName: "Test",
		LastName:  role,
		Email:     fmt.Sprintf("%s-%d@test.local", role, time.Now().UnixNano()),
		Password:  "x",
		Role:      role,
		IsActive:  true,
	}
	if err := db.Create(&u).Error; err != nil {
		t.Fatalf("seed %s: %v", role, err)
	}
	return u
}

// seedRepair creates a planned repair with one snapshot service line and
// one assigned mechanic, backed by a minimal accepted quote.
func seedRepair(t *testing.T, db *gorm.DB, mechanicID int64) models.RepairOrder {
	t.Helper()
	client := seedUser(t, db, models.RoleClient)
	vehicle := models.Vehicle{ClientID: client.ID, Plate: fmt.Sprintf("XY-%d", time.Now().UnixNano())}
	if err := db.Create(&vehicle).Error; err != nil {
		t.Fatalf("seed vehicle: %v", err)
	}
	quote := models.Quote{ClientID: client.ID, VehicleID: vehicle.ID, Problem: "x", Status: models.QuoteStatusAccepted, Total: "150.00"}
	if err := db.Create(&quote).Error; err != nil {
		t.Fatalf("seed quote: %v", err)
	}
	svc := models.Service{Name: fmt.Sprintf("svc-%d", time.Now().UnixNano()), Type: "mechanical"}
	if err := db.Create(&svc).Error; err != nil {
		t.Fatalf("seed service: %v", err)
	}

	repair := models.RepairOrder{
		QuoteID:       quote.ID,
		ClientID:      client.ID,
		VehicleID:     vehicle.ID,
		Status:        models.RepairStatusPlanned,
		Problem:       quote.Problem,
		EstimatedCost: "150.00",
		FinalCost:     "0.00",
		Mechanics:     []models.RepairMechanic{{MechanicID: mechanicID}},
		Services:      []models.RepairServiceItem{{ServiceID: svc.ID, Price: "150.00"}},
	}
	if err := db.Create(&repair).Error; err != nil {
		t.Fatalf("seed repair: %v", err)
	}
	return repair
}

func newTestHandler(t *testing.T) (*RepairHandler, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	return NewRepairHandler(db, nil, notification.NewDispatcher(db, nil)), db
}

func TestRepairLifecycle(t *testing.T) {
	h, db := newTestHandler(t)
	ctx := context.Background()
	mechanic := seedUser(t, db, models.RoleMechanic)
	repair := seedRepair(t, db, mechanic.ID)

	r, err := h.UpdateStatus(ctx, repair.ID, mechanic.ID, models.RepairStatusInProgress)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if r.ActualStart == nil {
		t.Error("actual_start not stamped when work began")
	}

	r, err = h.UpdateStatus(ctx, repair.ID, mechanic.ID, models.RepairStatusAwaitingParts)
	if err != nil {
		t.Fatalf("awaiting parts: %v", err)
	}
	r, err = h.UpdateStatus(ctx, repair.ID, mechanic.ID, models.RepairStatusInProgress)
	if err != nil {
		t.Fatalf("resume: %v", err)
	}

	r, err = h.UpdateStatus(ctx, repair.ID, mechanic.ID, models.RepairStatusCompleted)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if r.ActualEnd == nil {
		t.Error("actual_end not stamped on completion")
	}
	if r.FinalCost != "150.00" {
		t.Errorf("final_cost = %q, want estimated cost fallback 150.00", r.FinalCost)
	}
}

func TestRepairIllegalTransitions(t *testing.T) {
	h, db := newTestHandler(t)
	ctx := context.Background()
	mechanic := seedUser(t, db, models.RoleMechanic)
	repair := seedRepair(t, db, mechanic.ID)

	// Straight from planned to completed.
	if _, err := h.UpdateStatus(ctx, repair.ID, mechanic.ID, models.RepairStatusCompleted); !apperr.Is(err, apperr.KindInvalidState) {
		t.Errorf("planned→completed: err = %v, want InvalidState", err)
	}

	// invoiced is reserved for invoice derivation.
	if _, err := h.UpdateStatus(ctx, repair.ID, mechanic.ID, models.RepairStatusInvoiced); !apperr.Is(err, apperr.KindInvalidState) {
		t.Errorf("planned→invoiced: err = %v, want InvalidState", err)
	}

	if _, err := h.UpdateStatus(ctx, repair.ID, mechanic.ID, models.RepairStatusCancelled); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	// Terminal state.
	if _, err := h.UpdateStatus(ctx, repair.ID, mechanic.ID, models.RepairStatusInProgress); !apperr.Is(err, apperr.KindInvalidState) {
		t.Errorf("cancelled→in_progress: err = %v, want InvalidState", err)
	}
}

func TestRepairAuthorization(t *testing.T) {
	h, db := newTestHandler(t)
	ctx := context.Background()
	assigned := seedUser(t, db, models.RoleMechanic)
	outsider := seedUser(t, db, models.RoleMechanic)
	manager := seedUser(t, db, models.RoleManager)
	client := seedUser(t, db, models.RoleClient)
	repair := seedRepair(t, db, assigned.ID)

	if _, err := h.UpdateStatus(ctx, repair.ID, outsider.ID, models.RepairStatusInProgress); !apperr.Is(err, apperr.KindForbidden) {
		t.Errorf("unassigned mechanic: err = %v, want Forbidden", err)
	}
	if _, err := h.UpdateStatus(ctx, repair.ID, client.ID, models.RepairStatusInProgress); !apperr.Is(err, apperr.KindForbidden) {
		t.Errorf("client: err = %v, want Forbidden", err)
	}
	if _, err := h.UpdateStatus(ctx, repair.ID, manager.ID, models.RepairStatusInProgress); err != nil {
		t.Errorf("manager: %v", err)
	}
}

func TestRepairSteps(t *testing.T) {
	h, db := newTestHandler(t)
	ctx := context.Background()
	mechanic := seedUser(t, db, models.RoleMechanic)
	repair := seedRepair(t, db, mechanic.ID)

	step, err := h.AddStep(ctx, repair.ID, mechanic.ID, "Drain fluid", "drain and inspect")
	if err != nil {
		t.Fatalf("add step: %v", err)
	}
	if step.Status != models.StepStatusPending {
		t.Errorf("status = %q, want pending", step.Status)
	}

	step, err = h.UpdateStepStatus(ctx, repair.ID, step.ID, mechanic.ID, models.StepStatusInProgress)
	if err != nil {
		t.Fatalf("start step: %v", err)
	}
	if step.StartedAt == nil {
		t.Error("started_at not stamped")
	}

	step, err = h.UpdateStepStatus(ctx, repair.ID, step.ID, mechanic.ID, models.StepStatusDone)
	if err != nil {
		t.Fatalf("finish step: %v", err)
	}
	if step.FinishedAt == nil {
		t.Error("finished_at not stamped")
	}

	if _, err := h.UpdateStepStatus(ctx, repair.ID, step.ID, mechanic.ID, "almost"); !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("bad status: err = %v, want Validation", err)
	}

	comment, err := h.AddStepComment(ctx, repair.ID, step.ID, mechanic.ID, "torque checked")
	if err != nil {
		t.Fatalf("add comment: %v", err)
	}
	if comment.StepID != step.ID {
		t.Errorf("comment step = %d, want %d", comment.StepID, step.ID)
	}
}

func TestRepairPhotos(t *testing.T) {
	h, db := newTestHandler(t)
	ctx := context.Background()
	mechanic := seedUser(t, db, models.RoleMechanic)
	repair := seedRepair(t, db, mechanic.ID)

	photo, err := h.AddPhoto(ctx, repair.ID, mechanic.ID, "https://cdn.local/p1.jpg", "before", nil)
	if err != nil {
		t.Fatalf("add photo: %v", err)
	}
	if photo.RepairID != repair.ID {
		t.Errorf("photo repair = %d, want %d", photo.RepairID, repair.ID)
	}

	if _, err := h.AddPhoto(ctx, repair.ID, mechanic.ID, "", "", nil); !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("missing url: err = %v, want Validation", err)
	}
}
