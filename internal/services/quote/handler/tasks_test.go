package handler

import (
	"context"
	"testing"

	"garage-system/internal/apperr"
	"garage-system/internal/database/models"
)

func TestToggleTaskRoundTrip(t *testing.T) {
	h, db := newTestHandler(t)
	ctx := context.Background()
	q, _, mechanic := finalizedQuote(t, h, db)
	lineID := q.ServiceLines[0].ID

	task, err := h.ToggleTask(ctx, q.ID, lineID, mechanic.ID, models.ItemTypeService)
	if err != nil {
		t.Fatalf("first toggle: %v", err)
	}
	if !task.Completed {
		t.Fatal("task not completed after first toggle")
	}
	if task.CompletedByID == nil || *task.CompletedByID != mechanic.ID {
		t.Fatalf("completed_by = %v, want %d", task.CompletedByID, mechanic.ID)
	}

	task, err = h.ToggleTask(ctx, q.ID, lineID, mechanic.ID, models.ItemTypeService)
	if err != nil {
		t.Fatalf("second toggle: %v", err)
	}
	if task.Completed {
		t.Error("task still completed after round trip")
	}
	if task.CompletedByID != nil {
		t.Errorf("completed_by = %v, want nil after round trip", task.CompletedByID)
	}
}

func TestToggleTaskOwnershipLock(t *testing.T) {
	h, db := newTestHandler(t)
	ctx := context.Background()
	client, vehicle := seedClientWithVehicle(t, db)
	manager := seedUser(t, db, models.RoleManager, "0.00")
	mechA := seedUser(t, db, models.RoleMechanic, "30.00")
	mechB := seedUser(t, db, models.RoleMechanic, "35.00")
	svc := seedService(t, db, "Exhaust weld")

	q, err := h.Create(ctx, client.ID, client.ID, vehicle.ID, "Exhaust leak")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	q, err = h.Finalize(ctx, q.ID, manager.ID, FinalizeInput{
		Services: []ServiceLineInput{{ServiceID: svc.ID, Price: "80.00"}},
		Mechanics: []MechanicAssignmentInput{
			{MechanicID: mechA.ID, Hours: 3},
			{MechanicID: mechB.ID, Hours: 3},
		},
	})
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	lineID := q.ServiceLines[0].ID

	if _, err := h.ToggleTask(ctx, q.ID, lineID, mechA.ID, models.ItemTypeService); err != nil {
		t.Fatalf("mechanic A completes: %v", err)
	}

	// B is assigned but did not complete the task.
	_, err = h.ToggleTask(ctx, q.ID, lineID, mechB.ID, models.ItemTypeService)
	if !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("mechanic B toggle: err = %v, want Forbidden", err)
	}

	// A can reopen their own work.
	task, err := h.ToggleTask(ctx, q.ID, lineID, mechA.ID, models.ItemTypeService)
	if err != nil {
		t.Fatalf("mechanic A reopens: %v", err)
	}
	if task.Completed {
		t.Error("task still completed after owner reopened it")
	}
}

func TestToggleTaskDeniedOnQuoteWithoutMechanics(t *testing.T) {
	h, db := newTestHandler(t)
	ctx := context.Background()
	client, vehicle := seedClientWithVehicle(t, db)
	mechanic := seedUser(t, db, models.RoleMechanic, "30.00")

	q, err := h.Create(ctx, client.ID, client.ID, vehicle.ID, "Loose trim")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	q, err = h.AddAdhocLine(ctx, q.ID, AdhocLineInput{Name: "Clip set", Price: "8.00"})
	if err != nil {
		t.Fatalf("add line: %v", err)
	}

	// Nobody is assigned yet, so no mechanic may toggle anything.
	_, err = h.ToggleTask(ctx, q.ID, q.AdhocLines[0].ID, mechanic.ID, models.ItemTypeAdhoc)
	if !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("err = %v, want Forbidden", err)
	}
}

func TestToggleTaskRejectsUnassignedMechanic(t *testing.T) {
	h, db := newTestHandler(t)
	q, _, _ := finalizedQuote(t, h, db)
	outsider := seedUser(t, db, models.RoleMechanic, "40.00")

	_, err := h.ToggleTask(context.Background(), q.ID, q.ServiceLines[0].ID, outsider.ID, models.ItemTypeService)
	if !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("err = %v, want Forbidden", err)
	}
}

func TestToggleTaskUnknownItemType(t *testing.T) {
	h, db := newTestHandler(t)
	q, _, mechanic := finalizedQuote(t, h, db)

	_, err := h.ToggleTask(context.Background(), q.ID, q.ServiceLines[0].ID, mechanic.ID, "labor")
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("err = %v, want Validation", err)
	}
}

func TestToggleTaskNotFound(t *testing.T) {
	h, db := newTestHandler(t)
	q, _, mechanic := finalizedQuote(t, h, db)

	_, err := h.ToggleTask(context.Background(), q.ID, 99999, mechanic.ID, models.ItemTypePack)
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("err = %v, want NotFound", err)
	}
}
