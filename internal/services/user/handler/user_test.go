package handler

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"garage-system/internal/apperr"
	"garage-system/internal/database"
	"garage-system/internal/database/models"
)

func newTestHandler(t *testing.T) (*UserHandler, *gorm.DB) {
	t.Helper()
	name := strings.ReplaceAll(t.Name(), "/", "_")
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewUserHandler(db, nil), db
}

func registerInput(email, role string) RegisterInput {
	return RegisterInput{
		FirstName: "Ana",
		LastName:  "Tester",
		Email:     email,
		Password:  "correct-horse",
		Role:      role,
	}
}

func TestRegisterAndLogin(t *testing.T) {
	h, _ := newTestHandler(t)
	ctx := context.Background()

	res, err := h.Register(ctx, registerInput("ana@test.local", ""))
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if res.User.Role != models.RoleClient {
		t.Errorf("role = %q, want client default", res.User.Role)
	}
	if res.Token == "" {
		t.Error("no token issued on registration")
	}
	if res.User.Password == "correct-horse" {
		t.Error("password stored in clear")
	}

	login, err := h.Login(ctx, LoginInput{Email: "ana@test.local", Password: "correct-horse"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if login.User.ID != res.User.ID {
		t.Errorf("login user = %d, want %d", login.User.ID, res.User.ID)
	}

	if _, err := h.Login(ctx, LoginInput{Email: "ana@test.local", Password: "wrong"}); !apperr.Is(err, apperr.KindForbidden) {
		t.Errorf("bad password: err = %v, want Forbidden", err)
	}
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	h, _ := newTestHandler(t)
	ctx := context.Background()

	if _, err := h.Register(ctx, registerInput("dup@test.local", "")); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if _, err := h.Register(ctx, registerInput("dup@test.local", "")); !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("err = %v, want Conflict", err)
	}
}

func TestRegisterRejectsUnknownRole(t *testing.T) {
	h, _ := newTestHandler(t)
	if _, err := h.Register(context.Background(), registerInput("x@test.local", "janitor")); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("err = %v, want Validation", err)
	}
}

func TestDeactivatedUserCannotLogin(t *testing.T) {
	h, _ := newTestHandler(t)
	ctx := context.Background()

	res, err := h.Register(ctx, registerInput("gone@test.local", ""))
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := h.Deactivate(ctx, res.User.ID); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if _, err := h.Login(ctx, LoginInput{Email: "gone@test.local", Password: "correct-horse"}); !apperr.Is(err, apperr.KindForbidden) {
		t.Errorf("err = %v, want Forbidden", err)
	}
}

func TestMechanicHourlyRate(t *testing.T) {
	h, _ := newTestHandler(t)
	ctx := context.Background()

	in := registerInput("mech@test.local", models.RoleMechanic)
	in.HourlyRate = "28.50"
	res, err := h.Register(ctx, in)
	if err != nil {
		t.Fatalf("register mechanic: %v", err)
	}
	if res.User.HourlyRate != "28.50" {
		t.Errorf("rate = %q, want 28.50", res.User.HourlyRate)
	}

	updated, err := h.UpdateHourlyRate(ctx, res.User.ID, "32.00")
	if err != nil {
		t.Fatalf("update rate: %v", err)
	}
	if updated.HourlyRate != "32.00" {
		t.Errorf("rate = %q, want 32.00", updated.HourlyRate)
	}

	client, err := h.Register(ctx, registerInput("c@test.local", ""))
	if err != nil {
		t.Fatalf("register client: %v", err)
	}
	if _, err := h.UpdateHourlyRate(ctx, client.User.ID, "10.00"); !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("rate on client: err = %v, want Validation", err)
	}
}

func TestVehicles(t *testing.T) {
	h, _ := newTestHandler(t)
	ctx := context.Background()

	client, err := h.Register(ctx, registerInput("cars@test.local", ""))
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	v, err := h.AddVehicle(ctx, client.User.ID, VehicleInput{Plate: "AA-123-BB", Make: "Peugeot", Model: "208", Year: 2021})
	if err != nil {
		t.Fatalf("add vehicle: %v", err)
	}
	if v.ClientID != client.User.ID {
		t.Errorf("vehicle client = %d, want %d", v.ClientID, client.User.ID)
	}

	if _, err := h.AddVehicle(ctx, client.User.ID, VehicleInput{Plate: "AA-123-BB"}); !apperr.Is(err, apperr.KindConflict) {
		t.Errorf("duplicate plate: err = %v, want Conflict", err)
	}

	vehicles, err := h.ListVehicles(ctx, client.User.ID)
	if err != nil {
		t.Fatalf("list vehicles: %v", err)
	}
	if len(vehicles) != 1 {
		t.Errorf("vehicles = %d, want 1", len(vehicles))
	}
}
