package handler

import (
	"context"
	"testing"
	"time"

	"gorm.io/gorm"

	"garage-system/internal/database/models"
)

// seedBooking creates an accepted quote with one scheduled mechanic
// assignment, bypassing the state machine to control dates precisely.
func seedBooking(t *testing.T, db *gorm.DB, mechanicID int64, hours float64, start time.Time) {
	t.Helper()
	client, vehicle := seedClientWithVehicle(t, db)
	q := models.Quote{
		ClientID:  client.ID,
		VehicleID: vehicle.ID,
		Problem:   "scheduled work",
		Status:    models.QuoteStatusAccepted,
		Total:     "0.00",
	}
	if err := db.Create(&q).Error; err != nil {
		t.Fatalf("seed quote: %v", err)
	}
	booking := models.QuoteMechanic{
		QuoteID:        q.ID,
		MechanicID:     mechanicID,
		HourlyRate:     "30.00",
		HoursAllocated: hours,
		StartDate:      &start,
	}
	if err := db.Create(&booking).Error; err != nil {
		t.Fatalf("seed booking: %v", err)
	}
}

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return d
}

func containsMechanic(mechanics []models.User, id int64) bool {
	for _, m := range mechanics {
		if m.ID == id {
			return true
		}
	}
	return false
}

func TestAvailabilityExpandsHoursIntoDays(t *testing.T) {
	h, db := newTestHandler(t)
	ctx := context.Background()
	mechX := seedUser(t, db, models.RoleMechanic, "30.00")
	mechY := seedUser(t, db, models.RoleMechanic, "30.00")

	// 16 hours from 2024-01-10 occupies the 10th and 11th.
	seedBooking(t, db, mechX.ID, 16, day(t, "2024-01-10"))

	for _, d := range []string{"2024-01-10", "2024-01-11"} {
		available, err := h.GetAvailableMechanics(ctx, day(t, d))
		if err != nil {
			t.Fatalf("available on %s: %v", d, err)
		}
		if containsMechanic(available, mechX.ID) {
			t.Errorf("%s: mechanic X should be occupied", d)
		}
		if !containsMechanic(available, mechY.ID) {
			t.Errorf("%s: mechanic Y should be free", d)
		}
	}

	available, err := h.GetAvailableMechanics(ctx, day(t, "2024-01-12"))
	if err != nil {
		t.Fatalf("available on 2024-01-12: %v", err)
	}
	if !containsMechanic(available, mechX.ID) {
		t.Error("2024-01-12: mechanic X should be free again")
	}
}

func TestUnavailableDatesWhenAllMechanicsBooked(t *testing.T) {
	h, db := newTestHandler(t)
	ctx := context.Background()
	mechX := seedUser(t, db, models.RoleMechanic, "30.00")
	mechY := seedUser(t, db, models.RoleMechanic, "30.00")

	seedBooking(t, db, mechX.ID, 16, day(t, "2024-01-10"))

	// Only one of two mechanics booked: no globally blocked day.
	blocked, err := h.GetUnavailableDates(ctx)
	if err != nil {
		t.Fatalf("unavailable dates: %v", err)
	}
	if len(blocked) != 0 {
		t.Fatalf("blocked = %v, want none with a free mechanic", blocked)
	}

	seedBooking(t, db, mechY.ID, 16, day(t, "2024-01-10"))

	blocked, err = h.GetUnavailableDates(ctx)
	if err != nil {
		t.Fatalf("unavailable dates: %v", err)
	}
	want := []string{"2024-01-10", "2024-01-11"}
	if len(blocked) != len(want) {
		t.Fatalf("blocked = %v, want %v", blocked, want)
	}
	for i := range want {
		if blocked[i] != want[i] {
			t.Errorf("blocked[%d] = %q, want %q", i, blocked[i], want[i])
		}
	}
}

func TestUnscheduledBookingOccupiesNothing(t *testing.T) {
	h, db := newTestHandler(t)
	ctx := context.Background()
	mech := seedUser(t, db, models.RoleMechanic, "30.00")

	client, vehicle := seedClientWithVehicle(t, db)
	q := models.Quote{ClientID: client.ID, VehicleID: vehicle.ID, Problem: "x", Status: models.QuoteStatusPending, Total: "0.00"}
	if err := db.Create(&q).Error; err != nil {
		t.Fatalf("seed quote: %v", err)
	}
	booking := models.QuoteMechanic{QuoteID: q.ID, MechanicID: mech.ID, HourlyRate: "30.00", HoursAllocated: 16}
	if err := db.Create(&booking).Error; err != nil {
		t.Fatalf("seed booking: %v", err)
	}

	blocked, err := h.GetUnavailableDates(ctx)
	if err != nil {
		t.Fatalf("unavailable dates: %v", err)
	}
	if len(blocked) != 0 {
		t.Errorf("blocked = %v, want none for unscheduled booking", blocked)
	}
}

func TestZeroHoursContributeNoOccupancy(t *testing.T) {
	h, db := newTestHandler(t)
	ctx := context.Background()
	mech := seedUser(t, db, models.RoleMechanic, "30.00")

	seedBooking(t, db, mech.ID, 0, day(t, "2024-01-10"))

	available, err := h.GetAvailableMechanics(ctx, day(t, "2024-01-10"))
	if err != nil {
		t.Fatalf("available: %v", err)
	}
	if !containsMechanic(available, mech.ID) {
		t.Error("zero-hour booking should leave the mechanic free")
	}
}

func TestRefusedQuoteReleasesBookings(t *testing.T) {
	h, db := newTestHandler(t)
	ctx := context.Background()
	mech := seedUser(t, db, models.RoleMechanic, "30.00")

	client, vehicle := seedClientWithVehicle(t, db)
	start := day(t, "2024-01-10")
	q := models.Quote{ClientID: client.ID, VehicleID: vehicle.ID, Problem: "x", Status: models.QuoteStatusRefused, Total: "0.00"}
	if err := db.Create(&q).Error; err != nil {
		t.Fatalf("seed quote: %v", err)
	}
	booking := models.QuoteMechanic{QuoteID: q.ID, MechanicID: mech.ID, HourlyRate: "30.00", HoursAllocated: 16, StartDate: &start}
	if err := db.Create(&booking).Error; err != nil {
		t.Fatalf("seed booking: %v", err)
	}

	available, err := h.GetAvailableMechanics(ctx, start)
	if err != nil {
		t.Fatalf("available: %v", err)
	}
	if !containsMechanic(available, mech.ID) {
		t.Error("refused quote should not occupy the mechanic")
	}
}
