package handler

import (
	"context"
	"math"
	"sort"
	"time"

	"garage-system/internal/apperr"
	"garage-system/internal/database/models"
)

// occupancy expands every scheduled assignment on active quotes into the
// calendar days it occupies: ceil(hours/8) consecutive days from the
// assignment's start date, day granularity only. Assignments without a
// start date or with no allocated hours occupy nothing. excludeQuoteID
// keeps a quote from blocking its own rescheduling.
func (h *QuoteHandler) occupancy(ctx context.Context, excludeQuoteID int64) (map[string]map[int64]struct{}, error) {
	var bookings []models.QuoteMechanic
	query := h.db.WithContext(ctx).
		Where("start_date IS NOT NULL").
		Where("quote_id IN (?)", h.db.Model(&models.Quote{}).
			Select("id").
			Where("status IN ?", []string{models.QuoteStatusPending, models.QuoteStatusAccepted}))
	if excludeQuoteID != 0 {
		query = query.Where("quote_id <> ?", excludeQuoteID)
	}
	if err := query.Find(&bookings).Error; err != nil {
		return nil, err
	}

	occupied := make(map[string]map[int64]struct{})
	for _, b := range bookings {
		if b.StartDate == nil || b.HoursAllocated <= 0 {
			continue
		}
		workDays := int(math.Ceil(b.HoursAllocated / workdayHours))
		day := *b.StartDate
		for i := 0; i < workDays; i++ {
			key := day.Format(dayLayout)
			if occupied[key] == nil {
				occupied[key] = make(map[int64]struct{})
			}
			occupied[key][b.MechanicID] = struct{}{}
			day = day.AddDate(0, 0, 1)
		}
	}
	return occupied, nil
}

func (h *QuoteHandler) mechanicHeadcount(ctx context.Context) ([]models.User, error) {
	var mechanics []models.User
	err := h.db.WithContext(ctx).
		Where("role = ? AND is_active = ?", models.RoleMechanic, true).
		Order("id").
		Find(&mechanics).Error
	return mechanics, err
}

// GetUnavailableDates returns the days on which every active mechanic is
// already booked, sorted ascending, in YYYY-MM-DD form.
func (h *QuoteHandler) GetUnavailableDates(ctx context.Context) ([]string, error) {
	mechanics, err := h.mechanicHeadcount(ctx)
	if err != nil {
		return nil, err
	}
	if len(mechanics) == 0 {
		return []string{}, nil
	}

	occupied, err := h.occupancy(ctx, 0)
	if err != nil {
		return nil, err
	}

	blocked := make([]string, 0)
	for day, busy := range occupied {
		if len(busy) >= len(mechanics) {
			blocked = append(blocked, day)
		}
	}
	sort.Strings(blocked)
	return blocked, nil
}

// GetAvailableMechanics returns the active mechanics with no booking
// covering the candidate date.
func (h *QuoteHandler) GetAvailableMechanics(ctx context.Context, date time.Time) ([]models.User, error) {
	mechanics, err := h.mechanicHeadcount(ctx)
	if err != nil {
		return nil, err
	}

	occupied, err := h.occupancy(ctx, 0)
	if err != nil {
		return nil, err
	}
	busy := occupied[date.Format(dayLayout)]

	available := make([]models.User, 0, len(mechanics))
	for _, m := range mechanics {
		if _, taken := busy[m.ID]; !taken {
			available = append(available, m)
		}
	}
	return available, nil
}

// ParseDay parses a YYYY-MM-DD query parameter.
func ParseDay(s string) (time.Time, error) {
	t, err := time.Parse(dayLayout, s)
	if err != nil {
		return time.Time{}, apperr.New(apperr.KindValidation, "invalid date %q, expected YYYY-MM-DD", s)
	}
	return t, nil
}
