package handler

import (
	"context"

	"garage-system/internal/apperr"
	"garage-system/internal/database/models"
	"garage-system/internal/services/access"
)

// Task is the normalized view of a line item's completion state returned
// by ToggleTask regardless of which collection the task lives in.
type Task struct {
	ID            int64  `json:"id"`
	QuoteID       int64  `json:"quote_id"`
	Type          string `json:"type"`
	Completed     bool   `json:"completed"`
	CompletedByID *int64 `json:"completed_by_id,omitempty"`
}

// ToggleTask flips a line item's completion flag. Completing stamps the
// calling mechanic as owner; only that mechanic may un-complete it.
// Toggling twice with the same caller restores the original state.
func (h *QuoteHandler) ToggleTask(ctx context.Context, quoteID, taskID, mechanicID int64, itemType string) (*Task, error) {
	q, err := h.loadQuote(ctx, h.db, quoteID)
	if err != nil {
		return nil, err
	}

	mech, err := h.loadUser(ctx, mechanicID, "")
	if err != nil {
		return nil, err
	}
	assigned := make([]int64, 0, len(q.Mechanics))
	for _, m := range q.Mechanics {
		assigned = append(assigned, m.MechanicID)
	}
	if !access.Allowed(*mech, access.ActionToggleTask, access.Resource{AssignedIDs: assigned}) {
		return nil, apperr.New(apperr.KindForbidden, "mechanic %d is not assigned to quote %d", mechanicID, quoteID)
	}

	var (
		model         interface{}
		completed     bool
		completedByID *int64
		found         bool
	)

	switch itemType {
	case models.ItemTypeService:
		for _, l := range q.ServiceLines {
			if l.ID == taskID {
				model, completed, completedByID, found = &models.QuoteServiceLine{}, l.Completed, l.CompletedByID, true
				break
			}
		}
	case models.ItemTypePack:
		for _, l := range q.PackLines {
			if l.ID == taskID {
				model, completed, completedByID, found = &models.QuotePackLine{}, l.Completed, l.CompletedByID, true
				break
			}
		}
	case models.ItemTypeAdhoc:
		for _, l := range q.AdhocLines {
			if l.ID == taskID {
				model, completed, completedByID, found = &models.QuoteAdhocLine{}, l.Completed, l.CompletedByID, true
				break
			}
		}
	default:
		return nil, apperr.New(apperr.KindValidation, "unknown item type %q", itemType)
	}

	if !found {
		return nil, apperr.New(apperr.KindNotFound, "task %d not found in %s lines of quote %d", taskID, itemType, quoteID)
	}

	if completed && completedByID != nil && *completedByID != mechanicID {
		return nil, apperr.New(apperr.KindForbidden, "task %d was completed by mechanic %d, only they can reopen it", taskID, *completedByID)
	}

	completed = !completed
	if completed {
		completedByID = &mechanicID
	} else {
		completedByID = nil
	}

	err = h.db.WithContext(ctx).Model(model).
		Where("id = ? AND quote_id = ?", taskID, quoteID).
		Updates(map[string]interface{}{
			"completed":       completed,
			"completed_by_id": completedByID,
		}).Error
	if err != nil {
		return nil, err
	}
	h.invalidateQuoteCache(ctx, quoteID)

	return &Task{
		ID:            taskID,
		QuoteID:       quoteID,
		Type:          itemType,
		Completed:     completed,
		CompletedByID: completedByID,
	}, nil
}
