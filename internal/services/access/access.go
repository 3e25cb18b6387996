package access

import "garage-system/internal/database/models"

// Action names the guarded operations of the core.
type Action string

const (
	ActionCreateQuote     Action = "quote.create"
	ActionFinalizeQuote   Action = "quote.finalize"
	ActionRespondQuote    Action = "quote.respond" // accept or refuse
	ActionAssignMechanics Action = "quote.assign_mechanics"
	ActionToggleTask      Action = "quote.toggle_task"
	ActionManageRepair    Action = "repair.manage"
	ActionWorkOnRepair    Action = "repair.work"
	ActionCreateInvoice   Action = "invoice.create"
	ActionRecordPayment   Action = "invoice.record_payment"
)

// Quote-scoped context for ownership checks. Zero values mean "not
// applicable" and only the role table decides.
type Resource struct {
	OwnerID     int64
	AssignedIDs []int64
}

var roleActions = map[string]map[Action]bool{
	models.RoleClient: {
		ActionCreateQuote:  true,
		ActionRespondQuote: true,
	},
	models.RoleManager: {
		ActionCreateQuote:     true,
		ActionFinalizeQuote:   true,
		ActionAssignMechanics: true,
		ActionManageRepair:    true,
		ActionCreateInvoice:   true,
		ActionRecordPayment:   true,
	},
	models.RoleMechanic: {
		ActionToggleTask:   true,
		ActionWorkOnRepair: true,
	},
}

// Allowed decides whether actor may perform action on the resource.
// Role grants the action; the resource then narrows it to owners
// (clients responding to their own quote) or assignees (mechanics
// toggling tasks on quotes they work on). Assignment-scoped actions
// require the actor to appear in AssignedIDs.
func Allowed(actor models.User, action Action, res Resource) bool {
	grants, ok := roleActions[actor.Role]
	if !ok || !grants[action] {
		return false
	}

	switch action {
	case ActionRespondQuote:
		return res.OwnerID == 0 || res.OwnerID == actor.ID
	case ActionToggleTask, ActionWorkOnRepair:
		// An empty assignment list denies: nobody is assigned, so nobody
		// may work.
		for _, id := range res.AssignedIDs {
			if id == actor.ID {
				return true
			}
		}
		return false
	default:
		return true
	}
}
