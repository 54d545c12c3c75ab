package Workflow

import "github.com/wenjyue84/MakanManager-sub001/Models"

// Actions checked by Can. Every operation entry guard calls Can exactly once;
// no role check lives anywhere else.
const (
	ActionClaim   = "claim"
	ActionSubmit  = "submit"
	ActionApprove = "approve"
	ActionReject  = "reject"
	ActionHold    = "hold"
	ActionResume  = "resume"
)

// Can is the authorization policy for engine operations.
//
// Approvals require a management role, and an approver may not settle their
// own work unless they hold the owner role (separation of duties). Submit is
// normally the assignee's move, with a management override for closing out
// work on someone's behalf.
func Can(actor *Models.User, action string, task *Models.Task) bool {
	if actor == nil {
		return false
	}
	isAssignee := task.AssigneeID != nil && *task.AssigneeID == actor.ID

	switch action {
	case ActionClaim:
		return true
	case ActionSubmit:
		return isAssignee || actor.IsManagement()
	case ActionApprove, ActionReject:
		if !actor.IsManagement() {
			return false
		}
		if isAssignee {
			return actor.HasRole(Models.RoleOwner)
		}
		return true
	case ActionHold, ActionResume:
		return isAssignee || actor.IsManagement()
	}
	return false
}
