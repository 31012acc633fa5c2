// Package policy decides whether an actor may perform an operation on a task
// or on planning data. It has no I/O: callers load the actor and target state
// from the store and pass them in.
package policy

import "taskboard/internal/models"

// Operation names a guarded action.
type Operation string

const (
	OpCreate           Operation = "create"
	OpUpdate           Operation = "update"
	OpChangeStatus     Operation = "change-status"
	OpAssign           Operation = "assign"
	OpSprintMembership Operation = "sprint-membership"
	OpEpicMembership   Operation = "epic-membership"
	OpDelete           Operation = "delete"
	OpManageSprint     Operation = "manage-sprint"
	OpManageEpic       Operation = "manage-epic"
	OpManageRoles      Operation = "manage-roles"
)

// Actor is the authenticated caller as currently persisted.
type Actor struct {
	ID   string
	Role string
}

// Target is the persisted state of the task being acted on. Planning
// operations pass the zero value.
type Target struct {
	CreatedByID  string
	AssignedToID string
	StatusName   string
}

// Authorize reports whether actor may perform op against target.
func Authorize(op Operation, actor Actor, target Target) bool {
	if actor.ID == "" {
		return false
	}

	isCreator := target.CreatedByID != "" && actor.ID == target.CreatedByID
	isAssignee := target.AssignedToID != "" && actor.ID == target.AssignedToID

	switch op {
	case OpCreate:
		return true
	case OpUpdate, OpAssign:
		return isCreator || isAssignee || hasRole(actor, models.RoleAdmin, models.RoleScrumMaster, models.RoleProductOwner)
	case OpChangeStatus:
		// product owners manage scope, not day to day workflow
		return isCreator || isAssignee || hasRole(actor, models.RoleAdmin, models.RoleScrumMaster)
	case OpSprintMembership:
		return hasRole(actor, models.RoleAdmin, models.RoleScrumMaster, models.RoleProductOwner)
	case OpEpicMembership, OpManageEpic:
		return hasRole(actor, models.RoleAdmin, models.RoleProductOwner)
	case OpDelete:
		return hasRole(actor, models.RoleAdmin, models.RoleScrumMaster) ||
			(isCreator && target.StatusName == models.StatusBacklog)
	case OpManageSprint:
		return hasRole(actor, models.RoleAdmin, models.RoleScrumMaster)
	case OpManageRoles:
		return hasRole(actor, models.RoleAdmin)
	default:
		return false
	}
}

func hasRole(actor Actor, roles ...string) bool {
	for _, r := range roles {
		if actor.Role == r {
			return true
		}
	}
	return false
}
