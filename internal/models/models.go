package models

import "time"

// Role names used by the authorization policy.
const (
	RoleAdmin        = "ADMIN"
	RoleScrumMaster  = "SCRUM_MASTER"
	RoleProductOwner = "PRODUCT_OWNER"
	RoleDeveloper    = "DEVELOPER"
)

// Status names with lifecycle meaning.
const (
	StatusBacklog    = "BACKLOG"
	StatusTodo       = "TODO"
	StatusInProgress = "IN_PROGRESS"
	StatusDone       = "DONE"
)

// Role is static reference data used only for authorization checks.
type Role struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// User is created on the first successful Google sign-in.
type User struct {
	ID        string    `json:"id"`
	GoogleID  string    `json:"googleId"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	RoleID    string    `json:"roleId"`
	RoleName  string    `json:"roleName"`
	CreatedAt time.Time `json:"createdAt"`
}

// TaskStatus is a board column. The set is reference data, not a fixed enum.
type TaskStatus struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	DisplayOrder int    `json:"displayOrder"`
}

// TaskPriority orders tasks by urgency.
type TaskPriority struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// Epic groups related tasks under a shared goal.
type Epic struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Description   string     `json:"description"`
	OwnerID       string     `json:"ownerId"`
	StoryPoints   int        `json:"storyPoints"`
	StartDate     time.Time  `json:"startDate"`
	TargetEndDate time.Time  `json:"targetEndDate"`
	ActualEndDate *time.Time `json:"actualEndDate,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// Sprint is a time-boxed container of tasks. Only active sprints accept new tasks.
type Sprint struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Goal           string    `json:"goal"`
	ScrumMasterID  string    `json:"scrumMasterId"`
	CapacityPoints int       `json:"capacityPoints"`
	StartDate      time.Time `json:"startDate"`
	EndDate        time.Time `json:"endDate"`
	Active         bool      `json:"active"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// Task is the persisted record. References to other entities are ids only.
type Task struct {
	ID             string
	EpicID         *string
	SprintID       *string
	CreatedByID    string
	AssignedToID   string
	StatusID       string
	PriorityID     string
	Title          string
	Description    string
	StoryPoints    int
	EstimatedHours int
	DueDate        time.Time
	CompletedAt    *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// TaskFilter is a conjunction of optional equality predicates. Nil fields impose no constraint.
type TaskFilter struct {
	AssignedToID *string `json:"assignedToId"`
	StatusID     *string `json:"statusId"`
	PriorityID   *string `json:"priorityId"`
	SprintID     *string `json:"sprintId"`
	EpicID       *string `json:"epicId"`
}
