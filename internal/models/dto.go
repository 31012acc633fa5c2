package models

import "time"

// TaskInput carries the caller supplied fields for create and full update.
type TaskInput struct {
	Title          string    `json:"title" binding:"required" validate:"required"`
	Description    string    `json:"description" binding:"required" validate:"required"`
	AssignedToID   string    `json:"assignedToId" binding:"required,uuid" validate:"required,uuid"`
	StatusID       string    `json:"statusId" binding:"required,uuid" validate:"required,uuid"`
	PriorityID     string    `json:"priorityId" binding:"required,uuid" validate:"required,uuid"`
	StoryPoints    int       `json:"storyPoints" binding:"min=0" validate:"min=0"`
	EstimatedHours int       `json:"estimatedHours" binding:"min=0" validate:"min=0"`
	DueDate        time.Time `json:"dueDate" binding:"required" validate:"required"`
	EpicID         *string   `json:"epicId" binding:"omitempty,uuid" validate:"omitempty,uuid"`
	SprintID       *string   `json:"sprintId" binding:"omitempty,uuid" validate:"omitempty,uuid"`
}

// TaskView is the read projection returned to API callers.
type TaskView struct {
	ID             string     `json:"id"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	StoryPoints    int        `json:"storyPoints"`
	EstimatedHours int        `json:"estimatedHours"`
	DueDate        time.Time  `json:"dueDate"`
	CompletedAt    *time.Time `json:"completedAt"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
	CreatedByID    string     `json:"createdById"`
	AssignedToID   string     `json:"assignedToId"`
	AssignedToName string     `json:"assignedToName"`
	StatusID       string     `json:"statusId"`
	StatusName     string     `json:"statusName"`
	PriorityID     string     `json:"priorityId"`
	PriorityName   string     `json:"priorityName"`
	EpicID         *string    `json:"epicId"`
	EpicName       string     `json:"epicName,omitempty"`
	SprintID       *string    `json:"sprintId"`
	SprintName     string     `json:"sprintName,omitempty"`
}

// EpicInput is the body accepted when creating an epic.
type EpicInput struct {
	Name          string    `json:"name" binding:"required" validate:"required"`
	Description   string    `json:"description" binding:"required" validate:"required"`
	StoryPoints   int       `json:"storyPoints" binding:"min=0" validate:"min=0"`
	StartDate     time.Time `json:"startDate" binding:"required" validate:"required"`
	TargetEndDate time.Time `json:"targetEndDate" binding:"required" validate:"required"`
}

// SprintInput is the body accepted when creating a sprint.
type SprintInput struct {
	Name           string    `json:"name" binding:"required" validate:"required"`
	Goal           string    `json:"goal"`
	CapacityPoints int       `json:"capacityPoints" binding:"min=0" validate:"min=0"`
	StartDate      time.Time `json:"startDate" binding:"required" validate:"required"`
	EndDate        time.Time `json:"endDate" binding:"required" validate:"required"`
}

// AuthResult is returned after a successful Google sign-in.
type AuthResult struct {
	Token  string `json:"token"`
	UserID string `json:"userId"`
	Name   string `json:"name"`
	Email  string `json:"email"`
}
