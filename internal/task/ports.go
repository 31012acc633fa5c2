package task

import (
	"context"
	"time"

	"taskboard/internal/models"
)

// TaskStore persists tasks.
type TaskStore interface {
	GetTask(ctx context.Context, id string) (models.Task, error)
	CreateTask(ctx context.Context, t models.Task) (models.Task, error)
	SaveTask(ctx context.Context, t models.Task) (models.Task, error)
	DeleteTask(ctx context.Context, id string) error
	ListTasks(ctx context.Context, f models.TaskFilter) ([]models.Task, error)
	ListActiveForUser(ctx context.Context, userID string) ([]models.Task, error)
	ListOverdue(ctx context.Context, now time.Time) ([]models.Task, error)
	ListUpdatedSince(ctx context.Context, since time.Time) ([]models.Task, error)
	CountSprintTasksByStatus(ctx context.Context, sprintID string) (map[string]int64, error)
}

// UserStore resolves users.
type UserStore interface {
	GetUser(ctx context.Context, id string) (models.User, error)
}

// StatusStore resolves statuses.
type StatusStore interface {
	GetStatus(ctx context.Context, id string) (models.TaskStatus, error)
	ListStatuses(ctx context.Context) ([]models.TaskStatus, error)
}

// PriorityStore resolves priorities.
type PriorityStore interface {
	GetPriority(ctx context.Context, id string) (models.TaskPriority, error)
	ListPriorities(ctx context.Context) ([]models.TaskPriority, error)
}

// EpicStore resolves epics.
type EpicStore interface {
	GetEpic(ctx context.Context, id string) (models.Epic, error)
}

// SprintStore resolves sprints.
type SprintStore interface {
	GetSprint(ctx context.Context, id string) (models.Sprint, error)
}

// Stores bundles one port per entity kind.
type Stores struct {
	Tasks      TaskStore
	Users      UserStore
	Statuses   StatusStore
	Priorities PriorityStore
	Epics      EpicStore
	Sprints    SprintStore
}
