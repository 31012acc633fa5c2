package task

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/samber/lo"

	"taskboard/internal/models"
)

// DefaultRecentHours is the window used when a caller does not ask for one.
const DefaultRecentHours = 24

// List returns every task.
func (s *Service) List(ctx context.Context) ([]models.TaskView, error) {
	return s.Filter(ctx, models.TaskFilter{})
}

// Get returns a single task.
func (s *Service) Get(ctx context.Context, id string) (models.TaskView, error) {
	t, err := s.stores.Tasks.GetTask(ctx, id)
	if err != nil {
		return models.TaskView{}, err
	}
	return s.projectOne(ctx, t)
}

// ByAssignee returns the tasks assigned to an existing user.
func (s *Service) ByAssignee(ctx context.Context, userID string) ([]models.TaskView, error) {
	if _, err := s.stores.Users.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	return s.Filter(ctx, models.TaskFilter{AssignedToID: &userID})
}

// ActiveForUser returns the user's unfinished tasks.
func (s *Service) ActiveForUser(ctx context.Context, userID string) ([]models.TaskView, error) {
	tasks, err := s.stores.Tasks.ListActiveForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.project(ctx, tasks)
}

// ByEpic returns the tasks of an existing epic.
func (s *Service) ByEpic(ctx context.Context, epicID string) ([]models.TaskView, error) {
	if _, err := s.stores.Epics.GetEpic(ctx, epicID); err != nil {
		return nil, err
	}
	return s.Filter(ctx, models.TaskFilter{EpicID: &epicID})
}

// BySprint returns the tasks of an existing sprint.
func (s *Service) BySprint(ctx context.Context, sprintID string) ([]models.TaskView, error) {
	if _, err := s.stores.Sprints.GetSprint(ctx, sprintID); err != nil {
		return nil, err
	}
	return s.Filter(ctx, models.TaskFilter{SprintID: &sprintID})
}

// SprintStats counts the sprint's tasks per status name. Every known status
// has an entry, so the values sum to the sprint's task count.
func (s *Service) SprintStats(ctx context.Context, sprintID string) (map[string]int64, error) {
	if _, err := s.stores.Sprints.GetSprint(ctx, sprintID); err != nil {
		return nil, err
	}
	statuses, err := s.stores.Statuses.ListStatuses(ctx)
	if err != nil {
		return nil, err
	}
	counts, err := s.stores.Tasks.CountSprintTasksByStatus(ctx, sprintID)
	if err != nil {
		return nil, err
	}

	stats := make(map[string]int64, len(statuses))
	for _, st := range statuses {
		stats[st.Name] = counts[st.ID]
	}
	return stats, nil
}

// Overdue returns unfinished tasks past their due date.
func (s *Service) Overdue(ctx context.Context) ([]models.TaskView, error) {
	tasks, err := s.stores.Tasks.ListOverdue(ctx, s.now())
	if err != nil {
		return nil, err
	}
	return s.project(ctx, tasks)
}

// RecentlyUpdated returns tasks touched in the last hours, newest first.
func (s *Service) RecentlyUpdated(ctx context.Context, hours int) ([]models.TaskView, error) {
	if hours <= 0 {
		return nil, fmt.Errorf("%w: hours must be positive, got %d", models.ErrValidation, hours)
	}
	since := s.now().Add(-time.Duration(hours) * time.Hour)
	tasks, err := s.stores.Tasks.ListUpdatedSince(ctx, since)
	if err != nil {
		return nil, err
	}
	return s.project(ctx, tasks)
}

// Filter returns the tasks matching every criterion that is set.
func (s *Service) Filter(ctx context.Context, f models.TaskFilter) ([]models.TaskView, error) {
	tasks, err := s.stores.Tasks.ListTasks(ctx, f)
	if err != nil {
		return nil, err
	}
	return s.project(ctx, tasks)
}

func (s *Service) projectOne(ctx context.Context, t models.Task) (models.TaskView, error) {
	views, err := s.project(ctx, []models.Task{t})
	if err != nil {
		return models.TaskView{}, err
	}
	return views[0], nil
}

// project resolves reference names once per call.
func (s *Service) project(ctx context.Context, tasks []models.Task) ([]models.TaskView, error) {
	if len(tasks) == 0 {
		return []models.TaskView{}, nil
	}

	statuses, err := s.stores.Statuses.ListStatuses(ctx)
	if err != nil {
		return nil, err
	}
	priorities, err := s.stores.Priorities.ListPriorities(ctx)
	if err != nil {
		return nil, err
	}
	statusNames := lo.MapValues(lo.KeyBy(statuses, func(st models.TaskStatus) string { return st.ID }),
		func(st models.TaskStatus, _ string) string { return st.Name })
	priorityNames := lo.MapValues(lo.KeyBy(priorities, func(p models.TaskPriority) string { return p.ID }),
		func(p models.TaskPriority, _ string) string { return p.Name })

	userNames, err := resolveNames(ctx, lo.Map(tasks, func(t models.Task, _ int) string { return t.AssignedToID }),
		func(ctx context.Context, id string) (string, error) {
			u, err := s.stores.Users.GetUser(ctx, id)
			return u.Name, err
		})
	if err != nil {
		return nil, err
	}
	epicNames, err := resolveNames(ctx, optionalIDs(tasks, func(t models.Task) *string { return t.EpicID }),
		func(ctx context.Context, id string) (string, error) {
			e, err := s.stores.Epics.GetEpic(ctx, id)
			return e.Name, err
		})
	if err != nil {
		return nil, err
	}
	sprintNames, err := resolveNames(ctx, optionalIDs(tasks, func(t models.Task) *string { return t.SprintID }),
		func(ctx context.Context, id string) (string, error) {
			sp, err := s.stores.Sprints.GetSprint(ctx, id)
			return sp.Name, err
		})
	if err != nil {
		return nil, err
	}

	return lo.Map(tasks, func(t models.Task, _ int) models.TaskView {
		v := models.TaskView{
			ID:             t.ID,
			Title:          t.Title,
			Description:    t.Description,
			StoryPoints:    t.StoryPoints,
			EstimatedHours: t.EstimatedHours,
			DueDate:        t.DueDate,
			CompletedAt:    t.CompletedAt,
			CreatedAt:      t.CreatedAt,
			UpdatedAt:      t.UpdatedAt,
			CreatedByID:    t.CreatedByID,
			AssignedToID:   t.AssignedToID,
			AssignedToName: userNames[t.AssignedToID],
			StatusID:       t.StatusID,
			StatusName:     statusNames[t.StatusID],
			PriorityID:     t.PriorityID,
			PriorityName:   priorityNames[t.PriorityID],
			EpicID:         t.EpicID,
			SprintID:       t.SprintID,
		}
		if t.EpicID != nil {
			v.EpicName = epicNames[*t.EpicID]
		}
		if t.SprintID != nil {
			v.SprintName = sprintNames[*t.SprintID]
		}
		return v
	}), nil
}

func optionalIDs(tasks []models.Task, pick func(models.Task) *string) []string {
	return lo.FilterMap(tasks, func(t models.Task, _ int) (string, bool) {
		id := pick(t)
		if id == nil {
			return "", false
		}
		return *id, true
	})
}

// resolveNames looks each distinct id up once. A reference that disappeared
// between reads projects as an empty name.
func resolveNames(ctx context.Context, ids []string, lookup func(context.Context, string) (string, error)) (map[string]string, error) {
	names := make(map[string]string)
	for _, id := range lo.Uniq(ids) {
		name, err := lookup(ctx, id)
		if errors.Is(err, models.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		names[id] = name
	}
	return names, nil
}
