package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"taskboard/internal/models"
)

const taskColumns = `t.id, t.epic_id, t.sprint_id, t.created_by_id, t.assigned_to_id, t.status_id, t.priority_id,
        t.title, t.description, t.story_points, t.estimated_hours, t.due_date, t.completed_at, t.created_at, t.updated_at`

func scanTask(row interface{ Scan(...any) error }) (models.Task, error) {
	var (
		t           models.Task
		epicID      sql.NullString
		sprintID    sql.NullString
		completedAt sql.NullTime
	)
	err := row.Scan(&t.ID, &epicID, &sprintID, &t.CreatedByID, &t.AssignedToID, &t.StatusID, &t.PriorityID,
		&t.Title, &t.Description, &t.StoryPoints, &t.EstimatedHours, &t.DueDate, &completedAt, &t.CreatedAt, &t.UpdatedAt)
	t.EpicID = stringPtr(epicID)
	t.SprintID = stringPtr(sprintID)
	t.CompletedAt = timePtr(completedAt)
	return t, err
}

func (s *Store) listTasks(ctx context.Context, query string, args ...any) ([]models.Task, error) {
	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// GetTask retrieves a task by id.
func (s *Store) GetTask(ctx context.Context, id string) (models.Task, error) {
	t, err := scanTask(s.queryRow(ctx, `SELECT `+taskColumns+` FROM tasks t WHERE t.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Task{}, notFound("task", id)
	}
	if err != nil {
		return models.Task{}, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

// CreateTask inserts a new task. Timestamps are managed by the store.
func (s *Store) CreateTask(ctx context.Context, t models.Task) (models.Task, error) {
	if strings.TrimSpace(t.Title) == "" {
		return models.Task{}, fmt.Errorf("task title must not be empty: %w", models.ErrValidation)
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	now := s.timestamp()

	_, err := s.exec(ctx, `INSERT INTO tasks(id, epic_id, sprint_id, created_by_id, assigned_to_id, status_id, priority_id,
        title, description, story_points, estimated_hours, due_date, completed_at, created_at, updated_at)
        VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, nullString(t.EpicID), nullString(t.SprintID), t.CreatedByID, t.AssignedToID, t.StatusID, t.PriorityID,
		strings.TrimSpace(t.Title), strings.TrimSpace(t.Description), t.StoryPoints, t.EstimatedHours,
		t.DueDate.UTC(), nullTime(t.CompletedAt), now, now)
	if err != nil {
		return models.Task{}, fmt.Errorf("insert task: %w", err)
	}
	return s.GetTask(ctx, t.ID)
}

// SaveTask overwrites every mutable column of an existing task. The creator
// and creation time are never touched.
func (s *Store) SaveTask(ctx context.Context, t models.Task) (models.Task, error) {
	res, err := s.exec(ctx, `UPDATE tasks SET epic_id = ?, sprint_id = ?, assigned_to_id = ?, status_id = ?, priority_id = ?,
        title = ?, description = ?, story_points = ?, estimated_hours = ?, due_date = ?, completed_at = ?, updated_at = ?
        WHERE id = ?`,
		nullString(t.EpicID), nullString(t.SprintID), t.AssignedToID, t.StatusID, t.PriorityID,
		strings.TrimSpace(t.Title), strings.TrimSpace(t.Description), t.StoryPoints, t.EstimatedHours,
		t.DueDate.UTC(), nullTime(t.CompletedAt), s.timestamp(), t.ID)
	if err != nil {
		return models.Task{}, fmt.Errorf("update task: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return models.Task{}, err
	}
	if affected == 0 {
		return models.Task{}, notFound("task", t.ID)
	}
	return s.GetTask(ctx, t.ID)
}

// DeleteTask removes a task by id.
func (s *Store) DeleteTask(ctx context.Context, id string) error {
	res, err := s.exec(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return notFound("task", id)
	}
	return nil
}

// ListTasks returns the tasks matching every non-nil field of the filter.
func (s *Store) ListTasks(ctx context.Context, f models.TaskFilter) ([]models.Task, error) {
	var (
		where []string
		args  []any
	)
	add := func(column string, v *string) {
		if v == nil {
			return
		}
		where = append(where, column+" = ?")
		args = append(args, *v)
	}
	add("t.assigned_to_id", f.AssignedToID)
	add("t.status_id", f.StatusID)
	add("t.priority_id", f.PriorityID)
	add("t.sprint_id", f.SprintID)
	add("t.epic_id", f.EpicID)

	query := `SELECT ` + taskColumns + ` FROM tasks t`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY t.created_at, t.id`
	return s.listTasks(ctx, query, args...)
}

// ListActiveForUser returns the user's tasks that are not finished. A DONE row
// without a completion stamp still counts as active.
func (s *Store) ListActiveForUser(ctx context.Context, userID string) ([]models.Task, error) {
	return s.listTasks(ctx, `SELECT `+taskColumns+` FROM tasks t JOIN task_statuses st ON st.id = t.status_id
        WHERE t.assigned_to_id = ? AND (st.name <> ? OR t.completed_at IS NULL)
        ORDER BY t.due_date, t.id`, userID, models.StatusDone)
}

// ListOverdue returns unfinished tasks whose due date is before now.
func (s *Store) ListOverdue(ctx context.Context, now time.Time) ([]models.Task, error) {
	return s.listTasks(ctx, `SELECT `+taskColumns+` FROM tasks t
        WHERE t.due_date < ? AND t.completed_at IS NULL ORDER BY t.due_date, t.id`, now.UTC())
}

// ListUpdatedSince returns tasks updated at or after since, most recent first.
func (s *Store) ListUpdatedSince(ctx context.Context, since time.Time) ([]models.Task, error) {
	return s.listTasks(ctx, `SELECT `+taskColumns+` FROM tasks t
        WHERE t.updated_at >= ? ORDER BY t.updated_at DESC, t.id`, since.UTC())
}

// CountSprintTasksByStatus returns statusID -> task count for a sprint. Statuses
// without tasks are absent.
func (s *Store) CountSprintTasksByStatus(ctx context.Context, sprintID string) (map[string]int64, error) {
	rows, err := s.query(ctx, `SELECT status_id, COUNT(*) FROM tasks WHERE sprint_id = ? GROUP BY status_id`, sprintID)
	if err != nil {
		return nil, fmt.Errorf("count sprint tasks: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var (
			statusID string
			count    int64
		)
		if err := rows.Scan(&statusID, &count); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[statusID] = count
	}
	return counts, rows.Err()
}
