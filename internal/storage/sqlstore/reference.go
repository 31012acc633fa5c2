package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"taskboard/internal/models"
)

// ListRoles returns the seeded roles.
func (s *Store) ListRoles(ctx context.Context) ([]models.Role, error) {
	rows, err := s.query(ctx, `SELECT id, name FROM roles ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	defer rows.Close()

	var roles []models.Role
	for rows.Next() {
		var r models.Role
		if err := rows.Scan(&r.ID, &r.Name); err != nil {
			return nil, fmt.Errorf("scan role: %w", err)
		}
		roles = append(roles, r)
	}
	return roles, rows.Err()
}

// GetRoleByName resolves a role by its unique name.
func (s *Store) GetRoleByName(ctx context.Context, name string) (models.Role, error) {
	var r models.Role
	err := s.queryRow(ctx, `SELECT id, name FROM roles WHERE name = ?`, name).Scan(&r.ID, &r.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Role{}, notFound("role", name)
	}
	if err != nil {
		return models.Role{}, fmt.Errorf("get role: %w", err)
	}
	return r, nil
}

// ListStatuses returns the statuses in board order.
func (s *Store) ListStatuses(ctx context.Context) ([]models.TaskStatus, error) {
	rows, err := s.query(ctx, `SELECT id, name, display_order FROM task_statuses ORDER BY display_order, name`)
	if err != nil {
		return nil, fmt.Errorf("list statuses: %w", err)
	}
	defer rows.Close()

	var statuses []models.TaskStatus
	for rows.Next() {
		var st models.TaskStatus
		if err := rows.Scan(&st.ID, &st.Name, &st.DisplayOrder); err != nil {
			return nil, fmt.Errorf("scan status: %w", err)
		}
		statuses = append(statuses, st)
	}
	return statuses, rows.Err()
}

// GetStatus fetches a status by id.
func (s *Store) GetStatus(ctx context.Context, id string) (models.TaskStatus, error) {
	var st models.TaskStatus
	err := s.queryRow(ctx, `SELECT id, name, display_order FROM task_statuses WHERE id = ?`, id).
		Scan(&st.ID, &st.Name, &st.DisplayOrder)
	if errors.Is(err, sql.ErrNoRows) {
		return models.TaskStatus{}, notFound("status", id)
	}
	if err != nil {
		return models.TaskStatus{}, fmt.Errorf("get status: %w", err)
	}
	return st, nil
}

// ListPriorities returns priorities ordered by value.
func (s *Store) ListPriorities(ctx context.Context) ([]models.TaskPriority, error) {
	rows, err := s.query(ctx, `SELECT id, name, value FROM task_priorities ORDER BY value, name`)
	if err != nil {
		return nil, fmt.Errorf("list priorities: %w", err)
	}
	defer rows.Close()

	var priorities []models.TaskPriority
	for rows.Next() {
		var p models.TaskPriority
		if err := rows.Scan(&p.ID, &p.Name, &p.Value); err != nil {
			return nil, fmt.Errorf("scan priority: %w", err)
		}
		priorities = append(priorities, p)
	}
	return priorities, rows.Err()
}

// GetPriority fetches a priority by id.
func (s *Store) GetPriority(ctx context.Context, id string) (models.TaskPriority, error) {
	var p models.TaskPriority
	err := s.queryRow(ctx, `SELECT id, name, value FROM task_priorities WHERE id = ?`, id).
		Scan(&p.ID, &p.Name, &p.Value)
	if errors.Is(err, sql.ErrNoRows) {
		return models.TaskPriority{}, notFound("priority", id)
	}
	if err != nil {
		return models.TaskPriority{}, fmt.Errorf("get priority: %w", err)
	}
	return p, nil
}
