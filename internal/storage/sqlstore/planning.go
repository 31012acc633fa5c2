package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"taskboard/internal/models"
)

const epicColumns = `id, name, description, owner_id, story_points, start_date, target_end_date, actual_end_date, created_at, updated_at`

func scanEpic(row interface{ Scan(...any) error }) (models.Epic, error) {
	var (
		e         models.Epic
		actualEnd sql.NullTime
	)
	err := row.Scan(&e.ID, &e.Name, &e.Description, &e.OwnerID, &e.StoryPoints, &e.StartDate, &e.TargetEndDate, &actualEnd, &e.CreatedAt, &e.UpdatedAt)
	e.ActualEndDate = timePtr(actualEnd)
	return e, err
}

// ListEpics returns all epics ordered by start date.
func (s *Store) ListEpics(ctx context.Context) ([]models.Epic, error) {
	rows, err := s.query(ctx, `SELECT `+epicColumns+` FROM epics ORDER BY start_date, name`)
	if err != nil {
		return nil, fmt.Errorf("list epics: %w", err)
	}
	defer rows.Close()

	var epics []models.Epic
	for rows.Next() {
		e, err := scanEpic(rows)
		if err != nil {
			return nil, fmt.Errorf("scan epic: %w", err)
		}
		epics = append(epics, e)
	}
	return epics, rows.Err()
}

// GetEpic fetches a single epic by id.
func (s *Store) GetEpic(ctx context.Context, id string) (models.Epic, error) {
	e, err := scanEpic(s.queryRow(ctx, `SELECT `+epicColumns+` FROM epics WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Epic{}, notFound("epic", id)
	}
	if err != nil {
		return models.Epic{}, fmt.Errorf("get epic: %w", err)
	}
	return e, nil
}

// CreateEpic persists a new epic.
func (s *Store) CreateEpic(ctx context.Context, e models.Epic) (models.Epic, error) {
	if strings.TrimSpace(e.Name) == "" {
		return models.Epic{}, fmt.Errorf("epic name must not be empty")
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	now := s.timestamp()

	_, err := s.exec(ctx, `INSERT INTO epics(`+epicColumns+`) VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, strings.TrimSpace(e.Name), e.Description, e.OwnerID, e.StoryPoints,
		e.StartDate.UTC(), e.TargetEndDate.UTC(), nullTime(e.ActualEndDate), now, now)
	if err != nil {
		return models.Epic{}, fmt.Errorf("insert epic: %w", err)
	}
	return s.GetEpic(ctx, e.ID)
}

const sprintColumns = `id, name, goal, scrum_master_id, capacity_points, start_date, end_date, active, created_at, updated_at`

func scanSprint(row interface{ Scan(...any) error }) (models.Sprint, error) {
	var sp models.Sprint
	err := row.Scan(&sp.ID, &sp.Name, &sp.Goal, &sp.ScrumMasterID, &sp.CapacityPoints, &sp.StartDate, &sp.EndDate, &sp.Active, &sp.CreatedAt, &sp.UpdatedAt)
	return sp, err
}

// ListSprints returns all sprints ordered by start date.
func (s *Store) ListSprints(ctx context.Context) ([]models.Sprint, error) {
	rows, err := s.query(ctx, `SELECT `+sprintColumns+` FROM sprints ORDER BY start_date, name`)
	if err != nil {
		return nil, fmt.Errorf("list sprints: %w", err)
	}
	defer rows.Close()

	var sprints []models.Sprint
	for rows.Next() {
		sp, err := scanSprint(rows)
		if err != nil {
			return nil, fmt.Errorf("scan sprint: %w", err)
		}
		sprints = append(sprints, sp)
	}
	return sprints, rows.Err()
}

// GetSprint fetches a single sprint by id.
func (s *Store) GetSprint(ctx context.Context, id string) (models.Sprint, error) {
	sp, err := scanSprint(s.queryRow(ctx, `SELECT `+sprintColumns+` FROM sprints WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Sprint{}, notFound("sprint", id)
	}
	if err != nil {
		return models.Sprint{}, fmt.Errorf("get sprint: %w", err)
	}
	return sp, nil
}

// CreateSprint persists a new sprint.
func (s *Store) CreateSprint(ctx context.Context, sp models.Sprint) (models.Sprint, error) {
	if strings.TrimSpace(sp.Name) == "" {
		return models.Sprint{}, fmt.Errorf("sprint name must not be empty")
	}
	if sp.ID == "" {
		sp.ID = uuid.NewString()
	}
	now := s.timestamp()

	_, err := s.exec(ctx, `INSERT INTO sprints(`+sprintColumns+`) VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sp.ID, strings.TrimSpace(sp.Name), sp.Goal, sp.ScrumMasterID, sp.CapacityPoints,
		sp.StartDate.UTC(), sp.EndDate.UTC(), sp.Active, now, now)
	if err != nil {
		return models.Sprint{}, fmt.Errorf("insert sprint: %w", err)
	}
	return s.GetSprint(ctx, sp.ID)
}

// SetSprintActive starts or ends a sprint.
func (s *Store) SetSprintActive(ctx context.Context, id string, active bool) (models.Sprint, error) {
	res, err := s.exec(ctx, `UPDATE sprints SET active = ?, updated_at = ? WHERE id = ?`, active, s.timestamp(), id)
	if err != nil {
		return models.Sprint{}, fmt.Errorf("update sprint: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return models.Sprint{}, err
	}
	if affected == 0 {
		return models.Sprint{}, notFound("sprint", id)
	}
	return s.GetSprint(ctx, id)
}
