// Package planning manages epics, sprints, user roles and the read-only
// reference data the board is built from.
package planning

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"

	"taskboard/internal/models"
	"taskboard/internal/policy"
)

// Store is the slice of the entity store planning needs.
type Store interface {
	ListRoles(ctx context.Context) ([]models.Role, error)
	GetRoleByName(ctx context.Context, name string) (models.Role, error)
	ListStatuses(ctx context.Context) ([]models.TaskStatus, error)
	ListPriorities(ctx context.Context) ([]models.TaskPriority, error)

	GetUser(ctx context.Context, id string) (models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	UpdateUserRole(ctx context.Context, userID, roleID string) (models.User, error)

	ListEpics(ctx context.Context) ([]models.Epic, error)
	GetEpic(ctx context.Context, id string) (models.Epic, error)
	CreateEpic(ctx context.Context, e models.Epic) (models.Epic, error)

	ListSprints(ctx context.Context) ([]models.Sprint, error)
	GetSprint(ctx context.Context, id string) (models.Sprint, error)
	CreateSprint(ctx context.Context, sp models.Sprint) (models.Sprint, error)
	SetSprintActive(ctx context.Context, id string, active bool) (models.Sprint, error)
}

// Service manages reference data, users, epics and sprints.
type Service struct {
	store    Store
	logger   *slog.Logger
	validate *validator.Validate
}

// NewService returns a planning service backed by store.
func NewService(store Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, logger: logger, validate: validator.New()}
}

// ListStatuses returns the board columns in display order.
func (s *Service) ListStatuses(ctx context.Context) ([]models.TaskStatus, error) {
	return nonNil(s.store.ListStatuses(ctx))
}

// ListPriorities returns every task priority.
func (s *Service) ListPriorities(ctx context.Context) ([]models.TaskPriority, error) {
	return nonNil(s.store.ListPriorities(ctx))
}

// ListRoles returns every role.
func (s *Service) ListRoles(ctx context.Context) ([]models.Role, error) {
	return nonNil(s.store.ListRoles(ctx))
}

// ListUsers returns every provisioned user.
func (s *Service) ListUsers(ctx context.Context) ([]models.User, error) {
	return nonNil(s.store.ListUsers(ctx))
}

// GetUser returns one user or ErrNotFound.
func (s *Service) GetUser(ctx context.Context, id string) (models.User, error) {
	return s.store.GetUser(ctx, id)
}

// ChangeUserRole moves a user to roleName. Only admins may do this.
func (s *Service) ChangeUserRole(ctx context.Context, userID, roleName, actorID string) (models.User, error) {
	if _, err := s.authorize(ctx, policy.OpManageRoles, actorID, "change user roles"); err != nil {
		return models.User{}, err
	}
	if _, err := s.store.GetUser(ctx, userID); err != nil {
		return models.User{}, err
	}
	role, err := s.store.GetRoleByName(ctx, strings.ToUpper(roleName))
	if err != nil {
		return models.User{}, err
	}
	user, err := s.store.UpdateUserRole(ctx, userID, role.ID)
	if err != nil {
		return models.User{}, err
	}
	s.logger.Info("user role changed", slog.String("user", user.ID), slog.String("role", role.Name), slog.String("actor", actorID))
	return user, nil
}

// ListEpics returns every epic.
func (s *Service) ListEpics(ctx context.Context) ([]models.Epic, error) {
	return nonNil(s.store.ListEpics(ctx))
}

// GetEpic returns one epic or ErrNotFound.
func (s *Service) GetEpic(ctx context.Context, id string) (models.Epic, error) {
	return s.store.GetEpic(ctx, id)
}

// CreateEpic stores a new epic owned by the actor.
func (s *Service) CreateEpic(ctx context.Context, in models.EpicInput, actorID string) (models.Epic, error) {
	if err := s.check(in); err != nil {
		return models.Epic{}, err
	}
	if in.TargetEndDate.Before(in.StartDate) {
		return models.Epic{}, fmt.Errorf("%w: target end date is before start date", models.ErrValidation)
	}
	actor, err := s.authorize(ctx, policy.OpManageEpic, actorID, "create epics")
	if err != nil {
		return models.Epic{}, err
	}

	epic, err := s.store.CreateEpic(ctx, models.Epic{
		Name:          in.Name,
		Description:   in.Description,
		OwnerID:       actor.ID,
		StoryPoints:   in.StoryPoints,
		StartDate:     in.StartDate,
		TargetEndDate: in.TargetEndDate,
	})
	if err != nil {
		return models.Epic{}, err
	}
	s.logger.Info("epic created", slog.String("epic", epic.ID), slog.String("owner", actor.ID))
	return epic, nil
}

// ListSprints returns every sprint.
func (s *Service) ListSprints(ctx context.Context) ([]models.Sprint, error) {
	return nonNil(s.store.ListSprints(ctx))
}

// GetSprint returns one sprint or ErrNotFound.
func (s *Service) GetSprint(ctx context.Context, id string) (models.Sprint, error) {
	return s.store.GetSprint(ctx, id)
}

// CreateSprint stores a new, not yet started sprint run by the actor.
func (s *Service) CreateSprint(ctx context.Context, in models.SprintInput, actorID string) (models.Sprint, error) {
	if err := s.check(in); err != nil {
		return models.Sprint{}, err
	}
	if !in.EndDate.After(in.StartDate) {
		return models.Sprint{}, fmt.Errorf("%w: end date must be after start date", models.ErrValidation)
	}
	actor, err := s.authorize(ctx, policy.OpManageSprint, actorID, "create sprints")
	if err != nil {
		return models.Sprint{}, err
	}

	sprint, err := s.store.CreateSprint(ctx, models.Sprint{
		Name:           in.Name,
		Goal:           in.Goal,
		ScrumMasterID:  actor.ID,
		CapacityPoints: in.CapacityPoints,
		StartDate:      in.StartDate,
		EndDate:        in.EndDate,
	})
	if err != nil {
		return models.Sprint{}, err
	}
	s.logger.Info("sprint created", slog.String("sprint", sprint.ID), slog.String("scrum_master", actor.ID))
	return sprint, nil
}

// StartSprint opens a sprint for new tasks.
func (s *Service) StartSprint(ctx context.Context, id, actorID string) (models.Sprint, error) {
	return s.setActive(ctx, id, actorID, true)
}

// EndSprint closes a sprint. Its tasks keep their membership.
func (s *Service) EndSprint(ctx context.Context, id, actorID string) (models.Sprint, error) {
	return s.setActive(ctx, id, actorID, false)
}

func (s *Service) setActive(ctx context.Context, id, actorID string, active bool) (models.Sprint, error) {
	if _, err := s.authorize(ctx, policy.OpManageSprint, actorID, "start or end sprints"); err != nil {
		return models.Sprint{}, err
	}
	current, err := s.store.GetSprint(ctx, id)
	if err != nil {
		return models.Sprint{}, err
	}
	if current.Active == active {
		return models.Sprint{}, fmt.Errorf("sprint %s is already %s: %w", id, activity(active), models.ErrInvalidState)
	}
	sprint, err := s.store.SetSprintActive(ctx, id, active)
	if err != nil {
		return models.Sprint{}, err
	}
	s.logger.Info("sprint "+activity(active), slog.String("sprint", id), slog.String("actor", actorID))
	return sprint, nil
}

func (s *Service) authorize(ctx context.Context, op policy.Operation, actorID, what string) (policy.Actor, error) {
	user, err := s.store.GetUser(ctx, actorID)
	if err != nil {
		return policy.Actor{}, fmt.Errorf("actor: %w", err)
	}
	actor := policy.Actor{ID: user.ID, Role: user.RoleName}
	if !policy.Authorize(op, actor, policy.Target{}) {
		return policy.Actor{}, fmt.Errorf("you don't have permission to %s: %w", what, models.ErrForbidden)
	}
	return actor, nil
}

func (s *Service) check(in any) error {
	if err := s.validate.Struct(in); err != nil {
		return fmt.Errorf("%w: %s", models.ErrValidation, err.Error())
	}
	return nil
}

func activity(active bool) string {
	if active {
		return "started"
	}
	return "ended"
}

func nonNil[T any](items []T, err error) ([]T, error) {
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}
