// Package task implements the task lifecycle: who may change a task, how, and
// the derived completion timestamp. It also serves the read-side queries.
package task

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"taskboard/internal/models"
	"taskboard/internal/policy"
)

// Service gatekeeps every task mutation and keeps completedAt consistent with status.
type Service struct {
	stores   Stores
	logger   *slog.Logger
	validate *validator.Validate
	now      func() time.Time
}

// NewService wires the service to its storage ports.
func NewService(stores Stores, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		stores:   stores,
		logger:   logger,
		validate: validator.New(),
		now:      time.Now,
	}
}

// Create stores a new task owned by actorID.
func (s *Service) Create(ctx context.Context, in models.TaskInput, actorID string) (models.TaskView, error) {
	if err := s.validateInput(in); err != nil {
		return models.TaskView{}, err
	}

	creator, err := s.stores.Users.GetUser(ctx, actorID)
	if err != nil {
		return models.TaskView{}, fmt.Errorf("creator: %w", err)
	}
	if !policy.Authorize(policy.OpCreate, actorOf(creator), policy.Target{}) {
		return models.TaskView{}, forbidden("create tasks")
	}

	refs, err := s.resolveInput(ctx, in)
	if err != nil {
		return models.TaskView{}, err
	}
	if refs.sprint != nil && !refs.sprint.Active {
		return models.TaskView{}, inactiveSprint(refs.sprint.ID)
	}

	t := models.Task{
		CreatedByID:    creator.ID,
		AssignedToID:   refs.assignee.ID,
		StatusID:       refs.status.ID,
		PriorityID:     refs.priority.ID,
		Title:          in.Title,
		Description:    in.Description,
		StoryPoints:    in.StoryPoints,
		EstimatedHours: in.EstimatedHours,
		DueDate:        in.DueDate,
		EpicID:         refs.epicID(),
		SprintID:       refs.sprintID(),
		CompletedAt:    completionStamp(refs.status, nil, s.now()),
	}

	created, err := s.stores.Tasks.CreateTask(ctx, t)
	if err != nil {
		return models.TaskView{}, err
	}
	s.logger.Info("task created", slog.String("task", created.ID), slog.String("creator", creator.ID))
	return s.projectOne(ctx, created)
}

// Update replaces the editable fields of a task. Epic and sprint are cleared
// when the input omits them.
func (s *Service) Update(ctx context.Context, taskID string, in models.TaskInput, actorID string) (models.TaskView, error) {
	if err := s.validateInput(in); err != nil {
		return models.TaskView{}, err
	}

	current, actor, err := s.load(ctx, taskID, actorID)
	if err != nil {
		return models.TaskView{}, err
	}
	if err := s.authorize(ctx, policy.OpUpdate, actor, current, "update this task"); err != nil {
		return models.TaskView{}, err
	}

	refs, err := s.resolveInput(ctx, in)
	if err != nil {
		return models.TaskView{}, err
	}
	if refs.sprint != nil && !refs.sprint.Active && !sameID(current.SprintID, refs.sprint.ID) {
		return models.TaskView{}, inactiveSprint(refs.sprint.ID)
	}

	current.AssignedToID = refs.assignee.ID
	current.StatusID = refs.status.ID
	current.PriorityID = refs.priority.ID
	current.Title = in.Title
	current.Description = in.Description
	current.StoryPoints = in.StoryPoints
	current.EstimatedHours = in.EstimatedHours
	current.DueDate = in.DueDate
	current.EpicID = refs.epicID()
	current.SprintID = refs.sprintID()
	current.CompletedAt = completionStamp(refs.status, current.CompletedAt, s.now())

	saved, err := s.stores.Tasks.SaveTask(ctx, current)
	if err != nil {
		return models.TaskView{}, err
	}
	s.logger.Info("task updated", slog.String("task", saved.ID), slog.String("actor", actor.ID))
	return s.projectOne(ctx, saved)
}

// ChangeStatus moves a task to another status.
func (s *Service) ChangeStatus(ctx context.Context, taskID, statusID, actorID string) (models.TaskView, error) {
	current, actor, err := s.load(ctx, taskID, actorID)
	if err != nil {
		return models.TaskView{}, err
	}
	if err := s.authorize(ctx, policy.OpChangeStatus, actor, current, "change the status of this task"); err != nil {
		return models.TaskView{}, err
	}

	next, err := s.stores.Statuses.GetStatus(ctx, statusID)
	if err != nil {
		return models.TaskView{}, fmt.Errorf("status: %w", err)
	}

	previous := current.StatusID
	current.StatusID = next.ID
	current.CompletedAt = completionStamp(next, current.CompletedAt, s.now())

	saved, err := s.stores.Tasks.SaveTask(ctx, current)
	if err != nil {
		return models.TaskView{}, err
	}
	s.logger.Info("task status changed",
		slog.String("task", saved.ID),
		slog.String("from", previous),
		slog.String("to", next.Name),
		slog.String("actor", actor.ID))
	return s.projectOne(ctx, saved)
}

// Assign hands a task to another user.
func (s *Service) Assign(ctx context.Context, taskID, assigneeID, actorID string) (models.TaskView, error) {
	current, actor, err := s.load(ctx, taskID, actorID)
	if err != nil {
		return models.TaskView{}, err
	}
	if err := s.authorize(ctx, policy.OpAssign, actor, current, "assign this task"); err != nil {
		return models.TaskView{}, err
	}

	assignee, err := s.stores.Users.GetUser(ctx, assigneeID)
	if err != nil {
		return models.TaskView{}, fmt.Errorf("assignee: %w", err)
	}

	previous := current.AssignedToID
	current.AssignedToID = assignee.ID

	saved, err := s.stores.Tasks.SaveTask(ctx, current)
	if err != nil {
		return models.TaskView{}, err
	}
	s.logger.Info("task assigned",
		slog.String("task", saved.ID),
		slog.String("from", previous),
		slog.String("to", assignee.ID))
	return s.projectOne(ctx, saved)
}

// AddToSprint moves a task into an active sprint.
func (s *Service) AddToSprint(ctx context.Context, taskID, sprintID, actorID string) (models.TaskView, error) {
	current, actor, err := s.load(ctx, taskID, actorID)
	if err != nil {
		return models.TaskView{}, err
	}
	if err := s.authorize(ctx, policy.OpSprintMembership, actor, current, "change the sprint of this task"); err != nil {
		return models.TaskView{}, err
	}

	sprint, err := s.stores.Sprints.GetSprint(ctx, sprintID)
	if err != nil {
		return models.TaskView{}, fmt.Errorf("sprint: %w", err)
	}
	if !sprint.Active {
		s.logger.Warn("add to inactive sprint rejected", slog.String("task", taskID), slog.String("sprint", sprintID))
		return models.TaskView{}, inactiveSprint(sprint.ID)
	}

	current.SprintID = &sprint.ID
	saved, err := s.stores.Tasks.SaveTask(ctx, current)
	if err != nil {
		return models.TaskView{}, err
	}
	s.logger.Info("task added to sprint", slog.String("task", saved.ID), slog.String("sprint", sprint.ID))
	return s.projectOne(ctx, saved)
}

// RemoveFromSprint detaches a task from its sprint.
func (s *Service) RemoveFromSprint(ctx context.Context, taskID, actorID string) (models.TaskView, error) {
	current, actor, err := s.load(ctx, taskID, actorID)
	if err != nil {
		return models.TaskView{}, err
	}
	if err := s.authorize(ctx, policy.OpSprintMembership, actor, current, "change the sprint of this task"); err != nil {
		return models.TaskView{}, err
	}
	if current.SprintID == nil {
		return models.TaskView{}, fmt.Errorf("task is not assigned to any sprint: %w", models.ErrInvalidState)
	}

	previous := *current.SprintID
	current.SprintID = nil
	saved, err := s.stores.Tasks.SaveTask(ctx, current)
	if err != nil {
		return models.TaskView{}, err
	}
	s.logger.Info("task removed from sprint", slog.String("task", saved.ID), slog.String("sprint", previous))
	return s.projectOne(ctx, saved)
}

// AddToEpic attaches a task to an epic.
func (s *Service) AddToEpic(ctx context.Context, taskID, epicID, actorID string) (models.TaskView, error) {
	current, actor, err := s.load(ctx, taskID, actorID)
	if err != nil {
		return models.TaskView{}, err
	}
	if err := s.authorize(ctx, policy.OpEpicMembership, actor, current, "change the epic of this task"); err != nil {
		return models.TaskView{}, err
	}

	epic, err := s.stores.Epics.GetEpic(ctx, epicID)
	if err != nil {
		return models.TaskView{}, fmt.Errorf("epic: %w", err)
	}

	current.EpicID = &epic.ID
	saved, err := s.stores.Tasks.SaveTask(ctx, current)
	if err != nil {
		return models.TaskView{}, err
	}
	s.logger.Info("task added to epic", slog.String("task", saved.ID), slog.String("epic", epic.ID))
	return s.projectOne(ctx, saved)
}

// RemoveFromEpic detaches a task from its epic.
func (s *Service) RemoveFromEpic(ctx context.Context, taskID, actorID string) (models.TaskView, error) {
	current, actor, err := s.load(ctx, taskID, actorID)
	if err != nil {
		return models.TaskView{}, err
	}
	if err := s.authorize(ctx, policy.OpEpicMembership, actor, current, "change the epic of this task"); err != nil {
		return models.TaskView{}, err
	}
	if current.EpicID == nil {
		return models.TaskView{}, fmt.Errorf("task is not assigned to any epic: %w", models.ErrInvalidState)
	}

	previous := *current.EpicID
	current.EpicID = nil
	saved, err := s.stores.Tasks.SaveTask(ctx, current)
	if err != nil {
		return models.TaskView{}, err
	}
	s.logger.Info("task removed from epic", slog.String("task", saved.ID), slog.String("epic", previous))
	return s.projectOne(ctx, saved)
}

// Delete permanently removes a task.
func (s *Service) Delete(ctx context.Context, taskID, actorID string) error {
	current, actor, err := s.load(ctx, taskID, actorID)
	if err != nil {
		return err
	}
	if err := s.authorize(ctx, policy.OpDelete, actor, current, "delete this task"); err != nil {
		return err
	}

	if err := s.stores.Tasks.DeleteTask(ctx, current.ID); err != nil {
		return err
	}
	s.logger.Info("task deleted", slog.String("task", current.ID), slog.String("actor", actor.ID))
	return nil
}

// load fetches the task first so a missing task is reported regardless of who asks.
func (s *Service) load(ctx context.Context, taskID, actorID string) (models.Task, policy.Actor, error) {
	current, err := s.stores.Tasks.GetTask(ctx, taskID)
	if err != nil {
		return models.Task{}, policy.Actor{}, err
	}
	user, err := s.stores.Users.GetUser(ctx, actorID)
	if err != nil {
		return models.Task{}, policy.Actor{}, fmt.Errorf("actor: %w", err)
	}
	return current, actorOf(user), nil
}

func (s *Service) authorize(ctx context.Context, op policy.Operation, actor policy.Actor, t models.Task, what string) error {
	status, err := s.stores.Statuses.GetStatus(ctx, t.StatusID)
	if err != nil {
		return fmt.Errorf("current status: %w", err)
	}
	target := policy.Target{
		CreatedByID:  t.CreatedByID,
		AssignedToID: t.AssignedToID,
		StatusName:   status.Name,
	}
	if !policy.Authorize(op, actor, target) {
		s.logger.Warn("unauthorized task operation",
			slog.String("op", string(op)),
			slog.String("task", t.ID),
			slog.String("actor", actor.ID))
		return forbidden(what)
	}
	return nil
}

func (s *Service) validateInput(in models.TaskInput) error {
	if err := s.validate.Struct(in); err != nil {
		return fmt.Errorf("%w: %s", models.ErrValidation, err.Error())
	}
	if strings.TrimSpace(in.Title) == "" {
		return fmt.Errorf("%w: title must not be blank", models.ErrValidation)
	}
	if strings.TrimSpace(in.Description) == "" {
		return fmt.Errorf("%w: description must not be blank", models.ErrValidation)
	}
	return nil
}

type references struct {
	assignee models.User
	status   models.TaskStatus
	priority models.TaskPriority
	epic     *models.Epic
	sprint   *models.Sprint
}

func (r references) epicID() *string {
	if r.epic == nil {
		return nil
	}
	return &r.epic.ID
}

func (r references) sprintID() *string {
	if r.sprint == nil {
		return nil
	}
	return &r.sprint.ID
}

func (s *Service) resolveInput(ctx context.Context, in models.TaskInput) (references, error) {
	var (
		refs references
		err  error
	)
	if refs.assignee, err = s.stores.Users.GetUser(ctx, in.AssignedToID); err != nil {
		return refs, fmt.Errorf("assignee: %w", err)
	}
	if refs.status, err = s.stores.Statuses.GetStatus(ctx, in.StatusID); err != nil {
		return refs, fmt.Errorf("status: %w", err)
	}
	if refs.priority, err = s.stores.Priorities.GetPriority(ctx, in.PriorityID); err != nil {
		return refs, fmt.Errorf("priority: %w", err)
	}
	if in.EpicID != nil {
		epic, err := s.stores.Epics.GetEpic(ctx, *in.EpicID)
		if err != nil {
			return refs, fmt.Errorf("epic: %w", err)
		}
		refs.epic = &epic
	}
	if in.SprintID != nil {
		sprint, err := s.stores.Sprints.GetSprint(ctx, *in.SprintID)
		if err != nil {
			return refs, fmt.Errorf("sprint: %w", err)
		}
		refs.sprint = &sprint
	}
	return refs, nil
}

// completionStamp returns the completedAt value that matches status. An
// existing stamp survives re-saving a DONE task.
func completionStamp(status models.TaskStatus, previous *time.Time, now time.Time) *time.Time {
	if status.Name != models.StatusDone {
		return nil
	}
	if previous != nil {
		return previous
	}
	stamp := now.UTC()
	return &stamp
}

func actorOf(u models.User) policy.Actor {
	return policy.Actor{ID: u.ID, Role: u.RoleName}
}

func forbidden(what string) error {
	return fmt.Errorf("you don't have permission to %s: %w", what, models.ErrForbidden)
}

func inactiveSprint(id string) error {
	return fmt.Errorf("cannot add task to inactive sprint %s: %w", id, models.ErrInvalidState)
}

func sameID(current *string, id string) bool {
	return current != nil && *current == id
}
