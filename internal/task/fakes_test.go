package task

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"taskboard/internal/models"
)

// memStore implements every storage port in memory.
type memStore struct {
	now        func() time.Time
	tasks      map[string]models.Task
	order      []string
	users      map[string]models.User
	statuses   []models.TaskStatus
	priorities []models.TaskPriority
	epics      map[string]models.Epic
	sprints    map[string]models.Sprint
}

func newMemStore(now func() time.Time) *memStore {
	m := &memStore{
		now:     now,
		tasks:   make(map[string]models.Task),
		users:   make(map[string]models.User),
		epics:   make(map[string]models.Epic),
		sprints: make(map[string]models.Sprint),
	}
	for i, name := range []string{models.StatusBacklog, models.StatusTodo, models.StatusInProgress, models.StatusDone} {
		m.statuses = append(m.statuses, models.TaskStatus{ID: uuid.NewString(), Name: name, DisplayOrder: i + 1})
	}
	for i, name := range []string{"LOW", "MEDIUM", "HIGH", "CRITICAL"} {
		m.priorities = append(m.priorities, models.TaskPriority{ID: uuid.NewString(), Name: name, Value: i + 1})
	}
	return m
}

func (m *memStore) stores() Stores {
	return Stores{Tasks: m, Users: m, Statuses: m, Priorities: m, Epics: m, Sprints: m}
}

func (m *memStore) addUser(name, role string) models.User {
	u := models.User{ID: uuid.NewString(), Name: name, Email: name + "@example.com", RoleName: role}
	m.users[u.ID] = u
	return u
}

func (m *memStore) addSprint(name string, active bool) models.Sprint {
	sp := models.Sprint{ID: uuid.NewString(), Name: name, Active: active}
	m.sprints[sp.ID] = sp
	return sp
}

func (m *memStore) addEpic(name string) models.Epic {
	e := models.Epic{ID: uuid.NewString(), Name: name}
	m.epics[e.ID] = e
	return e
}

func (m *memStore) status(name string) models.TaskStatus {
	for _, st := range m.statuses {
		if st.Name == name {
			return st
		}
	}
	panic("unknown status " + name)
}

func missing(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, models.ErrNotFound)
}

func (m *memStore) GetTask(_ context.Context, id string) (models.Task, error) {
	t, ok := m.tasks[id]
	if !ok {
		return models.Task{}, missing("task", id)
	}
	return t, nil
}

func (m *memStore) CreateTask(_ context.Context, t models.Task) (models.Task, error) {
	t.ID = uuid.NewString()
	t.CreatedAt = m.now()
	t.UpdatedAt = t.CreatedAt
	m.tasks[t.ID] = t
	m.order = append(m.order, t.ID)
	return t, nil
}

func (m *memStore) SaveTask(_ context.Context, t models.Task) (models.Task, error) {
	prev, ok := m.tasks[t.ID]
	if !ok {
		return models.Task{}, missing("task", t.ID)
	}
	t.CreatedByID = prev.CreatedByID
	t.CreatedAt = prev.CreatedAt
	t.UpdatedAt = m.now()
	m.tasks[t.ID] = t
	return t, nil
}

func (m *memStore) DeleteTask(_ context.Context, id string) error {
	if _, ok := m.tasks[id]; !ok {
		return missing("task", id)
	}
	delete(m.tasks, id)
	return nil
}

func (m *memStore) ordered() []models.Task {
	var out []models.Task
	for _, id := range m.order {
		if t, ok := m.tasks[id]; ok {
			out = append(out, t)
		}
	}
	return out
}

func matches(want *string, got *string) bool {
	if want == nil {
		return true
	}
	return got != nil && *got == *want
}

func (m *memStore) ListTasks(_ context.Context, f models.TaskFilter) ([]models.Task, error) {
	var out []models.Task
	for _, t := range m.ordered() {
		if matches(f.AssignedToID, &t.AssignedToID) && matches(f.StatusID, &t.StatusID) &&
			matches(f.PriorityID, &t.PriorityID) && matches(f.SprintID, t.SprintID) && matches(f.EpicID, t.EpicID) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *memStore) ListActiveForUser(_ context.Context, userID string) ([]models.Task, error) {
	done := m.status(models.StatusDone).ID
	var out []models.Task
	for _, t := range m.ordered() {
		if t.AssignedToID == userID && (t.StatusID != done || t.CompletedAt == nil) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *memStore) ListOverdue(_ context.Context, now time.Time) ([]models.Task, error) {
	var out []models.Task
	for _, t := range m.ordered() {
		if t.DueDate.Before(now) && t.CompletedAt == nil {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *memStore) ListUpdatedSince(_ context.Context, since time.Time) ([]models.Task, error) {
	var out []models.Task
	for _, t := range m.ordered() {
		if !t.UpdatedAt.Before(since) {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (m *memStore) CountSprintTasksByStatus(_ context.Context, sprintID string) (map[string]int64, error) {
	counts := make(map[string]int64)
	for _, t := range m.tasks {
		if t.SprintID != nil && *t.SprintID == sprintID {
			counts[t.StatusID]++
		}
	}
	return counts, nil
}

func (m *memStore) GetUser(_ context.Context, id string) (models.User, error) {
	u, ok := m.users[id]
	if !ok {
		return models.User{}, missing("user", id)
	}
	return u, nil
}

func (m *memStore) GetStatus(_ context.Context, id string) (models.TaskStatus, error) {
	for _, st := range m.statuses {
		if st.ID == id {
			return st, nil
		}
	}
	return models.TaskStatus{}, missing("status", id)
}

func (m *memStore) ListStatuses(context.Context) ([]models.TaskStatus, error) {
	return m.statuses, nil
}

func (m *memStore) GetPriority(_ context.Context, id string) (models.TaskPriority, error) {
	for _, p := range m.priorities {
		if p.ID == id {
			return p, nil
		}
	}
	return models.TaskPriority{}, missing("priority", id)
}

func (m *memStore) ListPriorities(context.Context) ([]models.TaskPriority, error) {
	return m.priorities, nil
}

func (m *memStore) GetEpic(_ context.Context, id string) (models.Epic, error) {
	e, ok := m.epics[id]
	if !ok {
		return models.Epic{}, missing("epic", id)
	}
	return e, nil
}

func (m *memStore) GetSprint(_ context.Context, id string) (models.Sprint, error) {
	sp, ok := m.sprints[id]
	if !ok {
		return models.Sprint{}, missing("sprint", id)
	}
	return sp, nil
}
