package sqlstore

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskboard/internal/models"
)

type fixture struct {
	store      *Store
	user       models.User
	statuses   map[string]models.TaskStatus
	priorities []models.TaskPriority
	sprint     models.Sprint
	epic       models.Epic
}

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(DriverSQLite, filepath.Join(t.TempDir(), "taskboard.db"), slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := openTestStore(t)

	role, err := store.GetRoleByName(ctx, models.RoleDeveloper)
	require.NoError(t, err)
	user, err := store.CreateUser(ctx, models.User{GoogleID: "g-1", Email: "ada@example.com", Name: "Ada", RoleID: role.ID})
	require.NoError(t, err)

	statuses, err := store.ListStatuses(ctx)
	require.NoError(t, err)
	byName := make(map[string]models.TaskStatus)
	for _, st := range statuses {
		byName[st.Name] = st
	}

	priorities, err := store.ListPriorities(ctx)
	require.NoError(t, err)

	start := time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)
	sprint, err := store.CreateSprint(ctx, models.Sprint{Name: "Sprint 1", ScrumMasterID: user.ID, StartDate: start, EndDate: start.AddDate(0, 0, 14), Active: true})
	require.NoError(t, err)
	epic, err := store.CreateEpic(ctx, models.Epic{Name: "Billing", Description: "invoices", OwnerID: user.ID, StartDate: start, TargetEndDate: start.AddDate(0, 3, 0)})
	require.NoError(t, err)

	return &fixture{store: store, user: user, statuses: byName, priorities: priorities, sprint: sprint, epic: epic}
}

func (f *fixture) task(t *testing.T, status string, mutate func(*models.Task)) models.Task {
	t.Helper()
	task := models.Task{
		CreatedByID:  f.user.ID,
		AssignedToID: f.user.ID,
		StatusID:     f.statuses[status].ID,
		PriorityID:   f.priorities[0].ID,
		Title:        "Write docs",
		Description:  "for the API",
		DueDate:      time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	}
	if mutate != nil {
		mutate(&task)
	}
	created, err := f.store.CreateTask(context.Background(), task)
	require.NoError(t, err)
	return created
}

func TestOpenSeedsReferenceDataOnce(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "board.db")

	first, err := Open(DriverSQLite, path, nil)
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := Open(DriverSQLite, path, nil)
	require.NoError(t, err)
	defer second.Close()

	ctx := context.Background()
	roles, err := second.ListRoles(ctx)
	require.NoError(t, err)
	assert.Len(t, roles, 4)

	statuses, err := second.ListStatuses(ctx)
	require.NoError(t, err)
	require.Len(t, statuses, 4)
	assert.Equal(t, models.StatusBacklog, statuses[0].Name)
	assert.Equal(t, models.StatusDone, statuses[3].Name)

	priorities, err := second.ListPriorities(ctx)
	require.NoError(t, err)
	assert.Len(t, priorities, 4)
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open("oracle", "dsn", nil)
	assert.Error(t, err)

	_, err = Open(DriverSQLite, "", nil)
	assert.Error(t, err)
}

func TestRebind(t *testing.T) {
	pg := &Store{driver: DriverPostgres}
	assert.Equal(t, "SELECT 1 WHERE a = $1 AND b = $2", pg.rebind("SELECT 1 WHERE a = ? AND b = ?"))

	lite := &Store{driver: DriverSQLite}
	assert.Equal(t, "a = ?", lite.rebind("a = ?"))
}

func TestUsers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	got, err := f.store.GetUserByGoogleID(ctx, "g-1")
	require.NoError(t, err)
	assert.Equal(t, f.user.ID, got.ID)
	assert.Equal(t, models.RoleDeveloper, got.RoleName)

	_, err = f.store.GetUser(ctx, "missing")
	assert.ErrorIs(t, err, models.ErrNotFound)

	admin, err := f.store.GetRoleByName(ctx, models.RoleAdmin)
	require.NoError(t, err)
	updated, err := f.store.UpdateUserRole(ctx, f.user.ID, admin.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, updated.RoleName)

	_, err = f.store.UpdateUserRole(ctx, "missing", admin.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestTaskCreateSaveDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	task := f.task(t, models.StatusBacklog, func(task *models.Task) {
		task.SprintID = &f.sprint.ID
		task.StoryPoints = 3
	})
	require.NotEmpty(t, task.ID)
	require.NotNil(t, task.SprintID)
	assert.Equal(t, f.sprint.ID, *task.SprintID)
	assert.Nil(t, task.EpicID)
	assert.Nil(t, task.CompletedAt)
	assert.Equal(t, 3, task.StoryPoints)

	done := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	task.StatusID = f.statuses[models.StatusDone].ID
	task.CompletedAt = &done
	task.SprintID = nil
	task.EpicID = &f.epic.ID
	saved, err := f.store.SaveTask(ctx, task)
	require.NoError(t, err)
	require.NotNil(t, saved.CompletedAt)
	assert.True(t, done.Equal(*saved.CompletedAt))
	assert.Nil(t, saved.SprintID)
	require.NotNil(t, saved.EpicID)
	assert.Equal(t, f.epic.ID, *saved.EpicID)
	assert.Equal(t, f.user.ID, saved.CreatedByID)

	require.NoError(t, f.store.DeleteTask(ctx, task.ID))
	_, err = f.store.GetTask(ctx, task.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.ErrorIs(t, f.store.DeleteTask(ctx, task.ID), models.ErrNotFound)

	_, err = f.store.SaveTask(ctx, task)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestListTasksFilter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	inSprintDone := f.task(t, models.StatusDone, func(task *models.Task) { task.SprintID = &f.sprint.ID })
	f.task(t, models.StatusTodo, func(task *models.Task) { task.SprintID = &f.sprint.ID })
	f.task(t, models.StatusDone, nil)

	all, err := f.store.ListTasks(ctx, models.TaskFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	doneID := f.statuses[models.StatusDone].ID
	filtered, err := f.store.ListTasks(ctx, models.TaskFilter{SprintID: &f.sprint.ID, StatusID: &doneID})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, inSprintDone.ID, filtered[0].ID)

	counts, err := f.store.CountSprintTasksByStatus(ctx, f.sprint.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[doneID])
	assert.Equal(t, int64(1), counts[f.statuses[models.StatusTodo].ID])
	assert.NotContains(t, counts, f.statuses[models.StatusBacklog].ID)
}

func TestListActiveOverdueAndRecent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f.store.now = func() time.Time { return base }

	stamp := base
	open := f.task(t, models.StatusTodo, nil)
	f.task(t, models.StatusDone, func(task *models.Task) { task.CompletedAt = &stamp })
	legacy := f.task(t, models.StatusDone, nil)

	active, err := f.store.ListActiveForUser(ctx, f.user.ID)
	require.NoError(t, err)
	ids := []string{}
	for _, task := range active {
		ids = append(ids, task.ID)
	}
	assert.ElementsMatch(t, []string{open.ID, legacy.ID}, ids)

	overdue, err := f.store.ListOverdue(ctx, base)
	require.NoError(t, err)
	assert.Len(t, overdue, 2)

	overdue, err = f.store.ListOverdue(ctx, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Empty(t, overdue)

	f.store.now = func() time.Time { return base.Add(2 * time.Hour) }
	open.Title = "Write better docs"
	_, err = f.store.SaveTask(ctx, open)
	require.NoError(t, err)

	recent, err := f.store.ListUpdatedSince(ctx, base.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, open.ID, recent[0].ID)

	recent, err = f.store.ListUpdatedSince(ctx, base.Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, open.ID, recent[0].ID)
}

func TestSprintsAndEpics(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ended, err := f.store.SetSprintActive(ctx, f.sprint.ID, false)
	require.NoError(t, err)
	assert.False(t, ended.Active)

	sprints, err := f.store.ListSprints(ctx)
	require.NoError(t, err)
	assert.Len(t, sprints, 1)

	_, err = f.store.SetSprintActive(ctx, "missing", true)
	assert.ErrorIs(t, err, models.ErrNotFound)

	epics, err := f.store.ListEpics(ctx)
	require.NoError(t, err)
	require.Len(t, epics, 1)
	assert.Nil(t, epics[0].ActualEndDate)

	_, err = f.store.GetEpic(ctx, "missing")
	assert.ErrorIs(t, err, models.ErrNotFound)
}
