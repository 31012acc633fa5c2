package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskboard/internal/identity"
	"taskboard/internal/models"
	"taskboard/internal/planning"
	"taskboard/internal/storage/sqlstore"
	"taskboard/internal/task"
)

type stubVerifier struct{}

// Verify accepts "id:<name>" and derives a stable identity from it.
func (stubVerifier) Verify(_ context.Context, raw string) (identity.ExternalIdentity, error) {
	name, ok := strings.CutPrefix(raw, "id:")
	if !ok {
		return identity.ExternalIdentity{}, errors.New("bad token")
	}
	return identity.ExternalIdentity{Subject: "g-" + name, Email: name + "@example.com", Name: name}, nil
}

type testAPI struct {
	t        *testing.T
	handler  http.Handler
	statuses map[string]string
	priority string
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	store, err := sqlstore.Open(sqlstore.DriverSQLite, filepath.Join(t.TempDir(), "api.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	issuer, err := identity.NewIssuer("0123456789abcdef0123456789abcdef", time.Hour)
	require.NoError(t, err)

	srv := New(Deps{
		Tasks: task.NewService(task.Stores{
			Tasks: store, Users: store, Statuses: store, Priorities: store, Epics: store, Sprints: store,
		}, logger),
		Planning: planning.NewService(store, logger),
		Identity: identity.NewService(stubVerifier{}, issuer, store, []string{"admin@example.com"}, logger),
		Store:    store,
	}, logger)

	api := &testAPI{t: t, handler: srv.Engine(), statuses: make(map[string]string)}

	ctx := context.Background()
	statuses, err := store.ListStatuses(ctx)
	require.NoError(t, err)
	for _, st := range statuses {
		api.statuses[st.Name] = st.ID
	}
	priorities, err := store.ListPriorities(ctx)
	require.NoError(t, err)
	api.priority = priorities[0].ID
	return api
}

func (a *testAPI) do(method, path, token string, body any) *httptest.ResponseRecorder {
	a.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (a *testAPI) login(name string) models.AuthResult {
	a.t.Helper()
	rec := a.do(http.MethodPost, "/api/auth/google", "", jsonMap{"idToken": "id:" + name})
	require.Equal(a.t, http.StatusOK, rec.Code, rec.Body.String())
	return decode[models.AuthResult](a.t, rec)
}

func (a *testAPI) createTask(token, assignee, status string, extra jsonMap) models.TaskView {
	a.t.Helper()
	body := jsonMap{
		"title":        "Wire OAuth",
		"description":  "Google sign in",
		"assignedToId": assignee,
		"statusId":     a.statuses[status],
		"priorityId":   a.priority,
		"storyPoints":  2,
		"dueDate":      time.Now().Add(72 * time.Hour).UTC().Format(time.RFC3339),
	}
	for k, v := range extra {
		body[k] = v
	}
	rec := a.do(http.MethodPost, "/api/tasks", token, body)
	require.Equal(a.t, http.StatusOK, rec.Code, rec.Body.String())
	return decode[models.TaskView](a.t, rec)
}

type jsonMap = map[string]any

func TestHealthMetricsAndNotFound(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(http.MethodGet, "/api/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = api.do(http.MethodGet, "/api/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "endpoint not found", decode[jsonMap](t, rec)["error"])

	rec = api.do(http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "taskboard_http_requests_total")
}

func TestAuthentication(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(http.MethodGet, "/api/tasks", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = api.do(http.MethodGet, "/api/tasks", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = api.do(http.MethodPost, "/api/auth/google", "", jsonMap{"idToken": "forged"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = api.do(http.MethodPost, "/api/auth/google", "", jsonMap{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	ada := api.login("ada")
	assert.Equal(t, "ada", ada.Name)

	rec = api.do(http.MethodGet, "/api/auth/validate", ada.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, ada.UserID, decode[jsonMap](t, rec)["userId"])

	rec = api.do(http.MethodGet, "/api/users/me", ada.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.RoleDeveloper, decode[models.User](t, rec).RoleName)
}

func TestTaskCRUD(t *testing.T) {
	api := newTestAPI(t)
	ada := api.login("ada")

	created := api.createTask(ada.Token, ada.UserID, models.StatusBacklog, nil)
	assert.Equal(t, "ada", created.AssignedToName)
	assert.Equal(t, models.StatusBacklog, created.StatusName)
	assert.Equal(t, ada.UserID, created.CreatedByID)

	rec := api.do(http.MethodGet, "/api/tasks/"+created.ID, ada.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = api.do(http.MethodGet, "/api/tasks/not-a-uuid", ada.Token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(http.MethodGet, "/api/tasks/"+uuid.NewString(), ada.Token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = api.do(http.MethodPost, "/api/tasks", ada.Token, jsonMap{"title": "no fields"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	update := jsonMap{
		"title":        "Wire OAuth properly",
		"description":  "and refresh tokens",
		"assignedToId": ada.UserID,
		"statusId":     api.statuses[models.StatusDone],
		"priorityId":   api.priority,
		"dueDate":      time.Now().Add(time.Hour).UTC().Format(time.RFC3339),
	}
	blank := jsonMap{}
	for k, v := range update {
		blank[k] = v
	}
	blank["title"] = "   "
	rec = api.do(http.MethodPost, "/api/tasks", ada.Token, blank)
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	rec = api.do(http.MethodPut, "/api/tasks/"+created.ID, ada.Token, blank)
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

	rec = api.do(http.MethodPut, "/api/tasks/"+created.ID, ada.Token, update)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[models.TaskView](t, rec)
	assert.Equal(t, "Wire OAuth properly", updated.Title)
	assert.NotNil(t, updated.CompletedAt)

	rec = api.do(http.MethodPatch, "/api/tasks/"+created.ID+"/status/"+api.statuses[models.StatusTodo], ada.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, decode[models.TaskView](t, rec).CompletedAt)

	rec = api.do(http.MethodPatch, "/api/tasks/"+created.ID+"/assign/"+uuid.NewString(), ada.Token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = api.do(http.MethodPatch, "/api/tasks/"+uuid.NewString()+"/status/"+api.statuses[models.StatusTodo], ada.Token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteScenario(t *testing.T) {
	api := newTestAPI(t)
	ada := api.login("ada")
	admin := api.login("admin")

	own := api.createTask(ada.Token, ada.UserID, models.StatusBacklog, nil)
	rec := api.do(http.MethodDelete, "/api/tasks/"+own.ID, ada.Token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	moved := api.createTask(ada.Token, ada.UserID, models.StatusBacklog, nil)
	rec = api.do(http.MethodPatch, "/api/tasks/"+moved.ID+"/status/"+api.statuses[models.StatusTodo], ada.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = api.do(http.MethodDelete, "/api/tasks/"+moved.ID, ada.Token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, decode[jsonMap](t, rec)["error"], "permission")

	rec = api.do(http.MethodDelete, "/api/tasks/"+moved.ID, admin.Token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = api.do(http.MethodDelete, "/api/tasks/"+moved.ID, admin.Token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSprintFlow(t *testing.T) {
	api := newTestAPI(t)
	ada := api.login("ada")
	admin := api.login("admin")
	sam := api.login("sam")

	rec := api.do(http.MethodPatch, "/api/users/"+sam.UserID+"/role/"+models.RoleScrumMaster, ada.Token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = api.do(http.MethodPatch, "/api/users/"+sam.UserID+"/role/"+models.RoleScrumMaster, admin.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	start := time.Now().UTC().Truncate(time.Second)
	sprintBody := jsonMap{
		"name":           "Sprint 1",
		"goal":           "login",
		"capacityPoints": 20,
		"startDate":      start.Format(time.RFC3339),
		"endDate":        start.AddDate(0, 0, 14).Format(time.RFC3339),
	}
	rec = api.do(http.MethodPost, "/api/sprints", ada.Token, sprintBody)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// sam's token still says DEVELOPER; the stored role decides
	rec = api.do(http.MethodPost, "/api/sprints", sam.Token, sprintBody)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	sprint := decode[models.Sprint](t, rec)
	assert.False(t, sprint.Active)

	taskView := api.createTask(ada.Token, ada.UserID, models.StatusTodo, nil)

	rec = api.do(http.MethodPatch, "/api/tasks/"+taskView.ID+"/add-to-sprint/"+sprint.ID, sam.Token, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = api.do(http.MethodPatch, "/api/tasks/"+taskView.ID+"/remove-from-sprint", sam.Token, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = api.do(http.MethodPatch, "/api/sprints/"+sprint.ID+"/start", sam.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = api.do(http.MethodPatch, "/api/tasks/"+taskView.ID+"/add-to-sprint/"+sprint.ID, ada.Token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = api.do(http.MethodPatch, "/api/tasks/"+taskView.ID+"/add-to-sprint/"+sprint.ID, sam.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Sprint 1", decode[models.TaskView](t, rec).SprintName)

	api.createTask(ada.Token, ada.UserID, models.StatusDone, jsonMap{"sprintId": sprint.ID})
	api.createTask(ada.Token, ada.UserID, models.StatusDone, nil)

	rec = api.do(http.MethodGet, "/api/tasks/sprint/"+sprint.ID+"/stats", ada.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]int64{
		models.StatusBacklog:    0,
		models.StatusTodo:       1,
		models.StatusInProgress: 0,
		models.StatusDone:       1,
	}, decode[map[string]int64](t, rec))

	rec = api.do(http.MethodPost, "/api/tasks/filter", ada.Token, jsonMap{
		"sprintId": sprint.ID,
		"statusId": api.statuses[models.StatusDone],
	})
	require.Equal(t, http.StatusOK, rec.Code)
	filtered := decode[[]models.TaskView](t, rec)
	require.Len(t, filtered, 1)
	assert.Equal(t, models.StatusDone, filtered[0].StatusName)

	rec = api.do(http.MethodGet, "/api/tasks", ada.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	all := decode[[]models.TaskView](t, rec)
	assert.Len(t, all, 3)

	req := httptest.NewRequest(http.MethodPost, "/api/tasks/filter", nil)
	req.Header.Set("Authorization", "Bearer "+ada.Token)
	out := httptest.NewRecorder()
	api.handler.ServeHTTP(out, req)
	require.Equal(t, http.StatusOK, out.Code, out.Body.String())
	assert.Equal(t, all, decode[[]models.TaskView](t, out))

	rec = api.do(http.MethodPatch, "/api/sprints/"+sprint.ID+"/end", sam.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[models.Sprint](t, rec).Active)
}

func TestEpicFlowAndQueries(t *testing.T) {
	api := newTestAPI(t)
	ada := api.login("ada")
	admin := api.login("admin")

	start := time.Now().UTC().Truncate(time.Second)
	rec := api.do(http.MethodPost, "/api/epics", admin.Token, jsonMap{
		"name":          "Auth",
		"description":   "all things login",
		"startDate":     start.Format(time.RFC3339),
		"targetEndDate": start.AddDate(0, 1, 0).Format(time.RFC3339),
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	epic := decode[models.Epic](t, rec)

	taskView := api.createTask(ada.Token, ada.UserID, models.StatusTodo, nil)

	rec = api.do(http.MethodPatch, "/api/tasks/"+taskView.ID+"/add-to-epic/"+epic.ID, ada.Token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = api.do(http.MethodPatch, "/api/tasks/"+taskView.ID+"/add-to-epic/"+epic.ID, admin.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = api.do(http.MethodGet, "/api/tasks/epic/"+epic.ID, ada.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]models.TaskView](t, rec), 1)

	rec = api.do(http.MethodPatch, "/api/tasks/"+taskView.ID+"/remove-from-epic", admin.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = api.do(http.MethodPatch, "/api/tasks/"+taskView.ID+"/remove-from-epic", admin.Token, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = api.do(http.MethodGet, "/api/tasks/epic/"+uuid.NewString(), ada.Token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = api.do(http.MethodGet, "/api/tasks/assignee/"+ada.UserID, ada.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]models.TaskView](t, rec), 1)

	rec = api.do(http.MethodGet, "/api/tasks/my-tasks", ada.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]models.TaskView](t, rec), 1)

	rec = api.do(http.MethodGet, "/api/tasks/my-tasks", admin.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))

	rec = api.do(http.MethodGet, "/api/tasks/overdue", ada.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]models.TaskView](t, rec))

	rec = api.do(http.MethodGet, "/api/tasks/recent", ada.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]models.TaskView](t, rec), 1)

	rec = api.do(http.MethodGet, "/api/tasks/recent?hours=abc", ada.Token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = api.do(http.MethodGet, "/api/tasks/recent?hours=0", ada.Token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	for _, path := range []string{"/api/statuses", "/api/priorities", "/api/roles"} {
		rec = api.do(http.MethodGet, path, ada.Token, nil)
		require.Equal(t, http.StatusOK, rec.Code, path)
		assert.Len(t, decode[[]jsonMap](t, rec), 4, path)
	}
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, statusFor(models.ErrNotFound))
	assert.Equal(t, http.StatusForbidden, statusFor(models.ErrForbidden))
	assert.Equal(t, http.StatusConflict, statusFor(models.ErrInvalidState))
	assert.Equal(t, http.StatusBadRequest, statusFor(models.ErrValidation))
	assert.Equal(t, http.StatusUnauthorized, statusFor(models.ErrUnauthenticated))
	assert.Equal(t, http.StatusInternalServerError, statusFor(errors.New("disk full")))
}
