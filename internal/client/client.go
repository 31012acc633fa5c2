// Package client is a typed REST client for the task board API.
package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"taskboard/internal/models"
)

// UserAgent identifies the CLI to the API.
const UserAgent = "taskctl"

// Error is a non-2xx answer from the API.
type Error struct {
	Code    int
	Status  string
	Message string
}

// Error implements error.
func (e *Error) Error() string {
	if e.Message == "" {
		return e.Status
	}
	return fmt.Sprintf("%s (%d)", e.Message, e.Code)
}

type errorBody struct {
	Error string `json:"error"`
}

// ValidateResult is returned by /auth/validate.
type ValidateResult struct {
	Valid  bool     `json:"valid"`
	UserID string   `json:"userId"`
	Roles  []string `json:"roles"`
}

// Client talks to the task board REST API.
type Client struct {
	*resty.Client
}

// ClientFunc configures a Client.
type ClientFunc func(c *Client)

// WithToken sends token as the bearer credential.
func WithToken(token string) ClientFunc {
	return func(c *Client) {
		if token != "" {
			c.SetAuthToken(token)
		}
	}
}

// WithTimeout bounds every request.
func WithTimeout(d time.Duration) ClientFunc {
	return func(c *Client) {
		c.SetTimeout(d)
	}
}

// New returns a client for the API rooted at baseURL, e.g. http://localhost:8080/api.
func New(baseURL string, cfs ...ClientFunc) *Client {
	r := resty.New()
	r.SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", UserAgent).
		SetTimeout(30 * time.Second)

	c := &Client{Client: r}
	for _, cf := range cfs {
		cf(c)
	}
	return c
}

func request[T any](ctx context.Context, c *Client, method, path string, body any) (T, error) {
	var out T
	r := c.R().SetContext(ctx).SetError(&errorBody{})
	if _, ok := any(&out).(*struct{}); !ok {
		r.SetResult(&out)
	}
	if body != nil {
		r.SetBody(body)
	}
	res, err := r.Execute(method, path)
	if err != nil {
		return out, err
	}
	if res.IsError() {
		apiErr := &Error{Code: res.StatusCode(), Status: res.Status()}
		if eb, ok := res.Error().(*errorBody); ok {
			apiErr.Message = eb.Error
		}
		return out, apiErr
	}
	return out, nil
}

// LoginGoogle exchanges a Google ID token for an API token.
func (c *Client) LoginGoogle(ctx context.Context, idToken string) (models.AuthResult, error) {
	return request[models.AuthResult](ctx, c, http.MethodPost, "/auth/google", map[string]string{"idToken": idToken})
}

// Validate checks the client's bearer token.
func (c *Client) Validate(ctx context.Context) (ValidateResult, error) {
	return request[ValidateResult](ctx, c, http.MethodGet, "/auth/validate", nil)
}

// Me returns the signed-in user.
func (c *Client) Me(ctx context.Context) (models.User, error) {
	return request[models.User](ctx, c, http.MethodGet, "/users/me", nil)
}

// ListUsers returns every user.
func (c *Client) ListUsers(ctx context.Context) ([]models.User, error) {
	return request[[]models.User](ctx, c, http.MethodGet, "/users", nil)
}

// ChangeUserRole moves a user to another role.
func (c *Client) ChangeUserRole(ctx context.Context, userID, role string) (models.User, error) {
	return request[models.User](ctx, c, http.MethodPatch, "/users/"+escape(userID)+"/role/"+escape(role), nil)
}

// ListStatuses returns the board columns.
func (c *Client) ListStatuses(ctx context.Context) ([]models.TaskStatus, error) {
	return request[[]models.TaskStatus](ctx, c, http.MethodGet, "/statuses", nil)
}

// ListPriorities returns every priority.
func (c *Client) ListPriorities(ctx context.Context) ([]models.TaskPriority, error) {
	return request[[]models.TaskPriority](ctx, c, http.MethodGet, "/priorities", nil)
}

// ListTasks returns every task.
func (c *Client) ListTasks(ctx context.Context) ([]models.TaskView, error) {
	return request[[]models.TaskView](ctx, c, http.MethodGet, "/tasks", nil)
}

// GetTask returns one task.
func (c *Client) GetTask(ctx context.Context, id string) (models.TaskView, error) {
	return request[models.TaskView](ctx, c, http.MethodGet, "/tasks/"+escape(id), nil)
}

// CreateTask creates a task owned by the signed-in user.
func (c *Client) CreateTask(ctx context.Context, in models.TaskInput) (models.TaskView, error) {
	return request[models.TaskView](ctx, c, http.MethodPost, "/tasks", in)
}

// UpdateTask replaces every editable field of a task.
func (c *Client) UpdateTask(ctx context.Context, id string, in models.TaskInput) (models.TaskView, error) {
	return request[models.TaskView](ctx, c, http.MethodPut, "/tasks/"+escape(id), in)
}

// DeleteTask removes a task.
func (c *Client) DeleteTask(ctx context.Context, id string) error {
	_, err := request[struct{}](ctx, c, http.MethodDelete, "/tasks/"+escape(id), nil)
	return err
}

// ChangeStatus moves a task to another status.
func (c *Client) ChangeStatus(ctx context.Context, id, statusID string) (models.TaskView, error) {
	return request[models.TaskView](ctx, c, http.MethodPatch, "/tasks/"+escape(id)+"/status/"+escape(statusID), nil)
}

// Assign gives a task to another user.
func (c *Client) Assign(ctx context.Context, id, assigneeID string) (models.TaskView, error) {
	return request[models.TaskView](ctx, c, http.MethodPatch, "/tasks/"+escape(id)+"/assign/"+escape(assigneeID), nil)
}

// AddToSprint puts a task into an active sprint.
func (c *Client) AddToSprint(ctx context.Context, id, sprintID string) (models.TaskView, error) {
	return request[models.TaskView](ctx, c, http.MethodPatch, "/tasks/"+escape(id)+"/add-to-sprint/"+escape(sprintID), nil)
}

// RemoveFromSprint takes a task out of its sprint.
func (c *Client) RemoveFromSprint(ctx context.Context, id string) (models.TaskView, error) {
	return request[models.TaskView](ctx, c, http.MethodPatch, "/tasks/"+escape(id)+"/remove-from-sprint", nil)
}

// AddToEpic attaches a task to an epic.
func (c *Client) AddToEpic(ctx context.Context, id, epicID string) (models.TaskView, error) {
	return request[models.TaskView](ctx, c, http.MethodPatch, "/tasks/"+escape(id)+"/add-to-epic/"+escape(epicID), nil)
}

// RemoveFromEpic detaches a task from its epic.
func (c *Client) RemoveFromEpic(ctx context.Context, id string) (models.TaskView, error) {
	return request[models.TaskView](ctx, c, http.MethodPatch, "/tasks/"+escape(id)+"/remove-from-epic", nil)
}

// FilterTasks returns tasks matching every set field of f.
func (c *Client) FilterTasks(ctx context.Context, f models.TaskFilter) ([]models.TaskView, error) {
	return request[[]models.TaskView](ctx, c, http.MethodPost, "/tasks/filter", f)
}

// MyTasks returns the signed-in user's unfinished tasks.
func (c *Client) MyTasks(ctx context.Context) ([]models.TaskView, error) {
	return request[[]models.TaskView](ctx, c, http.MethodGet, "/tasks/my-tasks", nil)
}

// TasksByAssignee returns the tasks assigned to userID.
func (c *Client) TasksByAssignee(ctx context.Context, userID string) ([]models.TaskView, error) {
	return request[[]models.TaskView](ctx, c, http.MethodGet, "/tasks/assignee/"+escape(userID), nil)
}

// TasksByEpic returns the tasks of an epic.
func (c *Client) TasksByEpic(ctx context.Context, epicID string) ([]models.TaskView, error) {
	return request[[]models.TaskView](ctx, c, http.MethodGet, "/tasks/epic/"+escape(epicID), nil)
}

// TasksBySprint returns the tasks of a sprint.
func (c *Client) TasksBySprint(ctx context.Context, sprintID string) ([]models.TaskView, error) {
	return request[[]models.TaskView](ctx, c, http.MethodGet, "/tasks/sprint/"+escape(sprintID), nil)
}

// SprintStats counts a sprint's tasks per status name.
func (c *Client) SprintStats(ctx context.Context, sprintID string) (map[string]int64, error) {
	return request[map[string]int64](ctx, c, http.MethodGet, "/tasks/sprint/"+escape(sprintID)+"/stats", nil)
}

// Overdue returns unfinished tasks past their due date.
func (c *Client) Overdue(ctx context.Context) ([]models.TaskView, error) {
	return request[[]models.TaskView](ctx, c, http.MethodGet, "/tasks/overdue", nil)
}

// Recent returns tasks updated in the last hours, newest first.
func (c *Client) Recent(ctx context.Context, hours int) ([]models.TaskView, error) {
	return request[[]models.TaskView](ctx, c, http.MethodGet, "/tasks/recent?hours="+strconv.Itoa(hours), nil)
}

// ListEpics returns every epic.
func (c *Client) ListEpics(ctx context.Context) ([]models.Epic, error) {
	return request[[]models.Epic](ctx, c, http.MethodGet, "/epics", nil)
}

// CreateEpic creates an epic owned by the signed-in user.
func (c *Client) CreateEpic(ctx context.Context, in models.EpicInput) (models.Epic, error) {
	return request[models.Epic](ctx, c, http.MethodPost, "/epics", in)
}

// ListSprints returns every sprint.
func (c *Client) ListSprints(ctx context.Context) ([]models.Sprint, error) {
	return request[[]models.Sprint](ctx, c, http.MethodGet, "/sprints", nil)
}

// CreateSprint creates an inactive sprint.
func (c *Client) CreateSprint(ctx context.Context, in models.SprintInput) (models.Sprint, error) {
	return request[models.Sprint](ctx, c, http.MethodPost, "/sprints", in)
}

// StartSprint activates a sprint.
func (c *Client) StartSprint(ctx context.Context, id string) (models.Sprint, error) {
	return request[models.Sprint](ctx, c, http.MethodPatch, "/sprints/"+escape(id)+"/start", nil)
}

// EndSprint deactivates a sprint.
func (c *Client) EndSprint(ctx context.Context, id string) (models.Sprint, error) {
	return request[models.Sprint](ctx, c, http.MethodPatch, "/sprints/"+escape(id)+"/end", nil)
}

func escape(segment string) string {
	return url.PathEscape(segment)
}
