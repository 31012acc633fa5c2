package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskboard/internal/models"
)

func TestClientSendsTokenAndDecodes(t *testing.T) {
	var seen []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Method+" "+r.URL.RequestURI())
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, UserAgent, r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/json")

		switch r.URL.Path {
		case "/api/tasks":
			_ = json.NewEncoder(w).Encode([]models.TaskView{{ID: "t1", Title: "Ship"}})
		case "/api/tasks/filter":
			var f models.TaskFilter
			if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&f)) || !assert.NotNil(t, f.StatusID) {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			_ = json.NewEncoder(w).Encode([]models.TaskView{{ID: "t2", StatusID: *f.StatusID}})
		case "/api/tasks/t1":
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := New(srv.URL+"/api/", WithToken("secret"))
	ctx := context.Background()

	tasks, err := c.ListTasks(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "Ship", tasks[0].Title)

	done := "done-id"
	filtered, err := c.FilterTasks(ctx, models.TaskFilter{StatusID: &done})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, done, filtered[0].StatusID)

	require.NoError(t, c.DeleteTask(ctx, "t1"))

	assert.Equal(t, []string{"GET /api/tasks", "POST /api/tasks/filter", "DELETE /api/tasks/t1"}, seen)
}

func TestClientSurfacesServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":"you don't have permission to delete this task: forbidden"}`))
	}))
	defer srv.Close()

	err := New(srv.URL).DeleteTask(context.Background(), "t1")
	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusForbidden, apiErr.Code)
	assert.Contains(t, apiErr.Message, "permission")
	assert.Contains(t, err.Error(), "(403)")
}

func TestRecentPassesHours(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/tasks/recent", r.URL.Path)
		assert.Equal(t, "6", r.URL.Query().Get("hours"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	tasks, err := New(srv.URL).Recent(context.Background(), 6)
	require.NoError(t, err)
	assert.Empty(t, tasks)
}
