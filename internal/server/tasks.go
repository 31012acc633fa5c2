package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"taskboard/internal/models"
	"taskboard/internal/task"
)

// handleListTasks returns every task.
func (s *Server) handleListTasks(c *gin.Context) {
	tasks, err := s.tasks.List(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, tasks)
}

// handleFilterTasks applies the criteria in the body. An empty body matches everything.
func (s *Server) handleFilterTasks(c *gin.Context) {
	var filter models.TaskFilter
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&filter); err != nil && !errors.Is(err, io.EOF) {
			s.respondError(c, http.StatusBadRequest, err)
			return
		}
	}
	tasks, err := s.tasks.Filter(c.Request.Context(), filter)
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, tasks)
}

func (s *Server) handleTasksByAssignee(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	tasks, err := s.tasks.ByAssignee(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, tasks)
}

// handleMyTasks returns the caller's unfinished tasks.
func (s *Server) handleMyTasks(c *gin.Context) {
	tasks, err := s.tasks.ActiveForUser(c.Request.Context(), actorID(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, tasks)
}

func (s *Server) handleTasksByEpic(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	tasks, err := s.tasks.ByEpic(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, tasks)
}

func (s *Server) handleTasksBySprint(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	tasks, err := s.tasks.BySprint(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, tasks)
}

func (s *Server) handleSprintStats(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	stats, err := s.tasks.SprintStats(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, stats)
}

func (s *Server) handleOverdueTasks(c *gin.Context) {
	tasks, err := s.tasks.Overdue(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, tasks)
}

// handleRecentTasks returns tasks updated in the last ?hours (default 24).
func (s *Server) handleRecentTasks(c *gin.Context) {
	hours := task.DefaultRecentHours
	if raw := c.Query("hours"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			s.respondError(c, http.StatusBadRequest, fmt.Errorf("hours must be an integer"))
			return
		}
		hours = n
	}
	tasks, err := s.tasks.RecentlyUpdated(c.Request.Context(), hours)
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, tasks)
}

func (s *Server) handleGetTask(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	view, err := s.tasks.Get(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, view)
}

// handleCreateTask creates a task owned by the caller.
func (s *Server) handleCreateTask(c *gin.Context) {
	var req models.TaskInput
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	view, err := s.tasks.Create(c.Request.Context(), req, actorID(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, view)
}

// handleUpdateTask replaces the editable fields of a task.
func (s *Server) handleUpdateTask(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req models.TaskInput
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	view, err := s.tasks.Update(c.Request.Context(), id, req, actorID(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, view)
}

// handleDeleteTask removes a task completely.
func (s *Server) handleDeleteTask(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := s.tasks.Delete(c.Request.Context(), id, actorID(c)); err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusNoContent, nil)
}

func (s *Server) handleChangeStatus(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	statusID, ok := parseID(c, "statusId")
	if !ok {
		return
	}
	view, err := s.tasks.ChangeStatus(c.Request.Context(), id, statusID, actorID(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, view)
}

func (s *Server) handleAssignTask(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	assigneeID, ok := parseID(c, "assigneeId")
	if !ok {
		return
	}
	view, err := s.tasks.Assign(c.Request.Context(), id, assigneeID, actorID(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, view)
}

func (s *Server) handleAddToSprint(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	sprintID, ok := parseID(c, "sprintId")
	if !ok {
		return
	}
	view, err := s.tasks.AddToSprint(c.Request.Context(), id, sprintID, actorID(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, view)
}

func (s *Server) handleRemoveFromSprint(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	view, err := s.tasks.RemoveFromSprint(c.Request.Context(), id, actorID(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, view)
}

func (s *Server) handleAddToEpic(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	epicID, ok := parseID(c, "epicId")
	if !ok {
		return
	}
	view, err := s.tasks.AddToEpic(c.Request.Context(), id, epicID, actorID(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, view)
}

func (s *Server) handleRemoveFromEpic(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	view, err := s.tasks.RemoveFromEpic(c.Request.Context(), id, actorID(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, view)
}
