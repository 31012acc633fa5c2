package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"taskboard/internal/models"
)

func (s *Server) handleListStatuses(c *gin.Context) {
	statuses, err := s.planning.ListStatuses(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, statuses)
}

func (s *Server) handleListPriorities(c *gin.Context) {
	priorities, err := s.planning.ListPriorities(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, priorities)
}

func (s *Server) handleListRoles(c *gin.Context) {
	roles, err := s.planning.ListRoles(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, roles)
}

func (s *Server) handleListUsers(c *gin.Context) {
	users, err := s.planning.ListUsers(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, users)
}

// handleCurrentUser returns the caller as currently persisted.
func (s *Server) handleCurrentUser(c *gin.Context) {
	user, err := s.planning.GetUser(c.Request.Context(), actorID(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, user)
}

func (s *Server) handleChangeUserRole(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	user, err := s.planning.ChangeUserRole(c.Request.Context(), id, c.Param("role"), actorID(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, user)
}

func (s *Server) handleListEpics(c *gin.Context) {
	epics, err := s.planning.ListEpics(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, epics)
}

func (s *Server) handleGetEpic(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	epic, err := s.planning.GetEpic(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, epic)
}

func (s *Server) handleCreateEpic(c *gin.Context) {
	var req models.EpicInput
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	epic, err := s.planning.CreateEpic(c.Request.Context(), req, actorID(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, epic)
}

func (s *Server) handleListSprints(c *gin.Context) {
	sprints, err := s.planning.ListSprints(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, sprints)
}

func (s *Server) handleGetSprint(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	sprint, err := s.planning.GetSprint(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, sprint)
}

func (s *Server) handleCreateSprint(c *gin.Context) {
	var req models.SprintInput
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	sprint, err := s.planning.CreateSprint(c.Request.Context(), req, actorID(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, sprint)
}

func (s *Server) handleStartSprint(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	sprint, err := s.planning.StartSprint(c.Request.Context(), id, actorID(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, sprint)
}

func (s *Server) handleEndSprint(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	sprint, err := s.planning.EndSprint(c.Request.Context(), id, actorID(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, sprint)
}
