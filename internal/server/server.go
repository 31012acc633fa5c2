package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"taskboard/internal/identity"
	"taskboard/internal/models"
	"taskboard/internal/planning"
	"taskboard/internal/task"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the services the HTTP layer delegates to.
type Deps struct {
	Tasks    *task.Service
	Planning *planning.Service
	Identity *identity.Service
	Store    Pinger
	// Registry receives the request metrics. A fresh registry is used when nil.
	Registry *prometheus.Registry
}

// Server provides HTTP handlers for the task board API.
type Server struct {
	engine   *gin.Engine
	tasks    *task.Service
	planning *planning.Service
	identity *identity.Service
	store    Pinger
	metrics  *requestMetrics
	logger   *slog.Logger
}

// New constructs the HTTP server with routes and middleware configured.
func New(deps Deps, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	registry := deps.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(gin.LoggerWithWriter(gin.DefaultWriter, "/api/healthz", "/metrics"))

	srv := &Server{
		engine:   router,
		tasks:    deps.Tasks,
		planning: deps.Planning,
		identity: deps.Identity,
		store:    deps.Store,
		metrics:  newRequestMetrics(registry),
		logger:   logger,
	}

	srv.registerRoutes()
	return srv
}

// Engine exposes the underlying Gin engine.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// registerRoutes wires all API handlers together.
func (s *Server) registerRoutes() {
	s.engine.GET("/metrics", s.metrics.handler())

	api := s.engine.Group("/api")
	api.Use(s.metrics.middleware())
	{
		api.GET("/healthz", s.handleHealth)
		api.POST("/auth/google", s.handleGoogleLogin)
	}

	authed := api.Group("", s.requireAuth)
	{
		authed.GET("/auth/validate", s.handleValidate)

		tasks := authed.Group("/tasks")
		{
			tasks.GET("", s.handleListTasks)
			tasks.POST("", s.handleCreateTask)
			tasks.POST("/filter", s.handleFilterTasks)
			tasks.GET("/assignee/:id", s.handleTasksByAssignee)
			tasks.GET("/my-tasks", s.handleMyTasks)
			tasks.GET("/epic/:id", s.handleTasksByEpic)
			tasks.GET("/sprint/:id", s.handleTasksBySprint)
			tasks.GET("/sprint/:id/stats", s.handleSprintStats)
			tasks.GET("/overdue", s.handleOverdueTasks)
			tasks.GET("/recent", s.handleRecentTasks)
			tasks.GET("/:id", s.handleGetTask)
			tasks.PUT("/:id", s.handleUpdateTask)
			tasks.DELETE("/:id", s.handleDeleteTask)
			tasks.PATCH("/:id/status/:statusId", s.handleChangeStatus)
			tasks.PATCH("/:id/assign/:assigneeId", s.handleAssignTask)
			tasks.PATCH("/:id/add-to-sprint/:sprintId", s.handleAddToSprint)
			tasks.PATCH("/:id/remove-from-sprint", s.handleRemoveFromSprint)
			tasks.PATCH("/:id/add-to-epic/:epicId", s.handleAddToEpic)
			tasks.PATCH("/:id/remove-from-epic", s.handleRemoveFromEpic)
		}

		authed.GET("/statuses", s.handleListStatuses)
		authed.GET("/priorities", s.handleListPriorities)
		authed.GET("/roles", s.handleListRoles)

		users := authed.Group("/users")
		{
			users.GET("", s.handleListUsers)
			users.GET("/me", s.handleCurrentUser)
			users.PATCH("/:id/role/:role", s.handleChangeUserRole)
		}

		epics := authed.Group("/epics")
		{
			epics.GET("", s.handleListEpics)
			epics.POST("", s.handleCreateEpic)
			epics.GET("/:id", s.handleGetEpic)
		}

		sprints := authed.Group("/sprints")
		{
			sprints.GET("", s.handleListSprints)
			sprints.POST("", s.handleCreateSprint)
			sprints.GET("/:id", s.handleGetSprint)
			sprints.PATCH("/:id/start", s.handleStartSprint)
			sprints.PATCH("/:id/end", s.handleEndSprint)
		}
	}

	s.engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "endpoint not found"})
	})
}

// handleHealth checks that the store answers.
func (s *Server) handleHealth(c *gin.Context) {
	if s.store != nil {
		if err := s.store.Ping(c.Request.Context()); err != nil {
			s.respondError(c, http.StatusServiceUnavailable, err)
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// parseID reads a UUID path parameter.
func parseID(c *gin.Context, name string) (string, bool) {
	raw := c.Param(name)
	id, err := uuid.Parse(raw)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid identifier: " + name})
		return "", false
	}
	return id.String(), true
}

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, models.ErrInvalidState):
		return http.StatusConflict
	case errors.Is(err, models.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrUnauthenticated):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// fail answers with the status the error maps to.
func (s *Server) fail(c *gin.Context, err error) {
	s.respondError(c, statusFor(err), err)
}

// respondError logs the error and returns a JSON payload.
func (s *Server) respondError(c *gin.Context, status int, err error) {
	attrs := []any{slog.String("path", c.FullPath()), slog.Int("status", status), slog.String("error", err.Error())}
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", attrs...)
		c.AbortWithStatusJSON(status, gin.H{"error": "internal server error"})
		return
	}
	s.logger.Warn("request rejected", attrs...)
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

// respondSuccess writes payload, or only the status when payload is nil.
func respondSuccess(c *gin.Context, status int, payload any) {
	if payload == nil {
		c.Status(status)
		return
	}
	c.JSON(status, payload)
}
