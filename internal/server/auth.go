package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"taskboard/internal/models"
)

const (
	actorIDKey    = "actorID"
	actorRolesKey = "actorRoles"
)

type googleLoginRequest struct {
	IDToken string `json:"idToken" binding:"required"`
}

// requireAuth rejects requests without a valid bearer token and records the
// token subject as the acting user.
func (s *Server) requireAuth(c *gin.Context) {
	header := c.GetHeader("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(token) == "" {
		s.respondError(c, http.StatusUnauthorized, fmt.Errorf("missing bearer token: %w", models.ErrUnauthenticated))
		return
	}
	claims, err := s.identity.Validate(strings.TrimSpace(token))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Set(actorIDKey, claims.Subject)
	c.Set(actorRolesKey, claims.RoleNames())
	c.Next()
}

func actorID(c *gin.Context) string {
	return c.GetString(actorIDKey)
}

// handleGoogleLogin exchanges a Google ID token for a bearer token.
func (s *Server) handleGoogleLogin(c *gin.Context) {
	var req googleLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	res, err := s.identity.Authenticate(c.Request.Context(), req.IDToken)
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, res)
}

// handleValidate answers 200 for a valid bearer token.
func (s *Server) handleValidate(c *gin.Context) {
	respondSuccess(c, http.StatusOK, gin.H{
		"valid":  true,
		"userId": actorID(c),
		"roles":  c.GetStringSlice(actorRolesKey),
	})
}
