package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"taskboard/internal/models"
)

// UserStore is the slice of the entity store used for sign-in.
type UserStore interface {
	GetUserByGoogleID(ctx context.Context, googleID string) (models.User, error)
	CreateUser(ctx context.Context, u models.User) (models.User, error)
	GetRoleByName(ctx context.Context, name string) (models.Role, error)
}

// Service exchanges a Google ID token for a bearer token.
type Service struct {
	verifier    Verifier
	issuer      *Issuer
	users       UserStore
	adminEmails map[string]bool
	logger      *slog.Logger
}

// NewService wires sign-in. Users whose email is in adminEmails are created as ADMIN.
func NewService(verifier Verifier, issuer *Issuer, users UserStore, adminEmails []string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	admins := make(map[string]bool, len(adminEmails))
	for _, e := range adminEmails {
		if e = strings.ToLower(strings.TrimSpace(e)); e != "" {
			admins[e] = true
		}
	}
	return &Service{verifier: verifier, issuer: issuer, users: users, adminEmails: admins, logger: logger}
}

// Authenticate verifies idToken, finds or creates its user and issues a token.
func (s *Service) Authenticate(ctx context.Context, idToken string) (models.AuthResult, error) {
	if strings.TrimSpace(idToken) == "" {
		return models.AuthResult{}, fmt.Errorf("%w: idToken is required", models.ErrValidation)
	}
	ident, err := s.verifier.Verify(ctx, idToken)
	if err != nil {
		s.logger.Warn("id token rejected", slog.String("error", err.Error()))
		if errors.Is(err, models.ErrUnauthenticated) {
			return models.AuthResult{}, err
		}
		return models.AuthResult{}, fmt.Errorf("%w: %v", models.ErrUnauthenticated, err)
	}

	user, err := s.findOrCreate(ctx, ident)
	if err != nil {
		return models.AuthResult{}, err
	}

	token, err := s.issuer.Issue(user.ID, user.Email, user.RoleName)
	if err != nil {
		return models.AuthResult{}, fmt.Errorf("issue token: %w", err)
	}
	return models.AuthResult{Token: token, UserID: user.ID, Name: user.Name, Email: user.Email}, nil
}

// Validate checks a bearer token.
func (s *Service) Validate(token string) (Claims, error) {
	return s.issuer.Validate(token)
}

func (s *Service) findOrCreate(ctx context.Context, ident ExternalIdentity) (models.User, error) {
	user, err := s.users.GetUserByGoogleID(ctx, ident.Subject)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return models.User{}, err
	}

	roleName := models.RoleDeveloper
	if s.adminEmails[strings.ToLower(ident.Email)] {
		roleName = models.RoleAdmin
	}
	role, err := s.users.GetRoleByName(ctx, roleName)
	if err != nil {
		return models.User{}, fmt.Errorf("default role: %w", err)
	}

	user, err = s.users.CreateUser(ctx, models.User{
		GoogleID: ident.Subject,
		Email:    ident.Email,
		Name:     displayName(ident),
		RoleID:   role.ID,
	})
	if err != nil {
		// A concurrent first sign-in for the same subject may have won the insert.
		if existing, lookupErr := s.users.GetUserByGoogleID(ctx, ident.Subject); lookupErr == nil {
			return existing, nil
		}
		return models.User{}, err
	}
	s.logger.Info("user provisioned", slog.String("user", user.ID), slog.String("role", user.RoleName))
	return user, nil
}

func displayName(ident ExternalIdentity) string {
	if name := strings.TrimSpace(ident.Name); name != "" {
		return name
	}
	local, _, _ := strings.Cut(ident.Email, "@")
	return local
}
