// Package identity verifies Google ID tokens, provisions users on first
// sign-in and issues the bearer tokens used by the REST API.
package identity

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"

	"taskboard/internal/models"
)

const (
	googleIssuer  = "https://accounts.google.com"
	googleCertURL = "https://www.googleapis.com/oauth2/v3/certs"
)

// ExternalIdentity is what a verified ID token says about its bearer.
type ExternalIdentity struct {
	Subject string
	Email   string
	Name    string
	Picture string
}

// Verifier checks an ID token issued by an external identity provider.
type Verifier interface {
	Verify(ctx context.Context, rawIDToken string) (ExternalIdentity, error)
}

// GoogleVerifier validates Google ID tokens against Google's published keys.
type GoogleVerifier struct {
	verifier *oidc.IDTokenVerifier
}

// NewGoogleVerifier builds a verifier bound to one OAuth client id. Keys are
// fetched lazily on first use.
func NewGoogleVerifier(ctx context.Context, clientID string) (*GoogleVerifier, error) {
	return newGoogleVerifier(ctx, googleIssuer, googleCertURL, clientID)
}

func newGoogleVerifier(ctx context.Context, issuer, certURL, clientID string) (*GoogleVerifier, error) {
	if clientID == "" {
		return nil, fmt.Errorf("google client id is required")
	}
	keySet := oidc.NewRemoteKeySet(ctx, certURL)
	return &GoogleVerifier{
		verifier: oidc.NewVerifier(issuer, keySet, &oidc.Config{ClientID: clientID}),
	}, nil
}

type googleClaims struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// Verify implements Verifier.
func (g *GoogleVerifier) Verify(ctx context.Context, rawIDToken string) (ExternalIdentity, error) {
	token, err := g.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return ExternalIdentity{}, fmt.Errorf("verify id token: %v: %w", err, models.ErrUnauthenticated)
	}
	var claims googleClaims
	if err := token.Claims(&claims); err != nil {
		return ExternalIdentity{}, fmt.Errorf("decode id token claims: %v: %w", err, models.ErrUnauthenticated)
	}
	if claims.Email == "" {
		return ExternalIdentity{}, fmt.Errorf("id token has no email: %w", models.ErrUnauthenticated)
	}
	// Admin provisioning matches on email, so it must be one Google vouches for.
	if !claims.EmailVerified {
		return ExternalIdentity{}, fmt.Errorf("email %s is not verified: %w", claims.Email, models.ErrUnauthenticated)
	}
	return ExternalIdentity{
		Subject: token.Subject,
		Email:   claims.Email,
		Name:    claims.Name,
		Picture: claims.Picture,
	}, nil
}
