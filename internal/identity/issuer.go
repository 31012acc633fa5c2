package identity

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"taskboard/internal/models"
)

const (
	issuerName     = "taskboard"
	rolePrefix     = "ROLE_"
	minSecretBytes = 32
)

// DefaultTokenTTL is how long issued tokens stay valid.
const DefaultTokenTTL = 24 * time.Hour

// Claims is the payload of an issued bearer token.
type Claims struct {
	Email string   `json:"email"`
	Roles []string `json:"roles"`
	jwt.RegisteredClaims
}

// Issuer signs and validates HS256 bearer tokens.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer returns an issuer for secret. A zero ttl means DefaultTokenTTL.
func NewIssuer(secret string, ttl time.Duration) (*Issuer, error) {
	if len(secret) < minSecretBytes {
		return nil, fmt.Errorf("jwt secret must be at least %d bytes", minSecretBytes)
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &Issuer{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// Issue signs a token for userID carrying its role names.
func (i *Issuer) Issue(userID, email string, roles ...string) (string, error) {
	now := i.now()
	claims := Claims{
		Email: email,
		Roles: make([]string, 0, len(roles)),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    issuerName,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}
	for _, r := range roles {
		claims.Roles = append(claims.Roles, rolePrefix+r)
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
}

// Validate parses token and checks its signature, issuer and expiry.
func (i *Issuer) Validate(token string) (Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuerName),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", models.ErrUnauthenticated, err)
	}
	if claims.Subject == "" {
		return Claims{}, fmt.Errorf("%w: token has no subject", models.ErrUnauthenticated)
	}
	return claims, nil
}

// RoleNames strips the ROLE_ prefix from the token's roles.
func (c Claims) RoleNames() []string {
	names := make([]string, 0, len(c.Roles))
	for _, r := range c.Roles {
		names = append(names, strings.TrimPrefix(r, rolePrefix))
	}
	return names
}
