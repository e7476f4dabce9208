// Package session turns bearer tokens into identities. It is the only place
// that knows how tokens are signed or revoked; everything downstream works
// with an Identity.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperrors "kasku/internal/errors"
	"kasku/internal/logger"
	"kasku/internal/uuid"
)

const issuer = "kasku-api"

// Identity is an authenticated user as seen by the rest of the application.
type Identity struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Image  string `json:"image,omitempty"`
}

// Claims represents the claims in the JWT
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Image  string `json:"image,omitempty"`
	jwt.RegisteredClaims
}

// Resolver resolves a bearer token into an Identity.
type Resolver interface {
	Resolve(ctx context.Context, token string) (*Identity, error)
}

// RevocationStore remembers tokens that were logged out before they expired.
type RevocationStore interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// Manager issues, resolves and revokes HS256 session tokens.
type Manager struct {
	secret  []byte
	ttl     time.Duration
	revoked RevocationStore
	now     func() time.Time
}

// NewManager creates a Manager. revoked may be nil, in which case logout is a
// no-op and tokens stay valid until they expire.
func NewManager(secret string, ttl time.Duration, revoked RevocationStore) *Manager {
	return &Manager{
		secret:  []byte(secret),
		ttl:     ttl,
		revoked: revoked,
		now:     time.Now,
	}
}

// Issue signs a token for the identity and returns it with its expiry.
func (m *Manager) Issue(id Identity) (string, time.Time, error) {
	now := m.now()
	expiresAt := now.Add(m.ttl)
	claims := &Claims{
		UserID: id.UserID,
		Email:  id.Email,
		Name:   id.Name,
		Image:  id.Image,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New(),
			Subject:   id.UserID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Resolve validates the token and returns its identity. Invalid, expired and
// revoked tokens all yield ErrUnauthorized.
func (m *Manager) Resolve(ctx context.Context, token string) (*Identity, error) {
	claims, err := m.parse(token)
	if err != nil {
		return nil, apperrors.ErrUnauthorized
	}

	if m.revoked != nil && claims.ID != "" {
		revoked, err := m.revoked.IsRevoked(ctx, claims.ID)
		if err != nil {
			// The store being down should not lock every user out.
			logger.Get().Warnw("revocation lookup failed", "error", err)
		} else if revoked {
			return nil, apperrors.ErrUnauthorized
		}
	}

	return &Identity{
		UserID: claims.UserID,
		Email:  claims.Email,
		Name:   claims.Name,
		Image:  claims.Image,
	}, nil
}

// Revoke invalidates the token for the rest of its lifetime.
func (m *Manager) Revoke(ctx context.Context, token string) error {
	claims, err := m.parse(token)
	if err != nil {
		return apperrors.ErrUnauthorized
	}
	if m.revoked == nil || claims.ID == "" || claims.ExpiresAt == nil {
		return nil
	}

	ttl := claims.ExpiresAt.Sub(m.now())
	if ttl <= 0 {
		return nil
	}
	if err := m.revoked.Revoke(ctx, claims.ID, ttl); err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

func (m *Manager) parse(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithIssuer(issuer), jwt.WithTimeFunc(m.now))
	if err != nil {
		return nil, err
	}
	if !parsed.Valid || claims.UserID == "" {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}
