// Package auth provides bearer token issuing and verification.
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrInvalidToken = errors.New("invalid token")

// Identity is the authenticated caller of a facade operation. The service
// identity is the elevated principal used by the payment reconciler and
// back-office tooling; it may act on any order.
type Identity struct {
	UserID  uuid.UUID
	Service bool
}

// CanActFor reports whether the identity may read or mutate orders owned by
// userID.
func (id Identity) CanActFor(userID uuid.UUID) bool {
	return id.Service || id.UserID == userID
}

type TokenManager struct {
	secret       []byte
	serviceToken string
}

func NewTokenManager(jwtSecret, serviceToken string) (*TokenManager, error) {
	if len(jwtSecret) < 32 {
		return nil, fmt.Errorf("jwt secret must be at least 32 bytes")
	}
	if serviceToken == "" {
		return nil, fmt.Errorf("service token is required")
	}

	return &TokenManager{
		secret:       []byte(jwtSecret),
		serviceToken: serviceToken,
	}, nil
}

// Issue creates a signed user token carrying the user id as subject. Login
// itself lives outside this service: the storefront's identity layer shares
// JWT_SECRET and mints tokens with these exact claims, so Issue is the
// reference mint, used here by support tooling and tests.
func (m *TokenManager) Issue(userID uuid.UUID, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify resolves a bearer token to an identity. The static service token
// yields the service identity; anything else must be a valid user JWT.
func (m *TokenManager) Verify(bearer string) (Identity, error) {
	if bearer == "" {
		return Identity{}, ErrInvalidToken
	}

	if subtle.ConstantTimeCompare([]byte(bearer), []byte(m.serviceToken)) == 1 {
		return Identity{Service: true}, nil
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(bearer, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: subject is not a user id", ErrInvalidToken)
	}

	return Identity{UserID: userID}, nil
}

type identityContextKey struct{}

// WithIdentity returns a context carrying the authenticated identity.
func WithIdentity(ctx context.Context, identity Identity) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, identityContextKey{}, identity)
}

// FromContext returns the identity stored in context, if any.
func FromContext(ctx context.Context) (Identity, bool) {
	if ctx == nil {
		return Identity{}, false
	}
	identity, ok := ctx.Value(identityContextKey{}).(Identity)
	return identity, ok
}
