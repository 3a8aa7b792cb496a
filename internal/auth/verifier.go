// Package auth verifies the handshake credential and turns it into an
// Identity. Verification happens once per connection, before the
// websocket upgrade; nothing here is consulted again afterwards.
package auth

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"

	"github.com/avelis/collabd/internal/domain"
)

var (
	ErrTokenMissing = errors.New("Authentication error: Token not provided")
	ErrTokenInvalid = errors.New("Authentication error: Invalid token")
)

// Claims is the payload the REST layer signs into session tokens.
type Claims struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
	Role   string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify checks signature and expiry and decodes the identity. An
// expired token is indistinguishable from a malformed one on purpose;
// only the missing-token case gets its own error.
func (v *Verifier) Verify(token string) (domain.Identity, error) {
	if token == "" {
		return domain.Identity{}, ErrTokenMissing
	}

	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return v.secret, nil
	})
	if err != nil || !parsed.Valid {
		return domain.Identity{}, ErrTokenInvalid
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || claims.UserID == "" {
		return domain.Identity{}, ErrTokenInvalid
	}

	return domain.Identity{
		ID:   domain.UserID(claims.UserID),
		Name: claims.Name,
		Role: claims.Role,
	}, nil
}
