package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, method jwt.SigningMethod, claims jwt.Claims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}

func TestVerifyMissingToken(t *testing.T) {
	v := NewVerifier(testSecret)
	_, err := v.Verify("")
	if !errors.Is(err, ErrTokenMissing) {
		t.Fatalf("expected ErrTokenMissing, got %v", err)
	}
}

func TestVerifyValidToken(t *testing.T) {
	v := NewVerifier(testSecret)
	token := signToken(t, testSecret, jwt.SigningMethodHS256, &Claims{
		UserID: "u1",
		Name:   "Alice",
		Role:   "member",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	id, err := v.Verify(token)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if id.ID != "u1" || id.Name != "Alice" || id.Role != "member" {
		t.Errorf("unexpected identity: %+v", id)
	}
}

func TestVerifyWrongSecret(t *testing.T) {
	v := NewVerifier(testSecret)
	token := signToken(t, "other-secret", jwt.SigningMethodHS256, &Claims{UserID: "u1"})
	if _, err := v.Verify(token); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestVerifyExpiredToken(t *testing.T) {
	v := NewVerifier(testSecret)
	token := signToken(t, testSecret, jwt.SigningMethodHS256, &Claims{
		UserID: "u1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	})
	if _, err := v.Verify(token); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestVerifyRejectsNonHMAC(t *testing.T) {
	v := NewVerifier(testSecret)
	// alg=none style tokens must never pass the keyfunc.
	token := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{UserID: "u1"})
	s, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none token: %v", err)
	}
	if _, err := v.Verify(s); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestVerifyMissingSubjectClaim(t *testing.T) {
	v := NewVerifier(testSecret)
	token := signToken(t, testSecret, jwt.SigningMethodHS256, &Claims{Name: "no-id"})
	if _, err := v.Verify(token); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}
