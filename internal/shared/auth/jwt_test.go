package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestSignAndVerifyRoundTrip(t *testing.T) {
	v, err := NewVerifier("test-secret", "production")
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}
	token, err := v.Sign(Claims{Email: "a@b.test", RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1"}})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	claims, err := v.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.Subject != "user-1" || claims.Email != "a@b.test" {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestVerifyRejectsBadTokens(t *testing.T) {
	v, _ := NewVerifier("test-secret", "dev")

	expired, err := v.Sign(Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "user-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	}})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	foreign, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "x"}).SignedString([]byte("other"))
	noSubject, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{ID: "x"}).SignedString([]byte("test-secret"))
	unsigned, _ := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "x"}).SignedString(jwt.UnsafeAllowNoneSignatureType)

	tests := map[string]string{
		"expired":    expired,
		"foreign":    foreign,
		"no subject": noSubject,
		"alg none":   unsigned,
		"garbage":    "a.b.c",
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := v.Verify(token); !errors.Is(err, ErrInvalidToken) {
				t.Fatalf("expected ErrInvalidToken, got %v", err)
			}
		})
	}
}

func TestVerifyAllowsSmallClockSkew(t *testing.T) {
	v, _ := NewVerifier("test-secret", "dev")
	token, err := v.Sign(Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "user-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-10 * time.Second)),
	}})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := v.Verify(token); err != nil {
		t.Fatalf("expected token within leeway to verify, got %v", err)
	}
}

func TestSecretRequiredOutsideDev(t *testing.T) {
	if _, err := NewVerifier("", "production"); !errors.Is(err, ErrMissingSecret) {
		t.Fatalf("expected missing secret error, got %v", err)
	}
	if _, err := NewVerifier("", "local"); err != nil {
		t.Fatalf("expected dev fallback, got %v", err)
	}
}
