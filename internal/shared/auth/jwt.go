package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the identity carried by a session token from the hosted auth
// provider. Subject is the user id analyses are stored under.
type Claims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

var (
	ErrMissingSecret = errors.New("auth: JWT_SECRET is required outside dev")
	ErrInvalidToken  = errors.New("auth: invalid token")
)

const (
	devSecret   = "dev-secret"
	clockLeeway = 30 * time.Second
	defaultTTL  = 24 * time.Hour
)

// Verifier checks HS256 session tokens against a shared secret.
type Verifier struct {
	secret []byte
	now    func() time.Time
}

// NewVerifier builds a Verifier for env. Dev-like environments fall back to a
// fixed secret so local tokens can be minted; everywhere else a secret is required.
func NewVerifier(secret, env string) (*Verifier, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		if !devLike(env) {
			return nil, ErrMissingSecret
		}
		secret = devSecret
	}
	return &Verifier{secret: []byte(secret), now: time.Now}, nil
}

// Verify parses token and returns its claims. Any failure, including a
// missing subject, is reported as ErrInvalidToken.
func (v *Verifier) Verify(token string) (Claims, error) {
	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(clockLeeway),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil || !parsed.Valid || claims.Subject == "" {
		return Claims{}, ErrInvalidToken
	}
	return claims, nil
}

// Sign mints a token for claims, filling in issued-at and a 24h expiry when
// absent. Used by tests and local tooling; production tokens come from the provider.
func (v *Verifier) Sign(claims Claims) (string, error) {
	if claims.Subject == "" {
		return "", errors.New("auth: sub is required")
	}
	now := v.now().UTC()
	if claims.IssuedAt == nil {
		claims.IssuedAt = jwt.NewNumericDate(now)
	}
	if claims.ExpiresAt == nil {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(defaultTTL))
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

func devLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "", "dev", "development", "local", "test":
		return true
	}
	return false
}
