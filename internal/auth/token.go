package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTokenTTL is the session token lifetime when none is configured.
const DefaultTokenTTL = 24 * time.Hour

// minSecretLength matches the configuration check on security.jwt.secret.
const minSecretLength = 32

// Claims is the session token payload: sub, iat, exp plus the role.
type Claims struct {
	jwt.RegisteredClaims
	Role Role `json:"role"`
}

// Subject is what a verified session token asserts.
type Subject struct {
	Username string
	Role     Role
}

// TokenService issues and verifies HS256 session tokens. It holds no
// mutable state and is safe for concurrent use.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
	parser *jwt.Parser
}

// NewTokenService creates a TokenService signing with secret. A zero ttl
// means DefaultTokenTTL; a nil now means time.Now.
func NewTokenService(secret string, ttl time.Duration, now func() time.Time) (*TokenService, error) {
	if len(secret) < minSecretLength {
		return nil, fmt.Errorf("signing secret must be at least %d bytes", minSecretLength)
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	if now == nil {
		now = time.Now
	}

	return &TokenService{
		secret: []byte(secret),
		ttl:    ttl,
		now:    now,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithExpirationRequired(),
			jwt.WithStrictDecoding(),
			jwt.WithTimeFunc(now),
		),
	}, nil
}

// TTL returns the lifetime given to issued tokens.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// Issue signs a token for username carrying role, valid from now until now+TTL.
func (s *TokenService) Issue(username string, role Role) (string, error) {
	if username == "" {
		return "", errors.New("issuing token: empty username")
	}

	now := s.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
		Role: role,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("signing session token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature and expiry of token and returns its subject.
// Every failure, whether malformed, forged or expired, is reported as
// ErrTokenInvalid and nothing else.
func (s *TokenService) Verify(token string) (Subject, error) {
	if token == "" {
		return Subject{}, ErrTokenInvalid
	}

	var claims Claims
	parsed, err := s.parser.ParseWithClaims(token, &claims, func(_ *jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil || !parsed.Valid {
		return Subject{}, ErrTokenInvalid
	}

	if claims.Subject == "" || !claims.Role.IsValid() {
		return Subject{}, ErrTokenInvalid
	}

	return Subject{Username: claims.Subject, Role: claims.Role}, nil
}
