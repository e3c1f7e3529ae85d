package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func newTestTokens(t *testing.T, c *clock) *TokenService {
	t.Helper()
	s, err := NewTokenService(testSecret, 24*time.Hour, c.Now)
	if err != nil {
		t.Fatalf("NewTokenService() error = %v", err)
	}
	return s
}

func TestTokenService_RoundTrip(t *testing.T) {
	c := newClock()
	s := newTestTokens(t, c)

	token, err := s.Issue("alice", RoleUser)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	if parts := strings.Split(token, "."); len(parts) != 3 {
		t.Fatalf("token should have 3 segments, got %d", len(parts))
	}

	got, err := s.Verify(token)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if got.Username != "alice" || got.Role != RoleUser {
		t.Errorf("Verify() = %+v, want alice/USER", got)
	}
}

func TestTokenService_Claims(t *testing.T) {
	c := newClock()
	s := newTestTokens(t, c)

	token, err := s.Issue("alice", RoleAdmin)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	var claims Claims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		t.Fatalf("ParseUnverified() error = %v", err)
	}

	if claims.Subject != "alice" {
		t.Errorf("sub = %q, want alice", claims.Subject)
	}
	if claims.Role != RoleAdmin {
		t.Errorf("role = %q, want ADMIN", claims.Role)
	}
	if !claims.IssuedAt.Time.Equal(c.Now()) {
		t.Errorf("iat = %v, want %v", claims.IssuedAt.Time, c.Now())
	}
	if want := c.Now().Add(24 * time.Hour); !claims.ExpiresAt.Time.Equal(want) {
		t.Errorf("exp = %v, want %v", claims.ExpiresAt.Time, want)
	}
}

func TestTokenService_ExpiryBoundary(t *testing.T) {
	tests := []struct {
		name    string
		advance time.Duration
		wantErr bool
	}{
		{"fresh", 0, false},
		{"one second before exp", 24*time.Hour - time.Second, false},
		{"exactly at exp", 24 * time.Hour, true},
		{"after exp", 24*time.Hour + time.Second, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newClock()
			s := newTestTokens(t, c)

			token, err := s.Issue("alice", RoleUser)
			if err != nil {
				t.Fatalf("Issue() error = %v", err)
			}

			c.Advance(tt.advance)
			_, err = s.Verify(token)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Verify() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrTokenInvalid) {
				t.Errorf("Verify() error = %v, want ErrTokenInvalid", err)
			}
		})
	}
}

func TestTokenService_TamperedSignature(t *testing.T) {
	c := newClock()
	s := newTestTokens(t, c)

	token, err := s.Issue("alice", RoleUser)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	sigStart := strings.LastIndex(token, ".") + 1
	for i := sigStart; i < len(token); i++ {
		b := []byte(token)
		// Swap between two base64url characters so the segment stays decodable.
		if b[i] == 'A' {
			b[i] = 'B'
		} else {
			b[i] = 'A'
		}
		if _, err := s.Verify(string(b)); !errors.Is(err, ErrTokenInvalid) {
			t.Fatalf("tampered byte %d accepted (err = %v)", i, err)
		}
	}
}

func TestTokenService_Rejects(t *testing.T) {
	c := newClock()
	s := newTestTokens(t, c)

	otherKey, err := NewTokenService("another-signing-secret-of-32-bytes!!", time.Hour, c.Now)
	if err != nil {
		t.Fatalf("NewTokenService() error = %v", err)
	}
	forged, err := otherKey.Issue("alice", RoleAdmin)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "alice",
			ExpiresAt: jwt.NewNumericDate(c.Now().Add(time.Hour)),
		},
		Role: RoleUser,
	}).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("signing HS512: %v", err)
	}

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "alice"},
		Role:             RoleUser,
	}).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("signing token without exp: %v", err)
	}

	badRole, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "alice",
			ExpiresAt: jwt.NewNumericDate(c.Now().Add(time.Hour)),
		},
		Role: "ROOT",
	}).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("signing token with bad role: %v", err)
	}

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not-a-token"},
		{"two segments", "aaa.bbb"},
		{"different key", forged},
		{"different algorithm", hs512},
		{"missing exp", noExp},
		{"unknown role", badRole},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Verify(tt.token)
			if err != ErrTokenInvalid { //nolint:errorlint // every failure must be exactly ErrTokenInvalid
				t.Errorf("Verify() error = %v, want exactly ErrTokenInvalid", err)
			}
		})
	}
}

func TestNewTokenService_Validation(t *testing.T) {
	if _, err := NewTokenService("short", time.Hour, nil); err == nil {
		t.Error("NewTokenService() should reject a short secret")
	}

	s, err := NewTokenService(testSecret, 0, nil)
	if err != nil {
		t.Fatalf("NewTokenService() error = %v", err)
	}
	if s.TTL() != DefaultTokenTTL {
		t.Errorf("TTL() = %v, want %v", s.TTL(), DefaultTokenTTL)
	}

	if _, err := s.Issue("", RoleUser); err == nil {
		t.Error("Issue() should reject an empty username")
	}
}
