package auth

import (
	"context"
	"log/slog"
	"strings"
)

// Identity is the caller resolved for a single request. It is carried on
// the request context and never stored.
type Identity struct {
	UserID   string
	Username string
	Role     Role
}

// Authorities returns the granted authorities derived from the role.
func (i Identity) Authorities() []string {
	return []string{i.Role.Authority()}
}

// HasRole reports whether the identity's role is one of roles.
func (i Identity) HasRole(roles ...Role) bool {
	for _, r := range roles {
		if i.Role == r {
			return true
		}
	}
	return false
}

type identityKey struct{}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom returns the identity bound to ctx, if any.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}

// UserLookup is the read path the Authenticator needs from the credential store.
type UserLookup interface {
	FindByUsername(ctx context.Context, username string) (*User, bool, error)
}

// Authenticator turns an Authorization header into an Identity. It never
// fails: anything it cannot trust yields no identity, and the decision to
// reject is left to the Matrix.
type Authenticator struct {
	tokens *TokenService
	users  UserLookup
	logger *slog.Logger
}

// NewAuthenticator creates an Authenticator.
func NewAuthenticator(tokens *TokenService, users UserLookup, logger *slog.Logger) *Authenticator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Authenticator{tokens: tokens, users: users, logger: logger}
}

// BearerToken extracts the credential from an "Authorization: Bearer <token>"
// header value.
func BearerToken(header string) (string, bool) {
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// Resolve verifies the bearer credential in header and loads the account it
// names. The role on the returned Identity is the stored role, not the one
// in the token, so bans and promotions apply to tokens already issued.
func (a *Authenticator) Resolve(ctx context.Context, header string) (Identity, bool) {
	token, ok := BearerToken(header)
	if !ok {
		return Identity{}, false
	}

	subject, err := a.tokens.Verify(token)
	if err != nil {
		return Identity{}, false
	}

	user, found, err := a.users.FindByUsername(ctx, subject.Username)
	if err != nil {
		a.logger.Warn("identity lookup failed", "error", err)
		return Identity{}, false
	}
	if !found {
		return Identity{}, false
	}

	return Identity{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
	}, true
}
