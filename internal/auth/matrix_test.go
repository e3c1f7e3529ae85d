package auth

import (
	"errors"
	"testing"
)

func TestDefaultMatrix_Authorize(t *testing.T) {
	m := DefaultMatrix()

	user := Identity{Username: "u", Role: RoleUser}
	admin := Identity{Username: "a", Role: RoleAdmin}
	banned := Identity{Username: "b", Role: RoleBanned}

	tests := []struct {
		name   string
		path   string
		id     Identity
		authed bool
		want   error
	}{
		{"auth is public", "/api/auth/login", Identity{}, false, nil},
		{"auth root is public", "/api/auth", Identity{}, false, nil},
		{"auth public for users too", "/api/auth/me", user, true, nil},

		{"admin anonymous", "/api/admin/users", Identity{}, false, ErrAuthenticationRequired},
		{"admin as user", "/api/admin/users", user, true, ErrForbidden},
		{"admin as admin", "/api/admin/users", admin, true, nil},
		{"admin root as user", "/api/admin", user, true, ErrForbidden},

		{"transactions anonymous", "/api/transactions/42", Identity{}, false, ErrAuthenticationRequired},
		{"transactions as user", "/api/transactions", user, true, nil},
		{"budgets as banned", "/api/budgets/1", banned, true, nil},
		{"reports as user", "/api/reports/export", user, true, nil},
		{"forum as admin", "/api/forum/posts", admin, true, nil},
		{"ai as user", "/api/ai/chat", user, true, nil},
		{"goals as user", "/api/goals", user, true, nil},

		{"user area as user", "/api/user/profile", user, true, nil},
		{"user area as admin", "/api/user/profile", admin, true, nil},
		{"user area as banned", "/api/user/profile", banned, true, ErrForbidden},
		{"user area anonymous", "/api/user/profile", Identity{}, false, ErrAuthenticationRequired},

		{"fallback anonymous", "/api/other", Identity{}, false, ErrAuthenticationRequired},
		{"fallback authenticated", "/api/other", banned, true, nil},

		{"prefix is not a segment match", "/api/authx/login", Identity{}, false, ErrAuthenticationRequired},
		{"dot segments are cleaned", "/api/auth/../admin/users", user, true, ErrForbidden},
		{"trailing slash", "/api/admin/", user, true, ErrForbidden},
		{"escaped slashes stay in one segment", "/api/admin/ban/x%2F..%2F..%2F..%2Fauth%2Fy", Identity{}, false, ErrAuthenticationRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := m.Authorize(tt.path, tt.id, tt.authed)
			if !errors.Is(err, tt.want) || (err == nil) != (tt.want == nil) {
				t.Errorf("Authorize(%q) = %v, want %v", tt.path, err, tt.want)
			}
		})
	}
}

func TestMatrix_FirstMatchWins(t *testing.T) {
	m := &Matrix{
		Rules: []Rule{
			{Pattern: "/api/x/open", Requirement: Public()},
			{Pattern: "/api/x/**", Requirement: AnyRole(RoleAdmin)},
		},
		Fallback: Public(),
	}

	if err := m.Authorize("/api/x/open", Identity{}, false); err != nil {
		t.Errorf("exact rule listed first should win, got %v", err)
	}
	if err := m.Authorize("/api/x/closed", Identity{}, false); !errors.Is(err, ErrAuthenticationRequired) {
		t.Errorf("Authorize(/api/x/closed) = %v, want ErrAuthenticationRequired", err)
	}
	if err := m.Authorize("/elsewhere", Identity{}, false); err != nil {
		t.Errorf("fallback should apply, got %v", err)
	}
}

func TestRequirement_String(t *testing.T) {
	tests := []struct {
		req  Requirement
		want string
	}{
		{Public(), "public"},
		{Authenticated(), "authenticated"},
		{AnyRole(RoleUser, RoleAdmin), "role in {USER, ADMIN}"},
	}
	for _, tt := range tests {
		if got := tt.req.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}
