package auth

import (
	"context"
	"errors"
	"testing"
)

func TestProfile(t *testing.T) {
	env := newTestEnv(t)
	alice := seedTestUser(t, env, "alice", RoleUser)

	got, err := env.svc.Profile(asIdentity(alice))
	if err != nil {
		t.Fatalf("Profile() error = %v", err)
	}
	if got.ID != alice.ID || got.Email != alice.Email {
		t.Errorf("Profile() = %+v", got)
	}

	if _, err := env.svc.Profile(context.Background()); !errors.Is(err, ErrAuthenticationRequired) {
		t.Errorf("Profile(anonymous) error = %v, want ErrAuthenticationRequired", err)
	}
}

func TestListUsers(t *testing.T) {
	env := newTestEnv(t)
	admin := seedTestUser(t, env, "root", RoleAdmin)
	alice := seedTestUser(t, env, "alice", RoleUser)

	users, err := env.svc.ListUsers(asIdentity(admin))
	if err != nil {
		t.Fatalf("ListUsers() error = %v", err)
	}
	if len(users) != 2 {
		t.Errorf("ListUsers() returned %d users, want 2", len(users))
	}

	if _, err := env.svc.ListUsers(asIdentity(alice)); !errors.Is(err, ErrForbidden) {
		t.Errorf("ListUsers(user) error = %v, want ErrForbidden", err)
	}
	if _, err := env.svc.ListUsers(context.Background()); !errors.Is(err, ErrAuthenticationRequired) {
		t.Errorf("ListUsers(anonymous) error = %v, want ErrAuthenticationRequired", err)
	}
}

func TestSetRole(t *testing.T) {
	env := newTestEnv(t)
	admin := seedTestUser(t, env, "root", RoleAdmin)
	alice := seedTestUser(t, env, "alice", RoleUser)
	ctx := asIdentity(admin)

	t.Run("ban blocks login", func(t *testing.T) {
		got, err := env.svc.SetRole(ctx, alice.ID, RoleBanned)
		if err != nil {
			t.Fatalf("SetRole() error = %v", err)
		}
		if got.Role != RoleBanned {
			t.Errorf("Role = %q, want BANNED", got.Role)
		}
		if _, err := env.svc.Login(context.Background(), "alice", "test-password"); !errors.Is(err, ErrAccountBanned) {
			t.Errorf("Login() after ban error = %v, want ErrAccountBanned", err)
		}
	})

	t.Run("unban restores login", func(t *testing.T) {
		if _, err := env.svc.SetRole(ctx, alice.ID, RoleUser); err != nil {
			t.Fatalf("SetRole() error = %v", err)
		}
		if _, err := env.svc.Login(context.Background(), "alice", "test-password"); err != nil {
			t.Errorf("Login() after unban error = %v", err)
		}
	})

	t.Run("promote", func(t *testing.T) {
		got, err := env.svc.SetRole(ctx, alice.ID, RoleAdmin)
		if err != nil || got.Role != RoleAdmin {
			t.Errorf("SetRole(ADMIN) = %+v, %v", got, err)
		}
	})

	t.Run("unchanged role is a no-op", func(t *testing.T) {
		got, err := env.svc.SetRole(ctx, alice.ID, RoleAdmin)
		if err != nil || got.Role != RoleAdmin {
			t.Errorf("SetRole(same) = %+v, %v", got, err)
		}
	})

	errorCases := []struct {
		name   string
		ctx    context.Context
		userID string
		role   Role
		want   error
	}{
		{"self demote", ctx, admin.ID, RoleUser, ErrSelfModification},
		{"self ban", ctx, admin.ID, RoleBanned, ErrSelfModification},
		{"unknown user", ctx, "usr-missing", RoleBanned, ErrUserNotFound},
		{"non admin caller", asIdentity(&User{ID: "usr-x", Username: "x", Role: RoleUser}), alice.ID, RoleBanned, ErrForbidden},
		{"anonymous caller", context.Background(), alice.ID, RoleBanned, ErrAuthenticationRequired},
	}
	for _, tt := range errorCases {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := env.svc.SetRole(tt.ctx, tt.userID, tt.role); !errors.Is(err, tt.want) {
				t.Errorf("SetRole() error = %v, want %v", err, tt.want)
			}
		})
	}

	t.Run("invalid role", func(t *testing.T) {
		var verr *ValidationError
		if _, err := env.svc.SetRole(ctx, alice.ID, "OWNER"); !errors.As(err, &verr) {
			t.Errorf("SetRole(OWNER) error = %v, want *ValidationError", err)
		}
	})
}
