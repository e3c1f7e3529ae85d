package auth

import (
	"context"
	"errors"
	"testing"
)

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
		wantOK bool
	}{
		{"Bearer abc.def.ghi", "abc.def.ghi", true},
		{"Bearer   padded  ", "padded", true},
		{"Bearer ", "", false},
		{"bearer abc", "", false},
		{"Basic dXNlcjpwYXNz", "", false},
		{"abc.def.ghi", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			got, ok := BearerToken(tt.header)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("BearerToken(%q) = %q, %v; want %q, %v", tt.header, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestIdentityContext(t *testing.T) {
	ctx := context.Background()
	if _, ok := IdentityFrom(ctx); ok {
		t.Fatal("empty context should carry no identity")
	}

	id := Identity{UserID: "usr-1", Username: "alice", Role: RoleAdmin}
	got, ok := IdentityFrom(WithIdentity(ctx, id))
	if !ok || got != id {
		t.Errorf("IdentityFrom() = %+v, %v; want %+v, true", got, ok, id)
	}

	if auth := got.Authorities(); len(auth) != 1 || auth[0] != "ROLE_ADMIN" {
		t.Errorf("Authorities() = %v, want [ROLE_ADMIN]", auth)
	}
}

type failingLookup struct{}

func (failingLookup) FindByUsername(context.Context, string) (*User, bool, error) {
	return nil, false, errors.New("store offline")
}

func TestAuthenticator_Resolve(t *testing.T) {
	env := newTestEnv(t)
	alice := seedTestUser(t, env, "alice", RoleUser)
	a := NewAuthenticator(env.tokens, env.users, discardLogger())

	token, err := env.tokens.Issue("alice", RoleUser)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	ghostToken, err := env.tokens.Issue("ghost", RoleAdmin)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	t.Run("valid token binds stored identity", func(t *testing.T) {
		id, ok := a.Resolve(context.Background(), "Bearer "+token)
		if !ok {
			t.Fatal("Resolve() should bind an identity")
		}
		if id.UserID != alice.ID || id.Username != "alice" || id.Role != RoleUser {
			t.Errorf("Resolve() = %+v", id)
		}
	})

	t.Run("role comes from the store, not the token", func(t *testing.T) {
		if err := env.users.UpdateRole(context.Background(), alice.ID, RoleBanned); err != nil {
			t.Fatalf("UpdateRole() error = %v", err)
		}
		t.Cleanup(func() {
			env.users.UpdateRole(context.Background(), alice.ID, RoleUser) //nolint:errcheck // test cleanup
		})

		id, ok := a.Resolve(context.Background(), "Bearer "+token)
		if !ok || id.Role != RoleBanned {
			t.Errorf("Resolve() = %+v, %v; want BANNED identity", id, ok)
		}
	})

	anonymous := []struct {
		name   string
		header string
	}{
		{"no header", ""},
		{"malformed header", "Token " + token},
		{"invalid token", "Bearer not.a.token"},
		{"user no longer exists", "Bearer " + ghostToken},
	}
	for _, tt := range anonymous {
		t.Run(tt.name, func(t *testing.T) {
			if id, ok := a.Resolve(context.Background(), tt.header); ok {
				t.Errorf("Resolve() = %+v, want anonymous", id)
			}
		})
	}

	t.Run("expired token", func(t *testing.T) {
		env.clock.Advance(DefaultTokenTTL)
		t.Cleanup(func() { env.clock.Advance(-DefaultTokenTTL) })

		if _, ok := a.Resolve(context.Background(), "Bearer "+token); ok {
			t.Error("Resolve() should not bind an identity for an expired token")
		}
	})

	t.Run("store failure degrades to anonymous", func(t *testing.T) {
		broken := NewAuthenticator(env.tokens, failingLookup{}, discardLogger())
		if _, ok := broken.Resolve(context.Background(), "Bearer "+token); ok {
			t.Error("Resolve() should not bind an identity when the lookup fails")
		}
	})
}
