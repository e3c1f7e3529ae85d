package auth

import (
	"context"
	"fmt"
)

// Profile returns the account of the identity bound to ctx.
func (s *Service) Profile(ctx context.Context) (*User, error) {
	caller, ok := IdentityFrom(ctx)
	if !ok {
		return nil, ErrAuthenticationRequired
	}

	user, found, err := s.users.FindByUsername(ctx, caller.Username)
	if err != nil {
		return nil, fmt.Errorf("looking up profile: %w", err)
	}
	if !found {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// ListUsers returns every account. Admin only.
func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return nil, err
	}

	users, err := s.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	return users, nil
}

// SetRole changes the role of the account userID. Banning, unbanning and
// promoting are all role changes. An admin cannot move their own account
// out of ADMIN.
func (s *Service) SetRole(ctx context.Context, userID string, role Role) (*User, error) {
	caller, err := requireAdmin(ctx)
	if err != nil {
		return nil, err
	}
	if !role.IsValid() {
		return nil, invalid("role", "Role must be USER, ADMIN or BANNED")
	}
	if caller.UserID == userID && role != RoleAdmin {
		return nil, ErrSelfModification
	}

	user, found, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("looking up user: %w", err)
	}
	if !found {
		return nil, ErrUserNotFound
	}

	if user.Role == role {
		return user, nil
	}
	if err := s.users.UpdateRole(ctx, userID, role); err != nil {
		return nil, fmt.Errorf("updating role: %w", err)
	}

	s.logger.Info("user role changed",
		"user_id", userID,
		"from", user.Role,
		"to", role,
		"by", caller.UserID,
	)
	user.Role = role
	return user, nil
}

func requireAdmin(ctx context.Context) (Identity, error) {
	caller, ok := IdentityFrom(ctx)
	if !ok {
		return Identity{}, ErrAuthenticationRequired
	}
	if caller.Role != RoleAdmin {
		return Identity{}, ErrForbidden
	}
	return caller, nil
}
