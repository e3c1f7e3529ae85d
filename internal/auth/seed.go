package auth

import (
	"context"
	"fmt"
	"log/slog"
)

// seedPasswordBytes is the number of random bytes for the seed admin password.
const seedPasswordBytes = 16

// SeedAdmin creates an ADMIN account on first boot when the user table is
// empty and returns its generated password, which never reaches the log.
// The caller shows it to the operator once. Returns "" when seeding was
// skipped.
func SeedAdmin(ctx context.Context, users UserRepository, hasher *Hasher, username, email string, logger *slog.Logger) (string, error) {
	if username == "" {
		return "", nil
	}

	count, err := users.Count(ctx)
	if err != nil {
		return "", fmt.Errorf("checking user count: %w", err)
	}
	if count > 0 {
		logger.Info("users exist, skipping admin seed")
		return "", nil
	}

	password := randomHex(seedPasswordBytes)

	digest, err := hasher.Hash(password)
	if err != nil {
		return "", fmt.Errorf("hashing seed password: %w", err)
	}

	if email == "" {
		email = username + "@localhost"
	}

	admin := &User{
		Username:     username,
		Email:        email,
		PasswordHash: digest,
		Role:         RoleAdmin,
	}
	if err := users.Create(ctx, admin); err != nil {
		return "", fmt.Errorf("creating seed admin: %w", err)
	}

	logger.Warn("seed admin account created",
		"username", username,
		"user_id", admin.ID,
		"action_required", "change the initial password immediately",
	)

	return password, nil
}
