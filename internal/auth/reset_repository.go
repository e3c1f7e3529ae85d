package auth

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ResetRepository is the reset token store. Raw tokens go in; only their
// SHA-256 is persisted and compared.
type ResetRepository interface {
	FindByToken(ctx context.Context, raw string) (*ResetToken, bool, error)
	Save(ctx context.Context, token *ResetToken) error
	// ReplaceForUser deletes every token of token.UserID and inserts token
	// as one atomic unit.
	ReplaceForUser(ctx context.Context, token *ResetToken) error
	// Delete removes the token and reports whether this call removed it.
	Delete(ctx context.Context, raw string) (bool, error)
	DeleteAllForUser(ctx context.Context, userID string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// HashToken computes the SHA-256 hash of a raw token string for storage.
func HashToken(raw string) string {
	h := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(h[:])
}

// SQLiteResetRepository implements ResetRepository using SQLite.
type SQLiteResetRepository struct {
	db *sql.DB
}

// NewResetRepository creates a new SQLite-backed reset token repository.
func NewResetRepository(db *sql.DB) *SQLiteResetRepository {
	return &SQLiteResetRepository{db: db}
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Save inserts a token. ID and CreatedAt are filled in when empty.
func (r *SQLiteResetRepository) Save(ctx context.Context, token *ResetToken) error {
	return insertResetToken(ctx, r.db, token)
}

// ReplaceForUser runs delete-by-user and insert in one transaction, so two
// concurrent reset requests for the same user cannot leave two live tokens.
func (r *SQLiteResetRepository) ReplaceForUser(ctx context.Context, token *ResetToken) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	if _, err := tx.ExecContext(ctx, "DELETE FROM password_reset_tokens WHERE user_id = ?", token.UserID); err != nil {
		return fmt.Errorf("deleting previous reset tokens: %w", err)
	}
	if err := insertResetToken(ctx, tx, token); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing reset token: %w", err)
	}
	return nil
}

// FindByToken looks up a token by its raw value.
func (r *SQLiteResetRepository) FindByToken(ctx context.Context, raw string) (*ResetToken, bool, error) {
	var t ResetToken
	var expiresAt int64
	var createdAt string

	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, token_hash, expires_at, created_at
		 FROM password_reset_tokens WHERE token_hash = ?`,
		HashToken(raw),
	).Scan(&t.ID, &t.UserID, &t.TokenHash, &expiresAt, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("querying reset token: %w", err)
	}

	t.ExpiresAt = time.UnixMilli(expiresAt).UTC()
	t.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // format is controlled
	return &t, true, nil
}

// Delete removes the token. Only one of several concurrent callers sees true.
func (r *SQLiteResetRepository) Delete(ctx context.Context, raw string) (bool, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM password_reset_tokens WHERE token_hash = ?", HashToken(raw))
	if err != nil {
		return false, fmt.Errorf("deleting reset token: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reading rows affected: %w", err)
	}
	return rows > 0, nil
}

// DeleteAllForUser removes every token issued to userID.
func (r *SQLiteResetRepository) DeleteAllForUser(ctx context.Context, userID string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM password_reset_tokens WHERE user_id = ?", userID); err != nil {
		return fmt.Errorf("deleting reset tokens for user: %w", err)
	}
	return nil
}

// DeleteExpired purges tokens whose expiry is at or before now.
func (r *SQLiteResetRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM password_reset_tokens WHERE expires_at <= ?", now.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("deleting expired reset tokens: %w", err)
	}
	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	return rows, nil
}

func insertResetToken(ctx context.Context, db execer, token *ResetToken) error {
	if token.ID == "" {
		token.ID = "rst-" + uuid.NewString()
	}
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now().UTC().Truncate(time.Second)
	}

	_, err := db.ExecContext(ctx,
		`INSERT INTO password_reset_tokens (id, user_id, token_hash, expires_at, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		token.ID, token.UserID, token.TokenHash, token.ExpiresAt.UnixMilli(),
		token.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting reset token: %w", err)
	}
	return nil
}
