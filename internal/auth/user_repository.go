package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
)

// UserRepository is the credential store. Lookups report absence through
// the bool result; the error is reserved for store failures.
type UserRepository interface {
	FindByUsername(ctx context.Context, username string) (*User, bool, error)
	FindByEmail(ctx context.Context, email string) (*User, bool, error)
	FindByID(ctx context.Context, id string) (*User, bool, error)
	Create(ctx context.Context, user *User) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	UpdateRole(ctx context.Context, id string, role Role) error
	List(ctx context.Context) ([]User, error)
	Count(ctx context.Context) (int, error)
}

// SQLiteUserRepository stores accounts in the users table.
type SQLiteUserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *SQLiteUserRepository {
	return &SQLiteUserRepository{db: db}
}

const userColumns = "id, username, email, password_hash, role, created_at, updated_at"

// Create inserts a new user. The ID is generated if empty. A duplicate
// username or email yields ErrUsernameExists or ErrEmailExists.
func (r *SQLiteUserRepository) Create(ctx context.Context, user *User) error {
	if user.ID == "" {
		user.ID = "usr-" + uuid.NewString()[:8]
	}
	if user.Role == "" {
		user.Role = RoleUser
	}

	now := time.Now().UTC().Format(time.RFC3339)
	user.CreatedAt = parseStamp(now)
	user.UpdatedAt = user.CreatedAt

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, username, email, password_hash, role, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		user.ID, user.Username, user.Email, user.PasswordHash, string(user.Role), now, now,
	)
	if err != nil {
		if column, ok := uniqueViolation(err); ok {
			if column == "users.email" {
				return ErrEmailExists
			}
			return ErrUsernameExists
		}
		return fmt.Errorf("creating user: %w", err)
	}
	return nil
}

// FindByUsername looks up a user by exact username.
func (r *SQLiteUserRepository) FindByUsername(ctx context.Context, username string) (*User, bool, error) {
	return r.findOne(ctx, "SELECT "+userColumns+" FROM users WHERE username = ?", username)
}

// FindByEmail looks up a user by email, ignoring case.
func (r *SQLiteUserRepository) FindByEmail(ctx context.Context, email string) (*User, bool, error) {
	return r.findOne(ctx, "SELECT "+userColumns+" FROM users WHERE email = ?", email)
}

// FindByID looks up a user by ID.
func (r *SQLiteUserRepository) FindByID(ctx context.Context, id string) (*User, bool, error) {
	return r.findOne(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id)
}

// List returns all users ordered by creation date.
func (r *SQLiteUserRepository) List(ctx context.Context) ([]User, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+userColumns+" FROM users ORDER BY created_at ASC, username ASC")
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	users := []User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating users: %w", err)
	}
	return users, nil
}

// UpdatePassword replaces a user's password digest.
func (r *SQLiteUserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return r.update(ctx, "password_hash", passwordHash, id)
}

// UpdateRole changes a user's role.
func (r *SQLiteUserRepository) UpdateRole(ctx context.Context, id string, role Role) error {
	if !role.IsValid() {
		return fmt.Errorf("updating role: invalid role %q", role)
	}
	return r.update(ctx, "role", string(role), id)
}

// Count returns the total number of user accounts.
func (r *SQLiteUserRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&count); err != nil {
		return 0, fmt.Errorf("counting users: %w", err)
	}
	return count, nil
}

// update sets a single column; column is always a constant from this file.
func (r *SQLiteUserRepository) update(ctx context.Context, column string, value any, id string) error {
	now := time.Now().UTC().Format(time.RFC3339)

	result, err := r.db.ExecContext(ctx,
		"UPDATE users SET "+column+" = ?, updated_at = ? WHERE id = ?", //nolint:gosec // column is a constant
		value, now, id,
	)
	if err != nil {
		return fmt.Errorf("updating %s: %w", column, err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *SQLiteUserRepository) findOne(ctx context.Context, query string, arg any) (*User, bool, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return u, true, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanUser reads one row in userColumns order. sql.ErrNoRows passes
// through unwrapped so findOne can map it to "not found".
func scanUser(row rowScanner) (*User, error) {
	var (
		u                 User
		role              string
		created, modified string
	)
	switch err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &role, &created, &modified); {
	case errors.Is(err, sql.ErrNoRows):
		return nil, err
	case err != nil:
		return nil, fmt.Errorf("scanning user: %w", err)
	}

	u.Role = Role(role)
	u.CreatedAt = parseStamp(created)
	u.UpdatedAt = parseStamp(modified)
	return &u, nil
}

// parseStamp reads a timestamp written by this repository. Anything
// unparseable becomes the zero time.
func parseStamp(v string) time.Time {
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}
	}
	return t
}

// uniqueViolation reports whether err is a SQLite UNIQUE constraint failure
// and, if so, which "table.column" it hit.
func uniqueViolation(err error) (string, bool) {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) || sqliteErr.ExtendedCode != sqlite3.ErrConstraintUnique {
		return "", false
	}
	// Message format: "UNIQUE constraint failed: users.email"
	_, column, _ := strings.Cut(sqliteErr.Error(), "UNIQUE constraint failed: ")
	return strings.TrimSpace(column), true
}
