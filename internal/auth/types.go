package auth

import (
	"errors"
	"time"
)

// Role is the single authorisation tier stored on a user record.
type Role string

const (
	// RoleUser is a regular BudgetWise account. Default at signup.
	RoleUser Role = "USER"

	// RoleAdmin can manage other accounts and read the audit trail.
	RoleAdmin Role = "ADMIN"

	// RoleBanned marks an account an admin has locked out. Login is refused
	// once the credentials are confirmed.
	RoleBanned Role = "BANNED"
)

// ValidRoles lists every role a user record may carry.
var ValidRoles = []Role{RoleUser, RoleAdmin, RoleBanned}

// IsValid reports whether r is one of ValidRoles.
func (r Role) IsValid() bool {
	for _, v := range ValidRoles {
		if r == v {
			return true
		}
	}
	return false
}

// Authority returns the granted-authority name derived from the role,
// e.g. "ROLE_ADMIN".
func (r Role) Authority() string {
	return "ROLE_" + string(r)
}

// User is an account held by the credential store.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // never serialised
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ResetToken is a stored password reset grant. Only the SHA-256 of the raw
// token handed to the user is kept.
type ResetToken struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	TokenHash string    `json:"-"` // never serialised
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// Expired reports whether the token is no longer usable at now.
// A token is dead from the instant of its expiry onwards.
func (t *ResetToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// Sentinel errors for auth operations.
var (
	// ErrInvalidCredentials covers both unknown usernames and wrong passwords.
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrAccountBanned is only returned after the password has been verified.
	ErrAccountBanned = errors.New("your account has been banned by admin")

	ErrUsernameExists = errors.New("username already exists")
	ErrEmailExists    = errors.New("email already registered")

	// ErrTokenInvalid is the single outcome for malformed, forged and expired session tokens.
	ErrTokenInvalid = errors.New("invalid token")

	// ErrAuthenticationRequired means no identity is bound to the request.
	ErrAuthenticationRequired = errors.New("authentication required")

	// ErrForbidden means an identity is bound but its role is not allowed.
	ErrForbidden = errors.New("insufficient permissions")

	ErrResetTokenInvalid = errors.New("invalid or expired token")
	ErrResetTokenExpired = errors.New("token expired")

	ErrUserNotFound     = errors.New("user not found")
	ErrSelfModification = errors.New("cannot change the role of your own account")
)

// ValidationError reports a missing or malformed input field. Message is
// safe to show to the caller.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// IsConflict reports whether err is a uniqueness conflict on signup.
func IsConflict(err error) bool {
	return errors.Is(err, ErrUsernameExists) || errors.Is(err, ErrEmailExists)
}
