package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

// DefaultResetTTL is how long a password reset token stays usable.
const DefaultResetTTL = time.Hour

// Notifier delivers an out-of-band message such as the reset e-mail.
type Notifier interface {
	Send(ctx context.Context, to, subject, body string) error
}

// ErrNotificationFailed wraps Notifier failures during a reset request.
var ErrNotificationFailed = errors.New("could not send reset email")

// ServiceConfig wires the Service to its collaborators.
type ServiceConfig struct {
	Users    UserRepository
	Resets   ResetRepository
	Hasher   *Hasher
	Tokens   *TokenService
	Notifier Notifier

	// ResetTTL defaults to DefaultResetTTL.
	ResetTTL time.Duration

	// FrontendBaseURL prefixes reset links: {FrontendBaseURL}/reset-password?token=...
	FrontendBaseURL string

	// AppName appears in reset e-mails. Defaults to "BudgetWise".
	AppName string

	Now    func() time.Time
	Logger *slog.Logger
}

// Service runs the credential flows: signup, login, change password,
// password reset and role administration.
type Service struct {
	users    UserRepository
	resets   ResetRepository
	hasher   *Hasher
	tokens   *TokenService
	notifier Notifier

	resetTTL        time.Duration
	frontendBaseURL string
	appName         string
	now             func() time.Time
	logger          *slog.Logger

	// decoy is verified against when the username is unknown so a miss
	// costs the same as a wrong password.
	decoy string
}

// NewService validates cfg and builds a Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	switch {
	case cfg.Users == nil:
		return nil, errors.New("auth: user repository is required")
	case cfg.Resets == nil:
		return nil, errors.New("auth: reset repository is required")
	case cfg.Hasher == nil:
		return nil, errors.New("auth: hasher is required")
	case cfg.Tokens == nil:
		return nil, errors.New("auth: token service is required")
	case cfg.Notifier == nil:
		return nil, errors.New("auth: notifier is required")
	}

	s := &Service{
		users:           cfg.Users,
		resets:          cfg.Resets,
		hasher:          cfg.Hasher,
		tokens:          cfg.Tokens,
		notifier:        cfg.Notifier,
		resetTTL:        cfg.ResetTTL,
		frontendBaseURL: strings.TrimRight(cfg.FrontendBaseURL, "/"),
		appName:         cfg.AppName,
		now:             cfg.Now,
		logger:          cfg.Logger,
	}
	if s.resetTTL <= 0 {
		s.resetTTL = DefaultResetTTL
	}
	if s.appName == "" {
		s.appName = "BudgetWise"
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}

	decoy, err := s.hasher.Hash(randomHex(16)) //nolint:mnd // throwaway secret
	if err != nil {
		return nil, fmt.Errorf("auth: preparing decoy digest: %w", err)
	}
	s.decoy = decoy

	return s, nil
}

// SignupRequest is the input to Signup. Role may be empty.
type SignupRequest struct {
	Username string
	Password string
	Email    string
	Role     Role
}

// Signup registers a new account. Only a caller whose bound identity is an
// admin may create another admin; anyone else gets a USER account.
func (s *Service) Signup(ctx context.Context, req SignupRequest) (*User, error) {
	if err := firstInvalid(
		check("username", req.Username, notBlank("Username is required")),
		check("password", req.Password, notBlank("Password is required")),
		check("email", req.Email, notBlank("Email is required")),
	); err != nil {
		return nil, err
	}

	username := strings.TrimSpace(req.Username)
	email := strings.TrimSpace(req.Email)

	if err := validation.Validate(email, is.Email); err != nil {
		return nil, invalid("email", "Email must be a valid email address")
	}

	role, err := s.signupRole(ctx, req.Role)
	if err != nil {
		return nil, err
	}

	if _, found, err := s.users.FindByUsername(ctx, username); err != nil {
		return nil, fmt.Errorf("checking username: %w", err)
	} else if found {
		return nil, ErrUsernameExists
	}
	if _, found, err := s.users.FindByEmail(ctx, email); err != nil {
		return nil, fmt.Errorf("checking email: %w", err)
	} else if found {
		return nil, ErrEmailExists
	}

	digest, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	user := &User{
		Username:     username,
		Email:        email,
		PasswordHash: digest,
		Role:         role,
	}
	if err := s.users.Create(ctx, user); err != nil {
		// A concurrent signup may win the race between the checks and the insert.
		if IsConflict(err) {
			return nil, err
		}
		return nil, fmt.Errorf("creating user: %w", err)
	}

	s.logger.Info("user registered", "user_id", user.ID, "role", user.Role)
	return user, nil
}

func (s *Service) signupRole(ctx context.Context, requested Role) (Role, error) {
	switch requested {
	case "", RoleUser:
		return RoleUser, nil
	case RoleAdmin:
		if caller, ok := IdentityFrom(ctx); ok && caller.Role == RoleAdmin {
			return RoleAdmin, nil
		}
		return RoleUser, nil
	default:
		return "", invalid("role", "Role must be USER or ADMIN")
	}
}

// LoginResult is returned by a successful Login.
type LoginResult struct {
	Token    string `json:"token"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
	UserID   string `json:"-"`
}

// Login checks credentials and issues a session token. An unknown username
// and a wrong password both yield ErrInvalidCredentials. ErrAccountBanned is
// only reported once the password has been verified.
func (s *Service) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	if strings.TrimSpace(username) == "" || password == "" {
		return nil, invalid("credentials", "Username and password are required")
	}

	user, found, err := s.users.FindByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, fmt.Errorf("looking up user: %w", err)
	}
	if !found {
		_, _ = s.hasher.Verify(password, s.decoy) //nolint:errcheck // timing equaliser only
		return nil, ErrInvalidCredentials
	}

	ok, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		s.logger.Error("stored password digest unusable", "user_id", user.ID, "error", err)
		return nil, ErrInvalidCredentials
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	if user.Role == RoleBanned {
		return nil, ErrAccountBanned
	}

	if s.hasher.NeedsRehash(user.PasswordHash) {
		s.upgradeDigest(ctx, user, password)
	}

	token, err := s.tokens.Issue(user.Username, user.Role)
	if err != nil {
		return nil, fmt.Errorf("issuing session token: %w", err)
	}

	return &LoginResult{
		Token:    token,
		Username: user.Username,
		Role:     user.Role,
		UserID:   user.ID,
	}, nil
}

// upgradeDigest re-hashes a legacy digest with the current parameters.
// Failure leaves the old digest in place.
func (s *Service) upgradeDigest(ctx context.Context, user *User, password string) {
	digest, err := s.hasher.Hash(password)
	if err == nil {
		err = s.users.UpdatePassword(ctx, user.ID, digest)
	}
	if err != nil {
		s.logger.Warn("password digest upgrade failed", "user_id", user.ID, "error", err)
		return
	}
	s.logger.Info("password digest upgraded", "user_id", user.ID)
}

// ChangePasswordRequest is the input to ChangePassword.
type ChangePasswordRequest struct {
	OldPassword     string
	NewPassword     string
	ConfirmPassword string
}

// ChangePassword replaces the password of the identity bound to ctx.
// Outstanding reset tokens for the account are discarded.
func (s *Service) ChangePassword(ctx context.Context, req ChangePasswordRequest) (*User, error) {
	caller, ok := IdentityFrom(ctx)
	if !ok {
		return nil, ErrAuthenticationRequired
	}

	if req.OldPassword == "" || req.NewPassword == "" || req.ConfirmPassword == "" {
		return nil, invalid("password", "All fields are required")
	}
	if req.NewPassword != req.ConfirmPassword {
		return nil, invalid("confirmPassword", "New passwords do not match")
	}

	user, found, err := s.users.FindByUsername(ctx, caller.Username)
	if err != nil {
		return nil, fmt.Errorf("looking up user: %w", err)
	}
	if !found {
		return nil, ErrUserNotFound
	}

	matches, err := s.hasher.Verify(req.OldPassword, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verifying old password: %w", err)
	}
	if !matches {
		return nil, invalid("oldPassword", "Old password is incorrect")
	}

	same, err := s.hasher.Verify(req.NewPassword, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("comparing new password: %w", err)
	}
	if same {
		return nil, invalid("newPassword", "New password cannot be same as old password")
	}

	digest, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, user.ID, digest); err != nil {
		return nil, fmt.Errorf("storing password: %w", err)
	}

	if err := s.resets.DeleteAllForUser(ctx, user.ID); err != nil {
		s.logger.Warn("discarding reset tokens after password change failed", "user_id", user.ID, "error", err)
	}

	s.logger.Info("password changed", "user_id", user.ID)
	return user, nil
}

// notBlank rejects empty and whitespace-only strings with message.
func notBlank(message string) validation.Rule {
	return validation.By(func(value interface{}) error {
		if s, _ := value.(string); strings.TrimSpace(s) == "" {
			return errors.New(message)
		}
		return nil
	})
}

// check validates value and reports the first failure as a ValidationError on field.
func check(field, value string, rules ...validation.Rule) error {
	if err := validation.Validate(value, rules...); err != nil {
		return invalid(field, err.Error())
	}
	return nil
}

func firstInvalid(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func randomHex(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b) //nolint:errcheck // crypto/rand.Read never fails
	return hex.EncodeToString(b)
}
