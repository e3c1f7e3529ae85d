package auth

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/url"
	"strings"
	"time"
)

// resetSecretBytes is the entropy of a reset token (256 bits).
const resetSecretBytes = 32

var resetMailTemplate = template.Must(template.New("reset").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #1f2937;">
  <h2>{{.AppName}} password reset</h2>
  <p>Hello {{.Username}},</p>
  <p>We received a request to reset the password for your {{.AppName}} account.
     The link below is valid for {{.Validity}} and can be used once.</p>
  <p><a href="{{.Link}}" style="background:#2563eb;color:#fff;padding:10px 16px;border-radius:6px;text-decoration:none;">Reset password</a></p>
  <p>If you did not ask for this, ignore this e-mail; your password will not change.</p>
</body>
</html>
`))

type resetMail struct {
	AppName  string
	Username string
	Link     string
	Validity string
}

// RequestReset starts a password reset for the account registered under
// email. An unknown address is not an error: the caller must answer both
// cases identically. Any earlier token for the account is discarded.
func (s *Service) RequestReset(ctx context.Context, email string) error {
	if err := check("email", email, notBlank("Email is required")); err != nil {
		return err
	}

	user, found, err := s.users.FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return fmt.Errorf("looking up email: %w", err)
	}
	if !found {
		s.logger.Debug("password reset requested for unregistered email")
		return nil
	}

	raw := randomHex(resetSecretBytes)
	now := s.now()
	token := &ResetToken{
		UserID:    user.ID,
		TokenHash: HashToken(raw),
		ExpiresAt: now.Add(s.resetTTL),
		CreatedAt: now,
	}
	if err := s.resets.ReplaceForUser(ctx, token); err != nil {
		return fmt.Errorf("storing reset token: %w", err)
	}

	subject, body, err := s.renderResetMail(user, raw)
	if err != nil {
		return fmt.Errorf("rendering reset mail: %w", err)
	}
	if err := s.notifier.Send(ctx, user.Email, subject, body); err != nil {
		s.logger.Error("sending reset mail failed", "user_id", user.ID, "error", err)
		return fmt.Errorf("%w: %w", ErrNotificationFailed, err)
	}

	s.logger.Info("password reset requested", "user_id", user.ID, "expires_at", token.ExpiresAt)
	return nil
}

// CompleteReset consumes a reset token and sets the new password.
//
// An unknown token is rejected with ErrResetTokenInvalid and nothing
// changes. An expired token is deleted and rejected with
// ErrResetTokenExpired. A live token is deleted before the password is
// stored; if another request consumed it first, this one gets
// ErrResetTokenInvalid.
func (s *Service) CompleteReset(ctx context.Context, raw, newPassword string) (*User, error) {
	if strings.TrimSpace(raw) == "" || newPassword == "" {
		return nil, invalid("token", "Token and password are required")
	}

	token, found, err := s.resets.FindByToken(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("looking up reset token: %w", err)
	}
	if !found {
		return nil, ErrResetTokenInvalid
	}

	if token.Expired(s.now()) {
		if _, err := s.resets.Delete(ctx, raw); err != nil {
			return nil, fmt.Errorf("purging expired reset token: %w", err)
		}
		return nil, ErrResetTokenExpired
	}

	user, found, err := s.users.FindByID(ctx, token.UserID)
	if err != nil {
		return nil, fmt.Errorf("looking up reset user: %w", err)
	}
	if !found {
		if _, err := s.resets.Delete(ctx, raw); err != nil {
			return nil, fmt.Errorf("purging orphaned reset token: %w", err)
		}
		return nil, ErrResetTokenInvalid
	}

	digest, err := s.hasher.Hash(newPassword)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	claimed, err := s.resets.Delete(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("consuming reset token: %w", err)
	}
	if !claimed {
		return nil, ErrResetTokenInvalid
	}

	if err := s.users.UpdatePassword(ctx, user.ID, digest); err != nil {
		return nil, fmt.Errorf("storing password: %w", err)
	}

	s.logger.Info("password reset completed", "user_id", user.ID)
	return user, nil
}

// ResetLink returns the frontend URL carrying raw.
func (s *Service) ResetLink(raw string) string {
	return s.frontendBaseURL + "/reset-password?token=" + url.QueryEscape(raw)
}

// PurgeExpiredResets deletes every reset token that has expired by now.
func (s *Service) PurgeExpiredResets(ctx context.Context) (int64, error) {
	return s.resets.DeleteExpired(ctx, s.now())
}

func (s *Service) renderResetMail(user *User, raw string) (subject, body string, err error) {
	var buf bytes.Buffer
	err = resetMailTemplate.Execute(&buf, resetMail{
		AppName:  s.appName,
		Username: user.Username,
		Link:     s.ResetLink(raw),
		Validity: humanDuration(s.resetTTL),
	})
	if err != nil {
		return "", "", err
	}
	return s.appName + ": Password Reset Request", buf.String(), nil
}

func humanDuration(d time.Duration) string {
	switch {
	case d == time.Hour:
		return "1 hour"
	case d%time.Hour == 0:
		return fmt.Sprintf("%d hours", d/time.Hour)
	case d%time.Minute == 0:
		return fmt.Sprintf("%d minutes", d/time.Minute)
	default:
		return d.String()
	}
}
