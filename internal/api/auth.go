package api

import (
	"errors"
	"net/http"

	"github.com/AtulPatel1221/budgetwise-app/internal/audit"
	"github.com/AtulPatel1221/budgetwise-app/internal/auth"
	"github.com/AtulPatel1221/budgetwise-app/internal/infrastructure/logging"
)

// signupRequest is the JSON body for POST /api/auth/signup.
type signupRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
	Role     string `json:"role,omitempty"`
}

// loginRequest is the JSON body for POST /api/auth/login.
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// changePasswordRequest is the JSON body for POST /api/auth/change-password.
type changePasswordRequest struct {
	OldPassword     string `json:"oldPassword"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

// forgotPasswordRequest is the JSON body for POST /api/auth/forgot-password.
type forgotPasswordRequest struct {
	Email string `json:"email"`
}

// resetPasswordRequest is the JSON body for POST /api/auth/reset-password.
type resetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

// meResponse is the body of GET /api/auth/me.
type meResponse struct {
	Username string    `json:"username"`
	Role     auth.Role `json:"role"`
}

// Success messages, verbatim as the web client expects them.
const (
	msgSignedUp        = "User registered successfully"
	msgPasswordChanged = "Password changed successfully"
	msgResetRequested  = "If that email is registered, a reset link has been sent."
	msgResetCompleted  = "Password has been reset. You can now login."
)

// handleSignup registers an account. A requested ADMIN role is honoured
// only when the caller is already an admin.
func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := s.svc.Signup(r.Context(), auth.SignupRequest{
		Username: req.Username,
		Password: req.Password,
		Email:    req.Email,
		Role:     auth.Role(req.Role),
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	actorID := user.ID
	if caller, ok := auth.IdentityFrom(r.Context()); ok {
		actorID = caller.UserID
	}
	s.recordEvent(audit.ActionSignup, user.ID, actorID, string(user.Role), map[string]any{
		"username": user.Username,
	})

	writeMessage(w, msgSignedUp)
}

// handleLogin checks credentials and returns a session token.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := s.svc.Login(r.Context(), req.Username, req.Password)
	switch {
	case err == nil:
		s.recordEvent(audit.ActionLogin, result.UserID, result.UserID, string(result.Role), nil)
		writeJSON(w, http.StatusOK, result)
	case errors.Is(err, auth.ErrInvalidCredentials):
		s.recordEvent(audit.ActionLoginFailed, "", "", "", map[string]any{
			"username": req.Username,
		})
		s.writeServiceError(w, r, err)
	case errors.Is(err, auth.ErrAccountBanned):
		s.recordEvent(audit.ActionLoginBanned, "", "", string(auth.RoleBanned), map[string]any{
			"username": req.Username,
		})
		s.writeServiceError(w, r, err)
	default:
		s.writeServiceError(w, r, err)
	}
}

// handleChangePassword replaces the caller's password. The auth routes are
// public in the access matrix, so the identity check happens here.
func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.IdentityFrom(r.Context())
	if !ok {
		writeUnauthorized(w)
		return
	}

	var req changePasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := s.svc.ChangePassword(r.Context(), auth.ChangePasswordRequest{
		OldPassword:     req.OldPassword,
		NewPassword:     req.NewPassword,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.recordEvent(audit.ActionPasswordChange, user.ID, caller.UserID, string(caller.Role), nil)
	writeMessage(w, msgPasswordChanged)
}

// handleForgotPassword starts a password reset. The answer is the same
// whether or not the address is registered.
func (s *Server) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := s.svc.RequestReset(r.Context(), req.Email); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.recordEvent(audit.ActionResetRequest, "", "", "", map[string]any{
		"email": logging.MaskEmail(req.Email),
	})
	writeMessage(w, msgResetRequested)
}

// handleResetPassword consumes a reset token and sets the new password.
func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := s.svc.CompleteReset(r.Context(), req.Token, req.NewPassword)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.recordEvent(audit.ActionResetComplete, user.ID, user.ID, string(user.Role), nil)
	writeMessage(w, msgResetCompleted)
}

// handleMe returns the identity bound to the request.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.IdentityFrom(r.Context())
	if !ok {
		writeUnauthorized(w)
		return
	}

	writeJSON(w, http.StatusOK, meResponse{
		Username: caller.Username,
		Role:     caller.Role,
	})
}
