package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/AtulPatel1221/budgetwise-app/internal/auth"
)

// Error is the body of every non-2xx response.
type Error struct {
	Message string `json:"error"`
	Code    string `json:"code"`
}

// Error codes.
const (
	ErrCodeBadRequest         = "bad_request"
	ErrCodeValidation         = "validation_error"
	ErrCodeConflict           = "conflict"
	ErrCodeInvalidCredentials = "invalid_credentials"
	ErrCodeUnauthorized       = "unauthorised"
	ErrCodeForbidden          = "forbidden"
	ErrCodeAccountBanned      = "account_banned"
	ErrCodeInvalidToken       = "invalid_token"
	ErrCodeTokenExpired       = "token_expired"
	ErrCodeNotFound           = "not_found"
	ErrCodeSelfModification   = "self_modification"
	ErrCodeNotificationFailed = "notification_failed"
	ErrCodeInternal           = "internal_error"
)

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeMessage writes a 200 response of the form {"message": ...}.
func writeMessage(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusOK, map[string]string{"message": message})
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{Message: message, Code: code})
}

// writeBadRequest writes a 400 error response.
func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// writeUnauthorized writes a 401 error response.
func writeUnauthorized(w http.ResponseWriter) {
	writeError(w, http.StatusUnauthorized, ErrCodeUnauthorized, "Authentication required")
}

// writeForbidden writes a 403 error response.
func writeForbidden(w http.ResponseWriter) {
	writeError(w, http.StatusForbidden, ErrCodeForbidden, "Access denied")
}

// writeInternalError writes a 500 error response.
func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// errorMapping is the HTTP face of one auth error.
type errorMapping struct {
	target  error
	status  int
	code    string
	message string
}

// authErrors is checked in order with errors.Is. Messages are the exact
// strings the web client displays.
var authErrors = []errorMapping{
	{auth.ErrUsernameExists, http.StatusConflict, ErrCodeConflict, "Username already exists"},
	{auth.ErrEmailExists, http.StatusConflict, ErrCodeConflict, "Email already registered"},
	{auth.ErrInvalidCredentials, http.StatusUnauthorized, ErrCodeInvalidCredentials, "Invalid username or password"},
	{auth.ErrTokenInvalid, http.StatusUnauthorized, ErrCodeUnauthorized, "Authentication required"},
	{auth.ErrAuthenticationRequired, http.StatusUnauthorized, ErrCodeUnauthorized, "Authentication required"},
	{auth.ErrAccountBanned, http.StatusForbidden, ErrCodeAccountBanned, "Your account has been banned by admin"},
	{auth.ErrForbidden, http.StatusForbidden, ErrCodeForbidden, "Access denied"},
	{auth.ErrResetTokenExpired, http.StatusBadRequest, ErrCodeTokenExpired, "Token expired"},
	{auth.ErrResetTokenInvalid, http.StatusBadRequest, ErrCodeInvalidToken, "Invalid or expired token"},
	{auth.ErrUserNotFound, http.StatusNotFound, ErrCodeNotFound, "User not found"},
	{auth.ErrSelfModification, http.StatusBadRequest, ErrCodeSelfModification, "You cannot change the role of your own account"},
	{auth.ErrNotificationFailed, http.StatusInternalServerError, ErrCodeNotificationFailed, "Could not send reset email."},
}

// writeServiceError translates an error returned by the auth service.
// Anything outside the known taxonomy is logged and reported as a generic
// 500 so store and driver detail never reaches the caller.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *auth.ValidationError
	if errors.As(err, &verr) {
		writeError(w, http.StatusBadRequest, ErrCodeValidation, verr.Message)
		return
	}

	for _, m := range authErrors {
		if errors.Is(err, m.target) {
			if m.status >= http.StatusInternalServerError {
				s.logger.Error("request failed",
					"path", r.URL.Path,
					"request_id", requestIDFrom(r.Context()),
					"error", err,
				)
			}
			writeError(w, m.status, m.code, m.message)
			return
		}
	}

	s.logger.Error("unexpected error",
		"path", r.URL.Path,
		"request_id", requestIDFrom(r.Context()),
		"error", err,
	)
	writeInternalError(w, "Internal server error")
}

// decodeJSON reads a JSON object body into v. It reports false after
// writing a 400 when the body is missing or malformed.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, ErrCodeBadRequest, "request body too large")
			return false
		}
		writeBadRequest(w, "invalid JSON body")
		return false
	}
	return true
}
