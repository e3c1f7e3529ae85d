package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/AtulPatel1221/budgetwise-app/internal/audit"
	"github.com/AtulPatel1221/budgetwise-app/internal/auth"
)

// roleChangeResponse is returned by the ban, unban and promote endpoints.
type roleChangeResponse struct {
	Message string     `json:"message"`
	User    *auth.User `json:"user"`
}

// handleProfile returns the caller's account.
func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	user, err := s.svc.Profile(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// handleListUsers returns every account. Password digests are never
// serialised.
func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.svc.ListUsers(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"users": users,
		"count": len(users),
	})
}

func (s *Server) handleBanUser(w http.ResponseWriter, r *http.Request) {
	s.changeRole(w, r, auth.RoleBanned, "User banned successfully")
}

func (s *Server) handleUnbanUser(w http.ResponseWriter, r *http.Request) {
	s.changeRole(w, r, auth.RoleUser, "User unbanned successfully")
}

func (s *Server) handlePromoteUser(w http.ResponseWriter, r *http.Request) {
	s.changeRole(w, r, auth.RoleAdmin, "User promoted successfully")
}

// changeRole sets the role of the account named by the {userID} URL param.
func (s *Server) changeRole(w http.ResponseWriter, r *http.Request, role auth.Role, message string) {
	userID := chi.URLParam(r, "userID")
	if userID == "" {
		writeBadRequest(w, "user ID is required")
		return
	}

	user, err := s.svc.SetRole(r.Context(), userID, role)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	caller, _ := auth.IdentityFrom(r.Context())
	s.recordEvent(audit.ActionRoleChange, user.ID, caller.UserID, string(role), map[string]any{
		"role": string(role),
	})

	writeJSON(w, http.StatusOK, roleChangeResponse{Message: message, User: user})
}
