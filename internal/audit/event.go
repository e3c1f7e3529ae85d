// Package audit keeps the trail of BudgetWise security events in the
// audit_logs table and serves it back, newest first, to admins.
package audit

import (
	"context"
	"time"
)

// Recorded actions.
const (
	ActionSignup         = "signup"
	ActionLogin          = "login"
	ActionLoginFailed    = "login_failed"
	ActionLoginBanned    = "login_banned"
	ActionPasswordChange = "password_change"
	ActionResetRequest   = "reset_request"
	ActionResetComplete  = "reset_complete"
	ActionRoleChange     = "role_change"
)

// EntityUser is the entity type of every account event.
const EntityUser = "user"

// Event is one audit_logs row. EntityID names the account concerned and
// UserID the account that acted; either may be empty for anonymous
// attempts. Details must never hold passwords or tokens.
type Event struct {
	ID         string         `json:"id"`
	Action     string         `json:"action"`
	EntityType string         `json:"entity_type"`
	EntityID   string         `json:"entity_id,omitempty"`
	UserID     string         `json:"user_id,omitempty"`
	Source     string         `json:"source"`
	Details    map[string]any `json:"details,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// Filter narrows List. Zero fields match everything; Limit defaults to 50
// and is capped at 200.
type Filter struct {
	Action   string
	EntityID string
	UserID   string
	Limit    int
	Offset   int
}

// ListResult is one page of events plus the unpaged match count.
type ListResult struct {
	Events []Event `json:"events"`
	Total  int     `json:"total"`
	Limit  int     `json:"limit"`
	Offset int     `json:"offset"`
}

// Repository persists and queries events.
type Repository interface {
	Create(ctx context.Context, event *Event) error
	List(ctx context.Context, filter Filter) (*ListResult, error)
	CountByAction(ctx context.Context, since time.Time) (map[string]int, error)
}
