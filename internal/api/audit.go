package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/AtulPatel1221/budgetwise-app/internal/audit"
	"github.com/AtulPatel1221/budgetwise-app/internal/infrastructure/mqtt"
)

// eventQueueSize bounds the security events waiting for the writer.
const eventQueueSize = 256

// recordEvent counts the event in telemetry immediately and queues the
// audit row and bus message for runEventWriter. A full queue drops the
// event with a warning; requests never wait on SQLite or the broker.
//
// entityID is the account concerned and actorID the one acting; both may
// be empty for anonymous attempts.
func (s *Server) recordEvent(action, entityID, actorID, role string, details map[string]any) {
	if s.telemetry != nil {
		s.telemetry.WriteAuthEvent(action, role)
	}
	if s.eventQ == nil {
		return
	}

	event := &audit.Event{
		Action:     action,
		EntityType: audit.EntityUser,
		EntityID:   entityID,
		UserID:     actorID,
		Source:     "api",
		Details:    details,
		CreatedAt:  time.Now().UTC(),
	}

	select {
	case s.eventQ <- event:
	default:
		s.logger.Warn("event queue full, dropping security event", "action", action, "entity_id", entityID)
	}
}

// runEventWriter is the single consumer of the event queue. On ctx
// cancellation it writes whatever is still queued, then returns.
func (s *Server) runEventWriter(ctx context.Context) {
	for {
		select {
		case event := <-s.eventQ:
			s.writeEvent(event)
		case <-ctx.Done():
			for len(s.eventQ) > 0 {
				s.writeEvent(<-s.eventQ)
			}
			return
		}
	}
}

// writeEvent stores the event and mirrors it on budgetwise/auth/events.
// Failures in either sink are logged and otherwise ignored.
func (s *Server) writeEvent(event *audit.Event) {
	if s.auditRepo != nil {
		if err := s.auditRepo.Create(context.Background(), event); err != nil {
			s.logger.Error("audit write failed", "action", event.Action, "entity_id", event.EntityID, "error", err)
		}
	}
	if s.events != nil {
		if err := s.events.PublishJSON(mqtt.Topics{}.AuthEvent(event.Action), event); err != nil {
			s.logger.Warn("security event publish failed", "action", event.Action, "error", err)
		}
	}
}

// handleListEvents serves GET /api/admin/audit.
//
//	?action=login_failed&entity_id=usr-1&user_id=usr-2&limit=50&offset=0
func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	if s.auditRepo == nil {
		writeInternalError(w, "audit trail not configured")
		return
	}

	q := r.URL.Query()
	filter := audit.Filter{
		Action:   q.Get("action"),
		EntityID: q.Get("entity_id"),
		UserID:   q.Get("user_id"),
	}

	var ok bool
	if filter.Limit, ok = queryInt(w, q.Get("limit"), "limit"); !ok {
		return
	}
	if filter.Offset, ok = queryInt(w, q.Get("offset"), "offset"); !ok {
		return
	}

	result, err := s.auditRepo.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("listing audit events failed", "error", err)
		writeInternalError(w, "failed to list audit events")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// queryInt parses an optional non-negative query parameter, answering 400
// itself when the value is unusable.
func queryInt(w http.ResponseWriter, raw, name string) (int, bool) {
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		writeBadRequest(w, name+" must be a non-negative integer")
		return 0, false
	}
	return n, true
}
