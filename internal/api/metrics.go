package api

import (
	"context"
	"net/http"
	"runtime"
	"time"
)

// eventWindow is the lookback for per-action security event counts.
const eventWindow = 24 * time.Hour

// SystemMetrics is the body of GET /api/admin/metrics.
type SystemMetrics struct {
	Timestamp     time.Time      `json:"timestamp"`
	Version       string         `json:"version"`
	UptimeSeconds int64          `json:"uptime_seconds"`
	Runtime       RuntimeMetrics `json:"runtime"`
	Users         UserMetrics    `json:"users"`
	Events        EventMetrics   `json:"events"`
	Pool          PoolMetrics    `json:"db_pool"`
	MQTT          LinkMetrics    `json:"mqtt"`
	InfluxDB      LinkMetrics    `json:"influxdb"`
}

type RuntimeMetrics struct {
	GoVersion   string `json:"go_version"`
	Goroutines  int    `json:"goroutines"`
	HeapBytes   uint64 `json:"heap_bytes"`
	HeapObjects uint64 `json:"heap_objects"`
	NumGC       uint32 `json:"num_gc"`
}

// UserMetrics counts accounts by role.
type UserMetrics struct {
	Total  int            `json:"total"`
	ByRole map[string]int `json:"by_role"`
}

// EventMetrics counts audited security events inside eventWindow, plus
// the events still queued for the writer.
type EventMetrics struct {
	WindowHours int            `json:"window_hours"`
	ByAction    map[string]int `json:"by_action"`
	Queued      int            `json:"queued"`
}

type PoolMetrics struct {
	Open      int   `json:"open"`
	InUse     int   `json:"in_use"`
	Idle      int   `json:"idle"`
	WaitCount int64 `json:"wait_count"`
}

// LinkMetrics reports an optional collaborator's connection.
type LinkMetrics struct {
	Enabled   bool `json:"enabled"`
	Connected bool `json:"connected"`
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC()

	users, err := s.collectUsers(r.Context())
	if err != nil {
		s.logger.Error("collecting user metrics", "error", err)
		writeInternalError(w, "failed to collect metrics")
		return
	}

	writeJSON(w, http.StatusOK, SystemMetrics{
		Timestamp:     now,
		Version:       s.version,
		UptimeSeconds: int64(now.Sub(s.startTime) / time.Second),
		Runtime:       collectRuntime(),
		Users:         users,
		Events:        s.collectEvents(r.Context(), now),
		Pool:          s.collectPool(),
		MQTT:          linkState(s.events),
		InfluxDB:      linkState(s.telemetry),
	})
}

func collectRuntime() RuntimeMetrics {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return RuntimeMetrics{
		GoVersion:   runtime.Version(),
		Goroutines:  runtime.NumGoroutine(),
		HeapBytes:   ms.HeapAlloc,
		HeapObjects: ms.HeapObjects,
		NumGC:       ms.NumGC,
	}
}

func (s *Server) collectUsers(ctx context.Context) (UserMetrics, error) {
	list, err := s.users.List(ctx)
	if err != nil {
		return UserMetrics{}, err
	}
	m := UserMetrics{Total: len(list), ByRole: make(map[string]int, 3)}
	for _, u := range list {
		m.ByRole[string(u.Role)]++
	}
	return m, nil
}

// collectEvents degrades to empty counts when the audit store is missing or
// failing; the rest of the report is still useful.
func (s *Server) collectEvents(ctx context.Context, now time.Time) EventMetrics {
	m := EventMetrics{
		WindowHours: int(eventWindow.Hours()),
		ByAction:    map[string]int{},
		Queued:      len(s.eventQ),
	}
	if s.auditRepo == nil {
		return m
	}
	counts, err := s.auditRepo.CountByAction(ctx, now.Add(-eventWindow))
	if err != nil {
		s.logger.Warn("collecting event metrics", "error", err)
		return m
	}
	m.ByAction = counts
	return m
}

func (s *Server) collectPool() PoolMetrics {
	if s.db == nil {
		return PoolMetrics{}
	}
	st := s.db.Stats()
	return PoolMetrics{Open: st.OpenConnections, InUse: st.InUse, Idle: st.Idle, WaitCount: st.WaitCount}
}

// linkState describes v when it reports its own connection state.
func linkState(v any) LinkMetrics {
	if v == nil {
		return LinkMetrics{}
	}
	if c, ok := v.(ConnectionState); ok {
		return LinkMetrics{Enabled: true, Connected: c.IsConnected()}
	}
	return LinkMetrics{Enabled: true, Connected: true}
}
