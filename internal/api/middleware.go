package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"

	"github.com/AtulPatel1221/budgetwise-app/internal/auth"
)

type contextKey string

const ctxKeyRequestID contextKey = "request_id"

// requestIDHeader carries the correlation ID in both directions.
const requestIDHeader = "X-Request-ID"

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(ctxKeyRequestID).(string)
	return id
}

// requestIDMiddleware tags the request with the caller's X-Request-ID, or a
// fresh UUID, and echoes it on the response.
func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKeyRequestID, id)))
	})
}

// loggingMiddleware writes one access log line per request and reports the
// outcome to telemetry under the matched route pattern.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		elapsed := time.Since(start)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		s.logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"bytes", ww.BytesWritten(),
			"duration_ms", elapsed.Milliseconds(),
			"request_id", requestIDFrom(r.Context()),
		)
		if s.telemetry != nil {
			s.telemetry.WriteRequestMetric(r.Method, routePattern(r), status, elapsed)
		}
	})
}

// routePattern is the chi pattern that served r, e.g.
// "/api/admin/ban/{userID}". Raw paths would turn user IDs into tag values.
func routePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil || rctx.RoutePattern() == "" {
		return "unmatched"
	}
	return rctx.RoutePattern()
}

// recoveryMiddleware turns a handler panic into a 500 error body.
// http.ErrAbortHandler is re-raised so net/http can abort the connection.
func (s *Server) recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler { //nolint:errorlint // recover() value
				panic(rec)
			}
			s.logger.Error("handler panic",
				"panic", rec,
				"method", r.Method,
				"path", r.URL.Path,
				"request_id", requestIDFrom(r.Context()),
			)
			writeInternalError(w, "Internal server error")
		}()
		next.ServeHTTP(w, r)
	})
}

// corsMiddleware answers preflight requests and sets the CORS response
// headers for the configured origins.
func (s *Server) corsMiddleware() func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins: orDefault(s.cfg.CORS.AllowedOrigins, []string{"*"}),
		AllowedMethods: orDefault(s.cfg.CORS.AllowedMethods, []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}),
		AllowedHeaders: orDefault(s.cfg.CORS.AllowedHeaders, []string{"Accept", "Authorization", "Content-Type", requestIDHeader}),
		ExposedHeaders: []string{requestIDHeader},
		MaxAge:         corsMaxAge,
	})
}

const (
	// corsMaxAge is how long browsers may cache a preflight answer, in seconds.
	corsMaxAge = 300

	// maxRequestBodySize caps JSON request bodies at 1 MiB.
	maxRequestBodySize = 1 << 20
)

// authenticateMiddleware binds the caller's identity to the request context
// when the Authorization header carries a valid bearer token for an
// existing account. It never rejects: a missing, malformed, forged or
// expired token leaves the request anonymous and authorizeMiddleware
// decides. Preflight requests are passed through untouched.
func (s *Server) authenticateMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		if id, ok := s.authenticator.Resolve(r.Context(), r.Header.Get("Authorization")); ok {
			r = r.WithContext(auth.WithIdentity(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}

// routingPath is the path chi matches routes against: the raw escaped
// path when one was sent, else the decoded path. The matrix must judge the
// same string, or "%2F.." segments could reach a handler it never saw.
func routingPath(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePath != "" {
		return rctx.RoutePath
	}
	if r.URL.RawPath != "" {
		return r.URL.RawPath
	}
	return r.URL.Path
}

// authorizeMiddleware applies the access matrix to the routing path. An
// anonymous caller on a protected path gets 401; a bound identity whose
// role is not allowed gets 403.
func (s *Server) authorizeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		p := routingPath(r)
		id, ok := auth.IdentityFrom(r.Context())
		err := s.matrix.Authorize(p, id, ok)
		switch {
		case err == nil:
			next.ServeHTTP(w, r)
		case errors.Is(err, auth.ErrAuthenticationRequired):
			writeUnauthorized(w)
		default:
			s.logger.Debug("access denied",
				"path", p,
				"user_id", id.UserID,
				"role", id.Role,
				"request_id", requestIDFrom(r.Context()),
			)
			writeForbidden(w)
		}
	})
}

// orDefault returns values, or def when values is empty.
func orDefault(values, def []string) []string {
	if len(values) == 0 {
		return def
	}
	return values
}
