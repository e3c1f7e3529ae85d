// Package api implements the BudgetWise HTTP API.
//
// This package provides:
//   - Auth endpoints: signup, login, change password, forgot/reset password, me
//   - Profile and admin user management (list, ban, unban, promote)
//   - Admin audit trail and runtime metrics
//   - Middleware stack (request ID, logging, recovery, CORS, body limit,
//     authentication, authorization)
//
// # Security
//
// Every /api request is authenticated first: a valid bearer token binds an
// auth.Identity to the request context, anything else leaves the request
// anonymous. The access matrix then decides per path: 401 for an anonymous
// caller on a protected path, 403 for a role that is not allowed. The
// /api/auth routes are public, so handlers that need a caller check for one
// themselves.
//
// # Events
//
// Security events are counted in InfluxDB inline and queued for a single
// background writer that stores them in the audit trail and mirrors them on
// MQTT under budgetwise/auth/events/{action}. The queue is best-effort; a
// full queue drops entries rather than slowing requests.
//
// The server follows the same lifecycle pattern as the infrastructure packages:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
package api
