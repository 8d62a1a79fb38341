// Package api implements the local HTTP status API for the sinric link.
//
// Endpoints:
//   - GET /api/v1/health   liveness plus optional component checks
//   - GET /api/v1/status   session, queue and transport counters
//   - GET /api/v1/devices  registered devices
//   - GET /api/v1/journal  activity journal, when the database is enabled
//   - GET /metrics         Prometheus exposition of the same counters
//
// The API is read-only. Device control stays with the cloud; nothing here
// can inject requests or events into the session.
package api
