// Package api provides the read-only HTTP view of the last aggregation run.
//
// Endpoints:
//   - GET /health: liveness, 503 until the first run completes
//   - GET /metrics: Prometheus metrics
//   - GET /api/v1/sources: the feed registry and which feeds are selected
//   - GET /api/v1/status: per-feed outcome of the last run
//   - GET /api/v1/entries?version=4|6: entries with their provenance
//   - GET /api/v1/lookup?prefix=...: provenance of one entry or address
//
// # Response Format
//
// All successful responses wrap data in a "data" field:
//
//	{
//	  "data": { /* response payload */ }
//	}
//
// Error responses use the following format:
//
//	{
//	  "error": {
//	    "code": "ERROR_CODE",
//	    "message": "Human-readable error message"
//	  }
//	}
package api
