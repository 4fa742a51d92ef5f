// Package api defines the wire-format types shared by the daemon's HTTP
// handlers and the CLI client.
//
// DTOs use camelCase JSON tags for the browser client. Timestamps use RFC3339
// with milliseconds, matching what JavaScript's Date.toISOString produces, so
// history rows sort identically on both sides.
package api
