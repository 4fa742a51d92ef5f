// Package services defines shared utilities consumed by the batch store
// components and the external integrations around them.
//
// Key responsibilities:
//   - Context helpers that stamp batch IDs and correlation identifiers for
//     logging.
//   - Structured error markers plus the Wrap helper that classify failures
//     (not found, malformed document, upstream unavailable, signing failed,
//     configuration missing) so callers decide between degrading locally and
//     surfacing an error.
//   - The HTTP status mapping the daemon applies at its boundary.
//
// Use these helpers when wiring new store logic so operational behaviour
// (error handling, observability, retries) stays uniform.
package services
