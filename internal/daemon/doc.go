// Package daemon runs the long-lived studio API process.
//
// It wires the batch resolver, history aggregator and catalog cache behind a
// net/http ServeMux, holds a flock-based lock so only one daemon serves a
// log directory, and exposes health, readiness and Prometheus endpoints.
// Request handling stays thin: storage semantics live in the batch, history
// and catalog packages.
package daemon
