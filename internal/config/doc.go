// Package config loads, normalizes, and validates content studio
// configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and overlays the deployment environment
// variables (GCP_BUCKET_NAME, GCP_PREFIX, GCP_PUBLIC_READ, IA_ENGINE_BASE_URL
// and friends) on top. The Config type centralizes every knob the daemon and
// CLI need: bucket access mode, URL expiries, the catalog source and its static
// fallback, and history fan-out limits.
//
// Always obtain settings through this package so downstream code receives
// trimmed values, canonical access modes, and clear validation errors.
package config
