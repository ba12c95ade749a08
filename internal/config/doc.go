// Package config loads, normalizes, and validates fmqueue configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), and reads TOML files. The Config type centralizes every knob the
// CLI and the run pipeline need: queue directories, worker invocation,
// notification endpoints, retention thresholds, and logging.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
