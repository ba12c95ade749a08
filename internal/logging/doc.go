// Package logging centralizes slog logger construction for fmqueue.
//
// It provides console ("pretty") and JSON handlers, standardized field keys
// (component, run_id, item, op_code, event_type), helpers for component-scoped
// loggers, and retention pruning for aged log files.
package logging
