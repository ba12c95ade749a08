// Package notifications posts queue progress events to the configured HTTP
// endpoints: one start event per run with work queued, and one completion
// event per processed payload. Delivery failures are expected and
// non-propagating.
package notifications
