// Package ingest copies newly arrived payloads from the remote drop location
// into the local inbound queue with copy/verify/delete semantics.
package ingest
