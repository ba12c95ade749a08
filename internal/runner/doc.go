// Package runner wires one complete run together: instance locking, per-run
// logging, journal recovery reporting, remote fetch, duplicate removal, queue
// drain, and terminal-directory retention. Each stage degrades or skips on
// its own errors where the semantics allow, so a run always gets as far as it
// safely can.
package runner
