// Package journal persists a per-item processing ledger in SQLite.
//
// Every payload gets a running row before the worker starts and a terminal
// row after its archive/failed move completes. The running row doubles as a
// durable in-progress marker: after a mid-run kill it distinguishes "started
// but interrupted" from "never started".
package journal
