// Package main hosts the fmqueue CLI entrypoint and command graph.
//
// The Cobra-based command tree covers the full queue lifecycle: running a
// drain pass, inspecting the queued payloads and terminal directories,
// browsing the run journal, forcing a retention sweep, and configuration
// scaffolding. Configuration resolution lives in one shared command context
// so subcommands stay declarative.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
