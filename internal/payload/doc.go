// Package payload parses queue item filenames and produces read-only queue
// snapshots.
//
// A payload name encodes a 14-digit creation timestamp, a free-text operation
// code, and a week date. The parser is the single place that pattern lives;
// dedup, the drain loop, and notifications all consume its tagged result
// instead of re-matching the name themselves.
package payload
