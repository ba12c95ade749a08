// Package retention deletes aged files from archive, failed, and log
// directories on a stamp-throttled schedule.
package retention
