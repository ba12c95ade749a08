// Package driver implements the queue state machine. It drains the inbound
// directory in filename order, runs each payload through the external worker,
// classifies the outcome, and routes the payload to the archive or failed
// directory. Every item ends in exactly one terminal location, and a failure
// on one item never prevents the next from being processed.
package driver
