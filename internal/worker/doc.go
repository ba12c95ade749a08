// Package worker wraps the external document-processing worker behind a
// synchronous subprocess contract: one payload path in, an exit code, a
// captured error stream, and a structured result record on stdout out.
//
// The worker's internal logic is opaque to fmqueue; only the exit code and
// the result record matter.
package worker
