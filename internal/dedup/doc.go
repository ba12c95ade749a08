// Package dedup archives redundant queue payloads so each operation code is
// processed at most once per week.
package dedup
