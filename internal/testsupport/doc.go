// Package testsupport provides shared helpers for integration-style tests:
// temp-directory configurations, stub worker scripts, and TOML config file
// rendering.
package testsupport
