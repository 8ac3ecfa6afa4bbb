// Package stores persists the project's deployment history.
//
// Every configure, deploy, and sync-certs invocation is recorded as a run in
// a SQLite database next to the project's djaploy configuration, giving the
// history command a durable record of what was deployed where and when.
package stores
