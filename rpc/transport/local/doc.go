// Package local implements an in-process native channel. Commands are executed by an
// IExecutor (usually server.CommandAdapter over an in-memory store) on a pool of
// worker goroutines fed by a lock-free submission queue.
//
// The channel is used by the cli when no endpoint is configured, by benchmarks and
// by tests. Its options can delay or duplicate responses to exercise timeout and
// stale-response handling.
package local
