// Package cmd implements the command-line interface of kvb. It provides a
// hierarchical command structure with operations for running an execution core
// server and interacting with it as a client.
//
// The package is organized into several subpackages:
//
//   - kv: Commands sending single key-value commands and the perf benchmark
//   - serve: Commands for starting and configuring the kvb server
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// Every flag can also be set via an environment variable KVB_<FLAG>
// (e.g. KVB_TRANSPORT_ENDPOINTS), .env and .env.local files are loaded on start.
//
// See kvb -help for a list of all commands.
package cmd
