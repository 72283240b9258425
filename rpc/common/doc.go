// Package common provides the data structures and utilities shared by every part of the
// command-dispatch bridge. It defines the structured response of the execution core,
// the error taxonomy, configuration structures and the logging setup.
//
// Key Components:
//
//   - Response: Tagged union delivered by the execution core for each request
//     (Null, Status, Bulk, Int, Error, Array, Map). Includes factory methods for
//     every variant and a human-readable String form used by the cli.
//
//   - Error: The single error type of the bridge. Its ErrorKind distinguishes
//     argument, channel, server, decode, timeout and cancellation failures. The
//     sentinels (ErrTimeout, ErrServer, ...) match by kind with errors.Is.
//
//   - ClientConfig / ServerConfig: Configuration for the dispatcher and the
//     execution core server, including transport, socket and logging settings.
//
//   - Logger: zap backed implementation of dragonboat's logger.ILogger. Packages
//     obtain their logger with logger.GetLogger("name"); InitLoggers installs
//     the factory and applies level, format, outputs and file rotation.
package common
