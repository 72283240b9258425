// Package rpc contains the command dispatch bridge of kvbridge. A command is built
// as a descriptor, submitted over an asynchronous channel to an execution core and
// its response is correlated back to the waiting caller by request id.
//
// The package is organized into several subpackages:
//
//   - command: Command descriptors, the command catalog and argument builders.
//
//   - common: Native responses, the error taxonomy, configuration structures and logging.
//
//   - correlation: The table of pending requests and the deadline scheduler.
//
//   - dispatch: The dispatcher registering, submitting and awaiting requests.
//
//   - decoder: Conversion of native responses into typed results.
//
//   - transport: The channel abstraction with in-process (local) and socket based
//     implementations (tcp, unix, ws).
//
//   - serializer: Wire encodings of descriptors and responses (binary, json, gob, cbor).
//
//   - client: The typed command facade used by applications.
//
//   - server: The in-memory execution core served over a socket transport.
package rpc
