// Package tcp implements the framed byte transport over TCP sockets. It provides the
// tcp specific connectors for the base package, which carries the framing, connection
// pooling and reconnect logic.
//
// Accepted and dialed connections are tuned with the TCPConf and SocketConf settings
// of the transport configuration (no delay, keep alive, linger, kernel buffer sizes).
package tcp
