// Package base implements framed byte transports independent of the network
// protocol. Protocol specific packages (tcp, unix) plug in through IClientConnector
// and IServerConnector.
//
// Frame format:
//
//	8 bytes  request id (uint64, big endian)
//	4 bytes  payload length (uint32, big endian)
//	N bytes  payload
//
// Key Components:
//
//   - clientTransport: opens ConnectionsPerEndpoint connections to every endpoint and
//     distributes frames round robin. Sending never waits for the response; a reader
//     goroutine per connection hands every received frame to the FrameHandler.
//     Requests written to a connection are tracked until their response arrives. When
//     the connection breaks they are reported to the FailureHandler and the connection
//     is restored with exponential backoff.
//
//   - serverTransport: accepts connections and runs up to WorkersPerConn handlers per
//     connection concurrently. Responses carry the id of their request and may be
//     written in any order.
//
// Performance Notes:
//
//   - Multiple connections per endpoint improve throughput for large payloads. For
//     small payloads a single connection usually performs better.
//
//   - net.Buffers combines header and payload into a single write.
//
//   - Readers are buffered with bufio using the configured ReadBufferSize.
//
// Thread Safety:
//
//	Send may be called from any goroutine. Frame writes on a connection are
//	serialized by a mutex.
package base
