// Package serializer converts command descriptors and responses to bytes and back for
// the remote channels. All implementations satisfy IRPCSerializer and are selected by
// name with New.
//
// Implementations:
//
//   - binarySerializerImpl: custom length-prefixed format. Requests are a count followed
//     by the raw argument bytes, responses are tagged with a kind byte and encoded
//     recursively. Smallest payloads and the fastest path, used by default.
//
//   - cborSerializerImpl: canonical CBOR (github.com/fxamacker/cbor). Compact, binary
//     safe and readable by non-Go clients.
//
//   - jsonSerializerImpl: JSON encoding, argument bytes are base64 encoded. Useful for
//     debugging.
//
//   - gobSerializerImpl: Go's gob encoding. Every message carries its type information,
//     which makes payloads large. Kept for comparison in the benchmarks.
//
// All arguments and bulk payloads are treated as opaque bytes, invalid UTF-8 survives
// every implementation unchanged.
//
// Thread Safety:
//
//	All serializer implementations are stateless and safe for concurrent use.
//
// Usage:
//
//	s, err := serializer.New("binary")
//	data, err := s.SerializeRequest(desc)
//	// ... send data, receive reply ...
//	var resp common.Response
//	err = s.DeserializeResponse(reply, &resp)
package serializer
