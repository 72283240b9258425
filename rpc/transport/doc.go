// Package transport defines the channel between the dispatcher and an execution core.
//
// Key Components:
//
//   - IChannel: asynchronous native channel. Submit hands a descriptor over and the
//     outcome arrives later through the ResponseHandler or FailureHandler. The local
//     package implements it in process.
//
//   - SerializedChannel: IChannel on top of a byte transport and a serializer.
//
//   - IRPCClientTransport / IRPCServerTransport: framed byte transports tagged with
//     request ids, implemented for tcp, unix sockets and websockets on top of the
//     base package.
//
//   - ServerHandleFunc: callback the server transport invokes for every request frame.
package transport
