package transport

import (
	"github.com/ValentinKolb/kvbridge/rpc/command"
	"github.com/ValentinKolb/kvbridge/rpc/common"
)

// --------------------------------------------------------------------------
// Native Channel
// --------------------------------------------------------------------------

// ResponseHandler is called by a channel for every response it receives.
// It may be called from any goroutine, also for ids that are no longer pending.
type ResponseHandler func(requestID uint64, resp common.Response)

// FailureHandler is called by a channel when a request that was accepted can no
// longer be answered (e.g. its connection broke)
type FailureHandler func(requestID uint64, err error)

// IChannel is the asynchronous channel between the dispatcher and an execution core.
//
// Submit must not block on the execution of the command: it hands the descriptor
// over and returns. The outcome is reported later through exactly one call of the
// response or the failure handler. A returned error means the request was not
// accepted and no handler will be called for it.
type IChannel interface {
	// Start installs the handlers and opens the channel. It is called once.
	Start(onResponse ResponseHandler, onFailure FailureHandler) error
	// Submit hands a request to the execution core
	Submit(requestID uint64, desc command.Descriptor) error
	// Close closes the channel. Requests still in flight may never be answered.
	Close() error
}

// --------------------------------------------------------------------------
// Server Transport
// --------------------------------------------------------------------------

// ServerHandleFunc is a function type that handles incoming requests
// This function is called by a server transport layer when a request is received
// It takes a serialized request and returns the serialized response
type ServerHandleFunc func(req []byte) (resp []byte)

// IRPCServerTransport is the interface for the server side of a byte transport
type IRPCServerTransport interface {
	// RegisterHandler registers a handler for the transport layer
	// This handler should be called when a request is received
	RegisterHandler(handler ServerHandleFunc)
	// Listen starts the transport layer and blocks while serving requests
	Listen(config common.ServerConfig) error
	// Close stops listening and closes all connections
	Close() error
}

// --------------------------------------------------------------------------
// Client Transport
// --------------------------------------------------------------------------

// FrameHandler is called by a client transport for every frame it receives
type FrameHandler func(requestID uint64, payload []byte)

// IRPCClientTransport is the interface for the client side of a byte transport.
// It moves opaque frames tagged with a request id and is used by SerializedChannel.
type IRPCClientTransport interface {
	// Connect initializes the transport with the given configuration and handlers
	Connect(config common.ClientConfig, onFrame FrameHandler, onFailure FailureHandler) error
	// Send writes one request frame. An error means the frame was not written.
	Send(requestID uint64, payload []byte) error
	// Close closes the transport connection
	Close() error
}
