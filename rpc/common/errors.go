package common

import (
	"errors"
	"fmt"
)

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error is the error type returned by every operation of the bridge.
// The Kind tells callers what went wrong, the remaining fields carry the details.
//
// Use errors.Is with the sentinels below to test the kind and errors.As to access
// the server error kind or the request id:
//
//	var e *common.Error
//	if errors.As(err, &e) && e.Kind == common.ErrKServer {
//		fmt.Println(e.ServerKind, e.Msg)
//	}
type Error struct {
	Kind       ErrorKind // The category of the error
	ServerKind string    // Error kind reported by the execution core (ErrKServer only)
	Msg        string    // The error message
	RequestID  uint64    // The request the error belongs to, 0 if none was assigned
	Err        error     // The underlying cause, may be nil
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Msg
	if e.Kind == ErrKServer {
		msg = e.ServerKind
		if e.Msg != "" {
			msg += " " + e.Msg
		}
	}
	if e.Err != nil {
		if msg == "" {
			msg = e.Err.Error()
		} else {
			msg = msg + ": " + e.Err.Error()
		}
	}
	if e.RequestID != 0 {
		return fmt.Sprintf("%s (request %d): %s", e.Kind, e.RequestID, msg)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind.
// Sentinels only carry a kind, so errors.Is(err, ErrTimeout) matches every timeout.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// --------------------------------------------------------------------------
// Error Factory Functions
// --------------------------------------------------------------------------

// NewArgumentError creates an error for a command that was rejected before submission
func NewArgumentError(format string, args ...interface{}) *Error {
	return &Error{Kind: ErrKArgument, Msg: fmt.Sprintf(format, args...)}
}

// NewChannelError creates an error for a failure of the native channel
func NewChannelError(requestID uint64, msg string, cause error) *Error {
	return &Error{Kind: ErrKChannel, Msg: msg, RequestID: requestID, Err: cause}
}

// NewServerError creates an error for an error reply of the execution core.
// Kind and message are kept verbatim.
func NewServerError(serverKind, msg string) *Error {
	return &Error{Kind: ErrKServer, ServerKind: serverKind, Msg: msg}
}

// NewDecodeError creates an error for a response that does not match the expected shape
func NewDecodeError(format string, args ...interface{}) *Error {
	return &Error{Kind: ErrKDecode, Msg: fmt.Sprintf(format, args...)}
}

// NewTimeoutError creates an error for a request whose deadline elapsed
func NewTimeoutError(requestID uint64, cause error) *Error {
	return &Error{Kind: ErrKTimeout, Msg: "deadline exceeded", RequestID: requestID, Err: cause}
}

// NewCancelledError creates an error for a request that was cancelled by the caller
func NewCancelledError(requestID uint64, cause error) *Error {
	return &Error{Kind: ErrKCancelled, Msg: "request cancelled", RequestID: requestID, Err: cause}
}

// --------------------------------------------------------------------------
// Sentinels
// --------------------------------------------------------------------------

var (
	ErrArgument  = &Error{Kind: ErrKArgument}
	ErrChannel   = &Error{Kind: ErrKChannel}
	ErrServer    = &Error{Kind: ErrKServer}
	ErrDecode    = &Error{Kind: ErrKDecode}
	ErrTimeout   = &Error{Kind: ErrKTimeout}
	ErrCancelled = &Error{Kind: ErrKCancelled}
)

// ErrClosed is the cause of channel errors raised for requests that were pending
// (or submitted) while the dispatcher was closed
var ErrClosed = errors.New("dispatcher closed")

// --------------------------------------------------------------------------
// Error Kinds
// --------------------------------------------------------------------------

// ErrorKind is the category of an Error
type ErrorKind uint8

const (
	ErrKUnknown   ErrorKind = iota // 0: Should never be returned
	ErrKArgument                   // 1: Command rejected before submission
	ErrKChannel                    // 2: Native channel failed or was closed
	ErrKServer                     // 3: Execution core returned an error reply
	ErrKDecode                     // 4: Response did not match the expected shape
	ErrKTimeout                    // 5: Deadline elapsed before a response arrived
	ErrKCancelled                  // 6: Caller cancelled the request
)

// String returns the string representation of an ErrorKind.
func (k ErrorKind) String() string {
	switch k {
	case ErrKArgument:
		return "ArgumentError"
	case ErrKChannel:
		return "ChannelError"
	case ErrKServer:
		return "ServerError"
	case ErrKDecode:
		return "DecodeError"
	case ErrKTimeout:
		return "TimeoutError"
	case ErrKCancelled:
		return "CancelledError"
	default:
		return "UnknownError"
	}
}
