package common

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// --------------------------------------------------------------------------
// Response Structure
// --------------------------------------------------------------------------

// Response is the structured result the execution core delivers for a request.
// Which fields are used depends on the kind of the response.
type Response struct {
	// Kind of response
	Kind ResponseKind `json:"kind"`

	Status string     `json:"status,omitempty"` // Used for: Status (e.g. "OK", "PONG", "string")
	Bulk   []byte     `json:"bulk,omitempty"`   // Used for: Bulk
	Int    int64      `json:"int,omitempty"`    // Used for: Int
	Array  []Response `json:"array,omitempty"`  // Used for: Array
	Map    []Pair     `json:"map,omitempty"`    // Used for: Map, pairs keep the order of the core

	// Error only fields
	ErrKind string `json:"errKind,omitempty"` // first word of the error line (e.g. "WRONGTYPE")
	ErrMsg  string `json:"errMsg,omitempty"`  // remaining error text
}

// Pair is a single key/value entry of a Map response
type Pair struct {
	Key   Response `json:"key"`
	Value Response `json:"value"`
}

// IsError returns true if the response is an error reply
func (r Response) IsError() bool {
	return r.Kind == RespError
}

// String returns a short human-readable form of the response, used for logging and the cli
func (r Response) String() string {
	var sb strings.Builder
	r.format(&sb, "")
	return sb.String()
}

func (r *Response) format(sb *strings.Builder, indent string) {
	switch r.Kind {
	case RespNull:
		sb.WriteString("(nil)")
	case RespStatus:
		sb.WriteString(r.Status)
	case RespBulk:
		sb.WriteString(strconv.Quote(string(r.Bulk)))
	case RespInt:
		sb.WriteString("(integer) ")
		sb.WriteString(strconv.FormatInt(r.Int, 10))
	case RespError:
		sb.WriteString("(error) ")
		sb.WriteString(r.ErrKind)
		if r.ErrMsg != "" {
			sb.WriteString(" ")
			sb.WriteString(r.ErrMsg)
		}
	case RespArray:
		if len(r.Array) == 0 {
			sb.WriteString("(empty array)")
			return
		}
		for i := range r.Array {
			if i > 0 {
				sb.WriteString("\n")
				sb.WriteString(indent)
			}
			prefix := strconv.Itoa(i+1) + ") "
			sb.WriteString(prefix)
			r.Array[i].format(sb, indent+strings.Repeat(" ", len(prefix)))
		}
	case RespMap:
		if len(r.Map) == 0 {
			sb.WriteString("(empty map)")
			return
		}
		for i := range r.Map {
			if i > 0 {
				sb.WriteString("\n")
				sb.WriteString(indent)
			}
			prefix := strconv.Itoa(i+1) + "# "
			sb.WriteString(prefix)
			r.Map[i].Key.format(sb, indent+strings.Repeat(" ", len(prefix)))
			sb.WriteString(" => ")
			r.Map[i].Value.format(sb, indent+strings.Repeat(" ", len(prefix)))
		}
	default:
		sb.WriteString("(unknown)")
	}
}

// --------------------------------------------------------------------------
// Response Factory Functions
// --------------------------------------------------------------------------

// NewNullResponse creates a response denoting absence
func NewNullResponse() Response {
	return Response{Kind: RespNull}
}

// NewStatusResponse creates a simple status reply
func NewStatusResponse(status string) Response {
	return Response{Kind: RespStatus, Status: status}
}

// NewOKResponse creates the status reply "OK"
func NewOKResponse() Response {
	return NewStatusResponse("OK")
}

// NewBulkResponse creates a binary-safe payload reply
func NewBulkResponse(b []byte) Response {
	return Response{Kind: RespBulk, Bulk: b}
}

// NewIntResponse creates an integer reply
func NewIntResponse(i int64) Response {
	return Response{Kind: RespInt, Int: i}
}

// NewErrorResponse creates an error reply with the given kind and message
func NewErrorResponse(kind, msg string) Response {
	return Response{Kind: RespError, ErrKind: kind, ErrMsg: msg}
}

// NewArrayResponse creates an ordered sequence reply
func NewArrayResponse(items ...Response) Response {
	if items == nil {
		items = []Response{}
	}
	return Response{Kind: RespArray, Array: items}
}

// NewMapResponse creates an associative reply, pairs keep their order
func NewMapResponse(pairs ...Pair) Response {
	if pairs == nil {
		pairs = []Pair{}
	}
	return Response{Kind: RespMap, Map: pairs}
}

// --------------------------------------------------------------------------
// Response Kind Definition
// --------------------------------------------------------------------------

// ResponseKind defines the variant of a Response
type ResponseKind uint8

// String returns the string representation of a ResponseKind.
func (k ResponseKind) String() string {
	switch k {
	case RespNull:
		return "null"
	case RespStatus:
		return "status"
	case RespBulk:
		return "bulk"
	case RespInt:
		return "int"
	case RespError:
		return "error"
	case RespArray:
		return "array"
	case RespMap:
		return "map"
	default:
		return "unknown"
	}
}

// MarshalJSON implements the json.Marshaller interface for ResponseKind.
// This allows ResponseKind to be serialized as a string in JSON.
func (k ResponseKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// UnmarshalJSON implements the json.Unmarshaler interface for ResponseKind.
func (k *ResponseKind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	switch s {
	case "null":
		*k = RespNull
	case "status":
		*k = RespStatus
	case "bulk":
		*k = RespBulk
	case "int":
		*k = RespInt
	case "error":
		*k = RespError
	case "array":
		*k = RespArray
	case "map":
		*k = RespMap
	default:
		return fmt.Errorf("unknown response kind: %s", s)
	}

	return nil
}

// --------------------------------------------------------------------------
// Response Kind Constants
// --------------------------------------------------------------------------

const (
	RespUnknown ResponseKind = iota
	RespNull                 // Absence of a value
	RespStatus               // Simple status text
	RespBulk                 // Binary-safe payload
	RespInt                  // Signed 64 bit integer
	RespError                // Error kind and message
	RespArray                // Ordered sequence of responses
	RespMap                  // Ordered key/value pairs of responses
)
