package serializer

import (
	"fmt"
	"strings"

	"github.com/ValentinKolb/kvbridge/lib/value"
	"github.com/ValentinKolb/kvbridge/rpc/command"
	"github.com/ValentinKolb/kvbridge/rpc/common"
)

// IRPCSerializer is the interface for all wire serializers.
// Requests are command descriptors, responses are native responses.
type IRPCSerializer interface {
	// SerializeRequest serializes a descriptor into a byte array
	SerializeRequest(desc command.Descriptor) ([]byte, error)
	// DeserializeRequest deserializes a byte array into a descriptor
	DeserializeRequest(b []byte) (command.Descriptor, error)
	// SerializeResponse serializes a response into a byte array
	SerializeResponse(resp common.Response) ([]byte, error)
	// DeserializeResponse deserializes a byte array into the response
	DeserializeResponse(b []byte, resp *common.Response) error
	// Name returns the name used to select the serializer
	Name() string
}

// New returns the serializer with the given name ("binary", "json", "gob" or "cbor").
// An empty name selects the binary serializer.
func New(name string) (IRPCSerializer, error) {
	switch strings.ToLower(name) {
	case "", "binary":
		return NewBinarySerializer(), nil
	case "json":
		return NewJSONSerializer(), nil
	case "gob":
		return NewGOBSerializer(), nil
	case "cbor":
		return NewCBORSerializer(), nil
	default:
		return nil, fmt.Errorf("unknown serializer: %s. must be one of binary, json, gob, cbor", name)
	}
}

// --------------------------------------------------------------------------
// Wire request (used by the reflection based serializers)
// --------------------------------------------------------------------------

// wireRequest is the encodable form of a descriptor
type wireRequest struct {
	Args [][]byte `json:"args" cbor:"1,keyasint"`
}

func toWire(desc command.Descriptor) wireRequest {
	args := make([][]byte, len(desc))
	for i, v := range desc {
		args[i] = v.Bytes()
	}
	return wireRequest{Args: args}
}

func fromWire(w wireRequest) (command.Descriptor, error) {
	if len(w.Args) == 0 {
		return nil, fmt.Errorf("empty request")
	}
	desc := make(command.Descriptor, len(w.Args))
	for i, a := range w.Args {
		desc[i] = value.FromBytes(a)
	}
	return desc, nil
}
