package serializer

import (
	"bytes"
	"encoding/gob"

	"github.com/ValentinKolb/kvbridge/rpc/command"
	"github.com/ValentinKolb/kvbridge/rpc/common"
)

// NewGOBSerializer creates a new serializer using Go's binary gob format
func NewGOBSerializer() IRPCSerializer {
	return &gobSerializerImpl{}
}

// gobSerializerImpl implements the IRPCSerializer interface using gob encoding.
// Every message carries its own type information, so encoders are not shared.
type gobSerializerImpl struct {
}

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRPCSerializer)
// --------------------------------------------------------------------------

func (g gobSerializerImpl) Name() string { return "gob" }

func (g gobSerializerImpl) SerializeRequest(desc command.Descriptor) ([]byte, error) {
	return g.encode(toWire(desc))
}

func (g gobSerializerImpl) DeserializeRequest(b []byte) (command.Descriptor, error) {
	var w wireRequest
	if err := gob.NewDecoder(bytes.NewBuffer(b)).Decode(&w); err != nil {
		return nil, err
	}
	return fromWire(w)
}

func (g gobSerializerImpl) SerializeResponse(resp common.Response) ([]byte, error) {
	return g.encode(resp)
}

func (g gobSerializerImpl) DeserializeResponse(b []byte, resp *common.Response) error {
	*resp = common.Response{}
	return gob.NewDecoder(bytes.NewBuffer(b)).Decode(resp)
}

func (g gobSerializerImpl) encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
