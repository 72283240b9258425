package serializer

import (
	"encoding/json"

	"github.com/ValentinKolb/kvbridge/rpc/command"
	"github.com/ValentinKolb/kvbridge/rpc/common"
)

// NewJSONSerializer creates a new serializer using json encoding
func NewJSONSerializer() IRPCSerializer {
	return &jsonSerializerImpl{}
}

// jsonSerializerImpl implements the IRPCSerializer interface using json encoding.
// Binary payloads are base64 encoded by encoding/json.
type jsonSerializerImpl struct {
}

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRPCSerializer)
// --------------------------------------------------------------------------

func (j jsonSerializerImpl) Name() string { return "json" }

func (j jsonSerializerImpl) SerializeRequest(desc command.Descriptor) ([]byte, error) {
	return json.Marshal(toWire(desc))
}

func (j jsonSerializerImpl) DeserializeRequest(b []byte) (command.Descriptor, error) {
	var w wireRequest
	if err := json.Unmarshal(b, &w); err != nil {
		return nil, err
	}
	return fromWire(w)
}

func (j jsonSerializerImpl) SerializeResponse(resp common.Response) ([]byte, error) {
	return json.Marshal(resp)
}

func (j jsonSerializerImpl) DeserializeResponse(b []byte, resp *common.Response) error {
	*resp = common.Response{}
	return json.Unmarshal(b, resp)
}
