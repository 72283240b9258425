package serializer

import (
	"github.com/ValentinKolb/kvbridge/rpc/command"
	"github.com/ValentinKolb/kvbridge/rpc/common"
	"github.com/fxamacker/cbor/v2"
)

var (
	cborEnc cbor.EncMode
	cborDec cbor.DecMode
)

func init() {
	var err error
	// canonical encoding keeps the output deterministic
	cborEnc, err = cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	cborDec, err = cbor.DecOptions{MaxNestedLevels: maxNesting * 2}.DecMode()
	if err != nil {
		panic(err)
	}
}

// NewCBORSerializer creates a new serializer using CBOR (RFC 8949) encoding
func NewCBORSerializer() IRPCSerializer {
	return &cborSerializerImpl{}
}

// cborSerializerImpl implements the IRPCSerializer interface using cbor encoding.
// Binary payloads are encoded as cbor byte strings.
type cborSerializerImpl struct {
}

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRPCSerializer)
// --------------------------------------------------------------------------

func (c cborSerializerImpl) Name() string { return "cbor" }

func (c cborSerializerImpl) SerializeRequest(desc command.Descriptor) ([]byte, error) {
	return cborEnc.Marshal(toWire(desc))
}

func (c cborSerializerImpl) DeserializeRequest(b []byte) (command.Descriptor, error) {
	var w wireRequest
	if err := cborDec.Unmarshal(b, &w); err != nil {
		return nil, err
	}
	return fromWire(w)
}

func (c cborSerializerImpl) SerializeResponse(resp common.Response) ([]byte, error) {
	return cborEnc.Marshal(resp)
}

func (c cborSerializerImpl) DeserializeResponse(b []byte, resp *common.Response) error {
	*resp = common.Response{}
	return cborDec.Unmarshal(b, resp)
}
