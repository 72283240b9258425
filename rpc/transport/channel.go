package transport

import (
	"fmt"

	"github.com/ValentinKolb/kvbridge/rpc/command"
	"github.com/ValentinKolb/kvbridge/rpc/common"
	"github.com/ValentinKolb/kvbridge/rpc/serializer"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("transport")

// SerializedChannel implements IChannel on top of a byte transport.
// Descriptors are encoded with the serializer before they are sent and response
// frames are decoded before they are handed to the response handler.
type SerializedChannel struct {
	transport  IRPCClientTransport
	serializer serializer.IRPCSerializer
	config     common.ClientConfig
}

// NewSerializedChannel creates a channel that connects transport with the given configuration
func NewSerializedChannel(transport IRPCClientTransport, s serializer.IRPCSerializer, config common.ClientConfig) *SerializedChannel {
	return &SerializedChannel{
		transport:  transport,
		serializer: s,
		config:     config,
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IChannel)
// --------------------------------------------------------------------------

func (c *SerializedChannel) Start(onResponse ResponseHandler, onFailure FailureHandler) error {
	onFrame := func(requestID uint64, payload []byte) {
		var resp common.Response
		if err := c.serializer.DeserializeResponse(payload, &resp); err != nil {
			Logger.Errorf("failed to decode response for request %d: %v", requestID, err)
			onFailure(requestID, common.NewDecodeError("failed to decode response: %v", err))
			return
		}
		onResponse(requestID, resp)
	}
	return c.transport.Connect(c.config, onFrame, onFailure)
}

func (c *SerializedChannel) Submit(requestID uint64, desc command.Descriptor) error {
	payload, err := c.serializer.SerializeRequest(desc)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}
	return c.transport.Send(requestID, payload)
}

func (c *SerializedChannel) Close() error {
	return c.transport.Close()
}
