package ws

import (
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/ValentinKolb/kvbridge/rpc/common"
	"github.com/ValentinKolb/kvbridge/rpc/transport"
	"github.com/ValentinKolb/kvbridge/rpc/transport/base"
	"github.com/gorilla/websocket"
)

// DefaultPath is the http path the websocket endpoint is served on
const DefaultPath = "/kvb"

// clientConnector implements the IClientConnector interface for websockets
type clientConnector struct {
	dialer *websocket.Dialer
}

// --------------------------------------------------------------------------
// Interface Methods (docu see base.IClientConnector)
// --------------------------------------------------------------------------

func (c *clientConnector) GetName() string {
	return "ws"
}

func (c *clientConnector) Connect(endpoint string) (net.Conn, error) {
	u, err := endpointURL(endpoint)
	if err != nil {
		return nil, err
	}
	conn, resp, err := c.dialer.Dial(u, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("websocket handshake with %s failed (%s): %w", u, resp.Status, err)
		}
		return nil, err
	}
	return newConn(conn), nil
}

func (c *clientConnector) UpgradeConnection(net.Conn, common.TransportConf) error {
	return nil
}

// endpointURL turns "host:port" into "ws://host:port/kvb" and keeps full urls unchanged
func endpointURL(endpoint string) (string, error) {
	if !strings.Contains(endpoint, "://") {
		endpoint = "ws://" + endpoint
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid websocket endpoint %q: %w", endpoint, err)
	}
	switch u.Scheme {
	case "ws", "wss":
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("invalid websocket endpoint %q: unsupported scheme %s", endpoint, u.Scheme)
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = DefaultPath
	}
	return u.String(), nil
}

// --------------------------------------------------------------------------
// Client Transport Factory Method
// --------------------------------------------------------------------------

// NewWSClientTransport creates a new websocket client transport
func NewWSClientTransport(config common.TransportConf) transport.IRPCClientTransport {
	dialer := &websocket.Dialer{
		HandshakeTimeout: 5 * time.Second,
		ReadBufferSize:   config.ReadBufferSize,
		WriteBufferSize:  config.WriteBufferSize,
	}
	return base.NewBaseClientTransport(&clientConnector{dialer: dialer})
}
