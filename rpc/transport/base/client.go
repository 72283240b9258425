package base

import (
	"bufio"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/kvbridge/rpc/common"
	"github.com/ValentinKolb/kvbridge/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
)

var Logger = logger.GetLogger("transport")

// ErrNotConnected is returned by Send while a connection is being restored
var ErrNotConnected = errors.New("connection is not established")

// ErrTransportClosed is returned by Send after Close
var ErrTransportClosed = errors.New("transport closed")

const (
	reconnectInitialBackoff = 50 * time.Millisecond
	reconnectMaxBackoff     = 2 * time.Second
)

// -----------------------------------------------------------
// Interface Definitions for dependency injection
// -----------------------------------------------------------

// IClientConnector defines the interface for transport-specific connection operations
type IClientConnector interface {
	// Connect establishes a single connection to the endpoint
	Connect(endpoint string) (net.Conn, error)

	// GetName returns the name of the transport type (e.g., "unix", "tcp")
	GetName() string

	// UpgradeConnection applies protocol-specific settings to an established connection
	UpgradeConnection(conn net.Conn, config common.TransportConf) error
}

// -----------------------------------------------------------
// Helper Types
// -----------------------------------------------------------

// clientConnection represents a single net connection.
// Requests written to it are tracked until their response frame arrives, so they
// can be failed when the connection breaks.
type clientConnection struct {
	endpoint string
	parent   *clientTransport

	connMu  sync.RWMutex // Protects conn
	conn    net.Conn
	writeMu sync.Mutex // Serializes frame writes

	inFlight *xsync.MapOf[uint64, struct{}]
}

// clientTransport implements the core client transport functionality
// independent of the specific transport medium (unix, tcp, etc.)
type clientTransport struct {
	connector     IClientConnector
	config        common.ClientConfig
	connections   []*clientConnection
	nextConnIndex atomic.Uint64 // Round Robin counter
	onFrame       transport.FrameHandler
	onFailure     transport.FailureHandler
	stopCh        chan struct{}
	readers       sync.WaitGroup
	stopping      atomic.Bool
}

// -----------------------------------------------------------
// Transport Factory Method (used for tcp, unix, etc.)
// -----------------------------------------------------------

// NewBaseClientTransport creates a new base client transport with the specified connector
func NewBaseClientTransport(connector IClientConnector) transport.IRPCClientTransport {
	return &clientTransport{
		connector: connector,
		stopCh:    make(chan struct{}),
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IRPCClientTransport)
// --------------------------------------------------------------------------

func (t *clientTransport) Connect(config common.ClientConfig, onFrame transport.FrameHandler, onFailure transport.FailureHandler) error {
	endpoints := config.Transport.Endpoints
	if len(endpoints) == 0 && config.Transport.Endpoint != "" {
		endpoints = []string{config.Transport.Endpoint}
	}
	if len(endpoints) == 0 {
		return fmt.Errorf("no endpoints provided")
	}
	if t.connections != nil {
		return fmt.Errorf("%s transport already connected", t.connector.GetName())
	}

	t.config = config
	t.onFrame = onFrame
	t.onFailure = onFailure

	connectionsPerEP := config.Transport.Connections()
	connections := make([]*clientConnection, 0, len(endpoints)*connectionsPerEP)

	for _, endpoint := range endpoints {
		// Create multiple connections per endpoint
		for i := 0; i < connectionsPerEP; i++ {
			clientConn := &clientConnection{
				endpoint: endpoint,
				parent:   t,
				inFlight: xsync.NewMapOf[uint64, struct{}](),
			}

			if err := clientConn.dial(); err != nil {
				Logger.Warningf("Failed to connect to %s (connection %d/%d): %v", endpoint, i+1, connectionsPerEP, err)
				continue
			}
			connections = append(connections, clientConn)
			Logger.Debugf("Connected to %s (connection %d/%d)", endpoint, i+1, connectionsPerEP)
		}
	}

	if len(connections) == 0 {
		return fmt.Errorf("failed to connect to any endpoint")
	}
	t.connections = connections

	// Start the response readers after the list is complete
	for _, c := range connections {
		t.readers.Add(1)
		go c.readResponses()
	}

	Logger.Infof("Connected %d out of %d connections to %d endpoints using %s transport",
		len(connections), len(endpoints)*connectionsPerEP, len(endpoints), t.connector.GetName())
	return nil
}

func (t *clientTransport) Send(requestID uint64, payload []byte) error {
	if t.stopping.Load() {
		return ErrTransportClosed
	}

	connection := t.getNextConnection()
	if connection == nil {
		return fmt.Errorf("no active connections available")
	}

	conn := connection.current()
	if conn == nil {
		return fmt.Errorf("%s: %w", connection.endpoint, ErrNotConnected)
	}

	// Register before writing, the response may arrive before Write returns
	connection.inFlight.Store(requestID, struct{}{})

	connection.writeMu.Lock()
	if t.config.TimeoutMillisecond > 0 {
		_ = conn.SetWriteDeadline(time.Now().Add(time.Duration(t.config.TimeoutMillisecond) * time.Millisecond))
	}
	err := writeFrame(conn, requestID, payload)
	connection.writeMu.Unlock()

	if err != nil {
		connection.inFlight.Delete(requestID)
		return fmt.Errorf("failed to write request to %s: %w", connection.endpoint, err)
	}
	return nil
}

func (t *clientTransport) Close() error {
	if !t.stopping.CompareAndSwap(false, true) {
		return nil
	}
	close(t.stopCh)
	for _, c := range t.connections {
		c.close()
	}
	t.readers.Wait()
	Logger.Debugf("%s client transport closed", t.connector.GetName())
	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// getNextConnection selects the next connection via Round Robin
func (t *clientTransport) getNextConnection() *clientConnection {
	if len(t.connections) == 0 {
		return nil
	}
	if len(t.connections) == 1 {
		// optimize for single connection
		return t.connections[0]
	}
	index := t.nextConnIndex.Add(1) % uint64(len(t.connections))
	return t.connections[index]
}

// current returns the established connection or nil while reconnecting
func (c *clientConnection) current() net.Conn {
	c.connMu.RLock()
	defer c.connMu.RUnlock()
	return c.conn
}

// readResponses reads frames in a loop and hands them to the frame handler.
// When the connection breaks every request still in flight on it is failed and
// the connection is restored.
func (c *clientConnection) readResponses() {
	defer c.parent.readers.Done()

	bufSize := c.parent.config.Transport.ReadBufferSize
	if bufSize <= 0 {
		bufSize = 64 * 1024
	}

	for {
		conn := c.current()
		if conn == nil {
			return
		}
		reader := bufio.NewReaderSize(conn, bufSize)
		var buf []byte

		var err error
		for {
			var requestID uint64
			var data []byte
			requestID, data, buf, err = readFrame(reader, buf)
			if err != nil {
				break
			}
			c.inFlight.Delete(requestID)
			// the handler decodes synchronously, so buf can be reused
			c.parent.onFrame(requestID, data)
		}

		if c.parent.stopping.Load() {
			return
		}

		Logger.Warningf("Connection to %s broke: %v", c.endpoint, err)
		// detach before draining, no Send may register on the broken conn afterwards
		c.detach()
		c.failInFlight(fmt.Errorf("connection to %s lost: %w", c.endpoint, err))

		if !c.reconnect() {
			return
		}
	}
}

// failInFlight reports every request written to this connection as failed
func (c *clientConnection) failInFlight(err error) {
	c.inFlight.Range(func(requestID uint64, _ struct{}) bool {
		if _, ok := c.inFlight.LoadAndDelete(requestID); ok {
			c.parent.onFailure(requestID, err)
		}
		return true
	})
}

// detach closes the broken connection and clears it, so Send reports
// ErrNotConnected until the connection is restored
func (c *clientConnection) detach() {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
}

// reconnect restores a detached connection with exponential backoff.
// It returns false if the transport was closed in the meantime.
func (c *clientConnection) reconnect() bool {
	backoff := reconnectInitialBackoff
	for attempt := 1; ; attempt++ {
		// Exponential backoff with a small random jitter (+-10%)
		jitter := time.Duration(float64(backoff) * (0.9 + 0.2*rand.Float64()))
		select {
		case <-c.parent.stopCh:
			return false
		case <-time.After(jitter):
		}

		err := c.dial()
		if err == nil {
			Logger.Infof("Reconnected to %s after %d attempts", c.endpoint, attempt)
			return true
		}
		Logger.Debugf("Reconnect attempt %d to %s failed: %v", attempt, c.endpoint, err)
		backoff = min(backoff*2, reconnectMaxBackoff)
	}
}

// dial establishes the connection to the endpoint
func (c *clientConnection) dial() error {
	conn, err := c.parent.connector.Connect(c.endpoint)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %v", c.endpoint, err)
	}

	// Upgrade the connection with protocol-specific settings
	if err := c.parent.connector.UpgradeConnection(conn, c.parent.config.Transport); err != nil {
		_ = conn.Close()
		return fmt.Errorf("failed to upgrade connection to %s: %v", c.endpoint, err)
	}

	c.connMu.Lock()
	defer c.connMu.Unlock()
	if c.parent.stopping.Load() {
		_ = conn.Close()
		return ErrTransportClosed
	}
	c.conn = conn
	return nil
}

// close closes the connection, the reader stops on the resulting error
func (c *clientConnection) close() {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	if c.conn != nil {
		_ = c.conn.Close()
	}
}
