package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"strings"
	"time"

	"github.com/ValentinKolb/kvbridge/lib/store/lstore"
	"github.com/ValentinKolb/kvbridge/rpc/command"
	"github.com/ValentinKolb/kvbridge/rpc/common"
	"github.com/ValentinKolb/kvbridge/rpc/decoder"
	"github.com/ValentinKolb/kvbridge/rpc/dispatch"
	"github.com/ValentinKolb/kvbridge/rpc/serializer"
	"github.com/ValentinKolb/kvbridge/rpc/server"
	"github.com/ValentinKolb/kvbridge/rpc/transport"
	"github.com/ValentinKolb/kvbridge/rpc/transport/local"
	"github.com/ValentinKolb/kvbridge/rpc/transport/tcp"
	"github.com/ValentinKolb/kvbridge/rpc/transport/unix"
	"github.com/ValentinKolb/kvbridge/rpc/transport/ws"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("client")

// initialBackoff is the wait before the first retry, it doubles with every attempt
const initialBackoff = 50 * time.Millisecond

// Client is the command facade of the bridge.
// Every method builds the descriptor of one command, dispatches it and decodes the
// response into the native result type. Methods are safe for concurrent use.
type Client struct {
	config     common.ClientConfig
	dispatcher *dispatch.Dispatcher
	closers    []io.Closer
}

// NewClient creates a client dispatching over the given channel
func NewClient(config common.ClientConfig, channel transport.IChannel) (*Client, error) {
	d, err := dispatch.NewDispatcher(channel, dispatch.Options{})
	if err != nil {
		return nil, err
	}
	Logger.Debugf("client %s created\n%s", d.Name(), config.String())
	return &Client{config: config, dispatcher: d}, nil
}

// NewLocalClient creates a client whose commands are executed in process on a fresh
// in-memory store
func NewLocalClient(config common.ClientConfig, opts local.Options) (*Client, error) {
	s := lstore.NewLocalStore(lstore.Options{SweepInterval: time.Second})
	c, err := NewClient(config, local.NewChannel(server.NewCommandAdapter(s), opts))
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	c.closers = append(c.closers, s)
	return c, nil
}

// NewRemoteClient creates a client connected to an execution core over the named
// transport ("tcp", "unix" or "ws") using the serializer of the configuration
func NewRemoteClient(config common.ClientConfig, transportName string) (*Client, error) {
	s, err := serializer.New(config.Transport.Serializer)
	if err != nil {
		return nil, err
	}

	var t transport.IRPCClientTransport
	switch strings.ToLower(transportName) {
	case "tcp":
		t = tcp.NewTCPClientTransport()
	case "unix":
		t = unix.NewUnixClientTransport()
	case "ws":
		t = ws.NewWSClientTransport(config.Transport)
	default:
		return nil, fmt.Errorf("unknown transport: %s. must be one of tcp, unix, ws", transportName)
	}

	return NewClient(config, transport.NewSerializedChannel(t, s, config))
}

// Close fails all pending commands and closes the channel
func (c *Client) Close() error {
	err := c.dispatcher.Close()
	for _, closer := range c.closers {
		_ = closer.Close()
	}
	return err
}

// Dispatcher returns the dispatcher of the client
func (c *Client) Dispatcher() *dispatch.Dispatcher {
	return c.dispatcher
}

// WriteMetrics writes the dispatcher metrics in prometheus text format
func (c *Client) WriteMetrics(w io.Writer) {
	c.dispatcher.WriteMetrics(w)
}

// --------------------------------------------------------------------------
// Helper Functions
// --------------------------------------------------------------------------

// invoke dispatches desc and decodes the response with dec.
// Commands the channel did not accept are retried up to RetryCount times with
// exponential backoff, everything else is returned as is.
func invoke[T any](ctx context.Context, c *Client, desc command.Descriptor, dec decoder.Decoder[T]) (T, error) {
	var zero T

	var deadline time.Time
	if c.config.TimeoutMillisecond > 0 {
		deadline = time.Now().Add(time.Duration(c.config.TimeoutMillisecond) * time.Millisecond)
	}

	backoff := initialBackoff
	for attempt := 0; ; attempt++ {
		resp, err := c.dispatcher.Dispatch(ctx, desc, deadline)
		if err == nil {
			return dec(resp)
		}
		if attempt >= c.config.RetryCount || !retryable(err) {
			return zero, err
		}

		Logger.Debugf("%s attempt %d/%d failed: %v", desc.Name(), attempt+1, c.config.RetryCount+1, err)

		// Exponential backoff with a small random jitter (+-10%)
		jitter := time.Duration(float64(backoff) * (0.9 + 0.2*rand.Float64()))
		timer := time.NewTimer(jitter)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, err
		case <-timer.C:
		}
		backoff *= 2
	}
}

// retryable reports whether err is a channel error for a command that never
// reached the execution core
func retryable(err error) bool {
	return errors.Is(err, common.ErrChannel) &&
		errors.Is(err, dispatch.ErrNotAccepted) &&
		!errors.Is(err, common.ErrClosed)
}
