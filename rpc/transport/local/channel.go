package local

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/kvbridge/lib/util"
	"github.com/ValentinKolb/kvbridge/rpc/command"
	"github.com/ValentinKolb/kvbridge/rpc/common"
	"github.com/ValentinKolb/kvbridge/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("transport/local")

// ErrChannelClosed is returned by Submit after Close
var ErrChannelClosed = errors.New("local channel closed")

// IExecutor executes a command descriptor and returns the response of the store.
// Implementations must be safe for concurrent use.
type IExecutor interface {
	Execute(desc command.Descriptor) common.Response
}

// ExecutorFunc adapts a function to IExecutor
type ExecutorFunc func(desc command.Descriptor) common.Response

func (f ExecutorFunc) Execute(desc command.Descriptor) common.Response {
	return f(desc)
}

// Options configures a local channel
type Options struct {
	// Workers is the number of goroutines executing commands (default 1).
	// With a single worker commands are executed in submission order.
	Workers int
	// Latency delays every response, used to simulate a remote core
	Latency time.Duration
	// Redeliver delivers every response twice, used to exercise duplicate handling
	Redeliver bool
}

type request struct {
	id   uint64
	desc command.Descriptor
}

// Channel is an in-process implementation of transport.IChannel.
//
// Submissions are pushed onto a lock-free multi-producer queue, so Submit never
// blocks on command execution. Worker goroutines take requests from the queue,
// run them on the executor and report the responses.
type Channel struct {
	executor IExecutor
	opts     Options

	queue      *util.LockFreeMPSC[request]
	onResponse transport.ResponseHandler
	workers    sync.WaitGroup
	started    atomic.Bool
	closeOnce  sync.Once
}

// NewChannel creates a local channel for the executor
func NewChannel(executor IExecutor, opts Options) *Channel {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	return &Channel{
		executor: executor,
		opts:     opts,
		queue:    util.NewLockFreeMPSC[request](),
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IChannel)
// --------------------------------------------------------------------------

func (c *Channel) Start(onResponse transport.ResponseHandler, _ transport.FailureHandler) error {
	if !c.started.CompareAndSwap(false, true) {
		return errors.New("local channel already started")
	}
	c.onResponse = onResponse

	c.workers.Add(c.opts.Workers)
	for i := 0; i < c.opts.Workers; i++ {
		go c.work()
	}
	Logger.Debugf("local channel started with %d workers", c.opts.Workers)
	return nil
}

func (c *Channel) Submit(requestID uint64, desc command.Descriptor) error {
	if !c.queue.Push(&request{id: requestID, desc: desc}) {
		return ErrChannelClosed
	}
	return nil
}

// Close stops accepting requests and waits until the queued requests were executed
func (c *Channel) Close() error {
	c.closeOnce.Do(func() {
		c.queue.Close()
		if c.started.Load() {
			c.workers.Wait()
		}
	})
	return nil
}

// Pending returns the number of submitted requests that were not yet picked up by a worker
func (c *Channel) Pending() int {
	return c.queue.Len()
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

func (c *Channel) work() {
	defer c.workers.Done()
	for req := range c.queue.Recv() {
		resp := c.executor.Execute(req.desc)
		if c.opts.Latency > 0 {
			time.Sleep(c.opts.Latency)
		}
		c.onResponse(req.id, resp)
		if c.opts.Redeliver {
			c.onResponse(req.id, resp)
		}
	}
}
