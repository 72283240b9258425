package dispatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/kvbridge/rpc/command"
	"github.com/ValentinKolb/kvbridge/rpc/common"
	"github.com/ValentinKolb/kvbridge/rpc/correlation"
	"github.com/ValentinKolb/kvbridge/rpc/transport"
	"github.com/google/uuid"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("dispatch")

// ErrNotAccepted is the cause of channel errors for requests the channel refused to
// accept. Such requests never reached the execution core.
var ErrNotAccepted = errors.New("request not accepted by channel")

// Options configures a Dispatcher
type Options struct {
	// Name identifies the dispatcher in logs and metrics. A random id is used if empty.
	Name string
}

// Dispatcher sends command descriptors over a native channel and waits for the
// correlated responses.
//
// Every call registers a pending completion under a fresh request id before the
// descriptor is submitted, so a response can never arrive for an unknown request.
// The call then waits until exactly one of response, channel failure, cancellation
// or deadline settles it. No lock is held while waiting.
type Dispatcher struct {
	name      string
	channel   transport.IChannel
	table     *correlation.Table
	deadlines *correlation.DeadlineScheduler
	metrics   *dispatchMetrics

	nextID    atomic.Uint64
	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// NewDispatcher creates a dispatcher and starts the channel with the dispatcher's
// response and failure handlers
func NewDispatcher(channel transport.IChannel, opts Options) (*Dispatcher, error) {
	name := opts.Name
	if name == "" {
		name = uuid.NewString()
	}

	table := correlation.NewTable()
	d := &Dispatcher{
		name:      name,
		channel:   channel,
		table:     table,
		deadlines: correlation.NewDeadlineScheduler(table),
	}
	d.metrics = newDispatchMetrics(name, table)

	if err := channel.Start(d.onResponse, d.onFailure); err != nil {
		d.deadlines.Stop()
		return nil, fmt.Errorf("failed to start channel: %w", err)
	}

	Logger.Debugf("dispatcher %s started", name)
	return d, nil
}

// --------------------------------------------------------------------------
// Public Methods
// --------------------------------------------------------------------------

// Dispatch submits the descriptor and waits for its outcome.
//
// A zero deadline means the request has no deadline of its own; it still ends when
// ctx is cancelled or ctx's deadline passes. A deadline that already passed still
// submits the request, which then times out. If ctx is already done nothing is
// submitted.
//
// The returned error is a *common.Error: ChannelError, TimeoutError or
// CancelledError. Error replies of the execution core are returned as a response,
// the decoders turn them into ServerErrors.
func (d *Dispatcher) Dispatch(ctx context.Context, desc command.Descriptor, deadline time.Time) (common.Response, error) {
	if len(desc) == 0 {
		return common.Response{}, common.NewArgumentError("empty command descriptor")
	}
	if d.closed.Load() {
		return common.Response{}, common.NewChannelError(0, "dispatcher closed", common.ErrClosed)
	}
	if err := ctx.Err(); err != nil {
		return common.Response{}, contextError(0, err)
	}

	id := d.nextID.Add(1)
	p := correlation.NewPending(id, deadline)
	d.table.Register(p)
	d.metrics.dispatched.Inc()
	start := time.Now()

	// Close may have failed all pending requests before this one was registered
	if d.closed.Load() {
		d.table.Fail(id, common.NewChannelError(id, "dispatcher closed", common.ErrClosed))
		return d.finish(p, start, false)
	}

	if !deadline.IsZero() {
		d.deadlines.Schedule(id, deadline)
	}

	stop := context.AfterFunc(ctx, func() {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			d.table.Expire(id)
		} else {
			d.table.Cancel(id, context.Cause(ctx))
		}
	})
	defer stop()

	if err := d.channel.Submit(id, desc); err != nil {
		d.metrics.submitErrors.Inc()
		Logger.Warningf("failed to submit request %d (%s): %v", id, desc.Name(), err)
		d.table.Fail(id, common.NewChannelError(id, "submit failed", fmt.Errorf("%w: %w", ErrNotAccepted, err)))
	}

	return d.finish(p, start, !deadline.IsZero())
}

// InFlight returns the number of requests that are waiting for an outcome
func (d *Dispatcher) InFlight() int {
	return d.table.Len()
}

// Stale returns the number of responses that arrived for unknown requests
func (d *Dispatcher) Stale() uint64 {
	return d.table.Stale()
}

// Name returns the name of the dispatcher
func (d *Dispatcher) Name() string {
	return d.name
}

// WriteMetrics writes the metrics of this dispatcher in prometheus text format
func (d *Dispatcher) WriteMetrics(w io.Writer) {
	d.metrics.set.WritePrometheus(w)
}

// Close fails all pending requests with a ChannelError, stops the deadline
// scheduler and closes the channel. Dispatch fails with a ChannelError afterwards.
func (d *Dispatcher) Close() error {
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		n := d.table.FailAll(func(id uint64) error {
			return common.NewChannelError(id, "dispatcher closed", common.ErrClosed)
		})
		if n > 0 {
			Logger.Infof("dispatcher %s closed with %d pending requests", d.name, n)
		}
		d.deadlines.Stop()
		d.closeErr = d.channel.Close()
	})
	return d.closeErr
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// finish waits for the outcome and records it
func (d *Dispatcher) finish(p *correlation.Pending, start time.Time, scheduled bool) (common.Response, error) {
	<-p.Done()
	if scheduled {
		d.deadlines.Unschedule(p.ID)
	}
	d.metrics.observe(p.State(), start)
	return p.Result()
}

func (d *Dispatcher) onResponse(requestID uint64, resp common.Response) {
	d.table.Resolve(requestID, resp)
}

func (d *Dispatcher) onFailure(requestID uint64, err error) {
	var bridgeErr *common.Error
	if errors.As(err, &bridgeErr) {
		// already classified by the channel (e.g. undecodable response)
		d.table.Fail(requestID, err)
		return
	}
	d.table.Fail(requestID, common.NewChannelError(requestID, "channel failure", err))
}

// contextError maps a context error to the matching bridge error
func contextError(id uint64, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return common.NewTimeoutError(id, err)
	}
	return common.NewCancelledError(id, err)
}
