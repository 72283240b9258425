package dispatch

import (
	"bytes"
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ValentinKolb/kvbridge/lib/value"
	"github.com/ValentinKolb/kvbridge/rpc/command"
	"github.com/ValentinKolb/kvbridge/rpc/common"
	"github.com/ValentinKolb/kvbridge/rpc/transport"
	"golang.org/x/sync/errgroup"
)

// --------------------------------------------------------------------------
// Test Channel
// --------------------------------------------------------------------------

type submission struct {
	id   uint64
	desc command.Descriptor
}

// manualChannel records submissions and lets the test decide when and how they are answered
type manualChannel struct {
	onResponse transport.ResponseHandler
	onFailure  transport.FailureHandler

	submitted  chan submission
	submitErr  error
	submits    atomic.Int64
	closeCalls atomic.Int64
}

func newManualChannel() *manualChannel {
	return &manualChannel{submitted: make(chan submission, 1024)}
}

func (c *manualChannel) Start(onResponse transport.ResponseHandler, onFailure transport.FailureHandler) error {
	c.onResponse = onResponse
	c.onFailure = onFailure
	return nil
}

func (c *manualChannel) Submit(id uint64, desc command.Descriptor) error {
	c.submits.Add(1)
	if c.submitErr != nil {
		return c.submitErr
	}
	c.submitted <- submission{id: id, desc: desc}
	return nil
}

func (c *manualChannel) Close() error {
	c.closeCalls.Add(1)
	return nil
}

func (c *manualChannel) next(t *testing.T) submission {
	t.Helper()
	select {
	case s := <-c.submitted:
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("no submission received")
		return submission{}
	}
}

// echoChannel answers every request asynchronously with the last argument as bulk reply
type echoChannel struct {
	onResponse transport.ResponseHandler
}

func (c *echoChannel) Start(onResponse transport.ResponseHandler, _ transport.FailureHandler) error {
	c.onResponse = onResponse
	return nil
}

func (c *echoChannel) Submit(id uint64, desc command.Descriptor) error {
	go func() {
		time.Sleep(time.Duration(id%5) * time.Millisecond)
		c.onResponse(id, common.NewBulkResponse(desc[len(desc)-1].Bytes()))
	}()
	return nil
}

func (c *echoChannel) Close() error { return nil }

func newDispatcher(t *testing.T, ch transport.IChannel) *Dispatcher {
	t.Helper()
	d, err := NewDispatcher(ch, Options{Name: t.Name()})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func get(key string) command.Descriptor {
	return command.MustBuild(command.CmdGet, value.FromString(key))
}

type result struct {
	resp common.Response
	err  error
}

func dispatchAsync(d *Dispatcher, ctx context.Context, desc command.Descriptor, deadline time.Time) <-chan result {
	out := make(chan result, 1)
	go func() {
		resp, err := d.Dispatch(ctx, desc, deadline)
		out <- result{resp, err}
	}()
	return out
}

func await(t *testing.T, ch <-chan result) result {
	t.Helper()
	select {
	case r := <-ch:
		return r
	case <-time.After(2 * time.Second):
		t.Fatal("dispatch did not return")
		return result{}
	}
}

// --------------------------------------------------------------------------
// Tests
// --------------------------------------------------------------------------

func TestDispatchResolves(t *testing.T) {
	ch := newManualChannel()
	d := newDispatcher(t, ch)

	res := dispatchAsync(d, context.Background(), get("k"), time.Time{})
	s := ch.next(t)
	if s.desc.Name() != "GET" {
		t.Errorf("unexpected descriptor %v", s.desc)
	}
	ch.onResponse(s.id, common.NewBulkResponse([]byte("v")))

	r := await(t, res)
	if r.err != nil || string(r.resp.Bulk) != "v" {
		t.Errorf("unexpected outcome %v, %v", r.resp, r.err)
	}
	if d.InFlight() != 0 {
		t.Errorf("table should be empty, has %d", d.InFlight())
	}
	if ch.submits.Load() != 1 {
		t.Errorf("expected exactly one submission, got %d", ch.submits.Load())
	}
}

func TestZeroDeadlineAgainstSilentChannelTimesOut(t *testing.T) {
	ch := newManualChannel()
	d := newDispatcher(t, ch)

	_, err := d.Dispatch(context.Background(), get("k"), time.Now())
	if !errors.Is(err, common.ErrTimeout) {
		t.Fatalf("expected TimeoutError, got %v", err)
	}
	if d.InFlight() != 0 {
		t.Errorf("table should be empty after timeout, has %d", d.InFlight())
	}
	if ch.submits.Load() != 1 {
		t.Errorf("request must still be submitted once, got %d", ch.submits.Load())
	}

	// the late response is discarded
	s := ch.next(t)
	ch.onResponse(s.id, common.NewOKResponse())
	if d.Stale() != 1 {
		t.Errorf("late response should be stale, stale=%d", d.Stale())
	}
}

func TestCancelAfterSubmit(t *testing.T) {
	ch := newManualChannel()
	d := newDispatcher(t, ch)

	ctx, cancel := context.WithCancel(context.Background())
	res := dispatchAsync(d, ctx, get("k"), time.Time{})
	s := ch.next(t)
	cancel()

	r := await(t, res)
	if !errors.Is(r.err, common.ErrCancelled) {
		t.Fatalf("expected CancelledError, got %v", r.err)
	}
	if !errors.Is(r.err, context.Canceled) {
		t.Errorf("cancel cause should be kept, got %v", r.err)
	}

	ch.onResponse(s.id, common.NewBulkResponse([]byte("late")))
	if d.Stale() != 1 || d.InFlight() != 0 {
		t.Errorf("late response should be discarded: stale=%d inflight=%d", d.Stale(), d.InFlight())
	}
}

func TestPreCancelledContextDoesNotSubmit(t *testing.T) {
	ch := newManualChannel()
	d := newDispatcher(t, ch)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := d.Dispatch(ctx, get("k"), time.Time{})
	if !errors.Is(err, common.ErrCancelled) {
		t.Fatalf("expected CancelledError, got %v", err)
	}
	if ch.submits.Load() != 0 {
		t.Errorf("nothing should be submitted, got %d submissions", ch.submits.Load())
	}
}

func TestContextDeadlineIsTimeout(t *testing.T) {
	ch := newManualChannel()
	d := newDispatcher(t, ch)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := d.Dispatch(ctx, get("k"), time.Time{})
	if !errors.Is(err, common.ErrTimeout) {
		t.Fatalf("expected TimeoutError, got %v", err)
	}
}

func TestSubmitFailure(t *testing.T) {
	ch := newManualChannel()
	ch.submitErr = errors.New("queue full")
	d := newDispatcher(t, ch)

	_, err := d.Dispatch(context.Background(), get("k"), time.Now().Add(time.Second))
	if !errors.Is(err, common.ErrChannel) || !errors.Is(err, ErrNotAccepted) {
		t.Fatalf("expected ChannelError not accepted, got %v", err)
	}
	if d.InFlight() != 0 {
		t.Errorf("table should be empty, has %d", d.InFlight())
	}
}

func TestChannelFailure(t *testing.T) {
	ch := newManualChannel()
	d := newDispatcher(t, ch)

	res := dispatchAsync(d, context.Background(), get("k"), time.Time{})
	s := ch.next(t)
	ch.onFailure(s.id, errors.New("connection reset"))

	r := await(t, res)
	if !errors.Is(r.err, common.ErrChannel) {
		t.Fatalf("expected ChannelError, got %v", r.err)
	}
	if errors.Is(r.err, ErrNotAccepted) {
		t.Error("an accepted request must not be reported as not accepted")
	}
}

func TestServerErrorIsAResponse(t *testing.T) {
	ch := newManualChannel()
	d := newDispatcher(t, ch)

	res := dispatchAsync(d, context.Background(), get("k"), time.Time{})
	s := ch.next(t)
	ch.onResponse(s.id, common.NewErrorResponse("WRONGTYPE", "Operation against a key holding the wrong kind of value"))

	r := await(t, res)
	if r.err != nil || !r.resp.IsError() || r.resp.ErrKind != "WRONGTYPE" {
		t.Errorf("error reply should be delivered as response, got %v, %v", r.resp, r.err)
	}
}

func TestCloseFailsPending(t *testing.T) {
	ch := newManualChannel()
	d, err := NewDispatcher(ch, Options{})
	if err != nil {
		t.Fatal(err)
	}

	results := make([]<-chan result, 5)
	for i := range results {
		results[i] = dispatchAsync(d, context.Background(), get("k"), time.Time{})
		ch.next(t)
	}

	if err := d.Close(); err != nil {
		t.Fatal(err)
	}
	for _, res := range results {
		r := await(t, res)
		if !errors.Is(r.err, common.ErrChannel) || !errors.Is(r.err, common.ErrClosed) {
			t.Errorf("expected closed ChannelError, got %v", r.err)
		}
	}

	if _, err := d.Dispatch(context.Background(), get("k"), time.Time{}); !errors.Is(err, common.ErrClosed) {
		t.Errorf("dispatch after close should fail, got %v", err)
	}
	_ = d.Close()
	if ch.closeCalls.Load() != 1 {
		t.Errorf("channel should be closed once, got %d", ch.closeCalls.Load())
	}
}

func TestEmptyDescriptorIsRejected(t *testing.T) {
	ch := newManualChannel()
	d := newDispatcher(t, ch)

	if _, err := d.Dispatch(context.Background(), nil, time.Time{}); !errors.Is(err, common.ErrArgument) {
		t.Errorf("expected ArgumentError, got %v", err)
	}
}

// TestConcurrentDispatchOutOfOrder checks that responses delivered in arbitrary order
// reach the caller that sent the matching request
func TestConcurrentDispatchOutOfOrder(t *testing.T) {
	d := newDispatcher(t, &echoChannel{})

	g, ctx := errgroup.WithContext(context.Background())
	for i := 0; i < 200; i++ {
		i := i
		g.Go(func() error {
			want := "value-" + strconv.Itoa(i)
			desc := command.MustBuild(command.CmdEcho, value.FromString(want))
			resp, err := d.Dispatch(ctx, desc, time.Now().Add(2*time.Second))
			if err != nil {
				return err
			}
			if string(resp.Bulk) != want {
				return errors.New("mismatched response: got " + string(resp.Bulk) + ", want " + want)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}
	if d.InFlight() != 0 || d.Stale() != 0 {
		t.Errorf("inflight=%d stale=%d", d.InFlight(), d.Stale())
	}
}

func TestDeadlineVsResponseRace(t *testing.T) {
	ch := newManualChannel()
	d := newDispatcher(t, ch)

	const n = 100
	var wg sync.WaitGroup
	var outcomes atomic.Int64
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := d.Dispatch(context.Background(), get("k"), time.Now().Add(2*time.Millisecond))
			if err == nil || errors.Is(err, common.ErrTimeout) {
				outcomes.Add(1)
			}
		}()
	}
	for i := 0; i < n; i++ {
		s := ch.next(t)
		ch.onResponse(s.id, common.NewOKResponse())
	}
	wg.Wait()

	if outcomes.Load() != n {
		t.Errorf("expected %d outcomes, got %d", n, outcomes.Load())
	}
	if d.InFlight() != 0 {
		t.Errorf("table should be empty, has %d", d.InFlight())
	}
}

func TestWriteMetrics(t *testing.T) {
	ch := newManualChannel()
	d := newDispatcher(t, ch)

	_, _ = d.Dispatch(context.Background(), get("k"), time.Now())

	var buf bytes.Buffer
	d.WriteMetrics(&buf)
	out := buf.String()
	for _, want := range []string{"kvb_dispatch_requests_total", `outcome="timeout"`, "kvb_dispatch_inflight"} {
		if !bytes.Contains([]byte(out), []byte(want)) {
			t.Errorf("metrics output misses %s:\n%s", want, out)
		}
	}
}

func BenchmarkDispatch(b *testing.B) {
	d, err := NewDispatcher(&echoChannel{}, Options{})
	if err != nil {
		b.Fatal(err)
	}
	defer d.Close()
	desc := command.MustBuild(command.CmdEcho, value.FromString("x"))

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if _, err := d.Dispatch(context.Background(), desc, time.Time{}); err != nil {
				b.Error(err)
				return
			}
		}
	})
}
