package correlation

import (
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/kvbridge/rpc/common"
)

// --------------------------------------------------------------------------
// Pending State
// --------------------------------------------------------------------------

// State is the lifecycle state of a pending request.
// The only transitions are from StatePending to one of the terminal states.
type State int32

const (
	StatePending   State = iota // registered, waiting for an outcome
	StateResolved               // a response was delivered
	StateFailed                 // the channel failed for this request
	StateCancelled              // the caller cancelled the request
	StateTimedOut               // the deadline elapsed
)

// String returns the string representation of a State
func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateResolved:
		return "resolved"
	case StateFailed:
		return "failed"
	case StateCancelled:
		return "cancelled"
	case StateTimedOut:
		return "timed out"
	default:
		return "unknown"
	}
}

// --------------------------------------------------------------------------
// Pending Completion
// --------------------------------------------------------------------------

// Pending is the completion handle of one in-flight request.
// It is settled exactly once; later attempts are no-ops.
type Pending struct {
	ID       uint64
	Deadline time.Time // zero if the request has no deadline

	state atomic.Int32
	done  chan struct{}

	// written once before done is closed
	resp common.Response
	err  error
}

// NewPending creates the completion handle for a request
func NewPending(id uint64, deadline time.Time) *Pending {
	return &Pending{
		ID:       id,
		Deadline: deadline,
		done:     make(chan struct{}),
	}
}

// Done returns a channel that is closed once the request is settled
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// State returns the current state
func (p *Pending) State() State {
	return State(p.state.Load())
}

// Result returns the outcome. It must only be called after Done was closed.
func (p *Pending) Result() (common.Response, error) {
	return p.resp, p.err
}

// Wait blocks until the request is settled and returns the outcome
func (p *Pending) Wait() (common.Response, error) {
	<-p.done
	return p.resp, p.err
}

// settle moves the request into a terminal state. Only the first call succeeds.
func (p *Pending) settle(state State, resp common.Response, err error) bool {
	if !p.state.CompareAndSwap(int32(StatePending), int32(state)) {
		return false
	}
	p.resp = resp
	p.err = err
	close(p.done)
	return true
}
