package correlation

import (
	"fmt"
	"sync/atomic"

	"github.com/ValentinKolb/kvbridge/rpc/common"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
)

var Logger = logger.GetLogger("correlation")

// Table maps request ids to their pending completions.
//
// Every settling operation removes the entry before settling it, so each id is
// resolved at most once no matter how many responses, failures, cancellations or
// deadlines race for it. Resolutions for ids that are not registered (late or
// duplicated responses) are counted as stale and otherwise ignored.
//
// All methods are safe for concurrent use.
type Table struct {
	entries *xsync.MapOf[uint64, *Pending]
	stale   atomic.Uint64
}

// NewTable creates an empty correlation table
func NewTable() *Table {
	return &Table{
		entries: xsync.NewMapOf[uint64, *Pending](),
	}
}

// --------------------------------------------------------------------------
// Public Methods
// --------------------------------------------------------------------------

// Register adds a pending completion. It panics if the id is already registered,
// request ids are unique among in-flight requests.
func (t *Table) Register(p *Pending) {
	if _, loaded := t.entries.LoadOrStore(p.ID, p); loaded {
		panic(fmt.Sprintf("correlation: request id %d registered twice", p.ID))
	}
}

// Resolve delivers a response to the request. It returns false if the id is unknown.
func (t *Table) Resolve(id uint64, resp common.Response) bool {
	return t.settle(id, StateResolved, resp, nil, "response")
}

// Fail resolves the request with an error (usually a ChannelError)
func (t *Table) Fail(id uint64, err error) bool {
	return t.settle(id, StateFailed, common.Response{}, err, "failure")
}

// Cancel resolves the request with a CancelledError wrapping cause
func (t *Table) Cancel(id uint64, cause error) bool {
	return t.settle(id, StateCancelled, common.Response{}, common.NewCancelledError(id, cause), "cancellation")
}

// Expire resolves the request with a TimeoutError
func (t *Table) Expire(id uint64) bool {
	return t.settle(id, StateTimedOut, common.Response{}, common.NewTimeoutError(id, nil), "expiry")
}

// FailAll resolves every registered request with the error returned by mkErr and
// returns the number of failed requests
func (t *Table) FailAll(mkErr func(id uint64) error) int {
	n := 0
	t.entries.Range(func(id uint64, _ *Pending) bool {
		if t.Fail(id, mkErr(id)) {
			n++
		}
		return true
	})
	return n
}

// Contains reports whether the id is registered
func (t *Table) Contains(id uint64) bool {
	_, ok := t.entries.Load(id)
	return ok
}

// Len returns the number of registered requests
func (t *Table) Len() int {
	return t.entries.Size()
}

// Stale returns how many resolutions were ignored because the id was unknown
func (t *Table) Stale() uint64 {
	return t.stale.Load()
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

func (t *Table) settle(id uint64, state State, resp common.Response, err error, what string) bool {
	p, ok := t.entries.LoadAndDelete(id)
	if !ok {
		t.stale.Add(1)
		Logger.Debugf("ignoring %s for unknown request %d", what, id)
		return false
	}
	return p.settle(state, resp, err)
}
