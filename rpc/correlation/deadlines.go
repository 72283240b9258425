package correlation

import (
	"sync"
	"time"

	"github.com/ValentinKolb/kvbridge/lib/util"
)

// DeadlineScheduler expires requests of a Table when their deadline elapses.
//
// A single goroutine sleeps until the earliest deadline, so the cost per request is
// one heap entry instead of one timer. Requests that were settled in the meantime are
// expired as a no-op by the table.
type DeadlineScheduler struct {
	table *Table

	mu      sync.Mutex
	heap    *util.MapHeap
	stopped bool

	wake     chan struct{}
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// NewDeadlineScheduler creates a scheduler for the table and starts its goroutine
func NewDeadlineScheduler(table *Table) *DeadlineScheduler {
	s := &DeadlineScheduler{
		table: table,
		heap:  util.NewMapHeap(),
		wake:  make(chan struct{}, 1),
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	go s.run()
	return s
}

// --------------------------------------------------------------------------
// Public Methods
// --------------------------------------------------------------------------

// Schedule expires the request at deadline. A deadline in the past expires the
// request immediately. Scheduling an id again moves its deadline.
func (s *DeadlineScheduler) Schedule(id uint64, deadline time.Time) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	isMin := s.heap.AddItem(id, deadline.UnixNano())
	s.mu.Unlock()

	if isMin {
		s.signal()
	}
}

// Unschedule removes the deadline of a request that was settled otherwise
func (s *DeadlineScheduler) Unschedule(id uint64) {
	s.mu.Lock()
	s.heap.RemoveByKey(id)
	s.mu.Unlock()
}

// Len returns the number of scheduled deadlines
func (s *DeadlineScheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.heap.Len()
}

// Stop terminates the scheduler goroutine. Scheduled deadlines are dropped.
func (s *DeadlineScheduler) Stop() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		s.stopped = true
		s.heap.Clear()
		s.mu.Unlock()
		close(s.stop)
	})
	<-s.done
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

func (s *DeadlineScheduler) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// run expires due requests and sleeps until the next deadline or a wakeup
func (s *DeadlineScheduler) run() {
	defer close(s.done)

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	var expired []uint64
	for {
		expired = expired[:0]
		wait := time.Duration(-1)

		s.mu.Lock()
		now := time.Now().UnixNano()
		for {
			item, ok := s.heap.Peek()
			if !ok {
				break
			}
			if item.Priority > now {
				wait = time.Duration(item.Priority - now)
				break
			}
			s.heap.PopMin()
			expired = append(expired, item.Key)
		}
		s.mu.Unlock()

		// settle outside the lock, the table wakes the waiting callers
		for _, id := range expired {
			s.table.Expire(id)
		}

		if wait < 0 {
			select {
			case <-s.wake:
			case <-s.stop:
				return
			}
			continue
		}

		timer.Reset(wait)
		select {
		case <-timer.C:
		case <-s.wake:
			timer.Stop()
		case <-s.stop:
			return
		}
	}
}
