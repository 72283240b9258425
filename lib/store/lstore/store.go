package lstore

import (
	"sync"
	"time"

	"github.com/ValentinKolb/kvbridge/lib/store"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
)

var Logger = logger.GetLogger("store")

// Options configures a local store
type Options struct {
	// SweepInterval is the period of the background removal of expired keys.
	// 0 disables the sweeper, expired keys are then only removed when accessed.
	SweepInterval time.Duration
	// Clock replaces time.Now, used by tests
	Clock func() time.Time
}

// Store is the in-memory implementation of store.IStore
type Store struct {
	keys  *xsync.MapOf[string, store.Entry]
	clock func() time.Time

	stopCh    chan struct{}
	sweeper   sync.WaitGroup
	closeOnce sync.Once
}

// NewLocalStore creates a new in-memory store.
// This store implementation is not distributed and only works in a single process.
func NewLocalStore(opts Options) *Store {
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	s := &Store{
		keys:   xsync.NewMapOf[string, store.Entry](),
		clock:  clock,
		stopCh: make(chan struct{}),
	}
	if opts.SweepInterval > 0 {
		s.sweeper.Add(1)
		go s.sweepLoop(opts.SweepInterval)
	}
	return s
}

// --------------------------------------------------------------------------
// Interface Methods (docu see store/interface.go)
// --------------------------------------------------------------------------

func (s *Store) Get(key string) (store.Entry, bool) {
	e, ok := s.keys.Load(key)
	if !ok {
		return store.Entry{}, false
	}
	if e.Expired(s.clock()) {
		s.removeIfExpired(key)
		return store.Entry{}, false
	}
	return e, true
}

func (s *Store) Put(key string, entry store.Entry) {
	s.keys.Store(key, entry)
}

func (s *Store) Update(key string, fn store.UpdateFunc) (store.Entry, error) {
	now := s.clock()
	var fnErr error

	result, _ := s.keys.Compute(key, func(old store.Entry, loaded bool) (store.Entry, bool) {
		exists := loaded && !old.Expired(now)
		if !exists {
			old = store.Entry{}
		}

		next, action, err := fn(old, exists)
		if err != nil {
			fnErr = err
			// keep the current state, expired entries are dropped anyway
			return old, !exists
		}

		switch action {
		case store.ActionWrite:
			return next, false
		case store.ActionRemove:
			return store.Entry{}, true
		default:
			return old, !exists
		}
	})

	if fnErr != nil {
		return store.Entry{}, fnErr
	}
	return result, nil
}

func (s *Store) Delete(key string) bool {
	now := s.clock()
	deleted := false
	s.keys.Compute(key, func(old store.Entry, loaded bool) (store.Entry, bool) {
		deleted = loaded && !old.Expired(now)
		return old, true
	})
	return deleted
}

func (s *Store) Len() int {
	now := s.clock()
	n := 0
	s.keys.Range(func(_ string, e store.Entry) bool {
		if !e.Expired(now) {
			n++
		}
		return true
	})
	return n
}

func (s *Store) Flush() int {
	n := 0
	s.keys.Range(func(key string, _ store.Entry) bool {
		if _, ok := s.keys.LoadAndDelete(key); ok {
			n++
		}
		return true
	})
	Logger.Debugf("flushed %d keys", n)
	return n
}

func (s *Store) Now() time.Time {
	return s.clock()
}

// --------------------------------------------------------------------------
// Public Methods
// --------------------------------------------------------------------------

// Sweep removes all expired keys and returns how many were removed
func (s *Store) Sweep() int {
	now := s.clock()
	n := 0
	s.keys.Range(func(key string, e store.Entry) bool {
		if e.Expired(now) && s.removeIfExpired(key) {
			n++
		}
		return true
	})
	return n
}

// Close stops the sweeper
func (s *Store) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopCh)
		s.sweeper.Wait()
	})
	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// removeIfExpired deletes the key only if the stored entry is still expired,
// a concurrent writer may have replaced it in the meantime
func (s *Store) removeIfExpired(key string) bool {
	now := s.clock()
	removed := false
	s.keys.Compute(key, func(old store.Entry, loaded bool) (store.Entry, bool) {
		removed = loaded && old.Expired(now)
		return old, !loaded || removed
	})
	return removed
}

func (s *Store) sweepLoop(interval time.Duration) {
	defer s.sweeper.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				Logger.Debugf("swept %d expired keys", n)
			}
		}
	}
}
