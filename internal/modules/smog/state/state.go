// Package state holds the dashboard's view state: exactly one of Loading,
// Loaded, NotFound or Error is active at any time.
package state

import (
	"sync"
	"time"

	"smogdash/internal/modules/smog/types"
)

type Kind int

const (
	KindLoading Kind = iota
	KindLoaded
	KindNotFound
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindLoading:
		return "loading"
	case KindLoaded:
		return "loaded"
	case KindNotFound:
		return "not_found"
	case KindError:
		return "error"
	default:
		return "unknown"
	}
}

// ViewState is the tagged union rendered by the views. Record is set only
// for KindLoaded and Err only for KindError.
type ViewState struct {
	Kind      Kind
	Record    *types.StationRecord
	Err       error
	UpdatedAt time.Time
}

// Store owns the current ViewState for one running dashboard. Each refresh
// takes a generation from Begin; only the latest generation may resolve,
// and nothing resolves after Close.
type Store struct {
	mu     sync.RWMutex
	now    func() time.Time
	state  ViewState
	gen    uint64
	closed bool
	subs   map[chan ViewState]struct{}
}

func NewStore(now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{
		now:   now,
		state: ViewState{Kind: KindLoading, UpdatedAt: now()},
		subs:  make(map[chan ViewState]struct{}),
	}
}

func (s *Store) Current() ViewState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Begin moves the store to Loading and returns the generation the caller
// must pass when resolving. ok is false once the store is closed.
func (s *Store) Begin() (gen uint64, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, false
	}
	s.gen++
	s.setLocked(ViewState{Kind: KindLoading, UpdatedAt: s.now()})
	return s.gen, true
}

func (s *Store) Loaded(gen uint64, rec types.StationRecord) bool {
	return s.resolve(gen, ViewState{Kind: KindLoaded, Record: &rec})
}

func (s *Store) NotFound(gen uint64) bool {
	return s.resolve(gen, ViewState{Kind: KindNotFound})
}

func (s *Store) Failed(gen uint64, err error) bool {
	return s.resolve(gen, ViewState{Kind: KindError, Err: err})
}

// resolve applies next if gen is still the latest generation. It reports
// whether the state changed.
func (s *Store) resolve(gen uint64, next ViewState) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || gen != s.gen {
		return false
	}
	next.UpdatedAt = s.now()
	s.setLocked(next)
	return true
}

// Close rejects every later Begin and resolve and closes subscriber channels.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for ch := range s.subs {
		close(ch)
		delete(s.subs, ch)
	}
}

// Subscribe returns a channel that receives the current state right away
// and every later transition. A slow reader only sees the newest state.
// The channel closes on cancel or Close.
func (s *Store) Subscribe() (<-chan ViewState, func()) {
	ch := make(chan ViewState, 1)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	ch <- s.state
	s.subs[ch] = struct{}{}
	s.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if _, ok := s.subs[ch]; ok {
				delete(s.subs, ch)
				close(ch)
			}
		})
	}
	return ch, cancel
}

func (s *Store) setLocked(next ViewState) {
	s.state = next
	for ch := range s.subs {
		// Drop the unread value so the newest state always fits.
		select {
		case <-ch:
		default:
		}
		ch <- next
	}
}
