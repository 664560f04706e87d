package cart

import (
	"sync"

	"github.com/shopspring/decimal"
)

// Listener receives the full cart state after every mutation that changed it.
type Listener func(Snapshot)

// Store is the single cart of one browsing session. It is shared by every view of
// that session and is mutated only through AddOrIncrement, SetCount, Remove and Clear.
//
// Mutations are serialized: each one is applied and then delivered to listeners
// before the next mutation starts, so listeners observe versions in order and never
// a partially applied change. Listeners may read the store but must not mutate it.
type Store struct {
	dispatch sync.Mutex // serializes mutate+notify

	mu        sync.RWMutex
	items     []LineItem
	version   uint64
	listeners map[uint64]Listener
	nextSubID uint64
}

// NewStore returns an empty cart.
func NewStore() *Store {
	return &Store{listeners: map[uint64]Listener{}}
}

// AddOrIncrement inserts item with count 1, or bumps the count of the entry that
// already has item.ID.
func (s *Store) AddOrIncrement(item LineItem) {
	s.mutate(func() bool {
		if i := s.indexLocked(item.ID); i >= 0 {
			s.items[i].Count++
			return true
		}
		item.Count = 1
		if item.UnitPrice.IsNegative() {
			item.UnitPrice = decimal.Zero
		}
		s.items = append(s.items, item)
		return true
	})
}

// SetCount sets the count of id. Counts below 1 are clamped to 1; reaching zero
// requires Remove. Unknown ids are ignored.
func (s *Store) SetCount(id string, n int) {
	if n < 1 {
		n = 1
	}
	s.mutate(func() bool {
		i := s.indexLocked(id)
		if i < 0 || s.items[i].Count == n {
			return false
		}
		s.items[i].Count = n
		return true
	})
}

// Remove deletes the entry for id. No-op if absent.
func (s *Store) Remove(id string) {
	s.mutate(func() bool {
		i := s.indexLocked(id)
		if i < 0 {
			return false
		}
		s.items = append(s.items[:i:i], s.items[i+1:]...)
		return true
	})
}

// Clear empties the cart. Called once an order has been submitted.
func (s *Store) Clear() {
	s.mutate(func() bool {
		if len(s.items) == 0 {
			return false
		}
		s.items = nil
		return true
	})
}

// Items returns a copy of the line items in cart order.
func (s *Store) Items() []LineItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.copyLocked()
}

// Count returns the count for id, or 0 when id is not in the cart.
func (s *Store) Count(id string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexLocked(id); i >= 0 {
		return s.items[i].Count
	}
	return 0
}

// Len is the number of distinct line items.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Totals returns the sum of counts and the sum of line totals, computed on every call.
func (s *Store) Totals() (int, decimal.Decimal) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return totals(s.items)
}

// Snapshot returns the current items together with their version.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{Version: s.version, Items: s.copyLocked()}
}

// Subscribe registers fn for change notifications. The returned func unsubscribes.
func (s *Store) Subscribe(fn Listener) func() {
	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.listeners[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

func (s *Store) mutate(apply func() bool) {
	s.dispatch.Lock()
	defer s.dispatch.Unlock()

	s.mu.Lock()
	if !apply() {
		s.mu.Unlock()
		return
	}
	s.version++
	snap := Snapshot{Version: s.version, Items: s.copyLocked()}
	listeners := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.Unlock()

	for _, l := range listeners {
		l(snap)
	}
}

func (s *Store) indexLocked(id string) int {
	for i := range s.items {
		if s.items[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) copyLocked() []LineItem {
	out := make([]LineItem, len(s.items))
	copy(out, s.items)
	return out
}
