package shoppinglist

import (
	"errors"
	"sync"

	"github.com/rs/zerolog/log"
)

// ErrOrderMismatch is returned when a reorder request does not carry
// exactly the current identifier set. Reordering never adds, removes, or
// duplicates items.
var ErrOrderMismatch = errors.New("reorder sequence does not match current item identifiers")

// Persister receives write-through snapshots of list state. Writes may be
// throttled by the implementation; Purge drops the persisted record
// unconditionally.
type Persister interface {
	Persist(Result)
	Purge()
}

// NopPersister discards snapshots. Useful for tests and one-shot CLI runs.
type NopPersister struct{}

func (NopPersister) Persist(Result) {}
func (NopPersister) Purge()         {}

// ListStore holds the current shopping list and its running totals. There
// is one store per user session; callers own it exclusively, but the mutex
// keeps concurrent HTTP handlers on the same session safe.
type ListStore struct {
	mu        sync.Mutex
	items     []Item
	result    Result
	persister Persister
}

// NewListStore seeds a store from an aggregation result or a rehydrated
// snapshot.
func NewListStore(res Result, persister Persister) *ListStore {
	if persister == nil {
		persister = NopPersister{}
	}
	s := &ListStore{persister: persister}
	s.items = append([]Item(nil), res.ShoppingList...)
	s.result = res
	return s
}

// Result returns a copy of the current list with its totals.
func (s *ListStore) Result() Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *ListStore) snapshotLocked() Result {
	out := s.result
	out.ShoppingList = append([]Item(nil), s.items...)
	return out
}

// Remove deletes the item with the given identifier and decrements the
// totals by its contribution. Removing an unknown identifier is a no-op:
// repeated or stale removals must stay harmless.
func (s *ListStore) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i, it := range s.items {
		if it.ID == id {
			idx = i
			break
		}
	}
	if idx == -1 {
		log.Warn().Str("itemId", id).Msg("Remove ignored: no such shopping list item")
		return false
	}

	removed := s.items[idx]
	s.items = append(s.items[:idx], s.items[idx+1:]...)
	s.result.TotalCost = round2(clampMoney(s.result.TotalCost - removed.Price))
	s.result.EstimatedSavings = round2(clampMoney(s.result.EstimatedSavings - removed.savingsContribution()))

	s.persister.Persist(s.snapshotLocked())
	return true
}

// Reorder replaces the item order with the given identifier sequence, which
// must be an exact permutation of the current set. Totals are order
// independent and stay untouched.
func (s *ListStore) Reorder(ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(ids) != len(s.items) {
		return ErrOrderMismatch
	}

	byID := make(map[string]Item, len(s.items))
	for _, it := range s.items {
		byID[it.ID] = it
	}

	reordered := make([]Item, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			return ErrOrderMismatch
		}
		it, ok := byID[id]
		if !ok {
			return ErrOrderMismatch
		}
		seen[id] = struct{}{}
		reordered = append(reordered, it)
	}

	s.items = reordered
	s.persister.Persist(s.snapshotLocked())
	return nil
}

// Reset empties the store and purges its persisted snapshot. Used when the
// user starts a new search.
func (s *ListStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = nil
	s.result = Result{}
	s.persister.Purge()
}

// Len returns the current number of items.
func (s *ListStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}
