package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/kbsync/internal/core/domain"
	"github.com/custodia-labs/kbsync/internal/core/ports/driven"
)

// Ensure EntryStateStore implements the interface.
var _ driven.EntryStateStore = (*EntryStateStore)(nil)

// EntryStateStore is an in-memory implementation of driven.EntryStateStore.
type EntryStateStore struct {
	mu     sync.RWMutex
	states map[string]map[string]domain.EntryState
}

// NewEntryStateStore creates a new in-memory entry state store.
func NewEntryStateStore() *EntryStateStore {
	return &EntryStateStore{
		states: make(map[string]map[string]domain.EntryState),
	}
}

// Save stores or updates entry state.
func (s *EntryStateStore) Save(_ context.Context, state domain.EntryState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.states[state.SourceID] == nil {
		s.states[state.SourceID] = make(map[string]domain.EntryState)
	}
	s.states[state.SourceID][state.EntryID] = state
	return nil
}

// Get retrieves entry state.
func (s *EntryStateStore) Get(_ context.Context, sourceID, entryID string) (*domain.EntryState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.states[sourceID][entryID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &state, nil
}

// ListBySource returns all entry state for a source.
func (s *EntryStateStore) ListBySource(_ context.Context, sourceID string) ([]domain.EntryState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	states := make([]domain.EntryState, 0, len(s.states[sourceID]))
	for _, state := range s.states[sourceID] {
		states = append(states, state)
	}
	return states, nil
}

// Delete removes entry state.
func (s *EntryStateStore) Delete(_ context.Context, sourceID, entryID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states[sourceID], entryID)
	return nil
}
