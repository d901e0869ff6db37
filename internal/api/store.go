package api

import (
	"sync"

	"github.com/evilc0des/prop-bots/internal/types"
	"github.com/evilc0des/prop-bots/pkg/errors"
)

// resultStore keeps completed backtest results in memory, keyed by
// result id. Results are immutable once stored.
type resultStore struct {
	mu      sync.RWMutex
	results map[string]types.BacktestResult
	order   []string
}

func newResultStore() *resultStore {
	return &resultStore{
		results: make(map[string]types.BacktestResult),
	}
}

func (s *resultStore) Put(result types.BacktestResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.results[result.ID]; !exists {
		s.order = append(s.order, result.ID)
	}
	s.results[result.ID] = result
}

func (s *resultStore) Get(id string) (types.BacktestResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result, exists := s.results[id]
	if !exists {
		return types.BacktestResult{}, errors.Newf(errors.ErrCodeBacktestNotFound, "no backtest result with id %s", id)
	}
	return result, nil
}

// IDs returns the stored result ids in insertion order.
func (s *resultStore) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, len(s.order))
	copy(ids, s.order)
	return ids
}
