package memory

import (
	"context"
	"sort"
	"sync"

	"spendlog/internal/core"
	"spendlog/internal/sheets"
)

var _ sheets.Mirror = (*Store)(nil)

// Store is an in-process mirror used by tests and when no spreadsheet is configured.
type Store struct {
	mu   sync.Mutex
	rows map[int64][]string
}

func New() *Store {
	return &Store{rows: make(map[int64][]string)}
}

func (s *Store) Upsert(_ context.Context, e core.ExpenseWithCategory) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[e.ID] = sheets.Row(e)
	return nil
}

func (s *Store) Remove(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rows, id)
	return nil
}

// Row returns the mirrored row for id.
func (s *Store) Row(id int64) ([]string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[id]
	return append([]string(nil), r...), ok
}

// IDs returns mirrored ids in ascending order.
func (s *Store) IDs() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]int64, 0, len(s.rows))
	for id := range s.rows {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
