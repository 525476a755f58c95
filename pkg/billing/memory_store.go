package billing

import (
	"context"
	"slices"
	"sync"
	"time"
)

// MemoryStore is an in-process Store. It is safe for concurrent use and
// honours the same version semantics as the MongoDB store.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*Record
	order   []string
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*Record)}
}

func (s *MemoryStore) Find(ctx context.Context, userID string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[userID]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return rec.clone(), nil
}

func (s *MemoryStore) Create(ctx context.Context, record *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[record.UserID]; ok {
		return ErrRecordExists
	}

	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now
	record.Version = 1

	s.records[record.UserID] = record.clone()
	s.order = append(s.order, record.UserID)
	return nil
}

func (s *MemoryStore) Save(ctx context.Context, record *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.records[record.UserID]
	if !ok {
		return ErrRecordNotFound
	}
	if stored.Version != record.Version {
		return ErrVersionConflict
	}

	record.Version++
	record.UpdatedAt = time.Now().UTC()
	s.records[record.UserID] = record.clone()
	return nil
}

func (s *MemoryStore) DistinctUsers(ctx context.Context, filter PeriodFilter) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]string, 0)
	for _, userID := range s.order {
		rec := s.records[userID]
		if slices.ContainsFunc(rec.Periods, func(p Period) bool { return filter.Match(userID, p) }) {
			users = append(users, userID)
		}
	}
	return users, nil
}

func (s *MemoryStore) Periods(ctx context.Context, filter PeriodFilter) ([]Period, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	periods := make([]Period, 0)
	for _, userID := range s.order {
		for _, p := range s.records[userID].Periods {
			if filter.Match(userID, p) {
				periods = append(periods, p)
			}
		}
	}
	return periods, nil
}
