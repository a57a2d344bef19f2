package repository

import (
	"context"
	"sync"
	"time"

	"github.com/cinereview/core/internal/domain/entities"
	"github.com/cinereview/core/internal/ports"
)

// MemoryStore is an in-memory implementation.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string][]entities.Review
	locks *KeyedLocker
	now   func() time.Time
}

// NewMemoryStore creates an empty store. A nil clock means time.Now.
func NewMemoryStore(clock func() time.Time) *MemoryStore {
	if clock == nil {
		clock = time.Now
	}
	return &MemoryStore{
		items: make(map[string][]entities.Review),
		locks: NewKeyedLocker(),
		now:   clock,
	}
}

var _ ports.ReviewStore = (*MemoryStore)(nil)

func (s *MemoryStore) List(ctx context.Context, id entities.MovieID) ([]entities.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]entities.Review, len(s.items[id.String()]))
	copy(result, s.items[id.String()])
	return result, nil
}

func (s *MemoryStore) Append(ctx context.Context, id entities.MovieID, review entities.Review) (entities.Review, error) {
	unlock, err := s.locks.Lock(ctx, id.String())
	if err != nil {
		return entities.Review{}, err
	}
	defer unlock()

	s.mu.RLock()
	existing := s.items[id.String()]
	s.mu.RUnlock()

	review.Timestamp = nextTimestamp(s.now(), existing)

	s.mu.Lock()
	s.items[id.String()] = append(s.items[id.String()], review)
	s.mu.Unlock()

	return review, nil
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}
