package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/YelzhanWeb/foodtruck/internal/domain"
	"github.com/YelzhanWeb/foodtruck/internal/interfaces"
)

// Store is an in-process OrderStore with last-write-wins updates.
type Store struct {
	mu sync.RWMutex
	m  map[string]*domain.Order
}

func NewStore() *Store {
	return &Store{m: make(map[string]*domain.Order)}
}

func (s *Store) Create(ctx context.Context, order *domain.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.m[order.ID]; ok {
		return fmt.Errorf("order %s already exists", order.ID)
	}
	s.m[order.ID] = order.Clone()
	return nil
}

func (s *Store) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.m[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrOrderNotFound, id)
	}
	return o.Clone(), nil
}

func (s *Store) ListOrders(ctx context.Context, filter interfaces.OrderFilter) ([]*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.Order
	for _, o := range s.m {
		if Matches(o, filter) {
			out = append(out, o.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) UpdateStatus(ctx context.Context, id string, status domain.Status, updatedAt time.Time) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.m[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrOrderNotFound, id)
	}
	o.Status = status
	o.UpdatedAt = updatedAt
	return o.Clone(), nil
}

// Matches applies an OrderFilter the way the SQL repository does.
func Matches(o *domain.Order, filter interfaces.OrderFilter) bool {
	if filter.OrderID != "" && o.ID != filter.OrderID {
		return false
	}
	if len(filter.Statuses) == 0 && filter.CompletedSince == nil {
		return true
	}
	for _, st := range filter.Statuses {
		if o.Status == st {
			return true
		}
	}
	if filter.CompletedSince != nil && o.Status == domain.StatusCompleted && o.UpdatedAt.After(*filter.CompletedSince) {
		return true
	}
	return false
}
