package admin

import (
	"context"
	"fmt"
	"sort"

	"github.com/YelzhanWeb/foodtruck/internal/adapter/logger"
	"github.com/YelzhanWeb/foodtruck/internal/domain"
	"github.com/YelzhanWeb/foodtruck/internal/feed"
	"github.com/YelzhanWeb/foodtruck/internal/interfaces"
)

const changedBy = "admin"

type Service struct {
	feed   *feed.Feed
	orders interfaces.OrderService
	store  interfaces.OrderStore
	logger logger.Logger
}

func NewService(f *feed.Feed, orders interfaces.OrderService, store interfaces.OrderStore, logger logger.Logger) *Service {
	return &Service{
		feed:   f,
		orders: orders,
		store:  store,
		logger: logger,
	}
}

func (s *Service) Run(ctx context.Context) error {
	return s.feed.Run(ctx)
}

// ListOrders returns orders newest first. Without a status, or with an
// active one, the live view answers; terminal statuses are history and go to
// the store.
func (s *Service) ListOrders(ctx context.Context, status *domain.Status) ([]*domain.Order, error) {
	var out []*domain.Order
	switch {
	case status == nil:
		out = s.feed.Snapshot()
	case !status.IsTerminal():
		for _, o := range s.feed.Snapshot() {
			if o.Status == *status {
				out = append(out, o)
			}
		}
	default:
		orders, err := s.store.ListOrders(ctx, interfaces.OrderFilter{Statuses: []domain.Status{*status}})
		if err != nil {
			s.logger.Error("db_query_failed", "Failed to list order history", "", map[string]interface{}{
				"status": *status,
			}, err)
			return nil, fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
		}
		out = orders
	}

	sortNewestFirst(out)
	if out == nil {
		out = []*domain.Order{}
	}
	return out, nil
}

func (s *Service) UpdateStatus(ctx context.Context, orderID string, status domain.Status) (*domain.Order, error) {
	return s.orders.UpdateStatus(ctx, orderID, status, changedBy)
}

func (s *Service) Overview() interfaces.Overview {
	active, pending := domain.LoadInputs(s.feed.Snapshot())
	return interfaces.Overview{
		ActiveOrders: active,
		PendingItems: pending,
		Load:         domain.Classify(active, pending),
		WaitTime:     domain.AdminWaitTime(active),
		Volume:       domain.VolumeLoad(active, pending),
	}
}

func (s *Service) Volume() domain.Volume {
	return domain.VolumeLoad(domain.LoadInputs(s.feed.Snapshot()))
}

func sortNewestFirst(orders []*domain.Order) {
	sort.Slice(orders, func(i, j int) bool {
		if !orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].CreatedAt.After(orders[j].CreatedAt)
		}
		return orders[i].ID > orders[j].ID
	})
}
