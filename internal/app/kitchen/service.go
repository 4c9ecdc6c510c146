package kitchen

import (
	"context"
	"fmt"

	"github.com/YelzhanWeb/foodtruck/internal/adapter/logger"
	"github.com/YelzhanWeb/foodtruck/internal/domain"
	"github.com/YelzhanWeb/foodtruck/internal/feed"
	"github.com/YelzhanWeb/foodtruck/internal/interfaces"
)

// Service is one kitchen-display session: a 5-second change feed, the alert
// coordinator fed by it, and the tap-to-advance action.
type Service struct {
	feed      *feed.Feed
	alerts    *AlertCoordinator
	orders    interfaces.OrderService
	logger    logger.Logger
	sessionID string
}

func NewService(
	f *feed.Feed,
	alerts *AlertCoordinator,
	orders interfaces.OrderService,
	logger logger.Logger,
	sessionID string,
) *Service {
	s := &Service{
		feed:      f,
		alerts:    alerts,
		orders:    orders,
		logger:    logger,
		sessionID: sessionID,
	}
	f.OnBatch(func(active []*domain.Order) {
		alerts.Evaluate(active)
	})
	return s
}

// Run restores acknowledgements and drives the feed until ctx is cancelled.
func (s *Service) Run(ctx context.Context) error {
	if err := s.alerts.Restore(ctx); err != nil {
		// A fresh session re-alerts on every NEW order, which is safe.
		s.logger.Error("alerts_restore_failed", "Starting with no acknowledgements", "", map[string]interface{}{
			"session_id": s.sessionID,
		}, err)
	}

	s.logger.Info("kitchen_session_started", fmt.Sprintf("Kitchen display session %s started", s.sessionID), "", nil)
	return s.feed.Run(ctx)
}

func (s *Service) ActiveOrders() []*domain.Order {
	return s.feed.Snapshot()
}

func (s *Service) ActiveAlert() *domain.Order {
	return s.alerts.ActiveAlert()
}

func (s *Service) AcknowledgeAlert(ctx context.Context) error {
	return s.alerts.Acknowledge(ctx)
}

// Advance moves the order one step forward. The display picks the change up
// from its own feed like any other consumer.
func (s *Service) Advance(ctx context.Context, orderID string) (*domain.Order, error) {
	order, err := s.orders.AdvanceNext(ctx, orderID, s.sessionID)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("order_advanced", order.Status.TapMessage(), "", map[string]interface{}{
		"order_id":   order.ID,
		"session_id": s.sessionID,
	})
	return order, nil
}

func (s *Service) LoadClassification() domain.Load {
	return domain.Classify(domain.LoadInputs(s.feed.Snapshot()))
}

func (s *Service) AlertState() AlertState {
	return s.alerts.State()
}
