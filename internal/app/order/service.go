package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/YelzhanWeb/foodtruck/internal/adapter/logger"
	"github.com/YelzhanWeb/foodtruck/internal/adapter/metrics"
	"github.com/YelzhanWeb/foodtruck/internal/domain"
	"github.com/YelzhanWeb/foodtruck/internal/interfaces"
)

type Service struct {
	store     interfaces.OrderStore
	publisher interfaces.MessagePublisher
	logger    logger.Logger
	now       func() time.Time
}

// NewService wires the order store and the change publisher. publisher may be
// nil when nothing listens for pushes.
func NewService(store interfaces.OrderStore, publisher interfaces.MessagePublisher, logger logger.Logger) *Service {
	return &Service{
		store:     store,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *Service) CreateOrder(ctx context.Context, cmd interfaces.CreateOrderCommand) (*domain.Order, error) {
	items := make([]domain.OrderItem, len(cmd.Items))
	for i, item := range cmd.Items {
		mods := make([]domain.ItemModifier, len(item.Modifiers))
		for j, m := range item.Modifiers {
			mods[j] = domain.ItemModifier{Group: m.Group, Option: m.Option, PriceDelta: m.PriceDelta}
		}
		items[i] = domain.OrderItem{
			Name:      item.Name,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
			Modifiers: mods,
		}
	}

	order, err := domain.NewOrder(cmd.CustomerName, cmd.CustomerEmail, cmd.CustomerPhone, items, s.now().UTC())
	if err != nil {
		s.logger.Error("validation_failed", "Order validation failed", "", nil, err)
		return nil, err
	}

	if err := s.store.Create(ctx, order); err != nil {
		s.logger.Error("db_transaction_failed", "Failed to create order", "", nil, err)
		return nil, fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}
	s.logger.Debug("order_received", "Order created", "", map[string]interface{}{
		"order_id": order.ID,
		"total":    order.TotalAmount,
	})

	s.publish(ctx, interfaces.OrderChangedMessage{
		OrderID:   order.ID,
		NewStatus: order.Status,
		ChangedBy: "checkout",
		UpdatedAt: order.UpdatedAt,
		Order:     order,
	})

	return order, nil
}

// UpdateStatus validates and persists one transition. A rejected transition
// leaves the stored order untouched.
func (s *Service) UpdateStatus(ctx context.Context, orderID string, status domain.Status, changedBy string) (*domain.Order, error) {
	order, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}

	tr, err := domain.Advance(order, status, s.now().UTC())
	if err != nil {
		return nil, s.rejected(orderID, changedBy, err)
	}
	return s.persist(ctx, tr, changedBy)
}

// AdvanceNext moves the order one step forward along NEW, PREP, READY, COMPLETED.
func (s *Service) AdvanceNext(ctx context.Context, orderID string, changedBy string) (*domain.Order, error) {
	order, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}

	tr, err := domain.AdvanceNext(order, s.now().UTC())
	if err != nil {
		return nil, s.rejected(orderID, changedBy, err)
	}
	return s.persist(ctx, tr, changedBy)
}

func (s *Service) load(ctx context.Context, orderID string) (*domain.Order, error) {
	order, err := s.store.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			return nil, err
		}
		s.logger.Error("db_query_failed", "Failed to load order", "", map[string]interface{}{"order_id": orderID}, err)
		return nil, fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}
	return order, nil
}

func (s *Service) rejected(orderID, changedBy string, err error) error {
	metrics.TransitionsRejected.Inc()
	s.logger.Debug("transition_rejected", err.Error(), "", map[string]interface{}{
		"order_id":   orderID,
		"changed_by": changedBy,
	})
	return err
}

func (s *Service) persist(ctx context.Context, tr domain.Transition, changedBy string) (*domain.Order, error) {
	updated, err := s.store.UpdateStatus(ctx, tr.OrderID, tr.To, tr.UpdatedAt)
	if err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			return nil, err
		}
		s.logger.Error("db_transaction_failed", "Failed to update order status", "", map[string]interface{}{
			"order_id": tr.OrderID,
			"status":   tr.To,
		}, err)
		return nil, fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}

	metrics.StatusTransitions.WithLabelValues(string(tr.From), string(tr.To)).Inc()
	s.logger.Info("status_changed", fmt.Sprintf("Order %s: %s -> %s", tr.OrderID, tr.From, tr.To), "", map[string]interface{}{
		"order_id":   tr.OrderID,
		"changed_by": changedBy,
	})

	s.publish(ctx, interfaces.OrderChangedMessage{
		OrderID:   tr.OrderID,
		OldStatus: tr.From,
		NewStatus: tr.To,
		ChangedBy: changedBy,
		UpdatedAt: updated.UpdatedAt,
		Order:     updated,
	})
	return updated, nil
}

func (s *Service) publish(ctx context.Context, msg interfaces.OrderChangedMessage) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishOrderChanged(ctx, msg); err != nil {
		// Не блокируем: подписчики догонят через polling.
		s.logger.Error("rabbitmq_publish_failed", "Failed to publish order change", "", map[string]interface{}{
			"order_id": msg.OrderID,
		}, err)
	}
}
