package kitchen

import (
	"context"
	"fmt"
	"sync"

	"github.com/YelzhanWeb/foodtruck/internal/adapter/logger"
	"github.com/YelzhanWeb/foodtruck/internal/adapter/metrics"
	"github.com/YelzhanWeb/foodtruck/internal/domain"
	"github.com/YelzhanWeb/foodtruck/internal/feed"
	"github.com/YelzhanWeb/foodtruck/internal/interfaces"
)

// AlertState is a point-in-time copy of the coordinator state.
type AlertState struct {
	SessionID       string        `json:"session_id"`
	ActiveAlert     *domain.Order `json:"active_alert"`
	AcknowledgedIDs []string      `json:"acknowledged_order_ids"`
}

// AlertCoordinator surfaces at most one unacknowledged NEW order at a time
// for a single kitchen-display session. An alert only leaves through
// Acknowledge, or when its order is no longer NEW.
type AlertCoordinator struct {
	session string
	acks    interfaces.AckStore
	onAlert func(*domain.Order)
	logger  logger.Logger

	mu     sync.Mutex
	acked  map[string]struct{}
	active *domain.Order
	last   []*domain.Order
}

// NewAlertCoordinator creates a coordinator for one session. onAlert may be nil.
func NewAlertCoordinator(session string, acks interfaces.AckStore, onAlert func(*domain.Order), logger logger.Logger) *AlertCoordinator {
	return &AlertCoordinator{
		session: session,
		acks:    acks,
		onAlert: onAlert,
		logger:  logger,
		acked:   make(map[string]struct{}),
	}
}

// Restore loads acknowledgements persisted by an earlier run of this session.
func (c *AlertCoordinator) Restore(ctx context.Context) error {
	ids, err := c.acks.Load(ctx, c.session)
	if err != nil {
		return fmt.Errorf("failed to load acknowledgements: %w", err)
	}

	c.mu.Lock()
	for _, id := range ids {
		c.acked[id] = struct{}{}
	}
	c.mu.Unlock()

	c.logger.Info("alerts_restored", fmt.Sprintf("Restored %d acknowledgements", len(ids)), "", map[string]interface{}{
		"session_id": c.session,
	})
	return nil
}

// Evaluate applies one active-order batch and returns the active alert, if any.
func (c *AlertCoordinator) Evaluate(orders []*domain.Order) *domain.Order {
	c.mu.Lock()
	c.last = orders
	raised := c.evaluateLocked()
	active := c.activeLocked()
	c.mu.Unlock()

	c.announce(raised)
	return active
}

// announce runs outside the lock so onAlert may call back into c.
func (c *AlertCoordinator) announce(raised *domain.Order) {
	if raised == nil {
		return
	}
	metrics.AlertsRaised.Inc()
	c.logger.Info("alert_raised", fmt.Sprintf("New order %s needs attention", raised.ID), "", map[string]interface{}{
		"session_id": c.session,
		"order_id":   raised.ID,
	})
	if c.onAlert != nil {
		c.onAlert(raised)
	}
}

// evaluateLocked returns the order that was just promoted to the active
// alert, or nil when nothing changed.
func (c *AlertCoordinator) evaluateLocked() *domain.Order {
	if c.active != nil {
		current := find(c.last, c.active.ID)
		if current != nil && current.Status == domain.StatusNew {
			c.active = current.Clone()
			return nil
		}
		// Handled elsewhere (another display, the admin console) or gone.
		c.acked[c.active.ID] = struct{}{}
		c.logger.Debug("alert_retired", "Alerted order is no longer NEW", "", map[string]interface{}{
			"session_id": c.session,
			"order_id":   c.active.ID,
		})
		c.active = nil
	}

	var candidates []*domain.Order
	for _, o := range c.last {
		if o.Status != domain.StatusNew {
			continue
		}
		if _, ok := c.acked[o.ID]; ok {
			continue
		}
		candidates = append(candidates, o)
	}
	if len(candidates) == 0 {
		return nil
	}

	feed.SortOldestFirst(candidates)
	c.active = candidates[0].Clone()
	return c.active.Clone()
}

// Acknowledge dismisses the active alert and promotes the next oldest
// unacknowledged NEW order from the last batch, if any.
func (c *AlertCoordinator) Acknowledge(ctx context.Context) error {
	c.mu.Lock()
	if c.active == nil {
		c.mu.Unlock()
		c.logger.Debug("ack_without_alert", "Acknowledge called with no active alert", "", map[string]interface{}{
			"session_id": c.session,
		})
		return domain.ErrAcknowledgeWithoutAlert
	}
	id := c.active.ID
	c.acked[id] = struct{}{}
	c.active = nil
	// Promote from the latest batch before unlocking; a batch applied while
	// the ack is being persisted must not be overwritten by an older one.
	raised := c.evaluateLocked()
	c.mu.Unlock()

	metrics.AlertsAcknowledged.Inc()
	c.logger.Info("alert_acknowledged", fmt.Sprintf("Order %s acknowledged", id), "", map[string]interface{}{
		"session_id": c.session,
		"order_id":   id,
	})

	if err := c.acks.Add(ctx, c.session, id); err != nil {
		// The acknowledgement still holds for this process.
		c.logger.Error("ack_persist_failed", "Failed to persist acknowledgement", "", map[string]interface{}{
			"session_id": c.session,
			"order_id":   id,
		}, err)
	}

	c.announce(raised)
	return nil
}

// ActiveAlert returns a copy of the order currently alerted, or nil.
func (c *AlertCoordinator) ActiveAlert() *domain.Order {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activeLocked()
}

// IsAcknowledged reports whether this session already dismissed orderID.
func (c *AlertCoordinator) IsAcknowledged(orderID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.acked[orderID]
	return ok
}

func (c *AlertCoordinator) State() AlertState {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]string, 0, len(c.acked))
	for id := range c.acked {
		ids = append(ids, id)
	}
	return AlertState{
		SessionID:       c.session,
		ActiveAlert:     c.activeLocked(),
		AcknowledgedIDs: ids,
	}
}

func (c *AlertCoordinator) activeLocked() *domain.Order {
	if c.active == nil {
		return nil
	}
	return c.active.Clone()
}

func find(orders []*domain.Order, id string) *domain.Order {
	for _, o := range orders {
		if o.ID == id {
			return o
		}
	}
	return nil
}
