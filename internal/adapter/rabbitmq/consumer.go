package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/YelzhanWeb/foodtruck/internal/adapter/logger"
	"github.com/YelzhanWeb/foodtruck/internal/domain"
	"github.com/YelzhanWeb/foodtruck/internal/interfaces"
)

const defaultReconnectDelay = 5 * time.Second

// Consumer reads the notifications fanout. Each call gets its own exclusive
// queue, so every consumer sees every message published while it is bound.
type Consumer struct {
	conn           Connection
	prefetch       int
	reconnectDelay time.Duration
	logger         logger.Logger
}

func NewConsumer(conn Connection, prefetch int, logger logger.Logger) *Consumer {
	return &Consumer{
		conn:           conn,
		prefetch:       prefetch,
		reconnectDelay: defaultReconnectDelay,
		logger:         logger,
	}
}

// ConsumeNotifications runs handler on every message until ctx is cancelled,
// reconnecting after failures.
func (c *Consumer) ConsumeNotifications(ctx context.Context, handler interfaces.NotificationHandler) error {
	for {
		err := c.consume(ctx, nil, func(body []byte) {
			// Игнорируем ошибки обработки уведомлений
			_ = handler(ctx, body)
		})

		// Если контекст отменен или соединение закрыто намеренно - выходим
		if ctx.Err() != nil {
			return ctx.Err()
		}

		c.logger.Error("consumer_disconnected", fmt.Sprintf("Notifications consumer disconnected, reconnecting in %s", c.reconnectDelay), "", nil, err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.reconnectDelay):
		}
	}
}

// Subscribe implements interfaces.ChangeSubscriber. It makes one attempt and
// returns when the channel drops; the caller owns reconnecting.
func (c *Consumer) Subscribe(ctx context.Context, ready func(), handle func(domain.ChangeEvent)) error {
	return c.consume(ctx, ready, func(body []byte) {
		ev, err := DecodeChange(body)
		if err != nil {
			c.logger.Error("message_decode_failed", "Skipping malformed order change", "", nil, err)
			return
		}
		handle(ev)
	})
}

// DecodeChange turns an OrderChangedMessage body into a change event.
func DecodeChange(body []byte) (domain.ChangeEvent, error) {
	var msg interfaces.OrderChangedMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return domain.ChangeEvent{}, fmt.Errorf("failed to unmarshal order change: %w", err)
	}
	if msg.OrderID == "" {
		return domain.ChangeEvent{}, errors.New("order change without order_id")
	}
	return domain.ChangeEvent{
		OrderID:   msg.OrderID,
		Status:    msg.NewStatus,
		UpdatedAt: msg.UpdatedAt,
		Order:     msg.Order,
	}, nil
}

func (c *Consumer) consume(ctx context.Context, ready func(), onBody func([]byte)) error {
	ch, err := c.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	// Отслеживаем закрытие канала
	closeChan := ch.NotifyClose()

	if c.prefetch > 0 {
		if err := ch.Qos(c.prefetch, 0, false); err != nil {
			return fmt.Errorf("failed to set QoS: %w", err)
		}
	}

	if err := ch.ExchangeDeclare(NotificationsExchange, "fanout", true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	// Declare temporary exclusive queue
	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	if err := ch.QueueBind(q.Name, "", NotificationsExchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue: %w", err)
	}

	msgs, err := ch.Consume(q.Name, "", true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	if ready != nil {
		ready()
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err := <-closeChan:
			if err != nil {
				return fmt.Errorf("channel closed: %w", err)
			}
			return fmt.Errorf("channel closed gracefully")

		case msg, ok := <-msgs:
			if !ok {
				return fmt.Errorf("messages channel closed")
			}
			onBody(msg.Body)
		}
	}
}
