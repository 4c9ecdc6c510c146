package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/YelzhanWeb/foodtruck/internal/adapter/logger"
	"github.com/YelzhanWeb/foodtruck/internal/domain"
)

// changePayload is the NOTIFY body. It stays small; listeners load the order.
type changePayload struct {
	OrderID   string        `json:"order_id"`
	Status    domain.Status `json:"status"`
	UpdatedAt time.Time     `json:"updated_at"`
}

func encodePayload(order *domain.Order) (string, error) {
	b, err := json.Marshal(changePayload{
		OrderID:   order.ID,
		Status:    order.Status,
		UpdatedAt: order.UpdatedAt,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode notify payload: %w", err)
	}
	return string(b), nil
}

func decodePayload(payload string) (domain.ChangeEvent, error) {
	var p changePayload
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		return domain.ChangeEvent{}, fmt.Errorf("failed to decode notify payload: %w", err)
	}
	if p.OrderID == "" {
		return domain.ChangeEvent{}, fmt.Errorf("notify payload without order_id: %s", payload)
	}
	return domain.ChangeEvent{OrderID: p.OrderID, Status: p.Status, UpdatedAt: p.UpdatedAt}, nil
}

// ChangeListener is a ChangeSubscriber on Postgres LISTEN/NOTIFY.
type ChangeListener struct {
	db      DB
	channel string
	logger  logger.Logger
}

func NewChangeListener(db DB, channel string, logger logger.Logger) *ChangeListener {
	return &ChangeListener{db: db, channel: channel, logger: logger}
}

func (l *ChangeListener) Subscribe(ctx context.Context, ready func(), handle func(domain.ChangeEvent)) error {
	listener, err := l.db.Listen(ctx, l.channel)
	if err != nil {
		return err
	}
	defer listener.Close()

	if ready != nil {
		ready()
	}

	for {
		n, err := listener.WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("failed waiting for notification: %w", err)
		}

		ev, err := decodePayload(n.Payload)
		if err != nil {
			l.logger.Error("notify_decode_failed", "Skipping malformed notification", "", map[string]interface{}{
				"channel": n.Channel,
			}, err)
			continue
		}
		handle(ev)
	}
}
