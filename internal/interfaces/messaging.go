package interfaces

import (
	"context"
	"time"

	"github.com/YelzhanWeb/foodtruck/internal/domain"
)

// Сообщения RabbitMQ
type OrderChangedMessage struct {
	OrderID   string        `json:"order_id"`
	OldStatus domain.Status `json:"old_status,omitempty"`
	NewStatus domain.Status `json:"new_status"`
	ChangedBy string        `json:"changed_by"`
	UpdatedAt time.Time     `json:"updated_at"`
	Order     *domain.Order `json:"order,omitempty"`
}

// Команды для сервисов
type CreateOrderCommand struct {
	CustomerName  string
	CustomerEmail *string
	CustomerPhone *string
	Items         []CreateOrderItemCommand
}

type CreateOrderItemCommand struct {
	Name      string
	UnitPrice float64
	Quantity  int
	Modifiers []CreateModifierCommand
}

type CreateModifierCommand struct {
	Group      string
	Option     string
	PriceDelta float64
}

// Интерфейсы Messaging (Adapter/RabbitMQ)
type MessagePublisher interface {
	PublishOrderChanged(ctx context.Context, msg OrderChangedMessage) error
}

// ChangeSubscriber is a push channel of order changes. Subscribe blocks,
// calls ready once the channel is live, and hands every event to handle
// until ctx is cancelled or the channel drops.
type ChangeSubscriber interface {
	Subscribe(ctx context.Context, ready func(), handle func(domain.ChangeEvent)) error
}

type MessageConsumer interface {
	ConsumeNotifications(ctx context.Context, handler NotificationHandler) error
}

type NotificationHandler func(ctx context.Context, body []byte) error
