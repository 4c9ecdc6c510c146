package interfaces

import (
	"context"
	"time"

	"github.com/YelzhanWeb/foodtruck/internal/domain"
)

// OrderFilter narrows ListOrders. Empty Statuses means all statuses.
// CompletedSince, when set, also includes COMPLETED orders updated after it.
type OrderFilter struct {
	Statuses       []domain.Status
	CompletedSince *time.Time
	OrderID        string
}

// OrderStore is the durable order store (Adapter/Postgres).
type OrderStore interface {
	Create(ctx context.Context, order *domain.Order) error
	FindByID(ctx context.Context, id string) (*domain.Order, error)
	ListOrders(ctx context.Context, filter OrderFilter) ([]*domain.Order, error)
	UpdateStatus(ctx context.Context, id string, status domain.Status, updatedAt time.Time) (*domain.Order, error)
}

// AckStore persists the acknowledged order ids of one kitchen-display session.
type AckStore interface {
	Load(ctx context.Context, sessionID string) ([]string, error)
	Add(ctx context.Context, sessionID, orderID string) error
}
