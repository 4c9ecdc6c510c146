package interfaces

import (
	"context"

	"github.com/YelzhanWeb/foodtruck/internal/domain"
)

// Интерфейсы Сервисов (Business Logic)
type OrderService interface {
	CreateOrder(ctx context.Context, cmd CreateOrderCommand) (*domain.Order, error)
	UpdateStatus(ctx context.Context, orderID string, status domain.Status, changedBy string) (*domain.Order, error)
	AdvanceNext(ctx context.Context, orderID string, changedBy string) (*domain.Order, error)
}

type KitchenService interface {
	ActiveOrders() []*domain.Order
	ActiveAlert() *domain.Order
	AcknowledgeAlert(ctx context.Context) error
	Advance(ctx context.Context, orderID string) (*domain.Order, error)
	LoadClassification() domain.Load
}

type AdminService interface {
	ListOrders(ctx context.Context, status *domain.Status) ([]*domain.Order, error)
	UpdateStatus(ctx context.Context, orderID string, status domain.Status) (*domain.Order, error)
	Overview() Overview
	Volume() domain.Volume
}

type TrackingService interface {
	GetOrderStatus(ctx context.Context, orderID string) (*TrackingOrderResponse, error)
}

// Ответы Admin Service
type Overview struct {
	ActiveOrders int             `json:"active_orders_count"`
	PendingItems int             `json:"pending_items_count"`
	Load         domain.Load     `json:"load"`
	WaitTime     domain.WaitBand `json:"wait_time"`
	Volume       domain.Volume   `json:"volume"`
}

// Ответы Tracking Service
type TrackingOrderResponse struct {
	Order    *domain.Order   `json:"order"`
	Steps    []StatusStep    `json:"steps"`
	WaitTime domain.WaitBand `json:"wait_time"`
}

type StatusStep struct {
	Status      domain.Status `json:"status"`
	Label       string        `json:"label"`
	Description string        `json:"description"`
	IsCompleted bool          `json:"is_completed"`
	IsActive    bool          `json:"is_active"`
	IsPending   bool          `json:"is_pending"`
}
