package domain

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

// CompletedRetention is how long a COMPLETED order stays in active views.
const CompletedRetention = 30 * time.Second

// TimestampPrecision matches the order store (Postgres timestamptz), so a
// published timestamp equals the one a later poll reads back.
const TimestampPrecision = time.Microsecond

// Order represents a customer order. Items, customer fields and TotalAmount
// are fixed at creation; only Status and UpdatedAt change afterwards.
type Order struct {
	ID            string      `json:"id"`
	Status        Status      `json:"status"`
	CustomerName  string      `json:"customer_name"`
	CustomerEmail *string     `json:"customer_email,omitempty"`
	CustomerPhone *string     `json:"customer_phone,omitempty"`
	Items         []OrderItem `json:"items"`
	TotalAmount   float64     `json:"total_amount"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// OrderItem is a snapshot of a menu item at checkout time.
type OrderItem struct {
	Name      string         `json:"name"`
	UnitPrice float64        `json:"unit_price"`
	Quantity  int            `json:"quantity"`
	Modifiers []ItemModifier `json:"modifiers,omitempty"`
}

// ItemModifier is a snapshot of a chosen modifier option.
type ItemModifier struct {
	Group      string  `json:"group"`
	Option     string  `json:"option"`
	PriceDelta float64 `json:"price_delta"`
}

// NewOrder creates a NEW order with a fresh id and computes its total once.
func NewOrder(customerName string, email, phone *string, items []OrderItem, now time.Time) (*Order, error) {
	now = now.Truncate(TimestampPrecision)
	order := &Order{
		ID:            uuid.NewString(),
		Status:        StatusNew,
		CustomerName:  strings.TrimSpace(customerName),
		CustomerEmail: email,
		CustomerPhone: phone,
		Items:         items,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := order.Validate(); err != nil {
		return nil, err
	}

	order.TotalAmount = calculateTotal(items)
	return order, nil
}

// Validate applies business validation rules
func (o *Order) Validate() error {
	if len(o.CustomerName) > 255 {
		return fmt.Errorf("%w: customer name must not exceed 255 characters", ErrValidation)
	}

	if len(o.Items) < 1 {
		return fmt.Errorf("%w: order must contain at least 1 item", ErrValidation)
	}

	for i, item := range o.Items {
		if strings.TrimSpace(item.Name) == "" {
			return fmt.Errorf("%w: items[%d].name is required", ErrValidation, i)
		}
		if item.Quantity < 1 {
			return fmt.Errorf("%w: items[%d].quantity must be at least 1", ErrValidation, i)
		}
		if item.UnitPrice < 0 {
			return fmt.Errorf("%w: items[%d].unit_price must not be negative", ErrValidation, i)
		}
	}

	return nil
}

func calculateTotal(items []OrderItem) float64 {
	total := 0.0
	for _, item := range items {
		unit := item.UnitPrice
		for _, m := range item.Modifiers {
			unit += m.PriceDelta
		}
		total += unit * float64(item.Quantity)
	}
	return math.Round(total*100) / 100
}

// ItemQuantity is the total number of units across all items.
func (o *Order) ItemQuantity() int {
	n := 0
	for _, item := range o.Items {
		n += item.Quantity
	}
	return n
}

// IsActive reports whether the order belongs in an active view at now:
// every non-terminal order, plus COMPLETED orders inside the retention window.
func (o *Order) IsActive(now time.Time) bool {
	switch o.Status {
	case StatusNew, StatusPrep, StatusReady:
		return true
	case StatusCompleted:
		return now.Sub(o.UpdatedAt) < CompletedRetention
	}
	return false
}

// Clone returns a copy safe to hand to another consumer.
func (o *Order) Clone() *Order {
	c := *o
	c.Items = make([]OrderItem, len(o.Items))
	for i, item := range o.Items {
		c.Items[i] = item
		c.Items[i].Modifiers = append([]ItemModifier(nil), item.Modifiers...)
	}
	return &c
}
