package domain

import "time"

// ChangeEvent is a single change notification for one order. Order carries
// the full snapshot when the source has it; it may be nil.
type ChangeEvent struct {
	OrderID   string    `json:"order_id"`
	Status    Status    `json:"status,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
	Order     *Order    `json:"order,omitempty"`
}
