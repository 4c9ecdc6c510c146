package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOrder(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	items := []OrderItem{
		{Name: "Taco", UnitPrice: 3.50, Quantity: 2, Modifiers: []ItemModifier{{Group: "Salsa", Option: "Verde", PriceDelta: 0.25}}},
		{Name: "Horchata", UnitPrice: 2.00, Quantity: 1},
	}

	order, err := NewOrder("  Ana  ", nil, nil, items, now)
	require.NoError(t, err)
	assert.NotEmpty(t, order.ID)
	assert.Equal(t, StatusNew, order.Status)
	assert.Equal(t, "Ana", order.CustomerName)
	assert.Equal(t, 9.50, order.TotalAmount)
	assert.Equal(t, now, order.CreatedAt)
	assert.Equal(t, now, order.UpdatedAt)
	assert.Equal(t, 3, order.ItemQuantity())
}

func TestNewOrderValidation(t *testing.T) {
	tests := []struct {
		name  string
		items []OrderItem
	}{
		{"no items", nil},
		{"blank name", []OrderItem{{Name: " ", Quantity: 1}}},
		{"zero quantity", []OrderItem{{Name: "Taco", Quantity: 0}}},
		{"negative price", []OrderItem{{Name: "Taco", Quantity: 1, UnitPrice: -1}}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewOrder("Ana", nil, nil, tt.items, time.Now())
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestOrderIsActive(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name      string
		status    Status
		updatedAt time.Time
		want      bool
	}{
		{"new", StatusNew, now.Add(-time.Hour), true},
		{"prep", StatusPrep, now, true},
		{"ready", StatusReady, now, true},
		{"completed just now", StatusCompleted, now.Add(-29 * time.Second), true},
		{"completed at retention edge", StatusCompleted, now.Add(-30 * time.Second), false},
		{"cancelled", StatusCancelled, now, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := &Order{Status: tt.status, UpdatedAt: tt.updatedAt}
			assert.Equal(t, tt.want, o.IsActive(now))
		})
	}
}
