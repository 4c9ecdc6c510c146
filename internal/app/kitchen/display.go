package kitchen

import (
	"fmt"
	"strings"

	"github.com/YelzhanWeb/foodtruck/internal/adapter/logger"
	"github.com/YelzhanWeb/foodtruck/internal/domain"
)

// AlertAnnouncer returns an onAlert callback that writes the ticket the
// display shows when a new order comes in.
func AlertAnnouncer(lgr logger.Logger, sessionID string) func(*domain.Order) {
	return func(o *domain.Order) {
		lgr.Info("kitchen_alert", fmt.Sprintf("NEW ORDER for %s: %s", o.CustomerName, TicketSummary(o)), "", map[string]interface{}{
			"session_id":    sessionID,
			"order_id":      o.ID,
			"customer_name": o.CustomerName,
			"item_count":    o.ItemQuantity(),
			"created_at":    o.CreatedAt,
		})
	}
}

// TicketSummary renders items as "2x Taco (Verde), 1x Horchata".
func TicketSummary(o *domain.Order) string {
	parts := make([]string, 0, len(o.Items))
	for _, item := range o.Items {
		line := fmt.Sprintf("%dx %s", item.Quantity, item.Name)
		if len(item.Modifiers) > 0 {
			opts := make([]string, len(item.Modifiers))
			for i, m := range item.Modifiers {
				opts[i] = m.Option
			}
			line += " (" + strings.Join(opts, ", ") + ")"
		}
		parts = append(parts, line)
	}
	return strings.Join(parts, ", ")
}
