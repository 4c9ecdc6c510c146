package amqp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/YelzhanWeb/foodtruck/internal/adapter/logger"
	"github.com/YelzhanWeb/foodtruck/internal/interfaces"
)

type NotificationHandler struct {
	logger logger.Logger
	out    io.Writer
}

func NewNotificationHandler(logger logger.Logger) *NotificationHandler {
	return &NotificationHandler{
		logger: logger,
		out:    os.Stdout,
	}
}

func (h *NotificationHandler) HandleNotification(ctx context.Context, body []byte) error {
	var msg interfaces.OrderChangedMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		h.logger.Error("message_parse_failed", "Failed to parse notification", "", nil, err)
		return err
	}

	h.logger.Debug("notification_received", fmt.Sprintf("Received status update for order %s", msg.OrderID),
		msg.OrderID, map[string]interface{}{
			"order_id":   msg.OrderID,
			"old_status": msg.OldStatus,
			"new_status": msg.NewStatus,
		})

	if msg.OldStatus == "" {
		fmt.Fprintf(h.out, "Order %s placed (%s)\n", msg.OrderID, msg.NewStatus)
		return nil
	}

	fmt.Fprintf(h.out, "Order %s: %s -> %s by %s. %s\n",
		msg.OrderID, msg.OldStatus, msg.NewStatus, msg.ChangedBy, msg.NewStatus.TapMessage())
	return nil
}
