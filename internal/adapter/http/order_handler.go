package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/YelzhanWeb/foodtruck/internal/adapter/logger"
	"github.com/YelzhanWeb/foodtruck/internal/interfaces"
)

type OrderHandler struct {
	service interfaces.OrderService
	logger  logger.Logger
}

func NewOrderHandler(service interfaces.OrderService, logger logger.Logger) *OrderHandler {
	return &OrderHandler{
		service: service,
		logger:  logger,
	}
}

type CreateOrderRequest struct {
	CustomerName  string             `json:"customer_name"`
	CustomerEmail *string            `json:"customer_email,omitempty"`
	CustomerPhone *string            `json:"customer_phone,omitempty"`
	Items         []OrderItemRequest `json:"items"`
}

type OrderItemRequest struct {
	Name      string            `json:"name"`
	UnitPrice float64           `json:"unit_price"`
	Quantity  int               `json:"quantity"`
	Modifiers []ModifierRequest `json:"modifiers,omitempty"`
}

type ModifierRequest struct {
	Group      string  `json:"group"`
	Option     string  `json:"option"`
	PriceDelta float64 `json:"price_delta"`
}

type CreateOrderResponse struct {
	ID          string  `json:"id"`
	Status      string  `json:"status"`
	TotalAmount float64 `json:"total_amount"`
}

func (h *OrderHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}

	// Валидация входных данных
	if validationErrors := validateCreateOrderRequest(req); len(validationErrors) > 0 {
		h.logger.Debug("validation_failed", "Order validation failed", RequestID(r.Context()), map[string]interface{}{
			"errors": validationErrors,
		})
		respondError(w, "Validation failed", http.StatusBadRequest, validationErrors)
		return
	}

	cmd := interfaces.CreateOrderCommand{
		CustomerName:  strings.TrimSpace(req.CustomerName),
		CustomerEmail: trimmedOrNil(req.CustomerEmail),
		CustomerPhone: trimmedOrNil(req.CustomerPhone),
		Items:         convertItemsToCommand(req.Items),
	}

	result, err := h.service.CreateOrder(r.Context(), cmd)
	if err != nil {
		respondServiceError(w, r, h.logger, "order_creation_failed", err)
		return
	}

	respondJSON(w, http.StatusCreated, CreateOrderResponse{
		ID:          result.ID,
		Status:      string(result.Status),
		TotalAmount: result.TotalAmount,
	})
}

func validateCreateOrderRequest(req CreateOrderRequest) []ValidationError {
	var errors []ValidationError

	customerName := strings.TrimSpace(req.CustomerName)
	if customerName == "" {
		errors = append(errors, ValidationError{
			Field:   "customer_name",
			Message: "customer name is required",
		})
	} else if len(customerName) > 255 {
		errors = append(errors, ValidationError{
			Field:   "customer_name",
			Message: "customer name must not exceed 255 characters",
		})
	}

	if req.CustomerEmail != nil && !strings.Contains(*req.CustomerEmail, "@") {
		errors = append(errors, ValidationError{
			Field:   "customer_email",
			Message: "customer email must be a valid address",
		})
	}

	if len(req.Items) < 1 {
		errors = append(errors, ValidationError{
			Field:   "items",
			Message: "order must contain at least 1 item",
		})
	} else if len(req.Items) > 50 {
		errors = append(errors, ValidationError{
			Field:   "items",
			Message: "order must not contain more than 50 items",
		})
	}

	for i, item := range req.Items {
		itemPrefix := fmt.Sprintf("items[%d]", i)

		if strings.TrimSpace(item.Name) == "" {
			errors = append(errors, ValidationError{
				Field:   itemPrefix + ".name",
				Message: "item name is required",
			})
		}

		if item.Quantity < 1 || item.Quantity > 99 {
			errors = append(errors, ValidationError{
				Field:   itemPrefix + ".quantity",
				Message: "item quantity must be between 1 and 99",
			})
		}

		if item.UnitPrice < 0 || item.UnitPrice > 9999.99 {
			errors = append(errors, ValidationError{
				Field:   itemPrefix + ".unit_price",
				Message: "item price must be between 0 and 9999.99",
			})
		}

		for j, m := range item.Modifiers {
			if strings.TrimSpace(m.Option) == "" {
				errors = append(errors, ValidationError{
					Field:   fmt.Sprintf("%s.modifiers[%d].option", itemPrefix, j),
					Message: "modifier option is required",
				})
			}
		}
	}

	return errors
}

func convertItemsToCommand(items []OrderItemRequest) []interfaces.CreateOrderItemCommand {
	result := make([]interfaces.CreateOrderItemCommand, len(items))
	for i, item := range items {
		mods := make([]interfaces.CreateModifierCommand, len(item.Modifiers))
		for j, m := range item.Modifiers {
			mods[j] = interfaces.CreateModifierCommand{
				Group:      strings.TrimSpace(m.Group),
				Option:     strings.TrimSpace(m.Option),
				PriceDelta: m.PriceDelta,
			}
		}
		result[i] = interfaces.CreateOrderItemCommand{
			Name:      strings.TrimSpace(item.Name),
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
			Modifiers: mods,
		}
	}
	return result
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
