package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/YelzhanWeb/foodtruck/internal/adapter/logger"
	"github.com/YelzhanWeb/foodtruck/internal/domain"
	"github.com/YelzhanWeb/foodtruck/internal/interfaces"
)

type KitchenHandler struct {
	service interfaces.KitchenService
	logger  logger.Logger
}

func NewKitchenHandler(service interfaces.KitchenService, logger logger.Logger) *KitchenHandler {
	return &KitchenHandler{
		service: service,
		logger:  logger,
	}
}

type AlertResponse struct {
	Alert *domain.Order `json:"alert"`
}

type AdvanceResponse struct {
	Order   *domain.Order `json:"order"`
	Message string        `json:"message"`
}

func (h *KitchenHandler) Routes(r chi.Router) {
	r.Route("/kitchen", func(r chi.Router) {
		r.Get("/orders", h.ActiveOrders)
		r.Post("/orders/{id}/advance", h.Advance)
		r.Get("/alert", h.ActiveAlert)
		r.Post("/alert/ack", h.Acknowledge)
		r.Get("/load", h.Load)
	})
}

func (h *KitchenHandler) ActiveOrders(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.service.ActiveOrders())
}

func (h *KitchenHandler) ActiveAlert(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, AlertResponse{Alert: h.service.ActiveAlert()})
}

func (h *KitchenHandler) Acknowledge(w http.ResponseWriter, r *http.Request) {
	if err := h.service.AcknowledgeAlert(r.Context()); err != nil {
		respondServiceError(w, r, h.logger, "ack_failed", err)
		return
	}
	respondJSON(w, http.StatusOK, AlertResponse{Alert: h.service.ActiveAlert()})
}

func (h *KitchenHandler) Advance(w http.ResponseWriter, r *http.Request) {
	order, err := h.service.Advance(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, r, h.logger, "advance_failed", err)
		return
	}
	respondJSON(w, http.StatusOK, AdvanceResponse{
		Order:   order,
		Message: order.Status.TapMessage(),
	})
}

func (h *KitchenHandler) Load(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.service.LoadClassification())
}
