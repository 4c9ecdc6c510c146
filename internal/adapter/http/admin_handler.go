package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/YelzhanWeb/foodtruck/internal/adapter/logger"
	"github.com/YelzhanWeb/foodtruck/internal/domain"
	"github.com/YelzhanWeb/foodtruck/internal/interfaces"
)

type AdminHandler struct {
	service interfaces.AdminService
	logger  logger.Logger
}

func NewAdminHandler(service interfaces.AdminService, logger logger.Logger) *AdminHandler {
	return &AdminHandler{
		service: service,
		logger:  logger,
	}
}

type UpdateStatusRequest struct {
	Status string `json:"status"`
}

func (h *AdminHandler) Routes(r chi.Router) {
	r.Route("/admin", func(r chi.Router) {
		r.Get("/orders", h.ListOrders)
		r.Post("/orders/{id}/status", h.UpdateStatus)
		r.Get("/overview", h.Overview)
	})
	r.Get("/metrics/volume", h.Volume)
}

func (h *AdminHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	var status *domain.Status
	if raw := r.URL.Query().Get("status"); raw != "" {
		st, err := domain.ParseStatus(raw)
		if err != nil {
			respondServiceError(w, r, h.logger, "list_orders_failed", err)
			return
		}
		status = &st
	}

	orders, err := h.service.ListOrders(r.Context(), status)
	if err != nil {
		respondServiceError(w, r, h.logger, "list_orders_failed", err)
		return
	}
	respondJSON(w, http.StatusOK, orders)
}

func (h *AdminHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}

	status, err := domain.ParseStatus(req.Status)
	if err != nil {
		respondServiceError(w, r, h.logger, "update_status_failed", err)
		return
	}

	order, err := h.service.UpdateStatus(r.Context(), chi.URLParam(r, "id"), status)
	if err != nil {
		respondServiceError(w, r, h.logger, "update_status_failed", err)
		return
	}
	respondJSON(w, http.StatusOK, order)
}

func (h *AdminHandler) Overview(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.service.Overview())
}

func (h *AdminHandler) Volume(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.service.Volume())
}
