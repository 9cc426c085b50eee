package transport

import (
	"fmt"
	"net/http"

	"storefront/internal/middleware"
	"storefront/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ReorderResponse reports how many past lines went back into the cart
type ReorderResponse struct {
	LinesAdded int    `json:"lines_added"`
	Message    string `json:"message"`
}

// OrderHandler serves a user's order history
type OrderHandler struct {
	orders service.OrderService
	logger *zap.Logger
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(orders service.OrderService, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{orders: orders, logger: logger}
}

// RegisterRoutes registers the order history routes under /api/orders
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/orders", func(r chi.Router) {
		r.Get("/", h.List)
		r.Get("/{id}", h.Get)
		r.Post("/{id}/reorder", h.Reorder)
	})
}

// List returns the user's orders, newest first
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	page, err := h.orders.ListOrders(r.Context(), userID, pageParam(r))
	if err != nil {
		respondServiceError(w, h.logger, err, "list orders")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, page)
}

// Get returns one of the user's orders
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	orderID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	order, err := h.orders.GetOrder(r.Context(), userID, orderID)
	if err != nil {
		respondServiceError(w, h.logger, err, "get order")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, order)
}

// Reorder answers 422 when none of the lines could be added
func (h *OrderHandler) Reorder(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	orderID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	added, err := h.orders.Reorder(r.Context(), userID, orderID)
	if err != nil {
		respondServiceError(w, h.logger, err, "reorder")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, ReorderResponse{
		LinesAdded: added,
		Message:    fmt.Sprintf("Added %d items from your previous order to cart.", added),
	})
}
