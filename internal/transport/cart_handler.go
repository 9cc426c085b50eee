package transport

import (
	"errors"
	"net/http"

	"storefront/internal/domain"
	"storefront/internal/middleware"
	"storefront/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AddToCartRequest represents the add-to-cart payload
type AddToCartRequest struct {
	ProductID uuid.UUID  `json:"product_id" validate:"required"`
	VariantID *uuid.UUID `json:"variant_id"`
	Quantity  int        `json:"quantity" validate:"gte=1,lte=99"`
}

// UpdateCartItemRequest represents a quantity change. Zero or less removes the line.
type UpdateCartItemRequest struct {
	Quantity int `json:"quantity" validate:"lte=99"`
}

// CartResponse is the reply to every cart mutation
type CartResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message,omitempty"`
	CartCount int    `json:"cart_count"`
}

// CartCountResponse is the reply to a count query
type CartCountResponse struct {
	Count int `json:"count"`
}

// CartHandler serves the cart of the resolved owner. Routes must run behind
// the session middleware so anonymous shoppers have an owner.
type CartHandler struct {
	cart   service.CartService
	logger *zap.Logger
}

// NewCartHandler creates a new CartHandler
func NewCartHandler(cart service.CartService, logger *zap.Logger) *CartHandler {
	return &CartHandler{cart: cart, logger: logger}
}

// RegisterRoutes registers the cart routes under /api/cart
func (h *CartHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/cart", func(r chi.Router) {
		r.Get("/", h.GetCart)
		r.Get("/count", h.Count)
		r.Delete("/", h.Clear)
		r.Post("/items", h.AddItem)
		r.Put("/items/{id}", h.UpdateItem)
		r.Delete("/items/{id}", h.RemoveItem)
	})
}

// owner resolves the cart owner or replies 400
func (h *CartHandler) owner(w http.ResponseWriter, r *http.Request) (domain.Owner, bool) {
	owner, ok := middleware.ResolveOwner(r.Context())
	if !ok {
		h.logger.Error("No cart owner on request", zap.String("path", r.URL.Path))
		middleware.RespondWithError(w, http.StatusBadRequest, "no cart session")
		return domain.Owner{}, false
	}
	return owner, true
}

// GetCart returns the priced cart lines and totals
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.owner(w, r)
	if !ok {
		return
	}

	cart, err := h.cart.List(r.Context(), owner)
	if err != nil {
		respondServiceError(w, h.logger, err, "load cart")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, cart)
}

// Count returns the number of units in the cart
func (h *CartHandler) Count(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.owner(w, r)
	if !ok {
		return
	}

	count, err := h.cart.Count(r.Context(), owner)
	if err != nil {
		respondServiceError(w, h.logger, err, "count cart items")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, CartCountResponse{Count: count})
}

// AddItem handles add-to-cart
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.owner(w, r)
	if !ok {
		return
	}

	var req AddToCartRequest
	if !decodeRequest(w, r, &req, h.logger) {
		return
	}

	variantID := uuid.NullUUID{}
	if req.VariantID != nil {
		variantID = uuid.NullUUID{UUID: *req.VariantID, Valid: true}
	}

	count, err := h.cart.AddItem(r.Context(), owner, req.ProductID, variantID, req.Quantity)
	if err != nil {
		h.respondCartError(w, err, "Product not found")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, CartResponse{Success: true, CartCount: count})
}

// UpdateItem changes a line quantity
func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.owner(w, r)
	if !ok {
		return
	}
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	var req UpdateCartItemRequest
	if !decodeRequest(w, r, &req, h.logger) {
		return
	}

	count, err := h.cart.UpdateItem(r.Context(), owner, id, req.Quantity)
	if err != nil {
		h.respondCartError(w, err, "Cart item not found")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, CartResponse{Success: true, CartCount: count})
}

// RemoveItem deletes a cart line
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.owner(w, r)
	if !ok {
		return
	}
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	count, err := h.cart.RemoveItem(r.Context(), owner, id)
	if err != nil {
		h.respondCartError(w, err, "Cart item not found")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, CartResponse{Success: true, CartCount: count})
}

// Clear empties the cart
func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.owner(w, r)
	if !ok {
		return
	}

	if err := h.cart.Clear(r.Context(), owner); err != nil {
		respondServiceError(w, h.logger, err, "clear cart")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, CartResponse{Success: true})
}

// respondCartError keeps business failures in the cart reply shape
func (h *CartHandler) respondCartError(w http.ResponseWriter, err error, notFound string) {
	switch {
	case errors.Is(err, service.ErrInsufficientStock):
		middleware.RespondWithJSON(w, http.StatusConflict, CartResponse{Message: "Insufficient stock"})
	case errors.Is(err, service.ErrNotFound):
		middleware.RespondWithJSON(w, http.StatusNotFound, CartResponse{Message: notFound})
	case errors.Is(err, service.ErrInvalidQuantity):
		middleware.RespondWithJSON(w, http.StatusBadRequest, CartResponse{Message: err.Error()})
	default:
		respondServiceError(w, h.logger, err, "update cart")
	}
}
