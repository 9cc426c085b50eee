package transport

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"storefront/internal/domain"
	"storefront/internal/middleware"
	"storefront/internal/repository"
	"storefront/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// UpdateOrderStatusRequest represents an admin status change
type UpdateOrderStatusRequest struct {
	Status         string  `json:"status" validate:"required,oneof=pending processing shipped delivered cancelled refunded"`
	TrackingNumber *string `json:"tracking_number" validate:"omitempty,max=100"`
}

// UpdateStockRequest sets an absolute stock level
type UpdateStockRequest struct {
	StockQuantity *int `json:"stock_quantity" validate:"required,gte=0"`
}

// ToggleActiveResponse reports a product's visibility after a toggle
type ToggleActiveResponse struct {
	ID       uuid.UUID `json:"id"`
	IsActive bool      `json:"is_active"`
}

// CreateCategoryRequest represents a new category
type CreateCategoryRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=500"`
	ImageURL    string `json:"image_url" validate:"omitempty,max=500"`
	SortOrder   int    `json:"sort_order"`
	IsActive    *bool  `json:"is_active"`
}

// CreateVariantRequest represents a variant created with its product
type CreateVariantRequest struct {
	Size            string        `json:"size" validate:"max=20"`
	Color           string        `json:"color" validate:"max=50"`
	SKU             string        `json:"sku" validate:"required,max=50"`
	PriceAdjustment *domain.Money `json:"price_adjustment"`
	StockQuantity   int           `json:"stock_quantity" validate:"gte=0"`
}

// CreateImageRequest represents an image created with its product
type CreateImageRequest struct {
	ImageURL  string `json:"image_url" validate:"required,max=500"`
	AltText   string `json:"alt_text" validate:"max=200"`
	SortOrder int    `json:"sort_order"`
	IsPrimary bool   `json:"is_primary"`
}

// CreateProductRequest represents a new product with optional variants and images
type CreateProductRequest struct {
	Name             string                 `json:"name" validate:"required,max=200"`
	ShortDescription string                 `json:"short_description" validate:"max=500"`
	Description      string                 `json:"description"`
	Price            domain.Money           `json:"price"`
	CompareAtPrice   *domain.Money          `json:"compare_at_price"`
	SKU              string                 `json:"sku" validate:"required,max=50"`
	StockQuantity    int                    `json:"stock_quantity" validate:"gte=0"`
	IsActive         *bool                  `json:"is_active"`
	IsFeatured       bool                   `json:"is_featured"`
	CategoryID       uuid.UUID              `json:"category_id" validate:"required"`
	Variants         []CreateVariantRequest `json:"variants" validate:"dive"`
	Images           []CreateImageRequest   `json:"images" validate:"dive"`
}

// AdminHandler serves the back-office. Routes must run behind RequireAdmin.
type AdminHandler struct {
	admin  service.AdminService
	logger *zap.Logger
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(admin service.AdminService, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{admin: admin, logger: logger}
}

// RegisterRoutes registers the back-office routes under /api/admin
func (h *AdminHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/admin", func(r chi.Router) {
		r.Get("/dashboard", h.Dashboard)
		r.Post("/categories", h.CreateCategory)
		r.Get("/products", h.ListProducts)
		r.Post("/products", h.CreateProduct)
		r.Put("/products/{id}/stock", h.UpdateStock)
		r.Post("/products/{id}/toggle-active", h.ToggleActive)
		r.Get("/orders", h.ListOrders)
		r.Put("/orders/{id}/status", h.UpdateOrderStatus)
	})
}

// Dashboard returns store-wide counts, revenue, recent orders and low stock
func (h *AdminHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	dashboard, err := h.admin.Dashboard(r.Context())
	if err != nil {
		respondServiceError(w, h.logger, err, "load dashboard")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, dashboard)
}

// ListProducts handles ?search=&category_id=&page=
func (h *AdminHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	query := service.AdminProductQuery{
		Search: r.URL.Query().Get("search"),
		Page:   pageParam(r),
	}
	if raw := r.URL.Query().Get("category_id"); raw != "" {
		categoryID, err := uuid.Parse(raw)
		if err != nil {
			middleware.RespondWithError(w, http.StatusBadRequest, "invalid category_id")
			return
		}
		query.CategoryID = &categoryID
	}

	list, err := h.admin.ListProducts(r.Context(), query)
	if err != nil {
		respondServiceError(w, h.logger, err, "list products")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, list)
}

// ListOrders handles ?status=&page=
func (h *AdminHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	status := domain.OrderStatus(strings.ToLower(r.URL.Query().Get("status")))

	page, err := h.admin.ListOrders(r.Context(), status, pageParam(r))
	if err != nil {
		respondServiceError(w, h.logger, err, "list orders")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, page)
}

// UpdateOrderStatus sets an order status and optional tracking number
func (h *AdminHandler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	orderID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	var req UpdateOrderStatusRequest
	if !decodeRequest(w, r, &req, h.logger) {
		return
	}

	status := domain.OrderStatus(req.Status)
	if err := h.admin.UpdateOrderStatus(r.Context(), orderID, status, req.TrackingNumber); err != nil {
		respondServiceError(w, h.logger, err, "update order status")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, MessageResponse{
		Message: fmt.Sprintf("Order status updated to %s.", status),
	})
}

// ToggleActive flips a product between visible and hidden
func (h *AdminHandler) ToggleActive(w http.ResponseWriter, r *http.Request) {
	productID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	active, err := h.admin.ToggleProductActive(r.Context(), productID)
	if err != nil {
		respondServiceError(w, h.logger, err, "toggle product")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, ToggleActiveResponse{ID: productID, IsActive: active})
}

// UpdateStock sets a product's stock to an absolute quantity
func (h *AdminHandler) UpdateStock(w http.ResponseWriter, r *http.Request) {
	productID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	var req UpdateStockRequest
	if !decodeRequest(w, r, &req, h.logger) {
		return
	}

	if err := h.admin.UpdateProductStock(r.Context(), productID, *req.StockQuantity); err != nil {
		respondServiceError(w, h.logger, err, "update stock")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, MessageResponse{
		Message: fmt.Sprintf("Stock updated to %d units.", *req.StockQuantity),
	})
}

// CreateCategory handles category creation
func (h *AdminHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req CreateCategoryRequest
	if !decodeRequest(w, r, &req, h.logger) {
		return
	}

	category, err := h.admin.CreateCategory(r.Context(), service.NewCategoryInput{
		Name:        req.Name,
		Description: req.Description,
		ImageURL:    req.ImageURL,
		SortOrder:   req.SortOrder,
		IsActive:    req.IsActive == nil || *req.IsActive,
	})
	if err != nil {
		if errors.Is(err, repository.ErrCategoryAlreadyExists) {
			middleware.RespondWithError(w, http.StatusConflict, "category already exists")
			return
		}
		respondServiceError(w, h.logger, err, "create category")
		return
	}
	middleware.RespondWithJSON(w, http.StatusCreated, category)
}

// CreateProduct handles product creation with its variants and images
func (h *AdminHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req CreateProductRequest
	if !decodeRequest(w, r, &req, h.logger) {
		return
	}
	if !req.Price.IsPositive() {
		middleware.RespondWithValidationErrors(w, []middleware.ValidationError{
			{Field: "price", Message: "Value must be greater than 0"},
		})
		return
	}

	input := service.NewProductInput{
		Name:             req.Name,
		ShortDescription: req.ShortDescription,
		Description:      req.Description,
		Price:            req.Price,
		CompareAtPrice:   req.CompareAtPrice,
		SKU:              req.SKU,
		StockQuantity:    req.StockQuantity,
		IsActive:         req.IsActive == nil || *req.IsActive,
		IsFeatured:       req.IsFeatured,
		CategoryID:       req.CategoryID,
	}
	for _, v := range req.Variants {
		input.Variants = append(input.Variants, service.NewVariantInput{
			Size:            v.Size,
			Color:           v.Color,
			SKU:             v.SKU,
			PriceAdjustment: v.PriceAdjustment,
			StockQuantity:   v.StockQuantity,
		})
	}
	for _, img := range req.Images {
		input.Images = append(input.Images, service.NewImageInput{
			ImageURL:  img.ImageURL,
			AltText:   img.AltText,
			SortOrder: img.SortOrder,
			IsPrimary: img.IsPrimary,
		})
	}

	product, err := h.admin.CreateProduct(r.Context(), input)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrProductSKUExists):
			middleware.RespondWithError(w, http.StatusConflict, "sku already exists")
		case errors.Is(err, service.ErrNotFound):
			middleware.RespondWithError(w, http.StatusBadRequest, "unknown category")
		default:
			respondServiceError(w, h.logger, err, "create product")
		}
		return
	}
	middleware.RespondWithJSON(w, http.StatusCreated, product)
}
