package transport

import (
	"net/http"

	"storefront/internal/domain"
	"storefront/internal/middleware"
	"storefront/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// CategoryProductsResponse is a category with one page of its products
type CategoryProductsResponse struct {
	Category *domain.Category              `json:"category"`
	Products *domain.Page[*domain.Product] `json:"products"`
}

// CatalogHandler serves the public catalog
type CatalogHandler struct {
	catalog service.CatalogService
	logger  *zap.Logger
}

// NewCatalogHandler creates a new CatalogHandler
func NewCatalogHandler(catalog service.CatalogService, logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, logger: logger}
}

// RegisterRoutes registers the catalog routes. They need no authentication.
func (h *CatalogHandler) RegisterRoutes(r chi.Router) {
	r.Get("/api/categories", h.ListCategories)
	r.Get("/api/categories/{id}/products", h.CategoryProducts)
	r.Route("/api/products", func(r chi.Router) {
		r.Get("/", h.ListProducts)
		r.Get("/search", h.Search)
		r.Get("/{id}", h.GetProduct)
	})
}

// ListCategories returns the active categories
func (h *CatalogHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.catalog.ListCategories(r.Context())
	if err != nil {
		respondServiceError(w, h.logger, err, "list categories")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, categories)
}

// ListProducts handles ?category=&search=&sort=&page=
func (h *CatalogHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := h.catalog.ListProducts(r.Context(), service.ProductQuery{
		Category: q.Get("category"),
		Search:   q.Get("search"),
		Sort:     q.Get("sort"),
		Page:     pageParam(r),
	})
	if err != nil {
		respondServiceError(w, h.logger, err, "list products")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, page)
}

// Search handles ?q=&page=
func (h *CatalogHandler) Search(w http.ResponseWriter, r *http.Request) {
	page, err := h.catalog.SearchProducts(r.Context(), r.URL.Query().Get("q"), pageParam(r))
	if err != nil {
		respondServiceError(w, h.logger, err, "search products")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, page)
}

// GetProduct returns a product page with related products
func (h *CatalogHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	detail, err := h.catalog.GetProduct(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "get product")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, detail)
}

// CategoryProducts returns a category and one page of its products
func (h *CatalogHandler) CategoryProducts(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	category, products, err := h.catalog.ProductsByCategory(r.Context(), id, pageParam(r))
	if err != nil {
		respondServiceError(w, h.logger, err, "list category products")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, CategoryProductsResponse{Category: category, Products: products})
}
