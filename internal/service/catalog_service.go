package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"storefront/internal/cache"
	"storefront/internal/domain"
	"storefront/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	categoriesCacheKey = "catalog:categories"
	categoriesCacheTTL = 5 * time.Minute
	relatedProducts    = 4
)

// Catalog sort keys accepted by ListProducts
const (
	SortName      = "name"
	SortPriceAsc  = "price_asc"
	SortPriceDesc = "price_desc"
	SortNewest    = "newest"
)

// ProductQuery is a shopper's catalog listing request
type ProductQuery struct {
	Category string
	Search   string
	Sort     string
	Page     int
}

// CatalogService defines the shopper-facing catalog reads
type CatalogService interface {
	ListProducts(ctx context.Context, query ProductQuery) (*domain.Page[*domain.Product], error)
	SearchProducts(ctx context.Context, term string, page int) (*domain.Page[*domain.Product], error)
	ProductsByCategory(ctx context.Context, categoryID uuid.UUID, page int) (*domain.Category, *domain.Page[*domain.Product], error)
	GetProduct(ctx context.Context, id uuid.UUID) (*ProductDetail, error)
	ListCategories(ctx context.Context) ([]*domain.Category, error)
}

// ProductDetail is a product page: the product with its images, active
// variants and a few related products from the same category.
type ProductDetail struct {
	Product *domain.Product   `json:"product"`
	Related []*domain.Product `json:"related_products"`
}

type catalogService struct {
	repos    *repository.Repositories
	cache    *cache.Cache
	pageSize int
	logger   *zap.Logger
}

// NewCatalogService creates a new instance of CatalogService
func NewCatalogService(repos *repository.Repositories, c *cache.Cache, pageSize int, logger *zap.Logger) CatalogService {
	if pageSize <= 0 {
		pageSize = 12
	}
	return &catalogService{repos: repos, cache: c, pageSize: pageSize, logger: logger}
}

func (s *catalogService) ListProducts(ctx context.Context, query ProductQuery) (*domain.Page[*domain.Product], error) {
	filter := repository.ProductFilter{
		ActiveOnly:   true,
		CategoryName: query.Category,
		Search:       query.Search,
		SearchScope:  repository.SearchNameDescription,
		Page:         domain.NormalizePage(query.Page),
		PageSize:     s.pageSize,
	}
	filter.SortBy, filter.SortOrder = catalogSort(query.Sort)

	return s.list(ctx, filter)
}

func (s *catalogService) SearchProducts(ctx context.Context, term string, page int) (*domain.Page[*domain.Product], error) {
	if strings.TrimSpace(term) == "" {
		return s.ListProducts(ctx, ProductQuery{Page: page})
	}

	return s.list(ctx, repository.ProductFilter{
		ActiveOnly:  true,
		Search:      term,
		SearchScope: repository.SearchNameDescriptionCategory,
		SortBy:      "name",
		SortOrder:   repository.SortOrderAsc,
		Page:        domain.NormalizePage(page),
		PageSize:    s.pageSize,
	})
}

func (s *catalogService) ProductsByCategory(ctx context.Context, categoryID uuid.UUID, page int) (*domain.Category, *domain.Page[*domain.Product], error) {
	category, err := s.repos.Categories.FindByID(ctx, categoryID)
	if err != nil {
		if errors.Is(err, repository.ErrCategoryNotFound) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, fmt.Errorf("failed to get category: %w", err)
	}
	if !category.IsActive {
		return nil, nil, ErrNotFound
	}

	products, err := s.list(ctx, repository.ProductFilter{
		ActiveOnly: true,
		CategoryID: &category.ID,
		SortBy:     "name",
		SortOrder:  repository.SortOrderAsc,
		Page:       domain.NormalizePage(page),
		PageSize:   s.pageSize,
	})
	if err != nil {
		return nil, nil, err
	}

	return category, products, nil
}

func (s *catalogService) GetProduct(ctx context.Context, id uuid.UUID) (*ProductDetail, error) {
	product, err := s.repos.Products.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	if !product.IsActive {
		return nil, ErrNotFound
	}

	if product.Category, err = s.repos.Categories.FindByID(ctx, product.CategoryID); err != nil {
		return nil, fmt.Errorf("failed to get product category: %w", err)
	}
	if product.Images, err = s.repos.Products.ListImages(ctx, product.ID); err != nil {
		return nil, err
	}
	if product.Variants, err = s.repos.Products.ListVariants(ctx, product.ID, true); err != nil {
		return nil, err
	}

	related, err := s.repos.Products.Related(ctx, product.CategoryID, product.ID, relatedProducts)
	if err != nil {
		return nil, err
	}

	return &ProductDetail{Product: product, Related: related}, nil
}

// ListCategories returns active categories, served from the cache when possible
func (s *catalogService) ListCategories(ctx context.Context) ([]*domain.Category, error) {
	var categories []*domain.Category
	found, err := s.cache.GetJSON(ctx, categoriesCacheKey, &categories)
	if err != nil {
		s.logger.Warn("Failed to read category cache", zap.Error(err))
	}
	if found {
		return categories, nil
	}

	categories, err = s.repos.Categories.List(ctx, true)
	if err != nil {
		return nil, err
	}

	if err := s.cache.SetJSON(ctx, categoriesCacheKey, categories, categoriesCacheTTL); err != nil {
		s.logger.Warn("Failed to write category cache", zap.Error(err))
	}

	return categories, nil
}

func (s *catalogService) list(ctx context.Context, filter repository.ProductFilter) (*domain.Page[*domain.Product], error) {
	products, total, err := s.repos.Products.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return domain.NewPage(products, filter.Page, filter.PageSize, total), nil
}

func catalogSort(sort string) (string, repository.SortOrder) {
	switch sort {
	case SortPriceAsc:
		return "price", repository.SortOrderAsc
	case SortPriceDesc:
		return "price", repository.SortOrderDesc
	case SortNewest:
		return "created_at", repository.SortOrderDesc
	default:
		return "name", repository.SortOrderAsc
	}
}

// invalidateCategories drops the cached category list after catalog edits
func invalidateCategories(ctx context.Context, c *cache.Cache, logger *zap.Logger) {
	if err := c.Del(ctx, categoriesCacheKey); err != nil {
		logger.Warn("Failed to invalidate category cache", zap.Error(err))
	}
}
