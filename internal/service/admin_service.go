package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/internal/cache"
	"storefront/internal/domain"
	"storefront/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	dashboardRecentOrders = 5
	dashboardLowStock     = 5
)

// Dashboard is the back-office overview
type Dashboard struct {
	TotalProducts    int               `json:"total_products"`
	ActiveProducts   int               `json:"active_products"`
	TotalOrders      int               `json:"total_orders"`
	PendingOrders    int               `json:"pending_orders"`
	ProcessingOrders int               `json:"processing_orders"`
	TotalRevenue     domain.Money      `json:"total_revenue"`
	RecentOrders     []*domain.Order   `json:"recent_orders"`
	LowStockProducts []*domain.Product `json:"low_stock_products"`
}

// AdminProductQuery filters the back-office product list
type AdminProductQuery struct {
	Search     string
	CategoryID *uuid.UUID
	Page       int
}

// AdminProductList is a product page plus the categories offered as filters
type AdminProductList struct {
	Products   *domain.Page[*domain.Product] `json:"products"`
	Categories []*domain.Category            `json:"categories"`
}

// NewCategoryInput describes a category to create
type NewCategoryInput struct {
	Name        string
	Description string
	ImageURL    string
	SortOrder   int
	IsActive    bool
}

// NewVariantInput describes a variant created with its product
type NewVariantInput struct {
	Size            string
	Color           string
	SKU             string
	PriceAdjustment *domain.Money
	StockQuantity   int
}

// NewImageInput describes an image created with its product
type NewImageInput struct {
	ImageURL  string
	AltText   string
	SortOrder int
	IsPrimary bool
}

// NewProductInput describes a product to create with its variants and images
type NewProductInput struct {
	Name             string
	ShortDescription string
	Description      string
	Price            domain.Money
	CompareAtPrice   *domain.Money
	SKU              string
	StockQuantity    int
	IsActive         bool
	IsFeatured       bool
	CategoryID       uuid.UUID
	Variants         []NewVariantInput
	Images           []NewImageInput
}

// AdminService defines back-office reads and mutations
type AdminService interface {
	Dashboard(ctx context.Context) (*Dashboard, error)
	ListProducts(ctx context.Context, query AdminProductQuery) (*AdminProductList, error)
	ListOrders(ctx context.Context, status domain.OrderStatus, page int) (*domain.Page[*domain.Order], error)
	UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, status domain.OrderStatus, trackingNumber *string) error
	ToggleProductActive(ctx context.Context, productID uuid.UUID) (bool, error)
	UpdateProductStock(ctx context.Context, productID uuid.UUID, quantity int) error
	CreateCategory(ctx context.Context, input NewCategoryInput) (*domain.Category, error)
	CreateProduct(ctx context.Context, input NewProductInput) (*domain.Product, error)
}

type adminService struct {
	repos             *repository.Repositories
	tx                repository.Transactor
	cache             *cache.Cache
	pageSize          int
	lowStockThreshold int
	logger            *zap.Logger
}

// NewAdminService creates a new instance of AdminService
func NewAdminService(
	repos *repository.Repositories,
	tx repository.Transactor,
	c *cache.Cache,
	pageSize int,
	lowStockThreshold int,
	logger *zap.Logger,
) AdminService {
	if pageSize <= 0 {
		pageSize = 20
	}
	if lowStockThreshold <= 0 {
		lowStockThreshold = 10
	}
	return &adminService{
		repos:             repos,
		tx:                tx,
		cache:             c,
		pageSize:          pageSize,
		lowStockThreshold: lowStockThreshold,
		logger:            logger,
	}
}

func (s *adminService) Dashboard(ctx context.Context) (*Dashboard, error) {
	total, active, err := s.repos.Products.Counts(ctx)
	if err != nil {
		return nil, err
	}

	stats, err := s.repos.Orders.Stats(ctx)
	if err != nil {
		return nil, err
	}

	recent, _, err := s.repos.Orders.List(ctx, repository.OrderFilter{Page: 1, PageSize: dashboardRecentOrders})
	if err != nil {
		return nil, err
	}

	lowStock, err := s.repos.Products.LowStock(ctx, s.lowStockThreshold, dashboardLowStock)
	if err != nil {
		return nil, err
	}

	return &Dashboard{
		TotalProducts:    total,
		ActiveProducts:   active,
		TotalOrders:      stats.Total,
		PendingOrders:    stats.Pending,
		ProcessingOrders: stats.Processing,
		TotalRevenue:     stats.Revenue,
		RecentOrders:     recent,
		LowStockProducts: lowStock,
	}, nil
}

// ListProducts includes inactive products and matches search against name or SKU
func (s *adminService) ListProducts(ctx context.Context, query AdminProductQuery) (*AdminProductList, error) {
	page := domain.NormalizePage(query.Page)

	products, total, err := s.repos.Products.List(ctx, repository.ProductFilter{
		CategoryID:  query.CategoryID,
		Search:      query.Search,
		SearchScope: repository.SearchNameSKU,
		SortBy:      "name",
		SortOrder:   repository.SortOrderAsc,
		Page:        page,
		PageSize:    s.pageSize,
	})
	if err != nil {
		return nil, err
	}

	categories, err := s.repos.Categories.List(ctx, false)
	if err != nil {
		return nil, err
	}

	return &AdminProductList{
		Products:   domain.NewPage(products, page, s.pageSize, total),
		Categories: categories,
	}, nil
}

func (s *adminService) ListOrders(ctx context.Context, status domain.OrderStatus, page int) (*domain.Page[*domain.Order], error) {
	if status != "" && !status.Valid() {
		return nil, ErrInvalidStatus
	}
	page = domain.NormalizePage(page)

	orders, total, err := s.repos.Orders.List(ctx, repository.OrderFilter{
		Status:   status,
		Page:     page,
		PageSize: s.pageSize,
	})
	if err != nil {
		return nil, err
	}

	return domain.NewPage(orders, page, s.pageSize, total), nil
}

// UpdateOrderStatus accepts any transition between known statuses
func (s *adminService) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, status domain.OrderStatus, trackingNumber *string) error {
	if !status.Valid() {
		return ErrInvalidStatus
	}

	if err := s.repos.Orders.UpdateStatus(ctx, orderID, status, trackingNumber); err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return ErrNotFound
		}
		return err
	}

	s.logger.Info("Order status updated",
		zap.String("order_id", orderID.String()),
		zap.String("status", string(status)),
	)
	return nil
}

func (s *adminService) ToggleProductActive(ctx context.Context, productID uuid.UUID) (bool, error) {
	active, err := s.repos.Products.ToggleActive(ctx, productID)
	if err != nil {
		return false, productError(err)
	}

	s.logger.Info("Product visibility toggled",
		zap.String("product_id", productID.String()),
		zap.Bool("active", active),
	)
	return active, nil
}

// UpdateProductStock sets an absolute stock level
func (s *adminService) UpdateProductStock(ctx context.Context, productID uuid.UUID, quantity int) error {
	if quantity < 0 {
		return ErrInvalidQuantity
	}
	if err := s.repos.Products.SetStock(ctx, productID, quantity); err != nil {
		return productError(err)
	}

	s.logger.Info("Product stock updated",
		zap.String("product_id", productID.String()),
		zap.Int("stock_quantity", quantity),
	)
	return nil
}

func (s *adminService) CreateCategory(ctx context.Context, input NewCategoryInput) (*domain.Category, error) {
	category := &domain.Category{
		ID:          uuid.New(),
		Name:        input.Name,
		Description: input.Description,
		ImageURL:    input.ImageURL,
		SortOrder:   input.SortOrder,
		IsActive:    input.IsActive,
		CreatedAt:   time.Now(),
	}

	if err := s.repos.Categories.Create(ctx, category); err != nil {
		return nil, err
	}
	invalidateCategories(ctx, s.cache, s.logger)

	return category, nil
}

// CreateProduct inserts a product together with its variants and images
func (s *adminService) CreateProduct(ctx context.Context, input NewProductInput) (*domain.Product, error) {
	now := time.Now()
	product := &domain.Product{
		ID:               uuid.New(),
		Name:             input.Name,
		ShortDescription: input.ShortDescription,
		Description:      input.Description,
		Price:            input.Price,
		CompareAtPrice:   input.CompareAtPrice,
		SKU:              input.SKU,
		StockQuantity:    input.StockQuantity,
		IsActive:         input.IsActive,
		IsFeatured:       input.IsFeatured,
		CategoryID:       input.CategoryID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	err := s.tx.WithinTx(ctx, func(tx *repository.Repositories) error {
		if _, err := tx.Categories.FindByID(ctx, input.CategoryID); err != nil {
			if errors.Is(err, repository.ErrCategoryNotFound) {
				return ErrNotFound
			}
			return err
		}

		if err := tx.Products.Create(ctx, product); err != nil {
			return err
		}

		for _, v := range input.Variants {
			variant := domain.ProductVariant{
				ID:              uuid.New(),
				ProductID:       product.ID,
				Size:            v.Size,
				Color:           v.Color,
				SKU:             v.SKU,
				PriceAdjustment: v.PriceAdjustment,
				StockQuantity:   v.StockQuantity,
				IsActive:        true,
			}
			if err := tx.Products.CreateVariant(ctx, &variant); err != nil {
				return fmt.Errorf("variant %s: %w", v.SKU, err)
			}
			product.Variants = append(product.Variants, variant)
		}

		for _, img := range input.Images {
			image := domain.ProductImage{
				ID:        uuid.New(),
				ProductID: product.ID,
				ImageURL:  img.ImageURL,
				AltText:   img.AltText,
				SortOrder: img.SortOrder,
				IsPrimary: img.IsPrimary,
			}
			if err := tx.Products.CreateImage(ctx, &image); err != nil {
				return err
			}
			product.Images = append(product.Images, image)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Product created",
		zap.String("product_id", product.ID.String()),
		zap.String("sku", product.SKU),
	)
	return product, nil
}

func productError(err error) error {
	if errors.Is(err, repository.ErrProductNotFound) {
		return ErrNotFound
	}
	return err
}
