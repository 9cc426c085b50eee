package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"storefront/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrProductNotFound   = errors.New("product not found")
	ErrVariantNotFound   = errors.New("product variant not found")
	ErrProductSKUExists  = errors.New("product with this SKU already exists")
	ErrInsufficientStock = errors.New("insufficient stock")
)

// SearchScope selects which columns a product search term is matched against
type SearchScope int

const (
	SearchNameDescription SearchScope = iota
	SearchNameDescriptionCategory
	SearchNameSKU
)

// ProductFilter narrows product listings
type ProductFilter struct {
	ActiveOnly   bool
	CategoryID   *uuid.UUID
	CategoryName string
	Search       string
	SearchScope  SearchScope
	SortBy       string
	SortOrder    SortOrder
	Page         int
	PageSize     int
}

// ProductRepository defines the interface for product data access
type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) error
	CreateVariant(ctx context.Context, variant *domain.ProductVariant) error
	CreateImage(ctx context.Context, image *domain.ProductImage) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	FindVariantByID(ctx context.Context, id uuid.UUID) (*domain.ProductVariant, error)
	ListVariants(ctx context.Context, productID uuid.UUID, activeOnly bool) ([]domain.ProductVariant, error)
	ListImages(ctx context.Context, productID uuid.UUID) ([]domain.ProductImage, error)
	List(ctx context.Context, filter ProductFilter) ([]*domain.Product, int, error)
	Related(ctx context.Context, categoryID, excludeID uuid.UUID, limit int) ([]*domain.Product, error)
	LowStock(ctx context.Context, threshold, limit int) ([]*domain.Product, error)
	Counts(ctx context.Context) (total int, active int, err error)
	ToggleActive(ctx context.Context, id uuid.UUID) (bool, error)
	SetStock(ctx context.Context, id uuid.UUID, quantity int) error
	DecrementStock(ctx context.Context, id uuid.UUID, quantity int) error
	DecrementVariantStock(ctx context.Context, id uuid.UUID, quantity int) error
}

type productRepository struct {
	db DBTX
}

// NewProductRepository creates a new instance of ProductRepository
func NewProductRepository(db DBTX) ProductRepository {
	return &productRepository{db: db}
}

const productSelect = `
	SELECT p.id, p.name, p.short_description, p.description, p.price, p.compare_at_price, p.sku,
	       p.stock_quantity, p.is_active, p.is_featured, p.category_id, p.created_at, p.updated_at,
	       c.name,
	       COALESCE((SELECT i.image_url FROM product_images i
	                 WHERE i.product_id = p.id
	                 ORDER BY i.is_primary DESC, i.sort_order ASC
	                 LIMIT 1), '')
	FROM products p
	JOIN categories c ON c.id = p.category_id
`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	product := &domain.Product{}
	err := row.Scan(
		&product.ID,
		&product.Name,
		&product.ShortDescription,
		&product.Description,
		&product.Price,
		&product.CompareAtPrice,
		&product.SKU,
		&product.StockQuantity,
		&product.IsActive,
		&product.IsFeatured,
		&product.CategoryID,
		&product.CreatedAt,
		&product.UpdatedAt,
		&product.CategoryName,
		&product.PrimaryImageURL,
	)
	if err != nil {
		return nil, err
	}
	return product, nil
}

func (r *productRepository) Create(ctx context.Context, product *domain.Product) error {
	query := `
		INSERT INTO products (id, name, short_description, description, price, compare_at_price, sku,
		                      stock_quantity, is_active, is_featured, category_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		product.ID,
		product.Name,
		product.ShortDescription,
		product.Description,
		product.Price,
		product.CompareAtPrice,
		product.SKU,
		product.StockQuantity,
		product.IsActive,
		product.IsFeatured,
		product.CategoryID,
		product.CreatedAt,
		product.UpdatedAt,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return ErrProductSKUExists
		}
		return fmt.Errorf("failed to create product: %w", err)
	}

	return nil
}

func (r *productRepository) CreateVariant(ctx context.Context, variant *domain.ProductVariant) error {
	query := `
		INSERT INTO product_variants (id, product_id, size, color, sku, price_adjustment, stock_quantity, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		variant.ID,
		variant.ProductID,
		variant.Size,
		variant.Color,
		variant.SKU,
		variant.PriceAdjustment,
		variant.StockQuantity,
		variant.IsActive,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return ErrProductSKUExists
		}
		return fmt.Errorf("failed to create product variant: %w", err)
	}

	return nil
}

func (r *productRepository) CreateImage(ctx context.Context, image *domain.ProductImage) error {
	query := `
		INSERT INTO product_images (id, product_id, image_url, alt_text, sort_order, is_primary)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.ExecContext(ctx, query, image.ID, image.ProductID, image.ImageURL, image.AltText, image.SortOrder, image.IsPrimary)
	if err != nil {
		return fmt.Errorf("failed to create product image: %w", err)
	}

	return nil
}

func (r *productRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	product, err := scanProduct(r.db.QueryRowContext(ctx, productSelect+` WHERE p.id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product by ID: %w", err)
	}

	return product, nil
}

func (r *productRepository) FindVariantByID(ctx context.Context, id uuid.UUID) (*domain.ProductVariant, error) {
	query := `
		SELECT id, product_id, size, color, sku, price_adjustment, stock_quantity, is_active
		FROM product_variants
		WHERE id = $1
	`

	variant := &domain.ProductVariant{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&variant.ID,
		&variant.ProductID,
		&variant.Size,
		&variant.Color,
		&variant.SKU,
		&variant.PriceAdjustment,
		&variant.StockQuantity,
		&variant.IsActive,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrVariantNotFound
		}
		return nil, fmt.Errorf("failed to find product variant: %w", err)
	}

	return variant, nil
}

func (r *productRepository) ListVariants(ctx context.Context, productID uuid.UUID, activeOnly bool) ([]domain.ProductVariant, error) {
	query := `
		SELECT id, product_id, size, color, sku, price_adjustment, stock_quantity, is_active
		FROM product_variants
		WHERE product_id = $1
	`
	if activeOnly {
		query += ` AND is_active = TRUE`
	}
	query += ` ORDER BY sku ASC`

	rows, err := r.db.QueryContext(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to list product variants: %w", err)
	}
	defer rows.Close()

	variants := []domain.ProductVariant{}
	for rows.Next() {
		var v domain.ProductVariant
		if err := rows.Scan(&v.ID, &v.ProductID, &v.Size, &v.Color, &v.SKU, &v.PriceAdjustment, &v.StockQuantity, &v.IsActive); err != nil {
			return nil, fmt.Errorf("failed to scan product variant: %w", err)
		}
		variants = append(variants, v)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating product variants: %w", err)
	}

	return variants, nil
}

func (r *productRepository) ListImages(ctx context.Context, productID uuid.UUID) ([]domain.ProductImage, error) {
	query := `
		SELECT id, product_id, image_url, alt_text, sort_order, is_primary
		FROM product_images
		WHERE product_id = $1
		ORDER BY sort_order ASC
	`

	rows, err := r.db.QueryContext(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to list product images: %w", err)
	}
	defer rows.Close()

	images := []domain.ProductImage{}
	for rows.Next() {
		var img domain.ProductImage
		if err := rows.Scan(&img.ID, &img.ProductID, &img.ImageURL, &img.AltText, &img.SortOrder, &img.IsPrimary); err != nil {
			return nil, fmt.Errorf("failed to scan product image: %w", err)
		}
		images = append(images, img)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating product images: %w", err)
	}

	return images, nil
}

// List retrieves products matching filter with pagination and sorting
func (r *productRepository) List(ctx context.Context, filter ProductFilter) ([]*domain.Product, int, error) {
	// Validate sort field to prevent SQL injection
	validSortFields := map[string]string{
		"name":           "p.name",
		"price":          "p.price",
		"created_at":     "p.created_at",
		"stock_quantity": "p.stock_quantity",
	}

	sortColumn, ok := validSortFields[filter.SortBy]
	if !ok {
		sortColumn = "p.name"
	}

	sortOrder := filter.SortOrder
	if sortOrder != SortOrderAsc && sortOrder != SortOrderDesc {
		sortOrder = SortOrderAsc
	}

	var conditions []string
	args := []interface{}{}
	argIndex := 1

	if filter.ActiveOnly {
		conditions = append(conditions, "p.is_active = TRUE")
	}

	if filter.CategoryID != nil {
		conditions = append(conditions, fmt.Sprintf("p.category_id = $%d", argIndex))
		args = append(args, *filter.CategoryID)
		argIndex++
	}

	if name := strings.TrimSpace(filter.CategoryName); name != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(c.name) = LOWER($%d)", argIndex))
		args = append(args, name)
		argIndex++
	}

	if term := strings.TrimSpace(filter.Search); term != "" {
		placeholder := fmt.Sprintf("$%d", argIndex)
		var clause string
		switch filter.SearchScope {
		case SearchNameSKU:
			clause = fmt.Sprintf("(p.name ILIKE %[1]s OR p.sku ILIKE %[1]s)", placeholder)
		case SearchNameDescriptionCategory:
			clause = fmt.Sprintf("(p.name ILIKE %[1]s OR p.description ILIKE %[1]s OR c.name ILIKE %[1]s)", placeholder)
		default:
			clause = fmt.Sprintf("(p.name ILIKE %[1]s OR p.description ILIKE %[1]s)", placeholder)
		}
		conditions = append(conditions, clause)
		args = append(args, "%"+escapeLike(term)+"%")
		argIndex++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := fmt.Sprintf(`
		SELECT COUNT(*)
		FROM products p
		JOIN categories c ON c.id = p.category_id
		%s
	`, whereClause)
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	query := fmt.Sprintf(`%s %s ORDER BY %s %s, p.id LIMIT $%d OFFSET $%d`,
		productSelect, whereClause, sortColumn, sortOrder, argIndex, argIndex+1)
	args = append(args, filter.PageSize, pageOffset(filter.Page, filter.PageSize))

	products, err := r.queryProducts(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}

	return products, total, nil
}

// Related returns other active products from the same category
func (r *productRepository) Related(ctx context.Context, categoryID, excludeID uuid.UUID, limit int) ([]*domain.Product, error) {
	query := productSelect + `
		WHERE p.category_id = $1 AND p.id <> $2 AND p.is_active = TRUE
		ORDER BY p.name ASC
		LIMIT $3
	`
	return r.queryProducts(ctx, query, categoryID, excludeID, limit)
}

// LowStock returns active products at or below threshold, scarcest first
func (r *productRepository) LowStock(ctx context.Context, threshold, limit int) ([]*domain.Product, error) {
	query := productSelect + `
		WHERE p.is_active = TRUE AND p.stock_quantity <= $1
		ORDER BY p.stock_quantity ASC, p.name ASC
		LIMIT $2
	`
	return r.queryProducts(ctx, query, threshold, limit)
}

func (r *productRepository) Counts(ctx context.Context) (int, int, error) {
	var total, active int
	query := `SELECT COUNT(*), COUNT(*) FILTER (WHERE is_active) FROM products`
	if err := r.db.QueryRowContext(ctx, query).Scan(&total, &active); err != nil {
		return 0, 0, fmt.Errorf("failed to count products: %w", err)
	}
	return total, active, nil
}

// ToggleActive flips the active flag and returns the new value
func (r *productRepository) ToggleActive(ctx context.Context, id uuid.UUID) (bool, error) {
	var active bool
	query := `UPDATE products SET is_active = NOT is_active WHERE id = $1 RETURNING is_active`
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&active); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, ErrProductNotFound
		}
		return false, fmt.Errorf("failed to toggle product: %w", err)
	}
	return active, nil
}

// SetStock overwrites the stock level
func (r *productRepository) SetStock(ctx context.Context, id uuid.UUID, quantity int) error {
	result, err := r.db.ExecContext(ctx, `UPDATE products SET stock_quantity = $2 WHERE id = $1`, id, quantity)
	if err != nil {
		return fmt.Errorf("failed to set product stock: %w", err)
	}
	return expectOneRow(result, ErrProductNotFound)
}

// DecrementStock removes quantity units only when that many are on hand.
// Zero affected rows means the stock was short.
func (r *productRepository) DecrementStock(ctx context.Context, id uuid.UUID, quantity int) error {
	query := `
		UPDATE products
		SET stock_quantity = stock_quantity - $2
		WHERE id = $1 AND stock_quantity >= $2
	`
	result, err := r.db.ExecContext(ctx, query, id, quantity)
	if err != nil {
		return fmt.Errorf("failed to decrement product stock: %w", err)
	}
	return expectOneRow(result, ErrInsufficientStock)
}

func (r *productRepository) DecrementVariantStock(ctx context.Context, id uuid.UUID, quantity int) error {
	query := `
		UPDATE product_variants
		SET stock_quantity = stock_quantity - $2
		WHERE id = $1 AND stock_quantity >= $2
	`
	result, err := r.db.ExecContext(ctx, query, id, quantity)
	if err != nil {
		return fmt.Errorf("failed to decrement variant stock: %w", err)
	}
	return expectOneRow(result, ErrInsufficientStock)
}

func (r *productRepository) queryProducts(ctx context.Context, query string, args ...interface{}) ([]*domain.Product, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	products := []*domain.Product{}
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, product)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating products: %w", err)
	}

	return products, nil
}

func expectOneRow(result sql.Result, notFound error) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return notFound
	}
	return nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
