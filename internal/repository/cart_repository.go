package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"storefront/internal/domain"

	"github.com/google/uuid"
)

var ErrCartItemNotFound = errors.New("cart item not found")

// CartRepository stores cart lines. Every method is scoped to a single owner.
type CartRepository interface {
	ListByOwner(ctx context.Context, owner domain.Owner) ([]*domain.CartItem, error)
	FindByID(ctx context.Context, owner domain.Owner, id uuid.UUID) (*domain.CartItem, error)
	AddOrMerge(ctx context.Context, owner domain.Owner, productID uuid.UUID, variantID uuid.NullUUID, quantity int) error
	UpdateQuantity(ctx context.Context, owner domain.Owner, id uuid.UUID, quantity int) error
	Delete(ctx context.Context, owner domain.Owner, id uuid.UUID) error
	Clear(ctx context.Context, owner domain.Owner) error
	Count(ctx context.Context, owner domain.Owner) (int, error)
}

type cartRepository struct {
	db DBTX
}

// NewCartRepository creates a new instance of CartRepository
func NewCartRepository(db DBTX) CartRepository {
	return &cartRepository{db: db}
}

// ownerColumn maps an owner onto the column that identifies it. Owners are
// validated by callers, so a non-user owner is always a session.
func ownerColumn(owner domain.Owner) (string, interface{}) {
	if owner.IsUser() {
		return "user_id", owner.UserID
	}
	return "session_id", owner.SessionID
}

const cartSelect = `
	SELECT ci.id, ci.user_id, ci.session_id, ci.product_id, ci.variant_id, ci.quantity, ci.date_added, ci.date_modified,
	       p.name, p.short_description, p.sku, p.price, p.stock_quantity, p.is_active, p.category_id,
	       v.size, v.color, v.sku, v.price_adjustment, v.stock_quantity, v.is_active,
	       COALESCE((SELECT i.image_url FROM product_images i
	                 WHERE i.product_id = p.id
	                 ORDER BY i.is_primary DESC, i.sort_order ASC
	                 LIMIT 1), '')
	FROM cart_items ci
	JOIN products p ON p.id = ci.product_id
	LEFT JOIN product_variants v ON v.id = ci.variant_id
`

func scanCartItem(row rowScanner) (*domain.CartItem, error) {
	var (
		item      domain.CartItem
		product   domain.Product
		userID    uuid.NullUUID
		sessionID sql.NullString
		vSize     sql.NullString
		vColor    sql.NullString
		vSKU      sql.NullString
		vAdj      *domain.Money
		vStock    sql.NullInt64
		vActive   sql.NullBool
	)

	err := row.Scan(
		&item.ID,
		&userID,
		&sessionID,
		&item.ProductID,
		&item.VariantID,
		&item.Quantity,
		&item.DateAdded,
		&item.DateModified,
		&product.Name,
		&product.ShortDescription,
		&product.SKU,
		&product.Price,
		&product.StockQuantity,
		&product.IsActive,
		&product.CategoryID,
		&vSize,
		&vColor,
		&vSKU,
		&vAdj,
		&vStock,
		&vActive,
		&item.ImageURL,
	)
	if err != nil {
		return nil, err
	}

	if userID.Valid {
		item.Owner = domain.UserOwner(userID.UUID)
	} else {
		item.Owner = domain.SessionOwner(sessionID.String)
	}

	product.ID = item.ProductID
	item.Product = &product

	if item.VariantID.Valid {
		item.Variant = &domain.ProductVariant{
			ID:              item.VariantID.UUID,
			ProductID:       item.ProductID,
			Size:            vSize.String,
			Color:           vColor.String,
			SKU:             vSKU.String,
			PriceAdjustment: vAdj,
			StockQuantity:   int(vStock.Int64),
			IsActive:        vActive.Bool,
		}
	}

	return &item, nil
}

// ListByOwner returns the owner's cart lines in the order they were added
func (r *cartRepository) ListByOwner(ctx context.Context, owner domain.Owner) ([]*domain.CartItem, error) {
	column, key := ownerColumn(owner)
	query := cartSelect + fmt.Sprintf(` WHERE ci.%s = $1 ORDER BY ci.date_added ASC, ci.id ASC`, column)

	rows, err := r.db.QueryContext(ctx, query, key)
	if err != nil {
		return nil, fmt.Errorf("failed to list cart items: %w", err)
	}
	defer rows.Close()

	items := []*domain.CartItem{}
	for rows.Next() {
		item, err := scanCartItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cart item: %w", err)
		}
		items = append(items, item)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cart items: %w", err)
	}

	return items, nil
}

func (r *cartRepository) FindByID(ctx context.Context, owner domain.Owner, id uuid.UUID) (*domain.CartItem, error) {
	column, key := ownerColumn(owner)
	query := cartSelect + fmt.Sprintf(` WHERE ci.id = $1 AND ci.%s = $2`, column)

	item, err := scanCartItem(r.db.QueryRowContext(ctx, query, id, key))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCartItemNotFound
		}
		return nil, fmt.Errorf("failed to find cart item: %w", err)
	}

	return item, nil
}

// AddOrMerge inserts a cart line or, when the owner already has one for the
// same product and variant, adds quantity to it in the same statement.
func (r *cartRepository) AddOrMerge(ctx context.Context, owner domain.Owner, productID uuid.UUID, variantID uuid.NullUUID, quantity int) error {
	column, key := ownerColumn(owner)
	query := fmt.Sprintf(`
		INSERT INTO cart_items (id, %[1]s, product_id, variant_id, quantity, date_added, date_modified)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		ON CONFLICT (%[1]s, product_id, (COALESCE(variant_id, '00000000-0000-0000-0000-000000000000'::uuid)))
		WHERE %[1]s IS NOT NULL
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity, date_modified = NOW()
	`, column)

	if _, err := r.db.ExecContext(ctx, query, uuid.New(), key, productID, variantID, quantity); err != nil {
		return fmt.Errorf("failed to add cart item: %w", err)
	}

	return nil
}

func (r *cartRepository) UpdateQuantity(ctx context.Context, owner domain.Owner, id uuid.UUID, quantity int) error {
	column, key := ownerColumn(owner)
	query := fmt.Sprintf(`
		UPDATE cart_items
		SET quantity = $3, date_modified = NOW()
		WHERE id = $1 AND %s = $2
	`, column)

	result, err := r.db.ExecContext(ctx, query, id, key, quantity)
	if err != nil {
		return fmt.Errorf("failed to update cart item: %w", err)
	}
	return expectOneRow(result, ErrCartItemNotFound)
}

func (r *cartRepository) Delete(ctx context.Context, owner domain.Owner, id uuid.UUID) error {
	column, key := ownerColumn(owner)
	query := fmt.Sprintf(`DELETE FROM cart_items WHERE id = $1 AND %s = $2`, column)

	result, err := r.db.ExecContext(ctx, query, id, key)
	if err != nil {
		return fmt.Errorf("failed to delete cart item: %w", err)
	}
	return expectOneRow(result, ErrCartItemNotFound)
}

func (r *cartRepository) Clear(ctx context.Context, owner domain.Owner) error {
	column, key := ownerColumn(owner)
	query := fmt.Sprintf(`DELETE FROM cart_items WHERE %s = $1`, column)

	if _, err := r.db.ExecContext(ctx, query, key); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}

// Count returns the total quantity across the owner's cart lines
func (r *cartRepository) Count(ctx context.Context, owner domain.Owner) (int, error) {
	column, key := ownerColumn(owner)
	query := fmt.Sprintf(`SELECT COALESCE(SUM(quantity), 0) FROM cart_items WHERE %s = $1`, column)

	var count int
	if err := r.db.QueryRowContext(ctx, query, key).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count cart items: %w", err)
	}
	return count, nil
}
