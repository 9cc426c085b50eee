package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"storefront/internal/domain"

	"github.com/google/uuid"
)

var ErrOrderNotFound = errors.New("order not found")

// OrderFilter narrows admin order listings
type OrderFilter struct {
	UserID   *uuid.UUID
	Status   domain.OrderStatus
	Page     int
	PageSize int
}

// OrderStats aggregates order counts for the back-office dashboard
type OrderStats struct {
	Total      int
	Pending    int
	Processing int
	Revenue    domain.Money
}

// OrderRepository defines the interface for order data access
type OrderRepository interface {
	Create(ctx context.Context, order *domain.Order) error
	CreateItem(ctx context.Context, item *domain.OrderItem) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	ListItems(ctx context.Context, orderIDs ...uuid.UUID) (map[uuid.UUID][]domain.OrderItem, error)
	List(ctx context.Context, filter OrderFilter) ([]*domain.Order, int, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus, trackingNumber *string) error
	Stats(ctx context.Context) (*OrderStats, error)
}

type orderRepository struct {
	db DBTX
}

// NewOrderRepository creates a new instance of OrderRepository
func NewOrderRepository(db DBTX) OrderRepository {
	return &orderRepository{db: db}
}

const orderSelect = `
	SELECT o.id, o.order_number, o.user_id, o.order_date, o.status,
	       o.subtotal, o.tax_amount, o.shipping_amount, o.total_amount,
	       o.payment_method, o.payment_transaction_id,
	       o.shipping_first_name, o.shipping_last_name, o.shipping_address1, o.shipping_address2,
	       o.shipping_city, o.shipping_state, o.shipping_zip_code, o.shipping_country, o.shipping_phone,
	       o.shipped_date, o.delivered_date, o.tracking_number, o.notes,
	       u.email
	FROM orders o
	JOIN users u ON u.id = o.user_id
`

func scanOrder(row rowScanner) (*domain.Order, error) {
	o := &domain.Order{}
	err := row.Scan(
		&o.ID,
		&o.OrderNumber,
		&o.UserID,
		&o.OrderDate,
		&o.Status,
		&o.Subtotal,
		&o.TaxAmount,
		&o.ShippingAmount,
		&o.TotalAmount,
		&o.PaymentMethod,
		&o.PaymentTransactionID,
		&o.Shipping.FirstName,
		&o.Shipping.LastName,
		&o.Shipping.Address1,
		&o.Shipping.Address2,
		&o.Shipping.City,
		&o.Shipping.State,
		&o.Shipping.ZipCode,
		&o.Shipping.Country,
		&o.Shipping.Phone,
		&o.ShippedDate,
		&o.DeliveredDate,
		&o.TrackingNumber,
		&o.Notes,
		&o.CustomerEmail,
	)
	if err != nil {
		return nil, err
	}
	return o, nil
}

func (r *orderRepository) Create(ctx context.Context, o *domain.Order) error {
	query := `
		INSERT INTO orders (
			id, order_number, user_id, order_date, status,
			subtotal, tax_amount, shipping_amount, total_amount,
			payment_method, payment_transaction_id,
			shipping_first_name, shipping_last_name, shipping_address1, shipping_address2,
			shipping_city, shipping_state, shipping_zip_code, shipping_country, shipping_phone,
			tracking_number, notes
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		o.ID,
		o.OrderNumber,
		o.UserID,
		o.OrderDate,
		o.Status,
		o.Subtotal,
		o.TaxAmount,
		o.ShippingAmount,
		o.TotalAmount,
		o.PaymentMethod,
		o.PaymentTransactionID,
		o.Shipping.FirstName,
		o.Shipping.LastName,
		o.Shipping.Address1,
		o.Shipping.Address2,
		o.Shipping.City,
		o.Shipping.State,
		o.Shipping.ZipCode,
		o.Shipping.Country,
		o.Shipping.Phone,
		o.TrackingNumber,
		o.Notes,
	)
	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}

	return nil
}

func (r *orderRepository) CreateItem(ctx context.Context, item *domain.OrderItem) error {
	query := `
		INSERT INTO order_items (id, order_id, product_id, variant_id, product_name, product_sku,
		                         variant_info, unit_price, quantity, total_price)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		item.ID,
		item.OrderID,
		item.ProductID,
		item.VariantID,
		item.ProductName,
		item.ProductSKU,
		item.VariantInfo,
		item.UnitPrice,
		item.Quantity,
		item.TotalPrice,
	)
	if err != nil {
		return fmt.Errorf("failed to create order item: %w", err)
	}

	return nil
}

func (r *orderRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	o, err := scanOrder(r.db.QueryRowContext(ctx, orderSelect+` WHERE o.id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to find order: %w", err)
	}

	return o, nil
}

// ListItems loads the line items of several orders in one query, keyed by order
func (r *orderRepository) ListItems(ctx context.Context, orderIDs ...uuid.UUID) (map[uuid.UUID][]domain.OrderItem, error) {
	items := make(map[uuid.UUID][]domain.OrderItem, len(orderIDs))
	if len(orderIDs) == 0 {
		return items, nil
	}

	ids := make([]string, len(orderIDs))
	for i, id := range orderIDs {
		ids[i] = id.String()
	}

	query := `
		SELECT id, order_id, product_id, variant_id, product_name, product_sku,
		       variant_info, unit_price, quantity, total_price
		FROM order_items
		WHERE order_id = ANY($1::uuid[])
		ORDER BY product_name ASC, id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to list order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item domain.OrderItem
		err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.ProductID,
			&item.VariantID,
			&item.ProductName,
			&item.ProductSKU,
			&item.VariantInfo,
			&item.UnitPrice,
			&item.Quantity,
			&item.TotalPrice,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items[item.OrderID] = append(items[item.OrderID], item)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating order items: %w", err)
	}

	return items, nil
}

// List returns orders newest first, optionally for one user or one status
func (r *orderRepository) List(ctx context.Context, filter OrderFilter) ([]*domain.Order, int, error) {
	whereClause := "WHERE 1 = 1"
	args := []interface{}{}
	argIndex := 1

	if filter.UserID != nil {
		whereClause += fmt.Sprintf(" AND o.user_id = $%d", argIndex)
		args = append(args, *filter.UserID)
		argIndex++
	}

	if filter.Status != "" {
		whereClause += fmt.Sprintf(" AND o.status = $%d", argIndex)
		args = append(args, filter.Status)
		argIndex++
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM orders o ` + whereClause
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	query := fmt.Sprintf(`%s %s ORDER BY o.order_date DESC, o.id DESC LIMIT $%d OFFSET $%d`,
		orderSelect, whereClause, argIndex, argIndex+1)
	args = append(args, filter.PageSize, pageOffset(filter.Page, filter.PageSize))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	orders := []*domain.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, o)
	}

	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating orders: %w", err)
	}

	return orders, total, nil
}

// UpdateStatus sets any status. Reaching shipped or delivered stamps the
// matching date once; a non-nil tracking number replaces the stored one.
func (r *orderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus, trackingNumber *string) error {
	query := `
		UPDATE orders
		SET status = $2::varchar,
		    tracking_number = COALESCE($3, tracking_number),
		    shipped_date = CASE WHEN $2::varchar = 'shipped' AND shipped_date IS NULL THEN NOW() ELSE shipped_date END,
		    delivered_date = CASE WHEN $2::varchar = 'delivered' AND delivered_date IS NULL THEN NOW() ELSE delivered_date END
		WHERE id = $1
	`

	var tracking sql.NullString
	if trackingNumber != nil {
		tracking = sql.NullString{String: *trackingNumber, Valid: true}
	}

	result, err := r.db.ExecContext(ctx, query, id, string(status), tracking)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}
	return expectOneRow(result, ErrOrderNotFound)
}

// Stats counts orders by state; revenue only includes delivered orders
func (r *orderRepository) Stats(ctx context.Context) (*OrderStats, error) {
	query := `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE status = 'pending'),
		       COUNT(*) FILTER (WHERE status = 'processing'),
		       COALESCE(SUM(total_amount) FILTER (WHERE status = 'delivered'), 0)
		FROM orders
	`

	stats := &OrderStats{}
	err := r.db.QueryRowContext(ctx, query).Scan(&stats.Total, &stats.Pending, &stats.Processing, &stats.Revenue)
	if err != nil {
		return nil, fmt.Errorf("failed to compute order stats: %w", err)
	}
	return stats, nil
}
