package domain

import (
	"time"

	"github.com/google/uuid"
)

// OrderStatus is the fulfillment state of an order
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
	OrderStatusRefunded   OrderStatus = "refunded"
)

// OrderStatuses lists every status in lifecycle order.
var OrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusProcessing,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCancelled,
	OrderStatusRefunded,
}

// Valid reports whether s is a known status.
func (s OrderStatus) Valid() bool {
	for _, known := range OrderStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// ShippingSnapshot is the destination copied onto an order when it is placed.
type ShippingSnapshot struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Address1  string `json:"address1"`
	Address2  string `json:"address2,omitempty"`
	City      string `json:"city"`
	State     string `json:"state"`
	ZipCode   string `json:"zip_code"`
	Country   string `json:"country"`
	Phone     string `json:"phone,omitempty"`
}

// Order is an immutable purchase record apart from its fulfillment fields.
type Order struct {
	ID                   uuid.UUID        `json:"id" db:"id"`
	OrderNumber          string           `json:"order_number" db:"order_number"`
	UserID               uuid.UUID        `json:"user_id" db:"user_id"`
	OrderDate            time.Time        `json:"order_date" db:"order_date"`
	Status               OrderStatus      `json:"status" db:"status"`
	Subtotal             Money            `json:"subtotal" db:"subtotal"`
	TaxAmount            Money            `json:"tax_amount" db:"tax_amount"`
	ShippingAmount       Money            `json:"shipping_amount" db:"shipping_amount"`
	TotalAmount          Money            `json:"total_amount" db:"total_amount"`
	PaymentMethod        string           `json:"payment_method" db:"payment_method"`
	PaymentTransactionID string           `json:"payment_transaction_id" db:"payment_transaction_id"`
	Shipping             ShippingSnapshot `json:"shipping"`
	ShippedDate          *time.Time       `json:"shipped_date,omitempty" db:"shipped_date"`
	DeliveredDate        *time.Time       `json:"delivered_date,omitempty" db:"delivered_date"`
	TrackingNumber       string           `json:"tracking_number,omitempty" db:"tracking_number"`
	Notes                string           `json:"notes,omitempty" db:"notes"`

	CustomerEmail string      `json:"customer_email,omitempty"`
	Items         []OrderItem `json:"items,omitempty"`
}

// OrderItem snapshots a purchased line. Name, SKU and variant text never
// follow later product edits.
type OrderItem struct {
	ID          uuid.UUID     `json:"id" db:"id"`
	OrderID     uuid.UUID     `json:"order_id" db:"order_id"`
	ProductID   uuid.UUID     `json:"product_id" db:"product_id"`
	VariantID   uuid.NullUUID `json:"variant_id" db:"variant_id"`
	ProductName string        `json:"product_name" db:"product_name"`
	ProductSKU  string        `json:"product_sku" db:"product_sku"`
	VariantInfo string        `json:"variant_info,omitempty" db:"variant_info"`
	UnitPrice   Money         `json:"unit_price" db:"unit_price"`
	Quantity    int           `json:"quantity" db:"quantity"`
	TotalPrice  Money         `json:"total_price" db:"total_price"`
}
