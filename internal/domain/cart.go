package domain

import (
	"time"

	"github.com/google/uuid"
)

// CartItem is one cart line. At most one exists per (owner, product, variant).
type CartItem struct {
	ID           uuid.UUID     `json:"id" db:"id"`
	Owner        Owner         `json:"-"`
	ProductID    uuid.UUID     `json:"product_id" db:"product_id"`
	VariantID    uuid.NullUUID `json:"variant_id" db:"variant_id"`
	Quantity     int           `json:"quantity" db:"quantity"`
	DateAdded    time.Time     `json:"date_added" db:"date_added"`
	DateModified time.Time     `json:"date_modified" db:"date_modified"`

	Product   *Product        `json:"product,omitempty"`
	Variant   *ProductVariant `json:"variant,omitempty"`
	ImageURL  string          `json:"image_url,omitempty"`
	UnitPrice Money           `json:"unit_price"`
	LineTotal Money           `json:"line_total"`
}

// AvailableStock is the stock that bounds this line: the variant's when one is
// selected, otherwise the product's.
func (c *CartItem) AvailableStock() int {
	if c.Variant != nil {
		return c.Variant.StockQuantity
	}
	if c.Product != nil {
		return c.Product.StockQuantity
	}
	return 0
}
