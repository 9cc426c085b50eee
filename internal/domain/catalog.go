package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Category groups products for browsing
type Category struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	ImageURL    string    `json:"image_url,omitempty" db:"image_url"`
	SortOrder   int       `json:"sort_order" db:"sort_order"`
	IsActive    bool      `json:"is_active" db:"is_active"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// Product represents a product in the catalog
type Product struct {
	ID               uuid.UUID `json:"id" db:"id"`
	Name             string    `json:"name" db:"name"`
	ShortDescription string    `json:"short_description,omitempty" db:"short_description"`
	Description      string    `json:"description" db:"description"`
	Price            Money     `json:"price" db:"price"`
	CompareAtPrice   *Money    `json:"compare_at_price,omitempty" db:"compare_at_price"`
	SKU              string    `json:"sku" db:"sku"`
	StockQuantity    int       `json:"stock_quantity" db:"stock_quantity"`
	IsActive         bool      `json:"is_active" db:"is_active"`
	IsFeatured       bool      `json:"is_featured" db:"is_featured"`
	CategoryID       uuid.UUID `json:"category_id" db:"category_id"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time `json:"updated_at" db:"updated_at"`

	// Read-side joins
	CategoryName    string           `json:"category_name,omitempty"`
	PrimaryImageURL string           `json:"image_url,omitempty"`
	Category        *Category        `json:"category,omitempty"`
	Images          []ProductImage   `json:"images,omitempty"`
	Variants        []ProductVariant `json:"variants,omitempty"`
}

// ProductVariant is a purchasable size/color configuration of a product with
// its own stock.
type ProductVariant struct {
	ID              uuid.UUID `json:"id" db:"id"`
	ProductID       uuid.UUID `json:"product_id" db:"product_id"`
	Size            string    `json:"size,omitempty" db:"size"`
	Color           string    `json:"color,omitempty" db:"color"`
	SKU             string    `json:"sku" db:"sku"`
	PriceAdjustment *Money    `json:"price_adjustment,omitempty" db:"price_adjustment"`
	StockQuantity   int       `json:"stock_quantity" db:"stock_quantity"`
	IsActive        bool      `json:"is_active" db:"is_active"`
}

// Adjustment returns the price adjustment, zero when unset.
func (v *ProductVariant) Adjustment() Money {
	if v == nil || v.PriceAdjustment == nil {
		return Money{}
	}
	return *v.PriceAdjustment
}

// Describe renders the variant as shown on order lines, e.g. "Size: M, Color: Navy".
func (v *ProductVariant) Describe() string {
	if v == nil {
		return ""
	}
	var parts []string
	if v.Size != "" {
		parts = append(parts, fmt.Sprintf("Size: %s", v.Size))
	}
	if v.Color != "" {
		parts = append(parts, fmt.Sprintf("Color: %s", v.Color))
	}
	return strings.Join(parts, ", ")
}

// ProductImage is an image attached to a product
type ProductImage struct {
	ID        uuid.UUID `json:"id" db:"id"`
	ProductID uuid.UUID `json:"product_id" db:"product_id"`
	ImageURL  string    `json:"image_url" db:"image_url"`
	AltText   string    `json:"alt_text,omitempty" db:"alt_text"`
	SortOrder int       `json:"sort_order" db:"sort_order"`
	IsPrimary bool      `json:"is_primary" db:"is_primary"`
}
