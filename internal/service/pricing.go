package service

import (
	"storefront/internal/config"
	"storefront/internal/domain"

	"github.com/shopspring/decimal"
)

// PricingPolicy holds the tax and shipping rules applied to a cart
type PricingPolicy struct {
	TaxRate               decimal.Decimal
	ShippingFlatFee       decimal.Decimal
	FreeShippingThreshold decimal.Decimal
}

// Totals is the priced summary of a set of cart lines
type Totals struct {
	Subtotal domain.Money `json:"subtotal"`
	Tax      domain.Money `json:"tax"`
	Shipping domain.Money `json:"shipping"`
	Total    domain.Money `json:"total"`
}

// NewPricingPolicy reads the store pricing rules from config
func NewPricingPolicy(cfg config.StoreConfig) PricingPolicy {
	return PricingPolicy{
		TaxRate:               cfg.TaxRate,
		ShippingFlatFee:       cfg.ShippingFlatFee,
		FreeShippingThreshold: cfg.FreeShippingThreshold,
	}
}

// DefaultPricingPolicy is 8% tax, free shipping above 50.00, otherwise 9.99
func DefaultPricingPolicy() PricingPolicy {
	return PricingPolicy{
		TaxRate:               decimal.RequireFromString("0.08"),
		ShippingFlatFee:       decimal.RequireFromString("9.99"),
		FreeShippingThreshold: decimal.RequireFromString("50.00"),
	}
}

// UnitPrice is the product price plus the variant adjustment, if any
func UnitPrice(product *domain.Product, variant *domain.ProductVariant) domain.Money {
	return product.Price.Plus(variant.Adjustment())
}

// PriceLines fills UnitPrice and LineTotal on every line and returns the totals
func (p PricingPolicy) PriceLines(items []*domain.CartItem) Totals {
	subtotal := domain.Money{}
	for _, item := range items {
		item.UnitPrice = UnitPrice(item.Product, item.Variant)
		item.LineTotal = item.UnitPrice.Times(item.Quantity)
		subtotal = subtotal.Plus(item.LineTotal)
	}
	return p.Totals(subtotal)
}

// Totals derives tax, shipping and total from a subtotal
func (p PricingPolicy) Totals(subtotal domain.Money) Totals {
	tax := domain.NewMoney(subtotal.Mul(p.TaxRate).Round(2))

	shipping := domain.NewMoney(p.ShippingFlatFee)
	if subtotal.GreaterThan(p.FreeShippingThreshold) {
		shipping = domain.Money{}
	}

	return Totals{
		Subtotal: subtotal,
		Tax:      tax,
		Shipping: shipping,
		Total:    subtotal.Plus(tax).Plus(shipping),
	}
}
