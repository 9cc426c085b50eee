package service

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/domain"
	"storefront/internal/repository"

	"github.com/google/uuid"
)

// Cart is an owner's priced cart
type Cart struct {
	Items     []*domain.CartItem `json:"items"`
	Totals    Totals             `json:"totals"`
	ItemCount int                `json:"item_count"`
}

// CartService defines cart operations scoped to a resolved owner
type CartService interface {
	AddItem(ctx context.Context, owner domain.Owner, productID uuid.UUID, variantID uuid.NullUUID, quantity int) (int, error)
	UpdateItem(ctx context.Context, owner domain.Owner, cartItemID uuid.UUID, quantity int) (int, error)
	RemoveItem(ctx context.Context, owner domain.Owner, cartItemID uuid.UUID) (int, error)
	Clear(ctx context.Context, owner domain.Owner) error
	Count(ctx context.Context, owner domain.Owner) (int, error)
	List(ctx context.Context, owner domain.Owner) (*Cart, error)
}

type cartService struct {
	repos   *repository.Repositories
	tx      repository.Transactor
	pricing PricingPolicy
}

// NewCartService creates a new instance of CartService
func NewCartService(repos *repository.Repositories, tx repository.Transactor, pricing PricingPolicy) CartService {
	return &cartService{repos: repos, tx: tx, pricing: pricing}
}

// AddItem adds quantity of a product (or one of its variants) to the cart,
// merging with an existing line. It returns the owner's new item count.
func (s *cartService) AddItem(ctx context.Context, owner domain.Owner, productID uuid.UUID, variantID uuid.NullUUID, quantity int) (int, error) {
	if err := owner.Validate(); err != nil {
		return 0, err
	}
	if quantity < 1 {
		return 0, ErrInvalidQuantity
	}

	var count int
	err := s.tx.WithinTx(ctx, func(tx *repository.Repositories) error {
		available, err := availableStock(ctx, tx, productID, variantID)
		if err != nil {
			return err
		}
		if quantity > available {
			return ErrInsufficientStock
		}

		if err := tx.Carts.AddOrMerge(ctx, owner, productID, variantID, quantity); err != nil {
			return err
		}

		count, err = tx.Carts.Count(ctx, owner)
		return err
	})
	if err != nil {
		return 0, err
	}

	return count, nil
}

// UpdateItem sets a line's quantity. Zero or less removes the line.
func (s *cartService) UpdateItem(ctx context.Context, owner domain.Owner, cartItemID uuid.UUID, quantity int) (int, error) {
	if quantity <= 0 {
		return s.RemoveItem(ctx, owner, cartItemID)
	}
	if err := owner.Validate(); err != nil {
		return 0, err
	}

	var count int
	err := s.tx.WithinTx(ctx, func(tx *repository.Repositories) error {
		item, err := tx.Carts.FindByID(ctx, owner, cartItemID)
		if err != nil {
			return cartError(err)
		}
		if quantity > item.AvailableStock() {
			return ErrInsufficientStock
		}

		if err := tx.Carts.UpdateQuantity(ctx, owner, cartItemID, quantity); err != nil {
			return cartError(err)
		}

		count, err = tx.Carts.Count(ctx, owner)
		return err
	})
	if err != nil {
		return 0, err
	}

	return count, nil
}

func (s *cartService) RemoveItem(ctx context.Context, owner domain.Owner, cartItemID uuid.UUID) (int, error) {
	if err := owner.Validate(); err != nil {
		return 0, err
	}

	var count int
	err := s.tx.WithinTx(ctx, func(tx *repository.Repositories) error {
		if err := tx.Carts.Delete(ctx, owner, cartItemID); err != nil {
			return cartError(err)
		}

		var err error
		count, err = tx.Carts.Count(ctx, owner)
		return err
	})
	if err != nil {
		return 0, err
	}

	return count, nil
}

func (s *cartService) Clear(ctx context.Context, owner domain.Owner) error {
	if err := owner.Validate(); err != nil {
		return err
	}
	return s.repos.Carts.Clear(ctx, owner)
}

// Count is the sum of quantities over the owner's lines
func (s *cartService) Count(ctx context.Context, owner domain.Owner) (int, error) {
	if err := owner.Validate(); err != nil {
		return 0, err
	}
	return s.repos.Carts.Count(ctx, owner)
}

func (s *cartService) List(ctx context.Context, owner domain.Owner) (*Cart, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}

	items, err := s.repos.Carts.ListByOwner(ctx, owner)
	if err != nil {
		return nil, err
	}

	return &Cart{
		Items:     items,
		Totals:    s.pricing.PriceLines(items),
		ItemCount: sumQuantities(items),
	}, nil
}

// availableStock resolves the purchasable stock for a product or one of its
// variants. Missing or inactive products and variants are not found.
func availableStock(ctx context.Context, repos *repository.Repositories, productID uuid.UUID, variantID uuid.NullUUID) (int, error) {
	product, err := repos.Products.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("failed to get product: %w", err)
	}
	if !product.IsActive {
		return 0, ErrNotFound
	}

	if !variantID.Valid {
		return product.StockQuantity, nil
	}

	variant, err := repos.Products.FindVariantByID(ctx, variantID.UUID)
	if err != nil {
		if errors.Is(err, repository.ErrVariantNotFound) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("failed to get variant: %w", err)
	}
	if !variant.IsActive || variant.ProductID != product.ID {
		return 0, ErrNotFound
	}

	return variant.StockQuantity, nil
}

func cartError(err error) error {
	if errors.Is(err, repository.ErrCartItemNotFound) {
		return ErrNotFound
	}
	return err
}

func sumQuantities(items []*domain.CartItem) int {
	total := 0
	for _, item := range items {
		total += item.Quantity
	}
	return total
}
