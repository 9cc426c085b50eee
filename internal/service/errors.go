package service

import (
	"errors"

	"storefront/internal/domain"
)

// Error kinds returned by the store workflows. Transport maps each to a status.
var (
	ErrNotFound          = errors.New("not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrEmptyCart         = errors.New("cart is empty")
	ErrNotAuthenticated  = errors.New("authentication required")
	ErrNothingToReorder  = errors.New("none of the items from this order are currently available")
	ErrInvalidQuantity   = errors.New("quantity must be at least 1")
	ErrInvalidStatus     = errors.New("invalid order status")
	ErrInvalidOwner      = domain.ErrInvalidOwner
)
