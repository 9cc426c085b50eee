package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"storefront/internal/domain"
	"storefront/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultOrderPrefix = "TRZ"

var orderSuffixRange = big.NewInt(1_000_000)

// CheckoutInput is a validated checkout form
type CheckoutInput struct {
	Shipping          domain.ShippingSnapshot
	PaymentMethod     string
	SelectedAddressID uuid.NullUUID
	SaveAddress       bool
	MakeDefault       bool
	Notes             string
}

// CheckoutSummary is everything the checkout page shows before submission
type CheckoutSummary struct {
	Cart      *Cart             `json:"cart"`
	Addresses []*domain.Address `json:"addresses"`
	FirstName string            `json:"first_name"`
	LastName  string            `json:"last_name"`
	Email     string            `json:"email"`
	Phone     string            `json:"phone,omitempty"`
}

// PlacedOrder identifies a newly created order
type PlacedOrder struct {
	ID          uuid.UUID `json:"order_id"`
	OrderNumber string    `json:"order_number"`
}

// CheckoutService converts a user's cart into an order
type CheckoutService interface {
	Summary(ctx context.Context, userID uuid.UUID) (*CheckoutSummary, error)
	PlaceOrder(ctx context.Context, userID uuid.UUID, input CheckoutInput) (*PlacedOrder, error)
	Confirmation(ctx context.Context, userID, orderID uuid.UUID) (*domain.Order, error)
}

type checkoutService struct {
	repos       *repository.Repositories
	tx          repository.Transactor
	pricing     PricingPolicy
	orderPrefix string
	now         func() time.Time
	logger      *zap.Logger
}

// NewCheckoutService creates a new instance of CheckoutService
func NewCheckoutService(
	repos *repository.Repositories,
	tx repository.Transactor,
	pricing PricingPolicy,
	orderPrefix string,
	logger *zap.Logger,
) CheckoutService {
	if orderPrefix == "" {
		orderPrefix = defaultOrderPrefix
	}
	return &checkoutService{
		repos:       repos,
		tx:          tx,
		pricing:     pricing,
		orderPrefix: orderPrefix,
		now:         time.Now,
		logger:      logger,
	}
}

func (s *checkoutService) Summary(ctx context.Context, userID uuid.UUID) (*CheckoutSummary, error) {
	if userID == uuid.Nil {
		return nil, ErrNotAuthenticated
	}

	items, err := s.repos.Carts.ListByOwner(ctx, domain.UserOwner(userID))
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	user, err := s.repos.Users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	addresses, err := s.repos.Addresses.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &CheckoutSummary{
		Cart: &Cart{
			Items:     items,
			Totals:    s.pricing.PriceLines(items),
			ItemCount: sumQuantities(items),
		},
		Addresses: addresses,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Email:     user.Email,
		Phone:     user.Phone,
	}, nil
}

// PlaceOrder prices the cart, persists the order with its line snapshots,
// decrements stock, optionally saves the address and clears the cart, all in
// one transaction.
func (s *checkoutService) PlaceOrder(ctx context.Context, userID uuid.UUID, input CheckoutInput) (*PlacedOrder, error) {
	if userID == uuid.Nil {
		return nil, ErrNotAuthenticated
	}
	owner := domain.UserOwner(userID)

	var order *domain.Order
	err := s.tx.WithinTx(ctx, func(tx *repository.Repositories) error {
		items, err := tx.Carts.ListByOwner(ctx, owner)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return ErrEmptyCart
		}

		totals := s.pricing.PriceLines(items)

		orderNumber, err := s.newOrderNumber()
		if err != nil {
			return err
		}

		order = &domain.Order{
			ID:                   uuid.New(),
			OrderNumber:          orderNumber,
			UserID:               userID,
			OrderDate:            s.now(),
			Status:               domain.OrderStatusPending,
			Subtotal:             totals.Subtotal,
			TaxAmount:            totals.Tax,
			ShippingAmount:       totals.Shipping,
			TotalAmount:          totals.Total,
			PaymentMethod:        input.PaymentMethod,
			PaymentTransactionID: newTransactionID(),
			Shipping:             input.Shipping,
			Notes:                input.Notes,
		}
		if err := tx.Orders.Create(ctx, order); err != nil {
			return err
		}

		for _, item := range items {
			line := orderLine(order.ID, item)
			if err := tx.Orders.CreateItem(ctx, &line); err != nil {
				return err
			}
			order.Items = append(order.Items, line)
		}

		for _, item := range items {
			if err := decrementStock(ctx, tx, item); err != nil {
				return err
			}
		}

		if input.SaveAddress && !input.SelectedAddressID.Valid {
			if err := saveCheckoutAddress(ctx, tx, userID, input); err != nil {
				return err
			}
		}

		return tx.Carts.Clear(ctx, owner)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Order placed",
		zap.String("order_id", order.ID.String()),
		zap.String("order_number", order.OrderNumber),
		zap.String("user_id", userID.String()),
		zap.String("total", order.TotalAmount.String()),
		zap.Int("lines", len(order.Items)),
	)

	return &PlacedOrder{ID: order.ID, OrderNumber: order.OrderNumber}, nil
}

func (s *checkoutService) Confirmation(ctx context.Context, userID, orderID uuid.UUID) (*domain.Order, error) {
	if userID == uuid.Nil {
		return nil, ErrNotAuthenticated
	}
	return loadOwnedOrder(ctx, s.repos, userID, orderID)
}

// newOrderNumber is the prefix, the UTC timestamp to the second and six random digits
func (s *checkoutService) newOrderNumber() (string, error) {
	suffix, err := rand.Int(rand.Reader, orderSuffixRange)
	if err != nil {
		return "", fmt.Errorf("failed to generate order number: %w", err)
	}
	return fmt.Sprintf("%s%s%06d", s.orderPrefix, s.now().UTC().Format("20060102150405"), suffix.Int64()), nil
}

// newTransactionID simulates a payment reference. No gateway is called.
func newTransactionID() string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "TXN" + strings.ToUpper(hex[:16])
}

func orderLine(orderID uuid.UUID, item *domain.CartItem) domain.OrderItem {
	sku := item.Product.SKU
	if item.Variant != nil && item.Variant.SKU != "" {
		sku = item.Variant.SKU
	}

	return domain.OrderItem{
		ID:          uuid.New(),
		OrderID:     orderID,
		ProductID:   item.ProductID,
		VariantID:   item.VariantID,
		ProductName: item.Product.Name,
		ProductSKU:  sku,
		VariantInfo: item.Variant.Describe(),
		UnitPrice:   item.UnitPrice,
		Quantity:    item.Quantity,
		TotalPrice:  item.LineTotal,
	}
}

func decrementStock(ctx context.Context, tx *repository.Repositories, item *domain.CartItem) error {
	var err error
	if item.VariantID.Valid {
		err = tx.Products.DecrementVariantStock(ctx, item.VariantID.UUID, item.Quantity)
	} else {
		err = tx.Products.DecrementStock(ctx, item.ProductID, item.Quantity)
	}

	if errors.Is(err, repository.ErrInsufficientStock) {
		return ErrInsufficientStock
	}
	return err
}

// saveCheckoutAddress stores the shipping destination. It becomes the default
// when asked or when it is the user's first address.
func saveCheckoutAddress(ctx context.Context, tx *repository.Repositories, userID uuid.UUID, input CheckoutInput) error {
	existing, err := tx.Addresses.CountByUser(ctx, userID)
	if err != nil {
		return err
	}

	address := &domain.Address{
		ID:          uuid.New(),
		UserID:      userID,
		AddressType: domain.AddressTypeShipping,
		FirstName:   input.Shipping.FirstName,
		LastName:    input.Shipping.LastName,
		Address1:    input.Shipping.Address1,
		Address2:    input.Shipping.Address2,
		City:        input.Shipping.City,
		State:       input.Shipping.State,
		ZipCode:     input.Shipping.ZipCode,
		Country:     input.Shipping.Country,
		Phone:       input.Shipping.Phone,
		IsDefault:   input.MakeDefault || existing == 0,
		CreatedAt:   time.Now(),
	}

	return createAddress(ctx, tx, address)
}

// createAddress inserts an address, clearing the previous default of its type first
func createAddress(ctx context.Context, tx *repository.Repositories, address *domain.Address) error {
	if address.IsDefault {
		if err := tx.Addresses.ClearDefault(ctx, address.UserID, address.AddressType); err != nil {
			return err
		}
	}
	return tx.Addresses.Create(ctx, address)
}

// loadOwnedOrder returns the order with its items, or ErrNotFound when it is
// missing or belongs to someone else.
func loadOwnedOrder(ctx context.Context, repos *repository.Repositories, userID, orderID uuid.UUID) (*domain.Order, error) {
	order, err := repos.Orders.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if order.UserID != userID {
		return nil, ErrNotFound
	}

	items, err := repos.Orders.ListItems(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	order.Items = items[order.ID]

	return order, nil
}
