package service

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/domain"
	"storefront/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OrderService defines a customer's order history operations
type OrderService interface {
	ListOrders(ctx context.Context, userID uuid.UUID, page int) (*domain.Page[*domain.Order], error)
	GetOrder(ctx context.Context, userID, orderID uuid.UUID) (*domain.Order, error)
	Reorder(ctx context.Context, userID, orderID uuid.UUID) (int, error)
}

type orderService struct {
	repos    *repository.Repositories
	tx       repository.Transactor
	pageSize int
	logger   *zap.Logger
}

// NewOrderService creates a new instance of OrderService
func NewOrderService(repos *repository.Repositories, tx repository.Transactor, pageSize int, logger *zap.Logger) OrderService {
	if pageSize <= 0 {
		pageSize = 10
	}
	return &orderService{repos: repos, tx: tx, pageSize: pageSize, logger: logger}
}

// ListOrders returns the user's orders newest first, each with its items
func (s *orderService) ListOrders(ctx context.Context, userID uuid.UUID, page int) (*domain.Page[*domain.Order], error) {
	if userID == uuid.Nil {
		return nil, ErrNotAuthenticated
	}
	page = domain.NormalizePage(page)

	orders, total, err := s.repos.Orders.List(ctx, repository.OrderFilter{
		UserID:   &userID,
		Page:     page,
		PageSize: s.pageSize,
	})
	if err != nil {
		return nil, err
	}

	if err := attachItems(ctx, s.repos, orders); err != nil {
		return nil, err
	}

	return domain.NewPage(orders, page, s.pageSize, total), nil
}

func (s *orderService) GetOrder(ctx context.Context, userID, orderID uuid.UUID) (*domain.Order, error) {
	if userID == uuid.Nil {
		return nil, ErrNotAuthenticated
	}
	return loadOwnedOrder(ctx, s.repos, userID, orderID)
}

// Reorder copies a past order's lines into the user's cart, capped by current
// stock. Lines whose product or variant is inactive or out of stock are
// skipped. It returns the number of lines added.
func (s *orderService) Reorder(ctx context.Context, userID, orderID uuid.UUID) (int, error) {
	if userID == uuid.Nil {
		return 0, ErrNotAuthenticated
	}
	owner := domain.UserOwner(userID)

	added := 0
	err := s.tx.WithinTx(ctx, func(tx *repository.Repositories) error {
		order, err := loadOwnedOrder(ctx, tx, userID, orderID)
		if err != nil {
			return err
		}

		for _, item := range order.Items {
			available, err := availableStock(ctx, tx, item.ProductID, item.VariantID)
			if errors.Is(err, ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			if available <= 0 {
				continue
			}

			if err := tx.Carts.AddOrMerge(ctx, owner, item.ProductID, item.VariantID, min(item.Quantity, available)); err != nil {
				return fmt.Errorf("failed to re-add order line: %w", err)
			}
			added++
		}

		if added == 0 {
			return ErrNothingToReorder
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info("Order reordered",
		zap.String("order_id", orderID.String()),
		zap.String("user_id", userID.String()),
		zap.Int("lines_added", added),
	)

	return added, nil
}

func attachItems(ctx context.Context, repos *repository.Repositories, orders []*domain.Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
	}

	items, err := repos.Orders.ListItems(ctx, ids...)
	if err != nil {
		return err
	}
	for _, o := range orders {
		o.Items = items[o.ID]
	}
	return nil
}
