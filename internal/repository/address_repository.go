package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"storefront/internal/domain"

	"github.com/google/uuid"
)

var ErrAddressNotFound = errors.New("address not found")

// AddressRepository defines the interface for saved address access. Lookups
// and mutations are scoped to the owning user.
type AddressRepository interface {
	Create(ctx context.Context, address *domain.Address) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Address, error)
	FindByID(ctx context.Context, userID, id uuid.UUID) (*domain.Address, error)
	CountByUser(ctx context.Context, userID uuid.UUID) (int, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
	ClearDefault(ctx context.Context, userID uuid.UUID, addressType domain.AddressType) error
	MarkDefault(ctx context.Context, userID, id uuid.UUID) error
}

type addressRepository struct {
	db DBTX
}

// NewAddressRepository creates a new instance of AddressRepository
func NewAddressRepository(db DBTX) AddressRepository {
	return &addressRepository{db: db}
}

const addressColumns = `id, user_id, address_type, first_name, last_name, company, address1, address2,
	city, state, zip_code, country, phone, is_default, created_at`

func scanAddress(row rowScanner) (*domain.Address, error) {
	a := &domain.Address{}
	err := row.Scan(
		&a.ID,
		&a.UserID,
		&a.AddressType,
		&a.FirstName,
		&a.LastName,
		&a.Company,
		&a.Address1,
		&a.Address2,
		&a.City,
		&a.State,
		&a.ZipCode,
		&a.Country,
		&a.Phone,
		&a.IsDefault,
		&a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (r *addressRepository) Create(ctx context.Context, a *domain.Address) error {
	query := `
		INSERT INTO addresses (` + addressColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		a.ID,
		a.UserID,
		a.AddressType,
		a.FirstName,
		a.LastName,
		a.Company,
		a.Address1,
		a.Address2,
		a.City,
		a.State,
		a.ZipCode,
		a.Country,
		a.Phone,
		a.IsDefault,
		a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create address: %w", err)
	}

	return nil
}

// ListByUser returns defaults first, then shipping before billing
func (r *addressRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Address, error) {
	query := `
		SELECT ` + addressColumns + `
		FROM addresses
		WHERE user_id = $1
		ORDER BY is_default DESC, address_type DESC, created_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list addresses: %w", err)
	}
	defer rows.Close()

	addresses := []*domain.Address{}
	for rows.Next() {
		a, err := scanAddress(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan address: %w", err)
		}
		addresses = append(addresses, a)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating addresses: %w", err)
	}

	return addresses, nil
}

func (r *addressRepository) FindByID(ctx context.Context, userID, id uuid.UUID) (*domain.Address, error) {
	query := `SELECT ` + addressColumns + ` FROM addresses WHERE id = $1 AND user_id = $2`

	a, err := scanAddress(r.db.QueryRowContext(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAddressNotFound
		}
		return nil, fmt.Errorf("failed to find address: %w", err)
	}

	return a, nil
}

func (r *addressRepository) CountByUser(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM addresses WHERE user_id = $1`, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count addresses: %w", err)
	}
	return count, nil
}

func (r *addressRepository) Delete(ctx context.Context, userID, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM addresses WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete address: %w", err)
	}
	return expectOneRow(result, ErrAddressNotFound)
}

// ClearDefault unsets the default flag on every address of the given type
func (r *addressRepository) ClearDefault(ctx context.Context, userID uuid.UUID, addressType domain.AddressType) error {
	query := `
		UPDATE addresses
		SET is_default = FALSE
		WHERE user_id = $1 AND address_type = $2 AND is_default
	`
	if _, err := r.db.ExecContext(ctx, query, userID, addressType); err != nil {
		return fmt.Errorf("failed to clear default address: %w", err)
	}
	return nil
}

// MarkDefault sets the default flag on one address. Callers clear the
// previous default of the same type first.
func (r *addressRepository) MarkDefault(ctx context.Context, userID, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `UPDATE addresses SET is_default = TRUE WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to set default address: %w", err)
	}
	return expectOneRow(result, ErrAddressNotFound)
}
