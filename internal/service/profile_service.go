package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/internal/domain"
	"storefront/internal/repository"

	"github.com/google/uuid"
)

// Profile is a user with their saved addresses
type Profile struct {
	User      *domain.User      `json:"user"`
	Addresses []*domain.Address `json:"addresses"`
}

// AddressInput is a validated address form
type AddressInput struct {
	AddressType domain.AddressType
	FirstName   string
	LastName    string
	Company     string
	Address1    string
	Address2    string
	City        string
	State       string
	ZipCode     string
	Country     string
	Phone       string
	IsDefault   bool
}

// ProfileService defines account and address book operations
type ProfileService interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*Profile, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, firstName, lastName, phone string) (*domain.User, error)
	AddAddress(ctx context.Context, userID uuid.UUID, input AddressInput) (*domain.Address, error)
	DeleteAddress(ctx context.Context, userID, addressID uuid.UUID) error
	SetDefaultAddress(ctx context.Context, userID, addressID uuid.UUID) error
}

type profileService struct {
	repos *repository.Repositories
	tx    repository.Transactor
}

// NewProfileService creates a new instance of ProfileService
func NewProfileService(repos *repository.Repositories, tx repository.Transactor) ProfileService {
	return &profileService{repos: repos, tx: tx}
}

func (s *profileService) GetProfile(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	user, err := s.repos.Users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	addresses, err := s.repos.Addresses.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &Profile{User: user, Addresses: addresses}, nil
}

func (s *profileService) UpdateProfile(ctx context.Context, userID uuid.UUID, firstName, lastName, phone string) (*domain.User, error) {
	if err := s.repos.Users.UpdateProfile(ctx, userID, firstName, lastName, phone); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s.repos.Users.FindByID(ctx, userID)
}

// AddAddress saves an address. A new default replaces the previous default of
// the same type.
func (s *profileService) AddAddress(ctx context.Context, userID uuid.UUID, input AddressInput) (*domain.Address, error) {
	addressType := input.AddressType
	if addressType == "" {
		addressType = domain.AddressTypeShipping
	}

	address := &domain.Address{
		ID:          uuid.New(),
		UserID:      userID,
		AddressType: addressType,
		FirstName:   input.FirstName,
		LastName:    input.LastName,
		Company:     input.Company,
		Address1:    input.Address1,
		Address2:    input.Address2,
		City:        input.City,
		State:       input.State,
		ZipCode:     input.ZipCode,
		Country:     input.Country,
		Phone:       input.Phone,
		IsDefault:   input.IsDefault,
		CreatedAt:   time.Now(),
	}

	err := s.tx.WithinTx(ctx, func(tx *repository.Repositories) error {
		return createAddress(ctx, tx, address)
	})
	if err != nil {
		return nil, err
	}

	return address, nil
}

func (s *profileService) DeleteAddress(ctx context.Context, userID, addressID uuid.UUID) error {
	if err := s.repos.Addresses.Delete(ctx, userID, addressID); err != nil {
		return addressError(err)
	}
	return nil
}

// SetDefaultAddress makes one address the default of its type
func (s *profileService) SetDefaultAddress(ctx context.Context, userID, addressID uuid.UUID) error {
	return s.tx.WithinTx(ctx, func(tx *repository.Repositories) error {
		address, err := tx.Addresses.FindByID(ctx, userID, addressID)
		if err != nil {
			return addressError(err)
		}

		if err := tx.Addresses.ClearDefault(ctx, userID, address.AddressType); err != nil {
			return err
		}
		if err := tx.Addresses.MarkDefault(ctx, userID, addressID); err != nil {
			return addressError(err)
		}
		return nil
	})
}

func addressError(err error) error {
	if errors.Is(err, repository.ErrAddressNotFound) {
		return ErrNotFound
	}
	return err
}
