package service

import (
	"context"
	"testing"

	"storefront/internal/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newProfileFixture() (*memStore, ProfileService, *domain.User) {
	store := newMemStore()
	user := store.addUser("p@example.com")
	return store, NewProfileService(store.repos(), &fakeTransactor{s: store}), user
}

func addressInput(addressType domain.AddressType, isDefault bool) AddressInput {
	return AddressInput{
		AddressType: addressType,
		FirstName:   "Ada",
		LastName:    "Lovelace",
		Address1:    "1 Analytical Way",
		City:        "Springfield",
		State:       "IL",
		ZipCode:     "62701",
		Country:     "US",
		IsDefault:   isDefault,
	}
}

func defaultsOf(store *memStore, userID uuid.UUID, addressType domain.AddressType) []uuid.UUID {
	var ids []uuid.UUID
	for _, a := range store.addresses {
		if a.UserID == userID && a.AddressType == addressType && a.IsDefault {
			ids = append(ids, a.ID)
		}
	}
	return ids
}

func TestAddAddress_NewDefaultReplacesPrevious(t *testing.T) {
	store, svc, user := newProfileFixture()
	ctx := context.Background()

	first, err := svc.AddAddress(ctx, user.ID, addressInput(domain.AddressTypeShipping, true))
	require.NoError(t, err)
	billing, err := svc.AddAddress(ctx, user.ID, addressInput(domain.AddressTypeBilling, true))
	require.NoError(t, err)
	second, err := svc.AddAddress(ctx, user.ID, addressInput(domain.AddressTypeShipping, true))
	require.NoError(t, err)

	assert.Equal(t, []uuid.UUID{second.ID}, defaultsOf(store, user.ID, domain.AddressTypeShipping))
	assert.Equal(t, []uuid.UUID{billing.ID}, defaultsOf(store, user.ID, domain.AddressTypeBilling))
	assert.NotEqual(t, first.ID, second.ID)
}

func TestAddAddress_DefaultsToShipping(t *testing.T) {
	_, svc, user := newProfileFixture()

	address, err := svc.AddAddress(context.Background(), user.ID, addressInput("", false))
	require.NoError(t, err)
	assert.Equal(t, domain.AddressTypeShipping, address.AddressType)
}

func TestSetDefaultAddress(t *testing.T) {
	store, svc, user := newProfileFixture()
	ctx := context.Background()

	a, err := svc.AddAddress(ctx, user.ID, addressInput(domain.AddressTypeShipping, true))
	require.NoError(t, err)
	b, err := svc.AddAddress(ctx, user.ID, addressInput(domain.AddressTypeShipping, false))
	require.NoError(t, err)

	require.NoError(t, svc.SetDefaultAddress(ctx, user.ID, b.ID))
	assert.Equal(t, []uuid.UUID{b.ID}, defaultsOf(store, user.ID, domain.AddressTypeShipping))

	require.NoError(t, svc.SetDefaultAddress(ctx, user.ID, a.ID))
	assert.Equal(t, []uuid.UUID{a.ID}, defaultsOf(store, user.ID, domain.AddressTypeShipping))

	stranger := store.addUser("s@example.com")
	assert.ErrorIs(t, svc.SetDefaultAddress(ctx, stranger.ID, b.ID), ErrNotFound)
	assert.Equal(t, []uuid.UUID{a.ID}, defaultsOf(store, user.ID, domain.AddressTypeShipping))
}

func TestDeleteAddress(t *testing.T) {
	store, svc, user := newProfileFixture()
	ctx := context.Background()

	a, err := svc.AddAddress(ctx, user.ID, addressInput(domain.AddressTypeShipping, false))
	require.NoError(t, err)

	stranger := store.addUser("s@example.com")
	assert.ErrorIs(t, svc.DeleteAddress(ctx, stranger.ID, a.ID), ErrNotFound)
	require.NoError(t, svc.DeleteAddress(ctx, user.ID, a.ID))
	assert.Empty(t, store.addresses)
}

func TestProfileReadAndUpdate(t *testing.T) {
	_, svc, user := newProfileFixture()
	ctx := context.Background()

	_, err := svc.AddAddress(ctx, user.ID, addressInput(domain.AddressTypeBilling, false))
	require.NoError(t, err)
	_, err = svc.AddAddress(ctx, user.ID, addressInput(domain.AddressTypeShipping, true))
	require.NoError(t, err)

	updated, err := svc.UpdateProfile(ctx, user.ID, "Grace", "Hopper", "555-0100")
	require.NoError(t, err)
	assert.Equal(t, "Grace", updated.FirstName)
	assert.Equal(t, "555-0100", updated.Phone)

	profile, err := svc.GetProfile(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Hopper", profile.User.LastName)
	require.Len(t, profile.Addresses, 2)
	assert.True(t, profile.Addresses[0].IsDefault)

	_, err = svc.GetProfile(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.UpdateProfile(ctx, uuid.New(), "a", "b", "")
	assert.ErrorIs(t, err, ErrNotFound)
}
