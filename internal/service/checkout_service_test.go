package service

import (
	"context"
	"regexp"
	"testing"
	"time"

	"storefront/internal/domain"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type checkoutFixture struct {
	store    *memStore
	tx       *fakeTransactor
	svc      CheckoutService
	user     *domain.User
	productA *domain.Product
	productB *domain.Product
}

func newCheckoutFixture() *checkoutFixture {
	store := newMemStore()
	tx := &fakeTransactor{s: store}
	category := store.addCategory("Clothing")
	f := &checkoutFixture{
		store:    store,
		tx:       tx,
		svc:      NewCheckoutService(store.repos(), tx, DefaultPricingPolicy(), "TRZ", zap.NewNop()),
		user:     store.addUser("shopper@example.com"),
		productA: store.addProduct(category.ID, "Tee", "19.99", 100),
		productB: store.addProduct(category.ID, "Jeans", "79.99", 50),
	}
	return f
}

func (f *checkoutFixture) addToCart(productID uuid.UUID, variantID uuid.NullUUID, quantity int) {
	_ = f.store.repos().Carts.AddOrMerge(context.Background(), domain.UserOwner(f.user.ID), productID, variantID, quantity)
}

func validCheckoutInput() CheckoutInput {
	return CheckoutInput{
		Shipping: domain.ShippingSnapshot{
			FirstName: "Ada",
			LastName:  "Lovelace",
			Address1:  "1 Analytical Way",
			City:      "Springfield",
			State:     "IL",
			ZipCode:   "62701",
			Country:   "US",
		},
		PaymentMethod: "credit_card",
	}
}

func TestPlaceOrder_WorkedExample(t *testing.T) {
	f := newCheckoutFixture()
	ctx := context.Background()
	f.addToCart(f.productA.ID, uuid.NullUUID{}, 2)
	f.addToCart(f.productB.ID, uuid.NullUUID{}, 1)

	placed, err := f.svc.PlaceOrder(ctx, f.user.ID, validCheckoutInput())
	require.NoError(t, err)

	require.Len(t, f.store.orders, 1)
	order := f.store.orders[0]
	assert.Equal(t, placed.ID, order.ID)
	assert.Equal(t, placed.OrderNumber, order.OrderNumber)
	assert.Equal(t, "119.97", order.Subtotal.String())
	assert.Equal(t, "9.60", order.TaxAmount.String())
	assert.Equal(t, "0.00", order.ShippingAmount.String())
	assert.Equal(t, "129.57", order.TotalAmount.String())
	assert.Equal(t, domain.OrderStatusPending, order.Status)
	assert.Equal(t, "Springfield", order.Shipping.City)
	assert.Regexp(t, regexp.MustCompile(`^TXN[0-9A-F]{16}$`), order.PaymentTransactionID)

	require.Len(t, f.store.orderItems, 2)
	totals := map[string]string{}
	for _, item := range f.store.orderItems {
		totals[item.ProductName] = item.TotalPrice.String()
	}
	assert.Equal(t, map[string]string{"Tee": "39.98", "Jeans": "79.99"}, totals)

	assert.Equal(t, 98, f.store.products[f.productA.ID].StockQuantity)
	assert.Equal(t, 49, f.store.products[f.productB.ID].StockQuantity)
	assert.Empty(t, f.store.cart)
	assert.Empty(t, f.store.addresses)

	confirmed, err := f.svc.Confirmation(ctx, f.user.ID, placed.ID)
	require.NoError(t, err)
	assert.Len(t, confirmed.Items, 2)
	assert.Equal(t, f.user.Email, confirmed.CustomerEmail)
}

func TestPlaceOrder_SnapshotsVariant(t *testing.T) {
	f := newCheckoutFixture()
	xl := f.store.addVariant(f.productA.ID, "XL", 5, "2.00")
	f.addToCart(f.productA.ID, uuid.NullUUID{UUID: xl.ID, Valid: true}, 2)

	_, err := f.svc.PlaceOrder(context.Background(), f.user.ID, validCheckoutInput())
	require.NoError(t, err)

	require.Len(t, f.store.orderItems, 1)
	item := f.store.orderItems[0]
	assert.Equal(t, xl.SKU, item.ProductSKU)
	assert.Equal(t, "Size: XL", item.VariantInfo)
	assert.Equal(t, "21.99", item.UnitPrice.String())
	assert.Equal(t, "43.98", item.TotalPrice.String())

	assert.Equal(t, 3, f.store.variants[xl.ID].StockQuantity)
	assert.Equal(t, 100, f.store.products[f.productA.ID].StockQuantity, "product stock untouched for variant lines")

	order := f.store.orders[0]
	assert.Equal(t, "9.99", order.ShippingAmount.String())
	assert.Equal(t, "3.52", order.TaxAmount.String())
	assert.Equal(t, "57.49", order.TotalAmount.String())
}

func TestPlaceOrder_EmptyCart(t *testing.T) {
	f := newCheckoutFixture()

	_, err := f.svc.PlaceOrder(context.Background(), f.user.ID, validCheckoutInput())
	assert.ErrorIs(t, err, ErrEmptyCart)
	assert.Empty(t, f.store.orders)

	_, err = f.svc.Summary(context.Background(), f.user.ID)
	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestPlaceOrder_RequiresAuthenticatedUser(t *testing.T) {
	f := newCheckoutFixture()

	_, err := f.svc.PlaceOrder(context.Background(), uuid.Nil, validCheckoutInput())
	assert.ErrorIs(t, err, ErrNotAuthenticated)

	_, err = f.svc.Summary(context.Background(), uuid.Nil)
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

// Feature: storefront, Property 7: Checkout is all-or-nothing
func TestProperty_CheckoutRollsBackCompletely(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("a failure at any step leaves the store exactly as before", prop.ForAll(
		func(failure string, quantityA, quantityB int, saveAddress bool) bool {
			f := newCheckoutFixture()
			f.addToCart(f.productA.ID, uuid.NullUUID{}, quantityA)
			f.addToCart(f.productB.ID, uuid.NullUUID{}, quantityB)

			if failure == "stock" {
				p := f.store.products[f.productB.ID]
				p.StockQuantity = quantityB - 1
				f.store.products[f.productB.ID] = p
			} else {
				f.store.failOn = failure
			}

			before := f.store.snapshot()

			input := validCheckoutInput()
			input.SaveAddress = saveAddress
			_, err := f.svc.PlaceOrder(context.Background(), f.user.ID, input)
			if err == nil {
				return false
			}

			return assert.ObjectsAreEqual(before, f.store) && f.tx.commits == 0
		},
		gen.OneConstOf("stock", "Orders.CreateItem", "Carts.Clear"),
		gen.IntRange(1, 5),
		gen.IntRange(1, 5),
		gen.Bool(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestPlaceOrder_InsufficientStockAtCommit(t *testing.T) {
	f := newCheckoutFixture()
	f.addToCart(f.productA.ID, uuid.NullUUID{}, 2)
	f.addToCart(f.productB.ID, uuid.NullUUID{}, 3)
	p := f.store.products[f.productB.ID]
	p.StockQuantity = 2
	f.store.products[f.productB.ID] = p

	_, err := f.svc.PlaceOrder(context.Background(), f.user.ID, validCheckoutInput())
	assert.ErrorIs(t, err, ErrInsufficientStock)
	assert.Empty(t, f.store.orders)
	assert.Empty(t, f.store.orderItems)
	assert.Equal(t, 100, f.store.products[f.productA.ID].StockQuantity)
	assert.Len(t, f.store.cart, 2)
}

func TestPlaceOrder_SavesAddress(t *testing.T) {
	t.Run("first address becomes default", func(t *testing.T) {
		f := newCheckoutFixture()
		f.addToCart(f.productA.ID, uuid.NullUUID{}, 1)
		input := validCheckoutInput()
		input.SaveAddress = true

		_, err := f.svc.PlaceOrder(context.Background(), f.user.ID, input)
		require.NoError(t, err)

		require.Len(t, f.store.addresses, 1)
		assert.True(t, f.store.addresses[0].IsDefault)
		assert.Equal(t, domain.AddressTypeShipping, f.store.addresses[0].AddressType)
		assert.Equal(t, "62701", f.store.addresses[0].ZipCode)
	})

	t.Run("make default replaces previous default", func(t *testing.T) {
		f := newCheckoutFixture()
		previous := domain.Address{ID: uuid.New(), UserID: f.user.ID, AddressType: domain.AddressTypeShipping, IsDefault: true}
		f.store.addresses = append(f.store.addresses, previous)
		f.addToCart(f.productA.ID, uuid.NullUUID{}, 1)
		input := validCheckoutInput()
		input.SaveAddress = true
		input.MakeDefault = true

		_, err := f.svc.PlaceOrder(context.Background(), f.user.ID, input)
		require.NoError(t, err)

		require.Len(t, f.store.addresses, 2)
		assert.False(t, f.store.addresses[0].IsDefault)
		assert.True(t, f.store.addresses[1].IsDefault)
	})

	t.Run("not default when user already has addresses", func(t *testing.T) {
		f := newCheckoutFixture()
		f.store.addresses = append(f.store.addresses, domain.Address{ID: uuid.New(), UserID: f.user.ID, AddressType: domain.AddressTypeShipping, IsDefault: true})
		f.addToCart(f.productA.ID, uuid.NullUUID{}, 1)
		input := validCheckoutInput()
		input.SaveAddress = true

		_, err := f.svc.PlaceOrder(context.Background(), f.user.ID, input)
		require.NoError(t, err)

		require.Len(t, f.store.addresses, 2)
		assert.True(t, f.store.addresses[0].IsDefault)
		assert.False(t, f.store.addresses[1].IsDefault)
	})

	t.Run("selected saved address is not duplicated", func(t *testing.T) {
		f := newCheckoutFixture()
		saved := domain.Address{ID: uuid.New(), UserID: f.user.ID, AddressType: domain.AddressTypeShipping}
		f.store.addresses = append(f.store.addresses, saved)
		f.addToCart(f.productA.ID, uuid.NullUUID{}, 1)
		input := validCheckoutInput()
		input.SaveAddress = true
		input.SelectedAddressID = uuid.NullUUID{UUID: saved.ID, Valid: true}

		_, err := f.svc.PlaceOrder(context.Background(), f.user.ID, input)
		require.NoError(t, err)
		assert.Len(t, f.store.addresses, 1)
	})
}

func TestOrderNumberFormat(t *testing.T) {
	svc := &checkoutService{
		orderPrefix: "TRZ",
		now:         func() time.Time { return time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC) },
	}

	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		number, err := svc.newOrderNumber()
		require.NoError(t, err)
		assert.Regexp(t, `^TRZ20240309140507\d{6}$`, number)
		seen[number] = true
	}
	assert.Greater(t, len(seen), 1)
}

func TestSummaryPrefillsUserAndAddresses(t *testing.T) {
	f := newCheckoutFixture()
	f.addToCart(f.productB.ID, uuid.NullUUID{}, 1)
	f.store.addresses = append(f.store.addresses,
		domain.Address{ID: uuid.New(), UserID: f.user.ID, AddressType: domain.AddressTypeBilling},
		domain.Address{ID: uuid.New(), UserID: f.user.ID, AddressType: domain.AddressTypeShipping, IsDefault: true},
	)

	summary, err := f.svc.Summary(context.Background(), f.user.ID)
	require.NoError(t, err)

	assert.Equal(t, "Test", summary.FirstName)
	assert.Equal(t, f.user.Email, summary.Email)
	assert.Equal(t, "79.99", summary.Cart.Totals.Subtotal.String())
	assert.Equal(t, "6.40", summary.Cart.Totals.Tax.String())
	assert.Equal(t, "86.39", summary.Cart.Totals.Total.String())
	require.Len(t, summary.Addresses, 2)
	assert.True(t, summary.Addresses[0].IsDefault)
}

func TestConfirmationIsScopedToOwner(t *testing.T) {
	f := newCheckoutFixture()
	f.addToCart(f.productA.ID, uuid.NullUUID{}, 1)
	placed, err := f.svc.PlaceOrder(context.Background(), f.user.ID, validCheckoutInput())
	require.NoError(t, err)

	stranger := f.store.addUser("other@example.com")
	_, err = f.svc.Confirmation(context.Background(), stranger.ID, placed.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.svc.Confirmation(context.Background(), f.user.ID, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}
