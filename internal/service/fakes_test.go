package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"storefront/internal/domain"
	"storefront/internal/repository"

	"github.com/google/uuid"
)

var errInjected = errors.New("injected failure")

// memStore is an in-memory stand-in for the database behind every repository.
type memStore struct {
	users      map[uuid.UUID]domain.User
	tokens     map[string]domain.RefreshToken
	categories map[uuid.UUID]domain.Category
	products   map[uuid.UUID]domain.Product
	variants   map[uuid.UUID]domain.ProductVariant
	images     []domain.ProductImage
	cart       []domain.CartItem
	addresses  []domain.Address
	orders     []domain.Order
	orderItems []domain.OrderItem

	// failOn names an operation ("Carts.Clear", "Orders.CreateItem", ...) that returns errInjected.
	failOn string
	clock  time.Time
}

func newMemStore() *memStore {
	return &memStore{
		users:      map[uuid.UUID]domain.User{},
		tokens:     map[string]domain.RefreshToken{},
		categories: map[uuid.UUID]domain.Category{},
		products:   map[uuid.UUID]domain.Product{},
		variants:   map[uuid.UUID]domain.ProductVariant{},
		clock:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (s *memStore) tick() time.Time {
	s.clock = s.clock.Add(time.Second)
	return s.clock
}

func (s *memStore) fail(op string) error {
	if s.failOn == op {
		return errInjected
	}
	return nil
}

func (s *memStore) snapshot() *memStore {
	c := &memStore{
		users:      make(map[uuid.UUID]domain.User, len(s.users)),
		tokens:     make(map[string]domain.RefreshToken, len(s.tokens)),
		categories: make(map[uuid.UUID]domain.Category, len(s.categories)),
		products:   make(map[uuid.UUID]domain.Product, len(s.products)),
		variants:   make(map[uuid.UUID]domain.ProductVariant, len(s.variants)),
		images:     append([]domain.ProductImage(nil), s.images...),
		cart:       append([]domain.CartItem(nil), s.cart...),
		addresses:  append([]domain.Address(nil), s.addresses...),
		orders:     append([]domain.Order(nil), s.orders...),
		orderItems: append([]domain.OrderItem(nil), s.orderItems...),
		failOn:     s.failOn,
		clock:      s.clock,
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.tokens {
		c.tokens[k] = v
	}
	for k, v := range s.categories {
		c.categories[k] = v
	}
	for k, v := range s.products {
		c.products[k] = v
	}
	for k, v := range s.variants {
		c.variants[k] = v
	}
	return c
}

func (s *memStore) restore(from *memStore) {
	*s = *from
}

func (s *memStore) repos() *repository.Repositories {
	return &repository.Repositories{
		Users:         &fakeUsers{s},
		RefreshTokens: &fakeTokens{s},
		Categories:    &fakeCategories{s},
		Products:      &fakeProducts{s},
		Carts:         &fakeCarts{s},
		Addresses:     &fakeAddresses{s},
		Orders:        &fakeOrders{s},
	}
}

// fakeTransactor restores the store snapshot when fn fails, so tests can
// observe rollback.
type fakeTransactor struct {
	s       *memStore
	commits int
}

func (t *fakeTransactor) WithinTx(ctx context.Context, fn func(tx *repository.Repositories) error) error {
	snap := t.s.snapshot()
	if err := fn(t.s.repos()); err != nil {
		t.s.restore(snap)
		return err
	}
	t.commits++
	return nil
}

// fixtures

func (s *memStore) addUser(email string) *domain.User {
	u := domain.User{
		ID:        uuid.New(),
		Email:     email,
		FirstName: "Test",
		LastName:  "Shopper",
		Role:      domain.RoleCustomer,
	}
	s.users[u.ID] = u
	return &u
}

func (s *memStore) addCategory(name string) *domain.Category {
	c := domain.Category{ID: uuid.New(), Name: name, IsActive: true, SortOrder: len(s.categories)}
	s.categories[c.ID] = c
	return &c
}

func (s *memStore) addProduct(categoryID uuid.UUID, name, price string, stock int) *domain.Product {
	p := domain.Product{
		ID:            uuid.New(),
		Name:          name,
		Price:         domain.MustMoney(price),
		SKU:           strings.ToUpper(name) + "-SKU",
		StockQuantity: stock,
		IsActive:      true,
		CategoryID:    categoryID,
		CreatedAt:     s.tick(),
	}
	s.products[p.ID] = p
	return &p
}

func (s *memStore) addVariant(productID uuid.UUID, size string, stock int, adjustment string) *domain.ProductVariant {
	v := domain.ProductVariant{
		ID:            uuid.New(),
		ProductID:     productID,
		Size:          size,
		SKU:           "VAR-" + size + "-" + uuid.NewString()[:4],
		StockQuantity: stock,
		IsActive:      true,
	}
	if adjustment != "" {
		adj := domain.MustMoney(adjustment)
		v.PriceAdjustment = &adj
	}
	s.variants[v.ID] = v
	return &v
}

func (s *memStore) cartRows(owner domain.Owner) []domain.CartItem {
	var rows []domain.CartItem
	for _, item := range s.cart {
		if item.Owner == owner {
			rows = append(rows, item)
		}
	}
	return rows
}

// users

type fakeUsers struct{ s *memStore }

func (r *fakeUsers) Create(ctx context.Context, user *domain.User) error {
	for _, u := range r.s.users {
		if u.Email == user.Email {
			return repository.ErrUserAlreadyExists
		}
	}
	r.s.users[user.ID] = *user
	return nil
}

func (r *fakeUsers) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	for _, u := range r.s.users {
		if u.Email == email {
			u := u
			return &u, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (r *fakeUsers) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	u, ok := r.s.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return &u, nil
}

func (r *fakeUsers) UpdateProfile(ctx context.Context, id uuid.UUID, firstName, lastName, phone string) error {
	u, ok := r.s.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.FirstName, u.LastName, u.Phone = firstName, lastName, phone
	r.s.users[id] = u
	return nil
}

// refresh tokens

type fakeTokens struct{ s *memStore }

func (r *fakeTokens) Create(ctx context.Context, token *domain.RefreshToken) error {
	r.s.tokens[token.Token] = *token
	return nil
}

func (r *fakeTokens) FindByToken(ctx context.Context, token string) (*domain.RefreshToken, error) {
	t, ok := r.s.tokens[token]
	if !ok {
		return nil, repository.ErrRefreshTokenNotFound
	}
	if t.Revoked {
		return nil, repository.ErrRefreshTokenRevoked
	}
	return &t, nil
}

func (r *fakeTokens) Revoke(ctx context.Context, token string) error {
	t, ok := r.s.tokens[token]
	if !ok {
		return repository.ErrRefreshTokenNotFound
	}
	t.Revoked = true
	r.s.tokens[token] = t
	return nil
}

func (r *fakeTokens) PruneForUser(ctx context.Context, userID uuid.UUID, now time.Time) (int64, error) {
	var pruned int64
	for key, t := range r.s.tokens {
		if t.UserID == userID && (t.Revoked || !t.ExpiresAt.After(now)) {
			delete(r.s.tokens, key)
			pruned++
		}
	}
	return pruned, nil
}

// categories

type fakeCategories struct{ s *memStore }

func (r *fakeCategories) Create(ctx context.Context, category *domain.Category) error {
	for _, c := range r.s.categories {
		if c.Name == category.Name {
			return repository.ErrCategoryAlreadyExists
		}
	}
	r.s.categories[category.ID] = *category
	return nil
}

func (r *fakeCategories) List(ctx context.Context, activeOnly bool) ([]*domain.Category, error) {
	out := []*domain.Category{}
	for _, c := range r.s.categories {
		if activeOnly && !c.IsActive {
			continue
		}
		c := c
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (r *fakeCategories) FindByID(ctx context.Context, id uuid.UUID) (*domain.Category, error) {
	c, ok := r.s.categories[id]
	if !ok {
		return nil, repository.ErrCategoryNotFound
	}
	return &c, nil
}

// products

type fakeProducts struct{ s *memStore }

func (r *fakeProducts) Create(ctx context.Context, product *domain.Product) error {
	for _, p := range r.s.products {
		if p.SKU == product.SKU {
			return repository.ErrProductSKUExists
		}
	}
	r.s.products[product.ID] = *product
	return nil
}

func (r *fakeProducts) CreateVariant(ctx context.Context, variant *domain.ProductVariant) error {
	r.s.variants[variant.ID] = *variant
	return nil
}

func (r *fakeProducts) CreateImage(ctx context.Context, image *domain.ProductImage) error {
	if err := r.s.fail("Products.CreateImage"); err != nil {
		return err
	}
	r.s.images = append(r.s.images, *image)
	return nil
}

func (r *fakeProducts) withJoins(p domain.Product) *domain.Product {
	p.CategoryName = r.s.categories[p.CategoryID].Name
	return &p
}

func (r *fakeProducts) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	p, ok := r.s.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	return r.withJoins(p), nil
}

func (r *fakeProducts) FindVariantByID(ctx context.Context, id uuid.UUID) (*domain.ProductVariant, error) {
	v, ok := r.s.variants[id]
	if !ok {
		return nil, repository.ErrVariantNotFound
	}
	return &v, nil
}

func (r *fakeProducts) ListVariants(ctx context.Context, productID uuid.UUID, activeOnly bool) ([]domain.ProductVariant, error) {
	out := []domain.ProductVariant{}
	for _, v := range r.s.variants {
		if v.ProductID == productID && (!activeOnly || v.IsActive) {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SKU < out[j].SKU })
	return out, nil
}

func (r *fakeProducts) ListImages(ctx context.Context, productID uuid.UUID) ([]domain.ProductImage, error) {
	out := []domain.ProductImage{}
	for _, img := range r.s.images {
		if img.ProductID == productID {
			out = append(out, img)
		}
	}
	return out, nil
}

func (r *fakeProducts) List(ctx context.Context, filter repository.ProductFilter) ([]*domain.Product, int, error) {
	var matched []*domain.Product
	term := strings.ToLower(strings.TrimSpace(filter.Search))
	for _, p := range r.s.products {
		if filter.ActiveOnly && !p.IsActive {
			continue
		}
		if filter.CategoryID != nil && p.CategoryID != *filter.CategoryID {
			continue
		}
		category := r.s.categories[p.CategoryID].Name
		if filter.CategoryName != "" && !strings.EqualFold(category, filter.CategoryName) {
			continue
		}
		if term != "" {
			fields := []string{p.Name, p.Description}
			switch filter.SearchScope {
			case repository.SearchNameSKU:
				fields = []string{p.Name, p.SKU}
			case repository.SearchNameDescriptionCategory:
				fields = append(fields, category)
			}
			hit := false
			for _, f := range fields {
				if strings.Contains(strings.ToLower(f), term) {
					hit = true
				}
			}
			if !hit {
				continue
			}
		}
		matched = append(matched, r.withJoins(p))
	}

	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if filter.SortOrder == repository.SortOrderDesc {
			a, b = b, a
		}
		switch filter.SortBy {
		case "price":
			return a.Price.LessThan(b.Price.Decimal)
		case "created_at":
			return a.CreatedAt.Before(b.CreatedAt)
		default:
			return a.Name < b.Name
		}
	})

	total := len(matched)
	start := (domain.NormalizePage(filter.Page) - 1) * filter.PageSize
	if start > total {
		start = total
	}
	end := min(start+filter.PageSize, total)
	return matched[start:end], total, nil
}

func (r *fakeProducts) Related(ctx context.Context, categoryID, excludeID uuid.UUID, limit int) ([]*domain.Product, error) {
	id := categoryID
	products, _, _ := r.List(ctx, repository.ProductFilter{ActiveOnly: true, CategoryID: &id, Page: 1, PageSize: 1000})
	out := []*domain.Product{}
	for _, p := range products {
		if p.ID != excludeID && len(out) < limit {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *fakeProducts) LowStock(ctx context.Context, threshold, limit int) ([]*domain.Product, error) {
	out := []*domain.Product{}
	for _, p := range r.s.products {
		if p.IsActive && p.StockQuantity <= threshold {
			out = append(out, r.withJoins(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StockQuantity < out[j].StockQuantity })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeProducts) Counts(ctx context.Context) (int, int, error) {
	active := 0
	for _, p := range r.s.products {
		if p.IsActive {
			active++
		}
	}
	return len(r.s.products), active, nil
}

func (r *fakeProducts) ToggleActive(ctx context.Context, id uuid.UUID) (bool, error) {
	p, ok := r.s.products[id]
	if !ok {
		return false, repository.ErrProductNotFound
	}
	p.IsActive = !p.IsActive
	r.s.products[id] = p
	return p.IsActive, nil
}

func (r *fakeProducts) SetStock(ctx context.Context, id uuid.UUID, quantity int) error {
	p, ok := r.s.products[id]
	if !ok {
		return repository.ErrProductNotFound
	}
	p.StockQuantity = quantity
	r.s.products[id] = p
	return nil
}

func (r *fakeProducts) DecrementStock(ctx context.Context, id uuid.UUID, quantity int) error {
	p, ok := r.s.products[id]
	if !ok || p.StockQuantity < quantity {
		return repository.ErrInsufficientStock
	}
	p.StockQuantity -= quantity
	r.s.products[id] = p
	return nil
}

func (r *fakeProducts) DecrementVariantStock(ctx context.Context, id uuid.UUID, quantity int) error {
	v, ok := r.s.variants[id]
	if !ok || v.StockQuantity < quantity {
		return repository.ErrInsufficientStock
	}
	v.StockQuantity -= quantity
	r.s.variants[id] = v
	return nil
}

// carts

type fakeCarts struct{ s *memStore }

func (r *fakeCarts) enrich(item domain.CartItem) *domain.CartItem {
	p := r.s.products[item.ProductID]
	item.Product = &p
	if item.VariantID.Valid {
		v := r.s.variants[item.VariantID.UUID]
		item.Variant = &v
	}
	return &item
}

func (r *fakeCarts) ListByOwner(ctx context.Context, owner domain.Owner) ([]*domain.CartItem, error) {
	out := []*domain.CartItem{}
	for _, item := range r.s.cartRows(owner) {
		out = append(out, r.enrich(item))
	}
	return out, nil
}

func (r *fakeCarts) FindByID(ctx context.Context, owner domain.Owner, id uuid.UUID) (*domain.CartItem, error) {
	for _, item := range r.s.cart {
		if item.ID == id && item.Owner == owner {
			return r.enrich(item), nil
		}
	}
	return nil, repository.ErrCartItemNotFound
}

func (r *fakeCarts) AddOrMerge(ctx context.Context, owner domain.Owner, productID uuid.UUID, variantID uuid.NullUUID, quantity int) error {
	if err := r.s.fail("Carts.AddOrMerge"); err != nil {
		return err
	}
	for i, item := range r.s.cart {
		if item.Owner == owner && item.ProductID == productID && item.VariantID == variantID {
			r.s.cart[i].Quantity += quantity
			r.s.cart[i].DateModified = r.s.tick()
			return nil
		}
	}
	now := r.s.tick()
	r.s.cart = append(r.s.cart, domain.CartItem{
		ID:           uuid.New(),
		Owner:        owner,
		ProductID:    productID,
		VariantID:    variantID,
		Quantity:     quantity,
		DateAdded:    now,
		DateModified: now,
	})
	return nil
}

func (r *fakeCarts) UpdateQuantity(ctx context.Context, owner domain.Owner, id uuid.UUID, quantity int) error {
	for i, item := range r.s.cart {
		if item.ID == id && item.Owner == owner {
			r.s.cart[i].Quantity = quantity
			return nil
		}
	}
	return repository.ErrCartItemNotFound
}

func (r *fakeCarts) Delete(ctx context.Context, owner domain.Owner, id uuid.UUID) error {
	for i, item := range r.s.cart {
		if item.ID == id && item.Owner == owner {
			r.s.cart = append(r.s.cart[:i:i], r.s.cart[i+1:]...)
			return nil
		}
	}
	return repository.ErrCartItemNotFound
}

func (r *fakeCarts) Clear(ctx context.Context, owner domain.Owner) error {
	if err := r.s.fail("Carts.Clear"); err != nil {
		return err
	}
	kept := []domain.CartItem{}
	for _, item := range r.s.cart {
		if item.Owner != owner {
			kept = append(kept, item)
		}
	}
	r.s.cart = kept
	return nil
}

func (r *fakeCarts) Count(ctx context.Context, owner domain.Owner) (int, error) {
	total := 0
	for _, item := range r.s.cartRows(owner) {
		total += item.Quantity
	}
	return total, nil
}

// addresses

type fakeAddresses struct{ s *memStore }

func (r *fakeAddresses) Create(ctx context.Context, address *domain.Address) error {
	if address.IsDefault {
		for _, a := range r.s.addresses {
			if a.UserID == address.UserID && a.AddressType == address.AddressType && a.IsDefault {
				return errors.New("duplicate default address")
			}
		}
	}
	r.s.addresses = append(r.s.addresses, *address)
	return nil
}

func (r *fakeAddresses) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Address, error) {
	out := []*domain.Address{}
	for _, a := range r.s.addresses {
		if a.UserID == userID {
			a := a
			out = append(out, &a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].IsDefault != out[j].IsDefault {
			return out[i].IsDefault
		}
		return out[i].AddressType > out[j].AddressType
	})
	return out, nil
}

func (r *fakeAddresses) FindByID(ctx context.Context, userID, id uuid.UUID) (*domain.Address, error) {
	for _, a := range r.s.addresses {
		if a.ID == id && a.UserID == userID {
			return &a, nil
		}
	}
	return nil, repository.ErrAddressNotFound
}

func (r *fakeAddresses) CountByUser(ctx context.Context, userID uuid.UUID) (int, error) {
	n := 0
	for _, a := range r.s.addresses {
		if a.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (r *fakeAddresses) Delete(ctx context.Context, userID, id uuid.UUID) error {
	for i, a := range r.s.addresses {
		if a.ID == id && a.UserID == userID {
			r.s.addresses = append(r.s.addresses[:i:i], r.s.addresses[i+1:]...)
			return nil
		}
	}
	return repository.ErrAddressNotFound
}

func (r *fakeAddresses) ClearDefault(ctx context.Context, userID uuid.UUID, addressType domain.AddressType) error {
	for i, a := range r.s.addresses {
		if a.UserID == userID && a.AddressType == addressType {
			r.s.addresses[i].IsDefault = false
		}
	}
	return nil
}

func (r *fakeAddresses) MarkDefault(ctx context.Context, userID, id uuid.UUID) error {
	for i, a := range r.s.addresses {
		if a.ID == id && a.UserID == userID {
			for _, other := range r.s.addresses {
				if other.ID != id && other.UserID == userID && other.AddressType == a.AddressType && other.IsDefault {
					return errors.New("duplicate default address")
				}
			}
			r.s.addresses[i].IsDefault = true
			return nil
		}
	}
	return repository.ErrAddressNotFound
}

// orders

type fakeOrders struct{ s *memStore }

func (r *fakeOrders) Create(ctx context.Context, order *domain.Order) error {
	if !order.TotalAmount.Equal(order.Subtotal.Plus(order.TaxAmount).Plus(order.ShippingAmount).Decimal) {
		return errors.New("chk_orders_total violated")
	}
	stored := *order
	stored.Items = nil
	r.s.orders = append(r.s.orders, stored)
	return nil
}

func (r *fakeOrders) CreateItem(ctx context.Context, item *domain.OrderItem) error {
	if err := r.s.fail("Orders.CreateItem"); err != nil {
		return err
	}
	r.s.orderItems = append(r.s.orderItems, *item)
	return nil
}

func (r *fakeOrders) withEmail(o domain.Order) *domain.Order {
	o.CustomerEmail = r.s.users[o.UserID].Email
	return &o
}

func (r *fakeOrders) FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	for _, o := range r.s.orders {
		if o.ID == id {
			return r.withEmail(o), nil
		}
	}
	return nil, repository.ErrOrderNotFound
}

func (r *fakeOrders) ListItems(ctx context.Context, orderIDs ...uuid.UUID) (map[uuid.UUID][]domain.OrderItem, error) {
	out := map[uuid.UUID][]domain.OrderItem{}
	for _, id := range orderIDs {
		for _, item := range r.s.orderItems {
			if item.OrderID == id {
				out[id] = append(out[id], item)
			}
		}
	}
	return out, nil
}

func (r *fakeOrders) List(ctx context.Context, filter repository.OrderFilter) ([]*domain.Order, int, error) {
	var matched []*domain.Order
	for i := len(r.s.orders) - 1; i >= 0; i-- {
		o := r.s.orders[i]
		if filter.UserID != nil && o.UserID != *filter.UserID {
			continue
		}
		if filter.Status != "" && o.Status != filter.Status {
			continue
		}
		matched = append(matched, r.withEmail(o))
	}
	total := len(matched)
	start := min((domain.NormalizePage(filter.Page)-1)*filter.PageSize, total)
	end := min(start+filter.PageSize, total)
	return matched[start:end], total, nil
}

func (r *fakeOrders) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus, trackingNumber *string) error {
	for i, o := range r.s.orders {
		if o.ID != id {
			continue
		}
		now := r.s.tick()
		o.Status = status
		if trackingNumber != nil {
			o.TrackingNumber = *trackingNumber
		}
		if status == domain.OrderStatusShipped && o.ShippedDate == nil {
			o.ShippedDate = &now
		}
		if status == domain.OrderStatusDelivered && o.DeliveredDate == nil {
			o.DeliveredDate = &now
		}
		r.s.orders[i] = o
		return nil
	}
	return repository.ErrOrderNotFound
}

func (r *fakeOrders) Stats(ctx context.Context) (*repository.OrderStats, error) {
	stats := &repository.OrderStats{Total: len(r.s.orders)}
	for _, o := range r.s.orders {
		switch o.Status {
		case domain.OrderStatusPending:
			stats.Pending++
		case domain.OrderStatusProcessing:
			stats.Processing++
		case domain.OrderStatusDelivered:
			stats.Revenue = stats.Revenue.Plus(o.TotalAmount)
		}
	}
	return stats, nil
}
