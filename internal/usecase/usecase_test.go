package usecase_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Markko1982/order-manager/internal/adapter/repo"
	domain "github.com/Markko1982/order-manager/internal/entity"
	"github.com/Markko1982/order-manager/internal/usecase"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memCache mirrors the redis cache: a nil entry is an eviction tombstone.
type memCache struct {
	mu     sync.Mutex
	orders map[int64]*domain.Order
}

func (c *memCache) Get(_ context.Context, id int64) (*domain.Order, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	o := c.orders[id]
	if o == nil {
		return nil, false, nil
	}
	cp := *o
	return &cp, true, nil
}

func (c *memCache) Set(_ context.Context, o *domain.Order) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := *o
	c.orders[o.ID] = &cp
	return nil
}

func (c *memCache) Fill(_ context.Context, o *domain.Order) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.orders[o.ID]; ok {
		return nil
	}
	cp := *o
	c.orders[o.ID] = &cp
	return nil
}

func (c *memCache) Evict(_ context.Context, id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.orders[id] = nil
	return nil
}

type memIdem struct {
	mu     sync.Mutex
	locks  map[string]bool
	values map[string]string
}

func (m *memIdem) TryLock(_ context.Context, scope, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locks[scope+key] {
		return false, nil
	}
	m.locks[scope+key] = true
	return true, nil
}

func (m *memIdem) Release(_ context.Context, scope, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locks, scope+key)
	return nil
}

func (m *memIdem) Remember(_ context.Context, scope, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[scope+key] = value
	return nil
}

func (m *memIdem) Recall(_ context.Context, scope, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[scope+key]
	return v, ok, nil
}

type recorder struct {
	mu      sync.Mutex
	created []usecase.CreatedMsg
	changed []usecase.StatusChangedMsg
}

func (r *recorder) PublishCreated(_ context.Context, msg usecase.CreatedMsg) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.created = append(r.created, msg)
	return nil
}

func (r *recorder) PublishStatusChanged(_ context.Context, msg usecase.StatusChangedMsg) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changed = append(r.changed, msg)
	return nil
}

type fixture struct {
	deps     usecase.Deps
	products *repo.ProductRepo
	orders   *repo.OrderRepo
	cache    *memCache
	idem     *memIdem
	events   *recorder
	now      time.Time
}

func setup(t *testing.T) *fixture {
	t.Helper()
	return setupWithDSN(t, ":memory:")
}

func setupWithDSN(t *testing.T, dsn string) *fixture {
	t.Helper()
	s, err := repo.Open(context.Background(), "sqlite", dsn, repo.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	f := &fixture{
		products: repo.NewProductRepo(s),
		orders:   repo.NewOrderRepo(s),
		cache:    &memCache{orders: map[int64]*domain.Order{}},
		idem:     &memIdem{locks: map[string]bool{}, values: map[string]string{}},
		events:   &recorder{},
		now:      time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	f.deps = usecase.Deps{
		Tx:         s,
		Products:   f.products,
		Orders:     f.orders,
		Categories: repo.NewCategoryRepo(s),
		Cache:      f.cache,
		Idem:       f.idem,
		Events:     f.events,
		Clock:      func() time.Time { return f.now },
	}
	return f
}

func (f *fixture) product(t *testing.T, name, price string, stock int) *domain.Product {
	t.Helper()
	p, err := usecase.NewCatalog(f.deps).Create(context.Background(), usecase.NewProduct{
		Name:  name,
		Price: decimal.RequireFromString(price),
		Stock: stock,
	})
	require.NoError(t, err)
	return p
}

func (f *fixture) stock(t *testing.T, id int64) int {
	t.Helper()
	p, err := f.products.Get(context.Background(), id)
	require.NoError(t, err)
	return p.Stock
}

func (f *fixture) create(items ...usecase.ItemRequest) (usecase.OrderSummary, error) {
	return usecase.NewCreateOrder(f.deps, usecase.DefaultLimits()).
		Execute(context.Background(), usecase.CreateOrderInput{ClientID: "web", Items: items})
}

func TestCreateOrder_PricesAndReserves(t *testing.T) {
	f := setup(t)
	a := f.product(t, "Monitor", "250.00", 10)
	b := f.product(t, "Dock", "150.00", 5)

	out, err := f.create(
		usecase.ItemRequest{ProductID: a.ID, Quantity: 2},
		usecase.ItemRequest{ProductID: b.ID, Quantity: 1},
	)
	require.NoError(t, err)

	assert.Equal(t, "650.00", out.Total)
	assert.Equal(t, "PENDING", out.Status)
	assert.Regexp(t, `^ORD-[0-9A-F]{12}$`, out.OrderNumber)
	require.Len(t, out.Items, 2)
	assert.Equal(t, "500.00", out.Items[0].Subtotal)
	assert.Equal(t, "Dock", out.Items[1].ProductName)
	assert.Equal(t, 8, f.stock(t, a.ID))
	assert.Equal(t, 4, f.stock(t, b.ID))

	_, cached, _ := f.cache.Get(context.Background(), out.ID)
	assert.True(t, cached)
	require.Len(t, f.events.created, 1)
	assert.Equal(t, out.ID, f.events.created[0].OrderID)
	assert.Equal(t, "650.00", f.events.created[0].Total)
}

func TestCreateOrder_InsufficientStockRollsBackEveryLine(t *testing.T) {
	f := setup(t)
	a := f.product(t, "Monitor", "10.00", 10)
	b := f.product(t, "Cable", "1.00", 1)

	_, err := f.create(
		usecase.ItemRequest{ProductID: a.ID, Quantity: 3},
		usecase.ItemRequest{ProductID: b.ID, Quantity: 5},
	)
	var stockErr *domain.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, "Cable", stockErr.ProductName)
	assert.Equal(t, 1, stockErr.Available)

	assert.Equal(t, 10, f.stock(t, a.ID))
	assert.Equal(t, 1, f.stock(t, b.ID))

	page, err := f.orders.Find(context.Background(), usecase.AnyStatus(), usecase.PageRequest{Size: 10})
	require.NoError(t, err)
	assert.Zero(t, page.TotalElements)
	assert.Empty(t, f.events.created)
}

func TestCreateOrder_ValueCeiling(t *testing.T) {
	f := setup(t)
	p := f.product(t, "Laptop", "600.00", 5)

	_, err := f.create(usecase.ItemRequest{ProductID: p.ID, Quantity: 2})
	var valErr *domain.OrderValueExceededError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "1200.00", valErr.Total.StringFixed(2))
	assert.Equal(t, 5, f.stock(t, p.ID))

	// exactly at the ceiling is allowed
	q := f.product(t, "Desk", "500.00", 5)
	out, err := f.create(usecase.ItemRequest{ProductID: q.ID, Quantity: 2})
	require.NoError(t, err)
	assert.Equal(t, "1000.00", out.Total)
}

func TestCreateOrder_UnknownProduct(t *testing.T) {
	f := setup(t)
	p := f.product(t, "Pen", "1.00", 5)

	_, err := f.create(
		usecase.ItemRequest{ProductID: p.ID, Quantity: 1},
		usecase.ItemRequest{ProductID: 999, Quantity: 1},
	)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, 5, f.stock(t, p.ID))
}

func TestCreateOrder_Validation(t *testing.T) {
	f := setup(t)

	tests := []struct {
		name  string
		items []usecase.ItemRequest
		field string
	}{
		{"empty", nil, "items"},
		{"missing product", []usecase.ItemRequest{{Quantity: 1}}, "items[0].productId"},
		{"zero quantity", []usecase.ItemRequest{{ProductID: 1, Quantity: 0}}, "items[0].quantity"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.create(tt.items...)
			var vErr *domain.ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tt.field, vErr.Field)
		})
	}
}

func TestCreateOrder_Idempotency(t *testing.T) {
	f := setup(t)
	p := f.product(t, "Pen", "2.00", 10)
	uc := usecase.NewCreateOrder(f.deps, usecase.DefaultLimits())
	in := usecase.CreateOrderInput{
		ClientID:       "web",
		IdempotencyKey: "k-1",
		Items:          []usecase.ItemRequest{{ProductID: p.ID, Quantity: 2}},
	}
	ctx := context.Background()

	first, err := uc.Execute(ctx, in)
	require.NoError(t, err)
	second, err := uc.Execute(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 8, f.stock(t, p.ID))

	// a key that is locked but not yet remembered is a duplicate in flight
	_, err = f.idem.TryLock(ctx, "web", "k-2")
	require.NoError(t, err)
	in.IdempotencyKey = "k-2"
	_, err = uc.Execute(ctx, in)
	assert.ErrorIs(t, err, domain.ErrDuplicate)
}

func TestCreateOrder_FailureReleasesKey(t *testing.T) {
	f := setup(t)
	p := f.product(t, "Pen", "2.00", 1)
	uc := usecase.NewCreateOrder(f.deps, usecase.DefaultLimits())
	in := usecase.CreateOrderInput{
		ClientID:       "web",
		IdempotencyKey: "k-1",
		Items:          []usecase.ItemRequest{{ProductID: p.ID, Quantity: 2}},
	}

	_, err := uc.Execute(context.Background(), in)
	require.ErrorIs(t, err, domain.ErrInsufficientStock)

	ok, err := f.idem.TryLock(context.Background(), "web", "k-1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestUpdateOrderStatus(t *testing.T) {
	f := setup(t)
	p := f.product(t, "Pen", "2.00", 10)
	out, err := f.create(usecase.ItemRequest{ProductID: p.ID, Quantity: 1})
	require.NoError(t, err)
	uc := usecase.NewUpdateOrderStatus(f.deps)
	ctx := context.Background()

	f.now = f.now.Add(time.Hour)
	require.NoError(t, uc.Execute(ctx, out.ID, domain.StatusConfirmed))
	o, err := f.orders.GetByID(ctx, out.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusConfirmed, o.Status)
	assert.True(t, o.UpdatedAt.Equal(f.now))

	// repeating a confirmation is accepted and not announced again
	require.NoError(t, uc.Execute(ctx, out.ID, domain.StatusConfirmed))
	require.Len(t, f.events.changed, 1)
	assert.Equal(t, usecase.StatusChangedMsg{OrderID: out.ID, From: "PENDING", To: "CONFIRMED"}, f.events.changed[0])

	err = uc.Execute(ctx, out.ID, domain.StatusPending)
	var trErr *domain.TransitionError
	require.ErrorAs(t, err, &trErr)
	assert.Equal(t, domain.StatusConfirmed, trErr.From)
	assert.Equal(t, domain.StatusPending, trErr.To)

	require.NoError(t, uc.Execute(ctx, out.ID, domain.StatusCancelled))
	assert.ErrorIs(t, uc.Execute(ctx, out.ID, domain.StatusConfirmed), domain.ErrInvalidTransition)
	assert.ErrorIs(t, uc.Execute(ctx, out.ID, domain.StatusShipped), domain.ErrInvalidTransition)

	// cancelling never gives stock back
	assert.Equal(t, 9, f.stock(t, p.ID))

	cached, ok, _ := f.cache.Get(ctx, out.ID)
	require.True(t, ok)
	assert.Equal(t, domain.StatusCancelled, cached.Status)
}

func TestUpdateOrderStatus_NotFound(t *testing.T) {
	f := setup(t)

	err := usecase.NewUpdateOrderStatus(f.deps).Execute(context.Background(), 42, domain.StatusConfirmed)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.EqualError(t, err, "order 42 not found")
}

func TestDeleteOrder(t *testing.T) {
	f := setup(t)
	p := f.product(t, "Pen", "2.00", 10)
	out, err := f.create(usecase.ItemRequest{ProductID: p.ID, Quantity: 3})
	require.NoError(t, err)
	uc := usecase.NewDeleteOrder(f.deps)
	ctx := context.Background()

	require.NoError(t, uc.Execute(ctx, out.ID))

	_, err = usecase.NewQueryOrders(f.deps).GetByID(ctx, out.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, 7, f.stock(t, p.ID))

	assert.ErrorIs(t, uc.Execute(ctx, out.ID), domain.ErrNotFound)
}

func TestQueryOrders(t *testing.T) {
	f := setup(t)
	p := f.product(t, "Pen", "1.00", 100)
	update := usecase.NewUpdateOrderStatus(f.deps)
	ctx := context.Background()

	var ids []int64
	for i := 0; i < 5; i++ {
		out, err := f.create(usecase.ItemRequest{ProductID: p.ID, Quantity: 1})
		require.NoError(t, err)
		ids = append(ids, out.ID)
	}
	require.NoError(t, update.Execute(ctx, ids[1], domain.StatusConfirmed))
	require.NoError(t, update.Execute(ctx, ids[3], domain.StatusConfirmed))

	q := usecase.NewQueryOrders(f.deps)
	page, err := q.List(ctx, usecase.OnlyStatus(domain.StatusConfirmed), usecase.PageRequest{Number: 0, Size: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.TotalElements)
	assert.Equal(t, 2, page.TotalPages())
	require.Len(t, page.Content, 1)
	assert.Equal(t, ids[1], page.Content[0].ID)

	// a cold cache falls through to the store
	f.cache.orders = map[int64]*domain.Order{}
	got, err := q.GetByID(ctx, ids[3])
	require.NoError(t, err)
	assert.Equal(t, "CONFIRMED", got.Status)
	_, ok, _ := f.cache.Get(ctx, ids[3])
	assert.True(t, ok)
}

func TestCatalogValidation(t *testing.T) {
	f := setup(t)
	c := usecase.NewCatalog(f.deps)

	_, err := c.Create(context.Background(), usecase.NewProduct{Name: " ", Price: decimal.NewFromInt(1)})
	assert.True(t, errors.Is(err, domain.ErrValidation))

	_, err = c.Create(context.Background(), usecase.NewProduct{Name: "x", Price: decimal.NewFromInt(-1)})
	assert.True(t, errors.Is(err, domain.ErrValidation))

	p, err := c.Create(context.Background(), usecase.NewProduct{Name: "x", Price: decimal.RequireFromString("1.005"), Stock: 1})
	require.NoError(t, err)
	assert.Equal(t, "1.01", p.Price.StringFixed(2))
}
