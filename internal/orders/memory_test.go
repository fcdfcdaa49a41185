package orders

import (
	"context"
	"testing"
	"time"

	"github.com/ariefcatur/go-storefront/internal/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seededStock(t *testing.T) *catalog.MemoryRepository {
	t.Helper()
	stock := catalog.NewMemoryRepository()
	for _, p := range []catalog.Product{
		{ID: "p1", Name: "Batik Shirt", Price: 100000, Stock: 5, IsActive: true},
		{ID: "p2", Name: "Rice Cooker", Price: 300000, Stock: 1, IsActive: true},
	} {
		require.NoError(t, stock.Create(context.Background(), &p))
	}
	return stock
}

func stockOf(t *testing.T, repo *catalog.MemoryRepository, id string) int {
	t.Helper()
	p, err := repo.Get(context.Background(), id)
	require.NoError(t, err)
	return p.Stock
}

func TestMemoryRepository_CreateReservesStock(t *testing.T) {
	ctx := context.Background()
	stock := seededStock(t)
	repo := NewMemoryRepository(stock)

	o := &Order{UserID: "u-1", Items: []Item{{ProductID: "p1", Quantity: 2, PriceAtPurchase: 100000}}, IdempotencyKey: "k1"}
	require.NoError(t, repo.Create(ctx, o))
	assert.NotEmpty(t, o.ID)
	assert.Equal(t, StatusPending, o.Status)
	assert.Equal(t, PaymentPending, o.PaymentStatus)
	assert.Equal(t, 3, stockOf(t, stock, "p1"))

	dup := &Order{UserID: "u-1", Items: []Item{{ProductID: "p1", Quantity: 1}}, IdempotencyKey: "k1"}
	assert.ErrorIs(t, repo.Create(ctx, dup), ErrDuplicateKey)
	assert.Equal(t, 3, stockOf(t, stock, "p1"))

	short := &Order{UserID: "u-1", Items: []Item{{ProductID: "p1", Quantity: 1}, {ProductID: "p2", Quantity: 2}}}
	assert.ErrorIs(t, repo.Create(ctx, short), catalog.ErrInsufficientStock)
	assert.Equal(t, 3, stockOf(t, stock, "p1"), "failed order reserves nothing")

	got, err := repo.GetByIdempotencyKey(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, o.ID, got.ID)
}

func TestMemoryRepository_UpdateStatusCAS(t *testing.T) {
	ctx := context.Background()
	stock := seededStock(t)
	repo := NewMemoryRepository(stock)
	o := &Order{UserID: "u-1", Items: []Item{{ProductID: "p1", Quantity: 2}}}
	require.NoError(t, repo.Create(ctx, o))

	_, err := repo.UpdateStatus(ctx, o.ID, StatusConfirmed, StatusProcessing, false)
	assert.ErrorIs(t, err, ErrStatusConflict)
	_, err = repo.UpdateStatus(ctx, "missing", StatusPending, StatusConfirmed, false)
	assert.ErrorIs(t, err, ErrNotFound)

	got, err := repo.UpdateStatus(ctx, o.ID, StatusPending, StatusCancelled, true)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, got.Status)
	assert.Equal(t, 5, stockOf(t, stock, "p1"))

	assert.Equal(t, PaymentPending, got.PaymentStatus, "only a paid order is refunded")

	_, err = repo.UpdatePaymentStatus(ctx, o.ID, PaymentPaid, PaymentRefunded, "")
	assert.ErrorIs(t, err, ErrStatusConflict)
	got, err = repo.UpdatePaymentStatus(ctx, o.ID, PaymentPending, PaymentFailed, "ref-9")
	require.NoError(t, err)
	assert.Equal(t, "ref-9", got.PaymentReference)
}

func TestMemoryRepository_ListFiltersAndOrder(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository(seededStock(t))
	clock := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { clock = clock.Add(time.Minute); return clock }

	mk := func(user, method string) *Order {
		o := &Order{UserID: user, PaymentMethod: method, Items: []Item{{ProductID: "p1", Quantity: 1}}}
		require.NoError(t, repo.Create(ctx, o))
		return o
	}
	a := mk("u-1", "cod")
	b := mk("u-2", "qris")
	c := mk("u-1", "qris")
	_, err := repo.UpdateStatus(ctx, b.ID, StatusPending, StatusConfirmed, false)
	require.NoError(t, err)

	mine, err := repo.ListByUser(ctx, "u-1")
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, c.ID, mine[0].ID, "newest first")
	assert.Equal(t, a.ID, mine[1].ID)

	qris, _ := repo.List(ctx, ListFilter{PaymentMethod: "qris"})
	assert.Len(t, qris, 2)
	pending, _ := repo.List(ctx, ListFilter{Status: StatusPending, PaymentMethod: "qris"})
	require.Len(t, pending, 1)
	assert.Equal(t, c.ID, pending[0].ID)
	page, _ := repo.List(ctx, ListFilter{Limit: 1, Offset: 1})
	require.Len(t, page, 1)
	assert.Equal(t, b.ID, page[0].ID)
	empty, _ := repo.List(ctx, ListFilter{Offset: 10})
	assert.Empty(t, empty)
}

func TestMemoryRepository_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository(seededStock(t))
	o := &Order{UserID: "u-1", Items: []Item{{ProductID: "p1", Quantity: 1, Name: "Batik Shirt"}}}
	require.NoError(t, repo.Create(ctx, o))

	o.Items[0].Name = "changed"
	got, _ := repo.Get(ctx, o.ID)
	got.Items[0].Quantity = 99
	again, _ := repo.Get(ctx, o.ID)
	assert.Equal(t, "Batik Shirt", again.Items[0].Name)
	assert.Equal(t, 1, again.Items[0].Quantity)
}

func TestSummarize(t *testing.T) {
	list := []Order{
		{Status: StatusDelivered, PaymentMethod: "cod", Total: 240000,
			Items: []Item{{ProductID: "p1", Name: "Batik Shirt", Quantity: 2, PriceAtPurchase: 100000}}},
		{Status: StatusPending, PaymentMethod: "qris", Total: 120000,
			Items: []Item{{ProductID: "p2", Name: "Arabica", Quantity: 1, PriceAtPurchase: 100000}}},
		{Status: StatusCancelled, PaymentMethod: "cod", Total: 999999,
			Items: []Item{{ProductID: "p3", Name: "Lamp", Quantity: 9, PriceAtPurchase: 100000}}},
		{Status: StatusShipped, PaymentMethod: "credit_card", Total: 60000},
	}
	s := Summarize(list)

	assert.Equal(t, 4, s.TotalOrders)
	assert.Equal(t, int64(420000), s.TotalRevenue)
	assert.Equal(t, 1, s.PendingOrders)
	assert.Equal(t, 1, s.DeliveredOrders)
	assert.Equal(t, 1, s.CancelledOrders)
	assert.Equal(t, 2, s.CODOrders)
	assert.Equal(t, 2, s.OnlineOrders)
	assert.Equal(t, int64(240000), s.CODRevenue)
	assert.Equal(t, int64(180000), s.OnlineRevenue)
	assert.Equal(t, int64(140000), s.AverageOrderValue)
	assert.InDelta(t, 25.0, s.CompletionRate, 0.001)
	assert.Equal(t, 2, s.ByPaymentMethod["cod"])
	assert.Equal(t, 1, s.ByStatus[StatusShipped])
	require.Len(t, s.TopProducts, 2)
	assert.Equal(t, "p1", s.TopProducts[0].ProductID)
	assert.Equal(t, int64(200000), s.TopProducts[0].Revenue)
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil)
	assert.Zero(t, s.AverageOrderValue)
	assert.Zero(t, s.CompletionRate)
	assert.NotNil(t, s.TopProducts)
}
