package orders

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/ariefcatur/go-storefront/internal/catalog"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var orderCols = []string{"id", "user_id", "customer", "status", "payment_method", "payment_status",
	"payment_reference", "shipping_method", "subtotal", "shipping_cost", "processing_fee", "tax_amount",
	"discount_amount", "total_amount", "idempotency_key", "created_at", "updated_at"}

const customerJSON = `{"full_name":"Ayu Lestari","email":"ayu@example.com","phone":"081234567890",` +
	`"address":"Jl. Merdeka No. 10","city":"Bandung","postal_code":"40111"}`

func orderRow(id string, st Status, ps PaymentStatus) *pgxmock.Rows {
	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	return pgxmock.NewRows(orderCols).AddRow(id, "u-1", []byte(customerJSON), st, "cod", ps, "", "regular",
		int64(200000), int64(20000), int64(0), int64(20000), int64(0), int64(240000), "", now, now)
}

func itemRows(orderID string) *pgxmock.Rows {
	return pgxmock.NewRows([]string{"order_id", "product_id", "name", "quantity", "price_at_purchase"}).
		AddRow(orderID, "p1", "Batik Shirt", 2, int64(100000))
}

func TestPostgresRepository_CreateInOneTx(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	repo := &PostgresRepository{DB: mock}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT stock FROM products WHERE id=$1 FOR UPDATE")).
		WithArgs("p1").
		WillReturnRows(pgxmock.NewRows([]string{"stock"}).AddRow(5))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE products SET stock = stock - $2")).
		WithArgs("p1", 2).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO orders(")).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO order_items(")).
		WithArgs(pgxmock.AnyArg(), 0, "p1", "Batik Shirt", 2, int64(100000)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	o := &Order{UserID: "u-1", PaymentMethod: "cod", ShippingMethod: "regular",
		Items: []Item{{ProductID: "p1", Name: "Batik Shirt", Quantity: 2, PriceAtPurchase: 100000}}}
	require.NoError(t, repo.Create(context.Background(), o))
	assert.NotEmpty(t, o.ID)
	assert.Equal(t, StatusPending, o.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_CreateShortageRollsBack(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	repo := &PostgresRepository{DB: mock}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT stock FROM products WHERE id=$1 FOR UPDATE")).
		WithArgs("p1").
		WillReturnRows(pgxmock.NewRows([]string{"stock"}).AddRow(1))
	mock.ExpectRollback()

	o := &Order{UserID: "u-1", Items: []Item{{ProductID: "p1", Quantity: 2}}}
	assert.ErrorIs(t, repo.Create(context.Background(), o), catalog.ErrInsufficientStock)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_CreateDuplicateKey(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	repo := &PostgresRepository{DB: mock}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WillReturnRows(pgxmock.NewRows([]string{"stock"}).AddRow(5))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE products SET stock")).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO orders(")).
		WillReturnError(&pgconn.PgError{Code: "23505"})
	mock.ExpectRollback()

	o := &Order{UserID: "u-1", IdempotencyKey: "k1", Items: []Item{{ProductID: "p1", Quantity: 1}}}
	assert.ErrorIs(t, repo.Create(context.Background(), o), ErrDuplicateKey)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_GetLoadsItems(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	repo := &PostgresRepository{DB: mock}

	mock.ExpectQuery(regexp.QuoteMeta("FROM orders WHERE id=$1")).
		WithArgs("o-1").
		WillReturnRows(orderRow("o-1", StatusShipped, PaymentPaid))
	mock.ExpectQuery(regexp.QuoteMeta("FROM order_items WHERE order_id = ANY($1)")).
		WithArgs([]string{"o-1"}).
		WillReturnRows(itemRows("o-1"))

	o, err := repo.Get(context.Background(), "o-1")
	require.NoError(t, err)
	assert.Equal(t, StatusShipped, o.Status)
	assert.Equal(t, "Bandung", o.Customer.City)
	require.Len(t, o.Items, 1)
	assert.Equal(t, int64(100000), o.Items[0].PriceAtPurchase)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_CancelRestocksAndRefundsInOneTx(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	repo := &PostgresRepository{DB: mock}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE orders SET status=$3")).
		WithArgs("o-1", StatusPending, StatusCancelled, true, PaymentPaid, PaymentRefunded).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT product_id, quantity FROM order_items")).
		WithArgs("o-1").
		WillReturnRows(pgxmock.NewRows([]string{"product_id", "quantity"}).AddRow("p1", 2))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE products SET stock = stock + $2")).
		WithArgs("p1", 2).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()
	mock.ExpectQuery(regexp.QuoteMeta("FROM orders WHERE id=$1")).
		WithArgs("o-1").
		WillReturnRows(orderRow("o-1", StatusCancelled, PaymentRefunded))
	mock.ExpectQuery(regexp.QuoteMeta("FROM order_items")).
		WillReturnRows(itemRows("o-1"))

	o, err := repo.UpdateStatus(context.Background(), "o-1", StatusPending, StatusCancelled, true)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, o.Status)
	assert.Equal(t, PaymentRefunded, o.PaymentStatus)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_UpdateStatusConflictAndMissing(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	repo := &PostgresRepository{DB: mock}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE orders SET status=$3")).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM orders WHERE id=$1")).
		WithArgs("o-1").
		WillReturnRows(pgxmock.NewRows([]string{"one"}).AddRow(1))
	mock.ExpectRollback()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE orders SET payment_status=$3")).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM orders WHERE id=$1")).
		WithArgs("nope").
		WillReturnRows(pgxmock.NewRows([]string{"one"}))
	mock.ExpectRollback()

	_, err = repo.UpdateStatus(context.Background(), "o-1", StatusPending, StatusConfirmed, false)
	assert.ErrorIs(t, err, ErrStatusConflict)
	_, err = repo.UpdatePaymentStatus(context.Background(), "nope", PaymentPending, PaymentPaid, "")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBuildListQuery(t *testing.T) {
	q, args := buildListQuery(ListFilter{Status: StatusPending, PaymentMethod: "cod", Limit: 1000})
	assert.Contains(t, q, "WHERE status = $1 AND payment_method = $2 ORDER BY created_at DESC, id LIMIT $3 OFFSET $4")
	assert.Equal(t, []any{StatusPending, "cod", MaxListLimit, 0}, args)

	q, args = buildListQuery(ListFilter{})
	assert.NotContains(t, q, "WHERE")
	assert.Equal(t, []any{DefaultListLimit, 0}, args)
}

func TestPostgresRepository_Stats(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	repo := &PostgresRepository{DB: mock}

	mock.ExpectQuery(regexp.QuoteMeta("count(*) FILTER (WHERE status = 'pending')")).
		WithArgs("cod").
		WillReturnRows(pgxmock.NewRows([]string{"total", "pending", "delivered", "cancelled", "cod", "online", "revenue", "cod_revenue"}).
			AddRow(4, 1, 2, 1, 2, 2, int64(600000), int64(200000)))
	mock.ExpectQuery(regexp.QuoteMeta("GROUP BY status, payment_method")).
		WillReturnRows(pgxmock.NewRows([]string{"status", "payment_method", "count"}).
			AddRow(StatusDelivered, "cod", 1).
			AddRow(StatusDelivered, "qris", 1).
			AddRow(StatusPending, "qris", 1).
			AddRow(StatusCancelled, "cod", 1))
	mock.ExpectQuery(regexp.QuoteMeta("JOIN orders o ON o.id = i.order_id")).
		WithArgs(TopProductsLimit).
		WillReturnRows(pgxmock.NewRows([]string{"product_id", "name", "qty", "revenue"}).
			AddRow("p2", "Rice Cooker", 1, int64(300000)).
			AddRow("p1", "Batik Shirt", 2, int64(200000)))

	s, err := repo.Stats(context.Background())
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())

	assert.Equal(t, 4, s.TotalOrders)
	assert.Equal(t, 1, s.PendingOrders)
	assert.Equal(t, 2, s.DeliveredOrders)
	assert.Equal(t, 1, s.CancelledOrders)
	assert.Equal(t, 2, s.CODOrders)
	assert.Equal(t, 2, s.OnlineOrders)
	assert.Equal(t, int64(600000), s.TotalRevenue)
	assert.Equal(t, int64(200000), s.CODRevenue)
	assert.Equal(t, int64(400000), s.OnlineRevenue)
	assert.Equal(t, int64(200000), s.AverageOrderValue, "cancelled orders excluded")
	assert.InDelta(t, 50.0, s.CompletionRate, 0.001)
	assert.Equal(t, map[Status]int{StatusDelivered: 2, StatusPending: 1, StatusCancelled: 1}, s.ByStatus)
	assert.Equal(t, map[string]int{"cod": 2, "qris": 2}, s.ByPaymentMethod)
	assert.Equal(t, []ProductSales{
		{ProductID: "p2", Name: "Rice Cooker", Quantity: 1, Revenue: 300000},
		{ProductID: "p1", Name: "Batik Shirt", Quantity: 2, Revenue: 200000},
	}, s.TopProducts)
}
