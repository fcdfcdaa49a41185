package catalog

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var productCols = []string{"id", "name", "slug", "description", "price", "compare_price", "sku", "weight_grams",
	"image_url", "category_id", "category", "stock", "is_active", "is_featured", "created_at", "updated_at"}

func TestBuildListQuery(t *testing.T) {
	min := int64(1000)
	q, args := buildListQuery(Filter{Category: "Home", Search: " lamp ", MinPrice: &min, Sort: SortPriceHigh, Limit: 500})

	assert.Contains(t, q, "WHERE is_active AND (lower(category) = lower($1) OR category_id = $1) AND price >= $2 AND (name ILIKE $3 ESCAPE '\\' OR description ILIKE $3 ESCAPE '\\')")
	assert.Contains(t, q, "ORDER BY price DESC, id ASC LIMIT $4 OFFSET $5")
	assert.Equal(t, []any{"Home", int64(1000), "%lamp%", MaxLimit, 0}, args)
}

func TestBuildListQuery_NoFilters(t *testing.T) {
	q, args := buildListQuery(Filter{IncludeInactive: true})
	assert.NotContains(t, q, "WHERE")
	assert.Contains(t, q, "ORDER BY created_at DESC")
	assert.Equal(t, []any{DefaultLimit, 0}, args)
}

func TestPostgresRepository_Get(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	repo := &PostgresRepository{DB: mock}
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("FROM products WHERE id=$1")).
		WithArgs("p1").
		WillReturnRows(pgxmock.NewRows(productCols).AddRow(
			"p1", "Batik Shirt", "batik-shirt", "", int64(250000), int64(0), "SKU-1", int64(300),
			"", "c1", "Fashion", 4, true, false, now, now))
	mock.ExpectQuery(regexp.QuoteMeta("FROM products WHERE id=$1")).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	p, err := repo.Get(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "Batik Shirt", p.Name)
	assert.Equal(t, int64(300), p.WeightGrams)
	assert.Equal(t, 4, p.Stock)

	_, err = repo.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_DeleteAndUpdateNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	repo := &PostgresRepository{DB: mock}

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM products WHERE id=$1")).
		WithArgs("p1").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE products SET")).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	assert.ErrorIs(t, repo.Delete(context.Background(), "p1"), ErrNotFound)
	assert.ErrorIs(t, repo.Update(context.Background(), &Product{ID: "p2", Name: "X", Price: 1}), ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_CreateDuplicateID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	repo := &PostgresRepository{DB: mock}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO products(")).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	err = repo.Create(context.Background(), &Product{ID: "p1", Name: "Batik Shirt", Price: 1})
	assert.ErrorIs(t, err, ErrDuplicateProduct)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReserveTx_Shortage(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT stock FROM products WHERE id=$1 FOR UPDATE")).
		WithArgs("a").
		WillReturnRows(pgxmock.NewRows([]string{"stock"}).AddRow(5))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT stock FROM products WHERE id=$1 FOR UPDATE")).
		WithArgs("b").
		WillReturnRows(pgxmock.NewRows([]string{"stock"}).AddRow(0))
	mock.ExpectRollback()

	ctx := context.Background()
	tx, err := mock.Begin(ctx)
	require.NoError(t, err)
	err = ReserveTx(ctx, tx, []StockChange{{ProductID: "a", Qty: 2}, {ProductID: "b", Qty: 1}})
	require.ErrorIs(t, err, ErrInsufficientStock)
	require.NoError(t, tx.Rollback(ctx))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReserveTx_LocksInProductOrderWithMergedQuantities(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	for _, id := range []string{"a", "b"} {
		mock.ExpectQuery(regexp.QuoteMeta("SELECT stock FROM products WHERE id=$1 FOR UPDATE")).
			WithArgs(id).
			WillReturnRows(pgxmock.NewRows([]string{"stock"}).AddRow(3))
	}
	mock.ExpectExec(regexp.QuoteMeta("UPDATE products SET stock = stock - $2")).
		WithArgs("a", 3).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE products SET stock = stock - $2")).
		WithArgs("b", 1).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	ctx := context.Background()
	tx, err := mock.Begin(ctx)
	require.NoError(t, err)
	err = ReserveTx(ctx, tx, []StockChange{{ProductID: "b", Qty: 1}, {ProductID: "a", Qty: 2}, {ProductID: "a", Qty: 1}})
	require.NoError(t, err)
	require.NoError(t, tx.Commit(ctx))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReserveTx_DuplicateLinesCountTogether(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs("a").
		WillReturnRows(pgxmock.NewRows([]string{"stock"}).AddRow(3))
	mock.ExpectRollback()

	ctx := context.Background()
	tx, err := mock.Begin(ctx)
	require.NoError(t, err)
	err = ReserveTx(ctx, tx, []StockChange{{ProductID: "a", Qty: 2}, {ProductID: "a", Qty: 2}})
	var se *ShortageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, []Shortage{{ProductID: "a", Required: 4, Available: 3}}, se.Items)
	require.NoError(t, tx.Rollback(ctx))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBuildListQuery_SearchIsLiteral(t *testing.T) {
	_, args := buildListQuery(Filter{Search: `50%_off\`})
	assert.Equal(t, `%50\%\_off\\%`, args[0])
}

func TestMerge(t *testing.T) {
	got := Merge([]StockChange{{ProductID: "c", Qty: 1}, {ProductID: "a", Qty: 2}, {ProductID: "c", Qty: 4}})
	assert.Equal(t, []StockChange{{ProductID: "a", Qty: 2}, {ProductID: "c", Qty: 5}}, got)
	assert.Empty(t, Merge(nil))
}
