package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ariefcatur/go-storefront/internal/catalog"
	"github.com/ariefcatur/go-storefront/internal/checkout"
	"github.com/ariefcatur/go-storefront/internal/postgres"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var ErrDuplicateKey = errors.New("idempotency key already used")

// Repository stores orders. Create reserves stock in the same unit of work
// as the order insert; UpdateStatus and UpdatePaymentStatus are
// compare-and-set on the current value. With cancel set, UpdateStatus also
// returns the items to stock and moves a paid payment to refunded in the
// same unit of work.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	Get(ctx context.Context, id string) (*Order, error)
	GetByIdempotencyKey(ctx context.Context, key string) (*Order, error)
	ListByUser(ctx context.Context, userID string) ([]Order, error)
	List(ctx context.Context, f ListFilter) ([]Order, error)
	UpdateStatus(ctx context.Context, id string, from, to Status, cancel bool) (*Order, error)
	UpdatePaymentStatus(ctx context.Context, id string, from, to PaymentStatus, reference string) (*Order, error)
	Stats(ctx context.Context) (Stats, error)
}

func stockChanges(items []Item) []catalog.StockChange {
	out := make([]catalog.StockChange, 0, len(items))
	for _, it := range items {
		out = append(out, catalog.StockChange{ProductID: it.ProductID, Qty: it.Quantity})
	}
	return out
}

func prepareNew(o *Order, now time.Time) {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if o.Status == "" {
		o.Status = StatusPending
	}
	if o.PaymentStatus == "" {
		o.PaymentStatus = PaymentPending
	}
	o.CreatedAt = now
	o.UpdatedAt = now
}

const orderColumns = `id, user_id, customer, status, payment_method, payment_status, payment_reference,
	shipping_method, subtotal, shipping_cost, processing_fee, tax_amount, discount_amount, total_amount,
	COALESCE(idempotency_key, ''), created_at, updated_at`

type PostgresRepository struct{ DB postgres.DB }

var _ Repository = (*PostgresRepository)(nil)

func scanOrder(row pgx.Row) (Order, error) {
	var (
		o        Order
		customer []byte
	)
	err := row.Scan(&o.ID, &o.UserID, &customer, &o.Status, &o.PaymentMethod, &o.PaymentStatus,
		&o.PaymentReference, &o.ShippingMethod, &o.Subtotal, &o.ShippingCost, &o.ProcessingFee, &o.Tax,
		&o.Discount, &o.Total, &o.IdempotencyKey, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return o, err
	}
	if err := json.Unmarshal(customer, &o.Customer); err != nil {
		return o, fmt.Errorf("decode customer: %w", err)
	}
	return o, nil
}

// Create inserts the order and its items and decrements stock in one
// transaction. Harga sudah di-snapshot oleh service; repo tidak re-price.
func (r *PostgresRepository) Create(ctx context.Context, o *Order) error {
	prepareNew(o, time.Now().UTC())
	customer, err := json.Marshal(o.Customer)
	if err != nil {
		return err
	}
	var key *string
	if o.IdempotencyKey != "" {
		key = &o.IdempotencyKey
	}

	return postgres.InTx(ctx, r.DB, func(tx pgx.Tx) error {
		if err := catalog.ReserveTx(ctx, tx, stockChanges(o.Items)); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO orders(id, user_id, idempotency_key, status, payment_method, payment_status,
				payment_reference, shipping_method, customer, subtotal, shipping_cost, processing_fee,
				tax_amount, discount_amount, total_amount, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)`,
			o.ID, o.UserID, key, o.Status, o.PaymentMethod, o.PaymentStatus, o.PaymentReference,
			o.ShippingMethod, customer, o.Subtotal, o.ShippingCost, o.ProcessingFee, o.Tax, o.Discount,
			o.Total, o.CreatedAt, o.UpdatedAt)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				return ErrDuplicateKey
			}
			return err
		}
		for i, it := range o.Items {
			if _, err := tx.Exec(ctx, `
				INSERT INTO order_items(order_id, line_no, product_id, name, quantity, price_at_purchase)
				VALUES ($1,$2,$3,$4,$5,$6)`,
				o.ID, i, it.ProductID, it.Name, it.Quantity, it.PriceAtPurchase); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *PostgresRepository) getOne(ctx context.Context, where string, arg any) (*Order, error) {
	o, err := scanOrder(r.DB.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE `+where, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	list := []Order{o}
	if err := r.loadItems(ctx, list); err != nil {
		return nil, err
	}
	return &list[0], nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*Order, error) {
	return r.getOne(ctx, "id=$1", id)
}

func (r *PostgresRepository) GetByIdempotencyKey(ctx context.Context, key string) (*Order, error) {
	return r.getOne(ctx, "idempotency_key=$1", key)
}

// loadItems fills Items for every order with a single query.
func (r *PostgresRepository) loadItems(ctx context.Context, list []Order) error {
	if len(list) == 0 {
		return nil
	}
	ids := make([]string, 0, len(list))
	idx := make(map[string]int, len(list))
	for i := range list {
		ids = append(ids, list[i].ID)
		idx[list[i].ID] = i
		list[i].Items = []Item{}
	}
	rows, err := r.DB.Query(ctx, `
		SELECT order_id, product_id, name, quantity, price_at_purchase
		FROM order_items WHERE order_id = ANY($1) ORDER BY order_id, line_no`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			orderID string
			it      Item
		)
		if err := rows.Scan(&orderID, &it.ProductID, &it.Name, &it.Quantity, &it.PriceAtPurchase); err != nil {
			return err
		}
		if i, ok := idx[orderID]; ok {
			list[i].Items = append(list[i].Items, it)
		}
	}
	return rows.Err()
}

func (r *PostgresRepository) queryOrders(ctx context.Context, q string, args ...any) ([]Order, error) {
	rows, err := r.DB.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	out := []Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, o)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := r.loadItems(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]Order, error) {
	return r.queryOrders(ctx, `SELECT `+orderColumns+` FROM orders WHERE user_id=$1 ORDER BY created_at DESC, id`, userID)
}

func buildListQuery(f ListFilter) (string, []any) {
	f = f.normalized()
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if f.Status != "" {
		where = append(where, "status = "+arg(f.Status))
	}
	if f.PaymentMethod != "" {
		where = append(where, "payment_method = "+arg(f.PaymentMethod))
	}
	if f.PaymentStatus != "" {
		where = append(where, "payment_status = "+arg(f.PaymentStatus))
	}
	q := "SELECT " + orderColumns + " FROM orders"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY created_at DESC, id LIMIT " + arg(f.Limit) + " OFFSET " + arg(f.Offset)
	return q, args
}

func (r *PostgresRepository) List(ctx context.Context, f ListFilter) ([]Order, error) {
	q, args := buildListQuery(f)
	return r.queryOrders(ctx, q, args...)
}

// casMiss tells a missing order apart from a lost compare-and-set.
func casMiss(ctx context.Context, tx pgx.Tx, id string) error {
	var one int
	err := tx.QueryRow(ctx, `SELECT 1 FROM orders WHERE id=$1`, id).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return ErrStatusConflict
}

func (r *PostgresRepository) UpdateStatus(ctx context.Context, id string, from, to Status, cancel bool) (*Order, error) {
	err := postgres.InTx(ctx, r.DB, func(tx pgx.Tx) error {
		ct, err := tx.Exec(ctx, `
			UPDATE orders SET status=$3,
				payment_status = CASE WHEN $4 AND payment_status = $5 THEN $6 ELSE payment_status END,
				updated_at=now()
			WHERE id=$1 AND status=$2`, id, from, to, cancel, PaymentPaid, PaymentRefunded)
		if err != nil {
			return err
		}
		if ct.RowsAffected() == 0 {
			return casMiss(ctx, tx, id)
		}
		if !cancel {
			return nil
		}
		rows, err := tx.Query(ctx, `SELECT product_id, quantity FROM order_items WHERE order_id=$1`, id)
		if err != nil {
			return err
		}
		var changes []catalog.StockChange
		for rows.Next() {
			var c catalog.StockChange
			if err := rows.Scan(&c.ProductID, &c.Qty); err != nil {
				rows.Close()
				return err
			}
			changes = append(changes, c)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}
		return catalog.ReleaseTx(ctx, tx, changes)
	})
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, id)
}

func (r *PostgresRepository) UpdatePaymentStatus(ctx context.Context, id string, from, to PaymentStatus, reference string) (*Order, error) {
	err := postgres.InTx(ctx, r.DB, func(tx pgx.Tx) error {
		ct, err := tx.Exec(ctx, `
			UPDATE orders SET payment_status=$3, payment_reference=COALESCE(NULLIF($4, ''), payment_reference),
				updated_at=now()
			WHERE id=$1 AND payment_status=$2`, id, from, to, reference)
		if err != nil {
			return err
		}
		if ct.RowsAffected() == 0 {
			return casMiss(ctx, tx, id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, id)
}

func (r *PostgresRepository) Stats(ctx context.Context) (Stats, error) {
	s := Stats{ByStatus: map[Status]int{}, ByPaymentMethod: map[string]int{}}
	err := r.DB.QueryRow(ctx, `
		SELECT count(*),
			count(*) FILTER (WHERE status = 'pending'),
			count(*) FILTER (WHERE status = 'delivered'),
			count(*) FILTER (WHERE status = 'cancelled'),
			count(*) FILTER (WHERE payment_method = $1),
			count(*) FILTER (WHERE payment_method <> $1),
			COALESCE(sum(total_amount) FILTER (WHERE status <> 'cancelled'), 0)::bigint,
			COALESCE(sum(total_amount) FILTER (WHERE status <> 'cancelled' AND payment_method = $1), 0)::bigint
		FROM orders`, checkout.PaymentCOD).
		Scan(&s.TotalOrders, &s.PendingOrders, &s.DeliveredOrders, &s.CancelledOrders,
			&s.CODOrders, &s.OnlineOrders, &s.TotalRevenue, &s.CODRevenue)
	if err != nil {
		return s, err
	}
	s.OnlineRevenue = s.TotalRevenue - s.CODRevenue

	rows, err := r.DB.Query(ctx, `SELECT status, payment_method, count(*) FROM orders GROUP BY status, payment_method`)
	if err != nil {
		return s, err
	}
	for rows.Next() {
		var (
			st     Status
			method string
			n      int
		)
		if err := rows.Scan(&st, &method, &n); err != nil {
			rows.Close()
			return s, err
		}
		s.ByStatus[st] += n
		s.ByPaymentMethod[method] += n
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return s, err
	}

	rows, err = r.DB.Query(ctx, `
		SELECT i.product_id, min(i.name), sum(i.quantity)::bigint, sum(i.quantity * i.price_at_purchase)::bigint
		FROM order_items i JOIN orders o ON o.id = i.order_id
		WHERE o.status <> 'cancelled'
		GROUP BY i.product_id
		ORDER BY 4 DESC, 2 ASC
		LIMIT $1`, TopProductsLimit)
	if err != nil {
		return s, err
	}
	defer rows.Close()
	for rows.Next() {
		var p ProductSales
		if err := rows.Scan(&p.ProductID, &p.Name, &p.Quantity, &p.Revenue); err != nil {
			return s, err
		}
		s.TopProducts = append(s.TopProducts, p)
	}
	if err := rows.Err(); err != nil {
		return s, err
	}
	s.finish()
	return s, nil
}
