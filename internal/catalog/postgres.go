package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ariefcatur/go-storefront/internal/postgres"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const productColumns = `id, name, slug, description, price, compare_price, sku, weight_grams, image_url,
	category_id, category, stock, is_active, is_featured, created_at, updated_at`

type PostgresRepository struct{ DB postgres.DB }

var _ Repository = (*PostgresRepository)(nil)

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Name, &p.Slug, &p.Description, &p.Price, &p.ComparePrice, &p.SKU,
		&p.WeightGrams, &p.ImageURL, &p.CategoryID, &p.Category, &p.Stock, &p.IsActive, &p.IsFeatured,
		&p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// likeEscaper makes the search term a literal substring, matching Filter.Match.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// buildListQuery renders the filter as SQL. Kept separate so it can be tested.
func buildListQuery(f Filter) (string, []any) {
	f = f.normalized()
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if !f.IncludeInactive {
		where = append(where, "is_active")
	}
	if f.FeaturedOnly {
		where = append(where, "is_featured")
	}
	if f.Category != "" {
		p := arg(f.Category)
		where = append(where, "(lower(category) = lower("+p+") OR category_id = "+p+")")
	}
	if f.MinPrice != nil {
		where = append(where, "price >= "+arg(*f.MinPrice))
	}
	if f.MaxPrice != nil {
		where = append(where, "price <= "+arg(*f.MaxPrice))
	}
	if f.Search != "" {
		p := arg("%" + likeEscaper.Replace(f.Search) + "%")
		where = append(where, "(name ILIKE "+p+` ESCAPE '\' OR description ILIKE `+p+` ESCAPE '\')`)
	}

	var order string
	switch f.Sort {
	case SortPriceLow:
		order = "price ASC, id ASC"
	case SortPriceHigh:
		order = "price DESC, id ASC"
	case SortName:
		order = "lower(name) ASC, id ASC"
	default:
		order = "created_at DESC, id ASC"
	}

	q := "SELECT " + productColumns + " FROM products"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY " + order
	q += " LIMIT " + arg(f.Limit) + " OFFSET " + arg(f.Offset)
	return q, args
}

func (r *PostgresRepository) List(ctx context.Context, f Filter) ([]Product, error) {
	q, args := buildListQuery(f)
	rows, err := r.DB.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*Product, error) {
	p, err := scanProduct(r.DB.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PostgresRepository) GetMany(ctx context.Context, ids []string) (map[string]Product, error) {
	out := make(map[string]Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := r.DB.Query(ctx, `SELECT `+productColumns+` FROM products WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out[p.ID] = p
	}
	return out, rows.Err()
}

func (r *PostgresRepository) Create(ctx context.Context, p *Product) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = p.CreatedAt
	_, err := r.DB.Exec(ctx, `
		INSERT INTO products(id, name, slug, description, price, compare_price, sku, weight_grams, image_url,
			category_id, category, stock, is_active, is_featured, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`,
		p.ID, p.Name, p.Slug, p.Description, p.Price, p.ComparePrice, p.SKU, p.WeightGrams, p.ImageURL,
		p.CategoryID, p.Category, p.Stock, p.IsActive, p.IsFeatured, p.CreatedAt, p.UpdatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: %s", ErrDuplicateProduct, p.ID)
	}
	return err
}

func (r *PostgresRepository) Update(ctx context.Context, p *Product) error {
	if err := p.Validate(); err != nil {
		return err
	}
	p.UpdatedAt = time.Now().UTC()
	ct, err := r.DB.Exec(ctx, `
		UPDATE products SET name=$2, slug=$3, description=$4, price=$5, compare_price=$6, sku=$7,
			weight_grams=$8, image_url=$9, category_id=$10, category=$11, stock=$12, is_active=$13,
			is_featured=$14, updated_at=$15
		WHERE id=$1`,
		p.ID, p.Name, p.Slug, p.Description, p.Price, p.ComparePrice, p.SKU, p.WeightGrams, p.ImageURL,
		p.CategoryID, p.Category, p.Stock, p.IsActive, p.IsFeatured, p.UpdatedAt)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	ct, err := r.DB.Exec(ctx, `DELETE FROM products WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) Categories(ctx context.Context) ([]Category, error) {
	rows, err := r.DB.Query(ctx, `SELECT id, name, description, image_url, sort_order, is_active
		FROM categories WHERE is_active ORDER BY sort_order, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Category{}
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.ImageURL, &c.SortOrder, &c.IsActive); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) CreateCategory(ctx context.Context, c *Category) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	_, err := r.DB.Exec(ctx, `
		INSERT INTO categories(id, name, description, image_url, sort_order, is_active)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (id) DO NOTHING`,
		c.ID, c.Name, c.Description, c.ImageURL, c.SortOrder, c.IsActive)
	return err
}

// ReserveTx locks each product row, checks availability and decrements stock.
// Rows are locked in product id order so concurrent checkouts cannot
// deadlock. On shortage nothing is written and a *ShortageError is returned.
func ReserveTx(ctx context.Context, tx pgx.Tx, changes []StockChange) error {
	changes = Merge(changes)
	var short []Shortage
	for _, c := range changes {
		var stock int
		err := tx.QueryRow(ctx, `SELECT stock FROM products WHERE id=$1 FOR UPDATE`, c.ProductID).Scan(&stock)
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%w: %s", ErrNotFound, c.ProductID)
		}
		if err != nil {
			return err
		}
		if stock < c.Qty {
			short = append(short, Shortage{ProductID: c.ProductID, Required: c.Qty, Available: stock})
		}
	}
	if len(short) > 0 {
		return &ShortageError{Items: short}
	}
	for _, c := range changes {
		if _, err := tx.Exec(ctx, `UPDATE products SET stock = stock - $2, updated_at = now() WHERE id=$1`, c.ProductID, c.Qty); err != nil {
			return err
		}
	}
	return nil
}

// ReleaseTx puts reserved quantities back.
func ReleaseTx(ctx context.Context, tx pgx.Tx, changes []StockChange) error {
	for _, c := range Merge(changes) {
		if _, err := tx.Exec(ctx, `UPDATE products SET stock = stock + $2, updated_at = now() WHERE id=$1`, c.ProductID, c.Qty); err != nil {
			return err
		}
	}
	return nil
}
