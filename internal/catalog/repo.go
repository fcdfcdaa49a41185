package catalog

import "context"

// Repository is the typed catalog access used by handlers and the order service.
// Stock is not adjusted here; orders move stock inside their own transaction.
type Repository interface {
	List(ctx context.Context, f Filter) ([]Product, error)
	Get(ctx context.Context, id string) (*Product, error)
	GetMany(ctx context.Context, ids []string) (map[string]Product, error)
	Create(ctx context.Context, p *Product) error
	Update(ctx context.Context, p *Product) error
	Delete(ctx context.Context, id string) error
	Categories(ctx context.Context) ([]Category, error)
}
