package catalog

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository keeps the catalog in process. It also owns stock for the
// in-memory order repository, which reserves and releases through it.
type MemoryRepository struct {
	mu         sync.RWMutex
	products   map[string]Product
	categories []Category
	now        func() time.Time
}

var _ Repository = (*MemoryRepository)(nil)

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		products: make(map[string]Product),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (m *MemoryRepository) List(_ context.Context, f Filter) ([]Product, error) {
	m.mu.RLock()
	all := make([]Product, 0, len(m.products))
	for _, p := range m.products {
		all = append(all, p)
	}
	m.mu.RUnlock()
	return f.Apply(all), nil
}

func (m *MemoryRepository) Get(_ context.Context, id string) (*Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.products[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := p
	return &cp, nil
}

func (m *MemoryRepository) GetMany(_ context.Context, ids []string) (map[string]Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]Product, len(ids))
	for _, id := range ids {
		if p, ok := m.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (m *MemoryRepository) Create(_ context.Context, p *Product) error {
	if err := p.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if _, ok := m.products[p.ID]; ok {
		return ErrDuplicateProduct
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = m.now()
	}
	p.UpdatedAt = p.CreatedAt
	m.products[p.ID] = *p
	return nil
}

func (m *MemoryRepository) Update(_ context.Context, p *Product) error {
	if err := p.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.products[p.ID]
	if !ok {
		return ErrNotFound
	}
	p.CreatedAt = cur.CreatedAt
	p.UpdatedAt = m.now()
	m.products[p.ID] = *p
	return nil
}

func (m *MemoryRepository) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[id]; !ok {
		return ErrNotFound
	}
	delete(m.products, id)
	return nil
}

func (m *MemoryRepository) Categories(_ context.Context) ([]Category, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Category, 0, len(m.categories))
	for _, c := range m.categories {
		if c.IsActive {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SortOrder < out[j].SortOrder })
	return out, nil
}

func (m *MemoryRepository) AddCategory(c Category) {
	_ = m.CreateCategory(context.Background(), &c)
}

func (m *MemoryRepository) CreateCategory(_ context.Context, c *Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	for _, cur := range m.categories {
		if cur.ID == c.ID {
			return nil
		}
	}
	m.categories = append(m.categories, *c)
	return nil
}

// Reserve decrements stock for every change or for none of them.
func (m *MemoryRepository) Reserve(changes []StockChange) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	changes = Merge(changes)
	var short []Shortage
	for _, c := range changes {
		p, ok := m.products[c.ProductID]
		if !ok {
			return ErrNotFound
		}
		if p.Stock < c.Qty {
			short = append(short, Shortage{ProductID: c.ProductID, Required: c.Qty, Available: p.Stock})
		}
	}
	if len(short) > 0 {
		return &ShortageError{Items: short}
	}
	now := m.now()
	for _, c := range changes {
		p := m.products[c.ProductID]
		p.Stock -= c.Qty
		p.UpdatedAt = now
		m.products[c.ProductID] = p
	}
	return nil
}

// Release returns stock. Products deleted since the reservation are skipped.
func (m *MemoryRepository) Release(changes []StockChange) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	for _, c := range changes {
		p, ok := m.products[c.ProductID]
		if !ok {
			continue
		}
		p.Stock += c.Qty
		p.UpdatedAt = now
		m.products[c.ProductID] = p
	}
}
