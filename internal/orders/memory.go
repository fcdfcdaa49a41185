package orders

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ariefcatur/go-storefront/internal/catalog"
	"github.com/ariefcatur/go-storefront/internal/checkout"
)

// MemoryRepository keeps orders in process and moves stock through the
// in-memory catalog. Lock order is orders first, then catalog.
type MemoryRepository struct {
	mu     sync.RWMutex
	orders map[string]*Order
	byKey  map[string]string
	stock  *catalog.MemoryRepository
	now    func() time.Time
}

var _ Repository = (*MemoryRepository)(nil)

func NewMemoryRepository(stock *catalog.MemoryRepository) *MemoryRepository {
	return &MemoryRepository{
		orders: make(map[string]*Order),
		byKey:  make(map[string]string),
		stock:  stock,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (m *MemoryRepository) Create(_ context.Context, o *Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if o.IdempotencyKey != "" {
		if _, dup := m.byKey[o.IdempotencyKey]; dup {
			return ErrDuplicateKey
		}
	}
	if err := m.stock.Reserve(stockChanges(o.Items)); err != nil {
		return err
	}
	prepareNew(o, m.now())
	m.orders[o.ID] = o.clone()
	if o.IdempotencyKey != "" {
		m.byKey[o.IdempotencyKey] = o.ID
	}
	return nil
}

func (m *MemoryRepository) Get(_ context.Context, id string) (*Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	return o.clone(), nil
}

func (m *MemoryRepository) GetByIdempotencyKey(ctx context.Context, key string) (*Order, error) {
	m.mu.RLock()
	id, ok := m.byKey[key]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return m.Get(ctx, id)
}

// sorted returns copies matching keep, newest first.
func (m *MemoryRepository) sorted(keep func(*Order) bool) []Order {
	m.mu.RLock()
	out := []Order{}
	for _, o := range m.orders {
		if keep(o) {
			out = append(out, *o.clone())
		}
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (m *MemoryRepository) ListByUser(_ context.Context, userID string) ([]Order, error) {
	return m.sorted(func(o *Order) bool { return o.UserID == userID }), nil
}

func (m *MemoryRepository) List(_ context.Context, f ListFilter) ([]Order, error) {
	f = f.normalized()
	all := m.sorted(f.match)
	if f.Offset >= len(all) {
		return []Order{}, nil
	}
	end := min(f.Offset+f.Limit, len(all))
	return all[f.Offset:end], nil
}

func (m *MemoryRepository) UpdateStatus(_ context.Context, id string, from, to Status, cancel bool) (*Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	if o.Status != from {
		return nil, ErrStatusConflict
	}
	if cancel {
		m.stock.Release(stockChanges(o.Items))
		if o.PaymentStatus == PaymentPaid {
			o.PaymentStatus = PaymentRefunded
		}
	}
	o.Status = to
	o.UpdatedAt = m.now()
	return o.clone(), nil
}

func (m *MemoryRepository) UpdatePaymentStatus(_ context.Context, id string, from, to PaymentStatus, reference string) (*Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	if o.PaymentStatus != from {
		return nil, ErrStatusConflict
	}
	o.PaymentStatus = to
	if reference != "" {
		o.PaymentReference = reference
	}
	o.UpdatedAt = m.now()
	return o.clone(), nil
}

func (m *MemoryRepository) Stats(_ context.Context) (Stats, error) {
	return Summarize(m.sorted(func(*Order) bool { return true })), nil
}

// Summarize computes dashboard numbers over orders.
func Summarize(list []Order) Stats {
	s := Stats{ByStatus: map[Status]int{}, ByPaymentMethod: map[string]int{}}
	sales := map[string]*ProductSales{}
	for _, o := range list {
		s.TotalOrders++
		s.ByStatus[o.Status]++
		s.ByPaymentMethod[o.PaymentMethod]++
		cod := o.PaymentMethod == checkout.PaymentCOD
		if cod {
			s.CODOrders++
		} else {
			s.OnlineOrders++
		}
		switch o.Status {
		case StatusPending:
			s.PendingOrders++
		case StatusDelivered:
			s.DeliveredOrders++
		case StatusCancelled:
			s.CancelledOrders++
			continue
		}
		s.TotalRevenue += o.Total
		if cod {
			s.CODRevenue += o.Total
		}
		for _, it := range o.Items {
			ps, ok := sales[it.ProductID]
			if !ok {
				ps = &ProductSales{ProductID: it.ProductID, Name: it.Name}
				sales[it.ProductID] = ps
			}
			ps.Quantity += it.Quantity
			ps.Revenue += it.PriceAtPurchase * int64(it.Quantity)
		}
	}
	s.OnlineRevenue = s.TotalRevenue - s.CODRevenue

	for _, ps := range sales {
		s.TopProducts = append(s.TopProducts, *ps)
	}
	sort.Slice(s.TopProducts, func(i, j int) bool {
		a, b := s.TopProducts[i], s.TopProducts[j]
		if a.Revenue != b.Revenue {
			return a.Revenue > b.Revenue
		}
		return a.Name < b.Name
	})
	if len(s.TopProducts) > TopProductsLimit {
		s.TopProducts = s.TopProducts[:TopProductsLimit]
	}
	s.finish()
	return s
}
