package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ariefcatur/go-storefront/internal/cart"
	"github.com/ariefcatur/go-storefront/internal/catalog"
	"github.com/ariefcatur/go-storefront/internal/checkout"
	"github.com/ariefcatur/go-storefront/internal/events"
	"github.com/ariefcatur/go-storefront/internal/logx"
	"github.com/ariefcatur/go-storefront/internal/redisx"
	"github.com/ariefcatur/go-storefront/internal/validate"
	"github.com/redis/go-redis/v9"
)

// Publisher ships envelopes to the event bus.
type Publisher interface {
	PublishEvent(ctx context.Context, env events.Envelope) error
}

// Recorder receives business counters.
type Recorder interface {
	OrderCreated(paymentMethod string)
	OrderTransition(to string)
}

type CheckoutRequest struct {
	UserID         string   `json:"user_id" validate:"required"`
	Customer       Customer `json:"customer"`
	ShippingMethod string   `json:"shipping_method" validate:"required"`
	PaymentMethod  string   `json:"payment_method" validate:"required"`
	Discount       int64    `json:"discount" validate:"gte=0"`
	IdempotencyKey string   `json:"-"`
}

// Service owns the order lifecycle. Redis, Events and Metrics are optional.
type Service struct {
	Orders   Repository
	Products catalog.Repository
	Carts    cart.Store
	Methods  *checkout.Methods
	Calc     *checkout.Calculator
	Redis    redis.Cmdable
	Events   Publisher
	Metrics  Recorder
	Log      *slog.Logger
	Name     string // producer name on events
}

func (s *Service) log() *slog.Logger {
	if s.Log == nil {
		return logx.Discard()
	}
	return s.Log
}

func (s *Service) methods(shipCode, payCode string) (checkout.ShippingMethod, checkout.PaymentMethod, error) {
	ship, ok := s.Methods.Shipping(shipCode)
	if !ok {
		return ship, checkout.PaymentMethod{}, validate.Field("shipping_method", "is unknown")
	}
	pay, ok := s.Methods.Payment(payCode)
	if !ok {
		return ship, pay, validate.Field("payment_method", "is unknown")
	}
	if !ship.Active {
		return ship, pay, fmt.Errorf("%w: shipping %s is inactive", checkout.ErrMethodUnavailable, ship.Code)
	}
	if !pay.Active {
		return ship, pay, fmt.Errorf("%w: payment %s is inactive", checkout.ErrMethodUnavailable, pay.Code)
	}
	return ship, pay, nil
}

// priceLines re-reads live products so price and stock never come from the
// client or a stale cart snapshot.
func (s *Service) priceLines(ctx context.Context, c *cart.Cart) ([]checkout.Line, []Item, error) {
	if c == nil || c.IsEmpty() {
		return nil, nil, checkout.ErrEmptyCart
	}
	ids := make([]string, 0, len(c.Lines))
	for _, l := range c.Lines {
		ids = append(ids, l.ProductID)
	}
	live, err := s.Products.GetMany(ctx, ids)
	if err != nil {
		return nil, nil, fmt.Errorf("load products: %w", err)
	}

	var short []catalog.Shortage
	lines := make([]checkout.Line, 0, len(c.Lines))
	items := make([]Item, 0, len(c.Lines))
	for _, l := range c.Lines {
		if l.Quantity <= 0 {
			return nil, nil, fmt.Errorf("%w: %s", checkout.ErrInvalidLine, l.ProductID)
		}
		p, ok := live[l.ProductID]
		if !ok || !p.IsActive {
			short = append(short, catalog.Shortage{ProductID: l.ProductID, Required: l.Quantity})
			continue
		}
		if l.Quantity > p.Stock {
			short = append(short, catalog.Shortage{ProductID: l.ProductID, Required: l.Quantity, Available: p.Stock})
			continue
		}
		lines = append(lines, checkout.Line{ProductID: p.ID, Price: p.Price, Quantity: l.Quantity, WeightGrams: p.WeightGrams})
		items = append(items, Item{ProductID: p.ID, Name: p.Name, Quantity: l.Quantity, PriceAtPurchase: p.Price})
	}
	if len(short) > 0 {
		return nil, nil, &catalog.ShortageError{Items: short}
	}
	return lines, items, nil
}

// Quote prices a cart without creating anything.
func (s *Service) Quote(ctx context.Context, c *cart.Cart, shipCode, payCode string, discount int64) (checkout.Breakdown, error) {
	ship, pay, err := s.methods(shipCode, payCode)
	if err != nil {
		return checkout.Breakdown{}, err
	}
	lines, _, err := s.priceLines(ctx, c)
	if err != nil {
		return checkout.Breakdown{}, err
	}
	return s.Calc.Quote(lines, ship, pay, discount)
}

// Checkout turns the cart into a pending order. The bool result is true
// when the idempotency key matched an earlier order, which is returned as is.
func (s *Service) Checkout(ctx context.Context, req CheckoutRequest, c *cart.Cart) (*Order, bool, error) {
	if err := validate.Struct(req); err != nil {
		return nil, false, err
	}

	if req.IdempotencyKey != "" {
		if o, err := s.replay(ctx, req.IdempotencyKey); err == nil {
			return o, true, nil
		} else if !errors.Is(err, ErrNotFound) {
			return nil, false, err
		}
	}

	ship, pay, err := s.methods(req.ShippingMethod, req.PaymentMethod)
	if err != nil {
		return nil, false, err
	}
	lines, items, err := s.priceLines(ctx, c)
	if err != nil {
		return nil, false, err
	}
	b, err := s.Calc.Quote(lines, ship, pay, req.Discount)
	if err != nil {
		return nil, false, err
	}

	o := &Order{
		UserID:         req.UserID,
		Customer:       req.Customer,
		Items:          items,
		Status:         StatusPending,
		PaymentMethod:  pay.Code,
		PaymentStatus:  PaymentPending,
		ShippingMethod: ship.Code,
		Subtotal:       b.Subtotal,
		ShippingCost:   b.ShippingCost,
		ProcessingFee:  b.ProcessingFee,
		Tax:            b.Tax,
		Discount:       b.Discount,
		Total:          b.Total,
		IdempotencyKey: req.IdempotencyKey,
	}
	if err := s.Orders.Create(ctx, o); err != nil {
		if errors.Is(err, ErrDuplicateKey) {
			// request kembar yang kalah race: kembalikan order pemenang
			prev, gerr := s.Orders.GetByIdempotencyKey(ctx, req.IdempotencyKey)
			if gerr != nil {
				return nil, false, gerr
			}
			return prev, true, nil
		}
		return nil, false, err
	}

	log := s.log().With("order_id", o.ID, "user_id", o.UserID)
	if s.Redis != nil && o.IdempotencyKey != "" {
		if err := s.Redis.Set(ctx, redisx.IdemOrderKey(o.IdempotencyKey), o.ID, redisx.TTLIdempotency).Err(); err != nil {
			log.Warn("idempotency cache write failed", "err", err)
		}
	}
	s.cacheStatus(ctx, o)
	s.publish(ctx, events.TypeOrderCreated, o, createdPayload(o))
	if s.Metrics != nil {
		s.Metrics.OrderCreated(o.PaymentMethod)
	}
	if s.Carts != nil {
		if err := s.Carts.Delete(ctx, c.Owner); err != nil {
			log.Warn("clear cart failed", "err", err)
		}
		c.Clear()
	}
	log.Info("order created", "total", o.Total, "payment_method", o.PaymentMethod, "items", len(o.Items))
	return o, false, nil
}

// replay looks up an earlier checkout by key, Redis first.
func (s *Service) replay(ctx context.Context, key string) (*Order, error) {
	if s.Redis != nil {
		id, err := s.Redis.Get(ctx, redisx.IdemOrderKey(key)).Result()
		if err == nil && id != "" {
			if o, err := s.Orders.Get(ctx, id); err == nil {
				return o, nil
			}
		}
	}
	// DB tetap jadi kebenaran
	return s.Orders.GetByIdempotencyKey(ctx, key)
}

func (s *Service) Get(ctx context.Context, id string) (*Order, error) {
	return s.Orders.Get(ctx, id)
}

func (s *Service) ListForUser(ctx context.Context, userID string) ([]Order, error) {
	return s.Orders.ListByUser(ctx, userID)
}

func (s *Service) ListAll(ctx context.Context, f ListFilter) ([]Order, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, f.Status)
	}
	if f.PaymentStatus != "" && !f.PaymentStatus.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, f.PaymentStatus)
	}
	return s.Orders.List(ctx, f)
}

func (s *Service) Stats(ctx context.Context) (Stats, error) {
	return s.Orders.Stats(ctx)
}

// Transition moves an order to status to. Cancelling restocks the items and
// refunds a paid order.
func (s *Service) Transition(ctx context.Context, id string, to Status) (*Order, error) {
	if !to.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, to)
	}
	cur, err := s.Orders.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanTransition(cur.Status, to) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, cur.Status, to)
	}
	o, err := s.Orders.UpdateStatus(ctx, id, cur.Status, to, to == StatusCancelled)
	if err != nil {
		return nil, err
	}
	s.afterTransition(ctx, o, cur.Status)
	if o.PaymentStatus == PaymentRefunded && cur.PaymentStatus != PaymentRefunded {
		s.afterPayment(ctx, o, cur.PaymentStatus)
	}
	return o, nil
}

func (s *Service) Cancel(ctx context.Context, id string) (*Order, error) {
	return s.Transition(ctx, id, StatusCancelled)
}

// Advance moves an order one step along the forward sequence.
func (s *Service) Advance(ctx context.Context, id string) (*Order, error) {
	cur, err := s.Orders.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	next, ok := Next(cur.Status)
	if !ok {
		return nil, fmt.Errorf("%w: %s is final", ErrInvalidTransition, cur.Status)
	}
	return s.Transition(ctx, id, next)
}

// SetPaymentStatus records a payment outcome. A cancelled order cannot be
// marked paid.
func (s *Service) SetPaymentStatus(ctx context.Context, id string, to PaymentStatus, reference string) (*Order, error) {
	if !to.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, to)
	}
	cur, err := s.Orders.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanTransitionPayment(cur.PaymentStatus, to) {
		return nil, fmt.Errorf("%w: payment %s -> %s", ErrInvalidTransition, cur.PaymentStatus, to)
	}
	if to == PaymentPaid && cur.Status == StatusCancelled {
		return nil, fmt.Errorf("%w: order is cancelled", ErrInvalidTransition)
	}
	o, err := s.Orders.UpdatePaymentStatus(ctx, id, cur.PaymentStatus, to, reference)
	if err != nil {
		return nil, err
	}
	s.afterPayment(ctx, o, cur.PaymentStatus)
	return o, nil
}

// Status serves the status cache, falling back to the repository.
func (s *Service) Status(ctx context.Context, id string) (*redisx.StatusEntry, error) {
	if s.Redis != nil {
		e, err := redisx.GetStatus(ctx, s.Redis, id)
		if err != nil {
			s.log().Warn("status cache read failed", "order_id", id, "err", err)
		}
		if e != nil {
			return e, nil
		}
	}
	o, err := s.Orders.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cacheStatus(ctx, o)
	e := statusEntry(o)
	return &e, nil
}

func statusEntry(o *Order) redisx.StatusEntry {
	return redisx.StatusEntry{
		OrderID:       o.ID,
		Status:        string(o.Status),
		PaymentStatus: string(o.PaymentStatus),
		UpdatedAt:     o.UpdatedAt,
	}
}

func (s *Service) cacheStatus(ctx context.Context, o *Order) {
	if s.Redis == nil {
		return
	}
	if err := redisx.SetStatus(ctx, s.Redis, statusEntry(o)); err != nil {
		s.log().Warn("status cache write failed", "order_id", o.ID, "err", err)
	}
}

func (s *Service) afterTransition(ctx context.Context, o *Order, from Status) {
	s.cacheStatus(ctx, o)
	s.publish(ctx, events.TypeOrderStatusChanged, o, events.OrderStatusChanged{
		OrderID:       o.ID,
		UserID:        o.UserID,
		Email:         o.Customer.Email,
		From:          string(from),
		To:            string(o.Status),
		PaymentStatus: string(o.PaymentStatus),
	})
	if s.Metrics != nil {
		s.Metrics.OrderTransition(string(o.Status))
	}
	s.log().Info("order status changed", "order_id", o.ID, "from", from, "to", o.Status)
}

func (s *Service) afterPayment(ctx context.Context, o *Order, from PaymentStatus) {
	s.cacheStatus(ctx, o)
	s.publish(ctx, events.TypePaymentStatusChanged, o, events.PaymentStatusChanged{
		OrderID:   o.ID,
		UserID:    o.UserID,
		Email:     o.Customer.Email,
		Status:    string(o.Status),
		From:      string(from),
		To:        string(o.PaymentStatus),
		Reference: o.PaymentReference,
		Amount:    o.Total,
	})
	s.log().Info("payment status changed", "order_id", o.ID, "from", from, "to", o.PaymentStatus)
}

// publish never fails the caller; the order row is already committed.
func (s *Service) publish(ctx context.Context, eventType string, o *Order, payload any) {
	if s.Events == nil {
		return
	}
	env, err := events.New(eventType, s.Name, events.TraceID(ctx), o.ID, payload)
	if err == nil {
		err = s.Events.PublishEvent(ctx, env)
	}
	if err != nil {
		s.log().Error("publish event failed", "event_type", eventType, "order_id", o.ID, "err", err)
	}
}

func createdPayload(o *Order) events.OrderCreated {
	items := make([]events.Item, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, events.Item{ProductID: it.ProductID, Name: it.Name, Qty: it.Quantity, Price: it.PriceAtPurchase})
	}
	return events.OrderCreated{
		OrderID:        o.ID,
		UserID:         o.UserID,
		Email:          o.Customer.Email,
		Items:          items,
		PaymentMethod:  o.PaymentMethod,
		ShippingMethod: o.ShippingMethod,
		Status:         string(o.Status),
		PaymentStatus:  string(o.PaymentStatus),
		Total:          o.Total,
	}
}
