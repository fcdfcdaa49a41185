// Package projection consumes order events and keeps the read side fresh:
// the Redis status cache and customer notifications.
package projection

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ariefcatur/go-storefront/internal/events"
	kafkax "github.com/ariefcatur/go-storefront/internal/kafka"
	"github.com/ariefcatur/go-storefront/internal/redisx"
	"github.com/redis/go-redis/v9"
)

type Notification struct {
	OrderID string
	UserID  string
	Email   string
	Subject string
}

type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// LogNotifier writes notifications to the log instead of sending them.
type LogNotifier struct{ Log *slog.Logger }

func (l LogNotifier) Notify(_ context.Context, n Notification) error {
	l.Log.Info("customer notification", "order_id", n.OrderID, "user_id", n.UserID, "email", n.Email, "subject", n.Subject)
	return nil
}

type Service struct {
	Redis       redis.Cmdable
	Notifier    Notifier
	Log         *slog.Logger
	ServiceName string
}

// Handle dipasang sebagai handler consumer. Returning nil commits the offset.
func (s *Service) Handle(ctx context.Context, m kafkax.Message) error {
	// 1) decode envelope
	env, err := events.Parse(m.Value)
	if err != nil {
		// pesan rusak tidak akan pernah sukses; log lalu commit
		s.Log.Error("drop undecodable message", "topic", m.Topic, "offset", m.Offset, "err", err)
		return nil
	}
	if _, ok := events.TopicFor(env.EventType); !ok {
		return nil // ignore
	}

	// 2) dedup via Redis (pakai event_id)
	dkey := redisx.DedupKey(s.ServiceName, env.EventID)
	if seen, err := redisx.Exists(ctx, s.Redis, dkey); err != nil {
		return err
	} else if seen {
		return nil
	}

	// 3) apply
	if err := s.apply(ctx, env); err != nil {
		return err
	}
	_, err = redisx.FirstSeen(ctx, s.Redis, dkey, redisx.TTLDedup)
	return err
}

func (s *Service) apply(ctx context.Context, env events.Envelope) error {
	var (
		entry redisx.StatusEntry
		note  Notification
	)
	switch env.EventType {
	case events.TypeOrderCreated:
		p, err := events.Decode[events.OrderCreated](env)
		if err != nil {
			return s.drop(env, err)
		}
		entry = redisx.StatusEntry{OrderID: p.OrderID, Status: p.Status, PaymentStatus: p.PaymentStatus}
		note = Notification{OrderID: p.OrderID, UserID: p.UserID, Email: p.Email,
			Subject: fmt.Sprintf("Order %s received, total %d", p.OrderID, p.Total)}
	case events.TypeOrderStatusChanged:
		p, err := events.Decode[events.OrderStatusChanged](env)
		if err != nil {
			return s.drop(env, err)
		}
		entry = redisx.StatusEntry{OrderID: p.OrderID, Status: p.To, PaymentStatus: p.PaymentStatus}
		note = Notification{OrderID: p.OrderID, UserID: p.UserID, Email: p.Email, Subject: statusSubject(p.OrderID, p.To)}
	case events.TypePaymentStatusChanged:
		p, err := events.Decode[events.PaymentStatusChanged](env)
		if err != nil {
			return s.drop(env, err)
		}
		entry = redisx.StatusEntry{OrderID: p.OrderID, Status: p.Status, PaymentStatus: p.To}
		note = Notification{OrderID: p.OrderID, UserID: p.UserID, Email: p.Email,
			Subject: fmt.Sprintf("Payment for order %s is %s", p.OrderID, p.To)}
	}
	entry.UpdatedAt = env.OccurredAt

	if err := s.refreshStatus(ctx, entry); err != nil {
		return err
	}
	if s.Notifier != nil {
		if err := s.Notifier.Notify(ctx, note); err != nil {
			return fmt.Errorf("notify: %w", err)
		}
	}
	return nil
}

// drop logs a payload that can never be applied; the offset is still committed.
func (s *Service) drop(env events.Envelope, err error) error {
	s.Log.Error("drop undecodable payload", "event_id", env.EventID, "event_type", env.EventType, "err", err)
	return nil
}

// refreshStatus skips entries older than what is cached; the three topics
// are not ordered relative to each other.
func (s *Service) refreshStatus(ctx context.Context, e redisx.StatusEntry) error {
	cur, err := redisx.GetStatus(ctx, s.Redis, e.OrderID)
	if err != nil {
		return err
	}
	if cur != nil && cur.UpdatedAt.After(e.UpdatedAt) {
		s.Log.Debug("stale event skipped", "order_id", e.OrderID, "status", e.Status)
		return nil
	}
	return redisx.SetStatus(ctx, s.Redis, e)
}

func statusSubject(orderID, status string) string {
	switch status {
	case "confirmed":
		return fmt.Sprintf("Order %s has been confirmed", orderID)
	case "processing":
		return fmt.Sprintf("Order %s is being packed", orderID)
	case "shipped":
		return fmt.Sprintf("Order %s is on its way", orderID)
	case "delivered":
		return fmt.Sprintf("Order %s has been delivered", orderID)
	case "cancelled":
		return fmt.Sprintf("Order %s was cancelled", orderID)
	default:
		return fmt.Sprintf("Order %s is now %s", orderID, status)
	}
}
