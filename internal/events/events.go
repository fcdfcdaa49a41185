// Package events defines the envelope v1 and the storefront order events
// carried over Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const Version = 1

const (
	TypeOrderCreated         = "OrderCreated"
	TypeOrderStatusChanged   = "OrderStatusChanged"
	TypePaymentStatusChanged = "PaymentStatusChanged"
)

type Envelope struct {
	EventID       string          `json:"event_id"`      // uuid
	EventType     string          `json:"event_type"`    // salah satu Type* di atas
	EventVersion  int             `json:"event_version"` // 1
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"` // e.g., "storefront-api"
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order_id
	Payload       json.RawMessage `json:"payload"`
}

// New wraps payload in a fresh envelope correlated to orderID.
func New(eventType, producer, traceID, orderID string, payload any) (Envelope, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode %s payload: %w", eventType, err)
	}
	return Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  Version,
		OccurredAt:    time.Now().UTC(),
		Producer:      producer,
		TraceID:       traceID,
		CorrelationID: orderID,
		Payload:       b,
	}, nil
}

func Parse(b []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return env, fmt.Errorf("decode envelope: %w", err)
	}
	return env, nil
}

// Decode unwraps the payload of env.
func Decode[T any](env Envelope) (T, error) {
	var t T
	if err := json.Unmarshal(env.Payload, &t); err != nil {
		return t, fmt.Errorf("decode %s payload: %w", env.EventType, err)
	}
	return t, nil
}

// ---- payloads ----

type Item struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Qty       int    `json:"qty"`
	Price     int64  `json:"price"`
}

type OrderCreated struct {
	OrderID        string `json:"order_id"`
	UserID         string `json:"user_id"`
	Email          string `json:"email"`
	Items          []Item `json:"items"`
	PaymentMethod  string `json:"payment_method"`
	ShippingMethod string `json:"shipping_method"`
	Status         string `json:"status"`
	PaymentStatus  string `json:"payment_status"`
	Total          int64  `json:"total"`
}

type OrderStatusChanged struct {
	OrderID       string `json:"order_id"`
	UserID        string `json:"user_id"`
	Email         string `json:"email"`
	From          string `json:"from"`
	To            string `json:"to"`
	PaymentStatus string `json:"payment_status"`
}

type PaymentStatusChanged struct {
	OrderID   string `json:"order_id"`
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	Status    string `json:"status"` // order status at the time
	From      string `json:"from"`
	To        string `json:"to"`
	Reference string `json:"reference,omitempty"`
	Amount    int64  `json:"amount"`
}

type traceKey struct{}

func WithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, traceKey{}, id)
}

func TraceID(ctx context.Context) string {
	s, _ := ctx.Value(traceKey{}).(string)
	return s
}
