package redisx

import (
	"fmt"
	"time"
)

const (
	// Cart snapshot: cart:{owner} -> JSON cart
	KeyCart = "cart:%s"

	// Idempotent checkout: idem:order:create:{idempotency_key} -> order_id
	KeyIdemOrderCreate = "idem:order:create:%s"

	// Order status cache: order_status:{order_id} -> {"status": "...", "payment_status": "...", "updated_at": "..."}
	KeyOrderStatus = "order_status:%s"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLIdempotency = 24 * time.Hour
	TTLStatusCache = 5 * time.Minute
	TTLDedup       = 48 * time.Hour
)

func CartKey(owner string) string             { return fmt.Sprintf(KeyCart, owner) }
func IdemOrderKey(key string) string          { return fmt.Sprintf(KeyIdemOrderCreate, key) }
func OrderStatusKey(orderID string) string    { return fmt.Sprintf(KeyOrderStatus, orderID) }
func DedupKey(service, eventID string) string { return fmt.Sprintf(KeyDedup, service, eventID) }
