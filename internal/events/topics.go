package events

const (
	TopicOrderCreated = "storefront.order.created"
	TopicOrderStatus  = "storefront.order.status"
	TopicOrderPayment = "storefront.order.payment"
)

var topicByType = map[string]string{
	TypeOrderCreated:         TopicOrderCreated,
	TypeOrderStatusChanged:   TopicOrderStatus,
	TypePaymentStatusChanged: TopicOrderPayment,
}

// Topics lists every topic the storefront publishes to.
func Topics() []string {
	return []string{TopicOrderCreated, TopicOrderStatus, TopicOrderPayment}
}

func TopicFor(eventType string) (string, bool) {
	t, ok := topicByType[eventType]
	return t, ok
}

// Partition key = order_id, supaya semua event 1 order maintain urutan.
func PartitionKey(orderID string) []byte { return []byte(orderID) }
