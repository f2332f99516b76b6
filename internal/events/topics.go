package events

import kafkago "github.com/segmentio/kafka-go"

const (
	TopicOrderPlaced   = "sweets.order.placed"
	TopicOrderStatus   = "sweets.order.status"
	TopicStockAdjusted = "sweets.stock.adjusted"
)

// PartitionKey keys messages by entity id so all events for one sweet
// (or one order) stay ordered within a partition.
func PartitionKey(id string) []byte { return []byte(id) }

// Publisher is what the services see; the kafka producer satisfies it,
// tests use a recording fake.
type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}
